package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"caseflow/internal/intake"
	"caseflow/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/sirupsen/logrus"
)

// stepLink is one entry of the wizard's progress strip.
type stepLink struct {
	Step    types.Step
	Label   string
	Current bool
	Done    bool
}

type applicationPageData struct {
	types.BasePageData
	DraftID      string
	Step         types.Step
	Steps        []stepLink
	Form         intake.FormState
	Errors       map[string]string
	Categories   []types.Category
	Requirements intake.RequirementSnapshot
	Attachments  []intake.Attachment
	CanGoBack    bool
	MaxUploadMB  int64
}

type submittedPageData struct {
	types.BasePageData
	Result   *intake.SubmitResult
	Progress int
}

// loadSession restores the caller's draft named in the path. It writes the
// response itself and returns false when the draft cannot be used.
func (s *Service) loadSession(w http.ResponseWriter, r *http.Request) (*intake.Session, bool) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.redirectToLogin(w, r)
		return nil, false
	}

	draftID := flow.Param(ctx, "draftID")
	state, err := s.drafts.Get(ctx, userID, draftID)
	if err != nil {
		if errors.Is(err, types.ErrDraftNotFound) {
			http.NotFound(w, r)
			return nil, false
		}
		s.logger.WithError(err).WithField("draft_id", draftID).Error("failed to load draft")
		s.internalServerError(w)
		return nil, false
	}

	return s.restoreSession(state), true
}

func (s *Service) restoreSession(state intake.SessionState) *intake.Session {
	resolver := intake.NewResolver(s.requirements, s.logger)
	return intake.RestoreSession(state, resolver, s.spool, s.logger)
}

func (s *Service) saveSession(w http.ResponseWriter, r *http.Request, session *intake.Session) bool {
	if err := s.drafts.Save(context.WithoutCancel(r.Context()), session.State()); err != nil {
		s.logger.WithError(err).WithField("draft_id", session.State().ID).Error("failed to save draft")
		s.internalServerError(w)
		return false
	}
	return true
}

func (s *Service) handlePostApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.redirectToLogin(w, r)
		return
	}

	state, err := s.drafts.Active(ctx, userID)
	if err == nil {
		s.redirectToStep(w, r, state.ID, state.Step, "")
		return
	}
	if !errors.Is(err, types.ErrDraftNotFound) {
		s.logger.WithError(err).Error("failed to look up active draft")
		s.internalServerError(w)
		return
	}

	state, err = s.drafts.Create(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("failed to create draft")
		s.internalServerError(w)
		return
	}

	s.logger.WithField("draft_id", state.ID).Info("draft created")
	s.redirectToStep(w, r, state.ID, state.Step, "")
}

func (s *Service) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	s.redirectToStep(w, r, session.State().ID, session.Step(), "")
}

func (s *Service) handleGetApplicationStep(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	// Steps are reached by navigating, never by URL.
	requested := types.Step(flow.Param(r.Context(), "step"))
	if requested != session.Step() {
		s.redirectToStep(w, r, session.State().ID, session.Step(), "")
		return
	}

	if tab := r.URL.Query().Get("tab"); tab != "" {
		session.SelectTab(tab)
	}

	s.renderStep(w, r, http.StatusOK, session, session.State().Form, nil, r.URL.Query().Get("error"))
}

func (s *Service) handlePostApplicationNext(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	step := session.Step()
	if step == types.StepPhotoUpload {
		s.redirectToStep(w, r, session.State().ID, step, "Use the submit button to send your application.")
		return
	}

	next, err := session.Advance(r.Context(), r.PostForm)
	if err != nil {
		s.handleAdvanceError(w, r, session, step, r.PostForm, err)
		return
	}

	if !s.saveSession(w, r, session) {
		return
	}

	s.redirectToStep(w, r, session.State().ID, next, "")
}

func (s *Service) handleAdvanceError(w http.ResponseWriter, r *http.Request, session *intake.Session, step types.Step, values url.Values, err error) {
	if verr, ok := intake.IsValidationError(err); ok {
		s.renderStep(w, r, http.StatusUnprocessableEntity, session, overlaySection(session.State().Form, step, values), verr.Fields, "Please correct the highlighted fields.")
		return
	}
	if errors.Is(err, intake.ErrAlreadySubmitted) {
		http.Redirect(w, r, "/cases", http.StatusSeeOther)
		return
	}

	s.logger.WithError(err).WithField("draft_id", session.State().ID).Error("failed to advance draft")
	s.internalServerError(w)
}

func (s *Service) handlePostApplicationBack(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	prev, err := session.Back()
	if err != nil {
		// Nothing before the first step.
		s.redirectToStep(w, r, session.State().ID, session.Step(), "")
		return
	}

	if !s.saveSession(w, r, session) {
		return
	}

	s.redirectToStep(w, r, session.State().ID, prev, "")
}

func (s *Service) handlePostApplicationCategory(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	draftID := session.State().ID

	category, err := intake.ParseCategory(r.FormValue("category"))
	if err != nil {
		s.redirectToStep(w, r, draftID, session.Step(), "Choose one of the listed categories.")
		return
	}

	if err := session.SetCategory(r.Context(), category); err != nil {
		s.redirectToStep(w, r, draftID, session.Step(), "The category can only be changed on the professional step.")
		return
	}

	if !s.saveSession(w, r, session) {
		return
	}

	s.redirectToStep(w, r, draftID, session.Step(), "")
}

func (s *Service) handlePostApplicationDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	draftID := session.State().ID
	logger := s.logger.WithField("draft_id", draftID)

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		s.redirectToStep(w, r, draftID, session.Step(), "The file is too large or the upload was interrupted.")
		return
	}

	documentTypeID := r.FormValue("document_type_id")
	file, header, err := r.FormFile("file")
	if err != nil {
		s.redirectToStep(w, r, draftID, session.Step(), "Choose a file to attach.")
		return
	}
	defer file.Close()

	att, err := session.Attach(r.Context(), documentTypeID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		switch {
		case errors.Is(err, intake.ErrWrongStep):
			s.redirectToStep(w, r, draftID, session.Step(), "Documents can only be attached on the professional step.")
		case errors.Is(err, intake.ErrNoCategory):
			s.redirectToStep(w, r, draftID, session.Step(), "Choose a category before attaching documents.")
		case errors.Is(err, intake.ErrUnknownDocument):
			s.redirectToStep(w, r, draftID, session.Step(), "That document is not part of this category's checklist.")
		default:
			logger.WithError(err).Error("failed to attach document")
			s.redirectToStep(w, r, draftID, session.Step(), "The document could not be attached. Please try again.")
		}
		return
	}

	if !s.saveSession(w, r, session) {
		return
	}

	logger.WithFields(logrus.Fields{
		"document_type": att.DocumentTypeID,
		"size_bytes":    att.SizeBytes,
	}).Info("document attached")

	http.Redirect(w, r, applicationStepPath(draftID, session.Step())+"?tab="+url.QueryEscape(att.DocumentTypeID), http.StatusSeeOther)
}

func (s *Service) handlePostApplicationDocumentDelete(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	draftID := session.State().ID
	documentTypeID := flow.Param(r.Context(), "documentTypeID")

	if err := session.Detach(documentTypeID); err != nil {
		if errors.Is(err, intake.ErrWrongStep) {
			s.redirectToStep(w, r, draftID, session.Step(), "Documents can only be removed on the professional step.")
			return
		}
		s.logger.WithError(err).WithField("draft_id", draftID).Warn("failed to remove staged document")
	}

	if !s.saveSession(w, r, session) {
		return
	}

	s.redirectToStep(w, r, draftID, session.Step(), "")
}

func (s *Service) handlePostApplicationSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	state := session.State()
	logger := s.logger.WithField("draft_id", state.ID)

	if session.Step() != types.StepPhotoUpload {
		s.redirectToStep(w, r, state.ID, session.Step(), "Complete the remaining steps before submitting.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.redirectToStep(w, r, state.ID, session.Step(), "The photo is too large or the upload was interrupted.")
		return
	}

	acquired, err := s.drafts.AcquireSubmit(ctx, state.ID, submitGuardTTL(s.config))
	if err != nil {
		logger.WithError(err).Error("failed to acquire submit guard")
		s.internalServerError(w)
		return
	}
	if !acquired {
		s.redirectToStep(w, r, state.ID, session.Step(), "This application is already being submitted.")
		return
	}
	defer func() {
		if err := s.drafts.ReleaseSubmit(context.WithoutCancel(ctx), state.ID); err != nil {
			logger.WithError(err).Warn("failed to release submit guard")
		}
	}()

	// Another request may have submitted the draft while this body was read.
	fresh, err := s.drafts.Get(ctx, state.UserID, state.ID)
	if err != nil {
		if errors.Is(err, types.ErrDraftNotFound) {
			redirectWithQuery(w, r, "/cases", "notice", "This application has already been submitted.")
			return
		}
		logger.WithError(err).Error("failed to reload draft")
		s.internalServerError(w)
		return
	}
	switch fresh.Step {
	case types.StepPhotoUpload:
	case types.StepSubmitted:
		redirectWithQuery(w, r, "/cases", "notice", "This application has already been submitted.")
		return
	default:
		s.redirectToStep(w, r, fresh.ID, fresh.Step, "Complete the remaining steps before submitting.")
		return
	}
	session = s.restoreSession(fresh)

	if _, err := session.Advance(ctx, r.PostForm); err != nil {
		s.handleAdvanceError(w, r, session, types.StepPhotoUpload, r.PostForm, err)
		return
	}

	photo, err := s.stagePhoto(r, state.ID)
	if err != nil {
		logger.WithError(err).Error("failed to stage photo")
		s.redirectToStep(w, r, state.ID, session.Step(), "The photo could not be read. Please try again.")
		return
	}

	result, err := session.Submit(ctx, s.submitter, photo)
	if err != nil {
		if verr, ok := intake.IsValidationError(err); ok {
			// An earlier section no longer validates.
			if !s.saveSession(w, r, session) {
				return
			}
			s.redirectToStep(w, r, state.ID, session.Step(), fmt.Sprintf("Please review the %s section.", verr.Step.Label()))
			return
		}

		logger.WithError(err).Error("failed to submit application")
		if !s.saveSession(w, r, session) {
			return
		}
		s.redirectToStep(w, r, state.ID, session.Step(), "Your application could not be submitted. Please try again.")
		return
	}

	if err := s.drafts.Delete(context.WithoutCancel(ctx), state.UserID, state.ID); err != nil {
		logger.WithError(err).Warn("failed to delete submitted draft")
	}
	if err := s.spool.RemoveDraft(state.ID); err != nil {
		logger.WithError(err).Warn("failed to clear staged files")
	}

	reqs, err := s.requirements.Requirements(ctx, result.Case.Category)
	if err != nil {
		logger.WithError(err).Warn("failed to load requirements for progress")
	}

	data := &submittedPageData{
		BasePageData: types.BasePageData{Title: "Application submitted"},
		Result:       result,
		Progress:     intake.Progress(result.Case.Status, reqs, result.Documents),
	}

	if err := s.renderTemplate(w, r, "page.submitted", data); err != nil {
		logger.WithError(err).Error("failed to render submitted page")
		s.internalServerError(w)
		return
	}
}

// submitGuardTTL outlives the slowest possible submission.
func submitGuardTTL(config *types.Config) time.Duration {
	return 2*config.UploadTimeout + time.Minute
}

// stagePhoto spools the optional profile photo so the uploader can reopen it.
func (s *Service) stagePhoto(r *http.Request, draftID string) (*intake.File, error) {
	file, header, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	if header.Size == 0 {
		return nil, nil
	}

	return s.spoolUpload(draftID, "photo", file, header)
}

func (s *Service) spoolUpload(draftID, prefix string, file io.Reader, header *multipart.FileHeader) (*intake.File, error) {
	key, size, err := s.spool.Put(draftID, prefix+"-"+intake.SafeFilename(header.Filename), file)
	if err != nil {
		return nil, err
	}

	return &intake.File{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        size,
		Open:        func() (io.ReadCloser, error) { return s.spool.Open(key) },
	}, nil
}

func (s *Service) handlePostApplicationDiscard(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	state := session.State()
	logger := s.logger.WithField("draft_id", state.ID)

	session.Discard()
	if err := s.spool.RemoveDraft(state.ID); err != nil {
		logger.WithError(err).Warn("failed to clear staged files")
	}

	if err := s.drafts.Delete(r.Context(), state.UserID, state.ID); err != nil {
		logger.WithError(err).Error("failed to delete draft")
		s.internalServerError(w)
		return
	}

	logger.Info("draft discarded")
	redirectWithQuery(w, r, "/cases", "notice", "Your draft application was discarded.")
}

func (s *Service) renderStep(w http.ResponseWriter, r *http.Request, status int, session *intake.Session, form intake.FormState, fieldErrors map[string]string, flash string) {
	step := session.Step()
	state := session.State()

	data := &applicationPageData{
		BasePageData: types.BasePageData{
			Title: step.Label(),
			Error: flash,
		},
		DraftID:     state.ID,
		Step:        step,
		Form:        form,
		Errors:      fieldErrors,
		Categories:  types.AllCategories,
		Attachments: state.Form.SortedAttachments(),
		MaxUploadMB: s.config.MaxUploadBytes >> 20,
	}

	if _, err := intake.PreviousStep(step, state.Form.Answers()); err == nil {
		data.CanGoBack = true
	}

	done := true
	for _, visible := range session.VisibleSteps() {
		current := visible == step
		if current {
			done = false
		}
		data.Steps = append(data.Steps, stepLink{
			Step:    visible,
			Label:   visible.Label(),
			Current: current,
			Done:    done,
		})
	}

	if step == types.StepProfessionalInfo && state.Form.Category() != "" {
		snap, err := session.Requirements(r.Context())
		if err != nil {
			s.logger.WithError(err).WithField("draft_id", state.ID).Warn("requirement lookup did not settle")
		}
		data.Requirements = snap
		if !hasDocumentType(snap.Requirements, data.Form.ActiveDocumentTab) && len(snap.Requirements) > 0 {
			data.Form.ActiveDocumentTab = snap.Requirements[0].DocumentTypeID
		}
	}

	if err := s.renderTemplateStatus(w, r, status, "page.application", data); err != nil {
		s.logger.WithError(err).Error("failed to render application page")
	}
}

// overlaySection returns form with the section of step replaced by what the
// user just posted, so a rejected page shows their input rather than the
// last accepted values.
func overlaySection(form intake.FormState, step types.Step, values url.Values) intake.FormState {
	section, err := intake.DecodeSection(step, values)
	if err != nil {
		return form
	}

	switch v := section.(type) {
	case *intake.PersonalInfo:
		form.PersonalInfo = *v
	case *intake.ProfessionalInfo:
		form.ProfessionalInfo = *v
	case *intake.ImmigrationDetails:
		form.ImmigrationDetails = *v
	case *intake.FamilyDetails:
		form.FamilyDetails = *v
	case *intake.PhotoUpload:
		form.PhotoUpload = *v
	}
	return form
}

func hasDocumentType(reqs []types.DocumentRequirement, documentTypeID string) bool {
	for _, req := range reqs {
		if req.DocumentTypeID == documentTypeID {
			return true
		}
	}
	return false
}
