package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"caseflow/pkg/types"

	"github.com/sirupsen/logrus"
)

var (
	ErrSubmissionInFlight = errors.New("submission already in progress")
	ErrWrongStep          = errors.New("operation not allowed on this step")
	ErrNoCategory         = errors.New("choose a category first")
	ErrUnknownDocument    = errors.New("document type not required for this category")
	ErrAlreadySubmitted   = errors.New("application already submitted")
)

// Spool stages attachment bytes between the document step and submission.
type Spool interface {
	Put(draftID, name string, r io.Reader) (key string, size int64, err error)
	Open(key string) (io.ReadCloser, error)
	Remove(key string) error
}

// SessionState is the persisted form of a session.
type SessionState struct {
	ID     string     `json:"id"`
	UserID string     `json:"userId"`
	Step   types.Step `json:"step"`
	Form   FormState  `json:"form"`
	CaseID string     `json:"caseId,omitempty"`
}

// Session is one user's in-progress application. A session serves a single
// workflow; only Submit guards against concurrent use.
type Session struct {
	state    SessionState
	resolver *Resolver
	spool    Spool
	logger   logrus.FieldLogger

	// selected is set once the resolver tracks the form's category.
	selected bool

	mu         sync.Mutex
	submitting bool
}

func NewSession(id, userID string, resolver *Resolver, spool Spool, logger logrus.FieldLogger) *Session {
	return RestoreSession(SessionState{ID: id, UserID: userID, Step: InitialStep}, resolver, spool, logger)
}

// RestoreSession rebuilds a session from persisted state. Requirements for
// the stored category are fetched on first use, not here.
func RestoreSession(state SessionState, resolver *Resolver, spool Spool, logger logrus.FieldLogger) *Session {
	if state.Step == "" {
		state.Step = InitialStep
	}
	if state.Form.Attachments == nil {
		state.Form.Attachments = make(map[string]Attachment)
	}

	return &Session{
		state:    state,
		resolver: resolver,
		spool:    spool,
		logger:   logger.WithField("draft_id", state.ID),
	}
}

func (s *Session) State() SessionState {
	return s.state
}

func (s *Session) Step() types.Step {
	return s.state.Step
}

func (s *Session) Form() *FormState {
	return &s.state.Form
}

// VisibleSteps returns the sections applicable to the current answers.
func (s *Session) VisibleSteps() []types.Step {
	return VisibleSteps(s.state.Form.Answers())
}

// Advance validates the posted values for the active step. On failure the
// session is untouched and a *ValidationError is returned. On success the
// section is stored and the session moves to the next visible step; the
// photo step stays put until Submit.
func (s *Session) Advance(ctx context.Context, values url.Values) (types.Step, error) {
	step := s.state.Step
	if step == types.StepSubmitted {
		return step, ErrAlreadySubmitted
	}

	section, err := DecodeSection(step, values)
	if err != nil {
		return step, &ValidationError{Step: step, Fields: map[string]string{"_form": "The form could not be read. Please check your entries."}}
	}

	if err := s.checkSection(step, section); err != nil {
		return step, err
	}

	s.apply(ctx, section)

	next, err := NextStep(step, s.state.Form.Answers())
	if err != nil {
		return step, err
	}
	if next == types.StepSubmitted {
		return step, nil
	}

	s.state.Step = next
	return next, nil
}

// Back moves to the predecessor computed from the current answers. It never
// validates.
func (s *Session) Back() (types.Step, error) {
	prev, err := PreviousStep(s.state.Step, s.state.Form.Answers())
	if err != nil {
		return s.state.Step, err
	}
	s.state.Step = prev
	return prev, nil
}

// SetCategory records the category chosen on the professional step. A real
// change drops attachments of the previous category, resets the document tab
// and refetches the requirement list.
func (s *Session) SetCategory(ctx context.Context, category types.Category) error {
	if s.state.Step != types.StepProfessionalInfo {
		return ErrWrongStep
	}
	s.changeCategory(ctx, category)
	return nil
}

// changeCategory switches the form to category. Choosing the current
// category again keeps the attachments and only refetches after a failure.
func (s *Session) changeCategory(ctx context.Context, category types.Category) {
	if category == s.state.Form.Category() {
		if s.selected && s.resolver.Snapshot().State == ResolverFailed {
			s.resolver.Select(ctx, category)
		}
		return
	}

	s.clearAttachments()
	s.state.Form.ActiveDocumentTab = ""
	s.state.Form.ProfessionalInfo.Category = string(category)
	s.resolver.Select(ctx, category)
	s.selected = true
}

// ensureSelected points the resolver at the form's category the first time
// requirements are needed.
func (s *Session) ensureSelected(ctx context.Context) {
	if s.selected {
		return
	}
	s.selected = true
	if category := s.state.Form.Category(); category != "" {
		s.resolver.Select(ctx, category)
	}
}

func (s *Session) clearAttachments() {
	for typeID, att := range s.state.Form.Attachments {
		if err := s.spool.Remove(att.SpoolKey); err != nil {
			s.logger.WithError(err).WithField("document_type", typeID).Warn("failed to remove staged attachment")
		}
	}
	s.state.Form.Attachments = make(map[string]Attachment)
}

// Requirements waits for the checklist of the current category.
func (s *Session) Requirements(ctx context.Context) (RequirementSnapshot, error) {
	s.ensureSelected(ctx)
	return s.resolver.Wait(ctx)
}

// SelectTab makes documentTypeID the active document tab.
func (s *Session) SelectTab(documentTypeID string) {
	s.state.Form.ActiveDocumentTab = documentTypeID
}

// Attach stages a file for a document type of the current category,
// replacing any earlier file for that type.
func (s *Session) Attach(ctx context.Context, documentTypeID, filename, contentType string, r io.Reader) (Attachment, error) {
	if s.state.Step != types.StepProfessionalInfo {
		return Attachment{}, ErrWrongStep
	}
	if s.state.Form.Category() == "" {
		return Attachment{}, ErrNoCategory
	}

	snap, err := s.Requirements(ctx)
	if err != nil {
		return Attachment{}, err
	}
	if snap.State == ResolverFailed {
		return Attachment{}, snap.Err
	}
	if !hasRequirement(snap.Requirements, documentTypeID) {
		return Attachment{}, fmt.Errorf("%w: %s", ErrUnknownDocument, documentTypeID)
	}

	key, size, err := s.spool.Put(s.state.ID, documentTypeID+"-"+SafeFilename(filename), r)
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to stage %s: %w", filename, err)
	}

	if old, ok := s.state.Form.Attachments[documentTypeID]; ok {
		if err := s.spool.Remove(old.SpoolKey); err != nil {
			s.logger.WithError(err).WithField("document_type", documentTypeID).Warn("failed to remove replaced attachment")
		}
	}

	att := Attachment{
		DocumentTypeID: documentTypeID,
		Filename:       filename,
		ContentType:    contentType,
		SizeBytes:      size,
		SpoolKey:       key,
	}
	s.state.Form.Attachments[documentTypeID] = att
	s.state.Form.ActiveDocumentTab = documentTypeID

	return att, nil
}

// Detach drops the staged file of a document type.
func (s *Session) Detach(documentTypeID string) error {
	if s.state.Step != types.StepProfessionalInfo {
		return ErrWrongStep
	}
	att, ok := s.state.Form.Attachments[documentTypeID]
	if !ok {
		return nil
	}
	delete(s.state.Form.Attachments, documentTypeID)
	return s.spool.Remove(att.SpoolKey)
}

// Submit validates every visible section and hands the application to the
// submitter. A second call while one is running fails with
// ErrSubmissionInFlight.
func (s *Session) Submit(ctx context.Context, submitter *Submitter, photo *File) (*SubmitResult, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	s.submitting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	switch s.state.Step {
	case types.StepSubmitted:
		return nil, ErrAlreadySubmitted
	case types.StepPhotoUpload:
	default:
		return nil, ErrWrongStep
	}

	for _, step := range s.VisibleSteps() {
		if err := s.checkSection(step, s.section(step)); err != nil {
			return nil, err
		}
	}

	sub, err := BuildSubmission(s.state.UserID, &s.state.Form, s.documentFiles(), photo)
	if err != nil {
		return nil, err
	}

	result, err := submitter.Submit(ctx, sub)
	if err != nil {
		return nil, err
	}

	s.state.Step = types.StepSubmitted
	s.state.CaseID = result.Case.ID

	return result, nil
}

// Discard removes every staged file of the session.
func (s *Session) Discard() {
	s.clearAttachments()
}

func (s *Session) documentFiles() map[string]File {
	files := make(map[string]File, len(s.state.Form.Attachments))
	for typeID, att := range s.state.Form.Attachments {
		key := att.SpoolKey
		files[typeID] = File{
			DocumentTypeID: typeID,
			Filename:       att.Filename,
			ContentType:    att.ContentType,
			Size:           att.SizeBytes,
			Open:           func() (io.ReadCloser, error) { return s.spool.Open(key) },
		}
	}
	return files
}

func (s *Session) section(step types.Step) any {
	switch step {
	case types.StepPersonalInfo:
		return &s.state.Form.PersonalInfo
	case types.StepProfessionalInfo:
		return &s.state.Form.ProfessionalInfo
	case types.StepImmigrationDetails:
		return &s.state.Form.ImmigrationDetails
	case types.StepFamilyDetails:
		return &s.state.Form.FamilyDetails
	case types.StepPhotoUpload:
		return &s.state.Form.PhotoUpload
	}
	return nil
}

func (s *Session) apply(ctx context.Context, section any) {
	switch v := section.(type) {
	case *PersonalInfo:
		s.state.Form.PersonalInfo = *v
	case *ProfessionalInfo:
		category, _ := ParseCategory(v.Category)
		s.changeCategory(ctx, category)
		v.Category = string(category)
		s.state.Form.ProfessionalInfo = *v
	case *ImmigrationDetails:
		s.state.Form.ImmigrationDetails = *v
	case *FamilyDetails:
		s.state.Form.FamilyDetails = *v
	case *PhotoUpload:
		s.state.Form.PhotoUpload = *v
	}
}

// checkSection runs struct validation plus the rules that span sections.
func (s *Session) checkSection(step types.Step, section any) error {
	if err := ValidateSection(step, section); err != nil {
		return err
	}

	family, ok := section.(*FamilyDetails)
	if !ok {
		return nil
	}

	fields := map[string]string{}
	immigration := s.state.Form.ImmigrationDetails
	if immigration.HasSpouse {
		if strings.TrimSpace(family.SpouseFirstName) == "" {
			fields["spouse_first_name"] = "This field is required."
		}
		if strings.TrimSpace(family.SpouseLastName) == "" {
			fields["spouse_last_name"] = "This field is required."
		}
	}
	if len(family.Children) != immigration.NumberOfChildren {
		fields["children"] = fmt.Sprintf("Enter details for each of the %d children.", immigration.NumberOfChildren)
	}

	if len(fields) > 0 {
		return &ValidationError{Step: step, Fields: fields}
	}
	return nil
}

func hasRequirement(reqs []types.DocumentRequirement, documentTypeID string) bool {
	for _, req := range reqs {
		if req.DocumentTypeID == documentTypeID {
			return true
		}
	}
	return false
}
