package server

import (
	"errors"
	"net/http"

	"caseflow/internal/intake"
	"caseflow/pkg/types"

	"github.com/alexedwards/flow"
)

func (s *Service) handleGetCases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.redirectToLogin(w, r)
		return
	}

	cases, err := s.cases.CasesByUser(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("failed to load cases")
		s.internalServerError(w)
		return
	}

	caseIDs := make([]string, 0, len(cases))
	for _, c := range cases {
		caseIDs = append(caseIDs, c.ID)
	}

	documents, err := s.documents.DocumentsByCaseIDs(ctx, caseIDs)
	if err != nil {
		s.logger.WithError(err).Error("failed to load case documents")
		s.internalServerError(w)
		return
	}

	requirements, err := s.requirementsFor(ctx, cases)
	if err != nil {
		s.logger.WithError(err).Error("failed to load document requirements")
		s.internalServerError(w)
		return
	}

	summaries := make([]types.CaseSummary, 0, len(cases))
	for _, c := range cases {
		reqs := requirements[c.Category]
		docs := documents[c.ID]
		summaries = append(summaries, types.CaseSummary{
			Case:     c,
			Progress: intake.Progress(c.Status, reqs, docs),
			Missing:  len(intake.MissingDocuments(reqs, docs)),
		})
	}

	data := &types.CaseListPageData{
		BasePageData: types.BasePageData{
			Title:  "My cases",
			Notice: r.URL.Query().Get("notice"),
			Error:  r.URL.Query().Get("error"),
		},
		Cases: summaries,
	}

	draft, err := s.drafts.Active(ctx, userID)
	switch {
	case err == nil:
		data.HasDraft = true
		data.DraftID = draft.ID
	case errors.Is(err, types.ErrDraftNotFound):
	default:
		s.logger.WithError(err).Warn("failed to look up active draft")
	}

	if err := s.renderTemplate(w, r, "page.cases", data); err != nil {
		s.logger.WithError(err).Error("failed to render cases page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handleGetCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.redirectToLogin(w, r)
		return
	}

	caseID := flow.Param(ctx, "caseID")
	logger := s.logger.WithField("case_id", caseID)

	c, err := s.cases.CaseByUserAndID(ctx, userID, caseID)
	if err != nil {
		if errors.Is(err, types.ErrCaseNotFound) {
			http.NotFound(w, r)
			return
		}
		logger.WithError(err).Error("failed to load case")
		s.internalServerError(w)
		return
	}

	documents, err := s.documents.DocumentsByCaseID(ctx, c.ID)
	if err != nil {
		logger.WithError(err).Error("failed to load case documents")
		s.internalServerError(w)
		return
	}

	reqs, err := s.requirements.Requirements(ctx, c.Category)
	if err != nil {
		logger.WithError(err).Error("failed to load document requirements")
		s.internalServerError(w)
		return
	}

	uploaded := make(map[string]bool, len(documents))
	for _, doc := range documents {
		if doc.UploadStatus == types.UploadStatusUploaded {
			uploaded[doc.DocumentTypeID] = true
		}
	}

	checklist := make([]types.ChecklistItem, 0, len(reqs))
	for _, req := range reqs {
		checklist = append(checklist, types.ChecklistItem{
			Requirement: req,
			Satisfied:   uploaded[req.DocumentTypeID],
		})
	}

	history, err := s.history.HistoryByCaseID(ctx, c.ID)
	if err != nil {
		logger.WithError(err).Error("failed to load case history")
		s.internalServerError(w)
		return
	}

	data := &types.CaseDetailPageData{
		BasePageData: types.BasePageData{Title: c.FullName()},
		Case:         c,
		Progress:     intake.Progress(c.Status, reqs, documents),
		Checklist:    checklist,
		Documents:    documents,
		History:      history,
	}

	if c.Category.IsPermanentResidence() {
		residency, err := s.residency.ResidencyByCaseID(ctx, c.ID)
		if err != nil {
			logger.WithError(err).Error("failed to load residency details")
			s.internalServerError(w)
			return
		}
		data.Residency = residency

		if residency != nil {
			members, err := s.residency.FamilyMembers(ctx, residency.ID)
			if err != nil {
				logger.WithError(err).Error("failed to load family members")
				s.internalServerError(w)
				return
			}
			data.FamilyMembers = members
		}
	}

	flight, err := s.flights.FlightByCaseID(ctx, c.ID)
	if err != nil {
		logger.WithError(err).Error("failed to load flight details")
		s.internalServerError(w)
		return
	}
	data.Flight = flight

	if err := s.renderTemplate(w, r, "page.case", data); err != nil {
		logger.WithError(err).Error("failed to render case page")
		s.internalServerError(w)
		return
	}
}
