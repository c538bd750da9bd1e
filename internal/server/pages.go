package server

import (
	"context"
	"net/http"
	"strings"

	"caseflow/pkg/types"
)

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	data := &types.HomePageData{
		BasePageData: types.BasePageData{
			Title:  "",
			Notice: r.URL.Query().Get("notice"),
			Error:  r.URL.Query().Get("error"),
		},
		Categories: types.AllCategories,
	}

	if err := s.renderTemplate(w, r, "page.home", data); err != nil {
		s.logger.WithError(err).Error("failed to render home page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func required(v string) bool {
	return strings.TrimSpace(v) != ""
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// requirementsFor loads the checklist of each distinct category once.
func (s *Service) requirementsFor(ctx context.Context, cases []*types.Case) (map[types.Category][]types.DocumentRequirement, error) {
	out := make(map[types.Category][]types.DocumentRequirement)
	for _, c := range cases {
		if _, ok := out[c.Category]; ok {
			continue
		}
		reqs, err := s.requirements.Requirements(ctx, c.Category)
		if err != nil {
			return nil, err
		}
		out[c.Category] = reqs
	}
	return out, nil
}
