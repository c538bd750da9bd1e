package server

import (
	"net/http"
	"net/url"

	"caseflow/pkg/types"
)

func (s *Service) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Service) redirectWithNotice(w http.ResponseWriter, r *http.Request, notice string) {
	redirectWithQuery(w, r, "/", "notice", notice)
}


func applicationStepPath(draftID string, step types.Step) string {
	return "/applications/" + url.PathEscape(draftID) + "/step/" + string(step)
}

// redirectToStep sends the browser to a wizard step, optionally carrying a
// flash error in the query string.
func (s *Service) redirectToStep(w http.ResponseWriter, r *http.Request, draftID string, step types.Step, msg string) {
	if msg == "" {
		http.Redirect(w, r, applicationStepPath(draftID, step), http.StatusSeeOther)
		return
	}
	redirectWithQuery(w, r, applicationStepPath(draftID, step), "error", msg)
}

func redirectWithQuery(w http.ResponseWriter, r *http.Request, path, key, value string) {
	v := url.Values{}
	v.Set(key, value)
	http.Redirect(w, r, path+"?"+v.Encode(), http.StatusSeeOther)
}
