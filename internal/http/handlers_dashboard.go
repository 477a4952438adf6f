package http

import (
	"net/http"
)

// handleDashboard serves the month overview, defaulting to the current month.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.svc.Dashboard.Get(r.Context(), uid, params.Year, params.Month)
	s.respond(w, r, http.StatusOK, d, err)
}
