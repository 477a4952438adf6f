package http

import (
	"net/http"
	"time"

	"detetive/internal/core"
)

type budgetRequest struct {
	Name        string            `json:"name"`
	Amount      core.Money        `json:"amount"`
	Period      core.BudgetPeriod `json:"period"`
	StartDate   core.Date         `json:"start_date"`
	EndDate     core.Date         `json:"end_date"`
	CategoryIDs []string          `json:"category_ids"`
}

func (req budgetRequest) budget() core.Budget {
	ids := make([]string, 0, len(req.CategoryIDs))
	for _, id := range req.CategoryIDs {
		if id = sanitizeInput(id); id != "" {
			ids = append(ids, id)
		}
	}
	return core.Budget{
		Name:        sanitizeInput(req.Name),
		Amount:      req.Amount,
		Period:      req.Period,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CategoryIDs: ids,
	}
}

// summaryTime reads the optional at=YYYY-MM-DD parameter, defaulting to now.
func (s *Server) summaryTime(r *http.Request) (time.Time, error) {
	at, err := parseDateParam(r.URL.Query(), "at")
	if err != nil {
		return time.Time{}, err
	}
	if at.IsZero() {
		return s.now(), nil
	}
	return at.Time, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	inactive, err := parseBoolParam(r.URL.Query(), "include_inactive")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	budgets, err := s.svc.Budgets.List(r.Context(), uid, inactive)
	s.respond(w, r, http.StatusOK, budgets, err)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.svc.Budgets.Create(r.Context(), uid, req.budget())
	s.respond(w, r, http.StatusCreated, b, err)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	b, err := s.svc.Budgets.Get(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusOK, b, err)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.svc.Budgets.Update(r.Context(), uid, r.PathValue("id"), req.budget())
	s.respond(w, r, http.StatusOK, b, err)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	err := s.svc.Budgets.Delete(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusNoContent, nil, err)
}

func (s *Server) handleBudgetSummaries(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	at, err := s.summaryTime(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summaries, err := s.svc.Budgets.Summaries(r.Context(), uid, at)
	s.respond(w, r, http.StatusOK, summaries, err)
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	at, err := s.summaryTime(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summary, err := s.svc.Budgets.Summary(r.Context(), uid, r.PathValue("id"), at)
	s.respond(w, r, http.StatusOK, summary, err)
}
