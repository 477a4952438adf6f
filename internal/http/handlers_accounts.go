package http

import (
	"net/http"

	"detetive/internal/core"
)

type accountRequest struct {
	Name           string           `json:"name"`
	Type           core.AccountType `json:"type"`
	Balance        core.Money       `json:"balance"`
	MinimumBalance core.Money       `json:"minimum_balance"`
	Currency       string           `json:"currency"`
	IsDefault      bool             `json:"is_default"`
}

func (req accountRequest) account() core.Account {
	return core.Account{
		Name:           sanitizeInput(req.Name),
		Type:           req.Type,
		Balance:        req.Balance,
		MinimumBalance: req.MinimumBalance,
		Currency:       sanitizeInput(req.Currency),
		IsDefault:      req.IsDefault,
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	inactive, err := parseBoolParam(r.URL.Query(), "include_inactive")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	accounts, err := s.svc.Accounts.List(r.Context(), uid, inactive)
	s.respond(w, r, http.StatusOK, accounts, err)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.svc.Accounts.Create(r.Context(), uid, req.account())
	s.respond(w, r, http.StatusCreated, a, err)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	a, err := s.svc.Accounts.Get(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusOK, a, err)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.svc.Accounts.Update(r.Context(), uid, r.PathValue("id"), req.account())
	s.respond(w, r, http.StatusOK, a, err)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	err := s.svc.Accounts.Delete(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusNoContent, nil, err)
}

// handleSetDefaultAccount makes the account the default, clearing the
// previous one.
func (s *Server) handleSetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	a, err := s.svc.Accounts.SetDefault(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusOK, a, err)
}
