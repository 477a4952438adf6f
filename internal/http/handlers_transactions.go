package http

import (
	"net/http"

	"detetive/internal/core"
)

type transactionRequest struct {
	Type                 core.TransactionType `json:"type"`
	AccountID            string               `json:"account_id"`
	DestinationAccountID string               `json:"destination_account_id"`
	CardID               string               `json:"card_id"`
	CategoryID           string               `json:"category_id"`
	Amount               core.Money           `json:"amount"`
	Description          string               `json:"description"`
	Notes                string               `json:"notes"`
	Date                 core.Date            `json:"date"`
}

func (req transactionRequest) transaction() core.Transaction {
	return core.Transaction{
		Type:                 req.Type,
		AccountID:            sanitizeInput(req.AccountID),
		DestinationAccountID: sanitizeInput(req.DestinationAccountID),
		CardID:               sanitizeInput(req.CardID),
		CategoryID:           sanitizeInput(req.CategoryID),
		Amount:               req.Amount,
		Description:          sanitizeInput(req.Description),
		Notes:                sanitizeInput(req.Notes),
		Date:                 req.Date,
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	filter, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	txs, err := s.svc.Transactions.List(r.Context(), uid, filter)
	s.respond(w, r, http.StatusOK, txs, err)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.svc.Transactions.Create(r.Context(), uid, req.transaction())
	s.respond(w, r, http.StatusCreated, t, err)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	t, err := s.svc.Transactions.Get(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusOK, t, err)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.svc.Transactions.Update(r.Context(), uid, r.PathValue("id"), req.transaction())
	s.respond(w, r, http.StatusOK, t, err)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	err := s.svc.Transactions.Delete(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusNoContent, nil, err)
}
