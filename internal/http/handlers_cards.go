package http

import (
	"net/http"

	"detetive/internal/core"
)

type cardRequest struct {
	Name       string         `json:"name"`
	Brand      core.CardBrand `json:"brand"`
	Limit      core.Money     `json:"limit"`
	ClosingDay int            `json:"closing_day"`
	DueDay     int            `json:"due_day"`
	LastFour   string         `json:"last_four"`
}

func (req cardRequest) card() core.CreditCard {
	return core.CreditCard{
		Name:       sanitizeInput(req.Name),
		Brand:      req.Brand,
		Limit:      req.Limit,
		ClosingDay: req.ClosingDay,
		DueDay:     req.DueDay,
		LastFour:   sanitizeInput(req.LastFour),
	}
}

// payBillRequest names the paying account. Empty means the default account.
type payBillRequest struct {
	AccountID string `json:"account_id"`
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	inactive, err := parseBoolParam(r.URL.Query(), "include_inactive")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cards, err := s.svc.Cards.List(r.Context(), uid, inactive)
	s.respond(w, r, http.StatusOK, cards, err)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req cardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.Cards.Create(r.Context(), uid, req.card())
	s.respond(w, r, http.StatusCreated, c, err)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	c, err := s.svc.Cards.Get(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusOK, c, err)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req cardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.Cards.Update(r.Context(), uid, r.PathValue("id"), req.card())
	s.respond(w, r, http.StatusOK, c, err)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	err := s.svc.Cards.Delete(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusNoContent, nil, err)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	bills, err := s.svc.Cards.Bills(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusOK, bills, err)
}

func (s *Server) handlePayBill(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req payBillRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	paid, err := s.svc.Cards.PayBill(r.Context(), uid, r.PathValue("id"), r.PathValue("billID"), sanitizeInput(req.AccountID))
	if err == nil {
		s.logger.InfoContext(r.Context(), "Bill paid",
			"user_id", uid,
			"card_id", r.PathValue("id"),
			"bill_id", paid.Bill.ID,
			"amount", paid.Transaction.Amount.String())
	}
	s.respond(w, r, http.StatusOK, paid, err)
}
