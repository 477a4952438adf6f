package http

import (
	"net/http"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.svc.Auth.Register(r.Context(), req.Email, req.Name, req.Password)
	s.respond(w, r, http.StatusCreated, session, err)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	s.respond(w, r, http.StatusOK, session, err)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	u, err := s.svc.Auth.Me(r.Context(), uid)
	s.respond(w, r, http.StatusOK, u, err)
}
