package http

import (
	"net/http"

	"detetive/internal/core"
)

type categoryRequest struct {
	Name  string            `json:"name"`
	Kind  core.CategoryKind `json:"kind"`
	Color string            `json:"color"`
	Icon  string            `json:"icon"`
}

func (req categoryRequest) category() core.Category {
	return core.Category{
		Name:  sanitizeInput(req.Name),
		Kind:  req.Kind,
		Color: sanitizeInput(req.Color),
		Icon:  sanitizeInput(req.Icon),
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	inactive, err := parseBoolParam(r.URL.Query(), "include_inactive")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	categories, err := s.svc.Categories.List(r.Context(), uid, inactive)
	s.respond(w, r, http.StatusOK, categories, err)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.Categories.Create(r.Context(), uid, req.category())
	s.respond(w, r, http.StatusCreated, c, err)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	c, err := s.svc.Categories.Get(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusOK, c, err)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.Categories.Update(r.Context(), uid, r.PathValue("id"), req.category())
	s.respond(w, r, http.StatusOK, c, err)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	err := s.svc.Categories.Delete(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusNoContent, nil, err)
}
