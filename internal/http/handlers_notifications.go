package http

import (
	"net/http"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	unread, err := parseBoolParam(r.URL.Query(), "unread")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.svc.Notifications.List(r.Context(), uid, unread)
	s.respond(w, r, http.StatusOK, list, err)
}

// handlePreviewNotifications evaluates the rules without storing anything.
func (s *Server) handlePreviewNotifications(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	list, err := s.svc.Notifications.Preview(r.Context(), uid, s.now())
	s.respond(w, r, http.StatusOK, list, err)
}

// handleRefreshNotifications stores the notifications not raised before and
// returns the new ones.
func (s *Server) handleRefreshNotifications(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	created, err := s.svc.Notifications.Refresh(r.Context(), uid, s.now())
	s.respond(w, r, http.StatusOK, created, err)
}

func (s *Server) handleReadAllNotifications(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	n, err := s.svc.Notifications.MarkAllRead(r.Context(), uid)
	s.respond(w, r, http.StatusOK, map[string]int{"updated": n}, err)
}

func (s *Server) handleReadNotification(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	err := s.svc.Notifications.MarkRead(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusNoContent, nil, err)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	err := s.svc.Notifications.Delete(r.Context(), uid, r.PathValue("id"))
	s.respond(w, r, http.StatusNoContent, nil, err)
}
