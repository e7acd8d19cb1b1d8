package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
)

type transitionFunc func(ctx context.Context, id int64, note string, send bool) (*lending.TransitionResult, error)

// RequestApproveSubmit handles POST /requests/{id}/approve.
func (s *Server) RequestApproveSubmit(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.Service.Approve, "approved")
}

// RequestDenySubmit handles POST /requests/{id}/deny.
func (s *Server) RequestDenySubmit(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.Service.Deny, "denied")
}

// RequestReturnSubmit handles POST /requests/{id}/return.
func (s *Server) RequestReturnSubmit(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.Service.MarkReturned, "marked returned")
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc, verb string) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	send := r.FormValue("send_mail") != ""
	res, err := fn(r.Context(), id, r.FormValue("note"), send)
	if err != nil {
		fail(w, r, "/", err)
		return
	}

	req := res.Request
	slog.Info("request "+verb, "user", webActor(r), "request", req.ID, "item", req.ItemName, "email", req.Email, "notified", res.Notified)

	msg := "Request from " + req.Email + " " + verb + "."
	if res.DeliveryErr != nil {
		redirectWithFlash(w, r, "/", flashError, msg+" The notification could not be sent.")
		return
	}
	if res.Notified {
		msg += " Notification queued."
	}
	redirectWithFlash(w, r, "/", flashSuccess, msg)
}

// RequestDeleteSubmit handles POST /requests/{id}/delete.
func (s *Server) RequestDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	req, err := s.Service.DeleteRequest(r.Context(), id)
	if err != nil {
		fail(w, r, "/", err)
		return
	}

	slog.Info("request deleted", "user", webActor(r), "request", id, "email", req.Email)
	redirectWithFlash(w, r, "/", flashSuccess, "Request from "+req.Email+" deleted.")
}
