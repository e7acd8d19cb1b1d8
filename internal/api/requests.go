package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// RequestsHandler handles the borrow request endpoints.
type RequestsHandler struct {
	Service *lending.Service
}

type transitionRequest struct {
	Note     string `json:"note"`
	SendMail bool   `json:"send_mail"`
}

type transitionResponse struct {
	Request  model.BorrowRequest `json:"request"`
	Notified bool                `json:"notified"`
	Warning  string              `json:"warning,omitempty"`
}

type transitionFunc func(ctx context.Context, id int64, note string, send bool) (*lending.TransitionResult, error)

// Approve handles POST /api/requests/{id}/approve.
func (h *RequestsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "request approved", h.Service.Approve)
}

// Deny handles POST /api/requests/{id}/deny.
func (h *RequestsHandler) Deny(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "request denied", h.Service.Deny)
}

// Return handles POST /api/requests/{id}/return.
func (h *RequestsHandler) Return(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "request returned", h.Service.MarkReturned)
}

func (h *RequestsHandler) transition(w http.ResponseWriter, r *http.Request, event string, fn transitionFunc) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var req transitionRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := fn(r.Context(), id, req.Note, req.SendMail)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := transitionResponse{Request: result.Request, Notified: result.Notified}
	if result.DeliveryErr != nil {
		resp.Warning = result.DeliveryErr.Error()
	}

	slog.Info(event, "user", actor(r), "request", id, "item", result.Request.ItemName,
		"email", result.Request.Email, "notified", result.Notified)
	jsonResponse(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/requests/{id}.
func (h *RequestsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	req, err := h.Service.DeleteRequest(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("request deleted", "user", actor(r), "request", id, "email", req.Email)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "request deleted"})
}

// Get handles GET /api/requests/{id}.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	req, err := h.Service.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, req)
}

// List handles GET /api/requests. Query parameters: open=1 for unreturned
// requests, status, item_id, order=updated for the activity log ordering,
// and limit.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	itemID, err := queryInt(r, "item_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := q.Get("status")
	switch status {
	case "", model.StatusPending, model.StatusApproved, model.StatusDenied:
	default:
		writeError(w, r, model.NewValidationError("status", "is invalid"))
		return
	}

	f := store.RequestFilter{
		OpenOnly: q.Get("open") == "1" || q.Get("open") == "true",
		Status:   status,
		ItemID:   int64(itemID),
		OrderBy:  store.OrderByCreated,
		Limit:    limit,
	}
	if q.Get("order") == "updated" {
		f.OrderBy = store.OrderByUpdated
	}

	requests, err := h.Service.ListRequests(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if requests == nil {
		requests = []model.BorrowRequest{}
	}
	jsonResponse(w, http.StatusOK, requests)
}
