package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

// DashboardHandler serves the operator overview, custom messages and the
// public borrow form.
type DashboardHandler struct {
	Service *lending.Service
}

type messageRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type messageResponse struct {
	ID      string `json:"id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
}

// Dashboard handles GET /api/dashboard.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}

	d, err := h.Service.Dashboard(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if d.Items == nil {
		d.Items = []model.ItemAvailability{}
	}
	if d.OpenRequests == nil {
		d.OpenRequests = []model.BorrowRequest{}
	}
	if d.RecentLog == nil {
		d.RecentLog = []model.BorrowRequest{}
	}
	jsonResponse(w, http.StatusOK, d)
}

// SendMessage handles POST /api/messages.
func (h *DashboardHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.Service.SendCustomMessage(req.Email, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("message sent", "user", actor(r), "to", msg.To, "id", msg.ID)
	jsonResponse(w, http.StatusAccepted, messageResponse{ID: msg.ID, To: msg.To, Subject: msg.Subject})
}

// Borrow handles POST /api/borrow. It needs no authentication.
func (h *DashboardHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var in model.SubmissionInput
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.SubmitRequest(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("borrow request submitted", "request", req.ID, "item", req.ItemName, "email", req.Email)
	jsonResponse(w, http.StatusCreated, req)
}
