package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

type dashboardPage struct {
	PageData
	*lending.Dashboard
}

// Dashboard handles GET /.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	pd := s.page(w, r, "Dashboard")

	d, err := s.Service.Dashboard(r.Context(), 0)
	if err != nil {
		slog.Error("failed to load dashboard", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Templates.Render(w, "dashboard.html", &dashboardPage{PageData: pd, Dashboard: d})
}

// MessageSubmit handles POST /messages.
func (s *Server) MessageSubmit(w http.ResponseWriter, r *http.Request) {
	msg, err := s.Service.SendCustomMessage(r.FormValue("email"), r.FormValue("message"))
	if err != nil {
		fail(w, r, "/", err)
		return
	}

	slog.Info("message sent", "user", webActor(r), "to", msg.To, "id", msg.ID)
	redirectWithFlash(w, r, "/", flashSuccess, "Message to "+msg.To+" queued.")
}

type borrowPage struct {
	PageData
	Items []model.ItemAvailability
	Email string
}

// BorrowPage handles GET /borrow. It needs no authentication.
func (s *Server) BorrowPage(w http.ResponseWriter, r *http.Request) {
	s.renderBorrow(w, r, http.StatusOK, s.page(w, r, "Borrow an item"), "")
}

func (s *Server) renderBorrow(w http.ResponseWriter, r *http.Request, status int, pd PageData, email string) {
	items, err := s.Service.ListItems(r.Context())
	if err != nil {
		slog.Error("failed to list items for borrow page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.Templates.RenderStatus(w, status, "borrow.html", &borrowPage{PageData: pd, Items: items, Email: email})
}

// BorrowSubmit handles POST /borrow.
func (s *Server) BorrowSubmit(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	in := model.SubmissionInput{Email: email}
	if id, ok := parseID(r.FormValue("item_id")); ok {
		in.ItemID = id
	}

	req, err := s.Service.SubmitRequest(r.Context(), in)
	if err != nil {
		pd := PageData{Title: "Borrow an item", Error: errorMessage(r, err)}
		s.renderBorrow(w, r, http.StatusBadRequest, pd, email)
		return
	}

	slog.Info("borrow request submitted", "request", req.ID, "item", req.ItemName, "email", req.Email)
	redirectWithFlash(w, r, "/borrow", flashSuccess, "Your request for "+req.ItemName+" was received.")
}
