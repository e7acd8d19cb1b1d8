package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
	webembed "github.com/erazemk/izposoja/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

const timeLayout = "2006-01-02 15:04"

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleAtLeast": model.RoleAtLeast,
		"roleName": func(role string) string {
			switch role {
			case model.RoleAdmin:
				return "Administrator"
			case model.RoleOperator:
				return "Operator"
			default:
				return role
			}
		},
		"statusName": func(req model.BorrowRequest) string {
			switch {
			case req.ReturnedAt != nil:
				return "Returned"
			case req.Status == model.StatusApproved:
				return "Approved"
			case req.Status == model.StatusDenied:
				return "Denied"
			default:
				return "Pending"
			}
		},
		"formatTime": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				return v.Local().Format(timeLayout)
			case *time.Time:
				if v == nil {
					return ""
				}
				return v.Local().Format(timeLayout)
			default:
				return ""
			}
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs, err := webembed.TemplatesFS()
	if err != nil {
		return nil, err
	}

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"dashboard.html",
		"borrow.html",
		"users.html",
		"settings.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with an explicit status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *auth.Claims
	Error   string
	Success string
}

// Server holds all dependencies for page handlers.
type Server struct {
	Service   *lending.Service
	DB        *sql.DB
	Templates *Templates
	JWTSecret string
}

// page builds the base page data for an authenticated request and consumes
// any pending flash message.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title string) PageData {
	pd := PageData{Title: title, User: GetWebClaims(r.Context())}
	if f, ok := readFlash(w, r); ok {
		if f.Kind == flashError {
			pd.Error = f.Message
		} else {
			pd.Success = f.Message
		}
	}
	return pd
}
