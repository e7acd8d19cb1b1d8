package web

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
	webembed "github.com/erazemk/izposoja/web"
)

// NewRouter creates the web page router with all page routes registered.
func NewRouter(svc *lending.Service, db *sql.DB, jwtSecret string) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	static, err := webembed.StaticFS()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Service:   svc,
		DB:        db,
		Templates: templates,
		JWTSecret: jwtSecret,
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(jwtSecret, db)
	authed := func(h http.HandlerFunc) http.Handler {
		return cookieAuth(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return cookieAuth(RequireAdmin(h))
	}

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("GET /borrow", s.BorrowPage)
	mux.HandleFunc("POST /borrow", s.BorrowSubmit)

	// Authenticated routes.
	mux.Handle("POST /logout", authed(s.Logout))
	mux.Handle("GET /{$}", authed(s.Dashboard))
	mux.Handle("POST /messages", authed(s.MessageSubmit))

	mux.Handle("POST /items", authed(s.ItemCreateSubmit))
	mux.Handle("POST /items/{id}", authed(s.ItemUpdateSubmit))
	mux.Handle("POST /items/{id}/delete", authed(s.ItemDeleteSubmit))
	mux.Handle("POST /items/{id}/image", authed(s.ItemImageSubmit))
	mux.Handle("GET /items/{id}/image", authed(s.ItemImageGet))

	mux.Handle("POST /requests/{id}/approve", authed(s.RequestApproveSubmit))
	mux.Handle("POST /requests/{id}/deny", authed(s.RequestDenySubmit))
	mux.Handle("POST /requests/{id}/return", authed(s.RequestReturnSubmit))
	mux.Handle("POST /requests/{id}/delete", authed(s.RequestDeleteSubmit))

	mux.Handle("GET /settings", authed(s.SettingsPage))
	mux.Handle("POST /settings", authed(s.SettingsSubmit))

	mux.Handle("GET /users", admin(s.UsersPage))
	mux.Handle("POST /users", admin(s.UserCreateSubmit))
	mux.Handle("POST /users/{id}/password", admin(s.UserResetPasswordSubmit))
	mux.Handle("POST /users/{id}/role", admin(s.UserUpdateRoleSubmit))
	mux.Handle("POST /users/{id}/delete", admin(s.UserDeleteSubmit))

	return mux, nil
}
