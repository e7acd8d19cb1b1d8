package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(svc *lending.Service, db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{Service: svc}
	requestsHandler := &RequestsHandler{Service: svc}
	dashboardHandler := &DashboardHandler{Service: svc}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireOperator := RequireRole(model.RoleOperator)
	operator := func(h http.HandlerFunc) http.Handler {
		return authMW(requireOperator(h))
	}

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/borrow", dashboardHandler.Borrow)

	// Own account.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	mux.Handle("GET /api/dashboard", operator(dashboardHandler.Dashboard))
	mux.Handle("POST /api/messages", operator(dashboardHandler.SendMessage))

	// Items.
	mux.Handle("GET /api/items", operator(itemsHandler.List))
	mux.Handle("POST /api/items", operator(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", operator(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", operator(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", operator(itemsHandler.Delete))
	mux.Handle("PUT /api/items/{id}/image", operator(itemsHandler.UploadImage))
	mux.Handle("GET /api/items/{id}/image", operator(itemsHandler.GetImage))

	// Borrow requests.
	mux.Handle("GET /api/requests", operator(requestsHandler.List))
	mux.Handle("GET /api/requests/{id}", operator(requestsHandler.Get))
	mux.Handle("POST /api/requests/{id}/approve", operator(requestsHandler.Approve))
	mux.Handle("POST /api/requests/{id}/deny", operator(requestsHandler.Deny))
	mux.Handle("POST /api/requests/{id}/return", operator(requestsHandler.Return))
	mux.Handle("DELETE /api/requests/{id}", operator(requestsHandler.Delete))

	return mux
}
