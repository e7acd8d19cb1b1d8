package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

type usersPage struct {
	PageData
	Users []model.User
	Roles []string
}

// UsersPage handles GET /users (admin only).
func (s *Server) UsersPage(w http.ResponseWriter, r *http.Request) {
	pd := s.page(w, r, "Users")

	users, err := store.ListUsers(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Templates.Render(w, "users.html", &usersPage{
		PageData: pd,
		Users:    users,
		Roles:    []string{model.RoleOperator, model.RoleAdmin},
	})
}

// UserCreateSubmit handles POST /users (admin only).
func (s *Server) UserCreateSubmit(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	role := r.FormValue("role")

	if username == "" || password == "" {
		redirectWithFlash(w, r, "/users", flashError, "Enter a username and password.")
		return
	}
	if !model.ValidRole(role) {
		redirectWithFlash(w, r, "/users", flashError, "Choose a valid role.")
		return
	}
	if err := model.ValidatePassword(password); err != nil {
		redirectWithFlash(w, r, "/users", flashError, "The "+err.Error()+".")
		return
	}

	existing, err := store.GetActiveUserByUsername(r.Context(), s.DB, username)
	if err != nil {
		fail(w, r, "/users", err)
		return
	}
	if existing != nil {
		redirectWithFlash(w, r, "/users", flashError, "Username "+username+" is already taken.")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fail(w, r, "/users", err)
		return
	}
	if _, err := store.CreateUser(r.Context(), s.DB, username, hash, role); err != nil {
		fail(w, r, "/users", err)
		return
	}

	slog.Info("user created", "user", webActor(r), "new_user", username, "role", role)
	redirectWithFlash(w, r, "/users", flashSuccess, "User "+username+" created.")
}

// UserResetPasswordSubmit handles POST /users/{id}/password (admin only).
func (s *Server) UserResetPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	newPassword := r.FormValue("new_password")
	if err := model.ValidatePassword(newPassword); err != nil {
		redirectWithFlash(w, r, "/users", flashError, "The "+err.Error()+".")
		return
	}

	target, err := store.GetUser(r.Context(), s.DB, id)
	if err != nil {
		fail(w, r, "/users", err)
		return
	}
	if target == nil || target.DeletedAt != nil {
		fail(w, r, "/users", &model.NotFoundError{Entity: "user", ID: id})
		return
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		fail(w, r, "/users", err)
		return
	}
	if err := store.UpdateUserPassword(r.Context(), s.DB, id, hash); err != nil {
		fail(w, r, "/users", err)
		return
	}

	slog.Info("user password reset", "user", webActor(r), "target_user", target.Username)
	redirectWithFlash(w, r, "/users", flashSuccess, "Password for "+target.Username+" reset.")
}

// UserUpdateRoleSubmit handles POST /users/{id}/role (admin only).
func (s *Server) UserUpdateRoleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	role := r.FormValue("role")
	if !model.ValidRole(role) {
		redirectWithFlash(w, r, "/users", flashError, "Choose a valid role.")
		return
	}

	user, err := store.ChangeUserRole(r.Context(), s.DB, id, role)
	if err != nil {
		fail(w, r, "/users", err)
		return
	}

	slog.Info("user role updated", "user", webActor(r), "target_user", user.Username, "new_role", role)
	redirectWithFlash(w, r, "/users", flashSuccess, "Role of "+user.Username+" updated.")
}

// UserDeleteSubmit handles POST /users/{id}/delete (admin only).
func (s *Server) UserDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if claims := GetWebClaims(r.Context()); claims != nil && claims.UserID == id {
		redirectWithFlash(w, r, "/users", flashError, "You cannot delete your own account.")
		return
	}

	user, err := store.RemoveUser(r.Context(), s.DB, id)
	if err != nil {
		fail(w, r, "/users", err)
		return
	}

	slog.Info("user deleted", "user", webActor(r), "deleted_user", user.Username)
	redirectWithFlash(w, r, "/users", flashSuccess, "User "+user.Username+" deleted.")
}
