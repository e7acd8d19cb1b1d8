package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", &PageData{Title: "Sign in"})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	loginError := func(status int, message string) {
		s.Templates.RenderStatus(w, status, "login.html", &PageData{Title: "Sign in", Error: message})
	}

	if username == "" || password == "" {
		loginError(http.StatusBadRequest, "Enter your username and password.")
		return
	}

	user, err := store.GetActiveUserByUsername(r.Context(), s.DB, username)
	if err != nil {
		slog.Error("failed to look up user", "error", err)
		loginError(http.StatusInternalServerError, "Sign in failed. Please try again.")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		slog.Warn("login failed", "username", username, "remote", r.RemoteAddr)
		loginError(http.StatusUnauthorized, "Wrong username or password.")
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, user)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		loginError(http.StatusInternalServerError, "Sign in failed. Please try again.")
		return
	}

	setAuthCookie(w, token)
	slog.Info("user logged in", "user", user.Username, "role", user.Role)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout by revoking the session token.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := GetWebClaims(r.Context()); claims != nil {
		if err := store.RevokeToken(r.Context(), s.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
			slog.Error("failed to revoke token", "error", err)
		} else {
			slog.Info("user logged out", "user", claims.Username)
		}
	}

	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// SettingsPage handles GET /settings.
func (s *Server) SettingsPage(w http.ResponseWriter, r *http.Request) {
	pd := s.page(w, r, "Settings")
	s.Templates.Render(w, "settings.html", &pd)
}

// SettingsSubmit handles POST /settings (change own password).
func (s *Server) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")

	if currentPassword == "" || newPassword == "" {
		redirectWithFlash(w, r, "/settings", flashError, "Enter your current and new password.")
		return
	}
	if err := model.ValidatePassword(newPassword); err != nil {
		redirectWithFlash(w, r, "/settings", flashError, "New "+err.Error()+".")
		return
	}

	user, err := store.GetUser(r.Context(), s.DB, claims.UserID)
	if err != nil {
		fail(w, r, "/settings", err)
		return
	}
	if user == nil || user.DeletedAt != nil {
		clearAuthCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, currentPassword) {
		redirectWithFlash(w, r, "/settings", flashError, "Current password is incorrect.")
		return
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		fail(w, r, "/settings", err)
		return
	}
	if err := store.UpdateUserPassword(r.Context(), s.DB, claims.UserID, hash); err != nil {
		fail(w, r, "/settings", err)
		return
	}

	slog.Info("user changed own password", "user", claims.Username)
	redirectWithFlash(w, r, "/settings", flashSuccess, "Password changed.")
}
