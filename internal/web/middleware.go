package web

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

type webContextKey string

const webClaimsKey webContextKey = "webclaims"

const (
	authCookie  = "token"
	flashCookie = "flash"
)

// CookieAuthMiddleware validates the session cookie, checks token
// revocation and adds the claims to the context.
func CookieAuthMiddleware(secret string, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(authCookie)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			claims, err := auth.ValidateToken(secret, cookie.Value)
			if err != nil {
				clearAuthCookie(w)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			revoked, err := store.IsTokenRevoked(r.Context(), db, claims.ID)
			if err != nil {
				slog.Error("failed to check token revocation", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if revoked {
				clearAuthCookie(w)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), webClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects users below the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetWebClaims(r.Context())
		if claims == nil || !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(auth.TokenExpiry.Seconds()),
	})
}

// clearAuthCookie clears the authentication cookie with consistent attributes.
func clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetWebClaims retrieves the JWT claims from web context.
func GetWebClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(webClaimsKey).(*auth.Claims)
	return claims
}

func webActor(r *http.Request) string {
	if claims := GetWebClaims(r.Context()); claims != nil {
		return claims.Username
	}
	return "anonymous"
}

type flashKind string

const (
	flashSuccess flashKind = "ok"
	flashError   flashKind = "error"
)

type flash struct {
	Kind    flashKind
	Message string
}

// redirectWithFlash stores a one-time message and redirects to target.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, target string, kind flashKind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(string(kind) + ":" + message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   60,
	})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// readFlash returns and clears the pending flash message.
func readFlash(w http.ResponseWriter, r *http.Request) (flash, bool) {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return flash{}, false
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return flash{}, false
	}
	kind, message, ok := strings.Cut(raw, ":")
	if !ok {
		return flash{}, false
	}
	return flash{Kind: flashKind(kind), Message: message}, true
}
