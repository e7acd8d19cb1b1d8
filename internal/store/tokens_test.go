package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/db"
)

func TestTokenRevocation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	if err := RevokeToken(ctx, database, "session-a", expires); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	// A second revocation of the same id is accepted.
	if err := RevokeToken(ctx, database, "session-a", expires); err != nil {
		t.Fatalf("RevokeToken again: %v", err)
	}

	tests := []struct {
		jti  string
		want bool
	}{
		{"session-a", true},
		{"session-b", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := IsTokenRevoked(ctx, database, tt.jti)
		if err != nil {
			t.Fatalf("IsTokenRevoked(%q): %v", tt.jti, err)
		}
		if got != tt.want {
			t.Errorf("IsTokenRevoked(%q) = %v, want %v", tt.jti, got, tt.want)
		}
	}
}

func TestPurgeExpiredTokens(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for jti, exp := range map[string]time.Time{
		"expired-1": now.Add(-2 * time.Hour),
		"expired-2": now.Add(-time.Minute),
		"live":      now.Add(24 * time.Hour),
	} {
		if _, err := database.ExecContext(ctx,
			`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`, jti, exp.UTC(),
		); err != nil {
			t.Fatalf("seeding %s: %v", jti, err)
		}
	}

	n, err := PurgeExpiredTokens(ctx, database, now)
	if err != nil {
		t.Fatalf("PurgeExpiredTokens: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 purged, got %d", n)
	}

	if live, _ := IsTokenRevoked(ctx, database, "live"); !live {
		t.Error("expected unexpired revocation to remain")
	}
	if gone, _ := IsTokenRevoked(ctx, database, "expired-1"); gone {
		t.Error("expected expired revocation to be purged")
	}
}
