package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
)

const settingJWTSecret = "jwt_secret"

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
func GetJWTSecret(ctx context.Context, q db.DBTX) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	// A concurrent first start may win the insert; the primary key rejects
	// ours and the read below returns theirs.
	_, _ = q.ExecContext(ctx,
		`INSERT INTO settings (name, value) VALUES (?, ?)`,
		settingJWTSecret, candidate,
	)

	var secret string
	err := q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE name = ?`, settingJWTSecret,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}
