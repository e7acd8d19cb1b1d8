package store

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/erazemk/izposoja/internal/db"
)

var revokedTokens = goqu.T("revoked_tokens")

// RevokeToken records jti as revoked until expiresAt. Revoking a token twice
// is a no-op.
func RevokeToken(ctx context.Context, q db.DBTX, jti string, expiresAt time.Time) error {
	if _, err := PurgeExpiredTokens(ctx, q, time.Now()); err != nil {
		return err
	}

	revoked, err := IsTokenRevoked(ctx, q, jti)
	if err != nil || revoked {
		return err
	}

	query, args, err := dialect.Insert(revokedTokens).
		Rows(goqu.Record{"jti": jti, "expires_at": expiresAt.UTC()}).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building revoke query: %w", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// PurgeExpiredTokens drops revocations of tokens that expired before now.
// Such tokens fail validation on their own.
func PurgeExpiredTokens(ctx context.Context, q db.DBTX, now time.Time) (int64, error) {
	query, args, err := dialect.Delete(revokedTokens).
		Where(goqu.C("expires_at").Lt(now.UTC())).
		Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("building purge query: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// IsTokenRevoked reports whether jti has been revoked.
func IsTokenRevoked(ctx context.Context, q db.DBTX, jti string) (bool, error) {
	query, args, err := dialect.From(revokedTokens).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("jti").Eq(jti)).
		Prepared(true).ToSQL()
	if err != nil {
		return false, fmt.Errorf("building revocation query: %w", err)
	}

	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}
