package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

// The sqlite3 dialect renders backtick-quoted identifiers and ? placeholders,
// which MySQL accepts as well.
var dialect = goqu.Dialect("sqlite3")

// Request list orderings.
const (
	OrderByCreated = "created_at"
	OrderByUpdated = "updated_at"
)

// RequestFilter narrows ListRequests.
type RequestFilter struct {
	OpenOnly bool   // only requests without a return timestamp
	Status   string // exact status, empty for any
	ItemID   int64  // zero for any item
	OrderBy  string // OrderByCreated or OrderByUpdated, newest first
	Limit    int    // zero for no limit
}

var requestColumns = []any{
	"r.id", "r.item_id", "r.email", "r.status",
	"r.approved_at", "r.denied_at", "r.returned_at", "r.created_at", "r.updated_at",
	goqu.COALESCE(goqu.I("i.name"), "").As("item_name"),
}

func requestQuery() *goqu.SelectDataset {
	return dialect.From(goqu.T("borrow_requests").As("r")).
		LeftJoin(goqu.T("items").As("i"), goqu.On(goqu.I("i.id").Eq(goqu.I("r.item_id")))).
		Select(requestColumns...).
		Prepared(true)
}

// CreateRequest records a new pending borrow request.
func CreateRequest(ctx context.Context, q db.DBTX, itemID int64, email string, now time.Time) (*model.BorrowRequest, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO borrow_requests (item_id, email, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		itemID, email, model.StatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating borrow request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting borrow request id: %w", err)
	}

	return GetRequest(ctx, q, id)
}

// GetRequest returns a borrow request by ID, or nil if it does not exist.
func GetRequest(ctx context.Context, q db.DBTX, id int64) (*model.BorrowRequest, error) {
	query, args, err := requestQuery().Where(goqu.I("r.id").Eq(id)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building borrow request query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("getting borrow request: %w", err)
	}
	defer rows.Close()

	requests, err := scanRequests(rows)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	return &requests[0], nil
}

// ListRequests returns borrow requests matching f, newest first. Requests
// sharing a timestamp are ordered by descending id.
func ListRequests(ctx context.Context, q db.DBTX, f RequestFilter) ([]model.BorrowRequest, error) {
	ds := requestQuery()

	if f.OpenOnly {
		ds = ds.Where(goqu.I("r.returned_at").IsNull())
	}
	if f.Status != "" {
		ds = ds.Where(goqu.I("r.status").Eq(f.Status))
	}
	if f.ItemID > 0 {
		ds = ds.Where(goqu.I("r.item_id").Eq(f.ItemID))
	}

	orderBy := OrderByCreated
	if f.OrderBy == OrderByUpdated {
		orderBy = OrderByUpdated
	}
	ds = ds.Order(goqu.I("r."+orderBy).Desc(), goqu.I("r.id").Desc())

	if f.Limit > 0 {
		ds = ds.Limit(uint(f.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building borrow request query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing borrow requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// SetRequestStatus moves a request to approved or denied, stamping the
// matching timestamp and clearing the opposite one.
func SetRequestStatus(ctx context.Context, q db.DBTX, id int64, status string, now time.Time) error {
	var query string
	switch status {
	case model.StatusApproved:
		query = `UPDATE borrow_requests
		         SET status = ?, approved_at = ?, denied_at = NULL, updated_at = ?
		         WHERE id = ?`
	case model.StatusDenied:
		query = `UPDATE borrow_requests
		         SET status = ?, denied_at = ?, approved_at = NULL, updated_at = ?
		         WHERE id = ?`
	default:
		return fmt.Errorf("invalid target status %q", status)
	}

	if _, err := q.ExecContext(ctx, query, status, now, now, id); err != nil {
		return fmt.Errorf("setting borrow request status: %w", err)
	}
	return nil
}

// MarkRequestReturned stamps returned_at without touching the status.
func MarkRequestReturned(ctx context.Context, q db.DBTX, id int64, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE borrow_requests SET returned_at = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("marking borrow request returned: %w", err)
	}
	return nil
}

// DeleteRequest permanently removes a borrow request.
func DeleteRequest(ctx context.Context, q db.DBTX, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM borrow_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting borrow request: %w", err)
	}
	return nil
}

// GetStats returns the dashboard counters.
func GetStats(ctx context.Context, q db.DBTX) (*model.Stats, error) {
	stats := &model.Stats{}
	err := q.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM items),
		    (SELECT COUNT(*) FROM borrow_requests WHERE status = ? AND returned_at IS NULL),
		    (SELECT COUNT(*) FROM borrow_requests WHERE status = ?)`,
		model.StatusApproved, model.StatusPending,
	).Scan(&stats.TotalItems, &stats.BorrowedItems, &stats.PendingRequests)
	if errors.Is(err, sql.ErrNoRows) {
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting stats: %w", err)
	}
	return stats, nil
}

func scanRequests(rows *sql.Rows) ([]model.BorrowRequest, error) {
	var requests []model.BorrowRequest
	for rows.Next() {
		var r model.BorrowRequest
		if err := rows.Scan(&r.ID, &r.ItemID, &r.Email, &r.Status,
			&r.ApprovedAt, &r.DeniedAt, &r.ReturnedAt, &r.CreatedAt, &r.UpdatedAt,
			&r.ItemName); err != nil {
			return nil, fmt.Errorf("scanning borrow request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}
