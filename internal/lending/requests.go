package lending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/notify"
	"github.com/erazemk/izposoja/internal/store"
)

// ErrNotificationsDisabled is wrapped in a DeliveryError when a notification
// is requested from a service without a notifier.
var ErrNotificationsDisabled = errors.New("notifications are disabled")

// TransitionResult is the outcome of a status command. The request has been
// saved even when DeliveryErr is set.
type TransitionResult struct {
	Request     model.BorrowRequest
	Notified    bool
	DeliveryErr error
}

// Dashboard is everything the operator overview shows.
type Dashboard struct {
	Stats        model.Stats              `json:"stats"`
	Items        []model.ItemAvailability `json:"items"`
	OpenRequests []model.BorrowRequest    `json:"open_requests"`
	RecentLog    []model.BorrowRequest    `json:"recent_log"`
}

type transition struct {
	action notify.Action
	apply  func(ctx context.Context, tx db.DBTX, id int64, now time.Time) error
}

var (
	approve = transition{notify.ActionApproved, func(ctx context.Context, tx db.DBTX, id int64, now time.Time) error {
		return store.SetRequestStatus(ctx, tx, id, model.StatusApproved, now)
	}}
	deny = transition{notify.ActionDenied, func(ctx context.Context, tx db.DBTX, id int64, now time.Time) error {
		return store.SetRequestStatus(ctx, tx, id, model.StatusDenied, now)
	}}
	markReturned = transition{notify.ActionReturned, store.MarkRequestReturned}
)

// Approve marks a request approved and clears any denial. Re-approving an
// approved request stamps a new approval time.
func (s *Service) Approve(ctx context.Context, id int64, note string, send bool) (*TransitionResult, error) {
	return s.transition(ctx, id, approve, note, send)
}

// Deny marks a request denied and clears any approval.
func (s *Service) Deny(ctx context.Context, id int64, note string, send bool) (*TransitionResult, error) {
	return s.transition(ctx, id, deny, note, send)
}

// MarkReturned stamps the return time of a request. The status is kept.
func (s *Service) MarkReturned(ctx context.Context, id int64, note string, send bool) (*TransitionResult, error) {
	return s.transition(ctx, id, markReturned, note, send)
}

func (s *Service) transition(ctx context.Context, id int64, t transition, note string, send bool) (*TransitionResult, error) {
	var updated *model.BorrowRequest
	err := db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		req, err := store.GetRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return &model.NotFoundError{Entity: "borrow request", ID: id}
		}

		if t.action == notify.ActionApproved && s.strictCapacity && !req.Borrowed() {
			if err := checkCapacity(ctx, tx, req.ItemID); err != nil {
				return err
			}
		}

		if err := t.apply(ctx, tx, id, s.now()); err != nil {
			return err
		}
		updated, err = store.GetRequest(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Request: *updated}
	if send {
		msg := notify.BuildStatusNotification(*updated, t.action, note)
		if err := s.dispatch(msg); err != nil {
			result.DeliveryErr = err
		} else {
			result.Notified = true
		}
	}
	return result, nil
}

func checkCapacity(ctx context.Context, tx db.DBTX, itemID int64) error {
	borrowed, err := store.CountApprovedUnreturned(ctx, tx, itemID)
	if err != nil {
		return err
	}

	quantity := 0
	item, err := store.GetItem(ctx, tx, itemID)
	if err != nil {
		return err
	}
	if item != nil {
		quantity = item.Quantity
	}

	if available := quantity - borrowed; available <= 0 {
		return &model.CapacityExceededError{ItemID: itemID, Available: available}
	}
	return nil
}

func (s *Service) dispatch(msg notify.Message) error {
	if s.notifier == nil {
		return &model.DeliveryError{To: msg.To, Err: ErrNotificationsDisabled}
	}
	if err := s.notifier.Dispatch(msg); err != nil {
		slog.Warn("notification not queued", "to", msg.To, "subject", msg.Subject, "error", err)
		var derr *model.DeliveryError
		if errors.As(err, &derr) {
			return derr
		}
		return &model.DeliveryError{To: msg.To, Err: err}
	}
	return nil
}

// DeleteRequest removes a request permanently and returns it.
func (s *Service) DeleteRequest(ctx context.Context, id int64) (*model.BorrowRequest, error) {
	var req *model.BorrowRequest
	err := db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var err error
		req, err = store.GetRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return &model.NotFoundError{Entity: "borrow request", ID: id}
		}
		return store.DeleteRequest(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// GetRequest returns a single request.
func (s *Service) GetRequest(ctx context.Context, id int64) (*model.BorrowRequest, error) {
	req, err := store.GetRequest(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &model.NotFoundError{Entity: "borrow request", ID: id}
	}
	return req, nil
}

// ListOpenRequests returns unreturned requests, newest created first.
func (s *Service) ListOpenRequests(ctx context.Context, limit int) ([]model.BorrowRequest, error) {
	return store.ListRequests(ctx, s.db, openFilter(s.limit(limit)))
}

// ListRequestLog returns all requests, most recently updated first.
func (s *Service) ListRequestLog(ctx context.Context, limit int) ([]model.BorrowRequest, error) {
	return store.ListRequests(ctx, s.db, logFilter(s.limit(limit)))
}

// ListRequests returns requests matching f. A non-positive limit uses the
// default list length.
func (s *Service) ListRequests(ctx context.Context, f store.RequestFilter) ([]model.BorrowRequest, error) {
	f.Limit = s.limit(f.Limit)
	return store.ListRequests(ctx, s.db, f)
}

func openFilter(limit int) store.RequestFilter {
	return store.RequestFilter{OpenOnly: true, OrderBy: store.OrderByCreated, Limit: limit}
}

func logFilter(limit int) store.RequestFilter {
	return store.RequestFilter{OrderBy: store.OrderByUpdated, Limit: limit}
}

// Dashboard collects stats, items and both request lists from one snapshot.
func (s *Service) Dashboard(ctx context.Context, limit int) (*Dashboard, error) {
	limit = s.limit(limit)
	d := &Dashboard{}
	err := db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		stats, err := store.GetStats(ctx, tx)
		if err != nil {
			return err
		}
		d.Stats = *stats

		if d.Items, err = store.ListItemsWithAvailability(ctx, tx); err != nil {
			return err
		}
		if d.OpenRequests, err = store.ListRequests(ctx, tx, openFilter(limit)); err != nil {
			return err
		}
		d.RecentLog, err = store.ListRequests(ctx, tx, logFilter(limit))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading dashboard: %w", err)
	}

	s.sortItems(d.Items)
	return d, nil
}

// SubmitRequest records a borrower's pending request for an item.
func (s *Service) SubmitRequest(ctx context.Context, in model.SubmissionInput) (*model.BorrowRequest, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := model.Validate(in); err != nil {
		return nil, err
	}

	var req *model.BorrowRequest
	err := db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		item, err := store.GetItem(ctx, tx, in.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return &model.NotFoundError{Entity: "item", ID: in.ItemID}
		}
		req, err = store.CreateRequest(ctx, tx, in.ItemID, in.Email, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// SendCustomMessage queues a free-form message to a borrower. A returned
// *model.DeliveryError means the message was valid but could not be queued.
func (s *Service) SendCustomMessage(email, message string) (notify.Message, error) {
	msg, err := notify.BuildCustomMessage(email, message)
	if err != nil {
		return notify.Message{}, err
	}
	if err := s.dispatch(msg); err != nil {
		return msg, err
	}
	return msg, nil
}
