package model

import "time"

// Borrow request statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"
)

// BorrowRequest is one borrower's claim on one item.
type BorrowRequest struct {
	ID         int64      `json:"id"`
	ItemID     int64      `json:"item_id"`
	Email      string     `json:"email"`
	Status     string     `json:"status"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	DeniedAt   *time.Time `json:"denied_at,omitempty"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Joined field, empty when the item has been deleted.
	ItemName string `json:"item_name"`
}

// Borrowed reports whether the request currently holds a unit of its item.
func (r BorrowRequest) Borrowed() bool {
	return r.Status == StatusApproved && r.ReturnedAt == nil
}

// Open reports whether the request has not been returned yet.
func (r BorrowRequest) Open() bool {
	return r.ReturnedAt == nil
}

// Stats are the dashboard counters.
type Stats struct {
	TotalItems      int `json:"total_items"`
	BorrowedItems   int `json:"borrowed_items"`
	PendingRequests int `json:"pending_requests"`
}

// SubmissionInput is a borrower-facing request for an item.
type SubmissionInput struct {
	ItemID int64  `json:"item_id" validate:"required,gt=0"`
	Email  string `json:"email" validate:"required,email,max=320"`
}
