// Package lending implements the item catalog and the borrow request
// workflow on top of the store package.
package lending

import (
	"database/sql"
	"time"

	"golang.org/x/text/language"

	"github.com/erazemk/izposoja/internal/notify"
)

// DefaultListLimit is the number of requests returned by list operations
// when no positive limit is given.
const DefaultListLimit = 50

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Notifier accepts outgoing messages without blocking.
type Notifier interface {
	Dispatch(msg notify.Message) error
}

// Service runs catalog and request commands. Each command is a single
// database transaction; notifications are dispatched after it commits.
type Service struct {
	db             *sql.DB
	notifier       Notifier
	clock          Clock
	strictCapacity bool
	listLimit      int
	collation      language.Tag
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithStrictCapacity makes Approve refuse requests for items with no
// available units. By default approvals are never blocked.
func WithStrictCapacity(strict bool) Option {
	return func(s *Service) {
		s.strictCapacity = strict
	}
}

// WithListLimit sets the default request list length.
func WithListLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.listLimit = n
		}
	}
}

// WithCollation sets the language whose rules order item names.
func WithCollation(tag language.Tag) Option {
	return func(s *Service) {
		s.collation = tag
	}
}

// NewService returns a service backed by db. A nil notifier disables
// notifications.
func NewService(db *sql.DB, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		db:        db,
		notifier:  notifier,
		clock:     systemClock{},
		listLimit: DefaultListLimit,
		collation: language.Und,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Service) limit(n int) int {
	if n <= 0 {
		return s.listLimit
	}
	return n
}
