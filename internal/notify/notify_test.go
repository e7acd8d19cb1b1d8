package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/model"
)

func TestBuildStatusNotification(t *testing.T) {
	req := model.BorrowRequest{ID: 7, ItemID: 3, Email: "ana@example.com", ItemName: "Projector"}

	tests := []struct {
		action  Action
		subject string
		phrase  string
	}{
		{ActionApproved, "Your borrow request has been approved", "has been approved"},
		{ActionDenied, "Your borrow request has been denied", "has been denied"},
		{ActionReturned, "Return confirmation for borrowed item", "recorded the return"},
		{Action("lost"), "Update on your borrow request", "there is an update"},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			msg := BuildStatusNotification(req, tt.action, "ready for pickup")

			assert.Equal(t, "ana@example.com", msg.To)
			assert.Equal(t, tt.subject, msg.Subject)
			assert.Equal(t, tt.action, msg.Action)
			assert.Equal(t, "Projector", msg.ItemName)
			assert.Equal(t, "ready for pickup", msg.Note)
			assert.Contains(t, msg.Body, tt.phrase)
			assert.Contains(t, msg.Body, `"Projector"`)
			assert.Contains(t, msg.Body, "Note: ready for pickup")
			assert.Len(t, msg.ID, 26)
		})
	}
}

func TestBuildStatusNotificationWithoutNote(t *testing.T) {
	req := model.BorrowRequest{Email: "ana@example.com", ItemName: "Tent"}

	msg := BuildStatusNotification(req, ActionApproved, "   ")

	assert.Empty(t, msg.Note)
	assert.NotContains(t, msg.Body, "Note:")
}

func TestMessageIDsAreUnique(t *testing.T) {
	req := model.BorrowRequest{Email: "ana@example.com"}
	a := BuildStatusNotification(req, ActionDenied, "")
	b := BuildStatusNotification(req, ActionDenied, "")

	assert.NotEqual(t, a.ID, b.ID)
}

func TestBuildCustomMessage(t *testing.T) {
	msg, err := BuildCustomMessage(" ana@example.com ", "Please bring the cable back.")
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, "Message from Admin", msg.Subject)
	assert.Equal(t, "Please bring the cable back.", msg.Body)
	assert.NotEmpty(t, msg.ID)
}

func TestBuildCustomMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		message string
		field   string
	}{
		{"invalid email", "not-an-email", "hi", "email"},
		{"missing email", "", "hi", "email"},
		{"empty message", "ana@example.com", "", "message"},
		{"blank message", "ana@example.com", "  \n ", "message"},
		{"long message", "ana@example.com", strings.Repeat("a", 1001), "message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildCustomMessage(tt.email, tt.message)

			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}
}

func TestBuildCustomMessageLengthLimit(t *testing.T) {
	_, err := BuildCustomMessage("ana@example.com", strings.Repeat("č", 1000))
	assert.NoError(t, err)
}

type recordingMailer struct {
	mu       sync.Mutex
	sent     []Message
	failures int
	calls    int
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("connection refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) snapshot() ([]Message, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...), m.calls
}

func TestDispatcherDelivers(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, WithWorkers(2))

	for _, to := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		require.NoError(t, d.Dispatch(Message{To: to, Subject: SubjectCustom}))
	}
	require.NoError(t, d.Close(context.Background()))

	sent, _ := mailer.snapshot()
	assert.Len(t, sent, 3)
}

func TestDispatcherRetries(t *testing.T) {
	mailer := &recordingMailer{failures: 2}
	d := NewDispatcher(mailer, WithWorkers(1), WithMaxAttempts(3), WithBaseDelay(time.Millisecond))

	require.NoError(t, d.Dispatch(Message{To: "a@example.com"}))
	require.NoError(t, d.Close(context.Background()))

	sent, calls := mailer.snapshot()
	assert.Len(t, sent, 1)
	assert.Equal(t, 3, calls)
}

func TestDispatcherGivesUp(t *testing.T) {
	mailer := &recordingMailer{failures: 10}
	d := NewDispatcher(mailer, WithWorkers(1), WithMaxAttempts(2), WithBaseDelay(time.Millisecond))

	require.NoError(t, d.Dispatch(Message{To: "a@example.com"}))
	require.NoError(t, d.Close(context.Background()))

	sent, calls := mailer.snapshot()
	assert.Empty(t, sent)
	assert.Equal(t, 2, calls)
}

type blockingMailer struct {
	started chan struct{}
	release chan struct{}
}

func (m *blockingMailer) Send(ctx context.Context, _ Message) error {
	m.started <- struct{}{}
	<-m.release
	return nil
}

func TestDispatcherQueueFull(t *testing.T) {
	mailer := &blockingMailer{started: make(chan struct{}, 4), release: make(chan struct{})}
	d := NewDispatcher(mailer, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, d.Dispatch(Message{To: "a@example.com"}))
	<-mailer.started
	require.NoError(t, d.Dispatch(Message{To: "b@example.com"}))

	err := d.Dispatch(Message{To: "c@example.com"})
	var derr *model.DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "c@example.com", derr.To)
	assert.ErrorIs(t, err, ErrQueueFull)

	close(mailer.release)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcherClosed(t *testing.T) {
	d := NewDispatcher(&recordingMailer{})
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	err := d.Dispatch(Message{To: "a@example.com"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{}.Send(context.Background(), Message{To: "a@example.com"}))
}

func TestNewSMTPMailer(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{From: "lend@example.com"})
	assert.Error(t, err, "missing host")

	_, err = NewSMTPMailer(SMTPConfig{Host: "localhost"})
	assert.Error(t, err, "missing from")

	_, err = NewSMTPMailer(SMTPConfig{Host: "localhost", From: "lend@example.com", TLS: "sometimes"})
	assert.Error(t, err, "bad tls policy")

	m, err := NewSMTPMailer(SMTPConfig{
		Host: "localhost", Port: 2525, From: "lend@example.com",
		TLS: TLSNone, Username: "u", Password: "p", Timeout: time.Second,
	})
	require.NoError(t, err)
	assert.NotNil(t, m)
}
