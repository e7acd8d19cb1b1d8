package notify

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/oklog/ulid/v2"

	"github.com/erazemk/izposoja/internal/model"
)

// Action is the status change a notification reports.
type Action string

const (
	ActionApproved Action = "approved"
	ActionDenied   Action = "denied"
	ActionReturned Action = "returned"
)

// Subject lines.
const (
	SubjectApproved = "Your borrow request has been approved"
	SubjectDenied   = "Your borrow request has been denied"
	SubjectReturned = "Return confirmation for borrowed item"
	SubjectDefault  = "Update on your borrow request"
	SubjectCustom   = "Message from Admin"
)

// Message is a fully formed outgoing email. It carries no delivery state.
type Message struct {
	ID       string
	To       string
	Subject  string
	Action   Action
	ItemName string
	Note     string
	Body     string
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newMessageID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

var statusBody = template.Must(template.New("status").Parse(
	`Hello,

{{if eq .Action "approved"}}your request to borrow "{{.ItemName}}" has been approved.
{{- else if eq .Action "denied"}}your request to borrow "{{.ItemName}}" has been denied.
{{- else if eq .Action "returned"}}we have recorded the return of "{{.ItemName}}". Thank you.
{{- else}}there is an update on your request for "{{.ItemName}}".
{{- end}}
{{if .Note}}
Note: {{.Note}}
{{end}}
`))

// SubjectFor returns the subject line used for a status action.
func SubjectFor(action Action) string {
	switch action {
	case ActionApproved:
		return SubjectApproved
	case ActionDenied:
		return SubjectDenied
	case ActionReturned:
		return SubjectReturned
	default:
		return SubjectDefault
	}
}

// BuildStatusNotification assembles the email telling a borrower about a
// status change of their request.
func BuildStatusNotification(req model.BorrowRequest, action Action, note string) Message {
	msg := Message{
		ID:       newMessageID(),
		To:       req.Email,
		Subject:  SubjectFor(action),
		Action:   action,
		ItemName: req.ItemName,
		Note:     strings.TrimSpace(note),
	}

	var b strings.Builder
	if err := statusBody.Execute(&b, msg); err != nil {
		// The template only reads string fields.
		panic(fmt.Sprintf("rendering status body: %v", err))
	}
	msg.Body = b.String()
	return msg
}

type customInput struct {
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=1000"`
}

// BuildCustomMessage assembles a free-form message from an operator to a
// borrower. The message is kept verbatim.
func BuildCustomMessage(email, message string) (Message, error) {
	in := customInput{Email: strings.TrimSpace(email), Message: message}
	if strings.TrimSpace(message) == "" {
		in.Message = ""
	}
	if err := model.Validate(in); err != nil {
		return Message{}, err
	}

	return Message{
		ID:      newMessageID(),
		To:      in.Email,
		Subject: SubjectCustom,
		Body:    message,
	}, nil
}
