package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mail "github.com/wneessen/go-mail"
)

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// TLS policies accepted in SMTPConfig.TLS.
const (
	TLSMandatory     = "mandatory"
	TLSOpportunistic = "opportunistic"
	TLSNone          = "none"
)

// SMTPConfig holds SMTP transport settings.
type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	TLS      string        `yaml:"tls"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SMTPMailer sends messages through an SMTP server, dialing once per message.
type SMTPMailer struct {
	cfg  SMTPConfig
	opts []mail.Option
}

// NewSMTPMailer validates cfg and returns a mailer for it.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}

	policy, err := tlsPolicy(cfg.TLS)
	if err != nil {
		return nil, err
	}

	opts := []mail.Option{mail.WithTLSPolicy(policy)}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	// Fail early on an unusable configuration.
	if _, err := mail.NewClient(cfg.Host, opts...); err != nil {
		return nil, fmt.Errorf("configuring smtp client: %w", err)
	}

	return &SMTPMailer{cfg: cfg, opts: opts}, nil
}

func tlsPolicy(name string) (mail.TLSPolicy, error) {
	switch strings.ToLower(name) {
	case "", TLSMandatory:
		return mail.TLSMandatory, nil
	case TLSOpportunistic:
		return mail.TLSOpportunistic, nil
	case TLSNone:
		return mail.NoTLS, nil
	default:
		return 0, fmt.Errorf("unknown smtp tls policy %q", name)
	}
}

// Send delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out := mail.NewMsg()
	if err := out.From(m.cfg.From); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetMessageIDWithValue(msg.ID + "@izposoja")
	out.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(m.cfg.Host, m.opts...)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs msg.
func (m LogMailer) Send(_ context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mail not sent, no smtp host configured",
		"id", msg.ID, "to", msg.To, "subject", msg.Subject)
	return nil
}
