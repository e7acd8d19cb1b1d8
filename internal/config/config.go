// Package config loads the YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/notify"
)

// Config is the full application configuration.
type Config struct {
	Addr      string        `yaml:"addr"`
	Log       string        `yaml:"log"`
	AdminUser string        `yaml:"admin_user"`
	Database  db.Config     `yaml:"database"`
	Mail      MailConfig    `yaml:"mail"`
	Lending   LendingConfig `yaml:"lending"`
}

// MailConfig configures outgoing mail. Without a host, messages are only
// logged.
type MailConfig struct {
	notify.SMTPConfig `yaml:",inline"`

	Workers     int `yaml:"workers"`
	QueueSize   int `yaml:"queue_size"`
	MaxAttempts int `yaml:"max_attempts"`
}

// LendingConfig configures the borrow workflow.
type LendingConfig struct {
	ListLimit      int    `yaml:"list_limit"`
	StrictCapacity bool   `yaml:"strict_capacity"`
	Collation      string `yaml:"collation"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr:      ":8080",
		AdminUser: "admin",
		Database: db.Config{
			Driver: db.DriverSQLite,
			Path:   "izposoja.db",
			Port:   3306,
		},
		Mail: MailConfig{
			SMTPConfig: notify.SMTPConfig{
				Port:    587,
				TLS:     notify.TLSMandatory,
				Timeout: 15 * time.Second,
			},
			Workers:     2,
			QueueSize:   100,
			MaxAttempts: 4,
		},
		Lending: LendingConfig{
			ListLimit: 50,
			Collation: "und",
		},
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.AdminUser == "" {
		return errors.New("admin_user must not be empty")
	}

	switch c.Database.Driver {
	case db.DriverSQLite, "":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case db.DriverMySQL:
		if c.Database.Host == "" || c.Database.DBName == "" {
			return errors.New("database.host and database.dbname are required for mysql")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	switch c.Mail.TLS {
	case "", notify.TLSMandatory, notify.TLSOpportunistic, notify.TLSNone:
	default:
		return fmt.Errorf("unknown mail.tls policy %q", c.Mail.TLS)
	}
	if c.Mail.Host != "" && c.Mail.From == "" {
		return errors.New("mail.from is required when mail.host is set")
	}
	if c.Mail.Workers < 0 || c.Mail.QueueSize < 0 || c.Mail.MaxAttempts < 0 {
		return errors.New("mail.workers, mail.queue_size and mail.max_attempts must not be negative")
	}

	if c.Lending.ListLimit < 0 {
		return errors.New("lending.list_limit must not be negative")
	}
	if _, err := c.CollationTag(); err != nil {
		return err
	}
	return nil
}

// CollationTag returns the language used to order item names.
func (c *Config) CollationTag() (language.Tag, error) {
	if c.Lending.Collation == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(c.Lending.Collation)
	if err != nil {
		return language.Und, fmt.Errorf("invalid lending.collation %q: %w", c.Lending.Collation, err)
	}
	return tag, nil
}
