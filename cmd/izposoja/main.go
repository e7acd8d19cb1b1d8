package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/izposoja/internal/api"
	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/notify"
	"github.com/erazemk/izposoja/internal/store"
	"github.com/erazemk/izposoja/internal/web"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger installs the default logger. When logPath is set, every level
// is also appended to that file. The returned func closes the file.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	cleanup := func() {}
	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(&levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}))
	return cleanup, nil
}

type flags struct {
	config string
	db     string
	addr   string
	user   string
	log    string
}

func parseFlags(args []string) (*flags, error) {
	var f flags
	fs := flag.NewFlagSet("izposoja", flag.ContinueOnError)

	fs.StringVar(&f.config, "config", "", "")
	fs.StringVar(&f.config, "c", "", "")
	fs.StringVar(&f.db, "db", "", "")
	fs.StringVar(&f.db, "d", "", "")
	fs.StringVar(&f.addr, "addr", "", "")
	fs.StringVar(&f.addr, "a", "", "")
	fs.StringVar(&f.user, "user", "", "")
	fs.StringVar(&f.user, "u", "", "")
	fs.StringVar(&f.log, "log", "", "")
	fs.StringVar(&f.log, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: izposoja [flags]

Flags:
  -c, -config <path>      YAML configuration file (default: built-in defaults)
  -d, -db <path>          SQLite database path (default: izposoja.db)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: admin)
  -l, -log <path>         log file path (default: stdout/stderr only)
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return &f, nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	if f.db != "" {
		cfg.Database.Driver = db.DriverSQLite
		cfg.Database.Path = f.db
	}
	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.user != "" {
		cfg.AdminUser = f.user
	}
	if f.log != "" {
		cfg.Log = f.log
	}
	return cfg, cfg.Validate()
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		slog.Error("fatal error", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	database, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("database ready", "driver", cfg.Database.Driver)

	ctx := context.Background()
	if err := ensureAdmin(ctx, database, cfg.AdminUser); err != nil {
		return err
	}

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading jwt secret: %w", err)
	}
	if n, err := store.PurgeExpiredTokens(ctx, database, time.Now()); err != nil {
		slog.Warn("failed to purge expired token revocations", "error", err)
	} else if n > 0 {
		slog.Info("purged expired token revocations", "count", n)
	}

	mailer, err := newMailer(cfg.Mail)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(mailer,
		notify.WithWorkers(cfg.Mail.Workers),
		notify.WithQueueSize(cfg.Mail.QueueSize),
		notify.WithMaxAttempts(cfg.Mail.MaxAttempts),
	)

	collation, err := cfg.CollationTag()
	if err != nil {
		return err
	}
	svc := lending.NewService(database, dispatcher,
		lending.WithListLimit(cfg.Lending.ListLimit),
		lending.WithStrictCapacity(cfg.Lending.StrictCapacity),
		lending.WithCollation(collation),
	)

	apiRouter := api.NewRouter(svc, database, jwtSecret)
	webRouter, err := web.NewRouter(svc, database, jwtSecret)
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	// API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		slog.Error("pending notifications dropped", "error", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

func newMailer(cfg config.MailConfig) (notify.Mailer, error) {
	if cfg.Host == "" {
		slog.Warn("no mail host configured, notifications will only be logged")
		return notify.LogMailer{}, nil
	}
	m, err := notify.NewSMTPMailer(cfg.SMTPConfig)
	if err != nil {
		return nil, fmt.Errorf("configuring mail: %w", err)
	}
	slog.Info("mail configured", "host", cfg.Host, "port", cfg.Port, "tls", cfg.TLS)
	return m, nil
}

// ensureAdmin creates the first admin account when none exists and prints
// its generated password once.
func ensureAdmin(ctx context.Context, database *sql.DB, username string) error {
	admins, err := store.CountAdmins(ctx, database)
	if err != nil {
		return err
	}
	if admins > 0 {
		return nil
	}

	existing, err := store.GetActiveUserByUsername(ctx, database, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("no admin exists and username %q is taken by a %s", username, existing.Role)
	}

	password, err := auth.GeneratePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if _, err := store.CreateUser(ctx, database, username, hash, model.RoleAdmin); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	printInitResult(username, password)
	return nil
}

func printInitResult(username, password string) {
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
	fmt.Println()
}
