package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	appconfig "github.com/wolfman30/dental-assistant/internal/config"
	"github.com/wolfman30/dental-assistant/migrations"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

const usage = "usage: migrate [up | down | version | force <version>]"

type action int

const (
	actionUp action = iota
	actionDown
	actionVersion
	actionForce
)

type command struct {
	action  action
	version int
}

// migrator is the subset of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Version() (uint, bool, error)
}

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	cmd, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, usage)
		logger.Error("invalid arguments", "error", err)
		os.Exit(2)
	}
	if err := run(cfg, cmd, os.Stdout, logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (command, error) {
	if len(args) == 0 {
		return command{action: actionUp}, nil
	}
	switch strings.ToLower(args[0]) {
	case "up":
		return command{action: actionUp}, nil
	case "down":
		return command{action: actionDown}, nil
	case "version":
		return command{action: actionVersion}, nil
	case "force":
		if len(args) < 2 {
			return command{}, errors.New("force needs a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil || v < -1 {
			return command{}, fmt.Errorf("invalid version %q", args[1])
		}
		return command{action: actionForce, version: v}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q", args[0])
	}
}

func run(cfg *appconfig.Config, cmd command, out io.Writer, logger *logging.Logger) error {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	logger.Info("running migration", "command", cmd.name())
	return apply(m, cmd, out)
}

func apply(m migrator, cmd command, out io.Writer) error {
	switch cmd.action {
	case actionUp:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
	case actionDown:
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
	case actionForce:
		if err := m.Force(cmd.version); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	}
	return printVersion(m, out)
}

func printVersion(m migrator, out io.Writer) error {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		_, err = fmt.Fprintln(out, "schema version: none")
		return err
	}
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	_, err = fmt.Fprintf(out, "schema version: %d%s\n", v, suffix)
	return err
}

func (c command) name() string {
	switch c.action {
	case actionDown:
		return "down"
	case actionVersion:
		return "version"
	case actionForce:
		return "force"
	default:
		return "up"
	}
}
