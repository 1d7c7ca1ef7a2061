package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/wolfman30/dental-assistant/cmd/mainconfig"
	"github.com/wolfman30/dental-assistant/internal/appointments"
	"github.com/wolfman30/dental-assistant/internal/archive"
	appconfig "github.com/wolfman30/dental-assistant/internal/config"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

type options struct {
	statuses string
	date     string
	out      string
	upload   bool
	stats    bool
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.statuses, "status", "", "comma-separated statuses to export (pending,confirmed,cancelled)")
	flag.StringVar(&opts.date, "date", "", "only export appointments on this date (YYYY-MM-DD)")
	flag.StringVar(&opts.out, "out", "-", "output file, - for stdout")
	flag.BoolVar(&opts.upload, "s3", false, "upload the export to EXPORT_BUCKET instead of writing it locally")
	flag.BoolVar(&opts.stats, "stats", false, "print appointment statistics as JSON and exit")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if err := run(context.Background(), cfg, opts, logger); err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *appconfig.Config, opts options, logger *logging.Logger) error {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	reporter := appointments.NewReportRepository(db)
	if opts.stats {
		return writeStats(ctx, reporter, os.Stdout)
	}

	filter, err := parseFilter(opts)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	n, err := exportCSV(ctx, reporter, filter, &buf)
	if err != nil {
		return err
	}

	now := time.Now()
	if opts.upload {
		store, err := newArchiveStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		key, err := store.PutExport(ctx, appointments.ExportFilename(now), now, buf.Bytes())
		if err != nil {
			return err
		}
		logger.Info("export uploaded", "bucket", store.Bucket(), "key", key, "rows", n)
		return nil
	}

	if opts.out == "-" {
		_, err = io.Copy(os.Stdout, &buf)
		return err
	}
	if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	logger.Info("export written", "path", opts.out, "rows", n)
	return nil
}

func parseFilter(opts options) (appointments.Filter, error) {
	var f appointments.Filter
	for _, raw := range strings.Split(opts.statuses, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		s, err := appointments.ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.Statuses = append(f.Statuses, s)
	}
	if opts.date != "" {
		if _, err := appointments.ParseDate(opts.date); err != nil {
			return f, err
		}
		f.Date = opts.date
	}
	return f, nil
}

func exportCSV(ctx context.Context, reporter appointments.Reporter, f appointments.Filter, w io.Writer) (int, error) {
	appts, err := reporter.List(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("list appointments: %w", err)
	}
	if err := appointments.WriteCSV(w, appts); err != nil {
		return 0, err
	}
	return len(appts), nil
}

func writeStats(ctx context.Context, reporter appointments.Reporter, w io.Writer) error {
	stats, err := reporter.Stats(ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func newArchiveStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*archive.Store, error) {
	if cfg.ExportBucket == "" {
		return nil, fmt.Errorf("EXPORT_BUCKET is required with -s3")
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	return archive.NewStore(client, cfg.ExportBucket, logger), nil
}
