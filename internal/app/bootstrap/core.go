package bootstrap

import (
	"fmt"

	"github.com/wolfman30/dental-assistant/internal/appointments"
	"github.com/wolfman30/dental-assistant/internal/availability"
	"github.com/wolfman30/dental-assistant/internal/catalog"
	"github.com/wolfman30/dental-assistant/internal/clinic"
	"github.com/wolfman30/dental-assistant/internal/dialog"
	"github.com/wolfman30/dental-assistant/internal/intent"
	"github.com/wolfman30/dental-assistant/internal/observability/metrics"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// CoreDeps are the pieces that differ between binaries.
type CoreDeps struct {
	Profile   *clinic.Profile
	Hours     availability.Hours
	Store     appointments.Store
	Responder dialog.Responder
	Notifier  appointments.Notifier
	Metrics   *metrics.DialogMetrics
	Logger    *logging.Logger
}

// Core is the dialog engine and what it is built from.
type Core struct {
	Catalog  *catalog.Catalog
	Resolver *availability.Resolver
	Bookings *appointments.Service
	Engine   *dialog.Engine
}

// BuildCore assembles matcher, catalog, resolver, booking service and engine.
func BuildCore(cfg CoreDeps, horizonDays int) (*Core, error) {
	if cfg.Profile == nil || cfg.Store == nil {
		return nil, fmt.Errorf("bootstrap: profile and store are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	cat, err := catalog.Default(cfg.Profile.CatalogVars())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	resolver, err := availability.NewResolver(cfg.Store, cfg.Hours, horizonDays,
		availability.WithLocation(cfg.Profile.Location()),
		availability.WithMetrics(cfg.Metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	opts := []appointments.ServiceOption{appointments.WithMetrics(cfg.Metrics)}
	if cfg.Notifier != nil {
		opts = append(opts, appointments.WithNotifier(cfg.Notifier))
	}
	bookings := appointments.NewService(cfg.Store, logger, opts...)

	engine, err := dialog.NewEngine(dialog.Deps{
		Matcher:      intent.Default(),
		Catalog:      cat,
		Availability: resolver,
		Booker:       bookings,
		Fallback:     cfg.Responder,
		Messages:     dialog.DefaultMessages(cfg.Profile.Phone),
		Metrics:      cfg.Metrics,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &Core{Catalog: cat, Resolver: resolver, Bookings: bookings, Engine: engine}, nil
}
