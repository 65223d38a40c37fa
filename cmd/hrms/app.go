package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/hrms/internal/accesslink"
	"github.com/jonathan/hrms/internal/cache"
	"github.com/jonathan/hrms/internal/config"
	"github.com/jonathan/hrms/internal/db"
	"github.com/jonathan/hrms/internal/permissions"
	"github.com/jonathan/hrms/internal/pipeline"
	"github.com/jonathan/hrms/internal/replication"
	"github.com/jonathan/hrms/internal/reports"
	"github.com/jonathan/hrms/internal/requirements"
	"github.com/jonathan/hrms/internal/store"
	"github.com/jonathan/hrms/internal/templates"
)

// app is the wired service graph shared by every subcommand.
type app struct {
	cfg    *config.Config
	jwt    *config.JWTConfig
	cache  cache.Cache
	store  *store.Store
	perms  *permissions.Matrix
	links  *accesslink.Issuer
	outbox *replication.Outbox
	db     *db.DB
	remote bool // a sink other than NopSink is configured

	requirements *requirements.Service
	pipeline     *pipeline.Service
	templates    *templates.Service
	reports      *reports.Service
}

// loadConfig reads --config, the environment and defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// newApp wires the store, its replication sinks and the services. When
// withLinks is false the interview link issuer is skipped and no secrets
// are required.
func newApp(ctx context.Context, cfg *config.Config, withLinks bool) (*app, error) {
	c, err := cache.NewFileCache(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	a := &app{cfg: cfg, cache: c}

	a.perms, err = permissions.Load(c)
	if err != nil {
		return nil, err
	}

	a.store = store.New(c)
	report, err := a.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load cached records: %w", err)
	}
	for _, key := range report.Rejected {
		log.Printf("[store] warning: cached %q failed validation and was set aside", key)
	}

	sinks, err := a.sinks(ctx)
	if err != nil {
		return nil, err
	}
	var sink replication.Sink = replication.NopSink
	a.remote = len(sinks) > 0
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = sinks
	}

	a.outbox = replication.NewOutbox(sink,
		replication.WithRetryPolicy(replication.RetryPolicyFromConfig(cfg)),
		replication.WithWorkers(cfg.Workers),
		replication.WithCapacity(cfg.QueueSize),
		replication.WithDeadLetterCache(c),
	)
	a.store.SetReplicator(replication.NewWriter(cfg.WritePolicy, a.outbox, sink))

	if withLinks {
		a.jwt, err = config.NewJWTConfig()
		if err != nil {
			return nil, err
		}
		a.links, err = accesslink.NewIssuer(a.jwt.LinkSecret, cfg.InterviewBaseURL, accesslink.DefaultValidity)
		if err != nil {
			return nil, err
		}
	}

	a.requirements = requirements.NewService(a.store, a.perms)
	a.pipeline = pipeline.NewService(a.store, a.perms, a.links, pipeline.OptionsFromConfig(cfg))
	a.templates = templates.NewService(a.store, a.perms)
	a.reports = reports.NewService(a.store, a.perms)
	return a, nil
}

// sinks builds the configured remotes: the sync endpoint and the
// PostgreSQL mirror.
func (a *app) sinks(ctx context.Context) (replication.MultiSink, error) {
	var out replication.MultiSink
	if a.cfg.SyncAPIURL != "" {
		out = append(out, replication.NewHTTPSink(a.cfg.SyncAPIURL, a.cfg.SyncTimeout()))
	}
	if a.cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		a.db = database
		out = append(out, db.NewSink(database))
	}
	if len(out) == 0 {
		log.Printf("[replication] no remote configured, mutations stay local")
	}
	return out, nil
}

// close flushes pending remote writes and releases the database.
func (a *app) close(timeout time.Duration) {
	if a.outbox.Len() > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := a.outbox.Flush(ctx); err != nil {
			n := a.outbox.Park(err)
			log.Printf("[replication] warning: %d undelivered requests kept as dead letters: %v", n, err)
		}
		cancel()
	}
	if a.db != nil {
		a.db.Close()
	}
}
