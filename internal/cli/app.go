package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rohmanhakim/listing-enricher/internal/cache"
	"github.com/rohmanhakim/listing-enricher/internal/config"
	"github.com/rohmanhakim/listing-enricher/internal/events"
	"github.com/rohmanhakim/listing-enricher/internal/eventstore"
	"github.com/rohmanhakim/listing-enricher/internal/fetcher"
	"github.com/rohmanhakim/listing-enricher/internal/gateway"
	"github.com/rohmanhakim/listing-enricher/internal/index"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/internal/resolver"
	"github.com/rohmanhakim/listing-enricher/internal/storage"
)

// ErrNoEventSource is returned by commands that need events when neither
// an events file nor a database URL is configured.
var ErrNoEventSource = errors.New("no event source: set --events-file or --database-url")

// app holds the components shared by every command.
type app struct {
	cfg       config.Config
	registry  *prometheus.Registry
	recorder  *metadata.Recorder
	logCloser io.Closer
	resolver  *resolver.Resolver
	merger    *index.Merger
	storage   storage.LocalSink
}

func newApp(cfg config.Config) (*app, error) {
	logger, logCloser := metadata.NewLogger(cfg.LogOptions(), os.Stderr)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metadata.NewRecorder(uuid.NewString(), logger, registry)

	gatewayResolver, err := gateway.NewResolver(cfg.Gateways())
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	httpClient, err := fetcher.NewHTTPClient()
	if err != nil {
		logCloser.Close()
		return nil, err
	}
	gatewayFetcher := fetcher.NewGatewayFetcher(recorder, httpClient, cfg.MaxBodyBytes())

	opts := resolver.Options{
		Timeout:     cfg.Timeout(),
		UserAgent:   cfg.UserAgent(),
		Concurrency: cfg.Concurrency(),
	}
	if cfg.CacheTTL() > 0 {
		opts.Cache = cache.NewTTLCache(cfg.CacheSize(), cfg.CacheTTL())
	}
	itemResolver, err := resolver.NewResolver(recorder, gatewayResolver, gatewayFetcher, opts)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	merger, err := index.NewMerger(recorder, recorder, itemResolver)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		registry:  registry,
		recorder:  recorder,
		logCloser: logCloser,
		resolver:  itemResolver,
		merger:    merger,
		storage:   storage.NewLocalSink(recorder),
	}, nil
}

func (a *app) Close() error {
	return a.logCloser.Close()
}

// openSource returns the configured event source, preferring the
// database. The returned close func is never nil.
func (a *app) openSource(ctx context.Context) (events.Source, *eventstore.PostgresStore, func(), error) {
	switch {
	case a.cfg.DatabaseURL() != "":
		store, err := a.openStore(ctx)
		if err != nil {
			return nil, nil, func() {}, err
		}
		return store, store, store.Close, nil
	case a.cfg.EventsFile() != "":
		return events.NewFileSource(a.cfg.EventsFile()), nil, func() {}, nil
	default:
		return nil, nil, func() {}, ErrNoEventSource
	}
}

func (a *app) openStore(ctx context.Context) (*eventstore.PostgresStore, error) {
	store, err := eventstore.NewPostgresStore(ctx, a.recorder, a.cfg.DatabaseURL(), a.cfg.ConnectRetry())
	if err != nil {
		return nil, fmt.Errorf("connecting to event store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("preparing event store schema: %w", err)
	}
	return store, nil
}

// withApp builds the config and app, runs fn and releases the app.
func withApp(fn func(a *app) error) error {
	cfg, err := InitConfigWithError()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
