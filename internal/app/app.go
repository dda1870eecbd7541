// Package app builds the long-lived services of a run from configuration and
// hands them to the collector runner.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/trend-aggregator/internal/archive/gcs"
	"github.com/JakeFAU/trend-aggregator/internal/catalog"
	"github.com/JakeFAU/trend-aggregator/internal/collector"
	"github.com/JakeFAU/trend-aggregator/internal/config"
	"github.com/JakeFAU/trend-aggregator/internal/enrich/kg"
	"github.com/JakeFAU/trend-aggregator/internal/enrich/nlp"
	"github.com/JakeFAU/trend-aggregator/internal/httpclient"
	"github.com/JakeFAU/trend-aggregator/internal/metrics"
	"github.com/JakeFAU/trend-aggregator/internal/publisher/memory"
	pspublisher "github.com/JakeFAU/trend-aggregator/internal/publisher/pubsub"
	"github.com/JakeFAU/trend-aggregator/internal/sink"
	"github.com/JakeFAU/trend-aggregator/internal/sink/postgres"
	"github.com/JakeFAU/trend-aggregator/internal/sink/supabase"
	"github.com/JakeFAU/trend-aggregator/internal/source/customsearch"
	"github.com/JakeFAU/trend-aggregator/internal/source/hackernews"
	"github.com/JakeFAU/trend-aggregator/internal/source/reddit"
	"github.com/JakeFAU/trend-aggregator/internal/source/youtube"
	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// App is the dependency container for one run.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	runID   string
	catalog *catalog.Catalog
	metrics *metrics.Metrics
	store   trend.Store
	sources []trend.Source
	runner  *collector.Runner
	dryRun  *memory.Publisher

	closers []func()
}

// RunID identifies this process run in logs, snapshots and metrics.
func (a *App) RunID() string { return a.runID }

// Store returns the destination store.
func (a *App) Store() trend.Store { return a.store }

// Sources returns the sources in execution order.
func (a *App) Sources() []trend.Source { return a.sources }

// DryRunEvents returns the events announced during a noop-store run. It is
// nil for every other provider.
func (a *App) DryRunEvents() []memory.Message {
	if a.dryRun == nil {
		return nil
	}
	return a.dryRun.Messages()
}

// Metrics returns the run's collectors.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// New wires every service the selected platforms need. It fails fast on any
// misconfiguration so no collector starts with a broken dependency.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, platforms []string) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	a := &App{
		cfg:     cfg,
		logger:  logger.With(zap.String("run_id", runID.String())),
		runID:   runID.String(),
		catalog: catalog.New(cfg.Catalog.Platforms, cfg.Catalog.Categories),
		metrics: metrics.New(),
	}
	if err := a.init(ctx, platforms); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, platforms []string) error {
	for _, name := range a.catalog.Invalid() {
		a.logger.Warn("catalog entry is not a UUID; inserts referencing it will fail until it is backfilled",
			zap.String("entry", name))
	}
	for _, name := range platforms {
		if err := a.cfg.ValidatePlatform(name); err != nil {
			return fmt.Errorf("platform %s: %w", name, err)
		}
	}

	client := httpclient.New(httpclient.Config{
		Timeout:   a.cfg.Timeout(),
		UserAgent: a.cfg.HTTP.UserAgent,
		RPS:       a.cfg.HTTP.RateLimitRPS,
		Burst:     a.cfg.HTTP.RateLimitBurst,
	}, nil)

	store, err := a.newStore(ctx)
	if err != nil {
		return err
	}
	a.store = store

	opts := collector.Options{
		Metrics:     a.metrics,
		RunID:       a.runID,
		FetchedAt:   time.Now().UTC(),
		Concurrency: a.cfg.Collector.Concurrency,
	}
	if opts.Analyzer, err = a.newAnalyzer(ctx); err != nil {
		return err
	}
	if opts.KnowledgeGraph, err = a.newKnowledgeGraph(ctx, client); err != nil {
		return err
	}
	if opts.Archiver, err = a.newArchiver(ctx); err != nil {
		return err
	}
	notifier, err := a.newNotifier(ctx)
	if err != nil {
		return err
	}

	rec := sink.NewRecorder(store, a.logger.Named("sink"), sink.Options{
		RunID:    a.runID,
		Notifier: notifier,
		Topic:    a.cfg.PubSub.TopicID,
		Metrics:  a.metrics,
	})

	for _, name := range platforms {
		src, err := a.newSource(ctx, name, client)
		if err != nil {
			return err
		}
		a.sources = append(a.sources, src)
	}

	c := collector.New(rec, opts, a.logger.Named("collector"))
	a.runner = collector.NewRunner(c, a.sources, a.logger)
	a.logger.Info("application services initialized",
		zap.Strings("platforms", platforms),
		zap.String("store", a.cfg.Database.Provider),
		zap.Bool("nlp", opts.Analyzer != nil),
		zap.Bool("knowledge_graph", opts.KnowledgeGraph != nil),
		zap.Bool("archive", opts.Archiver != nil),
		zap.Bool("notify", notifier != nil),
	)
	return nil
}

func (a *App) newStore(ctx context.Context) (trend.Store, error) {
	db := a.cfg.Database
	switch db.Provider {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:             db.DSN,
			Table:           db.Table,
			MaxConns:        db.MaxConns,
			MaxConnLifetime: db.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return store, nil
	case "supabase":
		store, err := supabase.New(supabase.Config{
			URL:   db.SupabaseURL,
			Key:   db.SupabaseKey,
			Table: db.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("init supabase store: %w", err)
		}
		return store, nil
	case "noop":
		a.logger.Warn("using noop store; rows will be discarded")
		return sink.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown database provider: %s", db.Provider)
	}
}

func (a *App) newAnalyzer(ctx context.Context) (trend.Analyzer, error) {
	if !a.cfg.NLP.Enabled {
		return nil, nil
	}
	client, err := nlp.NewClient(ctx, a.cfg.NLP.Endpoint)
	if err != nil {
		return nil, err
	}
	analyzer, err := nlp.New(client, a.logger.Named("nlp"))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := analyzer.Close(); err != nil {
			a.logger.Warn("close language client", zap.Error(err))
		}
	})
	return analyzer, nil
}

func (a *App) newKnowledgeGraph(ctx context.Context, client *http.Client) (trend.KnowledgeGraph, error) {
	if a.cfg.KnowledgeGraph.APIKey == "" {
		a.logger.Warn("knowledgegraph.api_key not set; knowledge graph fields will be empty")
		return nil, nil
	}
	lookup, err := kg.New(ctx, kg.Config{
		APIKey:     a.cfg.KnowledgeGraph.APIKey,
		Endpoint:   a.cfg.KnowledgeGraph.Endpoint,
		HTTPClient: client,
	})
	if err != nil {
		return nil, fmt.Errorf("init knowledge graph: %w", err)
	}
	return lookup, nil
}

func (a *App) newArchiver(ctx context.Context) (trend.Archiver, error) {
	if a.cfg.Archive.GCSBucket == "" {
		return nil, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	archiver, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Archive.GCSBucket, Prefix: a.cfg.Archive.Prefix})
	if err != nil {
		return nil, fmt.Errorf("init archive: %w", err)
	}
	return archiver, nil
}

func (a *App) newNotifier(ctx context.Context) (trend.Notifier, error) {
	if a.cfg.Database.Provider == "noop" {
		a.logger.Info("dry run; trend events are kept in memory")
		a.dryRun = memory.New()
		return a.dryRun, nil
	}
	ps := a.cfg.PubSub
	if ps.ProjectID == "" || ps.TopicID == "" {
		return nil, nil
	}
	client, err := pubsub.NewClient(ctx, ps.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	pub, err := pspublisher.New(client, ps.TopicID)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() {
		pub.Stop()
		_ = client.Close()
	})
	return pub, nil
}

func (a *App) newSource(ctx context.Context, name string, client *http.Client) (trend.Source, error) {
	logger := a.logger.Named("source")
	switch name {
	case config.PlatformReddit:
		r := a.cfg.Reddit
		return reddit.New(reddit.Config{
			ClientID:     r.ClientID,
			ClientSecret: r.ClientSecret,
			UserAgent:    r.UserAgent,
			Subreddit:    r.Subreddit,
			Limit:        r.Limit,
			TokenURL:     r.TokenURL,
			APIBaseURL:   r.APIBaseURL,
		}, a.catalog, client, logger)
	case config.PlatformHackerNews:
		return hackernews.New(hackernews.Config{
			BaseURL: a.cfg.HackerNews.BaseURL,
			Limit:   a.cfg.HackerNews.Limit,
		}, a.catalog, client, logger)
	case config.PlatformYouTube:
		y := a.cfg.YouTube
		return youtube.New(ctx, youtube.Config{
			APIKey:     y.APIKey,
			RegionCode: y.RegionCode,
			MaxResults: y.MaxResults,
			Endpoint:   y.Endpoint,
			HTTPClient: client,
		}, a.catalog, logger)
	case config.PlatformCustomSearch:
		c := a.cfg.CustomSearch
		return customsearch.New(ctx, customsearch.Config{
			APIKey:     c.APIKey,
			EngineID:   c.EngineID,
			Query:      c.Query,
			Pages:      c.Pages,
			PageSize:   c.PageSize,
			Endpoint:   c.Endpoint,
			HTTPClient: client,
		}, a.catalog, logger)
	default:
		return nil, fmt.Errorf("unknown platform %q", name)
	}
}

// Run collects every configured source and pushes metrics when a Pushgateway
// is configured. The returned error joins every failed collector.
func (a *App) Run(ctx context.Context) (collector.Summary, error) {
	summary, runErr := a.runner.Run(ctx)

	inserted, failed := 0, 0
	for _, c := range summary {
		inserted += c.Inserted
		failed += c.Failed
	}
	a.logger.Info("run finished",
		zap.Any("platforms", summary),
		zap.Int("inserted", inserted),
		zap.Int("failed", failed),
	)
	if a.dryRun != nil {
		a.logger.Info("dry-run events recorded", zap.Int("events", len(a.dryRun.Messages())))
	}

	if url := a.cfg.Metrics.PushgatewayURL; url != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := a.metrics.Push(pushCtx, url, a.cfg.Metrics.JobName, a.runID); err != nil {
			a.logger.Warn("metrics push failed", zap.Error(err))
		}
	}
	return summary, runErr
}

// Close releases every service in reverse order of construction.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}
