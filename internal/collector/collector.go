// Package collector runs the fetch, enrich and insert loop for each selected
// source.
package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/trend-aggregator/internal/metrics"
	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// Recorder persists one item and reports whether the insert succeeded.
type Recorder interface {
	Record(ctx context.Context, platform string, item trend.Item) bool
}

// Options wires the collaborators of a Collector. Analyzer, KnowledgeGraph,
// Archiver and Metrics are optional.
type Options struct {
	Analyzer       trend.Analyzer
	KnowledgeGraph trend.KnowledgeGraph
	Archiver       trend.Archiver
	Metrics        *metrics.Metrics
	RunID          string
	// FetchedAt is stamped on every item of the run.
	FetchedAt time.Time
	// Concurrency bounds parallel enrichment. 1 processes items strictly
	// one after another.
	Concurrency int
}

// Counts summarises one source's run.
type Counts struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Failed   int `json:"failed"`
}

// Collector enriches and records the items of a source.
type Collector struct {
	recorder    Recorder
	analyzer    trend.Analyzer
	kg          trend.KnowledgeGraph
	archiver    trend.Archiver
	metrics     *metrics.Metrics
	runID       string
	fetchedAt   time.Time
	concurrency int
	logger      *zap.Logger
}

// New constructs a Collector.
func New(recorder Recorder, opts Options, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.FetchedAt.IsZero() {
		opts.FetchedAt = time.Now()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Collector{
		recorder:    recorder,
		analyzer:    opts.Analyzer,
		kg:          opts.KnowledgeGraph,
		archiver:    opts.Archiver,
		metrics:     opts.Metrics,
		runID:       opts.RunID,
		fetchedAt:   opts.FetchedAt.UTC(),
		concurrency: opts.Concurrency,
		logger:      logger,
	}
}

// FetchedAt returns the timestamp shared by every item of the run.
func (c *Collector) FetchedAt() time.Time { return c.fetchedAt }

// Collect fetches src and processes every returned item. Only a fetch failure
// or cancellation is returned; per-item failures are logged and counted.
func (c *Collector) Collect(ctx context.Context, src trend.Source) (Counts, error) {
	platform := src.Name()
	logger := c.logger.With(zap.String("platform", platform))
	start := time.Now()
	defer func() { c.metrics.ObserveDuration(platform, time.Since(start)) }()

	items, err := src.Fetch(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("fetch %s: %w", platform, err)
	}
	c.metrics.ObserveFetched(platform, len(items))
	logger.Info("items fetched", zap.Int("count", len(items)))

	counts := Counts{Fetched: len(items)}
	for i := range items {
		items[i].FetchedAt = c.fetchedAt
	}

	if c.concurrency == 1 {
		err = c.sequential(ctx, platform, items, &counts)
	} else {
		err = c.pooled(ctx, platform, items, &counts)
	}
	c.archive(ctx, platform, items, logger)
	return counts, err
}

func (c *Collector) sequential(ctx context.Context, platform string, items []trend.Item, counts *Counts) error {
	for i := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.enrich(ctx, platform, &items[i])
		c.record(ctx, platform, items[i], counts)
	}
	return nil
}

// pooled enriches on a bounded pool, then inserts in fetched order.
func (c *Collector) pooled(ctx context.Context, platform string, items []trend.Item, counts *Counts) error {
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range items {
		g.Go(func() error {
			if ctx.Err() == nil {
				c.enrich(ctx, platform, &items[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.record(ctx, platform, items[i], counts)
	}
	return nil
}

func (c *Collector) record(ctx context.Context, platform string, item trend.Item, counts *Counts) {
	if c.recorder.Record(ctx, platform, item) {
		counts.Inserted++
	} else {
		counts.Failed++
	}
}

// enrich fills sentiment, entities, topics and knowledge. Failures degrade to
// the zero results.
func (c *Collector) enrich(ctx context.Context, platform string, item *trend.Item) {
	analysis := trend.Analysis{}
	if c.analyzer != nil {
		a, err := c.analyzer.Analyze(ctx, item.EnrichmentText())
		if err != nil {
			c.logger.Warn("text analysis failed",
				zap.String("platform", platform),
				zap.String("title", item.Title),
				zap.Error(err),
			)
			c.metrics.ObserveEnrichmentFailure(platform, metrics.StageNLP)
		} else {
			analysis = a
		}
	}
	item.Apply(analysis)

	item.Knowledge = trend.Knowledge{}
	if c.kg != nil {
		k, err := c.kg.Lookup(ctx, item.Title)
		if err != nil {
			c.logger.Warn("knowledge graph lookup failed",
				zap.String("platform", platform),
				zap.String("title", item.Title),
				zap.Error(err),
			)
			c.metrics.ObserveEnrichmentFailure(platform, metrics.StageKnowledgeGraph)
		} else {
			item.Knowledge = k
		}
	}
}

func (c *Collector) archive(ctx context.Context, platform string, items []trend.Item, logger *zap.Logger) {
	if c.archiver == nil || len(items) == 0 {
		return
	}
	uri, err := c.archiver.Archive(ctx, c.runID, platform, items)
	if err != nil {
		logger.Warn("snapshot upload failed", zap.Error(err))
		return
	}
	logger.Info("snapshot uploaded", zap.String("uri", uri))
}
