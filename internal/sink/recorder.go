// Package sink persists enriched trend items and reports the outcome of each
// insert without interrupting the run.
package sink

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/trend-aggregator/internal/metrics"
	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// Event is the message announced for every inserted row.
type Event struct {
	RunID          string    `json:"run_id"`
	Platform       string    `json:"platform"`
	Title          string    `json:"title"`
	URL            string    `json:"url,omitempty"`
	FetchedAt      time.Time `json:"fetched_at"`
	Popularity     *int64    `json:"popularity,omitempty"`
	SentimentScore *float64  `json:"sentiment_score,omitempty"`
}

// Options wires the optional collaborators of a Recorder.
type Options struct {
	RunID    string
	Notifier trend.Notifier
	Topic    string
	Metrics  *metrics.Metrics
}

// Recorder inserts items one at a time.
type Recorder struct {
	store    trend.Store
	logger   *zap.Logger
	runID    string
	notifier trend.Notifier
	topic    string
	metrics  *metrics.Metrics
}

// NewRecorder builds a Recorder around store.
func NewRecorder(store trend.Store, logger *zap.Logger, opts Options) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:    store,
		logger:   logger,
		runID:    opts.RunID,
		notifier: opts.Notifier,
		topic:    opts.Topic,
		metrics:  opts.Metrics,
	}
}

// Record inserts item and reports whether it succeeded. Failures are logged
// and never returned.
func (r *Recorder) Record(ctx context.Context, platform string, item trend.Item) bool {
	if err := r.store.Insert(ctx, item); err != nil {
		r.logger.Error("trend insert failed",
			zap.String("platform", platform),
			zap.String("title", item.Title),
			zap.Error(err),
		)
		r.metrics.ObserveInsert(platform, false)
		return false
	}
	r.logger.Info("trend inserted",
		zap.String("platform", platform),
		zap.String("title", item.Title),
	)
	r.metrics.ObserveInsert(platform, true)
	r.announce(ctx, platform, item)
	return true
}

func (r *Recorder) announce(ctx context.Context, platform string, item trend.Item) {
	if r.notifier == nil {
		return
	}
	evt := Event{
		RunID:          r.runID,
		Platform:       platform,
		Title:          item.Title,
		URL:            item.URL,
		FetchedAt:      item.FetchedAt,
		Popularity:     item.Popularity,
		SentimentScore: item.SentimentScore,
	}
	if _, err := r.notifier.Publish(ctx, r.topic, evt); err != nil {
		r.logger.Warn("trend event publish failed",
			zap.String("platform", platform),
			zap.String("title", item.Title),
			zap.Error(err),
		)
	}
}
