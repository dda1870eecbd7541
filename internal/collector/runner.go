package collector

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/trend-aggregator/internal/config"
	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// Order is the fixed execution order of the platforms.
var Order = []string{
	config.PlatformReddit,
	config.PlatformHackerNews,
	config.PlatformYouTube,
	config.PlatformCustomSearch,
}

// Select lowercases the command-line tokens and returns the known platforms
// in Order, plus any tokens it did not recognise. No tokens selects every
// platform.
func Select(args []string) (selected, unknown []string) {
	if len(args) == 0 {
		return append([]string(nil), Order...), nil
	}
	want := make(map[string]bool, len(args))
	for _, arg := range args {
		token := strings.ToLower(strings.TrimSpace(arg))
		if token == "" {
			continue
		}
		if !known(token) {
			unknown = append(unknown, token)
			continue
		}
		want[token] = true
	}
	for _, name := range Order {
		if want[name] {
			selected = append(selected, name)
		}
	}
	return selected, unknown
}

func known(token string) bool {
	for _, name := range Order {
		if name == token {
			return true
		}
	}
	return false
}

// Summary holds the counts per platform for a run.
type Summary map[string]Counts

// Runner executes sources in the order given.
type Runner struct {
	collector *Collector
	sources   []trend.Source
	logger    *zap.Logger
}

// NewRunner builds a Runner.
func NewRunner(c *Collector, sources []trend.Source, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{collector: c, sources: sources, logger: logger}
}

// Run collects every source. A failing source is logged and the rest still
// run; the failures are returned joined.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	summary := make(Summary, len(r.sources))
	var errs []error
	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		counts, err := r.collector.Collect(ctx, src)
		summary[src.Name()] = counts
		if err != nil {
			r.logger.Error("collector failed", zap.String("platform", src.Name()), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		r.logger.Info("collector finished",
			zap.String("platform", src.Name()),
			zap.Int("fetched", counts.Fetched),
			zap.Int("inserted", counts.Inserted),
			zap.Int("failed", counts.Failed),
		)
	}
	return summary, errors.Join(errs...)
}
