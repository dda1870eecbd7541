package sink

import (
	"context"

	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// Noop discards every row. Used for dry runs.
type Noop struct{}

// Insert implements trend.Store.
func (Noop) Insert(context.Context, trend.Item) error { return nil }

// Close implements trend.Store.
func (Noop) Close() {}
