package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

func TestSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		selected []string
		unknown  []string
	}{
		{name: "none selects all", args: nil, selected: []string{"reddit", "hackernews", "youtube", "customsearch"}},
		{name: "single", args: []string{"reddit"}, selected: []string{"reddit"}},
		{name: "fixed order", args: []string{"youtube", "reddit"}, selected: []string{"reddit", "youtube"}},
		{name: "case insensitive", args: []string{"HackerNews", "YOUTUBE"}, selected: []string{"hackernews", "youtube"}},
		{name: "duplicates", args: []string{"reddit", "reddit"}, selected: []string{"reddit"}},
		{name: "unknown ignored", args: []string{"producthunt", "customsearch"}, selected: []string{"customsearch"}, unknown: []string{"producthunt"}},
		{name: "only unknown", args: []string{"tiktok"}, unknown: []string{"tiktok"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			selected, unknown := Select(tt.args)
			assert.Equal(t, tt.selected, selected)
			assert.Equal(t, tt.unknown, unknown)
		})
	}
}

func TestSelectReturnsCopy(t *testing.T) {
	t.Parallel()

	selected, _ := Select(nil)
	selected[0] = "changed"
	assert.Equal(t, "reddit", Order[0])
}

func TestRunContinuesAfterFetchFailure(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	rec := &fakeRecorder{}
	c := New(rec, Options{}, nil)
	sources := []trend.Source{
		&fakeSource{name: "reddit", err: errors.New("invalid_grant")},
		&fakeSource{name: "hackernews", items: titled("a", "b")},
	}

	summary, err := NewRunner(c, sources, zap.New(core)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
	assert.Equal(t, Counts{Fetched: 2, Inserted: 2}, summary["hackernews"])
	assert.Equal(t, Counts{}, summary["reddit"])
	assert.Equal(t, []string{"a", "b"}, rec.titles())
	assert.Equal(t, 1, logs.FilterMessage("collector failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("collector finished").Len())
}

func TestRunAllSucceed(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	c := New(rec, Options{}, nil)
	sources := []trend.Source{
		&fakeSource{name: "reddit", items: titled("r")},
		&fakeSource{name: "youtube", items: titled("y")},
	}

	summary, err := NewRunner(c, sources, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary, 2)
	assert.Equal(t, []string{"r", "y"}, rec.titles())
}
