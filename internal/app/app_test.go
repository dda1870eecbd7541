package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/trend-aggregator/internal/catalog"
	"github.com/JakeFAU/trend-aggregator/internal/config"
	"github.com/JakeFAU/trend-aggregator/internal/sink"
)

func testConfig() config.Config {
	return config.Config{
		HTTP:     config.HTTPConfig{TimeoutSeconds: 5, UserAgent: "trend-test"},
		Database: config.DatabaseConfig{Provider: "noop"},
		Catalog: config.CatalogConfig{
			Platforms: map[string]string{
				"hacker news": "b73cdd80-e499-478f-9a7a-d3eedfb0847a",
				"youtube":     "6ef10c55-2825-4458-9f64-5c3899bc3023",
			},
			Categories: map[string]string{
				"tech":          "4136b324-1f92-467a-8bcc-7f01926e2b6b",
				"entertainment": "503f42bc-4fc9-49b1-9d86-a3e16e13a59b",
				"other":         "REPLACE_WITH_OTHER_CATEGORY_UUID",
			},
		},
		Collector:  config.CollectorConfig{Concurrency: 1},
		HackerNews: config.HackerNewsConfig{Limit: 2},
		Metrics:    config.MetricsConfig{JobName: "trend_aggregator"},
	}
}

func newHackerNewsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/topstories.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "trend-test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `[11, 12, 13]`)
	})
	mux.HandleFunc("/item/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/item/"), ".json")
		fmt.Fprintf(w, `{"id":%s,"title":"story %s","score":1,"time":1700000000}`, id, id)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewAndRunHackerNews(t *testing.T) {
	t.Parallel()

	hn := newHackerNewsServer(t)

	var (
		mu       sync.Mutex
		pushPath string
	)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pushPath = r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(gateway.Close)

	cfg := testConfig()
	cfg.HackerNews.BaseURL = hn.URL
	cfg.Metrics.PushgatewayURL = gateway.URL

	core, logs := observer.New(zap.InfoLevel)
	a, err := New(context.Background(), cfg, zap.New(core), []string{config.PlatformHackerNews})
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, sink.Noop{}, a.Store())
	require.Len(t, a.Sources(), 1)
	assert.Equal(t, "hackernews", a.Sources()[0].Name())
	assert.NotEmpty(t, a.RunID())

	summary, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary["hackernews"].Fetched)
	assert.Equal(t, 2, summary["hackernews"].Inserted)

	assert.Equal(t, 2, logs.FilterMessage("trend inserted").Len())
	assert.Equal(t, 1, logs.FilterMessage("run finished").Len())
	assert.Equal(t, 1, logs.FilterMessage("dry-run events recorded").Len())

	events := a.DryRunEvents()
	require.Len(t, events, 2)
	var evt sink.Event
	require.NoError(t, json.Unmarshal(events[0].Data, &evt))
	assert.Equal(t, a.RunID(), evt.RunID)
	assert.Equal(t, "hackernews", evt.Platform)
	assert.Contains(t, evt.Title, "story")
	assert.Equal(t, 1, logs.FilterMessage("catalog entry is not a UUID; inserts referencing it will fail until it is backfilled").Len())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, pushPath, "/metrics/job/trend_aggregator/run_id/"+a.RunID())
}

func TestNewRejectsMissingPlatformCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), testConfig(), nil, []string{config.PlatformYouTube})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "youtube.api_key")
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Database.Provider = "mysql"
	_, err := New(context.Background(), cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown database provider")
}

func TestNewSupabaseStore(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Database = config.DatabaseConfig{Provider: "supabase", SupabaseURL: "https://example.supabase.co", SupabaseKey: "k"}
	a, err := New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	defer a.Close()
	assert.NotNil(t, a.Store())
	assert.Empty(t, a.Sources())
	assert.Nil(t, a.DryRunEvents())
}

func TestNewSourceRequiresCatalogEntry(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.YouTube.APIKey = "k"
	delete(cfg.Catalog.Categories, "entertainment")
	_, err := New(context.Background(), cfg, nil, []string{config.PlatformYouTube})
	require.ErrorIs(t, err, catalog.ErrUnknownName)
}
