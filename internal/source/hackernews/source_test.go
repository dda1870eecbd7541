package hackernews

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/trend-aggregator/internal/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.New(
		map[string]string{catalog.PlatformHackerNews: "hn-id"},
		map[string]string{catalog.CategoryTech: "tech-id"},
	)
}

func TestFetchMapsStories(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v0/topstories.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[1, 2, 3, 4]`)
	})
	mux.HandleFunc("/v0/item/1.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":1,"title":"Show HN: a thing","url":"https://thing.dev","time":1700000000,"score":120}`)
	})
	mux.HandleFunc("/v0/item/2.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":2,"title":"Ask HN: anyone?","text":"body","score":7}`)
	})
	mux.HandleFunc("/v0/item/3.json", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src, err := New(Config{BaseURL: srv.URL + "/v0/", Limit: 3}, testCatalog(), srv.Client(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hackernews", src.Name())

	items, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2, "item 3 fails and item 4 is beyond the limit")

	first := items[0]
	assert.Equal(t, "Show HN: a thing", first.Title)
	assert.Equal(t, "https://thing.dev", first.URL)
	require.NotNil(t, first.PostedAt)
	assert.True(t, first.PostedAt.Equal(time.Unix(1700000000, 0)))
	assert.Equal(t, int64(120), *first.Popularity)
	assert.Equal(t, "hn-id", first.PlatformID)
	assert.Equal(t, "tech-id", first.CategoryID)
	assert.Equal(t, "en", first.Language)
	assert.Equal(t, "US", first.Region)

	second := items[1]
	assert.Empty(t, second.URL)
	assert.Nil(t, second.PostedAt)
	assert.Equal(t, "body", second.Description)
}

func TestFetchTopStoriesFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src, err := New(Config{BaseURL: srv.URL}, testCatalog(), srv.Client(), nil)
	require.NoError(t, err)

	_, err = src.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewUnknownCatalogEntry(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, catalog.New(nil, nil), nil, nil)
	require.ErrorIs(t, err, catalog.ErrUnknownName)
}

func TestFetchSkipsMissingAndDeletedStories(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/topstories.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[1, 2, 3, 4, 5]`)
	})
	mux.HandleFunc("/item/1.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `null`)
	})
	mux.HandleFunc("/item/2.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":2,"deleted":true,"time":1700000000}`)
	})
	mux.HandleFunc("/item/3.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":3,"dead":true,"title":"flagged","score":1}`)
	})
	mux.HandleFunc("/item/4.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":4,"title":"  ","score":3}`)
	})
	mux.HandleFunc("/item/5.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":5,"title":"Launch HN: no score yet"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src, err := New(Config{BaseURL: srv.URL, Limit: 10}, testCatalog(), srv.Client(), nil)
	require.NoError(t, err)

	items, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Launch HN: no score yet", items[0].Title)
	assert.Nil(t, items[0].Popularity)
}
