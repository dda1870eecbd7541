// Package hackernews reads the top stories from the Hacker News Firebase API.
package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/trend-aggregator/internal/catalog"
	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// Name is the command-line token for this source.
const Name = "hackernews"

// Config controls the source.
type Config struct {
	BaseURL string
	Limit   int
}

// Source implements trend.Source.
type Source struct {
	client *http.Client
	base   string
	limit  int
	origin trend.Origin
	logger *zap.Logger
}

type story struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	URL     string `json:"url"`
	Time    int64  `json:"time"`
	Score   *int64 `json:"score"`
	Deleted bool   `json:"deleted"`
	Dead    bool   `json:"dead"`
}

// usable reports whether st is a live story worth storing. The API answers
// null for unknown ids, which decodes to the zero value.
func (st story) usable() bool {
	return st.ID != 0 && !st.Deleted && !st.Dead && strings.TrimSpace(st.Title) != ""
}

// New resolves the Hacker News / Tech identifiers and returns a Source.
func New(cfg Config, cat *catalog.Catalog, client *http.Client, logger *zap.Logger) (*Source, error) {
	origin, err := cat.Resolve(catalog.PlatformHackerNews, catalog.CategoryTech)
	if err != nil {
		return nil, fmt.Errorf("hackernews source: %w", err)
	}
	origin.Language = "en"
	origin.Region = "US"
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 50
	}
	return &Source{
		client: client,
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		limit:  limit,
		origin: origin,
		logger: logger.Named(Name),
	}, nil
}

// Name implements trend.Source.
func (s *Source) Name() string { return Name }

// Fetch returns up to Limit top stories in ranking order. Stories that fail
// to load are logged and skipped.
func (s *Source) Fetch(ctx context.Context) ([]trend.Item, error) {
	var ids []int64
	if err := s.get(ctx, s.base+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("fetch top stories: %w", err)
	}
	if len(ids) > s.limit {
		ids = ids[:s.limit]
	}

	items := make([]trend.Item, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		var st story
		if err := s.get(ctx, fmt.Sprintf("%s/item/%d.json", s.base, id), &st); err != nil {
			s.logger.Warn("story fetch failed", zap.Int64("id", id), zap.Error(err))
			continue
		}
		if !st.usable() {
			s.logger.Debug("story skipped",
				zap.Int64("id", id),
				zap.Bool("deleted", st.Deleted),
				zap.Bool("dead", st.Dead),
			)
			continue
		}
		items = append(items, s.mapStory(st))
	}
	return items, nil
}

func (s *Source) mapStory(st story) trend.Item {
	item := trend.Item{
		Title:       st.Title,
		Description: st.Text,
		URL:         st.URL,
		Popularity:  st.Score,
	}
	if st.Time > 0 {
		item.PostedAt = trend.Time(time.Unix(st.Time, 0))
	}
	s.origin.Stamp(&item)
	return item
}

func (s *Source) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
