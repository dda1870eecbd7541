// Package customsearch pages through Programmable Search Engine results for a
// fixed query.
package customsearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	cs "google.golang.org/api/customsearch/v1"

	"github.com/JakeFAU/trend-aggregator/internal/catalog"
	"github.com/JakeFAU/trend-aggregator/internal/httpclient"
	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// Name is the command-line token for this source.
const Name = "customsearch"

// Config controls the query and paging.
type Config struct {
	APIKey   string
	EngineID string
	Query    string
	Pages    int
	PageSize int64
	// Endpoint overrides the API base URL.
	Endpoint string
	// HTTPClient, when set, carries every request.
	HTTPClient *http.Client
}

// Source implements trend.Source.
type Source struct {
	svc      *cs.Service
	engineID string
	query    string
	pages    int
	pageSize int64
	origin   trend.Origin
	logger   *zap.Logger
}

// New resolves the Google Custom Search / AI identifiers and creates the API
// service.
func New(ctx context.Context, cfg Config, cat *catalog.Catalog, logger *zap.Logger) (*Source, error) {
	origin, err := cat.Resolve(catalog.PlatformCustomSearch, catalog.CategoryAI)
	if err != nil {
		return nil, fmt.Errorf("customsearch source: %w", err)
	}
	origin.Language = "en"
	origin.Region = "GLOBAL"
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, fmt.Errorf("customsearch source: api key and engine id are required")
	}

	svc, err := cs.NewService(ctx, httpclient.GoogleOptions(cfg.HTTPClient, cfg.APIKey, cfg.Endpoint)...)
	if err != nil {
		return nil, fmt.Errorf("create customsearch service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Source{
		svc:      svc,
		engineID: cfg.EngineID,
		query:    cfg.Query,
		pages:    cfg.Pages,
		pageSize: cfg.PageSize,
		origin:   origin,
		logger:   logger.Named(Name),
	}
	if s.query == "" {
		s.query = "AI"
	}
	if s.pages <= 0 {
		s.pages = 5
	}
	if s.pageSize <= 0 {
		s.pageSize = 10
	}
	return s, nil
}

// Name implements trend.Source.
func (s *Source) Name() string { return Name }

// Fetch requests each page in order (start = 1, 1+size, ...). A failed page
// is logged and skipped; Fetch errors only when every page failed.
func (s *Source) Fetch(ctx context.Context) ([]trend.Item, error) {
	var (
		items []trend.Item
		errs  []error
	)
	for page := 0; page < s.pages; page++ {
		start := int64(page)*s.pageSize + 1
		resp, err := s.svc.Cse.List().
			Cx(s.engineID).
			Q(s.query).
			Num(s.pageSize).
			Start(start).
			Context(ctx).
			Do()
		if err != nil {
			s.logger.Warn("search page failed", zap.Int64("start", start), zap.Error(err))
			errs = append(errs, fmt.Errorf("page start=%d: %w", start, err))
			continue
		}
		for _, r := range resp.Items {
			item := trend.Item{
				Title:       r.Title,
				Description: r.Snippet,
				URL:         r.Link,
			}
			s.origin.Stamp(&item)
			items = append(items, item)
		}
	}
	if len(errs) == s.pages {
		return nil, fmt.Errorf("search %q: %w", s.query, errors.Join(errs...))
	}
	return items, nil
}
