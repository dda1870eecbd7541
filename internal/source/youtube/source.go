// Package youtube reads the mostPopular video chart for one region.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	yt "google.golang.org/api/youtube/v3"

	"github.com/JakeFAU/trend-aggregator/internal/catalog"
	"github.com/JakeFAU/trend-aggregator/internal/httpclient"
	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// Name is the command-line token for this source.
const Name = "youtube"

const (
	watchURL        = "https://youtube.com/watch?v="
	defaultLanguage = "zh"
)

// Config controls the chart request.
type Config struct {
	APIKey     string
	RegionCode string
	MaxResults int64
	// Endpoint overrides the API base URL.
	Endpoint string
	// HTTPClient, when set, carries every request.
	HTTPClient *http.Client
}

// Source implements trend.Source.
type Source struct {
	svc        *yt.Service
	region     string
	maxResults int64
	origin     trend.Origin
	logger     *zap.Logger
}

// New resolves the YouTube / Entertainment identifiers and creates the API
// service.
func New(ctx context.Context, cfg Config, cat *catalog.Catalog, logger *zap.Logger) (*Source, error) {
	origin, err := cat.Resolve(catalog.PlatformYouTube, catalog.CategoryEntertainment)
	if err != nil {
		return nil, fmt.Errorf("youtube source: %w", err)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("youtube source: api key is required")
	}
	region := cfg.RegionCode
	if region == "" {
		region = "HK"
	}
	origin.Language = defaultLanguage
	origin.Region = region

	svc, err := yt.NewService(ctx, httpclient.GoogleOptions(cfg.HTTPClient, cfg.APIKey, cfg.Endpoint)...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}
	return &Source{
		svc:        svc,
		region:     region,
		maxResults: maxResults,
		origin:     origin,
		logger:     logger.Named(Name),
	}, nil
}

// Name implements trend.Source.
func (s *Source) Name() string { return Name }

// Fetch returns the chart in ranking order.
func (s *Source) Fetch(ctx context.Context) ([]trend.Item, error) {
	resp, err := s.svc.Videos.List([]string{"snippet", "statistics"}).
		Chart("mostPopular").
		RegionCode(s.region).
		MaxResults(s.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list popular videos: %w", err)
	}
	items := make([]trend.Item, 0, len(resp.Items))
	for _, v := range resp.Items {
		items = append(items, s.mapVideo(v))
	}
	return items, nil
}

func (s *Source) mapVideo(v *yt.Video) trend.Item {
	item := trend.Item{URL: watchURL + v.Id}
	if sn := v.Snippet; sn != nil {
		item.Title = sn.Title
		item.Description = sn.Description
		item.Language = sn.DefaultLanguage
		if sn.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
				item.PostedAt = trend.Time(t)
			} else {
				s.logger.Debug("unparseable publishedAt", zap.String("id", v.Id), zap.Error(err))
			}
		}
	}
	if st := v.Statistics; st != nil {
		item.Popularity = trend.Int64(int64(st.ViewCount))
	}
	s.origin.Stamp(&item)
	return item
}
