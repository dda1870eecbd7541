// Package reddit reads a subreddit's hot listing through the OAuth API using
// application-only (client credentials) authentication.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/JakeFAU/trend-aggregator/internal/catalog"
	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// Name is the command-line token for this source.
const Name = "reddit"

const permalinkBase = "https://reddit.com"

// Config holds the script-app credentials and listing options.
type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	Subreddit    string
	Limit        int
	TokenURL     string
	APIBaseURL   string
}

// Source implements trend.Source.
type Source struct {
	client    *http.Client
	api       string
	subreddit string
	limit     int
	userAgent string
	origin    trend.Origin
	logger    *zap.Logger
}

type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
	Score      int64   `json:"score"`
}

// New resolves the Reddit / Other identifiers and prepares an OAuth2 client
// that fetches tokens through base.
func New(cfg Config, cat *catalog.Catalog, base *http.Client, logger *zap.Logger) (*Source, error) {
	origin, err := cat.Resolve(catalog.PlatformReddit, catalog.CategoryOther)
	if err != nil {
		return nil, fmt.Errorf("reddit source: %w", err)
	}
	origin.Language = "en"
	origin.Region = "US"
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("reddit source: client id and secret are required")
	}
	if base == nil {
		base = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := cc.Client(tokenCtx)
	client.Timeout = base.Timeout

	limit := cfg.Limit
	if limit <= 0 {
		limit = 50
	}
	subreddit := cfg.Subreddit
	if subreddit == "" {
		subreddit = "news"
	}
	return &Source{
		client:    client,
		api:       strings.TrimRight(cfg.APIBaseURL, "/"),
		subreddit: subreddit,
		limit:     limit,
		userAgent: cfg.UserAgent,
		origin:    origin,
		logger:    logger.Named(Name),
	}, nil
}

// Name implements trend.Source.
func (s *Source) Name() string { return Name }

// Fetch returns the hot listing in ranking order.
func (s *Source) Fetch(ctx context.Context) ([]trend.Item, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(s.limit))
	q.Set("raw_json", "1")
	endpoint := fmt.Sprintf("%s/r/%s/hot?%s", s.api, url.PathEscape(s.subreddit), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hot listing: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch hot listing: unexpected status %d", resp.StatusCode)
	}

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("decode hot listing: %w", err)
	}
	items := make([]trend.Item, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		items = append(items, s.mapPost(child.Data))
	}
	s.logger.Debug("hot listing fetched", zap.String("subreddit", s.subreddit), zap.Int("posts", len(items)))
	return items, nil
}

func (s *Source) mapPost(p post) trend.Item {
	item := trend.Item{
		Title:       p.Title,
		Description: p.Selftext,
		Popularity:  trend.Int64(p.Score),
	}
	if p.Permalink != "" {
		item.URL = permalinkBase + p.Permalink
	}
	if p.CreatedUTC > 0 {
		sec, frac := math.Modf(p.CreatedUTC)
		item.PostedAt = trend.Time(time.Unix(int64(sec), int64(frac*1e9)))
	}
	s.origin.Stamp(&item)
	return item
}
