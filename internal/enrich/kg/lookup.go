// Package kg resolves keywords against the Knowledge Graph Search API.
package kg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/kgsearch/v1"

	"github.com/JakeFAU/trend-aggregator/internal/httpclient"
	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// Config holds client configuration.
type Config struct {
	APIKey string
	// Endpoint overrides the API base URL.
	Endpoint string
	// HTTPClient, when set, carries every request (rate limits, timeout).
	HTTPClient *http.Client
}

// Lookup implements trend.KnowledgeGraph.
type Lookup struct {
	svc *kgsearch.Service
}

// result mirrors the schema.org-shaped entries in itemListElement.
type result struct {
	Result struct {
		Types               []string `json:"@type"`
		Description         string   `json:"description"`
		DetailedDescription struct {
			URL string `json:"url"`
		} `json:"detailedDescription"`
	} `json:"result"`
}

// New builds a Lookup.
func New(ctx context.Context, cfg Config) (*Lookup, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("knowledge graph api key is required")
	}
	svc, err := kgsearch.NewService(ctx, httpclient.GoogleOptions(cfg.HTTPClient, cfg.APIKey, cfg.Endpoint)...)
	if err != nil {
		return nil, fmt.Errorf("create kgsearch service: %w", err)
	}
	return &Lookup{svc: svc}, nil
}

// Lookup requests the single best match for keyword. No match yields an empty
// Knowledge and a nil error.
func (l *Lookup) Lookup(ctx context.Context, keyword string) (trend.Knowledge, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return trend.Knowledge{}, nil
	}
	resp, err := l.svc.Entities.Search().Query(keyword).Limit(1).Context(ctx).Do()
	if err != nil {
		return trend.Knowledge{}, fmt.Errorf("search knowledge graph: %w", err)
	}
	if len(resp.ItemListElement) == 0 {
		return trend.Knowledge{}, nil
	}
	return decode(resp.ItemListElement[0])
}

// decode converts the untyped list element the generated client returns.
func decode(element any) (trend.Knowledge, error) {
	raw, err := json.Marshal(element)
	if err != nil {
		return trend.Knowledge{}, fmt.Errorf("marshal kg element: %w", err)
	}
	var r result
	if err := json.Unmarshal(raw, &r); err != nil {
		return trend.Knowledge{}, fmt.Errorf("decode kg element: %w", err)
	}
	return trend.Knowledge{
		Types:       r.Result.Types,
		Description: r.Result.Description,
		WikiURL:     r.Result.DetailedDescription.URL,
	}, nil
}
