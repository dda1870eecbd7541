// Package supabase inserts trend rows through the Supabase REST (PostgREST)
// interface.
package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

const (
	defaultTable  = "hot_trends"
	defaultSchema = "public"
)

// Config identifies the project and table.
type Config struct {
	URL   string
	Key   string
	Table string
	// Schema defaults to public.
	Schema string
}

// Store implements trend.Store against /rest/v1/{table}.
type Store struct {
	client *postgrest.Client
	table  string
}

// New validates cfg and returns a Store.
func New(cfg Config) (*Store, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, fmt.Errorf("supabase url and key are required")
	}
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	schema := cfg.Schema
	if schema == "" {
		schema = defaultSchema
	}
	client := postgrest.NewClient(strings.TrimRight(cfg.URL, "/")+"/rest/v1", schema, map[string]string{
		"apikey":        cfg.Key,
		"Authorization": "Bearer " + cfg.Key,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("create postgrest client: %w", client.ClientError)
	}
	return &Store{client: client, table: table}, nil
}

type row struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	URL            *string    `json:"url"`
	PlatformID     string     `json:"platform_id"`
	CategoryID     string     `json:"category_id"`
	Language       string     `json:"language"`
	Region         string     `json:"region"`
	PostedAt       *time.Time `json:"posted_at"`
	FetchedAt      time.Time  `json:"fetched_at"`
	Popularity     *int64     `json:"popularity"`
	SentimentScore *float64   `json:"sentiment_score"`
	Entities       []string   `json:"entities"`
	Topics         []string   `json:"topics"`
	KGType         *string    `json:"kg_type"`
	KGDesc         *string    `json:"kg_desc"`
	KGWiki         *string    `json:"kg_wiki"`
}

func toRow(item trend.Item) (row, error) {
	kgType, err := item.Knowledge.TypesText()
	if err != nil {
		return row{}, err
	}
	return row{
		Title:          item.Title,
		Description:    item.Description,
		URL:            nullable(item.URL),
		PlatformID:     item.PlatformID,
		CategoryID:     item.CategoryID,
		Language:       item.Language,
		Region:         item.Region,
		PostedAt:       item.PostedAt,
		FetchedAt:      item.FetchedAt,
		Popularity:     item.Popularity,
		SentimentScore: item.SentimentScore,
		Entities:       nonNil(item.Entities),
		Topics:         nonNil(item.Topics),
		KGType:         kgType,
		KGDesc:         nullable(item.Knowledge.Description),
		KGWiki:         nullable(item.Knowledge.WikiURL),
	}, nil
}

// Insert posts a single row with return=minimal.
func (s *Store) Insert(ctx context.Context, item trend.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := toRow(item)
	if err != nil {
		return err
	}
	if _, _, err := s.client.From(s.table).Insert(r, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("supabase insert: %w", err)
	}
	return nil
}

// Close is a no-op; the client holds no per-store resources.
func (s *Store) Close() {}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
