package trend

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Item is one fetched external post, enriched and written as a single row.
type Item struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	URL            string     `json:"url,omitempty"`
	PlatformID     string     `json:"platform_id"`
	CategoryID     string     `json:"category_id"`
	Language       string     `json:"language"`
	Region         string     `json:"region"`
	PostedAt       *time.Time `json:"posted_at,omitempty"`
	FetchedAt      time.Time  `json:"fetched_at"`
	Popularity     *int64     `json:"popularity,omitempty"`
	SentimentScore *float64   `json:"sentiment_score,omitempty"`
	Entities       []string   `json:"entities"`
	Topics         []string   `json:"topics"`
	Knowledge      Knowledge  `json:"knowledge"`
}

// EnrichmentText is the text sent to the language service: title and body on
// separate lines.
func (i Item) EnrichmentText() string {
	return i.Title + "\n" + i.Description
}

// Apply copies an analysis result onto the item.
func (i *Item) Apply(a Analysis) {
	i.SentimentScore = a.Score
	i.Entities = nonNil(a.Entities)
	i.Topics = nonNil(a.Topics)
}

// Analysis is the sentiment/entity/topic result for one text.
// The zero value is the degraded result used when analysis fails.
type Analysis struct {
	Score    *float64
	Entities []string
	Topics   []string
}

// Knowledge holds the best Knowledge Graph match for a keyword.
// The zero value means no match.
type Knowledge struct {
	Types       []string `json:"types,omitempty"`
	Description string   `json:"description,omitempty"`
	WikiURL     string   `json:"wiki_url,omitempty"`
}

// TypesText encodes Types as the JSON array text stored in kg_type, or nil
// when there was no match.
func (k Knowledge) TypesText() (*string, error) {
	if len(k.Types) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(k.Types)
	if err != nil {
		return nil, fmt.Errorf("marshal kg types: %w", err)
	}
	s := string(raw)
	return &s, nil
}

// Empty reports whether no Knowledge Graph data was found.
func (k Knowledge) Empty() bool {
	return len(k.Types) == 0 && strings.TrimSpace(k.Description) == "" && k.WikiURL == ""
}

// Origin is the fixed labelling a source applies to every item it returns.
type Origin struct {
	PlatformID string
	CategoryID string
	Language   string
	Region     string
}

// Stamp copies the origin onto item. A non-empty item language wins.
func (o Origin) Stamp(item *Item) {
	item.PlatformID = o.PlatformID
	item.CategoryID = o.CategoryID
	if item.Language == "" {
		item.Language = o.Language
	}
	item.Region = o.Region
}

// Int64 returns a pointer to v. Sources use it for nullable popularity values.
func Int64(v int64) *int64 {
	return &v
}

// Time returns a pointer to t, or nil for the zero time.
func Time(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
