// Package catalog holds the static name-to-identifier tables for platforms and
// categories in the destination store.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// Platform names.
const (
	PlatformProductHunt  = "Product Hunt"
	PlatformYouTube      = "YouTube"
	PlatformHackerNews   = "Hacker News"
	PlatformReddit       = "Reddit"
	PlatformCustomSearch = "Google Custom Search"
)

// Category names.
const (
	CategoryAI            = "AI"
	CategoryTech          = "Tech"
	CategoryEntertainment = "Entertainment"
	CategoryFinance       = "Finance"
	CategoryOther         = "Other"
)

// ErrUnknownName is returned when a name is not present in a table.
var ErrUnknownName = errors.New("unknown catalog name")

// Catalog is immutable after New.
type Catalog struct {
	platforms  map[string]string
	categories map[string]string
}

// New copies the given tables; lookups are case-insensitive.
func New(platforms, categories map[string]string) *Catalog {
	return &Catalog{
		platforms:  normalize(platforms),
		categories: normalize(categories),
	}
}

// Platform returns the identifier for a platform name.
func (c *Catalog) Platform(name string) (string, error) {
	return lookup(c.platforms, "platform", name)
}

// Category returns the identifier for a category name.
func (c *Catalog) Category(name string) (string, error) {
	return lookup(c.categories, "category", name)
}

// Resolve looks up both identifiers a source stamps on its items.
func (c *Catalog) Resolve(platform, category string) (trend.Origin, error) {
	platformID, err := c.Platform(platform)
	if err != nil {
		return trend.Origin{}, err
	}
	categoryID, err := c.Category(category)
	if err != nil {
		return trend.Origin{}, err
	}
	return trend.Origin{PlatformID: platformID, CategoryID: categoryID}, nil
}

// Invalid lists entries whose identifier is not a UUID, such as a placeholder
// awaiting manual backfill. Entries are reported as "kind/name", sorted.
func (c *Catalog) Invalid() []string {
	var out []string
	for name, id := range c.platforms {
		if _, err := uuid.Parse(id); err != nil {
			out = append(out, "platform/"+name)
		}
	}
	for name, id := range c.categories {
		if _, err := uuid.Parse(id); err != nil {
			out = append(out, "category/"+name)
		}
	}
	sort.Strings(out)
	return out
}

func lookup(table map[string]string, kind, name string) (string, error) {
	id, ok := table[key(name)]
	if !ok {
		return "", fmt.Errorf("%s %q: %w", kind, name, ErrUnknownName)
	}
	return id, nil
}

func normalize(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for name, id := range in {
		out[key(name)] = strings.TrimSpace(id)
	}
	return out
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
