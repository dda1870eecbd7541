package trend

import "context"

// Source fetches a bounded list of items from one platform and maps them to
// Items with fixed platform, category, language and region.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Item, error)
}

// Analyzer scores sentiment and extracts entities and topics.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Analysis, error)
}

// KnowledgeGraph resolves a keyword to its single best entity match.
type KnowledgeGraph interface {
	Lookup(ctx context.Context, keyword string) (Knowledge, error)
}

// Store performs one insert into the destination table.
type Store interface {
	Insert(ctx context.Context, item Item) error
	Close()
}

// Notifier announces an inserted item (Pub/Sub or similar).
type Notifier interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Archiver writes a run snapshot for one platform and returns its URI.
type Archiver interface {
	Archive(ctx context.Context, runID, platform string, items []Item) (string, error)
}
