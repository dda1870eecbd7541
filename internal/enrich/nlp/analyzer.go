// Package nlp scores sentiment and extracts entities and topics with the Cloud
// Natural Language API.
package nlp

import (
	"context"
	"fmt"
	"strings"

	language "cloud.google.com/go/language/apiv1"
	"cloud.google.com/go/language/apiv1/languagepb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// Client is the subset of *language.Client the analyzer calls.
type Client interface {
	AnalyzeSentiment(ctx context.Context, req *languagepb.AnalyzeSentimentRequest, opts ...gax.CallOption) (*languagepb.AnalyzeSentimentResponse, error)
	AnalyzeEntities(ctx context.Context, req *languagepb.AnalyzeEntitiesRequest, opts ...gax.CallOption) (*languagepb.AnalyzeEntitiesResponse, error)
	ClassifyText(ctx context.Context, req *languagepb.ClassifyTextRequest, opts ...gax.CallOption) (*languagepb.ClassifyTextResponse, error)
	Close() error
}

// Analyzer implements trend.Analyzer.
type Analyzer struct {
	client Client
	logger *zap.Logger
}

// NewClient dials the Natural Language API using Application Default
// Credentials. endpoint overrides the default host when set.
func NewClient(ctx context.Context, endpoint string) (*language.Client, error) {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	client, err := language.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create language client: %w", err)
	}
	return client, nil
}

// New wraps client.
func New(client Client, logger *zap.Logger) (*Analyzer, error) {
	if client == nil {
		return nil, fmt.Errorf("language client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{client: client, logger: logger}, nil
}

// Analyze runs sentiment, entity and classification analysis on text.
// Classification failures only empty the topic list; any other failure is
// returned and the caller decides the defaults.
func (a *Analyzer) Analyze(ctx context.Context, text string) (trend.Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return trend.Analysis{}, nil
	}
	doc := &languagepb.Document{
		Source: &languagepb.Document_Content{Content: text},
		Type:   languagepb.Document_PLAIN_TEXT,
	}

	sentiment, err := a.client.AnalyzeSentiment(ctx, &languagepb.AnalyzeSentimentRequest{Document: doc})
	if err != nil {
		return trend.Analysis{}, fmt.Errorf("analyze sentiment: %w", err)
	}
	score := clamp(float64(sentiment.GetDocumentSentiment().GetScore()))

	entitiesResp, err := a.client.AnalyzeEntities(ctx, &languagepb.AnalyzeEntitiesRequest{Document: doc})
	if err != nil {
		return trend.Analysis{}, fmt.Errorf("analyze entities: %w", err)
	}
	entities := make([]string, 0, len(entitiesResp.GetEntities()))
	for _, e := range entitiesResp.GetEntities() {
		entities = append(entities, e.GetName())
	}

	return trend.Analysis{
		Score:    &score,
		Entities: entities,
		Topics:   a.classify(ctx, doc),
	}, nil
}

// classify returns an empty list on error; short texts are routinely rejected
// by the classifier.
func (a *Analyzer) classify(ctx context.Context, doc *languagepb.Document) []string {
	resp, err := a.client.ClassifyText(ctx, &languagepb.ClassifyTextRequest{Document: doc})
	if err != nil {
		a.logger.Debug("classify text failed", zap.Error(err))
		return []string{}
	}
	topics := make([]string, 0, len(resp.GetCategories()))
	for _, c := range resp.GetCategories() {
		topics = append(topics, c.GetName())
	}
	return topics
}

// Close releases the underlying client.
func (a *Analyzer) Close() error {
	if err := a.client.Close(); err != nil {
		return fmt.Errorf("close language client: %w", err)
	}
	return nil
}

func clamp(score float64) float64 {
	switch {
	case score > 1:
		return 1
	case score < -1:
		return -1
	default:
		return score
	}
}
