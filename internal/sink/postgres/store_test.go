package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

func strPtr(s string) *string { return &s }

func TestInsertWritesRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "hot_trends")
	require.NoError(t, err)

	fetched := time.Unix(1700000000, 0).UTC()
	posted := time.Unix(1699990000, 0).UTC()
	score := 0.6
	item := trend.Item{
		Title:          "Ask HN: What are you working on?",
		Description:    "Share your projects",
		URL:            "https://news.ycombinator.com/item?id=1",
		PlatformID:     "b73cdd80-e499-478f-9a7a-d3eedfb0847a",
		CategoryID:     "4136b324-1f92-467a-8bcc-7f01926e2b6b",
		Language:       "en",
		Region:         "US",
		PostedAt:       &posted,
		FetchedAt:      fetched,
		Popularity:     trend.Int64(321),
		SentimentScore: &score,
		Entities:       []string{"HN"},
		Topics:         []string{"/Internet & Telecom"},
		Knowledge: trend.Knowledge{
			Types:       []string{"Organization", "Thing"},
			Description: "Website",
			WikiURL:     "https://en.wikipedia.org/wiki/Hacker_News",
		},
	}

	mock.ExpectExec("INSERT INTO hot_trends").
		WithArgs(
			item.Title,
			item.Description,
			strPtr(item.URL),
			item.PlatformID,
			item.CategoryID,
			item.Language,
			item.Region,
			item.PostedAt,
			item.FetchedAt,
			item.Popularity,
			item.SentimentScore,
			[]string{"HN"},
			[]string{"/Internet & Telecom"},
			strPtr(`["Organization","Thing"]`),
			strPtr("Website"),
			strPtr("https://en.wikipedia.org/wiki/Hacker_News"),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Insert(context.Background(), item))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArgsNullsForMissingFields(t *testing.T) {
	t.Parallel()

	args, err := Args(trend.Item{Title: "no url story", FetchedAt: time.Unix(1, 0)})
	require.NoError(t, err)
	require.Len(t, args, 16)

	assert.Nil(t, args[2], "url")
	assert.Nil(t, args[7].(*time.Time), "posted_at")
	assert.Nil(t, args[9].(*int64), "popularity")
	assert.Nil(t, args[10].(*float64), "sentiment_score")
	assert.Equal(t, []string{}, args[11])
	assert.Equal(t, []string{}, args[12])
	assert.Nil(t, args[13].(*string), "kg_type")
	assert.Nil(t, args[14], "kg_desc")
	assert.Nil(t, args[15], "kg_wiki")
}

func TestInsertWrapsExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "")
	require.NoError(t, err)

	anyArgs := make([]any, 16)
	for i := range anyArgs {
		anyArgs[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO hot_trends").
		WithArgs(anyArgs...).
		WillReturnError(errors.New("violates foreign key constraint"))

	err = store.Insert(context.Background(), trend.Item{Title: "t"})
	require.ErrorContains(t, err, "insert trend")
	require.ErrorContains(t, err, "violates foreign key constraint")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, "hot_trends")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "hot_trends; DROP TABLE x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.dsn")
}

func TestNilStoreInsert(t *testing.T) {
	t.Parallel()

	var s *Store
	require.Error(t, s.Insert(context.Background(), trend.Item{}))
	s.Close()
}
