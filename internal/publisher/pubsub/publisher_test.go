package pubsub

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestClient(t *testing.T, topics ...string) (*pubsub.Client, *pstest.Server) {
	t.Helper()

	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	for _, id := range topics {
		_, err := client.CreateTopic(ctx, id)
		require.NoError(t, err)
	}
	return client, srv
}

func TestPublishSendsJSON(t *testing.T) {
	t.Parallel()

	client, srv := newTestClient(t, "trends")
	pub, err := New(client, "trends")
	require.NoError(t, err)
	defer pub.Stop()

	id, err := pub.Publish(context.Background(), "", map[string]string{"title": "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"title":"hello"}`, string(msgs[0].Data))
	assert.Equal(t, "application/json", msgs[0].Attributes["content_type"])
}

func TestPublishExplicitTopic(t *testing.T) {
	t.Parallel()

	client, srv := newTestClient(t, "trends", "audit")
	pub, err := New(client, "trends")
	require.NoError(t, err)
	defer pub.Stop()

	_, err = pub.Publish(context.Background(), "audit", "x")
	require.NoError(t, err)
	_, err = pub.Publish(context.Background(), "audit", "y")
	require.NoError(t, err)

	assert.Len(t, srv.Messages(), 2)
	assert.Len(t, pub.topics, 1)
}

func TestPublishMissingTopic(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	pub, err := New(client, "")
	require.NoError(t, err)

	_, err = pub.Publish(context.Background(), "", "x")
	require.Error(t, err)
}

func TestNewRequiresClient(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "trends")
	require.Error(t, err)
}
