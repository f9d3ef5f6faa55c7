package events

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
)

func newTestPublisher(t *testing.T) (*Publisher, *pstest.Server, *pubsub.Client) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() })

	conn, err := grpc.Dial(srv.Addr, grpc.WithInsecure())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	topic, err := client.CreateTopic(ctx, "pipeline-events")
	require.NoError(t, err)

	return NewPublisher(topic), srv, client
}

func TestPublishCompletedSendsEventMessage(t *testing.T) {
	pub, srv, _ := newTestPublisher(t)
	ctx := context.Background()

	pub.PublishCompleted(ctx, "user1", "proj1", "asset1", "video.mp4", []StepSummary{
		{ID: "metadata", Label: "Metadata", Status: "succeeded"},
	}, map[string]any{"agent": map[string]any{"threadId": "t1"}})

	msgs := srv.Messages()
	require.Len(t, msgs, 1)

	var event Event
	require.NoError(t, json.Unmarshal(msgs[0].Data, &event))
	require.Equal(t, TypeCompleted, event.Type)
	require.Equal(t, "asset1", event.AssetID)
	require.Equal(t, "video.mp4", event.AssetName)
	require.Len(t, event.StepsSummary, 1)
	require.Equal(t, "metadata", event.StepsSummary[0].ID)
	require.NotEmpty(t, event.Timestamp)
}

func TestPublishFailedSetsFailedType(t *testing.T) {
	pub, srv, _ := newTestPublisher(t)
	ctx := context.Background()

	pub.PublishFailed(ctx, "user1", "proj1", "asset1", "video.mp4", []StepSummary{
		{ID: "transcode", Label: "Transcode", Status: "failed", Error: "remote job failed"},
	}, nil)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)

	var event Event
	require.NoError(t, json.Unmarshal(msgs[0].Data, &event))
	require.Equal(t, TypeFailed, event.Type)
	require.Equal(t, "failed", event.StepsSummary[0].Status)
	require.Equal(t, "remote job failed", event.StepsSummary[0].Error)
}

func TestPublishSwallowsErrorWhenTopicClosed(t *testing.T) {
	pub, srv, client := newTestPublisher(t)
	ctx := context.Background()
	client.Close()
	srv.Close()

	require.NotPanics(t, func() {
		pub.PublishCompleted(ctx, "user1", "proj1", "asset1", "video.mp4", nil, nil)
	})
}
