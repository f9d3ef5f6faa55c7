package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client)
}

func TestEnqueuePipelineWritesPendingStatus(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	taskID, err := q.EnqueuePipeline(ctx, "user1", "proj1", "asset1", map[string]any{"fileName": "a.mp4"}, "")
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	status, err := q.GetStatus(ctx, taskID)
	require.NoError(t, err)
	require.NotNil(t, status)
	require.Equal(t, StatusPending, status.Status)
}

func TestDequeueReturnsEnqueuedTask(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	taskID, err := q.EnqueuePipeline(ctx, "user1", "proj1", "asset1", nil, "/tmp/local.mp4")
	require.NoError(t, err)

	task, err := q.Dequeue(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Equal(t, taskID, task.ID)
	require.Equal(t, TaskPipeline, task.Type)
	require.Equal(t, "/tmp/local.mp4", task.AssetPath)
}

func TestDequeueTimesOutToNil(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	task, err := q.Dequeue(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, task)
}

func TestEnqueueStepCarriesStepIDAndParams(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	taskID, err := q.EnqueueStep(ctx, "user1", "proj1", "asset1", nil, "gemini-analysis", map[string]any{"force": true})
	require.NoError(t, err)

	task, err := q.Dequeue(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, taskID, task.ID)
	require.Equal(t, TaskStep, task.Type)
	require.Equal(t, "gemini-analysis", task.StepID)
	require.Equal(t, true, task.Params["force"])
}

func TestUpdateStatusOverwritesPriorRecord(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	taskID, err := q.EnqueuePipeline(ctx, "user1", "proj1", "asset1", nil, "")
	require.NoError(t, err)

	require.NoError(t, q.UpdateStatus(ctx, taskID, StatusRunning, ""))
	status, err := q.GetStatus(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, StatusRunning, status.Status)

	require.NoError(t, q.UpdateStatus(ctx, taskID, StatusFailed, "boom"))
	status, err = q.GetStatus(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, status.Status)
	require.Equal(t, "boom", status.Error)
}

func TestGetStatusOfUnknownTaskReturnsNil(t *testing.T) {
	q := newTestQueue(t)
	status, err := q.GetStatus(context.Background(), "never-existed")
	require.NoError(t, err)
	require.Nil(t, status)
}

func TestStatusRecordExpiresWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := New(client)
	ctx := context.Background()

	taskID, err := q.EnqueuePipeline(ctx, "user1", "proj1", "asset1", nil, "")
	require.NoError(t, err)

	mr.FastForward(25 * time.Hour)

	status, err := q.GetStatus(ctx, taskID)
	require.NoError(t, err)
	require.Nil(t, status)
}
