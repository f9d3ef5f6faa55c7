package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/youneslaaroussi/asset-pipeline/docstore"
)

type fakeRemote struct {
	createCalls int
	pollCalls   int
	doneAfter   int
	output      map[string]any
	createErr   error
	pollErr     error
	terminalErr error
}

func (f *fakeRemote) Create(ctx context.Context, userID, projectID, assetID, configHash, sourceURI string, cfg map[string]any) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return "remote-job-1", nil
}

func (f *fakeRemote) Poll(ctx context.Context, remoteJobName string) (PollResult, error) {
	f.pollCalls++
	if f.pollErr != nil {
		return PollResult{}, f.pollErr
	}
	if f.pollCalls < f.doneAfter {
		return PollResult{Done: false}, nil
	}
	if f.terminalErr != nil {
		return PollResult{Done: true, Err: f.terminalErr}, nil
	}
	return PollResult{Done: true, Output: f.output}, nil
}

func TestCoordinatorCreatesOnFirstRun(t *testing.T) {
	docs := docstore.NewFakeStore()
	remote := &fakeRemote{doneAfter: 1, output: map[string]any{"uri": "gs://bucket/out.mp4"}}
	c := New(docstore.KindTranscode, docs, remote, time.Millisecond, time.Second)

	dec, err := c.Run(context.Background(), "u1", "p1", "a1", map[string]any{"videoCodec": "h264"}, "gs://bucket/in.mp4", nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeSucceeded, dec.Outcome)
	require.Equal(t, 1, remote.createCalls)
	require.Equal(t, "gs://bucket/out.mp4", dec.Output["uri"])
}

func TestCoordinatorReusesCompletedJobByConfigHash(t *testing.T) {
	docs := docstore.NewFakeStore()
	remote := &fakeRemote{doneAfter: 1, output: map[string]any{"uri": "gs://bucket/out.mp4"}}
	c := New(docstore.KindTranscode, docs, remote, time.Millisecond, time.Second)
	cfg := map[string]any{"videoCodec": "h264"}
	ctx := context.Background()

	_, err := c.Run(ctx, "u1", "p1", "a1", cfg, "gs://bucket/in.mp4", nil)
	require.NoError(t, err)
	require.Equal(t, 1, remote.createCalls)

	dec, err := c.Run(ctx, "u1", "p1", "a1", cfg, "gs://bucket/in.mp4", nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeSucceeded, dec.Outcome)
	require.Equal(t, 1, remote.createCalls, "second call must not create a new remote job")
}

func TestCoordinatorDifferentConfigCreatesNewJob(t *testing.T) {
	docs := docstore.NewFakeStore()
	remote := &fakeRemote{doneAfter: 1, output: map[string]any{}}
	c := New(docstore.KindTranscode, docs, remote, time.Millisecond, time.Second)
	ctx := context.Background()

	_, err := c.Run(ctx, "u1", "p1", "a1", map[string]any{"videoCodec": "h264"}, "gs://bucket/in.mp4", nil)
	require.NoError(t, err)
	_, err = c.Run(ctx, "u1", "p1", "a1", map[string]any{"videoCodec": "h265"}, "gs://bucket/in.mp4", nil)
	require.NoError(t, err)
	require.Equal(t, 2, remote.createCalls)
}

func TestCoordinatorErrorStatusDoesNotRetry(t *testing.T) {
	docs := docstore.NewFakeStore()
	remote := &fakeRemote{createErr: errors.New("permanent failure")}
	c := New(docstore.KindTranscode, docs, remote, time.Millisecond, time.Second)
	ctx := context.Background()
	cfg := map[string]any{"videoCodec": "h264"}

	dec, err := c.Run(ctx, "u1", "p1", "a1", cfg, "gs://bucket/in.mp4", nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, dec.Outcome)
	require.Equal(t, 1, remote.createCalls)

	dec2, err := c.Run(ctx, "u1", "p1", "a1", cfg, "gs://bucket/in.mp4", nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, dec2.Outcome)
	require.Equal(t, 1, remote.createCalls, "error status must not be silently retried")
}

func TestCoordinatorTimesOutAfterMaxWait(t *testing.T) {
	docs := docstore.NewFakeStore()
	remote := &fakeRemote{doneAfter: 1000}
	c := New(docstore.KindTranscode, docs, remote, time.Millisecond, 10*time.Millisecond)
	ctx := context.Background()

	dec, err := c.Run(ctx, "u1", "p1", "a1", map[string]any{}, "gs://bucket/in.mp4", nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, dec.Outcome)
	require.Contains(t, dec.Error, "max wait")
}

func TestCoordinatorResumeModeReturnsWaitingWithoutBlocking(t *testing.T) {
	docs := docstore.NewFakeStore()
	remote := &fakeRemote{doneAfter: 1000}
	c := New(docstore.KindTranscription, docs, remote, time.Millisecond, time.Hour)
	c.ResumeMode = true
	ctx := context.Background()

	dec, err := c.Run(ctx, "u1", "p1", "a1", map[string]any{}, "gs://bucket/in.mp4", nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeWaiting, dec.Outcome)
	require.Equal(t, 1, remote.pollCalls)

	dec2, err := c.Run(ctx, "u1", "p1", "a1", map[string]any{}, "gs://bucket/in.mp4", nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeWaiting, dec2.Outcome)
	require.Equal(t, 2, remote.pollCalls, "resume must re-poll the existing remote job, not recreate it")
	require.Equal(t, 1, remote.createCalls)
}

func TestCoordinatorRepointerInvokedOnceOnReuse(t *testing.T) {
	docs := docstore.NewFakeStore()
	remote := &fakeRemote{doneAfter: 1, output: map[string]any{"uri": "gs://bucket/out.mp4"}}
	c := New(docstore.KindTranscode, docs, remote, time.Millisecond, time.Second)
	ctx := context.Background()
	cfg := map[string]any{"videoCodec": "h264"}

	repointCalls := 0
	repoint := func(rec Record) error {
		repointCalls++
		return nil
	}

	_, err := c.Run(ctx, "u1", "p1", "a1", cfg, "gs://bucket/in.mp4", repoint)
	require.NoError(t, err)
	require.Equal(t, 1, repointCalls)

	_, err = c.Run(ctx, "u1", "p1", "a1", cfg, "gs://bucket/in.mp4", repoint)
	require.NoError(t, err)
	require.Equal(t, 1, repointCalls, "repoint must not re-run once the record is marked repointed")
}

func TestConfigHashIsOrderIndependent(t *testing.T) {
	h1 := ConfigHash(map[string]any{"a": 1, "b": 2})
	h2 := ConfigHash(map[string]any{"b": 2, "a": 1})
	require.Equal(t, h1, h2)
	require.Len(t, h1, 12)
}

func TestConfigHashDiffersOnValueChange(t *testing.T) {
	h1 := ConfigHash(map[string]any{"a": 1})
	h2 := ConfigHash(map[string]any{"a": 2})
	require.NotEqual(t, h1, h2)
}
