package docstore

import (
	"context"
	"testing"

	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
	"github.com/stretchr/testify/require"
)

type testAsset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestFakeStoreSaveGet(t *testing.T) {
	s := NewFakeStore()
	ctx := context.Background()
	path := AssetPath("u1", "p1", "a1")

	require.NoError(t, s.Save(ctx, path, testAsset{ID: "a1", Name: "clip.mp4"}))

	var got testAsset
	require.NoError(t, s.Get(ctx, path, &got))
	require.Equal(t, "clip.mp4", got.Name)
}

func TestFakeStoreGetMissing(t *testing.T) {
	s := NewFakeStore()
	var got testAsset
	err := s.Get(context.Background(), AssetPath("u1", "p1", "missing"), &got)
	require.Error(t, err)
	require.True(t, xerrors.IsNotFound(err))
}

func TestFakeStoreUpdateMergesFields(t *testing.T) {
	s := NewFakeStore()
	ctx := context.Background()
	path := AssetPath("u1", "p1", "a1")
	require.NoError(t, s.Save(ctx, path, testAsset{ID: "a1", Name: "clip.mp4"}))
	require.NoError(t, s.Update(ctx, path, map[string]any{"name": "renamed.mp4"}))

	var got testAsset
	require.NoError(t, s.Get(ctx, path, &got))
	require.Equal(t, "renamed.mp4", got.Name)
}

func TestFakeStoreListScopesToCollection(t *testing.T) {
	s := NewFakeStore()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, AssetPath("u1", "p1", "a1"), testAsset{ID: "a1"}))
	require.NoError(t, s.Save(ctx, AssetPath("u1", "p1", "a2"), testAsset{ID: "a2"}))
	require.NoError(t, s.Save(ctx, PipelineStatePath("u1", "p1", "a1"), map[string]any{"assetId": "a1"}))

	docs, err := s.List(ctx, AssetsCollectionPath("u1", "p1"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
}

func TestPaths(t *testing.T) {
	require.Equal(t, "users/u1/projects/p1/assets/a1", AssetPath("u1", "p1", "a1"))
	require.Equal(t, "users/u1/projects/p1/assets/a1/pipeline/state", PipelineStatePath("u1", "p1", "a1"))
	require.Equal(t, "users/u1/projects/p1/transcodeJobs/j1", JobPath(KindTranscode, "u1", "p1", "j1"))
}
