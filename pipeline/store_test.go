package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/youneslaaroussi/asset-pipeline/docstore"
)

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register(StepDefinition{ID: "metadata", Label: "Metadata", AutoStart: true})
	r.Register(StepDefinition{ID: "thumbnail", Label: "Thumbnail", AutoStart: true, SupportedTypes: []AssetType{AssetTypeVideo, AssetTypeImage}})
	r.Register(StepDefinition{ID: "transcode", Label: "Transcode", AutoStart: true, SupportedTypes: []AssetType{AssetTypeVideo}})
	return r
}

func TestStateStoreGetSynthesizesOnFirstRead(t *testing.T) {
	docs := docstore.NewFakeStore()
	store := NewStateStore(docs, testRegistry())

	st, err := store.Get(context.Background(), "u1", "p1", "a1")
	require.NoError(t, err)
	require.Len(t, st.Steps, 3)
	for _, step := range st.Steps {
		require.Equal(t, StepIdle, step.Status)
	}

	// persisted on first read
	var persisted State
	require.NoError(t, docs.Get(context.Background(), docstore.PipelineStatePath("u1", "p1", "a1"), &persisted))
	require.Len(t, persisted.Steps, 3)
}

func TestStateStoreGetMergesUnknownRegistryAdditions(t *testing.T) {
	docs := docstore.NewFakeStore()
	reg := NewRegistry()
	reg.Register(StepDefinition{ID: "metadata", Label: "Metadata", AutoStart: true})
	store := NewStateStore(docs, reg)

	_, err := store.Get(context.Background(), "u1", "p1", "a1")
	require.NoError(t, err)

	// registry grows a step after the doc was first persisted
	reg.Register(StepDefinition{ID: "thumbnail", Label: "Thumbnail", AutoStart: true})

	st, err := store.Get(context.Background(), "u1", "p1", "a1")
	require.NoError(t, err)
	require.Len(t, st.Steps, 2)
	require.Equal(t, "thumbnail", st.Steps[1].ID)
	require.Equal(t, StepIdle, st.Steps[1].Status)
}

func TestStateStoreUpdateStepReplacesExistingEntry(t *testing.T) {
	docs := docstore.NewFakeStore()
	store := NewStateStore(docs, testRegistry())
	ctx := context.Background()

	_, err := store.Get(ctx, "u1", "p1", "a1")
	require.NoError(t, err)

	updated, err := store.UpdateStep(ctx, "u1", "p1", "a1", "metadata", StepState{
		ID:     "metadata",
		Label:  "Metadata",
		Status: StepSucceeded,
		Metadata: map[string]any{"width": float64(1920)},
	})
	require.NoError(t, err)

	step, ok := updated.StepByID("metadata")
	require.True(t, ok)
	require.Equal(t, StepSucceeded, step.Status)
	require.NotEmpty(t, updated.UpdatedAt)

	// other steps untouched
	other, ok := updated.StepByID("thumbnail")
	require.True(t, ok)
	require.Equal(t, StepIdle, other.Status)
}

func TestStateStoreUpdateStepAppendsWhenMissing(t *testing.T) {
	docs := docstore.NewFakeStore()
	reg := NewRegistry()
	store := NewStateStore(docs, reg)
	ctx := context.Background()

	updated, err := store.UpdateStep(ctx, "u1", "p1", "a1", "custom", StepState{ID: "custom", Status: StepRunning})
	require.NoError(t, err)
	require.Len(t, updated.Steps, 1)
	require.Equal(t, "custom", updated.Steps[0].ID)
}

func TestListStatesForProject(t *testing.T) {
	docs := docstore.NewFakeStore()
	store := NewStateStore(docs, testRegistry())
	ctx := context.Background()

	require.NoError(t, docs.Save(ctx, docstore.AssetPath("u1", "p1", "a1"), map[string]any{"id": "a1"}))
	require.NoError(t, docs.Save(ctx, docstore.AssetPath("u1", "p1", "a2"), map[string]any{"id": "a2"}))

	states, err := store.ListStatesForProject(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, states, 2)
}
