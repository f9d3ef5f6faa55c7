package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/youneslaaroussi/asset-pipeline/docstore"
)

func newEngineForTest(reg *Registry) (*Engine, *docstore.FakeStore) {
	docs := docstore.NewFakeStore()
	store := NewStateStore(docs, reg)
	return NewEngine(reg, store), docs
}

func TestRunStepUnknownStepIsValidationError(t *testing.T) {
	eng, _ := newEngineForTest(testRegistry())
	_, err := eng.RunStep(context.Background(), "u1", "p1", Asset{ID: "a1", Type: AssetTypeVideo}, "", "nope", nil)
	require.Error(t, err)
}

func TestRunStepRejectsUnsupportedAssetType(t *testing.T) {
	eng, _ := newEngineForTest(testRegistry())
	_, err := eng.RunStep(context.Background(), "u1", "p1", Asset{ID: "a1", Type: AssetTypeAudio}, "", "transcode", nil)
	require.Error(t, err)
}

func TestRunStepSucceeds(t *testing.T) {
	reg := NewRegistry()
	reg.Register(StepDefinition{
		ID: "metadata", Label: "Metadata", AutoStart: true,
		Run: func(ctx context.Context, sc StepContext) (StepResult, error) {
			return StepResult{Status: StepSucceeded, Metadata: map[string]any{"ok": true}}, nil
		},
	})
	eng, _ := newEngineForTest(reg)

	st, err := eng.RunStep(context.Background(), "u1", "p1", Asset{ID: "a1", Type: AssetTypeVideo}, "", "metadata", nil)
	require.NoError(t, err)
	step, ok := st.StepByID("metadata")
	require.True(t, ok)
	require.Equal(t, StepSucceeded, step.Status)
	require.Equal(t, true, step.Metadata["ok"])
	require.NotEmpty(t, step.StartedAt)
}

func TestRunStepRunnerErrorMarksFailed(t *testing.T) {
	reg := NewRegistry()
	reg.Register(StepDefinition{
		ID: "metadata", Label: "Metadata", AutoStart: true,
		Run: func(ctx context.Context, sc StepContext) (StepResult, error) {
			return StepResult{}, errors.New("boom")
		},
	})
	eng, docs := newEngineForTest(reg)

	_, err := eng.RunStep(context.Background(), "u1", "p1", Asset{ID: "a1", Type: AssetTypeVideo}, "", "metadata", nil)
	require.Error(t, err)

	var st State
	require.NoError(t, docs.Get(context.Background(), docstore.PipelineStatePath("u1", "p1", "a1"), &st))
	step, ok := st.StepByID("metadata")
	require.True(t, ok)
	require.Equal(t, StepFailed, step.Status)
	require.Equal(t, "boom", step.Error)
}

func TestRunStepRunnerPanicRecoversAsFailed(t *testing.T) {
	reg := NewRegistry()
	reg.Register(StepDefinition{
		ID: "metadata", Label: "Metadata", AutoStart: true,
		Run: func(ctx context.Context, sc StepContext) (StepResult, error) {
			panic("unexpected")
		},
	})
	eng, _ := newEngineForTest(reg)

	_, err := eng.RunStep(context.Background(), "u1", "p1", Asset{ID: "a1", Type: AssetTypeVideo}, "", "metadata", nil)
	require.Error(t, err)
}

func TestRunAutoStepsSkipsTerminalAndWaitingSteps(t *testing.T) {
	calls := map[string]int{}
	reg := NewRegistry()
	reg.Register(StepDefinition{
		ID: "a", AutoStart: true,
		Run: func(ctx context.Context, sc StepContext) (StepResult, error) {
			calls["a"]++
			return StepResult{Status: StepSucceeded}, nil
		},
	})
	reg.Register(StepDefinition{
		ID: "b", AutoStart: true,
		Run: func(ctx context.Context, sc StepContext) (StepResult, error) {
			calls["b"]++
			return StepResult{Status: StepWaiting}, nil
		},
	})
	eng, docs := newEngineForTest(reg)
	ctx := context.Background()
	asset := Asset{ID: "a1", Type: AssetTypeVideo}

	_, err := eng.RunAutoSteps(ctx, "u1", "p1", asset, "")
	require.NoError(t, err)
	require.Equal(t, 1, calls["a"])
	require.Equal(t, 1, calls["b"])

	// second pass: "a" is succeeded, "b" is waiting — neither reruns
	_, err = eng.RunAutoSteps(ctx, "u1", "p1", asset, "")
	require.NoError(t, err)
	require.Equal(t, 1, calls["a"])
	require.Equal(t, 1, calls["b"])

	var st State
	require.NoError(t, docs.Get(ctx, docstore.PipelineStatePath("u1", "p1", "a1"), &st))
	bStep, _ := st.StepByID("b")
	require.Equal(t, StepWaiting, bStep.Status)
}

func TestRunAutoStepsDoesNotAbortOnFailure(t *testing.T) {
	calls := map[string]int{}
	reg := NewRegistry()
	reg.Register(StepDefinition{
		ID: "a", AutoStart: true,
		Run: func(ctx context.Context, sc StepContext) (StepResult, error) {
			calls["a"]++
			return StepResult{}, errors.New("fails")
		},
	})
	reg.Register(StepDefinition{
		ID: "b", AutoStart: true,
		Run: func(ctx context.Context, sc StepContext) (StepResult, error) {
			calls["b"]++
			return StepResult{Status: StepSucceeded}, nil
		},
	})
	eng, _ := newEngineForTest(reg)

	st, err := eng.RunAutoSteps(context.Background(), "u1", "p1", Asset{ID: "a1", Type: AssetTypeVideo}, "")
	require.NoError(t, err)
	require.Equal(t, 1, calls["a"])
	require.Equal(t, 1, calls["b"])

	aStep, _ := st.StepByID("a")
	require.Equal(t, StepFailed, aStep.Status)
	bStep, _ := st.StepByID("b")
	require.Equal(t, StepSucceeded, bStep.Status)
}

func TestRunAutoStepsSkipsUnsupportedTypes(t *testing.T) {
	called := false
	reg := NewRegistry()
	reg.Register(StepDefinition{
		ID: "transcode", AutoStart: true, SupportedTypes: []AssetType{AssetTypeVideo},
		Run: func(ctx context.Context, sc StepContext) (StepResult, error) {
			called = true
			return StepResult{Status: StepSucceeded}, nil
		},
	})
	eng, _ := newEngineForTest(reg)

	_, err := eng.RunAutoSteps(context.Background(), "u1", "p1", Asset{ID: "a1", Type: AssetTypeAudio}, "")
	require.NoError(t, err)
	require.False(t, called)
}
