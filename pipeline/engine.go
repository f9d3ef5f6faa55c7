package pipeline

import (
	"context"
	"time"

	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
	"github.com/youneslaaroussi/asset-pipeline/log"
	"github.com/youneslaaroussi/asset-pipeline/metadataprobe"
	"github.com/youneslaaroussi/asset-pipeline/metrics"
)

// Engine implements the Pipeline Engine (spec.md §4.G): runStep and
// runAutoSteps, built on a Registry and a StateStore. Grounded on the
// teacher's pipeline.Coordinator for the per-step run-and-persist shape —
// write running, invoke, write terminal — though the coordinator this
// replaces dispatched one fixed transcoding strategy rather than an
// arbitrary registered step.
type Engine struct {
	registry *Registry
	store    *StateStore
	now      func() time.Time
}

func NewEngine(registry *Registry, store *StateStore) *Engine {
	return &Engine{registry: registry, store: store, now: time.Now}
}

// RunStep implements runStep, per spec.md §4.G steps 1-7.
func (e *Engine) RunStep(ctx context.Context, userID, projectID string, asset Asset, localPath, stepID string, params map[string]any) (State, error) {
	def, ok := e.registry.Lookup(stepID)
	if !ok {
		return State{}, xerrors.NewValidation("unknown step id "+stepID, nil)
	}

	assetType := classify(asset)
	if !def.Supports(assetType) {
		return State{}, xerrors.NewValidation("step "+stepID+" does not support asset type "+string(assetType), nil)
	}

	current, err := e.store.Get(ctx, userID, projectID, asset.ID)
	if err != nil {
		return State{}, err
	}
	stepState, found := current.StepByID(stepID)
	if !found {
		stepState = idleStep(def)
	}

	startedAt := NowISO8601(e.now())
	stepState.Status = StepRunning
	stepState.StartedAt = startedAt
	stepState.UpdatedAt = startedAt
	if _, err := e.store.UpdateStep(ctx, userID, projectID, asset.ID, stepID, stepState); err != nil {
		return State{}, err
	}

	sc := StepContext{
		Asset:         asset,
		LocalPath:     localPath,
		AssetType:     assetType,
		StepState:     stepState,
		PipelineState: current,
		UserID:        userID,
		ProjectID:     projectID,
		Params:        params,
	}

	runStart := e.now()
	result, runErr := e.runRunnerSafely(ctx, def.Run, sc)
	metrics.Metrics.StepDurationSec.WithLabelValues(stepID).Observe(time.Since(runStart).Seconds())

	updatedAt := NowISO8601(e.now())
	if runErr != nil {
		stepState.Status = StepFailed
		stepState.Error = runErr.Error()
		stepState.UpdatedAt = updatedAt
		metrics.Metrics.StepRunCount.WithLabelValues(stepID, string(StepFailed)).Inc()
		if _, saveErr := e.store.UpdateStep(ctx, userID, projectID, asset.ID, stepID, stepState); saveErr != nil {
			log.LogNoRequestID("pipeline step persist failed after runner error", "stepId", stepID, "error", saveErr.Error())
		}
		return State{}, runErr
	}

	stepState.Status = result.Status
	stepState.Metadata = result.Metadata
	stepState.Error = result.Error
	stepState.UpdatedAt = updatedAt
	metrics.Metrics.StepRunCount.WithLabelValues(stepID, string(stepState.Status)).Inc()
	if stepState.Status == StepWaiting {
		metrics.Metrics.StepWaitingCount.WithLabelValues(stepID).Inc()
	}

	return e.store.UpdateStep(ctx, userID, projectID, asset.ID, stepID, stepState)
}

// runRunnerSafely recovers a panicking runner into an error, matching the
// "on runner exception" branch of spec.md §4.G step 5 — Go has no
// exceptions, so a panicking step runner is the equivalent failure mode.
func (e *Engine) runRunnerSafely(ctx context.Context, run Runner, sc StepContext) (result StepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.NewBackend("step runner panic", nil)
			log.LogNoRequestID("pipeline step runner panicked", "recovered", r)
		}
	}()
	return run(ctx, sc)
}

// RunAutoSteps implements runAutoSteps, per spec.md §4.G: iterate registry
// order, skip unsupported types, skip steps already succeeded/running/
// waiting, and never abort on a failed step — each runner is responsible
// for checking its own prerequisites.
func (e *Engine) RunAutoSteps(ctx context.Context, userID, projectID string, asset Asset, localPath string) (State, error) {
	assetType := classify(asset)

	for _, def := range e.registry.Steps() {
		if !def.AutoStart {
			continue
		}
		if !def.Supports(assetType) {
			continue
		}

		current, err := e.store.Get(ctx, userID, projectID, asset.ID)
		if err != nil {
			return State{}, err
		}
		stepState, found := current.StepByID(def.ID)
		if found && (stepState.Status == StepSucceeded || stepState.Status == StepRunning || stepState.Status == StepWaiting) {
			continue
		}

		if _, err := e.RunStep(ctx, userID, projectID, asset, localPath, def.ID, nil); err != nil {
			log.LogNoRequestID("auto step failed, continuing", "stepId", def.ID, "assetId", asset.ID, "error", err.Error())
		}
	}

	return e.store.Get(ctx, userID, projectID, asset.ID)
}

// classify derives the asset's AssetType from its persisted record, falling
// back to metadataprobe's classifier when the record predates this field.
func classify(asset Asset) AssetType {
	if asset.Type != "" {
		return asset.Type
	}
	return AssetType(metadataprobe.ClassifyAssetType(asset.MimeType, asset.FileName))
}
