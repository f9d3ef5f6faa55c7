package pipeline

import (
	"context"
	"time"

	"github.com/youneslaaroussi/asset-pipeline/docstore"
	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
)

// StateStore implements the Pipeline State Store (spec.md §4.E) over a
// docstore.Store, grounded on docstore's deterministic-path convention and
// the teacher's "read-merge-write whole document" pattern for state that
// must never be torn by a partial write.
type StateStore struct {
	docs     docstore.Store
	registry *Registry
	now      func() time.Time
}

func NewStateStore(docs docstore.Store, registry *Registry) *StateStore {
	return &StateStore{docs: docs, registry: registry, now: time.Now}
}

// Get returns the asset's pipeline state, synthesising defaults from the
// registry for any step without a persisted entry, and persisting a fresh
// document the first time an asset is seen, per spec.md §4.E.
func (s *StateStore) Get(ctx context.Context, userID, projectID, assetID string) (State, error) {
	path := docstore.PipelineStatePath(userID, projectID, assetID)

	var persisted State
	err := s.docs.Get(ctx, path, &persisted)
	switch {
	case xerrors.IsNotFound(err):
		fresh := s.synthesize(assetID)
		if saveErr := s.docs.Save(ctx, path, fresh); saveErr != nil {
			return State{}, saveErr
		}
		return fresh, nil
	case err != nil:
		return State{}, err
	}

	return s.merge(assetID, persisted), nil
}

// merge reconciles a persisted document against the registry: the returned
// step list always equals registry order, reusing a persisted entry when
// its id matches and synthesising idle otherwise. Persisted entries whose
// id no longer appears in the registry are dropped.
func (s *StateStore) merge(assetID string, persisted State) State {
	merged := State{AssetID: assetID, UpdatedAt: persisted.UpdatedAt}
	for _, def := range s.registry.Steps() {
		if st, ok := persisted.StepByID(def.ID); ok {
			merged.Steps = append(merged.Steps, st)
			continue
		}
		merged.Steps = append(merged.Steps, idleStep(def))
	}
	return merged
}

func (s *StateStore) synthesize(assetID string) State {
	st := State{AssetID: assetID, UpdatedAt: NowISO8601(s.now())}
	for _, def := range s.registry.Steps() {
		st.Steps = append(st.Steps, idleStep(def))
	}
	return st
}

func idleStep(def StepDefinition) StepState {
	return StepState{ID: def.ID, Label: def.Label, Status: StepIdle}
}

// UpdateStep reads the current document, replaces (or appends) the step
// entry, bumps updatedAt, and writes the whole document back as one unit,
// per spec.md §4.E — never field-sliced, to avoid torn updates.
func (s *StateStore) UpdateStep(ctx context.Context, userID, projectID, assetID, stepID string, newState StepState) (State, error) {
	current, err := s.Get(ctx, userID, projectID, assetID)
	if err != nil {
		return State{}, err
	}

	replaced := false
	for i, st := range current.Steps {
		if st.ID == stepID {
			current.Steps[i] = newState
			replaced = true
			break
		}
	}
	if !replaced {
		current.Steps = append(current.Steps, newState)
	}
	current.UpdatedAt = NowISO8601(s.now())

	path := docstore.PipelineStatePath(userID, projectID, assetID)
	if err := s.docs.Save(ctx, path, current); err != nil {
		return State{}, err
	}
	return current, nil
}

// ListStatesForProject enumerates every asset in the project and returns
// each one's merged pipeline state, per spec.md §4.E.
func (s *StateStore) ListStatesForProject(ctx context.Context, userID, projectID string) ([]State, error) {
	rows, err := s.docs.List(ctx, docstore.AssetsCollectionPath(userID, projectID))
	if err != nil {
		return nil, err
	}

	states := make([]State, 0, len(rows))
	for _, row := range rows {
		assetID, _ := row["id"].(string)
		if assetID == "" {
			continue
		}
		st, err := s.Get(ctx, userID, projectID, assetID)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, nil
}
