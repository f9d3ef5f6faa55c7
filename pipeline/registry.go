package pipeline

// StepDefinition is one registered pipeline step, per spec.md §4.F.
type StepDefinition struct {
	ID             string
	Label          string
	Description    string
	AutoStart      bool
	SupportedTypes []AssetType // nil means all types
	Run            Runner
}

// Supports reports whether d applies to the given asset type. A nil
// SupportedTypes set means "all types", matching the registry's None
// sentinel.
func (d StepDefinition) Supports(t AssetType) bool {
	if d.SupportedTypes == nil {
		return true
	}
	for _, st := range d.SupportedTypes {
		if st == t {
			return true
		}
	}
	return false
}

// Registry holds step definitions in registration order. Order defines
// display order, default-state order, and runAutoSteps execution order, so
// Register must never reorder or deduplicate beyond rejecting repeat ids.
type Registry struct {
	defs  []StepDefinition
	index map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends a step definition. Registering the same id twice panics:
// this only happens at process wiring time (package init / main), never at
// request time, so a loud failure beats a silently-overwritten step.
func (r *Registry) Register(d StepDefinition) {
	if _, exists := r.index[d.ID]; exists {
		panic("pipeline: duplicate step id " + d.ID)
	}
	r.index[d.ID] = len(r.defs)
	r.defs = append(r.defs, d)
}

// Steps returns the registered definitions in registration order.
func (r *Registry) Steps() []StepDefinition {
	out := make([]StepDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Lookup returns the definition for id and whether it exists.
func (r *Registry) Lookup(id string) (StepDefinition, bool) {
	i, ok := r.index[id]
	if !ok {
		return StepDefinition{}, false
	}
	return r.defs[i], true
}
