// Package pipeline implements the Pipeline State Store, Step Registry, and
// Pipeline Engine (spec.md §4.E–§4.G), grounded on original_source's
// pipeline/types.py, pipeline/registry.py, and the teacher's
// pipeline.Coordinator for the run-and-persist execution shape (goroutine
// dispatch, panic recovery, bookkeeping on completion).
package pipeline

import (
	"context"
	"time"
)

// AssetType mirrors metadataprobe.AssetType; duplicated here (rather than
// imported) because pipeline's types are the persisted document shape and
// must not take on metadataprobe's probing concerns.
type AssetType string

const (
	AssetTypeVideo AssetType = "video"
	AssetTypeAudio AssetType = "audio"
	AssetTypeImage AssetType = "image"
	AssetTypeOther AssetType = "other"
)

// StepStatus is the status of a single step entry in pipeline state.
type StepStatus string

const (
	StepIdle      StepStatus = "idle"
	StepRunning   StepStatus = "running"
	StepWaiting   StepStatus = "waiting"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// IsTerminal reports whether s is succeeded or failed. runAutoSteps does not
// use it: it skips succeeded, running and waiting steps and re-runs failed
// ones.
func (s StepStatus) IsTerminal() bool {
	return s == StepSucceeded || s == StepFailed
}

// Asset is one uploaded media file plus its metadata record, per spec.md §3.
type Asset struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	ProjectID string   `json:"projectId"`
	Name     string    `json:"name"`
	FileName string    `json:"fileName"`
	MimeType string    `json:"mimeType"`
	Size     int64     `json:"size"`
	Type     AssetType `json:"type"`

	GCSUri     string `json:"gcsUri,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
	ObjectName string `json:"objectName,omitempty"`
	SignedURL  string `json:"signedUrl,omitempty"`

	Width      *int     `json:"width,omitempty"`
	Height     *int     `json:"height,omitempty"`
	Duration   *float64 `json:"duration,omitempty"`
	VideoCodec *string  `json:"videoCodec,omitempty"`
	AudioCodec *string  `json:"audioCodec,omitempty"`
	SampleRate *int     `json:"sampleRate,omitempty"`
	Channels   *int     `json:"channels,omitempty"`
	Bitrate    *int     `json:"bitrate,omitempty"`

	Transcoded      bool   `json:"transcoded,omitempty"`
	TranscodeStatus string `json:"transcodeStatus,omitempty"`
	TranscodeError  string `json:"transcodeError,omitempty"`

	Converted   bool   `json:"converted,omitempty"`
	ConvertedAt string `json:"convertedAt,omitempty"`

	OriginalGCSUri     string `json:"originalGcsUri,omitempty"`
	OriginalObjectName string `json:"originalObjectName,omitempty"`
	OriginalSignedURL  string `json:"originalSignedUrl,omitempty"`
	OriginalMimeType   string `json:"originalMimeType,omitempty"`

	UploadedAt string `json:"uploadedAt"`
	UpdatedAt  string `json:"updatedAt"`
	Source     string `json:"source,omitempty"`
}

// NowISO8601 formats t the way every timestamp field in this package is
// persisted: ISO-8601 with a trailing Z.
func NowISO8601(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// StepState is one step's persisted status, per spec.md §3.
type StepState struct {
	ID        string         `json:"id"`
	Label     string         `json:"label"`
	Status    StepStatus     `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Error     string         `json:"error,omitempty"`
	StartedAt string         `json:"startedAt,omitempty"`
	UpdatedAt string         `json:"updatedAt,omitempty"`
}

// State is the per-asset pipeline document, per spec.md §3.
type State struct {
	AssetID   string      `json:"assetId"`
	UpdatedAt string      `json:"updatedAt"`
	Steps     []StepState `json:"steps"`
}

// StepByID returns the step entry with the given id and whether it was found.
func (s State) StepByID(id string) (StepState, bool) {
	for _, st := range s.Steps {
		if st.ID == id {
			return st, true
		}
	}
	return StepState{}, false
}

// StepContext carries everything a step runner needs, per spec.md §4.F.
// PipelineState is the full, freshly-read state document (all steps) so a
// runner can consult a prior step's metadata to check its own
// preconditions, per spec.md §4.G's "each step runner is responsible for
// checking its own preconditions" policy.
type StepContext struct {
	Asset         Asset
	LocalPath     string
	AssetType     AssetType
	StepState     StepState
	PipelineState State
	UserID        string
	ProjectID     string
	Params        map[string]any
}

// StepResult is what a step runner returns, per spec.md §4.F.
type StepResult struct {
	Status   StepStatus
	Metadata map[string]any
	Error    string
}

// Runner is the callable every step definition wraps. A Runner that blocks
// on an external job must honor ctx cancellation.
type Runner func(ctx context.Context, sc StepContext) (StepResult, error)
