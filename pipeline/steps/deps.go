// Package steps holds one file per pipeline step runner (spec.md §4.G),
// each built against the narrow interfaces in Deps rather than concrete
// clients, so step runners are as testable as the coordinators they wrap.
package steps

import (
	"context"
	"time"

	"github.com/youneslaaroussi/asset-pipeline/blob"
	"github.com/youneslaaroussi/asset-pipeline/docstore"
	"github.com/youneslaaroussi/asset-pipeline/jobs"
	"github.com/youneslaaroussi/asset-pipeline/keyrotator"
	"github.com/youneslaaroussi/asset-pipeline/metadataprobe"
)

// VideoIntelligence is the narrow interface the shot/label/face/person
// detection steps depend on, implemented by videointel.Client, a thin
// wrapper over cloud.google.com/go/videointelligence.
type VideoIntelligence interface {
	DetectShots(ctx context.Context, gcsUri string) ([]map[string]any, error)
	DetectLabels(ctx context.Context, gcsUri string) ([]map[string]any, error)
	DetectFaces(ctx context.Context, gcsUri string) ([]map[string]any, error)
	DetectPersons(ctx context.Context, gcsUri string) ([]map[string]any, error)
}

// GeminiClient is the narrow interface the Gemini Analysis step depends on.
type GeminiClient interface {
	UploadFile(ctx context.Context, apiKey string, localPath, mimeType string) (fileURI string, err error)
	WaitUntilActive(ctx context.Context, apiKey string, fileURI string, timeout time.Duration) error
	GenerateContent(ctx context.Context, apiKey, model, systemPrompt, fileURI, mimeType string) (string, error)
	DeleteFile(ctx context.Context, apiKey, fileURI string) error
}

// Deps bundles every external dependency a step runner may need. Not every
// step uses every field; unused fields stay nil for a worker process that
// only wires the steps it runs (e.g. a test harness).
type Deps struct {
	Blob     blob.Store
	Docs     docstore.Store
	Prober   metadataprobe.Prober
	VideoIntel VideoIntelligence
	Gemini   GeminiClient
	Rotator  *keyrotator.Rotator
	GeminiModels []string

	TranscodeCoordinator     *jobs.Coordinator
	ImageConvertCoordinator  *jobs.Coordinator
	TranscriptionCoordinator *jobs.Coordinator

	Bucket              string
	TargetHeight        int
	SpeechLanguageCodes []string
	SpeechModel         string
	FaceDetectionMaxDuration time.Duration
}
