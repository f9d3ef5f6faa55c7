package steps

import (
	"context"

	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

const (
	ShotDetectionStepID   = "shot-detection"
	LabelDetectionStepID  = "label-detection"
	FaceDetectionStepID   = "face-detection"
	PersonDetectionStepID = "person-detection"
)

func uploadedGCSUri(sc pipeline.StepContext) (string, bool) {
	if sc.Asset.GCSUri != "" {
		return sc.Asset.GCSUri, true
	}
	if step, ok := sc.PipelineState.StepByID(CloudUploadStepID); ok {
		if uri, ok := step.Metadata["gcsUri"].(string); ok && uri != "" {
			return uri, true
		}
	}
	return "", false
}

func NewShotDetectionRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		uri, ok := uploadedGCSUri(sc)
		if !ok {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no uploaded source available"}, nil
		}
		shots, err := d.VideoIntel.DetectShots(ctx, uri)
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}
		return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{"shots": shots}}, nil
	}
}

func NewLabelDetectionRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		uri, ok := uploadedGCSUri(sc)
		if !ok {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no uploaded source available"}, nil
		}
		labels, err := d.VideoIntel.DetectLabels(ctx, uri)
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}
		return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{"labels": labels}}, nil
	}
}

// NewFaceDetectionRunner skips clips longer than FaceDetectionMaxDuration to
// avoid timeouts, per spec.md §6's face-detection-max-duration config.
func NewFaceDetectionRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		if d.FaceDetectionMaxDuration > 0 {
			if duration, ok := durationFrom(sc); ok && float64(d.FaceDetectionMaxDuration.Seconds()) < duration {
				return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{
					"skipped": true, "reason": "duration_exceeds_max",
				}}, nil
			}
		}
		uri, ok := uploadedGCSUri(sc)
		if !ok {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no uploaded source available"}, nil
		}
		faces, err := d.VideoIntel.DetectFaces(ctx, uri)
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}
		return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{"faces": faces}}, nil
	}
}

func NewPersonDetectionRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		uri, ok := uploadedGCSUri(sc)
		if !ok {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no uploaded source available"}, nil
		}
		persons, err := d.VideoIntel.DetectPersons(ctx, uri)
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}
		return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{"persons": persons}}, nil
	}
}
