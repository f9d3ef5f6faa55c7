package steps

import (
	"context"
	"os"
	"path/filepath"

	"github.com/youneslaaroussi/asset-pipeline/avtool"
	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

const AudioExtractStepID = "audio-extract"

// NewAudioExtractRunner extracts a 16 kHz mono FLAC from the source, per
// spec.md §4.G. Skips with succeeded+{skipped:true, reason:no_audio} if the
// Metadata step reports no audio stream.
func NewAudioExtractRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		if metaStep, ok := sc.PipelineState.StepByID(MetadataStepID); ok {
			if hasAudio, ok := metaStep.Metadata["hasAudio"].(bool); ok && !hasAudio {
				return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{
					"skipped": true, "reason": "no_audio",
				}}, nil
			}
		}
		if sc.LocalPath == "" {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no local file available"}, nil
		}

		out := filepath.Join(os.TempDir(), sc.Asset.ID+"-audio.flac")
		defer os.Remove(out)

		if err := avtool.ExtractAudioFLAC(ctx, sc.LocalPath, out); err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}

		data, err := os.ReadFile(out)
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}

		objectName := "assets/" + sc.Asset.ID + "/audio.flac"
		result, err := d.Blob.Upload(ctx, data, d.Bucket, objectName, "audio/flac")
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}

		return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{
			"audioForTranscriptionGcsUri": result.GCSUri,
			"objectName":                  result.ObjectName,
		}}, nil
	}
}
