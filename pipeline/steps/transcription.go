package steps

import (
	"context"

	jobtranscription "github.com/youneslaaroussi/asset-pipeline/jobs/transcription"
	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

const TranscriptionStepID = "transcription"

// NewTranscriptionRunner is a thin adapter onto jobs.Coordinator in
// ResumeMode. Source preference, per spec.md §4.H: Audio Extract's FLAC →
// Transcode's output → original Cloud Upload output.
func NewTranscriptionRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		sourceURI, ok := transcriptionSource(sc)
		if !ok {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no source audio/video available"}, nil
		}

		cfg := jobtranscription.Normalize(d.SpeechLanguageCodes, nil, d.SpeechModel)

		dec, err := d.TranscriptionCoordinator.Run(ctx, sc.UserID, sc.ProjectID, sc.Asset.ID, cfg.ToMap(), sourceURI, nil)
		if err != nil {
			return pipeline.StepResult{}, err
		}
		return toStepResult(dec), nil
	}
}

func transcriptionSource(sc pipeline.StepContext) (string, bool) {
	if step, ok := sc.PipelineState.StepByID(AudioExtractStepID); ok {
		if uri, ok := step.Metadata["audioForTranscriptionGcsUri"].(string); ok && uri != "" {
			return uri, true
		}
	}
	if step, ok := sc.PipelineState.StepByID(TranscodeStepID); ok {
		if uri, ok := step.Metadata["outputUri"].(string); ok && uri != "" {
			return uri, true
		}
	}
	return uploadedGCSUri(sc)
}
