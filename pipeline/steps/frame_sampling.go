package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/youneslaaroussi/asset-pipeline/avtool"
	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

const FrameSamplingStepID = "frame-sampling"

const frameSampleCount = 20
const frameMaxHeight = 120

// NewFrameSamplingRunner extracts frameSampleCount frames at
// duration*(i+0.5)/frameSampleCount, each scaled to at most frameMaxHeight
// tall, uploaded as assets/{assetId}/frames/frame_{ii}.jpg, per spec.md
// §4.G. A single frame's extraction failure is non-fatal; zero frames
// extracted is failed.
func NewFrameSamplingRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		duration, ok := durationFrom(sc)
		if !ok || duration <= 0 {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no duration"}, nil
		}
		if sc.LocalPath == "" {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no local file available"}, nil
		}

		var objectNames []string
		for i := 0; i < frameSampleCount; i++ {
			at := duration * (float64(i) + 0.5) / float64(frameSampleCount)
			tmp := filepath.Join(os.TempDir(), fmt.Sprintf("%s-frame-%02d.jpg", sc.Asset.ID, i))

			if err := avtool.ExtractFrameAt(ctx, sc.LocalPath, tmp, at, frameMaxHeight); err != nil {
				os.Remove(tmp)
				continue
			}
			data, err := os.ReadFile(tmp)
			os.Remove(tmp)
			if err != nil {
				continue
			}

			objectName := fmt.Sprintf("assets/%s/frames/frame_%02d.jpg", sc.Asset.ID, i)
			if _, err := d.Blob.Upload(ctx, data, d.Bucket, objectName, "image/jpeg"); err != nil {
				continue
			}
			objectNames = append(objectNames, objectName)
		}

		if len(objectNames) == 0 {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no frames extracted"}, nil
		}

		return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{
			"frameObjectNames": objectNames,
			"frameCount":       len(objectNames),
		}}, nil
	}
}

// durationFrom resolves duration preferring the asset record, falling back
// to the Metadata step's metadata, per spec.md §4.G ("requires a known
// duration (from the Metadata step if the asset record lacks it)").
func durationFrom(sc pipeline.StepContext) (float64, bool) {
	if sc.Asset.Duration != nil {
		return *sc.Asset.Duration, true
	}
	if metaStep, ok := sc.PipelineState.StepByID(MetadataStepID); ok {
		if d, ok := metaStep.Metadata["duration"].(float64); ok {
			return d, true
		}
	}
	return 0, false
}
