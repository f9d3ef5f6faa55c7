package steps

import (
	"context"

	"github.com/youneslaaroussi/asset-pipeline/docstore"
	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
	"github.com/youneslaaroussi/asset-pipeline/jobs"
	jobtranscode "github.com/youneslaaroussi/asset-pipeline/jobs/transcode"
	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

const TranscodeStepID = "transcode"

// NewTranscodeRunner is a thin adapter onto jobs.Coordinator, normalising
// the transcode config from the Metadata step's probed hasAudio and this
// process's configured target height, then applying the repoint-on-success
// procedure of spec.md §4.H step 5.
func NewTranscodeRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		sourceURI, ok := uploadedGCSUri(sc)
		if !ok {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no uploaded source available"}, nil
		}

		hasAudio := true
		if metaStep, ok := sc.PipelineState.StepByID(MetadataStepID); ok {
			if v, ok := metaStep.Metadata["hasAudio"].(bool); ok {
				hasAudio = v
			}
		}

		cfg := jobtranscode.Normalize(d.TargetHeight, hasAudio)

		repoint := func(rec jobs.Record) error {
			outputURI, _ := rec.Output["outputUri"].(string)
			return repointAsset(ctx, d, sc, repointInput{
				NewGCSUri:   outputURI,
				NewMimeType: "video/mp4",
				Flag:        "transcoded",
				FlagTimeKey: "transcodedAt",
			})
		}

		dec, err := d.TranscodeCoordinator.Run(ctx, sc.UserID, sc.ProjectID, sc.Asset.ID, cfg.ToMap(), sourceURI, repoint)
		if err != nil {
			return pipeline.StepResult{}, err
		}
		return toStepResult(dec), nil
	}
}

// repointInput bundles what repointAsset needs to carry out spec.md §4.H
// step 5 for either transcode or image-convert.
type repointInput struct {
	NewGCSUri   string
	NewMimeType string
	NewFileName string
	Flag        string
	FlagTimeKey string
}

// repointAsset backs up the original asset fields, overwrites them with the
// derived output, sets the kind-specific flag, and re-probes the new object
// to repair unreliable source-container metadata, per spec.md §4.H step 5.
func repointAsset(ctx context.Context, d *Deps, sc pipeline.StepContext, in repointInput) error {
	if in.NewGCSUri == "" {
		return xerrors.NewValidation("repoint: empty output gcsUri", nil)
	}

	path := docstore.AssetPath(sc.UserID, sc.ProjectID, sc.Asset.ID)
	fields := map[string]any{
		"originalGcsUri":   sc.Asset.GCSUri,
		"originalMimeType": sc.Asset.MimeType,
		"gcsUri":           in.NewGCSUri,
		"mimeType":         in.NewMimeType,
		in.Flag:            true,
	}
	if in.NewFileName != "" {
		fields["fileName"] = in.NewFileName
	}

	localCopy, err := d.Blob.Download(ctx, in.NewGCSUri)
	if err == nil {
		tmp, cleanup, writeErr := writeTempFile(sc.Asset.ID+"-repoint", localCopy)
		if writeErr == nil {
			defer cleanup()
			if probed, probeErr := d.Prober.Extract(ctx, tmp); probeErr == nil {
				putIfSet(fields, "width", probed.Width)
				putIfSet(fields, "height", probed.Height)
				putIfSet(fields, "duration", probed.Duration)
				putIfSet(fields, "codec", probed.Codec)
				putIfSet(fields, "audioCodec", probed.AudioCodec)
			}
		}
	}

	return d.Docs.Update(ctx, path, fields)
}

func toStepResult(dec jobs.Decision) pipeline.StepResult {
	return pipeline.StepResult{
		Status:   pipeline.StepStatus(dec.Outcome),
		Metadata: dec.Output,
		Error:    dec.Error,
	}
}
