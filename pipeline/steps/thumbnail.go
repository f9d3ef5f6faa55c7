package steps

import (
	"context"
	"os"
	"path/filepath"

	"github.com/youneslaaroussi/asset-pipeline/avtool"
	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

const ThumbnailStepID = "thumbnail"

const thumbnailMaxDim = 400

// NewThumbnailRunner generates a resized cover (image) or first-frame
// capture (video), uploaded under assets/{assetId}/thumbnail.jpg, per
// spec.md §4.G.
func NewThumbnailRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		if sc.LocalPath == "" {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no local file available"}, nil
		}

		out := filepath.Join(os.TempDir(), sc.Asset.ID+"-thumb.jpg")
		defer os.Remove(out)

		var err error
		switch sc.AssetType {
		case pipeline.AssetTypeImage:
			err = avtool.ResizeImageCover(ctx, sc.LocalPath, out, thumbnailMaxDim)
		case pipeline.AssetTypeVideo:
			err = avtool.ExtractFirstFrame(ctx, sc.LocalPath, out)
		default:
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "unsupported asset type for thumbnail"}, nil
		}
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}

		data, err := os.ReadFile(out)
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}

		objectName := "assets/" + sc.Asset.ID + "/thumbnail.jpg"
		result, err := d.Blob.Upload(ctx, data, d.Bucket, objectName, "image/jpeg")
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}

		return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{
			"gcsUri": result.GCSUri, "objectName": result.ObjectName,
		}}, nil
	}
}
