package steps

import (
	"context"
	"os"
	"time"

	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

const CloudUploadStepID = "cloud-upload"

const signedURLTTL = time.Hour

// NewCloudUploadRunner uploads the local file under assets/{assetId}/{fileName}
// unless the asset record already carries gcsUri/objectName, in which case
// it emits those plus a fresh signed URL, per spec.md §4.G.
func NewCloudUploadRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		if sc.Asset.GCSUri != "" && sc.Asset.ObjectName != "" {
			signed, err := d.Blob.SignedReadURL(ctx, d.Bucket, sc.Asset.ObjectName, signedURLTTL)
			if err != nil {
				return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
			}
			return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{
				"gcsUri": sc.Asset.GCSUri, "objectName": sc.Asset.ObjectName, "signedUrl": signed,
			}}, nil
		}

		data, err := os.ReadFile(sc.LocalPath)
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}

		objectName := "assets/" + sc.Asset.ID + "/" + sc.Asset.FileName
		result, err := d.Blob.Upload(ctx, data, d.Bucket, objectName, sc.Asset.MimeType)
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}

		signed, err := d.Blob.SignedReadURL(ctx, d.Bucket, objectName, signedURLTTL)
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}

		return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{
			"gcsUri": result.GCSUri, "objectName": result.ObjectName, "signedUrl": signed,
		}}, nil
	}
}
