package steps

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
	"github.com/youneslaaroussi/asset-pipeline/jobs"
	jobimageconvert "github.com/youneslaaroussi/asset-pipeline/jobs/imageconvert"
	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

const ImageConvertStepID = "image-convert"

// NewImageConvertRunner is a thin adapter onto jobs.Coordinator. When the
// source isn't in the conversion trigger set it returns succeeded with a
// "no conversion needed" message and creates no remote job, per spec.md
// §4.H.
func NewImageConvertRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		cfg := jobimageconvert.Normalize(sc.Asset.MimeType, sc.Asset.FileName)
		if !cfg.NeedsConvert {
			return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{
				"message": "no conversion needed",
			}}, nil
		}

		sourceURI, ok := uploadedGCSUri(sc)
		if !ok {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no uploaded source available"}, nil
		}

		newFileName := replaceExt(sc.Asset.FileName, cfg.TargetFormat)
		repoint := func(rec jobs.Record) error {
			downloadURL, _ := rec.Output["downloadUrl"].(string)
			if downloadURL == "" {
				return xerrors.NewBackend("image-convert repoint", fmt.Errorf("remote job recorded no downloadUrl"))
			}
			contentType := "image/" + cfg.TargetFormat
			data, err := fetchURL(ctx, downloadURL)
			if err != nil {
				return xerrors.NewBackend("fetch converted image", err)
			}
			objectName := jobimageconvert.OutputObjectName(sc.UserID, sc.ProjectID, sc.Asset.ID, sc.Asset.FileName, cfg.TargetFormat)
			uploaded, err := d.Blob.Upload(ctx, data, d.Bucket, objectName, contentType)
			if err != nil {
				return err
			}
			return repointAsset(ctx, d, sc, repointInput{
				NewGCSUri:   uploaded.GCSUri,
				NewMimeType: contentType,
				NewFileName: newFileName,
				Flag:        "converted",
				FlagTimeKey: "convertedAt",
			})
		}

		dec, err := d.ImageConvertCoordinator.Run(ctx, sc.UserID, sc.ProjectID, sc.Asset.ID, cfg.ToMap(), sourceURI, repoint)
		if err != nil {
			return pipeline.StepResult{}, err
		}
		return toStepResult(dec), nil
	}
}

// fetchURL retrieves the CloudConvert export task's downloadUrl so its
// bytes can be re-uploaded into the asset bucket: the coordinator's Output
// record must stay a gs:// object per spec.md §3's Asset invariant, never
// the external host's https:// URL.
func fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func replaceExt(fileName, newExt string) string {
	if i := strings.LastIndex(fileName, "."); i >= 0 {
		return fileName[:i] + "." + newExt
	}
	return fileName + "." + newExt
}
