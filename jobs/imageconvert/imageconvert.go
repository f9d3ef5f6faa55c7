// Package imageconvert implements the image-convert External Job
// Coordinator (spec.md §4.H) over the CloudConvert REST API, reached with
// hashicorp/go-retryablehttp the way the teacher's handlers/ package talks
// to its own external HTTP dependencies, using log.NewRetryableHTTPLogger
// for request-level logging.
package imageconvert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/youneslaaroussi/asset-pipeline/jobs"
	"github.com/youneslaaroussi/asset-pipeline/log"
)

const apiBase = "https://api.cloudconvert.com/v2"
const sandboxAPIBase = "https://api.sandbox.cloudconvert.com/v2"

// Trigger identifies source MIME types / extensions that require conversion,
// and the target format to convert to, per spec.md §4.H's closed table.
type Trigger struct {
	MimeTypes  []string
	Extensions []string
	TargetFormat string
}

var triggers = []Trigger{
	{MimeTypes: []string{"image/heic", "image/heif"}, Extensions: []string{".heic", ".heif"}, TargetFormat: "png"},
}

// Config is the normalised image-convert configuration, per spec.md §4.H.
type Config struct {
	InputFormat  string
	TargetFormat string
	NeedsConvert bool
}

// Normalize determines whether mimeType/fileName trigger a conversion and,
// if so, to which target format, per the closed trigger table.
func Normalize(mimeType, fileName string) Config {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, trig := range triggers {
		for _, mt := range trig.MimeTypes {
			if strings.EqualFold(mimeType, mt) {
				return Config{InputFormat: mt, TargetFormat: trig.TargetFormat, NeedsConvert: true}
			}
		}
		for _, e := range trig.Extensions {
			if ext == e {
				return Config{InputFormat: ext, TargetFormat: trig.TargetFormat, NeedsConvert: true}
			}
		}
	}
	return Config{NeedsConvert: false}
}

func (c Config) ToMap() map[string]any {
	return map[string]any{"inputFormat": c.InputFormat, "targetFormat": c.TargetFormat}
}

func OutputObjectName(userID, projectID, assetID, fileName, targetFormat string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	return fmt.Sprintf("%s/%s/converted/%s/%s.%s", userID, projectID, assetID, base, targetFormat)
}

// Remote adapts the CloudConvert job API to jobs.Remote. CloudConvert jobs
// are a DAG of tasks (import/upload → convert → export/url); Create submits
// the whole job in one call and returns its job id as the remote job name.
type Remote struct {
	HTTP         *retryablehttp.Client
	APIKey       string
	Sandbox      bool
	TargetFormat string
}

func NewRemote(apiKey string, sandbox bool, targetFormat string) *Remote {
	c := retryablehttp.NewClient()
	c.Logger = log.NewRetryableHTTPLogger()
	return &Remote{HTTP: c, APIKey: apiKey, Sandbox: sandbox, TargetFormat: targetFormat}
}

func (r *Remote) baseURL() string {
	if r.Sandbox {
		return sandboxAPIBase
	}
	return apiBase
}

type cloudConvertJobResponse struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Tasks  []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
			Result struct {
				Files []struct {
					URL string `json:"url"`
				} `json:"files"`
			} `json:"result"`
		} `json:"tasks"`
	} `json:"data"`
}

func (r *Remote) Create(ctx context.Context, userID, projectID, assetID, configHash, sourceURI string, cfg map[string]any) (string, error) {
	targetFormat, _ := cfg["targetFormat"].(string)
	if targetFormat == "" {
		targetFormat = r.TargetFormat
	}

	body := map[string]any{
		"tasks": map[string]any{
			"import-source": map[string]any{
				"operation": "import/url",
				"url":       sourceURI,
			},
			"convert-source": map[string]any{
				"operation":       "convert",
				"input":           "import-source",
				"output_format":   targetFormat,
			},
			"export-result": map[string]any{
				"operation": "export/url",
				"input":     "convert-source",
			},
		},
	}

	resp, err := r.do(ctx, http.MethodPost, "/jobs", body)
	if err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

func (r *Remote) Poll(ctx context.Context, remoteJobName string) (jobs.PollResult, error) {
	resp, err := r.do(ctx, http.MethodGet, "/jobs/"+remoteJobName, nil)
	if err != nil {
		return jobs.PollResult{}, err
	}

	switch resp.Data.Status {
	case "finished":
		var outputURL string
		for _, task := range resp.Data.Tasks {
			if task.Name == "export-result" && len(task.Result.Files) > 0 {
				outputURL = task.Result.Files[0].URL
			}
		}
		return jobs.PollResult{Done: true, Output: map[string]any{"downloadUrl": outputURL}}, nil
	case "error":
		return jobs.PollResult{Done: true, Err: fmt.Errorf("cloudconvert job %s reported status error", remoteJobName)}, nil
	default:
		return jobs.PollResult{Done: false}, nil
	}
}

func (r *Remote) do(ctx context.Context, method, path string, body any) (*cloudConvertJobResponse, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, r.baseURL()+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.APIKey)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := r.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("cloudconvert request failed: %s", httpResp.Status)
	}

	var parsed cloudConvertJobResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
