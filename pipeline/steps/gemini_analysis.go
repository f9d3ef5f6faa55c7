package steps

import (
	"context"
	"time"

	"github.com/youneslaaroussi/asset-pipeline/keyrotator"
	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

const GeminiAnalysisStepID = "gemini-analysis"

const fileActivationTimeout = 2 * time.Minute

var systemPromptsByType = map[pipeline.AssetType]string{
	pipeline.AssetTypeVideo: "You are analysing a video asset. Describe its content, notable scenes, and any spoken or on-screen text.",
	pipeline.AssetTypeAudio: "You are analysing an audio asset. Describe its content and any spoken words.",
	pipeline.AssetTypeImage: "You are analysing an image asset. Describe its visual content in detail.",
}

// promptCategoriesByType names the prompt used for each asset type, carried
// in step metadata alongside the model and analysis text for UI display.
var promptCategoriesByType = map[pipeline.AssetType]string{
	pipeline.AssetTypeVideo: "video",
	pipeline.AssetTypeAudio: "audio",
	pipeline.AssetTypeImage: "image",
}

// NewGeminiAnalysisRunner uploads the source through a temporary file
// handle to the LLM files API, waits for ACTIVE state, then generates
// content with a category-specific prompt. For each model in
// d.GeminiModels, it retries up to the key count, rotating on
// quota-exhaustion; any non-quota error fails the step immediately. On
// success the transient LLM-side file is deleted, per spec.md §4.G.
func NewGeminiAnalysisRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		prompt, ok := systemPromptsByType[sc.AssetType]
		if !ok {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "unsupported asset type for analysis"}, nil
		}
		if sc.LocalPath == "" {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no local file available"}, nil
		}

		var lastErr error
		for _, model := range d.GeminiModels {
			text, err, quotaExhausted := tryModel(ctx, d, model, prompt, sc)
			if err == nil {
				return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{
					"model":          model,
					"analysis":       text,
					"promptCategory": promptCategoriesByType[sc.AssetType],
				}}, nil
			}
			if !quotaExhausted {
				return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
			}
			lastErr = err
		}

		if lastErr == nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no Gemini models configured"}, nil
		}
		return pipeline.StepResult{Status: pipeline.StepFailed, Error: lastErr.Error()}, nil
	}
}

// tryModel loops up to keyCount times against one model, rotating the key
// on every quota-exhausted response, per spec.md Scenario C. quotaExhausted
// is true only when every key in the rotation was exhausted for this
// model — the caller then moves on to the next model in the priority list;
// any other error is returned to fail the step immediately.
func tryModel(ctx context.Context, d *Deps, model, prompt string, sc pipeline.StepContext) (text string, err error, quotaExhausted bool) {
	keyCount := d.Rotator.Count()
	if keyCount == 0 {
		return "", errNoKeys, false
	}

	var lastErr error
	for i := 0; i < keyCount; i++ {
		apiKey, ok := d.Rotator.Current()
		if !ok {
			return "", errNoKeys, false
		}

		out, attemptErr := runOneAttempt(ctx, d, apiKey, model, prompt, sc)
		if attemptErr == nil {
			return out, nil, false
		}
		if !keyrotator.IsQuotaExhausted(attemptErr) {
			return "", attemptErr, false
		}
		lastErr = attemptErr
		d.Rotator.Rotate()
	}
	return "", lastErr, true
}

func runOneAttempt(ctx context.Context, d *Deps, apiKey, model, prompt string, sc pipeline.StepContext) (string, error) {
	fileURI, err := d.Gemini.UploadFile(ctx, apiKey, sc.LocalPath, sc.Asset.MimeType)
	if err != nil {
		return "", err
	}
	defer d.Gemini.DeleteFile(ctx, apiKey, fileURI)

	if err := d.Gemini.WaitUntilActive(ctx, apiKey, fileURI, fileActivationTimeout); err != nil {
		return "", err
	}

	return d.Gemini.GenerateContent(ctx, apiKey, model, prompt, fileURI, sc.Asset.MimeType)
}

type geminiError string

func (e geminiError) Error() string { return string(e) }

const errNoKeys = geminiError("no LLM API keys configured")
