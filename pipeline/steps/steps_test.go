package steps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/youneslaaroussi/asset-pipeline/keyrotator"
	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

type fakeGemini struct {
	callsByKey map[string]int
	failUntilKey string // quota-exhausted for every key except this one
}

func (g *fakeGemini) UploadFile(ctx context.Context, apiKey, localPath, mimeType string) (string, error) {
	return "files/fake", nil
}
func (g *fakeGemini) WaitUntilActive(ctx context.Context, apiKey, fileURI string, timeout time.Duration) error {
	return nil
}
func (g *fakeGemini) DeleteFile(ctx context.Context, apiKey, fileURI string) error { return nil }
func (g *fakeGemini) GenerateContent(ctx context.Context, apiKey, model, systemPrompt, fileURI, mimeType string) (string, error) {
	if g.callsByKey == nil {
		g.callsByKey = map[string]int{}
	}
	g.callsByKey[apiKey]++
	if apiKey == g.failUntilKey {
		return "a description", nil
	}
	return "", errors.New("429 RESOURCE_EXHAUSTED")
}

func TestGeminiAnalysisRotatesThroughKeysOnQuotaExhaustion(t *testing.T) {
	rotator := keyrotator.New("k1,k2,k3")
	gem := &fakeGemini{failUntilKey: "k3"}
	d := &Deps{Gemini: gem, Rotator: rotator, GeminiModels: []string{"model-a"}}

	run := NewGeminiAnalysisRunner(d)
	result, err := run(context.Background(), pipeline.StepContext{
		Asset:     pipeline.Asset{ID: "a1", MimeType: "video/mp4"},
		LocalPath: "/tmp/fake.mp4",
		AssetType: pipeline.AssetTypeVideo,
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.StepSucceeded, result.Status)
	require.Equal(t, "a description", result.Metadata["analysis"])
	require.Equal(t, "video", result.Metadata["promptCategory"])
	require.Equal(t, 1, gem.callsByKey["k1"])
	require.Equal(t, 1, gem.callsByKey["k2"])
	require.Equal(t, 1, gem.callsByKey["k3"])
}

func TestGeminiAnalysisFailsWhenAllModelsExhausted(t *testing.T) {
	rotator := keyrotator.New("k1,k2")
	gem := &fakeGemini{failUntilKey: "never-succeeds"}
	d := &Deps{Gemini: gem, Rotator: rotator, GeminiModels: []string{"model-a", "model-b"}}

	run := NewGeminiAnalysisRunner(d)
	result, err := run(context.Background(), pipeline.StepContext{
		Asset:     pipeline.Asset{ID: "a1", MimeType: "video/mp4"},
		LocalPath: "/tmp/fake.mp4",
		AssetType: pipeline.AssetTypeVideo,
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.StepFailed, result.Status)
}

func TestGeminiAnalysisNonQuotaErrorFailsImmediately(t *testing.T) {
	rotator := keyrotator.New("k1,k2")
	d := &Deps{
		Gemini: &fixedErrGemini{err: errors.New("malformed request")},
		Rotator: rotator, GeminiModels: []string{"model-a"},
	}

	run := NewGeminiAnalysisRunner(d)
	result, err := run(context.Background(), pipeline.StepContext{
		Asset:     pipeline.Asset{ID: "a1", MimeType: "image/png"},
		LocalPath: "/tmp/fake.png",
		AssetType: pipeline.AssetTypeImage,
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.StepFailed, result.Status)
	require.Contains(t, result.Error, "malformed request")
}

type fixedErrGemini struct{ err error }

func (g *fixedErrGemini) UploadFile(ctx context.Context, apiKey, localPath, mimeType string) (string, error) {
	return "files/fake", nil
}
func (g *fixedErrGemini) WaitUntilActive(ctx context.Context, apiKey, fileURI string, timeout time.Duration) error {
	return nil
}
func (g *fixedErrGemini) DeleteFile(ctx context.Context, apiKey, fileURI string) error { return nil }
func (g *fixedErrGemini) GenerateContent(ctx context.Context, apiKey, model, systemPrompt, fileURI, mimeType string) (string, error) {
	return "", g.err
}

func TestImageConvertSkipsNonTriggeringMimeType(t *testing.T) {
	d := &Deps{}
	run := NewImageConvertRunner(d)
	result, err := run(context.Background(), pipeline.StepContext{
		Asset: pipeline.Asset{ID: "a1", MimeType: "image/png", FileName: "photo.png"},
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.StepSucceeded, result.Status)
	require.Equal(t, "no conversion needed", result.Metadata["message"])
}

func TestFrameSamplingFailsOnZeroDuration(t *testing.T) {
	d := &Deps{}
	run := NewFrameSamplingRunner(d)
	zero := 0.0
	result, err := run(context.Background(), pipeline.StepContext{
		Asset:     pipeline.Asset{ID: "a1", Duration: &zero},
		LocalPath: "/tmp/fake.mp4",
		AssetType: pipeline.AssetTypeVideo,
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.StepFailed, result.Status)
	require.Contains(t, result.Error, "no duration")
}

func TestAudioExtractSkipsWhenMetadataReportsNoAudio(t *testing.T) {
	d := &Deps{}
	run := NewAudioExtractRunner(d)
	result, err := run(context.Background(), pipeline.StepContext{
		Asset:     pipeline.Asset{ID: "a1"},
		AssetType: pipeline.AssetTypeVideo,
		PipelineState: pipeline.State{Steps: []pipeline.StepState{
			{ID: MetadataStepID, Status: pipeline.StepSucceeded, Metadata: map[string]any{"hasAudio": false}},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.StepSucceeded, result.Status)
	require.Equal(t, true, result.Metadata["skipped"])
	require.Equal(t, "no_audio", result.Metadata["reason"])
}

func TestWaveformEmitsSilentSamplesWhenNoAudio(t *testing.T) {
	d := &Deps{}
	run := NewWaveformRunner(d)
	duration := 10.0
	result, err := run(context.Background(), pipeline.StepContext{
		Asset: pipeline.Asset{ID: "a1", Duration: &duration},
		PipelineState: pipeline.State{Steps: []pipeline.StepState{
			{ID: MetadataStepID, Status: pipeline.StepSucceeded, Metadata: map[string]any{"hasAudio": false}},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.StepSucceeded, result.Status)
	samples, ok := result.Metadata["samples"].([]float64)
	require.True(t, ok)
	require.Len(t, samples, waveformSampleCount)
	for _, s := range samples {
		require.Zero(t, s)
	}
}
