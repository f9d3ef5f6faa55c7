package steps

import (
	"context"
	"encoding/binary"

	"github.com/youneslaaroussi/asset-pipeline/avtool"
	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

const WaveformStepID = "waveform"

const waveformSampleCount = 200

// NewWaveformRunner decodes the source to 16-bit mono PCM at 8 kHz,
// normalises to [0, 1], and buckets into waveformSampleCount peak samples
// (max per bucket), per spec.md §4.G. Emits waveformSampleCount zero
// samples if the Metadata step reports no audio stream.
func NewWaveformRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		if _, ok := durationFrom(sc); !ok {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no duration"}, nil
		}

		if metaStep, ok := sc.PipelineState.StepByID(MetadataStepID); ok {
			if hasAudio, ok := metaStep.Metadata["hasAudio"].(bool); ok && !hasAudio {
				return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{
					"samples": zeroSamples(waveformSampleCount),
				}}, nil
			}
		}

		if sc.LocalPath == "" {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: "no local file available"}, nil
		}

		pcm, err := avtool.DecodePCM16Mono8kHz(ctx, sc.LocalPath)
		if err != nil {
			return pipeline.StepResult{Status: pipeline.StepFailed, Error: err.Error()}, nil
		}

		samples := bucketPeaks(pcm, waveformSampleCount)
		return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: map[string]any{
			"samples": samples,
		}}, nil
	}
}

func zeroSamples(n int) []float64 {
	s := make([]float64, n)
	return s
}

// bucketPeaks normalises 16-bit LE PCM samples to [0, 1] and reduces them to
// numBuckets peak (max-magnitude) samples.
func bucketPeaks(pcm []byte, numBuckets int) []float64 {
	numSamples := len(pcm) / 2
	if numSamples == 0 {
		return zeroSamples(numBuckets)
	}

	out := make([]float64, numBuckets)
	bucketSize := numSamples / numBuckets
	if bucketSize == 0 {
		bucketSize = 1
	}

	for b := 0; b < numBuckets; b++ {
		start := b * bucketSize
		end := start + bucketSize
		if end > numSamples {
			end = numSamples
		}
		var peak float64
		for i := start; i < end; i++ {
			v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
			norm := float64(v) / 32768.0
			if norm < 0 {
				norm = -norm
			}
			if norm > peak {
				peak = norm
			}
		}
		out[b] = peak
	}
	return out
}
