package steps

import (
	"context"

	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

const MetadataStepID = "metadata"

// NewMetadataRunner probes localPath and emits the populated field set into
// step metadata. A probe failure is non-fatal, per spec.md §4.G: it
// records metadataError but the step still succeeds.
func NewMetadataRunner(d *Deps) pipeline.Runner {
	return func(ctx context.Context, sc pipeline.StepContext) (pipeline.StepResult, error) {
		meta := map[string]any{}

		if sc.LocalPath == "" {
			return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: meta}, nil
		}

		probed, err := d.Prober.Extract(ctx, sc.LocalPath)
		if err != nil {
			meta["metadataError"] = err.Error()
			return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: meta}, nil
		}

		putIfSet(meta, "duration", probed.Duration)
		putIfSet(meta, "width", probed.Width)
		putIfSet(meta, "height", probed.Height)
		putIfSet(meta, "codec", probed.Codec)
		putIfSet(meta, "audioCodec", probed.AudioCodec)
		putIfSet(meta, "sampleRate", probed.SampleRate)
		putIfSet(meta, "channels", probed.Channels)
		putIfSet(meta, "bitrate", probed.Bitrate)
		putIfSet(meta, "formatName", probed.FormatName)
		putIfSet(meta, "size", probed.Size)
		meta["hasAudio"] = probed.AudioCodec != nil

		return pipeline.StepResult{Status: pipeline.StepSucceeded, Metadata: meta}, nil
	}
}

func putIfSet[T any](m map[string]any, key string, v *T) {
	if v != nil {
		m[key] = *v
	}
}
