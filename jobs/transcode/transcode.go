// Package transcode implements the transcode External Job Coordinator
// (spec.md §4.H) over the Google Cloud Transcoder API, grounded on the
// teacher's pipeline.mediaconvert.go (one remote job submitted per source,
// polled for terminal state, output path derived from a deterministic
// prefix) though the teacher targeted AWS MediaConvert rather than Cloud
// Transcoder.
package transcode

import (
	"context"
	"fmt"

	transcoder "cloud.google.com/go/video/transcoder/apiv1"
	transcoderpb "google.golang.org/genproto/googleapis/cloud/video/transcoder/v1"

	"github.com/youneslaaroussi/asset-pipeline/jobs"
)

const (
	defaultOutputFormat    = "mp4"
	defaultVideoCodec      = "h264"
	defaultVideoBitrateBps = 2_500_000
	defaultFrameRate       = 30.0
	defaultAudioCodec      = "aac"
	defaultAudioBitrateBps = 128_000
	defaultSampleRate      = 48000
	defaultChannels        = 2
)

// Config is the normalised transcode configuration, per spec.md §4.H.
type Config struct {
	OutputFormat    string
	VideoCodec      string
	VideoBitrateBps int
	TargetHeight    int
	FrameRate       float64
	HasAudio        bool
	AudioCodec      string
	AudioBitrateBps int
	SampleRate      int
	Channels        int
}

// Normalize applies defaults and elides audio fields when the source has no
// audio stream, per spec.md §4.H.
func Normalize(targetHeight int, hasAudio bool) Config {
	cfg := Config{
		OutputFormat:    defaultOutputFormat,
		VideoCodec:      defaultVideoCodec,
		VideoBitrateBps: defaultVideoBitrateBps,
		TargetHeight:    targetHeight,
		FrameRate:       defaultFrameRate,
		HasAudio:        hasAudio,
	}
	if hasAudio {
		cfg.AudioCodec = defaultAudioCodec
		cfg.AudioBitrateBps = defaultAudioBitrateBps
		cfg.SampleRate = defaultSampleRate
		cfg.Channels = defaultChannels
	}
	return cfg
}

// ToMap flattens Config into the canonical-hash input, per spec.md §4.H
// step 1.
func (c Config) ToMap() map[string]any {
	m := map[string]any{
		"outputFormat":    c.OutputFormat,
		"videoCodec":      c.VideoCodec,
		"videoBitrateBps": c.VideoBitrateBps,
		"targetHeight":    c.TargetHeight,
		"frameRate":       c.FrameRate,
		"hasAudio":        c.HasAudio,
	}
	if c.HasAudio {
		m["audioCodec"] = c.AudioCodec
		m["audioBitrateBps"] = c.AudioBitrateBps
		m["sampleRate"] = c.SampleRate
		m["channels"] = c.Channels
	}
	return m
}

// OutputPrefix is the deterministic folder an output is written under, per
// spec.md §4.H: "the coordinator MUST reconstruct the full object path —
// never repoint the asset to a folder path alone."
func OutputPrefix(userID, projectID, assetID, configHash string) string {
	return fmt.Sprintf("users/%s/projects/%s/transcoded/%s/%s/", userID, projectID, assetID, configHash)
}

// outputFileName is the mux stream's output file: the Transcoder API names
// a mux stream's output "<key>.<container>" when no FileName override is
// given, and Create's single mux stream uses key "output" and container
// "mp4".
const outputFileName = "output.mp4"

func OutputObjectName(userID, projectID, assetID, configHash string) string {
	return OutputPrefix(userID, projectID, assetID, configHash) + outputFileName
}

// Remote adapts the Cloud Transcoder API client to jobs.Remote. It carries
// no per-asset state: Create derives the output path from the identifiers
// jobs.Coordinator passes on each call, so one Remote is shared across
// every asset the coordinator ever transcodes.
type Remote struct {
	Client       *transcoder.Client
	ProjectID    string
	Location     string
	OutputBucket string
}

func NewRemote(client *transcoder.Client, projectID, location, outputBucket string) *Remote {
	return &Remote{Client: client, ProjectID: projectID, Location: location, OutputBucket: outputBucket}
}

func (r *Remote) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", r.ProjectID, r.Location)
}

func (r *Remote) Create(ctx context.Context, userID, projectID, assetID, configHash, sourceURI string, cfg map[string]any) (string, error) {
	hasAudio, _ := cfg["hasAudio"].(bool)
	height, _ := cfg["targetHeight"].(int)
	outputURI := fmt.Sprintf("gs://%s/%s", r.OutputBucket, OutputPrefix(userID, projectID, assetID, configHash))

	elementary := []*transcoderpb.ElementaryStream{
		{
			Key: "video-stream0",
			ElementaryStream: &transcoderpb.ElementaryStream_VideoStream{
				VideoStream: &transcoderpb.VideoStream{
					CodecSettings: &transcoderpb.VideoStream_H264{
						H264: &transcoderpb.VideoStream_H264CodecSettings{
							BitrateBps:   int32(intOr(cfg["videoBitrateBps"], defaultVideoBitrateBps)),
							HeightPixels: int32(height),
							FrameRate:    floatOr(cfg["frameRate"], defaultFrameRate),
						},
					},
				},
			},
		},
	}
	muxStreams := []string{"video-stream0"}
	if hasAudio {
		elementary = append(elementary, &transcoderpb.ElementaryStream{
			Key: "audio-stream0",
			ElementaryStream: &transcoderpb.ElementaryStream_AudioStream{
				AudioStream: &transcoderpb.AudioStream{
					Codec:      stringOr(cfg["audioCodec"], defaultAudioCodec),
					BitrateBps: int32(intOr(cfg["audioBitrateBps"], defaultAudioBitrateBps)),
					SampleRateHertz: int32(intOr(cfg["sampleRate"], defaultSampleRate)),
					ChannelCount:    int32(intOr(cfg["channels"], defaultChannels)),
				},
			},
		})
		muxStreams = append(muxStreams, "audio-stream0")
	}

	job := &transcoderpb.Job{
		InputUri:  sourceURI,
		OutputUri: outputURI,
		JobConfig: &transcoderpb.Job_Config{
			Config: &transcoderpb.JobConfig{
				ElementaryStreams: elementary,
				MuxStreams: []*transcoderpb.MuxStream{
					{Key: "output", Container: "mp4", ElementaryStreams: muxStreams},
				},
			},
		},
	}

	created, err := r.Client.CreateJob(ctx, &transcoderpb.CreateJobRequest{Parent: r.parent(), Job: job})
	if err != nil {
		return "", err
	}
	return created.Name, nil
}

func (r *Remote) Poll(ctx context.Context, remoteJobName string) (jobs.PollResult, error) {
	job, err := r.Client.GetJob(ctx, &transcoderpb.GetJobRequest{Name: remoteJobName})
	if err != nil {
		return jobs.PollResult{}, err
	}
	switch job.State {
	case transcoderpb.Job_SUCCEEDED:
		// job.OutputUri is the folder passed as Job.OutputUri in Create; the
		// coordinator must repoint the asset at the concrete muxed object,
		// never the folder alone.
		return jobs.PollResult{Done: true, Output: map[string]any{"outputUri": job.OutputUri + outputFileName}}, nil
	case transcoderpb.Job_FAILED:
		msg := "transcode job failed"
		if job.Error != nil {
			msg = job.Error.Message
		}
		return jobs.PollResult{Done: true, Err: fmt.Errorf("%s", msg)}, nil
	default:
		return jobs.PollResult{Done: false}, nil
	}
}

func intOr(v any, fallback int) int {
	if n, ok := v.(int); ok {
		return n
	}
	return fallback
}

func floatOr(v any, fallback float64) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return fallback
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
