// Package config loads the worker process's configuration the way the
// teacher project does: a flag.FlagSet populated with typed Var calls,
// parsed with peterbourgon/ff/v3 so every flag doubles as an
// ASSETPIPE_-prefixed environment variable, with no separate config-file
// format to maintain.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
)

var Version string

// Used so that tests can generate fixed timestamps instead of time.Now().
var Clock TimestampGenerator = RealTimestampGenerator{}

// Cli holds every environment-configurable value recognised by the worker
// process, per spec.md §6.
type Cli struct {
	// Blob store
	AssetBucket        string
	SignedURLTTLSeconds int

	// Worker pool
	WorkerConcurrency int

	// Task queue / broker
	RedisURL string

	// Transcode coordinator
	TranscodeTargetHeight int

	// Completion event publisher
	PipelineEventTopic string

	// Key rotator
	GeminiAPIKeys          string
	GeminiModelPriorityList []string

	// Transcription coordinator
	SpeechLanguageCodes []string
	SpeechModel         string
	SpeechLocation      string
	SpeechRecognizer    string

	// Detection step runners
	FaceDetectionMaxDuration time.Duration

	// GCP / service wiring, not named directly in spec.md §6 but required
	// to construct the concrete clients the spec's components bind to.
	GCPProjectID        string
	FirestoreDatabaseID string
	GoogleCredentialsFile string
	CloudConvertAPIKey  string
	CloudConvertSandbox bool

	// Ambient observability
	MetricsAddr string
}

const defaultSignedURLTTLSeconds = 3600
const defaultWorkerConcurrency = 4
const minWorkerConcurrency = 1
const maxWorkerConcurrency = 32

// Parse populates a Cli from args, environment variables prefixed
// ASSETPIPE_, and flag defaults, in that order of precedence (flags beat
// env beat defaults, matching ff's normal resolution order).
func Parse(args []string) (Cli, error) {
	fs := flag.NewFlagSet("asset-pipeline-worker", flag.ContinueOnError)
	cli := Cli{}

	var geminiModels, speechLangs string

	fs.StringVar(&cli.AssetBucket, "asset-bucket", "", "Default blob store bucket for asset uploads")
	fs.IntVar(&cli.SignedURLTTLSeconds, "signed-url-ttl-seconds", defaultSignedURLTTLSeconds, "Read URL lifetime in seconds")
	fs.IntVar(&cli.WorkerConcurrency, "worker-concurrency", defaultWorkerConcurrency, "Parallel task slots per worker process (1-32)")
	fs.StringVar(&cli.RedisURL, "redis-url", "redis://127.0.0.1:6379/0", "Redis URL backing the task queue and status records")
	fs.IntVar(&cli.TranscodeTargetHeight, "transcode-target-height", 0, "Transcode output height; 0 derives from source")
	fs.StringVar(&cli.PipelineEventTopic, "pipeline-event-topic", "pipeline-events", "Pub/sub topic name for completion events")
	fs.StringVar(&cli.GeminiAPIKeys, "gemini-api-keys", "", "Comma-separated Gemini API keys for the key rotator")
	fs.StringVar(&geminiModels, "gemini-model-priority", "gemini-1.5-pro,gemini-1.5-flash", "Comma-separated Gemini model priority list for Gemini Analysis")
	fs.StringVar(&speechLangs, "speech-language-codes", "en-US", "Comma-separated language codes for transcription")
	fs.StringVar(&cli.SpeechModel, "speech-model", "long", "Speech-to-text model name")
	fs.StringVar(&cli.SpeechLocation, "speech-location", "global", "Speech-to-text API location")
	fs.StringVar(&cli.SpeechRecognizer, "speech-recognizer", "_", "Speech-to-text recognizer id")
	fs.DurationVar(&cli.FaceDetectionMaxDuration, "face-detection-max-duration", 10*time.Minute, "Skip face detection on clips longer than this")
	fs.StringVar(&cli.GCPProjectID, "gcp-project-id", "", "GCP project id for Firestore/GCS/AI clients")
	fs.StringVar(&cli.FirestoreDatabaseID, "firestore-database-id", "(default)", "Firestore database id")
	fs.StringVar(&cli.GoogleCredentialsFile, "google-credentials-file", "", "Path to a GCP service-account key file; empty uses application-default credentials")
	fs.StringVar(&cli.CloudConvertAPIKey, "cloudconvert-api-key", "", "CloudConvert API bearer token")
	fs.BoolVar(&cli.CloudConvertSandbox, "cloudconvert-sandbox", false, "Use the CloudConvert sandbox API base")
	fs.StringVar(&cli.MetricsAddr, "metrics-addr", "127.0.0.1:9090", "Address to bind the Prometheus /metrics endpoint")

	verbosity := fs.String("v", "3", "Log verbosity (glog -v level)")

	err := ff.Parse(fs, args, ff.WithEnvVarPrefix("ASSETPIPE"))
	if err != nil {
		return Cli{}, fmt.Errorf("error parsing config: %w", err)
	}

	if vFlag := flag.Lookup("v"); vFlag != nil {
		if err := vFlag.Value.Set(*verbosity); err != nil {
			return Cli{}, fmt.Errorf("error setting log verbosity: %w", err)
		}
	}

	cli.GeminiModelPriorityList = splitNonEmpty(geminiModels)
	cli.SpeechLanguageCodes = splitNonEmpty(speechLangs)

	if cli.WorkerConcurrency < minWorkerConcurrency {
		cli.WorkerConcurrency = minWorkerConcurrency
	} else if cli.WorkerConcurrency > maxWorkerConcurrency {
		cli.WorkerConcurrency = maxWorkerConcurrency
	}

	return cli, nil
}

// ParseEnv is a convenience wrapper used by cmd/worker: parse os.Args[1:]
// against the real environment.
func ParseEnv() (Cli, error) {
	return Parse(os.Args[1:])
}

func splitNonEmpty(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
