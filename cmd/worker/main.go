// Command worker is the asset pipeline's process entrypoint, grounded on
// the teacher's main.go: a flag.FlagSet parsed via peterbourgon/ff/v3,
// glog for process-lifecycle logging, golang.org/x/sync/errgroup to run
// the worker pool and the metrics server side by side, and graceful
// shutdown on SIGINT/SIGTERM. Unlike the teacher, which serves HTTP, this
// process has no inbound API surface of its own: it pulls work from the
// task queue and pushes completion events to Pub/Sub.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	speech "cloud.google.com/go/speech/apiv2"
	"cloud.google.com/go/storage"
	transcoder "cloud.google.com/go/video/transcoder/apiv1"
	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
	"golang.org/x/sync/errgroup"

	"github.com/youneslaaroussi/asset-pipeline/blob"
	"github.com/youneslaaroussi/asset-pipeline/config"
	"github.com/youneslaaroussi/asset-pipeline/docstore"
	"github.com/youneslaaroussi/asset-pipeline/events"
	"github.com/youneslaaroussi/asset-pipeline/jobs"
	jobimageconvert "github.com/youneslaaroussi/asset-pipeline/jobs/imageconvert"
	jobtranscode "github.com/youneslaaroussi/asset-pipeline/jobs/transcode"
	jobtranscription "github.com/youneslaaroussi/asset-pipeline/jobs/transcription"
	"github.com/youneslaaroussi/asset-pipeline/keyrotator"
	"github.com/youneslaaroussi/asset-pipeline/llm"
	"github.com/youneslaaroussi/asset-pipeline/metadataprobe"
	"github.com/youneslaaroussi/asset-pipeline/pipeline"
	"github.com/youneslaaroussi/asset-pipeline/pipeline/steps"
	"github.com/youneslaaroussi/asset-pipeline/queue"
	"github.com/youneslaaroussi/asset-pipeline/videointel"
	"github.com/youneslaaroussi/asset-pipeline/worker"
)

const (
	transcodePollInterval     = 10 * time.Second
	transcodeMaxWait          = 2 * time.Hour
	imageConvertPollInterval  = 5 * time.Second
	imageConvertMaxWait       = 30 * time.Minute
	transcriptionPollInterval = 5 * time.Second
	transcriptionMaxWait      = 2 * time.Hour
)

func main() {
	cli, err := config.ParseEnv()
	if err != nil {
		glog.Fatalf("error parsing config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)

	clientOpts := gcpClientOptions(cli)

	storageClient, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		glog.Fatalf("error creating GCS client: %v", err)
	}
	blobStore := blob.NewGCSStore(storageClient, cli.AssetBucket)

	firestoreClient, err := firestore.NewClientWithDatabase(ctx, cli.GCPProjectID, cli.FirestoreDatabaseID, clientOpts...)
	if err != nil {
		glog.Fatalf("error creating Firestore client: %v", err)
	}
	docs := docstore.NewFirestoreStore(firestoreClient)

	redisOpts, err := redis.ParseURL(cli.RedisURL)
	if err != nil {
		glog.Fatalf("error parsing redis url: %v", err)
	}
	taskQueue := queue.New(redis.NewClient(redisOpts))

	pubsubClient, err := pubsub.NewClient(ctx, cli.GCPProjectID, clientOpts...)
	if err != nil {
		glog.Fatalf("error creating Pub/Sub client: %v", err)
	}
	publisher := events.NewPublisher(pubsubClient.Topic(cli.PipelineEventTopic))

	transcoderClient, err := transcoder.NewClient(ctx, clientOpts...)
	if err != nil {
		glog.Fatalf("error creating Transcoder client: %v", err)
	}
	transcodeRemote := jobtranscode.NewRemote(transcoderClient, cli.GCPProjectID, "us-central1", cli.AssetBucket)
	transcodeCoordinator := jobs.New(docstore.KindTranscode, docs, transcodeRemote, transcodePollInterval, transcodeMaxWait)

	imageConvertRemote := jobimageconvert.NewRemote(cli.CloudConvertAPIKey, cli.CloudConvertSandbox, "png")
	imageConvertCoordinator := jobs.New(docstore.KindImageConvert, docs, imageConvertRemote, imageConvertPollInterval, imageConvertMaxWait)

	transcriptionRemote, err := jobtranscription.NewRemote(ctx, cli.GCPProjectID, cli.SpeechLocation, cli.SpeechRecognizer, cli.SpeechModel, cli.SpeechLanguageCodes, clientOpts...)
	if err != nil {
		glog.Fatalf("error creating Speech-to-Text client: %v", err)
	}
	transcriptionCoordinator := jobs.New(docstore.KindTranscription, docs, transcriptionRemote, transcriptionPollInterval, transcriptionMaxWait)
	transcriptionCoordinator.ResumeMode = true

	viClient, err := videointelligence.NewClient(ctx, clientOpts...)
	if err != nil {
		glog.Fatalf("error creating Video Intelligence client: %v", err)
	}

	deps := &steps.Deps{
		Blob:                     blobStore,
		Docs:                     docs,
		Prober:                   metadataprobe.FFProbe{},
		VideoIntel:               videointel.New(viClient),
		Gemini:                   llm.New(),
		Rotator:                  keyrotator.New(cli.GeminiAPIKeys),
		GeminiModels:             cli.GeminiModelPriorityList,
		TranscodeCoordinator:     transcodeCoordinator,
		ImageConvertCoordinator:  imageConvertCoordinator,
		TranscriptionCoordinator: transcriptionCoordinator,
		Bucket:                   cli.AssetBucket,
		TargetHeight:             cli.TranscodeTargetHeight,
		SpeechLanguageCodes:      cli.SpeechLanguageCodes,
		SpeechModel:              cli.SpeechModel,
		FaceDetectionMaxDuration: cli.FaceDetectionMaxDuration,
	}

	registry := pipeline.NewRegistry()
	steps.RegisterAll(registry, deps)
	store := pipeline.NewStateStore(docs, registry)
	engine := pipeline.NewEngine(registry, store)

	pool := worker.New(taskQueue, engine, docs, blobStore, publisher, cli.WorkerConcurrency)

	group.Go(func() error {
		pool.Run(ctx)
		return nil
	})

	group.Go(func() error {
		return serveMetrics(ctx, cli.MetricsAddr)
	})

	group.Go(func() error {
		return handleSignals(ctx)
	})

	glog.Infof("asset-pipeline worker started: concurrency=%d bucket=%s", cli.WorkerConcurrency, cli.AssetBucket)
	if err := group.Wait(); err != nil && err != context.Canceled {
		glog.Infof("shutdown complete, reason: %v", err)
	}
}

// gcpClientOptions returns the shared client options every GCP client is
// built with: application-default credentials unless a service account key
// file was configured.
func gcpClientOptions(cli config.Cli) []option.ClientOption {
	if cli.GoogleCredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cli.GoogleCredentialsFile)}
}

// serveMetrics runs the Prometheus /metrics HTTP endpoint until ctx is
// cancelled, per the teacher's pattern of running a small internal HTTP
// server alongside the main process loop.
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func handleSignals(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGINT)
	select {
	case s := <-c:
		glog.Infof("caught signal=%v, shutting down", s)
		return context.Canceled
	case <-ctx.Done():
		return nil
	}
}
