// Package worker implements the Worker Pool (spec.md §4.J): N concurrent
// slots dequeuing tasks from the queue package and driving them through the
// pipeline engine, grounded on the teacher's node package's
// concurrency-bounded dispatch loop, generalized here from "which Mist node
// handles this stream" to "run this pipeline/step task". golang.org/x/sync's
// semaphore bounds concurrency the way the teacher's balancer bounds
// concurrent stream placements.
package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/youneslaaroussi/asset-pipeline/blob"
	"github.com/youneslaaroussi/asset-pipeline/cache"
	"github.com/youneslaaroussi/asset-pipeline/docstore"
	"github.com/youneslaaroussi/asset-pipeline/events"
	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
	"github.com/youneslaaroussi/asset-pipeline/log"
	"github.com/youneslaaroussi/asset-pipeline/metrics"
	"github.com/youneslaaroussi/asset-pipeline/pipeline"
	"github.com/youneslaaroussi/asset-pipeline/queue"
)

// Pool runs Concurrency concurrent dequeue-and-process slots, per spec.md
// §4.J. now/dequeueTimeoutSeconds are test seams.
type Pool struct {
	Queue       *queue.Queue
	Engine      *pipeline.Engine
	Docs        docstore.Store
	Blob        blob.Store
	Publisher   *events.Publisher
	Concurrency int

	DequeueTimeoutSeconds int

	shuttingDown atomic.Bool
	inFlight     *cache.Cache[time.Time]
	now          func() time.Time
}

func New(q *queue.Queue, engine *pipeline.Engine, docs docstore.Store, blobStore blob.Store, publisher *events.Publisher, concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}
	return &Pool{
		Queue:                 q,
		Engine:                engine,
		Docs:                  docs,
		Blob:                  blobStore,
		Publisher:             publisher,
		Concurrency:           concurrency,
		DequeueTimeoutSeconds: 2,
		inFlight:              cache.New[time.Time](),
		now:                   time.Now,
	}
}

// Shutdown sets the cooperative shutdown flag; the dequeue loops check it
// each iteration and exit promptly, per spec.md §4.J step 6.
func (p *Pool) Shutdown() {
	p.shuttingDown.Store(true)
}

// Run starts Concurrency dequeue loops and blocks until ctx is cancelled and
// every loop has exited.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(int64(p.Concurrency))

	for i := 0; i < p.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.loop(ctx, sem)
		}()
	}

	<-ctx.Done()
	p.Shutdown()
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, sem *semaphore.Weighted) {
	for {
		if p.shuttingDown.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := p.Queue.Dequeue(ctx, p.DequeueTimeoutSeconds)
		if err != nil {
			log.LogNoRequestID("dequeue failed", "error", err.Error())
			continue
		}
		if task == nil {
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		metrics.Metrics.TasksInFlight.Inc()
		metrics.Metrics.TasksDequeued.WithLabelValues(string(task.Type)).Inc()

		p.process(ctx, task)

		metrics.Metrics.TasksInFlight.Dec()
		sem.Release(1)
	}
}

func (p *Pool) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// process implements spec.md §4.J steps 2-5 for one dequeued task.
func (p *Pool) process(ctx context.Context, task *queue.Task) {
	start := p.clock()
	p.inFlight.Store(task.ID, start)
	defer p.inFlight.Remove("", task.ID)

	if err := p.Queue.UpdateStatus(ctx, task.ID, queue.StatusRunning, ""); err != nil {
		log.LogNoRequestID("status update failed", "taskId", task.ID, "error", err.Error())
	}

	var processErr error
	switch task.Type {
	case queue.TaskPipeline:
		processErr = p.runPipeline(ctx, task)
	case queue.TaskStep:
		processErr = p.runStep(ctx, task)
	default:
		processErr = xerrors.NewValidation("unknown task type "+string(task.Type), nil)
	}

	if ctx.Err() != nil {
		// Cancelled due to shutdown: per spec.md §4.J step 5, do NOT
		// overwrite the status record.
		return
	}

	status := "succeeded"
	if processErr != nil {
		status = "failed"
		metrics.Metrics.TaskFailureCount.WithLabelValues(string(task.Type)).Inc()
		if err := p.Queue.UpdateStatus(ctx, task.ID, queue.StatusFailed, processErr.Error()); err != nil {
			log.LogNoRequestID("status update failed", "taskId", task.ID, "error", err.Error())
		}
	} else {
		if err := p.Queue.UpdateStatus(ctx, task.ID, queue.StatusCompleted, ""); err != nil {
			log.LogNoRequestID("status update failed", "taskId", task.ID, "error", err.Error())
		}
	}
	metrics.Metrics.TaskDurationSec.WithLabelValues(string(task.Type), status).Observe(p.clock().Sub(start).Seconds())
}

func (p *Pool) runPipeline(ctx context.Context, task *queue.Task) error {
	asset, err := p.loadAsset(ctx, task)
	if err != nil {
		return err
	}

	localPath := task.AssetPath
	if localPath == "" || !fileExists(localPath) {
		downloaded, cleanup, err := p.downloadToTemp(ctx, asset)
		if err != nil {
			return err
		}
		defer cleanup()
		localPath = downloaded
	}

	state, err := p.Engine.RunAutoSteps(ctx, task.UserID, task.ProjectID, asset, localPath)
	if err != nil {
		return err
	}

	p.publishCompletion(ctx, task.UserID, task.ProjectID, asset, state)
	return nil
}

func (p *Pool) runStep(ctx context.Context, task *queue.Task) error {
	asset, err := p.loadAsset(ctx, task)
	if err != nil {
		return err
	}

	// Per spec.md §4.J step 4, a step task always downloads a fresh temp
	// file, even if assetPath was set.
	localPath, cleanup, err := p.downloadToTemp(ctx, asset)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = p.Engine.RunStep(ctx, task.UserID, task.ProjectID, asset, localPath, task.StepID, task.Params)
	return err
}

func (p *Pool) loadAsset(ctx context.Context, task *queue.Task) (pipeline.Asset, error) {
	var asset pipeline.Asset
	path := docstore.AssetPath(task.UserID, task.ProjectID, task.AssetID)
	err := p.Docs.Get(ctx, path, &asset)
	if xerrors.IsNotFound(err) && task.AssetData != nil {
		asset = assetFromData(task.UserID, task.ProjectID, task.AssetID, task.AssetData)
		if saveErr := p.Docs.Save(ctx, path, asset); saveErr != nil {
			return pipeline.Asset{}, saveErr
		}
		return asset, nil
	}
	if err != nil {
		return pipeline.Asset{}, err
	}
	return asset, nil
}

func assetFromData(userID, projectID, assetID string, data map[string]any) pipeline.Asset {
	asset := pipeline.Asset{
		ID:        assetID,
		UserID:    userID,
		ProjectID: projectID,
	}
	if v, ok := data["fileName"].(string); ok {
		asset.FileName = v
	}
	if v, ok := data["name"].(string); ok {
		asset.Name = v
	}
	if v, ok := data["mimeType"].(string); ok {
		asset.MimeType = v
	}
	if v, ok := data["size"].(float64); ok {
		asset.Size = int64(v)
	}
	if v, ok := data["gcsUri"].(string); ok {
		asset.GCSUri = v
	}
	return asset
}

func (p *Pool) downloadToTemp(ctx context.Context, asset pipeline.Asset) (path string, cleanup func(), err error) {
	if asset.GCSUri == "" {
		return "", func() {}, xerrors.NewValidation("asset has no gcsUri to download", nil)
	}
	data, err := p.Blob.Download(ctx, asset.GCSUri)
	if err != nil {
		return "", func() {}, err
	}

	ext := filepath.Ext(asset.FileName)
	f, err := os.CreateTemp("", "asset-*"+ext)
	if err != nil {
		return "", func() {}, xerrors.NewBackend("create temp file", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", func() {}, xerrors.NewBackend("write temp file", err)
	}
	f.Close()

	name := f.Name()
	return name, func() { os.Remove(name) }, nil
}

func (p *Pool) publishCompletion(ctx context.Context, userID, projectID string, asset pipeline.Asset, state pipeline.State) {
	if p.Publisher == nil {
		return
	}

	summary := make([]events.StepSummary, 0, len(state.Steps))
	failed := false
	for _, st := range state.Steps {
		summary = append(summary, events.StepSummary{
			ID: st.ID, Label: st.Label, Status: string(st.Status), Error: st.Error,
		})
		if st.Status == pipeline.StepFailed {
			failed = true
		}
	}

	if failed {
		p.Publisher.PublishFailed(ctx, userID, projectID, asset.ID, asset.FileName, summary, nil)
	} else {
		p.Publisher.PublishCompleted(ctx, userID, projectID, asset.ID, asset.FileName, summary, nil)
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// InFlightCount reports how many tasks this pool is currently processing.
func (p *Pool) InFlightCount() int {
	return p.inFlight.Len()
}
