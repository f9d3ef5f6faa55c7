package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/youneslaaroussi/asset-pipeline/docstore"
	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
	"github.com/youneslaaroussi/asset-pipeline/log"
	"github.com/youneslaaroussi/asset-pipeline/metrics"
)

// Outcome mirrors pipeline.StepStatus's three terminal-or-waiting values.
// jobs does not import pipeline (pipeline/steps imports jobs, so the
// reverse would cycle); adapters cast this string type directly.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeWaiting   Outcome = "waiting"
)

// Decision is what Run returns to the calling step adapter.
type Decision struct {
	Outcome Outcome
	Output  map[string]any
	Error   string
}

// PollResult is one poll-loop iteration's observation of the remote job.
type PollResult struct {
	Done   bool
	Output map[string]any
	Err    error // non-nil only when Done and the remote reports terminal failure
}

// Remote is the kind-specific transport (Cloud Transcoder, CloudConvert,
// Speech-to-Text) each coordinator instance is constructed with. Create
// receives the asset identity and config hash alongside cfg so a Remote
// can be a stateless singleton shared across every asset the coordinator
// ever sees, rather than rebuilt per call.
type Remote interface {
	Create(ctx context.Context, userID, projectID, assetID, configHash, sourceURI string, cfg map[string]any) (remoteJobName string, err error)
	Poll(ctx context.Context, remoteJobName string) (PollResult, error)
}

// Coordinator implements the common contract of spec.md §4.H for one
// remote-service kind.
type Coordinator struct {
	Kind         string // one of docstore.Kind*
	Docs         docstore.Store
	Remote       Remote
	PollInterval time.Duration
	MaxWait      time.Duration
	// ResumeMode, when true, makes poll observe the remote job exactly once
	// per call and return OutcomeWaiting if it is not yet done, instead of
	// blocking in a sleep loop — the "store the operation name, resume on
	// re-entry" mode spec.md §4.H reserves for transcription.
	ResumeMode bool
	now        func() time.Time
}

func New(kind string, docs docstore.Store, remote Remote, pollInterval, maxWait time.Duration) *Coordinator {
	return &Coordinator{Kind: kind, Docs: docs, Remote: remote, PollInterval: pollInterval, MaxWait: maxWait, now: time.Now}
}

// recordID is deterministic per (asset, config hash): this is what makes
// "look up the latest prior job for this (user, project, asset) matching
// config.hash" a point lookup instead of a collection scan, and is exactly
// the mechanism Testable Property 3 (two calls, one job) depends on.
func recordID(assetID, configHash string) string {
	return assetID + "-" + configHash
}

// Run implements the create-or-reuse decision table and poll loop of
// spec.md §4.H steps 2-4. repointer, when non-nil, is invoked once after a
// job transitions to completed (freshly or on first observed reuse) so the
// kind-specific asset repoint (step 5) only runs once per job.
func (c *Coordinator) Run(ctx context.Context, userID, projectID, assetID string, cfg map[string]any, sourceURI string, repointer func(Record) error) (Decision, error) {
	configHash := ConfigHash(cfg)
	id := recordID(assetID, configHash)
	path := docstore.JobPath(c.Kind, userID, projectID, id)

	var rec Record
	err := c.Docs.Get(ctx, path, &rec)
	switch {
	case xerrors.IsNotFound(err):
		rec = Record{
			ID: id, UserID: userID, ProjectID: projectID, AssetID: assetID,
			ConfigHash: configHash, Config: cfg, Status: StatusProcessing,
			CreatedAt: nowISO(c.clock()), UpdatedAt: nowISO(c.clock()),
		}
		remoteJobName, createErr := c.Remote.Create(ctx, userID, projectID, assetID, configHash, sourceURI, cfg)
		if createErr != nil {
			rec.Status = StatusError
			rec.Error = createErr.Error()
			c.save(ctx, path, rec)
			return Decision{Outcome: OutcomeFailed, Error: createErr.Error()}, nil
		}
		rec.RemoteJobName = remoteJobName
		metrics.Metrics.RemoteJobsCreated.WithLabelValues(c.Kind).Inc()
		if err := c.save(ctx, path, rec); err != nil {
			return Decision{}, err
		}
		return c.poll(ctx, path, rec, repointer)

	case err != nil:
		return Decision{}, err
	}

	switch rec.Status {
	case StatusCompleted:
		metrics.Metrics.RemoteJobsReused.WithLabelValues(c.Kind).Inc()
		if repointer != nil && !rec.Repointed {
			if err := repointer(rec); err != nil {
				return Decision{}, err
			}
			rec.Repointed = true
			c.save(ctx, path, rec)
		}
		return Decision{Outcome: OutcomeSucceeded, Output: rec.Output}, nil

	case StatusError:
		return Decision{Outcome: OutcomeFailed, Error: rec.Error}, nil

	default: // processing
		return c.poll(ctx, path, rec, repointer)
	}
}

// poll implements spec.md §4.H step 4: resume against the remote job name,
// bounded by MaxWait, marking the record error on timeout.
func (c *Coordinator) poll(ctx context.Context, path string, rec Record, repointer func(Record) error) (Decision, error) {
	deadline := c.clock().Add(c.MaxWait)
	for {
		result, err := c.Remote.Poll(ctx, rec.RemoteJobName)
		if err != nil {
			rec.Status = StatusError
			rec.Error = err.Error()
			rec.UpdatedAt = nowISO(c.clock())
			c.save(ctx, path, rec)
			return Decision{Outcome: OutcomeFailed, Error: err.Error()}, nil
		}
		if result.Done {
			if result.Err != nil {
				rec.Status = StatusError
				rec.Error = result.Err.Error()
				rec.UpdatedAt = nowISO(c.clock())
				c.save(ctx, path, rec)
				return Decision{Outcome: OutcomeFailed, Error: result.Err.Error()}, nil
			}
			rec.Status = StatusCompleted
			rec.Output = result.Output
			rec.UpdatedAt = nowISO(c.clock())
			if repointer != nil {
				if err := repointer(rec); err != nil {
					return Decision{}, err
				}
				rec.Repointed = true
			}
			c.save(ctx, path, rec)
			return Decision{Outcome: OutcomeSucceeded, Output: rec.Output}, nil
		}

		if c.ResumeMode {
			rec.UpdatedAt = nowISO(c.clock())
			c.save(ctx, path, rec)
			return Decision{Outcome: OutcomeWaiting}, nil
		}

		if c.clock().After(deadline) {
			rec.Status = StatusError
			rec.Error = fmt.Sprintf("%s job exceeded max wait of %s", c.Kind, c.MaxWait)
			rec.UpdatedAt = nowISO(c.clock())
			c.save(ctx, path, rec)
			metrics.Metrics.RemoteJobTimeouts.WithLabelValues(c.Kind).Inc()
			return Decision{Outcome: OutcomeFailed, Error: rec.Error}, nil
		}

		select {
		case <-ctx.Done():
			return Decision{Outcome: OutcomeWaiting}, nil
		case <-time.After(c.PollInterval):
		}
	}
}

func (c *Coordinator) save(ctx context.Context, path string, rec Record) error {
	if err := c.Docs.Save(ctx, path, rec); err != nil {
		log.LogNoRequestID("job record save failed", "kind", c.Kind, "path", path, "error", err.Error())
		return err
	}
	return nil
}

func (c *Coordinator) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func nowISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
