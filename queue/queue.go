// Package queue implements the Task Queue (spec.md §4.I) over Redis: a
// single `pipeline_tasks` LIST of JSON task bodies pushed with LPUSH and
// popped with BRPOP, plus a parallel `task_status:{taskId}` keyspace holding
// a JSON status record with a 24h TTL. Grounded on the teacher's own
// dependency on redis/go-redis and alicebob/miniredis (see go.mod) for a
// comparable broker role, generalized here from whatever the teacher used
// it for into the asset pipeline's task broker.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
	"github.com/youneslaaroussi/asset-pipeline/log"
)

const (
	tasksKey        = "pipeline_tasks"
	statusKeyPrefix = "task_status:"
	statusTTL       = 24 * time.Hour
)

type TaskType string

const (
	TaskPipeline TaskType = "pipeline"
	TaskStep     TaskType = "step"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Task is the JSON body pushed onto the pipeline_tasks list, per spec.md
// §4.I. StepID/Params are set only for TaskStep tasks.
type Task struct {
	ID        string         `json:"taskId"`
	Type      TaskType       `json:"type"`
	UserID    string         `json:"userId"`
	ProjectID string         `json:"projectId"`
	AssetID   string         `json:"assetId"`
	AssetData map[string]any `json:"assetData,omitempty"`
	AssetPath string         `json:"assetPath,omitempty"`
	StepID    string         `json:"stepId,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

// StatusRecord is the JSON body written under task_status:{taskId}.
type StatusRecord struct {
	Status    Status `json:"status"`
	UpdatedAt string `json:"updatedAt"`
	Error     string `json:"error,omitempty"`
}

// Queue wraps a *redis.Client with the five operations spec.md §4.I names.
// now is a seam for deterministic timestamps in tests.
type Queue struct {
	client *redis.Client
	now    func() time.Time
}

func New(client *redis.Client) *Queue {
	return &Queue{client: client, now: time.Now}
}

func (q *Queue) clock() time.Time {
	if q.now != nil {
		return q.now()
	}
	return time.Now()
}

// EnqueuePipeline pushes a pipeline task and writes its initial pending
// status record.
func (q *Queue) EnqueuePipeline(ctx context.Context, userID, projectID, assetID string, assetData map[string]any, assetPath string) (string, error) {
	task := Task{
		ID:        uuid.NewString(),
		Type:      TaskPipeline,
		UserID:    userID,
		ProjectID: projectID,
		AssetID:   assetID,
		AssetData: assetData,
		AssetPath: assetPath,
	}
	return task.ID, q.push(ctx, task)
}

// EnqueueStep pushes a step task and writes its initial pending status record.
func (q *Queue) EnqueueStep(ctx context.Context, userID, projectID, assetID string, assetData map[string]any, stepID string, params map[string]any) (string, error) {
	task := Task{
		ID:        uuid.NewString(),
		Type:      TaskStep,
		UserID:    userID,
		ProjectID: projectID,
		AssetID:   assetID,
		AssetData: assetData,
		StepID:    stepID,
		Params:    params,
	}
	return task.ID, q.push(ctx, task)
}

func (q *Queue) push(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return xerrors.NewValidation("marshal task", err)
	}
	if err := q.client.LPush(ctx, tasksKey, body).Err(); err != nil {
		return xerrors.NewBackend("enqueue task", err)
	}
	if err := q.UpdateStatus(ctx, task.ID, StatusPending, ""); err != nil {
		return err
	}
	log.LogNoRequestID("enqueued task", "taskId", task.ID, "type", task.Type, "assetId", task.AssetID)
	return nil
}

// Dequeue blocks up to timeoutSeconds for a task, returning nil, nil on
// timeout per spec.md §4.I ("blocking pop ... or null on timeout").
func (q *Queue) Dequeue(ctx context.Context, timeoutSeconds int) (*Task, error) {
	result, err := q.client.BRPop(ctx, time.Duration(timeoutSeconds)*time.Second, tasksKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.NewBackend("dequeue task", err)
	}
	// BRPop returns [key, value]; we only ever pop from one key.
	if len(result) != 2 {
		return nil, xerrors.NewBackend("dequeue task: unexpected reply shape", nil)
	}
	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, xerrors.NewValidation("unmarshal task", err)
	}
	return &task, nil
}

// UpdateStatus writes a status record with a 24h TTL.
func (q *Queue) UpdateStatus(ctx context.Context, taskID string, status Status, errMsg string) error {
	record := StatusRecord{
		Status:    status,
		UpdatedAt: q.clock().UTC().Format(time.RFC3339Nano),
		Error:     errMsg,
	}
	body, err := json.Marshal(record)
	if err != nil {
		return xerrors.NewValidation("marshal status", err)
	}
	if err := q.client.Set(ctx, statusKeyPrefix+taskID, body, statusTTL).Err(); err != nil {
		return xerrors.NewBackend("write task status", err)
	}
	return nil
}

// GetStatus returns nil, nil if the status record has expired or never existed.
func (q *Queue) GetStatus(ctx context.Context, taskID string) (*StatusRecord, error) {
	body, err := q.client.Get(ctx, statusKeyPrefix+taskID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.NewBackend("read task status", err)
	}
	var record StatusRecord
	if err := json.Unmarshal([]byte(body), &record); err != nil {
		return nil, xerrors.NewValidation("unmarshal status", err)
	}
	return &record, nil
}
