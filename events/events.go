// Package events implements the Completion Event Publisher (spec.md §4.K)
// over Google Cloud Pub/Sub, grounded on original_source's pubsub.py: one
// JSON message per terminal pipeline run. The teacher's own events package
// signed EIP-712 typed data for an entirely different (stream-lifecycle,
// blockchain-verified) domain; nothing here carries anything forward from
// it, since this domain has no signature-verified event consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/youneslaaroussi/asset-pipeline/log"
)

type EventType string

const (
	TypeCompleted EventType = "pipeline.completed"
	TypeFailed    EventType = "pipeline.failed"
)

// StepSummary is one entry of the stepsSummary list, per spec.md §4.K.
type StepSummary struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Event is the JSON message body published to the pipeline event topic.
type Event struct {
	Type         EventType      `json:"type"`
	UserID       string         `json:"userId"`
	ProjectID    string         `json:"projectId"`
	AssetID      string         `json:"assetId"`
	AssetName    string         `json:"assetName"`
	StepsSummary []StepSummary  `json:"stepsSummary"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    string         `json:"timestamp"`
}

// Publisher wraps a *pubsub.Topic. Publish failures are logged and
// swallowed, never propagated to the caller, per spec.md §4.K: "failures in
// the publisher MUST NOT fail the pipeline."
type Publisher struct {
	topic *pubsub.Topic
	now   func() string
}

func NewPublisher(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// PublishCompleted publishes a pipeline.completed event.
func (p *Publisher) PublishCompleted(ctx context.Context, userID, projectID, assetID, assetName string, steps []StepSummary, metadata map[string]any) {
	p.publish(ctx, Event{
		Type:         TypeCompleted,
		UserID:       userID,
		ProjectID:    projectID,
		AssetID:      assetID,
		AssetName:    assetName,
		StepsSummary: steps,
		Metadata:     metadata,
		Timestamp:    p.timestamp(),
	})
}

// PublishFailed publishes a pipeline.failed event.
func (p *Publisher) PublishFailed(ctx context.Context, userID, projectID, assetID, assetName string, steps []StepSummary, metadata map[string]any) {
	p.publish(ctx, Event{
		Type:         TypeFailed,
		UserID:       userID,
		ProjectID:    projectID,
		AssetID:      assetID,
		AssetName:    assetName,
		StepsSummary: steps,
		Metadata:     metadata,
		Timestamp:    p.timestamp(),
	})
}

func (p *Publisher) timestamp() string {
	if p.now != nil {
		return p.now()
	}
	return defaultNowISO8601()
}

func (p *Publisher) publish(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		log.LogNoRequestID("completion event marshal failed", "assetId", event.AssetID, "error", err.Error())
		return
	}

	result := p.topic.Publish(ctx, &pubsub.Message{Data: body})
	if _, err := result.Get(ctx); err != nil {
		log.LogNoRequestID("completion event publish failed", "assetId", event.AssetID, "type", event.Type, "error", err.Error())
	}
}

// defaultNowISO8601 matches pipeline.NowISO8601's format without importing
// the pipeline package, which events has no other reason to depend on.
func defaultNowISO8601() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
