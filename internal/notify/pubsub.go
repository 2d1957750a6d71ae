// Package notify publishes run summaries to Google Cloud Pub/Sub so
// downstream consumers learn about fresh artifacts without polling.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/templatelab/harvester/internal/progress"
)

// Publisher wraps a Pub/Sub topic.
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPublisher creates a Publisher for the project and topic.
func NewPublisher(ctx context.Context, projectID, topicName string) (*Publisher, error) {
	if projectID == "" || topicName == "" {
		return nil, fmt.Errorf("project id and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return &Publisher{client: client, topic: client.Topic(topicName)}, nil
}

// RunSummary marshals the final progress event and publishes it,
// returning the server-assigned message id.
func (p *Publisher) RunSummary(ctx context.Context, evt progress.Event) (string, error) {
	if p == nil || p.topic == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	if err := evt.Validate(); err != nil {
		return "", fmt.Errorf("invalid run summary: %w", err)
	}
	data, err := json.Marshal(summaryPayload(evt))
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"platform": evt.Platform,
			"stage":    string(evt.Stage),
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish summary: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and releases the client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.topic != nil {
		p.topic.Stop()
	}
	if p.client != nil {
		_ = p.client.Close()
	}
}

func summaryPayload(evt progress.Event) map[string]any {
	return map[string]any{
		"run_id":       evt.RunID,
		"platform":     evt.Platform,
		"stage":        evt.Stage,
		"ts":           evt.TS,
		"processed":    evt.Processed,
		"total":        evt.Total,
		"succeeded":    evt.Succeeded,
		"failed":       evt.Failed,
		"skipped":      evt.Skipped,
		"elapsed_ms":   evt.Elapsed.Milliseconds(),
		"artifact":     evt.Artifact,
		"cancelled":    evt.Cancelled,
		"success_rate": evt.SuccessRate(),
	}
}
