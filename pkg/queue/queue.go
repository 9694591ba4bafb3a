package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Queue is implemented by the Redis and in-process queues.
type Queue interface {
	RegisterJob(job Job)
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
	Start() error
	Stop(ctx context.Context) error
}

// QueueConfig contains the configuration for the queue
type QueueConfig struct {
	Workers     int           // number of workers
	QueueSize   int           // buffer of the in-process queue
	RetryLimit  int           // number of maximum retries
	RetryDelay  time.Duration // time delay between retries
	PollTimeout time.Duration // BRPOP timeout of the Redis workers
}

// Message represents a message in the queue
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage encodes payload into a fresh message.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}
	return Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ParsePayload decodes a job payload into T.
func ParsePayload[T any](payload json.RawMessage) (*T, error) {
	var result T
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &result, nil
}

func (c *QueueConfig) withDefaults() *QueueConfig {
	out := QueueConfig{}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.QueueSize <= 0 {
		out.QueueSize = 64
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = 10 * time.Second
	}
	if out.PollTimeout <= 0 {
		out.PollTimeout = time.Second
	}
	return &out
}
