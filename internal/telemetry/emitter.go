// Package telemetry publishes the instrumentation events external
// dashboards consume: synchronization start/stop/exception, parse errors,
// and undo/redo executions.
package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event names.
const (
	EventSyncStart       = "sync.start"
	EventSyncStop        = "sync.stop"
	EventSyncException   = "sync.exception"
	EventParseError      = "parse.error"
	EventUndoRedoExecute = "undo_redo.execute"
)

// Event is one telemetry record.
type Event struct {
	Name           string    `json:"name"`
	Timestamp      time.Time `json:"timestamp"`
	SessionID      string    `json:"session_id,omitempty"`
	StrategyID     int       `json:"strategy_id,omitempty"`
	Direction      string    `json:"direction,omitempty"` // "to_text" or "to_state"
	Operation      string    `json:"operation,omitempty"` // "undo" or "redo"
	DurationMS     int64     `json:"duration_ms"`
	IndicatorCount int       `json:"indicator_count,omitempty"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	Line           int       `json:"line,omitempty"`
}

// Emitter publishes telemetry events. Emission is fire-and-forget: a sink
// failure never affects the editing operation that produced the event.
type Emitter interface {
	Emit(ctx context.Context, event Event)
	Close() error
}

// KafkaEmitter publishes events to a Kafka topic.
type KafkaEmitter struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaEmitter creates an emitter writing to the given brokers/topic.
func NewKafkaEmitter(brokers []string, topic, clientID string, logger *zap.Logger) *KafkaEmitter {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Transport: &kafka.Transport{
			ClientID: clientID,
		},
	}
	return &KafkaEmitter{writer: writer, logger: logger}
}

// Emit publishes one event, keyed by session so per-session ordering holds.
func (e *KafkaEmitter) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("Failed to marshal telemetry event",
			zap.String("event", event.Name),
			zap.Error(err))
		return
	}
	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: value,
		Time:  event.Timestamp,
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		e.logger.Warn("Failed to publish telemetry event",
			zap.String("event", event.Name),
			zap.Error(err))
	}
}

// Close closes the underlying writer.
func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}

// NopEmitter drops all events; used when no brokers are configured.
type NopEmitter struct{}

// Emit implements Emitter.
func (NopEmitter) Emit(context.Context, Event) {}

// Close implements Emitter.
func (NopEmitter) Close() error { return nil }
