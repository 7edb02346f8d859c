// Package producer publishes telemetry events to an external stream.
package producer

import (
	"context"

	"cuidame-health/backend/internal/telemetry/domain"
)

// Producer is a telemetry.EventEmitter that owns a connection and must be closed.
type Producer interface {
	Emit(ctx context.Context, event *domain.Event) error
	Close() error
}

var _ Producer = (*KafkaProducer)(nil)
