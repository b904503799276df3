package queue

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
	"github.com/seu-repo/csms-ocpp16/internal/ports"
)

// deviceEventSubject is the single fan-out subject every DeviceEvent is
// published on; consumers distinguish event kinds by the EventType field
// in the payload rather than by subject, since the set of event types is
// still small and evolving.
const deviceEventSubject = "csms.device_events"

// EventBusRepository decorates a ports.DeviceEventRepository so every
// Append also publishes the event onto a MessageQueue (NATS or RabbitMQ,
// whichever is configured), fulfilling the DOMAIN STACK's "DeviceEvent
// fan-out bus" role without the dispatcher itself knowing a bus exists.
type EventBusRepository struct {
	next  ports.DeviceEventRepository
	queue MessageQueue
	log   *zap.Logger
}

func NewEventBusRepository(next ports.DeviceEventRepository, queue MessageQueue, log *zap.Logger) *EventBusRepository {
	return &EventBusRepository{next: next, queue: queue, log: log}
}

func (r *EventBusRepository) Append(ctx context.Context, event *domain.DeviceEvent) error {
	if err := r.next.Append(ctx, event); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		r.log.Warn("device event: marshal for publish failed", zap.Error(err))
		return nil
	}
	if err := r.queue.Publish(deviceEventSubject, payload); err != nil {
		r.log.Warn("device event: publish failed", zap.String("charge_point_id", event.ChargePointID), zap.Error(err))
	}
	return nil
}
