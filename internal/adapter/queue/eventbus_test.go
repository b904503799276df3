package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
	"github.com/seu-repo/csms-ocpp16/internal/mocks"
)

func TestEventBusRepository_PublishesAfterAppend(t *testing.T) {
	next := &mocks.MockDeviceEventRepository{}
	mq := mocks.NewMockMessageQueue()
	repo := NewEventBusRepository(next, mq, zap.NewNop())

	event := &domain.DeviceEvent{ChargePointID: "cp-1", EventType: domain.DeviceEventBoot}
	if err := repo.Append(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	published := mq.Published[deviceEventSubject]
	if len(published) != 1 {
		t.Fatalf("expected one publish, got %d", len(published))
	}

	var decoded domain.DeviceEvent
	if err := json.Unmarshal(published[0], &decoded); err != nil {
		t.Fatalf("decode published payload: %v", err)
	}
	if decoded.ChargePointID != "cp-1" {
		t.Fatalf("expected charge_point_id cp-1, got %s", decoded.ChargePointID)
	}
}

func TestEventBusRepository_SkipsPublishOnAppendFailure(t *testing.T) {
	next := &mocks.MockDeviceEventRepository{
		AppendFunc: func(ctx context.Context, event *domain.DeviceEvent) error { return errors.New("db down") },
	}
	mq := mocks.NewMockMessageQueue()
	repo := NewEventBusRepository(next, mq, zap.NewNop())

	err := repo.Append(context.Background(), &domain.DeviceEvent{ChargePointID: "cp-1"})
	if err == nil {
		t.Fatal("expected the postgres error to propagate")
	}
	if len(mq.Published[deviceEventSubject]) != 0 {
		t.Fatal("expected no publish when the underlying append fails")
	}
}
