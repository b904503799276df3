package postgres

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
	"github.com/seu-repo/csms-ocpp16/internal/mocks"
)

func TestCachedEVSEStatusRepository_GetFillsCacheOnMiss(t *testing.T) {
	calls := 0
	next := mocks.NewMockEVSEStatusRepository()
	next.GetFunc = func(ctx context.Context, chargePointID string, evseID int) (*domain.EVSEStatus, error) {
		calls++
		return &domain.EVSEStatus{ChargePointID: chargePointID, EVSEID: evseID, Status: domain.EVSEStatusAvailable}, nil
	}
	cache := mocks.NewMockCache()
	repo := NewCachedEVSEStatusRepository(next, cache, time.Minute, zap.NewNop())

	status, err := repo.Get(context.Background(), "cp-1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != domain.EVSEStatusAvailable {
		t.Fatalf("expected Available, got %v", status.Status)
	}
	if calls != 1 {
		t.Fatalf("expected postgres to be hit once on miss, got %d", calls)
	}

	cached, err := cache.Get(context.Background(), cacheKey("cp-1", 1))
	if err != nil || cached == "" {
		t.Fatalf("expected Get to populate the cache, got %q, err=%v", cached, err)
	}
}

func TestCachedEVSEStatusRepository_GetServesFromCache(t *testing.T) {
	next := mocks.NewMockEVSEStatusRepository()
	next.GetFunc = func(ctx context.Context, chargePointID string, evseID int) (*domain.EVSEStatus, error) {
		t.Fatal("postgres should not be hit on a cache hit")
		return nil, nil
	}
	cache := mocks.NewMockCache()
	cache.Set(context.Background(), cacheKey("cp-1", 1), `{"charge_point_id":"cp-1","evse_id":1,"status":"Charging"}`, time.Minute)

	repo := NewCachedEVSEStatusRepository(next, cache, time.Minute, zap.NewNop())
	status, err := repo.Get(context.Background(), "cp-1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != domain.EVSEStatusCharging {
		t.Fatalf("expected Charging from cache, got %v", status.Status)
	}
}

func TestCachedEVSEStatusRepository_UpsertWritesThrough(t *testing.T) {
	next := mocks.NewMockEVSEStatusRepository()
	cache := mocks.NewMockCache()
	repo := NewCachedEVSEStatusRepository(next, cache, time.Minute, zap.NewNop())

	status := &domain.EVSEStatus{ChargePointID: "cp-1", EVSEID: 1, Status: domain.EVSEStatusFaulted}
	if err := repo.Upsert(context.Background(), status); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := next.Get(context.Background(), "cp-1", 1)
	if err != nil || stored == nil || stored.Status != domain.EVSEStatusFaulted {
		t.Fatalf("expected postgres upsert to be recorded, got %+v, err=%v", stored, err)
	}

	cached, err := cache.Get(context.Background(), cacheKey("cp-1", 1))
	if err != nil || cached == "" {
		t.Fatalf("expected Upsert to write through to cache, got %q, err=%v", cached, err)
	}
}
