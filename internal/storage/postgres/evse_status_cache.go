package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
	"github.com/seu-repo/csms-ocpp16/internal/ports"
)

// CachedEVSEStatusRepository decorates EVSEStatusRepository with a
// read-through ports.Cache, fulfilling the DOMAIN STACK's "optional hot
// cache for EVSEStatus" role: Get checks the cache before hitting
// postgres, and Upsert writes through so a StatusNotification's effect is
// visible to the next read without waiting out the TTL.
type CachedEVSEStatusRepository struct {
	next  ports.EVSEStatusRepository
	cache ports.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedEVSEStatusRepository(next ports.EVSEStatusRepository, cache ports.Cache, ttl time.Duration, log *zap.Logger) *CachedEVSEStatusRepository {
	return &CachedEVSEStatusRepository{next: next, cache: cache, ttl: ttl, log: log}
}

func cacheKey(chargePointID string, evseID int) string {
	return fmt.Sprintf("evse_status:%s:%d", chargePointID, evseID)
}

func (r *CachedEVSEStatusRepository) Get(ctx context.Context, chargePointID string, evseID int) (*domain.EVSEStatus, error) {
	key := cacheKey(chargePointID, evseID)

	if cached, err := r.cache.Get(ctx, key); err == nil && cached != "" {
		var status domain.EVSEStatus
		if jsonErr := json.Unmarshal([]byte(cached), &status); jsonErr == nil {
			return &status, nil
		}
	}

	status, err := r.next.Get(ctx, chargePointID, evseID)
	if err != nil || status == nil {
		return status, err
	}

	if encoded, marshalErr := json.Marshal(status); marshalErr == nil {
		if cacheErr := r.cache.Set(ctx, key, string(encoded), r.ttl); cacheErr != nil {
			r.log.Warn("evse status cache: set failed", zap.String("charge_point_id", chargePointID), zap.Error(cacheErr))
		}
	}
	return status, nil
}

func (r *CachedEVSEStatusRepository) Upsert(ctx context.Context, status *domain.EVSEStatus) error {
	if err := r.next.Upsert(ctx, status); err != nil {
		return err
	}

	key := cacheKey(status.ChargePointID, status.EVSEID)
	encoded, err := json.Marshal(status)
	if err != nil {
		return nil
	}
	if cacheErr := r.cache.Set(ctx, key, string(encoded), r.ttl); cacheErr != nil {
		r.log.Warn("evse status cache: set failed", zap.String("charge_point_id", status.ChargePointID), zap.Error(cacheErr))
	}
	return nil
}
