package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

type EVSERepository struct {
	db *gorm.DB
}

func NewEVSERepository(db *gorm.DB) *EVSERepository {
	return &EVSERepository{db: db}
}

func (r *EVSERepository) Save(ctx context.Context, evse *domain.EVSE) error {
	return r.db.WithContext(ctx).Save(evse).Error
}

func (r *EVSERepository) FindByChargePointAndEVSEID(ctx context.Context, chargePointID string, evseID int) (*domain.EVSE, error) {
	var evse domain.EVSE
	err := r.db.WithContext(ctx).First(&evse, "charge_point_id = ? AND evse_id = ?", chargePointID, evseID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &evse, nil
}

// EnsureExists returns the EVSE row for (chargePointID, evseID), creating it
// with the given defaults if it doesn't exist yet. Concurrent BootNotification
// or StatusNotification retries race harmlessly thanks to the unique index on
// (charge_point_id, evse_id): the loser's insert fails and re-reads.
func (r *EVSERepository) EnsureExists(ctx context.Context, chargePointID string, evseID int, connectorType string, maxPowerKW float64) (*domain.EVSE, error) {
	existing, err := r.FindByChargePointAndEVSEID(ctx, chargePointID, evseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	evse := &domain.EVSE{
		ChargePointID: chargePointID,
		EVSEID:        evseID,
		ConnectorType: connectorType,
		MaxPowerKW:    maxPowerKW,
	}
	if err := r.db.WithContext(ctx).Create(evse).Error; err != nil {
		return r.FindByChargePointAndEVSEID(ctx, chargePointID, evseID)
	}
	return evse, nil
}
