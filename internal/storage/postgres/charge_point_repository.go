package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

type ChargePointRepository struct {
	db *gorm.DB
}

func NewChargePointRepository(db *gorm.DB) *ChargePointRepository {
	return &ChargePointRepository{db: db}
}

func (r *ChargePointRepository) Save(ctx context.Context, cp *domain.ChargePoint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"site_id", "vendor", "model", "serial_number", "firmware_version", "device_serial_number", "last_seen", "updated_at"}),
	}).Create(cp).Error
}

func (r *ChargePointRepository) FindByID(ctx context.Context, id string) (*domain.ChargePoint, error) {
	var cp domain.ChargePoint
	if err := r.db.WithContext(ctx).Preload("EVSEs").First(&cp, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cp, nil
}

func (r *ChargePointRepository) FindBySerialNumber(ctx context.Context, serial string) (*domain.ChargePoint, error) {
	var cp domain.ChargePoint
	if err := r.db.WithContext(ctx).First(&cp, "serial_number = ?", serial).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cp, nil
}

func (r *ChargePointRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.ChargePoint{}).Where("id = ?", id).Update("last_seen", at).Error
}
