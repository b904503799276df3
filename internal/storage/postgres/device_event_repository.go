package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

type DeviceEventRepository struct {
	db *gorm.DB
}

func NewDeviceEventRepository(db *gorm.DB) *DeviceEventRepository {
	return &DeviceEventRepository{db: db}
}

func (r *DeviceEventRepository) Append(ctx context.Context, event *domain.DeviceEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
