package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) FindBySerialNumber(ctx context.Context, serial string) (*domain.Device, error) {
	var device domain.Device
	if err := r.db.WithContext(ctx).First(&device, "serial_number = ?", serial).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

func (r *DeviceRepository) Save(ctx context.Context, device *domain.Device) error {
	return r.db.WithContext(ctx).Save(device).Error
}
