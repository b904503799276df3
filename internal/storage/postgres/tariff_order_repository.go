package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

type TariffRepository struct {
	db *gorm.DB
}

func NewTariffRepository(db *gorm.DB) *TariffRepository {
	return &TariffRepository{db: db}
}

func (r *TariffRepository) FindActive(ctx context.Context, siteID string, at time.Time) (*domain.Tariff, error) {
	var tariff domain.Tariff
	err := r.db.WithContext(ctx).
		Where("site_id = ? AND valid_from <= ? AND (valid_until IS NULL OR valid_until > ?)", siteID, at, at).
		Order("valid_from desc").
		First(&tariff).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tariff, nil
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}
