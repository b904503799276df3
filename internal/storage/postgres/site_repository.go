package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

type SiteRepository struct {
	db *gorm.DB
}

func NewSiteRepository(db *gorm.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

func (r *SiteRepository) Save(ctx context.Context, site *domain.Site) error {
	return r.db.WithContext(ctx).Save(site).Error
}

func (r *SiteRepository) FindByID(ctx context.Context, id string) (*domain.Site, error) {
	var site domain.Site
	if err := r.db.WithContext(ctx).First(&site, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &site, nil
}

func (r *SiteRepository) FindAll(ctx context.Context) ([]domain.Site, error) {
	var sites []domain.Site
	if err := r.db.WithContext(ctx).Find(&sites).Error; err != nil {
		return nil, err
	}
	return sites, nil
}
