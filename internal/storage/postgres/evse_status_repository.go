package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

type EVSEStatusRepository struct {
	db *gorm.DB
}

func NewEVSEStatusRepository(db *gorm.DB) *EVSEStatusRepository {
	return &EVSEStatusRepository{db: db}
}

func (r *EVSEStatusRepository) Get(ctx context.Context, chargePointID string, evseID int) (*domain.EVSEStatus, error) {
	var status domain.EVSEStatus
	err := r.db.WithContext(ctx).First(&status, "charge_point_id = ? AND evse_id = ?", chargePointID, evseID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

// Upsert writes status unconditionally; the dispatcher has already decided
// (via EVSEStatus.Apply's last-writer-wins check) whether this write should
// happen at all.
func (r *EVSEStatusRepository) Upsert(ctx context.Context, status *domain.EVSEStatus) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "charge_point_id"}, {Name: "evse_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "error_code", "last_seen"}),
	}).Create(status).Error
}
