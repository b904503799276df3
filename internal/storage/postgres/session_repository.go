package postgres

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

// ChargingSessionRepository persists sessions and hands out monotonic
// database-wide transaction ids backed by a database sequence, so restarts
// never reissue an id already seen by a charger.
type ChargingSessionRepository struct {
	db *gorm.DB

	seqOnce sync.Once
	seqErr  error
}

func NewChargingSessionRepository(db *gorm.DB) *ChargingSessionRepository {
	return &ChargingSessionRepository{db: db}
}

func (r *ChargingSessionRepository) Save(ctx context.Context, session *domain.ChargingSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *ChargingSessionRepository) FindActive(ctx context.Context, chargePointID string, evseID int) (*domain.ChargingSession, error) {
	var session domain.ChargingSession
	err := r.db.WithContext(ctx).
		Where("charge_point_id = ? AND evse_id = ? AND status = ?", chargePointID, evseID, domain.SessionStatusActive).
		Order("start_time desc").
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *ChargingSessionRepository) FindByTransactionID(ctx context.Context, transactionID int64) (*domain.ChargingSession, error) {
	var session domain.ChargingSession
	err := r.db.WithContext(ctx).First(&session, "transaction_id = ?", transactionID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *ChargingSessionRepository) ensureSequence(ctx context.Context) error {
	r.seqOnce.Do(func() {
		r.seqErr = r.db.WithContext(ctx).Exec("CREATE SEQUENCE IF NOT EXISTS charging_session_transaction_id_seq").Error
	})
	return r.seqErr
}

func (r *ChargingSessionRepository) NextTransactionID(ctx context.Context) (int64, error) {
	if err := r.ensureSequence(ctx); err != nil {
		return 0, err
	}
	var next int64
	if err := r.db.WithContext(ctx).Raw("SELECT nextval('charging_session_transaction_id_seq')").Scan(&next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

func (r *ChargingSessionRepository) AppendMeterValues(ctx context.Context, sessionID string, values []domain.MeterValue) error {
	if len(values) == 0 {
		return nil
	}
	for i := range values {
		values[i].SessionID = sessionID
	}
	return r.db.WithContext(ctx).Create(&values).Error
}
