package ports

import (
	"context"
	"time"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

type SiteRepository interface {
	Save(ctx context.Context, site *domain.Site) error
	FindByID(ctx context.Context, id string) (*domain.Site, error)
	FindAll(ctx context.Context) ([]domain.Site, error)
}

type ChargePointRepository interface {
	Save(ctx context.Context, cp *domain.ChargePoint) error
	FindByID(ctx context.Context, id string) (*domain.ChargePoint, error)
	FindBySerialNumber(ctx context.Context, serial string) (*domain.ChargePoint, error)
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}

type EVSERepository interface {
	Save(ctx context.Context, evse *domain.EVSE) error
	FindByChargePointAndEVSEID(ctx context.Context, chargePointID string, evseID int) (*domain.EVSE, error)
	EnsureExists(ctx context.Context, chargePointID string, evseID int, connectorType string, maxPowerKW float64) (*domain.EVSE, error)
}

type EVSEStatusRepository interface {
	Get(ctx context.Context, chargePointID string, evseID int) (*domain.EVSEStatus, error)
	Upsert(ctx context.Context, status *domain.EVSEStatus) error
}

type DeviceRepository interface {
	FindBySerialNumber(ctx context.Context, serial string) (*domain.Device, error)
	Save(ctx context.Context, device *domain.Device) error
}

// ChargingSessionRepository persists ChargingSession aggregates. Methods
// are written so the dispatcher can express StartTransaction/StopTransaction
// idempotency directly against the store without a separate locking layer:
// FindActive is the read used to decide whether a StartTransaction CALL is a
// duplicate, and the Save calls are expected to run inside the per-charger
// serialization the dispatcher already provides.
type ChargingSessionRepository interface {
	Save(ctx context.Context, session *domain.ChargingSession) error
	FindActive(ctx context.Context, chargePointID string, evseID int) (*domain.ChargingSession, error)
	FindByTransactionID(ctx context.Context, transactionID int64) (*domain.ChargingSession, error)
	NextTransactionID(ctx context.Context) (int64, error)
	AppendMeterValues(ctx context.Context, sessionID string, values []domain.MeterValue) error
}

type TariffRepository interface {
	FindActive(ctx context.Context, siteID string, at time.Time) (*domain.Tariff, error)
}

type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
}

type DeviceEventRepository interface {
	Append(ctx context.Context, event *domain.DeviceEvent) error
}
