// Package mocks provides hand-written function-field test doubles for the
// core ports, following the teacher's internal/mocks convention: a struct
// field per method, called if non-nil. When the field is nil most methods
// return a zero value; a few fall back to simple built-in behaviour
// instead (in-memory stores, a counting transaction id, an EVSE from
// EnsureExists, an accept-all token store).
package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

type MockChargePointRepository struct {
	SaveFunc              func(ctx context.Context, cp *domain.ChargePoint) error
	FindByIDFunc          func(ctx context.Context, id string) (*domain.ChargePoint, error)
	FindBySerialNumberFunc func(ctx context.Context, serial string) (*domain.ChargePoint, error)
	TouchLastSeenFunc     func(ctx context.Context, id string, at time.Time) error
}

func (m *MockChargePointRepository) Save(ctx context.Context, cp *domain.ChargePoint) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, cp)
	}
	return nil
}

func (m *MockChargePointRepository) FindByID(ctx context.Context, id string) (*domain.ChargePoint, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockChargePointRepository) FindBySerialNumber(ctx context.Context, serial string) (*domain.ChargePoint, error) {
	if m.FindBySerialNumberFunc != nil {
		return m.FindBySerialNumberFunc(ctx, serial)
	}
	return nil, nil
}

func (m *MockChargePointRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	if m.TouchLastSeenFunc != nil {
		return m.TouchLastSeenFunc(ctx, id, at)
	}
	return nil
}

type MockEVSERepository struct {
	SaveFunc                      func(ctx context.Context, evse *domain.EVSE) error
	FindByChargePointAndEVSEIDFunc func(ctx context.Context, chargePointID string, evseID int) (*domain.EVSE, error)
	EnsureExistsFunc               func(ctx context.Context, chargePointID string, evseID int, connectorType string, maxPowerKW float64) (*domain.EVSE, error)
}

func (m *MockEVSERepository) Save(ctx context.Context, evse *domain.EVSE) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, evse)
	}
	return nil
}

func (m *MockEVSERepository) FindByChargePointAndEVSEID(ctx context.Context, chargePointID string, evseID int) (*domain.EVSE, error) {
	if m.FindByChargePointAndEVSEIDFunc != nil {
		return m.FindByChargePointAndEVSEIDFunc(ctx, chargePointID, evseID)
	}
	return nil, nil
}

func (m *MockEVSERepository) EnsureExists(ctx context.Context, chargePointID string, evseID int, connectorType string, maxPowerKW float64) (*domain.EVSE, error) {
	if m.EnsureExistsFunc != nil {
		return m.EnsureExistsFunc(ctx, chargePointID, evseID, connectorType, maxPowerKW)
	}
	return &domain.EVSE{ChargePointID: chargePointID, EVSEID: evseID}, nil
}

type MockEVSEStatusRepository struct {
	store  map[string]*domain.EVSEStatus
	GetFunc    func(ctx context.Context, chargePointID string, evseID int) (*domain.EVSEStatus, error)
	UpsertFunc func(ctx context.Context, status *domain.EVSEStatus) error
}

func NewMockEVSEStatusRepository() *MockEVSEStatusRepository {
	return &MockEVSEStatusRepository{store: make(map[string]*domain.EVSEStatus)}
}

func (m *MockEVSEStatusRepository) Get(ctx context.Context, chargePointID string, evseID int) (*domain.EVSEStatus, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, chargePointID, evseID)
	}
	if m.store == nil {
		return nil, nil
	}
	return m.store[key(chargePointID, evseID)], nil
}

func (m *MockEVSEStatusRepository) Upsert(ctx context.Context, status *domain.EVSEStatus) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, status)
	}
	if m.store == nil {
		m.store = make(map[string]*domain.EVSEStatus)
	}
	copied := *status
	m.store[key(status.ChargePointID, status.EVSEID)] = &copied
	return nil
}

func key(chargePointID string, evseID int) string {
	return fmt.Sprintf("%s#%d", chargePointID, evseID)
}

type MockChargingSessionRepository struct {
	sessions          map[string]*domain.ChargingSession
	nextTxID          int64
	SaveFunc               func(ctx context.Context, session *domain.ChargingSession) error
	FindActiveFunc         func(ctx context.Context, chargePointID string, evseID int) (*domain.ChargingSession, error)
	FindByTransactionIDFunc func(ctx context.Context, transactionID int64) (*domain.ChargingSession, error)
	NextTransactionIDFunc  func(ctx context.Context) (int64, error)
	AppendMeterValuesFunc  func(ctx context.Context, sessionID string, values []domain.MeterValue) error
}

func NewMockChargingSessionRepository() *MockChargingSessionRepository {
	return &MockChargingSessionRepository{sessions: make(map[string]*domain.ChargingSession)}
}

func (m *MockChargingSessionRepository) Save(ctx context.Context, session *domain.ChargingSession) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, session)
	}
	if m.sessions == nil {
		m.sessions = make(map[string]*domain.ChargingSession)
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *MockChargingSessionRepository) FindActive(ctx context.Context, chargePointID string, evseID int) (*domain.ChargingSession, error) {
	if m.FindActiveFunc != nil {
		return m.FindActiveFunc(ctx, chargePointID, evseID)
	}
	for _, s := range m.sessions {
		if s.ChargePointID == chargePointID && s.EVSEID == evseID && s.Status == domain.SessionStatusActive {
			return s, nil
		}
	}
	return nil, nil
}

func (m *MockChargingSessionRepository) FindByTransactionID(ctx context.Context, transactionID int64) (*domain.ChargingSession, error) {
	if m.FindByTransactionIDFunc != nil {
		return m.FindByTransactionIDFunc(ctx, transactionID)
	}
	for _, s := range m.sessions {
		if s.TransactionID == transactionID {
			return s, nil
		}
	}
	return nil, nil
}

func (m *MockChargingSessionRepository) NextTransactionID(ctx context.Context) (int64, error) {
	if m.NextTransactionIDFunc != nil {
		return m.NextTransactionIDFunc(ctx)
	}
	m.nextTxID++
	return m.nextTxID, nil
}

func (m *MockChargingSessionRepository) AppendMeterValues(ctx context.Context, sessionID string, values []domain.MeterValue) error {
	if m.AppendMeterValuesFunc != nil {
		return m.AppendMeterValuesFunc(ctx, sessionID, values)
	}
	if s, ok := m.sessions[sessionID]; ok {
		s.MeterValues = append(s.MeterValues, values...)
	}
	return nil
}

type MockTariffRepository struct {
	FindActiveFunc func(ctx context.Context, siteID string, at time.Time) (*domain.Tariff, error)
}

func (m *MockTariffRepository) FindActive(ctx context.Context, siteID string, at time.Time) (*domain.Tariff, error) {
	if m.FindActiveFunc != nil {
		return m.FindActiveFunc(ctx, siteID, at)
	}
	return nil, nil
}

type MockOrderRepository struct {
	SaveFunc func(ctx context.Context, order *domain.Order) error
}

func (m *MockOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, order)
	}
	return nil
}

type MockDeviceEventRepository struct {
	AppendFunc func(ctx context.Context, event *domain.DeviceEvent) error
}

func (m *MockDeviceEventRepository) Append(ctx context.Context, event *domain.DeviceEvent) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, event)
	}
	return nil
}

type MockTokenStore struct {
	IsKnownAndActiveFunc func(ctx context.Context, idTag string) (bool, error)
}

func (m *MockTokenStore) IsKnownAndActive(ctx context.Context, idTag string) (bool, error) {
	if m.IsKnownAndActiveFunc != nil {
		return m.IsKnownAndActiveFunc(ctx, idTag)
	}
	return true, nil
}
