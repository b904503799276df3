// Package dispatcher applies inbound OCPP 1.6 actions to persistent state.
// Handlers are idempotent with respect to charger retries and serialized
// per charger so state transitions stay monotonic (spec §5); across
// different chargers no ordering is implied.
package dispatcher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/observability/telemetry"
	"github.com/seu-repo/csms-ocpp16/internal/ocppwire"
	"github.com/seu-repo/csms-ocpp16/internal/ports"
)

// StartTransactionDedupeWindow bounds how long a repeated StartTransaction
// CALL for the same EVSE and idTag is treated as the charger retrying rather
// than a new session.
const StartTransactionDedupeWindow = 10 * time.Second

// Dispatcher owns the seven OCPP 1.6 action handlers and the per-charger
// locks that make them monotonic.
type Dispatcher struct {
	ChargePoints ports.ChargePointRepository
	EVSEs        ports.EVSERepository
	EVSEStatus   ports.EVSEStatusRepository
	Sessions     ports.ChargingSessionRepository
	Tariffs      ports.TariffRepository
	Orders       ports.OrderRepository
	Events       ports.DeviceEventRepository
	Tokens       ports.TokenStore // optional; nil means accept-all

	log *zap.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(
	chargePoints ports.ChargePointRepository,
	evses ports.EVSERepository,
	evseStatus ports.EVSEStatusRepository,
	sessions ports.ChargingSessionRepository,
	tariffs ports.TariffRepository,
	orders ports.OrderRepository,
	events ports.DeviceEventRepository,
	tokens ports.TokenStore,
	log *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		ChargePoints: chargePoints,
		EVSEs:        evses,
		EVSEStatus:   evseStatus,
		Sessions:     sessions,
		Tariffs:      tariffs,
		Orders:       orders,
		Events:       events,
		Tokens:       tokens,
		log:          log,
		locks:        make(map[string]*sync.Mutex),
	}
}

func (d *Dispatcher) lockFor(chargerID string) *sync.Mutex {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()
	l, ok := d.locks[chargerID]
	if !ok {
		l = &sync.Mutex{}
		d.locks[chargerID] = l
	}
	return l
}

// Handle routes action to its handler, serialized per chargerID. Inbound
// parsing failures and validation errors become an *ocppwire.OCPPError;
// they never panic out to the transport loop.
func (d *Dispatcher) Handle(ctx context.Context, chargerID, action string, payload json.RawMessage) (result interface{}, ocppErr *ocppwire.OCPPError) {
	lock := d.lockFor(chargerID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	defer func() { telemetry.RecordOCPPDispatch(action, time.Since(start).Seconds()) }()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatcher handler panicked",
				zap.String("charger_id", chargerID),
				zap.String("action", action),
				zap.Any("recover", r),
			)
			result = nil
			ocppErr = &ocppwire.OCPPError{Code: ocppwire.ErrInternalError, Description: "internal error"}
		}
	}()

	switch action {
	case "BootNotification":
		return d.handleBootNotification(ctx, chargerID, payload)
	case "Heartbeat":
		return d.handleHeartbeat(ctx, chargerID, payload)
	case "StatusNotification":
		return d.handleStatusNotification(ctx, chargerID, payload)
	case "Authorize":
		return d.handleAuthorize(ctx, chargerID, payload)
	case "StartTransaction":
		return d.handleStartTransaction(ctx, chargerID, payload)
	case "StopTransaction":
		return d.handleStopTransaction(ctx, chargerID, payload)
	case "MeterValues":
		return d.handleMeterValues(ctx, chargerID, payload)
	default:
		return nil, &ocppwire.OCPPError{Code: ocppwire.ErrNotSupported, Description: "unknown action " + action}
	}
}

// formatTimestamp renders t per spec §6: ISO 8601 UTC with a trailing "Z",
// never the "+00:00" suffix the original source sometimes emits.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func decodePayload(payload json.RawMessage, v interface{}) *ocppwire.OCPPError {
	if len(payload) == 0 {
		return &ocppwire.OCPPError{Code: ocppwire.ErrOccurrenceConstraintViolation, Description: "missing payload"}
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &ocppwire.OCPPError{Code: ocppwire.ErrFormationViolation, Description: err.Error()}
	}
	return nil
}
