package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
	"github.com/seu-repo/csms-ocpp16/internal/ocppwire"
)

const defaultHeartbeatIntervalSeconds = 60

type bootNotificationReq struct {
	ChargePointVendor string `json:"chargePointVendor"`
	ChargePointModel  string `json:"chargePointModel"`
	ChargePointSerial string `json:"chargePointSerialNumber"`
	FirmwareVersion   string `json:"firmwareVersion"`
}

type bootNotificationResp struct {
	Status      string `json:"status"`
	CurrentTime string `json:"currentTime"`
	Interval    int    `json:"interval"`
}

func (d *Dispatcher) handleBootNotification(ctx context.Context, chargerID string, payload json.RawMessage) (interface{}, *ocppwire.OCPPError) {
	var req bootNotificationReq
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	if req.ChargePointVendor == "" || req.ChargePointModel == "" {
		return nil, &ocppwire.OCPPError{
			Code:        ocppwire.ErrOccurrenceConstraintViolation,
			Description: "BootNotification requires chargePointVendor and chargePointModel",
		}
	}

	now := time.Now().UTC()

	cp, err := d.ChargePoints.FindByID(ctx, chargerID)
	if err != nil || cp == nil {
		cp = &domain.ChargePoint{ID: chargerID}
	}
	cp.Vendor = req.ChargePointVendor
	cp.Model = req.ChargePointModel
	if req.ChargePointSerial != "" {
		cp.SerialNumber = req.ChargePointSerial
	}
	if req.FirmwareVersion != "" {
		cp.FirmwareVersion = req.FirmwareVersion
	}
	cp.LastSeen = &now

	if saveErr := d.ChargePoints.Save(ctx, cp); saveErr != nil {
		d.log.Error("BootNotification: save charge point failed", zap.String("charger_id", chargerID), zap.Error(saveErr))
		return nil, &ocppwire.OCPPError{Code: ocppwire.ErrInternalError, Description: saveErr.Error()}
	}

	if _, ensureErr := d.EVSEs.EnsureExists(ctx, chargerID, 1, "", 0); ensureErr != nil {
		d.log.Warn("BootNotification: ensure EVSE 1 failed", zap.Error(ensureErr))
	}
	existing, _ := d.EVSEStatus.Get(ctx, chargerID, 1)
	if existing == nil {
		_ = d.EVSEStatus.Upsert(ctx, &domain.EVSEStatus{
			EVSEID:        1,
			ChargePointID: chargerID,
			Status:        domain.EVSEStatusAvailable,
			LastSeen:      now,
		})
	}

	d.appendEvent(ctx, chargerID, domain.DeviceEventBoot, now, req.ChargePointSerial)

	return bootNotificationResp{
		Status:      "Accepted",
		CurrentTime: formatTimestamp(now),
		Interval:    defaultHeartbeatIntervalSeconds,
	}, nil
}

type heartbeatResp struct {
	CurrentTime string `json:"currentTime"`
}

func (d *Dispatcher) handleHeartbeat(ctx context.Context, chargerID string, _ json.RawMessage) (interface{}, *ocppwire.OCPPError) {
	now := time.Now().UTC()

	// Best-effort: a failure touching last_seen or logging the heartbeat is
	// logged and never fails the reply.
	if err := d.ChargePoints.TouchLastSeen(ctx, chargerID, now); err != nil {
		d.log.Warn("Heartbeat: touch last_seen failed", zap.String("charger_id", chargerID), zap.Error(err))
	}
	d.appendEvent(ctx, chargerID, domain.DeviceEventHeartbeat, now, "")

	return heartbeatResp{CurrentTime: formatTimestamp(now)}, nil
}

func (d *Dispatcher) appendEvent(ctx context.Context, chargerID string, eventType domain.DeviceEventType, at time.Time, details string) {
	if d.Events == nil {
		return
	}
	if err := d.Events.Append(ctx, &domain.DeviceEvent{
		ChargePointID: chargerID,
		EventType:     eventType,
		Timestamp:     at,
		Details:       details,
	}); err != nil {
		d.log.Warn("append device event failed", zap.String("charger_id", chargerID), zap.String("event", string(eventType)), zap.Error(err))
	}
}
