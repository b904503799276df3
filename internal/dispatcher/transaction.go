package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
	"github.com/seu-repo/csms-ocpp16/internal/ocppwire"
)

type startTransactionReq struct {
	ConnectorID   int    `json:"connectorId"`
	IDTag         string `json:"idTag"`
	MeterStart    int64  `json:"meterStart"`
	Timestamp     string `json:"timestamp"`
	ReservationID *int   `json:"reservationId,omitempty"`
}

type startTransactionResp struct {
	TransactionID int64     `json:"transactionId"`
	IDTagInfo     idTagInfo `json:"idTagInfo"`
}

// handleStartTransaction implements the idempotency rule of spec §4.4: a
// duplicate StartTransaction CALL for the same (chargePointId, connectorId,
// idTag) within StartTransactionDedupeWindow of the existing Active
// session's start returns that session's transactionId unchanged rather
// than creating a second one. An Active session with a different idTag, or
// one older than the window, is left alone — the charger is treated as
// starting a genuinely new session (most likely after a missed
// StopTransaction) rather than retrying.
func (d *Dispatcher) handleStartTransaction(ctx context.Context, chargerID string, payload json.RawMessage) (interface{}, *ocppwire.OCPPError) {
	var req startTransactionReq
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	if req.IDTag == "" {
		return nil, &ocppwire.OCPPError{Code: ocppwire.ErrOccurrenceConstraintViolation, Description: "StartTransaction requires idTag"}
	}

	startTime := time.Now().UTC()
	if req.Timestamp != "" {
		if parsed, parseErr := time.Parse(time.RFC3339, req.Timestamp); parseErr == nil {
			startTime = parsed.UTC()
		}
	}

	if active, err := d.Sessions.FindActive(ctx, chargerID, req.ConnectorID); err == nil && active != nil {
		elapsed := startTime.Sub(active.StartTime)
		if elapsed < 0 {
			elapsed = -elapsed
		}
		if active.IDTag == req.IDTag && elapsed <= StartTransactionDedupeWindow {
			return startTransactionResp{TransactionID: active.TransactionID, IDTagInfo: idTagInfo{Status: "Accepted"}}, nil
		}
	}

	txID, err := d.Sessions.NextTransactionID(ctx)
	if err != nil {
		d.log.Error("StartTransaction: assign transactionId failed", zap.Error(err))
		return nil, &ocppwire.OCPPError{Code: ocppwire.ErrInternalError, Description: err.Error()}
	}

	session := &domain.ChargingSession{
		ID:            fmt.Sprintf("session_%s_%d_%s", chargerID, txID, uuid.NewString()[:8]),
		TransactionID: txID,
		ChargePointID: chargerID,
		EVSEID:        req.ConnectorID,
		IDTag:         req.IDTag,
		StartTime:     startTime,
		MeterStart:    req.MeterStart,
		Status:        domain.SessionStatusActive,
	}
	if err := d.Sessions.Save(ctx, session); err != nil {
		d.log.Error("StartTransaction: save session failed", zap.Error(err))
		return nil, &ocppwire.OCPPError{Code: ocppwire.ErrInternalError, Description: err.Error()}
	}

	existing, _ := d.EVSEStatus.Get(ctx, chargerID, req.ConnectorID)
	if existing == nil {
		existing = &domain.EVSEStatus{EVSEID: req.ConnectorID, ChargePointID: chargerID}
	}
	existing.Apply(domain.EVSEStatusCharging, "", startTime)
	_ = d.EVSEStatus.Upsert(ctx, existing)

	d.appendEvent(ctx, chargerID, domain.DeviceEventSessionOp, startTime, "StartTransaction "+session.ID)

	return startTransactionResp{TransactionID: txID, IDTagInfo: idTagInfo{Status: "Accepted"}}, nil
}

type meterValueSample struct {
	Value     string `json:"value"`
	Measurand string `json:"measurand,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

type meterValueEntry struct {
	Timestamp     string             `json:"timestamp"`
	SampledValue  []meterValueSample `json:"sampledValue"`
}

type stopTransactionReq struct {
	TransactionID   int64             `json:"transactionId"`
	MeterStop       int64             `json:"meterStop"`
	Timestamp       string            `json:"timestamp"`
	Reason          string            `json:"reason,omitempty"`
	TransactionData []meterValueEntry `json:"transactionData,omitempty"`
}

type stopTransactionResp struct {
	IDTagInfo idTagInfo `json:"idTagInfo"`
}

func (d *Dispatcher) handleStopTransaction(ctx context.Context, chargerID string, payload json.RawMessage) (interface{}, *ocppwire.OCPPError) {
	var req stopTransactionReq
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	session, err := d.Sessions.FindByTransactionID(ctx, req.TransactionID)
	if err != nil || session == nil {
		return nil, &ocppwire.OCPPError{
			Code:        ocppwire.ErrPropertyConstraintViolation,
			Description: "unknown transactionId",
		}
	}

	if session.Status == domain.SessionStatusCompleted {
		// Already closed: no-op, return the same reply without mutating
		// meter_stop/end_time.
		return stopTransactionResp{IDTagInfo: idTagInfo{Status: "Accepted"}}, nil
	}

	stopTime := time.Now().UTC()
	if req.Timestamp != "" {
		if parsed, parseErr := time.Parse(time.RFC3339, req.Timestamp); parseErr == nil {
			stopTime = parsed.UTC()
		}
	}

	// A Completed session must have meter_stop >= meter_start and
	// end_time >= start_time (spec §8). A charger reporting an out-of-order
	// stop is clamped back to the start values rather than rejected,
	// mirroring original_source/csms/app/api/v1/transactions.py's
	// negative-energy-as-zero handling instead of bouncing the CALL.
	meterStop := req.MeterStop
	if meterStop < session.MeterStart {
		d.log.Warn("StopTransaction: meterStop below meterStart, clamping",
			zap.String("session_id", session.ID),
			zap.Int64("meter_start", session.MeterStart),
			zap.Int64("meter_stop_reported", meterStop),
		)
		meterStop = session.MeterStart
	}
	if stopTime.Before(session.StartTime) {
		d.log.Warn("StopTransaction: end time before start time, clamping",
			zap.String("session_id", session.ID),
			zap.Time("start_time", session.StartTime),
			zap.Time("stop_time_reported", stopTime),
		)
		stopTime = session.StartTime
	}

	session.EndTime = &stopTime
	session.MeterStop = &meterStop
	session.Status = domain.SessionStatusCompleted
	session.StopReason = req.Reason

	if err := d.Sessions.Save(ctx, session); err != nil {
		d.log.Error("StopTransaction: save session failed", zap.Error(err))
		return nil, &ocppwire.OCPPError{Code: ocppwire.ErrInternalError, Description: err.Error()}
	}

	if len(req.TransactionData) > 0 {
		values := flattenMeterValues(session.ID, req.TransactionData)
		if err := d.Sessions.AppendMeterValues(ctx, session.ID, values); err != nil {
			d.log.Warn("StopTransaction: append meter values failed", zap.Error(err))
		}
	}

	d.snapshotOrder(ctx, session, stopTime)

	existing, _ := d.EVSEStatus.Get(ctx, chargerID, session.EVSEID)
	if existing == nil {
		existing = &domain.EVSEStatus{EVSEID: session.EVSEID, ChargePointID: chargerID}
	}
	// Apply is last-writer-wins by timestamp: if a StatusNotification
	// already moved the EVSE to something newer, this write is skipped.
	existing.Apply(domain.EVSEStatusAvailable, "", stopTime)
	_ = d.EVSEStatus.Upsert(ctx, existing)

	d.appendEvent(ctx, chargerID, domain.DeviceEventSessionOp, stopTime, "StopTransaction "+session.ID)

	return stopTransactionResp{IDTagInfo: idTagInfo{Status: "Accepted"}}, nil
}

func (d *Dispatcher) snapshotOrder(ctx context.Context, session *domain.ChargingSession, at time.Time) {
	if d.Tariffs == nil || d.Orders == nil || session.MeterStop == nil {
		return
	}

	cp, err := d.ChargePoints.FindByID(ctx, session.ChargePointID)
	if err != nil || cp == nil {
		return
	}

	tariff, err := d.Tariffs.FindActive(ctx, cp.SiteID, at)
	if err != nil || tariff == nil {
		return
	}

	energyKWh := float64(*session.MeterStop-session.MeterStart) / 1000.0
	order := &domain.Order{
		ID:            fmt.Sprintf("order_%s_%d", session.ChargePointID, session.TransactionID),
		SessionID:     session.ID,
		ChargePointID: session.ChargePointID,
		TariffID:      tariff.ID,
		EnergyKWh:     energyKWh,
		PricePerKWh:   tariff.BasePricePerKWh,
		AmountDue:     energyKWh * tariff.BasePricePerKWh,
		CreatedAt:     at,
	}
	if err := d.Orders.Save(ctx, order); err != nil {
		d.log.Warn("StopTransaction: save order failed", zap.Error(err))
	}
}

func flattenMeterValues(sessionID string, entries []meterValueEntry) []domain.MeterValue {
	var out []domain.MeterValue
	for _, entry := range entries {
		ts := time.Now().UTC()
		if entry.Timestamp != "" {
			if parsed, err := time.Parse(time.RFC3339, entry.Timestamp); err == nil {
				ts = parsed.UTC()
			}
		}
		for _, sample := range entry.SampledValue {
			out = append(out, domain.MeterValue{
				SessionID: sessionID,
				Timestamp: ts,
				Measurand: sample.Measurand,
				Value:     sample.Value,
				Unit:      sample.Unit,
			})
		}
	}
	return out
}

type meterValuesReq struct {
	ConnectorID   int               `json:"connectorId"`
	TransactionID *int64            `json:"transactionId,omitempty"`
	MeterValue    []meterValueEntry `json:"meterValue"`
}

// handleMeterValues appends samples to the referenced session if
// transactionId is given; otherwise to the EVSE's latest Active session;
// otherwise the sample is dropped per spec §4.4.
func (d *Dispatcher) handleMeterValues(ctx context.Context, chargerID string, payload json.RawMessage) (interface{}, *ocppwire.OCPPError) {
	var req meterValuesReq
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	var session *domain.ChargingSession
	if req.TransactionID != nil {
		session, _ = d.Sessions.FindByTransactionID(ctx, *req.TransactionID)
	}
	if session == nil {
		session, _ = d.Sessions.FindActive(ctx, chargerID, req.ConnectorID)
	}
	if session == nil {
		return map[string]interface{}{}, nil
	}

	values := flattenMeterValues(session.ID, req.MeterValue)
	if len(values) > 0 {
		if err := d.Sessions.AppendMeterValues(ctx, session.ID, values); err != nil {
			d.log.Warn("MeterValues: append failed", zap.Error(err))
		}
	}

	return map[string]interface{}{}, nil
}
