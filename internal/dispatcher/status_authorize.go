package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
	"github.com/seu-repo/csms-ocpp16/internal/ocppwire"
)

var validEVSEStatuses = map[string]domain.EVSEStatusValue{
	"Available":     domain.EVSEStatusAvailable,
	"Preparing":     domain.EVSEStatusPreparing,
	"Charging":      domain.EVSEStatusCharging,
	"SuspendedEV":   domain.EVSEStatusSuspendedEV,
	"SuspendedEVSE": domain.EVSEStatusSuspendedEVSE,
	"Finishing":     domain.EVSEStatusFinishing,
	"Reserved":      domain.EVSEStatusReserved,
	"Unavailable":   domain.EVSEStatusUnavailable,
	"Faulted":       domain.EVSEStatusFaulted,
}

type statusNotificationReq struct {
	ConnectorID     int    `json:"connectorId"`
	ErrorCode       string `json:"errorCode"`
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	VendorErrorCode string `json:"vendorErrorCode,omitempty"`
}

func (d *Dispatcher) handleStatusNotification(ctx context.Context, chargerID string, payload json.RawMessage) (interface{}, *ocppwire.OCPPError) {
	var req statusNotificationReq
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	status, ok := validEVSEStatuses[req.Status]
	if !ok {
		return nil, &ocppwire.OCPPError{
			Code:        ocppwire.ErrPropertyConstraintViolation,
			Description: "unrecognized status " + req.Status,
		}
	}

	at := time.Now().UTC()
	if req.Timestamp != "" {
		if parsed, parseErr := time.Parse(time.RFC3339, req.Timestamp); parseErr == nil {
			at = parsed.UTC()
		}
	}

	// connectorId=0 refers to the whole station and maps to the synthetic
	// station EVSEStatus row rather than a real EVSE row.
	if req.ConnectorID != domain.StationEVSEID {
		if _, err := d.EVSEs.EnsureExists(ctx, chargerID, req.ConnectorID, "", 0); err != nil {
			d.log.Warn("StatusNotification: ensure EVSE failed", zap.Error(err))
		}
	}

	existing, _ := d.EVSEStatus.Get(ctx, chargerID, req.ConnectorID)
	if existing == nil {
		existing = &domain.EVSEStatus{EVSEID: req.ConnectorID, ChargePointID: chargerID, Status: domain.EVSEStatusUnknown}
	}
	if existing.Apply(status, req.ErrorCode, at) {
		if err := d.EVSEStatus.Upsert(ctx, existing); err != nil {
			d.log.Error("StatusNotification: upsert EVSEStatus failed", zap.Error(err))
			return nil, &ocppwire.OCPPError{Code: ocppwire.ErrInternalError, Description: err.Error()}
		}
	}

	d.appendEvent(ctx, chargerID, domain.DeviceEventStatus, at, req.Status)

	return map[string]interface{}{}, nil
}

type authorizeReq struct {
	IDTag string `json:"idTag"`
}

type idTagInfo struct {
	Status string `json:"status"`
}

type authorizeResp struct {
	IDTagInfo idTagInfo `json:"idTagInfo"`
}

func (d *Dispatcher) handleAuthorize(ctx context.Context, chargerID string, payload json.RawMessage) (interface{}, *ocppwire.OCPPError) {
	var req authorizeReq
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	if req.IDTag == "" {
		return nil, &ocppwire.OCPPError{Code: ocppwire.ErrOccurrenceConstraintViolation, Description: "Authorize requires idTag"}
	}

	status := "Accepted"
	if d.Tokens != nil {
		known, err := d.Tokens.IsKnownAndActive(ctx, req.IDTag)
		if err != nil {
			d.log.Warn("Authorize: token store lookup failed", zap.Error(err))
			status = "Invalid"
		} else if !known {
			status = "Invalid"
		}
	}

	return authorizeResp{IDTagInfo: idTagInfo{Status: status}}, nil
}
