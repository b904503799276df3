package dispatcher

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
	"github.com/seu-repo/csms-ocpp16/internal/mocks"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func newTestDispatcher() (*Dispatcher, *mocks.MockChargePointRepository, *mocks.MockEVSEStatusRepository, *mocks.MockChargingSessionRepository) {
	cps := &mocks.MockChargePointRepository{}
	evses := &mocks.MockEVSERepository{}
	status := mocks.NewMockEVSEStatusRepository()
	sessions := mocks.NewMockChargingSessionRepository()
	tariffs := &mocks.MockTariffRepository{}
	orders := &mocks.MockOrderRepository{}
	events := &mocks.MockDeviceEventRepository{}

	d := New(cps, evses, status, sessions, tariffs, orders, events, nil, newTestLogger())
	return d, cps, status, sessions
}

func TestBootNotification_CreatesChargePointAndAvailableEVSE(t *testing.T) {
	d, _, status, _ := newTestDispatcher()
	ctx := context.Background()

	payload, _ := json.Marshal(map[string]string{
		"chargePointVendor":       "ZCF",
		"chargePointModel":        "F1Pro",
		"chargePointSerialNumber": "861076087029615",
		"firmwareVersion":         "V100.01",
	})

	result, ocppErr := d.Handle(ctx, "861076087029615", "BootNotification", payload)
	if ocppErr != nil {
		t.Fatalf("unexpected ocpp error: %v", ocppErr)
	}
	resp, ok := result.(bootNotificationResp)
	if !ok {
		t.Fatalf("expected bootNotificationResp, got %T", result)
	}
	if resp.Status != "Accepted" {
		t.Fatalf("expected Accepted, got %s", resp.Status)
	}
	if !strings.HasSuffix(resp.CurrentTime, "Z") {
		t.Fatalf("currentTime must end with Z, got %s", resp.CurrentTime)
	}

	evseStatus, _ := status.Get(ctx, "861076087029615", 1)
	if evseStatus == nil || evseStatus.Status != domain.EVSEStatusAvailable {
		t.Fatalf("expected EVSE 1 Available, got %+v", evseStatus)
	}
}

func TestBootNotification_MissingVendorRejected(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	payload, _ := json.Marshal(map[string]string{"chargePointModel": "F1Pro"})

	_, ocppErr := d.Handle(context.Background(), "cp1", "BootNotification", payload)
	if ocppErr == nil || ocppErr.Code != "OccurrenceConstraintViolation" {
		t.Fatalf("expected OccurrenceConstraintViolation, got %v", ocppErr)
	}
}

func TestAuthorize_AcceptAllWithoutTokenStore(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	payload, _ := json.Marshal(map[string]string{"idTag": "TAG_1"})

	result, ocppErr := d.Handle(context.Background(), "cp1", "Authorize", payload)
	if ocppErr != nil {
		t.Fatalf("unexpected error: %v", ocppErr)
	}
	resp := result.(authorizeResp)
	if resp.IDTagInfo.Status != "Accepted" {
		t.Fatalf("expected Accepted, got %s", resp.IDTagInfo.Status)
	}
}

func TestStartTransaction_DuplicateReturnsOriginalTransactionID(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	ctx := context.Background()

	payload, _ := json.Marshal(map[string]interface{}{
		"connectorId": 1,
		"idTag":       "TAG_1",
		"meterStart":  0,
		"timestamp":   "2024-06-01T12:00:00Z",
	})

	first, err1 := d.Handle(ctx, "cp1", "StartTransaction", payload)
	if err1 != nil {
		t.Fatalf("unexpected error: %v", err1)
	}
	second, err2 := d.Handle(ctx, "cp1", "StartTransaction", payload)
	if err2 != nil {
		t.Fatalf("unexpected error: %v", err2)
	}

	firstResp := first.(startTransactionResp)
	secondResp := second.(startTransactionResp)
	if firstResp.TransactionID != secondResp.TransactionID {
		t.Fatalf("expected same transactionId, got %d vs %d", firstResp.TransactionID, secondResp.TransactionID)
	}
	if firstResp.TransactionID < 1 {
		t.Fatalf("expected transactionId >= 1, got %d", firstResp.TransactionID)
	}
}

func TestStartTransactionThenStop_ComputesEnergyAndReopensAvailable(t *testing.T) {
	d, _, status, _ := newTestDispatcher()
	ctx := context.Background()

	startPayload, _ := json.Marshal(map[string]interface{}{
		"connectorId": 1,
		"idTag":       "TAG_1",
		"meterStart":  0,
		"timestamp":   "2024-06-01T12:00:00Z",
	})
	started, ocppErr := d.Handle(ctx, "cp1", "StartTransaction", startPayload)
	if ocppErr != nil {
		t.Fatalf("start failed: %v", ocppErr)
	}
	txID := started.(startTransactionResp).TransactionID

	meterPayload, _ := json.Marshal(map[string]interface{}{
		"connectorId":   1,
		"transactionId": txID,
		"meterValue": []map[string]interface{}{
			{
				"timestamp": "2024-06-01T12:30:00Z",
				"sampledValue": []map[string]interface{}{
					{"value": "3500", "measurand": "Energy.Active.Import.Register", "unit": "Wh"},
				},
			},
		},
	})
	if _, ocppErr := d.Handle(ctx, "cp1", "MeterValues", meterPayload); ocppErr != nil {
		t.Fatalf("meter values failed: %v", ocppErr)
	}

	stopPayload, _ := json.Marshal(map[string]interface{}{
		"transactionId": txID,
		"meterStop":     7000,
		"timestamp":     "2024-06-01T12:30:00Z",
	})
	if _, ocppErr := d.Handle(ctx, "cp1", "StopTransaction", stopPayload); ocppErr != nil {
		t.Fatalf("stop failed: %v", ocppErr)
	}

	evseStatus, _ := status.Get(ctx, "cp1", 1)
	if evseStatus == nil || evseStatus.Status != domain.EVSEStatusAvailable {
		t.Fatalf("expected EVSE back to Available, got %+v", evseStatus)
	}

	// Stopping again must be a no-op.
	second, ocppErr := d.Handle(ctx, "cp1", "StopTransaction", stopPayload)
	if ocppErr != nil {
		t.Fatalf("second stop failed: %v", ocppErr)
	}
	if second.(stopTransactionResp).IDTagInfo.Status != "Accepted" {
		t.Fatalf("expected idempotent Accepted reply on repeat stop")
	}
}

func TestStopTransaction_OutOfOrderMeterAndTimeAreClamped(t *testing.T) {
	d, _, _, sessions := newTestDispatcher()
	ctx := context.Background()

	startPayload, _ := json.Marshal(map[string]interface{}{
		"connectorId": 1,
		"idTag":       "TAG_1",
		"meterStart":  5000,
		"timestamp":   "2024-06-01T12:00:00Z",
	})
	started, ocppErr := d.Handle(ctx, "cp1", "StartTransaction", startPayload)
	if ocppErr != nil {
		t.Fatalf("start failed: %v", ocppErr)
	}
	txID := started.(startTransactionResp).TransactionID

	// meterStop below meterStart and a timestamp before the start time: both
	// must be clamped rather than accepted as reported (spec §8).
	stopPayload, _ := json.Marshal(map[string]interface{}{
		"transactionId": txID,
		"meterStop":     1000,
		"timestamp":     "2024-06-01T11:00:00Z",
	})
	if _, ocppErr := d.Handle(ctx, "cp1", "StopTransaction", stopPayload); ocppErr != nil {
		t.Fatalf("stop failed: %v", ocppErr)
	}

	session, _ := sessions.FindByTransactionID(ctx, txID)
	if session == nil {
		t.Fatal("expected session to be found")
	}
	if session.MeterStop == nil || *session.MeterStop != session.MeterStart {
		t.Fatalf("expected meterStop clamped to meterStart (%d), got %v", session.MeterStart, session.MeterStop)
	}
	if session.EndTime == nil || session.EndTime.Before(session.StartTime) || session.EndTime.After(session.StartTime) {
		t.Fatalf("expected endTime clamped to startTime (%v), got %v", session.StartTime, session.EndTime)
	}
	if session.Status != domain.SessionStatusCompleted {
		t.Fatalf("expected session Completed, got %s", session.Status)
	}
}

func TestStartTransaction_DifferentIDTagStartsNewSession(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	ctx := context.Background()

	firstPayload, _ := json.Marshal(map[string]interface{}{
		"connectorId": 1,
		"idTag":       "TAG_1",
		"meterStart":  0,
		"timestamp":   "2024-06-01T12:00:00Z",
	})
	first, ocppErr := d.Handle(ctx, "cp1", "StartTransaction", firstPayload)
	if ocppErr != nil {
		t.Fatalf("first start failed: %v", ocppErr)
	}

	// Same connector, same instant, but a different idTag: this is a second
	// driver badging on, not the first driver's CALL being retried, so it
	// must get its own transactionId even though the first session is still
	// Active and well within StartTransactionDedupeWindow.
	secondPayload, _ := json.Marshal(map[string]interface{}{
		"connectorId": 1,
		"idTag":       "TAG_2",
		"meterStart":  0,
		"timestamp":   "2024-06-01T12:00:00Z",
	})
	second, ocppErr := d.Handle(ctx, "cp1", "StartTransaction", secondPayload)
	if ocppErr != nil {
		t.Fatalf("second start failed: %v", ocppErr)
	}

	firstResp := first.(startTransactionResp)
	secondResp := second.(startTransactionResp)
	if firstResp.TransactionID == secondResp.TransactionID {
		t.Fatalf("expected distinct transactionIds for distinct idTags, got %d for both", firstResp.TransactionID)
	}
}

func TestStartTransaction_SameIDTagOutsideDedupeWindowStartsNewSession(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	ctx := context.Background()

	firstPayload, _ := json.Marshal(map[string]interface{}{
		"connectorId": 1,
		"idTag":       "TAG_1",
		"meterStart":  0,
		"timestamp":   "2024-06-01T12:00:00Z",
	})
	first, ocppErr := d.Handle(ctx, "cp1", "StartTransaction", firstPayload)
	if ocppErr != nil {
		t.Fatalf("first start failed: %v", ocppErr)
	}

	// Same connector and idTag, but 30 seconds later: well outside
	// StartTransactionDedupeWindow, so this is treated as a fresh session
	// rather than a retry of the first CALL.
	secondPayload, _ := json.Marshal(map[string]interface{}{
		"connectorId": 1,
		"idTag":       "TAG_1",
		"meterStart":  0,
		"timestamp":   "2024-06-01T12:00:30Z",
	})
	second, ocppErr := d.Handle(ctx, "cp1", "StartTransaction", secondPayload)
	if ocppErr != nil {
		t.Fatalf("second start failed: %v", ocppErr)
	}

	firstResp := first.(startTransactionResp)
	secondResp := second.(startTransactionResp)
	if firstResp.TransactionID == secondResp.TransactionID {
		t.Fatalf("expected distinct transactionIds outside dedupe window, got %d for both", firstResp.TransactionID)
	}
}

func TestStatusNotification_UnknownStatusRejected(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	payload, _ := json.Marshal(map[string]interface{}{
		"connectorId": 1,
		"errorCode":   "NoError",
		"status":      "NotARealStatus",
	})

	_, ocppErr := d.Handle(context.Background(), "cp1", "StatusNotification", payload)
	if ocppErr == nil || ocppErr.Code != "PropertyConstraintViolation" {
		t.Fatalf("expected PropertyConstraintViolation, got %v", ocppErr)
	}
}

func TestUnknownAction_ReturnsNotSupported(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	_, ocppErr := d.Handle(context.Background(), "cp1", "SomeUnknownAction", json.RawMessage(`{}`))
	if ocppErr == nil || ocppErr.Code != "NotSupported" {
		t.Fatalf("expected NotSupported, got %v", ocppErr)
	}
}
