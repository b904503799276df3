package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/ocppwire"
	"github.com/seu-repo/csms-ocpp16/internal/transport"
)

// fakeTransport is a hand-rolled ports.Transport stub, following the
// dispatcher/mocks *Func-field style rather than a mocking library.
type fakeTransport struct {
	name        string
	connected   map[string]bool
	sendFunc    func(ctx context.Context, chargerID, action string, payload interface{}, timeout time.Duration) (interface{}, error)
}

func (f *fakeTransport) Name() string                    { return f.name }
func (f *fakeTransport) Start(ctx context.Context) error { return nil }
func (f *fakeTransport) Stop(ctx context.Context) error  { return nil }
func (f *fakeTransport) IsConnected(chargerID string) bool {
	return f.connected[chargerID]
}
func (f *fakeTransport) SendMessage(ctx context.Context, chargerID, action string, payload interface{}, timeout time.Duration) (interface{}, error) {
	return f.sendFunc(ctx, chargerID, action, payload, timeout)
}

func newTestApp(manager *transport.Manager) *fiber.App {
	app := fiber.New()
	h := NewHandler(manager, zap.NewNop())
	h.Register(app.Group("/api/v1/ocpp"))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func TestRemoteStartTransaction_Success(t *testing.T) {
	manager := transport.NewManager(zap.NewNop())
	manager.Register(&fakeTransport{
		name:      transport.NameWebSocket,
		connected: map[string]bool{"cp-1": true},
		sendFunc: func(ctx context.Context, chargerID, action string, payload interface{}, timeout time.Duration) (interface{}, error) {
			return map[string]interface{}{"status": "Accepted"}, nil
		},
	})
	app := newTestApp(manager)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/ocpp/remote-start-transaction", fiber.Map{
		"chargePointId": "cp-1",
		"idTag":         "AABBCCDD",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["success"] != true {
		t.Fatalf("expected success=true, got %v", body)
	}
	if body["transport"] != transport.NameWebSocket {
		t.Fatalf("expected transport=%s, got %v", transport.NameWebSocket, body["transport"])
	}
}

func TestRemoteStartTransaction_MissingIDTag(t *testing.T) {
	manager := transport.NewManager(zap.NewNop())
	app := newTestApp(manager)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/ocpp/remote-start-transaction", fiber.Map{
		"chargePointId": "cp-1",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRemoteStopTransaction_NotConnected(t *testing.T) {
	manager := transport.NewManager(zap.NewNop())
	app := newTestApp(manager)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/ocpp/remote-stop-transaction", fiber.Map{
		"chargePointId": "cp-unreachable",
		"transactionId": 42,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := body["detail"]; !ok {
		t.Fatalf("expected a detail field, got %v", body)
	}
}

func TestReset_RejectsInvalidType(t *testing.T) {
	manager := transport.NewManager(zap.NewNop())
	app := newTestApp(manager)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/ocpp/reset", fiber.Map{
		"chargePointId": "cp-1",
		"type":          "Nuclear",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUnlockConnector_RequestTimeout(t *testing.T) {
	manager := transport.NewManager(zap.NewNop())
	manager.Register(&fakeTransport{
		name:      transport.NameMQTT,
		connected: map[string]bool{"cp-1": true},
		sendFunc: func(ctx context.Context, chargerID, action string, payload interface{}, timeout time.Duration) (interface{}, error) {
			return nil, &ocppwire.OCPPError{Code: ocppwire.ErrRequestTimeout, Description: "charger did not reply in time"}
		},
	})
	app := newTestApp(manager)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/ocpp/unlock-connector", fiber.Map{
		"chargePointId": "cp-1",
		"connectorId":   1,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", resp.StatusCode)
	}
}
