// Package httplongpoll implements the HTTP long-poll transport adapter
// (spec §4.2.4), grounded on
// original_source/csms/app/ocpp/transport/http_adapter.py: chargers POST
// their CALLs to /ocpp/{chargerId} and receive, piggybacked on the
// response, the next queued outbound CALL (if any); a bare GET polls the
// queue when the charger has nothing of its own to send.
//
// Unlike the MQTT/WebSocket adapters this one owns no listener of its
// own — cmd/server mounts HandlePost/HandleGet on the shared Fiber app,
// the same way the original let FastAPI own routing and the adapter only
// implement handle_http_request.
package httplongpoll

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/ocppwire"
	"github.com/seu-repo/csms-ocpp16/internal/transport"
)

// Authenticator verifies HTTP Basic credentials on every POST/GET, per
// spec §7's "WS/HTTP return 401" on authentication failure. A nil
// Authenticator leaves the transport unauthenticated.
type Authenticator interface {
	Verify(ctx context.Context, username, password string) error
}

// livenessWindow is the Open Question decision (spec §9): a charger is
// considered connected if it has posted or polled within this window.
const livenessWindow = 5 * time.Minute

// Handler matches dispatcher.Dispatcher.Handle's signature.
type Handler func(ctx context.Context, chargerID, action string, payload json.RawMessage) (result interface{}, ocppErr *ocppwire.OCPPError)

type queuedCall struct {
	uniqueID string
	action   string
	payload  json.RawMessage
}

// Adapter is the HTTP long-poll ports.Transport implementation.
type Adapter struct {
	registry *transport.Registry
	handler  Handler
	onSeen   func(chargerID string)
	auth     Authenticator
	log      *zap.Logger

	mu       sync.Mutex
	lastSeen map[string]time.Time
	queue    map[string][]queuedCall
}

func NewAdapter(registry *transport.Registry, handler Handler, onSeen func(chargerID string), log *zap.Logger) *Adapter {
	return &Adapter{
		registry: registry,
		handler:  handler,
		onSeen:   onSeen,
		log:      log,
		lastSeen: make(map[string]time.Time),
		queue:    make(map[string][]queuedCall),
	}
}

// WithAuthenticator attaches a device-credential check, run on every
// POST/GET. Called from cmd/server after construction, same pattern as
// the WebSocket adapter's WithAuthenticator.
func (a *Adapter) WithAuthenticator(auth Authenticator) *Adapter {
	a.auth = auth
	return a
}

// authenticate parses a "Basic base64(username:password)" Authorization
// header off a fiber request, since fasthttp has no net/http.Request to
// call BasicAuth() on.
func (a *Adapter) authenticate(c *fiber.Ctx) error {
	if a.auth == nil {
		return nil
	}

	header := c.Get(fiber.HeaderAuthorization)
	const prefix = "Basic "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return a.auth.Verify(c.Context(), "", "")
	}

	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return a.auth.Verify(c.Context(), "", "")
	}

	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return a.auth.Verify(c.Context(), "", "")
	}

	return a.auth.Verify(c.Context(), username, password)
}

func (a *Adapter) Name() string { return "http" }

// Start/Stop are no-ops: the HTTP server itself is owned by cmd/server's
// Fiber app, same as the original's "由 FastAPI 管理" comment.
func (a *Adapter) Start(ctx context.Context) error { return nil }

func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastSeen = make(map[string]time.Time)
	a.queue = make(map[string][]queuedCall)
	return nil
}

func (a *Adapter) touch(chargerID string) {
	a.mu.Lock()
	a.lastSeen[chargerID] = time.Now()
	a.mu.Unlock()
	if a.onSeen != nil {
		a.onSeen(chargerID)
	}
}

// HandlePost handles POST /ocpp/:chargerId — the charger's own CALL, or a
// CALLRESULT/CALLERROR reply to a message this adapter queued earlier.
func (a *Adapter) HandlePost(c *fiber.Ctx) error {
	chargerID := c.Params("chargerId")
	if chargerID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing charger id")
	}
	if err := a.authenticate(c); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication failed")
	}
	a.touch(chargerID)

	decoded, err := ocppwire.Decode(c.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	body := fiber.Map{}

	switch {
	case decoded.Call != nil:
		ctx := context.Background()
		result, ocppErr := a.handler(ctx, chargerID, decoded.Call.Action, decoded.Call.Payload)
		if ocppErr != nil {
			body["response"] = []interface{}{ocppwire.CallErrorMessage, decoded.Call.UniqueID, ocppErr.Code, ocppErr.Description}
		} else {
			body["response"] = []interface{}{ocppwire.CallResultMessage, decoded.Call.UniqueID, result}
		}

	case decoded.Result != nil:
		a.registry.Resolve(decoded.Result.UniqueID, decoded.Result.Payload)

	case decoded.Err != nil:
		a.registry.Fail(decoded.Err.UniqueID, &ocppwire.OCPPError{
			Code:        decoded.Err.ErrorCode,
			Description: decoded.Err.ErrorDescription,
			Details:     decoded.Err.ErrorDetails,
		})
	}

	if pending := a.dequeue(chargerID); pending != nil {
		body["pending"] = pending
	}
	return c.JSON(body)
}

// HandleGet handles GET /ocpp/:chargerId — a bare poll for queued CALLs.
func (a *Adapter) HandleGet(c *fiber.Ctx) error {
	chargerID := c.Params("chargerId")
	if chargerID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing charger id")
	}
	if err := a.authenticate(c); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication failed")
	}
	a.touch(chargerID)

	body := fiber.Map{}
	if pending := a.dequeue(chargerID); pending != nil {
		body["pending"] = pending
	}
	return c.JSON(body)
}

func (a *Adapter) dequeue(chargerID string) []interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()

	q := a.queue[chargerID]
	if len(q) == 0 {
		return nil
	}
	next := q[0]
	a.queue[chargerID] = q[1:]

	return []interface{}{ocppwire.CallMessage, next.uniqueID, next.action, next.payload}
}

func (a *Adapter) SendMessage(ctx context.Context, chargerID, action string, payload interface{}, timeout time.Duration) (interface{}, error) {
	if !a.IsConnected(chargerID) {
		return nil, &ocppwire.OCPPError{Code: ocppwire.ErrNotConnected, Description: "charger has not polled HTTP recently"}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("httplongpoll: marshal payload: %w", err)
	}

	uniqueID := ocppwire.NewUniqueID()
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := a.registry.Register(chargerID, uniqueID, timeout)

	a.mu.Lock()
	a.queue[chargerID] = append(a.queue[chargerID], queuedCall{uniqueID: uniqueID, action: action, payload: payloadBytes})
	a.mu.Unlock()

	resultPayload, ocppErr := a.registry.Await(sendCtx, uniqueID, ch)
	if ocppErr != nil {
		return nil, ocppErr
	}

	var result interface{}
	_ = json.Unmarshal(resultPayload, &result)
	return result, nil
}

func (a *Adapter) IsConnected(chargerID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	last, ok := a.lastSeen[chargerID]
	if !ok {
		return false
	}
	return time.Since(last) < livenessWindow
}
