// Package websocket implements the WebSocket transport adapter (spec
// §4.2.3): one connection per charger, bound to the chargerId carried in
// the URL path, replying over the same connection it received the CALL on.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/ocppwire"
	"github.com/seu-repo/csms-ocpp16/internal/transport"
)

const subprotocol = "ocpp1.6"

var upgrader = websocket.Upgrader{
	CheckOrigin:  func(r *http.Request) bool { return true },
	Subprotocols: []string{subprotocol},
}

// Handler matches dispatcher.Dispatcher.Handle's signature.
type Handler func(ctx context.Context, chargerID, action string, payload json.RawMessage) (result interface{}, ocppErr *ocppwire.OCPPError)

// Authenticator verifies HTTP Basic credentials presented at handshake
// time, per spec §7's "WS/HTTP return 401" on authentication failure. A
// nil Authenticator leaves the handshake unauthenticated.
type Authenticator interface {
	Verify(ctx context.Context, username, password string) error
}

// Adapter is the WebSocket ports.Transport implementation. It owns its own
// HTTP listener (grounded on the teacher's internal/adapter/ocpp/v16/server.go
// standalone server, rather than sharing the operator REST Fiber app, since
// the OCPP path and the REST API have distinct client populations).
type Adapter struct {
	addr     string
	registry *transport.Registry
	handler  Handler
	onSeen   func(chargerID string)
	onLost   func(chargerID string)
	auth     Authenticator
	log      *zap.Logger

	httpServer *http.Server

	mu      sync.RWMutex
	clients map[string]*websocket.Conn
}

func NewAdapter(addr string, registry *transport.Registry, handler Handler, onSeen, onLost func(chargerID string), log *zap.Logger) *Adapter {
	return &Adapter{
		addr:     addr,
		registry: registry,
		handler:  handler,
		onSeen:   onSeen,
		onLost:   onLost,
		log:      log,
		clients:  make(map[string]*websocket.Conn),
	}
}

// WithAuthenticator attaches a device-credential check to the handshake.
// Called from cmd/server after construction since the authenticator needs
// the repository layer, which the transport package itself never touches.
func (a *Adapter) WithAuthenticator(auth Authenticator) *Adapter {
	a.auth = auth
	return a
}

func (a *Adapter) Name() string { return "websocket" }

func (a *Adapter) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ocpp/", a.handleConn)

	a.httpServer = &http.Server{Addr: a.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		a.log.Info("websocket: listening", zap.String("addr", a.addr))
		return nil
	}
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	for id, conn := range a.clients {
		conn.Close()
		delete(a.clients, id)
	}
	a.mu.Unlock()

	if a.httpServer == nil {
		return nil
	}
	return a.httpServer.Shutdown(ctx)
}

func (a *Adapter) handleConn(w http.ResponseWriter, r *http.Request) {
	chargerID := strings.TrimPrefix(r.URL.Path, "/ocpp/")
	if chargerID == "" {
		http.Error(w, "missing charger id", http.StatusBadRequest)
		return
	}

	if a.auth != nil {
		username, password, ok := r.BasicAuth()
		if !ok {
			username, password = "", ""
		}
		if err := a.auth.Verify(r.Context(), username, password); err != nil {
			a.log.Warn("websocket: authentication failed", zap.String("charger_id", chargerID), zap.Error(err))
			w.Header().Set("WWW-Authenticate", `Basic realm="ocpp"`)
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Error("websocket: upgrade failed", zap.String("charger_id", chargerID), zap.Error(err))
		return
	}

	a.mu.Lock()
	if existing, ok := a.clients[chargerID]; ok {
		existing.Close()
	}
	a.clients[chargerID] = conn
	a.mu.Unlock()

	a.log.Info("websocket: charger connected", zap.String("charger_id", chargerID))
	if a.onSeen != nil {
		a.onSeen(chargerID)
	}

	defer a.closeConn(chargerID, conn)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				a.log.Warn("websocket: read error", zap.String("charger_id", chargerID), zap.Error(err))
			}
			return
		}
		a.dispatchFrame(chargerID, conn, message)
	}
}

func (a *Adapter) closeConn(chargerID string, conn *websocket.Conn) {
	a.mu.Lock()
	if a.clients[chargerID] == conn {
		delete(a.clients, chargerID)
	}
	a.mu.Unlock()
	conn.Close()

	a.registry.CancelChargerConnection(chargerID)
	if a.onLost != nil {
		a.onLost(chargerID)
	}
	a.log.Info("websocket: charger disconnected", zap.String("charger_id", chargerID))
}

func (a *Adapter) dispatchFrame(chargerID string, conn *websocket.Conn, raw []byte) {
	decoded, err := ocppwire.Decode(raw)
	if err != nil {
		a.log.Warn("websocket: malformed frame", zap.String("charger_id", chargerID), zap.Error(err))
		return
	}

	switch {
	case decoded.Call != nil:
		ctx := context.Background()
		result, ocppErr := a.handler(ctx, chargerID, decoded.Call.Action, decoded.Call.Payload)

		var frame []byte
		var encErr error
		if ocppErr != nil {
			frame, encErr = ocppwire.EncodeCallError(ocppwire.CallError{
				UniqueID:         decoded.Call.UniqueID,
				ErrorCode:        ocppErr.Code,
				ErrorDescription: ocppErr.Description,
			})
		} else {
			payloadBytes, _ := json.Marshal(result)
			frame, encErr = ocppwire.EncodeCallResult(ocppwire.CallResult{UniqueID: decoded.Call.UniqueID, Payload: payloadBytes})
		}
		if encErr != nil {
			a.log.Error("websocket: encode reply failed", zap.Error(encErr))
			return
		}

		a.mu.RLock()
		current := a.clients[chargerID]
		a.mu.RUnlock()
		if current == conn {
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				a.log.Error("websocket: write reply failed", zap.String("charger_id", chargerID), zap.Error(err))
			}
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
}

func (a *Adapter) SendMessage(ctx context.Context, chargerID, action string, payload interface{}, timeout time.Duration) (interface{}, error) {
	a.mu.RLock()
	conn, ok := a.clients[chargerID]
	a.mu.RUnlock()
	if !ok {
		return nil, &ocppwire.OCPPError{Code: ocppwire.ErrNotConnected, Description: "charger has no open websocket"}
	}

	uniqueID := ocppwire.NewUniqueID()
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("websocket: marshal payload: %w", err)
	}

	frame, err := ocppwire.EncodeCall(ocppwire.Call{UniqueID: uniqueID, Action: action, Payload: payloadBytes})
	if err != nil {
		return nil, fmt.Errorf("websocket: encode call: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := a.registry.Register(chargerID, uniqueID, timeout)

	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		a.registry.Cancel(uniqueID)
		return nil, fmt.Errorf("websocket: write call: %w", err)
	}

	resultPayload, ocppErr := a.registry.Await(sendCtx, uniqueID, ch)
	if ocppErr != nil {
		return nil, ocppErr
	}

	var result interface{}
	_ = json.Unmarshal(resultPayload, &result)
	return result, nil
}

func (a *Adapter) IsConnected(chargerID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.clients[chargerID]
	return ok
}
