package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/ocppwire"
	"github.com/seu-repo/csms-ocpp16/internal/ports"
	"github.com/seu-repo/csms-ocpp16/internal/resilience"
)

const (
	// NameMQTT, NameWebSocket, NameHTTP are the declared fallback priority
	// order used when no preferred transport is specified or unavailable.
	NameMQTT      = "mqtt"
	NameWebSocket = "websocket"
	NameHTTP      = "http"
)

var priorityOrder = []string{NameMQTT, NameWebSocket, NameHTTP}

// DefaultSendTimeout is used by operator-facing callers that don't supply
// an explicit timeout (spec §5: "default 5s").
const DefaultSendTimeout = 5 * time.Second

// Manager registers transport adapters and routes outbound sends to
// whichever one currently owns the target charger, applying the declared
// priority fallback.
type Manager struct {
	mu         sync.RWMutex
	transports map[string]ports.Transport
	guard      *resilience.OutboundGuard
	log        *zap.Logger
}

func NewManager(log *zap.Logger) *Manager {
	return &Manager{
		transports: make(map[string]ports.Transport),
		log:        log,
	}
}

// WithOutboundGuard attaches a per-(chargerId, transport) circuit breaker
// to every outbound send, so a charger wedged on one transport can't
// retry-storm it. Optional: a Manager with no guard sends directly.
func (m *Manager) WithOutboundGuard(guard *resilience.OutboundGuard) *Manager {
	m.guard = guard
	return m
}

func (m *Manager) sendVia(ctx context.Context, t ports.Transport, chargerID, action string, payload interface{}, timeout time.Duration) (interface{}, error) {
	if m.guard == nil {
		return t.SendMessage(ctx, chargerID, action, payload, timeout)
	}
	return m.guard.Guard(ctx, chargerID, t.Name(), func(ctx context.Context) (interface{}, error) {
		return t.SendMessage(ctx, chargerID, action, payload, timeout)
	})
}

func (m *Manager) Register(t ports.Transport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transports[t.Name()] = t
}

func (m *Manager) Get(name string) (ports.Transport, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transports[name]
	return t, ok
}

// SendMessage implements spec §4.3's selection rule: preferred transport if
// connected, else the declared priority order, else NotConnected.
func (m *Manager) SendMessage(ctx context.Context, chargerID, action string, payload interface{}, preferredTransport string, timeout time.Duration) (interface{}, string, error) {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}

	if t := m.pickPreferred(preferredTransport, chargerID); t != nil {
		result, err := m.sendVia(ctx, t, chargerID, action, payload, timeout)
		return result, t.Name(), err
	}

	for _, name := range priorityOrder {
		t, ok := m.Get(name)
		if !ok || !t.IsConnected(chargerID) {
			continue
		}
		result, err := m.sendVia(ctx, t, chargerID, action, payload, timeout)
		return result, name, err
	}

	return nil, "", &ocppwire.OCPPError{
		Code:        ocppwire.ErrNotConnected,
		Description: fmt.Sprintf("charger %s is not connected on any transport", chargerID),
	}
}

func (m *Manager) pickPreferred(preferred, chargerID string) ports.Transport {
	if preferred == "" {
		return nil
	}
	t, ok := m.Get(preferred)
	if !ok || !t.IsConnected(chargerID) {
		return nil
	}
	return t
}

// IsConnected reports whether any registered transport currently claims
// chargerID.
func (m *Manager) IsConnected(chargerID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.transports {
		if t.IsConnected(chargerID) {
			return true
		}
	}
	return false
}

// StopAll stops every registered transport, used during graceful shutdown.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var firstErr error
	for name, t := range m.transports {
		if err := t.Stop(ctx); err != nil {
			m.log.Error("transport stop failed", zap.String("transport", name), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
