package ports

import (
	"context"
	"time"
)

// Transport is the capability contract every adapter (MQTT, WebSocket,
// HTTP long-poll) implements. It is deliberately a flat interface rather
// than a class hierarchy — see spec DESIGN NOTES on cross-transport
// polymorphism. An adapter only frames and binds sessions; it must never
// touch persistent state directly, that is the dispatcher's job.
//
// Each adapter package declares its own inbound Handler type structurally
// matching dispatcher.Dispatcher.Handle (ctx, chargerID, action, payload) so
// it can depend on that shape directly without importing internal/ports or
// internal/dispatcher at wiring time.
type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// SendMessage sends action/payload as an outbound CALL to chargerId and
	// blocks for the correlated CALLRESULT/CALLERROR, or returns
	// RequestTimeout after timeout elapses.
	SendMessage(ctx context.Context, chargerID, action string, payload interface{}, timeout time.Duration) (interface{}, error)

	IsConnected(chargerID string) bool
}
