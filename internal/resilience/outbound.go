package resilience

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// OutboundGuard wraps transport.Manager.SendMessage with one circuit
// breaker per (chargerId, transport) pair, per spec §9's resilience note:
// a charger wedged on one transport shouldn't keep tripping sends to
// every other charger on that transport. Adapted from the teacher's
// ServiceClient (internal/infrastructure/circuitbreaker/http.go), which
// keyed breakers by service name alone; this keys by the pair instead.
type OutboundGuard struct {
	manager *Manager
	log     *zap.Logger
}

func NewOutboundGuard(log *zap.Logger) *OutboundGuard {
	return &OutboundGuard{manager: NewManager(log), log: log}
}

// Guard executes fn (an outbound send to chargerID over transportName)
// behind that pair's circuit breaker, opening it after five consecutive
// failures — matching DefaultSettings — and returning ErrCircuitOpen
// immediately for later calls while it's open.
func (g *OutboundGuard) Guard(ctx context.Context, chargerID, transportName string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	cb := g.manager.GetForCharger(chargerID, transportName, DefaultSettings())
	result, err := cb.ExecuteCtx(ctx, fn)
	if err != nil && IsCircuitOpen(err) {
		g.log.Warn("outbound send blocked by open circuit",
			zap.String("charger_id", chargerID),
			zap.String("transport", transportName),
		)
	}
	return result, err
}

// Status reports every breaker's current state, exposed for the /metrics
// breaker-state gauge.
func (g *OutboundGuard) Status() map[string]BreakerStatus {
	return g.manager.Status()
}

// RetryWithBackoff executes fn with exponential backoff, stopping early on
// an open-circuit or too-many-requests error since those signal "don't
// retry yet" rather than "this attempt failed."
func RetryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := initialDelay

	for i := 0; i <= maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsCircuitOpen(err) || IsTooManyRequests(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
			if delay > 30*time.Second {
				delay = 30 * time.Second
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
