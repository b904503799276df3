// Package transport holds the Pending-Response Registry and Transport
// Manager shared by every adapter.
package transport

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/ocppwire"
)

// pendingEntry is one outstanding outbound CALL awaiting its
// CALLRESULT/CALLERROR. resultCh delivers exactly once.
type pendingEntry struct {
	chargerID string
	deadline  time.Time
	resultCh  chan pendingOutcome
	once      sync.Once
}

type pendingOutcome struct {
	payload []byte
	err     *ocppwire.OCPPError
}

func (p *pendingEntry) resolve(outcome pendingOutcome) {
	p.once.Do(func() {
		p.resultCh <- outcome
		close(p.resultCh)
	})
}

// Registry correlates outbound CALLs with inbound CALLRESULT/CALLERROR by
// UniqueId, across every transport. A single shared map, short critical
// sections, one-shot resolution per entry.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*pendingEntry
	log     *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	r := &Registry{
		pending: make(map[string]*pendingEntry),
		log:     log,
	}
	go r.sweepLoop()
	return r
}

// Register creates a new pending entry for uniqueID and returns a channel
// the caller awaits the outcome on.
func (r *Registry) Register(chargerID, uniqueID string, timeout time.Duration) <-chan pendingOutcome {
	entry := &pendingEntry{
		chargerID: chargerID,
		deadline:  time.Now().Add(timeout),
		resultCh:  make(chan pendingOutcome, 1),
	}

	r.mu.Lock()
	r.pending[uniqueID] = entry
	r.mu.Unlock()

	return entry.resultCh
}

// Resolve consumes the entry for uniqueID (if any) with a successful
// CALLRESULT payload. No-op if the id is unknown (already timed out,
// cancelled, or a stray reply).
func (r *Registry) Resolve(uniqueID string, payload []byte) {
	r.mu.Lock()
	entry, ok := r.pending[uniqueID]
	if ok {
		delete(r.pending, uniqueID)
	}
	r.mu.Unlock()

	if ok {
		entry.resolve(pendingOutcome{payload: payload})
	}
}

// Fail consumes the entry for uniqueID (if any) with a CALLERROR.
func (r *Registry) Fail(uniqueID string, ocppErr *ocppwire.OCPPError) {
	r.mu.Lock()
	entry, ok := r.pending[uniqueID]
	if ok {
		delete(r.pending, uniqueID)
	}
	r.mu.Unlock()

	if ok {
		entry.resolve(pendingOutcome{err: ocppErr})
	}
}

// Cancel removes uniqueID without resolving its channel — used when the
// caller itself cancels the wait, so a late reply is silently discarded.
func (r *Registry) Cancel(uniqueID string) {
	r.mu.Lock()
	delete(r.pending, uniqueID)
	r.mu.Unlock()
}

// CancelChargerConnection fails every pending entry for chargerID with
// ConnectionClosed — called when a transport session for that charger
// closes.
func (r *Registry) CancelChargerConnection(chargerID string) {
	r.mu.Lock()
	var toFail []*pendingEntry
	for id, entry := range r.pending {
		if entry.chargerID == chargerID {
			toFail = append(toFail, entry)
			delete(r.pending, id)
		}
	}
	r.mu.Unlock()

	for _, entry := range toFail {
		entry.resolve(pendingOutcome{err: &ocppwire.OCPPError{
			Code:        ocppwire.ErrConnectionClosed,
			Description: "transport connection closed",
		}})
	}
}

// Await blocks for a resolution, a context cancellation, or ctx's own
// deadline, whichever comes first. If ctx is cancelled, Await cancels the
// registry entry itself so a subsequent late reply is dropped.
func (r *Registry) Await(ctx context.Context, uniqueID string, ch <-chan pendingOutcome) ([]byte, *ocppwire.OCPPError) {
	select {
	case outcome := <-ch:
		return outcome.payload, outcome.err
	case <-ctx.Done():
		r.Cancel(uniqueID)
		return nil, &ocppwire.OCPPError{Code: ocppwire.ErrRequestTimeout, Description: ctx.Err().Error()}
	}
}

// sweepLoop enforces timeouts by periodic scan rather than a per-entry
// timer, keeping the registry's hot path (Register/Resolve/Fail) free of
// timer bookkeeping.
func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		r.sweepOnce()
	}
}

func (r *Registry) sweepOnce() {
	now := time.Now()

	r.mu.Lock()
	var expired []*pendingEntry
	for id, entry := range r.pending {
		if now.After(entry.deadline) {
			expired = append(expired, entry)
			delete(r.pending, id)
		}
	}
	r.mu.Unlock()

	for _, entry := range expired {
		entry.resolve(pendingOutcome{err: &ocppwire.OCPPError{
			Code:        ocppwire.ErrRequestTimeout,
			Description: "no reply within timeout",
		}})
	}
}

// Size reports the number of currently-pending entries; exposed for the
// /metrics gauge.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
