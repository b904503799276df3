package httplongpoll

import (
	"testing"
	"time"
)

func TestIsConnected_FalseBeforeFirstContact(t *testing.T) {
	a := NewAdapter(nil, nil, nil, nil)
	if a.IsConnected("861076087029615") {
		t.Fatalf("expected charger with no recorded contact to be disconnected")
	}
}

func TestIsConnected_TrueWithinLivenessWindow(t *testing.T) {
	a := NewAdapter(nil, nil, nil, nil)
	a.touch("861076087029615")
	if !a.IsConnected("861076087029615") {
		t.Fatalf("expected charger just touched to be connected")
	}
}

func TestIsConnected_FalseAfterLivenessWindow(t *testing.T) {
	a := NewAdapter(nil, nil, nil, nil)
	a.mu.Lock()
	a.lastSeen["861076087029615"] = time.Now().Add(-livenessWindow - time.Second)
	a.mu.Unlock()
	if a.IsConnected("861076087029615") {
		t.Fatalf("expected stale charger to be reported disconnected")
	}
}

func TestDequeue_PreservesUniqueIDAcrossSendAndPoll(t *testing.T) {
	a := NewAdapter(nil, nil, nil, nil)
	a.mu.Lock()
	a.queue["cp1"] = append(a.queue["cp1"], queuedCall{uniqueID: "csms_deadbeefdeadbeef", action: "Reset", payload: []byte(`{"type":"Soft"}`)})
	a.mu.Unlock()

	frame := a.dequeue("cp1")
	if frame == nil {
		t.Fatalf("expected a queued frame")
	}
	if frame[1].(string) != "csms_deadbeefdeadbeef" {
		t.Fatalf("expected preserved uniqueId, got %v", frame[1])
	}
}
