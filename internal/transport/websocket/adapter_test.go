package websocket

import "testing"

func TestAdapter_IsConnectedBeforeAnyConn(t *testing.T) {
	a := NewAdapter(":0", nil, nil, nil, nil, nil)
	if a.IsConnected("861076087029615") {
		t.Fatalf("expected charger with no connection to be reported as not connected")
	}
}
