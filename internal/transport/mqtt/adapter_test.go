package mqtt

import "testing"

func TestSplitUpTopic(t *testing.T) {
	typeCode, serial, ok := splitUpTopic("zcf/861076087029615/user/up")
	if !ok {
		t.Fatalf("expected topic to parse")
	}
	if typeCode != "zcf" || serial != "861076087029615" {
		t.Fatalf("unexpected split: typeCode=%s serial=%s", typeCode, serial)
	}
}

func TestSplitUpTopic_RejectsDownTopic(t *testing.T) {
	if _, _, ok := splitUpTopic("zcf/861076087029615/user/down"); ok {
		t.Fatalf("expected down-topic to be rejected")
	}
}

func TestSplitUpTopic_RejectsWrongShape(t *testing.T) {
	if _, _, ok := splitUpTopic("zcf/user/up"); ok {
		t.Fatalf("expected malformed topic to be rejected")
	}
}

func TestAdapter_IsConnectedBeforeAnyMessage(t *testing.T) {
	a := NewAdapter("tcp://localhost:1883", nil, nil, nil, nil)
	if a.IsConnected("861076087029615") {
		t.Fatalf("expected unseen charger to be reported as not connected")
	}
}
