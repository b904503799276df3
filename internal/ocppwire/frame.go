// Package ocppwire implements the OCPP 1.6 JSON-RPC wire framing shared by
// every transport adapter: the 4-element CALL/CALLRESULT/CALLERROR arrays,
// plus the legacy simplified dict accepted on the inbound path only.
package ocppwire

import (
	"encoding/json"
	"fmt"
)

// OCPP 1.6 MessageType discriminants (first element of every frame array).
const (
	CallMessage       = 2
	CallResultMessage = 3
	CallErrorMessage  = 4
)

// Call is an outbound or inbound CALL: [2, UniqueId, Action, Payload].
type Call struct {
	UniqueID string
	Action   string
	Payload  json.RawMessage
}

// CallResult is a CALLRESULT reply: [3, UniqueId, Payload].
type CallResult struct {
	UniqueID string
	Payload  json.RawMessage
}

// CallError is a CALLERROR reply: [4, UniqueId, ErrorCode, ErrorDescription, ErrorDetails?].
type CallError struct {
	UniqueID         string
	ErrorCode        string
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

// legacyFrame is the backward-compat dict form accepted only on the
// incoming path: {"action": A, "payload": P}.
type legacyFrame struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeCall renders a Call as the canonical 4-array.
func EncodeCall(c Call) ([]byte, error) {
	var payload interface{} = c.Payload
	if len(c.Payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return json.Marshal([]interface{}{CallMessage, c.UniqueID, c.Action, payload})
}

// EncodeCallResult renders a CallResult as the canonical 3-array.
func EncodeCallResult(r CallResult) ([]byte, error) {
	var payload interface{} = r.Payload
	if len(r.Payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return json.Marshal([]interface{}{CallResultMessage, r.UniqueID, payload})
}

// EncodeCallError renders a CallError as the 5-array, with empty
// ErrorDetails sent as {}.
func EncodeCallError(e CallError) ([]byte, error) {
	details := e.ErrorDetails
	if len(details) == 0 {
		details = json.RawMessage("{}")
	}
	return json.Marshal([]interface{}{CallErrorMessage, e.UniqueID, e.ErrorCode, e.ErrorDescription, details})
}

// Decoded is the result of parsing one inbound frame, exactly one of Call,
// Result, or Err is non-nil.
type Decoded struct {
	Call   *Call
	Result *CallResult
	Err    *CallError
}

// Decode parses either the canonical OCPP array or the legacy
// {"action","payload"} dict. Legacy frames always decode as a Call with a
// synthesized UniqueID, since the dict form carries no correlation id of
// its own on the wire — callers that need to reply must pair it with
// whatever envelope the transport used to receive it.
func Decode(raw []byte) (*Decoded, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) >= 1 {
		return decodeArray(arr)
	}

	var legacy legacyFrame
	if err := json.Unmarshal(raw, &legacy); err == nil && legacy.Action != "" {
		return &Decoded{Call: &Call{UniqueID: NewUniqueID(), Action: legacy.Action, Payload: legacy.Payload}}, nil
	}

	return nil, fmt.Errorf("ocppwire: malformed frame, neither array nor legacy dict: %s", truncate(raw))
}

func decodeArray(arr []json.RawMessage) (*Decoded, error) {
	if len(arr) < 1 {
		return nil, fmt.Errorf("ocppwire: empty frame array")
	}

	var msgType int
	if err := json.Unmarshal(arr[0], &msgType); err != nil {
		return nil, fmt.Errorf("ocppwire: frame[0] is not a MessageType int: %w", err)
	}

	switch msgType {
	case CallMessage:
		if len(arr) != 4 {
			return nil, fmt.Errorf("ocppwire: CALL frame must have 4 elements, got %d", len(arr))
		}
		var uid, action string
		if err := json.Unmarshal(arr[1], &uid); err != nil {
			return nil, fmt.Errorf("ocppwire: CALL UniqueId not a string: %w", err)
		}
		if err := json.Unmarshal(arr[2], &action); err != nil {
			return nil, fmt.Errorf("ocppwire: CALL Action not a string: %w", err)
		}
		return &Decoded{Call: &Call{UniqueID: uid, Action: action, Payload: arr[3]}}, nil

	case CallResultMessage:
		if len(arr) != 3 {
			return nil, fmt.Errorf("ocppwire: CALLRESULT frame must have 3 elements, got %d", len(arr))
		}
		var uid string
		if err := json.Unmarshal(arr[1], &uid); err != nil {
			return nil, fmt.Errorf("ocppwire: CALLRESULT UniqueId not a string: %w", err)
		}
		return &Decoded{Result: &CallResult{UniqueID: uid, Payload: arr[2]}}, nil

	case CallErrorMessage:
		if len(arr) < 4 {
			return nil, fmt.Errorf("ocppwire: CALLERROR frame must have at least 4 elements, got %d", len(arr))
		}
		var uid, code, desc string
		if err := json.Unmarshal(arr[1], &uid); err != nil {
			return nil, fmt.Errorf("ocppwire: CALLERROR UniqueId not a string: %w", err)
		}
		if err := json.Unmarshal(arr[2], &code); err != nil {
			return nil, fmt.Errorf("ocppwire: CALLERROR ErrorCode not a string: %w", err)
		}
		_ = json.Unmarshal(arr[3], &desc)
		var details json.RawMessage
		if len(arr) >= 5 {
			details = arr[4]
		}
		return &Decoded{Err: &CallError{UniqueID: uid, ErrorCode: code, ErrorDescription: desc, ErrorDetails: details}}, nil

	default:
		return nil, fmt.Errorf("ocppwire: unknown MessageType %d", msgType)
	}
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
