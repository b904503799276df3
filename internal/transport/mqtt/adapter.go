// Package mqtt implements the MQTT transport adapter (spec §4.2.2): the
// CSMS subscribes to a single wildcard topic for all chargers and
// publishes replies/outbound CALLs on a per-charger down-topic.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/ocppwire"
	"github.com/seu-repo/csms-ocpp16/internal/transport"
)

const (
	upWildcard = "+/+/user/up"
	qos        = byte(1)
)

// Handler matches dispatcher.Dispatcher.Handle's signature. The adapter
// depends on this shape directly rather than on the dispatcher package, so
// a *dispatcher.Dispatcher method value can be passed in at wiring time
// without an import cycle.
type Handler func(ctx context.Context, chargerID, action string, payload json.RawMessage) (result interface{}, ocppErr *ocppwire.OCPPError)

// Adapter is the MQTT ports.Transport implementation. It never touches
// persistent state directly — inbound CALLs are handed to Handler, and the
// adapter only does framing/topic bookkeeping.
type Adapter struct {
	brokerURL string
	client    paho.Client
	registry  *transport.Registry
	handler   Handler
	onSeen    func(chargerID string)
	log       *zap.Logger

	mu       sync.RWMutex
	typeCode map[string]string // serial -> typeCode, learned from inbound topics
}

func NewAdapter(brokerURL string, registry *transport.Registry, handler Handler, onSeen func(chargerID string), log *zap.Logger) *Adapter {
	return &Adapter{
		brokerURL: brokerURL,
		registry:  registry,
		handler:   handler,
		onSeen:    onSeen,
		log:       log,
		typeCode:  make(map[string]string),
	}
}

func (a *Adapter) Name() string { return "mqtt" }

func (a *Adapter) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(a.brokerURL).
		SetClientID("csms-core").
		SetAutoReconnect(true).
		SetOnConnectHandler(func(c paho.Client) {
			a.log.Info("mqtt: connected to broker", zap.String("broker", a.brokerURL))
			if token := c.Subscribe(upWildcard, qos, a.onMessage); token.Wait() && token.Error() != nil {
				a.log.Error("mqtt: subscribe failed", zap.Error(token.Error()))
			}
		})

	a.client = paho.NewClient(opts)
	token := a.client.Connect()
	token.Wait()
	return token.Error()
}

func (a *Adapter) Stop(ctx context.Context) error {
	if a.client != nil {
		a.client.Disconnect(250)
	}
	return nil
}

func (a *Adapter) onMessage(_ paho.Client, msg paho.Message) {
	typeCode, serial, ok := splitUpTopic(msg.Topic())
	if !ok {
		a.log.Warn("mqtt: unrecognized topic", zap.String("topic", msg.Topic()))
		return
	}

	a.mu.Lock()
	a.typeCode[serial] = typeCode
	a.mu.Unlock()
	if a.onSeen != nil {
		a.onSeen(serial)
	}

	decoded, err := ocppwire.Decode(msg.Payload())
	if err != nil {
		a.log.Warn("mqtt: malformed frame", zap.String("serial", serial), zap.Error(err))
		return
	}

	switch {
	case decoded.Call != nil:
		a.handleInboundCall(serial, typeCode, decoded.Call.UniqueID, decoded.Call.Action, decoded.Call.Payload)
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

func (a *Adapter) handleInboundCall(serial, typeCode, uniqueID, action string, payload json.RawMessage) {
	ctx := context.Background()
	result, ocppErr := a.handler(ctx, serial, action, payload)

	downTopic := fmt.Sprintf("%s/%s/user/down", typeCode, serial)

	var frame []byte
	var encErr error
	if ocppErr != nil {
		frame, encErr = ocppwire.EncodeCallError(ocppwire.CallError{
			UniqueID:         uniqueID,
			ErrorCode:        ocppErr.Code,
			ErrorDescription: ocppErr.Description,
		})
	} else {
		payloadBytes, _ := json.Marshal(result)
		frame, encErr = ocppwire.EncodeCallResult(ocppwire.CallResult{UniqueID: uniqueID, Payload: payloadBytes})
	}
	if encErr != nil {
		a.log.Error("mqtt: encode reply failed", zap.Error(encErr))
		return
	}

	token := a.client.Publish(downTopic, qos, false, frame)
	token.Wait()
	if token.Error() != nil {
		a.log.Error("mqtt: publish reply failed", zap.String("topic", downTopic), zap.Error(token.Error()))
	}
}

// SendMessage publishes an outbound CALL on the charger's down-topic and
// awaits the correlated reply through the shared registry.
func (a *Adapter) SendMessage(ctx context.Context, chargerID, action string, payload interface{}, timeout time.Duration) (interface{}, error) {
	a.mu.RLock()
	typeCode, ok := a.typeCode[chargerID]
	a.mu.RUnlock()
	if !ok {
		return nil, &ocppwire.OCPPError{Code: ocppwire.ErrNotConnected, Description: "charger not seen on MQTT"}
	}

	uniqueID := ocppwire.NewUniqueID()
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mqtt: marshal payload: %w", err)
	}

	frame, err := ocppwire.EncodeCall(ocppwire.Call{UniqueID: uniqueID, Action: action, Payload: payloadBytes})
	if err != nil {
		return nil, fmt.Errorf("mqtt: encode call: %w", err)
	}

	downTopic := fmt.Sprintf("%s/%s/user/down", typeCode, chargerID)

	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := a.registry.Register(chargerID, uniqueID, timeout)

	token := a.client.Publish(downTopic, qos, false, frame)
	token.Wait()
	if token.Error() != nil {
		a.registry.Cancel(uniqueID)
		return nil, fmt.Errorf("mqtt: publish call: %w", token.Error())
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
	_, ok := a.typeCode[chargerID]
	return ok
}

func splitUpTopic(topic string) (typeCode, serial string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[2] != "user" || parts[3] != "up" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
