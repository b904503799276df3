package credential

import (
	"context"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

// DeviceLookup is the subset of ports.DeviceRepository the Authenticator
// needs.
type DeviceLookup interface {
	FindBySerialNumber(ctx context.Context, serial string) (*domain.Device, error)
}

// Authenticator re-derives spec §4.1's verification step for the two
// transports that terminate directly on this process (WebSocket, HTTP
// long-poll) rather than behind an external MQTT broker. MQTT's broker-
// level bad-credentials handshake happens out of process (see the
// internal/credential section of DESIGN.md), so it has no Authenticator call
// site.
type Authenticator struct {
	engine *Engine
	lookup DeviceLookup
}

func NewAuthenticator(engine *Engine, lookup DeviceLookup) *Authenticator {
	return &Authenticator{engine: engine, lookup: lookup}
}

// Verify checks username (the device serial number) and password (the
// derived per-device password) against the stored, encrypted master
// secret. A nil Authenticator always passes, for deployments that
// terminate device auth at a reverse proxy instead. Kept transport-
// agnostic (plain strings, not *http.Request) so both the net/http-based
// WebSocket adapter and the fasthttp-based HTTP long-poll adapter can
// extract Basic credentials their own way and share this one check.
func (a *Authenticator) Verify(ctx context.Context, username, password string) error {
	if a == nil {
		return nil
	}

	device, err := a.lookup.FindBySerialNumber(ctx, username)
	if err != nil {
		return err
	}
	if device == nil {
		return ErrAuthenticationFailed
	}

	return a.engine.Verify(device.MasterSecretCiphertext, device.MQTTUsername(), password)
}
