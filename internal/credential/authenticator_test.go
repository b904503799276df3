package credential

import (
	"context"
	"testing"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

type fakeDeviceLookup struct {
	devices map[string]*domain.Device
}

func (f *fakeDeviceLookup) FindBySerialNumber(ctx context.Context, serial string) (*domain.Device, error) {
	return f.devices[serial], nil
}

func TestAuthenticator_Verify_CorrectPasswordSucceeds(t *testing.T) {
	e := New("process-wide-secret-K", "ENCRYPTION_SALT_VALUE")
	masterSecret := "type-wide-master-secret"
	serial := "861076087029615"

	ciphertext, err := e.EncryptMasterSecret(masterSecret)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	lookup := &fakeDeviceLookup{devices: map[string]*domain.Device{
		serial: {SerialNumber: serial, TypeCode: "zcf", MasterSecretCiphertext: ciphertext},
	}}
	auth := NewAuthenticator(e, lookup)

	password := DerivePassword(masterSecret, serial)
	if err := auth.Verify(context.Background(), serial, password); err != nil {
		t.Fatalf("expected verify to succeed, got %v", err)
	}
}

func TestAuthenticator_Verify_UnknownDeviceFails(t *testing.T) {
	e := New("process-wide-secret-K", "ENCRYPTION_SALT_VALUE")
	auth := NewAuthenticator(e, &fakeDeviceLookup{devices: map[string]*domain.Device{}})

	if err := auth.Verify(context.Background(), "no-such-serial", "whatever"); err != ErrAuthenticationFailed {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestAuthenticator_Verify_WrongPasswordFails(t *testing.T) {
	e := New("process-wide-secret-K", "ENCRYPTION_SALT_VALUE")
	masterSecret := "type-wide-master-secret"
	serial := "861076087029615"

	ciphertext, err := e.EncryptMasterSecret(masterSecret)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	lookup := &fakeDeviceLookup{devices: map[string]*domain.Device{
		serial: {SerialNumber: serial, TypeCode: "zcf", MasterSecretCiphertext: ciphertext},
	}}
	auth := NewAuthenticator(e, lookup)

	if err := auth.Verify(context.Background(), serial, "wrong-password"); err != ErrAuthenticationFailed {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestAuthenticator_Verify_NilAuthenticatorAlwaysPasses(t *testing.T) {
	var auth *Authenticator
	if err := auth.Verify(context.Background(), "anything", "anything"); err != nil {
		t.Fatalf("expected nil Authenticator to pass, got %v", err)
	}
}
