package credential

import "testing"

func TestDerivePassword_TwelveCharsAndDeterministic(t *testing.T) {
	masterSecret := "test_master_secret_12345678901234567890"
	serial := "861076087029615"

	got := DerivePassword(masterSecret, serial)
	if len(got) != 12 {
		t.Fatalf("expected 12-char password, got %q (len %d)", got, len(got))
	}

	again := DerivePassword(masterSecret, serial)
	if got != again {
		t.Fatalf("derivePassword is not deterministic: %q != %q", got, again)
	}
}

func TestDerivePassword_DifferentSerialDiffers(t *testing.T) {
	masterSecret := "test_master_secret_12345678901234567890"
	a := DerivePassword(masterSecret, "861076087029615")
	b := DerivePassword(masterSecret, "861076087029616")
	if a == b {
		t.Fatalf("expected different serials to yield different passwords")
	}
}

func TestEncryptDecryptMasterSecret_RoundTrip(t *testing.T) {
	e := New("process-wide-secret-K", "ENCRYPTION_SALT_VALUE")

	plain := "type-wide-master-secret"
	ciphertext, err := e.EncryptMasterSecret(plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ciphertext == plain {
		t.Fatalf("ciphertext must not equal plaintext")
	}

	got, err := e.DecryptMasterSecret(ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got != plain {
		t.Fatalf("round trip mismatch: got %q want %q", got, plain)
	}
}

func TestDecryptMasterSecret_BadCiphertextFails(t *testing.T) {
	e := New("process-wide-secret-K", "ENCRYPTION_SALT_VALUE")
	if _, err := e.DecryptMasterSecret("not-valid-base64!!"); err == nil {
		t.Fatalf("expected decryption failure for invalid ciphertext")
	}
}

func TestVerify_MismatchReturnsAuthenticationFailed(t *testing.T) {
	e := New("process-wide-secret-K", "ENCRYPTION_SALT_VALUE")
	ciphertext, err := e.EncryptMasterSecret("type-wide-master-secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if err := e.Verify(ciphertext, "861076087029615", "wrong-password"); err != ErrAuthenticationFailed {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestVerify_CorrectPasswordSucceeds(t *testing.T) {
	e := New("process-wide-secret-K", "ENCRYPTION_SALT_VALUE")
	masterSecret := "type-wide-master-secret"
	serial := "861076087029615"

	ciphertext, err := e.EncryptMasterSecret(masterSecret)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	password := DerivePassword(masterSecret, serial)
	if err := e.Verify(ciphertext, serial, password); err != nil {
		t.Fatalf("expected verify to succeed, got %v", err)
	}
}

func TestParseClientID(t *testing.T) {
	typeCode, serial, err := ParseClientID("zcf&861076087029615")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typeCode != "zcf" || serial != "861076087029615" {
		t.Fatalf("got (%q,%q)", typeCode, serial)
	}

	if _, _, err := ParseClientID("malformed-no-ampersand"); err == nil {
		t.Fatalf("expected error for malformed clientId")
	}
}
