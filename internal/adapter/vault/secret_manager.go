// Package vault fetches the encryption secret backing internal/credential
// from HashiCorp Vault, grounded on the teacher's secret_manager.go
// (api.DefaultConfig + Logical().Read against the KV v2 "secret/data/*"
// mount), refocused from the teacher's database-credential/Gemini-key
// lookups onto the one secret this CSMS actually needs at rest.
package vault

import (
	"fmt"

	"github.com/hashicorp/vault/api"
)

type SecretManager struct {
	client *api.Client
}

func NewSecretManager(address, token string) (*SecretManager, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("vault: new client: %w", err)
	}
	client.SetToken(token)

	return &SecretManager{client: client}, nil
}

// GetEncryptionKey returns ENCRYPTION_KEY: the key-derivation input used to
// wrap/unwrap Device.MasterSecretCiphertext at rest (internal/credential).
func (sm *SecretManager) GetEncryptionKey() (string, error) {
	return sm.readField("secret/data/csms-encryption", "encryption_key")
}

// GetEncryptionSalt returns ENCRYPTION_SALT, the salt source for the same
// PBKDF2 derivation.
func (sm *SecretManager) GetEncryptionSalt() (string, error) {
	return sm.readField("secret/data/csms-encryption", "encryption_salt")
}

func (sm *SecretManager) readField(path, field string) (string, error) {
	secret, err := sm.client.Logical().Read(path)
	if err != nil {
		return "", fmt.Errorf("vault: read %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault: no secret at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("vault: %s has no data map (KV v2 expected)", path)
	}

	value, ok := data[field].(string)
	if !ok {
		return "", fmt.Errorf("vault: %s missing string field %q", path, field)
	}
	return value, nil
}
