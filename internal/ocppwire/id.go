package ocppwire

import (
	"crypto/rand"
	"encoding/hex"
)

// NewUniqueID generates a "csms_" + 16 hex char UniqueId, matching the
// original CSMS's f"csms_{uuid4().hex[:16]}" convention. Entropy is drawn
// from crypto/rand rather than a UUID library: 8 random bytes hex-encoded
// give the same 16 hex characters with a stronger randomness source, and
// the registry only requires uniqueness within its retention window.
func NewUniqueID() string {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return "csms_" + hex.EncodeToString(buf[:])
}
