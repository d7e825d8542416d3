package service

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"provably-fair-dice/internal/core/domain"
)

// Ed25519SignatureService implements ports.SignatureService. API callers
// sign requests with the same key that owns their ledger account, so the
// authenticated signer is the house or player the request acts for.
type Ed25519SignatureService struct{}

func NewEd25519SignatureService() *Ed25519SignatureService {
	return &Ed25519SignatureService{}
}

// Sign returns the lowercase hex Ed25519 signature of payload.
func (s *Ed25519SignatureService) Sign(key ed25519.PrivateKey, payload string) string {
	return hex.EncodeToString(ed25519.Sign(key, []byte(payload)))
}

// Verify checks a hex-encoded signature of payload against signer.
func (s *Ed25519SignatureService) Verify(signer domain.Address, payload string, signatureHex string) bool {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(signer.Bytes()), []byte(payload), sig)
}

// BuildCanonicalString constructs the canonical payload for signing.
// Format: METHOD|PATH|TIMESTAMP|NONCE|BODY
func (s *Ed25519SignatureService) BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string {
	return fmt.Sprintf("%s|%s|%d|%s|%s", method, path, timestamp, nonce, body)
}
