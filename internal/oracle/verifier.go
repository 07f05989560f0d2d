package oracle

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/DamionHane/FHEReporting/internal/models"
	"github.com/DamionHane/FHEReporting/internal/workflow"
)

// canonicalDigest is the request context the proof must cover. Both the worker
// and the verifier derive it the same way from (requestID, clearValues).
func canonicalDigest(requestID string, values models.ClearValues) [32]byte {
	msg := fmt.Sprintf("%s:%d:%d:%d", requestID, values.Category, values.Severity, values.Timestamp)
	return sha256.Sum256([]byte(msg))
}

// Ed25519Verifier checks callback proofs against the oracle's public key.
type Ed25519Verifier struct {
	publicKey ed25519.PublicKey
}

// NewEd25519Verifier creates a verifier from a hex-encoded public key.
func NewEd25519Verifier(publicKeyHex string) (*Ed25519Verifier, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode oracle public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("oracle public key must be %d bytes", ed25519.PublicKeySize)
	}
	return &Ed25519Verifier{publicKey: ed25519.PublicKey(raw)}, nil
}

// Verify fails closed: any malformed or mismatched proof is rejected.
func (v *Ed25519Verifier) Verify(requestID string, values models.ClearValues, proof []byte) error {
	if len(proof) != ed25519.SignatureSize {
		return fmt.Errorf("%w: bad proof length %d", workflow.ErrInvalidProof, len(proof))
	}
	digest := canonicalDigest(requestID, values)
	if !ed25519.Verify(v.publicKey, digest[:], proof) {
		return fmt.Errorf("%w: signature mismatch for request %s", workflow.ErrInvalidProof, requestID)
	}
	return nil
}

// Signer produces proofs on the worker side.
type Signer struct {
	privateKey ed25519.PrivateKey
}

// NewSigner creates a signer from a hex-encoded ed25519 seed.
func NewSigner(seedHex string) (*Signer, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode oracle signing seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("oracle signing seed must be %d bytes", ed25519.SeedSize)
	}
	return &Signer{privateKey: ed25519.NewKeyFromSeed(seed)}, nil
}

// Sign returns the proof over the canonical request context.
func (s *Signer) Sign(requestID string, values models.ClearValues) []byte {
	digest := canonicalDigest(requestID, values)
	return ed25519.Sign(s.privateKey, digest[:])
}

// PublicKeyHex returns the matching verification key, hex encoded.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.privateKey.Public().(ed25519.PublicKey))
}
