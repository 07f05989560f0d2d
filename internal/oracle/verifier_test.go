package oracle

import (
	"errors"
	"strings"
	"testing"

	"github.com/DamionHane/FHEReporting/internal/models"
	"github.com/DamionHane/FHEReporting/internal/workflow"
)

const testSeed = "9f3c1a5e7b2d4860aa55ee11cc77dd3300112233445566778899aabbccddeeff"

func newTestPair(t *testing.T) (*Signer, *Ed25519Verifier) {
	t.Helper()

	signer, err := NewSigner(testSeed)
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}
	verifier, err := NewEd25519Verifier(signer.PublicKeyHex())
	if err != nil {
		t.Fatalf("Failed to create verifier: %v", err)
	}
	return signer, verifier
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, verifier := newTestPair(t)

	values := models.ClearValues{Category: 3, Severity: 85, Timestamp: 1748779200}
	proof := signer.Sign("req-1", values)

	if err := verifier.Verify("req-1", values, proof); err != nil {
		t.Errorf("Valid proof rejected: %v", err)
	}
}

func TestVerifyRejectsMismatch(t *testing.T) {
	signer, verifier := newTestPair(t)

	values := models.ClearValues{Category: 3, Severity: 85, Timestamp: 1748779200}
	proof := signer.Sign("req-1", values)

	tests := []struct {
		name      string
		requestID string
		values    models.ClearValues
	}{
		{"different request id", "req-2", values},
		{"different category", "req-1", models.ClearValues{Category: 4, Severity: 85, Timestamp: 1748779200}},
		{"different severity", "req-1", models.ClearValues{Category: 3, Severity: 86, Timestamp: 1748779200}},
		{"different timestamp", "req-1", models.ClearValues{Category: 3, Severity: 85, Timestamp: 1748779201}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifier.Verify(tt.requestID, tt.values, proof); !errors.Is(err, workflow.ErrInvalidProof) {
				t.Errorf("Expected ErrInvalidProof, got %v", err)
			}
		})
	}
}

func TestVerifyRejectsBadProofBytes(t *testing.T) {
	signer, verifier := newTestPair(t)

	values := models.ClearValues{Category: 3, Severity: 85, Timestamp: 1748779200}
	proof := signer.Sign("req-1", values)

	if err := verifier.Verify("req-1", values, proof[:32]); !errors.Is(err, workflow.ErrInvalidProof) {
		t.Errorf("Expected ErrInvalidProof for truncated proof, got %v", err)
	}
	if err := verifier.Verify("req-1", values, nil); !errors.Is(err, workflow.ErrInvalidProof) {
		t.Errorf("Expected ErrInvalidProof for nil proof, got %v", err)
	}

	flipped := append([]byte(nil), proof...)
	flipped[0] ^= 0xff
	if err := verifier.Verify("req-1", values, flipped); !errors.Is(err, workflow.ErrInvalidProof) {
		t.Errorf("Expected ErrInvalidProof for corrupted proof, got %v", err)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	signer, err := NewSigner(testSeed)
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}
	other, err := NewSigner(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("Failed to create second signer: %v", err)
	}
	verifier, err := NewEd25519Verifier(other.PublicKeyHex())
	if err != nil {
		t.Fatalf("Failed to create verifier: %v", err)
	}

	values := models.ClearValues{Category: 3, Severity: 85, Timestamp: 1748779200}
	if err := verifier.Verify("req-1", values, signer.Sign("req-1", values)); !errors.Is(err, workflow.ErrInvalidProof) {
		t.Errorf("Expected ErrInvalidProof across keys, got %v", err)
	}
}

func TestConstructorValidation(t *testing.T) {
	if _, err := NewSigner("zz"); err == nil {
		t.Error("Expected error for non-hex seed")
	}
	if _, err := NewSigner("abcd"); err == nil {
		t.Error("Expected error for short seed")
	}
	if _, err := NewEd25519Verifier("zz"); err == nil {
		t.Error("Expected error for non-hex public key")
	}
	if _, err := NewEd25519Verifier("abcd"); err == nil {
		t.Error("Expected error for short public key")
	}
}
