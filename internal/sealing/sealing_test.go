package sealing

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/DamionHane/FHEReporting/internal/repository/memory"
)

func newTestKeeper(t *testing.T) *Keeper {
	t.Helper()

	key, err := KeyFromEnv("", "sealing-test-secret")
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	keeper, err := NewKeeper(key, memory.NewStore())
	if err != nil {
		t.Fatalf("Failed to create keeper: %v", err)
	}
	return keeper
}

func TestSealGrantOpen(t *testing.T) {
	keeper := newTestKeeper(t)
	ctx := context.Background()

	sealed, err := keeper.Seal(ctx, "category", []byte{3})
	if err != nil {
		t.Fatalf("Failed to seal: %v", err)
	}
	if sealed.ID == "" || sealed.Kind != "category" {
		t.Errorf("Unexpected sealed value: %+v", sealed)
	}

	// No grant yet: nobody reads.
	if _, err := keeper.Open(ctx, sealed.ID, "alice"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Expected ErrAccessDenied, got %v", err)
	}

	if err := keeper.GrantAccess(ctx, sealed.ID, "alice"); err != nil {
		t.Fatalf("Failed to grant: %v", err)
	}
	value, err := keeper.Open(ctx, sealed.ID, "alice")
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	if len(value) != 1 || value[0] != 3 {
		t.Errorf("Expected [3], got %v", value)
	}

	// Grants are per principal.
	if _, err := keeper.Open(ctx, sealed.ID, "bob"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Expected ErrAccessDenied for ungranted principal, got %v", err)
	}
}

func TestGrantIsIdempotent(t *testing.T) {
	keeper := newTestKeeper(t)
	ctx := context.Background()

	sealed, err := keeper.Seal(ctx, "severity", []byte{42})
	if err != nil {
		t.Fatalf("Failed to seal: %v", err)
	}
	if err := keeper.GrantAccess(ctx, sealed.ID, "alice"); err != nil {
		t.Fatalf("Failed to grant: %v", err)
	}
	if err := keeper.GrantAccess(ctx, sealed.ID, "alice"); err != nil {
		t.Errorf("Repeated grant failed: %v", err)
	}
}

func TestUnknownHandle(t *testing.T) {
	keeper := newTestKeeper(t)
	ctx := context.Background()

	if _, err := keeper.Open(ctx, "missing", "alice"); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Expected ErrUnknownHandle from Open, got %v", err)
	}
	if err := keeper.GrantAccess(ctx, "missing", "alice"); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Expected ErrUnknownHandle from GrantAccess, got %v", err)
	}
	if _, err := keeper.Handle(ctx, "missing"); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Expected ErrUnknownHandle from Handle, got %v", err)
	}
}

func TestKindBindsCiphertext(t *testing.T) {
	key, err := KeyFromEnv("", "sealing-test-secret")
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	keeper, err := NewKeeper(key, memory.NewStore())
	if err != nil {
		t.Fatalf("Failed to create keeper: %v", err)
	}

	sealed, err := keeper.Seal(context.Background(), "category", []byte{3})
	if err != nil {
		t.Fatalf("Failed to seal: %v", err)
	}

	aead, err := NewAEAD(key)
	if err != nil {
		t.Fatalf("Failed to build AEAD: %v", err)
	}
	if _, err := Unseal(aead, "category", sealed.Ciphertext); err != nil {
		t.Errorf("Failed to unseal with matching kind: %v", err)
	}
	if _, err := Unseal(aead, "severity", sealed.Ciphertext); err == nil {
		t.Error("Unseal accepted a mismatched kind")
	}
}

func TestUnsealRejectsGarbage(t *testing.T) {
	key, err := KeyFromEnv("", "sealing-test-secret")
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	aead, err := NewAEAD(key)
	if err != nil {
		t.Fatalf("Failed to build AEAD: %v", err)
	}

	if _, err := Unseal(aead, "category", []byte{1, 2, 3}); err == nil {
		t.Error("Unseal accepted a box shorter than the nonce")
	}

	box := make([]byte, aead.NonceSize()+32)
	if _, err := Unseal(aead, "category", box); err == nil {
		t.Error("Unseal accepted an unauthenticated box")
	}
}

func TestKeyFromEnv(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	key, err := KeyFromEnv(encoded, "")
	if err != nil {
		t.Fatalf("Failed to decode key: %v", err)
	}
	if len(key) != 32 || key[31] != 31 {
		t.Errorf("Unexpected decoded key: %v", key)
	}

	derived, err := KeyFromEnv("", "some-secret")
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	if len(derived) != 32 {
		t.Errorf("Expected 32-byte derived key, got %d", len(derived))
	}

	if _, err := KeyFromEnv("not-base64!!", ""); err == nil {
		t.Error("Expected error for malformed key")
	}
	if _, err := KeyFromEnv(base64.StdEncoding.EncodeToString([]byte("short")), ""); err == nil {
		t.Error("Expected error for wrong key length")
	}
	if _, err := KeyFromEnv("", ""); err == nil {
		t.Error("Expected error with no key material at all")
	}
}
