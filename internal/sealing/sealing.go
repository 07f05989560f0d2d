package sealing

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/DamionHane/FHEReporting/internal/models"
)

var (
	ErrUnknownHandle = errors.New("unknown sealed-value handle")
	ErrAccessDenied  = errors.New("principal has no grant for sealed value")
)

// Store persists sealed values and their access grants.
type Store interface {
	SaveValue(ctx context.Context, value *models.SealedValue) error
	GetValue(ctx context.Context, id string) (*models.SealedValue, error)
	SaveGrant(ctx context.Context, handleID, principal string) error
	HasGrant(ctx context.Context, handleID, principal string) (bool, error)
}

// Keeper seals values into opaque AEAD boxes and gates reads by per-principal
// grants. It satisfies the sealed-value contract: seal, grant, open.
type Keeper struct {
	aead  cipher.AEAD
	store Store
}

// NewKeeper creates a keeper over a 32-byte sealing key.
func NewKeeper(key []byte, store Store) (*Keeper, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sealing cipher: %w", err)
	}
	return &Keeper{aead: aead, store: store}, nil
}

// Seal encrypts value and stores it under a fresh handle id. Nobody can read
// the value until a grant is issued.
func (k *Keeper) Seal(ctx context.Context, kind string, value []byte) (*models.SealedValue, error) {
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	box := k.aead.Seal(nonce, nonce, value, []byte(kind))
	sealed := &models.SealedValue{
		ID:         uuid.NewString(),
		Kind:       kind,
		Ciphertext: box,
		CreatedAt:  time.Now(),
	}

	if err := k.store.SaveValue(ctx, sealed); err != nil {
		return nil, fmt.Errorf("failed to store sealed value: %w", err)
	}
	return sealed, nil
}

// GrantAccess allows principal to open the sealed value behind handleID.
func (k *Keeper) GrantAccess(ctx context.Context, handleID, principal string) error {
	if _, err := k.lookup(ctx, handleID); err != nil {
		return err
	}
	if err := k.store.SaveGrant(ctx, handleID, principal); err != nil {
		return fmt.Errorf("failed to store grant: %w", err)
	}
	return nil
}

// Handle returns the stored sealed value without opening it.
func (k *Keeper) Handle(ctx context.Context, handleID string) (*models.SealedValue, error) {
	return k.lookup(ctx, handleID)
}

// Open decrypts the sealed value for a granted principal.
func (k *Keeper) Open(ctx context.Context, handleID, principal string) ([]byte, error) {
	sealed, err := k.lookup(ctx, handleID)
	if err != nil {
		return nil, err
	}

	granted, err := k.store.HasGrant(ctx, handleID, principal)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, ErrAccessDenied
	}

	return Unseal(k.aead, sealed.Kind, sealed.Ciphertext)
}

func (k *Keeper) lookup(ctx context.Context, handleID string) (*models.SealedValue, error) {
	sealed, err := k.store.GetValue(ctx, handleID)
	if err != nil {
		return nil, err
	}
	if sealed == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, handleID)
	}
	return sealed, nil
}

// Unseal decrypts a sealed box produced by Seal with the matching AEAD.
func Unseal(aead cipher.AEAD, kind string, box []byte) ([]byte, error) {
	if len(box) < aead.NonceSize() {
		return nil, errors.New("sealed box too short")
	}
	nonce, ct := box[:aead.NonceSize()], box[aead.NonceSize():]
	value, err := aead.Open(nil, nonce, ct, []byte(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed value: %w", err)
	}
	return value, nil
}

// NewAEAD builds the sealing AEAD for out-of-process consumers (the oracle
// worker shares the key with the keeper).
func NewAEAD(key []byte) (cipher.AEAD, error) {
	return chacha20poly1305.New(key)
}

// KeyFromEnv decodes a sealing key.
// Priority:
// 1) base64-encoded 32 bytes
// 2) derive from the fallback secret (sha256)
func KeyFromEnv(encoded, fallbackSecret string) ([]byte, error) {
	if v := strings.TrimSpace(encoded); v != "" {
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("failed to decode sealing key: %w", err)
		}
		if len(b) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("sealing key must decode to %d bytes", chacha20poly1305.KeySize)
		}
		return b, nil
	}

	if fallbackSecret == "" {
		return nil, errors.New("no sealing key and no fallback secret configured")
	}
	sum := sha256.Sum256([]byte(fallbackSecret))
	return sum[:], nil
}
