package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DamionHane/FHEReporting/internal/models"
	"github.com/DamionHane/FHEReporting/internal/oracle"
	"github.com/DamionHane/FHEReporting/internal/repository/memory"
	"github.com/DamionHane/FHEReporting/internal/sealing"
	"github.com/DamionHane/FHEReporting/internal/workflow"
)

// Well-known principals used across tests.
const (
	Authority     = "0xAuthority"
	Investigator1 = "0xInvestigator1"
	Investigator2 = "0xInvestigator2"
	Reporter      = "0xReporter"
	Outsider      = "0xOutsider"
)

// SignerSeed is a fixed ed25519 seed for the test oracle.
const SignerSeed = "9f3c1a5e7b2d4860aa55ee11cc77dd3300112233445566778899aabbccddeeff"

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock starts a fake clock at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// RecordingDispatcher captures dispatched oracle requests instead of
// publishing them.
type RecordingDispatcher struct {
	mu       sync.Mutex
	requests []models.OracleRequest
	FailNext bool
}

// Dispatch records the request, or fails once when FailNext is set.
func (d *RecordingDispatcher) Dispatch(_ context.Context, req *models.OracleRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailNext {
		d.FailNext = false
		return errDispatch
	}
	d.requests = append(d.requests, *req)
	return nil
}

// Requests returns a copy of everything dispatched so far.
func (d *RecordingDispatcher) Requests() []models.OracleRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.OracleRequest, len(d.requests))
	copy(out, d.requests)
	return out
}

var errDispatch = &dispatchError{}

type dispatchError struct{}

func (*dispatchError) Error() string { return "dispatch failed" }

// Env is a fully wired in-process workflow environment.
type Env struct {
	Service    *workflow.Service
	Store      *memory.Store
	Keeper     *sealing.Keeper
	Clock      *FakeClock
	Dispatcher *RecordingDispatcher
	Signer     *oracle.Signer
	Config     workflow.Config
}

// NewEnv builds a workflow service over the in-memory store with a fake
// clock, a recording dispatcher, and a real signer/verifier pair.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	store := memory.NewStore()

	key, err := sealing.KeyFromEnv("", "test-sealing-secret")
	if err != nil {
		t.Fatalf("Failed to derive sealing key: %v", err)
	}
	keeper, err := sealing.NewKeeper(key, store)
	if err != nil {
		t.Fatalf("Failed to create keeper: %v", err)
	}

	signer, err := oracle.NewSigner(SignerSeed)
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}
	verifier, err := oracle.NewEd25519Verifier(signer.PublicKeyHex())
	if err != nil {
		t.Fatalf("Failed to create verifier: %v", err)
	}

	clock := NewFakeClock()
	dispatcher := &RecordingDispatcher{}
	cfg := workflow.Config{
		InvestigationWindow:  2160 * time.Hour,
		DecryptionWindow:     168 * time.Hour,
		AutoResolveThreshold: 80,
		NotesCostUnit:        1,
	}

	svc := workflow.NewService(store, store, store, store, store, keeper, dispatcher, verifier, clock, cfg)

	if err := store.SetAuthority(context.Background(), Authority); err != nil {
		t.Fatalf("Failed to set authority: %v", err)
	}

	return &Env{
		Service:    svc,
		Store:      store,
		Keeper:     keeper,
		Clock:      clock,
		Dispatcher: dispatcher,
		Signer:     signer,
		Config:     cfg,
	}
}

// SubmitReport submits a report and fails the test on error.
func (e *Env) SubmitReport(t *testing.T, reporter string, category uint8, anonymous bool, severity uint8) int64 {
	t.Helper()

	id, err := e.Service.Submit(context.Background(), reporter, category, anonymous, severity)
	if err != nil {
		t.Fatalf("Failed to submit report: %v", err)
	}
	return id
}

// AddInvestigator puts an address on the roster as the authority.
func (e *Env) AddInvestigator(t *testing.T, addr string) {
	t.Helper()

	if err := e.Service.AddInvestigator(context.Background(), Authority, addr); err != nil {
		t.Fatalf("Failed to add investigator: %v", err)
	}
}

// AssignReport assigns a report as the authority.
func (e *Env) AssignReport(t *testing.T, reportID int64, investigator string) {
	t.Helper()

	if err := e.Service.Assign(context.Background(), Authority, reportID, investigator); err != nil {
		t.Fatalf("Failed to assign report: %v", err)
	}
}

// RequestDecryption dispatches a decryption request and returns the request id.
func (e *Env) RequestDecryption(t *testing.T, caller string, reportID int64) string {
	t.Helper()

	requestID, _, err := e.Service.RequestDecryption(context.Background(), caller, reportID)
	if err != nil {
		t.Fatalf("Failed to request decryption: %v", err)
	}
	return requestID
}

// Callback signs and delivers an oracle callback for the request.
func (e *Env) Callback(t *testing.T, requestID string, values models.ClearValues) error {
	t.Helper()

	proof := e.Signer.Sign(requestID, values)
	return e.Service.HandleCallback(context.Background(), requestID, values, proof)
}
