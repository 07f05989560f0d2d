package privacy

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"
)

// Obfuscator derives the public severity proxy emitted at submission time.
// The multiplier is deterministic pseudo-randomness over an internal monotonic
// counter, the submission count, the caller identity, and wall-clock entropy.
// It is a heuristic, not a confidentiality guarantee: the raw severity itself
// is sealed and never logged in clear.
type Obfuscator struct {
	mu      sync.Mutex
	counter uint64
}

// NewObfuscator creates a new obfuscator.
func NewObfuscator() *Obfuscator {
	return &Obfuscator{}
}

// Multiplier returns the next multiplier in [1,1000].
func (o *Obfuscator) Multiplier(submissions uint64, caller string, now time.Time) uint32 {
	o.mu.Lock()
	o.counter++
	counter := o.counter
	o.mu.Unlock()

	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:], counter)
	binary.BigEndian.PutUint64(buf[8:], submissions)
	binary.BigEndian.PutUint64(buf[16:], uint64(now.UnixNano()))

	h := sha256.New()
	h.Write(buf[:])
	h.Write([]byte(caller))
	sum := h.Sum(nil)

	return uint32(binary.BigEndian.Uint64(sum[:8])%1000) + 1
}

// Obfuscate applies the multiplier to the raw severity:
// (rawSeverity * multiplier) mod 1000.
func Obfuscate(rawSeverity uint8, multiplier uint32) uint32 {
	return (uint32(rawSeverity) * multiplier) % 1000
}
