package privacy

import (
	"testing"
	"time"
)

func TestMultiplierRange(t *testing.T) {
	o := NewObfuscator()
	now := time.Now()

	for i := 0; i < 1000; i++ {
		m := o.Multiplier(uint64(i), "0xCaller", now)
		if m < 1 || m > 1000 {
			t.Fatalf("Multiplier %d out of range [1,1000]", m)
		}
	}
}

func TestMultiplierVariesWithCounter(t *testing.T) {
	o := NewObfuscator()
	now := time.Now()

	// Identical external inputs still produce fresh multipliers because the
	// internal counter advances.
	first := o.Multiplier(5, "0xCaller", now)
	var varied bool
	for i := 0; i < 32; i++ {
		if o.Multiplier(5, "0xCaller", now) != first {
			varied = true
			break
		}
	}
	if !varied {
		t.Error("Multiplier never varied across successive calls")
	}
}

func TestObfuscate(t *testing.T) {
	tests := []struct {
		severity   uint8
		multiplier uint32
		want       uint32
	}{
		{1, 1, 1},
		{100, 10, 0},
		{77, 13, 1},
		{50, 999, 950},
	}

	for _, tt := range tests {
		if got := Obfuscate(tt.severity, tt.multiplier); got != tt.want {
			t.Errorf("Obfuscate(%d, %d) = %d, want %d", tt.severity, tt.multiplier, got, tt.want)
		}
	}
}

func TestObfuscateStaysBelowModulus(t *testing.T) {
	o := NewObfuscator()
	now := time.Now()

	for s := 1; s <= 100; s++ {
		m := o.Multiplier(uint64(s), "0xCaller", now)
		if got := Obfuscate(uint8(s), m); got >= 1000 {
			t.Fatalf("Obfuscate(%d, %d) = %d, expected < 1000", s, m, got)
		}
	}
}
