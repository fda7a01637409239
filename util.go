package main

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a fresh random identifier
func GenerateID() string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// randRange returns a uniform value in [min, max)
func randRange(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SanitizeName keeps [A-Za-z0-9 _-], trims, and truncates to maxNameLen.
// Returns fallback when nothing usable is left.
func SanitizeName(name, fallback string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == ' ', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if len(out) > maxNameLen {
		out = strings.TrimSpace(out[:maxNameLen])
	}
	if out == "" {
		return fallback
	}
	return out
}

// NormalizeRoomCode upper-cases the code, falling back to the default room
func NormalizeRoomCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultRoomCode
	}
	if len(code) > maxRoomCodeLen {
		code = code[:maxRoomCodeLen]
	}
	return code
}

// round2 rounds to two decimals to keep snapshots compact
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
