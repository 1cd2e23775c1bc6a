package models

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns "<prefix>-<12 hex chars>" with a uniform-random
// suffix. Suffixes are never reused within a process (collision odds
// at 48 random bits are negligible for this workload).
func NewID(prefix string) string {
	buf := make([]byte, 6)
	// crypto/rand.Read never fails on supported platforms.
	_, _ = rand.Read(buf)
	return prefix + "-" + hex.EncodeToString(buf)
}
