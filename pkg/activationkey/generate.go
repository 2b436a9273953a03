package activationkey

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

// Key format: fixed prefix plus five dash-separated groups of four
// uppercase alphanumeric characters, e.g. SFK-7Q2M-X9A1-KD04-ZZR8-B61C.
// The grouping exists for human copy/paste reliability; uniqueness is
// enforced against the global key space at issuance time.
const (
	keyPrefix   = "SFK"
	keyGroups   = 5
	keyGroupLen = 4
	keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var keyPattern = regexp.MustCompile(`^` + keyPrefix + `(-[A-Z0-9]{4}){5}$`)

// maxUnbiasedByte is the largest multiple of len(keyAlphabet) that fits in
// a byte. Random bytes at or above it are redrawn so every alphabet
// character is picked with equal probability.
const maxUnbiasedByte = 256 - 256%len(keyAlphabet)

// GenerateKey produces a new random key value in the canonical format.
func GenerateKey() (string, error) {
	chars := make([]byte, 0, keyGroups*keyGroupLen)
	buf := make([]byte, keyGroups*keyGroupLen)
	for len(chars) < cap(chars) {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, c := range buf {
			if int(c) >= maxUnbiasedByte {
				continue
			}
			chars = append(chars, keyAlphabet[int(c)%len(keyAlphabet)])
			if len(chars) == cap(chars) {
				break
			}
		}
	}

	var b strings.Builder
	b.Grow(len(keyPrefix) + keyGroups*(keyGroupLen+1))
	b.WriteString(keyPrefix)
	for i, c := range chars {
		if i%keyGroupLen == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// ValidFormat reports whether value matches the canonical key format.
// Verification does not depend on this; it exists for cheap input
// rejection at transport boundaries.
func ValidFormat(value string) bool {
	return keyPattern.MatchString(value)
}
