package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashContent computes the SHA-256 digest of content
func HashContent(content []byte) [32]byte {
	return sha256.Sum256(content)
}

// HashString computes the SHA-256 digest of a string
func HashString(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}

// HexHash renders a digest as lowercase hex
func HexHash(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// ParseHexHash decodes a hex digest produced by HexHash
func ParseHexHash(s string) ([32]byte, error) {
	var h [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("decode hash: expected %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}
