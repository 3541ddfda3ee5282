package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHashPolicy computes the fingerprint used to skip re-ingesting the
// same passage.
type ContentHashPolicy interface {
	Compute(content string) string
}

type contentHashPolicy struct{}

// NewContentHashPolicy returns the default SHA-256 policy.
func NewContentHashPolicy() ContentHashPolicy {
	return &contentHashPolicy{}
}

// Compute hashes the content with whitespace runs collapsed, so the same
// passage with different line wrapping maps to one fingerprint.
func (p *contentHashPolicy) Compute(content string) string {
	normalized := strings.Join(strings.Fields(content), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
