package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Sum is the hex sha256 fingerprint of an uploaded workbook.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChecksumMatcher checks that a workbook is the one an operator reviewed.
type ChecksumMatcher struct {
	expectedChecksum string
}

// NewChecksumMatcher creates a new ChecksumMatcher with the expected checksum.
func NewChecksumMatcher(expectedChecksum string) *ChecksumMatcher {
	return &ChecksumMatcher{expectedChecksum: strings.ToLower(strings.TrimSpace(expectedChecksum))}
}

// Match checks if the provided data's checksum matches the expected checksum.
func (cm *ChecksumMatcher) Match(data []byte) (bool, error) {
	return cm.MatchSum(Sum(data))
}

// MatchSum compares an already computed fingerprint.
func (cm *ChecksumMatcher) MatchSum(sum string) (bool, error) {
	if cm.expectedChecksum == "" {
		return false, errors.New("expected checksum is not set")
	}
	return strings.EqualFold(sum, cm.expectedChecksum), nil
}
