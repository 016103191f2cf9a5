package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
)

// Hash is a hex-encoded SHA-256 digest
type Hash string

func NewHash(r io.Reader) (Hash, error) {
	hasher := sha256.New()
	_, err := io.Copy(hasher, r)
	if nil != err {
		return "", err
	}

	return Hash(hex.EncodeToString(hasher.Sum(nil))), nil
}

// EqualsHex compares the hash with a hex string, ignoring case and surrounding whitespace
func (h Hash) EqualsHex(expected string) bool {
	return strings.EqualFold(string(h), strings.TrimSpace(expected))
}
