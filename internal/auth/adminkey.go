package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	adminKeyPrefixLen = 8
	adminKeyRawBytes  = 24
)

// GeneratedAdminKey holds a freshly minted admin key. Raw is shown to the
// operator exactly once; only Hash is persisted.
type GeneratedAdminKey struct {
	Raw    string
	Prefix string
	Hash   []byte
}

// GenerateAdminKey creates a new random admin key and its bcrypt hash.
func GenerateAdminKey() (*GeneratedAdminKey, error) {
	buf := make([]byte, adminKeyRawBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating admin key: %w", err)
	}

	raw := "admk_" + hex.EncodeToString(buf)
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing admin key: %w", err)
	}

	return &GeneratedAdminKey{
		Raw:    raw,
		Prefix: raw[:adminKeyPrefixLen],
		Hash:   hash,
	}, nil
}

// AdminKeyPrefix returns the lookup prefix for a raw admin key.
func AdminKeyPrefix(raw string) string {
	if len(raw) < adminKeyPrefixLen {
		return raw
	}
	return raw[:adminKeyPrefixLen]
}

// VerifyAdminKey compares a raw admin key against its stored bcrypt hash.
func VerifyAdminKey(raw string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(raw)) == nil
}
