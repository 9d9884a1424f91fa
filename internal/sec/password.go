package sec

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. Changing these invalidates every stored
// credential, so they are fixed; a parameter bump needs its own
// migration format.
const (
	kdfIterations = 250_000
	kdfKeyLen     = 64
	saltLen       = 16
)

// Record is a derived credential: hex-encoded salt (32 chars) and hash
// (128 chars).
type Record struct {
	Salt string
	Hash string
}

// DeriveRecord derives a credential record for the password using a
// fresh random salt.
func DeriveRecord(password string) (Record, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return Record{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)
	return Record{
		Salt: saltHex,
		Hash: deriveHex(password, saltHex),
	}, nil
}

// VerifyPassword reports whether password derives to hash under salt.
// Empty salt or hash fails closed. The hash comparison is constant-time;
// a length mismatch returns early since length is not secret.
func VerifyPassword(password, salt, hash string) bool {
	if salt == "" || hash == "" {
		return false
	}
	attempt := deriveHex(password, salt)
	if len(hash) != len(attempt) {
		return false
	}
	want, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(attempt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(want, got) == 1
}

// deriveHex runs the KDF. The salt is fed to the KDF as its hex string,
// matching how existing stored credentials were produced.
func deriveHex(password, saltHex string) string {
	return hex.EncodeToString(
		pbkdf2.Key([]byte(password), []byte(saltHex), kdfIterations, kdfKeyLen, sha512.New),
	)
}

// Combined returns the single-column encoding of the record.
func (r Record) Combined() string {
	return r.Salt + ":" + r.Hash
}

// ParseCombined decodes a combined "salt:hash" value. Malformed input
// (no separator, empty half) yields no credential rather than an error.
func ParseCombined(stored string) (Record, bool) {
	salt, hash, found := strings.Cut(stored, ":")
	if !found || salt == "" || hash == "" {
		return Record{}, false
	}
	return Record{Salt: salt, Hash: hash}, true
}
