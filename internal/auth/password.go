// Package auth provides password hashing, token generation and request
// identity helpers.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

// Errors returned by VerifyPassword for hashes it cannot read.
var (
	ErrInvalidHash         = errors.New("invalid hash format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// argonParams are the tunables encoded into every PHC string.
type argonParams struct {
	memory  uint32 // KiB
	time    uint32
	threads uint8
	keyLen  uint32
}

// defaultParams follow the OWASP argon2id minimum.
var defaultParams = argonParams{memory: 64 * 1024, time: 3, threads: 4, keyLen: 32}

const saltLen = 16

var b64 = base64.RawStdEncoding

func (p argonParams) key(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

// HashPassword returns an argon2id hash of password in PHC format:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	p := defaultParams
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		b64.EncodeToString(salt), b64.EncodeToString(p.key(password, salt))), nil
}

// VerifyPassword reports whether password matches encodedHash. The
// parameters stored in the hash are used, so older hashes keep verifying
// after defaultParams change.
func VerifyPassword(password, encodedHash string) (bool, error) {
	p, salt, want, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(p.key(password, salt), want) == 1, nil
}

func decodeHash(encoded string) (p argonParams, salt, key []byte, err error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return p, nil, nil, ErrIncompatibleVersion
	}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, ErrInvalidHash
	}

	if salt, err = b64.DecodeString(fields[4]); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if key, err = b64.DecodeString(fields[5]); err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	p.keyLen = uint32(len(key))
	return p, salt, key, nil
}

var (
	decoyOnce sync.Once
	decoyHash string
)

// BurnVerify runs one verification against a fixed hash so that a login for
// an unknown email costs about as much as one for a known email.
func BurnVerify(password string) {
	decoyOnce.Do(func() {
		decoyHash, _ = HashPassword("expensetrack-decoy")
	})
	if decoyHash != "" {
		_, _ = VerifyPassword(password, decoyHash)
	}
}
