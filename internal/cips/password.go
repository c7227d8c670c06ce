package cips

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// ErrCrypto indicates the password primitive refused to operate, the
// C3 CryptoError case.
var ErrCrypto = errors.New("cips: password primitive refused")

// saltAlphabet is the 64-character alphabet the original uses for its
// salt: '.', '/', digits, uppercase, lowercase.
const saltAlphabet = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const saltLen = 2

const pbkdf2Iterations = 100_000

// HashPassword produces a stored hash string beginning with a
// 2-character salt, following spec C3's hash(password, salt_or_nil)
// contract. Passing an empty salt generates a fresh one.
func HashPassword(password string, salt string) (string, error) {
	if salt == "" {
		generated, err := generateSalt()
		if err != nil {
			return "", fmt.Errorf("cips: generate salt: %w", err)
		}
		salt = generated
	}
	if len(salt) != saltLen {
		return "", fmt.Errorf("%w: salt must be %d characters", ErrCrypto, saltLen)
	}
	for _, r := range salt {
		if !isSaltChar(byte(r)) {
			return "", fmt.Errorf("%w: salt %q uses characters outside the salt alphabet", ErrCrypto, salt)
		}
	}

	derived := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, sha256.Size, sha256.New)
	encoded := base64.RawStdEncoding.EncodeToString(derived)
	return salt + encoded, nil
}

// VerifyPassword reports whether password matches storedHash, by
// recomputing the hash with the salt taken from storedHash's first two
// characters and comparing in constant time.
func VerifyPassword(password, storedHash string) (bool, error) {
	if len(storedHash) < saltLen {
		return false, fmt.Errorf("%w: stored hash too short", ErrCrypto)
	}
	salt := storedHash[:saltLen]

	recomputed, err := HashPassword(password, salt)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(recomputed), []byte(storedHash)) == 1, nil
}

// generateSalt draws saltLen characters uniformly from saltAlphabet
// using rejection sampling, fixing the modulo-biased generator of the
// original implementation (spec §9(b)).
func generateSalt() (string, error) {
	buf := make([]byte, saltLen)
	for i := 0; i < saltLen; i++ {
		c, err := randomSaltChar()
		if err != nil {
			return "", err
		}
		buf[i] = c
	}
	return string(buf), nil
}

func randomSaltChar() (byte, error) {
	const alphabetLen = len(saltAlphabet)
	// Largest multiple of alphabetLen that fits in [0,256); draws at or
	// above this are rejected and redrawn so every alphabet character
	// has exactly equal probability (fixes the biased rand()%n salt
	// generator in the original implementation).
	limit := 256 - (256 % alphabetLen)

	var b [1]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, err
		}
		if int(b[0]) < limit {
			return saltAlphabet[int(b[0])%alphabetLen], nil
		}
	}
}

func isSaltChar(c byte) bool {
	for i := 0; i < len(saltAlphabet); i++ {
		if saltAlphabet[i] == c {
			return true
		}
	}
	return false
}
