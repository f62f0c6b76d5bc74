package handoff

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const ivSize = 12

var errMalformedToken = errors.New("handoff: malformed token")

// Encrypt seals plaintext with AES-256-GCM under a sha256-derived key and
// encodes it as "iv:authTag:ciphertext" in hex. The claim application decrypts
// with the same shared secret.
func Encrypt(secret string, plaintext []byte) (string, error) {
	gcm, err := newGCM(secret)
	if err != nil {
		return "", err
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("handoff: generate iv: %w", err)
	}
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - gcm.Overhead()
	return strings.Join([]string{
		hex.EncodeToString(iv),
		hex.EncodeToString(sealed[tagStart:]),
		hex.EncodeToString(sealed[:tagStart]),
	}, ":"), nil
}

// Decrypt reverses Encrypt. It exists for tests and for operating tooling;
// the production consumer lives in the claim application.
func Decrypt(secret, token string) ([]byte, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return nil, errMalformedToken
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return nil, errMalformedToken
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, errMalformedToken
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, errMalformedToken
	}
	gcm, err := newGCM(secret)
	if err != nil {
		return nil, err
	}
	if len(tag) != gcm.Overhead() {
		return nil, errMalformedToken
	}
	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("handoff: decrypt token: %w", err)
	}
	return plaintext, nil
}

func newGCM(secret string) (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("handoff: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("handoff: init gcm: %w", err)
	}
	return gcm, nil
}
