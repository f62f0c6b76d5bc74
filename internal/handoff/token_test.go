package handoff

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secret := "a-32-char-shared-secret-for-test"
	plaintext := []byte(`{"stripeSessionId":"cs_test_1"}`)

	token, err := Encrypt(secret, plaintext)
	require.NoError(t, err)

	got, err := Decrypt(secret, token)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestTokenFormat(t *testing.T) {
	token, err := Encrypt("secret", []byte("payload"))
	require.NoError(t, err)

	parts := strings.Split(token, ":")
	require.Len(t, parts, 3)

	iv, err := hex.DecodeString(parts[0])
	require.NoError(t, err)
	require.Len(t, iv, 12)

	tag, err := hex.DecodeString(parts[1])
	require.NoError(t, err)
	require.Len(t, tag, 16)

	ciphertext, err := hex.DecodeString(parts[2])
	require.NoError(t, err)
	require.Len(t, ciphertext, len("payload"))
}

func TestEncryptProducesFreshIVs(t *testing.T) {
	first, err := Encrypt("secret", []byte("payload"))
	require.NoError(t, err)
	second, err := Encrypt("secret", []byte("payload"))
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestDecryptWrongSecret(t *testing.T) {
	token, err := Encrypt("right-secret", []byte("payload"))
	require.NoError(t, err)

	_, err = Decrypt("wrong-secret", token)
	require.Error(t, err)
}

func TestDecryptRejectsTampering(t *testing.T) {
	token, err := Encrypt("secret", []byte("payload"))
	require.NoError(t, err)

	parts := strings.Split(token, ":")
	raw, err := hex.DecodeString(parts[2])
	require.NoError(t, err)
	raw[0] ^= 0xff
	parts[2] = hex.EncodeToString(raw)

	_, err = Decrypt("secret", strings.Join(parts, ":"))
	require.Error(t, err)
}

func TestDecryptMalformedToken(t *testing.T) {
	for _, token := range []string{"", "abc", "a:b", "zz:zz:zz", "deadbeef:00:00"} {
		_, err := Decrypt("secret", token)
		require.Error(t, err, token)
	}
}
