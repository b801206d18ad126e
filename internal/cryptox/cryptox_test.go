package cryptox_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tasklane/identity/internal/cryptox"
)

type payload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestSealOpenRoundTrip(t *testing.T) {
	in := payload{UserID: "user-1", Email: "john.doe@example.com"}

	ciphertext, nonce, err := cryptox.Seal(in, testKey())
	require.NoError(t, err)
	require.NotEmpty(t, ciphertext)
	require.Len(t, nonce, 12)

	var out payload
	require.NoError(t, cryptox.Open(ciphertext, nonce, testKey(), &out))
	require.Equal(t, in, out)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	ciphertext, nonce, err := cryptox.Seal(payload{UserID: "user-1"}, testKey())
	require.NoError(t, err)

	otherKey := testKey()
	otherKey[0] ^= 0xff

	var out payload
	require.Error(t, cryptox.Open(ciphertext, nonce, otherKey, &out))
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	ciphertext, nonce, err := cryptox.Seal(payload{UserID: "user-1"}, testKey())
	require.NoError(t, err)

	ciphertext[0] ^= 0x01

	var out payload
	require.Error(t, cryptox.Open(ciphertext, nonce, testKey(), &out))
}

func TestSealRejectsShortKey(t *testing.T) {
	_, _, err := cryptox.Seal(payload{}, []byte("short"))
	require.Error(t, err)
}
