package cryptox

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKeyIV(t *testing.T) ([]byte, []byte) {
	t.Helper()
	key := make([]byte, 32)
	iv := make([]byte, 16)
	_, err := rand.Read(key)
	require.NoError(t, err)
	_, err = rand.Read(iv)
	require.NoError(t, err)
	return key, iv
}

func TestEncryptDecryptCBC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		plaintext string
	}{
		{"short", "hi"},
		{"json credentials", `{"email":"a@b.de","password":"geheim","username":"anna"}`},
		{"exact block size", strings.Repeat("x", 16)},
		{"multiple blocks", strings.Repeat("y", 48)},
		{"empty", ""},
		{"unicode", "Grüße aus München 🚲"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, iv := testKeyIV(t)

			enc, err := EncryptCBC(key, iv, []byte(tt.plaintext))
			require.NoError(t, err)
			require.NotEmpty(t, enc)
			require.Zero(t, len(enc)%16, "ciphertext should be block aligned")

			dec, err := DecryptCBC(key, iv, enc)
			require.NoError(t, err)
			require.Equal(t, tt.plaintext, string(dec))
		})
	}
}

func TestDecryptCBCWrongKey(t *testing.T) {
	t.Parallel()

	key, iv := testKeyIV(t)
	enc, err := EncryptCBC(key, iv, []byte("the plaintext"))
	require.NoError(t, err)

	otherKey := make([]byte, 32)
	_, err = rand.Read(otherKey)
	require.NoError(t, err)

	dec, err := DecryptCBC(otherKey, iv, enc)
	if err == nil {
		// Padding can decode by chance under a wrong key; the plaintext
		// must still differ.
		require.False(t, bytes.Equal(dec, []byte("the plaintext")))
		return
	}
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecryptCBCMalformed(t *testing.T) {
	t.Parallel()

	key, iv := testKeyIV(t)

	t.Run("empty ciphertext", func(t *testing.T) {
		_, err := DecryptCBC(key, iv, nil)
		require.ErrorIs(t, err, ErrDecode)
	})

	t.Run("ciphertext not block aligned", func(t *testing.T) {
		_, err := DecryptCBC(key, iv, make([]byte, 17))
		require.ErrorIs(t, err, ErrDecode)
	})

	t.Run("corrupted final block", func(t *testing.T) {
		enc, err := EncryptCBC(key, iv, []byte("some payload to mangle"))
		require.NoError(t, err)
		enc[len(enc)-1] ^= 0xff

		dec, err := DecryptCBC(key, iv, enc)
		if err == nil {
			require.NotEqual(t, "some payload to mangle", string(dec))
			return
		}
		require.ErrorIs(t, err, ErrDecode)
	})
}
