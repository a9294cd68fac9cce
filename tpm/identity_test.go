package tpm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"":        KindRSA,
		"rsa":     KindRSA,
		" RSA ":   KindRSA,
		"ed25519": KindEd25519,
		"Ed25519": KindEd25519,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseKind("dsa")
	assert.Error(t, err)
}

func TestIdentitySignVerify(t *testing.T) {
	for _, kind := range []Kind{KindRSA, KindEd25519} {
		t.Run(string(kind), func(t *testing.T) {
			id, err := New(kind, 2048)
			require.NoError(t, err)
			other, err := New(kind, 2048)
			require.NoError(t, err)
			assert.Equal(t, kind, id.Kind())

			msg := []byte("9b71d224bd62f3785d96d46ad3ea3d73319bfbc2890caadae2dff72519673ca7")
			sig, err := id.Sign(msg)
			require.NoError(t, err)

			assert.True(t, id.Verify(msg, sig))
			assert.True(t, id.Public().Verify(msg, sig))
			assert.False(t, id.Verify([]byte("different"), sig))
			assert.False(t, other.Verify(msg, sig), "signature must not verify under another identity")

			forged, err := other.Sign(msg)
			require.NoError(t, err)
			assert.False(t, id.Verify(msg, forged))
		})
	}
}

func TestVerifyMalformedSignature(t *testing.T) {
	for _, kind := range []Kind{KindRSA, KindEd25519} {
		id, err := New(kind, 2048)
		require.NoError(t, err)
		msg := []byte("digest")
		for _, sig := range [][]byte{nil, {}, {0x01}, make([]byte, 64), make([]byte, 512)} {
			assert.NotPanics(t, func() {
				assert.False(t, id.Verify(msg, sig))
			})
		}
	}
}

func TestUnknownKind(t *testing.T) {
	_, err := New(Kind("tpm2"), 0)
	assert.Error(t, err)
}
