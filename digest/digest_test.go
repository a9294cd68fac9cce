package digest

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumSHA512(t *testing.T) {
	data := []byte("hello tpmchain")
	want := sha512.Sum512(data)

	got, err := Sum(SHA512, data)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
	assert.Len(t, got, HexLen)
}

func TestSumDeterministic(t *testing.T) {
	data := []byte{0x00, 0xff, 0x10, 0x20}
	for _, alg := range []Algorithm{SHA512, BLAKE3} {
		first, err := Sum(alg, data)
		require.NoError(t, err)
		second, err := Sum(alg, append([]byte(nil), data...))
		require.NoError(t, err)
		assert.Equal(t, first, second, alg)
		assert.Len(t, first, HexLen, alg)

		other, err := Sum(alg, []byte{0x00, 0xff, 0x10, 0x21})
		require.NoError(t, err)
		assert.NotEqual(t, first, other, alg)
	}

	sha, _ := Sum(SHA512, data)
	b3, _ := Sum(BLAKE3, data)
	assert.NotEqual(t, sha, b3)
}

func TestSumEmpty(t *testing.T) {
	got, err := Sum(SHA512, nil)
	require.NoError(t, err)
	assert.Equal(t, "cf83e1357eefb8bdf1542850d66d8007d620e4050b5715dc83f4a921d36ce9ce"+
		"47d0d13c5d85f2b0ff8318d2877eec2f63b931bd47417a81a538327af927da3e", got)
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, SHA512, alg)
	alg, err = ParseAlgorithm("BLAKE3")
	require.NoError(t, err)
	assert.Equal(t, BLAKE3, alg)
	_, err = ParseAlgorithm("md5")
	assert.Error(t, err)
	_, err = Sum(Algorithm("md5"), nil)
	assert.Error(t, err)
}
