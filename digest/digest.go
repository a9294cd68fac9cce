// Package digest computes the wide file digests agreed on by the nodes.
package digest

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm names a 512-bit digest function.
type Algorithm string

const (
	SHA512 Algorithm = "sha512"
	BLAKE3 Algorithm = "blake3"
)

// HexLen is the length of every digest produced by Sum.
const HexLen = 128

// ParseAlgorithm parses a digest name from the configuration.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case SHA512, "":
		return SHA512, nil
	case BLAKE3:
		return BLAKE3, nil
	}
	return "", fmt.Errorf("unknown hash algorithm %q", s)
}

// Sum returns the lowercase hex digest of data.
func Sum(alg Algorithm, data []byte) (string, error) {
	switch alg {
	case SHA512:
		sum := sha512.Sum512(data)
		return hex.EncodeToString(sum[:]), nil
	case BLAKE3:
		sum := blake3.Sum512(data)
		return hex.EncodeToString(sum[:]), nil
	}
	return "", fmt.Errorf("unknown hash algorithm %q", alg)
}
