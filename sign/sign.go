/*
Package sign implements the signature primitives used by the nodes:
ED25519 and RSA keys for the per-node identities, and (t, n) threshold
BLS keys over bn256 used to assemble commit certificates.
*/
package sign

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"errors"
)

var pssOptions = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: crypto.SHA512}

// GenED25519Keys generates a pair of ED25519 keys.
func GenED25519Keys() (ed25519.PrivateKey, ed25519.PublicKey) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	return privKey, pubKey
}

// SignEd25519 signs msg with the private key.
func SignEd25519(privateKey ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(privateKey, msg)
}

// VerifySignEd25519 reports whether sig is a valid signature of msg by pubKey.
func VerifySignEd25519(pubKey ed25519.PublicKey, msg, sig []byte) (bool, error) {
	if len(pubKey) != ed25519.PublicKeySize {
		return false, errors.New("invalid ed25519 public key length")
	}
	if len(sig) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(pubKey, msg, sig), nil
}

// GenRSAKeys generates an RSA key of the given modulus length.
func GenRSAKeys(bits int) (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, bits)
}

// SignRSA produces a randomized RSA-PSS signature over the SHA-512 digest of msg.
func SignRSA(privateKey *rsa.PrivateKey, msg []byte) ([]byte, error) {
	digest := sha512.Sum512(msg)
	return rsa.SignPSS(rand.Reader, privateKey, crypto.SHA512, digest[:], pssOptions)
}

// VerifySignRSA reports whether sig is a valid RSA-PSS/SHA-512 signature of msg.
// A malformed signature is reported as (false, nil).
func VerifySignRSA(pubKey *rsa.PublicKey, msg, sig []byte) (bool, error) {
	if pubKey == nil {
		return false, errors.New("nil rsa public key")
	}
	digest := sha512.Sum512(msg)
	if err := rsa.VerifyPSS(pubKey, crypto.SHA512, digest[:], sig, pssOptions); err != nil {
		return false, nil
	}
	return true, nil
}
