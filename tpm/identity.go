/*
Package tpm implements the simulated trust identity held by every node.
An Identity only exposes signing and verification, so a hardware or enclave
backed implementation can replace the in-process keypairs without touching
the consensus engine.
*/
package tpm

import (
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/gitzhang10/tpmchain/sign"
)

// Kind names the signature scheme backing an identity.
type Kind string

const (
	KindRSA     Kind = "rsa"
	KindEd25519 Kind = "ed25519"
)

// DefaultRSABits is the modulus length of the simulated TPM key.
const DefaultRSABits = 2048

// ParseKind parses an identity kind from the configuration.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindRSA, "":
		return KindRSA, nil
	case KindEd25519:
		return KindEd25519, nil
	}
	return "", fmt.Errorf("unknown identity kind %q", s)
}

// Verifier is the public half of an identity.
type Verifier interface {
	// Verify reports whether sig was produced over msg by the matching
	// private key. It returns false for malformed signatures.
	Verify(msg, sig []byte) bool
}

// Identity is a signing capability created once and never re-keyed.
type Identity interface {
	Verifier
	Sign(msg []byte) ([]byte, error)
	Public() Verifier
	Kind() Kind
}

// New generates a fresh identity. rsaBits is ignored for non-RSA kinds and
// defaults to DefaultRSABits when not positive.
func New(kind Kind, rsaBits int) (Identity, error) {
	switch kind {
	case KindRSA:
		if rsaBits <= 0 {
			rsaBits = DefaultRSABits
		}
		priv, err := sign.GenRSAKeys(rsaBits)
		if err != nil {
			return nil, fmt.Errorf("generate rsa identity: %w", err)
		}
		return &rsaIdentity{priv: priv, pub: rsaVerifier{pub: &priv.PublicKey}}, nil
	case KindEd25519:
		priv, pub := sign.GenED25519Keys()
		return &ed25519Identity{priv: priv, pub: ed25519Verifier{pub: pub}}, nil
	}
	return nil, fmt.Errorf("unknown identity kind %q", kind)
}

type rsaVerifier struct {
	pub *rsa.PublicKey
}

func (v rsaVerifier) Verify(msg, sig []byte) bool {
	ok, err := sign.VerifySignRSA(v.pub, msg, sig)
	return err == nil && ok
}

type rsaIdentity struct {
	priv *rsa.PrivateKey
	pub  rsaVerifier
}

func (id *rsaIdentity) Sign(msg []byte) ([]byte, error) {
	return sign.SignRSA(id.priv, msg)
}

func (id *rsaIdentity) Verify(msg, sig []byte) bool { return id.pub.Verify(msg, sig) }
func (id *rsaIdentity) Public() Verifier           { return id.pub }
func (id *rsaIdentity) Kind() Kind                 { return KindRSA }

type ed25519Verifier struct {
	pub ed25519.PublicKey
}

func (v ed25519Verifier) Verify(msg, sig []byte) bool {
	ok, err := sign.VerifySignEd25519(v.pub, msg, sig)
	return err == nil && ok
}

type ed25519Identity struct {
	priv ed25519.PrivateKey
	pub  ed25519Verifier
}

func (id *ed25519Identity) Sign(msg []byte) ([]byte, error) {
	return sign.SignEd25519(id.priv, msg), nil
}

func (id *ed25519Identity) Verify(msg, sig []byte) bool { return id.pub.Verify(msg, sig) }
func (id *ed25519Identity) Public() Verifier           { return id.pub }
func (id *ed25519Identity) Kind() Kind                 { return KindEd25519 }
