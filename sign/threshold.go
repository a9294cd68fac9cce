package sign

import (
	"errors"

	"go.dedis.ch/kyber/v3/pairing/bn256"
	"go.dedis.ch/kyber/v3/share"
	"go.dedis.ch/kyber/v3/sign/bls"
	"go.dedis.ch/kyber/v3/sign/tbls"
)

var suite = bn256.NewSuite()

// GenTSKeys generates the threshold signature keys: n private shares, any t of
// which can assemble a signature verifiable under the returned public polynomial.
func GenTSKeys(t, n int) ([]*share.PriShare, *share.PubPoly) {
	secret := suite.G2().Scalar().Pick(suite.RandomStream())
	priPoly := share.NewPriPoly(suite.G2(), t, secret, suite.RandomStream())
	pubPoly := priPoly.Commit(suite.G2().Point().Base())
	return priPoly.Shares(n), pubPoly
}

// SignTSPartial produces a partial signature of msg with one private share.
func SignTSPartial(privateKey *share.PriShare, msg []byte) ([]byte, error) {
	return tbls.Sign(suite, privateKey, msg)
}

// VerifyTSPartial checks a partial signature against the public polynomial.
func VerifyTSPartial(publicKey *share.PubPoly, msg, partialSig []byte) (bool, error) {
	if publicKey == nil {
		return false, errors.New("nil threshold public key")
	}
	if len(partialSig) < 2 {
		return false, nil
	}
	if err := tbls.Verify(suite, publicKey, msg, partialSig); err != nil {
		return false, nil
	}
	return true, nil
}

// PartialIndex returns the index of the share that produced partialSig.
func PartialIndex(partialSig []byte) (int, error) {
	if len(partialSig) < 2 {
		return 0, errors.New("partial signature too short")
	}
	return tbls.SigShare(partialSig).Index()
}

// AssembleIntactTSPartial recovers the full threshold signature from at least t
// partial signatures.
func AssembleIntactTSPartial(partialSigs [][]byte, publicKey *share.PubPoly, msg []byte, t, n int) ([]byte, error) {
	if len(partialSigs) < t {
		return nil, errors.New("not enough partial signatures to assemble")
	}
	return tbls.Recover(suite, publicKey, msg, partialSigs, t, n)
}

// VerifyTS verifies an assembled threshold signature.
func VerifyTS(publicKey *share.PubPoly, msg, sig []byte) (bool, error) {
	if publicKey == nil {
		return false, errors.New("nil threshold public key")
	}
	if err := bls.Verify(suite, publicKey.Commit(), msg, sig); err != nil {
		return false, nil
	}
	return true, nil
}
