package pbft

// PrePrepare is the primary's proposal for a round.
type PrePrepare struct {
	Hash      string
	Signature []byte // primary's signature over Hash
}

// Prepare is one node's verdict on the primary's signature.
type Prepare struct {
	Hash    string
	NodeID  int
	Approve bool
	Sig     []byte // voter's signature over the other fields
}

// Commit is one node's commitment to the prepared hash.
type Commit struct {
	Hash    string
	NodeID  int
	Approve bool
	Partial []byte // threshold signature share over Hash, set when approving
	Sig     []byte
}

func (p Prepare) signedBytes() ([]byte, error) {
	p.Sig = nil
	return encode(p)
}

func (c Commit) signedBytes() ([]byte, error) {
	c.Sig = nil
	return encode(c)
}
