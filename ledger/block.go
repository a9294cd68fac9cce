package ledger

import "time"

// Approvals are the vote tallies of the round that accepted a block.
type Approvals struct {
	Prepare    int `json:"prepare"`
	Commit     int `json:"commit"`
	TotalNodes int `json:"totalNodes"`
}

// Block is an accepted, signed record of one file digest.
type Block struct {
	Index      int       `json:"index"`
	Hash       string    `json:"hash"`      // file digest, hex
	Signature  []byte    `json:"signature"` // primary's signature over Hash
	Timestamp  time.Time `json:"timestamp"`
	Approvals  Approvals `json:"approvals"`
	CommitCert []byte    `json:"commitCert,omitempty"` // threshold signature of the commit quorum
	PrevHash   string    `json:"prevHash"`
	BlockHash  string    `json:"blockHash"`
}

func (b Block) clone() Block {
	c := b
	c.Signature = append([]byte(nil), b.Signature...)
	c.CommitCert = append([]byte(nil), b.CommitCert...)
	return c
}
