package pbft

import (
	"fmt"

	"github.com/gitzhang10/tpmchain/sign"
	"github.com/gitzhang10/tpmchain/tpm"
	"github.com/hashicorp/go-hclog"
	"go.dedis.ch/kyber/v3/share"
	"golang.org/x/sync/errgroup"
)

// PrimaryID is the index of the fixed primary.
const PrimaryID = 0

// NodeSet is the fixed membership of the consensus group together with the
// public material every member knows: identities and the threshold key.
type NodeSet struct {
	nodes    []*Node
	quorum   int
	rsaBits  int
	tsPublic *share.PubPoly
}

// NewNodeSet provisions nodeNum nodes with fresh identities of the given kind
// and a quorum-of-nodeNum threshold key for commit certificates.
func NewNodeSet(nodeNum int, kind tpm.Kind, rsaBits int, logger hclog.Logger) (*NodeSet, error) {
	if nodeNum < 1 {
		return nil, fmt.Errorf("node set needs at least one node, got %d", nodeNum)
	}
	s := &NodeSet{
		nodes:   make([]*Node, nodeNum),
		quorum:  Quorum(nodeNum),
		rsaBits: rsaBits,
	}

	// RSA key generation dominates start-up, so provision identities in parallel
	identities := make([]tpm.Identity, nodeNum)
	var g errgroup.Group
	for i := 0; i < nodeNum; i++ {
		i := i
		g.Go(func() error {
			id, err := tpm.New(kind, rsaBits)
			if err != nil {
				return fmt.Errorf("node%d: %w", i, err)
			}
			identities[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	shares, pubPoly := sign.GenTSKeys(s.quorum, nodeNum)
	s.tsPublic = pubPoly
	for i := 0; i < nodeNum; i++ {
		s.nodes[i] = &Node{
			id:       i,
			set:      s,
			identity: identities[i],
			tsShare:  shares[i],
			logger:   logger.Named(fmt.Sprintf("node%d", i)),
		}
	}
	return s, nil
}

// Size returns the number of nodes.
func (s *NodeSet) Size() int {
	return len(s.nodes)
}

// Quorum returns the number of votes each phase needs.
func (s *NodeSet) Quorum() int {
	return s.quorum
}

// Node returns the node with index id.
func (s *NodeSet) Node(id int) *Node {
	return s.nodes[id]
}

// Primary returns the proposer of every round.
func (s *NodeSet) Primary() *Node {
	return s.nodes[PrimaryID]
}

// ThresholdPublicKey returns the key commit certificates verify against.
func (s *NodeSet) ThresholdPublicKey() *share.PubPoly {
	return s.tsPublic
}
