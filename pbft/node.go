package pbft

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gitzhang10/tpmchain/config"
	"github.com/gitzhang10/tpmchain/sign"
	"github.com/gitzhang10/tpmchain/tpm"
	"github.com/hashicorp/go-hclog"
	"go.dedis.ch/kyber/v3/share"
)

// Node is one simulated TPM-backed validator.
type Node struct {
	id       int
	set      *NodeSet
	identity tpm.Identity
	tsShare  *share.PriShare // share of the commit threshold key
	fault    atomic.Int32
	logger   hclog.Logger

	// rogue identity used by the forge and equivocate faults, created on first use
	rogueOnce sync.Once
	rogue     tpm.Identity
	rogueErr  error
}

// ID returns the index of the node in its set.
func (n *Node) ID() int {
	return n.id
}

// Name returns the node name used in configuration files.
func (n *Node) Name() string {
	return fmt.Sprintf("node%d", n.id)
}

// Public returns the verifier other nodes use for this node's signatures.
func (n *Node) Public() tpm.Verifier {
	return n.identity.Public()
}

// Fault returns the current behaviour of the node.
func (n *Node) Fault() Fault {
	return Fault(n.fault.Load())
}

// SetFault changes the behaviour of the node. It is safe to call while
// rounds are running; a round in flight may observe either value.
func (n *Node) SetFault(f Fault) {
	old := Fault(n.fault.Swap(int32(f)))
	if old != f {
		n.logger.Info("fault changed", "from", old, "to", f)
	}
}

func (n *Node) rogueIdentity() (tpm.Identity, error) {
	n.rogueOnce.Do(func() {
		n.rogue, n.rogueErr = tpm.New(n.identity.Kind(), n.set.rsaBits)
	})
	return n.rogue, n.rogueErr
}

// Propose signs hash as the primary of a round.
func (n *Node) Propose(hash string) (*PrePrepare, error) {
	msg := []byte(hash)
	signer := n.identity
	switch n.Fault() {
	case FaultForge:
		rogue, err := n.rogueIdentity()
		if err != nil {
			return nil, err
		}
		signer = rogue
	case FaultCorrupt:
		msg = []byte(corruptDigest(hash))
	}
	sig, err := signer.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("%s: sign pre-prepare: %w", n.Name(), err)
	}
	return &PrePrepare{Hash: hash, Signature: sig}, nil
}

// CastPrepareVote checks the primary's signature of the round and records a
// signed prepare vote in the node's slot.
func (n *Node) CastPrepareVote(ctx context.Context, r *Round) (bool, error) {
	fault := n.Fault()
	switch fault {
	case FaultSilent:
		<-ctx.Done()
		return false, ctx.Err()
	case FaultCrash:
		panic(fmt.Sprintf("%s crashed during prepare", n.Name()))
	}

	pp := r.prePrepare
	approve := pp != nil && pp.Hash == r.Hash &&
		n.set.Primary().Public().Verify([]byte(r.Hash), pp.Signature)

	signer := n.identity
	switch fault {
	case FaultByzantine:
		approve = false
	case FaultEquivocate:
		approve = true
		rogue, err := n.rogueIdentity()
		if err != nil {
			return false, err
		}
		signer = rogue
	}

	vote := &Prepare{Hash: r.Hash, NodeID: n.id, Approve: approve}
	data, err := vote.signedBytes()
	if err != nil {
		return false, err
	}
	if vote.Sig, err = signer.Sign(data); err != nil {
		return false, fmt.Errorf("%s: sign prepare: %w", n.Name(), err)
	}
	r.prepares[n.id] = vote
	n.logger.Debug("prepare vote", "hash", shortHash(r.Hash), "approve", approve)
	return approve, nil
}

// CastCommitVote records a signed commit vote in the node's slot. An
// approving vote carries the node's partial threshold signature over the
// hash. In quorum mode an honest node approves only after it has itself seen
// a quorum of valid approving prepare votes.
func (n *Node) CastCommitVote(ctx context.Context, r *Round, mode string) (bool, error) {
	fault := n.Fault()
	switch fault {
	case FaultSilent:
		<-ctx.Done()
		return false, ctx.Err()
	case FaultCrash:
		panic(fmt.Sprintf("%s crashed during commit", n.Name()))
	}

	approve := r.state == StatePrepared
	if approve && mode == config.CommitQuorum {
		approve = n.observedPrepareQuorum(r)
	}
	switch fault {
	case FaultByzantine, FaultWithhold:
		approve = false
	case FaultEquivocate:
		approve = true
	}

	vote := &Commit{Hash: r.Hash, NodeID: n.id, Approve: approve}
	var err error
	if approve {
		if vote.Partial, err = sign.SignTSPartial(n.tsShare, []byte(r.Hash)); err != nil {
			return false, fmt.Errorf("%s: partial signature: %w", n.Name(), err)
		}
	}
	data, err := vote.signedBytes()
	if err != nil {
		return false, err
	}
	if vote.Sig, err = n.identity.Sign(data); err != nil {
		return false, fmt.Errorf("%s: sign commit: %w", n.Name(), err)
	}
	r.commits[n.id] = vote
	n.logger.Debug("commit vote", "hash", shortHash(r.Hash), "approve", approve)
	return approve, nil
}

// observedPrepareQuorum counts the approving prepare votes whose signature
// verifies under the voter's registered identity.
func (n *Node) observedPrepareQuorum(r *Round) bool {
	valid := 0
	for id, p := range r.prepares {
		if p == nil || !p.Approve || p.Hash != r.Hash || p.NodeID != id {
			continue
		}
		data, err := p.signedBytes()
		if err != nil {
			continue
		}
		if n.set.Node(id).Public().Verify(data, p.Sig) {
			valid++
		} else {
			n.logger.Trace("discarding prepare vote with bad signature", "from", id)
		}
	}
	return valid >= n.set.Quorum()
}
