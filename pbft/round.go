package pbft

import "github.com/gitzhang10/tpmchain/ledger"

// State is the lifecycle of a round.
type State int

const (
	StateInit State = iota
	StatePrePrepared
	StatePrepared
	StateCommitted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StatePrePrepared:
		return "pre-prepared"
	case StatePrepared:
		return "prepared"
	case StateCommitted:
		return "committed"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// Round holds the votes of one consensus instance. Every node owns one slot
// in prepares and commits and is the only writer of that slot, so rounds need
// no lock: the engine reads the slots only after the phase has joined.
type Round struct {
	Hash        string
	state       State
	prePrepare  *PrePrepare
	prepares    []*Prepare // indexed by node id
	commits     []*Commit  // indexed by node id
	commitTally int        // commit votes carrying a valid partial signature
	commitCert  []byte
}

func newRound(hash string, nodeNum int) *Round {
	return &Round{
		Hash:     hash,
		state:    StateInit,
		prepares: make([]*Prepare, nodeNum),
		commits:  make([]*Commit, nodeNum),
	}
}

// State returns the current state of the round.
func (r *Round) State() State {
	return r.state
}

// PrePrepare returns the accepted proposal, nil before pre-prepare succeeded.
func (r *Round) PrePrepare() *PrePrepare {
	return r.prePrepare
}

// ApprovalCounts returns the tallies gathered so far.
func (r *Round) ApprovalCounts() ledger.Approvals {
	prepare := 0
	for _, p := range r.prepares {
		// counted at face value; vote signatures are only checked by the nodes
		// themselves in quorum commit mode
		if p != nil && p.Approve {
			prepare++
		}
	}
	return ledger.Approvals{
		Prepare:    prepare,
		Commit:     r.commitTally,
		TotalNodes: len(r.prepares),
	}
}
