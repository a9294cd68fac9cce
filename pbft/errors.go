package pbft

import (
	"errors"

	"github.com/gitzhang10/tpmchain/ledger"
)

// Phase names the protocol step a round failed in.
type Phase string

const (
	PhasePrePrepare Phase = "pre-prepare"
	PhasePrepare    Phase = "prepare"
	PhaseCommit     Phase = "commit"
	PhaseInternal   Phase = "internal"
)

// Reasons reported to callers, one per phase.
const (
	ReasonPrePrepare = "pre-prepare phase failed: invalid primary signature"
	ReasonPrepare    = "prepare phase failed: insufficient approvals"
	ReasonCommit     = "commit phase failed: insufficient commitments"
	ReasonInternal   = "internal consensus error"
)

var (
	ErrInvalidPrimarySignature = errors.New("invalid primary signature")
	ErrInsufficientApprovals   = errors.New("insufficient approvals")
	ErrInsufficientCommitments = errors.New("insufficient commitments")
	ErrMalformedHash           = errors.New("malformed hash")
	ErrMissingCommitCert       = errors.New("missing commit certificate")
	ErrInvalidCommitCert       = errors.New("invalid commit certificate")
)

// RoundError is the structured outcome of a rejected round.
type RoundError struct {
	Phase     Phase
	Reason    string
	Approvals ledger.Approvals // tallies at the time of rejection
	Err       error            // underlying cause
}

func (e *RoundError) Error() string {
	return e.Reason
}

func (e *RoundError) Unwrap() error {
	return e.Err
}

func reasonFor(phase Phase) string {
	switch phase {
	case PhasePrePrepare:
		return ReasonPrePrepare
	case PhasePrepare:
		return ReasonPrepare
	case PhaseCommit:
		return ReasonCommit
	}
	return ReasonInternal
}

// IsInternal reports whether err is a round failure caused by an unexpected
// fault rather than a protocol-level rejection.
func IsInternal(err error) bool {
	var re *RoundError
	if errors.As(err, &re) {
		return re.Phase == PhaseInternal
	}
	return err != nil
}
