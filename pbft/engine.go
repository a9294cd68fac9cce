/*
Package pbft implements a three-phase Byzantine fault tolerant agreement on
file digests among a fixed set of simulated TPM nodes. Node 0 is the primary:
it signs the digest (pre-prepare), every node checks that signature and casts
a signed prepare vote, and once a quorum approved every node casts a commit
vote carrying a partial threshold signature. A round that gathers a quorum of
commitments yields a block whose commit certificate is the assembled
threshold signature.
*/
package pbft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gitzhang10/tpmchain/config"
	"github.com/gitzhang10/tpmchain/ledger"
	"github.com/gitzhang10/tpmchain/sign"
	"github.com/gitzhang10/tpmchain/tpm"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

// Engine drives consensus rounds over a node set. Rounds share no mutable
// state, so Run may be called concurrently.
type Engine struct {
	set          *NodeSet
	commitMode   string
	phaseTimeout time.Duration
	silentBound  time.Duration // phase bound used when phaseTimeout is 0 and a node is silent
	logger       hclog.Logger
}

// NewEngine provisions the node set described by conf and applies the
// configured faults.
func NewEngine(conf *config.Config) (*Engine, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	kind, err := tpm.ParseKind(conf.Identity)
	if err != nil {
		return nil, err
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "PBFT-engine",
		Output: hclog.DefaultOutput,
		Level:  hclog.Level(conf.LogLevel),
	})
	set, err := NewNodeSet(conf.NodeNum, kind, conf.RSABits, logger)
	if err != nil {
		return nil, err
	}

	for id, name := range conf.Faulty {
		f, err := ParseFault(name)
		if err != nil {
			return nil, fmt.Errorf("node%d: %w", id, err)
		}
		if f.primaryOnly() && id != PrimaryID {
			return nil, fmt.Errorf("node%d: fault %s only applies to the primary", id, f)
		}
		set.Node(id).SetFault(f)
	}

	logger.Info("node set ready", "nodes", set.Size(), "quorum", set.Quorum(),
		"identity", kind, "commit_mode", conf.CommitMode)
	return &Engine{
		set:          set,
		commitMode:   conf.CommitMode,
		phaseTimeout: conf.PhaseTimeout,
		silentBound:  config.DefaultPhaseTimeout,
		logger:       logger,
	}, nil
}

// Size returns the number of nodes.
func (e *Engine) Size() int {
	return e.set.Size()
}

// Quorum returns the number of votes each phase needs.
func (e *Engine) Quorum() int {
	return e.set.Quorum()
}

// Node returns the node with index id.
func (e *Engine) Node(id int) *Node {
	return e.set.Node(id)
}

// Run executes one round on hash. On success it returns the block to append;
// otherwise the error is a *RoundError naming the failed phase.
func (e *Engine) Run(ctx context.Context, hash string) (*ledger.Block, error) {
	return e.run(ctx, newRound(hash, e.set.Size()))
}

func (e *Engine) run(ctx context.Context, r *Round) (block *ledger.Block, err error) {
	logger := e.logger.With("hash", shortHash(r.Hash))
	defer func() {
		if rec := recover(); rec != nil {
			block = nil
			err = e.reject(logger, r, PhaseInternal, fmt.Errorf("round panicked: %s", panicToString(rec)))
		}
	}()

	if !validHash(r.Hash) {
		return nil, e.reject(logger, r, PhaseInternal, ErrMalformedHash)
	}
	if err := e.prePrepare(logger, r); err != nil {
		return nil, err
	}
	if err := e.prepare(ctx, logger, r); err != nil {
		return nil, err
	}
	if err := e.commit(ctx, logger, r); err != nil {
		return nil, err
	}

	r.state = StateCommitted
	counts := r.ApprovalCounts()
	logger.Info("round committed", "prepare", counts.Prepare, "commit", counts.Commit)
	return &ledger.Block{
		Hash:       r.Hash,
		Signature:  append([]byte(nil), r.prePrepare.Signature...),
		Timestamp:  time.Now(),
		Approvals:  counts,
		CommitCert: r.commitCert,
	}, nil
}

func (e *Engine) prePrepare(logger hclog.Logger, r *Round) error {
	primary := e.set.Primary()
	pp, err := primary.Propose(r.Hash)
	if err != nil {
		return e.reject(logger, r, PhaseInternal, err)
	}
	if !primary.Public().Verify([]byte(pp.Hash), pp.Signature) {
		return e.reject(logger, r, PhasePrePrepare, ErrInvalidPrimarySignature)
	}
	r.prePrepare = pp
	r.state = StatePrePrepared
	logger.Debug("pre-prepared")
	return nil
}

func (e *Engine) prepare(ctx context.Context, logger hclog.Logger, r *Round) error {
	err := e.fanOut(ctx, func(ctx context.Context, n *Node) error {
		_, err := n.CastPrepareVote(ctx, r)
		return err
	})
	if err != nil {
		return e.phaseFailure(ctx, logger, r, PhasePrepare, ErrInsufficientApprovals, err)
	}
	if approvals := r.ApprovalCounts().Prepare; approvals < e.set.Quorum() {
		return e.reject(logger, r, PhasePrepare,
			fmt.Errorf("%w: %d of %d", ErrInsufficientApprovals, approvals, e.set.Quorum()))
	}
	r.state = StatePrepared
	logger.Debug("prepared", "approvals", r.ApprovalCounts().Prepare)
	return nil
}

func (e *Engine) commit(ctx context.Context, logger hclog.Logger, r *Round) error {
	err := e.fanOut(ctx, func(ctx context.Context, n *Node) error {
		_, err := n.CastCommitVote(ctx, r, e.commitMode)
		return err
	})
	if err != nil {
		return e.phaseFailure(ctx, logger, r, PhaseCommit, ErrInsufficientCommitments, err)
	}

	partials := e.validPartials(logger, r)
	r.commitTally = len(partials)
	if len(partials) < e.set.Quorum() {
		return e.reject(logger, r, PhaseCommit,
			fmt.Errorf("%w: %d of %d", ErrInsufficientCommitments, len(partials), e.set.Quorum()))
	}
	cert, err := sign.AssembleIntactTSPartial(partials, e.set.ThresholdPublicKey(), []byte(r.Hash), e.set.Quorum(), e.set.Size())
	if err != nil {
		return e.reject(logger, r, PhaseInternal, fmt.Errorf("assemble commit certificate: %w", err))
	}
	r.commitCert = cert
	return nil
}

// validPartials returns the partial signatures of approving commit votes
// that verify against the threshold key and belong to their voter.
func (e *Engine) validPartials(logger hclog.Logger, r *Round) [][]byte {
	partials := make([][]byte, 0, len(r.commits))
	for id, c := range r.commits {
		if c == nil || !c.Approve || c.Hash != r.Hash {
			continue
		}
		ok, err := sign.VerifyTSPartial(e.set.ThresholdPublicKey(), []byte(r.Hash), c.Partial)
		if err != nil || !ok {
			logger.Warn("discarding invalid partial signature", "node", id)
			continue
		}
		if idx, err := sign.PartialIndex(c.Partial); err != nil || idx != id {
			logger.Warn("discarding partial signature of another node", "node", id)
			continue
		}
		partials = append(partials, c.Partial)
	}
	return partials
}

// fanOut runs job on every node concurrently and waits for all of them. A
// panicking node is turned into an error. Each phase is bounded by the
// configured timeout; an unbounded phase still gets silentBound as soon as
// one node is silent, since that node never returns on its own.
func (e *Engine) fanOut(ctx context.Context, job func(context.Context, *Node) error) error {
	if timeout := e.phaseBound(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, n := range e.set.nodes {
		n := n
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("%s panicked: %s", n.Name(), panicToString(rec))
				}
			}()
			return job(gctx, n)
		})
	}
	return g.Wait()
}

func (e *Engine) phaseBound() time.Duration {
	if e.phaseTimeout > 0 {
		return e.phaseTimeout
	}
	for _, n := range e.set.nodes {
		if n.Fault() == FaultSilent {
			return e.silentBound
		}
	}
	return 0
}

// phaseFailure classifies the error of a fan-out. Running out of the phase
// timeout while the caller is still waiting means the quorum was not reached
// in time; everything else is an internal fault.
func (e *Engine) phaseFailure(ctx context.Context, logger hclog.Logger, r *Round, phase Phase, sentinel, err error) error {
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return e.reject(logger, r, phase, fmt.Errorf("%w: %w", sentinel, err))
	}
	return e.reject(logger, r, PhaseInternal, err)
}

func (e *Engine) reject(logger hclog.Logger, r *Round, phase Phase, cause error) error {
	r.state = StateRejected
	re := &RoundError{
		Phase:     phase,
		Reason:    reasonFor(phase),
		Approvals: r.ApprovalCounts(),
		Err:       cause,
	}
	if phase == PhaseInternal {
		logger.Error("round failed", "error", cause)
	} else {
		logger.Warn("round rejected", "phase", phase, "reason", cause,
			"prepare", re.Approvals.Prepare, "commit", re.Approvals.Commit)
	}
	return re
}

// VerifyBlock checks that b was produced by this engine: the primary's
// signature over the digest and the commit certificate must both verify.
func (e *Engine) VerifyBlock(b ledger.Block) error {
	if !e.set.Primary().Public().Verify([]byte(b.Hash), b.Signature) {
		return ErrInvalidPrimarySignature
	}
	if len(b.CommitCert) == 0 {
		return ErrMissingCommitCert
	}
	ok, err := sign.VerifyTS(e.set.ThresholdPublicKey(), []byte(b.Hash), b.CommitCert)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCommitCert
	}
	return nil
}
