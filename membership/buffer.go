package membership

import (
	"sync"

	"github.com/pkg/errors"
)

// KMin is the minimum permitted value of Config.K: the protocol requires at
// least this many expected monitors per node for the threshold scheme to
// provide almost-everywhere agreement.
const KMin = 3

// Config parametrizes a Buffer. K is the expected number of monitors per
// node (an upper bound on reports per destination); H is the high
// (stability) threshold; L is the low (suspicion) threshold.
type Config struct {
	K uint32
	H uint32
	L uint32
}

// Validate checks Config against the invariants of spec.md §3/§7:
// K >= KMin, K >= H >= L >= 0 (L >= 0 holds trivially for an unsigned type).
func (c Config) Validate() error {
	if c.K < KMin {
		return errors.Errorf("K (%d) must be >= KMin (%d)", c.K, KMin)
	}
	if c.H > c.K {
		return errors.Errorf("H (%d) must be <= K (%d)", c.H, c.K)
	}
	if c.L > c.H {
		return errors.Errorf("L (%d) must be <= H (%d)", c.L, c.H)
	}
	return nil
}

// destState tracks, per destination, the set of distinct endpoints that
// have reported an edge to it. Set semantics: a reporter is counted at most
// once, matching spec's "structural, not by count" dedup requirement.
type destState map[Endpoint]struct{}

// Buffer is the Watermark Buffer of spec.md §4.1: a threshold filter that
// aggregates a stream of LinkUpdateMessages into batched view-change
// Proposals. A Buffer must be constructed with NewBuffer; the zero value is
// not usable. All exported methods are safe for concurrent use; Receive
// serializes entirely behind a single mutex, per spec.md §5.
type Buffer struct {
	cfg Config

	mu sync.Mutex

	// reportsPerHost maps dst -> set of distinct reporter endpoints.
	reportsPerHost map[Endpoint]destState
	// proposal accumulates Nodes that crossed H but have not yet been emitted.
	proposal []Node
	// updatesInProgress counts destinations currently in the half-open band
	// [L, H) -- "interesting but not yet stable".
	updatesInProgress int64
	// proposalCount is the monotonic count of emitted proposals.
	proposalCount uint64
}

// NewBuffer constructs a Buffer with the given Config. It returns an error
// if the configuration violates spec.md's constructor invariants (K < KMin,
// H > K, or L > H) -- a programmer error per spec.md §7.
func NewBuffer(cfg Config) (*Buffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid membership.Config")
	}
	return &Buffer{
		cfg:            cfg,
		reportsPerHost: make(map[Endpoint]destState),
	}, nil
}

// Config returns the Buffer's configured thresholds.
func (b *Buffer) Config() Config { return b.cfg }

// NumProposals returns the monotonic count of proposals emitted so far.
// This is the Go spelling of spec's getNumProposals() observability hook.
func (b *Buffer) NumProposals() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.proposalCount
}

// Receive processes one LinkUpdateMessage and returns the Proposal it
// produced, which is empty in the common case. Receive rejects a malformed
// message (the Go analogue of spec's "rejects null input") without mutating
// any state. An internal accounting-invariant violation (E1: a
// pending-proposal node whose report set cannot be found at emission time)
// is an unrecoverable bug and panics with a descriptive message, per
// spec.md §4.1/§7.
func (b *Buffer) Receive(msg LinkUpdateMessage) (Proposal, error) {
	if err := msg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid LinkUpdateMessage")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var dst = msg.Dst

	var set, existed = b.reportsPerHost[dst]
	if !existed {
		set = make(destState)
		b.reportsPerHost[dst] = set
	}

	// L == 0 is the one boundary spec.md §8 calls out specially: a
	// destination's count "transitions from L-1 to L" (ie -1 to 0) the
	// moment it is first observed at all, before any report is counted,
	// since there is no reportable count below 0. Every other L >= 1
	// crosses into the band via the n == L case below instead. This keys
	// off the set being empty, not off the map entry being newly created:
	// emit clears a destination's set but keeps its map key, so a
	// destination's second and later cycles look like "existed but empty",
	// not "!existed", and still need this increment.
	if len(set) == 0 && b.cfg.L == 0 {
		b.updatesInProgress++
	}
	if _, dup := set[msg.Src]; dup {
		// Duplicate reporter: set insertion is a no-op, no threshold
		// transition, no emission. Step 2/3 of spec.md §4.1 are skipped.
		return nil, nil
	}
	set[msg.Src] = struct{}{}
	var n = uint32(len(set))

	// These are independent checks, not a switch: when L == H (the K=H=L
	// boundary of spec.md §8), a single report can cross both thresholds at
	// once, entering and immediately leaving the band in the same call.
	if n == b.cfg.L {
		b.updatesInProgress++
	}
	if n == b.cfg.H {
		b.proposal = append(b.proposal, Node{dst})
		b.updatesInProgress--
		if b.updatesInProgress < 0 {
			// Never-negative invariant (spec.md §8 #2) would be violated by a
			// config/accounting bug elsewhere; fail loudly rather than limp on.
			panic("membership: updatesInProgress went negative")
		}
		if b.updatesInProgress == 0 {
			return b.emit(), nil
		}
	}
	return nil, nil
}

// emit snapshots the pending proposal, clears the report sets of every
// destination it contains, increments proposalCount, and resets the
// accumulator. Must be called with b.mu held.
func (b *Buffer) emit() Proposal {
	var out = make(Proposal, len(b.proposal))
	copy(out, b.proposal)

	for _, node := range b.proposal {
		var set, ok = b.reportsPerHost[node.Endpoint]
		if !ok {
			// E1: accounting-invariant violation. A destination that made it
			// into the pending proposal must still have a report set; its
			// absence means the buffer's internal bookkeeping has diverged
			// from spec.md §3 invariant 1/4, which is a bug in the core
			// itself and not a recoverable condition.
			panic("membership: E1 accounting invariant violated: pending-proposal node has no report set")
		}
		for reporter := range set {
			delete(set, reporter)
		}
	}

	b.proposal = b.proposal[:0]
	b.proposalCount++

	return out
}
