// Package membershipsvc implements the "Membership Service (external)"
// collaborator named in spec.md's data-flow line, concretely enough to
// drive server.Adapter and own a membership.Buffer per configuration
// epoch. It mirrors consumer.Service's relationship to its Resolver in the
// teacher's consumer/service.go: a small top-level runtime type that wires
// an etcd-backed view of the cluster to a single piece of synchronized
// aggregation state.
package membershipsvc

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.etcd.io/etcd/clientv3"

	"github.com/fififish/rapid/membership"
	"github.com/fififish/rapid/protocol"
)

// ProposalSink receives proposals emitted by the Watermark Buffer for
// forwarding into the (out-of-scope, per spec.md §1) consensus driver.
type ProposalSink func(epoch uint64, p membership.Proposal)

// Service owns a membership.Buffer for the current configuration epoch and
// implements protocol.MembershipServer, feeding LinkUpdate reports into the
// buffer and forwarding resulting Proposals to a ProposalSink.
type Service struct {
	etcd         *clientv3.Client
	rosterPrefix string
	sink         ProposalSink
	minK         uint32

	mu    sync.RWMutex
	epoch uint64
	buf   *membership.Buffer
}

// NewService constructs a Service with an initial membership.Config. The
// smallest K an etcd roster-size-driven epoch rollover (see RunRosterWatch)
// may configure the buffer with is membership.KMin.
func NewService(cfg membership.Config, etcd *clientv3.Client, rosterPrefix string, sink ProposalSink) (*Service, error) {
	var buf, err = membership.NewBuffer(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "constructing initial membership.Buffer")
	}
	return &Service{
		etcd:         etcd,
		rosterPrefix: rosterPrefix,
		sink:         sink,
		minK:         membership.KMin,
		buf:          buf,
	}, nil
}

// Buffer returns the Watermark Buffer of the current epoch.
func (s *Service) Buffer() *membership.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf
}

// Epoch returns the current configuration epoch.
func (s *Service) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// rollover rebuilds the Buffer for a new epoch with cfg, per SPEC_FULL.md's
// "Epoch rollover" supplement: spec.md's Lifecycle section is silent on
// configuration changes across epochs, and each of spec.md's invariants is
// scoped "per buffer instance", so a fresh Buffer for a new epoch violates
// nothing. In-flight reports addressed to the old epoch are simply lost,
// same as the teacher's own shard reassignment semantics in
// consumer/resolver.go's updateResolutions (old Replicas are cancelled, not
// drained, on reassignment).
func (s *Service) rollover(cfg membership.Config) error {
	var buf, err = membership.NewBuffer(cfg)
	if err != nil {
		return errors.Wrap(err, "constructing membership.Buffer for new epoch")
	}

	s.mu.Lock()
	s.epoch++
	s.buf = buf
	var epoch = s.epoch
	s.mu.Unlock()

	log.WithFields(log.Fields{"epoch": epoch, "K": cfg.K, "H": cfg.H, "L": cfg.L}).
		Info("membershipsvc: rolled over to new epoch")
	return nil
}

// LinkUpdate implements protocol.MembershipServer. Every update in the
// batch is fed to the current epoch's Buffer in order; any resulting
// Proposal is forwarded to the ProposalSink immediately (spec.md's
// direct-return contract, relayed here rather than returned to the RPC
// caller, since LinkUpdate itself always acks empty per spec.md §4.3).
func (s *Service) LinkUpdate(ctx context.Context, req *protocol.BatchedLinkUpdateMessage) (*protocol.Response, error) {
	var buf, epoch = s.currentBuffer()
	for _, u := range req.Updates {
		var p, err = buf.Receive(u)
		if err != nil {
			return nil, errors.Wrap(err, "membershipsvc: rejected LinkUpdateMessage")
		}
		if !p.Empty() && s.sink != nil {
			s.sink(epoch, p)
		}
	}
	return &protocol.Response{}, nil
}

// ConsensusProposal implements protocol.MembershipServer. The consensus
// protocol itself is out of scope (spec.md §1); the Service only logs
// receipt, as a stand-in for handing the proposal to the consensus driver.
func (s *Service) ConsensusProposal(ctx context.Context, req *protocol.ConsensusProposalMessage) (*protocol.ConsensusProposalResponse, error) {
	log.WithFields(log.Fields{"epoch": req.Epoch, "size": len(req.Proposal)}).
		Debug("membershipsvc: received consensus proposal")
	return &protocol.ConsensusProposalResponse{}, nil
}

// Join implements protocol.MembershipServer. The join protocol itself is
// out of scope (spec.md §1); the Service reports the current epoch as
// SafeToJoin, a minimal stand-in a real consensus-driven join would refine.
func (s *Service) Join(ctx context.Context, req *protocol.JoinMessage) (*protocol.JoinResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid JoinMessage")
	}
	return &protocol.JoinResponse{Outcome: protocol.JoinOutcomeSafeToJoin, ConfigID: s.Epoch()}, nil
}

// JoinPhase2 implements protocol.MembershipServer, identically to Join.
func (s *Service) JoinPhase2(ctx context.Context, req *protocol.JoinMessage) (*protocol.JoinResponse, error) {
	return s.Join(ctx, req)
}

// Probe implements protocol.MembershipServer. Once bound, the Service is by
// definition no longer bootstrapping, so it always answers OK -- the
// BOOTSTRAPPING case is handled entirely by server.Adapter before binding.
func (s *Service) Probe(context.Context, *protocol.ProbeMessage) (*protocol.ProbeResponse, error) {
	return &protocol.ProbeResponse{Status: protocol.NodeStatusOK}, nil
}

func (s *Service) currentBuffer() (*membership.Buffer, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf, s.epoch
}
