// Package protocol defines the typed request/response messages of the 5
// RPCs consumed by the core (spec.md §6), plus the gRPC service contract
// that server.Adapter implements. Wire encoding is explicitly out of scope
// of spec.md §1 ("assumed: a schema-defined RPC transport"); this package
// hand-writes the message and service-descriptor shapes a protoc-generated
// package would otherwise produce, modeled after the teacher's own
// hand-maintained broker/protocol conventions (Validate() methods,
// NewValidationError-style errors) seen in consumer/key_space.go.
package protocol

import (
	"fmt"

	"github.com/fififish/rapid/membership"
)

// Response is the empty acknowledgement returned by the batched link-update
// and consensus-proposal RPCs.
type Response struct{}

// BatchedLinkUpdateMessage carries a batch of per-edge link-update reports
// in a single RPC, as described by spec.md §6.
type BatchedLinkUpdateMessage struct {
	Updates []membership.LinkUpdateMessage
}

// Validate checks every update in the batch.
func (m *BatchedLinkUpdateMessage) Validate() error {
	for i, u := range m.Updates {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("updates[%d]: %w", i, err)
		}
	}
	return nil
}

// ConsensusProposalMessage carries an externally-driven consensus proposal.
// Its internal shape is a collaborator contract (spec.md §1 places the
// consensus/join protocol itself out of scope); the core only needs to
// dispatch it to the membership service.
type ConsensusProposalMessage struct {
	Epoch    uint64
	Proposal membership.Proposal
}

// ConsensusProposalResponse is the empty ack of a ConsensusProposalMessage.
type ConsensusProposalResponse struct{}

// JoinMessage is a join-protocol RPC (phase 1 or phase 2 -- the core treats
// both identically as an opaque collaborator contract per spec.md §1).
type JoinMessage struct {
	Joiner        membership.Endpoint
	ConfigID      uint64
	RequestedRing uint32
}

// Validate checks the joiner endpoint is well-formed.
func (m *JoinMessage) Validate() error {
	return m.Joiner.Validate()
}

// JoinOutcome enumerates the result of a join attempt.
type JoinOutcome int

const (
	JoinOutcomeUnknown JoinOutcome = iota
	JoinOutcomeSafeToJoin
	JoinOutcomeConfigChanged
	JoinOutcomeUUIDAlreadyInRing
	JoinOutcomeViewChangeInProgress
)

// JoinResponse carries a join outcome.
type JoinResponse struct {
	Outcome  JoinOutcome
	ConfigID uint64
}

// NodeStatus enumerates probe response statuses (spec.md §6: "at minimum OK
// and BOOTSTRAPPING").
type NodeStatus int

const (
	NodeStatusOK NodeStatus = iota
	NodeStatusBootstrapping
)

// String renders NodeStatus for logging.
func (s NodeStatus) String() string {
	switch s {
	case NodeStatusOK:
		return "OK"
	case NodeStatusBootstrapping:
		return "BOOTSTRAPPING"
	default:
		return "UNKNOWN"
	}
}

// ProbeMessage is an empty liveness probe; the prober is implicit in the
// transport peer, per spec.md §6.
type ProbeMessage struct{}

// ProbeResponse carries a NodeStatus.
type ProbeResponse struct {
	Status NodeStatus
}

// bootstrappingResponse is the fixed, protocol-level BOOTSTRAPPING constant
// described in spec.md §9's Open Question ("the source returns a fixed
// BOOTSTRAPPING response built once... Implementers should treat this
// message as a protocol-level constant").
var bootstrappingResponse = &ProbeResponse{Status: NodeStatusBootstrapping}

// BootstrappingResponse returns the shared BOOTSTRAPPING probe response.
func BootstrappingResponse() *ProbeResponse { return bootstrappingResponse }
