package protocol

import (
	"context"

	"google.golang.org/grpc"
)

// MembershipServer is the gRPC contract the core's Server Adapter (C3)
// implements, covering the 5 RPCs of spec.md §6.
type MembershipServer interface {
	// LinkUpdate delivers a batch of edge-health reports to the Watermark
	// Buffer. Always acks immediately; the batch is processed asynchronously
	// on the protocol executor (spec.md §4.3).
	LinkUpdate(context.Context, *BatchedLinkUpdateMessage) (*Response, error)
	// ConsensusProposal delivers an externally-driven proposal. Always acks
	// immediately; processed asynchronously.
	ConsensusProposal(context.Context, *ConsensusProposalMessage) (*ConsensusProposalResponse, error)
	// Join handles phase 1 of the join protocol. Replies asynchronously, tied
	// to the future's completion.
	Join(context.Context, *JoinMessage) (*JoinResponse, error)
	// JoinPhase2 handles phase 2 of the join protocol.
	JoinPhase2(context.Context, *JoinMessage) (*JoinResponse, error)
	// Probe answers a liveness probe. If the membership service is not yet
	// bound, implementations must reply BOOTSTRAPPING rather than queuing
	// (spec.md §4.3's "Probe special case").
	Probe(context.Context, *ProbeMessage) (*ProbeResponse, error)
}

// serviceName is the gRPC service name under which MembershipServer is
// registered. There is no .proto file in this exercise (spec.md §1 places
// wire encoding out of scope); the ServiceDesc below is constructed by hand,
// the same way gazette's own broker/teststub registers stub gRPC services
// directly against a *grpc.Server without invoking protoc.
const serviceName = "rapid.protocol.Membership"

// RegisterMembershipServer registers srv with s under the Membership gRPC
// service contract.
func RegisterMembershipServer(s *grpc.Server, srv MembershipServer) {
	s.RegisterService(&membershipServiceDesc, srv)
}

var membershipServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*MembershipServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "LinkUpdate", Handler: linkUpdateHandler},
		{MethodName: "ConsensusProposal", Handler: consensusProposalHandler},
		{MethodName: "Join", Handler: joinHandler},
		{MethodName: "JoinPhase2", Handler: joinPhase2Handler},
		{MethodName: "Probe", Handler: probeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rapid/protocol/membership.proto",
}

func linkUpdateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(BatchedLinkUpdateMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MembershipServer).LinkUpdate(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("LinkUpdate")}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MembershipServer).LinkUpdate(ctx, req.(*BatchedLinkUpdateMessage))
	}
	return interceptor(ctx, in, info, handler)
}

func consensusProposalHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(ConsensusProposalMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MembershipServer).ConsensusProposal(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("ConsensusProposal")}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MembershipServer).ConsensusProposal(ctx, req.(*ConsensusProposalMessage))
	}
	return interceptor(ctx, in, info, handler)
}

func joinHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(JoinMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MembershipServer).Join(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("Join")}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MembershipServer).Join(ctx, req.(*JoinMessage))
	}
	return interceptor(ctx, in, info, handler)
}

func joinPhase2Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(JoinMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MembershipServer).JoinPhase2(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("JoinPhase2")}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MembershipServer).JoinPhase2(ctx, req.(*JoinMessage))
	}
	return interceptor(ctx, in, info, handler)
}

func probeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(ProbeMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MembershipServer).Probe(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("Probe")}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MembershipServer).Probe(ctx, req.(*ProbeMessage))
	}
	return interceptor(ctx, in, info, handler)
}

func fullMethod(method string) string { return "/" + serviceName + "/" + method }

// MembershipClient is the client-side stub of MembershipServer, dialed over
// a *grpc.ClientConn the same way consumer.Service wires its Loopback
// *grpc.ClientConn in the teacher's consumer/service.go.
type MembershipClient interface {
	MembershipServer
}

type membershipClient struct {
	cc *grpc.ClientConn
}

// NewMembershipClient returns a MembershipClient dialed over cc.
func NewMembershipClient(cc *grpc.ClientConn) MembershipClient {
	return &membershipClient{cc: cc}
}

func (c *membershipClient) LinkUpdate(ctx context.Context, in *BatchedLinkUpdateMessage) (*Response, error) {
	var out = new(Response)
	if err := c.cc.Invoke(ctx, fullMethod("LinkUpdate"), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *membershipClient) ConsensusProposal(ctx context.Context, in *ConsensusProposalMessage) (*ConsensusProposalResponse, error) {
	var out = new(ConsensusProposalResponse)
	if err := c.cc.Invoke(ctx, fullMethod("ConsensusProposal"), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *membershipClient) Join(ctx context.Context, in *JoinMessage) (*JoinResponse, error) {
	var out = new(JoinResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Join"), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *membershipClient) JoinPhase2(ctx context.Context, in *JoinMessage) (*JoinResponse, error) {
	var out = new(JoinResponse)
	if err := c.cc.Invoke(ctx, fullMethod("JoinPhase2"), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *membershipClient) Probe(ctx context.Context, in *ProbeMessage) (*ProbeResponse, error) {
	var out = new(ProbeResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Probe"), in, out); err != nil {
		return nil, err
	}
	return out, nil
}
