// Package server implements the Server Adapter (C3, spec.md §4.3): it binds
// typed gRPC entry points onto a protocol task.Group, acking the transport
// immediately for fire-and-forget RPCs and asynchronously for RPCs whose
// reply depends on future completion, while deferring everything except
// Probe at the dispatch.Latch boundary (C2) until a membership service is
// bound. Modeled on consumer.Service's QueueTasks / graceful-stop ordering
// in the teacher's consumer/service.go.
package server

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/trace"
	"google.golang.org/grpc"

	"github.com/fififish/rapid/dispatch"
	"github.com/fififish/rapid/protocol"
	"github.com/fififish/rapid/task"
)

// MembershipService is the contract server.Adapter dispatches protocol RPCs
// into once bound -- the "Membership Service (external)" collaborator of
// spec.md's data-flow line, made concrete enough for the adapter to call.
type MembershipService = protocol.MembershipServer

// Adapter implements protocol.MembershipServer. Before SetMembershipService
// is called, the protocol work of every RPC except Probe waits at its
// internal dispatch.Latch (LinkUpdate and ConsensusProposal still ack the
// caller immediately; Join and JoinPhase2 reply only once that work has
// run); Probe instead answers BOOTSTRAPPING immediately, per spec.md §4.3.
type Adapter struct {
	protocolTasks  *task.Group
	transportTasks *task.Group
	latch          *dispatch.Latch

	mu      sync.Mutex
	svc     MembershipService
	grpcSrv *grpc.Server
}

// NewAdapter constructs an Adapter. protocolTasks and transportTasks are the
// protocol and transport/response executors of spec.md §5; they may be
// distinct task.Groups or the same one (the spec permits either width), but
// must outlive the Adapter.
func NewAdapter(protocolTasks, transportTasks *task.Group) *Adapter {
	return &Adapter{
		protocolTasks:  protocolTasks,
		transportTasks: transportTasks,
		latch:          dispatch.NewLatch(),
	}
}

// SetMembershipService binds the membership service that will process
// released RPCs, and releases the deferred-dispatch latch. It is a
// programmer error to call this more than once (spec.md §4.3 "Binding
// operation"); the second call returns an error rather than silently
// rebinding.
func (a *Adapter) SetMembershipService(svc MembershipService) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.svc != nil {
		return errors.New("server.Adapter: membership service already bound")
	}
	a.svc = svc
	a.latch.Release()
	log.Info("server.Adapter: membership service bound, releasing deferred RPCs")
	return nil
}

// Serve runs a gRPC server over lis, registering the Adapter as the
// Membership service. It blocks until the server stops (via Stop or a fatal
// Serve error).
func (a *Adapter) Serve(lis net.Listener) error {
	var srv = grpc.NewServer(grpc.ForceServerCodec(protocol.Codec()))
	protocol.RegisterMembershipServer(srv, a)

	a.mu.Lock()
	a.grpcSrv = srv
	a.mu.Unlock()

	return srv.Serve(lis)
}

// Stop gracefully stops the transport, then cancels the protocol executor
// and waits for its tasks to return. The bound membership service is not
// stopped by Stop: MembershipService has no stop operation, and Stop does
// not call into the service at all. A context cancellation during the graceful wait forces a hard
// stop and returns the cancellation as an error, per spec.md §7's
// instruction to "translate interruption during await into a cooperative
// cancellation ... re-raised as a cancellation signal to the caller".
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	var srv = a.grpcSrv
	a.mu.Unlock()

	if srv != nil {
		var stopped = make(chan struct{})
		go func() { srv.GracefulStop(); close(stopped) }()

		select {
		case <-stopped:
		case <-ctx.Done():
			log.WithError(ctx.Err()).Warn("server.Adapter: graceful stop interrupted, forcing")
			srv.Stop()
			a.protocolTasks.Cancel()
			return ctx.Err()
		}
	}

	a.protocolTasks.Cancel()
	return a.protocolTasks.Wait()
}

// LinkUpdate implements protocol.MembershipServer. It acks immediately and
// schedules the batch onto the protocol executor, per spec.md §4.3's table
// ("Batched link-update | Immediate empty ack; work scheduled").
func (a *Adapter) LinkUpdate(ctx context.Context, req *protocol.BatchedLinkUpdateMessage) (*protocol.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid BatchedLinkUpdateMessage")
	}
	a.protocolTasks.Queue("LinkUpdate", func() error {
		var latchCtx = a.protocolTasks.Context()
		if err := a.latch.Await(latchCtx); err != nil {
			return err
		}
		addTrace(ctx, "dispatching %d link updates", len(req.Updates))
		var svc = a.boundService()
		if svc == nil {
			return errors.New("server.Adapter: membership service unbound after latch release")
		}
		var _, err = svc.LinkUpdate(a.protocolTasks.Context(), req)
		return err
	})
	return &protocol.Response{}, nil
}

// ConsensusProposal implements protocol.MembershipServer, dispatched the
// same way as LinkUpdate.
func (a *Adapter) ConsensusProposal(ctx context.Context, req *protocol.ConsensusProposalMessage) (*protocol.ConsensusProposalResponse, error) {
	a.protocolTasks.Queue("ConsensusProposal", func() error {
		if err := a.latch.Await(a.protocolTasks.Context()); err != nil {
			return err
		}
		var svc = a.boundService()
		if svc == nil {
			return errors.New("server.Adapter: membership service unbound after latch release")
		}
		var _, err = svc.ConsensusProposal(a.protocolTasks.Context(), req)
		return err
	})
	return &protocol.ConsensusProposalResponse{}, nil
}

// Join implements protocol.MembershipServer. Per spec.md §4.3's table, the
// reply is asynchronous and tied to the future's completion: the RPC's
// result channel is populated by the protocol executor and the reply is
// sent back on the transport/response executor.
func (a *Adapter) Join(ctx context.Context, req *protocol.JoinMessage) (*protocol.JoinResponse, error) {
	return a.dispatchAsync(ctx, "Join", func(svc MembershipService) (*protocol.JoinResponse, error) {
		return svc.Join(a.protocolTasks.Context(), req)
	})
}

// JoinPhase2 implements protocol.MembershipServer, dispatched like Join.
func (a *Adapter) JoinPhase2(ctx context.Context, req *protocol.JoinMessage) (*protocol.JoinResponse, error) {
	return a.dispatchAsync(ctx, "JoinPhase2", func(svc MembershipService) (*protocol.JoinResponse, error) {
		return svc.JoinPhase2(a.protocolTasks.Context(), req)
	})
}

// Probe implements protocol.MembershipServer. If the membership service is
// not yet bound, it answers BOOTSTRAPPING synchronously rather than
// queuing, the "Probe special case" of spec.md §4.3.
func (a *Adapter) Probe(ctx context.Context, req *protocol.ProbeMessage) (*protocol.ProbeResponse, error) {
	if !a.latch.Released() {
		return protocol.BootstrappingResponse(), nil
	}
	var svc = a.boundService()
	if svc == nil {
		return protocol.BootstrappingResponse(), nil
	}
	return svc.Probe(ctx, req)
}

// dispatchAsync runs fn on the protocol executor once the latch releases,
// and funnels its result back to the RPC caller via the transport/response
// executor, matching the Join/JoinPhase2 row of spec.md §4.3's table.
func (a *Adapter) dispatchAsync(ctx context.Context, name string, fn func(MembershipService) (*protocol.JoinResponse, error)) (*protocol.JoinResponse, error) {
	type result struct {
		resp *protocol.JoinResponse
		err  error
	}
	var resultCh = make(chan result, 1)

	a.protocolTasks.Queue(name, func() error {
		if err := a.latch.Await(a.protocolTasks.Context()); err != nil {
			resultCh <- result{err: err}
			return err
		}
		var svc = a.boundService()
		if svc == nil {
			var err = errors.New("server.Adapter: membership service unbound after latch release")
			resultCh <- result{err: err}
			return err
		}
		var resp, err = fn(svc)
		resultCh <- result{resp: resp, err: err}
		return err
	})

	// The transport/response executor owns delivering the reply; here that
	// is simply waiting for the protocol executor's result and handing it
	// back to the gRPC handler goroutine, which itself runs on the
	// transport pool.
	var replyCh = make(chan result, 1)
	a.transportTasks.Queue(name+".reply", func() error {
		select {
		case r := <-resultCh:
			replyCh <- r
		case <-ctx.Done():
			replyCh <- result{err: ctx.Err()}
		}
		return nil
	})

	var r = <-replyCh
	return r.resp, r.err
}

func (a *Adapter) boundService() MembershipService {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.svc
}

func addTrace(ctx context.Context, format string, args ...interface{}) {
	if tr, ok := trace.FromContext(ctx); ok {
		tr.LazyPrintf(format, args...)
	}
}
