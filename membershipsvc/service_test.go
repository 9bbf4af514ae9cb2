package membershipsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fififish/rapid/membership"
	"github.com/fififish/rapid/protocol"
)

func newTestService(t *testing.T, cfg membership.Config) (*Service, chan sinkCall) {
	t.Helper()
	var calls = make(chan sinkCall, 16)
	var svc, err = NewService(cfg, nil, "/rapid/roster/", func(epoch uint64, p membership.Proposal) {
		calls <- sinkCall{epoch: epoch, proposal: p}
	})
	require.NoError(t, err)
	return svc, calls
}

type sinkCall struct {
	epoch    uint64
	proposal membership.Proposal
}

func ep(host string) membership.Endpoint { return membership.Endpoint{Host: host, Port: 1} }

func TestLinkUpdateForwardsProposalToSink(t *testing.T) {
	var svc, calls = newTestService(t, membership.Config{K: 10, H: 2, L: 1})

	var req = &protocol.BatchedLinkUpdateMessage{Updates: []membership.LinkUpdateMessage{
		{Src: ep("a"), Dst: ep("x")},
		{Src: ep("b"), Dst: ep("x")},
	}}
	var _, err = svc.LinkUpdate(context.Background(), req)
	require.NoError(t, err)

	select {
	case c := <-calls:
		assert.Equal(t, uint64(0), c.epoch)
		assert.Equal(t, membership.Proposal{{Endpoint: ep("x")}}, c.proposal)
	default:
		t.Fatal("expected a proposal to be forwarded to the sink")
	}
}

func TestLinkUpdateRejectsInvalidMessage(t *testing.T) {
	var svc, _ = newTestService(t, membership.Config{K: 10, H: 2, L: 1})

	var _, err = svc.LinkUpdate(context.Background(), &protocol.BatchedLinkUpdateMessage{
		Updates: []membership.LinkUpdateMessage{{}},
	})
	assert.Error(t, err)
}

func TestJoinReportsCurrentEpoch(t *testing.T) {
	var svc, _ = newTestService(t, membership.Config{K: 10, H: 2, L: 1})

	var resp, err = svc.Join(context.Background(), &protocol.JoinMessage{Joiner: ep("joiner")})
	require.NoError(t, err)
	assert.Equal(t, protocol.JoinOutcomeSafeToJoin, resp.Outcome)
	assert.Equal(t, uint64(0), resp.ConfigID)
}

func TestProbeAlwaysOK(t *testing.T) {
	var svc, _ = newTestService(t, membership.Config{K: 10, H: 2, L: 1})

	var resp, err = svc.Probe(context.Background(), &protocol.ProbeMessage{})
	require.NoError(t, err)
	assert.Equal(t, protocol.NodeStatusOK, resp.Status)
}

func TestRolloverBumpsEpochAndConfig(t *testing.T) {
	var svc, _ = newTestService(t, membership.Config{K: 10, H: 3, L: 2})

	require.NoError(t, svc.rollover(membership.Config{K: 20, H: 6, L: 4}))
	assert.EqualValues(t, 1, svc.Epoch())
	assert.Equal(t, membership.Config{K: 20, H: 6, L: 4}, svc.Buffer().Config())
}

func TestMaybeRolloverScalesThresholdsProportionally(t *testing.T) {
	var svc, _ = newTestService(t, membership.Config{K: 10, H: 6, L: 4})

	require.NoError(t, svc.maybeRollover(20))
	var cfg = svc.Buffer().Config()
	assert.EqualValues(t, 20, cfg.K)
	assert.EqualValues(t, 12, cfg.H)
	assert.EqualValues(t, 8, cfg.L)
}

func TestMaybeRolloverNoOpWhenKUnchanged(t *testing.T) {
	var svc, _ = newTestService(t, membership.Config{K: 10, H: 6, L: 4})
	require.NoError(t, svc.maybeRollover(10))
	assert.EqualValues(t, 0, svc.Epoch())
}

func TestMaybeRolloverFloorsAtMinK(t *testing.T) {
	var svc, _ = newTestService(t, membership.Config{K: 10, H: 6, L: 4})
	require.NoError(t, svc.maybeRollover(1))
	assert.EqualValues(t, membership.KMin, svc.Buffer().Config().K)
}
