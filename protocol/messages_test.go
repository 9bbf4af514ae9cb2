package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fififish/rapid/membership"
)

func TestBatchedLinkUpdateMessageValidate(t *testing.T) {
	var good = membership.LinkUpdateMessage{
		Src: membership.Endpoint{Host: "a", Port: 1},
		Dst: membership.Endpoint{Host: "b", Port: 2},
	}
	var bad = membership.LinkUpdateMessage{
		Src: membership.Endpoint{Host: "", Port: 0},
		Dst: membership.Endpoint{Host: "b", Port: 2},
	}

	assert.NoError(t, (&BatchedLinkUpdateMessage{Updates: []membership.LinkUpdateMessage{good}}).Validate())

	var err = (&BatchedLinkUpdateMessage{Updates: []membership.LinkUpdateMessage{good, bad}}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updates[1]")
}

func TestJoinMessageValidate(t *testing.T) {
	var m = JoinMessage{Joiner: membership.Endpoint{Host: "a", Port: 1}}
	assert.NoError(t, m.Validate())

	m.Joiner = membership.Endpoint{}
	assert.Error(t, m.Validate())
}

func TestNodeStatusString(t *testing.T) {
	assert.Equal(t, "OK", NodeStatusOK.String())
	assert.Equal(t, "BOOTSTRAPPING", NodeStatusBootstrapping.String())
	assert.Equal(t, "UNKNOWN", NodeStatus(99).String())
}

func TestBootstrappingResponseIsSharedConstant(t *testing.T) {
	var a = BootstrappingResponse()
	var b = BootstrappingResponse()
	assert.Same(t, a, b)
	assert.Equal(t, NodeStatusBootstrapping, a.Status)
}

func TestCodecRoundTrips(t *testing.T) {
	var c = Codec()
	assert.Equal(t, "json", c.Name())

	var in = &BatchedLinkUpdateMessage{Updates: []membership.LinkUpdateMessage{{
		Src: membership.Endpoint{Host: "a", Port: 1},
		Dst: membership.Endpoint{Host: "b", Port: 2},
	}}}
	var data, err = c.Marshal(in)
	require.NoError(t, err)

	var out BatchedLinkUpdateMessage
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, in.Updates, out.Updates)

	// Sanity-check it really is JSON, since callers may reasonably decode it
	// themselves for debugging.
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
}
