package impl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/types"
)

func Test_PING_Alive(t *testing.T) {
	sender := &fakeSender{}
	recorder := &pingRecorder{}
	req := NewPingPendingRequest("op-1", "127.0.0.1:1", sender, recorder)

	require.NoError(t, req.Start())
	require.Error(t, req.Start())

	batch := sender.lastBatch()
	require.Len(t, batch, 1)
	require.Equal(t, types.ActionPing, batch[0].Type)

	req.Step(booleanAnswer("op-1", types.ActionPingAnswer, "127.0.0.1:1", "true"))

	require.Equal(t, peer.StateFound, req.State())
	require.Equal(t, 1, recorder.calls)
	require.True(t, recorder.alive)
}

func Test_PING_TimeoutIsDead(t *testing.T) {
	sender := &fakeSender{}
	recorder := &pingRecorder{}
	req := NewPingPendingRequest("op-1", "127.0.0.1:1", sender, recorder)
	require.NoError(t, req.Start())

	req.TimeoutPending()

	require.Equal(t, peer.StateNotFound, req.State())
	require.Equal(t, 1, recorder.calls)
	require.False(t, recorder.alive)
}

func Test_PING_IgnoresOtherPeers(t *testing.T) {
	sender := &fakeSender{}
	recorder := &pingRecorder{}
	req := NewPingPendingRequest("op-1", "127.0.0.1:1", sender, recorder)
	require.NoError(t, req.Start())

	req.Step(booleanAnswer("op-1", types.ActionPingAnswer, "127.0.0.1:2", "true"))

	require.Equal(t, peer.StateActive, req.State())
	require.Zero(t, recorder.calls)
}
