package impl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/types"
)

func newFindNode(known ...string) (*FindNodePendingRequest, *fakeSender,
	*fakeProvider, *findNodeRecorder) {

	sender := &fakeSender{}
	provider := &fakeProvider{known: contactsOf(known...)}
	recorder := &findNodeRecorder{}
	req := NewFindNodePendingRequest("op-1", types.NewKey("target"),
		sender, provider, recorder)
	return req, sender, provider, recorder
}

func Test_FINDNODE_StartQueriesClosest(t *testing.T) {
	req, sender, _, _ := newFindNode("127.0.0.1:1", "127.0.0.1:2")

	require.NoError(t, req.Start())
	require.Error(t, req.Start())

	batch := sender.lastBatch()
	require.Len(t, batch, 2)
	for _, action := range batch {
		require.Equal(t, types.ActionFindNode, action.Type)
	}
}

// The operation only ends by exhaustion, delivering the visited contacts
// closest to the target in ascending distance.
func Test_FINDNODE_ExhaustionDeliversClosest(t *testing.T) {
	req, sender, _, recorder := newFindNode("127.0.0.1:1", "127.0.0.1:2")
	require.NoError(t, req.Start())

	req.Step(nodeAddressAnswer("op-1", "127.0.0.1:1", "127.0.0.1:3", 1))
	req.Step(nodeAddressAnswer("op-1", "127.0.0.1:2", "127.0.0.1:4", 1))

	require.Len(t, sender.batches, 2)
	require.Equal(t, peer.StateActive, req.State())

	// round 2 peers only echo themselves
	req.Step(nodeAddressAnswer("op-1", "127.0.0.1:3", "127.0.0.1:3", 1))
	req.Step(nodeAddressAnswer("op-1", "127.0.0.1:4", "127.0.0.1:4", 1))

	require.Equal(t, peer.StateFound, req.State())
	require.Equal(t, 1, recorder.calls)
	require.Len(t, recorder.closest, 4)

	target := types.NewKey("target")
	for i := 1; i < len(recorder.closest); i++ {
		require.True(t,
			recorder.closest[i-1].Distance(target).Less(recorder.closest[i].Distance(target)))
	}
}

// With no known contact there is nothing to deliver.
func Test_FINDNODE_EmptyTableIsNotFound(t *testing.T) {
	req, _, _, recorder := newFindNode()

	require.NoError(t, req.Start())

	require.Equal(t, peer.StateNotFound, req.State())
	require.Equal(t, 1, recorder.calls)
	require.Empty(t, recorder.closest)
}

// A silent network still resolves: the peers reached before the deadline are
// the result.
func Test_FINDNODE_TimeoutDeliversPartialResult(t *testing.T) {
	req, _, _, recorder := newFindNode("127.0.0.1:1", "127.0.0.1:2")
	require.NoError(t, req.Start())

	req.Step(nodeAddressAnswer("op-1", "127.0.0.1:1", "127.0.0.1:1", 1))

	req.TimeoutPending()

	require.Equal(t, peer.StateFound, req.State())
	require.Equal(t, 1, recorder.calls)
	require.Equal(t, contactsOf("127.0.0.1:1"), recorder.closest)
}

func Test_FINDNODE_ResultCappedAtK(t *testing.T) {
	req, _, _, recorder := newFindNode(
		"127.0.0.1:1", "127.0.0.1:2", "127.0.0.1:3", "127.0.0.1:4", "127.0.0.1:5")
	require.NoError(t, req.Start())

	for _, addr := range []string{"127.0.0.1:1", "127.0.0.1:2", "127.0.0.1:3",
		"127.0.0.1:4", "127.0.0.1:5"} {
		req.Step(nodeAddressAnswer("op-1", addr, "127.0.0.1:6", 1))
	}
	req.Step(nodeAddressAnswer("op-1", "127.0.0.1:6", "127.0.0.1:6", 1))

	require.Equal(t, peer.StateFound, req.State())
	require.Equal(t, 1, recorder.calls)
	require.Len(t, recorder.closest, peer.K)
}
