package unit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	z "go.dedis.ch/kadem/internal/testing"
	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/types"
)

// A node directly knowing the seeder finds the resource in one round.
func Test_LOOKUP_ValueFoundDirect(t *testing.T) {
	transp := channelFac()

	seeder := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer seeder.StopAll()
	node := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer node.StopAll()

	resource := types.Resource{Name: "song", Value: "la la la"}
	key, err := seeder.Seed(resource)
	require.NoError(t, err)
	require.Equal(t, types.NewKey("song"), key)

	node.Bootstrap(seeder.GetAddr())

	waiter := z.NewValueWaiter()
	_, err = node.LookupValue(key, waiter)
	require.NoError(t, err)

	res := waiter.Wait(t, time.Second*2)
	require.NotNil(t, res.Resource)
	require.Equal(t, resource, *res.Resource)
	require.NotNil(t, res.Peer)
	require.Equal(t, seeder.GetAddr(), res.Peer.Addr)

	waiter.Quiet(t, time.Millisecond*200)
}

// The lookup walks intermediate peers to reach a seeder nobody told the
// caller about.
func Test_LOOKUP_ValueFoundMultiHop(t *testing.T) {
	transp := channelFac()

	seeder := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer seeder.StopAll()
	relay := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer relay.StopAll()
	node := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer node.StopAll()

	resource := types.Resource{Name: "song", Value: "la la la"}
	key, err := seeder.Seed(resource)
	require.NoError(t, err)

	relay.Bootstrap(seeder.GetAddr())
	node.Bootstrap(relay.GetAddr())

	waiter := z.NewValueWaiter()
	_, err = node.LookupValue(key, waiter)
	require.NoError(t, err)

	res := waiter.Wait(t, time.Second*2)
	require.NotNil(t, res.Resource)
	require.Equal(t, resource, *res.Resource)
}

// With nothing seeded anywhere, the lookup exhausts the network and reports
// not-found without needing any deadline.
func Test_LOOKUP_ValueNotFound(t *testing.T) {
	transp := channelFac()

	other := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer other.StopAll()
	node := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer node.StopAll()

	node.Bootstrap(other.GetAddr())

	waiter := z.NewValueWaiter()
	_, err := node.LookupValue(types.NewKey("nothing here"), waiter)
	require.NoError(t, err)

	res := waiter.Wait(t, time.Second*2)
	require.Nil(t, res.Peer)
	require.Nil(t, res.Resource)
}

// A lookup through a dead peer is resolved as not-found by the watchdog.
func Test_LOOKUP_ValueTimeout(t *testing.T) {
	transp := channelFac()

	node := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0",
		z.WithLookupTimeout(time.Millisecond*200))
	defer node.StopAll()

	// nobody listens there
	node.Bootstrap("127.0.0.1:9999")

	waiter := z.NewValueWaiter()
	_, err := node.LookupValue(types.NewKey("song"), waiter)
	require.NoError(t, err)

	res := waiter.Wait(t, time.Second*2)
	require.Nil(t, res.Peer)
	require.Nil(t, res.Resource)
}

// A node lookup converges and hands back contacts ordered by closeness.
func Test_LOOKUP_Node(t *testing.T) {
	transp := channelFac()

	far := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer far.StopAll()
	relay := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer relay.StopAll()
	node := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer node.StopAll()

	relay.Bootstrap(far.GetAddr())
	node.Bootstrap(relay.GetAddr())

	target := types.NewKey("somewhere")

	waiter := z.NewNodeWaiter()
	_, err := node.LookupNode(target, waiter)
	require.NoError(t, err)

	closest := waiter.Wait(t, time.Second*2)
	require.NotEmpty(t, closest)
	for i := 1; i < len(closest); i++ {
		require.True(t,
			closest[i-1].Distance(target).Less(closest[i].Distance(target)))
	}
}

// Bootstrapping makes the node discover peers beyond the one it was given.
func Test_LOOKUP_BootstrapDiscoversPeers(t *testing.T) {
	transp := channelFac()

	far := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer far.StopAll()
	relay := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer relay.StopAll()
	node := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer node.StopAll()

	relay.Bootstrap(far.GetAddr())
	node.Bootstrap(relay.GetAddr())

	farContact := types.NewContact(far.GetAddr())

	require.Eventually(t, func() bool {
		closest := node.GetRoutingTable().KClosest(peer.K, farContact.Key)
		for _, contact := range closest {
			if contact.Equal(farContact) {
				return true
			}
		}
		return false
	}, time.Second*2, time.Millisecond*50)
}

func Test_PING_Liveness(t *testing.T) {
	transp := channelFac()

	alive := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer alive.StopAll()
	node := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0",
		z.WithLookupTimeout(time.Millisecond*200))
	defer node.StopAll()

	waiter := z.NewBoolWaiter()
	_, err := node.Ping(alive.GetAddr(), waiter)
	require.NoError(t, err)
	require.True(t, waiter.Wait(t, time.Second*2))

	// nobody listens there
	deadWaiter := z.NewBoolWaiter()
	_, err = node.Ping("127.0.0.1:9999", deadWaiter)
	require.NoError(t, err)
	require.False(t, deadWaiter.Wait(t, time.Second*2))
}

func Test_INVITE_Outcomes(t *testing.T) {
	transp := channelFac()

	friendly := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0",
		z.WithAcceptInvites(true))
	defer friendly.StopAll()
	grumpy := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0",
		z.WithAcceptInvites(false))
	defer grumpy.StopAll()
	node := z.NewTestNode(t, peerFac, transp, "127.0.0.1:0")
	defer node.StopAll()

	accepted := z.NewBoolWaiter()
	_, err := node.Invite(friendly.GetAddr(), accepted)
	require.NoError(t, err)
	require.True(t, accepted.Wait(t, time.Second*2))

	refused := z.NewBoolWaiter()
	_, err = node.Invite(grumpy.GetAddr(), refused)
	require.NoError(t, err)
	require.False(t, refused.Wait(t, time.Second*2))
}
