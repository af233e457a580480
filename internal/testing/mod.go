package testing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/transport"
	"go.dedis.ch/kadem/types"
)

// TestNode is a peer bundled with its socket, ready to use in tests.
type TestNode struct {
	peer.Peer

	t      *testing.T
	socket transport.ClosableSocket
}

// Option is a function transforming a test node configuration.
type Option func(*peer.Configuration)

// WithLookupTimeout sets the watchdog deadline of lookup operations.
func WithLookupTimeout(d time.Duration) Option {
	return func(conf *peer.Configuration) {
		conf.LookupTimeout = d
	}
}

// WithSocketTimeout sets the receive poll interval.
func WithSocketTimeout(d time.Duration) Option {
	return func(conf *peer.Configuration) {
		conf.SocketTimeout = d
	}
}

// WithAcceptInvites sets how the node answers invites.
func WithAcceptInvites(accept bool) Option {
	return func(conf *peer.Configuration) {
		conf.AcceptInvites = accept
	}
}

// NewTestNode returns a started node using the given transport.
func NewTestNode(t *testing.T, fac peer.Factory, trans transport.Transport,
	addr string, opts ...Option) TestNode {

	socket, err := trans.CreateSocket(addr)
	require.NoError(t, err)

	conf := peer.Configuration{
		Socket:        socket,
		SocketTimeout: time.Millisecond * 50,
		AcceptInvites: true,
	}

	for _, opt := range opts {
		opt(&conf)
	}

	node := fac(conf)
	require.NoError(t, node.Start())

	return TestNode{
		Peer:   node,
		t:      t,
		socket: socket,
	}
}

// GetAddr returns the node's socket address.
func (n TestNode) GetAddr() string {
	return n.socket.GetAddress()
}

// StopAll stops the node and fails the test on error.
func (n TestNode) StopAll() {
	require.NoError(n.t, n.Stop())
}

/* ========== result waiters ========== */

// ValueResult is one find-value outcome.
type ValueResult struct {
	Peer     *types.Contact
	Resource *types.Resource
}

// ValueWaiter collects find-value outcomes for synchronous assertions.
//
// - implements peer.FindValueListener
type ValueWaiter struct {
	ch chan ValueResult
}

// NewValueWaiter returns a ready waiter.
func NewValueWaiter() *ValueWaiter {
	return &ValueWaiter{ch: make(chan ValueResult, 8)}
}

// OnFindValueResult implements peer.FindValueListener
func (w *ValueWaiter) OnFindValueResult(operationID string,
	peer *types.Contact, resource *types.Resource) {

	w.ch <- ValueResult{Peer: peer, Resource: resource}
}

// Wait returns the next outcome, failing the test after the timeout.
func (w *ValueWaiter) Wait(t *testing.T, timeout time.Duration) ValueResult {
	select {
	case res := <-w.ch:
		return res
	case <-time.After(timeout):
		t.Fatal("no find-value result in time")
		return ValueResult{}
	}
}

// Quiet asserts no further outcome arrives within the given window.
func (w *ValueWaiter) Quiet(t *testing.T, window time.Duration) {
	select {
	case res := <-w.ch:
		t.Fatalf("unexpected extra find-value result: %+v", res)
	case <-time.After(window):
	}
}

// NodeWaiter collects find-node outcomes.
//
// - implements peer.FindNodeListener
type NodeWaiter struct {
	ch chan []types.Contact
}

// NewNodeWaiter returns a ready waiter.
func NewNodeWaiter() *NodeWaiter {
	return &NodeWaiter{ch: make(chan []types.Contact, 8)}
}

// OnFindNodeResult implements peer.FindNodeListener
func (w *NodeWaiter) OnFindNodeResult(operationID string, closest []types.Contact) {
	w.ch <- closest
}

// Wait returns the next outcome, failing the test after the timeout.
func (w *NodeWaiter) Wait(t *testing.T, timeout time.Duration) []types.Contact {
	select {
	case res := <-w.ch:
		return res
	case <-time.After(timeout):
		t.Fatal("no find-node result in time")
		return nil
	}
}

// BoolWaiter collects invite and ping outcomes.
//
// - implements peer.InviteListener, peer.PingListener
type BoolWaiter struct {
	ch chan bool
}

// NewBoolWaiter returns a ready waiter.
func NewBoolWaiter() *BoolWaiter {
	return &BoolWaiter{ch: make(chan bool, 8)}
}

// OnInviteResult implements peer.InviteListener
func (w *BoolWaiter) OnInviteResult(operationID string,
	invited types.Contact, accepted bool) {

	w.ch <- accepted
}

// OnPingResult implements peer.PingListener
func (w *BoolWaiter) OnPingResult(operationID string,
	peer types.Contact, alive bool) {

	w.ch <- alive
}

// Wait returns the next outcome, failing the test after the timeout.
func (w *BoolWaiter) Wait(t *testing.T, timeout time.Duration) bool {
	select {
	case res := <-w.ch:
		return res
	case <-time.After(timeout):
		t.Fatal("no result in time")
		return false
	}
}
