package peer

import (
	"time"

	"go.dedis.ch/kadem/transport"
	"go.dedis.ch/kadem/types"
)

// Peer defines the functions of a kadem node.
type Peer interface {
	Service
	Lookup
}

// Factory is the function type to create a new peer.
type Factory func(Configuration) Peer

// Service defines the lifecycle functions of a node.
type Service interface {
	// Start starts the node's receive loop. It returns once the node is ready.
	Start() error

	// Stop stops the node. Pending operations are not notified.
	Stop() error
}

// Lookup defines the operations a node can run against the network. Every
// function returning an operation id starts an asynchronous operation whose
// outcome is delivered exactly once through the given listener.
type Lookup interface {
	// LookupValue starts an iterative FIND_VALUE for the resource stored at
	// the target key.
	LookupValue(target types.Key, listener FindValueListener) (string, error)

	// LookupNode starts an iterative FIND_NODE converging on the target key.
	LookupNode(target types.Key, listener FindNodeListener) (string, error)

	// Invite starts an invite handshake with the peer at dest.
	Invite(dest string, listener InviteListener) (string, error)

	// Ping probes the liveness of the peer at dest.
	Ping(dest string, listener PingListener) (string, error)

	// Seed stores a resource locally so this node can answer find-value
	// requests for it. It returns the key the resource lives at.
	Seed(resource types.Resource) (types.Key, error)

	// Bootstrap introduces this node to the network through a known peer.
	Bootstrap(addr string)

	// GetRoutingTable returns the node's routing table.
	GetRoutingTable() NodeProvider
}

// Configuration holds the collaborators and knobs of a node.
type Configuration struct {
	Socket transport.ClosableSocket

	// LookupTimeout bounds how long an operation may sit without taking a
	// single step before the peers it still awaits are declared
	// non-responding. Zero disables the watchdog.
	LookupTimeout time.Duration

	// SocketTimeout is the receive poll interval. Defaults to one second.
	SocketTimeout time.Duration

	// AcceptInvites decides how the node answers invite requests.
	AcceptInvites bool
}
