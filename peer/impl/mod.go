package impl

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/transport"
	"go.dedis.ch/kadem/types"
)

var (
	actionsSentTotal     = metrics.NewCounter("kadem_actions_sent_total")
	actionsReceivedTotal = metrics.NewCounter("kadem_actions_received_total")
	operationsTotal      = metrics.NewCounter("kadem_operations_started_total")
	foundTotal           = metrics.NewCounter("kadem_operations_found_total")
	notFoundTotal        = metrics.NewCounter("kadem_operations_not_found_total")
	timeoutsTotal        = metrics.NewCounter("kadem_operations_timed_out_total")
)

func recordOutcome(state peer.RequestState) {
	switch state {
	case peer.StateFound:
		foundTotal.Inc()
	case peer.StateNotFound:
		notFoundTotal.Inc()
	}
}

// NewPeer creates a new kadem node. It changes the content of the given
// configuration to set default values where needed.
//
// - implements peer.Factory
func NewPeer(conf peer.Configuration) peer.Peer {
	if conf.SocketTimeout == 0 {
		conf.SocketTimeout = time.Second
	}

	self := types.NewContact(conf.Socket.GetAddress())

	return &node{
		conf:       conf,
		self:       self,
		rt:         NewRoutingTable(self),
		resources:  NewSafeResourceMap(),
		operations: xsync.NewMapOf[string, *operation](),
		stop:       make(chan struct{}),
	}
}

// operation guards one pending request. The engines never lock, so every
// Start, Step and TimeoutPending on a request goes through this mutex.
type operation struct {
	sync.Mutex
	req peer.PendingRequest
}

// node implements a peer to build a kadem network
//
// - implements peer.Peer
type node struct {
	conf peer.Configuration
	self types.Contact

	rt         *RoutingTable
	resources  *SafeResourceMap
	operations *xsync.MapOf[string, *operation]

	stop chan struct{}
}

// Start implements peer.Service
func (n *node) Start() error {
	go n.listen()
	return nil
}

// Stop implements peer.Service
func (n *node) Stop() error {
	close(n.stop)
	return n.conf.Socket.Close()
}

// listen receives packets until the node stops. The socket timeout keeps the
// loop responsive to Stop.
func (n *node) listen() {
	for {
		select {
		case <-n.stop:
			return
		default:
		}

		pkt, err := n.conf.Socket.Recv(n.conf.SocketTimeout)
		if errors.Is(err, transport.TimeoutErr(0)) {
			continue
		}
		if err != nil {
			select {
			case <-n.stop:
				return
			default:
			}
			log.Error().Msgf("[Node.listen] failed to receive: %s", err.Error())
			continue
		}

		n.handlePacket(pkt)
	}
}

func (n *node) handlePacket(pkt transport.Packet) {
	var action types.KadAction

	err := json.Unmarshal(pkt.Msg, &action)
	if err != nil {
		log.Error().Msgf("[Node.handlePacket] drop packet from %s: %s",
			pkt.Header.Source, err.Error())
		return
	}

	// the header is authoritative on who sent this
	action.Peer = pkt.Header.Source

	if !action.Valid() {
		log.Error().Msgf("[Node.handlePacket] drop invalid action from %s: %s",
			pkt.Header.Source, action)
		return
	}

	actionsReceivedTotal.Inc()

	if action.Type.IsRequest() {
		go n.handleRequest(action)
		return
	}

	n.dispatchAnswer(action)
}

// dispatchAnswer steps the operation an answer belongs to, if still pending.
// Terminal operations leave the registry so later answers fall through here.
func (n *node) dispatchAnswer(action types.KadAction) {
	op, ok := n.operations.Load(action.OperationID)
	if !ok {
		log.Info().Msgf("[Node.dispatchAnswer] drop %s: no pending operation", action)
		return
	}

	op.Lock()
	defer op.Unlock()

	op.req.Step(action)

	if op.req.State().Terminal() {
		n.operations.Delete(action.OperationID)
		recordOutcome(op.req.State())
	}
}

// SendActions implements peer.ActionSender. Failures are logged, not
// propagated: the engines treat sending as fire-and-forget and unanswered
// peers are resolved by the deadline.
func (n *node) SendActions(actions []types.KadAction) {
	for _, action := range actions {
		msg, err := json.Marshal(action)
		if err != nil {
			log.Error().Msgf("[Node.SendActions] cannot marshal %s: %s",
				action, err.Error())
			continue
		}

		header := transport.NewHeader(n.self.Addr, action.Peer)
		pkt := transport.Packet{Header: &header, Msg: msg}

		err = n.conf.Socket.Send(action.Peer, pkt, n.conf.SocketTimeout)
		if err != nil {
			log.Error().Msgf("[Node.SendActions] cannot send to %s: %s",
				action.Peer, err.Error())
			continue
		}

		actionsSentTotal.Inc()
	}
}

// LookupValue implements peer.Lookup
func (n *node) LookupValue(target types.Key, listener peer.FindValueListener) (string, error) {
	operationID := xid.New().String()
	req := NewFindValuePendingRequest(operationID, target, n, n.rt, listener)
	return operationID, n.startOperation(operationID, req)
}

// LookupNode implements peer.Lookup
func (n *node) LookupNode(target types.Key, listener peer.FindNodeListener) (string, error) {
	operationID := xid.New().String()
	req := NewFindNodePendingRequest(operationID, target, n, n.rt, listener)
	return operationID, n.startOperation(operationID, req)
}

// Invite implements peer.Lookup
func (n *node) Invite(dest string, listener peer.InviteListener) (string, error) {
	operationID := xid.New().String()
	req := NewInvitePendingRequest(operationID, dest, n, listener)
	return operationID, n.startOperation(operationID, req)
}

// Ping implements peer.Lookup
func (n *node) Ping(dest string, listener peer.PingListener) (string, error) {
	operationID := xid.New().String()
	req := NewPingPendingRequest(operationID, dest, n, listener)
	return operationID, n.startOperation(operationID, req)
}

// startOperation registers the request, runs its first round and arms the
// watchdog. Registration happens before Start so answers arriving during the
// first round already find their operation.
func (n *node) startOperation(operationID string, req peer.PendingRequest) error {
	op := &operation{req: req}

	op.Lock()
	n.operations.Store(operationID, op)

	err := req.Start()
	state := req.State()
	op.Unlock()

	if err != nil || state.Terminal() {
		n.operations.Delete(operationID)
		recordOutcome(state)
		return err
	}

	operationsTotal.Inc()

	if n.conf.LookupTimeout > 0 {
		go n.watch(operationID, op)
	}
	return nil
}

// watch resolves a stalled operation. An operation that took no step over a
// whole LookupTimeout window has its awaited peers declared non-responding.
func (n *node) watch(operationID string, op *operation) {
	ticker := time.NewTicker(n.conf.LookupTimeout)
	defer ticker.Stop()

	seen := -1

	for {
		select {
		case <-n.stop:
			return

		case <-ticker.C:
			op.Lock()
			if op.req.State().Terminal() {
				op.Unlock()
				return
			}

			steps := op.req.StepsTaken()
			if steps != seen {
				seen = steps
				op.Unlock()
				continue
			}

			timeoutsTotal.Inc()
			op.req.TimeoutPending()
			state := op.req.State()
			op.Unlock()

			if state.Terminal() {
				n.operations.Delete(operationID)
				recordOutcome(state)
				return
			}
		}
	}
}

// Seed implements peer.Lookup. The key is derived from the resource name, so
// any node can later look the resource up knowing only its name.
func (n *node) Seed(resource types.Resource) (types.Key, error) {
	_, err := resource.Encode()
	if err != nil {
		return types.Key{}, err
	}

	key := types.NewKey(resource.Name)
	n.resources.Set(key, resource)
	return key, nil
}

// Bootstrap implements peer.Lookup. Looking our own key up populates the
// routing table with the peers met on the way.
func (n *node) Bootstrap(addr string) {
	n.rt.AddContact(types.NewContact(addr))

	_, err := n.LookupNode(n.self.Key, bootstrapListener{self: n.self.Addr})
	if err != nil {
		log.Error().Msgf("[Node.Bootstrap] self lookup failed: %s", err.Error())
	}
}

// GetRoutingTable implements peer.Lookup
func (n *node) GetRoutingTable() peer.NodeProvider {
	return n.rt
}

// bootstrapListener logs the outcome of the self lookup run by Bootstrap.
//
// - implements peer.FindNodeListener
type bootstrapListener struct {
	self string
}

// OnFindNodeResult implements peer.FindNodeListener
func (l bootstrapListener) OnFindNodeResult(operationID string, closest []types.Contact) {
	log.Info().Msgf("[Node.Bootstrap] %s joined, %d neighbors", l.self, len(closest))
}
