package impl

import (
	"golang.org/x/xerrors"

	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/types"
)

// FindNodePendingRequest runs one iterative FIND_NODE operation. The round
// logic matches FIND_VALUE but there is no resource payload: the operation
// only ends by exhaustion, at which point the K visited contacts closest to
// the target are delivered to the listener.
//
// - implements peer.PendingRequest
type FindNodePendingRequest struct {
	operationID string
	target      types.Key

	sender   peer.ActionSender
	provider peer.NodeProvider
	listener peer.FindNodeListener

	state peer.RequestState
	steps int

	visited      map[types.Key]types.Contact
	awaiting     map[types.Key]types.Contact
	candidates   map[types.Key]types.Contact
	pendingParts int
}

// NewFindNodePendingRequest returns an idle FIND_NODE operation.
func NewFindNodePendingRequest(operationID string, target types.Key,
	sender peer.ActionSender, provider peer.NodeProvider,
	listener peer.FindNodeListener) *FindNodePendingRequest {

	return &FindNodePendingRequest{
		operationID: operationID,
		target:      target,
		sender:      sender,
		provider:    provider,
		listener:    listener,
		state:       peer.StateIdle,
		visited:     make(map[types.Key]types.Contact),
		awaiting:    make(map[types.Key]types.Contact),
		candidates:  make(map[types.Key]types.Contact),
	}
}

// OperationID implements peer.PendingRequest
func (r *FindNodePendingRequest) OperationID() string {
	return r.operationID
}

// State implements peer.PendingRequest
func (r *FindNodePendingRequest) State() peer.RequestState {
	return r.state
}

// StepsTaken implements peer.PendingRequest
func (r *FindNodePendingRequest) StepsTaken() int {
	return r.steps
}

// Start implements peer.PendingRequest
func (r *FindNodePendingRequest) Start() error {
	if r.state != peer.StateIdle {
		return xerrors.Errorf("start findnode %s: already started (state %v)",
			r.operationID, r.state)
	}

	closest := r.provider.KClosest(peer.K, r.target)
	r.state = peer.StateActive

	if len(closest) == 0 {
		r.finish()
		return nil
	}

	r.sendRound(closest)
	return nil
}

// IsPertinent implements peer.PendingRequest
func (r *FindNodePendingRequest) IsPertinent(action types.KadAction) bool {
	if r.state != peer.StateActive {
		return false
	}
	return action.Type == types.ActionFindNodeAnswer &&
		action.OperationID == r.operationID
}

// Step implements peer.PendingRequest
func (r *FindNodePendingRequest) Step(action types.KadAction) {
	if !r.IsPertinent(action) {
		return
	}
	r.handleAnswer(action)
	r.steps++
}

// TimeoutPending implements peer.PendingRequest
func (r *FindNodePendingRequest) TimeoutPending() {
	if r.state != peer.StateActive {
		return
	}
	r.awaiting = make(map[types.Key]types.Contact)
	r.pendingParts = 0
	r.checkRound()
}

func (r *FindNodePendingRequest) sendRound(contacts []types.Contact) {
	actions := make([]types.KadAction, 0, len(contacts))
	for _, contact := range contacts {
		r.awaiting[contact.Key] = contact
		actions = append(actions, buildFindNode(r.operationID, contact.Addr, r.target))
	}
	r.sender.SendActions(actions)
}

func (r *FindNodePendingRequest) handleAnswer(action types.KadAction) {
	sender := types.NewContact(action.Peer)

	if _, ok := r.awaiting[sender.Key]; ok {
		r.visited[sender.Distance(r.target)] = sender
		r.provider.MarkVisited(sender)
		delete(r.awaiting, sender.Key)
		r.pendingParts += action.Parts
	}

	switch action.Payload {
	case types.PayloadPeerAddress:
		candidate := types.NewContact(action.Content)
		if _, seen := r.visited[candidate.Distance(r.target)]; !seen {
			r.candidates[candidate.Key] = candidate
		}
		r.pendingParts--
		r.checkRound()

	default:
		// ignored without state change
	}
}

func (r *FindNodePendingRequest) checkRound() {
	if len(r.awaiting) > 0 || r.pendingParts != 0 {
		return
	}

	if len(r.candidates) > 0 {
		buffer := make([]types.Contact, 0, len(r.candidates))
		for _, candidate := range r.candidates {
			buffer = append(buffer, candidate)
		}
		next := r.provider.FilterKClosest(peer.K, r.target, buffer)
		r.candidates = make(map[types.Key]types.Contact)
		r.sendRound(next)
		return
	}

	r.finish()
}

// delivers the K closest visited contacts, ascending distance
func (r *FindNodePendingRequest) finish() {
	closest := make([]types.Contact, 0, len(r.visited))
	for _, contact := range r.visited {
		closest = append(closest, contact)
	}
	sortByDistance(closest, r.target)
	closest = closest[:min(len(closest), peer.K)]

	if len(closest) > 0 {
		r.state = peer.StateFound
	} else {
		r.state = peer.StateNotFound
	}
	r.listener.OnFindNodeResult(r.operationID, closest)
}
