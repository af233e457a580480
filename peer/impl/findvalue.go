package impl

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/types"
)

// FindValuePendingRequest runs one iterative FIND_VALUE operation. Starting
// from the K known contacts closest to the target, each round queries up to K
// unvisited peers and collects their answers; a peer either names closer
// peers (one peer-address fragment each) or hands back the resource itself,
// which ends the operation. When a round completes with no new candidate the
// resource is declared unreachable.
//
// The engine never locks and spawns nothing: the owner must serialize all
// calls on one instance.
//
// - implements peer.PendingRequest
type FindValuePendingRequest struct {
	operationID string
	target      types.Key

	sender   peer.ActionSender
	provider peer.NodeProvider
	listener peer.FindValueListener

	state peer.RequestState
	steps int

	// visited peers, keyed by their distance to the target. Two distinct
	// keys at equal distance overwrite each other; exceptional but accepted.
	visited map[types.Key]types.Contact

	// peers from which an answer is still awaited, keyed by node key
	awaiting map[types.Key]types.Contact

	// candidates named this round and not yet queried, keyed by node key so
	// a peer reported by several responders is only queried once
	candidates map[types.Key]types.Contact

	// fragments announced by visited peers and not yet consumed
	pendingParts int
}

// NewFindValuePendingRequest returns an idle FIND_VALUE operation. The
// operation id must be unique among concurrently active operations.
func NewFindValuePendingRequest(operationID string, target types.Key,
	sender peer.ActionSender, provider peer.NodeProvider,
	listener peer.FindValueListener) *FindValuePendingRequest {

	return &FindValuePendingRequest{
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
func (r *FindValuePendingRequest) OperationID() string {
	return r.operationID
}

// State implements peer.PendingRequest
func (r *FindValuePendingRequest) State() peer.RequestState {
	return r.state
}

// StepsTaken implements peer.PendingRequest
func (r *FindValuePendingRequest) StepsTaken() int {
	return r.steps
}

// Start implements peer.PendingRequest. It queries the K closest known
// contacts. With no known contact no answer can ever arrive, so the
// operation completes as not-found right away instead of stalling.
func (r *FindValuePendingRequest) Start() error {
	if r.state != peer.StateIdle {
		return xerrors.Errorf("start findvalue %s: already started (state %v)",
			r.operationID, r.state)
	}

	closest := r.provider.KClosest(peer.K, r.target)
	r.state = peer.StateActive

	if len(closest) == 0 {
		r.finishNotFound()
		return nil
	}

	r.sendRound(closest)
	return nil
}

// IsPertinent implements peer.PendingRequest
func (r *FindValuePendingRequest) IsPertinent(action types.KadAction) bool {
	if r.state != peer.StateActive {
		return false
	}
	return action.Type == types.ActionFindValueAnswer &&
		action.OperationID == r.operationID
}

// Step implements peer.PendingRequest
func (r *FindValuePendingRequest) Step(action types.KadAction) {
	if !r.IsPertinent(action) {
		return
	}
	r.handleAnswer(action)
	r.steps++
}

// TimeoutPending implements peer.PendingRequest
func (r *FindValuePendingRequest) TimeoutPending() {
	if r.state != peer.StateActive {
		return
	}
	r.awaiting = make(map[types.Key]types.Contact)
	r.pendingParts = 0
	r.checkRound()
}

// queries every given contact and awaits its answer
func (r *FindValuePendingRequest) sendRound(contacts []types.Contact) {
	actions := make([]types.KadAction, 0, len(contacts))
	for _, contact := range contacts {
		r.awaiting[contact.Key] = contact
		actions = append(actions, buildFindValue(r.operationID, contact.Addr, r.target))
	}
	r.sender.SendActions(actions)
}

func (r *FindValuePendingRequest) handleAnswer(action types.KadAction) {
	sender := types.NewContact(action.Peer)

	// one-shot bookkeeping for the first fragment of each awaited peer;
	// duplicates and late fragments skip it
	if _, ok := r.awaiting[sender.Key]; ok {
		r.markVisited(sender)
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

	case types.PayloadResource:
		resource, err := types.ParseResource(action.Content)
		if err != nil {
			// malformed fragment: drop it but consume its slot so the
			// round cannot hang on it
			log.Error().Msgf("[peer.FindValue] drop malformed resource from %s: %s",
				action.Peer, err.Error())
			r.pendingParts--
			r.checkRound()
			return
		}
		r.state = peer.StateFound
		r.listener.OnFindValueResult(r.operationID, &sender, &resource)

	default:
		// ignored without state change
	}
}

func (r *FindValuePendingRequest) markVisited(contact types.Contact) {
	r.visited[contact.Distance(r.target)] = contact
	r.provider.MarkVisited(contact)
}

// The round is unfinished while an answer or a fragment is still due. Once
// neither is, either a new round starts from the collected candidates or the
// operation is exhausted.
func (r *FindValuePendingRequest) checkRound() {
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

	r.finishNotFound()
}

func (r *FindValuePendingRequest) finishNotFound() {
	r.state = peer.StateNotFound
	r.listener.OnFindValueResult(r.operationID, nil, nil)
}
