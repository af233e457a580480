package impl

import (
	"strconv"

	"golang.org/x/xerrors"

	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/types"
)

// InvitePendingRequest runs one invite handshake with a single peer. The
// answer carries a boolean payload; a missing answer is resolved as refused
// by the integration-boundary deadline.
//
// - implements peer.PendingRequest
type InvitePendingRequest struct {
	operationID string
	invited     types.Contact

	sender   peer.ActionSender
	listener peer.InviteListener

	state peer.RequestState
	steps int
}

// NewInvitePendingRequest returns an idle invite operation towards the peer
// at the given address.
func NewInvitePendingRequest(operationID, dest string,
	sender peer.ActionSender, listener peer.InviteListener) *InvitePendingRequest {

	return &InvitePendingRequest{
		operationID: operationID,
		invited:     types.NewContact(dest),
		sender:      sender,
		listener:    listener,
		state:       peer.StateIdle,
	}
}

// OperationID implements peer.PendingRequest
func (r *InvitePendingRequest) OperationID() string {
	return r.operationID
}

// State implements peer.PendingRequest
func (r *InvitePendingRequest) State() peer.RequestState {
	return r.state
}

// StepsTaken implements peer.PendingRequest
func (r *InvitePendingRequest) StepsTaken() int {
	return r.steps
}

// Start implements peer.PendingRequest
func (r *InvitePendingRequest) Start() error {
	if r.state != peer.StateIdle {
		return xerrors.Errorf("start invite %s: already started (state %v)",
			r.operationID, r.state)
	}

	r.state = peer.StateActive
	r.sender.SendActions([]types.KadAction{
		buildInvite(r.operationID, r.invited.Addr),
	})
	return nil
}

// IsPertinent implements peer.PendingRequest
func (r *InvitePendingRequest) IsPertinent(action types.KadAction) bool {
	if r.state != peer.StateActive {
		return false
	}
	return action.Type == types.ActionInviteAnswer &&
		action.OperationID == r.operationID
}

// Step implements peer.PendingRequest
func (r *InvitePendingRequest) Step(action types.KadAction) {
	if !r.IsPertinent(action) {
		return
	}

	if types.NewContact(action.Peer).Equal(r.invited) &&
		action.Payload == types.PayloadBoolean {

		accepted, err := strconv.ParseBool(action.Content)
		r.finish(err == nil && accepted)
	}
	r.steps++
}

// TimeoutPending implements peer.PendingRequest
func (r *InvitePendingRequest) TimeoutPending() {
	if r.state != peer.StateActive {
		return
	}
	r.finish(false)
}

func (r *InvitePendingRequest) finish(accepted bool) {
	if accepted {
		r.state = peer.StateFound
	} else {
		r.state = peer.StateNotFound
	}
	r.listener.OnInviteResult(r.operationID, r.invited, accepted)
}
