package impl

import (
	"golang.org/x/xerrors"

	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/types"
)

// PingPendingRequest runs one liveness probe against a single peer. Any
// pertinent answer counts as alive; the integration-boundary deadline
// resolves silence as dead.
//
// - implements peer.PendingRequest
type PingPendingRequest struct {
	operationID string
	probed      types.Contact

	sender   peer.ActionSender
	listener peer.PingListener

	state peer.RequestState
	steps int
}

// NewPingPendingRequest returns an idle ping operation towards the peer at
// the given address.
func NewPingPendingRequest(operationID, dest string,
	sender peer.ActionSender, listener peer.PingListener) *PingPendingRequest {

	return &PingPendingRequest{
		operationID: operationID,
		probed:      types.NewContact(dest),
		sender:      sender,
		listener:    listener,
		state:       peer.StateIdle,
	}
}

// OperationID implements peer.PendingRequest
func (r *PingPendingRequest) OperationID() string {
	return r.operationID
}

// State implements peer.PendingRequest
func (r *PingPendingRequest) State() peer.RequestState {
	return r.state
}

// StepsTaken implements peer.PendingRequest
func (r *PingPendingRequest) StepsTaken() int {
	return r.steps
}

// Start implements peer.PendingRequest
func (r *PingPendingRequest) Start() error {
	if r.state != peer.StateIdle {
		return xerrors.Errorf("start ping %s: already started (state %v)",
			r.operationID, r.state)
	}

	r.state = peer.StateActive
	r.sender.SendActions([]types.KadAction{
		buildPing(r.operationID, r.probed.Addr),
	})
	return nil
}

// IsPertinent implements peer.PendingRequest
func (r *PingPendingRequest) IsPertinent(action types.KadAction) bool {
	if r.state != peer.StateActive {
		return false
	}
	return action.Type == types.ActionPingAnswer &&
		action.OperationID == r.operationID
}

// Step implements peer.PendingRequest
func (r *PingPendingRequest) Step(action types.KadAction) {
	if !r.IsPertinent(action) {
		return
	}

	if types.NewContact(action.Peer).Equal(r.probed) {
		r.finish(true)
	}
	r.steps++
}

// TimeoutPending implements peer.PendingRequest
func (r *PingPendingRequest) TimeoutPending() {
	if r.state != peer.StateActive {
		return
	}
	r.finish(false)
}

func (r *PingPendingRequest) finish(alive bool) {
	if alive {
		r.state = peer.StateFound
	} else {
		r.state = peer.StateNotFound
	}
	r.listener.OnPingResult(r.operationID, r.probed, alive)
}
