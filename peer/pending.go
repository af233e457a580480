package peer

import "go.dedis.ch/kadem/types"

// K is the number of peers queried per lookup round.
const K = 5

// RequestState is the lifecycle state of a pending request.
type RequestState int

const (
	// StateIdle is the state before Start
	StateIdle RequestState = iota
	// StateActive means responses are awaited or being processed
	StateActive
	// StateFound is the terminal state of a successful operation
	StateFound
	// StateNotFound is the terminal state of an exhausted operation
	StateNotFound
)

// Terminal reports whether no further transition can happen.
func (s RequestState) Terminal() bool {
	return s == StateFound || s == StateNotFound
}

func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateFound:
		return "found"
	case StateNotFound:
		return "notfound"
	}
	return "invalid"
}

// PendingRequest is the common lifecycle of a correlated multi-step
// operation. Implementations own their bookkeeping exclusively and never
// lock: the caller must serialize all calls on one instance.
type PendingRequest interface {
	// OperationID returns the id correlating this operation's messages.
	OperationID() string

	// State returns the current lifecycle state.
	State() RequestState

	// StepsTaken returns a diagnostic count of processed actions. It is not
	// used for correctness.
	StepsTaken() int

	// Start performs the first round. It is callable exactly once, from
	// idle; any further call is a caller contract violation and returns an
	// error without re-running the operation.
	Start() error

	// IsPertinent reports whether the action can continue this operation:
	// the state is active, the action kind is the expected answer kind and
	// the operation id matches. It never mutates state.
	IsPertinent(action types.KadAction) bool

	// Step applies a response. It is a no-op if the action is not pertinent.
	Step(action types.KadAction)

	// TimeoutPending declares every peer still awaited as non-responding and
	// re-evaluates round completion. It is the integration-boundary deadline
	// hook; the algorithm itself has no clock.
	TimeoutPending()
}

// ActionSender propagates a batch of outgoing actions. Fire-and-forget: the
// engine observes no outcome.
type ActionSender interface {
	SendActions(actions []types.KadAction)
}

// NodeProvider is the routing-table contract the engines depend on. It is
// shared across concurrently active operations and must synchronize itself.
type NodeProvider interface {
	// KClosest returns up to k known contacts closest to target.
	KClosest(k int, target types.Key) []types.Contact

	// FilterKClosest returns the k contacts of candidates closest to target.
	FilterKClosest(k int, target types.Key, candidates []types.Contact) []types.Contact

	// MarkVisited records that the contact answered an action.
	MarkVisited(contact types.Contact)
}

// FindValueListener is notified exactly once per value lookup. A nil peer
// and nil resource jointly signal not-found; a non-nil resource always pairs
// with the peer that supplied it.
type FindValueListener interface {
	OnFindValueResult(operationID string, peer *types.Contact, resource *types.Resource)
}

// FindNodeListener is notified exactly once per node lookup with the closest
// contacts reached, ordered by distance to the target.
type FindNodeListener interface {
	OnFindNodeResult(operationID string, closest []types.Contact)
}

// InviteListener is notified exactly once per invite operation. accepted is
// false when the invite was refused or the operation otherwise failed.
type InviteListener interface {
	OnInviteResult(operationID string, invited types.Contact, accepted bool)
}

// PingListener is notified exactly once per ping operation.
type PingListener interface {
	OnPingResult(operationID string, peer types.Contact, alive bool)
}
