package impl

import (
	"go.dedis.ch/kadem/types"
)

// fakeSender records every batch an engine sends.
//
// - implements peer.ActionSender
type fakeSender struct {
	batches [][]types.KadAction
}

func (s *fakeSender) SendActions(actions []types.KadAction) {
	s.batches = append(s.batches, actions)
}

func (s *fakeSender) lastBatch() []types.KadAction {
	if len(s.batches) == 0 {
		return nil
	}
	return s.batches[len(s.batches)-1]
}

func (s *fakeSender) destinations(batch []types.KadAction) []string {
	dests := make([]string, 0, len(batch))
	for _, action := range batch {
		dests = append(dests, action.Peer)
	}
	return dests
}

// fakeProvider serves a fixed contact list and records visits.
//
// - implements peer.NodeProvider
type fakeProvider struct {
	known   []types.Contact
	visited []types.Contact
}

func (p *fakeProvider) KClosest(k int, target types.Key) []types.Contact {
	closest := make([]types.Contact, len(p.known))
	copy(closest, p.known)
	sortByDistance(closest, target)
	return closest[:min(len(closest), k)]
}

func (p *fakeProvider) FilterKClosest(k int, target types.Key,
	candidates []types.Contact) []types.Contact {

	filtered := make([]types.Contact, 0, len(candidates))
	seen := make(map[types.Key]struct{}, len(candidates))
	for _, candidate := range candidates {
		if _, ok := seen[candidate.Key]; ok {
			continue
		}
		seen[candidate.Key] = struct{}{}
		filtered = append(filtered, candidate)
	}
	sortByDistance(filtered, target)
	return filtered[:min(len(filtered), k)]
}

func (p *fakeProvider) MarkVisited(contact types.Contact) {
	p.visited = append(p.visited, contact)
}

// findValueRecorder captures find-value outcomes.
//
// - implements peer.FindValueListener
type findValueRecorder struct {
	calls    int
	peer     *types.Contact
	resource *types.Resource
}

func (r *findValueRecorder) OnFindValueResult(operationID string,
	peer *types.Contact, resource *types.Resource) {

	r.calls++
	r.peer = peer
	r.resource = resource
}

// findNodeRecorder captures find-node outcomes.
//
// - implements peer.FindNodeListener
type findNodeRecorder struct {
	calls   int
	closest []types.Contact
}

func (r *findNodeRecorder) OnFindNodeResult(operationID string, closest []types.Contact) {
	r.calls++
	r.closest = closest
}

// inviteRecorder captures invite outcomes.
//
// - implements peer.InviteListener
type inviteRecorder struct {
	calls    int
	accepted bool
}

func (r *inviteRecorder) OnInviteResult(operationID string,
	invited types.Contact, accepted bool) {

	r.calls++
	r.accepted = accepted
}

// pingRecorder captures ping outcomes.
//
// - implements peer.PingListener
type pingRecorder struct {
	calls int
	alive bool
}

func (r *pingRecorder) OnPingResult(operationID string,
	peer types.Contact, alive bool) {

	r.calls++
	r.alive = alive
}

func contactsOf(addrs ...string) []types.Contact {
	contacts := make([]types.Contact, 0, len(addrs))
	for _, addr := range addrs {
		contacts = append(contacts, types.NewContact(addr))
	}
	return contacts
}

func peerAddressAnswer(operationID, from, candidate string, parts int) types.KadAction {
	return types.KadAction{
		OperationID: operationID,
		Type:        types.ActionFindValueAnswer,
		Payload:     types.PayloadPeerAddress,
		Content:     candidate,
		Parts:       parts,
		Peer:        from,
	}
}

func resourceAnswer(operationID, from, content string) types.KadAction {
	return types.KadAction{
		OperationID: operationID,
		Type:        types.ActionFindValueAnswer,
		Payload:     types.PayloadResource,
		Content:     content,
		Parts:       1,
		Peer:        from,
	}
}

func nodeAddressAnswer(operationID, from, candidate string, parts int) types.KadAction {
	return types.KadAction{
		OperationID: operationID,
		Type:        types.ActionFindNodeAnswer,
		Payload:     types.PayloadPeerAddress,
		Content:     candidate,
		Parts:       parts,
		Peer:        from,
	}
}
