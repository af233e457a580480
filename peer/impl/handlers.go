package impl

import (
	"github.com/rs/zerolog/log"

	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/types"
)

// handleRequest answers one incoming request. Every requester is a live peer
// worth remembering, so it enters the routing table first.
func (n *node) handleRequest(action types.KadAction) {
	requester := types.NewContact(action.Peer)
	n.rt.AddContact(requester)

	switch action.Type {
	case types.ActionPing:
		n.SendActions([]types.KadAction{buildBooleanAnswer(action, true)})

	case types.ActionInvite:
		n.SendActions([]types.KadAction{buildBooleanAnswer(action, n.conf.AcceptInvites)})

	case types.ActionFindNode:
		n.handleFind(action, false)

	case types.ActionFindValue:
		n.handleFind(action, true)

	default:
		log.Warn().Msgf("[Node.handleRequest] unexpected request kind %s from %s",
			action.Type, action.Peer)
	}
}

// handleFind answers a find-node or find-value request. A find-value request
// for a locally seeded resource is answered with the resource itself; every
// other case is answered with contacts closer to the target.
func (n *node) handleFind(action types.KadAction, withValue bool) {
	target, err := types.KeyFromHex(action.Content)
	if err != nil {
		log.Error().Msgf("[Node.handleFind] drop %s from %s: %s",
			action.Type, action.Peer, err.Error())
		return
	}

	if withValue {
		if resource, ok := n.resources.Get(target); ok {
			encoded, err := resource.Encode()
			if err != nil {
				// unreachable for resources admitted by Seed
				log.Error().Msgf("[Node.handleFind] cannot encode resource %s: %s",
					resource.Name, err.Error())
				return
			}
			n.SendActions([]types.KadAction{buildResourceAnswer(action, encoded)})
			return
		}
	}

	requester := types.NewContact(action.Peer)

	closest := n.rt.KClosest(peer.K, target)
	contacts := make([]types.Contact, 0, len(closest))
	for _, contact := range closest {
		if contact.Equal(requester) {
			continue
		}
		contacts = append(contacts, contact)
	}

	// never answer empty: echoing our own address lets the requester complete
	// its round, and it already knows us
	if len(contacts) == 0 {
		contacts = append(contacts, n.self)
	}

	n.SendActions(buildContactAnswers(action, contacts))
}
