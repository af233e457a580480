package impl

import (
	"strconv"

	"go.dedis.ch/kadem/types"
)

// Builders for the actions an operation propagates. The Peer field holds the
// destination on outgoing actions; the receive loop overwrites it with the
// sender before stepping an engine.

func buildFindValue(operationID, dest string, target types.Key) types.KadAction {
	return types.KadAction{
		OperationID: operationID,
		Type:        types.ActionFindValue,
		Payload:     types.PayloadNodeID,
		Content:     target.String(),
		Parts:       1,
		Peer:        dest,
	}
}

func buildFindNode(operationID, dest string, target types.Key) types.KadAction {
	return types.KadAction{
		OperationID: operationID,
		Type:        types.ActionFindNode,
		Payload:     types.PayloadNodeID,
		Content:     target.String(),
		Parts:       1,
		Peer:        dest,
	}
}

func buildInvite(operationID, dest string) types.KadAction {
	return types.KadAction{
		OperationID: operationID,
		Type:        types.ActionInvite,
		Payload:     types.PayloadIgnore,
		Parts:       1,
		Peer:        dest,
	}
}

func buildPing(operationID, dest string) types.KadAction {
	return types.KadAction{
		OperationID: operationID,
		Type:        types.ActionPing,
		Payload:     types.PayloadIgnore,
		Parts:       1,
		Peer:        dest,
	}
}

func buildBooleanAnswer(req types.KadAction, value bool) types.KadAction {
	return types.KadAction{
		OperationID: req.OperationID,
		Type:        req.Type.Answer(),
		Payload:     types.PayloadBoolean,
		Content:     strconv.FormatBool(value),
		Parts:       1,
		Peer:        req.Peer,
	}
}

func buildResourceAnswer(req types.KadAction, encoded string) types.KadAction {
	return types.KadAction{
		OperationID: req.OperationID,
		Type:        req.Type.Answer(),
		Payload:     types.PayloadResource,
		Content:     encoded,
		Parts:       1,
		Peer:        req.Peer,
	}
}

// one answer message per contact, each promising the full fragment count
func buildContactAnswers(req types.KadAction, contacts []types.Contact) []types.KadAction {
	answers := make([]types.KadAction, 0, len(contacts))
	for _, contact := range contacts {
		answers = append(answers, types.KadAction{
			OperationID: req.OperationID,
			Type:        req.Type.Answer(),
			Payload:     types.PayloadPeerAddress,
			Content:     contact.Addr,
			Parts:       len(contacts),
			Peer:        req.Peer,
		})
	}
	return answers
}
