package types

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// ActionType discriminates the kind of a KadAction. Request kinds are sent to
// remote peers; answer kinds continue a pending operation on the caller side.
type ActionType int

const (
	// ActionInvite asks a peer to join the network of the sender
	ActionInvite ActionType = iota + 1
	// ActionInviteAnswer carries the boolean outcome of an invite
	ActionInviteAnswer
	// ActionPing probes a peer for liveness
	ActionPing
	// ActionPingAnswer confirms liveness
	ActionPingAnswer
	// ActionFindNode asks a peer for its closest contacts to a key
	ActionFindNode
	// ActionFindNodeAnswer carries one contact of a find-node answer
	ActionFindNodeAnswer
	// ActionFindValue asks a peer for the resource stored at a key
	ActionFindValue
	// ActionFindValueAnswer carries one fragment of a find-value answer
	ActionFindValueAnswer
)

// IsRequest reports whether the kind is one a remote peer must answer.
func (t ActionType) IsRequest() bool {
	switch t {
	case ActionInvite, ActionPing, ActionFindNode, ActionFindValue:
		return true
	}
	return false
}

// Answer returns the answer kind matching a request kind, 0 otherwise.
func (t ActionType) Answer() ActionType {
	if t.IsRequest() {
		return t + 1
	}
	return 0
}

func (t ActionType) String() string {
	switch t {
	case ActionInvite:
		return "invite"
	case ActionInviteAnswer:
		return "inviteanswer"
	case ActionPing:
		return "ping"
	case ActionPingAnswer:
		return "pinganswer"
	case ActionFindNode:
		return "findnode"
	case ActionFindNodeAnswer:
		return "findnodeanswer"
	case ActionFindValue:
		return "findvalue"
	case ActionFindValueAnswer:
		return "findvalueanswer"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// PayloadType discriminates what Content of a KadAction holds.
type PayloadType int

const (
	// PayloadIgnore marks an empty payload
	PayloadIgnore PayloadType = iota
	// PayloadBoolean holds "true" or "false"
	PayloadBoolean
	// PayloadNodeID holds a hex-encoded Key
	PayloadNodeID
	// PayloadPeerAddress holds a network address of a peer
	PayloadPeerAddress
	// PayloadResource holds an encoded Resource
	PayloadResource
)

// KadAction is the single protocol message. It belongs to exactly one
// operation, identified by OperationID. Peer is the remote counterpart:
// the destination on outgoing actions, the sender on received ones (the
// receive loop overwrites it from the packet header).
//
// Parts is the number of independent answer fragments the message promises,
// always >= 1 on answers. A peer answering a find request with n contacts
// sends n messages, each carrying Parts = n.
type KadAction struct {
	OperationID string
	Type        ActionType
	Payload     PayloadType
	Content     string
	Parts       int
	Peer        string
}

// Valid performs the structural checks the engine relies on.
func (a KadAction) Valid() bool {
	return a.Type != 0 && a.OperationID != "" && a.Parts >= 1 && a.Peer != ""
}

func (a KadAction) String() string {
	return fmt.Sprintf("%s op=%s peer=%s parts=%d", a.Type, a.OperationID, a.Peer, a.Parts)
}

// ResourceSep is the reserved separator of the resource encoding. It is not
// permitted inside raw field content.
const ResourceSep = "\r"

// Resource is an arbitrary named value found at a peer.
type Resource struct {
	Name  string
	Value string
}

// Encode serializes the resource with the reserved separator. Fields
// containing the separator are rejected, upholding the encoding invariant.
func (r Resource) Encode() (string, error) {
	if strings.Contains(r.Name, ResourceSep) || strings.Contains(r.Value, ResourceSep) {
		return "", xerrors.Errorf("resource encode: field contains reserved separator")
	}
	return r.Name + ResourceSep + r.Value, nil
}

// ParseResource decodes a resource payload.
func ParseResource(s string) (Resource, error) {
	parts := strings.SplitN(s, ResourceSep, 2)
	if len(parts) != 2 {
		return Resource{}, xerrors.Errorf("parse resource: missing separator in %q", s)
	}
	return Resource{Name: parts[0], Value: parts[1]}, nil
}
