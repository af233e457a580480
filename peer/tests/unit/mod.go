package unit

import (
	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/peer/impl"
	"go.dedis.ch/kadem/transport"
	"go.dedis.ch/kadem/transport/channel"
)

var peerFac peer.Factory = impl.NewPeer

var channelFac transport.Factory = channel.NewTransport
