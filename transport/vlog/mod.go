// Package vlog decorates a transport with GoVector vector-clock logging.
// Each sent payload is stamped with the local clock and each received payload
// unpacks the remote one, so logs of different nodes can be joined into a
// single causally ordered trace. Both ends of a link must use it.
package vlog

import (
	"fmt"
	"time"

	"github.com/DistributedClocks/GoVector/govec"
	"go.dedis.ch/kadem/transport"
)

// NewTransport wraps the given transport. logName is the base name of the
// GoVector log file of each socket.
func NewTransport(inner transport.Transport, logName string) transport.Transport {
	return &Transport{inner: inner, logName: logName}
}

// Transport implements a vector-clock logging transport decorator
//
// - implements transport.Transport
type Transport struct {
	inner   transport.Transport
	logName string
}

// CreateSocket implements transport.Transport
func (t *Transport) CreateSocket(address string) (transport.ClosableSocket, error) {
	socket, err := t.inner.CreateSocket(address)
	if err != nil {
		return nil, err
	}

	addr := socket.GetAddress()
	logger := govec.InitGoVector(addr, fmt.Sprintf("%s-%s", t.logName, addr),
		govec.GetDefaultConfig())

	return &Socket{
		ClosableSocket: socket,
		logger:         logger,
	}, nil
}

// Socket implements a socket stamping every payload with a vector clock
//
// - implements transport.Socket
// - implements transport.ClosableSocket
type Socket struct {
	transport.ClosableSocket

	logger *govec.GoLog
}

// Send implements transport.Socket
func (s *Socket) Send(dest string, pkt transport.Packet, timeout time.Duration) error {
	stamped := pkt.Copy()
	stamped.Msg = s.logger.PrepareSend("send to "+dest, pkt.Msg,
		govec.GetDefaultLogOptions())

	return s.ClosableSocket.Send(dest, stamped, timeout)
}

// Recv implements transport.Socket
func (s *Socket) Recv(timeout time.Duration) (transport.Packet, error) {
	pkt, err := s.ClosableSocket.Recv(timeout)
	if err != nil {
		return pkt, err
	}

	var msg []byte
	s.logger.UnpackReceive("recv from "+pkt.Header.Source, pkt.Msg, &msg,
		govec.GetDefaultLogOptions())
	pkt.Msg = msg

	return pkt, nil
}
