package channel

import (
	"fmt"
	"sync"
	"time"

	"go.dedis.ch/kadem/transport"
)

const bufSize = 1024

// NewTransport returns an in-memory transport. Sockets created from the same
// transport instance can reach each other; there is no real network involved,
// which makes it the transport of choice for tests.
func NewTransport() transport.Transport {
	return &Transport{
		incomings: make(map[string]chan transport.Packet),
	}
}

// Transport implements an in-memory transport
//
// - implements transport.Transport
type Transport struct {
	sync.Mutex
	incomings map[string]chan transport.Packet
	port      int
}

// CreateSocket implements transport.Transport
func (t *Transport) CreateSocket(address string) (transport.ClosableSocket, error) {
	t.Lock()
	defer t.Unlock()

	if address == "" || (len(address) >= 2 && address[len(address)-2:] == ":0") {
		t.port++
		address = fmt.Sprintf("127.0.0.1:%d", t.port)
	}

	if _, ok := t.incomings[address]; ok {
		return nil, fmt.Errorf("[transport.channel] address already in use: %s", address)
	}

	t.incomings[address] = make(chan transport.Packet, bufSize)

	return &Socket{
		t:    t,
		addr: address,
	}, nil
}

// Socket implements an in-memory socket
//
// - implements transport.Socket
// - implements transport.ClosableSocket
type Socket struct {
	t    *Transport
	addr string

	ins  packets
	outs packets
}

// Close implements transport.Socket
func (s *Socket) Close() error {
	s.t.Lock()
	defer s.t.Unlock()

	_, ok := s.t.incomings[s.addr]
	if !ok {
		return fmt.Errorf("[transport.channel] socket already closed: %s", s.addr)
	}

	delete(s.t.incomings, s.addr)
	return nil
}

// Send implements transport.Socket
func (s *Socket) Send(dest string, pkt transport.Packet, timeout time.Duration) error {
	s.t.Lock()
	in, ok := s.t.incomings[dest]
	s.t.Unlock()

	if !ok {
		return fmt.Errorf("[transport.channel] unknown destination: %s", dest)
	}

	if timeout == 0 {
		in <- pkt.Copy()
	} else {
		select {
		case in <- pkt.Copy():
		case <-time.After(timeout):
			return transport.TimeoutErr(timeout)
		}
	}

	s.outs.add(pkt)
	return nil
}

// Recv implements transport.Socket
func (s *Socket) Recv(timeout time.Duration) (transport.Packet, error) {
	s.t.Lock()
	in, ok := s.t.incomings[s.addr]
	s.t.Unlock()

	if !ok {
		return transport.Packet{}, fmt.Errorf("[transport.channel] socket closed: %s", s.addr)
	}

	if timeout == 0 {
		pkt := <-in
		s.ins.add(pkt)
		return pkt, nil
	}

	select {
	case pkt := <-in:
		s.ins.add(pkt)
		return pkt, nil
	case <-time.After(timeout):
		return transport.Packet{}, transport.TimeoutErr(timeout)
	}
}

// GetAddress implements transport.Socket
func (s *Socket) GetAddress() string {
	return s.addr
}

// GetIns implements transport.Socket
func (s *Socket) GetIns() []transport.Packet {
	return s.ins.getAll()
}

// GetOuts implements transport.Socket
func (s *Socket) GetOuts() []transport.Packet {
	return s.outs.getAll()
}

type packets struct {
	sync.Mutex
	data []transport.Packet
}

func (p *packets) add(pkt transport.Packet) {
	p.Lock()
	defer p.Unlock()

	p.data = append(p.data, pkt)
}

func (p *packets) getAll() []transport.Packet {
	p.Lock()
	defer p.Unlock()

	res := make([]transport.Packet, len(p.data))

	for i, pkt := range p.data {
		res[i] = pkt.Copy()
	}

	return res
}
