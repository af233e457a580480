package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
)

// Transport creates sockets bound to an address.
type Transport interface {
	CreateSocket(address string) (ClosableSocket, error)
}

// Factory describes a function that creates a transport.
type Factory func() Transport

// Socket sends and receives packets. Send is fire-and-forget from the
// caller's point of view: a nil error only means the packet left the socket.
type Socket interface {
	// Send sends a packet to the destination. A zero timeout blocks forever.
	Send(dest string, pkt Packet, timeout time.Duration) error

	// Recv blocks until a packet is received or the timeout is reached, in
	// which case it returns a TimeoutErr.
	Recv(timeout time.Duration) (Packet, error)

	// GetAddress returns the address assigned to the socket.
	GetAddress() string

	// GetIns returns all packets received so far.
	GetIns() []Packet

	// GetOuts returns all packets sent so far.
	GetOuts() []Packet
}

// ClosableSocket is a socket that can be closed.
type ClosableSocket interface {
	Socket

	// Close closes the socket. It returns an error if already closed.
	Close() error
}

// TimeoutErr is returned by Recv and Send when the deadline passed.
type TimeoutErr time.Duration

func (e TimeoutErr) Error() string {
	return fmt.Sprintf("timeout reached after %s", time.Duration(e))
}

// Is reports a match against any TimeoutErr regardless of its duration.
func (e TimeoutErr) Is(err error) bool {
	_, ok := err.(TimeoutErr)
	return ok
}

// Header describes the metadata of a packet.
type Header struct {
	PacketID  string
	Source    string
	Destination string
	Timestamp int64
}

// NewHeader returns a header with a fresh packet id.
func NewHeader(source, destination string) Header {
	return Header{
		PacketID:    xid.New().String(),
		Source:      source,
		Destination: destination,
		Timestamp:   time.Now().UnixNano(),
	}
}

// Packet is what circulates on the network. Msg is an opaque payload; the
// peer layer owns its encoding.
type Packet struct {
	Header *Header
	Msg    []byte
}

// Marshal serializes the packet.
func (p Packet) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Unmarshal deserializes data into the packet.
func (p *Packet) Unmarshal(data []byte) error {
	return json.Unmarshal(data, p)
}

// Copy returns a deep copy of the packet.
func (p Packet) Copy() Packet {
	var header Header
	if p.Header != nil {
		header = *p.Header
	}

	msg := make([]byte, len(p.Msg))
	copy(msg, p.Msg)

	return Packet{Header: &header, Msg: msg}
}
