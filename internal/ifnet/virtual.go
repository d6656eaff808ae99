package ifnet

import (
	"io"
	"net"
)

// Virtual is the datapath's own local interface: it has no backing NIC,
// so its two directions are each a channel rather than a socket. Send
// delivers a frame the pipeline addressed to OFPP_LOCAL to whatever
// drains Received() (the host management stack); Receive is the
// opposite direction, blocking for a frame the management stack wants
// injected into the pipeline (spec §4.3's ingress hook), symmetric with
// Interface.Receive's raw-socket read. It still satisfies dp.Interface
// so internal/dp's Port type doesn't need a separate code path for it.
type Virtual struct {
	name string
	mac  net.HardwareAddr
	mtu  int
	out  chan []byte
	in   chan []byte
}

func NewVirtual(name string, mac net.HardwareAddr, mtu int) *Virtual {
	return &Virtual{name: name, mac: mac, mtu: mtu, out: make(chan []byte, 64), in: make(chan []byte, 64)}
}

func (v *Virtual) Name() string                  { return v.name }
func (v *Virtual) HardwareAddr() net.HardwareAddr { return v.mac }
func (v *Virtual) MTU() int                       { return v.mtu }
func (v *Virtual) IsLoopback() bool               { return true }
func (v *Virtual) IsEthernet() bool               { return true }
func (v *Virtual) SetPromiscuous(on bool) error   { return nil }

// Send delivers frame to whatever is draining Received(); it never
// blocks indefinitely; a full queue drops the oldest frame, since the
// local delivery path is a convenience, not a reliability guarantee.
func (v *Virtual) Send(frame []byte) error {
	select {
	case v.out <- frame:
	default:
		<-v.out
		v.out <- frame
	}
	return nil
}

func (v *Virtual) Received() <-chan []byte { return v.out }

// Receive implements dp.Interface for the local port's ingress hook. It
// blocks until something feeds Inject, or until Close.
func (v *Virtual) Receive(buf []byte) (int, error) {
	frame, ok := <-v.in
	if !ok {
		return 0, io.EOF
	}
	return copy(buf, frame), nil
}

// Inject hands frame to the local port's ingress hook, as if the host
// management stack had originated it.
func (v *Virtual) Inject(frame []byte) {
	select {
	case v.in <- frame:
	default:
		<-v.in
		v.in <- frame
	}
}

func (v *Virtual) Close() error {
	close(v.out)
	close(v.in)
	return nil
}
