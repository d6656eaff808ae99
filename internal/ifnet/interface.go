// Package ifnet attaches a host network interface to the datapath: it
// wraps a netlink handle for promiscuous mode and link-state control,
// and an AF_PACKET socket for the actual frame I/O, satisfying the
// narrow dp.Interface contract.
package ifnet

import (
	"net"

	"github.com/mdlayher/packet"
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// Interface is one host NIC attached to a datapath port. It owns the
// raw socket used for both receive and transmit.
type Interface struct {
	link netlink.Link
	conn *packet.Conn
	mtu  int
}

// Open resolves name to a netlink link and opens a raw AF_PACKET socket
// bound to it. protocol is the ethertype filter passed to the socket,
// typically packet.All to see every frame.
func Open(name string, protocol int) (*Interface, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving interface %q", name)
	}

	conn, err := packet.Listen(&net.Interface{
		Index:        link.Attrs().Index,
		MTU:          link.Attrs().MTU,
		Name:         link.Attrs().Name,
		HardwareAddr: link.Attrs().HardwareAddr,
		Flags:        link.Attrs().Flags,
	}, packet.Raw, protocol, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening raw socket on %q", name)
	}

	return &Interface{link: link, conn: conn, mtu: link.Attrs().MTU}, nil
}

func (i *Interface) Name() string { return i.link.Attrs().Name }

func (i *Interface) HardwareAddr() net.HardwareAddr { return i.link.Attrs().HardwareAddr }

func (i *Interface) MTU() int { return i.mtu }

func (i *Interface) IsLoopback() bool {
	return i.link.Attrs().Flags&net.FlagLoopback != 0
}

func (i *Interface) IsEthernet() bool {
	return i.link.Type() == "device" || i.link.Type() == "veth" || i.link.Type() == "bridge"
}

// SetPromiscuous toggles IFF_PROMISC for the lifetime of a port
// attachment (spec §4.2).
func (i *Interface) SetPromiscuous(on bool) error {
	if on {
		return netlink.SetPromiscOn(i.link)
	}
	return netlink.SetPromiscOff(i.link)
}

// Send writes a complete Ethernet frame, including its L2 header, to
// the wire.
func (i *Interface) Send(frame []byte) error {
	addr := &packet.Addr{HardwareAddr: i.link.Attrs().HardwareAddr}
	_, err := i.conn.WriteTo(frame, addr)
	return err
}

// Receive blocks for the next frame. Used by the process driving the
// ingress hook (spec §4.3); returns the raw bytes including the L2
// header, matching what Send expects on the way back out.
func (i *Interface) Receive(buf []byte) (int, error) {
	n, _, err := i.conn.ReadFrom(buf)
	return n, err
}

func (i *Interface) Close() error {
	return i.conn.Close()
}
