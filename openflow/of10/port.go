package of10

import (
	"encoding/binary"
	"net"
	"strings"

	"github.com/ofdp/switchd/openflow"
)

// Port is ofp_phy_port: the 48-byte descriptor carried in a features
// reply, a port-status notification, and a per-port statistics record.
type Port struct {
	Number     uint16
	MAC        net.HardwareAddr
	Name       string
	Config     uint32 // OFPPC_* bitmap
	State      uint32 // OFPPS_* bitmap
	Current    uint32 // OFPPF_* bitmap
	Advertised uint32
	Supported  uint32
	Peer       uint32
}

const portLength = 48

func (p *Port) MarshalBinary() ([]byte, error) {
	v := make([]byte, portLength)
	binary.BigEndian.PutUint16(v[0:2], p.Number)
	copyMAC(v[2:8], p.MAC)
	name := p.Name
	if len(name) > 16 {
		name = name[:16]
	}
	copy(v[8:24], name)
	binary.BigEndian.PutUint32(v[24:28], p.Config)
	binary.BigEndian.PutUint32(v[28:32], p.State)
	binary.BigEndian.PutUint32(v[32:36], p.Current)
	binary.BigEndian.PutUint32(v[36:40], p.Advertised)
	binary.BigEndian.PutUint32(v[40:44], p.Supported)
	binary.BigEndian.PutUint32(v[44:48], p.Peer)
	return v, nil
}

func (p *Port) UnmarshalBinary(data []byte) error {
	if len(data) < portLength {
		return openflow.ErrInvalidPacketLength
	}

	p.Number = binary.BigEndian.Uint16(data[0:2])
	p.MAC = append(net.HardwareAddr{}, data[2:8]...)
	p.Name = strings.TrimRight(string(data[8:24]), "\x00")
	p.Config = binary.BigEndian.Uint32(data[24:28])
	p.State = binary.BigEndian.Uint32(data[28:32])
	p.Current = binary.BigEndian.Uint32(data[32:36])
	p.Advertised = binary.BigEndian.Uint32(data[36:40])
	p.Supported = binary.BigEndian.Uint32(data[40:44])
	p.Peer = binary.BigEndian.Uint32(data[44:48])

	return nil
}

func (p *Port) IsPortDown() bool { return p.Config&OFPPC_PORT_DOWN != 0 }
func (p *Port) IsLinkDown() bool { return p.State&OFPPS_LINK_DOWN != 0 }
func (p *Port) IsNoFlood() bool  { return p.Config&OFPPC_NO_FLOOD != 0 }
func (p *Port) IsNoFwd() bool    { return p.Config&OFPPC_NO_FWD != 0 }
func (p *Port) IsNoPacketIn() bool { return p.Config&OFPPC_NO_PACKET_IN != 0 }
