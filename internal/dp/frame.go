package dp

import (
	"encoding/binary"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ParseFrame normalizes a raw Ethernet frame read off an attached
// interface into the Frame shape Lookup matches against (spec §4.3's
// "hands it to the pipeline" step). Fields beyond Data/InPort are left
// at their zero value when the frame doesn't carry the corresponding
// layer, which simply makes those match fields never compare equal.
func ParseFrame(data []byte, inPort uint16) *Frame {
	frame := &Frame{Data: data, InPort: inPort}

	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok {
		return frame
	}
	frame.DLSrc = eth.SrcMAC
	frame.DLDst = eth.DstMAC
	frame.DLType = uint16(eth.EthernetType)

	if ip, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
		frame.NWProto = uint8(ip.Protocol)
		if v4 := ip.SrcIP.To4(); v4 != nil {
			frame.NWSrc = binary.BigEndian.Uint32(v4)
		}
		if v4 := ip.DstIP.To4(); v4 != nil {
			frame.NWDst = binary.BigEndian.Uint32(v4)
		}
	}
	switch t := pkt.TransportLayer().(type) {
	case *layers.TCP:
		frame.TPSrc = uint16(t.SrcPort)
		frame.TPDst = uint16(t.DstPort)
	case *layers.UDP:
		frame.TPSrc = uint16(t.SrcPort)
		frame.TPDst = uint16(t.DstPort)
	}
	return frame
}
