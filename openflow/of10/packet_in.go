package of10

import (
	"encoding/binary"

	"github.com/ofdp/switchd/openflow"
)

// PacketIn escalates a frame to the controller (spec §4.5). The
// controller-bound direction so it only needs MarshalBinary on this
// side; UnmarshalBinary is provided as well for the reverse direction.
type PacketIn struct {
	openflow.Message
	BufferID uint32
	TotalLen uint16
	InPort   uint16
	Reason   uint8
	Data     []byte
}

func NewPacketIn(xid uint32, bufferID uint32, totalLen uint16, inPort uint16, reason uint8, data []byte) *PacketIn {
	return &PacketIn{
		Message:  openflow.NewMessage(openflow.Version, OFPT_PACKET_IN, xid),
		BufferID: bufferID,
		TotalLen: totalLen,
		InPort:   inPort,
		Reason:   reason,
		Data:     data,
	}
}

func (p *PacketIn) MarshalBinary() ([]byte, error) {
	payload := make([]byte, 10+len(p.Data))
	binary.BigEndian.PutUint32(payload[0:4], p.BufferID)
	binary.BigEndian.PutUint16(payload[4:6], p.TotalLen)
	binary.BigEndian.PutUint16(payload[6:8], p.InPort)
	payload[8] = p.Reason
	// payload[9] padding
	copy(payload[10:], p.Data)
	p.SetPayload(payload)
	return p.Message.MarshalBinary()
}

func (p *PacketIn) UnmarshalBinary(data []byte) error {
	if err := p.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	payload := p.Payload()
	if len(payload) < 10 {
		return openflow.ErrInvalidPacketLength
	}
	p.BufferID = binary.BigEndian.Uint32(payload[0:4])
	p.TotalLen = binary.BigEndian.Uint16(payload[4:6])
	p.InPort = binary.BigEndian.Uint16(payload[6:8])
	p.Reason = payload[8]
	p.Data = payload[10:]
	return nil
}
