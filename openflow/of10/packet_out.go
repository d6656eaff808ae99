package of10

import (
	"encoding/binary"

	"github.com/ofdp/switchd/openflow"
)

// PacketOut is ofp_packet_out: buffer_id, in_port, an action list, and
// optionally raw data (present only when buffer_id is OFP_NO_BUFFER).
// The datapath receives these; UnmarshalBinary is the direction this
// module actually exercises.
type PacketOut struct {
	openflow.Message
	BufferID uint32
	InPort   uint16
	Actions  ActionList
	Data     []byte
}

func (p *PacketOut) UnmarshalBinary(data []byte) error {
	if err := p.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	payload := p.Payload()
	if len(payload) < 8 {
		return openflow.ErrInvalidPacketLength
	}
	p.BufferID = binary.BigEndian.Uint32(payload[0:4])
	p.InPort = binary.BigEndian.Uint16(payload[4:6])
	actionsLen := binary.BigEndian.Uint16(payload[6:8])
	if len(payload) < 8+int(actionsLen) {
		return openflow.ErrInvalidPacketLength
	}
	actions, err := UnmarshalActions(payload[8 : 8+actionsLen])
	if err != nil {
		return err
	}
	p.Actions = actions
	p.Data = payload[8+actionsLen:]
	return nil
}

func (p *PacketOut) MarshalBinary() ([]byte, error) {
	actions, err := p.Actions.MarshalBinary()
	if err != nil {
		return nil, err
	}
	v := make([]byte, 8+len(actions)+len(p.Data))
	binary.BigEndian.PutUint32(v[0:4], p.BufferID)
	binary.BigEndian.PutUint16(v[4:6], p.InPort)
	binary.BigEndian.PutUint16(v[6:8], uint16(len(actions)))
	copy(v[8:], actions)
	copy(v[8+len(actions):], p.Data)
	p.SetPayload(v)
	return p.Message.MarshalBinary()
}
