package of10

import (
	"encoding/binary"

	"github.com/ofdp/switchd/openflow"
)

// FlowMod is ofp_flow_mod: a 40-byte match key, a 24-byte fixed body,
// then a variable-length action list. This is the message a controller
// sends to install, modify, or delete a flow; the datapath only ever
// receives it, so UnmarshalBinary is the primary direction here
// (MarshalBinary is provided for the reverse direction).
type FlowMod struct {
	openflow.Message
	Match       Match
	Cookie      uint64
	Command     uint16
	IdleTimeout uint16
	HardTimeout uint16
	Priority    uint16
	BufferID    uint32
	OutPort     openflow.OutPort
	Flags       uint16
	Actions     ActionList
}

func (f *FlowMod) UnmarshalBinary(data []byte) error {
	if err := f.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	payload := f.Payload()
	if len(payload) < matchLength+24 {
		return openflow.ErrInvalidPacketLength
	}
	if err := f.Match.UnmarshalBinary(payload[:matchLength]); err != nil {
		return err
	}
	body := payload[matchLength:]
	f.Cookie = binary.BigEndian.Uint64(body[0:8])
	f.Command = binary.BigEndian.Uint16(body[8:10])
	f.IdleTimeout = binary.BigEndian.Uint16(body[10:12])
	f.HardTimeout = binary.BigEndian.Uint16(body[12:14])
	f.Priority = binary.BigEndian.Uint16(body[14:16])
	f.BufferID = binary.BigEndian.Uint32(body[16:20])
	f.OutPort = unmarshalOutPort(binary.BigEndian.Uint16(body[20:22]))
	f.Flags = binary.BigEndian.Uint16(body[22:24])

	actions, err := UnmarshalActions(payload[matchLength+24:])
	if err != nil {
		return err
	}
	f.Actions = actions
	return nil
}

func (f *FlowMod) MarshalBinary() ([]byte, error) {
	match, err := f.Match.MarshalBinary()
	if err != nil {
		return nil, err
	}
	actions, err := f.Actions.MarshalBinary()
	if err != nil {
		return nil, err
	}

	body := make([]byte, 24)
	binary.BigEndian.PutUint64(body[0:8], f.Cookie)
	binary.BigEndian.PutUint16(body[8:10], f.Command)
	binary.BigEndian.PutUint16(body[10:12], f.IdleTimeout)
	binary.BigEndian.PutUint16(body[12:14], f.HardTimeout)
	binary.BigEndian.PutUint16(body[14:16], f.Priority)
	binary.BigEndian.PutUint32(body[16:20], f.BufferID)
	binary.BigEndian.PutUint16(body[20:22], marshalOutPort(f.OutPort))
	binary.BigEndian.PutUint16(body[22:24], f.Flags)

	payload := append(append(match, body...), actions...)
	f.SetPayload(payload)
	return f.Message.MarshalBinary()
}

func (f *FlowMod) SendFlowRem() bool { return f.Flags&OFPFF_SEND_FLOW_REM != 0 }
func (f *FlowMod) CheckOverlap() bool { return f.Flags&OFPFF_CHECK_OVERLAP != 0 }
func (f *FlowMod) Emergency() bool   { return f.Flags&OFPFF_EMERG != 0 }
