package of10

import (
	"encoding/binary"

	"github.com/ofdp/switchd/openflow"
)

// Error is ofp_error_msg: a 16-bit type + 16-bit code followed by
// variable data, typically the offending request header (spec §4.9,
// §7's error taxonomy).
type Error struct {
	openflow.Message
	ErrType uint16
	Code    uint16
	Data    []byte
}

func NewError(xid uint32, errType, code uint16, data []byte) *Error {
	m := openflow.NewMessage(openflow.Version, OFPT_ERROR, xid)
	e := &Error{Message: m, ErrType: errType, Code: code, Data: data}
	payload := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(payload[0:2], errType)
	binary.BigEndian.PutUint16(payload[2:4], code)
	copy(payload[4:], data)
	e.SetPayload(payload)
	return e
}

func (e *Error) MarshalBinary() ([]byte, error) {
	return e.Message.MarshalBinary()
}

func (e *Error) UnmarshalBinary(data []byte) error {
	if err := e.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := e.Payload()
	if len(p) < 4 {
		return openflow.ErrInvalidPacketLength
	}
	e.ErrType = binary.BigEndian.Uint16(p[0:2])
	e.Code = binary.BigEndian.Uint16(p[2:4])
	e.Data = p[4:]
	return nil
}
