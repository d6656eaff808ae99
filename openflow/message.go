// Package openflow implements the wire framing shared by every OpenFlow
// 1.0 message: the 8-byte header, the Header/Incoming/Outgoing contracts,
// and the per-version parser registry used to decode a message once its
// type byte is known.
package openflow

import (
	"encoding"
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	ErrInvalidPacketLength = errors.New("invalid packet length")
	ErrUnsupportedVersion  = errors.New("unsupported protocol version")
	ErrUnsupportedMessage  = errors.New("unsupported message type")
	ErrInvalidPort         = errors.New("invalid port number")
)

// Version is the OpenFlow wire version byte this module speaks.
const Version uint8 = 0x01

var messageParser = make(map[uint8]func([]byte) (Incoming, error))

// RegisterParser binds a message-type dispatcher to a protocol version.
// The of10 package calls this from its own init() so that ReadMessage
// never needs to know the concrete message set of a given version.
func RegisterParser(version uint8, parser func([]byte) (Incoming, error)) {
	if parser == nil {
		panic("nil message parser function")
	}
	messageParser[version] = parser
}

// Message is the 8-byte OpenFlow header plus an opaque payload. Concrete
// message types embed it and interpret the payload themselves.
type Message struct {
	version uint8
	msgType uint8
	xid     uint32
	length  uint16
	payload []byte
}

func NewMessage(version, msgType uint8, xid uint32) Message {
	return Message{version: version, msgType: msgType, xid: xid, length: 8}
}

func (m *Message) Version() uint8       { return m.version }
func (m *Message) Type() uint8          { return m.msgType }
func (m *Message) TransactionID() uint32 { return m.xid }

func (m *Message) SetPayload(payload []byte) {
	m.payload = payload
	if payload == nil {
		m.length = 8
	} else {
		m.length = uint16(8 + len(payload))
	}
}

func (m *Message) Payload() []byte {
	if m.payload == nil {
		return nil
	}
	v := make([]byte, len(m.payload))
	copy(v, m.payload)
	return v
}

func (m *Message) MarshalBinary() ([]byte, error) {
	length := uint16(8)
	if m.payload != nil {
		length += uint16(len(m.payload))
	}
	v := make([]byte, length)
	v[0] = m.version
	v[1] = m.msgType
	binary.BigEndian.PutUint16(v[2:4], length)
	binary.BigEndian.PutUint32(v[4:8], m.xid)
	if length > 8 {
		copy(v[8:], m.payload)
	}
	return v, nil
}

func (m *Message) UnmarshalBinary(data []byte) error {
	if data == nil || len(data) < 8 {
		return ErrInvalidPacketLength
	}
	m.version = data[0]
	m.msgType = data[1]
	m.length = binary.BigEndian.Uint16(data[2:4])
	if m.length < 8 || len(data) < int(m.length) {
		return ErrInvalidPacketLength
	}
	m.xid = binary.BigEndian.Uint32(data[4:8])
	m.payload = data[8:m.length]
	return nil
}

type Header interface {
	Version() uint8
	Type() uint8
	TransactionID() uint32
}

type Outgoing interface {
	Header
	encoding.BinaryMarshaler
}

type Incoming interface {
	Header
	encoding.BinaryUnmarshaler
}

// ReadMessage peeks the 8-byte header on stream to learn the declared
// length, reads exactly that many bytes, and hands them to the parser
// registered for the header's version byte.
func ReadMessage(stream *Stream) (Incoming, error) {
	header, err := stream.Peek(8)
	if err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint16(header[2:4])
	if length < 8 {
		return nil, ErrInvalidPacketLength
	}
	packet, err := stream.ReadN(int(length))
	if err != nil {
		return nil, err
	}

	parser, ok := messageParser[packet[0]]
	if !ok {
		return nil, ErrUnsupportedVersion
	}
	return parser(packet)
}

// ParseMessage decodes a complete, already-framed OpenFlow packet (as
// delivered inside a control-channel envelope, see internal/chanframe)
// without going through a Stream's buffered peek/read.
func ParseMessage(packet []byte) (Incoming, error) {
	if len(packet) < 8 {
		return nil, ErrInvalidPacketLength
	}
	parser, ok := messageParser[packet[0]]
	if !ok {
		return nil, ErrUnsupportedVersion
	}
	return parser(packet)
}

// WriteMessage marshals msg and writes it to stream whole; callers that
// need the outer transport envelope wrap this call (see internal/chanframe).
func WriteMessage(stream *Stream, msg Outgoing) error {
	v, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = stream.Write(v)
	return err
}
