package of10

import (
	"encoding/binary"

	"github.com/ofdp/switchd/openflow"
)

// PortStatus is ofp_port_status: a 1-byte reason plus padding followed
// by the 48-byte port descriptor (spec §4.9).
type PortStatus struct {
	openflow.Message
	Reason uint8
	Port   Port
}

func NewPortStatus(xid uint32, reason uint8, port Port) *PortStatus {
	return &PortStatus{
		Message: openflow.NewMessage(openflow.Version, OFPT_PORT_STATUS, xid),
		Reason:  reason,
		Port:    port,
	}
}

func (s *PortStatus) MarshalBinary() ([]byte, error) {
	portBytes, err := s.Port.MarshalBinary()
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 8+portLength)
	payload[0] = s.Reason
	copy(payload[8:], portBytes)
	s.SetPayload(payload)
	return s.Message.MarshalBinary()
}

func (s *PortStatus) UnmarshalBinary(data []byte) error {
	if err := s.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	payload := s.Payload()
	if len(payload) < 8+portLength {
		return openflow.ErrInvalidPacketLength
	}
	s.Reason = payload[0]
	return s.Port.UnmarshalBinary(payload[8 : 8+portLength])
}

// PortMod is ofp_port_mod: the controller's request to change a port's
// admin config bits, guarded by the hardware address (spec §4.2).
type PortMod struct {
	openflow.Message
	PortNo uint16
	HWAddr [6]byte
	Config uint32
	Mask   uint32
}

func (m *PortMod) UnmarshalBinary(data []byte) error {
	if err := m.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	payload := m.Payload()
	if len(payload) < 24 {
		return openflow.ErrInvalidPacketLength
	}
	m.PortNo = binary.BigEndian.Uint16(payload[0:2])
	copy(m.HWAddr[:], payload[2:8])
	m.Config = binary.BigEndian.Uint32(payload[8:12])
	m.Mask = binary.BigEndian.Uint32(payload[12:16])
	return nil
}
