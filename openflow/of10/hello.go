package of10

import "github.com/ofdp/switchd/openflow"

// Hello carries no body in OpenFlow 1.0; it is emitted by the switch the
// moment a controller connection is accepted (spec §4.9).
type Hello struct {
	openflow.Message
}

func NewHello(xid uint32) *Hello {
	return &Hello{openflow.NewMessage(openflow.Version, OFPT_HELLO, xid)}
}

func (h *Hello) MarshalBinary() ([]byte, error) {
	return h.Message.MarshalBinary()
}

func (h *Hello) UnmarshalBinary(data []byte) error {
	return h.Message.UnmarshalBinary(data)
}
