package of10

import "github.com/ofdp/switchd/openflow"

// EchoRequest/EchoReply carry an arbitrary-length, opaque body that the
// reply must echo verbatim along with the request's xid (spec §4.9).
type EchoRequest struct {
	openflow.Message
}

func (r *EchoRequest) UnmarshalBinary(data []byte) error {
	return r.Message.UnmarshalBinary(data)
}

type EchoReply struct {
	openflow.Message
}

func NewEchoReply(xid uint32, data []byte) *EchoReply {
	m := openflow.NewMessage(openflow.Version, OFPT_ECHO_REPLY, xid)
	m.SetPayload(data)
	return &EchoReply{m}
}

func (r *EchoReply) MarshalBinary() ([]byte, error) {
	return r.Message.MarshalBinary()
}

func (r *EchoReply) UnmarshalBinary(data []byte) error {
	return r.Message.UnmarshalBinary(data)
}
