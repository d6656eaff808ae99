package of10

import "github.com/ofdp/switchd/openflow"

// BarrierRequest/BarrierReply carry no body; the reply's only job is to
// echo the request's xid once every earlier request has been processed
// (spec §4.9, §5 ordering guarantees).
type BarrierRequest struct {
	openflow.Message
}

func (r *BarrierRequest) UnmarshalBinary(data []byte) error {
	return r.Message.UnmarshalBinary(data)
}

type BarrierReply struct {
	openflow.Message
}

func NewBarrierReply(xid uint32) *BarrierReply {
	return &BarrierReply{openflow.NewMessage(openflow.Version, OFPT_BARRIER_REPLY, xid)}
}

func (r *BarrierReply) MarshalBinary() ([]byte, error) {
	return r.Message.MarshalBinary()
}
