package of10

import (
	"encoding/binary"

	"github.com/ofdp/switchd/openflow"
)

// SwitchConfig is the 4-byte ofp_switch_config body shared by
// SET_CONFIG, GET_CONFIG_REQUEST's reply, and GET_CONFIG_REPLY.
type SwitchConfig struct {
	Flags        uint16 // OFPC_FRAG_*
	MissSendLen  uint16
}

type SetConfig struct {
	openflow.Message
	SwitchConfig
}

func (r *SetConfig) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	payload := r.Payload()
	if len(payload) < 4 {
		return openflow.ErrInvalidPacketLength
	}
	r.Flags = binary.BigEndian.Uint16(payload[0:2])
	r.MissSendLen = binary.BigEndian.Uint16(payload[2:4])
	return nil
}

type GetConfigRequest struct {
	openflow.Message
}

func (r *GetConfigRequest) UnmarshalBinary(data []byte) error {
	return r.Message.UnmarshalBinary(data)
}

type GetConfigReply struct {
	openflow.Message
	SwitchConfig
}

func NewGetConfigReply(xid uint32, cfg SwitchConfig) *GetConfigReply {
	return &GetConfigReply{
		Message:      openflow.NewMessage(openflow.Version, OFPT_GET_CONFIG_REPLY, xid),
		SwitchConfig: cfg,
	}
}

func (r *GetConfigReply) MarshalBinary() ([]byte, error) {
	v := make([]byte, 4)
	binary.BigEndian.PutUint16(v[0:2], r.Flags)
	binary.BigEndian.PutUint16(v[2:4], r.MissSendLen)
	r.SetPayload(v)
	return r.Message.MarshalBinary()
}
