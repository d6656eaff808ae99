package of10

import (
	"encoding/binary"

	"github.com/ofdp/switchd/openflow"
)

// FlowRemoved is ofp_flow_removed, emitted when a flow expires or is
// explicitly deleted with the notify bit set (spec §4.9). Layout:
// match(40) + cookie(8) + priority(2) + reason(1) + pad(1) +
// duration_sec(4) + duration_nsec(4) + idle_timeout(2) + pad(2) +
// packet_count(8) + byte_count(8).
type FlowRemoved struct {
	openflow.Message
	Match         Match
	Cookie        uint64
	Priority      uint16
	Reason        uint8
	DurationSec   uint32
	DurationNSec  uint32
	IdleTimeout   uint16
	PacketCount   uint64
	ByteCount     uint64
}

func NewFlowRemoved(xid uint32, fr FlowRemoved) *FlowRemoved {
	fr.Message = openflow.NewMessage(openflow.Version, OFPT_FLOW_REMOVED, xid)
	return &fr
}

func (r *FlowRemoved) MarshalBinary() ([]byte, error) {
	match, err := r.Match.MarshalBinary()
	if err != nil {
		return nil, err
	}
	body := make([]byte, 40)
	binary.BigEndian.PutUint64(body[0:8], r.Cookie)
	binary.BigEndian.PutUint16(body[8:10], r.Priority)
	body[10] = r.Reason
	binary.BigEndian.PutUint32(body[12:16], r.DurationSec)
	binary.BigEndian.PutUint32(body[16:20], r.DurationNSec)
	binary.BigEndian.PutUint16(body[20:22], r.IdleTimeout)
	binary.BigEndian.PutUint64(body[24:32], r.PacketCount)
	binary.BigEndian.PutUint64(body[32:40], r.ByteCount)

	r.SetPayload(append(match, body...))
	return r.Message.MarshalBinary()
}

func (r *FlowRemoved) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	payload := r.Payload()
	if len(payload) < matchLength+40 {
		return openflow.ErrInvalidPacketLength
	}
	if err := r.Match.UnmarshalBinary(payload[:matchLength]); err != nil {
		return err
	}
	body := payload[matchLength:]
	r.Cookie = binary.BigEndian.Uint64(body[0:8])
	r.Priority = binary.BigEndian.Uint16(body[8:10])
	r.Reason = body[10]
	r.DurationSec = binary.BigEndian.Uint32(body[12:16])
	r.DurationNSec = binary.BigEndian.Uint32(body[16:20])
	r.IdleTimeout = binary.BigEndian.Uint16(body[20:22])
	r.PacketCount = binary.BigEndian.Uint64(body[24:32])
	r.ByteCount = binary.BigEndian.Uint64(body[32:40])
	return nil
}
