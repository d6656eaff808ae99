package of10

import (
	"encoding/binary"

	"github.com/ofdp/switchd/openflow"
)

type FeaturesRequest struct {
	openflow.Message
}

func (r *FeaturesRequest) UnmarshalBinary(data []byte) error {
	return r.Message.UnmarshalBinary(data)
}

// Capability bitmap reported in a features reply. Flow/table/port
// statistics are always on; the rest reflect what the forwarding engine
// and pipeline actually implement.
const (
	OFPC_FLOW_STATS   uint32 = 1 << 0
	OFPC_TABLE_STATS  uint32 = 1 << 1
	OFPC_PORT_STATS   uint32 = 1 << 2
	OFPC_STP          uint32 = 1 << 3
	OFPC_RESERVED     uint32 = 1 << 4
	OFPC_IP_REASM     uint32 = 1 << 5
	OFPC_QUEUE_STATS  uint32 = 1 << 6
	OFPC_ARP_MATCH_IP uint32 = 1 << 7
)

const SupportedActions uint32 = (1 << OFPAT_OUTPUT) | (1 << OFPAT_SET_DL_SRC) | (1 << OFPAT_SET_DL_DST) | (1 << OFPAT_ENQUEUE)

// FeaturesReply is ofp_switch_features: fixed 24-byte header followed by
// one 48-byte ofp_phy_port per attached port (including the local port).
type FeaturesReply struct {
	openflow.Message
	DPID         uint64
	NumBuffers   uint32
	NumTables    uint8
	Capabilities uint32
	Actions      uint32
	Ports        []*Port
}

func NewFeaturesReply(xid uint32, dpid uint64, numBuffers uint32, numTables uint8, ports []*Port) *FeaturesReply {
	return &FeaturesReply{
		Message:      openflow.NewMessage(openflow.Version, OFPT_FEATURES_REPLY, xid),
		DPID:         dpid,
		NumBuffers:   numBuffers,
		NumTables:    numTables,
		Capabilities: OFPC_FLOW_STATS | OFPC_TABLE_STATS | OFPC_PORT_STATS,
		Actions:      SupportedActions,
		Ports:        ports,
	}
}

func (r *FeaturesReply) MarshalBinary() ([]byte, error) {
	payload := make([]byte, 24+len(r.Ports)*portLength)
	binary.BigEndian.PutUint64(payload[0:8], r.DPID)
	binary.BigEndian.PutUint32(payload[8:12], r.NumBuffers)
	payload[12] = r.NumTables
	binary.BigEndian.PutUint32(payload[16:20], r.Capabilities)
	binary.BigEndian.PutUint32(payload[20:24], r.Actions)
	for i, p := range r.Ports {
		v, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		copy(payload[24+i*portLength:], v)
	}
	r.SetPayload(payload)
	return r.Message.MarshalBinary()
}

func (r *FeaturesReply) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	payload := r.Payload()
	if len(payload) < 24 {
		return openflow.ErrInvalidPacketLength
	}
	r.DPID = binary.BigEndian.Uint64(payload[0:8])
	r.NumBuffers = binary.BigEndian.Uint32(payload[8:12])
	r.NumTables = payload[12]
	r.Capabilities = binary.BigEndian.Uint32(payload[16:20])
	r.Actions = binary.BigEndian.Uint32(payload[20:24])

	nPorts := (len(payload) - 24) / portLength
	r.Ports = make([]*Port, nPorts)
	for i := 0; i < nPorts; i++ {
		buf := payload[24+i*portLength:]
		r.Ports[i] = new(Port)
		if err := r.Ports[i].UnmarshalBinary(buf[:portLength]); err != nil {
			return err
		}
	}
	return nil
}
