package of10

import (
	"encoding/binary"
	"strings"

	"github.com/ofdp/switchd/openflow"
)

// StatsRequest is ofp_stats_request: a 2-byte stat type, 2-byte flags
// (unused in OF1.0, always 0), and a type-specific body.
type StatsRequest struct {
	openflow.Message
	StatsType uint16
	Flags     uint16
	Body      []byte
}

func (r *StatsRequest) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	payload := r.Payload()
	if len(payload) < 4 {
		return openflow.ErrInvalidPacketLength
	}
	r.StatsType = binary.BigEndian.Uint16(payload[0:2])
	r.Flags = binary.BigEndian.Uint16(payload[2:4])
	r.Body = payload[4:]
	return nil
}

// StatsReply is ofp_stats_reply. The engine (internal/stats) builds
// successive replies with the same xid, setting Flags' OFPSF_REPLY_MORE
// bit on every fragment but the last (spec §4.8).
type StatsReply struct {
	openflow.Message
	StatsType uint16
	Flags     uint16
	Body      []byte
}

func NewStatsReply(xid uint32, statsType uint16, more bool, body []byte) *StatsReply {
	flags := uint16(0)
	if more {
		flags = OFPSF_REPLY_MORE
	}
	return &StatsReply{
		Message:   openflow.NewMessage(openflow.Version, OFPT_STATS_REPLY, xid),
		StatsType: statsType,
		Flags:     flags,
		Body:      body,
	}
}

func (r *StatsReply) MarshalBinary() ([]byte, error) {
	payload := make([]byte, 4+len(r.Body))
	binary.BigEndian.PutUint16(payload[0:2], r.StatsType)
	binary.BigEndian.PutUint16(payload[2:4], r.Flags)
	copy(payload[4:], r.Body)
	r.SetPayload(payload)
	return r.Message.MarshalBinary()
}

func (r *StatsReply) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	payload := r.Payload()
	if len(payload) < 4 {
		return openflow.ErrInvalidPacketLength
	}
	r.StatsType = binary.BigEndian.Uint16(payload[0:2])
	r.Flags = binary.BigEndian.Uint16(payload[2:4])
	r.Body = payload[4:]
	return nil
}

// DescStats is ofp_desc_stats: five fixed-width NUL-padded strings.
type DescStats struct {
	Manufacturer string
	Hardware     string
	Software     string
	Serial       string
	Description  string
}

const (
	descMfrLen    = 256
	descHwLen     = 256
	descSwLen     = 256
	descSerialLen = 32
	descDPLen     = 256
)

func (d DescStats) MarshalBinary() []byte {
	v := make([]byte, descMfrLen+descHwLen+descSwLen+descSerialLen+descDPLen)
	off := 0
	for _, f := range []struct {
		s string
		n int
	}{
		{d.Manufacturer, descMfrLen},
		{d.Hardware, descHwLen},
		{d.Software, descSwLen},
		{d.Serial, descSerialLen},
		{d.Description, descDPLen},
	} {
		s := f.s
		if len(s) > f.n-1 {
			s = s[:f.n-1]
		}
		copy(v[off:off+f.n], s)
		off += f.n
	}
	return v
}

func UnmarshalDescStats(data []byte) DescStats {
	readField := func(b []byte) string {
		return strings.TrimRight(string(b), "\x00")
	}
	off := 0
	d := DescStats{}
	d.Manufacturer = readField(data[off : off+descMfrLen])
	off += descMfrLen
	d.Hardware = readField(data[off : off+descHwLen])
	off += descHwLen
	d.Software = readField(data[off : off+descSwLen])
	off += descSwLen
	d.Serial = readField(data[off : off+descSerialLen])
	off += descSerialLen
	d.Description = readField(data[off : off+descDPLen])
	return d
}

// FlowStatsRequestBody is ofp_flow_stats_request / ofp_aggregate_stats_request
// (identical layout): match(40) + table_id(1) + pad(1) + out_port(2).
type FlowStatsRequestBody struct {
	Match   Match
	TableID uint8
	OutPort openflow.OutPort
}

func UnmarshalFlowStatsRequestBody(data []byte) (FlowStatsRequestBody, error) {
	var b FlowStatsRequestBody
	if len(data) < matchLength+4 {
		return b, openflow.ErrInvalidPacketLength
	}
	if err := b.Match.UnmarshalBinary(data[:matchLength]); err != nil {
		return b, err
	}
	rest := data[matchLength:]
	b.TableID = rest[0]
	b.OutPort = unmarshalOutPort(binary.BigEndian.Uint16(rest[2:4]))
	return b, nil
}

// FlowStatsEntry is one ofp_flow_stats record in a per-flow reply.
type FlowStatsEntry struct {
	TableID      uint8
	Match        Match
	DurationSec  uint32
	DurationNSec uint32
	Priority     uint16
	IdleTimeout  uint16
	HardTimeout  uint16
	Cookie       uint64
	PacketCount  uint64
	ByteCount    uint64
	Actions      ActionList
}

func (e FlowStatsEntry) MarshalBinary() ([]byte, error) {
	match, err := e.Match.MarshalBinary()
	if err != nil {
		return nil, err
	}
	actions, err := e.Actions.MarshalBinary()
	if err != nil {
		return nil, err
	}

	const fixed = 2 + 1 + 1 + matchLength + 4 + 4 + 2 + 2 + 2 + 6 + 8 + 8 + 8
	length := fixed + len(actions)
	v := make([]byte, length)
	binary.BigEndian.PutUint16(v[0:2], uint16(length))
	v[2] = e.TableID
	copy(v[4:4+matchLength], match)
	off := 4 + matchLength
	binary.BigEndian.PutUint32(v[off:off+4], e.DurationSec)
	binary.BigEndian.PutUint32(v[off+4:off+8], e.DurationNSec)
	binary.BigEndian.PutUint16(v[off+8:off+10], e.Priority)
	binary.BigEndian.PutUint16(v[off+10:off+12], e.IdleTimeout)
	binary.BigEndian.PutUint16(v[off+12:off+14], e.HardTimeout)
	off += 14 + 6 // skip pad
	binary.BigEndian.PutUint64(v[off:off+8], e.Cookie)
	binary.BigEndian.PutUint64(v[off+8:off+16], e.PacketCount)
	binary.BigEndian.PutUint64(v[off+16:off+24], e.ByteCount)
	copy(v[off+24:], actions)

	return v, nil
}

// AggregateStatsReply is ofp_aggregate_stats_reply.
type AggregateStatsReply struct {
	PacketCount uint64
	ByteCount   uint64
	FlowCount   uint32
}

func (a AggregateStatsReply) MarshalBinary() []byte {
	v := make([]byte, 24)
	binary.BigEndian.PutUint64(v[0:8], a.PacketCount)
	binary.BigEndian.PutUint64(v[8:16], a.ByteCount)
	binary.BigEndian.PutUint32(v[16:20], a.FlowCount)
	return v
}

// TableStatsEntry is ofp_table_stats.
type TableStatsEntry struct {
	TableID      uint8
	Name         string
	Wildcards    uint32
	MaxEntries   uint32
	ActiveCount  uint32
	LookupCount  uint64
	MatchedCount uint64
}

func (t TableStatsEntry) MarshalBinary() []byte {
	v := make([]byte, 64)
	v[0] = t.TableID
	name := t.Name
	if len(name) > 31 {
		name = name[:31]
	}
	copy(v[4:36], name)
	binary.BigEndian.PutUint32(v[36:40], t.Wildcards)
	binary.BigEndian.PutUint32(v[40:44], t.MaxEntries)
	binary.BigEndian.PutUint32(v[44:48], t.ActiveCount)
	binary.BigEndian.PutUint64(v[48:56], t.LookupCount)
	binary.BigEndian.PutUint64(v[56:64], t.MatchedCount)
	return v
}

// PortStatsRequestBody is ofp_port_stats_request: port_no(2) + pad(6).
func UnmarshalPortStatsRequestBody(data []byte) (uint16, error) {
	if len(data) < 8 {
		return 0, openflow.ErrInvalidPacketLength
	}
	return binary.BigEndian.Uint16(data[0:2]), nil
}

// PortStatsEntry is ofp_port_stats.
type PortStatsEntry struct {
	PortNo       uint16
	RxPackets    uint64
	TxPackets    uint64
	RxBytes      uint64
	TxBytes      uint64
	RxDropped    uint64
	TxDropped    uint64
	RxErrors     uint64
	TxErrors     uint64
	RxFrameErr   uint64
	RxOverErr    uint64
	RxCRCErr     uint64
	Collisions   uint64
}

func (p PortStatsEntry) MarshalBinary() []byte {
	v := make([]byte, 104)
	binary.BigEndian.PutUint16(v[0:2], p.PortNo)
	fields := []uint64{
		p.RxPackets, p.TxPackets, p.RxBytes, p.TxBytes,
		p.RxDropped, p.TxDropped, p.RxErrors, p.TxErrors,
		p.RxFrameErr, p.RxOverErr, p.RxCRCErr, p.Collisions,
	}
	off := 8
	for _, f := range fields {
		binary.BigEndian.PutUint64(v[off:off+8], f)
		off += 8
	}
	return v
}

// VendorStatsBody demultiplexes a vendor-stats request/reply on the
// leading 32-bit vendor id (spec §4.8, §9's registration-point note).
type VendorStatsBody struct {
	VendorID uint32
	Data     []byte
}

func UnmarshalVendorStatsBody(data []byte) (VendorStatsBody, error) {
	if len(data) < 4 {
		return VendorStatsBody{}, openflow.ErrInvalidPacketLength
	}
	return VendorStatsBody{VendorID: binary.BigEndian.Uint32(data[0:4]), Data: data[4:]}, nil
}
