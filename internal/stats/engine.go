// Package stats implements the statistics engine (spec §4.8): uniform
// dumpers for description, per-flow, aggregate, per-table, per-port and
// vendor statistics. The per-flow and per-port dumpers split their answer
// across multiple reply fragments when it would otherwise overflow one
// message; the others always answer in a single fragment.
package stats

import (
	"github.com/ofdp/switchd/internal/dp"
	"github.com/ofdp/switchd/openflow"
	"github.com/ofdp/switchd/openflow/of10"
	"github.com/pkg/errors"
)

// maxFragmentBody bounds a single stats-reply fragment's body so the
// outer OpenFlow message never approaches the 16-bit length ceiling
// (spec §4.6).
const maxFragmentBody = 0xf000

// ErrNoSpace is returned when a single record (typically one flow entry)
// is larger than an entire fragment with nothing emitted yet, preventing
// the live-lock the spec warns about.
var ErrNoSpace = errors.New("record too large for a single reply fragment")

// Description is supplied by the caller (normally the daemon's static
// build/version strings); the engine has no opinion on its content.
type Description = of10.DescStats

// VendorDumper answers a vendor-specific stats request; registered once
// per vendor id (spec §4.8's "registration point, not a hard-coded
// switch").
type VendorDumper func(d *dp.Datapath, body []byte) ([]byte, error)

// Engine holds the description string and the vendor dumper registry;
// one Engine instance is shared by every datapath.
type Engine struct {
	desc    Description
	vendors map[uint32]VendorDumper
}

func New(desc Description) *Engine {
	return &Engine{desc: desc, vendors: make(map[uint32]VendorDumper)}
}

// RegisterVendor installs dumper for vendor id. Intended to be called
// during startup wiring, before any stats request can race it.
func (e *Engine) RegisterVendor(id uint32, dumper VendorDumper) {
	e.vendors[id] = dumper
}

// Handle answers one OFPT_STATS_REQUEST, sending one or more
// OFPT_STATS_REPLY fragments to sender via emitter.
func (e *Engine) Handle(d *dp.Datapath, sender dp.Sender, req *of10.StatsRequest, emitter dp.Emitter) error {
	switch req.StatsType {
	case of10.OFPST_DESC:
		return e.dumpDesc(sender, req, emitter)
	case of10.OFPST_FLOW:
		return e.dumpFlow(d, sender, req, emitter)
	case of10.OFPST_AGGREGATE:
		return e.dumpAggregate(d, sender, req, emitter)
	case of10.OFPST_TABLE:
		return e.dumpTable(d, sender, req, emitter)
	case of10.OFPST_PORT:
		return e.dumpPort(d, sender, req, emitter)
	case of10.OFPST_VENDOR:
		return e.dumpVendor(d, sender, req, emitter)
	default:
		return dp.ErrBadStat
	}
}

func (e *Engine) dumpDesc(sender dp.Sender, req *of10.StatsRequest, emitter dp.Emitter) error {
	reply := of10.NewStatsReply(req.TransactionID(), of10.OFPST_DESC, false, e.desc.MarshalBinary())
	return emitter.Send(sender, reply)
}

func flowSource(d *dp.Datapath) (dp.FlowSource, bool) {
	fs, ok := d.Pipeline().(dp.FlowSource)
	return fs, ok
}

func (e *Engine) dumpFlow(d *dp.Datapath, sender dp.Sender, req *of10.StatsRequest, emitter dp.Emitter) error {
	body, err := of10.UnmarshalFlowStatsRequestBody(req.Body)
	if err != nil {
		return err
	}
	fs, ok := flowSource(d)
	if !ok {
		return emitter.Send(sender, of10.NewStatsReply(req.TransactionID(), of10.OFPST_FLOW, false, nil))
	}

	flows := fs.DumpFlows(dp.FlowSelector{TableID: body.TableID, Match: body.Match, OutPort: body.OutPort})

	var fragment []byte
	flush := func(more bool) error {
		reply := of10.NewStatsReply(req.TransactionID(), of10.OFPST_FLOW, more, fragment)
		fragment = nil
		return emitter.Send(sender, reply)
	}

	for _, f := range flows {
		entry := of10.FlowStatsEntry{
			TableID:      f.TableID,
			Match:        f.Match,
			DurationSec:  0,
			DurationNSec: 0,
			Priority:     f.Priority,
			IdleTimeout:  f.IdleTimeout,
			HardTimeout:  f.HardTimeout,
			Cookie:       f.Cookie,
			PacketCount:  f.PacketCount,
			ByteCount:    f.ByteCount,
			Actions:      f.Actions,
		}
		v, err := entry.MarshalBinary()
		if err != nil {
			return err
		}
		if len(v) > maxFragmentBody && len(fragment) == 0 {
			return ErrNoSpace
		}
		if len(fragment)+len(v) > maxFragmentBody {
			if err := flush(true); err != nil {
				return err
			}
		}
		fragment = append(fragment, v...)
	}
	return flush(false)
}

func (e *Engine) dumpAggregate(d *dp.Datapath, sender dp.Sender, req *of10.StatsRequest, emitter dp.Emitter) error {
	body, err := of10.UnmarshalFlowStatsRequestBody(req.Body)
	if err != nil {
		return err
	}
	fs, ok := flowSource(d)
	if !ok {
		reply := of10.NewStatsReply(req.TransactionID(), of10.OFPST_AGGREGATE, false, of10.AggregateStatsReply{}.MarshalBinary())
		return emitter.Send(sender, reply)
	}

	flows := fs.DumpFlows(dp.FlowSelector{TableID: body.TableID, Match: body.Match, OutPort: body.OutPort})
	var agg of10.AggregateStatsReply
	for _, f := range flows {
		agg.PacketCount += f.PacketCount
		agg.ByteCount += f.ByteCount
		agg.FlowCount++
	}
	return emitter.Send(sender, of10.NewStatsReply(req.TransactionID(), of10.OFPST_AGGREGATE, false, agg.MarshalBinary()))
}

func (e *Engine) dumpTable(d *dp.Datapath, sender dp.Sender, req *of10.StatsRequest, emitter dp.Emitter) error {
	fs, ok := flowSource(d)
	if !ok {
		return emitter.Send(sender, of10.NewStatsReply(req.TransactionID(), of10.OFPST_TABLE, false, nil))
	}

	var body []byte
	for i, ts := range fs.TableStats() {
		entry := of10.TableStatsEntry{
			TableID:      uint8(i),
			Name:         "classifier",
			Wildcards:    ts.Wildcards,
			MaxEntries:   ts.MaxEntries,
			ActiveCount:  ts.ActiveCount,
			LookupCount:  ts.LookupCount,
			MatchedCount: ts.MatchedCount,
		}
		body = append(body, entry.MarshalBinary()...)
	}
	return emitter.Send(sender, of10.NewStatsReply(req.TransactionID(), of10.OFPST_TABLE, false, body))
}

func (e *Engine) dumpPort(d *dp.Datapath, sender dp.Sender, req *of10.StatsRequest, emitter dp.Emitter) error {
	portNo, err := of10.UnmarshalPortStatsRequestBody(req.Body)
	if err != nil {
		return err
	}

	var targets []*dp.Port
	if openflow.NewOutPortNumber(uint32(portNo)).IsNone() {
		for _, p := range d.Ports() {
			if p.Number != dp.LocalPortNo {
				targets = append(targets, p)
			}
		}
		if local, ok := d.LocalPort(); ok {
			targets = append(targets, local)
		}
	} else if p, ok := d.Port(portNo); ok {
		targets = []*dp.Port{p}
	}

	var fragment []byte
	flush := func(more bool) error {
		reply := of10.NewStatsReply(req.TransactionID(), of10.OFPST_PORT, more, fragment)
		fragment = nil
		return emitter.Send(sender, reply)
	}

	for _, p := range targets {
		c := p.Counters()
		entry := of10.PortStatsEntry{
			PortNo:     p.Number,
			RxPackets:  c.RxPackets,
			TxPackets:  c.TxPackets,
			RxBytes:    c.RxBytes,
			TxBytes:    c.TxBytes,
			RxDropped:  c.RxDropped,
			TxDropped:  c.TxDropped,
			RxErrors:   c.RxErrors,
			TxErrors:   c.TxErrors,
			RxFrameErr: c.RxFrameErr,
			RxOverErr:  c.RxOverErr,
			RxCRCErr:   c.RxCRCErr,
			Collisions: c.Collisions,
		}
		v := entry.MarshalBinary()
		if len(fragment)+len(v) > maxFragmentBody {
			if err := flush(true); err != nil {
				return err
			}
		}
		fragment = append(fragment, v...)
	}
	return flush(false)
}

func (e *Engine) dumpVendor(d *dp.Datapath, sender dp.Sender, req *of10.StatsRequest, emitter dp.Emitter) error {
	vb, err := of10.UnmarshalVendorStatsBody(req.Body)
	if err != nil {
		return err
	}
	dumper, ok := e.vendors[vb.VendorID]
	if !ok {
		return dp.ErrBadStat
	}
	body, err := dumper(d, vb.Data)
	if err != nil {
		return err
	}
	return emitter.Send(sender, of10.NewStatsReply(req.TransactionID(), of10.OFPST_VENDOR, false, body))
}
