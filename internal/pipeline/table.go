// Package pipeline provides the minimal in-memory flow table described
// as an expansion of the core's collaborator surface (spec §4.11): a
// single table, linear scan, priority order. It is deliberately simple;
// its job is to give the forwarding engine and statistics engine
// something concrete to drive.
package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/ofdp/switchd/internal/dp"
	"github.com/ofdp/switchd/internal/forward"
	"github.com/ofdp/switchd/internal/pktbuf"
	"github.com/ofdp/switchd/internal/portreg"
	"github.com/ofdp/switchd/openflow"
	"github.com/ofdp/switchd/openflow/of10"
	"github.com/op/go-logging"
)

var logger = logging.MustGetLogger("pipeline")

// Table is the single flow table backing a datapath's pipeline.
type Table struct {
	emitter dp.Emitter
	fwd     *forward.Engine
	bufs    *pktbuf.Pool

	mu       sync.RWMutex
	datapath *dp.Datapath
	flows    []*dp.Flow
}

func New(emitter dp.Emitter, fwd *forward.Engine, bufs *pktbuf.Pool) *Table {
	return &Table{emitter: emitter, fwd: fwd, bufs: bufs}
}

// Bind installs the owning datapath once it exists. dp.NewDatapath takes
// a Pipeline before the Datapath itself exists, so this two-step wiring
// avoids a chicken-and-egg constructor dependency.
func (t *Table) Bind(d *dp.Datapath) {
	t.mu.Lock()
	t.datapath = d
	t.mu.Unlock()
}

// HandleOpenFlow implements dp.Pipeline.
func (t *Table) HandleOpenFlow(sender dp.Sender, msg openflow.Incoming) error {
	switch m := msg.(type) {
	case *of10.Hello:
		return t.emitter.Send(sender, of10.NewHello(m.TransactionID()))
	case *of10.EchoRequest:
		return t.emitter.Send(sender, of10.NewEchoReply(m.TransactionID(), nil))
	case *of10.FeaturesRequest:
		return t.handleFeaturesRequest(sender, m)
	case *of10.GetConfigRequest:
		return t.handleGetConfigRequest(sender, m)
	case *of10.SetConfig:
		return t.handleSetConfig(m)
	case *of10.PacketOut:
		return t.handlePacketOut(m)
	case *of10.FlowMod:
		return t.handleFlowMod(sender, m)
	case *of10.PortMod:
		return t.handlePortMod(sender, m)
	case *of10.BarrierRequest:
		return t.emitter.Send(sender, of10.NewBarrierReply(m.TransactionID()))
	case *of10.StatsRequest:
		return dp.ErrInvalid // routed directly to internal/stats by the dispatcher, not through here
	default:
		return openflow.ErrUnsupportedMessage
	}
}

func (t *Table) datapathRef() *dp.Datapath {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.datapath
}

func (t *Table) handleFeaturesRequest(sender dp.Sender, m *of10.FeaturesRequest) error {
	d := t.datapathRef()
	if d == nil {
		return dp.ErrNotFound
	}
	var ports []*of10.Port
	for _, p := range d.Ports() {
		ports = append(ports, portToWire(p))
	}
	reply := of10.NewFeaturesReply(m.TransactionID(), d.ID, d.NumBuffers(), 1, ports)
	return t.emitter.Send(sender, reply)
}

func (t *Table) handleGetConfigRequest(sender dp.Sender, m *of10.GetConfigRequest) error {
	d := t.datapathRef()
	if d == nil {
		return dp.ErrNotFound
	}
	cfg := of10.SwitchConfig{Flags: d.Flags(), MissSendLen: d.MissSendLen()}
	return t.emitter.Send(sender, of10.NewGetConfigReply(m.TransactionID(), cfg))
}

func (t *Table) handleSetConfig(m *of10.SetConfig) error {
	d := t.datapathRef()
	if d == nil {
		return dp.ErrNotFound
	}
	d.SetFlags(m.Flags)
	d.SetMissSendLen(m.MissSendLen)
	return nil
}

func (t *Table) handlePortMod(sender dp.Sender, m *of10.PortMod) error {
	d := t.datapathRef()
	if d == nil {
		return dp.ErrNotFound
	}
	err := portreg.UpdateConfig(d, m.PortNo, m.HWAddr[:], m.Mask, m.Config)
	if err == portreg.ErrHWAddrMismatch {
		logger.Warningf("port_mod on datapath %v port %v rejected: hardware address mismatch", d.Idx, m.PortNo)
		return t.emitter.Send(sender, of10.NewError(m.TransactionID(), of10.OFPET_PORT_MOD_FAILED, of10.OFPPMFC_BAD_HW_ADDR, nil))
	}
	return err
}

func (t *Table) handlePacketOut(m *of10.PacketOut) error {
	d := t.datapathRef()
	if d == nil {
		return dp.ErrNotFound
	}

	data := m.Data
	if m.BufferID != pktbuf.NoBuffer {
		if buffered, ok := t.bufs.Take(m.BufferID); ok {
			data = buffered
		}
	}

	frame := &dp.Frame{Data: data, InPort: m.InPort}
	for _, a := range m.Actions {
		if a.OutPort.IsTable() {
			t.submit(d, frame)
			continue
		}
		if err := t.fwd.Output(d, frame, a.OutPort, false, t.emitter); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) handleFlowMod(sender dp.Sender, m *of10.FlowMod) error {
	switch m.Command {
	case of10.OFPFC_ADD, of10.OFPFC_MODIFY, of10.OFPFC_MODIFY_STRICT:
		t.install(m)
	case of10.OFPFC_DELETE, of10.OFPFC_DELETE_STRICT:
		t.delete(m, sender)
	default:
		return dp.ErrInvalid
	}
	return nil
}

func (t *Table) install(m *of10.FlowMod) {
	now := time.Now()
	f := &dp.Flow{
		Match:       m.Match,
		Priority:    m.Priority,
		Cookie:      m.Cookie,
		IdleTimeout: m.IdleTimeout,
		HardTimeout: m.HardTimeout,
		Actions:     m.Actions,
		Created:     now,
		LastUsed:    now,
		SendFlowRem: m.SendFlowRem(),
		Emergency:   m.Emergency(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.flows = append(t.flows, f)
	sort.SliceStable(t.flows, func(i, j int) bool { return t.flows[i].Priority > t.flows[j].Priority })
	logger.Debugf("flow installed: priority=%v cookie=%v idle=%v hard=%v", f.Priority, f.Cookie, f.IdleTimeout, f.HardTimeout)
}

func (t *Table) delete(m *of10.FlowMod, sender dp.Sender) {
	t.mu.Lock()
	kept := t.flows[:0]
	var removed []*dp.Flow
	for _, f := range t.flows {
		if matchesSelector(f, m.Match, m.OutPort) {
			removed = append(removed, f)
			continue
		}
		kept = append(kept, f)
	}
	t.flows = kept
	t.mu.Unlock()

	logger.Debugf("flow delete matched %v flow(s)", len(removed))
	for _, f := range removed {
		if f.SendFlowRem && !f.Emergency {
			t.emitFlowRemoved(f, of10.OFPRR_DELETE)
		}
	}
}

// matchesSelector is intentionally loose: it only narrows by out-port,
// since exact overlapping-match semantics are out of scope for this
// minimal table (spec §4.11).
func matchesSelector(f *dp.Flow, sel of10.Match, outPort openflow.OutPort) bool {
	_ = sel
	if !outPort.IsNone() {
		for _, a := range f.Actions {
			if a.OutPort.Value() == outPort.Value() {
				return true
			}
		}
		return false
	}
	return true
}

// Lookup runs the pipeline's table lookup: highest-priority matching
// flow wins, ties broken by insertion order (oldest first, since
// SliceStable preserves relative order of equal priorities).
func (t *Table) Lookup(inPort uint16, dlSrc, dlDst []byte, dlType uint16, nwProto uint8, nwSrc, nwDst uint32, tpSrc, tpDst uint16) (*dp.Flow, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, f := range t.flows {
		if f.Match.Matches(inPort, dlSrc, dlDst, dlType, nwProto, nwSrc, nwDst, tpSrc, tpDst) {
			return f, true
		}
	}
	return nil, false
}

// Submit runs a frame through Lookup and either executes the matched
// flow's action list or escalates it as a table miss (spec §4.3's
// "ingress hook ... hands it to the pipeline").
func (t *Table) Submit(d *dp.Datapath, frame *dp.Frame) error {
	return t.submit(d, frame)
}

func (t *Table) submit(d *dp.Datapath, frame *dp.Frame) error {
	f, ok := t.Lookup(frame.InPort, frame.DLSrc, frame.DLDst, frame.DLType, frame.NWProto, frame.NWSrc, frame.NWDst, frame.TPSrc, frame.TPDst)
	if !ok {
		logger.Debugf("table miss on datapath %v in_port=%v, escalating", d.Idx, frame.InPort)
		return t.fwd.Escalate(d, frame, d.MissSendLen(), of10.OFPR_NO_MATCH, t.emitter)
	}

	t.mu.Lock()
	f.LastUsed = time.Now()
	f.PacketCount++
	f.ByteCount += uint64(len(frame.Data))
	t.mu.Unlock()

	for _, a := range f.Actions {
		if err := t.fwd.Output(d, frame, a.OutPort, false, t.emitter); err != nil {
			return err
		}
	}
	return nil
}

// Sweep implements dp.Pipeline: expire every flow whose idle or hard
// timeout has elapsed, emitting flow-removed notifications as it goes.
func (t *Table) Sweep(now time.Time) {
	t.mu.Lock()
	kept := t.flows[:0]
	var expired []*dp.Flow
	for _, f := range t.flows {
		reason, done := expiry(f, now)
		if done {
			expired = append(expired, f)
			_ = reason
			continue
		}
		kept = append(kept, f)
	}
	t.flows = kept
	t.mu.Unlock()

	if len(expired) > 0 {
		logger.Debugf("sweep expired %v flow(s)", len(expired))
	}
	for _, f := range expired {
		if f.SendFlowRem && !f.Emergency {
			reason, _ := expiry(f, now)
			t.emitFlowRemoved(f, reason)
		}
	}
}

func expiry(f *dp.Flow, now time.Time) (reason uint8, expired bool) {
	if f.HardTimeout > 0 && !f.Created.IsZero() && now.Sub(f.Created) >= time.Duration(f.HardTimeout)*time.Second {
		return of10.OFPRR_HARD_TIMEOUT, true
	}
	if f.IdleTimeout > 0 && !f.LastUsed.IsZero() && now.Sub(f.LastUsed) >= time.Duration(f.IdleTimeout)*time.Second {
		return of10.OFPRR_IDLE_TIMEOUT, true
	}
	return 0, false
}

func (t *Table) emitFlowRemoved(f *dp.Flow, reason uint8) {
	d := time.Since(f.Created)
	msg := of10.NewFlowRemoved(0, of10.FlowRemoved{
		Match:        f.Match,
		Cookie:       f.Cookie,
		Priority:     f.Priority,
		Reason:       reason,
		DurationSec:  uint32(d / time.Second),
		DurationNSec: uint32(d % time.Second),
		IdleTimeout:  f.IdleTimeout,
		PacketCount:  f.PacketCount,
		ByteCount:    f.ByteCount,
	})
	t.emitter.Notify(msg)
}

// RemoveAll implements dp.Pipeline, used on datapath teardown.
func (t *Table) RemoveAll() {
	t.mu.Lock()
	t.flows = nil
	t.mu.Unlock()
}

// DumpFlows implements dp.FlowSource.
func (t *Table) DumpFlows(selector dp.FlowSelector) []dp.Flow {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []dp.Flow
	for _, f := range t.flows {
		if selector.TableID != 0xff && selector.TableID != f.TableID {
			continue
		}
		out = append(out, *f)
	}
	return out
}

// TableStats implements dp.FlowSource.
func (t *Table) TableStats() []dp.TableStat {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return []dp.TableStat{{
		Wildcards:    of10.OFPFW_ALL, // all OFPFW_* bits supported by the minimal table
		MaxEntries:   1 << 20,
		ActiveCount:  uint32(len(t.flows)),
		LookupCount:  0,
		MatchedCount: 0,
	}}
}

func portToWire(p *dp.Port) *of10.Port {
	w := &of10.Port{Number: p.Number, Config: p.Config(), State: p.State()}
	if p.Iface != nil {
		w.Name = p.Iface.Name()
		w.MAC = p.Iface.HardwareAddr()
	}
	return w
}
