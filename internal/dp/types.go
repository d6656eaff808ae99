package dp

import (
	"net"
	"sync"
	"time"

	"github.com/ofdp/switchd/openflow"
	"github.com/ofdp/switchd/openflow/of10"
)

// Sender identifies a specific controller request for reply correlation
// (spec §3). The zero value (PeerID == "") denotes an asynchronous
// notification with no particular addressee.
type Sender struct {
	PeerID string
	Seq    uint64
	Xid    uint32
}

func (s Sender) IsNotification() bool { return s.PeerID == "" }

// Interface is the narrow contract the datapath needs from an attached
// OS network interface. internal/ifnet provides the concrete
// implementation (netlink + raw AF_PACKET sockets); this package only
// depends on the shape, not the transport, so unit tests can swap in a
// fake.
type Interface interface {
	Name() string
	HardwareAddr() net.HardwareAddr
	MTU() int
	IsLoopback() bool
	IsEthernet() bool
	SetPromiscuous(on bool) error
	Send(frame []byte) error
	// Receive blocks for the next frame arriving on the interface,
	// driving the ingress hook (spec §4.3). It returns an error once the
	// interface is closed, which is how a port's ingress loop knows to
	// exit.
	Receive(buf []byte) (int, error)
	Close() error
}

// PortCounters holds the per-direction packet/byte/error counters a
// per-port statistics record reports (spec §4.8).
type PortCounters struct {
	RxPackets, TxPackets           uint64
	RxBytes, TxBytes               uint64
	RxDropped, TxDropped           uint64
	RxErrors, TxErrors             uint64
	RxFrameErr, RxOverErr, RxCRCErr uint64
	Collisions                     uint64
}

// Port is one entry of a datapath's port table (spec §3, §4.2). Number
// is immutable after construction; Config/State are the two bitmaps
// guarded by mu, matching the spec's "per-port lock protecting the two
// bitmaps" requirement.
type Port struct {
	Number uint16
	Iface  Interface // for the local port, the datapath's own virtual interface (ifnet.Virtual)

	mu       sync.Mutex
	config   uint32 // OFPPC_*
	state    uint32 // OFPPS_*
	counters PortCounters
}

func NewPort(number uint16, iface Interface) *Port {
	return &Port{Number: number, Iface: iface}
}

func (p *Port) Config() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config
}

func (p *Port) State() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Port) SetState(state uint32) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

// ApplyConfig applies a (mask, value) pair under the port's own lock,
// following the port_mod contract of spec §4.2. It never returns an
// error: the hardware-address check that can reject the update happens
// in portreg.UpdateConfig before this is called.
func (p *Port) ApplyConfig(mask, value uint32) {
	p.mu.Lock()
	p.config = (p.config &^ mask) | (value & mask)
	p.mu.Unlock()
}

func (p *Port) IsNoFlood() bool {
	return p.Config()&OFPPC_NO_FLOOD != 0
}

func (p *Port) IsNoFwd() bool {
	return p.Config()&OFPPC_NO_FWD != 0
}

func (p *Port) IsNoPacketIn() bool {
	return p.Config()&OFPPC_NO_PACKET_IN != 0
}

func (p *Port) IsPortDown() bool {
	return p.Config()&OFPPC_PORT_DOWN != 0
}

func (p *Port) AddRxCounters(packets, bytes uint64) {
	p.mu.Lock()
	p.counters.RxPackets += packets
	p.counters.RxBytes += bytes
	p.mu.Unlock()
}

func (p *Port) AddTxCounters(packets, bytes uint64) {
	p.mu.Lock()
	p.counters.TxPackets += packets
	p.counters.TxBytes += bytes
	p.mu.Unlock()
}

func (p *Port) AddTxDropped() {
	p.mu.Lock()
	p.counters.TxDropped++
	p.mu.Unlock()
}

func (p *Port) Counters() PortCounters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters
}

// OFPPC_* bitmap values, duplicated from openflow/of10 to avoid this
// package importing the wire codec for four constants.
const (
	OFPPC_PORT_DOWN    = 1 << 0
	OFPPC_NO_FLOOD     = 1 << 4
	OFPPC_NO_FWD       = 1 << 5
	OFPPC_NO_PACKET_IN = 1 << 6
)

const (
	OFPPS_LINK_DOWN = 1 << 0
)

// MaintenanceWorker is the handle internal/maint hands back to a
// datapath so the datapath's destructor can stop it (spec §4.10).
type MaintenanceWorker interface {
	Stop()
}

// Emitter is how a Pipeline sends OpenFlow replies and asynchronous
// notifications back out over the control channel (spec §4.6, §4.9). A
// concrete pipeline is constructed with one; the interface exists so
// internal/pipeline doesn't need to import internal/chanframe directly.
type Emitter interface {
	Send(sender Sender, msg openflow.Outgoing) error
	Notify(msg openflow.Outgoing) error
}

// Pipeline is the narrow collaborator surface the core depends on
// (spec §4.11), quoted verbatim from the specification's Go snippet.
// The minimal in-memory implementation in internal/pipeline additionally
// satisfies FlowSource so the statistics engine can iterate flows
// without round-tripping through OpenFlow encoding.
type Pipeline interface {
	HandleOpenFlow(sender Sender, msg openflow.Incoming) error
	Sweep(now time.Time)
	RemoveAll()
}

// FlowSource is the optional capability the statistics engine's
// per-flow, aggregate and per-table dumpers use to read a pipeline's
// flow table directly (spec §4.8). A Pipeline that does not implement it
// simply has no stats to report beyond description and port counters.
type FlowSource interface {
	DumpFlows(selector FlowSelector) []Flow
	TableStats() []TableStat
}

// FrameSubmitter is the optional capability the ingress hook uses to run
// a frame arriving on an attached port through the pipeline's table
// lookup (spec §4.3). internal/pipeline.Table implements it in addition
// to Pipeline; a Pipeline used only in a package test (a bare stats
// fake, say) simply never gets driven by a live ingress loop.
type FrameSubmitter interface {
	Submit(d *Datapath, frame *Frame) error
}

// TableStat is the pipeline-reported half of an ofp_table_stats record;
// the wire-format fields (name, table_id) are filled in by the stats
// engine.
type TableStat struct {
	Wildcards    uint32
	MaxEntries   uint32
	ActiveCount  uint32
	LookupCount  uint64
	MatchedCount uint64
}

// Flow is the pipeline's view of an installed entry, used by the
// statistics engine's per-flow/aggregate dumpers. It reuses the of10
// wire types directly (Match, ActionList) rather than a parallel
// protocol-agnostic shape, since every consumer of FlowSource ends up
// re-encoding them onto the wire anyway.
type Flow struct {
	TableID     uint8
	Match       of10.Match
	Priority    uint16
	Cookie      uint64
	IdleTimeout uint16
	HardTimeout uint16
	Actions     of10.ActionList
	Created     time.Time
	LastUsed    time.Time
	PacketCount uint64
	ByteCount   uint64
	SendFlowRem bool
	Emergency   bool
}

// FlowSelector carries a per-flow or aggregate statistics request's
// selector (spec §4.8). internal/pipeline's DumpFlows filters on TableID
// only; Match and OutPort are not applied.
type FlowSelector struct {
	TableID uint8 // OFPTT_ALL (0xFF) means every table
	Match   of10.Match
	OutPort openflow.OutPort
}

// Frame is a frame in flight through the forwarding engine. InPort is 0
// when the frame originates from a packet-out TABLE re-injection with no
// known ingress.
type Frame struct {
	Data   []byte
	InPort uint16
	DLSrc, DLDst net.HardwareAddr
	DLType uint16
	NWProto uint8
	NWSrc, NWDst uint32
	TPSrc, TPDst uint16
}
