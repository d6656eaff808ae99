package dp

import (
	"net"
	"sort"
	"sync"
)

const (
	// MaxPorts bounds a datapath's port table (spec §4.2): port_no is a
	// 16-bit field but the reserved range above OFPP_MAX (0xff00) is never
	// a real attachment point.
	MaxPorts = 0xff00

	// DefaultMissSendLen is the default number of bytes of a table-miss
	// frame copied into a packet-in when the controller hasn't overridden
	// it with a set-config (spec §3).
	DefaultMissSendLen = 128

	// LocalPortNo is OFPP_LOCAL, the reserved port number identifying a
	// datapath's own virtual management interface.
	LocalPortNo = 0xfffe
)

// Datapath is one forwarding instance: a set of attached ports sharing a
// single flow pipeline and a single 48-bit datapath-id (spec §3).
// Everything hanging off it other than Idx and ID is covered by mu,
// following the teacher's single-RWMutex-per-aggregate pattern rather
// than a lock per field.
type Datapath struct {
	Idx int    // index into the process-wide registry, immutable
	ID  uint64 // 48-bit datapath-id, immutable after creation

	mu           sync.RWMutex
	description  string
	ports        map[uint16]*Port
	local        *Port
	pipeline     Pipeline
	maint        MaintenanceWorker
	missSendLen  uint16
	flags        uint16 // OFPC_* config flags (fragment handling)
	numBuffers   uint32
	capabilities uint32
	actions      uint32
}

// NewDatapath constructs an empty datapath. The caller (internal/dpreg)
// is responsible for assigning Idx and installing it in the registry
// before it is reachable from a control-channel goroutine.
func NewDatapath(idx int, id uint64, description string, pipeline Pipeline) *Datapath {
	return &Datapath{
		Idx:         idx,
		ID:          id,
		description: description,
		ports:       make(map[uint16]*Port),
		pipeline:    pipeline,
		missSendLen: DefaultMissSendLen,
		numBuffers:  1 << 16,
	}
}

func (d *Datapath) Description() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.description
}

func (d *Datapath) Pipeline() Pipeline {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pipeline
}

func (d *Datapath) SetMaintenanceWorker(w MaintenanceWorker) {
	d.mu.Lock()
	d.maint = w
	d.mu.Unlock()
}

func (d *Datapath) MissSendLen() uint16 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.missSendLen
}

func (d *Datapath) SetMissSendLen(n uint16) {
	d.mu.Lock()
	d.missSendLen = n
	d.mu.Unlock()
}

func (d *Datapath) Flags() uint16 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.flags
}

func (d *Datapath) SetFlags(f uint16) {
	d.mu.Lock()
	d.flags = f
	d.mu.Unlock()
}

func (d *Datapath) NumBuffers() uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.numBuffers
}

// AttachPort inserts a port under its port_no, rejecting a collision
// with ErrAlreadyExists and a table at MaxPorts with ErrExhausted
// (spec §4.2).
func (d *Datapath) AttachPort(p *Port) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.ports[p.Number]; ok {
		return ErrAlreadyExists
	}
	if len(d.ports) >= MaxPorts {
		return ErrExhausted
	}
	if p.Number == LocalPortNo {
		d.local = p
	}
	d.ports[p.Number] = p
	return nil
}

// DetachPort removes a port, returning ErrNotFound if it was never
// attached.
func (d *Datapath) DetachPort(portNo uint16) (*Port, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.ports[portNo]
	if !ok {
		return nil, ErrNotFound
	}
	delete(d.ports, portNo)
	if d.local == p {
		d.local = nil
	}
	return p, nil
}

func (d *Datapath) Port(portNo uint16) (*Port, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.ports[portNo]
	return p, ok
}

// Ports returns a snapshot of the attached ports in ascending port_no
// order, so the local port (0xfffe) comes last. Safe to range over
// without holding the datapath lock: mutation never happens in place,
// only add/remove under AttachPort/DetachPort.
func (d *Datapath) Ports() []*Port {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Port, 0, len(d.ports))
	for _, p := range d.ports {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (d *Datapath) LocalPort() (*Port, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.local, d.local != nil
}

// Close tears the datapath down: stops the maintenance worker, closes
// every attached interface and clears the pipeline's flow table. It
// does not remove the datapath from the registry; internal/dpreg does
// that under its own lock to keep the two invariants (registry slot
// freed, datapath torn down) atomic from a caller's perspective.
func (d *Datapath) Close() error {
	d.mu.Lock()
	maint := d.maint
	ports := make([]*Port, 0, len(d.ports))
	for _, p := range d.ports {
		ports = append(ports, p)
	}
	d.ports = make(map[uint16]*Port)
	d.local = nil
	pipeline := d.pipeline
	d.mu.Unlock()

	if maint != nil {
		maint.Stop()
	}
	if pipeline != nil {
		pipeline.RemoveAll()
	}

	var firstErr error
	for _, p := range ports {
		if p.Iface == nil {
			continue
		}
		if err := p.Iface.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HardwareAddr derives a synthetic MAC for the datapath's local port
// from the low 48 bits of its datapath-id, matching the convention
// common switches use when the local port has no physical NIC backing
// it.
func (d *Datapath) HardwareAddr() net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	id := d.ID
	for i := 5; i >= 0; i-- {
		mac[i] = byte(id)
		id >>= 8
	}
	return mac
}
