// Package dispatch implements the request dispatcher (spec §4.7):
// decodes control-channel envelopes, enforces the admin-credential
// check on every operation but OPENFLOW, and routes each operation to
// the collaborator that owns it (the datapath registry, the port
// registry, or a datapath's pipeline/statistics engine).
package dispatch

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/json"
	"io"
	"sync"

	"github.com/ofdp/switchd/internal/chanframe"
	"github.com/ofdp/switchd/internal/dp"
	"github.com/ofdp/switchd/internal/dpreg"
	"github.com/ofdp/switchd/internal/forward"
	"github.com/ofdp/switchd/internal/ifnet"
	"github.com/ofdp/switchd/internal/maint"
	"github.com/ofdp/switchd/internal/pipeline"
	"github.com/ofdp/switchd/internal/pktbuf"
	"github.com/ofdp/switchd/internal/portreg"
	"github.com/ofdp/switchd/internal/stats"
	"github.com/ofdp/switchd/openflow"
	"github.com/ofdp/switchd/openflow/of10"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("dispatch")

// ErrForbidden is returned when an administrative operation's envelope
// carries a missing or mismatched admin secret (spec §4.7).
var ErrForbidden = errors.New("administrative credential rejected")

// The JSON bodies below are this module's own admin control-plane
// encoding; they ride inside a chanframe.Envelope's payload the same
// way an OpenFlow message does for OpOpenFlow. JSON was chosen over a
// hand-rolled binary layout because these operations are low-frequency
// and off the packet-forwarding path, unlike the envelope header and
// the OpenFlow payload itself, which stay wire-exact binary.

// credential is embedded in every non-OPENFLOW request body rather than
// the outer envelope header, so the wire-exact binary header (shared
// with OPENFLOW envelopes) never needs an admin-only field.
type credential struct {
	AdminSecret string `json:"admin_secret"`
}

// AddDPRequest is the body of an OpAddDP envelope. A non-empty Name
// auto-assigns the first free slot and DPIdx is then ignored; with no
// Name, DPIdx names the slot and a negative DPIdx is rejected as invalid.
type AddDPRequest struct {
	credential
	DPIdx       int    `json:"dp_idx"`
	Name        string `json:"name"`
	DatapathID  uint64 `json:"datapath_id"`
	Description string `json:"description"`
}

type AddDPReply struct {
	DPIdx int `json:"dp_idx"`
}

type DelDPRequest struct {
	credential
	DPIdx int    `json:"dp_idx"`
	Name  string `json:"name"`
}

type QueryDPRequest struct {
	credential
	DPIdx int    `json:"dp_idx"`
	Name  string `json:"name"`
}

type QueryDPReply struct {
	DPIdx int `json:"dp_idx"`
	Group int `json:"notification_group"`
}

type AddPortRequest struct {
	credential
	DPIdx     int    `json:"dp_idx"`
	Name      string `json:"name"`
	IfaceName string `json:"iface_name"`
}

type AddPortReply struct {
	PortNo uint16 `json:"port_no"`
}

type DelPortRequest struct {
	credential
	DPIdx  int    `json:"dp_idx"`
	Name   string `json:"name"`
	PortNo uint16 `json:"port_no"`
}

// ethPAll is ETH_P_ALL in network byte order, the protocol ifnet.Open
// binds its packet socket to.
const ethPAll = 0x0300

// Dispatcher owns the process-wide datapath registry and wires up every
// collaborator a newly created datapath needs: a notification router, a
// forwarding pipeline, and a maintenance worker. One Dispatcher is
// shared by every accepted connection.
type Dispatcher struct {
	dps         *dpreg.Registry
	statsEngine *stats.Engine
	adminSecret string
	fwd         *forward.Engine
	bufs        *pktbuf.Pool

	mu      sync.Mutex
	routers map[int]*chanframe.Router
	workers map[int]*maint.Worker
}

func New(statsEngine *stats.Engine, adminSecret string, fwd *forward.Engine, bufs *pktbuf.Pool) *Dispatcher {
	disp := &Dispatcher{
		statsEngine: statsEngine,
		adminSecret: adminSecret,
		fwd:         fwd,
		bufs:        bufs,
		routers:     make(map[int]*chanframe.Router),
		workers:     make(map[int]*maint.Worker),
	}
	disp.dps = dpreg.New(disp.create)
	return disp
}

// Datapaths exposes the registry as an api.DatapathLister-compatible
// source (see cmd/switchd, which adapts it into that shape).
func (disp *Dispatcher) Datapaths() *dpreg.Registry {
	return disp.dps
}

// create is the dpreg.Factory bound to this dispatcher: it builds the
// per-datapath router, pipeline and virtual local interface, starts the
// maintenance worker, and registers the router and the worker with the
// dispatcher so later operations can reach them by datapath index.
func (disp *Dispatcher) create(idx int, id uint64, description string) (*dp.Datapath, error) {
	router := chanframe.NewRouter(idx)
	table := pipeline.New(router, disp.fwd, disp.bufs)
	d := dp.NewDatapath(idx, id, description, table)
	table.Bind(d)

	local := ifnet.NewVirtual("lo", d.HardwareAddr(), 1500)
	localPort := dp.NewPort(dp.LocalPortNo, local)
	if err := d.AttachPort(localPort); err != nil {
		return nil, err
	}
	portreg.Serve(d, localPort)

	w := maint.Start(maint.DefaultInterval, table.Sweep)
	d.SetMaintenanceWorker(w)

	disp.mu.Lock()
	disp.routers[idx] = router
	disp.workers[idx] = w
	disp.mu.Unlock()
	logger.Infof("datapath %v (dpid=%#016x) created", idx, id)
	return d, nil
}

func (disp *Dispatcher) routerFor(idx int) (*chanframe.Router, bool) {
	disp.mu.Lock()
	defer disp.mu.Unlock()
	r, ok := disp.routers[idx]
	return r, ok
}

// RouterFor exposes the per-datapath notification router by datapath
// index (spec §4.6, §4.9). Peers are subscribed by handleOpenFlow on
// their first OPENFLOW envelope for a datapath.
func (disp *Dispatcher) RouterFor(idx int) (*chanframe.Router, bool) {
	return disp.routerFor(idx)
}

// Handle processes one envelope received from peerID on conn, writing
// any administrative reply back to conn directly. Every non-OPENFLOW
// operation's JSON body must carry an admin_secret field matching the
// configured secret (spec §4.7); OPENFLOW needs none, since the
// OpenFlow wire format has no room for one.
func (disp *Dispatcher) Handle(env chanframe.Envelope, peerID string, conn io.Writer) error {
	if env.Op != chanframe.OpOpenFlow {
		var cred credential
		if err := json.Unmarshal(env.Payload, &cred); err != nil {
			return errors.Wrap(err, "decoding request credential")
		}
		if len(disp.adminSecret) == 0 ||
			subtle.ConstantTimeCompare([]byte(cred.AdminSecret), []byte(disp.adminSecret)) != 1 {
			logger.Warningf("rejected %v from %v: bad admin secret", env.Op, peerID)
			return ErrForbidden
		}
	}

	switch env.Op {
	case chanframe.OpAddDP:
		return disp.handleAddDP(env.Payload, conn)
	case chanframe.OpDelDP:
		return disp.handleDelDP(env.Payload)
	case chanframe.OpQueryDP:
		return disp.handleQueryDP(env.Payload, conn)
	case chanframe.OpAddPort:
		return disp.handleAddPort(env.Payload, conn)
	case chanframe.OpDelPort:
		return disp.handleDelPort(env.Payload)
	case chanframe.OpOpenFlow:
		return disp.handleOpenFlow(int(env.DPIdx), peerID, env.Payload, conn)
	default:
		return dp.ErrInvalid
	}
}

func (disp *Dispatcher) handleAddDP(payload []byte, conn io.Writer) error {
	var req AddDPRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errors.Wrap(err, "decoding add_dp request")
	}
	idx := req.DPIdx
	if req.Name != "" {
		idx = -1
	}

	d, err := disp.dps.Create(idx, req.Name, req.DatapathID, req.Description)
	if err != nil {
		logger.Errorf("add_dp %v failed: %v", req.Name, err)
		return err
	}

	reply, err := json.Marshal(AddDPReply{DPIdx: d.Idx})
	if err != nil {
		return err
	}
	return chanframe.WriteEnvelope(conn, chanframe.OpAddDP, uint32(d.Idx), reply)
}

func (disp *Dispatcher) handleDelDP(payload []byte) error {
	var req DelDPRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	idx := req.DPIdx
	if req.Name != "" {
		d, err := disp.dps.Lookup(-1, req.Name)
		if err != nil {
			return err
		}
		idx = d.Idx
	}

	disp.mu.Lock()
	delete(disp.routers, idx)
	delete(disp.workers, idx)
	disp.mu.Unlock()
	logger.Infof("datapath %v destroyed", idx)
	return disp.dps.Destroy(idx)
}

func (disp *Dispatcher) handleQueryDP(payload []byte, conn io.Writer) error {
	var req QueryDPRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	idx := req.DPIdx
	if req.Name != "" {
		idx = -1
	}
	d, err := disp.dps.Lookup(idx, req.Name)
	if err != nil {
		return err
	}

	reply, err := json.Marshal(QueryDPReply{DPIdx: d.Idx, Group: chanframe.GroupFor(d.Idx)})
	if err != nil {
		return err
	}
	return chanframe.WriteEnvelope(conn, chanframe.OpQueryDP, uint32(d.Idx), reply)
}

func (disp *Dispatcher) handleAddPort(payload []byte, conn io.Writer) error {
	var req AddPortRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	idx := req.DPIdx
	if req.Name != "" {
		idx = -1
	}
	d, err := disp.dps.Lookup(idx, req.Name)
	if err != nil {
		return err
	}

	iface, err := ifnet.Open(req.IfaceName, ethPAll)
	if err != nil {
		logger.Errorf("opening %v for datapath %v: %v", req.IfaceName, d.Idx, err)
		return err
	}
	p, err := portreg.Attach(d, iface)
	if err != nil {
		iface.Close()
		return err
	}

	reply, err := json.Marshal(AddPortReply{PortNo: p.Number})
	if err != nil {
		return err
	}
	return chanframe.WriteEnvelope(conn, chanframe.OpAddPort, uint32(d.Idx), reply)
}

func (disp *Dispatcher) handleDelPort(payload []byte) error {
	var req DelPortRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	idx := req.DPIdx
	if req.Name != "" {
		idx = -1
	}
	d, err := disp.dps.Lookup(idx, req.Name)
	if err != nil {
		return err
	}
	return portreg.Detach(d, req.PortNo)
}

// handleOpenFlow validates the header version, registers the sending
// connection on the datapath's notification router so later
// asynchronous messages (flow-removed, port-status) can reach it, and
// routes the decoded message to the pipeline, or to the statistics
// engine for OFPT_STATS_REQUEST (spec §4.7, §4.8).
func (disp *Dispatcher) handleOpenFlow(dpIdx int, peerID string, payload []byte, conn io.Writer) error {
	d, err := disp.dps.Lookup(dpIdx, "")
	if err != nil {
		return err
	}
	router, ok := disp.routerFor(dpIdx)
	if !ok {
		return dp.ErrNotFound
	}
	router.Register(chanframe.NewPeer(peerID, conn))

	msg, err := openflow.ParseMessage(payload)
	if err == openflow.ErrUnsupportedVersion && len(payload) >= 8 {
		xid := binary.BigEndian.Uint32(payload[4:8])
		logger.Warningf("HELLO_FAILED: %v sent version %v on datapath %v", peerID, payload[0], dpIdx)
		sender := dp.Sender{PeerID: peerID, Xid: xid}
		if sendErr := router.Send(sender, of10.NewError(xid, of10.OFPET_HELLO_FAILED, of10.OFPHFC_INCOMPATIBLE, nil)); sendErr != nil {
			return sendErr
		}
		return err
	}
	if err != nil {
		logger.Warningf("unparseable OpenFlow message from %v on datapath %v: %v", peerID, dpIdx, err)
		return err
	}

	sender := dp.Sender{PeerID: peerID, Xid: msg.TransactionID()}
	if sr, ok := msg.(*of10.StatsRequest); ok {
		return disp.statsEngine.Handle(d, sender, sr, router)
	}
	return d.Pipeline().HandleOpenFlow(sender, msg)
}
