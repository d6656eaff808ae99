package chanframe

import (
	"io"
	"sync"

	"github.com/ofdp/switchd/internal/dp"
	"github.com/ofdp/switchd/openflow"
	"github.com/pkg/errors"
)

// ErrPeerGone is returned by Router.Send when the sender's transport
// connection is no longer registered (the controller disconnected
// between the request and the reply).
var ErrPeerGone = errors.New("peer connection closed")

// Peer is one controller connection: a framed writer plus the transport
// identity used to key Router's peer table.
type Peer struct {
	ID string
	mu sync.Mutex
	w  io.Writer
}

func NewPeer(id string, w io.Writer) *Peer {
	return &Peer{ID: id, w: w}
}

func (p *Peer) write(op Op, dpIdx uint32, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return WriteEnvelope(p.w, op, dpIdx, payload)
}

// Router implements dp.Emitter for one datapath: unicast replies go to
// the peer named by Sender.PeerID, notifications fan out to every peer
// subscribed to the datapath's pre-allocated group (spec §4.6).
type Router struct {
	dpIdx int

	mu     sync.RWMutex
	peers  map[string]*Peer
	groups map[int]map[string]*Peer
}

func NewRouter(dpIdx int) *Router {
	return &Router{
		dpIdx:  dpIdx,
		peers:  make(map[string]*Peer),
		groups: make(map[int]map[string]*Peer),
	}
}

// Register makes peer reachable for unicast replies and subscribes it to
// this datapath's notification group.
func (r *Router) Register(peer *Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[peer.ID] = peer
	g := GroupFor(r.dpIdx)
	if r.groups[g] == nil {
		r.groups[g] = make(map[string]*Peer)
	}
	r.groups[g][peer.ID] = peer
}

func (r *Router) Unregister(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, peerID)
	for _, g := range r.groups {
		delete(g, peerID)
	}
}

// Send unicasts msg to sender.PeerID, implementing dp.Emitter.
func (r *Router) Send(sender dp.Sender, msg openflow.Outgoing) error {
	payload, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	r.mu.RLock()
	peer, ok := r.peers[sender.PeerID]
	r.mu.RUnlock()
	if !ok {
		return ErrPeerGone
	}
	return peer.write(OpOpenFlow, uint32(r.dpIdx), payload)
}

// Notify multicasts msg to every peer subscribed to this datapath's
// notification group, implementing dp.Emitter. A failed write to one
// peer does not abort fan-out to the rest of the group; once every peer
// has been tried, Notify returns the first write error, if any.
func (r *Router) Notify(msg openflow.Outgoing) error {
	payload, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	r.mu.RLock()
	g := r.groups[GroupFor(r.dpIdx)]
	peers := make([]*Peer, 0, len(g))
	for _, p := range g {
		peers = append(peers, p)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, p := range peers {
		if err := p.write(OpOpenFlow, uint32(r.dpIdx), payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
