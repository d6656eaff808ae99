// Package pktbuf is the packet-buffer pool the controller-escalation
// path uses to hand out a 32-bit buffer id in place of re-sending a
// full frame on every packet-out round trip (spec §4.5). Internally an
// LRU cache: once full, the oldest buffered frame is evicted and its id
// becomes invalid, the same bounded-memory behavior as the teacher's
// flow dedup cache.
package pktbuf

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// NoBuffer is the sentinel buffer id meaning "not buffered": the pool
// was asked to hold a frame larger than it is willing to retain, or the
// caller explicitly declined buffering.
const NoBuffer uint32 = 0xffffffff

const defaultCapacity = 4096

// MaxFrameSize bounds what the pool is willing to retain, matching the
// 16-bit length field the wire format uses everywhere else in this
// module. A frame past this is reported unbuffered rather than cached.
const MaxFrameSize = 65535

// Pool hands out monotonically increasing buffer ids and retains the
// associated frame until it is claimed by Take or evicted by
// the LRU policy.
type Pool struct {
	mu    sync.Mutex
	cache *lru.Cache
	next  uint32
}

func New() *Pool {
	c, err := lru.New(defaultCapacity)
	if err != nil {
		panic("pktbuf: failed to construct LRU cache: " + err.Error())
	}
	return &Pool{cache: c}
}

// Stash retains frame and returns a buffer id the controller can later
// present in a packet-out to avoid re-sending the bytes. It returns
// NoBuffer without retaining anything when frame exceeds MaxFrameSize.
func (p *Pool) Stash(frame []byte) uint32 {
	if len(frame) > MaxFrameSize {
		return NoBuffer
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.next
	p.next++
	if p.next == NoBuffer {
		p.next = 0
	}

	cp := make([]byte, len(frame))
	copy(cp, frame)
	p.cache.Add(id, cp)
	return id
}

// Take removes and returns the frame for id, reporting false if the id
// is unknown or was already evicted.
func (p *Pool) Take(id uint32) ([]byte, bool) {
	if id == NoBuffer {
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.cache.Get(id)
	if !ok {
		return nil, false
	}
	p.cache.Remove(id)
	return v.([]byte), true
}

// Discard drops id without returning its frame, used when a datapath or
// port referencing buffered frames is torn down.
func (p *Pool) Discard(id uint32) {
	p.mu.Lock()
	p.cache.Remove(id)
	p.mu.Unlock()
}
