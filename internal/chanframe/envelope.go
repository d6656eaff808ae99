// Package chanframe implements the control-channel framing discipline
// of spec §4.6: an outer transport envelope identifying the operation
// code and target datapath, wrapping an inner OpenFlow payload, with
// two-phase allocation (reserve, fill, patch-length) and a fixed,
// pre-allocated set of notification groups for multicast fan-out.
package chanframe

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Op is the outer envelope's operation code (spec §4.7's dispatch
// table).
type Op uint8

const (
	OpAddDP Op = iota
	OpDelDP
	OpQueryDP
	OpAddPort
	OpDelPort
	OpOpenFlow
)

// MaxPayload is the OpenFlow length field's 16-bit ceiling (spec §4.6).
const MaxPayload = 1<<16 - 1

// ErrTooLarge is returned by WriteEnvelope when the inner payload alone
// would overflow the 16-bit OpenFlow length field.
var ErrTooLarge = errors.New("openflow payload exceeds 65535 bytes")

// outerHeaderLen is op(1) + dp_idx(4) + payload_len(4).
const outerHeaderLen = 1 + 4 + 4

// WriteEnvelope writes the outer header followed by payload to w. It
// performs the "shrink the reservation to the exact final size" phase
// the spec describes: payload is fully materialized by the caller (the
// allocate/fill/patch sequence happens inside the OpenFlow message's own
// MarshalBinary), so this function only ever writes the final,
// already-sized bytes.
func WriteEnvelope(w io.Writer, op Op, dpIdx uint32, payload []byte) error {
	if len(payload) > MaxPayload {
		return ErrTooLarge
	}
	var hdr [outerHeaderLen]byte
	hdr[0] = byte(op)
	binary.BigEndian.PutUint32(hdr[1:5], dpIdx)
	binary.BigEndian.PutUint32(hdr[5:9], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "writing envelope header")
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "writing envelope payload")
	}
	return nil
}

// Envelope is a decoded inbound frame.
type Envelope struct {
	Op      Op
	DPIdx   uint32
	Payload []byte
}

// ReadEnvelope decodes one frame from r, used by the request dispatcher
// to pull the next control-channel request off a connection.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	var hdr [outerHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Envelope{}, err
	}
	op := Op(hdr[0])
	dpIdx := binary.BigEndian.Uint32(hdr[1:5])
	n := binary.BigEndian.Uint32(hdr[5:9])
	if n > MaxPayload {
		return Envelope{}, ErrTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Envelope{}, err
	}
	return Envelope{Op: op, DPIdx: dpIdx, Payload: payload}, nil
}

// groupCount is the fixed, power-of-two number of pre-allocated
// notification groups (spec §4.6).
const groupCount = 16

// GroupFor hashes a dp_idx onto one of the pre-allocated notification
// groups, avoiding a per-datapath subscriber list that would need to be
// allocated on the hot multicast path.
func GroupFor(dpIdx int) int {
	return dpIdx % groupCount
}
