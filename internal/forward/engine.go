// Package forward implements the forwarding engine's output operation
// (spec §4.4): resolving a reserved or numeric output port against a
// datapath's attached ports, cloning for multi-port output, and
// escalating to the controller when the destination is CONTROLLER or a
// table lookup misses (spec §4.5).
package forward

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/ofdp/switchd/internal/dp"
	"github.com/ofdp/switchd/internal/pktbuf"
	"github.com/ofdp/switchd/openflow"
	"github.com/ofdp/switchd/openflow/of10"
	"github.com/pkg/errors"
)

// ErrInvalidOutput is returned when the requested output would send a
// frame back out its own ingress port by numeric port number (spec
// §4.4: "forbidden; use IN_PORT").
var ErrInvalidOutput = errors.New("output to ingress port must use IN_PORT")

// ErrTooBig is returned when a frame exceeds the outgoing interface's
// MTU and no segmentation is available.
var ErrTooBig = errors.New("frame exceeds outgoing interface mtu")

// Engine owns nothing but the buffer pool used for controller
// escalation; it is safe for concurrent use across every datapath.
type Engine struct {
	bufs *pktbuf.Pool
}

func New(bufs *pktbuf.Pool) *Engine {
	return &Engine{bufs: bufs}
}

// Output implements the forwarding engine's output(dp, frame, out_port,
// ignore_no_fwd) operation. The caller retains ownership of frame; this
// function never mutates it, only reads and optionally clones it.
func (e *Engine) Output(d *dp.Datapath, frame *dp.Frame, outPort openflow.OutPort, ignoreNoFwd bool, emitter dp.Emitter) error {
	switch {
	case outPort.IsInPort():
		return e.outputInPort(d, frame)
	case outPort.IsTable():
		return nil // re-injection is driven by the caller resubmitting to the pipeline, not by this engine
	case outPort.IsFlood():
		return e.outputMulti(d, frame, true)
	case outPort.IsAll():
		return e.outputMulti(d, frame, false)
	case outPort.IsController():
		return e.Escalate(d, frame, 0xffff, of10.OFPR_ACTION, emitter)
	case outPort.IsLocal():
		return e.outputLocal(d, frame)
	case outPort.IsNormal(), outPort.IsNone():
		return dp.ErrInvalid
	default:
		return e.outputPort(d, frame, uint16(outPort.Value()), ignoreNoFwd)
	}
}

func (e *Engine) outputInPort(d *dp.Datapath, frame *dp.Frame) error {
	if frame.InPort == 0 {
		return dp.ErrInvalid
	}
	p, ok := d.Port(frame.InPort)
	if !ok {
		return dp.ErrNotFound
	}
	return e.transmit(p, frame.Data)
}

func (e *Engine) outputLocal(d *dp.Datapath, frame *dp.Frame) error {
	p, ok := d.LocalPort()
	if !ok {
		return dp.ErrNotFound
	}
	return e.transmit(p, frame.Data)
}

func (e *Engine) outputPort(d *dp.Datapath, frame *dp.Frame, portNo uint16, ignoreNoFwd bool) error {
	if portNo == frame.InPort {
		return ErrInvalidOutput
	}
	p, ok := d.Port(portNo)
	if !ok {
		return dp.ErrNotFound
	}
	if p.IsNoFwd() && !ignoreNoFwd {
		return nil
	}
	return e.transmit(p, frame.Data)
}

// outputMulti implements FLOOD (skipNoFlood=true) and ALL
// (skipNoFlood=false): every attached port except the ingress is a
// candidate; the original frame is transmitted on the last candidate and
// a clone on every earlier one, so an allocation failure always aborts
// before the original is consumed (spec §4.4).
func (e *Engine) outputMulti(d *dp.Datapath, frame *dp.Frame, skipNoFlood bool) error {
	var targets []*dp.Port
	for _, p := range d.Ports() {
		if p.Number == frame.InPort {
			continue
		}
		if skipNoFlood && p.IsNoFlood() {
			continue
		}
		targets = append(targets, p)
	}
	if len(targets) == 0 {
		return nil
	}

	for _, p := range targets[:len(targets)-1] {
		clone := make([]byte, len(frame.Data))
		copy(clone, frame.Data)
		if err := e.transmit(p, clone); err != nil {
			return err
		}
	}
	return e.transmit(targets[len(targets)-1], frame.Data)
}

// transmit runs the MTU check (spec §4.4) and hands the frame to the
// port's interface.
func (e *Engine) transmit(p *dp.Port, data []byte) error {
	if p.Iface == nil {
		return dp.ErrNotFound
	}
	if exceedsMTU(data, p.Iface.MTU()) {
		p.AddTxDropped()
		return ErrTooBig
	}
	if err := p.Iface.Send(data); err != nil {
		p.AddTxDropped()
		return err
	}
	p.AddTxCounters(1, uint64(len(data)))
	return nil
}

// exceedsMTU decodes the Ethernet header (and an optional 802.1Q tag,
// excluded from the MTU budget per spec §4.4) to find the payload
// length actually subject to the link MTU.
func exceedsMTU(data []byte, mtu int) bool {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok {
		return len(data) > mtu+14
	}
	headerLen := 14
	if vlan := pkt.Layer(layers.LayerTypeDot1Q); vlan != nil {
		headerLen += 4
	}
	return len(eth.Payload)+len(eth.Contents)-headerLen > mtu
}

// Escalate implements controller escalation (spec §4.5): stash the
// frame, compose a PACKET_IN, and notify it with no specific sender.
func (e *Engine) Escalate(d *dp.Datapath, frame *dp.Frame, maxLen uint16, reason uint8, emitter dp.Emitter) error {
	bufferID := e.bufs.Stash(frame.Data)

	fwdLen := len(frame.Data)
	if bufferID != pktbuf.NoBuffer && int(maxLen) < fwdLen {
		fwdLen = int(maxLen)
	}

	inPort := frame.InPort
	if inPort == 0 {
		if local, ok := d.LocalPort(); ok {
			inPort = local.Number
		}
	}

	msg := of10.NewPacketIn(0, bufferID, uint16(len(frame.Data)), inPort, reason, frame.Data[:fwdLen])
	if emitter == nil {
		return nil
	}
	return emitter.Notify(msg)
}
