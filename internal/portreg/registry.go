// Package portreg implements the per-datapath port attach/detach policy
// of spec §4.2 on top of the plain port table *dp.Datapath already
// provides: which interfaces are eligible for attachment, how a
// port_no is assigned, and how promiscuous mode tracks the attachment's
// lifetime.
package portreg

import (
	"net"

	"github.com/ofdp/switchd/internal/dp"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("portreg")

// ErrHWAddrMismatch is returned by UpdateConfig when the caller's
// asserted hardware address does not match the port's current one. The
// pipeline's port_mod handler maps this to an OpenFlow
// PORT_MOD_FAILED/BAD_HW_ADDR error reply per the §9 Open Question
// resolution; the port's configuration is left untouched either way.
var ErrHWAddrMismatch = errors.New("hardware address does not match")

// ingressBufferSize bounds a single Receive call, comfortably above any
// jumbo frame this module expects to see on an attached port.
const ingressBufferSize = 65536

// Attach validates iface against the attach policy, assigns it the
// first free port_no starting at 1, and installs it on the datapath
// with promiscuous mode turned on for the duration of the attachment.
func Attach(d *dp.Datapath, iface dp.Interface) (*dp.Port, error) {
	if iface.IsLoopback() {
		logger.Warningf("refusing to attach loopback interface %v", iface.Name())
		return nil, errors.Wrap(dp.ErrInvalid, "loopback interfaces cannot be attached")
	}
	if !iface.IsEthernet() {
		logger.Warningf("refusing to attach non-ethernet interface %v", iface.Name())
		return nil, errors.Wrap(dp.ErrInvalid, "non-ethernet interfaces cannot be attached")
	}
	if local, ok := d.LocalPort(); ok && local.Iface != nil && local.Iface.Name() == iface.Name() {
		logger.Warningf("refusing to attach %v: already the datapath's local interface", iface.Name())
		return nil, errors.Wrap(dp.ErrInvalid, "cannot attach the datapath's own virtual interface")
	}

	portNo, err := allocatePortNo(d)
	if err != nil {
		return nil, err
	}

	if err := iface.SetPromiscuous(true); err != nil {
		return nil, errors.Wrap(err, "enabling promiscuous mode")
	}

	p := dp.NewPort(portNo, iface)
	if err := d.AttachPort(p); err != nil {
		iface.SetPromiscuous(false)
		return nil, err
	}
	logger.Infof("attached %v as port %v on datapath %v", iface.Name(), portNo, d.Idx)
	Serve(d, p)
	return p, nil
}

// Serve spawns the ingress hook for p (spec §4.3): a goroutine that
// blocks on p.Iface.Receive, normalizes each frame and submits it to the
// datapath's pipeline. It returns immediately if the pipeline doesn't
// implement dp.FrameSubmitter (true of the bare stats-only fakes
// package tests build). The goroutine exits the moment Receive returns
// an error, which happens exactly once when Detach or Datapath.Close
// closes the interface.
func Serve(d *dp.Datapath, p *dp.Port) {
	if p.Iface == nil {
		return
	}
	submitter, ok := d.Pipeline().(dp.FrameSubmitter)
	if !ok {
		return
	}

	go func() {
		buf := make([]byte, ingressBufferSize)
		for {
			n, err := p.Iface.Receive(buf)
			if err != nil {
				logger.Debugf("port %v (%v) ingress loop exiting: %v", p.Number, p.Iface.Name(), err)
				return
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			p.AddRxCounters(1, uint64(n))

			frame := dp.ParseFrame(data, p.Number)
			if err := submitter.Submit(d, frame); err != nil {
				logger.Warningf("port %v (%v) pipeline submit failed: %v", p.Number, p.Iface.Name(), err)
			}
		}
	}()
}

// allocatePortNo performs the linear scan from 1 the spec calls for,
// failing with ErrExhausted once every slot up to MaxPorts is taken.
func allocatePortNo(d *dp.Datapath) (uint16, error) {
	taken := make(map[uint16]bool)
	for _, p := range d.Ports() {
		taken[p.Number] = true
	}
	for n := uint16(1); n < dp.MaxPorts; n++ {
		if !taken[n] {
			return n, nil
		}
	}
	return 0, dp.ErrExhausted
}

// Detach unpublishes portNo, restores the interface out of promiscuous
// mode, and releases it. The grace period the spec describes for
// concurrent readers is provided by *dp.Datapath's RWMutex: by the time
// DetachPort returns here, no in-flight reader holds a reference it
// obtained after the unpublish.
func Detach(d *dp.Datapath, portNo uint16) error {
	p, err := d.DetachPort(portNo)
	if err != nil {
		return err
	}
	logger.Infof("detached port %v from datapath %v", portNo, d.Idx)
	if p.Iface != nil {
		if err := p.Iface.SetPromiscuous(false); err != nil {
			return errors.Wrap(err, "disabling promiscuous mode")
		}
		return p.Iface.Close()
	}
	return nil
}

// UpdateConfig applies a port_mod (mask, value) pair after verifying
// hwAddr against the port's live interface address.
func UpdateConfig(d *dp.Datapath, portNo uint16, hwAddr net.HardwareAddr, mask, value uint32) error {
	p, ok := d.Port(portNo)
	if !ok {
		return dp.ErrNotFound
	}
	if p.Iface != nil && !hwAddrEqual(p.Iface.HardwareAddr(), hwAddr) {
		logger.Warningf("port_mod on port %v rejected: hardware address mismatch", portNo)
		return ErrHWAddrMismatch
	}
	p.ApplyConfig(mask, value)
	return nil
}

func hwAddrEqual(a, b net.HardwareAddr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
