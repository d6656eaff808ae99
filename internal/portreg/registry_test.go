package portreg

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ofdp/switchd/internal/dp"
	"github.com/ofdp/switchd/openflow"
)

// fakeSubmitter implements dp.Pipeline and dp.FrameSubmitter so Serve's
// ingress loop has something to drive end to end.
type fakeSubmitter struct {
	mu      sync.Mutex
	submits []*dp.Frame
}

func (f *fakeSubmitter) HandleOpenFlow(dp.Sender, openflow.Incoming) error {
	return nil
}
func (f *fakeSubmitter) Sweep(time.Time) {}
func (f *fakeSubmitter) RemoveAll()      {}
func (f *fakeSubmitter) Submit(d *dp.Datapath, frame *dp.Frame) error {
	f.mu.Lock()
	f.submits = append(f.submits, frame)
	f.mu.Unlock()
	return nil
}
func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

type fakeIface struct {
	name        string
	hwAddr      net.HardwareAddr
	loopback    bool
	ethernet    bool
	promiscuous bool
	closed      bool
}

func (f *fakeIface) Name() string                 { return f.name }
func (f *fakeIface) HardwareAddr() net.HardwareAddr { return f.hwAddr }
func (f *fakeIface) MTU() int                      { return 1500 }
func (f *fakeIface) IsLoopback() bool              { return f.loopback }
func (f *fakeIface) IsEthernet() bool              { return f.ethernet }
func (f *fakeIface) SetPromiscuous(on bool) error  { f.promiscuous = on; return nil }
func (f *fakeIface) Send(frame []byte) error       { return nil }
func (f *fakeIface) Receive(buf []byte) (int, error) { return 0, io.EOF }
func (f *fakeIface) Close() error                  { f.closed = true; return nil }

func newEthIface(name string) *fakeIface {
	return &fakeIface{name: name, ethernet: true, hwAddr: net.HardwareAddr{1, 2, 3, 4, 5, 6}}
}

func TestAttachRejectsLoopback(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)
	iface := &fakeIface{name: "lo", loopback: true}
	if _, err := Attach(d, iface); err == nil {
		t.Fatalf("Attach of a loopback interface succeeded, want an error")
	}
}

func TestAttachRejectsNonEthernet(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)
	iface := &fakeIface{name: "tun0", ethernet: false}
	if _, err := Attach(d, iface); err == nil {
		t.Fatalf("Attach of a non-ethernet interface succeeded, want an error")
	}
}

func TestAttachAssignsFirstFreePortNo(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)

	p1, err := Attach(d, newEthIface("eth0"))
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if p1.Number != 1 {
		t.Fatalf("first attached port_no = %v, want 1", p1.Number)
	}

	p2, err := Attach(d, newEthIface("eth1"))
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if p2.Number != 2 {
		t.Fatalf("second attached port_no = %v, want 2", p2.Number)
	}
}

func TestAttachEnablesPromiscuousMode(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)
	iface := newEthIface("eth0")
	if _, err := Attach(d, iface); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !iface.promiscuous {
		t.Fatalf("Attach left the interface out of promiscuous mode")
	}
}

func TestAttachRejectsLocalInterface(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)
	local := newEthIface("lo-virtual")
	d.AttachPort(dp.NewPort(dp.LocalPortNo, local))

	if _, err := Attach(d, newEthIface("lo-virtual")); err == nil {
		t.Fatalf("Attach of the datapath's own virtual interface succeeded, want an error")
	}
}

func TestDetachRestoresPromiscuousModeAndCloses(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)
	iface := newEthIface("eth0")
	p, err := Attach(d, iface)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if err := Detach(d, p.Number); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if iface.promiscuous {
		t.Fatalf("Detach left the interface in promiscuous mode")
	}
	if !iface.closed {
		t.Fatalf("Detach did not close the interface")
	}
	if _, ok := d.Port(p.Number); ok {
		t.Fatalf("port still attached after Detach")
	}
}

// feedIface is a fakeIface that yields a fixed sequence of frames off
// Receive before reporting io.EOF, modeling a real socket read loop.
type feedIface struct {
	fakeIface
	frames [][]byte
	next   int
}

func (f *feedIface) Receive(buf []byte) (int, error) {
	if f.next >= len(f.frames) {
		return 0, io.EOF
	}
	n := copy(buf, f.frames[f.next])
	f.next++
	return n, nil
}

func TestServeSubmitsReceivedFramesToThePipeline(t *testing.T) {
	sub := &fakeSubmitter{}
	d := dp.NewDatapath(0, 1, "", sub)

	iface := &feedIface{
		fakeIface: fakeIface{name: "eth0", ethernet: true, hwAddr: net.HardwareAddr{1, 2, 3, 4, 5, 6}},
		frames:    [][]byte{{1, 2, 3}, {4, 5, 6}},
	}
	if _, err := Attach(d, iface); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for sub.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := sub.count(); got != 2 {
		t.Fatalf("pipeline received %v frame(s), want 2", got)
	}
}

func TestDetachUnknownPort(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)
	if err := Detach(d, 5); err != dp.ErrNotFound {
		t.Fatalf("Detach of an unattached port = %v, want ErrNotFound", err)
	}
}

func TestUpdateConfigHWAddrMismatch(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)
	iface := newEthIface("eth0")
	p, _ := Attach(d, iface)

	wrong := net.HardwareAddr{9, 9, 9, 9, 9, 9}
	if err := UpdateConfig(d, p.Number, wrong, 0xffffffff, 0); err != ErrHWAddrMismatch {
		t.Fatalf("UpdateConfig with a mismatched hw addr = %v, want ErrHWAddrMismatch", err)
	}
}

func TestUpdateConfigAppliesOnMatch(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)
	iface := newEthIface("eth0")
	p, _ := Attach(d, iface)

	if err := UpdateConfig(d, p.Number, iface.hwAddr, dp.OFPPC_PORT_DOWN, dp.OFPPC_PORT_DOWN); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if !p.IsPortDown() {
		t.Fatalf("port config not applied after a matching UpdateConfig")
	}
}

func TestUpdateConfigUnknownPort(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)
	if err := UpdateConfig(d, 5, nil, 0, 0); err != dp.ErrNotFound {
		t.Fatalf("UpdateConfig of an unattached port = %v, want ErrNotFound", err)
	}
}
