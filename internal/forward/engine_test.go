package forward

import (
	"io"
	"net"
	"testing"

	"github.com/ofdp/switchd/internal/dp"
	"github.com/ofdp/switchd/internal/pktbuf"
	"github.com/ofdp/switchd/openflow"
	"github.com/ofdp/switchd/openflow/of10"
)

type fakeIface struct {
	name    string
	mtu     int
	sent    [][]byte
	sendErr error
}

func (f *fakeIface) Name() string                    { return f.name }
func (f *fakeIface) HardwareAddr() net.HardwareAddr   { return net.HardwareAddr{1, 2, 3, 4, 5, 6} }
func (f *fakeIface) MTU() int                         { return f.mtu }
func (f *fakeIface) IsLoopback() bool                 { return false }
func (f *fakeIface) IsEthernet() bool                 { return true }
func (f *fakeIface) SetPromiscuous(on bool) error     { return nil }
func (f *fakeIface) Close() error                     { return nil }
func (f *fakeIface) Receive(buf []byte) (int, error)  { return 0, io.EOF }
func (f *fakeIface) Send(frame []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, frame)
	return nil
}

type fakeEmitter struct {
	notified []openflow.Outgoing
}

func (e *fakeEmitter) Send(sender dp.Sender, msg openflow.Outgoing) error { return nil }
func (e *fakeEmitter) Notify(msg openflow.Outgoing) error {
	e.notified = append(e.notified, msg)
	return nil
}

func ethFrame(payloadLen int) []byte {
	data := make([]byte, 14+payloadLen)
	// dst/src MACs left zero, ethertype IPv4.
	data[12] = 0x08
	data[13] = 0x00
	return data
}

func newTestDatapath() (*dp.Datapath, *fakeIface, *fakeIface) {
	d := dp.NewDatapath(0, 1, "", nil)
	in := &fakeIface{name: "eth0", mtu: 1500}
	out := &fakeIface{name: "eth1", mtu: 1500}
	d.AttachPort(dp.NewPort(1, in))
	d.AttachPort(dp.NewPort(2, out))
	return d, in, out
}

func TestOutputToNumericPort(t *testing.T) {
	d, _, out := newTestDatapath()
	e := New(pktbuf.New())
	frame := &dp.Frame{Data: ethFrame(10), InPort: 1}

	if err := e.Output(d, frame, openflow.NewOutPortNumber(2), false, nil); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if len(out.sent) != 1 {
		t.Fatalf("port 2 received %v frames, want 1", len(out.sent))
	}
}

func TestOutputRejectsSendingBackToIngressPort(t *testing.T) {
	d, _, _ := newTestDatapath()
	e := New(pktbuf.New())
	frame := &dp.Frame{Data: ethFrame(10), InPort: 1}

	if err := e.Output(d, frame, openflow.NewOutPortNumber(1), false, nil); err != ErrInvalidOutput {
		t.Fatalf("Output to the ingress port number = %v, want ErrInvalidOutput", err)
	}
}

func TestOutputNoFwdPortIsSilentlyDropped(t *testing.T) {
	d, _, out := newTestDatapath()
	p, _ := d.Port(2)
	p.ApplyConfig(dp.OFPPC_NO_FWD, dp.OFPPC_NO_FWD)

	e := New(pktbuf.New())
	frame := &dp.Frame{Data: ethFrame(10), InPort: 1}

	if err := e.Output(d, frame, openflow.NewOutPortNumber(2), false, nil); err != nil {
		t.Fatalf("Output to a NO_FWD port: %v", err)
	}
	if len(out.sent) != 0 {
		t.Fatalf("NO_FWD port received a frame, want none")
	}
}

func TestOutputIgnoreNoFwdOverridesConfig(t *testing.T) {
	d, _, out := newTestDatapath()
	p, _ := d.Port(2)
	p.ApplyConfig(dp.OFPPC_NO_FWD, dp.OFPPC_NO_FWD)

	e := New(pktbuf.New())
	frame := &dp.Frame{Data: ethFrame(10), InPort: 1}

	if err := e.Output(d, frame, openflow.NewOutPortNumber(2), true, nil); err != nil {
		t.Fatalf("Output with ignoreNoFwd=true: %v", err)
	}
	if len(out.sent) != 1 {
		t.Fatalf("NO_FWD port with ignoreNoFwd=true received %v frames, want 1", len(out.sent))
	}
}

func TestOutputUnknownPort(t *testing.T) {
	d, _, _ := newTestDatapath()
	e := New(pktbuf.New())
	frame := &dp.Frame{Data: ethFrame(10), InPort: 1}

	if err := e.Output(d, frame, openflow.NewOutPortNumber(99), false, nil); err != dp.ErrNotFound {
		t.Fatalf("Output to an unattached port = %v, want ErrNotFound", err)
	}
}

func TestOutputFloodSkipsIngressAndNoFloodPorts(t *testing.T) {
	d, in, out := newTestDatapath()
	_ = in
	noFlood := &fakeIface{name: "eth2", mtu: 1500}
	d.AttachPort(dp.NewPort(3, noFlood))
	p3, _ := d.Port(3)
	p3.ApplyConfig(dp.OFPPC_NO_FLOOD, dp.OFPPC_NO_FLOOD)

	e := New(pktbuf.New())
	frame := &dp.Frame{Data: ethFrame(10), InPort: 1}

	if err := e.Output(d, frame, openflow.NewOutPortNumber(openflow.PortFlood), false, nil); err != nil {
		t.Fatalf("Output(FLOOD): %v", err)
	}
	if len(out.sent) != 1 {
		t.Fatalf("non-NO_FLOOD port received %v frames, want 1", len(out.sent))
	}
	if len(noFlood.sent) != 0 {
		t.Fatalf("NO_FLOOD port received a frame during FLOOD, want none")
	}
}

func TestOutputAllIncludesNoFloodPorts(t *testing.T) {
	d, _, out := newTestDatapath()
	noFlood := &fakeIface{name: "eth2", mtu: 1500}
	d.AttachPort(dp.NewPort(3, noFlood))
	p3, _ := d.Port(3)
	p3.ApplyConfig(dp.OFPPC_NO_FLOOD, dp.OFPPC_NO_FLOOD)

	e := New(pktbuf.New())
	frame := &dp.Frame{Data: ethFrame(10), InPort: 1}

	if err := e.Output(d, frame, openflow.NewOutPortNumber(openflow.PortAll), false, nil); err != nil {
		t.Fatalf("Output(ALL): %v", err)
	}
	if len(out.sent) != 1 || len(noFlood.sent) != 1 {
		t.Fatalf("ALL did not reach both non-ingress ports: out=%v noFlood=%v", len(out.sent), len(noFlood.sent))
	}
}

func TestOutputMultiClonesEveryFrameButTheLast(t *testing.T) {
	d, _, out := newTestDatapath()
	third := &fakeIface{name: "eth2", mtu: 1500}
	d.AttachPort(dp.NewPort(3, third))

	e := New(pktbuf.New())
	frame := &dp.Frame{Data: ethFrame(10), InPort: 1}
	if err := e.Output(d, frame, openflow.NewOutPortNumber(openflow.PortAll), false, nil); err != nil {
		t.Fatalf("Output(ALL): %v", err)
	}

	// Mutating the original after Output must not affect bytes already
	// handed to an earlier (cloned) target. Ports are visited in port_no
	// order, so port 3 is last and gets the original; port 2 gets a clone.
	frame.Data[0] = 0xff
	if out.sent[0][0] == 0xff {
		t.Fatalf("a cloned frame aliased the original's backing array")
	}
}

func TestOutputLocalDeliversToLocalPort(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)
	local := &fakeIface{name: "lo", mtu: 1500}
	d.AttachPort(dp.NewPort(dp.LocalPortNo, local))

	e := New(pktbuf.New())
	frame := &dp.Frame{Data: ethFrame(10)}
	if err := e.Output(d, frame, openflow.NewOutPortNumber(openflow.PortLocal), false, nil); err != nil {
		t.Fatalf("Output(LOCAL): %v", err)
	}
	if len(local.sent) != 1 {
		t.Fatalf("LOCAL port received %v frames, want 1", len(local.sent))
	}
}

func TestOutputInPortRequiresKnownIngress(t *testing.T) {
	d, _, _ := newTestDatapath()
	e := New(pktbuf.New())
	frame := &dp.Frame{Data: ethFrame(10), InPort: 0}

	if err := e.Output(d, frame, openflow.NewOutPortNumber(openflow.PortInPort), false, nil); err != dp.ErrInvalid {
		t.Fatalf("Output(IN_PORT) with no known ingress = %v, want ErrInvalid", err)
	}
}

func TestOutputControllerEscalates(t *testing.T) {
	d, _, _ := newTestDatapath()
	e := New(pktbuf.New())
	emitter := &fakeEmitter{}
	frame := &dp.Frame{Data: ethFrame(10), InPort: 1}

	if err := e.Output(d, frame, openflow.NewOutPortNumber(openflow.PortController), false, emitter); err != nil {
		t.Fatalf("Output(CONTROLLER): %v", err)
	}
	if len(emitter.notified) != 1 {
		t.Fatalf("CONTROLLER output did not notify, want exactly one packet-in")
	}
}

func TestOutputNormalAndNoneAreInvalid(t *testing.T) {
	d, _, _ := newTestDatapath()
	e := New(pktbuf.New())
	frame := &dp.Frame{Data: ethFrame(10), InPort: 1}

	if err := e.Output(d, frame, openflow.NewOutPortNumber(openflow.PortNormal), false, nil); err != dp.ErrInvalid {
		t.Fatalf("Output(NORMAL) = %v, want ErrInvalid", err)
	}
	if err := e.Output(d, frame, openflow.NewOutPortNumber(openflow.PortNone), false, nil); err != dp.ErrInvalid {
		t.Fatalf("Output(NONE) = %v, want ErrInvalid", err)
	}
}

func TestOutputExceedsMTU(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)
	tiny := &fakeIface{name: "eth0", mtu: 10}
	d.AttachPort(dp.NewPort(1, tiny))
	in := &fakeIface{name: "ethin", mtu: 1500}
	d.AttachPort(dp.NewPort(2, in))

	e := New(pktbuf.New())
	frame := &dp.Frame{Data: ethFrame(100), InPort: 2}

	if err := e.Output(d, frame, openflow.NewOutPortNumber(1), false, nil); err != ErrTooBig {
		t.Fatalf("Output exceeding the outgoing MTU = %v, want ErrTooBig", err)
	}
	if p, _ := d.Port(1); p.Counters().TxDropped != 1 {
		t.Fatalf("TxDropped = %v, want 1", p.Counters().TxDropped)
	}
}

func TestEscalateStashesAndNotifies(t *testing.T) {
	d, _, _ := newTestDatapath()
	bufs := pktbuf.New()
	e := New(bufs)
	emitter := &fakeEmitter{}

	frame := &dp.Frame{Data: ethFrame(200), InPort: 1}
	if err := e.Escalate(d, frame, 128, 0, emitter); err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if len(emitter.notified) != 1 {
		t.Fatalf("Escalate did not notify")
	}
}

func TestEscalateUsesLocalPortWhenInPortUnknown(t *testing.T) {
	d := dp.NewDatapath(0, 1, "", nil)
	local := &fakeIface{name: "lo", mtu: 1500}
	d.AttachPort(dp.NewPort(dp.LocalPortNo, local))

	e := New(pktbuf.New())
	emitter := &fakeEmitter{}
	frame := &dp.Frame{Data: ethFrame(10), InPort: 0}

	if err := e.Escalate(d, frame, 0xffff, 0, emitter); err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if len(emitter.notified) != 1 {
		t.Fatalf("Escalate with no known ingress did not notify via the local port fallback")
	}
}

func TestEscalateSkipsTruncationWhenNotBuffered(t *testing.T) {
	d, _, _ := newTestDatapath()
	bufs := pktbuf.New()
	e := New(bufs)
	emitter := &fakeEmitter{}

	data := make([]byte, pktbuf.MaxFrameSize+1)
	frame := &dp.Frame{Data: data, InPort: 1}
	if err := e.Escalate(d, frame, 128, 0, emitter); err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if len(emitter.notified) != 1 {
		t.Fatalf("Escalate did not notify")
	}
	in, ok := emitter.notified[0].(*of10.PacketIn)
	if !ok {
		t.Fatalf("notified message is %T, want *of10.PacketIn", emitter.notified[0])
	}
	if in.BufferID != pktbuf.NoBuffer {
		t.Fatalf("BufferID = %v, want NoBuffer for a frame too large to stash", in.BufferID)
	}
	if len(in.Data) != len(data) {
		t.Fatalf("Data len = %v, want %v (max_len must not truncate an unbuffered frame)", len(in.Data), len(data))
	}
}
