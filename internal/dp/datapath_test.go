package dp

import "testing"

func TestAttachPortRejectsDuplicate(t *testing.T) {
	d := NewDatapath(0, 1, "test", nil)
	if err := d.AttachPort(NewPort(1, nil)); err != nil {
		t.Fatalf("first AttachPort: %v", err)
	}
	if err := d.AttachPort(NewPort(1, nil)); err != ErrAlreadyExists {
		t.Fatalf("AttachPort of a duplicate port_no = %v, want ErrAlreadyExists", err)
	}
}

func TestAttachPortExhausted(t *testing.T) {
	d := NewDatapath(0, 1, "test", nil)
	for i := 0; i < MaxPorts; i++ {
		if err := d.AttachPort(NewPort(uint16(i), nil)); err != nil {
			t.Fatalf("AttachPort(%v): %v", i, err)
		}
	}
	if err := d.AttachPort(NewPort(uint16(MaxPorts), nil)); err != ErrExhausted {
		t.Fatalf("AttachPort beyond MaxPorts = %v, want ErrExhausted", err)
	}
}

func TestAttachPortTracksLocal(t *testing.T) {
	d := NewDatapath(0, 1, "test", nil)
	if _, ok := d.LocalPort(); ok {
		t.Fatalf("LocalPort before attach: ok = true, want false")
	}
	if err := d.AttachPort(NewPort(LocalPortNo, nil)); err != nil {
		t.Fatalf("AttachPort(LOCAL): %v", err)
	}
	local, ok := d.LocalPort()
	if !ok || local.Number != LocalPortNo {
		t.Fatalf("LocalPort() = %v, %v, want the attached local port", local, ok)
	}
}

func TestDetachPortUnknown(t *testing.T) {
	d := NewDatapath(0, 1, "test", nil)
	if _, err := d.DetachPort(5); err != ErrNotFound {
		t.Fatalf("DetachPort of an unattached port = %v, want ErrNotFound", err)
	}
}

func TestDetachPortClearsLocal(t *testing.T) {
	d := NewDatapath(0, 1, "test", nil)
	d.AttachPort(NewPort(LocalPortNo, nil))
	if _, err := d.DetachPort(LocalPortNo); err != nil {
		t.Fatalf("DetachPort(LOCAL): %v", err)
	}
	if _, ok := d.LocalPort(); ok {
		t.Fatalf("LocalPort after detaching it: ok = true, want false")
	}
}

func TestPortsSnapshotIsIndependent(t *testing.T) {
	d := NewDatapath(0, 1, "test", nil)
	d.AttachPort(NewPort(1, nil))
	snap := d.Ports()
	d.AttachPort(NewPort(2, nil))
	if len(snap) != 1 {
		t.Fatalf("earlier Ports() snapshot grew to %v entries, want 1", len(snap))
	}
}

func TestPortApplyConfigMasking(t *testing.T) {
	p := NewPort(1, nil)
	p.ApplyConfig(OFPPC_PORT_DOWN|OFPPC_NO_FLOOD, OFPPC_PORT_DOWN)
	if !p.IsPortDown() {
		t.Fatalf("IsPortDown() = false after setting OFPPC_PORT_DOWN")
	}
	if p.IsNoFlood() {
		t.Fatalf("IsNoFlood() = true, want false (bit cleared by the value)")
	}

	p.ApplyConfig(OFPPC_PORT_DOWN, 0)
	if p.IsPortDown() {
		t.Fatalf("IsPortDown() = true after clearing the bit via mask/value, want false")
	}
}

func TestPortCounters(t *testing.T) {
	p := NewPort(1, nil)
	p.AddRxCounters(3, 300)
	p.AddTxCounters(2, 200)
	p.AddTxDropped()

	c := p.Counters()
	if c.RxPackets != 3 || c.RxBytes != 300 || c.TxPackets != 2 || c.TxBytes != 200 || c.TxDropped != 1 {
		t.Fatalf("Counters() = %+v, want RxPackets=3 RxBytes=300 TxPackets=2 TxBytes=200 TxDropped=1", c)
	}
}

func TestHardwareAddrDerivedFromID(t *testing.T) {
	d := NewDatapath(0, 0x0000aabbccddeeff, "test", nil)
	mac := d.HardwareAddr()
	want := []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	if len(mac) != 6 {
		t.Fatalf("HardwareAddr() has length %v, want 6", len(mac))
	}
	for i := range want {
		if mac[i] != want[i] {
			t.Fatalf("HardwareAddr() = % x, want % x", []byte(mac), want)
		}
	}
}

func TestSenderIsNotification(t *testing.T) {
	if !(Sender{}).IsNotification() {
		t.Fatalf("zero-value Sender.IsNotification() = false, want true")
	}
	if (Sender{PeerID: "peer-1"}).IsNotification() {
		t.Fatalf("Sender with a PeerID: IsNotification() = true, want false")
	}
}
