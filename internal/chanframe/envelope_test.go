package chanframe

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteReadEnvelopeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{1, 2, 3, 4, 5}

	if err := WriteEnvelope(&buf, OpAddDP, 7, payload); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}

	got, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}

	want := Envelope{Op: OpAddDP, DPIdx: 7, Payload: payload}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteEnvelopeEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, OpDelDP, 3, nil); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}
	got, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if got.Op != OpDelDP || got.DPIdx != 3 || len(got.Payload) != 0 {
		t.Fatalf("ReadEnvelope = %+v, want Op=OpDelDP DPIdx=3 empty Payload", got)
	}
}

func TestWriteEnvelopeTooLarge(t *testing.T) {
	var buf bytes.Buffer
	payload := make([]byte, MaxPayload+1)
	if err := WriteEnvelope(&buf, OpOpenFlow, 0, payload); err != ErrTooLarge {
		t.Fatalf("WriteEnvelope with an oversized payload = %v, want ErrTooLarge", err)
	}
}

func TestReadEnvelopeTruncatedHeader(t *testing.T) {
	buf := bytes.NewReader([]byte{1, 2, 3})
	if _, err := ReadEnvelope(buf); err == nil {
		t.Fatalf("ReadEnvelope of a truncated header succeeded, want an error")
	}
}

func TestReadEnvelopeTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	WriteEnvelope(&buf, OpAddDP, 0, []byte{1, 2, 3, 4, 5})
	truncated := bytes.NewReader(buf.Bytes()[:len(buf.Bytes())-2])
	if _, err := ReadEnvelope(truncated); err == nil {
		t.Fatalf("ReadEnvelope of a truncated payload succeeded, want an error")
	}
}

func TestGroupForIsBoundedAndDeterministic(t *testing.T) {
	for _, idx := range []int{0, 1, 15, 16, 255, 4096} {
		g := GroupFor(idx)
		if g < 0 || g >= groupCount {
			t.Fatalf("GroupFor(%v) = %v, want in [0, %v)", idx, g, groupCount)
		}
		if g2 := GroupFor(idx); g2 != g {
			t.Fatalf("GroupFor(%v) is not deterministic: %v != %v", idx, g, g2)
		}
	}
}
