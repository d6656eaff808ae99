package dpreg

import (
	"fmt"
	"testing"

	"github.com/ofdp/switchd/internal/dp"
)

func fakeFactory(idx int, id uint64, description string) (*dp.Datapath, error) {
	return dp.NewDatapath(idx, id, description, nil), nil
}

func TestCreateRejectsNoIndexNoName(t *testing.T) {
	r := New(fakeFactory)
	if _, err := r.Create(-1, "", 1, ""); err != dp.ErrInvalid {
		t.Fatalf("Create(-1, \"\", ...) = %v, want ErrInvalid", err)
	}
}

func TestCreateAutoAssignsFirstFreeSlot(t *testing.T) {
	r := New(fakeFactory)
	d0, err := r.Create(-1, "sw0", 1, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d0.Idx != 0 {
		t.Fatalf("first auto-assigned Idx = %v, want 0", d0.Idx)
	}

	r.Destroy(0)
	d1, err := r.Create(-1, "sw1", 2, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d1.Idx != 0 {
		t.Fatalf("auto-assigned Idx after freeing slot 0 = %v, want 0", d1.Idx)
	}
}

func TestCreateExplicitIndexCollision(t *testing.T) {
	r := New(fakeFactory)
	if _, err := r.Create(5, "", 1, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := r.Create(5, "", 2, ""); err != dp.ErrAlreadyExists {
		t.Fatalf("Create at an occupied index = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateIndexOutOfRange(t *testing.T) {
	r := New(fakeFactory)
	if _, err := r.Create(Max, "", 1, ""); err != dp.ErrOutOfRange {
		t.Fatalf("Create(Max, ...) = %v, want ErrOutOfRange", err)
	}
}

func TestCreateNameCollision(t *testing.T) {
	r := New(fakeFactory)
	if _, err := r.Create(-1, "dup", 1, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := r.Create(-1, "dup", 2, ""); err != dp.ErrAlreadyExists {
		t.Fatalf("Create with a duplicate name = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateExhausted(t *testing.T) {
	r := New(fakeFactory)
	for i := 0; i < Max; i++ {
		if _, err := r.Create(-1, fmt.Sprintf("sw%d", i), uint64(i), ""); err != nil {
			t.Fatalf("Create(%v): %v", i, err)
		}
	}
	if _, err := r.Create(-1, "extra", 999, ""); err != dp.ErrExhausted {
		t.Fatalf("Create beyond Max = %v, want ErrExhausted", err)
	}
}

func TestLookupByIndexAndName(t *testing.T) {
	r := New(fakeFactory)
	d, err := r.Create(3, "sw0", 42, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got, err := r.Lookup(3, ""); err != nil || got != d {
		t.Fatalf("Lookup(3, \"\") = %v, %v, want %v, nil", got, err, d)
	}
	if got, err := r.Lookup(-1, "sw0"); err != nil || got != d {
		t.Fatalf("Lookup(-1, \"sw0\") = %v, %v, want %v, nil", got, err, d)
	}
	if got, err := r.Lookup(3, "sw0"); err != nil || got != d {
		t.Fatalf("Lookup(3, \"sw0\") = %v, %v, want %v, nil", got, err, d)
	}
}

func TestLookupIndexNameMismatch(t *testing.T) {
	r := New(fakeFactory)
	r.Create(3, "sw0", 42, "")
	r.Create(4, "sw1", 43, "")

	if _, err := r.Lookup(4, "sw0"); err != dp.ErrInvalid {
		t.Fatalf("Lookup with mismatched index/name = %v, want ErrInvalid", err)
	}
}

func TestLookupNeitherIndexNorName(t *testing.T) {
	r := New(fakeFactory)
	if _, err := r.Lookup(-1, ""); err != dp.ErrInvalid {
		t.Fatalf("Lookup(-1, \"\") = %v, want ErrInvalid", err)
	}
}

func TestLookupUnknownName(t *testing.T) {
	r := New(fakeFactory)
	if _, err := r.Lookup(-1, "nope"); err != dp.ErrNotFound {
		t.Fatalf("Lookup of an unknown name = %v, want ErrNotFound", err)
	}
}

func TestDestroyFreesTheSlotAndName(t *testing.T) {
	r := New(fakeFactory)
	r.Create(3, "sw0", 42, "")

	if err := r.Destroy(3); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := r.Lookup(3, ""); err != dp.ErrNotFound {
		t.Fatalf("Lookup after Destroy = %v, want ErrNotFound", err)
	}
	if _, err := r.Lookup(-1, "sw0"); err != dp.ErrNotFound {
		t.Fatalf("Lookup by name after Destroy = %v, want ErrNotFound", err)
	}

	if _, err := r.Create(-1, "sw0", 99, ""); err != nil {
		t.Fatalf("re-Create with the freed name: %v", err)
	}
}

func TestDestroyUnknownIndex(t *testing.T) {
	r := New(fakeFactory)
	if err := r.Destroy(9); err != dp.ErrNotFound {
		t.Fatalf("Destroy of an empty slot = %v, want ErrNotFound", err)
	}
}

func TestEachReturnsEveryLiveDatapath(t *testing.T) {
	r := New(fakeFactory)
	r.Create(-1, "sw0", 1, "")
	r.Create(-1, "sw1", 2, "")
	r.Create(-1, "sw2", 3, "")

	if got := len(r.Each()); got != 3 {
		t.Fatalf("len(Each()) = %v, want 3", got)
	}
}
