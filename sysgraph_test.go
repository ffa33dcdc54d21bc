package sysgraph

import (
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/mem"
)

func TestGC(t *testing.T) {
	db := prepDB(t, nil, testStart)

	// Deletes everything at or before start+10.
	if err := db.gc(db.start+20, 10); err != nil {
		t.Fatal("failed to gc:", err)
	}

	r, err := db.Iterator(IteratorOpts{})
	if err != nil {
		t.Fatal("failed to create iterator after GC:", err)
	}
	defer r.Close()

	got := snapshotIxs(r.ReadAll())
	if len(got) != 10 || got[0] != 11 || got[9] != 20 {
		t.Fatalf("unexpected snapshots after GC: %v", got)
	}
}

func TestLatest(t *testing.T) {
	empty := prepDB(t, []Snapshot{}, testStart)

	if _, err := empty.Latest(); !errors.Is(err, ErrUninitialized) {
		t.Fatalf("expected ErrUninitialized, got %v", err)
	}

	db := prepDB(t, nil, testStart)

	s, err := db.Latest()
	if err != nil {
		t.Fatal("failed to get latest:", err)
	}
	if s.HostStats.Ctxt != 20 || s.UnixTime() != int64(testStart+20) {
		t.Errorf("unexpected latest snapshot %d at %d", s.HostStats.Ctxt, s.UnixTime())
	}
}

func TestUpdateReplaces(t *testing.T) {
	db := prepDB(t, []Snapshot{}, testStart)

	for _, used := range []uint64{1, 2} {
		s := newFakeSnapshot(testStart, 1)
		s.Memory = mem.VirtualMemoryStat{Used: used}

		if err := db.Update(s); err != nil {
			t.Fatal("failed to update:", err)
		}
	}

	s, err := db.Latest()
	if err != nil {
		t.Fatal("failed to get latest:", err)
	}
	if s.Memory.Used != 2 {
		t.Errorf("expected the second snapshot to win, got %d", s.Memory.Used)
	}
}

func TestReadOnly(t *testing.T) {
	db := Database{ro: true}

	if err := db.Update(Snapshot{}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Update: expected ErrReadOnly, got %v", err)
	}
	if err := db.GC(Day); !errors.Is(err, ErrReadOnly) {
		t.Errorf("GC: expected ErrReadOnly, got %v", err)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	s := newFakeSnapshot(testStart, 42)
	s.Memory.Total = 1 << 30

	b, err := encodeSnapshot(s)
	if err != nil {
		t.Fatal("failed to encode:", err)
	}

	var got Snapshot
	if err := decodeSnapshot(b, &got); err != nil {
		t.Fatal("failed to decode:", err)
	}
	if got.HostStats.Ctxt != 42 || got.Memory.Total != 1<<30 {
		t.Errorf("unexpected decoded snapshot %+v", got)
	}

	for _, bad := range [][]byte{nil, {'{', '}'}, {versionBytePrefix, 0xFF, 0xA0}} {
		if err := decodeSnapshot(bad, &got); err == nil {
			t.Errorf("expected error decoding %v", bad)
		}
	}
}
