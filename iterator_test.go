package sysgraph

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/load"
)

const testStart = uint32(1700000000)

// testedDatabase extends Database to add useful testing information.
type testedDatabase struct {
	*Database
	start uint32
}

// prepDB prepares a database with the given snapshots, or 20 datapoints over
// the span of 20 seconds if nil. The host stats' ctxt is used as the index.
func prepDB(t testing.TB, snapshots []Snapshot, now uint32) *testedDatabase {
	t.Helper()

	if snapshots == nil {
		snapshots = gatherMetrics(t, 20, now)
	}

	d, err := Open(t.TempDir(), true)
	if err != nil {
		t.Fatal("failed to open db:", err)
	}

	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Error("failed to close db:", err)
		}
	})

	for _, snapshot := range snapshots {
		if err := d.Update(snapshot); err != nil {
			t.Fatal("failed to update:", err)
		}
	}

	return &testedDatabase{
		Database: d,
		start:    now,
	}
}

func gatherMetrics(t testing.TB, n, now uint32) []Snapshot {
	t.Helper()

	snapshots := make([]Snapshot, n)

	for i := uint32(1); i <= n; i++ {
		snapshots[i-1] = newFakeSnapshot(now, i)
	}

	// Shuffle the slice and ensure integrity.
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(snapshots), func(i, j int) {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	})

	return snapshots
}

func newFakeSnapshot(start, i uint32) Snapshot {
	return Snapshot{
		// Mock a timestamp.
		time:      start + i,
		HostStats: load.MiscStat{Ctxt: int(i)},
	}
}

func snapshotIxs(snapshots []Snapshot) []int {
	ints := make([]int, len(snapshots))

	for i, snapshot := range snapshots {
		ints[i] = snapshot.HostStats.Ctxt
	}

	return ints
}

func unix(t uint32) time.Time { return time.Unix(int64(t), 0) }

func TestReadAll(t *testing.T) {
	start := testStart
	db := prepDB(t, nil, start)

	type test struct {
		name    string
		opts    IteratorOpts
		expects []int
	}

	var tests = []test{{
		name: "small",
		opts: IteratorOpts{
			From: unix(start + 10),
			Till: unix(start + 18),
		},
		expects: []int{10, 11, 12, 13, 14, 15, 16, 17, 18},
	}, {
		name: "all",
		opts: IteratorOpts{},
		expects: []int{
			1, 2, 3, 4, 5, 6, 7, 8, 9, 10,
			11, 12, 13, 14, 15, 16, 17, 18, 19, 20,
		},
	}, {
		name: "overbound",
		opts: IteratorOpts{
			From: unix(start - 10),
			Till: unix(start + 30),
		},
		expects: []int{
			1, 2, 3, 4, 5, 6, 7, 8, 9, 10,
			11, 12, 13, 14, 15, 16, 17, 18, 19, 20,
		},
	}, {
		name: "outside",
		opts: IteratorOpts{
			From: unix(start + 100),
			Till: unix(start + 110),
		},
		expects: []int{},
	}, {
		name: "step",
		opts: IteratorOpts{
			From: unix(start + 1),
			Step: 5 * time.Second,
		},
		expects: []int{1, 6, 11, 16},
	}, {
		name: "step_subsecond",
		opts: IteratorOpts{
			From: unix(start + 18),
			Step: 500 * time.Millisecond,
		},
		expects: []int{18, 19, 20},
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r, err := db.Iterator(test.opts)
			if err != nil {
				t.Fatal("failed to create iterator:", err)
			}
			defer r.Close()

			snapshots := r.ReadAll()
			if err := r.Err(); err != nil {
				t.Fatal("iterator failed:", err)
			}

			got := snapshotIxs(snapshots)

			t.Logf("expects: %v", test.expects)
			t.Logf("got:     %v", got)

			if len(got) != len(test.expects) {
				t.Fatalf("unexpected snapshots:\n"+
					"expected %02d: %v\n"+
					"got      %02d: %v",
					len(test.expects), test.expects, len(got), got,
				)
			}

			for i, snapshot := range snapshots {
				if snapshot.UnixTime() != int64(start)+int64(test.expects[i]) {
					t.Errorf("snapshot %d has time %d", i, snapshot.UnixTime())
				}
				if got[i] != test.expects[i] {
					t.Errorf("snapshot %d expected %d, got %d", i, test.expects[i], got[i])
				}
			}
		})
	}
}

func TestIteratorRemaining(t *testing.T) {
	db := prepDB(t, nil, testStart)

	r, err := db.Iterator(IteratorOpts{})
	if err != nil {
		t.Fatal("failed to create iterator:", err)
	}
	defer r.Close()

	for i := 0; i < 5; i++ {
		r.Next(nil)
	}

	if n := r.Remaining(); n != 15 {
		t.Fatalf("expected 15 remaining, got %d", n)
	}

	var s Snapshot
	if !r.Next(&s) {
		t.Fatal("iterator ended early")
	}
	if s.HostStats.Ctxt != 6 {
		t.Errorf("Remaining moved the cursor: got snapshot %d", s.HostStats.Ctxt)
	}
}

func TestIteratorInvalidOpts(t *testing.T) {
	db := prepDB(t, []Snapshot{}, testStart)

	var tests = []IteratorOpts{
		{From: unix(testStart + 10), Till: unix(testStart)},
		{From: unix(testStart), Till: unix(testStart)},
		{Step: -time.Second},
	}

	for _, opts := range tests {
		if r, err := db.Iterator(opts); err == nil {
			r.Close()
			t.Errorf("expected error for %+v", opts)
		}
	}
}

func BenchmarkReadAll(b *testing.B) {
	db := prepDB(b, nil, testStart)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := db.Iterator(IteratorOpts{})
		if err != nil {
			b.Fatal("failed to create iterator:", err)
		}
		r.ReadAll()
		r.Close()
	}
}
