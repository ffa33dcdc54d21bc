package sysgraph

import (
	"errors"
	"math"
	"testing"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"git.unix.lgbt/diamondburned/sysgraph/graph"
)

// sample is a shorthand for an expected point. NaN values are null points.
type sample struct {
	clock int64
	value float64
}

func assertPoints(t *testing.T, expects []sample, got []graph.Point) {
	t.Helper()

	if len(got) != len(expects) {
		t.Fatalf("unexpected points:\n"+
			"expected %02d: %v\n"+
			"got      %02d: %v",
			len(expects), expects, len(got), got)
	}

	for i, p := range got {
		e := expects[i]
		if p.Clock != e.clock {
			t.Errorf("point %d: expected clock %d, got %d", i, e.clock, p.Clock)
		}
		if math.IsNaN(e.value) {
			if !p.IsNull() {
				t.Errorf("point %d: expected null, got %v", i, p.Value)
			}
			continue
		}
		if math.Abs(p.Value-e.value) > 1e-9 {
			t.Errorf("point %d: expected %v, got %v", i, e.value, p.Value)
		}
	}
}

func snapshotAt(clock uint32, fn func(s *Snapshot)) Snapshot {
	s := Snapshot{time: clock}
	fn(&s)
	return s
}

func TestSources(t *testing.T) {
	nan := math.NaN()

	cpuAt := func(clock uint32, user, idle float64) Snapshot {
		return snapshotAt(clock, func(s *Snapshot) {
			s.CPUs = []cpu.TimesStat{
				{CPU: "cpu0", User: user / 2, Idle: idle / 2},
				{CPU: "cpu1", System: user / 2, Idle: idle / 2},
			}
		})
	}

	netAt := func(clock uint32, recv, sent uint64) Snapshot {
		return snapshotAt(clock, func(s *Snapshot) {
			s.Network = []net.IOCountersStat{
				{Name: "lo", BytesRecv: recv * 100, BytesSent: sent * 100},
				{Name: "eth0", BytesRecv: recv, BytesSent: sent},
			}
		})
	}

	type test struct {
		source    string
		snapshots []Snapshot
		expects   []sample
	}

	var tests = []test{{
		source: "cpu.util",
		snapshots: []Snapshot{
			cpuAt(10, 10, 90),
			cpuAt(20, 30, 170),
			cpuAt(30, 1, 1), // reboot
			cpuAt(40, 51, 51),
			cpuAt(50, 51, 51), // no time passed
		},
		expects: []sample{{20, 20}, {30, nan}, {40, 50}},
	}, {
		source: "net.in",
		snapshots: []Snapshot{
			netAt(10, 1000, 0),
			netAt(20, 3000, 0),
			netAt(30, 500, 0), // counter reset
			netAt(35, 1000, 0),
		},
		expects: []sample{{20, 200}, {30, nan}, {35, 100}},
	}, {
		source: "net.out",
		snapshots: []Snapshot{
			netAt(10, 0, 0),
			netAt(20, 0, 4096),
		},
		expects: []sample{{20, 409.6}},
	}, {
		source: "mem.used",
		snapshots: []Snapshot{
			snapshotAt(10, func(s *Snapshot) { s.Memory = mem.VirtualMemoryStat{Used: 1024} }),
			snapshotAt(20, func(s *Snapshot) { s.Memory = mem.VirtualMemoryStat{Used: 2048} }),
		},
		expects: []sample{{10, 1024}, {20, 2048}},
	}, {
		source: "load.5",
		snapshots: []Snapshot{
			snapshotAt(10, func(s *Snapshot) { s.LoadAvgs.Load5 = 0.5 }),
		},
		expects: []sample{{10, 0.5}},
	}, {
		source: "disk.pused:/home",
		snapshots: []Snapshot{
			snapshotAt(10, func(s *Snapshot) {
				s.Disks = []disk.UsageStat{{Path: "/", UsedPercent: 10}, {Path: "/home", UsedPercent: 42}}
			}),
			snapshotAt(20, func(s *Snapshot) {
				s.Disks = []disk.UsageStat{{Path: "/", UsedPercent: 10}}
			}),
		},
		expects: []sample{{10, 42}},
	}, {
		source: "temp:coretemp_package_id_0",
		snapshots: []Snapshot{
			snapshotAt(10, func(s *Snapshot) {
				s.Temps = []host.TemperatureStat{{SensorKey: "coretemp_package_id_0", Temperature: 55}}
			}),
		},
		expects: []sample{{10, 55}},
	}}

	for _, test := range tests {
		t.Run(test.source, func(t *testing.T) {
			src, err := LookupSource(test.source)
			if err != nil {
				t.Fatal("failed to look up:", err)
			}

			assertPoints(t, test.expects, src.Extract(test.snapshots))
		})
	}
}

func TestLookupSource(t *testing.T) {
	units := map[string]string{
		"cpu.util":    "%",
		"mem.used":    "B",
		"net.in":      "Bps",
		"load.1":      "",
		"temp:acpitz": "°C",
	}

	for id, expects := range units {
		src, err := LookupSource(id)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", id, err)
			continue
		}
		if src.Units != expects {
			t.Errorf("%s: expected units %q, got %q", id, expects, src.Units)
		}
	}

	for _, id := range []string{"", "cpu", "disk.pused", "temp:", "mem.used:/"} {
		if _, err := LookupSource(id); !errors.Is(err, ErrUnknownSource) {
			t.Errorf("%q: expected ErrUnknownSource, got %v", id, err)
		}
	}
}

func TestAvailableSources(t *testing.T) {
	s := Snapshot{
		Disks: []disk.UsageStat{{Path: "/home"}, {Path: "/"}},
		Temps: []host.TemperatureStat{{SensorKey: "acpitz"}},
	}

	got := AvailableSources(s)
	expects := []string{"disk.pused:/", "disk.pused:/home", "temp:acpitz"}

	if len(got) != len(expects) {
		t.Fatalf("expected %v, got %v", expects, got)
	}
	for i := range got {
		if got[i] != expects[i] {
			t.Errorf("source %d: expected %q, got %q", i, expects[i], got[i])
		}
	}
}

func TestPoints(t *testing.T) {
	snapshots := make([]Snapshot, 20)
	for i := range snapshots {
		snapshots[i] = snapshotAt(testStart+uint32(i+1), func(s *Snapshot) {
			s.Memory.Used = uint64(i + 1)
		})
	}

	db := prepDB(t, snapshots, testStart)

	from := int64(testStart + 5)
	till := int64(testStart + 10)

	points, err := db.Points("mem.used", from, till)
	if err != nil {
		t.Fatal("failed to read points:", err)
	}

	// One sample before the window is kept.
	assertPoints(t, []sample{
		{from - 1, 4}, {from, 5}, {from + 1, 6}, {from + 2, 7},
		{from + 3, 8}, {from + 4, 9}, {from + 5, 10},
	}, points)

	if _, err := db.Points("mem.bogus", from, till); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
	if _, err := db.Points("mem.used", till, from); err == nil {
		t.Error("expected error on an inverted window")
	}
}
