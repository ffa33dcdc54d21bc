package sysgraph

import (
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// PrepareMetrics takes a snapshot of the current system.
func PrepareMetrics() (Snapshot, error) {
	var err error

	snapshot := Snapshot{
		time: uint32(time.Now().Unix()),
	}

	metricUpdates := []struct {
		name string
		fn   func()
	}{
		{"cpu", func() { snapshot.CPUs, err = cpu.Times(true) }},
		{"net", func() { snapshot.Network, err = net.IOCounters(true) }},
		{"disk", func() { snapshot.Disks, err = diskUsages() }},
		{"mem", func() { snapshot.Memory, err = virtualMemory() }},
		{"swap", func() { snapshot.Swap, err = swapMemory() }},
		{"load", func() { snapshot.LoadAvgs, err = loadAvg() }},
		{"host", func() { snapshot.HostStats, err = loadMisc() }},
	}

	for _, update := range metricUpdates {
		update.fn()
		if err != nil {
			return snapshot, errors.Wrapf(err, "failed to get %s", update.name)
		}
	}

	// Sensors are flaky on a lot of hardware, so whatever was read is kept.
	snapshot.Temps, err = host.SensorsTemperatures()
	if err != nil {
		log.Println("reading temperature sensors:", err)
	}

	return snapshot, nil
}

// The functions below dereference the gopsutil return values.

func virtualMemory() (mem.VirtualMemoryStat, error) {
	m, err := mem.VirtualMemory()
	if err != nil {
		return mem.VirtualMemoryStat{}, err
	}
	return *m, nil
}

func swapMemory() (mem.SwapMemoryStat, error) {
	m, err := mem.SwapMemory()
	if err != nil {
		return mem.SwapMemoryStat{}, err
	}
	return *m, nil
}

func loadAvg() (load.AvgStat, error) {
	l, err := load.Avg()
	if err != nil {
		return load.AvgStat{}, err
	}
	return *l, nil
}

func loadMisc() (load.MiscStat, error) {
	l, err := load.Misc()
	if err != nil {
		return load.MiscStat{}, err
	}
	return *l, nil
}

func diskUsages() ([]disk.UsageStat, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return nil, err
	}

	usages := make([]disk.UsageStat, 0, len(partitions))

	for _, p := range partitions {
		u, err := disk.Usage(p.Mountpoint)
		if err != nil {
			// Unreadable mounts such as autofs are skipped.
			continue
		}
		usages = append(usages, *u)
	}

	return usages, nil
}
