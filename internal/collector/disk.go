package collector

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// diskstatsSectorBytes is the fixed sector unit used by /proc/diskstats,
// independent of the device's physical sector size.
const diskstatsSectorBytes = 512

// DeviceIO is a per-device throughput reading.
type DeviceIO struct {
	Device           string
	ReadBytesPerSec  float64
	WriteBytesPerSec float64
}

// diskCounters holds the cumulative sector counters for one device.
type diskCounters struct {
	sectorsRead    uint64
	sectorsWritten uint64
}

// Disk computes per-device read/write throughput from /proc/diskstats.
// Partition rows are folded into their parent device.
type Disk struct {
	openDiskstats openFunc
	now           func() time.Time

	prev        map[string]diskCounters
	prevTime    time.Time
	initialized bool
}

// NewDisk creates a Disk collector reading the live /proc/diskstats.
func NewDisk() *Disk {
	return &Disk{
		openDiskstats: fileOpener("/proc/diskstats"),
		now:           time.Now,
	}
}

// Rates returns bytes/sec per device since the previous call, sorted by
// device name. The first call seeds the counters and returns nothing.
func (d *Disk) Rates() ([]DeviceIO, error) {
	cur, err := d.readDiskstats()
	if err != nil {
		return nil, err
	}
	now := d.now()

	if !d.initialized {
		d.prev = cur
		d.prevTime = now
		d.initialized = true
		return nil, nil
	}

	dt := now.Sub(d.prevTime).Seconds()
	if dt <= 0 {
		d.prev = cur
		d.prevTime = now
		return nil, nil
	}

	// Fold partition deltas into their parent device. Devices that
	// appeared since the last read have no baseline and are skipped.
	type ioDelta struct{ read, written uint64 }
	byDevice := make(map[string]ioDelta)
	for name, c := range cur {
		p, ok := d.prev[name]
		if !ok {
			continue
		}
		base := baseDevice(name)
		agg := byDevice[base]
		agg.read += counterDelta(c.sectorsRead, p.sectorsRead)
		agg.written += counterDelta(c.sectorsWritten, p.sectorsWritten)
		byDevice[base] = agg
	}

	out := make([]DeviceIO, 0, len(byDevice))
	for dev, delta := range byDevice {
		out = append(out, DeviceIO{
			Device:           dev,
			ReadBytesPerSec:  float64(delta.read) * diskstatsSectorBytes / dt,
			WriteBytesPerSec: float64(delta.written) * diskstatsSectorBytes / dt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Device < out[j].Device })

	d.prev = cur
	d.prevTime = now
	return out, nil
}

// readDiskstats parses the name and sector counters from each line.
func (d *Disk) readDiskstats() (map[string]diskCounters, error) {
	f, err := d.openDiskstats()
	if err != nil {
		return nil, fmt.Errorf("open /proc/diskstats: %w", err)
	}
	defer f.Close()

	rows := make(map[string]diskCounters)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		// major minor name reads reads_merged sectors_read ms_reading
		// writes writes_merged sectors_written ms_writing ...
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}

		name := fields[2]
		if !countedDevice(name) {
			continue
		}

		sectorsRead, err1 := strconv.ParseUint(fields[5], 10, 64)
		sectorsWritten, err2 := strconv.ParseUint(fields[9], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}

		rows[name] = diskCounters{sectorsRead: sectorsRead, sectorsWritten: sectorsWritten}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan /proc/diskstats: %w", err)
	}

	return rows, nil
}

// countedDevice filters out purely virtual or optical devices.
func countedDevice(name string) bool {
	return !(strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "ram") ||
		strings.HasPrefix(name, "sr") || strings.HasPrefix(name, "fd"))
}

// baseDevice strips the partition suffix from a device name.
// nvme0n1p2 -> nvme0n1, mmcblk0p1 -> mmcblk0, sda3 -> sda.
func baseDevice(name string) string {
	if strings.HasPrefix(name, "nvme") || strings.HasPrefix(name, "mmcblk") {
		if i := strings.IndexByte(name, 'p'); i >= 0 {
			return name[:i]
		}
		return name
	}

	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	return name[:i]
}
