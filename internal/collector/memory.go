package collector

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MemBytes is a point-in-time memory reading, all values in bytes.
type MemBytes struct {
	UsedBytes  uint64
	FreeBytes  uint64
	TotalBytes uint64
}

// Memory reads memory usage from /proc/meminfo.
type Memory struct {
	openMeminfo openFunc
}

// NewMemory creates a Memory collector reading the live /proc/meminfo.
func NewMemory() *Memory {
	return &Memory{openMeminfo: fileOpener("/proc/meminfo")}
}

// Bytes returns used, free, and total memory.
//
// Free memory is MemAvailable when the kernel provides it, which counts
// reclaimable page cache. On older kernels it falls back to the estimate
// MemFree + Buffers + Cached - Shmem.
func (m *Memory) Bytes() (MemBytes, error) {
	kv, err := m.readMeminfo()
	if err != nil {
		return MemBytes{}, err
	}

	total, ok := kv["MemTotal"]
	if !ok {
		return MemBytes{}, errors.New("MemTotal not found in /proc/meminfo")
	}

	avail, ok := kv["MemAvailable"]
	if !ok {
		avail = kv["MemFree"] + kv["Buffers"] + kv["Cached"]
		if shmem := kv["Shmem"]; avail > shmem {
			avail -= shmem
		}
	}

	mb := MemBytes{FreeBytes: avail, TotalBytes: total}
	if total > avail {
		mb.UsedBytes = total - avail
	}
	return mb, nil
}

// readMeminfo parses "Key:  value kB" lines into a map of byte values.
func (m *Memory) readMeminfo() (map[string]uint64, error) {
	f, err := m.openMeminfo()
	if err != nil {
		return nil, fmt.Errorf("open /proc/meminfo: %w", err)
	}
	defer f.Close()

	kv := make(map[string]uint64)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		key := strings.TrimSuffix(fields[0], ":")
		valKB, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		kv[key] = valKB * 1024
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan /proc/meminfo: %w", err)
	}

	return kv, nil
}
