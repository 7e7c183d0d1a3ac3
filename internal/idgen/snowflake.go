package idgen

import (
	"fmt"
	"sync"
	"time"
)

// Bit layout: 41 bits of milliseconds since epoch, 5 datacenter bits,
// 5 worker bits, 12 sequence bits.
const (
	workerIDBits      = 5
	datacenterIDBits  = 5
	sequenceBits      = 12
	maxWorkerID       = 1<<workerIDBits - 1
	maxDatacenterID   = 1<<datacenterIDBits - 1
	maxSequence       = 1<<sequenceBits - 1
	workerIDShift     = sequenceBits
	datacenterIDShift = sequenceBits + workerIDBits
	timestampShift    = sequenceBits + workerIDBits + datacenterIDBits

	// 2024-01-01T00:00:00Z
	epochMillis = 1704067200000

	// Clock regressions up to this size are waited out instead of failing.
	maxClockSkew = 5 * time.Millisecond
)

// Generator hands out time-ordered ids unique per (datacenter, worker).
type Generator struct {
	mu           sync.Mutex
	datacenterID int64
	workerID     int64
	sequence     int64
	lastMillis   int64
	now          func() time.Time
}

func NewGenerator(datacenterID, workerID int64) (*Generator, error) {
	if datacenterID < 0 || datacenterID > maxDatacenterID {
		return nil, fmt.Errorf("datacenter ID must be between 0 and %d", maxDatacenterID)
	}
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("worker ID must be between 0 and %d", maxWorkerID)
	}

	return &Generator{
		datacenterID: datacenterID,
		workerID:     workerID,
		now:          time.Now,
	}, nil
}

func (g *Generator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	millis := g.millis()
	if millis < g.lastMillis {
		behind := time.Duration(g.lastMillis-millis) * time.Millisecond
		if behind > maxClockSkew {
			return 0, fmt.Errorf("clock moved backwards by %s", behind)
		}
		millis = g.waitUntilAfter(g.lastMillis - 1)
	}

	if millis == g.lastMillis {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			millis = g.waitUntilAfter(g.lastMillis)
		}
	} else {
		g.sequence = 0
	}
	g.lastMillis = millis

	return millis<<timestampShift |
		g.datacenterID<<datacenterIDShift |
		g.workerID<<workerIDShift |
		g.sequence, nil
}

// NextPlaceID returns a fresh fixed-width base62 id.
func (g *Generator) NextPlaceID() (string, error) {
	id, err := g.NextID()
	if err != nil {
		return "", err
	}
	return EncodeFixed(id, PlaceIDLength), nil
}

// Time extracts the creation time embedded in an id.
func Time(id int64) time.Time {
	return time.UnixMilli(id>>timestampShift + epochMillis)
}

func (g *Generator) millis() int64 {
	return g.now().UnixMilli() - epochMillis
}

func (g *Generator) waitUntilAfter(last int64) int64 {
	millis := g.millis()
	for millis <= last {
		time.Sleep(100 * time.Microsecond)
		millis = g.millis()
	}
	return millis
}
