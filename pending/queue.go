package pending

import (
	"sort"
	"sync"
	"time"

	"github.com/hearthlab/hearth-hub-go/tool"
	"github.com/hearthlab/hearth-hub-go/types"
)

const sweepInterval = time.Minute

// Queue is the deduplicated holding area between a device's announcement and the
// operator's decision. One entry per device id; a repeat announcement refreshes the
// entry instead of duplicating it.
type Queue struct {
	mu      sync.RWMutex
	devices map[string]*types.PendingDevice
	seq     map[string]int // first-seen order, tie-break for equal timestamps
	next    int
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
	now     func() time.Time
}

// NewQueue creates a queue. ttl > 0 starts a background sweep that expires entries
// not re-announced within ttl; ttl == 0 means entries only leave by operator action.
func NewQueue(ttl time.Duration) *Queue {
	q := &Queue{
		devices: make(map[string]*types.PendingDevice),
		seq:     make(map[string]int),
		ttl:     ttl,
		done:    make(chan struct{}),
		now:     time.Now,
	}
	if ttl > 0 {
		go q.janitor()
	}
	return q
}

// Upsert inserts or refreshes the entry for dev.ID and reports whether it was new.
// On refresh the announcement-supplied fields and the timestamp are updated; the
// Reachable flag survives so an earlier probe result is not lost.
func (q *Queue) Upsert(dev types.PendingDevice) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	dev.Status = types.PendingStatusPending
	if dev.Timestamp.IsZero() {
		dev.Timestamp = q.now()
	}

	existing, ok := q.devices[dev.ID]
	if ok {
		dev.Reachable = existing.Reachable
		*existing = dev
		return false
	}
	q.devices[dev.ID] = &dev
	q.seq[dev.ID] = q.next
	q.next++
	return true
}

// Get returns a copy of the entry for id.
func (q *Queue) Get(id string) (types.PendingDevice, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	dev, ok := q.devices[id]
	if !ok {
		return types.PendingDevice{}, false
	}
	return *dev, true
}

// List returns all pending entries, most-recently-announced first. Entries with
// equal timestamps keep their first-seen order, so iteration order is stable
// between mutations.
func (q *Queue) List() []types.PendingDevice {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]types.PendingDevice, 0, len(q.devices))
	for _, dev := range q.devices {
		out = append(out, *dev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return q.seq[out[i].ID] < q.seq[out[j].ID]
	})
	return out
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.devices)
}

// Remove deletes the entry for id and reports whether it existed. Removing an
// unknown id is a no-op so approve/reject retries stay idempotent.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.devices[id]
	if ok {
		delete(q.devices, id)
		delete(q.seq, id)
	}
	return ok
}

// Clear removes every entry and returns the count removed.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.devices)
	q.devices = make(map[string]*types.PendingDevice)
	q.seq = make(map[string]int)
	return n
}

// SetReachable records the result of a reachability probe for id, if still queued.
func (q *Queue) SetReachable(id string, reachable bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if dev, ok := q.devices[id]; ok {
		dev.Reachable = reachable
	}
}

// Stop terminates the TTL sweep goroutine. Safe to call more than once.
func (q *Queue) Stop() {
	q.once.Do(func() { close(q.done) })
}

func (q *Queue) janitor() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
			if n := q.expire(q.now()); n > 0 {
				tool.DefaultLogger.Infof("Expired %d stale pending device(s)", n)
			}
		}
	}
}

// expire removes entries whose last announcement is older than the TTL and
// returns the count removed.
func (q *Queue) expire(now time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int
	for id, dev := range q.devices {
		if now.Sub(dev.Timestamp) > q.ttl {
			delete(q.devices, id)
			delete(q.seq, id)
			n++
		}
	}
	return n
}
