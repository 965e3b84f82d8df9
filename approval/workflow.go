package approval

import (
	"errors"
	"strings"
	"sync"

	"github.com/hearthlab/hearth-hub-go/pending"
	"github.com/hearthlab/hearth-hub-go/registry"
	"github.com/hearthlab/hearth-hub-go/tool"
	"github.com/hearthlab/hearth-hub-go/types"
)

// ErrNotPending is returned when approving a device that is not in the queue,
// e.g. because a concurrent reject already removed it.
var ErrNotPending = errors.New("device is not pending")

// DeviceWriter is the slice of the registry the workflow needs.
type DeviceWriter interface {
	Create(dev *registry.Device) error
}

// Decision carries the operator-supplied fields for an approval. These, not the
// device-reported values, end up on the durable record.
type Decision struct {
	Name       string           `json:"name"`
	Room       string           `json:"room"`
	DeviceType types.DeviceType `json:"deviceType"`
}

// Workflow applies operator decisions to the pending queue. Approve, reject and
// clear are serialized against each other so a race on one id resolves to exactly
// one winner; the loser sees a no-op against an already-removed entry.
type Workflow struct {
	mu    sync.Mutex
	queue *pending.Queue
	store DeviceWriter
}

func NewWorkflow(queue *pending.Queue, store DeviceWriter) *Workflow {
	return &Workflow{queue: queue, store: store}
}

// Approve removes the pending entry and publishes it into the durable registry
// under the operator-supplied name, room and type. This is the only path by which
// a pending device becomes a permanent one.
func (w *Workflow) Approve(id string, decision Decision) (*registry.Device, error) {
	var missing []string
	if strings.TrimSpace(decision.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(decision.Room) == "" {
		missing = append(missing, "room")
	}
	if len(missing) > 0 {
		return nil, types.NewValidationError(missing...)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.queue.Get(id)
	if !ok {
		return nil, ErrNotPending
	}

	deviceType := decision.DeviceType
	if !types.ValidDeviceType(deviceType) {
		deviceType = entry.Type
	}

	dev := &registry.Device{
		ID:              entry.ID,
		Name:            strings.TrimSpace(decision.Name),
		Room:            strings.TrimSpace(decision.Room),
		Type:            deviceType,
		MacAddress:      entry.MacAddress,
		IPAddress:       entry.IPAddress,
		FirmwareVersion: entry.FirmwareVersion,
		Approved:        true,
	}
	// Write the durable record first; a failed write keeps the entry queued so
	// the operator can retry.
	if err := w.store.Create(dev); err != nil {
		return nil, err
	}
	w.queue.Remove(id)

	tool.DefaultLogger.Infof("Approved device %s as %q in room %q", id, dev.Name, dev.Room)
	return dev, nil
}

// Reject drops the pending entry without creating a registry record and reports
// whether the entry existed. Rejecting an unknown id is a no-op so flaky clients
// can retry safely.
func (w *Workflow) Reject(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	removed := w.queue.Remove(id)
	if removed {
		tool.DefaultLogger.Infof("Rejected device %s", id)
	}
	return removed
}

// ClearAll removes every pending entry and returns the count removed. Caller-level
// confirmation is expected before invoking this.
func (w *Workflow) ClearAll() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.queue.Clear()
	if n > 0 {
		tool.DefaultLogger.Infof("Cleared %d pending device(s)", n)
	}
	return n
}
