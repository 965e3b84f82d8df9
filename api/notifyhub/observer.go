package notifyhub

import (
	"sync/atomic"

	"github.com/hearthlab/hearth-hub-go/status"
	"github.com/hearthlab/hearth-hub-go/types"
)

const statusObserverID = "notify-hub"

// ObserveStatus subscribes the hub to the status coordinator and pushes
// every snapshot to connected WebSocket clients. Fetch errors are
// broadcast once per failure streak so a flapping hub does not spam
// the UI with identical notifications.
func (h *Hub) ObserveStatus(coordinator *status.Coordinator) {
	var inErrStreak atomic.Bool

	coordinator.Subscribe(statusObserverID,
		func(snapshot *types.StatusSnapshot) {
			inErrStreak.Store(false)
			h.Broadcast(&types.Notification{
				Type:  types.NotifyTypeStatusUpdate,
				Title: "Hub status",
				Data: map[string]any{
					"status": snapshot,
				},
			})
		},
		func(err error) {
			if inErrStreak.Swap(true) {
				return
			}
			h.Broadcast(&types.Notification{
				Type:    types.NotifyTypeStatusError,
				Title:   "Hub status unavailable",
				Message: err.Error(),
			})
		})
}
