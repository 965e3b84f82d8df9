package types

// StatusSnapshot is the aggregate discovery status surfaced to operators.
// It has no persistence; every fetch recomputes it from the listener and queue.
type StatusSnapshot struct {
	Enabled           bool   `json:"enabled"`           // beacon broadcasting active
	Available         bool   `json:"available"`         // discovery socket operative
	Port              int    `json:"port"`              // discovery UDP port
	BroadcastInterval int    `json:"broadcastInterval"` // beacon interval, seconds
	HubID             string `json:"hubId"`
	LocalIP           string `json:"localIp"`
	PendingDevices    int    `json:"pendingDevices"`
}
