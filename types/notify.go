package types

// Notification represents a notification message pushed to web UI observers.
type Notification struct {
	Type    string         `json:"type,omitempty"`    // e.g. "device_discovered", "status_update"
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}

// Notification type constants used by the notify hub.
const (
	NotifyTypeDeviceDiscovered = "device_discovered"
	NotifyTypeDeviceUpdated    = "device_updated"
	NotifyTypeDeviceApproved   = "device_approved"
	NotifyTypeDeviceRejected   = "device_rejected"
	NotifyTypeQueueCleared     = "queue_cleared"
	NotifyTypeStatusUpdate     = "status_update"
	NotifyTypeStatusError      = "status_error"
)
