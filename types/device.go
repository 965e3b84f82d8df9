package types

import "time"

// DeviceType classifies a device by its voice/remote capability class.
type DeviceType string

const (
	DeviceTypeSpeaker DeviceType = "speaker"
	DeviceTypeDisplay DeviceType = "display"
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeMic     DeviceType = "mic" // microphone-only satellite
)

// ValidDeviceType reports whether t is one of the known capability classes.
func ValidDeviceType(t DeviceType) bool {
	switch t {
	case DeviceTypeSpeaker, DeviceTypeDisplay, DeviceTypeMobile, DeviceTypeMic:
		return true
	}
	return false
}

// PendingStatus is the transient state of a queued device. Approved and rejected
// entries leave the queue instead of being retained with that status.
type PendingStatus string

const (
	PendingStatusPending  PendingStatus = "pending"
	PendingStatusApproved PendingStatus = "approved"
	PendingStatusRejected PendingStatus = "rejected"
)

// PendingDevice is a device that announced itself but has not been approved or
// rejected yet. Created by the broadcast listener, mutated only by the approval
// workflow, removed on approve/reject/clear/TTL expiry.
type PendingDevice struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Type            DeviceType    `json:"deviceType"`
	MacAddress      string        `json:"macAddress,omitempty"`
	IPAddress       string        `json:"ipAddress"`
	FirmwareVersion string        `json:"firmwareVersion,omitempty"`
	Capabilities    []string      `json:"capabilities,omitempty"`
	Reachable       bool          `json:"reachable"`
	Timestamp       time.Time     `json:"timestamp"`
	Status          PendingStatus `json:"status"`
}
