package types

import "time"

// DeviceDraft is the operator-supplied form for manual (non-broadcast) registration.
type DeviceDraft struct {
	Name       string     `json:"name"`
	Room       string     `json:"room"`
	DeviceType DeviceType `json:"deviceType"`
	MacAddress string     `json:"macAddress,omitempty"`
}

// RegistrationCode is a short-lived, single-use credential bound to a device draft.
// A code transitions to consumed exactly once, atomically with the device's
// successful connect handshake.
type RegistrationCode struct {
	Code      string    `json:"code"`
	DeviceID  string    `json:"deviceId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Consumed  bool      `json:"consumed"`
}

// Expired reports whether the code is past its expiry at the given instant.
func (r *RegistrationCode) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
