package registry

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hearthlab/hearth-hub-go/types"
)

// ErrDeviceNotFound is returned when a lookup misses.
var ErrDeviceNotFound = errors.New("device not found")

// Device is a durable registry record. Approved devices come from the approval
// workflow; provisional (Approved=false) records come from manual registration and
// flip to approved when the device consumes its registration code.
type Device struct {
	ID              string           `gorm:"primaryKey" json:"id"`
	Name            string           `gorm:"not null" json:"name"`
	Room            string           `gorm:"not null" json:"room"`
	Type            types.DeviceType `json:"deviceType"`
	MacAddress      string           `json:"macAddress,omitempty"`
	IPAddress       string           `json:"ipAddress,omitempty"`
	FirmwareVersion string           `json:"firmwareVersion,omitempty"`
	Approved        bool             `gorm:"default:false" json:"approved"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// Store wraps the registry database.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new device record.
func (s *Store) Create(dev *Device) error {
	if err := s.db.Create(dev).Error; err != nil {
		return fmt.Errorf("failed to create device %s: %w", dev.ID, err)
	}
	return nil
}

// Get fetches one device by id.
func (s *Store) Get(id string) (*Device, error) {
	var dev Device
	err := s.db.First(&dev, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load device %s: %w", id, err)
	}
	return &dev, nil
}

// List returns all registered devices, newest first.
func (s *Store) List() ([]Device, error) {
	var devices []Device
	if err := s.db.Order("created_at DESC").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// MarkApproved flips a provisional record to approved, recording the network
// identity observed during the connect handshake.
func (s *Store) MarkApproved(id, ipAddress string) error {
	updates := map[string]any{"approved": true}
	if ipAddress != "" {
		updates["ip_address"] = ipAddress
	}
	res := s.db.Model(&Device{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to approve device %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// Count returns the number of registered devices.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&Device{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return n, nil
}
