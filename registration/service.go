package registration

import (
	"strings"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/hearthlab/hearth-hub-go/registry"
	"github.com/hearthlab/hearth-hub-go/tool"
	"github.com/hearthlab/hearth-hub-go/types"
)

const (
	// CodeLifetime is fixed: expiresAt = issuedAt + 24h.
	CodeLifetime = 24 * time.Hour

	// codeCacheTTL is longer than CodeLifetime so an expired code still answers
	// ErrCodeExpired instead of ErrCodeNotFound; cache eviction is only GC.
	codeCacheTTL = 48 * time.Hour
)

// DeviceWriter is the slice of the registry the service needs.
type DeviceWriter interface {
	Create(dev *registry.Device) error
}

// Service handles manual (non-broadcast) onboarding: it issues one-time
// registration codes bound to provisional device drafts and validates codes
// presented during the device connect handshake.
type Service struct {
	mu    sync.Mutex // serializes code issuance and consumption
	codes *ttlworker.Cache[string, *types.RegistrationCode]
	store DeviceWriter
	now   func() time.Time
}

func NewService(store DeviceWriter) *Service {
	return &Service{
		codes: ttlworker.NewCache[string, *types.RegistrationCode](codeCacheTTL),
		store: store,
		now:   time.Now,
	}
}

// Issue validates the draft, creates a provisional registry record and binds a
// fresh single-use code to it. The same name/room pair may be issued any number
// of times; every call produces a new device draft and a new code.
func (s *Service) Issue(draft types.DeviceDraft) (*registry.Device, *types.RegistrationCode, error) {
	var missing []string
	if strings.TrimSpace(draft.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(draft.Room) == "" {
		missing = append(missing, "room")
	}
	if len(missing) > 0 {
		return nil, nil, types.NewValidationError(missing...)
	}

	deviceType := draft.DeviceType
	if !types.ValidDeviceType(deviceType) {
		deviceType = types.DeviceTypeMobile
	}

	dev := &registry.Device{
		ID:         tool.GenerateRandomUUID(),
		Name:       strings.TrimSpace(draft.Name),
		Room:       strings.TrimSpace(draft.Room),
		Type:       deviceType,
		MacAddress: draft.MacAddress,
		Approved:   false,
	}
	if err := s.store.Create(dev); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code := generateCode()
	// Uniqueness only matters among currently-active codes.
	for s.activeLocked(code) {
		code = generateCode()
	}

	issuedAt := s.now()
	rc := &types.RegistrationCode{
		Code:      code,
		DeviceID:  dev.ID,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(CodeLifetime),
	}
	s.codes.Set(code, rc)

	tool.DefaultLogger.Infof("Issued registration code for device %s (%s, room %s)", dev.ID, dev.Name, dev.Room)
	return dev, rc, nil
}

// Consume redeems a code presented by a connecting device and returns the bound
// device id. Lookup and the consumed-mark are atomic, so concurrent attempts on
// the same code yield exactly one winner.
func (s *Service) Consume(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	s.mu.Lock()
	defer s.mu.Unlock()

	rc := s.codes.Get(code)
	if rc == nil {
		return "", types.ErrCodeNotFound
	}
	if rc.Expired(s.now()) {
		return "", types.ErrCodeExpired
	}
	if rc.Consumed {
		return "", types.ErrCodeAlreadyUsed
	}
	rc.Consumed = true
	return rc.DeviceID, nil
}

// Release returns a consumed code to the active pool. Used when the approval
// write fails after Consume succeeded, so the device's retry is not refused
// with an already-used error. Releasing an unknown or unconsumed code is a
// no-op.
func (s *Service) Release(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rc := s.codes.Get(strings.ToUpper(strings.TrimSpace(code))); rc != nil {
		rc.Consumed = false
	}
}

// Lookup returns a copy of the code record, consumed or not. Used by the QR
// endpoint so only codes this hub actually issued can be rendered.
func (s *Service) Lookup(code string) (types.RegistrationCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc := s.codes.Get(strings.ToUpper(strings.TrimSpace(code)))
	if rc == nil {
		return types.RegistrationCode{}, false
	}
	return *rc, true
}

// activeLocked reports whether code is currently redeemable. Caller holds s.mu.
func (s *Service) activeLocked(code string) bool {
	rc := s.codes.Get(code)
	return rc != nil && !rc.Consumed && !rc.Expired(s.now())
}
