package registration

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthlab/hearth-hub-go/registry"
	"github.com/hearthlab/hearth-hub-go/types"
)

// fakeStore records created devices in memory.
type fakeStore struct {
	mu      sync.Mutex
	devices []*registry.Device
}

func (f *fakeStore) Create(dev *registry.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append(f.devices, dev)
	return nil
}

func TestIssueValidation(t *testing.T) {
	svc := NewService(&fakeStore{})

	cases := []struct {
		name    string
		draft   types.DeviceDraft
		missing []string
	}{
		{"empty draft", types.DeviceDraft{}, []string{"name", "room"}},
		{"blank name", types.DeviceDraft{Name: "   ", Room: "Office"}, []string{"name"}},
		{"blank room", types.DeviceDraft{Name: "Display", Room: "\t"}, []string{"room"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Issue(tc.draft)
			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.missing, verr.Fields)
		})
	}
}

func TestIssueCreatesDraftAndCode(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	dev, rc, err := svc.Issue(types.DeviceDraft{
		Name:       "Office Display",
		Room:       "Office",
		DeviceType: types.DeviceTypeDisplay,
	})
	require.NoError(t, err)

	require.Len(t, store.devices, 1)
	assert.Equal(t, dev.ID, store.devices[0].ID)
	assert.False(t, dev.Approved)
	assert.Equal(t, "Office Display", dev.Name)

	assert.Len(t, rc.Code, CodeLength)
	for _, c := range rc.Code {
		assert.True(t, strings.ContainsRune(codeAlphabet, c), "unexpected symbol %q", c)
	}
	assert.Equal(t, dev.ID, rc.DeviceID)
	assert.Equal(t, CodeLifetime, rc.ExpiresAt.Sub(rc.IssuedAt))
	assert.False(t, rc.Consumed)
}

func TestIssueSameDraftYieldsFreshCode(t *testing.T) {
	svc := NewService(&fakeStore{})
	draft := types.DeviceDraft{Name: "Office Display", Room: "Office"}

	dev1, rc1, err := svc.Issue(draft)
	require.NoError(t, err)
	dev2, rc2, err := svc.Issue(draft)
	require.NoError(t, err)

	assert.NotEqual(t, dev1.ID, dev2.ID)
	assert.NotEqual(t, rc1.Code, rc2.Code)
}

func TestConsumeOnce(t *testing.T) {
	svc := NewService(&fakeStore{})
	dev, rc, err := svc.Issue(types.DeviceDraft{Name: "Office Display", Room: "Office"})
	require.NoError(t, err)

	deviceID, err := svc.Consume(rc.Code)
	require.NoError(t, err)
	assert.Equal(t, dev.ID, deviceID)

	_, err = svc.Consume(rc.Code)
	assert.ErrorIs(t, err, types.ErrCodeAlreadyUsed)
}

func TestReleaseMakesCodeRedeemableAgain(t *testing.T) {
	svc := NewService(&fakeStore{})
	dev, rc, err := svc.Issue(types.DeviceDraft{Name: "Office Display", Room: "Office"})
	require.NoError(t, err)

	_, err = svc.Consume(rc.Code)
	require.NoError(t, err)

	// A failed handshake hands the code back; the next attempt wins.
	svc.Release(rc.Code)
	deviceID, err := svc.Consume(rc.Code)
	require.NoError(t, err)
	assert.Equal(t, dev.ID, deviceID)

	// Releasing unknown codes is a no-op.
	svc.Release("NOPENOPE")
}

func TestConsumeUnknownCode(t *testing.T) {
	svc := NewService(&fakeStore{})
	_, err := svc.Consume("NOPENOPE")
	assert.ErrorIs(t, err, types.ErrCodeNotFound)
}

func TestConsumeExpiredCode(t *testing.T) {
	svc := NewService(&fakeStore{})
	_, rc, err := svc.Issue(types.DeviceDraft{Name: "Office Display", Room: "Office"})
	require.NoError(t, err)

	svc.now = func() time.Time { return rc.IssuedAt.Add(CodeLifetime + time.Minute) }

	_, err = svc.Consume(rc.Code)
	assert.ErrorIs(t, err, types.ErrCodeExpired)
}

func TestConcurrentConsumeSingleWinner(t *testing.T) {
	svc := NewService(&fakeStore{})
	_, rc, err := svc.Issue(types.DeviceDraft{Name: "Office Display", Room: "Office"})
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Consume(rc.Code)
		}(i)
	}
	close(start)
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case err == types.ErrCodeAlreadyUsed:
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, lost)
}

func TestConsumeNormalizesInput(t *testing.T) {
	svc := NewService(&fakeStore{})
	dev, rc, err := svc.Issue(types.DeviceDraft{Name: "Office Display", Room: "Office"})
	require.NoError(t, err)

	deviceID, err := svc.Consume("  " + strings.ToLower(rc.Code) + " ")
	require.NoError(t, err)
	assert.Equal(t, dev.ID, deviceID)
}
