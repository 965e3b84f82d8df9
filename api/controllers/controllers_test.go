package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthlab/hearth-hub-go/approval"
	"github.com/hearthlab/hearth-hub-go/broadcast"
	"github.com/hearthlab/hearth-hub-go/pending"
	"github.com/hearthlab/hearth-hub-go/registration"
	"github.com/hearthlab/hearth-hub-go/registry"
	"github.com/hearthlab/hearth-hub-go/status"
	"github.com/hearthlab/hearth-hub-go/types"
)

type testEnv struct {
	router   *gin.Engine
	queue    *pending.Queue
	store    *registry.Store
	service  *registration.Service
	listener *broadcast.Listener
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := registry.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	store := registry.NewStore(db)

	queue := pending.NewQueue(time.Hour)
	t.Cleanup(queue.Stop)

	self := &types.AnnounceMessage{
		ID:      "hub-1",
		Name:    "Test Hub",
		Port:    8537,
		Version: "1.0",
		Hub:     true,
	}
	listener := broadcast.NewListener(self, queue, time.Minute)
	service := registration.NewService(store)
	workflow := approval.NewWorkflow(queue, store)
	producer := status.NewProducer(listener, queue, "hub-1", 30)

	router := gin.New()
	hub := router.Group("/api/hub/v1")
	{
		statusCtrl := NewStatusController(producer)
		discoveryCtrl := NewDiscoveryController(listener)
		pendingCtrl := NewPendingController(queue, workflow, nil)
		registrationCtrl := NewRegistrationController(service)
		devicesCtrl := NewDevicesController(store)

		hub.GET("/status", statusCtrl.HandleStatus)
		hub.POST("/discovery/enable", discoveryCtrl.HandleEnable)
		hub.POST("/discovery/disable", discoveryCtrl.HandleDisable)
		hub.GET("/pending", pendingCtrl.HandleList)
		hub.POST("/pending/:id/approve", pendingCtrl.HandleApprove)
		hub.POST("/pending/:id/reject", pendingCtrl.HandleReject)
		hub.DELETE("/pending", pendingCtrl.HandleClear)
		hub.POST("/register", registrationCtrl.HandleIssue)
		hub.GET("/register/qr", registrationCtrl.HandleCodeQR)
		hub.GET("/devices", devicesCtrl.HandleList)
	}
	device := router.Group("/api/device/v1")
	{
		connectCtrl := NewConnectController(service, store, listener, self)
		device.POST("/connect", connectCtrl.HandleConnect)
		device.POST("/announce", connectCtrl.HandleAnnounce)
	}

	return &testEnv{router: router, queue: queue, store: store, service: service, listener: listener}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.queue.Upsert(types.PendingDevice{ID: "dev-1", Name: "Speaker", IPAddress: "10.0.0.5", Timestamp: time.Now()})

	w := env.do(t, http.MethodGet, "/api/hub/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "hub-1", data["hubId"])
	assert.Equal(t, false, data["enabled"])
	assert.Equal(t, float64(1), data["pendingDevices"])
}

func TestDiscoveryEnableUnavailable(t *testing.T) {
	env := newTestEnv(t)

	// Listener never started, so the socket is not operative.
	w := env.do(t, http.MethodPost, "/api/hub/v1/discovery/enable", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, env.listener.Enabled())
}

func TestDiscoveryDisableIdempotent(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/hub/v1/discovery/disable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/hub/v1/discovery/disable", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPendingListAndApprove(t *testing.T) {
	env := newTestEnv(t)
	env.queue.Upsert(types.PendingDevice{
		ID:        "dev-1",
		Name:      "Living Room Speaker",
		Type:      types.DeviceTypeSpeaker,
		IPAddress: "10.0.0.5",
		Timestamp: time.Now(),
	})

	w := env.do(t, http.MethodGet, "/api/hub/v1/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dev-1")

	w = env.do(t, http.MethodPost, "/api/hub/v1/pending/dev-1/approve", approval.Decision{
		Name:       "Living Room Speaker",
		Room:       "Living Room",
		DeviceType: types.DeviceTypeSpeaker,
	})
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := env.store.Get("dev-1")
	require.NoError(t, err)
	assert.Equal(t, "Living Room", stored.Room)
	assert.True(t, stored.Approved)
	assert.Equal(t, 0, env.queue.Len())

	// The entry left the queue, so a second approve is a miss.
	w = env.do(t, http.MethodPost, "/api/hub/v1/pending/dev-1/approve", approval.Decision{
		Name: "x", Room: "y", DeviceType: types.DeviceTypeSpeaker,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApproveValidation(t *testing.T) {
	env := newTestEnv(t)
	env.queue.Upsert(types.PendingDevice{ID: "dev-1", Name: "Speaker", IPAddress: "10.0.0.5", Timestamp: time.Now()})

	w := env.do(t, http.MethodPost, "/api/hub/v1/pending/dev-1/approve", approval.Decision{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, env.queue.Len())
}

func TestRejectAndClear(t *testing.T) {
	env := newTestEnv(t)
	env.queue.Upsert(types.PendingDevice{ID: "dev-1", Name: "A", IPAddress: "10.0.0.5", Timestamp: time.Now()})
	env.queue.Upsert(types.PendingDevice{ID: "dev-2", Name: "B", IPAddress: "10.0.0.6", Timestamp: time.Now()})

	w := env.do(t, http.MethodPost, "/api/hub/v1/pending/dev-1/reject", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/hub/v1/pending/unknown/reject", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/hub/v1/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeData(t, w)["cleared"])
	assert.Equal(t, 0, env.queue.Len())
}

func TestRegisterIssueAndConnect(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/hub/v1/register", types.DeviceDraft{
		Name:       "Bedroom Mic",
		Room:       "Bedroom",
		DeviceType: types.DeviceTypeMic,
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	code := data["code"].(map[string]any)["code"].(string)
	deviceID := data["device"].(map[string]any)["id"].(string)
	require.NotEmpty(t, code)

	w = env.do(t, http.MethodPost, "/api/device/v1/connect", map[string]string{"code": code})
	require.Equal(t, http.StatusOK, w.Code)
	connectData := decodeData(t, w)
	assert.Equal(t, deviceID, connectData["deviceId"])
	assert.Equal(t, "hub-1", connectData["hub"].(map[string]any)["id"])

	stored, err := env.store.Get(deviceID)
	require.NoError(t, err)
	assert.True(t, stored.Approved)
	assert.NotEmpty(t, stored.IPAddress)

	// Single use: replay conflicts.
	w = env.do(t, http.MethodPost, "/api/device/v1/connect", map[string]string{"code": code})
	assert.Equal(t, http.StatusConflict, w.Code)
}

type flakyApprover struct {
	mu   sync.Mutex
	fail bool
}

func (f *flakyApprover) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

func (f *flakyApprover) MarkApproved(id, ipAddress string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("registry write failed")
	}
	return nil
}

func TestConnectStoreFailureKeepsCodeRedeemable(t *testing.T) {
	env := newTestEnv(t)

	_, code, err := env.service.Issue(types.DeviceDraft{Name: "Office Display", Room: "Office"})
	require.NoError(t, err)

	approver := &flakyApprover{fail: true}
	self := &types.AnnounceMessage{ID: "hub-1", Name: "Test Hub", Hub: true}
	router := gin.New()
	router.POST("/connect", NewConnectController(env.service, approver, env.listener, self).HandleConnect)

	do := func() *httptest.ResponseRecorder {
		raw, err := json.Marshal(map[string]string{"code": code.Code})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/connect", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// The registry write fails, so the handshake fails but the code is
	// rolled back instead of being burned.
	w := do()
	require.Equal(t, http.StatusInternalServerError, w.Code)

	approver.setFail(false)
	w = do()
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConnectUnknownCode(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/device/v1/connect", map[string]string{"code": "NOPE1234"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/device/v1/connect", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/hub/v1/register", types.DeviceDraft{Name: "No Room"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "room")
}

func TestCodeQR(t *testing.T) {
	env := newTestEnv(t)

	_, code, err := env.service.Issue(types.DeviceDraft{Name: "Hall Display", Room: "Hall"})
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/hub/v1/register/qr?code="+code.Code+"&size=128", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())

	w = env.do(t, http.MethodGet, "/api/hub/v1/register/qr?code=UNKNOWN1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnnounceFallback(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/device/v1/announce", types.AnnounceMessage{
		ID:         "dev-9",
		Name:       "Porch Camera Display",
		DeviceType: string(types.DeviceTypeDisplay),
		Announce:   true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	dev, ok := env.queue.Get("dev-9")
	require.True(t, ok)
	assert.NotEmpty(t, dev.IPAddress)

	// Hub beacons are not devices.
	w = env.do(t, http.MethodPost, "/api/device/v1/announce", types.AnnounceMessage{ID: "hub-2", Hub: true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Non-announce chatter is dropped on the HTTP path as on UDP.
	w = env.do(t, http.MethodPost, "/api/device/v1/announce", types.AnnounceMessage{ID: "dev-10", DeviceType: "speaker"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	_, ok = env.queue.Get("dev-10")
	assert.False(t, ok)
}

func TestDevicesList(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Create(&registry.Device{ID: "dev-1", Name: "Speaker", Room: "Kitchen"}))

	w := env.do(t, http.MethodGet, "/api/hub/v1/devices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dev-1")
}
