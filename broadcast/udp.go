package broadcast

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/hearthlab/hearth-hub-go/pending"
	"github.com/hearthlab/hearth-hub-go/tool"
	"github.com/hearthlab/hearth-hub-go/types"
)

// UpsertHook is invoked after an announcement lands in the pending queue.
type UpsertHook func(dev types.PendingDevice, isNew bool)

// Listener owns the discovery socket: it receives device announcements and, while
// enabled, periodically emits the hub's own presence beacon. Disabling only stops
// the beacon; announcements keep flowing so devices mid-handshake are not stranded.
type Listener struct {
	self     *types.AnnounceMessage
	queue    *pending.Queue
	interval time.Duration
	limiter  *rate.Limiter

	mu         sync.Mutex
	enabled    bool
	stopBeacon chan struct{}
	conns      []*net.UDPConn
	started    bool
	onUpsert   UpsertHook // guarded by mu; may be set after Start

	available atomic.Bool
	probe     func(ip string) bool
}

// NewListener creates a listener that beacons self every interval and feeds
// announcements into queue.
func NewListener(self *types.AnnounceMessage, queue *pending.Queue, interval time.Duration) *Listener {
	return &Listener{
		self:     self,
		queue:    queue,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Limit(announceRatePPS), announceRateBurst),
		probe:    probeReachable,
	}
}

// SetOnUpsert registers a hook fired after each queued announcement, e.g. to push
// a discovery notification to web UI observers. Safe to call after Start; the
// receive loops may already be delivering announcements.
func (l *Listener) SetOnUpsert(hook UpsertHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onUpsert = hook
}

// Start binds the discovery socket(s) and launches the receive loops. A bind
// failure does not crash the host process: the listener reports itself as
// unavailable so the operator UI can render a warning.
func (l *Listener) Start() error {
	addr, err := groupAddr()
	if err != nil {
		l.available.Store(false)
		return fmt.Errorf("%w: failed to resolve discovery address: %v", types.ErrTransportUnavailable, err)
	}

	interfaces, err := getNetworkInterfaces()
	if err != nil {
		l.available.Store(false)
		return fmt.Errorf("%w: %v", types.ErrTransportUnavailable, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}

	var bound int
	for _, iface := range interfaces {
		c, err := net.ListenMulticastUDP("udp4", iface, addr)
		if err != nil {
			name := "default"
			if iface != nil {
				name = iface.Name
			}
			tool.DefaultLogger.Errorf("Failed to listen on discovery address for interface %s: %v", name, err)
			continue
		}
		if err := c.SetReadBuffer(readBufferSize); err != nil {
			tool.DefaultLogger.Errorf("Failed to set read buffer: %v", err)
		}
		l.conns = append(l.conns, c)
		bound++
		go l.receiveLoop(c, iface)
	}

	if bound == 0 {
		l.available.Store(false)
		return fmt.Errorf("%w: could not bind discovery port %d on any interface", types.ErrTransportUnavailable, broadcastPort)
	}

	l.started = true
	l.available.Store(true)
	tool.DefaultLogger.Infof("Discovery listening on %s (%d interface(s))", addr.String(), bound)
	return nil
}

// Stop closes the discovery sockets and halts the beacon.
func (l *Listener) Stop() {
	l.Disable()
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.conns {
		if err := c.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close discovery socket: %v", err)
		}
	}
	l.conns = nil
	l.started = false
	l.available.Store(false)
}

// Enable starts periodic beacon emission. Idempotent; calling Enable while
// already enabled is a no-op.
func (l *Listener) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enabled {
		return
	}
	l.enabled = true
	l.stopBeacon = make(chan struct{})
	go l.beaconLoop(l.stopBeacon)
	tool.DefaultLogger.Infof("Auto-discovery beacon enabled (every %s)", l.interval)
}

// Disable stops beacon emission. The receive loops keep running. Idempotent.
func (l *Listener) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return
	}
	l.enabled = false
	close(l.stopBeacon)
	l.stopBeacon = nil
	tool.DefaultLogger.Info("Auto-discovery beacon disabled")
}

// Enabled reports whether the presence beacon is active.
func (l *Listener) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Available reports whether the discovery socket is operative.
func (l *Listener) Available() bool {
	return l.available.Load()
}

func (l *Listener) receiveLoop(c *net.UDPConn, iface *net.Interface) {
	interfaceName := "default"
	if iface != nil {
		interfaceName = iface.Name
	}

	buf := make([]byte, readBufferSize)
	for {
		n, addr, err := c.ReadFrom(buf)
		if err != nil {
			// closed socket means Stop was called; anything else is logged once
			// per occurrence and the loop ends rather than spinning.
			if !strings.Contains(err.Error(), "use of closed network connection") {
				tool.DefaultLogger.Errorf("Error reading from UDP on interface %s: %v", interfaceName, err)
			}
			return
		}

		incoming, parseErr := ParseAnnounceFromBody(buf[:n])
		if parseErr != nil {
			tool.DefaultLogger.Errorf("Failed to parse UDP message: %v", parseErr)
			continue
		}
		// Ignore other hubs' beacons, non-announce chatter and our own echoes.
		if incoming.Hub || !incoming.Announce || incoming.ID == "" || incoming.ID == l.self.ID {
			continue
		}
		udpAddr, ok := addr.(*net.UDPAddr)
		if !ok {
			tool.DefaultLogger.Errorf("Unexpected UDP address type: %T", addr)
			continue
		}
		tool.DefaultLogger.Debugf("Received %d bytes from %s on interface %s", n, addr.String(), interfaceName)

		l.HandleAnnouncement(incoming, udpAddr.IP.String())
	}
}

// HandleAnnouncement upserts a device announcement into the pending queue.
// Shared by the UDP receive loop and the HTTP announce fallback endpoint.
func (l *Listener) HandleAnnouncement(msg *types.AnnounceMessage, ip string) {
	if msg.ID == "" || ip == "" {
		return
	}
	if !l.limiter.Allow() {
		tool.DefaultLogger.Warnf("Dropping announcement from %s: rate limit exceeded", ip)
		return
	}

	dev := types.PendingDevice{
		ID:              msg.ID,
		Name:            msg.Name,
		Type:            types.DeviceType(msg.DeviceType),
		MacAddress:      msg.MacAddress,
		IPAddress:       ip,
		FirmwareVersion: msg.FirmwareVersion,
		Capabilities:    msg.Capabilities,
		Timestamp:       time.Now(),
	}
	if dev.Name == "" {
		dev.Name = "Unnamed " + string(dev.Type)
	}
	if !types.ValidDeviceType(dev.Type) {
		dev.Type = types.DeviceTypeMobile
	}

	isNew := l.queue.Upsert(dev)
	if isNew {
		tool.DefaultLogger.Infof("New device announced: %s (%s) at %s", dev.Name, dev.ID, ip)
		if l.probe != nil {
			go func(id, ip string) {
				l.queue.SetReachable(id, l.probe(ip))
			}(dev.ID, ip)
		}
	} else {
		tool.DefaultLogger.Debugf("Device re-announced: %s at %s", dev.ID, ip)
	}

	l.mu.Lock()
	hook := l.onUpsert
	l.mu.Unlock()
	if hook != nil {
		hook(dev, isNew)
	}
}

func (l *Listener) beaconLoop(stop chan struct{}) {
	l.sendBeacon()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.sendBeacon()
		}
	}
}

// sendBeacon sends a single hub presence datagram to the discovery group.
func (l *Listener) sendBeacon() {
	addr, err := groupAddr()
	if err != nil {
		tool.DefaultLogger.Errorf("Failed to resolve discovery address: %v", err)
		return
	}
	c, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		tool.DefaultLogger.Errorf("Failed to dial discovery address: %v", err)
		return
	}
	defer func() {
		if err := c.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close beacon connection: %v", err)
		}
	}()

	beacon := *l.self
	beacon.Hub = true
	// Beacons must not be mistaken for queue-seeking announcements.
	beacon.Announce = false

	payload, err := sonic.Marshal(&beacon)
	if err != nil {
		tool.DefaultLogger.Errorf("Failed to marshal beacon: %v", err)
		return
	}
	if _, err := c.Write(payload); err != nil {
		tool.DefaultLogger.Errorf("Failed to send beacon: %v", err)
		return
	}
	tool.DefaultLogger.Debugf("Sent presence beacon to %s", addr.String())
}
