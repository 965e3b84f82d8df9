package broadcast

import (
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

const probeTimeout = 2 * time.Second

// probeReachable sends a single unprivileged ICMP echo to the announcing device.
// The result is informational only; approval never depends on it.
func probeReachable(ip string) bool {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		return false
	}
	pinger.Count = 1
	pinger.Timeout = probeTimeout
	pinger.SetPrivileged(false)
	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
