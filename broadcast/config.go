package broadcast

import (
	"fmt"
	"net"

	"github.com/hearthlab/hearth-hub-go/tool"
)

const (
	defaultBroadcastAddress = "224.0.0.214"
	defaultBroadcastPort    = 53535 // UDP discovery port
	// announceRatePPS caps inbound announcement processing; a chatty or
	// misbehaving device cannot flood the pending queue.
	announceRatePPS   = 20
	announceRateBurst = 40
	// readBufferSize bounds a single announcement datagram.
	readBufferSize = 8 * 1024
)

var (
	broadcastAddress    = defaultBroadcastAddress
	broadcastPort       = defaultBroadcastPort
	networkInterface    string // the specified network interface name
	listenAllInterfaces = true // whether to listen on all network interfaces
)

// SetBroadcastAddress overrides the default discovery multicast address.
func SetBroadcastAddress(address string) {
	if address != "" {
		broadcastAddress = address
	}
}

// SetBroadcastPort overrides the default discovery UDP port.
func SetBroadcastPort(port int) {
	if port > 0 {
		broadcastPort = port
	}
}

// Port returns the discovery UDP port currently in effect.
func Port() int {
	return broadcastPort
}

// SetNetworkInterface sets the network interface to use for discovery.
// If interfaceName is empty, the system default interface is used.
// If interfaceName is "*", all available interfaces are used.
func SetNetworkInterface(interfaceName string) {
	if interfaceName != "" && interfaceName != "*" {
		listenAllInterfaces = false
		networkInterface = interfaceName
	}
}

func groupAddr() (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", broadcastAddress, broadcastPort))
}

// getNetworkInterfaces returns the interfaces to listen on.
// If listenAllInterfaces is true, returns all valid interfaces.
// If networkInterface is set, returns only that interface.
// Otherwise, returns nil (use system default).
func getNetworkInterfaces() ([]*net.Interface, error) {
	if listenAllInterfaces {
		interfaces, err := net.Interfaces()
		if err != nil {
			return nil, fmt.Errorf("failed to get network interfaces: %v", err)
		}

		var validInterfaces []*net.Interface
		for i := range interfaces {
			iface := &interfaces[i]
			// remove tun connections.
			if tool.RejectUnsupportNetworkInterface(iface) {
				continue
			}
			validInterfaces = append(validInterfaces, iface)
		}

		if len(validInterfaces) == 0 {
			return nil, fmt.Errorf("no valid network interfaces found")
		}

		return validInterfaces, nil
	} else if networkInterface != "" {
		iface, err := net.InterfaceByName(networkInterface)
		if err != nil {
			return nil, fmt.Errorf("failed to get network interface %s: %v", networkInterface, err)
		}
		if tool.RejectUnsupportNetworkInterface(iface) {
			return nil, fmt.Errorf("network interface %s is not supported", networkInterface)
		}
		return []*net.Interface{iface}, nil
	}

	// use the system default interface
	return []*net.Interface{nil}, nil
}
