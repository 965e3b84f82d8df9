package types

// AppConfig represents the hub configuration loaded from the config file.
type AppConfig struct {
	HubName           string `yaml:"hubName"`           // operator-visible hub name, also sent in beacons
	HubID             string `yaml:"hubId"`             // stable hub identity, generated on first run
	Version           string `yaml:"version"`           // discovery protocol version (major.minor)
	Port              int    `yaml:"port"`              // HTTP API port
	BroadcastAddress  string `yaml:"broadcastAddress"`  // discovery multicast group
	BroadcastPort     int    `yaml:"broadcastPort"`     // discovery UDP port
	BroadcastInterval int    `yaml:"broadcastInterval"` // beacon interval in seconds
	Discovery         bool   `yaml:"discovery"`         // start with auto-discovery beacon enabled
	PendingTTLHours   int    `yaml:"pendingTTLHours"`   // pending entry expiry, 0 disables
	DatabasePath      string `yaml:"databasePath"`      // sqlite file for the durable device registry
}

// Config holds runtime overrides from CLI flags.
type Config struct {
	Log                 string
	UseConfigPath       string
	UseHubName          string
	UsePort             int
	UseBroadcastAddress string
	UseBroadcastPort    int
	UseNetworkInterface string // fixes when using virtual network interface, e.g. a TUN adapter
	UseDatabasePath     string
	DisableDiscovery    bool // if true, start with the presence beacon off
}
