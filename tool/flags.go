package tool

import (
	"flag"

	"github.com/hearthlab/hearth-hub-go/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.StringVar(&cfg.UseHubName, "useHubName", "", "specify the hub display name")
	flag.IntVar(&cfg.UsePort, "usePort", 0, "override HTTP API port")
	flag.StringVar(&cfg.UseBroadcastAddress, "useBroadcastAddress", "", "override discovery multicast address")
	flag.IntVar(&cfg.UseBroadcastPort, "useBroadcastPort", 0, "override discovery UDP port")
	flag.StringVar(&cfg.UseNetworkInterface, "useNetworkInterface", "*", "specify network interface (e.g., 'en0', 'eth0') or '*' for all interfaces")
	flag.StringVar(&cfg.UseDatabasePath, "useDatabasePath", "", "override device registry sqlite path")
	flag.BoolVar(&cfg.DisableDiscovery, "disableDiscovery", false, "start with the presence beacon off")
	flag.Parse()
	return cfg
}
