package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hearthlab/hearth-hub-go/types"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig
)

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		HubName:           NameGenerator(), // operator can rename it later
		HubID:             "",              // generated below on first run
		Version:           "1.0",
		Port:              8537,
		BroadcastAddress:  "224.0.0.214",
		BroadcastPort:     53535,
		BroadcastInterval: 30,
		Discovery:         true,
		PendingTTLHours:   24, // stale pending entries expire after a day without re-announcement
		DatabasePath:      "hearth.db",
	}
}

func LoadConfig(path string) (types.AppConfig, error) {
	var configChanged bool
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file doesn't exist, create with default values
			cfg.HubID = GenerateRandomUUID()
			if writeErr := writeConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
			}
			DefaultLogger.Infof("Created new config file with hub id %s", cfg.HubID)
			CurrentConfig = cfg
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}

	if cfg.HubID == "" {
		cfg.HubID = GenerateRandomUUID()
		DefaultLogger.Infof("Generated hub id %s", cfg.HubID)
		configChanged = true
	}
	if cfg.BroadcastInterval <= 0 {
		cfg.BroadcastInterval = 30
		configChanged = true
	}

	// Save config if changed
	if configChanged {
		if writeErr := writeConfig(path, cfg); writeErr != nil {
			DefaultLogger.Warnf("Failed to update config file: %v", writeErr)
		}
	}

	CurrentConfig = cfg
	return cfg, nil
}

func writeConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func GetCurrentConfig() *types.AppConfig {
	return &CurrentConfig
}

// UpdateCurrentConfigAndPersist updates the in-memory config and writes it to the config file.
func UpdateCurrentConfigAndPersist(cfg *types.AppConfig) {
	CurrentConfig = *cfg
	if err := writeConfig(ConfigPath, CurrentConfig); err != nil {
		DefaultLogger.Warnf("Failed to persist config: %v", err)
	}
}
