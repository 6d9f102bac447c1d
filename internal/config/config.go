package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the process configuration loaded from environment variables.
// Disk definitions live in a separate YAML file, see LoadDisks.
type Config struct {
	// GatewayPort is the HTTP port the files gateway listens on.
	// Default: 8080
	GatewayPort int

	// DataDir is the base directory for azure-local disks that do not set
	// their own root.
	// Default: ./data
	DataDir string

	// LogLevel controls the verbosity of logging (debug, info, warn, error).
	// Default: "info"
	LogLevel string

	// DisksFile is the path of the YAML disks file.
	// Default: azurefs.yaml
	DisksFile string

	// DefaultDisk names the disk used when none is given on the command line
	// and the disks file has no default.
	// Default: azure
	DefaultDisk string
}

// Load creates a Config instance by reading environment variables.
// Missing values are replaced with defaults.
func Load() *Config {
	cfg := &Config{
		GatewayPort: 8080,
		DataDir:     "./data",
		LogLevel:    "info",
		DisksFile:   "azurefs.yaml",
		DefaultDisk: "azure",
	}

	if portStr := os.Getenv("GATEWAY_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 && port < 65536 {
			cfg.GatewayPort = port
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if file := os.Getenv("AZUREFS_CONFIG"); file != "" {
		cfg.DisksFile = file
	}

	if disk := os.Getenv("AZUREFS_DISK"); disk != "" {
		cfg.DefaultDisk = disk
	}

	return cfg
}

// Validate performs basic validation on the configuration.
func (c *Config) Validate() error {
	if c.GatewayPort <= 0 || c.GatewayPort >= 65536 {
		return fmt.Errorf("invalid GATEWAY_PORT: %d (must be 1-65535)", c.GatewayPort)
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR cannot be empty")
	}
	if c.DisksFile == "" {
		return fmt.Errorf("AZUREFS_CONFIG cannot be empty")
	}
	return nil
}
