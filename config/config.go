package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"pairamm/native/amm"
	"pairamm/storage"
)

// Config is the ammd node configuration.
type Config struct {
	DataDir        string       `toml:"DataDir"`
	StorageBackend string       `toml:"StorageBackend"`
	Environment    string       `toml:"Environment"`
	LogLevel       string       `toml:"LogLevel"`
	LogFile        string       `toml:"LogFile"`
	GatewayConfig  string       `toml:"GatewayConfig"`
	TickIntervalMs int64        `toml:"TickIntervalMs"`
	Pauses         Pauses       `toml:"Pauses"`
	Telemetry      Telemetry    `toml:"Telemetry"`
	Tokens         []Token      `toml:"Tokens"`
	Balances       []Balance    `toml:"Balances"`
	Pools          []amm.Config `toml:"Pools"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./amm-data"
	}
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	if c.StorageBackend == "" {
		c.StorageBackend = storage.BackendLevelDB
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	if c.TickIntervalMs <= 0 {
		c.TickIntervalMs = 1000
	}
	if c.Tokens == nil {
		c.Tokens = []Token{}
	}
	if c.Pools == nil {
		c.Pools = []amm.Config{}
	}
	for i := range c.Pools {
		c.Pools[i] = c.Pools[i].Normalise()
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:       "./amm-data",
		Environment:   "local",
		LogLevel:      "info",
		GatewayConfig: "",
	}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
