package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type ConfigParam struct {
	ServerPort string `toml:"server_port"`
	HandleCORS bool   `toml:"handle_cors"`

	// StoreBackend selects the catalog store: "pebble" or "memory".
	StoreBackend string `toml:"store_backend"`
	StorePath    string `toml:"store_path"`

	// NotifyBufferSize is the per-subscriber delta queue depth before a
	// slow subscriber is cut off for resync.
	NotifyBufferSize int `toml:"notify_buffer_size"`
}

var cfg *ConfigParam

func Config() *ConfigParam {
	return cfg
}

func LoadConfig(filename string) error {
	if filename == "" {
		cfg = defaultConfig()
		return nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	cp := defaultConfig()
	if _, err := toml.Decode(string(content), cp); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}
	cfg = cp
	return nil
}

func defaultConfig() *ConfigParam {
	return &ConfigParam{
		ServerPort:       "8830",
		HandleCORS:       true,
		StoreBackend:     "memory",
		StorePath:        "metasrv-catalog",
		NotifyBufferSize: 128,
	}
}

func init() {
	err := LoadConfig("")
	if err != nil {
		panic(err)
	}
}
