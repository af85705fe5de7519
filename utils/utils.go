package utils

import (
	"math"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Address            string `toml:"address"`
	TickRate           int    `toml:"tick_rate"`
	HandshakeTimeoutMs int    `toml:"handshake_timeout_ms"`
	TestEntities       int    `toml:"test_entities"`
}

func (c ServerConfig) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutMs) * time.Millisecond
}

type ClientConfig struct {
	URL string `toml:"url"`
}

type Config struct {
	Server ServerConfig
	Client ClientConfig
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:            ":12345",
			TickRate:           20,
			HandshakeTimeoutMs: 10000,
			TestEntities:       1,
		},
		Client: ClientConfig{
			URL: "ws://localhost:12345",
		},
	}
}

// ReadTOML loads config from fileName, filling unset fields with defaults.
func ReadTOML(fileName string) (*Config, error) {
	file, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(file, config); err != nil {
		return nil, err
	}
	return config, nil
}

func AlmostEqual(a, b, threshold float64) bool {
	return math.Abs(a-b) <= threshold
}
