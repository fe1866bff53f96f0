// Package config holds dexscope settings. Values come from defaults, an
// optional JSON file, DEXSCOPE_* environment variables and finally command
// line flags, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
)

// DefaultMaxInputSize caps a single container at 256 MiB.
const DefaultMaxInputSize = 256 << 20

// Config represents configuration for the dexscope tool
type Config struct {
	Debug        bool   `json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	Workers      int    `json:"workers" jsonschema:"title=Workers,description=Containers decoded in parallel (0 uses GOMAXPROCS),minimum=0"`
	OutputDir    string `json:"outputDir" jsonschema:"title=Output Directory,description=Root directory for dumped JSON tables"`
	Recursive    bool   `json:"recursive" jsonschema:"title=Recursive,description=Descend into nested subdirectories at any depth when collecting inputs"`
	MaxInputSize int64  `json:"maxInputSize" jsonschema:"title=Max Input Size,description=Largest container in bytes that will be decoded,minimum=0"`
	LogToFile    bool   `json:"logToFile" jsonschema:"title=Log To File,description=Write progress logs to a timestamped file instead of stderr"`
}

func Default() Config {
	return Config{
		Workers:      runtime.GOMAXPROCS(0),
		OutputDir:    "outputs",
		MaxInputSize: DefaultMaxInputSize,
	}
}

// Load returns the defaults overlaid with the JSON file at path and the
// environment. A missing file is not an error; an empty path skips it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("DEXSCOPE_DEBUG"); ok {
		c.Debug = v == "1" || v == "true"
	}
	if v, ok := lookup("DEXSCOPE_OUTPUT_DIR"); ok && v != "" {
		c.OutputDir = v
	}
	if v, ok := lookup("DEXSCOPE_LOG_TO_FILE"); ok {
		c.LogToFile = v == "1"
	}
	if v, ok := lookup("DEXSCOPE_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEXSCOPE_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v, ok := lookup("DEXSCOPE_MAX_INPUT_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("DEXSCOPE_MAX_INPUT_SIZE: %w", err)
		}
		c.MaxInputSize = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.MaxInputSize < 0 {
		return fmt.Errorf("maxInputSize must not be negative, got %d", c.MaxInputSize)
	}
	return nil
}
