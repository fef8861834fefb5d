package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	UploadDir string `json:"upload_dir" yaml:"upload_dir" toml:"upload_dir"`
	WorkerBin string `json:"worker_bin" yaml:"worker_bin" toml:"worker_bin"`

	// Job orchestration.
	MaxJobs        int `json:"max_jobs" yaml:"max_jobs" toml:"max_jobs"`
	CancelGraceSec int `json:"cancel_grace_sec" yaml:"cancel_grace_sec" toml:"cancel_grace_sec"`

	// External inference engine (spawn mode).
	EngineBin             string   `json:"engine_bin" yaml:"engine_bin" toml:"engine_bin"`
	EngineArgs            []string `json:"engine_args" yaml:"engine_args" toml:"engine_args"`
	EngineHost            string   `json:"engine_host" yaml:"engine_host" toml:"engine_host"`
	EnginePort            int      `json:"engine_port" yaml:"engine_port" toml:"engine_port"`
	EngineStartTimeoutSec int      `json:"engine_start_timeout_sec" yaml:"engine_start_timeout_sec" toml:"engine_start_timeout_sec"`
	EngineStopGraceSec    int      `json:"engine_stop_grace_sec" yaml:"engine_stop_grace_sec" toml:"engine_stop_grace_sec"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
