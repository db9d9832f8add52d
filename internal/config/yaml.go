// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"spectrum/internal/log"
)

var logger = log.For("Config")

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and sanitizes the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		logger.Debugf("Loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()
	cfg.Sanitize()
	return cfg, nil
}

// LoadEnvFile exports the variables in a dotenv file so ENV_* overrides can
// live next to the config. Variables already set in the environment win. A
// missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	logger.Debugf("Loaded environment from %s", path)
	return nil
}

// applyEnvOverrides reads the ENV_* variables. Values that do not parse are
// ignored with a warning.
func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.
	envBool("ENV_DEBUG", &cfg.Debug)
	envString("ENV_LOG_LEVEL", &cfg.LogLevel)
	envBool("ENV_TUI", &cfg.TUI)

	// ENV_AUDIO_{...}
	envInt("ENV_INPUT_DEVICE", &cfg.Audio.InputDevice)
	envFloat("ENV_SAMPLE_RATE", &cfg.Audio.SampleRate)
	envString("ENV_AUDIO_FILE", &cfg.Audio.File)

	// ENV_ANALYSIS_{...}
	envInt("ENV_WINDOW_SIZE", &cfg.Analysis.WindowSize)
	envString("ENV_TRANSFORM", &cfg.Analysis.Transform)
	envString("ENV_SCALE", &cfg.Analysis.Scale)
	envFloat("ENV_LOUDNESS_STRENGTH", &cfg.Analysis.LoudnessStrength)

	// ENV_{UDP,WS,REDIS}_{...}
	// These are specific to the transport layer.
	envDuration("ENV_PUBLISH_INTERVAL", &cfg.Transport.Interval)
	envBool("ENV_UDP_ENABLED", &cfg.Transport.UDPEnabled)
	envString("ENV_UDP_TARGET_ADDRESS", &cfg.Transport.UDPTargetAddress)
	envBool("ENV_WS_ENABLED", &cfg.Transport.WebSocketEnabled)
	envString("ENV_WS_ADDRESS", &cfg.Transport.WebSocketAddress)
	envBool("ENV_REDIS_ENABLED", &cfg.Transport.RedisEnabled)
	envString("ENV_REDIS_ADDRESS", &cfg.Transport.RedisAddress)
	envString("ENV_REDIS_CHANNEL", &cfg.Transport.RedisChannel)
}

func envString(name string, dst *string) {
	if val, ok := os.LookupEnv(name); ok {
		*dst = val
		logger.Debugf("Overriding from %s: %s", name, val)
	}
}

func envBool(name string, dst *bool) {
	if val, ok := os.LookupEnv(name); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			logger.Warnf("Ignoring %s=%q: %v", name, val, err)
			return
		}
		*dst = b
		logger.Debugf("Overriding from %s: %v", name, b)
	}
}

func envInt(name string, dst *int) {
	if val, ok := os.LookupEnv(name); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			logger.Warnf("Ignoring %s=%q: %v", name, val, err)
			return
		}
		*dst = n
		logger.Debugf("Overriding from %s: %d", name, n)
	}
}

func envFloat(name string, dst *float64) {
	if val, ok := os.LookupEnv(name); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			logger.Warnf("Ignoring %s=%q: %v", name, val, err)
			return
		}
		*dst = f
		logger.Debugf("Overriding from %s: %v", name, f)
	}
}

func envDuration(name string, dst *time.Duration) {
	if val, ok := os.LookupEnv(name); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			logger.Warnf("Ignoring %s=%q: %v", name, val, err)
			return
		}
		*dst = d
		logger.Debugf("Overriding from %s: %s", name, d)
	}
}
