// Package cfg loads service configuration from a YAML file with environment
// overrides, or from the environment alone when no file is given.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"homeval/internal/model"
)

type Settings struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	ModelsDir    string
	ModelURLs    []string
	FetchTimeout time.Duration

	DataPath string // prediction journal location, empty disables journaling

	Fallback model.FallbackCoefficients
}

type ConfigFile struct {
	Server struct {
		Port         int    `yaml:"port"`
		ReadTimeout  string `yaml:"readTimeout"`
		WriteTimeout string `yaml:"writeTimeout"`
	} `yaml:"server"`

	Models struct {
		Dir          string   `yaml:"dir"`
		URLs         []string `yaml:"urls"`
		FetchTimeout string   `yaml:"fetchTimeout"`
	} `yaml:"models"`

	System struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"system"`

	Fallback model.FallbackCoefficients `yaml:"fallback"`
}

func Load() (Settings, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	readTimeout, err := time.ParseDuration(config.Server.ReadTimeout)
	if err != nil {
		readTimeout = 10 * time.Second
	}
	writeTimeout, err := time.ParseDuration(config.Server.WriteTimeout)
	if err != nil {
		writeTimeout = 10 * time.Second
	}
	fetchTimeout, err := time.ParseDuration(config.Models.FetchTimeout)
	if err != nil {
		fetchTimeout = 10 * time.Second
	}

	settings := Settings{
		Port:         getIntFromEnvOrConfig("PORT", config.Server.Port),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		ModelsDir:    getEnvOrDefault("MODELS_DIR", config.Models.Dir),
		ModelURLs:    getURLsFromEnvOrConfig(config.Models.URLs),
		FetchTimeout: fetchTimeout,
		DataPath:     getEnvOrDefault("DATA_PATH", config.System.DataPath),
		Fallback:     mergeFallback(config.Fallback),
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:         getIntOrDefault("PORT", 8000),
		ReadTimeout:  getDurationOrDefault("READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDurationOrDefault("WRITE_TIMEOUT", 10*time.Second),
		ModelsDir:    getEnvOrDefault("MODELS_DIR", "models"),
		ModelURLs:    splitOrDefault(os.Getenv("MODEL_URLS"), nil),
		FetchTimeout: getDurationOrDefault("FETCH_TIMEOUT", 10*time.Second),
		DataPath:     os.Getenv("DATA_PATH"), // optional
		Fallback:     model.DefaultFallbackCoefficients(),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// ModelSources returns the artifact sources in load order: the local
// directory first, then remote URLs.
func (s *Settings) ModelSources() []string {
	var sources []string
	if s.ModelsDir != "" {
		sources = append(sources, s.ModelsDir)
	}
	return append(sources, s.ModelURLs...)
}

// mergeFallback fills unset fallback coefficients with the shipped
// calibration, so a config file may override only some of them.
func mergeFallback(c model.FallbackCoefficients) model.FallbackCoefficients {
	def := model.DefaultFallbackCoefficients()
	if c.LivingArea == 0 {
		c.LivingArea = def.LivingArea
	}
	if c.Quality == 0 {
		c.Quality = def.Quality
	}
	if c.YearBuilt == 0 {
		c.YearBuilt = def.YearBuilt
	}
	if c.TierBase == 0 {
		c.TierBase = def.TierBase
	}
	if c.Confidence == 0 {
		c.Confidence = def.Confidence
	}
	if c.MinPrice == 0 {
		c.MinPrice = def.MinPrice
	}
	return c
}

func applyDefaults(s *Settings) {
	if s.Port == 0 {
		s.Port = 8000
	}
	if s.ModelsDir == "" {
		s.ModelsDir = "models"
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	return strings.Split(v, ",")
}

func getURLsFromEnvOrConfig(configURLs []string) []string {
	if env := os.Getenv("MODEL_URLS"); env != "" {
		return strings.Split(env, ",")
	}
	return configURLs
}

// validateSettings rejects configurations the service cannot run with.
func validateSettings(s *Settings) error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.ReadTimeout < time.Second || s.ReadTimeout > time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 1m, got %v", s.ReadTimeout)
	}
	if s.WriteTimeout < time.Second || s.WriteTimeout > time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 1m, got %v", s.WriteTimeout)
	}
	if s.FetchTimeout < time.Second || s.FetchTimeout > 5*time.Minute {
		return fmt.Errorf("fetch timeout must be between 1s and 5m, got %v", s.FetchTimeout)
	}
	for _, u := range s.ModelURLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("model URL %q must be http or https", u)
		}
	}

	f := s.Fallback
	if f.LivingArea <= 0 || f.Quality <= 0 || f.YearBuilt <= 0 || f.TierBase <= 0 {
		return fmt.Errorf("fallback coefficients must be positive, got %+v", f)
	}
	if f.Confidence <= 0 || f.Confidence >= 1 {
		return fmt.Errorf("fallback confidence must be in (0, 1), got %f", f.Confidence)
	}
	if f.MinPrice < 0 {
		return fmt.Errorf("fallback minimum price must be non-negative, got %f", f.MinPrice)
	}
	return nil
}
