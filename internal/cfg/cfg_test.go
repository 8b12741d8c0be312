package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "READ_TIMEOUT", "WRITE_TIMEOUT",
		"MODELS_DIR", "MODEL_URLS", "FETCH_TIMEOUT", "DATA_PATH",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, s.Port)
	assert.Equal(t, "models", s.ModelsDir)
	assert.Equal(t, 10*time.Second, s.ReadTimeout)
	assert.Empty(t, s.ModelURLs)
	assert.Empty(t, s.DataPath)
	assert.Equal(t, 100.0, s.Fallback.LivingArea)
	assert.Equal(t, 0.4, s.Fallback.Confidence)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("MODELS_DIR", "/srv/models")
	t.Setenv("MODEL_URLS", "https://models.example.com/a.json,https://models.example.com/b.json")
	t.Setenv("DATA_PATH", "/var/lib/homeval")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, s.Port)
	assert.Equal(t, "/srv/models", s.ModelsDir)
	assert.Len(t, s.ModelURLs, 2)
	assert.Equal(t, "/var/lib/homeval", s.DataPath)
	assert.Equal(t, []string{"/srv/models", "https://models.example.com/a.json", "https://models.example.com/b.json"}, s.ModelSources())
}

func TestLoadFromYAML(t *testing.T) {
	clearEnv(t)

	config := `
server:
  port: 8443
  readTimeout: "5s"
  writeTimeout: "15s"
models:
  dir: "artifacts"
  urls:
    - "https://models.example.com/gbm.json"
  fetchTimeout: "30s"
system:
  dataPath: "data"
fallback:
  livingArea: 110
  confidence: 0.35
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o600))
	t.Setenv("CONFIG_FILE", path)

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8443, s.Port)
	assert.Equal(t, 5*time.Second, s.ReadTimeout)
	assert.Equal(t, 15*time.Second, s.WriteTimeout)
	assert.Equal(t, "artifacts", s.ModelsDir)
	assert.Equal(t, []string{"https://models.example.com/gbm.json"}, s.ModelURLs)
	assert.Equal(t, 30*time.Second, s.FetchTimeout)
	assert.Equal(t, "data", s.DataPath)

	// Overridden coefficients apply, the rest keep the shipped calibration.
	assert.Equal(t, 110.0, s.Fallback.LivingArea)
	assert.Equal(t, 0.35, s.Fallback.Confidence)
	assert.Equal(t, 5000.0, s.Fallback.Quality)
	assert.Equal(t, 10000.0, s.Fallback.TierBase)
}

func TestLoadYAMLEnvWins(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8443\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7000")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7000, s.Port)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"PORT": "99999"}},
		{"bad url scheme", map[string]string{"MODEL_URLS": "ftp://models.example.com/a.json"}},
		{"fetch timeout too small", map[string]string{"FETCH_TIMEOUT": "1ms"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	_, err := Load()
	assert.Error(t, err)
}
