package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate(), "default config must validate")
	assert.Equal(t, 3, c.Governor.MaxAttempts)
	assert.Equal(t, 1, c.Governor.SessionWidth)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing provider", func(c *Config) { c.Model.Provider = "" }, true},
		{"missing endpoint", func(c *Config) { c.Model.Endpoint = "" }, true},
		{"missing model name", func(c *Config) { c.Model.Name = "" }, true},
		{"temperature too high", func(c *Config) { c.Model.Temperature = 1.5 }, true},
		{"zero attempts", func(c *Config) { c.Governor.MaxAttempts = 0 }, true},
		{"bad mode", func(c *Config) { c.Review.Mode = "medium" }, true},
		{"short mode", func(c *Config) { c.Review.Mode = "short" }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConfig()
			tc.mutate(c)
			err := c.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tribunal.yaml")
	content := `
model:
  provider: gemini
  endpoint: https://generativelanguage.googleapis.com/v1beta
  name: gemini-2.0-flash
  temperature: 0.5
governor:
  max_attempts: 5
review:
  mode: short
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Model.Provider)
	assert.Equal(t, 5, c.Governor.MaxAttempts)
	// Unspecified fields keep defaults.
	assert.Equal(t, 1, c.Governor.SessionWidth)
	assert.Equal(t, ":8080", c.Server.Addr)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		Model:    ModelConfig{Name: "llama3.3:70b", Timeout: time.Minute},
		NATS:     NATSConfig{URL: "nats://localhost:4222"},
		Review:   ReviewConfig{HistoryN: 5},
		Governor: GovernorConfig{EmbeddingWidth: 4},
	})

	assert.Equal(t, "llama3.3:70b", base.Model.Name)
	assert.Equal(t, "openai", base.Model.Provider, "zero-value field should not clobber")
	assert.Equal(t, "nats://localhost:4222", base.NATS.URL)
	assert.Equal(t, 5, base.Review.HistoryN)
	assert.Equal(t, 4, base.Governor.EmbeddingWidth)

	t.Run("nil merge is a no-op", func(t *testing.T) {
		c := DefaultConfig()
		c.Merge(nil)
		assert.Equal(t, DefaultConfig().Model.Name, c.Model.Name)
	})
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
