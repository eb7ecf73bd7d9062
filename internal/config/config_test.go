package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultLineAPIBase, cfg.Line.APIBase)
	assert.Equal(t, DefaultContentAPIBase, cfg.Line.ContentAPIBase)
	assert.Equal(t, DefaultBranch, cfg.GitHub.Branch)
	assert.Equal(t, DefaultUploadDir, cfg.GitHub.UploadDir)
	assert.Equal(t, int64(DefaultMaxImageBytes), cfg.Image.MaxBytes)
	assert.Equal(t, DefaultQuality, cfg.Image.Quality)
	assert.Equal(t, DefaultQueueBuffer, cfg.Queue.Buffer)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
addr = ":9090"

[line]
channel_secret = "cs"
access_token = "at"

[github]
token = "gt"
owner = "someone"
repo = "uploads"

[image]
max_width = 800
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "cs", cfg.Line.ChannelSecret)
	assert.Equal(t, "at", cfg.Line.AccessToken)
	assert.Equal(t, "someone", cfg.GitHub.Owner)
	assert.Equal(t, 800, cfg.Image.MaxWidth)
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultBranch, cfg.GitHub.Branch)
	assert.Equal(t, DefaultMaxHeight, cfg.Image.MaxHeight)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LINE_CHANNEL_SECRET", "env-secret")
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "env-token")
	t.Setenv("GITHUB_TOKEN", "env-gh")
	t.Setenv("GITHUB_BRANCH", "release")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Line.ChannelSecret)
	assert.Equal(t, "env-token", cfg.Line.AccessToken)
	assert.Equal(t, "env-gh", cfg.GitHub.Token)
	assert.Equal(t, "release", cfg.GitHub.Branch)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	// Missing credentials fail validation.
	require.Error(t, cfg.Validate())

	cfg.Line.AccessToken = "at"
	cfg.GitHub.Token = "gt"
	cfg.GitHub.Owner = "someone"
	cfg.GitHub.Repo = "uploads"
	require.NoError(t, cfg.Validate())

	// The channel secret stays optional.
	cfg.Line.ChannelSecret = ""
	assert.NoError(t, cfg.Validate())

	cfg.Image.Quality = 150
	assert.Error(t, cfg.Validate())
}
