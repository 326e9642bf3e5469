package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadApplicationConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultApplicationConfig(), config)
}

func TestLoadApplicationConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luminary.toml")
	content := []byte("name = \"Test\"\nstart_width = 640\nlog_level = \"debug\"\nenable_validation = true\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	config, err := LoadApplicationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Test", config.Name)
	assert.Equal(t, uint32(640), config.StartWidth)
	assert.Equal(t, "debug", config.LogLevel)
	assert.True(t, config.EnableValidation)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, uint32(720), config.StartHeight)
	assert.Equal(t, uint32(256), config.RenderTargetMultiple)
}

func TestLoadApplicationConfigRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = \n"), 0o644))

	_, err := LoadApplicationConfig(path)
	assert.Error(t, err)
}
