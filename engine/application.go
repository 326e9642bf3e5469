package engine

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// ApplicationConfig is the user-facing configuration, loaded from a TOML
// file next to the binary. Every field has a usable default so a missing
// file just means "run with defaults".
type ApplicationConfig struct {
	Name      string `toml:"name"`
	StartPosX uint32 `toml:"start_pos_x"`
	StartPosY uint32 `toml:"start_pos_y"`
	// Window client size in pixels.
	StartWidth  uint32 `toml:"start_width"`
	StartHeight uint32 `toml:"start_height"`

	LogLevel string `toml:"log_level"`

	EnableValidation   bool   `toml:"enable_validation"`
	RequireDiscreteGPU bool   `toml:"require_discrete_gpu"`
	ShaderPath         string `toml:"shader_path"`
	// The offscreen render target is sized up to the next multiple of
	// this so it survives small resizes without a rebuild.
	RenderTargetMultiple uint32 `toml:"render_target_multiple"`
}

func DefaultApplicationConfig() ApplicationConfig {
	return ApplicationConfig{
		Name:                 "Luminary",
		StartPosX:            100,
		StartPosY:            100,
		StartWidth:           1280,
		StartHeight:          720,
		LogLevel:             "info",
		EnableValidation:     false,
		RequireDiscreteGPU:   false,
		ShaderPath:           "shaders/shader.comp.spv",
		RenderTargetMultiple: 256,
	}
}

// LoadApplicationConfig reads the config file at path, falling back to
// defaults when the file does not exist. Unset fields keep their default.
func LoadApplicationConfig(path string) (ApplicationConfig, error) {
	config := DefaultApplicationConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, errors.Wrapf(err, "reading config %s", path)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return config, errors.Wrapf(err, "parsing config %s", path)
	}
	return config, nil
}
