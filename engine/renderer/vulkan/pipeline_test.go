package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchGroupCount(t *testing.T) {
	tests := []struct {
		name      string
		extent    uint32
		localSize uint32
		want      uint32
	}{
		{"exact fit", 1024, 16, 64},
		{"rounds up", 1000, 16, 63},
		{"single partial group", 1, 16, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DispatchGroupCount(tt.extent, tt.localSize))
		})
	}
}

func TestScenePushConstantsSize(t *testing.T) {
	// The layout declares this size; the shader's std430 block is 96
	// bytes (mat4 + vec4 + float + padding).
	assert.Equal(t, uint32(96), ScenePushConstantsSize)
}
