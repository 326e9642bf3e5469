package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTargetExtent(t *testing.T) {
	tests := []struct {
		name                  string
		width, height         uint32
		multiple              uint32
		wantWidth, wantHeight uint32
	}{
		{"rounds up", 1280, 720, 256, 1280, 768},
		{"exact multiples untouched", 1024, 512, 256, 1024, 512},
		{"zero becomes one multiple", 0, 0, 256, 256, 256},
		{"multiple of one is identity", 1281, 721, 1, 1281, 721},
		{"multiple of zero is identity", 1281, 721, 0, 1281, 721},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			width, height := RenderTargetExtent(tt.width, tt.height, tt.multiple)
			assert.Equal(t, tt.wantWidth, width)
			assert.Equal(t, tt.wantHeight, height)
		})
	}
}

func TestNeedsRenderTargetResize(t *testing.T) {
	// Growing within the same rounded block keeps the target.
	assert.False(t, NeedsRenderTargetResize(1280, 768, 1260, 710, 256))
	// Crossing a block boundary forces a rebuild.
	assert.True(t, NeedsRenderTargetResize(1280, 768, 1300, 710, 256))
	// Shrinking below the current block forces a rebuild too.
	assert.True(t, NeedsRenderTargetResize(1280, 768, 1000, 710, 256))
}
