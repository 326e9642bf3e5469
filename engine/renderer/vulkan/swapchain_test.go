package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/luminary/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferredSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, preferred, PreferredSurfaceFormat([]vk.SurfaceFormat{other, preferred}))
	// Fallback is whatever the surface lists first.
	assert.Equal(t, other, PreferredSurfaceFormat([]vk.SurfaceFormat{other}))
}

func TestPreferredPresentMode(t *testing.T) {
	withMailbox := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}
	assert.Equal(t, vk.PresentModeMailbox, PreferredPresentMode(withMailbox))

	withoutMailbox := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifoRelaxed}
	assert.Equal(t, vk.PresentModeFifo, PreferredPresentMode(withoutMailbox))
}

func TestClampExtent(t *testing.T) {
	min := vk.Extent2D{Width: 200, Height: 100}
	max := vk.Extent2D{Width: 2000, Height: 1000}

	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, ClampExtent(800, 600, min, max))
	assert.Equal(t, vk.Extent2D{Width: 200, Height: 100}, ClampExtent(10, 10, min, max))
	assert.Equal(t, vk.Extent2D{Width: 2000, Height: 1000}, ClampExtent(4000, 3000, min, max))
}

func TestSwapImageCount(t *testing.T) {
	tests := []struct {
		name     string
		min, max uint32
		want     uint32
	}{
		{"min plus one", 2, 8, 3},
		{"clamped by max", 3, 3, 3},
		{"unbounded max", 2, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capabilities := vk.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
			assert.Equal(t, tt.want, SwapImageCount(capabilities))
		})
	}
}

func TestSharingIndices(t *testing.T) {
	mode, indices := SharingIndices(0, 0)
	assert.Equal(t, vk.SharingModeExclusive, mode)
	assert.Empty(t, indices)

	mode, indices = SharingIndices(0, 2)
	assert.Equal(t, vk.SharingModeConcurrent, mode)
	assert.Equal(t, []uint32{0, 2}, indices)
}

// fakeViewFactory fails after a set number of creations and records
// destroys so unwinding is observable.
type fakeViewFactory struct {
	failAfter int
	created   int
	destroyed []vk.ImageView
}

func (f *fakeViewFactory) CreateView(image vk.Image, format vk.Format) (vk.ImageView, error) {
	if f.created >= f.failAfter {
		return vk.NullImageView, assert.AnError
	}
	f.created++
	return vk.NullImageView, nil
}

func (f *fakeViewFactory) DestroyView(view vk.ImageView) {
	f.destroyed = append(f.destroyed, view)
}

func TestCreateImageViewsUnwindsOnFailure(t *testing.T) {
	factory := &fakeViewFactory{failAfter: 2}
	images := make([]vk.Image, 5)

	views, err := createImageViews(factory, images, vk.FormatB8g8r8a8Unorm)
	require.Error(t, err)
	assert.Nil(t, views)
	assert.Equal(t, 2, factory.created)
	assert.Len(t, factory.destroyed, 2)
}

func TestCreateImageViewsAllSucceed(t *testing.T) {
	factory := &fakeViewFactory{failAfter: 3}
	images := make([]vk.Image, 3)

	views, err := createImageViews(factory, images, vk.FormatB8g8r8a8Unorm)
	require.NoError(t, err)
	assert.Len(t, views, 3)
	assert.Empty(t, factory.destroyed)
}

func TestClassifyAcquire(t *testing.T) {
	tests := []struct {
		name       string
		result     vk.Result
		wantErr    error
		suboptimal bool
	}{
		{"success", vk.Success, nil, false},
		{"suboptimal", vk.Suboptimal, nil, true},
		{"timeout", vk.Timeout, core.ErrSwapchainTimeout, false},
		{"not ready", vk.NotReady, core.ErrSwapchainNotReady, false},
		{"out of date", vk.ErrorOutOfDate, core.ErrSwapchainOutOfDate, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suboptimal, err := classifyAcquire(tt.result)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.suboptimal, suboptimal)
		})
	}
}

func TestValidImageIndex(t *testing.T) {
	assert.NoError(t, validImageIndex(0, 3))
	assert.NoError(t, validImageIndex(2, 3))
	assert.Error(t, validImageIndex(3, 3))
}

func TestClassifyAcquireUnknownError(t *testing.T) {
	_, err := classifyAcquire(vk.ErrorDeviceLost)
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrSwapchainOutOfDate)
}
