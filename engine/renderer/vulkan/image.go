package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/luminary/engine/core"
)

// VulkanImage is a device-local image with its backing allocation and an
// optional view. Tag identifies the image in logs across recreations.
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView

	Width  uint32
	Height uint32
	Format vk.Format

	Tag string
}

// RenderTargetExtent rounds the surface size up to the next multiple so
// the offscreen target survives small window resizes without a rebuild.
// A multiple of zero or one disables the rounding.
func RenderTargetExtent(width, height, multiple uint32) (uint32, uint32) {
	if multiple <= 1 {
		return width, height
	}
	roundUp := func(v uint32) uint32 {
		if v == 0 {
			return multiple
		}
		return (v + multiple - 1) / multiple * multiple
	}
	return roundUp(width), roundUp(height)
}

// NeedsRenderTargetResize reports whether the target no longer matches
// the rounded surface extent.
func NeedsRenderTargetResize(targetWidth, targetHeight, surfaceWidth, surfaceHeight, multiple uint32) bool {
	wantWidth, wantHeight := RenderTargetExtent(surfaceWidth, surfaceHeight, multiple)
	return targetWidth != wantWidth || targetHeight != wantHeight
}

// ImageCreate builds a 2D device-local image, binds fresh memory to it
// and optionally attaches a color view. Partial construction unwinds on
// failure.
func ImageCreate(context *VulkanContext, width, height uint32, format vk.Format, usage vk.ImageUsageFlags, createView bool) (*VulkanImage, error) {
	device := context.Device
	unwind := NewDeleteQueue()

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var handle vk.Image
	if res := vk.CreateImage(device.LogicalDevice, &imageCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, errors.Newf("vkCreateImage failed with %s", VulkanResultString(res))
	}
	unwind.Push(func() { vk.DestroyImage(device.LogicalDevice, handle, context.Allocator) })

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device.LogicalDevice, handle, &requirements)
	requirements.Deref()

	memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryIndex < 0 {
		unwind.Flush()
		return nil, errors.New("no device-local memory type for image")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(device.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		unwind.Flush()
		return nil, errors.Newf("vkAllocateMemory failed with %s", VulkanResultString(res))
	}
	unwind.Push(func() { vk.FreeMemory(device.LogicalDevice, memory, context.Allocator) })

	if res := vk.BindImageMemory(device.LogicalDevice, handle, memory, 0); res != vk.Success {
		unwind.Flush()
		return nil, errors.Newf("vkBindImageMemory failed with %s", VulkanResultString(res))
	}

	image := &VulkanImage{
		Handle: handle,
		Memory: memory,
		Width:  width,
		Height: height,
		Format: format,
		Tag:    uuid.NewString(),
	}

	if createView {
		factory := deviceViewFactory{device: device.LogicalDevice, allocator: context.Allocator}
		view, err := factory.CreateView(handle, format)
		if err != nil {
			unwind.Flush()
			return nil, err
		}
		image.View = view
	}

	unwind.Discard()
	core.LogDebug("image %s created: %dx%d format %d", image.Tag, width, height, format)
	return image, nil
}

// Destroy releases the view, memory and image handle.
func (i *VulkanImage) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if i.View != vk.NullImageView {
		vk.DestroyImageView(device, i.View, context.Allocator)
		i.View = vk.NullImageView
	}
	if i.Handle != vk.NullImage {
		vk.DestroyImage(device, i.Handle, context.Allocator)
		i.Handle = vk.NullImage
	}
	if i.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, i.Memory, context.Allocator)
		i.Memory = vk.NullDeviceMemory
	}
}
