package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/luminary/engine/core"
)

// How long an acquire may block before the frame is abandoned.
const swapchainAcquireTimeoutNs = uint64(1_000_000_000)

// VulkanSwapchainSupportInfo caches the surface queries a swapchain is
// negotiated from. Re-queried on every recreation since capabilities
// change with window size.
type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// VulkanSwapchain owns the presentation images and one view per image.
// Image handles belong to the swapchain and must not be destroyed; views
// are ours and die before the swapchain handle does.
type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
	PresentMode vk.PresentMode

	Images []vk.Image
	Views  []vk.ImageView

	// Set when present or acquire reports a suboptimal match; the frame
	// loop recreates the swapchain at the top of the next frame.
	Suboptimal bool
}

// PreferredSurfaceFormat picks 8-bit BGRA unorm with an sRGB colorspace
// when the surface offers it, otherwise whatever the surface lists first.
func PreferredSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// PreferredPresentMode picks mailbox when available, else FIFO, which the
// standard guarantees.
func PreferredPresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ClampExtent bounds the requested framebuffer size to what the surface
// allows.
func ClampExtent(width, height uint32, min, max vk.Extent2D) vk.Extent2D {
	return vk.Extent2D{
		Width:  MathClamp(width, min.Width, max.Width),
		Height: MathClamp(height, min.Height, max.Height),
	}
}

// SwapImageCount asks for one image beyond the minimum so acquisition
// rarely blocks on the presentation engine, bounded by the maximum when
// the surface has one (zero means unbounded).
func SwapImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

// SharingIndices decides image sharing between the graphics and present
// queues: exclusive when one family serves both, concurrent across the
// two families otherwise.
func SharingIndices(graphicsIndex, presentIndex uint32) (vk.SharingMode, []uint32) {
	if graphicsIndex == presentIndex {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, []uint32{graphicsIndex, presentIndex}
}

// viewFactory abstracts image view creation so partial-failure unwinding
// is testable without a device.
type viewFactory interface {
	CreateView(image vk.Image, format vk.Format) (vk.ImageView, error)
	DestroyView(view vk.ImageView)
}

type deviceViewFactory struct {
	device    vk.Device
	allocator *vk.AllocationCallbacks
}

func (f deviceViewFactory) CreateView(image vk.Image, format vk.Format) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(f.device, &viewCreateInfo, f.allocator, &view); res != vk.Success {
		return vk.NullImageView, errors.Newf("vkCreateImageView failed with %s", VulkanResultString(res))
	}
	return view, nil
}

func (f deviceViewFactory) DestroyView(view vk.ImageView) {
	vk.DestroyImageView(f.device, view, f.allocator)
}

// createImageViews makes one 2D color view per image. On failure, views
// already created are destroyed before the error returns.
func createImageViews(factory viewFactory, images []vk.Image, format vk.Format) ([]vk.ImageView, error) {
	unwind := NewDeleteQueue()
	views := make([]vk.ImageView, 0, len(images))
	for i, image := range images {
		view, err := factory.CreateView(image, format)
		if err != nil {
			unwind.Flush()
			return nil, errors.Wrapf(err, "view %d of %d", i, len(images))
		}
		views = append(views, view)
		unwind.Push(func() { factory.DestroyView(view) })
	}
	unwind.Discard()
	return views, nil
}

// SwapchainCreate negotiates and creates a swapchain for the current
// framebuffer size. A previous swapchain may be passed as old so the
// driver can reuse its resources during recreation.
func SwapchainCreate(context *VulkanContext, width, height uint32, old vk.Swapchain) (*VulkanSwapchain, error) {
	device := context.Device

	support, err := DeviceQuerySwapchainSupport(device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, err
	}
	device.SwapchainSupport = support

	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return nil, errors.New("surface no longer reports formats or present modes")
	}

	swapchain := &VulkanSwapchain{
		ImageFormat: PreferredSurfaceFormat(support.Formats),
		PresentMode: PreferredPresentMode(support.PresentModes),
	}
	swapchain.Extent = ClampExtent(width, height,
		support.Capabilities.MinImageExtent, support.Capabilities.MaxImageExtent)

	imageCount := SwapImageCount(support.Capabilities)
	sharingMode, familyIndices := SharingIndices(device.Assignment.GraphicsIndex, device.Assignment.PresentIndex)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		// The compute output lands here through a blit, so the images
		// are transfer destinations as well as color attachments.
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode:      sharingMode,
		QueueFamilyIndexCount: uint32(len(familyIndices)),
		PQueueFamilyIndices:   familyIndices,
		PreTransform:          support.Capabilities.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           swapchain.PresentMode,
		Clipped:               vk.True,
		OldSwapchain:          old,
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, errors.Newf("vkCreateSwapchainKHR failed with %s", VulkanResultString(res))
	}
	swapchain.Handle = handle

	var swapImageCount uint32
	if res := vk.GetSwapchainImages(device.LogicalDevice, handle, &swapImageCount, nil); res != vk.Success {
		swapchain.Destroy(context)
		return nil, errors.Newf("swapchain image query failed with %s", VulkanResultString(res))
	}
	swapchain.Images = make([]vk.Image, swapImageCount)
	if res := vk.GetSwapchainImages(device.LogicalDevice, handle, &swapImageCount, swapchain.Images); res != vk.Success {
		swapchain.Destroy(context)
		return nil, errors.Newf("swapchain image query failed with %s", VulkanResultString(res))
	}

	factory := deviceViewFactory{device: device.LogicalDevice, allocator: context.Allocator}
	swapchain.Views, err = createImageViews(factory, swapchain.Images, swapchain.ImageFormat.Format)
	if err != nil {
		swapchain.Destroy(context)
		return nil, err
	}

	core.LogInfo("swapchain created: %d images, %dx%d, present mode %d",
		len(swapchain.Images), swapchain.Extent.Width, swapchain.Extent.Height, swapchain.PresentMode)
	return swapchain, nil
}

// Recreate builds a replacement swapchain for the new framebuffer size
// and destroys the old one. The caller must have idled the device first.
func (s *VulkanSwapchain) Recreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	replacement, err := SwapchainCreate(context, width, height, s.Handle)
	if err != nil {
		return nil, err
	}
	s.Destroy(context)
	return replacement, nil
}

// classifyAcquire maps an acquire result onto the scheduler's error
// taxonomy. suboptimal means the image is usable but the swapchain
// should be replaced soon.
func classifyAcquire(result vk.Result) (suboptimal bool, err error) {
	switch result {
	case vk.Success:
		return false, nil
	case vk.Suboptimal:
		return true, nil
	case vk.Timeout:
		return false, core.ErrSwapchainTimeout
	case vk.NotReady:
		return false, core.ErrSwapchainNotReady
	case vk.ErrorOutOfDate:
		return false, core.ErrSwapchainOutOfDate
	default:
		return false, errors.Newf("vkAcquireNextImageKHR failed with %s", VulkanResultString(result))
	}
}

// validImageIndex guards against drivers handing back an index outside
// the image array.
func validImageIndex(index uint32, imageCount int) error {
	if int(index) >= imageCount {
		return errors.Newf("acquired image index %d beyond image count %d", index, imageCount)
	}
	return nil
}

// AcquireNextImageIndex blocks until the presentation engine hands out an
// image, signalling the given semaphore when the image is actually ready
// for writes. On ErrSwapchainOutOfDate the caller recreates and retries.
func (s *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, imageAvailable vk.Semaphore) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, s.Handle,
		swapchainAcquireTimeoutNs, imageAvailable, vk.NullFence, &imageIndex)

	suboptimal, err := classifyAcquire(result)
	if err != nil {
		return 0, err
	}
	if suboptimal {
		s.Suboptimal = true
	}
	if err := validImageIndex(imageIndex, len(s.Images)); err != nil {
		return 0, err
	}
	return imageIndex, nil
}

// Present queues the image for display once renderComplete signals.
func (s *VulkanSwapchain) Present(context *VulkanContext, renderComplete vk.Semaphore, imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	switch result := vk.QueuePresent(context.Device.PresentQueue, &presentInfo); result {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		s.Suboptimal = true
		return nil
	case vk.ErrorOutOfDate:
		return core.ErrSwapchainOutOfDate
	default:
		return errors.Newf("vkQueuePresentKHR failed with %s", VulkanResultString(result))
	}
}

// Destroy releases the views and the swapchain handle. Swapchain images
// are owned by the driver and left alone.
func (s *VulkanSwapchain) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	for _, view := range s.Views {
		vk.DestroyImageView(device, view, context.Allocator)
	}
	s.Views = nil
	s.Images = nil
	if s.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device, s.Handle, context.Allocator)
		s.Handle = vk.NullSwapchain
	}
}
