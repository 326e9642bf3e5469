package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/luminary/engine/core"
)

// VulkanContext is the shared state handle threaded through every backend
// component. Ownership is a strict chain: the instance owns the surface
// and device, the device owns queues, swapchain, frames and images; later
// stages only borrow earlier ones. Destruction runs in reverse creation
// order, driven by the renderer.
type VulkanContext struct {
	// The framebuffer's current dimensions.
	FramebufferWidth  uint32
	FramebufferHeight uint32
	// Incremented on every resize event; compared against the generation
	// at last swapchain creation to detect a pending recreation.
	FramebufferSizeGeneration     uint64
	FramebufferSizeLastGeneration uint64

	Instance vk.Instance
	// Host allocation callbacks handed to every create/destroy call.
	// Scoped to the context lifetime; nil selects the driver default.
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain *VulkanSwapchain
}

// FindMemoryIndex returns the index of a memory type matching the filter
// and holding all the requested property flags, or -1.
func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("unable to find suitable memory type")
	return -1
}
