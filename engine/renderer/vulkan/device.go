package vulkan

import (
	"sort"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/luminary/engine/core"
)

// VulkanDevice bundles the chosen physical device, the logical device
// created from it and one queue handle per role. Queue handles may alias
// when roles share a family.
type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	Assignment QueueFamilyAssignment

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	ComputeQueue  vk.Queue
	TransferQueue vk.Queue

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	SwapchainSupport *VulkanSwapchainSupportInfo

	supportsPortability bool
}

// QueueCreateInfos builds one create info per distinct family in the
// assignment, in ascending family order, each requesting a single queue
// at priority 1.0. Vulkan rejects duplicate family entries, so roles
// sharing a family must collapse to one request.
func QueueCreateInfos(assignment QueueFamilyAssignment) []vk.DeviceQueueCreateInfo {
	seen := map[uint32]bool{}
	indices := []uint32{}
	for _, index := range []uint32{
		assignment.GraphicsIndex,
		assignment.PresentIndex,
		assignment.ComputeIndex,
		assignment.TransferIndex,
	} {
		if !seen[index] {
			seen[index] = true
			indices = append(indices, index)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	return queueCreateInfos
}

// DeviceCreate creates the logical device from the selected physical
// device and retrieves the four role queues.
func DeviceCreate(context *VulkanContext, extensionNames []string) error {
	device := context.Device
	core.LogInfo("creating logical device")

	queueCreateInfos := QueueCreateInfos(device.Assignment)

	extensions := append([]string{}, extensionNames...)
	if device.supportsPortability {
		// MoltenVK requires the portability extension to be enabled
		// whenever the device advertises it.
		extensions = append(extensions, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}

	var logicalDevice vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice); res != vk.Success {
		return errors.Wrapf(core.ErrDeviceCreation, "vkCreateDevice failed with %s", VulkanResultString(res))
	}
	device.LogicalDevice = logicalDevice
	core.LogInfo("logical device created")

	vk.GetDeviceQueue(device.LogicalDevice, device.Assignment.GraphicsIndex, 0, &device.GraphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, device.Assignment.PresentIndex, 0, &device.PresentQueue)
	vk.GetDeviceQueue(device.LogicalDevice, device.Assignment.ComputeIndex, 0, &device.ComputeQueue)
	vk.GetDeviceQueue(device.LogicalDevice, device.Assignment.TransferIndex, 0, &device.TransferQueue)

	return nil
}

// DeviceDestroy tears the logical device down. Queue handles die with the
// device; physical device handles need no destruction.
func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}

	device.GraphicsQueue = nil
	device.PresentQueue = nil
	device.ComputeQueue = nil
	device.TransferQueue = nil

	if device.LogicalDevice != nil {
		core.LogInfo("destroying logical device")
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	device.PhysicalDevice = nil
	device.SwapchainSupport = nil
}

// DeviceQuerySwapchainSupport gathers surface capabilities, formats and
// present modes for a device/surface pair.
func DeviceQuerySwapchainSupport(device vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	support := &VulkanSwapchainSupportInfo{}

	var capabilities vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(device, surface, &capabilities); res != vk.Success {
		return nil, errors.Newf("surface capabilities query failed with %s", VulkanResultString(res))
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()
	support.Capabilities = capabilities

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, nil); res != vk.Success {
		return nil, errors.Newf("surface format query failed with %s", VulkanResultString(res))
	}
	if formatCount > 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, support.Formats); res != vk.Success {
			return nil, errors.Newf("surface format query failed with %s", VulkanResultString(res))
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &presentModeCount, nil); res != vk.Success {
		return nil, errors.Newf("present mode query failed with %s", VulkanResultString(res))
	}
	if presentModeCount > 0 {
		support.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &presentModeCount, support.PresentModes); res != vk.Success {
			return nil, errors.Newf("present mode query failed with %s", VulkanResultString(res))
		}
	}

	return support, nil
}
