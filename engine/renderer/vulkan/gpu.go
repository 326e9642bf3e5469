package vulkan

import (
	"math/bits"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/luminary/engine/core"
)

// VulkanPhysicalDeviceRequirements narrows the device search. All four
// queue roles, the listed extensions and a usable surface are always
// required; DiscreteGPU additionally rejects anything that is not a
// discrete card.
type VulkanPhysicalDeviceRequirements struct {
	DeviceExtensionNames []string
	DiscreteGPU          bool
}

// QueueFamilyCaps is the capability summary of one queue family, reduced
// to what selection cares about.
type QueueFamilyCaps struct {
	Flags      vk.QueueFlags
	CanPresent bool
}

// QueueFamilyAssignment maps each queue role to a family index. Roles may
// share a family; on single-family hardware all four collapse to index 0.
type QueueFamilyAssignment struct {
	GraphicsIndex uint32
	PresentIndex  uint32
	ComputeIndex  uint32
	TransferIndex uint32
}

// familyGenerality counts how many of the graphics, compute, transfer and
// present capabilities a family exposes. Lower is more specialized.
func familyGenerality(caps QueueFamilyCaps) int {
	mask := uint32(caps.Flags) & uint32(vk.QueueGraphicsBit|vk.QueueComputeBit|vk.QueueTransferBit)
	generality := bits.OnesCount32(mask)
	if caps.CanPresent {
		generality++
	}
	return generality
}

// findQueueFamily picks the most specialized family providing the required
// capability, steering dedicated transfer/compute queues toward their
// dedicated hardware. Ties resolve to the last family at the minimum
// generality.
func findQueueFamily(families []QueueFamilyCaps, required vk.QueueFlagBits, wantPresent bool) (uint32, bool) {
	var best uint32
	bestGenerality := -1
	for i, caps := range families {
		if wantPresent {
			if !caps.CanPresent {
				continue
			}
		} else if uint32(caps.Flags)&uint32(required) == 0 {
			continue
		}
		if g := familyGenerality(caps); bestGenerality == -1 || g <= bestGenerality {
			best = uint32(i)
			bestGenerality = g
		}
	}
	return best, bestGenerality != -1
}

// AssignQueueFamilies resolves the four queue roles against the family
// table. Fails when any role has no supporting family.
func AssignQueueFamilies(families []QueueFamilyCaps) (QueueFamilyAssignment, bool) {
	var assignment QueueFamilyAssignment
	var ok bool
	if assignment.GraphicsIndex, ok = findQueueFamily(families, vk.QueueGraphicsBit, false); !ok {
		return assignment, false
	}
	if assignment.ComputeIndex, ok = findQueueFamily(families, vk.QueueComputeBit, false); !ok {
		return assignment, false
	}
	if assignment.TransferIndex, ok = findQueueFamily(families, vk.QueueTransferBit, false); !ok {
		return assignment, false
	}
	if assignment.PresentIndex, ok = findQueueFamily(families, 0, true); !ok {
		return assignment, false
	}
	return assignment, true
}

// DeviceTypeScore ranks hardware classes for selection. Discrete cards
// beat virtual GPUs, which beat integrated ones; software rasterizers
// rank above unrecognized types only.
func DeviceTypeScore(deviceType vk.PhysicalDeviceType) int {
	switch deviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 5
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 4
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 3
	case vk.PhysicalDeviceTypeCpu:
		return 2
	case vk.PhysicalDeviceTypeOther:
		return 1
	default:
		return 0
	}
}

// deviceProfile is the selection-relevant summary of one physical device,
// gathered up front so the decision itself is a pure function.
type deviceProfile struct {
	DeviceType       vk.PhysicalDeviceType
	HasExtensions    bool
	FormatCount      int
	PresentModeCount int
	Families         []QueueFamilyCaps
}

// evaluateProfile applies the mandatory rejection checks and, when they
// all pass, returns the queue assignment and the device score.
func evaluateProfile(profile deviceProfile, requireDiscrete bool) (QueueFamilyAssignment, int, bool) {
	var assignment QueueFamilyAssignment
	if requireDiscrete && profile.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		return assignment, 0, false
	}
	if !profile.HasExtensions {
		return assignment, 0, false
	}
	if profile.FormatCount == 0 || profile.PresentModeCount == 0 {
		return assignment, 0, false
	}
	assignment, ok := AssignQueueFamilies(profile.Families)
	if !ok {
		return assignment, 0, false
	}
	return assignment, DeviceTypeScore(profile.DeviceType), true
}

// pickDevice returns the index of the highest-scoring acceptable profile.
// Equal scores keep the earlier device, matching enumeration order.
func pickDevice(profiles []deviceProfile, requireDiscrete bool) (int, QueueFamilyAssignment, error) {
	bestIndex := -1
	bestScore := 0
	var bestAssignment QueueFamilyAssignment
	for i, profile := range profiles {
		assignment, score, ok := evaluateProfile(profile, requireDiscrete)
		if !ok {
			continue
		}
		if bestIndex == -1 || score > bestScore {
			bestIndex = i
			bestScore = score
			bestAssignment = assignment
		}
	}
	if bestIndex == -1 {
		return -1, bestAssignment, core.ErrNoSuitableDevice
	}
	return bestIndex, bestAssignment, nil
}

// SelectPhysicalDevice enumerates the physical devices, rejects anything
// missing a required capability and keeps the best-scoring survivor on
// the context's device.
func SelectPhysicalDevice(context *VulkanContext, requirements *VulkanPhysicalDeviceRequirements) error {
	var deviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &deviceCount, nil); res != vk.Success {
		return errors.Wrapf(core.ErrNoSuitableDevice, "physical device enumeration failed with %s", VulkanResultString(res))
	}
	if deviceCount == 0 {
		return errors.Wrap(core.ErrNoSuitableDevice, "no devices with Vulkan support found")
	}

	physicalDevices := make([]vk.PhysicalDevice, deviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &deviceCount, physicalDevices); res != vk.Success {
		return errors.Wrapf(core.ErrNoSuitableDevice, "physical device enumeration failed with %s", VulkanResultString(res))
	}

	profiles := make([]deviceProfile, deviceCount)
	supports := make([]*VulkanSwapchainSupportInfo, deviceCount)
	for i, pd := range physicalDevices {
		profile, support, err := queryDeviceProfile(context, pd, requirements.DeviceExtensionNames)
		if err != nil {
			core.LogWarn("skipping device %d: %s", i, err.Error())
			continue
		}
		profiles[i] = profile
		supports[i] = support
	}

	chosen, assignment, err := pickDevice(profiles, requirements.DiscreteGPU)
	if err != nil {
		return err
	}

	device := physicalDevices[chosen]

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(device, &features)
	features.Deref()

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(device, &memory)
	memory.Deref()

	logDeviceInfo(&properties, &memory)
	core.LogInfo("queue families: graphics %d, present %d, compute %d, transfer %d",
		assignment.GraphicsIndex, assignment.PresentIndex, assignment.ComputeIndex, assignment.TransferIndex)

	context.Device = &VulkanDevice{
		PhysicalDevice:   device,
		Assignment:       assignment,
		Properties:       properties,
		Features:         features,
		Memory:           memory,
		SwapchainSupport: supports[chosen],
		supportsPortability: deviceSupportsExtension(device,
			"VK_KHR_portability_subset"),
	}
	return nil
}

// queryDeviceProfile gathers the selection summary for one device. The
// surface queries can fail on broken drivers; such devices are skipped.
func queryDeviceProfile(context *VulkanContext, device vk.PhysicalDevice, extensionNames []string) (deviceProfile, *VulkanSwapchainSupportInfo, error) {
	var profile deviceProfile

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()
	profile.DeviceType = properties.DeviceType

	profile.HasExtensions = true
	for _, name := range extensionNames {
		if !deviceSupportsExtension(device, name) {
			profile.HasExtensions = false
			break
		}
	}

	support, err := DeviceQuerySwapchainSupport(device, context.Surface)
	if err != nil {
		return profile, nil, err
	}
	profile.FormatCount = len(support.Formats)
	profile.PresentModeCount = len(support.PresentModes)

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
	familyProperties := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, familyProperties)

	profile.Families = make([]QueueFamilyCaps, familyCount)
	for i := range familyProperties {
		familyProperties[i].Deref()
		var supported vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), context.Surface, &supported); res != vk.Success {
			return profile, nil, errors.Newf("surface support query failed with %s", VulkanResultString(res))
		}
		profile.Families[i] = QueueFamilyCaps{
			Flags:      familyProperties[i].QueueFlags,
			CanPresent: supported == vk.True,
		}
	}
	return profile, support, nil
}

func deviceSupportsExtension(device vk.PhysicalDevice, name string) bool {
	var extensionCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &extensionCount, nil); res != vk.Success {
		return false
	}
	if extensionCount == 0 {
		return false
	}
	extensions := make([]vk.ExtensionProperties, extensionCount)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &extensionCount, extensions); res != vk.Success {
		return false
	}
	for i := range extensions {
		extensions[i].Deref()
		if vk.ToString(extensions[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

func logDeviceInfo(properties *vk.PhysicalDeviceProperties, memory *vk.PhysicalDeviceMemoryProperties) {
	core.LogInfo("selected device: %s", vk.ToString(properties.DeviceName[:]))

	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is discrete")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is virtual")
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is integrated")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU")
	default:
		core.LogInfo("GPU type is unknown")
	}

	core.LogInfo("GPU driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch())
	core.LogInfo("Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch())

	for i := uint32(0); i < memory.MemoryHeapCount; i++ {
		memory.MemoryHeaps[i].Deref()
		sizeGiB := float32(memory.MemoryHeaps[i].Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(memory.MemoryHeaps[i].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("local GPU memory: %.2f GiB", sizeGiB)
		} else {
			core.LogInfo("shared system memory: %.2f GiB", sizeGiB)
		}
	}
}
