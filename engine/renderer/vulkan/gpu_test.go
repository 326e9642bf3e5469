package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/luminary/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func caps(flags vk.QueueFlagBits, present bool) QueueFamilyCaps {
	return QueueFamilyCaps{Flags: vk.QueueFlags(flags), CanPresent: present}
}

func TestDeviceTypeScore(t *testing.T) {
	tests := []struct {
		name       string
		deviceType vk.PhysicalDeviceType
		want       int
	}{
		{"discrete", vk.PhysicalDeviceTypeDiscreteGpu, 5},
		{"virtual", vk.PhysicalDeviceTypeVirtualGpu, 4},
		{"integrated", vk.PhysicalDeviceTypeIntegratedGpu, 3},
		{"cpu", vk.PhysicalDeviceTypeCpu, 2},
		{"other", vk.PhysicalDeviceTypeOther, 1},
		{"unknown", vk.PhysicalDeviceType(99), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeviceTypeScore(tt.deviceType))
		})
	}
}

func TestFindQueueFamilyPrefersSpecialized(t *testing.T) {
	families := []QueueFamilyCaps{
		caps(vk.QueueGraphicsBit|vk.QueueComputeBit|vk.QueueTransferBit, true),
		caps(vk.QueueTransferBit, false),
	}

	index, ok := findQueueFamily(families, vk.QueueTransferBit, false)
	require.True(t, ok)
	assert.Equal(t, uint32(1), index)

	index, ok = findQueueFamily(families, vk.QueueGraphicsBit, false)
	require.True(t, ok)
	assert.Equal(t, uint32(0), index)
}

func TestFindQueueFamilyLastMinimalWins(t *testing.T) {
	// Two dedicated transfer families at the same generality: the later
	// one is chosen.
	families := []QueueFamilyCaps{
		caps(vk.QueueGraphicsBit|vk.QueueComputeBit|vk.QueueTransferBit, true),
		caps(vk.QueueTransferBit, false),
		caps(vk.QueueTransferBit, false),
	}

	index, ok := findQueueFamily(families, vk.QueueTransferBit, false)
	require.True(t, ok)
	assert.Equal(t, uint32(2), index)
}

func TestFindQueueFamilyMissingCapability(t *testing.T) {
	families := []QueueFamilyCaps{
		caps(vk.QueueGraphicsBit|vk.QueueTransferBit, true),
	}
	_, ok := findQueueFamily(families, vk.QueueComputeBit, false)
	assert.False(t, ok)
}

func TestAssignQueueFamiliesSingleFamily(t *testing.T) {
	families := []QueueFamilyCaps{
		caps(vk.QueueGraphicsBit|vk.QueueComputeBit|vk.QueueTransferBit, true),
	}

	assignment, ok := AssignQueueFamilies(families)
	require.True(t, ok)
	assert.Equal(t, QueueFamilyAssignment{}, assignment)
}

func TestAssignQueueFamiliesSplitsRoles(t *testing.T) {
	families := []QueueFamilyCaps{
		caps(vk.QueueGraphicsBit|vk.QueueComputeBit|vk.QueueTransferBit, true),
		caps(vk.QueueComputeBit|vk.QueueTransferBit, false),
		caps(vk.QueueTransferBit, false),
	}

	assignment, ok := AssignQueueFamilies(families)
	require.True(t, ok)
	assert.Equal(t, uint32(0), assignment.GraphicsIndex)
	assert.Equal(t, uint32(0), assignment.PresentIndex)
	assert.Equal(t, uint32(1), assignment.ComputeIndex)
	assert.Equal(t, uint32(2), assignment.TransferIndex)
}

func TestAssignQueueFamiliesNoPresent(t *testing.T) {
	families := []QueueFamilyCaps{
		caps(vk.QueueGraphicsBit|vk.QueueComputeBit|vk.QueueTransferBit, false),
	}
	_, ok := AssignQueueFamilies(families)
	assert.False(t, ok)
}

func fullProfile(deviceType vk.PhysicalDeviceType) deviceProfile {
	return deviceProfile{
		DeviceType:       deviceType,
		HasExtensions:    true,
		FormatCount:      2,
		PresentModeCount: 2,
		Families: []QueueFamilyCaps{
			caps(vk.QueueGraphicsBit|vk.QueueComputeBit|vk.QueueTransferBit, true),
		},
	}
}

func TestEvaluateProfileRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*deviceProfile)
	}{
		{"missing extensions", func(p *deviceProfile) { p.HasExtensions = false }},
		{"no surface formats", func(p *deviceProfile) { p.FormatCount = 0 }},
		{"no present modes", func(p *deviceProfile) { p.PresentModeCount = 0 }},
		{"no queue coverage", func(p *deviceProfile) {
			p.Families = []QueueFamilyCaps{caps(vk.QueueTransferBit, false)}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := fullProfile(vk.PhysicalDeviceTypeDiscreteGpu)
			tt.mutate(&profile)
			_, _, ok := evaluateProfile(profile, false)
			assert.False(t, ok)
		})
	}
}

func TestEvaluateProfileDiscreteRequirement(t *testing.T) {
	integrated := fullProfile(vk.PhysicalDeviceTypeIntegratedGpu)

	_, _, ok := evaluateProfile(integrated, true)
	assert.False(t, ok)

	_, score, ok := evaluateProfile(integrated, false)
	require.True(t, ok)
	assert.Equal(t, 3, score)
}

func TestPickDeviceHighestScore(t *testing.T) {
	profiles := []deviceProfile{
		fullProfile(vk.PhysicalDeviceTypeIntegratedGpu),
		fullProfile(vk.PhysicalDeviceTypeDiscreteGpu),
		fullProfile(vk.PhysicalDeviceTypeVirtualGpu),
	}

	index, _, err := pickDevice(profiles, false)
	require.NoError(t, err)
	assert.Equal(t, 1, index)
}

func TestPickDeviceTieKeepsFirst(t *testing.T) {
	profiles := []deviceProfile{
		fullProfile(vk.PhysicalDeviceTypeDiscreteGpu),
		fullProfile(vk.PhysicalDeviceTypeDiscreteGpu),
	}

	index, _, err := pickDevice(profiles, false)
	require.NoError(t, err)
	assert.Equal(t, 0, index)
}

func TestPickDeviceNoneSuitable(t *testing.T) {
	broken := fullProfile(vk.PhysicalDeviceTypeDiscreteGpu)
	broken.FormatCount = 0

	_, _, err := pickDevice([]deviceProfile{broken}, false)
	assert.ErrorIs(t, err, core.ErrNoSuitableDevice)
}
