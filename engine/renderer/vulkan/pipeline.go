package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// ComputeLocalSize matches the local_size_x/y declared in the shader; the
// dispatch dimensions derive from it.
const ComputeLocalSize = 16

// VulkanComputePipeline is the ray-march pipeline plus the layout used to
// bind its descriptor set and push constants.
type VulkanComputePipeline struct {
	Handle vk.Pipeline
	Layout vk.PipelineLayout
}

// DispatchGroupCount returns the workgroup count covering extent pixels
// at localSize pixels per group, rounding up so edge pixels are covered.
func DispatchGroupCount(extent, localSize uint32) uint32 {
	return (extent + localSize - 1) / localSize
}

// NewComputePipeline builds the pipeline layout (one storage-image set,
// one push-constant block) and the compute pipeline itself. The shader
// module can be destroyed once this returns.
func NewComputePipeline(context *VulkanContext, setLayout vk.DescriptorSetLayout, shader vk.ShaderModule, pushConstantSize uint32) (*VulkanComputePipeline, error) {
	device := context.Device

	layoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{setLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges: []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			Offset:     0,
			Size:       pushConstantSize,
		}},
	}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(device.LogicalDevice, &layoutCreateInfo, context.Allocator, &layout); res != vk.Success {
		return nil, errors.Newf("vkCreatePipelineLayout failed with %s", VulkanResultString(res))
	}

	pipelineCreateInfo := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: shader,
			PName:  VulkanSafeString("main"),
		},
		Layout: layout,
	}
	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateComputePipelines(device.LogicalDevice, vk.NullPipelineCache, 1,
		[]vk.ComputePipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pipelines); res != vk.Success {
		vk.DestroyPipelineLayout(device.LogicalDevice, layout, context.Allocator)
		return nil, errors.Newf("vkCreateComputePipelines failed with %s", VulkanResultString(res))
	}

	return &VulkanComputePipeline{
		Handle: pipelines[0],
		Layout: layout,
	}, nil
}

func (p *VulkanComputePipeline) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if p.Handle != vk.NullPipeline {
		vk.DestroyPipeline(device, p.Handle, context.Allocator)
		p.Handle = vk.NullPipeline
	}
	if p.Layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(device, p.Layout, context.Allocator)
		p.Layout = vk.NullPipelineLayout
	}
}
