package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/luminary/engine/core"
)

// MaxFramesInFlight is the scheduler depth: the CPU records at most this
// many frames ahead of the GPU.
const MaxFramesInFlight = 2

// How long a frame waits on its fence before the draw is abandoned.
const frameFenceTimeoutNs = uint64(1_000_000_000)

// FrameSlot is one in-flight frame's worth of state: a command pool with
// a single primary buffer and the three sync primitives tying acquire,
// submit and present together. The fence starts signaled so the first
// cycle through each slot does not deadlock.
type FrameSlot struct {
	CommandPool   vk.CommandPool
	CommandBuffer vk.CommandBuffer

	ImageAvailableSemaphore vk.Semaphore
	RenderCompleteSemaphore vk.Semaphore
	RenderFence             vk.Fence
}

// frameSync is the subset of device operations BeginCycle needs, split
// out so the wait/reset protocol is testable without a device.
type frameSync interface {
	WaitForFence(fence vk.Fence, timeoutNs uint64) vk.Result
	ResetFence(fence vk.Fence) vk.Result
	ResetCommandBuffer(buffer vk.CommandBuffer) vk.Result
}

type deviceSync struct {
	device vk.Device
}

func (d deviceSync) WaitForFence(fence vk.Fence, timeoutNs uint64) vk.Result {
	return vk.WaitForFences(d.device, 1, []vk.Fence{fence}, vk.True, timeoutNs)
}

func (d deviceSync) ResetFence(fence vk.Fence) vk.Result {
	return vk.ResetFences(d.device, 1, []vk.Fence{fence})
}

func (d deviceSync) ResetCommandBuffer(buffer vk.CommandBuffer) vk.Result {
	return vk.ResetCommandBuffer(buffer, 0)
}

// NewFrameSlot builds one slot against the graphics family. On any
// partial failure everything created so far is unwound.
func NewFrameSlot(context *VulkanContext) (*FrameSlot, error) {
	device := context.Device
	slot := &FrameSlot{}
	unwind := NewDeleteQueue()

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.Assignment.GraphicsIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		return nil, errors.Newf("vkCreateCommandPool failed with %s", VulkanResultString(res))
	}
	slot.CommandPool = pool
	unwind.Push(func() { vk.DestroyCommandPool(device.LogicalDevice, pool, context.Allocator) })

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        slot.CommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	commandBuffers := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(device.LogicalDevice, &allocateInfo, commandBuffers); res != vk.Success {
		unwind.Flush()
		return nil, errors.Newf("vkAllocateCommandBuffers failed with %s", VulkanResultString(res))
	}
	slot.CommandBuffer = commandBuffers[0]

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var imageAvailable vk.Semaphore
	if res := vk.CreateSemaphore(device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &imageAvailable); res != vk.Success {
		unwind.Flush()
		return nil, errors.Newf("vkCreateSemaphore failed with %s", VulkanResultString(res))
	}
	slot.ImageAvailableSemaphore = imageAvailable
	unwind.Push(func() { vk.DestroySemaphore(device.LogicalDevice, imageAvailable, context.Allocator) })

	var renderComplete vk.Semaphore
	if res := vk.CreateSemaphore(device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &renderComplete); res != vk.Success {
		unwind.Flush()
		return nil, errors.Newf("vkCreateSemaphore failed with %s", VulkanResultString(res))
	}
	slot.RenderCompleteSemaphore = renderComplete
	unwind.Push(func() { vk.DestroySemaphore(device.LogicalDevice, renderComplete, context.Allocator) })

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}
	var fence vk.Fence
	if res := vk.CreateFence(device.LogicalDevice, &fenceCreateInfo, context.Allocator, &fence); res != vk.Success {
		unwind.Flush()
		return nil, errors.Newf("vkCreateFence failed with %s", VulkanResultString(res))
	}
	slot.RenderFence = fence

	unwind.Discard()
	return slot, nil
}

// BeginCycle blocks until the slot's previous submission retires, then
// rearms the fence and clears the command buffer for re-recording. The
// fence reset must happen before any new submission references it.
func (f *FrameSlot) BeginCycle(sync frameSync, timeoutNs uint64) error {
	switch res := sync.WaitForFence(f.RenderFence, timeoutNs); res {
	case vk.Success:
	case vk.Timeout:
		return core.ErrDrawTimeout
	default:
		return errors.Newf("vkWaitForFences failed with %s", VulkanResultString(res))
	}

	if res := sync.ResetFence(f.RenderFence); res != vk.Success {
		return errors.Newf("vkResetFences failed with %s", VulkanResultString(res))
	}
	if res := sync.ResetCommandBuffer(f.CommandBuffer); res != vk.Success {
		return errors.Newf("vkResetCommandBuffer failed with %s", VulkanResultString(res))
	}
	return nil
}

// BeginRecording opens the command buffer for a single submission.
func (f *FrameSlot) BeginRecording() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(f.CommandBuffer, &beginInfo); res != vk.Success {
		return errors.Newf("vkBeginCommandBuffer failed with %s", VulkanResultString(res))
	}
	return nil
}

func (f *FrameSlot) EndRecording() error {
	if res := vk.EndCommandBuffer(f.CommandBuffer); res != vk.Success {
		return errors.Newf("vkEndCommandBuffer failed with %s", VulkanResultString(res))
	}
	return nil
}

// Submit hands the recorded buffer to the graphics queue: execution waits
// on image acquisition at the color-output stage, and completion signals
// both the present semaphore and this slot's fence.
func (f *FrameSlot) Submit(queue vk.Queue) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{f.ImageAvailableSemaphore},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{f.CommandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{f.RenderCompleteSemaphore},
	}
	if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, f.RenderFence); res != vk.Success {
		return errors.Newf("vkQueueSubmit failed with %s", VulkanResultString(res))
	}
	return nil
}

// Destroy releases the slot. The caller idles the device first so none of
// these objects are still referenced by the GPU.
func (f *FrameSlot) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if f.RenderFence != vk.NullFence {
		vk.DestroyFence(device, f.RenderFence, context.Allocator)
		f.RenderFence = vk.NullFence
	}
	if f.RenderCompleteSemaphore != vk.NullSemaphore {
		vk.DestroySemaphore(device, f.RenderCompleteSemaphore, context.Allocator)
		f.RenderCompleteSemaphore = vk.NullSemaphore
	}
	if f.ImageAvailableSemaphore != vk.NullSemaphore {
		vk.DestroySemaphore(device, f.ImageAvailableSemaphore, context.Allocator)
		f.ImageAvailableSemaphore = vk.NullSemaphore
	}
	if f.CommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(device, f.CommandPool, context.Allocator)
		f.CommandPool = vk.NullCommandPool
	}
	f.CommandBuffer = nil
}
