package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/luminary/engine/core"
	"github.com/spaghettifunk/luminary/engine/platform"
)

// RendererConfig carries the renderer's tunables from the application
// config file.
type RendererConfig struct {
	AppName              string
	Width                uint32
	Height               uint32
	EnableValidation     bool
	RequireDiscreteGPU   bool
	ShaderPath           string
	RenderTargetMultiple uint32
}

// The offscreen target uses a wide float format so the ray marcher can
// accumulate in linear light before presentation.
const renderTargetFormat = vk.FormatR16g16b16a16Sfloat

// VulkanRenderer drives the whole backend: instance, device, swapchain,
// the two frame slots and the compute pass writing the offscreen target
// that gets blitted to the screen.
type VulkanRenderer struct {
	platform *platform.Platform
	config   RendererConfig
	context  VulkanContext

	frames       [MaxFramesInFlight]*FrameSlot
	frameCounter uint64

	renderTarget   *VulkanImage
	descriptorPool vk.DescriptorPool
	setLayout      vk.DescriptorSetLayout
	descriptorSet  vk.DescriptorSet
	pipeline       *VulkanComputePipeline
	watcher        *ShaderWatcher

	sessionID string
}

func New(p *platform.Platform, config RendererConfig) *VulkanRenderer {
	if config.RenderTargetMultiple == 0 {
		config.RenderTargetMultiple = 256
	}
	return &VulkanRenderer{
		platform:  p,
		config:    config,
		sessionID: uuid.NewString(),
	}
}

// Initialize brings the full backend up. Any partial failure unwinds
// everything created so far before the error returns.
func (r *VulkanRenderer) Initialize() error {
	core.LogInfo("renderer session %s starting", r.sessionID)

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "initializing Vulkan loader")
	}

	r.context.FramebufferWidth, r.context.FramebufferHeight = r.platform.GetFramebufferSize()
	if r.context.FramebufferWidth == 0 {
		r.context.FramebufferWidth = r.config.Width
	}
	if r.context.FramebufferHeight == 0 {
		r.context.FramebufferHeight = r.config.Height
	}

	unwind := NewDeleteQueue()

	if err := r.createInstance(); err != nil {
		return err
	}
	unwind.Push(func() { vk.DestroyInstance(r.context.Instance, r.context.Allocator) })

	if r.config.EnableValidation {
		r.createDebugMessenger()
		if r.context.debugMessenger != vk.NullDebugReportCallback {
			unwind.Push(func() {
				vk.DestroyDebugReportCallback(r.context.Instance, r.context.debugMessenger, r.context.Allocator)
			})
		}
	}

	surface, err := r.platform.CreateVulkanSurface(r.context.Instance)
	if err != nil {
		unwind.Flush()
		return errors.Wrap(err, "creating window surface")
	}
	r.context.Surface = surface
	unwind.Push(func() { vk.DestroySurface(r.context.Instance, surface, r.context.Allocator) })

	requirements := &VulkanPhysicalDeviceRequirements{
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
		DiscreteGPU:          r.config.RequireDiscreteGPU,
	}
	if err := SelectPhysicalDevice(&r.context, requirements); err != nil {
		unwind.Flush()
		return err
	}

	if err := DeviceCreate(&r.context, requirements.DeviceExtensionNames); err != nil {
		unwind.Flush()
		return err
	}
	unwind.Push(func() { DeviceDestroy(&r.context) })

	r.context.Swapchain, err = SwapchainCreate(&r.context, r.context.FramebufferWidth, r.context.FramebufferHeight, vk.NullSwapchain)
	if err != nil {
		unwind.Flush()
		return err
	}
	r.context.FramebufferSizeLastGeneration = r.context.FramebufferSizeGeneration
	unwind.Push(func() { r.context.Swapchain.Destroy(&r.context) })

	for i := range r.frames {
		slot, err := NewFrameSlot(&r.context)
		if err != nil {
			unwind.Flush()
			return err
		}
		r.frames[i] = slot
		unwind.Push(func() { slot.Destroy(&r.context) })
	}

	if err := r.createRenderTarget(); err != nil {
		unwind.Flush()
		return err
	}
	unwind.Push(func() { r.renderTarget.Destroy(&r.context) })

	r.descriptorPool, err = CreateStorageImageDescriptorPool(&r.context, 1)
	if err != nil {
		unwind.Flush()
		return err
	}
	unwind.Push(func() {
		vk.DestroyDescriptorPool(r.context.Device.LogicalDevice, r.descriptorPool, r.context.Allocator)
	})

	r.setLayout, err = CreateStorageImageSetLayout(&r.context)
	if err != nil {
		unwind.Flush()
		return err
	}
	unwind.Push(func() {
		vk.DestroyDescriptorSetLayout(r.context.Device.LogicalDevice, r.setLayout, r.context.Allocator)
	})

	r.descriptorSet, err = AllocateStorageImageSet(&r.context, r.descriptorPool, r.setLayout)
	if err != nil {
		unwind.Flush()
		return err
	}
	UpdateStorageImageDescriptor(&r.context, r.descriptorSet, r.renderTarget.View)

	if err := r.buildPipeline(); err != nil {
		unwind.Flush()
		return err
	}

	r.watcher, err = NewShaderWatcher(r.config.ShaderPath)
	if err != nil {
		// Hot reload is a convenience; run without it.
		core.LogWarn("shader watching disabled: %s", err.Error())
		r.watcher = nil
	}

	unwind.Discard()
	core.LogInfo("Vulkan renderer initialized")
	return nil
}

func (r *VulkanRenderer) createInstance() error {
	applicationInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   VulkanSafeString(r.config.AppName),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        VulkanSafeString("Luminary Engine"),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
	}

	extensions := r.platform.GetRequiredExtensionNames()
	var layers []string
	if r.config.EnableValidation {
		extensions = append(extensions, "VK_EXT_debug_report")
		if instanceLayerAvailable("VK_LAYER_KHRONOS_validation") {
			layers = append(layers, "VK_LAYER_KHRONOS_validation")
		} else {
			core.LogWarn("validation requested but VK_LAYER_KHRONOS_validation is not installed")
		}
	}
	core.LogDebug("instance extensions: %v", extensions)

	instanceCreateInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        applicationInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(layers),
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&instanceCreateInfo, r.context.Allocator, &instance); res != vk.Success {
		return errors.Newf("vkCreateInstance failed with %s", VulkanResultString(res))
	}
	r.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, r.context.Allocator)
		return errors.Wrap(err, "loading instance procedures")
	}
	return nil
}

func instanceLayerAvailable(name string) bool {
	var layerCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&layerCount, nil); res != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, layerCount)
	if res := vk.EnumerateInstanceLayerProperties(&layerCount, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		if vk.ToString(layers[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func (r *VulkanRenderer) createDebugMessenger() {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: debugReportCallback,
	}
	var callback vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(r.context.Instance, &debugCreateInfo, r.context.Allocator, &callback); res != vk.Success {
		core.LogWarn("debug messenger creation failed with %s", VulkanResultString(res))
		return
	}
	r.context.debugMessenger = callback
}

func debugReportCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint64, messageCode int32, layerPrefix string,
	message string, userData unsafe.Pointer) vk.Bool32 {
	if vk.DebugReportFlagBits(flags)&vk.DebugReportErrorBit != 0 {
		core.LogError("[%s] %s", layerPrefix, message)
	} else {
		core.LogWarn("[%s] %s", layerPrefix, message)
	}
	return vk.False
}

func (r *VulkanRenderer) createRenderTarget() error {
	width, height := RenderTargetExtent(r.context.FramebufferWidth, r.context.FramebufferHeight, r.config.RenderTargetMultiple)
	target, err := ImageCreate(&r.context, width, height, renderTargetFormat,
		vk.ImageUsageFlags(vk.ImageUsageStorageBit|vk.ImageUsageTransferSrcBit), true)
	if err != nil {
		return errors.Wrap(err, "creating render target")
	}
	r.renderTarget = target
	return nil
}

func (r *VulkanRenderer) buildPipeline() error {
	module, err := LoadShaderModule(&r.context, r.config.ShaderPath)
	if err != nil {
		return err
	}
	defer vk.DestroyShaderModule(r.context.Device.LogicalDevice, module, r.context.Allocator)

	pipeline, err := NewComputePipeline(&r.context, r.setLayout, module, ScenePushConstantsSize)
	if err != nil {
		return err
	}
	r.pipeline = pipeline
	return nil
}

// Resized records the new framebuffer size and bumps the generation; the
// swapchain is rebuilt lazily at the top of the next frame.
func (r *VulkanRenderer) Resized(width, height uint32) {
	r.context.FramebufferWidth = width
	r.context.FramebufferHeight = height
	r.context.FramebufferSizeGeneration++
}

// DrawFrame runs one full frame through the scheduler. A nil return with
// no presentation can happen when the swapchain had to be rebuilt; the
// caller just calls again next iteration.
func (r *VulkanRenderer) DrawFrame(constants *ScenePushConstants) error {
	if r.context.FramebufferWidth == 0 || r.context.FramebufferHeight == 0 {
		// Minimized; nothing to present.
		return nil
	}

	if r.context.FramebufferSizeGeneration != r.context.FramebufferSizeLastGeneration || r.context.Swapchain.Suboptimal {
		if err := r.recreateSwapchain(); err != nil {
			return err
		}
		return nil
	}

	if r.watcher != nil && r.watcher.ConsumeDirty() {
		if err := r.reloadPipeline(); err != nil {
			// Keep rendering with the previous pipeline.
			core.LogWarn("shader reload failed: %s", err.Error())
		}
	}

	slot := r.frames[r.frameCounter%MaxFramesInFlight]
	sync := deviceSync{device: r.context.Device.LogicalDevice}
	if err := slot.BeginCycle(sync, frameFenceTimeoutNs); err != nil {
		return err
	}

	imageIndex, err := r.context.Swapchain.AcquireNextImageIndex(&r.context, slot.ImageAvailableSemaphore)
	if err != nil {
		// The fence was already rearmed for this cycle; signal it through
		// an empty submission so the slot's next cycle does not stall.
		vk.QueueSubmit(r.context.Device.GraphicsQueue, 0, nil, slot.RenderFence)
		if errors.Is(err, core.ErrSwapchainOutOfDate) {
			return r.recreateSwapchain()
		}
		return err
	}

	if err := slot.BeginRecording(); err != nil {
		return err
	}

	swapImage := r.context.Swapchain.Images[imageIndex]

	TransitionImageLayout(slot.CommandBuffer, r.renderTarget.Handle,
		vk.ImageLayoutUndefined, vk.ImageLayoutGeneral)
	RecordComputeDispatch(slot.CommandBuffer, r.pipeline, r.descriptorSet, constants,
		r.renderTarget.Width, r.renderTarget.Height)
	TransitionImageLayout(slot.CommandBuffer, r.renderTarget.Handle,
		vk.ImageLayoutGeneral, vk.ImageLayoutTransferSrcOptimal)
	TransitionImageLayout(slot.CommandBuffer, swapImage,
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	RecordBlit(slot.CommandBuffer,
		r.renderTarget.Handle, r.renderTarget.Width, r.renderTarget.Height,
		swapImage, r.context.Swapchain.Extent.Width, r.context.Swapchain.Extent.Height)
	TransitionImageLayout(slot.CommandBuffer, swapImage,
		vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutPresentSrc)

	if err := slot.EndRecording(); err != nil {
		return err
	}
	if err := slot.Submit(r.context.Device.GraphicsQueue); err != nil {
		return err
	}

	err = r.context.Swapchain.Present(&r.context, slot.RenderCompleteSemaphore, imageIndex)
	if errors.Is(err, core.ErrSwapchainOutOfDate) {
		err = r.recreateSwapchain()
	}
	if err != nil {
		return err
	}

	r.frameCounter++
	return nil
}

// recreateSwapchain idles the device, replaces the swapchain for the
// current framebuffer size and resizes the render target when the
// rounded extent changed.
func (r *VulkanRenderer) recreateSwapchain() error {
	width, height := r.context.FramebufferWidth, r.context.FramebufferHeight
	if width == 0 || height == 0 {
		return nil
	}

	vk.DeviceWaitIdle(r.context.Device.LogicalDevice)

	replacement, err := r.context.Swapchain.Recreate(&r.context, width, height)
	if err != nil {
		return err
	}
	r.context.Swapchain = replacement
	r.context.FramebufferSizeLastGeneration = r.context.FramebufferSizeGeneration

	if NeedsRenderTargetResize(r.renderTarget.Width, r.renderTarget.Height, width, height, r.config.RenderTargetMultiple) {
		r.renderTarget.Destroy(&r.context)
		if err := r.createRenderTarget(); err != nil {
			return err
		}
		UpdateStorageImageDescriptor(&r.context, r.descriptorSet, r.renderTarget.View)
	}

	core.LogInfo("swapchain recreated at %dx%d", width, height)
	return nil
}

// reloadPipeline rebuilds the compute pipeline from the shader currently
// on disk, keeping the old pipeline if anything fails.
func (r *VulkanRenderer) reloadPipeline() error {
	vk.DeviceWaitIdle(r.context.Device.LogicalDevice)

	previous := r.pipeline
	if err := r.buildPipeline(); err != nil {
		r.pipeline = previous
		return err
	}
	previous.Destroy(&r.context)
	core.LogInfo("compute pipeline reloaded")
	return nil
}

// Shutdown tears the backend down in reverse creation order.
func (r *VulkanRenderer) Shutdown() {
	if r.context.Device != nil && r.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(r.context.Device.LogicalDevice)
	}

	if r.watcher != nil {
		r.watcher.Close()
		r.watcher = nil
	}
	if r.pipeline != nil {
		r.pipeline.Destroy(&r.context)
		r.pipeline = nil
	}
	if r.setLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(r.context.Device.LogicalDevice, r.setLayout, r.context.Allocator)
		r.setLayout = vk.NullDescriptorSetLayout
	}
	if r.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(r.context.Device.LogicalDevice, r.descriptorPool, r.context.Allocator)
		r.descriptorPool = vk.NullDescriptorPool
	}
	if r.renderTarget != nil {
		r.renderTarget.Destroy(&r.context)
		r.renderTarget = nil
	}
	for i, slot := range r.frames {
		if slot != nil {
			slot.Destroy(&r.context)
			r.frames[i] = nil
		}
	}
	if r.context.Swapchain != nil {
		r.context.Swapchain.Destroy(&r.context)
		r.context.Swapchain = nil
	}
	DeviceDestroy(&r.context)
	if r.context.Surface != vk.NullSurface {
		vk.DestroySurface(r.context.Instance, r.context.Surface, r.context.Allocator)
		r.context.Surface = vk.NullSurface
	}
	if r.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(r.context.Instance, r.context.debugMessenger, r.context.Allocator)
		r.context.debugMessenger = vk.NullDebugReportCallback
	}
	if r.context.Instance != nil {
		vk.DestroyInstance(r.context.Instance, r.context.Allocator)
		r.context.Instance = nil
	}
	core.LogInfo("renderer session %s shut down", r.sessionID)
}
