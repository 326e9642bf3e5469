package renderer

import (
	"github.com/spaghettifunk/luminary/engine/platform"
	"github.com/spaghettifunk/luminary/engine/renderer/vulkan"
)

// Renderer is the engine-facing rendering surface. It hides the backend
// so the engine loop never imports Vulkan types directly, except for the
// per-frame push constant block.
type Renderer struct {
	backend *vulkan.VulkanRenderer
}

func New(p *platform.Platform, config vulkan.RendererConfig) *Renderer {
	return &Renderer{
		backend: vulkan.New(p, config),
	}
}

func (r *Renderer) Initialize() error {
	return r.backend.Initialize()
}

func (r *Renderer) Resized(width, height uint32) {
	r.backend.Resized(width, height)
}

func (r *Renderer) DrawFrame(constants *vulkan.ScenePushConstants) error {
	return r.backend.DrawFrame(constants)
}

func (r *Renderer) Shutdown() {
	r.backend.Shutdown()
}
