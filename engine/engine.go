package engine

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/luminary/engine/camera"
	"github.com/spaghettifunk/luminary/engine/core"
	"github.com/spaghettifunk/luminary/engine/platform"
	"github.com/spaghettifunk/luminary/engine/renderer"
	"github.com/spaghettifunk/luminary/engine/renderer/vulkan"
)

const fpsReportInterval = 3 * time.Second

// Engine wires the platform, event bus, camera and renderer into the
// main loop. One instance per process.
type Engine struct {
	config ApplicationConfig

	platform *platform.Platform
	renderer *renderer.Renderer
	camera   *camera.Flycam

	clock core.Clock
	fps   *core.FPSCounter

	keysHeld map[core.KeyCode]bool

	isRunning   bool
	isSuspended bool
}

func New(config ApplicationConfig) *Engine {
	return &Engine{
		config:   config,
		platform: platform.New(),
		camera:   camera.New(),
		keysHeld: map[core.KeyCode]bool{},
	}
}

func (e *Engine) Initialize() error {
	core.SetLogger(core.NewLogger(core.ParseLogLevel(e.config.LogLevel), "Luminary "))

	if err := core.EventSystemInitialize(); err != nil {
		return errors.Wrap(err, "initializing event system")
	}
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onQuit)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_KEY_RELEASED, e.onKey)
	core.EventRegister(core.EVENT_CODE_MOUSE_MOVED, e.onMouse)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	if err := e.platform.Startup(e.config.Name, e.config.StartPosX, e.config.StartPosY,
		e.config.StartWidth, e.config.StartHeight); err != nil {
		return errors.Wrap(err, "starting platform")
	}

	e.renderer = renderer.New(e.platform, vulkan.RendererConfig{
		AppName:              e.config.Name,
		Width:                e.config.StartWidth,
		Height:               e.config.StartHeight,
		EnableValidation:     e.config.EnableValidation,
		RequireDiscreteGPU:   e.config.RequireDiscreteGPU,
		ShaderPath:           e.config.ShaderPath,
		RenderTargetMultiple: e.config.RenderTargetMultiple,
	})
	if err := e.renderer.Initialize(); err != nil {
		return err
	}

	e.fps = core.NewFPSCounter(fpsReportInterval)
	e.isRunning = true
	return nil
}

// Run is the main loop: pump window events, drain the event bus, move the
// camera, draw. Returns when the window closes or quit is requested.
func (e *Engine) Run() error {
	e.clock.Start()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
		}
		core.EventsProcess()
		if !e.isRunning {
			break
		}
		if e.isSuspended {
			// Minimized; poll events at a slow tick instead of spinning.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		e.clock.Update()
		e.moveCamera()

		eye := e.camera.Position()
		constants := vulkan.ScenePushConstants{
			View: e.camera.ViewMatrix(),
			Eye:  [4]float32{eye[0], eye[1], eye[2], 1},
			Time: float32(e.clock.Elapsed()),
		}
		if err := e.renderer.DrawFrame(&constants); err != nil {
			if errors.Is(err, core.ErrSwapchainNotReady) {
				core.LogWarn("frame skipped: %s", err.Error())
				continue
			}
			// A fence or acquire timeout means the GPU has stalled;
			// tearing the loop down beats spinning on a dead driver.
			return err
		}

		if fps, ok := e.fps.Frame(); ok {
			core.LogInfo("%.1f fps", fps)
		}
	}
	return nil
}

func (e *Engine) Shutdown() {
	if e.renderer != nil {
		e.renderer.Shutdown()
	}
	e.platform.Shutdown()
	core.EventSystemShutdown()
	e.clock.Stop()
}

func (e *Engine) moveCamera() {
	var dx, dz float32
	if e.keysHeld[core.KEY_W] {
		dz++
	}
	if e.keysHeld[core.KEY_S] {
		dz--
	}
	if e.keysHeld[core.KEY_D] {
		dx++
	}
	if e.keysHeld[core.KEY_A] {
		dx--
	}
	if dx != 0 || dz != 0 {
		e.camera.Movement(dx, 0, dz)
	}
}

func (e *Engine) onQuit(context core.EventContext) {
	e.isRunning = false
}

func (e *Engine) onKey(context core.EventContext) {
	event, ok := context.Data.(*core.KeyEvent)
	if !ok {
		return
	}
	pressed := context.Type == core.EVENT_CODE_KEY_PRESSED
	e.keysHeld[event.KeyCode] = pressed

	if pressed && event.KeyCode == core.KEY_ESCAPE {
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}
}

func (e *Engine) onMouse(context core.EventContext) {
	event, ok := context.Data.(*core.MouseEvent)
	if !ok {
		return
	}
	e.camera.MouseDelta(event.DeltaX, event.DeltaY)
}

func (e *Engine) onResized(context core.EventContext) {
	event, ok := context.Data.(*core.SystemEvent)
	if !ok {
		return
	}
	e.isSuspended = event.WindowWidth == 0 || event.WindowHeight == 0
	e.renderer.Resized(event.WindowWidth, event.WindowHeight)
}
