package engine

import (
	"github.com/ashenvale/prism/engine/assets"
	"github.com/ashenvale/prism/engine/core"
	"github.com/ashenvale/prism/engine/platform"
	"github.com/ashenvale/prism/engine/renderer"
	"github.com/ashenvale/prism/engine/renderer/vulkan"
	"github.com/ashenvale/prism/engine/systems"
)

type Engine struct {
	game     *Game
	platform *platform.Platform
	context  *vulkan.VulkanContext
	renderer *renderer.Renderer
	uiPass   *renderer.UIPass

	Shaders *assets.ShaderRegistry
	Models  *assets.ModelRegistry
	Scene   *systems.System
	Camera  *systems.Camera
	Time    *systems.Time

	clock     *core.Clock
	isRunning bool

	// geometryDirty forces scene re-aggregation before the next frame.
	geometryDirty bool
}

func New(g *Game) (*Engine, error) {
	p, err := platform.New()
	if err != nil {
		return nil, err
	}
	return &Engine{
		game:     g,
		platform: p,
		Models:   assets.NewModelRegistry(),
		clock:    core.NewClock(),
	}, nil
}

func (e *Engine) Initialize() error {
	cfg := e.game.Config
	core.SetLogLevel(cfg.LogLevel)

	if err := e.platform.Startup(cfg.AppName, cfg.Width, cfg.Height); err != nil {
		return err
	}

	ctx, err := vulkan.NewContext(vulkan.ContextOptions{
		ApplicationName:    cfg.AppName,
		InstanceExtensions: e.platform.RequiredExtensions(),
		CreateSurface:      e.platform.CreateSurface,
		Width:              cfg.Width,
		Height:             cfg.Height,
		HeapSize:           cfg.HeapSize,
		FrameTimeout:       cfg.FrameTimeout,
	})
	if err != nil {
		return err
	}
	e.context = ctx

	e.renderer, err = renderer.New(ctx, cfg.RenderWidth, cfg.RenderHeight)
	if err != nil {
		return err
	}

	e.Shaders, err = assets.NewShaderRegistry(cfg.ShaderDir)
	if err != nil {
		return err
	}

	e.Camera, err = systems.NewCamera(ctx, float32(cfg.Width), float32(cfg.Height))
	if err != nil {
		return err
	}
	e.Time, err = systems.NewTime(ctx)
	if err != nil {
		return err
	}

	e.Scene, err = systems.NewSystem(ctx, e.Shaders, e.renderer.Target(), e.Camera, e.Time)
	if err != nil {
		return err
	}
	e.uiPass, err = renderer.NewUIPass(ctx, e.Shaders, e.renderer.Target(), e.Time.Buffer())
	if err != nil {
		return err
	}
	e.renderer.AddPass(e.Scene)
	e.renderer.AddPass(e.uiPass)

	if err := e.game.FnInitialize(e); err != nil {
		return err
	}
	return e.Scene.SetGeometry(e.Models)
}

// InvalidateGeometry schedules a scene re-aggregation before the next
// frame. Call it after adding, moving or removing renderables or lights.
func (e *Engine) InvalidateGeometry() {
	e.geometryDirty = true
}

func (e *Engine) Run() error {
	e.clock.Start()
	lastTime := 0.0
	e.isRunning = true

	core.LogInfo("engine running")
	for e.isRunning && !e.platform.ShouldClose() {
		e.platform.PumpMessages()

		e.clock.Update()
		delta := e.clock.Elapsed - lastTime
		lastTime = e.clock.Elapsed

		if err := e.game.FnUpdate(delta); err != nil {
			core.LogError("game update failed: %s", err)
			return err
		}

		if e.geometryDirty {
			if err := e.Scene.SetGeometry(e.Models); err != nil {
				return err
			}
			e.geometryDirty = false
		}

		if e.platform.Resized {
			width, height := e.platform.FramebufferExtent()
			if err := e.Camera.Update(float32(width), float32(height)); err != nil {
				return err
			}
		}

		if err := e.renderer.DrawFrame(e.platform.FramebufferExtent); err != nil {
			return err
		}
		if err := e.Time.FrameFinished(); err != nil {
			return err
		}
	}
	return nil
}

// Stop makes Run return after the current frame.
func (e *Engine) Stop() {
	e.isRunning = false
}

// Shutdown tears the engine down in reverse construction order.
func (e *Engine) Shutdown() error {
	core.LogInfo("engine shutting down")
	e.clock.Stop()

	if e.context != nil {
		e.context.Device.WaitIdle()
	}
	if e.uiPass != nil {
		e.uiPass.Destroy()
	}
	if e.Scene != nil {
		e.Scene.Destroy()
	}
	if e.Time != nil {
		e.Time.Destroy()
	}
	if e.Camera != nil {
		e.Camera.Destroy()
	}
	if e.Shaders != nil {
		e.Shaders.Close()
	}
	if e.renderer != nil {
		e.renderer.Destroy()
	}
	if e.context != nil {
		e.context.Destroy()
	}
	return e.platform.Shutdown()
}
