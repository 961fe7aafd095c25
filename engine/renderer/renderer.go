package renderer

import (
	"errors"

	"github.com/ashenvale/prism/engine/core"
	"github.com/ashenvale/prism/engine/renderer/vulkan"
	vk "github.com/goki/vulkan"
)

// Pass is one compute stage of the frame. Record adds the pass's commands
// to the frame's command buffer; the target is in general layout and
// barriers between passes are the renderer's job.
type Pass interface {
	Record(cb *vulkan.CommandBuffer, target *vulkan.VulkanImage)
}

// Renderer drives the frame: it renders every pass into a fixed-resolution
// offscreen target, then upscales onto the acquired swapchain image with a
// blit.
type Renderer struct {
	Context *vulkan.VulkanContext

	target *vulkan.VulkanImage
	passes []Pass
}

func New(ctx *vulkan.VulkanContext, renderWidth, renderHeight uint32) (*Renderer, error) {
	target, err := vulkan.NewImage(ctx.Device.Handle, ctx.Memory, renderWidth, renderHeight,
		vk.FormatR8g8b8a8Unorm,
		vk.ImageUsageFlags(vk.ImageUsageStorageBit|vk.ImageUsageTransferSrcBit))
	if err != nil {
		return nil, err
	}

	return &Renderer{
		Context: ctx,
		target:  target,
	}, nil
}

// AddPass appends a pass. Passes run in the order they were added.
func (r *Renderer) AddPass(pass Pass) {
	r.passes = append(r.passes, pass)
}

// Target returns the offscreen render target the passes write into.
func (r *Renderer) Target() *vulkan.VulkanImage {
	return r.target
}

// DrawFrame renders and presents one frame. When the swapchain is out of
// date it is recreated at the extent reported by framebufferExtent and the
// frame is skipped.
func (r *Renderer) DrawFrame(framebufferExtent func() (uint32, uint32)) error {
	imageIndex, err := r.Context.StartFrame()
	if errors.Is(err, vulkan.ErrOutOfDate) {
		return r.recreateSwapchain(framebufferExtent)
	}
	if err != nil {
		return err
	}

	if err := r.record(imageIndex); err != nil {
		return err
	}

	err = r.Context.EndFrame(imageIndex)
	if errors.Is(err, vulkan.ErrOutOfDate) {
		return r.recreateSwapchain(framebufferExtent)
	}
	return err
}

func (r *Renderer) record(imageIndex uint32) error {
	swapchainImage := r.Context.Swapchain.Images[imageIndex]

	// Command buffers are not reused across frames. The in-flight fence has
	// already been waited on, so last frame's buffers are safe to free.
	r.Context.CommandPool.Clear(r.Context.Device.Handle)
	cb, err := r.Context.CommandPool.Allocate(r.Context.Device.Handle)
	if err != nil {
		return err
	}
	cb.Begin().
		TransitionImageLayout(r.target, TransitionFrameStart())

	for i, pass := range r.passes {
		if i > 0 {
			cb.TransitionImageLayout(r.target, TransitionBetweenPasses())
		}
		pass.Record(cb, r.target)
	}

	cb.TransitionImageLayout(r.target, TransitionToBlitSource()).
		TransitionImageLayout(swapchainImage, TransitionToBlitTarget()).
		BlitImage(r.target, swapchainImage).
		TransitionImageLayout(swapchainImage, TransitionToPresent())

	if err := cb.End(); err != nil {
		return err
	}

	// The blit is the first use of the swapchain image, so acquisition only
	// needs to gate the transfer stage.
	return cb.Submit(r.Context.Device.Queue,
		[]vk.Semaphore{r.Context.ImageAvailable},
		[]vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTransferBit)},
		[]vk.Semaphore{r.Context.RenderFinished},
		r.Context.InFlight.Handle)
}

func (r *Renderer) recreateSwapchain(framebufferExtent func() (uint32, uint32)) error {
	width, height := framebufferExtent()
	if width == 0 || height == 0 {
		// Minimized; nothing to present until the window comes back.
		return nil
	}
	core.LogDebug("recreating swapchain at %dx%d", width, height)
	return r.Context.RecreateSwapchain(width, height)
}

func (r *Renderer) Destroy() {
	r.Context.Device.WaitIdle()
	r.target.Destroy(r.Context.Device.Handle)
}
