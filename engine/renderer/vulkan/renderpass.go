package vulkan

import (
	"fmt"

	"github.com/ashenvale/prism/engine/core"
	vk "github.com/goki/vulkan"
)

// RenderPassOptions configures a single-subpass render pass. DepthFormat set
// to FormatUndefined disables the depth attachment.
type RenderPassOptions struct {
	ColorFormat vk.Format
	DepthFormat vk.Format

	// FinalLayout is where the color attachment ends up after the pass,
	// PresentSrc when rendering straight to a swapchain image.
	FinalLayout vk.ImageLayout

	ClearColor [4]float32
	ClearDepth float32
}

// RenderPass is a color pass with an optional depth attachment, for
// collaborators that rasterize instead of dispatching compute.
type RenderPass struct {
	Handle  vk.RenderPass
	options RenderPassOptions
}

func NewRenderPass(device vk.Device, options RenderPassOptions) (*RenderPass, error) {
	colorAttachment := vk.AttachmentDescription{
		Format:         options.ColorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    options.FinalLayout,
	}
	attachments := []vk.AttachmentDescription{colorAttachment}

	colorReference := []vk.AttachmentReference{
		{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal},
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorReference,
	}

	if options.DepthFormat != vk.FormatUndefined {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         options.DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(device, &createInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create render pass")
		core.LogError("%s", err.Error())
		return nil, err
	}
	return &RenderPass{Handle: handle, options: options}, nil
}

// clearValues returns the pass's clear values, one per attachment.
func (r *RenderPass) clearValues() []vk.ClearValue {
	values := make([]vk.ClearValue, 1, 2)
	values[0].SetColor(r.options.ClearColor[:])
	if r.options.DepthFormat != vk.FormatUndefined {
		var depth vk.ClearValue
		depth.SetDepthStencil(r.options.ClearDepth, 0)
		values = append(values, depth)
	}
	return values
}

func (r *RenderPass) Destroy(device vk.Device) {
	vk.DestroyRenderPass(device, r.Handle, nil)
}

// Framebuffer binds concrete image views to a render pass for one target
// extent. Extent-dependent: destroyed and recreated on swapchain recreation.
type Framebuffer struct {
	Handle vk.Framebuffer
	Width  uint32
	Height uint32
}

func NewFramebuffer(device vk.Device, renderPass *RenderPass, width, height uint32, attachments []vk.ImageView) (*Framebuffer, error) {
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass.Handle,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(device, &createInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create %dx%d framebuffer", width, height)
		core.LogError("%s", err.Error())
		return nil, err
	}
	return &Framebuffer{Handle: handle, Width: width, Height: height}, nil
}

func (f *Framebuffer) Destroy(device vk.Device) {
	vk.DestroyFramebuffer(device, f.Handle, nil)
}
