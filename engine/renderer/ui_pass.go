package renderer

import (
	"github.com/ashenvale/prism/engine/assets"
	"github.com/ashenvale/prism/engine/renderer/vulkan"
	vk "github.com/goki/vulkan"
)

// UIPass draws the overlay on top of the rendered scene. It runs as a
// compute pass over the same render target, after the geometry pass.
type UIPass struct {
	device   vk.Device
	layout   *vulkan.SetLayout
	pool     *vulkan.DescriptorPool
	pipeline *vulkan.Pipeline
	set      *vulkan.DescriptorSet
}

// NewUIPass builds the pass around ui.comp.spv. Binding 0 is the render
// target, binding 1 the frame timing buffer.
func NewUIPass(ctx *vulkan.VulkanContext, shaders *assets.ShaderRegistry, target *vulkan.VulkanImage, timeBuffer *vulkan.VulkanBuffer) (*UIPass, error) {
	device := ctx.Device.Handle

	layout, err := vulkan.NewSetLayoutBuilder().
		Add(vk.DescriptorTypeStorageImage).
		Add(vk.DescriptorTypeUniformBuffer).
		Build(device)
	if err != nil {
		return nil, err
	}

	pool, err := vulkan.NewDescriptorPool(device, []*vulkan.SetLayout{layout}, 1)
	if err != nil {
		layout.Destroy(device)
		return nil, err
	}

	shader, err := shaders.Load(device, "ui.comp.spv")
	if err != nil {
		pool.Destroy(device)
		layout.Destroy(device)
		return nil, err
	}
	defer shader.Destroy(device)

	pipeline, err := vulkan.NewComputePipeline(device, shader, "main", []*vulkan.SetLayout{layout})
	if err != nil {
		pool.Destroy(device)
		layout.Destroy(device)
		return nil, err
	}

	set, err := pool.Allocate(device, layout)
	if err != nil {
		pipeline.Destroy(device)
		pool.Destroy(device)
		layout.Destroy(device)
		return nil, err
	}
	set.UpdateStorageImage(device, 0, target)
	set.UpdateBuffer(device, 1, vk.DescriptorTypeUniformBuffer, timeBuffer)

	return &UIPass{
		device:   device,
		layout:   layout,
		pool:     pool,
		pipeline: pipeline,
		set:      set,
	}, nil
}

func (p *UIPass) Record(cb *vulkan.CommandBuffer, target *vulkan.VulkanImage) {
	cb.BindComputePipeline(p.pipeline).
		BindDescriptorSet(p.pipeline, 0, p.set).
		Dispatch(vulkan.WorkgroupCount(target.Width, 16), vulkan.WorkgroupCount(target.Height, 16), 1)
}

func (p *UIPass) Destroy() {
	p.pipeline.Destroy(p.device)
	p.pool.Destroy(p.device)
	p.layout.Destroy(p.device)
}
