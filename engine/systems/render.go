package systems

import (
	"weak"

	"github.com/ashenvale/prism/engine/assets"
	"github.com/ashenvale/prism/engine/math"
	"github.com/ashenvale/prism/engine/renderer/vulkan"
	vk "github.com/goki/vulkan"
)

// RenderObject is one placement of a model in the scene.
type RenderObject struct {
	Model     *assets.Model
	Transform math.Transform
}

// Renderable contributes geometry to the frame.
type Renderable interface {
	RenderObjects() []RenderObject
}

// Emissive contributes lights to the frame.
type Emissive interface {
	Lights() []Light
}

// System aggregates the scene into storage buffers and records the geometry
// pass. Renderables and emissives are held weakly: dropping the last strong
// reference to an entity removes it from the scene on the next aggregation.
type System struct {
	ctx *vulkan.VulkanContext

	frameLayout    *vulkan.SetLayout
	geometryLayout *vulkan.SetLayout
	pool           *vulkan.DescriptorPool
	frameSet       *vulkan.DescriptorSet
	geometrySet    *vulkan.DescriptorSet
	pipeline       *vulkan.Pipeline

	renderables []func() (Renderable, bool)
	emissives   []func() (Emissive, bool)

	geometryBuffers []*vulkan.VulkanBuffer
}

// NewSystem wires the scene shader's two descriptor sets: set 0 carries the
// per-frame camera and timing uniforms, set 1 the render target and the
// five aggregated geometry buffers.
func NewSystem(ctx *vulkan.VulkanContext, shaders *assets.ShaderRegistry, target *vulkan.VulkanImage, camera *Camera, frameTime *Time) (*System, error) {
	device := ctx.Device.Handle

	frameLayout, err := vulkan.NewSetLayoutBuilder().
		Add(vk.DescriptorTypeUniformBuffer).
		Add(vk.DescriptorTypeUniformBuffer).
		Build(device)
	if err != nil {
		return nil, err
	}

	geometryLayout, err := vulkan.NewSetLayoutBuilder().
		Add(vk.DescriptorTypeStorageImage).
		Add(vk.DescriptorTypeStorageBuffer).
		Add(vk.DescriptorTypeStorageBuffer).
		Add(vk.DescriptorTypeStorageBuffer).
		Add(vk.DescriptorTypeStorageBuffer).
		Add(vk.DescriptorTypeStorageBuffer).
		Build(device)
	if err != nil {
		return nil, err
	}

	pool, err := vulkan.NewDescriptorPool(device, []*vulkan.SetLayout{frameLayout, geometryLayout}, 1)
	if err != nil {
		return nil, err
	}

	frameSet, err := pool.Allocate(device, frameLayout)
	if err != nil {
		return nil, err
	}
	frameSet.UpdateBuffer(device, 0, vk.DescriptorTypeUniformBuffer, camera.Buffer())
	frameSet.UpdateBuffer(device, 1, vk.DescriptorTypeUniformBuffer, frameTime.Buffer())

	geometrySet, err := pool.Allocate(device, geometryLayout)
	if err != nil {
		return nil, err
	}
	geometrySet.UpdateStorageImage(device, 0, target)

	shader, err := shaders.Load(device, "scene.comp.spv")
	if err != nil {
		return nil, err
	}
	defer shader.Destroy(device)

	pipeline, err := vulkan.NewComputePipeline(device, shader, "main",
		[]*vulkan.SetLayout{frameLayout, geometryLayout})
	if err != nil {
		return nil, err
	}

	return &System{
		ctx:            ctx,
		frameLayout:    frameLayout,
		geometryLayout: geometryLayout,
		pool:           pool,
		frameSet:       frameSet,
		geometrySet:    geometrySet,
		pipeline:       pipeline,
	}, nil
}

// AddRenderable registers a renderable without keeping it alive.
func AddRenderable[T any, PT interface {
	*T
	Renderable
}](s *System, renderable PT) {
	ref := weak.Make((*T)(renderable))
	s.renderables = append(s.renderables, func() (Renderable, bool) {
		if p := ref.Value(); p != nil {
			return PT(p), true
		}
		return nil, false
	})
}

// AddEmissive registers a light source without keeping it alive.
func AddEmissive[T any, PT interface {
	*T
	Emissive
}](s *System, emissive PT) {
	ref := weak.Make((*T)(emissive))
	s.emissives = append(s.emissives, func() (Emissive, bool) {
		if p := ref.Value(); p != nil {
			return PT(p), true
		}
		return nil, false
	})
}

// collectObjects upgrades every weak renderable, drops the dead ones and
// gathers the survivors' objects.
func (s *System) collectObjects() []RenderObject {
	kept := s.renderables[:0]
	var objects []RenderObject
	for _, upgrade := range s.renderables {
		renderable, ok := upgrade()
		if !ok {
			continue
		}
		kept = append(kept, upgrade)
		objects = append(objects, renderable.RenderObjects()...)
	}
	s.renderables = kept
	return objects
}

func (s *System) collectLights() []Light {
	kept := s.emissives[:0]
	var lights []Light
	for _, upgrade := range s.emissives {
		emissive, ok := upgrade()
		if !ok {
			continue
		}
		kept = append(kept, upgrade)
		lights = append(lights, emissive.Lights()...)
	}
	s.emissives = kept
	return lights
}

// nonEmpty substitutes a small zeroed buffer for empty data, since Vulkan
// forbids zero size buffers.
func nonEmpty(data []byte) []byte {
	if len(data) == 0 {
		return make([]byte, 16)
	}
	return data
}

// SetGeometry rebuilds the aggregated scene buffers and points the geometry
// set at them. The previous buffers are destroyed afterwards; their memory
// is only reused once the in-flight frame has finished.
func (s *System) SetGeometry(registry *assets.ModelRegistry) error {
	data, err := buildGeometry(registry.Models(), s.collectObjects(), s.collectLights())
	if err != nil {
		return err
	}

	device := s.ctx.Device.Handle
	usage := vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)

	contents := [][]byte{data.Vertices, data.Indices, data.Meshes, data.Materials, data.Lights}
	buffers := make([]*vulkan.VulkanBuffer, 0, len(contents))
	for _, c := range contents {
		buffer, err := vulkan.NewBufferWithData(device, s.ctx.Memory, nonEmpty(c), usage)
		if err != nil {
			for _, b := range buffers {
				b.Destroy(device)
			}
			return err
		}
		buffers = append(buffers, buffer)
	}

	for i, buffer := range buffers {
		s.geometrySet.UpdateBuffer(device, uint32(i+1), vk.DescriptorTypeStorageBuffer, buffer)
	}

	for _, old := range s.geometryBuffers {
		old.Destroy(device)
	}
	s.geometryBuffers = buffers
	return nil
}

// Record adds the geometry pass to the frame's command buffer.
func (s *System) Record(cb *vulkan.CommandBuffer, target *vulkan.VulkanImage) {
	cb.BindComputePipeline(s.pipeline).
		BindDescriptorSet(s.pipeline, 0, s.frameSet).
		BindDescriptorSet(s.pipeline, 1, s.geometrySet).
		Dispatch(vulkan.WorkgroupCount(target.Width, 16), vulkan.WorkgroupCount(target.Height, 16), 1)
}

func (s *System) Destroy() {
	device := s.ctx.Device.Handle
	for _, buffer := range s.geometryBuffers {
		buffer.Destroy(device)
	}
	s.pipeline.Destroy(device)
	s.pool.Destroy(device)
	s.geometryLayout.Destroy(device)
	s.frameLayout.Destroy(device)
}
