package vulkan

import (
	"fmt"

	"github.com/ashenvale/prism/engine/core"
	vk "github.com/goki/vulkan"
)

// SetLayoutBuilder collects bindings for a descriptor set layout. Bindings
// are numbered in the order they are added. Every binding is visible to all
// shader stages so one layout serves compute and graphics passes alike.
type SetLayoutBuilder struct {
	descriptorTypes []vk.DescriptorType
}

func NewSetLayoutBuilder() *SetLayoutBuilder {
	return &SetLayoutBuilder{}
}

func (b *SetLayoutBuilder) Add(descriptorType vk.DescriptorType) *SetLayoutBuilder {
	b.descriptorTypes = append(b.descriptorTypes, descriptorType)
	return b
}

func (b *SetLayoutBuilder) Build(device vk.Device) (*SetLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(b.descriptorTypes))
	for i, descriptorType := range b.descriptorTypes {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  descriptorType,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAll),
		}
	}

	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var handle vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(device, &createInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout with %d bindings", len(bindings))
		core.LogError("%s", err.Error())
		return nil, err
	}

	return &SetLayout{
		Handle:          handle,
		DescriptorTypes: b.descriptorTypes,
	}, nil
}

// SetLayout is a descriptor set layout plus the binding types it was built
// from, kept so the pool can size itself.
type SetLayout struct {
	Handle          vk.DescriptorSetLayout
	DescriptorTypes []vk.DescriptorType
}

func (l *SetLayout) Destroy(device vk.Device) {
	vk.DestroyDescriptorSetLayout(device, l.Handle, nil)
}

// descriptorPoolSizes tallies the descriptor counts needed to allocate each
// layout capacity times, keyed by type in order of first appearance.
func descriptorPoolSizes(layouts [][]vk.DescriptorType, capacity uint32) []vk.DescriptorPoolSize {
	var order []vk.DescriptorType
	counts := map[vk.DescriptorType]uint32{}
	for _, layout := range layouts {
		for _, descriptorType := range layout {
			if _, seen := counts[descriptorType]; !seen {
				order = append(order, descriptorType)
			}
			counts[descriptorType] += capacity
		}
	}

	sizes := make([]vk.DescriptorPoolSize, len(order))
	for i, descriptorType := range order {
		sizes[i] = vk.DescriptorPoolSize{
			Type:            descriptorType,
			DescriptorCount: counts[descriptorType],
		}
	}
	return sizes
}

// DescriptorPool allocates sets for a fixed family of layouts, each up to
// capacity times over the pool's lifetime.
type DescriptorPool struct {
	Handle vk.DescriptorPool

	capacity  uint32
	allocated uint32
}

func NewDescriptorPool(device vk.Device, layouts []*SetLayout, capacity uint32) (*DescriptorPool, error) {
	descriptorTypes := make([][]vk.DescriptorType, len(layouts))
	for i, layout := range layouts {
		descriptorTypes[i] = layout.DescriptorTypes
	}
	sizes := descriptorPoolSizes(descriptorTypes, capacity)

	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       capacity * uint32(len(layouts)),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var handle vk.DescriptorPool
	if res := vk.CreateDescriptorPool(device, &createInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool for %d layouts", len(layouts))
		core.LogError("%s", err.Error())
		return nil, err
	}

	return &DescriptorPool{
		Handle:   handle,
		capacity: capacity * uint32(len(layouts)),
	}, nil
}

// Allocate hands out one set of the given layout, or ErrPoolExhausted once
// the pool's set budget is spent.
func (p *DescriptorPool) Allocate(device vk.Device, layout *SetLayout) (*DescriptorSet, error) {
	if p.allocated >= p.capacity {
		return nil, ErrPoolExhausted
	}

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.Handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.Handle},
	}
	var handle vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(device, &allocateInfo, &handle); res != vk.Success {
		err := fmt.Errorf("failed to allocate descriptor set")
		core.LogError("%s", err.Error())
		return nil, err
	}
	p.allocated++

	return &DescriptorSet{Handle: handle}, nil
}

func (p *DescriptorPool) Destroy(device vk.Device) {
	vk.DestroyDescriptorPool(device, p.Handle, nil)
}

type DescriptorSet struct {
	Handle vk.DescriptorSet
}

// UpdateBuffer points the binding at the whole of the given buffer.
func (s *DescriptorSet) UpdateBuffer(device vk.Device, binding uint32, descriptorType vk.DescriptorType, buffer *VulkanBuffer) {
	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: buffer.Handle,
		Offset: 0,
		Range:  vk.DeviceSize(buffer.Size),
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.Handle,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  descriptorType,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	vk.UpdateDescriptorSets(device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// UpdateStorageImage points the binding at the image view in general layout.
func (s *DescriptorSet) UpdateStorageImage(device vk.Device, binding uint32, image *VulkanImage) {
	imageInfo := vk.DescriptorImageInfo{
		ImageView:   image.View,
		ImageLayout: vk.ImageLayoutGeneral,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.Handle,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageImage,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	vk.UpdateDescriptorSets(device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// UpdateTexture points the binding at a sampled texture.
func (s *DescriptorSet) UpdateTexture(device vk.Device, binding uint32, texture *VulkanTexture, layout vk.ImageLayout) {
	imageInfo := vk.DescriptorImageInfo{
		Sampler:     texture.Sampler,
		ImageView:   texture.Image.View,
		ImageLayout: layout,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.Handle,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	vk.UpdateDescriptorSets(device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}
