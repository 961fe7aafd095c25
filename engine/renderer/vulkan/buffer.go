package vulkan

import (
	"fmt"

	"github.com/ashenvale/prism/engine/core"
	vk "github.com/goki/vulkan"
)

// VulkanBuffer is a vkBuffer bound to a sub-range of an allocator heap.
type VulkanBuffer struct {
	Handle vk.Buffer
	Size   uint64

	allocator  *Allocator
	allocation *Allocation
}

func NewBuffer(device vk.Device, allocator *Allocator, size uint64, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(device, &createInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create %d byte buffer", size)
		core.LogError("%s", err.Error())
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	allocation, err := allocator.Allocate(requirements, properties)
	if err != nil {
		vk.DestroyBuffer(device, handle, nil)
		return nil, err
	}

	if res := vk.BindBufferMemory(device, handle, allocation.Memory(), vk.DeviceSize(allocation.Offset)); res != vk.Success {
		vk.DestroyBuffer(device, handle, nil)
		err := fmt.Errorf("failed to bind buffer memory at offset %d", allocation.Offset)
		core.LogError("%s", err.Error())
		return nil, err
	}

	return &VulkanBuffer{
		Handle:     handle,
		Size:       size,
		allocator:  allocator,
		allocation: allocation,
	}, nil
}

// NewBufferWithData creates a host visible buffer and uploads data into it.
func NewBufferWithData(device vk.Device, allocator *Allocator, data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	properties := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	buffer, err := NewBuffer(device, allocator, uint64(len(data)), usage, properties)
	if err != nil {
		return nil, err
	}
	if err := buffer.Upload(data, 0); err != nil {
		buffer.Destroy(device)
		return nil, err
	}
	return buffer, nil
}

// Upload writes data into the buffer at the given byte offset.
func (b *VulkanBuffer) Upload(data []byte, offset uint64) error {
	return b.allocator.Write(b.allocation, data, offset)
}

// Destroy releases the buffer. Both the handle and the backing memory go at
// the allocator's next flush, so an in-flight frame can still read it.
func (b *VulkanBuffer) Destroy(device vk.Device) {
	handle := b.Handle
	b.allocator.DeferDestroy(func() {
		vk.DestroyBuffer(device, handle, nil)
	})
	if err := b.allocator.Free(b.allocation); err != nil {
		core.LogError("buffer free failed: %s", err)
	}
}
