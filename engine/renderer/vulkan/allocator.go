package vulkan

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ashenvale/prism/engine/core"
	vk "github.com/goki/vulkan"
)

// region is an occupied span of a heap. The id is monotonic and never
// reused, so a stale free of a recycled offset still names the old occupant.
type region struct {
	id     uint64
	Offset uint64
	Size   uint64
}

// heap is a single vkAllocateMemory block of one memory type, carved into
// regions by the allocator. Host visible heaps stay persistently mapped.
type heap struct {
	handle          vk.DeviceMemory
	size            uint64
	memoryTypeIndex uint32
	hostVisible     bool
	mapped          unsafe.Pointer

	// regions is kept sorted by offset so free space is the gaps between
	// consecutive entries.
	regions      []region
	pendingFrees []uint64
	nextID       uint64
}

func alignUp(value, alignment uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) / alignment * alignment
}

// findRegion returns the offset of the first gap that fits size bytes at the
// given alignment, scanning gaps in offset order.
func (h *heap) findRegion(size, alignment uint64) (uint64, error) {
	cursor := uint64(0)
	for _, r := range h.regions {
		candidate := alignUp(cursor, alignment)
		if candidate+size <= r.Offset {
			return candidate, nil
		}
		cursor = r.Offset + r.Size
	}
	candidate := alignUp(cursor, alignment)
	if candidate+size <= h.size {
		return candidate, nil
	}
	return 0, ErrHeapExhausted
}

// claim reserves a region and returns it.
func (h *heap) claim(size, alignment uint64) (region, error) {
	offset, err := h.findRegion(size, alignment)
	if err != nil {
		return region{}, err
	}

	h.nextID++
	claimed := region{id: h.nextID, Offset: offset, Size: size}
	insert := len(h.regions)
	for i, r := range h.regions {
		if r.Offset > offset {
			insert = i
			break
		}
	}
	h.regions = append(h.regions, region{})
	copy(h.regions[insert+1:], h.regions[insert:])
	h.regions[insert] = claimed
	return claimed, nil
}

// release marks the region with the given id for removal at the next flush.
// Freeing an id that is unknown, already flushed, or already pending is an
// error; ids are never reused, so a stale free after the region's offset has
// been handed out again cannot touch the new occupant.
func (h *heap) release(id uint64) error {
	for _, pending := range h.pendingFrees {
		if pending == id {
			return ErrDoubleFree
		}
	}
	for _, r := range h.regions {
		if r.id == id {
			h.pendingFrees = append(h.pendingFrees, id)
			return nil
		}
	}
	return ErrDoubleFree
}

// flush removes every pending region. Deferred so that memory freed while a
// frame is still in flight is not handed out before the GPU is done with it.
func (h *heap) flush() {
	for _, id := range h.pendingFrees {
		for i, r := range h.regions {
			if r.id == id {
				h.regions = append(h.regions[:i], h.regions[i+1:]...)
				break
			}
		}
	}
	h.pendingFrees = h.pendingFrees[:0]
}

// Allocation is a sub-range of a heap handed to a buffer or image. The ID
// identifies it for freeing; offsets are recycled between frames, IDs never.
type Allocation struct {
	heap   *heap
	ID     uint64
	Offset uint64
	Size   uint64
}

// Memory returns the backing vkDeviceMemory handle.
func (a *Allocation) Memory() vk.DeviceMemory {
	return a.heap.handle
}

// Allocator hands out sub-ranges of large per-memory-type heaps instead of
// one vkAllocateMemory per resource, keeping well under the device's
// maxMemoryAllocationCount.
type Allocator struct {
	device   vk.Device
	heapSize uint64

	memoryProperties vk.PhysicalDeviceMemoryProperties

	mu              sync.Mutex
	heaps           []*heap
	pendingDestroys []func()
}

func NewAllocator(device vk.Device, gpu vk.PhysicalDevice, heapSize uint64) *Allocator {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(gpu, &props)
	props.Deref()

	return &Allocator{
		device:           device,
		heapSize:         heapSize,
		memoryProperties: props,
	}
}

func (a *Allocator) findMemoryTypeIndex(typeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < a.memoryProperties.MemoryTypeCount; i++ {
		a.memoryProperties.MemoryTypes[i].Deref()
		flags := a.memoryProperties.MemoryTypes[i].PropertyFlags
		if typeBits&(1<<i) != 0 && flags&properties == properties {
			return i, nil
		}
	}
	return 0, ErrNoCompatibleHeap
}

func (a *Allocator) heapFor(memoryTypeIndex uint32, hostVisible bool) (*heap, error) {
	for _, h := range a.heaps {
		if h.memoryTypeIndex == memoryTypeIndex {
			return h, nil
		}
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(a.heapSize),
		MemoryTypeIndex: memoryTypeIndex,
	}
	var handle vk.DeviceMemory
	if res := vk.AllocateMemory(a.device, &allocateInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to allocate %d byte heap for memory type %d", a.heapSize, memoryTypeIndex)
		core.LogError("%s", err.Error())
		return nil, err
	}

	h := &heap{
		handle:          handle,
		size:            a.heapSize,
		memoryTypeIndex: memoryTypeIndex,
		hostVisible:     hostVisible,
	}
	if hostVisible {
		var mapped unsafe.Pointer
		if res := vk.MapMemory(a.device, handle, 0, vk.DeviceSize(a.heapSize), 0, &mapped); res != vk.Success {
			vk.FreeMemory(a.device, handle, nil)
			err := fmt.Errorf("failed to map heap for memory type %d", memoryTypeIndex)
			core.LogError("%s", err.Error())
			return nil, err
		}
		h.mapped = mapped
	}

	a.heaps = append(a.heaps, h)
	core.LogDebug("allocated %d byte heap for memory type %d", a.heapSize, memoryTypeIndex)
	return h, nil
}

// Allocate reserves memory satisfying the given requirements and property
// flags. The requirements must already be dereferenced.
func (a *Allocator) Allocate(requirements vk.MemoryRequirements, properties vk.MemoryPropertyFlags) (*Allocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	memoryTypeIndex, err := a.findMemoryTypeIndex(requirements.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}

	hostVisible := properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
	h, err := a.heapFor(memoryTypeIndex, hostVisible)
	if err != nil {
		return nil, err
	}

	claimed, err := h.claim(uint64(requirements.Size), uint64(requirements.Alignment))
	if err != nil {
		return nil, err
	}
	return &Allocation{heap: h, ID: claimed.id, Offset: claimed.Offset, Size: uint64(requirements.Size)}, nil
}

// Write copies data into the allocation at the given offset. The write is
// bounds checked against the allocation before any memory is touched.
func (a *Allocator) Write(alloc *Allocation, data []byte, offset uint64) error {
	if offset+uint64(len(data)) > alloc.Size {
		return fmt.Errorf("%w: %d bytes at offset %d into %d byte allocation",
			ErrWriteOverflow, len(data), offset, alloc.Size)
	}
	if !alloc.heap.hostVisible {
		return ErrNotHostVisible
	}

	dst := unsafe.Pointer(uintptr(alloc.heap.mapped) + uintptr(alloc.Offset+offset))
	vk.Memcopy(dst, data)
	return nil
}

// Free marks the allocation for release. The region is not reusable until
// FlushFrees runs at the start of the next frame.
func (a *Allocator) Free(alloc *Allocation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return alloc.heap.release(alloc.ID)
}

// DeferDestroy runs fn at the next FlushFrees, after the in-flight fence has
// signalled, so a handle still referenced by a recorded frame outlives its
// execution.
func (a *Allocator) DeferDestroy(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingDestroys = append(a.pendingDestroys, fn)
}

// FlushFrees releases every allocation and handle freed since the previous
// flush. Called once per frame, after the in-flight fence has signalled.
func (a *Allocator) FlushFrees() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, fn := range a.pendingDestroys {
		fn()
	}
	a.pendingDestroys = nil
	for _, h := range a.heaps {
		h.flush()
	}
}

func (a *Allocator) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, fn := range a.pendingDestroys {
		fn()
	}
	a.pendingDestroys = nil
	for _, h := range a.heaps {
		if h.mapped != nil {
			vk.UnmapMemory(a.device, h.handle)
		}
		vk.FreeMemory(a.device, h.handle, nil)
	}
	a.heaps = nil
}
