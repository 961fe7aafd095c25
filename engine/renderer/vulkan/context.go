package vulkan

import (
	"fmt"
	"time"

	"github.com/ashenvale/prism/engine/core"
	vk "github.com/goki/vulkan"
)

// VulkanContext owns the device, swapchain and per-frame synchronization
// primitives, and drives the start and end of each frame. One frame is in
// flight at a time.
type VulkanContext struct {
	Device      *Device
	Surface     vk.Surface
	Swapchain   *Swapchain
	CommandPool *CommandPool
	Memory      *Allocator

	InFlight       *VulkanFence
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore

	frameTimeout time.Duration
}

type ContextOptions struct {
	ApplicationName    string
	InstanceExtensions []string
	CreateSurface      func(vk.Instance) (vk.Surface, error)
	Width              uint32
	Height             uint32
	HeapSize           uint64
	FrameTimeout       time.Duration
}

func NewContext(options ContextOptions) (*VulkanContext, error) {
	device, surface, err := NewDevice(options.ApplicationName, options.InstanceExtensions, options.CreateSurface)
	if err != nil {
		return nil, err
	}

	swapchain, err := NewSwapchain(device.Handle, device.GPU, surface, options.Width, options.Height, nil)
	if err != nil {
		return nil, err
	}

	commandPool, err := NewCommandPool(device.Handle, device.QueueFamilyIndex)
	if err != nil {
		return nil, err
	}

	// Signaled so the first StartFrame does not wait on a frame that never
	// ran.
	inFlight, err := NewFence(device.Handle, true)
	if err != nil {
		return nil, err
	}

	imageAvailable, err := newSemaphore(device.Handle)
	if err != nil {
		return nil, err
	}
	renderFinished, err := newSemaphore(device.Handle)
	if err != nil {
		return nil, err
	}

	return &VulkanContext{
		Device:         device,
		Surface:        surface,
		Swapchain:      swapchain,
		CommandPool:    commandPool,
		Memory:         NewAllocator(device.Handle, device.GPU, options.HeapSize),
		InFlight:       inFlight,
		ImageAvailable: imageAvailable,
		RenderFinished: renderFinished,
		frameTimeout:   options.FrameTimeout,
	}, nil
}

func newSemaphore(device vk.Device) (vk.Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var handle vk.Semaphore
	if res := vk.CreateSemaphore(device, &createInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create semaphore")
		core.LogError("%s", err.Error())
		return vk.NullSemaphore, err
	}
	return handle, nil
}

// StartFrame waits for the previous frame to finish, releases memory freed
// during it, and acquires the next swapchain image. The fence is only reset
// after a successful acquire, so an out of date swapchain does not deadlock
// the following frame.
func (c *VulkanContext) StartFrame() (uint32, error) {
	if err := c.InFlight.Wait(c.Device.Handle, c.frameTimeout); err != nil {
		return 0, err
	}
	c.Memory.FlushFrees()

	imageIndex, err := c.Swapchain.AcquireNextImage(c.Device.Handle, c.ImageAvailable)
	if err != nil {
		return 0, err
	}
	c.InFlight.Reset(c.Device.Handle)
	return imageIndex, nil
}

// EndFrame presents the image once rendering has signalled RenderFinished.
func (c *VulkanContext) EndFrame(imageIndex uint32) error {
	return c.Swapchain.Present(c.Device.Queue, c.RenderFinished, imageIndex)
}

// UploadPixels fills the image with tightly packed pixel data through a
// staging buffer and leaves it in shader read only layout. Blocks until the
// transfer completes; setup transfers only.
func (c *VulkanContext) UploadPixels(image *VulkanImage, pixels []byte) error {
	staging, err := NewBufferWithData(c.Device.Handle, c.Memory, pixels,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return err
	}
	defer staging.Destroy(c.Device.Handle)

	cb, err := c.CommandPool.Allocate(c.Device.Handle)
	if err != nil {
		return err
	}

	cb.Begin().
		TransitionImageLayout(image, TransitionLayoutOptions{
			Old:               vk.ImageLayoutUndefined,
			New:               vk.ImageLayoutTransferDstOptimal,
			DestinationAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			SourceStage:       vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			DestinationStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}).
		CopyBufferToImage(staging, image).
		TransitionImageLayout(image, TransitionLayoutOptions{
			Old:               vk.ImageLayoutTransferDstOptimal,
			New:               vk.ImageLayoutShaderReadOnlyOptimal,
			SourceAccess:      vk.AccessFlags(vk.AccessTransferWriteBit),
			DestinationAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			SourceStage:       vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			DestinationStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		})
	if err := cb.End(); err != nil {
		return err
	}
	return cb.SubmitOneShot(c.Device.Queue)
}

// RecreateSwapchain rebuilds the swapchain for a new surface size. The old
// swapchain is handed to the new one so in-flight presents can finish.
func (c *VulkanContext) RecreateSwapchain(width, height uint32) error {
	c.Device.WaitIdle()

	old := c.Swapchain
	swapchain, err := NewSwapchain(c.Device.Handle, c.Device.GPU, c.Surface, width, height, old)
	if err != nil {
		return err
	}
	old.Destroy(c.Device.Handle)
	c.Swapchain = swapchain
	return nil
}

func (c *VulkanContext) Destroy() {
	c.Device.WaitIdle()

	vk.DestroySemaphore(c.Device.Handle, c.RenderFinished, nil)
	vk.DestroySemaphore(c.Device.Handle, c.ImageAvailable, nil)
	c.InFlight.Destroy(c.Device.Handle)
	c.CommandPool.Destroy(c.Device.Handle)
	c.Swapchain.Destroy(c.Device.Handle)
	c.Memory.FlushFrees()
	c.Memory.Destroy()
	c.Device.Destroy(c.Surface)
}
