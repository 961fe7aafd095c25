package vulkan

import (
	"fmt"

	"github.com/ashenvale/prism/engine/core"
	vk "github.com/goki/vulkan"
)

type CommandPool struct {
	Handle vk.CommandPool

	allocated []vk.CommandBuffer
}

func NewCommandPool(device vk.Device, queueFamilyIndex uint32) (*CommandPool, error) {
	createInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: queueFamilyIndex,
	}
	var handle vk.CommandPool
	if res := vk.CreateCommandPool(device, &createInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create command pool for queue family %d", queueFamilyIndex)
		core.LogError("%s", err.Error())
		return nil, err
	}
	return &CommandPool{Handle: handle}, nil
}

func (p *CommandPool) Allocate(device vk.Device) (*CommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.Handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(device, &allocateInfo, handles); res != vk.Success {
		err := fmt.Errorf("failed to allocate command buffer")
		core.LogError("%s", err.Error())
		return nil, err
	}
	p.allocated = append(p.allocated, handles[0])
	return &CommandBuffer{
		Handle: handles[0],
		State:  CommandBufferStateReady,
	}, nil
}

// Clear frees every buffer allocated from the pool in one call, for
// callers that reallocate rather than reset. Outstanding CommandBuffer
// values are invalid afterwards.
func (p *CommandPool) Clear(device vk.Device) {
	if len(p.allocated) == 0 {
		return
	}
	vk.FreeCommandBuffers(device, p.Handle, uint32(len(p.allocated)), p.allocated)
	p.allocated = nil
}

func (p *CommandPool) Destroy(device vk.Device) {
	vk.DestroyCommandPool(device, p.Handle, nil)
}

type CommandBufferState int

const (
	CommandBufferStateNotAllocated CommandBufferState = iota
	CommandBufferStateReady
	CommandBufferStateRecording
	CommandBufferStateInRenderPass
	CommandBufferStateRecordingEnded
	CommandBufferStateSubmitted
)

// CommandBuffer wraps a vkCommandBuffer with a recording state machine. The
// fluent recording methods carry a sticky error: the first misuse (recording
// without Begin, double Begin, submitting an open buffer) poisons the buffer
// and every later call is a no-op until Reset.
type CommandBuffer struct {
	Handle vk.CommandBuffer
	State  CommandBufferState

	err error
}

// Err returns the sticky recording error, if any.
func (c *CommandBuffer) Err() error {
	return c.err
}

// require checks the buffer is in the wanted state before an operation. On
// mismatch it records the sticky error and reports false, so the caller must
// not touch the vk handle.
func (c *CommandBuffer) require(state CommandBufferState, op string) bool {
	if c.err != nil {
		return false
	}
	if c.State != state {
		c.err = fmt.Errorf("%s on command buffer in state %d", op, c.State)
		core.LogError("%s", c.err.Error())
		return false
	}
	return true
}

func (c *CommandBuffer) Begin() *CommandBuffer {
	if !c.require(CommandBufferStateReady, "Begin") {
		return c
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if res := vk.BeginCommandBuffer(c.Handle, &beginInfo); res != vk.Success {
		c.err = fmt.Errorf("failed to begin command buffer")
		core.LogError("%s", c.err.Error())
		return c
	}
	c.State = CommandBufferStateRecording
	return c
}

// BeginRenderPass starts the pass on the framebuffer and sets the viewport
// and scissor to cover it.
func (c *CommandBuffer) BeginRenderPass(pass *RenderPass, framebuffer *Framebuffer) *CommandBuffer {
	if !c.require(CommandBufferStateRecording, "BeginRenderPass") {
		return c
	}
	clearValues := pass.clearValues()
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass.Handle,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: framebuffer.Width, Height: framebuffer.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(c.Handle, &beginInfo, vk.SubpassContentsInline)

	viewport := vk.Viewport{
		Width:    float32(framebuffer.Width),
		Height:   float32(framebuffer.Height),
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(c.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(c.Handle, 0, 1, []vk.Rect2D{{
		Extent: vk.Extent2D{Width: framebuffer.Width, Height: framebuffer.Height},
	}})

	c.State = CommandBufferStateInRenderPass
	return c
}

func (c *CommandBuffer) NextSubpass() *CommandBuffer {
	if !c.require(CommandBufferStateInRenderPass, "NextSubpass") {
		return c
	}
	vk.CmdNextSubpass(c.Handle, vk.SubpassContentsInline)
	return c
}

func (c *CommandBuffer) EndRenderPass() *CommandBuffer {
	if !c.require(CommandBufferStateInRenderPass, "EndRenderPass") {
		return c
	}
	vk.CmdEndRenderPass(c.Handle)
	c.State = CommandBufferStateRecording
	return c
}

func (c *CommandBuffer) BindComputePipeline(pipeline *Pipeline) *CommandBuffer {
	if !c.require(CommandBufferStateRecording, "BindComputePipeline") {
		return c
	}
	vk.CmdBindPipeline(c.Handle, vk.PipelineBindPointCompute, pipeline.Handle)
	return c
}

func (c *CommandBuffer) BindGraphicsPipeline(pipeline *Pipeline) *CommandBuffer {
	if !c.require(CommandBufferStateInRenderPass, "BindGraphicsPipeline") {
		return c
	}
	vk.CmdBindPipeline(c.Handle, vk.PipelineBindPointGraphics, pipeline.Handle)
	return c
}

// BindDescriptorSet binds the set at the given set index, at the pipeline's
// own bind point. Valid both inside and outside a render pass.
func (c *CommandBuffer) BindDescriptorSet(pipeline *Pipeline, firstSet uint32, set *DescriptorSet) *CommandBuffer {
	if c.err != nil {
		return c
	}
	if c.State != CommandBufferStateRecording && c.State != CommandBufferStateInRenderPass {
		c.err = fmt.Errorf("BindDescriptorSet on command buffer in state %d", c.State)
		core.LogError("%s", c.err.Error())
		return c
	}
	vk.CmdBindDescriptorSets(c.Handle, pipeline.BindPoint, pipeline.Layout, firstSet, 1,
		[]vk.DescriptorSet{set.Handle}, 0, nil)
	return c
}

func (c *CommandBuffer) BindVertexBuffer(buffer *VulkanBuffer) *CommandBuffer {
	if !c.require(CommandBufferStateInRenderPass, "BindVertexBuffer") {
		return c
	}
	vk.CmdBindVertexBuffers(c.Handle, 0, 1, []vk.Buffer{buffer.Handle}, []vk.DeviceSize{0})
	return c
}

func (c *CommandBuffer) BindIndexBuffer(buffer *VulkanBuffer) *CommandBuffer {
	if !c.require(CommandBufferStateInRenderPass, "BindIndexBuffer") {
		return c
	}
	vk.CmdBindIndexBuffer(c.Handle, buffer.Handle, 0, vk.IndexTypeUint32)
	return c
}

func (c *CommandBuffer) Draw(vertexCount uint32) *CommandBuffer {
	if !c.require(CommandBufferStateInRenderPass, "Draw") {
		return c
	}
	vk.CmdDraw(c.Handle, vertexCount, 1, 0, 0)
	return c
}

func (c *CommandBuffer) DrawIndexed(indexCount uint32) *CommandBuffer {
	if !c.require(CommandBufferStateInRenderPass, "DrawIndexed") {
		return c
	}
	vk.CmdDrawIndexed(c.Handle, indexCount, 1, 0, 0, 0)
	return c
}

func (c *CommandBuffer) Dispatch(x, y, z uint32) *CommandBuffer {
	if !c.require(CommandBufferStateRecording, "Dispatch") {
		return c
	}
	vk.CmdDispatch(c.Handle, x, y, z)
	return c
}

// TransitionLayoutOptions describes one image layout transition: the layout
// pair plus the access and stage masks on each side of the barrier.
type TransitionLayoutOptions struct {
	Old               vk.ImageLayout
	New               vk.ImageLayout
	SourceAccess      vk.AccessFlags
	DestinationAccess vk.AccessFlags
	SourceStage       vk.PipelineStageFlags
	DestinationStage  vk.PipelineStageFlags
}

func (c *CommandBuffer) TransitionImageLayout(image *VulkanImage, options TransitionLayoutOptions) *CommandBuffer {
	if !c.require(CommandBufferStateRecording, "TransitionImageLayout") {
		return c
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       options.SourceAccess,
		DstAccessMask:       options.DestinationAccess,
		OldLayout:           options.Old,
		NewLayout:           options.New,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(c.Handle, options.SourceStage, options.DestinationStage, 0,
		0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return c
}

// BlitImage stretches the whole of src onto the whole of dst with linear
// filtering. src must be in TransferSrcOptimal, dst in TransferDstOptimal.
func (c *CommandBuffer) BlitImage(src, dst *VulkanImage) *CommandBuffer {
	if !c.require(CommandBufferStateRecording, "BlitImage") {
		return c
	}
	subresource := vk.ImageSubresourceLayers{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LayerCount: 1,
	}
	blit := vk.ImageBlit{
		SrcSubresource: subresource,
		SrcOffsets: [2]vk.Offset3D{
			{},
			{X: int32(src.Width), Y: int32(src.Height), Z: 1},
		},
		DstSubresource: subresource,
		DstOffsets: [2]vk.Offset3D{
			{},
			{X: int32(dst.Width), Y: int32(dst.Height), Z: 1},
		},
	}
	vk.CmdBlitImage(c.Handle, src.Handle, vk.ImageLayoutTransferSrcOptimal,
		dst.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{blit}, vk.FilterLinear)
	return c
}

func (c *CommandBuffer) CopyBuffer(src, dst *VulkanBuffer, size uint64) *CommandBuffer {
	if !c.require(CommandBufferStateRecording, "CopyBuffer") {
		return c
	}
	region := vk.BufferCopy{Size: vk.DeviceSize(size)}
	vk.CmdCopyBuffer(c.Handle, src.Handle, dst.Handle, 1, []vk.BufferCopy{region})
	return c
}

// CopyBufferToImage copies tightly packed pixel data into the whole image.
// The image must be in TransferDstOptimal.
func (c *CommandBuffer) CopyBufferToImage(src *VulkanBuffer, dst *VulkanImage) *CommandBuffer {
	if !c.require(CommandBufferStateRecording, "CopyBufferToImage") {
		return c
	}
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: dst.Width, Height: dst.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(c.Handle, src.Handle, dst.Handle,
		vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	return c
}

// CopyImage copies src onto dst one to one. Extents must match; use
// BlitImage when they differ.
func (c *CommandBuffer) CopyImage(src, dst *VulkanImage) *CommandBuffer {
	if !c.require(CommandBufferStateRecording, "CopyImage") {
		return c
	}
	subresource := vk.ImageSubresourceLayers{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LayerCount: 1,
	}
	region := vk.ImageCopy{
		SrcSubresource: subresource,
		DstSubresource: subresource,
		Extent:         vk.Extent3D{Width: src.Width, Height: src.Height, Depth: 1},
	}
	vk.CmdCopyImage(c.Handle, src.Handle, vk.ImageLayoutTransferSrcOptimal,
		dst.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageCopy{region})
	return c
}

func (c *CommandBuffer) End() error {
	if !c.require(CommandBufferStateRecording, "End") {
		return c.err
	}
	if res := vk.EndCommandBuffer(c.Handle); res != vk.Success {
		c.err = fmt.Errorf("failed to end command buffer")
		core.LogError("%s", c.err.Error())
		return c.err
	}
	c.State = CommandBufferStateRecordingEnded
	return nil
}

// Submit queues the recorded commands. Wait semaphores gate the given
// stages; signal semaphores and the fence fire on completion.
func (c *CommandBuffer) Submit(queue vk.Queue, waits []vk.Semaphore, waitStages []vk.PipelineStageFlags, signals []vk.Semaphore, fence vk.Fence) error {
	if !c.require(CommandBufferStateRecordingEnded, "Submit") {
		return c.err
	}
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{c.Handle},
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}
	if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, fence); res != vk.Success {
		c.err = fmt.Errorf("failed to submit command buffer")
		core.LogError("%s", c.err.Error())
		return c.err
	}
	c.State = CommandBufferStateSubmitted
	return nil
}

// SubmitOneShot submits without synchronization primitives and blocks until
// the queue drains. For setup transfers only, never per frame.
func (c *CommandBuffer) SubmitOneShot(queue vk.Queue) error {
	if err := c.Submit(queue, nil, nil, nil, vk.NullFence); err != nil {
		return err
	}
	vk.QueueWaitIdle(queue)
	return nil
}

// Reset clears the recording and the sticky error so the buffer can record
// a new frame.
func (c *CommandBuffer) Reset() {
	vk.ResetCommandBuffer(c.Handle, 0)
	c.State = CommandBufferStateReady
	c.err = nil
}
