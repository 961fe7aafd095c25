package systems

import (
	"time"

	"github.com/ashenvale/prism/engine/renderer/vulkan"
	vk "github.com/goki/vulkan"
)

// Time tracks frame timing and owns the 8 byte uniform holding elapsed time
// and the last frame's delta, both in seconds.
type Time struct {
	lastFrame    time.Time
	currentFrame time.Time
	Elapsed      float32

	device vk.Device
	buffer *vulkan.VulkanBuffer
}

func NewTime(ctx *vulkan.VulkanContext) (*Time, error) {
	buffer, err := vulkan.NewBuffer(ctx.Device.Handle, ctx.Memory, 8,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Time{
		lastFrame:    now,
		currentFrame: now,
		device:       ctx.Device.Handle,
		buffer:       buffer,
	}, nil
}

// Delta returns the last frame's duration in seconds.
func (t *Time) Delta() float32 {
	return float32(t.currentFrame.Sub(t.lastFrame).Seconds())
}

// FrameFinished advances the clock at the end of a frame and uploads the
// new timing.
func (t *Time) FrameFinished() error {
	t.Elapsed += t.Delta()
	t.lastFrame = t.currentFrame
	t.currentFrame = time.Now()
	return t.buffer.Upload(packFrameTiming(t.Elapsed, t.Delta()), 0)
}

func packFrameTiming(elapsed, delta float32) []byte {
	var p packer
	p.f32(elapsed)
	p.f32(delta)
	return p.buf
}

func (t *Time) Buffer() *vulkan.VulkanBuffer {
	return t.buffer
}

func (t *Time) Destroy() {
	t.buffer.Destroy(t.device)
}
