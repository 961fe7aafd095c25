package systems

import (
	gomath "math"

	"github.com/ashenvale/prism/engine/math"
	"github.com/ashenvale/prism/engine/renderer/vulkan"
	vk "github.com/goki/vulkan"
)

// defaultZoom scales window pixels into world units for the orthographic
// projection.
const defaultZoom = 1000.0

// Camera owns the 128 byte view and projection uniform the scene shader
// reads.
type Camera struct {
	Eye    math.Vec3
	Target math.Vec3

	device vk.Device
	buffer *vulkan.VulkanBuffer
}

func NewCamera(ctx *vulkan.VulkanContext, width, height float32) (*Camera, error) {
	buffer, err := vulkan.NewBuffer(ctx.Device.Handle, ctx.Memory, 128,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	// The isometric angle: atan(1/sqrt(2)), about 35.264 degrees.
	c := &Camera{
		Eye:    math.Vec3{X: 0, Y: 5 * float32(gomath.Tan(35.264*gomath.Pi/180)), Z: 5},
		Target: math.Vec3{X: 0, Y: 0.5, Z: 0},
		device: ctx.Device.Handle,
		buffer: buffer,
	}
	if err := c.Update(width, height); err != nil {
		buffer.Destroy(ctx.Device.Handle)
		return nil, err
	}
	return c, nil
}

// Update recomputes the view and projection for the current window size and
// uploads them.
func (c *Camera) Update(width, height float32) error {
	view := math.NewMat4LookAt(c.Eye, c.Target, math.Vec3{X: 0, Y: 1, Z: 0})
	proj := math.NewMat4Orthographic(
		-width/defaultZoom, width/defaultZoom,
		-height/defaultZoom, height/defaultZoom,
		0.1, 100.0)
	// Vulkan's clip space Y points down.
	proj.Data[5] *= -1
	return c.buffer.Upload(packCamera(view, proj), 0)
}

// packCamera lays out view then projection, column major.
func packCamera(view, proj math.Mat4) []byte {
	var p packer
	p.mat4(view)
	p.mat4(proj)
	return p.buf
}

func (c *Camera) Buffer() *vulkan.VulkanBuffer {
	return c.buffer
}

func (c *Camera) Destroy() {
	c.buffer.Destroy(c.device)
}
