package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestClearValuesColorOnly(t *testing.T) {
	pass := &RenderPass{options: RenderPassOptions{
		ColorFormat: vk.FormatB8g8r8a8Srgb,
	}}
	assert.Len(t, pass.clearValues(), 1)
}

func TestClearValuesWithDepth(t *testing.T) {
	pass := &RenderPass{options: RenderPassOptions{
		ColorFormat: vk.FormatB8g8r8a8Srgb,
		DepthFormat: vk.FormatD32Sfloat,
		ClearDepth:  1.0,
	}}
	assert.Len(t, pass.clearValues(), 2)
}

func TestShaderModuleRejectsBadBytecode(t *testing.T) {
	// Empty and non-word-sized bytecode are rejected before any device call.
	_, err := NewShaderModule(nil, nil)
	assert.Error(t, err)

	_, err = NewShaderModule(nil, make([]byte, 6))
	assert.Error(t, err)
}

func TestVertexAttributesOffsets(t *testing.T) {
	attributes := VertexAttributes(
		vk.FormatR32g32b32Sfloat,
		vk.FormatR32g32Sfloat,
		vk.FormatR32g32b32Sfloat,
	)

	assert.Len(t, attributes, 3)
	assert.Equal(t, uint32(0), attributes[0].Offset)
	assert.Equal(t, uint32(12), attributes[1].Offset)
	assert.Equal(t, uint32(20), attributes[2].Offset)
	for i, a := range attributes {
		assert.Equal(t, uint32(i), a.Location)
		assert.Equal(t, uint32(0), a.Binding)
	}
}
