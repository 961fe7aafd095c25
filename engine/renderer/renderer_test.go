package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecreateSkipsWhileMinimized(t *testing.T) {
	r := &Renderer{}

	// A zero-sized framebuffer means the window is minimized; the swapchain
	// must be left alone until it comes back.
	err := r.recreateSwapchain(func() (uint32, uint32) { return 0, 0 })
	assert.NoError(t, err)
}
