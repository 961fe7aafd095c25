package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestChooseSurfaceFormatPrefersBGRASrgb(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	got := chooseSurfaceFormat(formats)
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, got.Format)
}

func TestChooseSurfaceFormatFallsBackToFirst(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	assert.Equal(t, formats[0], chooseSurfaceFormat(formats))
}

func TestChoosePresentMode(t *testing.T) {
	assert.Equal(t, vk.PresentModeMailbox,
		choosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}))
	assert.Equal(t, vk.PresentModeFifo,
		choosePresentMode([]vk.PresentMode{vk.PresentModeImmediate}))
}

func TestChooseExtentHonorsCurrentExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent: vk.Extent2D{Width: 800, Height: 600},
	}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, chooseExtent(caps, 1280, 720))
}

func TestChooseExtentClampsWhenSurfaceDefers(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: ^uint32(0), Height: ^uint32(0)},
		MinImageExtent: vk.Extent2D{Width: 320, Height: 240},
		MaxImageExtent: vk.Extent2D{Width: 1920, Height: 1080},
	}
	assert.Equal(t, vk.Extent2D{Width: 1280, Height: 720}, chooseExtent(caps, 1280, 720))
	assert.Equal(t, vk.Extent2D{Width: 320, Height: 240}, chooseExtent(caps, 100, 100))
	assert.Equal(t, vk.Extent2D{Width: 1920, Height: 1080}, chooseExtent(caps, 4000, 4000))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(3), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2}))
	assert.Equal(t, uint32(2), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}))
}

func TestRecreationReleasesImagesExactlyOnce(t *testing.T) {
	s := &Swapchain{Images: []*VulkanImage{{}, {}, {}}}

	destroyed := 0
	assert.Equal(t, 3, s.releaseImages(func(*VulkanImage) { destroyed++ }))
	assert.Equal(t, 3, destroyed)

	// The old swapchain is torn down once per recreation; a second pass over
	// it must find nothing.
	assert.Zero(t, s.releaseImages(func(*VulkanImage) { destroyed++ }))
	assert.Equal(t, 3, destroyed)
}
