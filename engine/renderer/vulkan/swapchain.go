package vulkan

import (
	"fmt"

	"github.com/ashenvale/prism/engine/core"
	vk "github.com/goki/vulkan"
)

// Swapchain owns the vkSwapchain and wraps its images. The images belong to
// the driver; only their views are created and destroyed here.
type Swapchain struct {
	Handle vk.Swapchain
	Images []*VulkanImage
	Format vk.Format
	Extent vk.Extent2D
}

// chooseSurfaceFormat prefers BGRA8 sRGB, falling back to whatever the
// surface offers first.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode prefers mailbox, which never blocks and never tears.
// FIFO is the only mode the spec guarantees.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent clamps the framebuffer size into the surface's supported
// range. A current extent other than MaxUint32 is mandatory.
func chooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != ^uint32(0) {
		return capabilities.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampU32(width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clampU32(height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one image beyond the minimum so acquisition
// rarely blocks, respecting the maximum when the surface has one.
func chooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func NewSwapchain(device vk.Device, gpu vk.PhysicalDevice, surface vk.Surface, width, height uint32, old *Swapchain) (*Swapchain, error) {
	var capabilities vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &capabilities); res != vk.Success {
		err := fmt.Errorf("failed to query surface capabilities")
		core.LogError("%s", err.Error())
		return nil, err
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, formats)
	for i := range formats {
		formats[i].Deref()
	}

	var modeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, nil)
	modes := make([]vk.PresentMode, modeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, modes)

	surfaceFormat := chooseSurfaceFormat(formats)
	extent := chooseExtent(capabilities, width, height)

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    chooseImageCount(capabilities),
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      choosePresentMode(modes),
		Clipped:          vk.True,
	}
	if old != nil {
		createInfo.OldSwapchain = old.Handle
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(device, &createInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create %dx%d swapchain", extent.Width, extent.Height)
		core.LogError("%s", err.Error())
		return nil, err
	}

	var imageCount uint32
	vk.GetSwapchainImages(device, handle, &imageCount, nil)
	handles := make([]vk.Image, imageCount)
	vk.GetSwapchainImages(device, handle, &imageCount, handles)

	images := make([]*VulkanImage, imageCount)
	for i, h := range handles {
		image, err := ImageFromHandle(device, h, surfaceFormat.Format, extent.Width, extent.Height)
		if err != nil {
			return nil, err
		}
		images[i] = image
	}

	core.LogDebug("created %dx%d swapchain with %d images", extent.Width, extent.Height, imageCount)
	return &Swapchain{
		Handle: handle,
		Images: images,
		Format: surfaceFormat.Format,
		Extent: extent,
	}, nil
}

// AcquireNextImage returns the index of the next presentable image. When the
// surface has changed shape it returns ErrOutOfDate and the caller must
// recreate the swapchain.
func (s *Swapchain) AcquireNextImage(device vk.Device, semaphore vk.Semaphore) (uint32, error) {
	var index uint32
	res := vk.AcquireNextImage(device, s.Handle, vk.MaxUint64, semaphore, vk.NullFence, &index)
	switch res {
	case vk.Success, vk.Suboptimal:
		return index, nil
	case vk.ErrorOutOfDate:
		return 0, ErrOutOfDate
	default:
		err := fmt.Errorf("failed to acquire swapchain image")
		core.LogError("%s", err.Error())
		return 0, err
	}
}

// Present queues the image for display once the wait semaphore signals.
func (s *Swapchain) Present(queue vk.Queue, wait vk.Semaphore, imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	res := vk.QueuePresent(queue, &presentInfo)
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return ErrOutOfDate
	default:
		err := fmt.Errorf("failed to present swapchain image")
		core.LogError("%s", err.Error())
		return err
	}
}

// releaseImages runs destroy over the extent-dependent images and empties
// the list, so a repeated teardown finds nothing left to touch. Returns how
// many images were released.
func (s *Swapchain) releaseImages(destroy func(*VulkanImage)) int {
	released := len(s.Images)
	for _, image := range s.Images {
		destroy(image)
	}
	s.Images = nil
	return released
}

func (s *Swapchain) Destroy(device vk.Device) {
	s.releaseImages(func(image *VulkanImage) {
		image.Destroy(device)
	})
	vk.DestroySwapchain(device, s.Handle, nil)
}
