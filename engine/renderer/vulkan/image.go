package vulkan

import (
	"fmt"

	"github.com/ashenvale/prism/engine/core"
	vk "github.com/goki/vulkan"
)

// VulkanImage is a vkImage with its view. Images created through NewImage
// own their memory; images wrapped with ImageFromHandle borrow the
// swapchain's and are never freed here.
type VulkanImage struct {
	Handle vk.Image
	View   vk.ImageView
	Format vk.Format
	Width  uint32
	Height uint32

	allocator  *Allocator
	allocation *Allocation
}

func NewImage(device vk.Device, allocator *Allocator, width, height uint32, format vk.Format, usage vk.ImageUsageFlags) (*VulkanImage, error) {
	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var handle vk.Image
	if res := vk.CreateImage(device, &createInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create %dx%d image", width, height)
		core.LogError("%s", err.Error())
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	allocation, err := allocator.Allocate(requirements, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(device, handle, nil)
		return nil, err
	}

	if res := vk.BindImageMemory(device, handle, allocation.Memory(), vk.DeviceSize(allocation.Offset)); res != vk.Success {
		vk.DestroyImage(device, handle, nil)
		err := fmt.Errorf("failed to bind image memory at offset %d", allocation.Offset)
		core.LogError("%s", err.Error())
		return nil, err
	}

	image := &VulkanImage{
		Handle:     handle,
		Format:     format,
		Width:      width,
		Height:     height,
		allocator:  allocator,
		allocation: allocation,
	}
	if err := image.createView(device); err != nil {
		vk.DestroyImage(device, handle, nil)
		return nil, err
	}
	return image, nil
}

// ImageFromHandle wraps an image owned elsewhere, typically a swapchain
// image, and creates a view for it.
func ImageFromHandle(device vk.Device, handle vk.Image, format vk.Format, width, height uint32) (*VulkanImage, error) {
	image := &VulkanImage{
		Handle: handle,
		Format: format,
		Width:  width,
		Height: height,
	}
	if err := image.createView(device); err != nil {
		return nil, err
	}
	return image, nil
}

func (i *VulkanImage) createView(device vk.Device) error {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    i.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   i.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(device, &viewInfo, nil, &view); res != vk.Success {
		err := fmt.Errorf("failed to create image view")
		core.LogError("%s", err.Error())
		return err
	}
	i.View = view
	return nil
}

func (i *VulkanImage) Destroy(device vk.Device) {
	vk.DestroyImageView(device, i.View, nil)
	if i.allocation != nil {
		vk.DestroyImage(device, i.Handle, nil)
		if err := i.allocator.Free(i.allocation); err != nil {
			core.LogError("image free failed: %s", err)
		}
	}
}

// VulkanTexture is an image paired with a sampler so shaders can sample it.
type VulkanTexture struct {
	Image   *VulkanImage
	Sampler vk.Sampler
}

func NewTexture(device vk.Device, allocator *Allocator, width, height uint32, format vk.Format, usage vk.ImageUsageFlags, filter vk.Filter) (*VulkanTexture, error) {
	image, err := NewImage(device, allocator, width, height, format, usage)
	if err != nil {
		return nil, err
	}

	samplerInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    filter,
		MinFilter:    filter,
		AddressModeU: vk.SamplerAddressModeClampToEdge,
		AddressModeV: vk.SamplerAddressModeClampToEdge,
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		BorderColor:  vk.BorderColorIntOpaqueBlack,
	}
	var sampler vk.Sampler
	if res := vk.CreateSampler(device, &samplerInfo, nil, &sampler); res != vk.Success {
		image.Destroy(device)
		err := fmt.Errorf("failed to create sampler")
		core.LogError("%s", err.Error())
		return nil, err
	}

	return &VulkanTexture{Image: image, Sampler: sampler}, nil
}

func (t *VulkanTexture) Destroy(device vk.Device) {
	vk.DestroySampler(device, t.Sampler, nil)
	t.Image.Destroy(device)
}
