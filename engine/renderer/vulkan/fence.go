package vulkan

import (
	"fmt"
	"time"

	"github.com/ashenvale/prism/engine/core"
	vk "github.com/goki/vulkan"
)

type VulkanFence struct {
	Handle vk.Fence
}

func NewFence(device vk.Device, signaled bool) (*VulkanFence, error) {
	createInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var handle vk.Fence
	if res := vk.CreateFence(device, &createInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create fence")
		core.LogError("%s", err.Error())
		return nil, err
	}
	return &VulkanFence{Handle: handle}, nil
}

// Wait blocks until the fence signals or the timeout elapses. A timeout is
// reported as ErrFenceTimeout rather than waiting forever on a hung device.
func (f *VulkanFence) Wait(device vk.Device, timeout time.Duration) error {
	res := vk.WaitForFences(device, 1, []vk.Fence{f.Handle}, vk.True, uint64(timeout.Nanoseconds()))
	switch res {
	case vk.Success:
		return nil
	case vk.Timeout:
		return fmt.Errorf("%w after %s", ErrFenceTimeout, timeout)
	default:
		err := fmt.Errorf("failed to wait for fence")
		core.LogError("%s", err.Error())
		return err
	}
}

func (f *VulkanFence) Reset(device vk.Device) {
	vk.ResetFences(device, 1, []vk.Fence{f.Handle})
}

func (f *VulkanFence) Destroy(device vk.Device) {
	vk.DestroyFence(device, f.Handle, nil)
}
