package vulkan

import (
	"fmt"

	"github.com/ashenvale/prism/engine/core"
	vk "github.com/goki/vulkan"
)

// Device bundles the instance-level and device-level handles the rest of
// the renderer needs. One queue family serves graphics, compute and present.
type Device struct {
	Instance         vk.Instance
	GPU              vk.PhysicalDevice
	Handle           vk.Device
	Queue            vk.Queue
	QueueFamilyIndex uint32
}

func createInstance(applicationName string, extensions []string) (vk.Instance, error) {
	applicationInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   applicationName + "\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "Prism\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(1, 1, 0),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &applicationInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: terminatedStrings(extensions),
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		err := fmt.Errorf("failed to create vulkan instance")
		core.LogError("%s", err.Error())
		return nil, err
	}
	vk.InitInstance(instance)
	return instance, nil
}

// findQueueFamily returns the first family supporting graphics, compute and
// presentation to the surface together.
func findQueueFamily(gpu vk.PhysicalDevice, surface vk.Surface) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, families)

	required := vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit)
	for i := range families {
		families[i].Deref()
		if families[i].QueueFlags&required != required {
			continue
		}
		var presentSupport vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gpu, uint32(i), surface, &presentSupport)
		if presentSupport == vk.True {
			return uint32(i), true
		}
	}
	return 0, false
}

// pickPhysicalDevice selects a GPU that can render and present, preferring
// discrete hardware.
func pickPhysicalDevice(instance vk.Instance, surface vk.Surface) (vk.PhysicalDevice, uint32, error) {
	var count uint32
	vk.EnumeratePhysicalDevices(instance, &count, nil)
	if count == 0 {
		err := fmt.Errorf("no vulkan capable device found")
		core.LogError("%s", err.Error())
		return nil, 0, err
	}
	gpus := make([]vk.PhysicalDevice, count)
	vk.EnumeratePhysicalDevices(instance, &count, gpus)

	var fallback vk.PhysicalDevice
	var fallbackFamily uint32
	for _, gpu := range gpus {
		family, ok := findQueueFamily(gpu, surface)
		if !ok {
			continue
		}

		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &properties)
		properties.Deref()

		if properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			core.LogInfo("using discrete GPU %s", vk.ToString(properties.DeviceName[:]))
			return gpu, family, nil
		}
		if fallback == nil {
			fallback = gpu
			fallbackFamily = family
		}
	}
	if fallback == nil {
		err := fmt.Errorf("no device supports graphics, compute and present on one queue")
		core.LogError("%s", err.Error())
		return nil, 0, err
	}
	return fallback, fallbackFamily, nil
}

func NewDevice(applicationName string, instanceExtensions []string, createSurface func(vk.Instance) (vk.Surface, error)) (*Device, vk.Surface, error) {
	instance, err := createInstance(applicationName, instanceExtensions)
	if err != nil {
		return nil, vk.NullSurface, err
	}

	surface, err := createSurface(instance)
	if err != nil {
		core.LogError("failed to create window surface: %s", err)
		return nil, vk.NullSurface, err
	}

	gpu, queueFamilyIndex, err := pickPhysicalDevice(instance, surface)
	if err != nil {
		return nil, vk.NullSurface, err
	}

	queuePriorities := []float32{1.0}
	queueCreateInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: queueFamilyIndex,
		QueueCount:       1,
		PQueuePriorities: queuePriorities,
	}

	deviceExtensions := []string{"VK_KHR_swapchain"}
	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{queueCreateInfo},
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: terminatedStrings(deviceExtensions),
	}

	var handle vk.Device
	if res := vk.CreateDevice(gpu, &createInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create logical device")
		core.LogError("%s", err.Error())
		return nil, vk.NullSurface, err
	}

	var queue vk.Queue
	vk.GetDeviceQueue(handle, queueFamilyIndex, 0, &queue)

	return &Device{
		Instance:         instance,
		GPU:              gpu,
		Handle:           handle,
		Queue:            queue,
		QueueFamilyIndex: queueFamilyIndex,
	}, surface, nil
}

// WaitIdle blocks until the device finishes all submitted work.
func (d *Device) WaitIdle() {
	vk.DeviceWaitIdle(d.Handle)
}

func (d *Device) Destroy(surface vk.Surface) {
	vk.DestroyDevice(d.Handle, nil)
	vk.DestroySurface(d.Instance, surface, nil)
	vk.DestroyInstance(d.Instance, nil)
}
