package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	// The single queue family used for graphics, transfer, compute and present.
	QueueIndex uint32
	Queue      vk.Queue

	// Transient pool for one-shot upload command buffers.
	TransientCommandPool vk.CommandPool

	Name       string
	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
}

type QueueFamilyInfo struct {
	Graphics bool
	Transfer bool
	Compute  bool
	Present  bool
}

// AdapterFeatures mirrors the feature flags the renderer relies on.
type AdapterFeatures struct {
	GeometryShader     bool
	TessellationShader bool
	FillModeNonSolid   bool
	DepthClamp         bool
	SamplerAnisotropy  bool
}

/**
 * @brief Everything needed to decide whether a physical device can run the
 * renderer. Filled from the driver by queryAdapter, or by hand in tests.
 */
type AdapterInfo struct {
	Name             string
	Type             vk.PhysicalDeviceType
	Features         AdapterFeatures
	Extensions       []string
	QueueFamilies    []QueueFamilyInfo
	FormatCount      int
	PresentModeCount int
}

var requiredDeviceExtensions = []string{vk.KhrSwapchainExtensionName}

// requiredFeatures is what gets enabled on the logical device.
func requiredFeatures() vk.PhysicalDeviceFeatures {
	return vk.PhysicalDeviceFeatures{
		GeometryShader:     vk.True,
		TessellationShader: vk.True,
		FillModeNonSolid:   vk.True,
		DepthClamp:         vk.True,
		SamplerAnisotropy:  vk.True,
	}
}

// checkAdapter returns the index of the queue family to use, or an error
// naming the first unmet requirement.
func checkAdapter(info AdapterInfo) (uint32, error) {
	f := info.Features
	switch {
	case !f.GeometryShader:
		return 0, fmt.Errorf("%s: geometryShader not supported", info.Name)
	case !f.TessellationShader:
		return 0, fmt.Errorf("%s: tessellationShader not supported", info.Name)
	case !f.FillModeNonSolid:
		return 0, fmt.Errorf("%s: fillModeNonSolid not supported", info.Name)
	case !f.DepthClamp:
		return 0, fmt.Errorf("%s: depthClamp not supported", info.Name)
	case !f.SamplerAnisotropy:
		return 0, fmt.Errorf("%s: samplerAnisotropy not supported", info.Name)
	}

	if info.Type != vk.PhysicalDeviceTypeDiscreteGpu && info.Type != vk.PhysicalDeviceTypeIntegratedGpu {
		return 0, fmt.Errorf("%s: adapter is neither discrete nor integrated", info.Name)
	}

	for _, required := range requiredDeviceExtensions {
		found := false
		for _, e := range info.Extensions {
			if e == required {
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%s: required extension not found: '%s'", info.Name, required)
		}
	}

	queueIndex := -1
	for i, q := range info.QueueFamilies {
		if q.Graphics && q.Transfer && q.Compute && q.Present {
			queueIndex = i
			break
		}
	}
	if queueIndex < 0 {
		return 0, fmt.Errorf("%s: no queue family with graphics, transfer, compute and present", info.Name)
	}

	if info.FormatCount < 1 || info.PresentModeCount < 1 {
		return 0, fmt.Errorf("%s: required swapchain support not present", info.Name)
	}
	return uint32(queueIndex), nil
}

func deviceExtensionNames(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := vkError("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)); err != nil {
		return nil, err
	}
	list := make([]vk.ExtensionProperties, count)
	if err := vkError("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range list {
		list[i].Deref()
		names = append(names, vk.ToString(list[i].ExtensionName[:]))
	}
	return names, nil
}

func queryAdapter(gpu vk.PhysicalDevice, surface vk.Surface) (AdapterInfo, error) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &properties)
	properties.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(gpu, &features)
	features.Deref()

	info := AdapterInfo{
		Name: vk.ToString(properties.DeviceName[:]),
		Type: properties.DeviceType,
		Features: AdapterFeatures{
			GeometryShader:     features.GeometryShader == vk.True,
			TessellationShader: features.TessellationShader == vk.True,
			FillModeNonSolid:   features.FillModeNonSolid == vk.True,
			DepthClamp:         features.DepthClamp == vk.True,
			SamplerAnisotropy:  features.SamplerAnisotropy == vk.True,
		},
	}

	extensions, err := deviceExtensionNames(gpu)
	if err != nil {
		return info, err
	}
	info.Extensions = extensions

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &familyCount, families)
	for i := range families {
		families[i].Deref()
		var supportsPresent vk.Bool32
		if err := vkError("vkGetPhysicalDeviceSurfaceSupport", vk.GetPhysicalDeviceSurfaceSupport(gpu, uint32(i), surface, &supportsPresent)); err != nil {
			return info, err
		}
		flags := families[i].QueueFlags
		info.QueueFamilies = append(info.QueueFamilies, QueueFamilyInfo{
			Graphics: flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0,
			Transfer: flags&vk.QueueFlags(vk.QueueTransferBit) != 0,
			Compute:  flags&vk.QueueFlags(vk.QueueComputeBit) != 0,
			Present:  supportsPresent == vk.True,
		})
	}

	support, err := querySurfaceSupport(gpu, surface)
	if err != nil {
		return info, err
	}
	info.FormatCount = len(support.Formats)
	info.PresentModeCount = len(support.PresentModes)
	return info, nil
}

func selectPhysicalDevice(vc *RenderContext) (*VulkanDevice, error) {
	var count uint32
	if err := vkError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(vc.Instance, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no devices which support Vulkan were found", core.ErrNoSuitableDevice)
	}
	gpus := make([]vk.PhysicalDevice, count)
	if err := vkError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(vc.Instance, &count, gpus)); err != nil {
		return nil, err
	}

	for _, gpu := range gpus {
		info, err := queryAdapter(gpu, vc.Surface)
		if err != nil {
			return nil, err
		}
		queueIndex, err := checkAdapter(info)
		if err != nil {
			core.LogInfo("Skipping device: %s", err)
			continue
		}

		device := &VulkanDevice{
			PhysicalDevice: gpu,
			QueueIndex:     queueIndex,
			Name:           info.Name,
		}
		vk.GetPhysicalDeviceProperties(gpu, &device.Properties)
		device.Properties.Deref()
		vk.GetPhysicalDeviceFeatures(gpu, &device.Features)
		device.Features.Deref()
		vk.GetPhysicalDeviceMemoryProperties(gpu, &device.Memory)
		device.Memory.Deref()
		logDeviceInfo(device)
		return device, nil
	}
	return nil, core.ErrNoSuitableDevice
}

func logDeviceInfo(device *VulkanDevice) {
	core.LogInfo("Selected device: '%s'.", device.Name)
	switch device.Properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	}
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(device.Properties.DriverVersion).Major(),
		vk.Version(device.Properties.DriverVersion).Minor(),
		vk.Version(device.Properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(device.Properties.ApiVersion).Major(),
		vk.Version(device.Properties.ApiVersion).Minor(),
		vk.Version(device.Properties.ApiVersion).Patch(),
	)
	for j := uint32(0); j < device.Memory.MemoryHeapCount; j++ {
		heap := device.Memory.MemoryHeaps[j]
		heap.Deref()
		memorySizeGib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlags(heap.Flags)&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
}

/**
 * @brief Selects the adapter, then creates the logical device with one queue
 * and a transient command pool. Everything created is released by the
 * context's device scope.
 */
func DeviceCreate(vc *RenderContext) error {
	device, err := selectPhysicalDevice(vc)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	vc.Device = device

	core.LogInfo("Creating logical device...")
	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: device.QueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	extensionNames := append([]string(nil), requiredDeviceExtensions...)
	available, err := deviceExtensionNames(device.PhysicalDevice)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	for _, e := range available {
		if e == "VK_KHR_portability_subset" {
			core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
			extensionNames = append(extensionNames, e)
			break
		}
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{requiredFeatures()},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}
	var logical vk.Device
	if err := vkError("vkCreateDevice", vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, vc.Allocator, &logical)); err != nil {
		core.LogError(err.Error())
		return err
	}
	device.LogicalDevice = logical
	vc.deviceScope.Push(func() {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(logical, vc.Allocator)
		device.LogicalDevice = nil
	})
	core.LogInfo("Logical device created.")

	var queue vk.Queue
	vk.GetDeviceQueue(logical, device.QueueIndex, 0, &queue)
	device.Queue = queue
	core.LogInfo("Queue obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.QueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit | vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := vkError("vkCreateCommandPool", vk.CreateCommandPool(logical, &poolCreateInfo, vc.Allocator, &pool)); err != nil {
		core.LogError(err.Error())
		return err
	}
	device.TransientCommandPool = pool
	vc.deviceScope.Push(func() {
		vk.DestroyCommandPool(logical, pool, vc.Allocator)
	})
	core.LogInfo("Transient command pool created.")

	if !DeviceDetectDepthFormat(device) {
		err := fmt.Errorf("%w: %s cannot use D32_SFLOAT as a depth attachment", core.ErrNoSuitableDevice, device.Name)
		core.LogError(err.Error())
		return err
	}
	return nil
}

// DeviceDetectDepthFormat only accepts single-sample 32-bit float depth.
func DeviceDetectDepthFormat(device *VulkanDevice) bool {
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, vk.FormatD32Sfloat, &properties)
	properties.Deref()
	if properties.OptimalTilingFeatures&flags == flags {
		device.DepthFormat = vk.FormatD32Sfloat
		return true
	}
	return false
}

func (d *VulkanDevice) WaitIdle() error {
	return vkError("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.LogicalDevice))
}
