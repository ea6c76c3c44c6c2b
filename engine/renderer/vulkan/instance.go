package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// requiredInstanceExtensions merges the window system extensions with the ones
// the renderer needs, without duplicates.
func requiredInstanceExtensions(platformExtensions []string, validation bool) []string {
	required := []string{"VK_KHR_surface"} // Generic surface extension
	required = append(required, platformExtensions...)
	if runtime.GOOS == "darwin" {
		required = append(required,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if validation {
		required = append(required, vk.ExtDebugReportExtensionName)
	}

	seen := make(map[string]struct{}, len(required))
	out := required[:0]
	for _, name := range required {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// missingLayers returns the names in required that are absent from available.
func missingLayers(required, available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, name := range available {
		have[name] = struct{}{}
	}
	var missing []string
	for _, name := range required {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func availableInstanceLayers() ([]string, error) {
	var count uint32
	if err := vkError("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	layers := make([]vk.LayerProperties, count)
	if err := vkError("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, layers)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range layers {
		layers[i].Deref()
		names = append(names, vk.ToString(layers[i].LayerName[:]))
	}
	return names, nil
}

/**
 * @brief Creates the instance with the window system extensions, and when
 * validation is requested the Khronos validation layer plus a debug report
 * callback. A missing validation layer is an error.
 */
func createInstance(vc *RenderContext, appName string, platformExtensions []string, validation bool) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Lumen"),
	}

	extensions := requiredInstanceExtensions(platformExtensions, validation)
	core.LogInfo("Required extensions:")
	for _, e := range extensions {
		core.LogInfo(e)
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}
	if runtime.GOOS == "darwin" {
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		layers = []string{validationLayerName}
		available, err := availableInstanceLayers()
		if err != nil {
			core.LogError(err.Error())
			return err
		}
		if missing := missingLayers(layers, available); len(missing) > 0 {
			err := fmt.Errorf("%w: %v", core.ErrMissingValidationLayer, missing)
			core.LogError(err.Error())
			return err
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := vkError("vkCreateInstance", vk.CreateInstance(&createInfo, vc.Allocator, &instance)); err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	vc.Instance = instance
	vc.deviceScope.Push(func() {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(instance, vc.Allocator)
		vc.Instance = nil
	})
	core.LogInfo("Vulkan Instance created.")

	if !validation {
		return nil
	}

	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := vkError("vkCreateDebugReportCallback", vk.CreateDebugReportCallback(instance, &debugCreateInfo, vc.Allocator, &dbg)); err != nil {
		core.LogError(err.Error())
		return err
	}
	vc.debugCallback = dbg
	vc.deviceScope.Push(func() {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(instance, dbg, vc.Allocator)
		vc.debugCallback = vk.NullDebugReportCallback
	})
	core.LogDebug("Vulkan debugger created.")
	return nil
}

// An error reported by the validation layer means the renderer broke an API
// rule, so the process stops.
func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogFatal("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
