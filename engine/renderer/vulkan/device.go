package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
}

// QueueFamilySupport is what the selection needs to know about one queue
// family of an adapter.
type QueueFamilySupport struct {
	Flags   vk.QueueFlags
	Present bool
}

// PhysicalDeviceCandidate holds everything queried from an adapter before
// it is accepted or rejected.
type PhysicalDeviceCandidate struct {
	Name             string
	Type             vk.PhysicalDeviceType
	QueueFamilies    []QueueFamilySupport
	Extensions       []string
	FormatCount      uint32
	PresentModeCount uint32
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

// FindQueueFamilies returns the first family with graphics support and the
// first family that can present. Missing families are -1.
func FindQueueFamilies(families []QueueFamilySupport) VulkanPhysicalDeviceQueueFamilyInfo {
	info := VulkanPhysicalDeviceQueueFamilyInfo{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}
	for i, family := range families {
		if info.GraphicsFamilyIndex < 0 && vk.QueueFlagBits(family.Flags)&vk.QueueGraphicsBit != 0 {
			info.GraphicsFamilyIndex = int32(i)
		}
		if info.PresentFamilyIndex < 0 && family.Present {
			info.PresentFamilyIndex = int32(i)
		}
		if info.GraphicsFamilyIndex >= 0 && info.PresentFamilyIndex >= 0 {
			break
		}
	}
	return info
}

// PhysicalDeviceMeetsRequirements checks a candidate against the
// requirements. When it fails the returned string says why.
func PhysicalDeviceMeetsRequirements(candidate *PhysicalDeviceCandidate, requirements *VulkanPhysicalDeviceRequirements) (VulkanPhysicalDeviceQueueFamilyInfo, bool, string) {
	queueInfo := FindQueueFamilies(candidate.QueueFamilies)

	if requirements.Graphics && queueInfo.GraphicsFamilyIndex < 0 {
		return queueInfo, false, "no graphics queue"
	}
	if requirements.Present && queueInfo.PresentFamilyIndex < 0 {
		return queueInfo, false, "no present queue"
	}

	for _, required := range requirements.DeviceExtensionNames {
		required = strings.TrimRight(required, end)
		found := false
		for _, available := range candidate.Extensions {
			if required == available {
				found = true
				break
			}
		}
		if !found {
			return queueInfo, false, fmt.Sprintf("required extension not found: '%s'", required)
		}
	}

	if candidate.FormatCount < 1 || candidate.PresentModeCount < 1 {
		return queueInfo, false, "required swapchain support not present"
	}
	return queueInfo, true, ""
}

// SelectPhysicalDevice picks the first adapter that satisfies the
// requirements.
func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return fmt.Errorf("failed to enumerate physical devices: %w", vk.Error(res))
	}
	if physicalDeviceCount == 0 {
		core.LogError("No devices which support Vulkan were found.")
		return core.ErrNoVulkanDevice
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return fmt.Errorf("failed to enumerate physical devices: %w", vk.Error(res))
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	for _, physicalDevice := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
		properties.Deref()

		support := VulkanSwapchainSupportInfo{}
		if err := DeviceQuerySwapchainSupport(physicalDevice, context.Surface, &support); err != nil {
			return err
		}

		candidate, err := queryCandidate(physicalDevice, context.Surface, &properties)
		if err != nil {
			return err
		}
		candidate.FormatCount = support.FormatCount
		candidate.PresentModeCount = support.PresentModeCount

		queueInfo, ok, reason := PhysicalDeviceMeetsRequirements(candidate, &requirements)
		if !ok {
			core.LogInfo("Skipping device '%s': %s.", candidate.Name, reason)
			continue
		}

		core.LogInfo("Selected device: '%s'.", candidate.Name)
		logDeviceInfo(&properties)
		core.LogDebug("Graphics Family Index: %d", queueInfo.GraphicsFamilyIndex)
		core.LogDebug("Present Family Index:  %d", queueInfo.PresentFamilyIndex)

		context.Device.PhysicalDevice = physicalDevice
		context.Device.GraphicsQueueIndex = uint32(queueInfo.GraphicsFamilyIndex)
		context.Device.PresentQueueIndex = uint32(queueInfo.PresentFamilyIndex)
		context.Device.SwapchainSupport = support
		context.Device.Properties = properties
		vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &context.Device.Memory)
		context.Device.Memory.Deref()
		return nil
	}

	core.LogError("No physical devices were found which meet the requirements.")
	return core.ErrNoSuitableDevice
}

func queryCandidate(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties) (*PhysicalDeviceCandidate, error) {
	candidate := &PhysicalDeviceCandidate{
		Name: vk.ToString(properties.DeviceName[:]),
		Type: properties.DeviceType,
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := range queueFamilies {
		queueFamilies[i].Deref()
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return nil, fmt.Errorf("failed to query surface support: %w", vk.Error(res))
		}
		candidate.QueueFamilies = append(candidate.QueueFamilies, QueueFamilySupport{
			Flags:   queueFamilies[i].QueueFlags,
			Present: supportsPresent == vk.True,
		})
	}

	extensions, err := deviceExtensions(device)
	if err != nil {
		return nil, err
	}
	candidate.Extensions = extensions
	return candidate, nil
}

func deviceExtensions(device vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return nil, fmt.Errorf("failed to enumerate device extensions: %w", vk.Error(res))
	}
	available := make([]vk.ExtensionProperties, count)
	if count == 0 {
		return nil, nil
	}
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return nil, fmt.Errorf("failed to enumerate device extensions: %w", vk.Error(res))
	}
	names := make([]string, 0, count)
	for i := range available {
		available[i].Deref()
		names = append(names, vk.ToString(available[i].ExtensionName[:]))
	}
	return names, nil
}

func logDeviceInfo(properties *vk.PhysicalDeviceProperties) {
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}

	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version.Major(vk.Version(properties.DriverVersion)),
		vk.Version.Minor(vk.Version(properties.DriverVersion)),
		vk.Version.Patch(vk.Version(properties.DriverVersion)),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version.Major(vk.Version(properties.ApiVersion)),
		vk.Version.Minor(vk.Version(properties.ApiVersion)),
		vk.Version.Patch(vk.Version(properties.ApiVersion)),
	)
}

func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{context.Device.GraphicsQueueIndex}
	if context.Device.PresentQueueIndex != context.Device.GraphicsQueueIndex {
		indices = append(indices, context.Device.PresentQueueIndex)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
		context.Locks.SetQueueFamily(index)
	}

	extensions, err := deviceExtensions(context.Device.PhysicalDevice)
	if err != nil {
		return err
	}
	extensionNames := []string{vk.KhrSwapchainExtensionName}
	for _, ext := range extensions {
		if ext == PortabilitySubsetExtensionName {
			core.LogInfo("Adding required extension '%s'.", PortabilitySubsetExtensionName)
			extensionNames = append(extensionNames, PortabilitySubsetExtensionName)
			break
		}
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var device vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device); res != vk.Success {
		err := fmt.Errorf("failed to create logical device: %w", vk.Error(res))
		core.LogError(err.Error())
		return err
	}
	context.Device.LogicalDevice = device
	core.LogInfo("Logical device created.")

	// Get queues.
	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device, context.Device.GraphicsQueueIndex, 0, &graphicsQueue)
	vk.GetDeviceQueue(device, context.Device.PresentQueueIndex, 0, &presentQueue)
	context.Device.GraphicsQueue = graphicsQueue
	context.Device.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")

	// Create command pool for graphics queue.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create graphics command pool: %w", vk.Error(res))
		core.LogError(err.Error())
		return err
	}
	context.Device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	// Unset queues
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil

	core.LogDebug("Destroying command pools...")
	if context.Device.GraphicsCommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, context.Allocator)
		context.Device.GraphicsCommandPool = vk.NullCommandPool
	}

	core.LogDebug("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = VulkanSwapchainSupportInfo{}
}

// DeviceQuerySwapchainSupport fills the capability triple of the surface.
func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	// Surface capabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return fmt.Errorf("failed to get surface capabilities: %w", vk.Error(res))
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	// Surface formats
	supportInfo.FormatCount = 0
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &supportInfo.FormatCount, nil); res != vk.Success {
		return fmt.Errorf("failed to get surface formats: %w", vk.Error(res))
	}
	supportInfo.Formats = make([]vk.SurfaceFormat, supportInfo.FormatCount)
	if supportInfo.FormatCount != 0 {
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &supportInfo.FormatCount, supportInfo.Formats); res != vk.Success {
			return fmt.Errorf("failed to get surface formats: %w", vk.Error(res))
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	// Present modes
	supportInfo.PresentModeCount = 0
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &supportInfo.PresentModeCount, nil); res != vk.Success {
		return fmt.Errorf("failed to get surface present modes: %w", vk.Error(res))
	}
	supportInfo.PresentModes = make([]vk.PresentMode, supportInfo.PresentModeCount)
	if supportInfo.PresentModeCount != 0 {
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &supportInfo.PresentModeCount, supportInfo.PresentModes); res != vk.Success {
			return fmt.Errorf("failed to get surface present modes: %w", vk.Error(res))
		}
	}
	return nil
}
