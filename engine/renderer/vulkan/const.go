package vulkan

const (
	ValidationLayerName = "VK_LAYER_KHRONOS_validation"

	PortabilityEnumerationExtensionName = "VK_KHR_portability_enumeration"
	PortabilitySubsetExtensionName      = "VK_KHR_portability_subset"
	// Required by the portability subset on instances older than 1.1.
	PhysicalDeviceProperties2ExtensionName = "VK_KHR_get_physical_device_properties2"

	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	instanceCreateEnumeratePortabilityBit = 0x00000001
)

// DefaultFramesInFlight is used when no frame count is configured.
const DefaultFramesInFlight uint32 = 2

// Sentinel reported by the surface when the swapchain decides the extent.
const surfaceExtentUndefined = ^uint32(0)
