package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func graphicsFamily() QueueFamilySupport {
	return QueueFamilySupport{Flags: vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueTransferBit)}
}

func TestFindQueueFamilies(t *testing.T) {
	testCases := []struct {
		name     string
		families []QueueFamilySupport
		graphics int32
		present  int32
	}{
		{
			name:     "shared family",
			families: []QueueFamilySupport{{Flags: vk.QueueFlags(vk.QueueGraphicsBit), Present: true}},
			graphics: 0,
			present:  0,
		},
		{
			name: "separate families",
			families: []QueueFamilySupport{
				{Flags: vk.QueueFlags(vk.QueueComputeBit)},
				graphicsFamily(),
				{Flags: vk.QueueFlags(vk.QueueTransferBit), Present: true},
			},
			graphics: 1,
			present:  2,
		},
		{
			name:     "no present",
			families: []QueueFamilySupport{graphicsFamily()},
			graphics: 0,
			present:  -1,
		},
		{
			name:     "empty",
			families: nil,
			graphics: -1,
			present:  -1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info := FindQueueFamilies(tc.families)
			assert.Equal(t, tc.graphics, info.GraphicsFamilyIndex)
			assert.Equal(t, tc.present, info.PresentFamilyIndex)
		})
	}
}

func TestPhysicalDeviceMeetsRequirements(t *testing.T) {
	requirements := &VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}
	suitable := func() *PhysicalDeviceCandidate {
		return &PhysicalDeviceCandidate{
			Name:             "test gpu",
			QueueFamilies:    []QueueFamilySupport{{Flags: vk.QueueFlags(vk.QueueGraphicsBit), Present: true}},
			Extensions:       []string{"VK_KHR_maintenance1", "VK_KHR_swapchain"},
			FormatCount:      2,
			PresentModeCount: 1,
		}
	}

	_, ok, reason := PhysicalDeviceMeetsRequirements(suitable(), requirements)
	assert.True(t, ok, reason)

	noSwapchain := suitable()
	noSwapchain.Extensions = []string{"VK_KHR_maintenance1"}
	_, ok, reason = PhysicalDeviceMeetsRequirements(noSwapchain, requirements)
	assert.False(t, ok)
	assert.Contains(t, reason, "VK_KHR_swapchain")

	noPresent := suitable()
	noPresent.QueueFamilies = []QueueFamilySupport{graphicsFamily()}
	_, ok, _ = PhysicalDeviceMeetsRequirements(noPresent, requirements)
	assert.False(t, ok)

	noFormats := suitable()
	noFormats.FormatCount = 0
	_, ok, _ = PhysicalDeviceMeetsRequirements(noFormats, requirements)
	assert.False(t, ok)
}
