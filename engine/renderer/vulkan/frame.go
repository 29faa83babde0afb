package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
)

// VulkanFrame is everything one frame in flight owns. Nothing in it depends
// on the swapchain, so it survives presentation rebuilds.
type VulkanFrame struct {
	ImageAvailable vk.Semaphore
	RenderComplete vk.Semaphore
	InFlight       *VulkanFence

	CommandBuffer *VulkanCommandBuffer
	UniformBuffer *VulkanBuffer
	DescriptorSet vk.DescriptorSet
}

func newSemaphore(context *VulkanContext) (vk.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &semaphore); res != vk.Success {
		err := fmt.Errorf("failed to create semaphore: %w", vk.Error(res))
		core.LogError(err.Error())
		return vk.NullSemaphore, err
	}
	return semaphore, nil
}

// FrameCreate builds the sync objects, command buffer and uniform buffer of
// one slot. The fence starts signaled so the first wait on it returns.
func FrameCreate(context *VulkanContext, descriptorSet vk.DescriptorSet) (*VulkanFrame, error) {
	frame := &VulkanFrame{DescriptorSet: descriptorSet}

	var err error
	if frame.ImageAvailable, err = newSemaphore(context); err != nil {
		frame.Destroy(context)
		return nil, err
	}
	if frame.RenderComplete, err = newSemaphore(context); err != nil {
		frame.Destroy(context)
		return nil, err
	}
	if frame.InFlight, err = NewFence(context, true); err != nil {
		frame.Destroy(context)
		return nil, err
	}
	if frame.CommandBuffer, err = NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true); err != nil {
		frame.Destroy(context)
		return nil, err
	}
	frame.UniformBuffer, err = BufferCreate(context,
		vk.DeviceSize(renderer.UniformBufferObjectSize),
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		frame.Destroy(context)
		return nil, err
	}
	context.Descriptors.BindUniformBuffer(context, descriptorSet, frame.UniformBuffer)
	return frame, nil
}

// Destroy releases what the frame owns. The device must be idle.
func (f *VulkanFrame) Destroy(context *VulkanContext) {
	if f.UniformBuffer != nil {
		f.UniformBuffer.Destroy(context)
		f.UniformBuffer = nil
	}
	if f.CommandBuffer != nil {
		f.CommandBuffer.Free(context, context.Device.GraphicsCommandPool)
		f.CommandBuffer = nil
	}
	if f.InFlight != nil {
		f.InFlight.FenceDestroy(context)
		f.InFlight = nil
	}
	if f.RenderComplete != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, f.RenderComplete, context.Allocator)
		f.RenderComplete = vk.NullSemaphore
	}
	if f.ImageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, f.ImageAvailable, context.Allocator)
		f.ImageAvailable = vk.NullSemaphore
	}
}
