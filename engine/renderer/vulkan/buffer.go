package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Usage  vk.BufferUsageFlags
	// Set for host visible buffers, which stay mapped for their lifetime.
	Mapped unsafe.Pointer
}

func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{
		Size:  size,
		Usage: usage,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive, // Only used in one queue.
	}

	err := context.Locks.SafeCall(BufferManagement, func() error {
		if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buffer.Handle); res != vk.Success {
			return fmt.Errorf("failed to create buffer: %w", vk.Error(res))
		}

		var requirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &requirements)
		requirements.Deref()

		memoryIndex, err := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
		if err != nil {
			return fmt.Errorf("unable to create buffer: %w", err)
		}

		allocateInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  requirements.Size,
			MemoryTypeIndex: memoryIndex,
		}
		if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &buffer.Memory); res != vk.Success {
			return fmt.Errorf("failed to allocate buffer memory: %w", vk.Error(res))
		}
		if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
			return fmt.Errorf("failed to bind buffer memory: %w", vk.Error(res))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		buffer.Destroy(context)
		return nil, err
	}

	if memoryFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
		var pData unsafe.Pointer
		if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, size, 0, &pData); res != vk.Success {
			err := fmt.Errorf("failed to map buffer memory: %w", vk.Error(res))
			core.LogError(err.Error())
			buffer.Destroy(context)
			return nil, err
		}
		buffer.Mapped = pData
	}
	return buffer, nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	_ = context.Locks.SafeCall(BufferManagement, func() error {
		if b.Mapped != nil {
			vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
			b.Mapped = nil
		}
		if b.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
			b.Memory = vk.NullDeviceMemory
		}
		if b.Handle != vk.NullBuffer {
			vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
			b.Handle = vk.NullBuffer
		}
		return nil
	})
	b.Size = 0
}

// LoadData copies data into a mapped buffer. Host coherent memory is
// required, so no flush is issued.
func (b *VulkanBuffer) LoadData(data []byte) error {
	if b.Mapped == nil {
		return fmt.Errorf("buffer is not host visible")
	}
	if vk.DeviceSize(len(data)) > b.Size {
		return fmt.Errorf("buffer too small: %d bytes for %d", b.Size, len(data))
	}
	vk.Memcopy(b.Mapped, data)
	return nil
}

// BufferCopy copies size bytes between two buffers with a single use
// command buffer on the graphics queue and waits for it.
func BufferCopy(context *VulkanContext, source, dest *VulkanBuffer, size vk.DeviceSize) error {
	cb, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	copyRegion := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}
	vk.CmdCopyBuffer(cb.Handle, source.Handle, dest.Handle, 1, []vk.BufferCopy{copyRegion})

	return cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue, context.Device.GraphicsQueueIndex)
}

// BufferUploadDeviceLocal creates a device local buffer holding data,
// going through a host visible staging buffer.
func BufferUploadDeviceLocal(context *VulkanContext, data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	size := vk.DeviceSize(len(data))
	staging, err := BufferCreate(context, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	if err := staging.LoadData(data); err != nil {
		return nil, err
	}

	buffer, err := BufferCreate(context, size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	if err := BufferCopy(context, staging, buffer, size); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}
