package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
)

// VulkanDescriptors is the uniform buffer layout at binding 0 and one set
// per frame in flight.
type VulkanDescriptors struct {
	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	Sets   []vk.DescriptorSet
}

func DescriptorsCreate(context *VulkanContext, setCount uint32) (*VulkanDescriptors, error) {
	d := &VulkanDescriptors{}

	uboLayoutBinding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{uboLayoutBinding},
	}
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &d.Layout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout: %w", vk.Error(res))
		core.LogError(err.Error())
		return nil, err
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: setCount,
		}},
		MaxSets: setCount,
	}
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &d.Pool); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool: %w", vk.Error(res))
		core.LogError(err.Error())
		d.Destroy(context)
		return nil, err
	}

	layouts := make([]vk.DescriptorSetLayout, setCount)
	for i := range layouts {
		layouts[i] = d.Layout
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.Pool,
		DescriptorSetCount: setCount,
		PSetLayouts:        layouts,
	}
	d.Sets = make([]vk.DescriptorSet, setCount)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &d.Sets[0]); res != vk.Success {
		err := fmt.Errorf("failed to allocate descriptor sets: %w", vk.Error(res))
		core.LogError(err.Error())
		d.Destroy(context)
		return nil, err
	}
	return d, nil
}

// BindUniformBuffer points the set at a whole uniform buffer.
func (d *VulkanDescriptors) BindUniformBuffer(context *VulkanContext, set vk.DescriptorSet, buffer *VulkanBuffer) {
	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: buffer.Handle,
		Offset: 0,
		Range:  buffer.Size,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DstArrayElement: 0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// Destroy releases the pool, which frees the sets with it, and the layout.
func (d *VulkanDescriptors) Destroy(context *VulkanContext) {
	if d.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, d.Pool, context.Allocator)
		d.Pool = vk.NullDescriptorPool
	}
	d.Sets = nil
	if d.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, d.Layout, context.Allocator)
		d.Layout = vk.NullDescriptorSetLayout
	}
}
