package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
)

// VulkanShaderStage is a compiled module and the stage info that points at
// it. Modules are only needed until the pipeline is built.
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

func shaderStageFlag(stage renderer.ShaderStage) (vk.ShaderStageFlagBits, error) {
	switch stage {
	case renderer.ShaderStageVertex:
		return vk.ShaderStageVertexBit, nil
	case renderer.ShaderStageFragment:
		return vk.ShaderStageFragmentBit, nil
	}
	return 0, fmt.Errorf("unsupported shader stage %d", stage)
}

func NewShaderModule(context *VulkanContext, code renderer.ShaderStageCode) (*VulkanShaderStage, error) {
	if len(code.Code) == 0 {
		return nil, fmt.Errorf("%s stage: %w", code.Stage, core.ErrInvalidShaderCode)
	}
	flag, err := shaderStageFlag(code.Stage)
	if err != nil {
		return nil, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code.Code) * 4),
		PCode:    code.Code,
	}

	stage := &VulkanShaderStage{}
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &stage.Handle); res != vk.Success {
		err := fmt.Errorf("failed to create %s shader module: %w", code.Stage, vk.Error(res))
		core.LogError(err.Error())
		return nil, err
	}

	entryPoint := code.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}
	stage.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  flag,
		Module: stage.Handle,
		PName:  VulkanSafeString(entryPoint),
	}
	return stage, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
	}
}

// NewShaderStages builds one module per stage of the program. On failure
// the modules created so far are released.
func NewShaderStages(context *VulkanContext, program *renderer.ShaderProgram) ([]*VulkanShaderStage, error) {
	stages := make([]*VulkanShaderStage, 0, len(program.Stages))
	for _, code := range program.Stages {
		stage, err := NewShaderModule(context, code)
		if err != nil {
			DestroyShaderStages(context, stages)
			return nil, fmt.Errorf("shader program %q: %w", program.Name, err)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func DestroyShaderStages(context *VulkanContext, stages []*VulkanShaderStage) {
	for _, s := range stages {
		s.Destroy(context)
	}
}

func stageCreateInfos(stages []*VulkanShaderStage) []vk.PipelineShaderStageCreateInfo {
	infos := make([]vk.PipelineShaderStageCreateInfo, len(stages))
	for i, s := range stages {
		infos[i] = s.ShaderStageCreateInfo
	}
	return infos
}
