package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanShaderStage is a compiled module plus the stage description that
// references it.
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderStage creates a module from SPIR-V words with entry point main.
func NewShaderStage(vc *VulkanContext, code []uint32, stage vk.ShaderStageFlagBits, name string) (*VulkanShaderStage, error) {
	ci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}
	var module vk.ShaderModule
	if err := check(vk.CreateShaderModule(vc.Device.LogicalDevice, &ci, vc.Allocator, &module), "vkCreateShaderModule"); err != nil {
		return nil, err
	}
	nameObject(vc, module, vk.DebugReportObjectTypeShaderModule, name)
	return &VulkanShaderStage{
		Handle: module,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: module,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

func (s *VulkanShaderStage) Destroy(vc *VulkanContext) {
	if s.Handle != nil {
		vk.DestroyShaderModule(vc.Device.LogicalDevice, s.Handle, vc.Allocator)
		s.Handle = nil
	}
}
