package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
	"github.com/spaghettifunk/anima-gpu/engine/mesh"
)

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
}

// VulkanMeshFormat is the vertex input and primitive assembly of a mesh
// bound at binding 0.
type VulkanMeshFormat struct {
	Bindings   []vk.VertexInputBindingDescription
	Attributes []vk.VertexInputAttributeDescription
	Topology   vk.PrimitiveTopology
}

// MeshFormat derives the vertex input of a pipeline from a vertex layout.
func MeshFormat(layout format.VertexLayout, topology mesh.Topology) (VulkanMeshFormat, error) {
	if err := layout.Validate(); err != nil {
		return VulkanMeshFormat{}, err
	}
	mf := VulkanMeshFormat{
		Bindings: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    layout.Stride,
			InputRate: vk.VertexInputRateVertex,
		}},
		Attributes: make([]vk.VertexInputAttributeDescription, 0, len(layout.Attributes)),
		Topology:   vk.PrimitiveTopology(topology),
	}
	for _, a := range layout.Attributes {
		mf.Attributes = append(mf.Attributes, vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  0,
			Format:   vk.Format(a.Format),
			Offset:   a.Offset,
		})
	}
	return mf, nil
}

func (mf *VulkanMeshFormat) vertexInputState() vk.PipelineVertexInputStateCreateInfo {
	return vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(mf.Bindings)),
		PVertexBindingDescriptions:      mf.Bindings,
		VertexAttributeDescriptionCount: uint32(len(mf.Attributes)),
		PVertexAttributeDescriptions:    mf.Attributes,
	}
}

func (mf *VulkanMeshFormat) inputAssemblyState() vk.PipelineInputAssemblyStateCreateInfo {
	return vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               mf.Topology,
		PrimitiveRestartEnable: vk.False,
	}
}

type VulkanPipelineConfig struct {
	Renderpass *VulkanRenderpass
	MeshFormat VulkanMeshFormat
	/** @brief An array of descriptor set layouts. */
	DescriptorSetLayouts []vk.DescriptorSetLayout
	PushConstantRanges   []vk.PushConstantRange
	Stages               []vk.PipelineShaderStageCreateInfo
	CullMode             vk.CullModeFlagBits
	FrontFace            vk.FrontFace
	IsWireframe          bool
	DepthTest            bool
	DepthWrite           bool
	AlphaBlend           bool
}

// NewGraphicsPipeline creates the layout and the pipeline. Viewport and
// scissor are dynamic so the pipeline survives swapchain rebuilds.
func NewGraphicsPipeline(vc *VulkanContext, config *VulkanPipelineConfig, name string) (*VulkanPipeline, error) {
	// NOTE: 128 bytes of push constants are guaranteed, 32 ranges of 4 bytes.
	if len(config.PushConstantRanges) > 32 {
		return nil, fmt.Errorf("cannot have more than 32 push constant ranges, got %d: %w", len(config.PushConstantRanges), core.ErrInvalidArgument)
	}
	outPipeline := &VulkanPipeline{}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(config.CullMode),
		FrontFace:               config.FrontFace,
		DepthBiasEnable:         vk.False,
	}
	if config.IsWireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		DepthCompareOp:    vk.CompareOpLess,
		StencilTestEnable: vk.False,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	if config.AlphaBlend {
		colorBlendAttachmentState.BlendEnable = vk.True
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	vertexInputInfo := config.MeshFormat.vertexInputState()
	inputAssembly := config.MeshFormat.inputAssemblyState()

	var err error
	outPipeline.PipelineLayout, err = CreatePipelineLayout(vc, config.DescriptorSetLayouts, config.PushConstantRanges, name)
	if err != nil {
		return nil, err
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}
	outPipeline.Handle, err = CreateGraphicsPipeline(vc, &pipelineCreateInfo, name)
	if err != nil {
		DestroyPipelineLayout(vc, outPipeline.PipelineLayout)
		return nil, err
	}

	core.LogDebug("Graphics pipeline '%s' created.", name)
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(vc *VulkanContext) {
	DestroyPipeline(vc, pipeline.Handle)
	pipeline.Handle = nil
	DestroyPipelineLayout(vc, pipeline.PipelineLayout)
	pipeline.PipelineLayout = nil
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, pipeline.Handle)
}
