package spritevk

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Pipeline library keys.
const (
	PipelineSpriteDefaultName = "SPRITE:DEFAULT"
	PipelineSpritePickingName = "SPRITE:PICKING"
)

// Vertex is the full-fat vertex layout pipelines may opt into; the sprite
// family synthesizes its quad in the vertex shader instead.
type Vertex struct {
	Position [3]float32
	_pad0    float32
	Normal   [3]float32
	_pad1    float32
	UV0      [2]float32
	_pad2    [2]float32
	Color0   [4]float32
	Joints0  [4]float32
	Weights0 [4]float32
}

// PipelineCreateInfo holds everything a pipeline creation needs.
type PipelineCreateInfo struct {
	Renderpass        *Renderpass
	Cache             vk.PipelineCache
	VertexShader      Shader
	FragmentShader    Shader
	PassingVertexData bool
	AlphaBlending     bool
	Bindings          []vk.DescriptorSetLayoutBinding
	PushConstants     []vk.PushConstantRange
	VertexComponents  []VertexComponent
}

// CorePipeline stores the created layouts plus every sub-state struct so
// post-hoc tweaks (cull mode, color write mask) remain possible before Build.
type CorePipeline struct {
	renderpass        *Renderpass
	passingVertexData bool
	alphaBlending     bool
	cache             vk.PipelineCache

	descriptorSetLayout vk.DescriptorSetLayout
	layout              vk.PipelineLayout
	pipeline            vk.Pipeline

	bindingsDescription   []vk.VertexInputBindingDescription
	attributesDescription []vk.VertexInputAttributeDescription

	shaderStages             [PipelineShaderStagesCount]vk.PipelineShaderStageCreateInfo
	vertexInputState         vk.PipelineVertexInputStateCreateInfo
	inputVertexAssemblyState vk.PipelineInputAssemblyStateCreateInfo
	viewportState            vk.PipelineViewportStateCreateInfo
	rasterizationState       vk.PipelineRasterizationStateCreateInfo
	multisampleState         vk.PipelineMultisampleStateCreateInfo
	depthStencilState        vk.PipelineDepthStencilStateCreateInfo
	colorBlendAttachment     vk.PipelineColorBlendAttachmentState
	colorBlendState          vk.PipelineColorBlendStateCreateInfo
}

// vertexBindingDescriptions returns the single interleaved binding, or none
// when the pipeline passes no vertex data.
func vertexBindingDescriptions(passingVertexData bool) []vk.VertexInputBindingDescription {
	if !passingVertexData {
		return nil
	}
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}}
}

// vertexAttributeDescriptions maps the enabled components in order onto
// sequential locations.
func vertexAttributeDescriptions(components []VertexComponent) []vk.VertexInputAttributeDescription {
	attributes := make([]vk.VertexInputAttributeDescription, 0, len(components))
	for location, component := range components {
		attr := vk.VertexInputAttributeDescription{
			Binding:  0,
			Location: uint32(location),
		}
		switch component {
		case VertexComponentPosition:
			attr.Format = vk.FormatR32g32b32Sfloat
			attr.Offset = uint32(unsafe.Offsetof(Vertex{}.Position))
		case VertexComponentNormal:
			attr.Format = vk.FormatR32g32b32Sfloat
			attr.Offset = uint32(unsafe.Offsetof(Vertex{}.Normal))
		case VertexComponentUV0:
			attr.Format = vk.FormatR32g32Sfloat
			attr.Offset = uint32(unsafe.Offsetof(Vertex{}.UV0))
		case VertexComponentColor0:
			attr.Format = vk.FormatR32g32b32a32Sfloat
			attr.Offset = uint32(unsafe.Offsetof(Vertex{}.Color0))
		case VertexComponentJoints0:
			attr.Format = vk.FormatR32g32b32a32Sfloat
			attr.Offset = uint32(unsafe.Offsetof(Vertex{}.Joints0))
		case VertexComponentWeights0:
			attr.Format = vk.FormatR32g32b32a32Sfloat
			attr.Offset = uint32(unsafe.Offsetof(Vertex{}.Weights0))
		default:
			continue
		}
		attributes = append(attributes, attr)
	}
	return attributes
}

// NewCorePipeline creates the descriptor-set layout and pipeline layout and
// populates every state struct with the defaults the sprite family shares.
// The pipeline handle itself is produced by Build.
func NewCorePipeline(device vk.Device, ci *PipelineCreateInfo) (*CorePipeline, error) {
	if len(ci.Bindings) > PipelineDescriptorSetLayoutBindingMax {
		return nil, fmt.Errorf("too many descriptor set layout bindings: %d", len(ci.Bindings))
	}
	if len(ci.PushConstants) > PipelinePushConstantsMax {
		return nil, fmt.Errorf("too many push constant ranges: %d", len(ci.PushConstants))
	}

	pipe := &CorePipeline{
		renderpass:        ci.Renderpass,
		passingVertexData: ci.PassingVertexData,
		alphaBlending:     ci.AlphaBlending,
		cache:             ci.Cache,
	}
	pipe.shaderStages[0] = ci.VertexShader.info
	pipe.shaderStages[1] = ci.FragmentShader.info

	ret := vk.CreateDescriptorSetLayout(device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(ci.Bindings)),
		PBindings:    ci.Bindings,
	}, nil, &pipe.descriptorSetLayout)
	if err := NewError(ret); err != nil {
		return nil, fmt.Errorf("failed to create descriptor set layout: %w", err)
	}

	ret = vk.CreatePipelineLayout(device, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{pipe.descriptorSetLayout},
		PushConstantRangeCount: uint32(len(ci.PushConstants)),
		PPushConstantRanges:    ci.PushConstants,
	}, nil, &pipe.layout)
	if err := NewError(ret); err != nil {
		vk.DestroyDescriptorSetLayout(device, pipe.descriptorSetLayout, nil)
		return nil, fmt.Errorf("failed to create pipeline layout: %w", err)
	}

	pipe.bindingsDescription = vertexBindingDescriptions(ci.PassingVertexData)
	if ci.PassingVertexData {
		pipe.attributesDescription = vertexAttributeDescriptions(ci.VertexComponents)
	}
	pipe.vertexInputState = vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(pipe.bindingsDescription)),
		PVertexBindingDescriptions:      pipe.bindingsDescription,
		VertexAttributeDescriptionCount: uint32(len(pipe.attributesDescription)),
		PVertexAttributeDescriptions:    pipe.attributesDescription,
	}

	pipe.inputVertexAssemblyState = vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	// viewport and scissor are dynamic, only the counts matter
	pipe.viewportState = vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	pipe.rasterizationState = vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}

	pipe.multisampleState = vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCountFlagBits(ci.Renderpass.msaa),
	}

	pipe.depthStencilState = vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.True,
		DepthWriteEnable: vk.True,
		DepthCompareOp:   vk.CompareOpLessOrEqual,
		Back: vk.StencilOpState{
			CompareOp: vk.CompareOpAlways,
		},
	}

	blendEnable := vk.Bool32(vk.False)
	if ci.AlphaBlending {
		blendEnable = vk.True
	}
	pipe.colorBlendAttachment = vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) |
			vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) |
			vk.ColorComponentFlags(vk.ColorComponentABit),
		BlendEnable:         blendEnable,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
	}

	return pipe, nil
}

// Build finalizes the pipeline with dynamic viewport and scissor, consuming
// whatever state tweaks happened since creation.
func (pipe *CorePipeline) Build(device vk.Device) error {
	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}

	pipe.colorBlendState = vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{pipe.colorBlendAttachment},
		LogicOp:         vk.LogicOpCopy,
	}

	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(device, pipe.cache, 1, []vk.GraphicsPipelineCreateInfo{{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          PipelineShaderStagesCount,
		PStages:             pipe.shaderStages[:],
		PVertexInputState:   &pipe.vertexInputState,
		PInputAssemblyState: &pipe.inputVertexAssemblyState,
		PViewportState:      &pipe.viewportState,
		PRasterizationState: &pipe.rasterizationState,
		PMultisampleState:   &pipe.multisampleState,
		PDepthStencilState:  &pipe.depthStencilState,
		PColorBlendState:    &pipe.colorBlendState,
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamicStates)),
			PDynamicStates:    dynamicStates,
		},
		Layout:     pipe.layout,
		RenderPass: pipe.renderpass.renderpass,
	}}, nil, pipelines)
	if err := NewError(ret); err != nil {
		logError("failed to build the graphics pipeline: %v", err)
		return err
	}
	pipe.pipeline = pipelines[0]

	return nil
}

// Destroy waits the device idle and releases the pipeline, its layouts and
// the shader modules it consumed.
func (pipe *CorePipeline) Destroy(device vk.Device) {
	if pipe == nil || device == nil {
		return
	}

	vk.DeviceWaitIdle(device)
	if pipe.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(device, pipe.pipeline, nil)
	}
	vk.DestroyPipelineLayout(device, pipe.layout, nil)
	vk.DestroyDescriptorSetLayout(device, pipe.descriptorSetLayout, nil)

	vk.DestroyShaderModule(device, pipe.shaderStages[0].Module, nil)
	vk.DestroyShaderModule(device, pipe.shaderStages[1].Module, nil)
}

// Layout exposes the pipeline layout for push constants and descriptor binds.
func (pipe *CorePipeline) Layout() vk.PipelineLayout {
	return pipe.layout
}

// DescriptorSetLayout exposes the layout sprite descriptor sets allocate with.
func (pipe *CorePipeline) DescriptorSetLayout() vk.DescriptorSetLayout {
	return pipe.descriptorSetLayout
}

// Handle exposes the built pipeline.
func (pipe *CorePipeline) Handle() vk.Pipeline {
	return pipe.pipeline
}

// spritePipelineBindings is the descriptor layout every sprite pipeline
// shares: camera UBO, sprite UBO, albedo sampler.
func spritePipelineBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
		{
			Binding:         2,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
}

func spritePushConstants() []vk.PushConstantRange {
	return []vk.PushConstantRange{{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		Offset:     0,
		Size:       uint32(unsafe.Sizeof(PushConstant{})),
	}}
}

// createSpritePipelines builds the sprite default pipeline against the
// active scene renderpass and the picking variant against the picking
// renderpass, inserting both into the library.
func createSpritePipelines(pipelines map[string]*CorePipeline, shaders *CoreShader,
	renderpass, pickingRenderpass *Renderpass, device vk.Device) error {

	if old := pipelines[PipelineSpriteDefaultName]; old != nil {
		old.Destroy(device)
	}

	vert, err := shaders.LoadShader(device, "sprite.vert", ShaderTypeVertex)
	if err != nil {
		return err
	}
	frag, err := shaders.LoadShader(device, "sprite.frag", ShaderTypeFragment)
	if err != nil {
		return err
	}

	defaultPipeline, err := NewCorePipeline(device, &PipelineCreateInfo{
		Renderpass:     renderpass,
		VertexShader:   vert,
		FragmentShader: frag,
		AlphaBlending:  true,
		Bindings:       spritePipelineBindings(),
		PushConstants:  spritePushConstants(),
	})
	if err != nil {
		return fmt.Errorf("failed to create sprite default pipeline: %w", err)
	}
	defaultPipeline.rasterizationState.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	if err := defaultPipeline.Build(device); err != nil {
		return fmt.Errorf("failed to build sprite default pipeline: %w", err)
	}
	pipelines[PipelineSpriteDefaultName] = defaultPipeline

	if old := pipelines[PipelineSpritePickingName]; old != nil {
		old.Destroy(device)
	}

	pickVert, err := shaders.LoadShader(device, "sprite_picking.vert", ShaderTypeVertex)
	if err != nil {
		return err
	}
	pickFrag, err := shaders.LoadShader(device, "sprite_picking.frag", ShaderTypeFragment)
	if err != nil {
		return err
	}

	pickingPipeline, err := NewCorePipeline(device, &PipelineCreateInfo{
		Renderpass:     pickingRenderpass,
		VertexShader:   pickVert,
		FragmentShader: pickFrag,
		AlphaBlending:  false,
		Bindings:       spritePipelineBindings(),
		PushConstants:  spritePushConstants(),
	})
	if err != nil {
		return fmt.Errorf("failed to create sprite picking pipeline: %w", err)
	}
	pickingPipeline.rasterizationState.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	// ids live in the RED channel only
	pickingPipeline.colorBlendAttachment.ColorWriteMask = vk.ColorComponentFlags(vk.ColorComponentRBit)
	if err := pickingPipeline.Build(device); err != nil {
		return fmt.Errorf("failed to build sprite picking pipeline: %w", err)
	}
	pipelines[PipelineSpritePickingName] = pickingPipeline

	return nil
}

func destroySpritePipelines(pipelines map[string]*CorePipeline, device vk.Device) {
	if pipe := pipelines[PipelineSpriteDefaultName]; pipe != nil {
		pipe.Destroy(device)
		delete(pipelines, PipelineSpriteDefaultName)
	}
	if pipe := pipelines[PipelineSpritePickingName]; pipe != nil {
		pipe.Destroy(device)
		delete(pipelines, PipelineSpritePickingName)
	}
}
