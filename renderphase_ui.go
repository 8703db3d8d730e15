package spritevk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// UIRenderphase draws the interface overlay on top of the prior phase
// output, loading the color attachment instead of clearing it. It also owns
// the descriptor pool and single-binding layout the ui system uses to sample
// arbitrary textures.
type UIRenderphase struct {
	Renderpass Renderpass

	descriptorPool      vk.DescriptorPool
	descriptorSetLayout vk.DescriptorSetLayout
}

// NewUIRenderphase creates the single-sample ui renderpass; the attachment
// final layout is PRESENT_SRC only when this is the final phase.
func NewUIRenderphase(device *CoreDevice, surface vk.Surface, format vk.Format, finalPhase bool) (*UIRenderphase, error) {
	phase := &UIRenderphase{
		Renderpass: Renderpass{
			name:   "UI",
			format: format,
			msaa:   MsaaOff,
		},
	}

	finalLayout := vk.ImageLayoutColorAttachmentOptimal
	if finalPhase {
		finalLayout = vk.ImageLayoutPresentSrc
	}

	attachment := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpLoad,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
		FinalLayout:    finalLayout,
	}

	colorRef := []vk.AttachmentReference{{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorRef,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.MaxUint32,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	ret := vk.CreateRenderPass(device.handle, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{attachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}, nil, &phase.Renderpass.renderpass)
	if err := NewError(ret); err != nil {
		return nil, fmt.Errorf("failed to create ui renderphase renderpass: %w", err)
	}

	if err := phase.Renderpass.initCommands(device.handle, device.graphicsIndex); err != nil {
		return nil, err
	}

	ret = vk.CreateDescriptorSetLayout(device.handle, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		}},
	}, nil, &phase.descriptorSetLayout)
	if err := NewError(ret); err != nil {
		return nil, fmt.Errorf("failed to create ui renderphase descriptor set layout: %w", err)
	}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeSampler, DescriptorCount: 1000},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 1000},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: 1000},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: 1000},
		{Type: vk.DescriptorTypeUniformTexelBuffer, DescriptorCount: 1000},
		{Type: vk.DescriptorTypeStorageTexelBuffer, DescriptorCount: 1000},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1000},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1000},
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: 1000},
		{Type: vk.DescriptorTypeStorageBufferDynamic, DescriptorCount: 1000},
		{Type: vk.DescriptorTypeInputAttachment, DescriptorCount: 1000},
	}

	ret = vk.CreateDescriptorPool(device.handle, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       1000 * uint32(len(poolSizes)),
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}, nil, &phase.descriptorPool)
	if err := NewError(ret); err != nil {
		return nil, fmt.Errorf("failed to create ui renderphase descriptor pool: %w", err)
	}

	return phase, nil
}

// CreateFramebuffers attaches only the swapchain image view for each image.
func (phase *UIRenderphase) CreateFramebuffers(device *CoreDevice, views []vk.ImageView, extent vk.Extent2D) error {
	return phase.Renderpass.createFramebuffers(device.handle, uint32(len(views)), extent,
		func(i uint32) []vk.ImageView {
			return []vk.ImageView{views[i]}
		})
}

// Record records the frame's command buffer, handing the ui callback the raw
// command buffer.
func (phase *UIRenderphase) Record(currentFrame uint32, extent vk.Extent2D,
	imageIndex uint32, callback RenderUICallback) {

	clearValues := []vk.ClearValue{
		vk.NewClearValue([]float32{0.0, 0.0, 0.0, 1.0}),
	}

	cmdBuffer := phase.Renderpass.beginRecord(currentFrame, imageIndex, extent, clearValues)

	if callback != nil {
		callback(GetContext(), cmdBuffer)
	}

	phase.Renderpass.endRecord(cmdBuffer)
}

// DescriptorPool exposes the pool the ui system allocates texture sets from.
func (phase *UIRenderphase) DescriptorPool() vk.DescriptorPool {
	return phase.descriptorPool
}

// DescriptorSetLayout exposes the single-binding sampler layout.
func (phase *UIRenderphase) DescriptorSetLayout() vk.DescriptorSetLayout {
	return phase.descriptorSetLayout
}

// Destroy waits the device idle and releases everything the phase owns.
func (phase *UIRenderphase) Destroy(device vk.Device) {
	vk.DeviceWaitIdle(device)
	phase.Renderpass.destroy(device)

	if phase.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, phase.descriptorSetLayout, nil)
		phase.descriptorSetLayout = vk.NullDescriptorSetLayout
	}
	if phase.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(device, phase.descriptorPool, nil)
		phase.descriptorPool = vk.NullDescriptorPool
	}
}
