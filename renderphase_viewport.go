package spritevk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ViewportRenderphase renders the scene offscreen into a color attachment
// the ui phase samples, typically to show the scene inside an in-application
// window.
type ViewportRenderphase struct {
	Renderpass Renderpass

	colorImage vk.Image
	colorMem   vk.DeviceMemory
	colorView  vk.ImageView
	depthImage vk.Image
	depthMem   vk.DeviceMemory
	depthView  vk.ImageView

	sampler             vk.Sampler
	descriptorPool      vk.DescriptorPool
	descriptorSetLayout vk.DescriptorSetLayout
	descriptorSet       vk.DescriptorSet
}

// NewViewportRenderphase creates the offscreen renderpass: color at the
// configured sample count finishing in SHADER_READ_ONLY, plus depth.
func NewViewportRenderphase(device *CoreDevice, surface vk.Surface, format vk.Format, msaa MSAA) (*ViewportRenderphase, error) {
	phase := &ViewportRenderphase{
		Renderpass: Renderpass{
			name:   "Viewport",
			format: format,
			msaa:   msaa,
		},
	}

	attachments := []vk.AttachmentDescription{
		{
			Format:         format,
			Samples:        vk.SampleCountFlagBits(msaa),
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutShaderReadOnlyOptimal,
		},
		{
			Format:         findDepthFormat(device.physicalDevice),
			Samples:        vk.SampleCountFlagBits(msaa),
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpClear,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorRef := []vk.AttachmentReference{{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}}
	depthRef := vk.AttachmentReference{Attachment: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorRef,
		PDepthStencilAttachment: &depthRef,
	}

	dependencies := scenePhaseDependencies()

	ret := vk.CreateRenderPass(device.handle, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}, nil, &phase.Renderpass.renderpass)
	if err := NewError(ret); err != nil {
		return nil, fmt.Errorf("failed to create viewport renderphase renderpass: %w", err)
	}

	if err := phase.Renderpass.initCommands(device.handle, device.graphicsIndex); err != nil {
		return nil, err
	}

	return phase, nil
}

// CreateFramebuffers recreates the offscreen color and depth attachments,
// the sampler and the descriptor set the ui phase samples from, then
// transitions the color image into SHADER_READ_ONLY so the first ui frame
// can sample it before the first scene render.
func (phase *ViewportRenderphase) CreateFramebuffers(device *CoreDevice, graphicsQueue vk.Queue,
	views []vk.ImageView, extent vk.Extent2D) error {

	phase.destroyAttachments(device.handle)

	ret := vk.CreateDescriptorPool(device.handle, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       2,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: ConcurrentFrames},
		},
	}, nil, &phase.descriptorPool)
	if err := NewError(ret); err != nil {
		return fmt.Errorf("failed to create viewport renderphase descriptor pool: %w", err)
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
		return fmt.Errorf("failed to create viewport renderphase descriptor set layout: %w", err)
	}

	var err error
	phase.sampler, err = createImageSampler(device.handle, device.physicalDevice,
		vk.FilterLinear, vk.FilterLinear,
		vk.SamplerAddressModeRepeat, vk.SamplerAddressModeRepeat, vk.SamplerAddressModeRepeat, 1.0)
	if err != nil {
		return fmt.Errorf("failed to create viewport renderphase sampler: %w", err)
	}

	phase.colorImage, phase.colorMem, err = createImage(device.handle, device.physicalDevice,
		extent, 1, 1, phase.Renderpass.format, vk.SampleCountFlagBits(phase.Renderpass.msaa),
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)|vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), 0)
	if err != nil {
		return fmt.Errorf("failed to create viewport renderphase color image: %w", err)
	}

	phase.colorView, err = createImageView(device.handle, phase.colorImage, phase.Renderpass.format,
		vk.ImageAspectFlags(vk.ImageAspectColorBit), 1, 1, vk.ImageViewType2d, nil)
	if err != nil {
		return fmt.Errorf("failed to create viewport renderphase color image view: %w", err)
	}

	depthFormat := findDepthFormat(device.physicalDevice)
	phase.depthImage, phase.depthMem, err = createImage(device.handle, device.physicalDevice,
		extent, 1, 1, depthFormat, vk.SampleCountFlagBits(phase.Renderpass.msaa),
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), 0)
	if err != nil {
		return fmt.Errorf("failed to create viewport renderphase depth image: %w", err)
	}

	phase.depthView, err = createImageView(device.handle, phase.depthImage, depthFormat,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit), 1, 1, vk.ImageViewType2d, nil)
	if err != nil {
		return fmt.Errorf("failed to create viewport renderphase depth image view: %w", err)
	}

	cmdBuffer, err := beginSingleTimeCommands(device.handle, phase.Renderpass.cmdPool)
	if err != nil {
		return err
	}
	recordImageMemoryBarrier(cmdBuffer, phase.colorImage,
		vk.AccessFlags(vk.AccessTransferReadBit), vk.AccessFlags(vk.AccessMemoryReadBit),
		vk.ImageLayoutUndefined, vk.ImageLayoutShaderReadOnlyOptimal,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		})
	if err := endSingleTimeCommands(device.handle, phase.Renderpass.cmdPool, cmdBuffer, graphicsQueue); err != nil {
		return err
	}

	phase.descriptorSet, err = createImageDescriptorSet(device.handle, phase.descriptorPool,
		phase.descriptorSetLayout, phase.sampler, phase.colorView)
	if err != nil {
		return fmt.Errorf("failed to create viewport renderphase image descriptor set: %w", err)
	}

	return phase.Renderpass.createFramebuffers(device.handle, uint32(len(views)), extent,
		func(i uint32) []vk.ImageView {
			return []vk.ImageView{phase.colorView, phase.depthView}
		})
}

// Record records the frame's command buffer; the viewport is the scene
// target, so the draw callback always runs here.
func (phase *ViewportRenderphase) Record(timestep float32, currentFrame uint32, extent vk.Extent2D,
	imageIndex uint32, callback RenderCallback) {

	clearValues := []vk.ClearValue{
		vk.NewClearValue([]float32{0.0, 0.0, 0.0, 1.0}),
		vk.NewClearDepthStencil(1.0, 0),
	}

	cmdBuffer := phase.Renderpass.beginRecord(currentFrame, imageIndex, extent, clearValues)
	setDynamicState(cmdBuffer, extent)

	if callback != nil {
		callback(GetContext(), timestep)
	}

	phase.Renderpass.endRecord(cmdBuffer)
}

// DescriptorSet exposes the sampled-scene descriptor the ui draws with.
func (phase *ViewportRenderphase) DescriptorSet() vk.DescriptorSet {
	return phase.descriptorSet
}

func (phase *ViewportRenderphase) destroyAttachments(device vk.Device) {
	if phase.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(device, phase.descriptorPool, nil)
		phase.descriptorPool = vk.NullDescriptorPool
		phase.descriptorSet = vk.NullDescriptorSet
	}
	if phase.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, phase.descriptorSetLayout, nil)
		phase.descriptorSetLayout = vk.NullDescriptorSetLayout
	}
	if phase.sampler != vk.NullSampler {
		vk.DestroySampler(device, phase.sampler, nil)
		phase.sampler = vk.NullSampler
	}
	if phase.depthView != vk.NullImageView {
		vk.DestroyImageView(device, phase.depthView, nil)
		phase.depthView = vk.NullImageView
	}
	if phase.depthImage != vk.NullImage {
		vk.DestroyImage(device, phase.depthImage, nil)
		phase.depthImage = vk.NullImage
	}
	if phase.depthMem != vk.NullDeviceMemory {
		vk.FreeMemory(device, phase.depthMem, nil)
		phase.depthMem = vk.NullDeviceMemory
	}
	if phase.colorView != vk.NullImageView {
		vk.DestroyImageView(device, phase.colorView, nil)
		phase.colorView = vk.NullImageView
	}
	if phase.colorImage != vk.NullImage {
		vk.DestroyImage(device, phase.colorImage, nil)
		phase.colorImage = vk.NullImage
	}
	if phase.colorMem != vk.NullDeviceMemory {
		vk.FreeMemory(device, phase.colorMem, nil)
		phase.colorMem = vk.NullDeviceMemory
	}
}

// Destroy waits the device idle and releases everything the phase owns.
func (phase *ViewportRenderphase) Destroy(device vk.Device) {
	vk.DeviceWaitIdle(device)
	phase.Renderpass.destroy(device)
	phase.destroyAttachments(device)
}
