package spritevk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// MainRenderphase renders the scene into a multisampled color attachment
// resolved into the swapchain image.
type MainRenderphase struct {
	Renderpass Renderpass

	colorImage  vk.Image
	depthImage  vk.Image
	colorMem    vk.DeviceMemory
	depthMem    vk.DeviceMemory
	colorView   vk.ImageView
	depthView   vk.ImageView
	colorFormat vk.Format
	depthFormat vk.Format
}

// NewMainRenderphase creates the main renderpass: MSAA color (A0), MSAA
// depth (A1) and a single-sample resolve target (A2) whose final layout is
// PRESENT_SRC only when this is the final phase.
func NewMainRenderphase(device *CoreDevice, surface vk.Surface, format vk.Format, msaa MSAA, finalPhase bool) (*MainRenderphase, error) {
	phase := &MainRenderphase{
		Renderpass: Renderpass{
			name:   "Main",
			format: format,
			msaa:   msaa,
		},
		colorFormat: format,
		depthFormat: findDepthFormat(device.physicalDevice),
	}

	resolveFinalLayout := vk.ImageLayoutColorAttachmentOptimal
	if finalPhase {
		resolveFinalLayout = vk.ImageLayoutPresentSrc
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
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		},
		{
			Format:         phase.depthFormat,
			Samples:        vk.SampleCountFlagBits(msaa),
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpClear,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
		{
			Format:         format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    resolveFinalLayout,
		},
	}

	colorRef := []vk.AttachmentReference{{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}}
	depthRef := vk.AttachmentReference{Attachment: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
	resolveRef := []vk.AttachmentReference{{Attachment: 2, Layout: vk.ImageLayoutColorAttachmentOptimal}}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorRef,
		PDepthStencilAttachment: &depthRef,
		PResolveAttachments:     resolveRef,
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
		return nil, fmt.Errorf("failed to create main renderphase renderpass: %w", err)
	}

	if err := phase.Renderpass.initCommands(device.handle, device.graphicsIndex); err != nil {
		return nil, err
	}

	return phase, nil
}

// CreateFramebuffers recreates the owned MSAA color and depth attachments
// and attaches them plus the swapchain view for each image.
func (phase *MainRenderphase) CreateFramebuffers(device *CoreDevice, views []vk.ImageView, extent vk.Extent2D) error {
	phase.destroyAttachments(device.handle)

	var err error
	phase.colorImage, phase.colorMem, err = createImage(device.handle, device.physicalDevice,
		extent, 1, 1, phase.colorFormat, vk.SampleCountFlagBits(phase.Renderpass.msaa),
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit)|vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), 0)
	if err != nil {
		return fmt.Errorf("failed to create color image for the main renderphase: %w", err)
	}

	phase.colorView, err = createImageView(device.handle, phase.colorImage, phase.colorFormat,
		vk.ImageAspectFlags(vk.ImageAspectColorBit), 1, 1, vk.ImageViewType2d, nil)
	if err != nil {
		return fmt.Errorf("failed to create color image view for the main renderphase: %w", err)
	}

	phase.depthImage, phase.depthMem, err = createImage(device.handle, device.physicalDevice,
		extent, 1, 1, phase.depthFormat, vk.SampleCountFlagBits(phase.Renderpass.msaa),
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), 0)
	if err != nil {
		return fmt.Errorf("failed to create depth image for the main renderphase: %w", err)
	}

	phase.depthView, err = createImageView(device.handle, phase.depthImage, phase.depthFormat,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit), 1, 1, vk.ImageViewType2d, nil)
	if err != nil {
		return fmt.Errorf("failed to create depth image view for the main renderphase: %w", err)
	}

	return phase.Renderpass.createFramebuffers(device.handle, uint32(len(views)), extent,
		func(i uint32) []vk.ImageView {
			return []vk.ImageView{phase.colorView, phase.depthView, views[i]}
		})
}

// Record records the frame's command buffer. The draw callback is suppressed
// when the viewport phase is enabled, because then the viewport is the scene
// target and drawing here would render the scene twice.
func (phase *MainRenderphase) Record(timestep float32, currentFrame uint32, extent vk.Extent2D,
	imageIndex uint32, usingViewport bool, callback RenderCallback) {

	clearValues := []vk.ClearValue{
		vk.NewClearValue([]float32{0.0, 0.0, 0.0, 1.0}),
		vk.NewClearDepthStencil(1.0, 0),
	}

	cmdBuffer := phase.Renderpass.beginRecord(currentFrame, imageIndex, extent, clearValues)
	setDynamicState(cmdBuffer, extent)

	if !usingViewport && callback != nil {
		callback(GetContext(), timestep)
	}

	phase.Renderpass.endRecord(cmdBuffer)
}

func (phase *MainRenderphase) destroyAttachments(device vk.Device) {
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
func (phase *MainRenderphase) Destroy(device vk.Device) {
	vk.DeviceWaitIdle(device)
	phase.Renderpass.destroy(device)
	phase.destroyAttachments(device)
}
