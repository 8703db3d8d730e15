package spritevk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// PickingRenderphase renders object ids into a single-sample R32_UINT color
// attachment the picker reads back.
type PickingRenderphase struct {
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

// NewPickingRenderphase creates the picking renderpass. The phase is always
// single-sample regardless of the configured MSAA.
func NewPickingRenderphase(device *CoreDevice, surface vk.Surface) (*PickingRenderphase, error) {
	phase := &PickingRenderphase{
		Renderpass: Renderpass{
			name: "Picking",
			msaa: MsaaOff,
		},
		colorFormat: vk.FormatR32Uint,
		depthFormat: findDepthFormat(device.physicalDevice),
	}

	attachments := []vk.AttachmentDescription{
		{
			Format:         phase.colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		},
		{
			Format:         phase.depthFormat,
			Samples:        vk.SampleCount1Bit,
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
		return nil, fmt.Errorf("failed to create picking renderphase renderpass: %w", err)
	}

	if err := phase.Renderpass.initCommands(device.handle, device.graphicsIndex); err != nil {
		return nil, err
	}

	return phase, nil
}

// CreateFramebuffers recreates the id color image and depth image; the
// framebuffer array matches the swapchain image count even though only the
// phase-owned attachments are bound.
func (phase *PickingRenderphase) CreateFramebuffers(device *CoreDevice, views []vk.ImageView, extent vk.Extent2D) error {
	phase.destroyAttachments(device.handle)

	var err error
	phase.colorImage, phase.colorMem, err = createImage(device.handle, device.physicalDevice,
		extent, 1, 1, phase.colorFormat, vk.SampleCount1Bit,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)|vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), 0)
	if err != nil {
		return fmt.Errorf("failed to create color image for the picking renderphase: %w", err)
	}

	phase.colorView, err = createImageView(device.handle, phase.colorImage, phase.colorFormat,
		vk.ImageAspectFlags(vk.ImageAspectColorBit), 1, 1, vk.ImageViewType2d, nil)
	if err != nil {
		return fmt.Errorf("failed to create color image view for the picking renderphase: %w", err)
	}

	phase.depthImage, phase.depthMem, err = createImage(device.handle, device.physicalDevice,
		extent, 1, 1, phase.depthFormat, vk.SampleCount1Bit,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), 0)
	if err != nil {
		return fmt.Errorf("failed to create depth image for the picking renderphase: %w", err)
	}

	phase.depthView, err = createImageView(device.handle, phase.depthImage, phase.depthFormat,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit), 1, 1, vk.ImageViewType2d, nil)
	if err != nil {
		return fmt.Errorf("failed to create depth image view for the picking renderphase: %w", err)
	}

	return phase.Renderpass.createFramebuffers(device.handle, uint32(len(views)), extent,
		func(i uint32) []vk.ImageView {
			return []vk.ImageView{phase.colorView, phase.depthView}
		})
}

// Record records the frame's command buffer; the id buffer clears to zero so
// untouched pixels read back as "no object".
func (phase *PickingRenderphase) Record(timestep float32, currentFrame uint32, extent vk.Extent2D,
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

func (phase *PickingRenderphase) destroyAttachments(device vk.Device) {
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
func (phase *PickingRenderphase) Destroy(device vk.Device) {
	vk.DeviceWaitIdle(device)
	phase.Renderpass.destroy(device)
	phase.destroyAttachments(device)
}
