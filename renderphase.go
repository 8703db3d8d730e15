package spritevk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Renderpass is the shape every renderphase shares: the renderpass object,
// a resettable command pool with one primary command buffer per frame in
// flight, and one framebuffer per swapchain image.
type Renderpass struct {
	name         string
	msaa         MSAA
	format       vk.Format
	cmdPool      vk.CommandPool
	cmdBuffers   []vk.CommandBuffer
	framebuffers []vk.Framebuffer
	renderpass   vk.RenderPass
}

// initCommands creates the phase's command pool (reset-command-buffer flag
// set) and its per-frame primary command buffers.
func (rp *Renderpass) initCommands(device vk.Device, graphicsFamily uint32) error {
	ret := vk.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: graphicsFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &rp.cmdPool)
	if err := NewError(ret); err != nil {
		return fmt.Errorf("failed to create %s renderphase command pool: %w", rp.name, err)
	}

	rp.cmdBuffers = make([]vk.CommandBuffer, ConcurrentFrames)
	ret = vk.AllocateCommandBuffers(device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        rp.cmdPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: ConcurrentFrames,
	}, rp.cmdBuffers)
	if err := NewError(ret); err != nil {
		return fmt.Errorf("failed to allocate %s renderphase command buffers: %w", rp.name, err)
	}

	return nil
}

// destroyFramebuffers drops the framebuffer array if it exists; used both on
// teardown and ahead of a resize rebuild.
func (rp *Renderpass) destroyFramebuffers(device vk.Device) {
	for _, fb := range rp.framebuffers {
		if fb != vk.NullFramebuffer {
			vk.DestroyFramebuffer(device, fb, nil)
		}
	}
	rp.framebuffers = nil
}

// createFramebuffers builds one framebuffer per swapchain image with the
// given attachment selector.
func (rp *Renderpass) createFramebuffers(device vk.Device, count uint32, extent vk.Extent2D,
	attachments func(i uint32) []vk.ImageView) error {

	rp.destroyFramebuffers(device)
	rp.framebuffers = make([]vk.Framebuffer, count)

	for i := uint32(0); i < count; i++ {
		views := attachments(i)
		ret := vk.CreateFramebuffer(device, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      rp.renderpass,
			AttachmentCount: uint32(len(views)),
			PAttachments:    views,
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}, nil, &rp.framebuffers[i])
		if err := NewError(ret); err != nil {
			return fmt.Errorf("failed to create %s renderphase framebuffer: %w", rp.name, err)
		}
	}

	return nil
}

// destroy releases the renderpass, command buffers, pool and framebuffers.
func (rp *Renderpass) destroy(device vk.Device) {
	if rp.renderpass != vk.NullRenderPass {
		vk.DestroyRenderPass(device, rp.renderpass, nil)
		rp.renderpass = vk.NullRenderPass
	}
	if len(rp.cmdBuffers) > 0 {
		vk.FreeCommandBuffers(device, rp.cmdPool, uint32(len(rp.cmdBuffers)), rp.cmdBuffers)
		rp.cmdBuffers = nil
	}
	if rp.cmdPool != vk.NullCommandPool {
		vk.DestroyCommandPool(device, rp.cmdPool, nil)
		rp.cmdPool = vk.NullCommandPool
	}
	rp.destroyFramebuffers(device)
}

// beginRecord resets the frame's command buffer and opens the render pass
// with the given clears.
func (rp *Renderpass) beginRecord(currentFrame, imageIndex uint32, extent vk.Extent2D,
	clearValues []vk.ClearValue) vk.CommandBuffer {

	cmdBuffer := rp.cmdBuffers[currentFrame]

	vk.ResetCommandBuffer(cmdBuffer, 0)
	ret := vk.BeginCommandBuffer(cmdBuffer, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	})
	Fatal(NewError(ret))

	vk.CmdBeginRenderPass(cmdBuffer, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      rp.renderpass,
		Framebuffer:     rp.framebuffers[imageIndex],
		RenderArea:      vk.Rect2D{Extent: extent},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}, vk.SubpassContentsInline)

	return cmdBuffer
}

// setDynamicState records the full-extent viewport and scissor.
func setDynamicState(cmdBuffer vk.CommandBuffer, extent vk.Extent2D) {
	vk.CmdSetViewport(cmdBuffer, 0, 1, []vk.Viewport{{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MaxDepth: 1.0,
	}})
	vk.CmdSetScissor(cmdBuffer, 0, 1, []vk.Rect2D{{
		Extent: extent,
	}})
}

// endRecord closes the render pass and the command buffer.
func (rp *Renderpass) endRecord(cmdBuffer vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmdBuffer)
	ret := vk.EndCommandBuffer(cmdBuffer)
	Fatal(NewError(ret))
}

// scenePhaseDependencies is the external dependency pair every scene phase
// uses: one covering depth read/write, one covering color read/write.
func scenePhaseDependencies() []vk.SubpassDependency {
	return []vk.SubpassDependency{
		{
			SrcSubpass: vk.MaxUint32,
			DstSubpass: 0,
			SrcStageMask: vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) |
				vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
			DstStageMask: vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) |
				vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit) |
				vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit),
		},
		{
			SrcSubpass:   vk.MaxUint32,
			DstSubpass:   0,
			SrcStageMask: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit) |
				vk.AccessFlags(vk.AccessColorAttachmentReadBit),
		},
	}
}
