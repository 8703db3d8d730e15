package spritevk

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// PickObject reads the object id the picking pass wrote under the given
// logical-pixel coordinates, returning 0 when nothing is there. The readback
// is synchronous: a single-shot copy of the picking color attachment into a
// host-visible staging buffer, fenced, then read. Every allocation is freed
// on every path.
func PickObject(xy Float2) uint32 {
	backend := getBackend()
	if backend == nil {
		return 0
	}

	device := backend.device.handle
	gpu := backend.device.physicalDevice
	cmdPool := backend.pickingRenderphase.Renderpass.cmdPool
	extent := backend.swapchain.extent

	var stagingBuffer vk.Buffer
	ret := vk.CreateBuffer(device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(unsafe.Sizeof(uint32(0))),
		Usage:       vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &stagingBuffer)
	if isError(ret) {
		logError("failed to create staging buffer for picking")
		return 0
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, stagingBuffer, &memReqs)
	memReqs.Deref()
	alignedSize := vk.DeviceSize(alignUp(uint64(memReqs.Size), 4))

	memType, ok := findMemoryType(gpu, memReqs.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if !ok {
		vk.DestroyBuffer(device, stagingBuffer, nil)
		logError("no suitable memory type for picking")
		return 0
	}

	var stagingMemory vk.DeviceMemory
	ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  alignedSize,
		MemoryTypeIndex: memType,
	}, nil, &stagingMemory)
	if isError(ret) {
		vk.DestroyBuffer(device, stagingBuffer, nil)
		logError("failed to allocate memory for picking")
		return 0
	}

	freeStaging := func() {
		vk.FreeMemory(device, stagingMemory, nil)
		vk.DestroyBuffer(device, stagingBuffer, nil)
	}

	if ret := vk.BindBufferMemory(device, stagingBuffer, stagingMemory, 0); isError(ret) {
		freeStaging()
		logError("failed to bind buffer memory for picking")
		return 0
	}

	cmdBuffer, err := beginSingleTimeCommands(device, cmdPool)
	if err != nil {
		freeStaging()
		logError("failed to begin command buffer for picking: %v", err)
		return 0
	}
	freeAll := func() {
		freeStaging()
		vk.FreeCommandBuffers(device, cmdPool, 1, []vk.CommandBuffer{cmdBuffer})
	}

	colorRange := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}

	recordImageMemoryBarrier(cmdBuffer, backend.pickingRenderphase.colorImage,
		vk.AccessFlags(vk.AccessShaderReadBit), vk.AccessFlags(vk.AccessTransferReadBit),
		vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferSrcOptimal,
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), colorRange)

	fbX, fbY := pickFramebufferCoords(xy, extent, UsingViewport(), GetViewportSize())

	vk.CmdCopyImageToBuffer(cmdBuffer, backend.pickingRenderphase.colorImage,
		vk.ImageLayoutTransferSrcOptimal, stagingBuffer, 1, []vk.BufferImageCopy{{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageOffset: vk.Offset3D{X: int32(fbX), Y: int32(fbY)},
			ImageExtent: vk.Extent3D{Width: 1, Height: 1, Depth: 1},
		}})

	recordImageMemoryBarrier(cmdBuffer, backend.pickingRenderphase.colorImage,
		vk.AccessFlags(vk.AccessTransferReadBit), vk.AccessFlags(vk.AccessShaderReadBit),
		vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), colorRange)

	if ret := vk.EndCommandBuffer(cmdBuffer); isError(ret) {
		freeAll()
		logError("failed to end command buffer for picking")
		return 0
	}

	var fence vk.Fence
	ret = vk.CreateFence(device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &fence)
	if isError(ret) {
		freeAll()
		logError("failed to create fence for picking")
		return 0
	}

	ret = vk.QueueSubmit(backend.device.graphicsQueue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmdBuffer},
	}}, fence)
	if isError(ret) {
		vk.DestroyFence(device, fence, nil)
		freeAll()
		logError("failed to submit picking command buffer")
		return 0
	}

	ret = vk.WaitForFences(device, 1, []vk.Fence{fence}, vk.True, vk.MaxUint64)
	vk.DestroyFence(device, fence, nil)
	if isError(ret) {
		freeAll()
		logError("failed to wait for picking fence")
		return 0
	}

	var pixelValue uint32
	var data unsafe.Pointer
	ret = vk.MapMemory(device, stagingMemory, 0, vk.DeviceSize(unsafe.Sizeof(uint32(0))), 0, &data)
	if ret == vk.Success && data != nil {
		pixelValue = *(*uint32)(data)
		vk.UnmapMemory(device, stagingMemory)
	} else {
		logError("failed to map memory for picking read")
	}

	freeAll()
	return pixelValue
}

// pickFramebufferCoords maps logical pointer coordinates into framebuffer
// pixels: scaled by the viewport logical size when the viewport phase is
// enabled, and clamped to the framebuffer in either case.
func pickFramebufferCoords(xy Float2, extent vk.Extent2D, usingViewport bool, viewportSize Float2) (uint32, uint32) {
	winW := float32(extent.Width)
	winH := float32(extent.Height)
	if usingViewport && viewportSize.X > 0 && viewportSize.Y > 0 {
		winW = viewportSize.X
		winH = viewportSize.Y
	}

	fbX := xy.X * float32(extent.Width) / winW
	fbY := xy.Y * float32(extent.Height) / winH

	if fbX < 0 {
		fbX = 0
	}
	if fbY < 0 {
		fbY = 0
	}
	x := uint32(fbX)
	y := uint32(fbY)
	if extent.Width > 0 && x > extent.Width-1 {
		x = extent.Width - 1
	}
	if extent.Height > 0 && y > extent.Height-1 {
		y = extent.Height - 1
	}
	return x, y
}
