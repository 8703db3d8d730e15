package spritevk

import (
	"fmt"

	"github.com/chewxy/math32"
	vk "github.com/vulkan-go/vulkan"
)

// createImage creates a 2D device image and binds freshly allocated memory.
func createImage(device vk.Device, gpu vk.PhysicalDevice, size vk.Extent2D,
	mipLevels, arrayLayers uint32, format vk.Format, samples vk.SampleCountFlagBits,
	tiling vk.ImageTiling, usage vk.ImageUsageFlags, memoryProps vk.MemoryPropertyFlags,
	flags vk.ImageCreateFlags) (vk.Image, vk.DeviceMemory, error) {

	var image vk.Image
	ret := vk.CreateImage(device, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		Flags:         flags,
		ImageType:     vk.ImageType2d,
		Extent:        vk.Extent3D{Width: size.Width, Height: size.Height, Depth: 1},
		MipLevels:     mipLevels,
		ArrayLayers:   arrayLayers,
		Format:        format,
		Tiling:        tiling,
		Usage:         usage,
		Samples:       samples,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &image)
	if err := NewError(ret); err != nil {
		return nil, nil, fmt.Errorf("failed to create device image: %w", err)
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, image, &memReqs)
	memReqs.Deref()

	memType, ok := findMemoryType(gpu, memReqs.MemoryTypeBits, memoryProps)
	if !ok {
		vk.DestroyImage(device, image, nil)
		return nil, nil, fmt.Errorf("no suitable memory type for device image")
	}

	var memory vk.DeviceMemory
	ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &memory)
	if err := NewError(ret); err != nil {
		vk.DestroyImage(device, image, nil)
		return nil, nil, fmt.Errorf("failed to allocate memory for device image: %w", err)
	}

	if ret := vk.BindImageMemory(device, image, memory, 0); isError(ret) {
		vk.FreeMemory(device, memory, nil)
		vk.DestroyImage(device, image, nil)
		return nil, nil, fmt.Errorf("failed to bind memory to device image: %w", NewError(ret))
	}

	return image, memory, nil
}

// createImageView creates a view over one color or depth aspect.
func createImageView(device vk.Device, image vk.Image, format vk.Format,
	aspect vk.ImageAspectFlags, mipLevels, layerCount uint32,
	viewType vk.ImageViewType, swizzle *vk.ComponentMapping) (vk.ImageView, error) {

	if mipLevels == 0 || layerCount == 0 {
		return vk.NullImageView, fmt.Errorf("invalid mipLevels or layerCount (must be >= 1)")
	}

	viewCI := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: mipLevels,
			LayerCount: layerCount,
		},
	}
	if swizzle != nil {
		viewCI.Components = *swizzle
	}

	var view vk.ImageView
	ret := vk.CreateImageView(device, &viewCI, nil, &view)
	if err := NewError(ret); err != nil {
		return vk.NullImageView, fmt.Errorf("failed to create image view: %w", err)
	}
	return view, nil
}

// createImageSampler creates a sampler with anisotropy at the device limit.
func createImageSampler(device vk.Device, gpu vk.PhysicalDevice,
	min, mag vk.Filter, u, v, w vk.SamplerAddressMode, maxLod float32) (vk.Sampler, error) {

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()
	props.Limits.Deref()

	var sampler vk.Sampler
	ret := vk.CreateSampler(device, &vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        mag,
		MinFilter:        min,
		AddressModeU:     u,
		AddressModeV:     v,
		AddressModeW:     w,
		AnisotropyEnable: vk.True,
		MaxAnisotropy:    props.Limits.MaxSamplerAnisotropy,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
		CompareOp:        vk.CompareOpAlways,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		MaxLod:           maxLod,
	}, nil, &sampler)
	if err := NewError(ret); err != nil {
		return vk.NullSampler, fmt.Errorf("failed to create image sampler: %w", err)
	}
	return sampler, nil
}

// createImageDescriptorSet allocates and writes a single combined image
// sampler descriptor set referencing (sampler, view, SHADER_READ_ONLY).
func createImageDescriptorSet(device vk.Device, pool vk.DescriptorPool,
	layout vk.DescriptorSetLayout, sampler vk.Sampler, view vk.ImageView) (vk.DescriptorSet, error) {

	var set vk.DescriptorSet
	ret := vk.AllocateDescriptorSets(device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}, &set)
	if err := NewError(ret); err != nil {
		return vk.NullDescriptorSet, fmt.Errorf("failed to allocate descriptor set: %w", err)
	}

	vk.UpdateDescriptorSets(device, 1, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     sampler,
			ImageView:   view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}}, 0, nil)

	return set, nil
}

// recordImageMemoryBarrier synchronizes an image layout transition and the
// memory accesses around it.
func recordImageMemoryBarrier(cmdBuffer vk.CommandBuffer, image vk.Image,
	srcAccess, dstAccess vk.AccessFlags, oldLayout, newLayout vk.ImageLayout,
	srcStage, dstStage vk.PipelineStageFlags, subresourceRange vk.ImageSubresourceRange) {

	vk.CmdPipelineBarrier(cmdBuffer, srcStage, dstStage, 0, 0, nil, 0, nil, 1,
		[]vk.ImageMemoryBarrier{{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			SrcAccessMask:       srcAccess,
			DstAccessMask:       dstAccess,
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			Image:               image,
			SubresourceRange:    subresourceRange,
		}})
}

// recordImageMipmaps blits each mip level from the previous one and leaves
// the whole chain in SHADER_READ_ONLY.
func recordImageMipmaps(cmdBuffer vk.CommandBuffer, width, height, mipLevels int32, image vk.Image) {
	if mipLevels <= 1 {
		return
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		Image:               image,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
			LevelCount: 1,
		},
	}

	mipWidth := width
	mipHeight := height

	for i := int32(1); i < mipLevels; i++ {
		barrier.SubresourceRange.BaseMipLevel = uint32(i - 1)
		barrier.OldLayout = vk.ImageLayoutTransferDstOptimal
		barrier.NewLayout = vk.ImageLayoutTransferSrcOptimal
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
		vk.CmdPipelineBarrier(cmdBuffer,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})

		dstWidth := mipWidth
		if dstWidth > 1 {
			dstWidth /= 2
		}
		dstHeight := mipHeight
		if dstHeight > 1 {
			dstHeight /= 2
		}

		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:   uint32(i - 1),
				LayerCount: 1,
			},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:   uint32(i),
				LayerCount: 1,
			},
		}
		blit.SrcOffsets[1] = vk.Offset3D{X: mipWidth, Y: mipHeight, Z: 1}
		blit.DstOffsets[1] = vk.Offset3D{X: dstWidth, Y: dstHeight, Z: 1}
		vk.CmdBlitImage(cmdBuffer, image, vk.ImageLayoutTransferSrcOptimal,
			image, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{blit}, vk.FilterLinear)

		barrier.OldLayout = vk.ImageLayoutTransferSrcOptimal
		barrier.NewLayout = vk.ImageLayoutShaderReadOnlyOptimal
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		vk.CmdPipelineBarrier(cmdBuffer,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})

		if mipWidth > 1 {
			mipWidth /= 2
		}
		if mipHeight > 1 {
			mipHeight /= 2
		}
	}

	barrier.SubresourceRange.BaseMipLevel = uint32(mipLevels - 1)
	barrier.OldLayout = vk.ImageLayoutTransferDstOptimal
	barrier.NewLayout = vk.ImageLayoutShaderReadOnlyOptimal
	barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
	barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
	vk.CmdPipelineBarrier(cmdBuffer,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// findMemoryType finds the first suitable memory type index for a type
// filter and the required properties.
func findMemoryType(gpu vk.PhysicalDevice, typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, bool) {
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(gpu, &memProps)
	memProps.Deref()

	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memProps.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && memProps.MemoryTypes[i].PropertyFlags&properties == properties {
			return i, true
		}
	}
	return 0, false
}

// findSuitableFormat retrieves the first candidate format, in the given
// order, supporting the requested tiling features.
func findSuitableFormat(gpu vk.PhysicalDevice, candidates []vk.Format,
	tiling vk.ImageTiling, features vk.FormatFeatureFlags) (vk.Format, error) {

	result := vk.FormatUndefined
	for _, candidate := range candidates {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(gpu, candidate, &props)
		props.Deref()

		if tiling == vk.ImageTilingLinear && props.LinearTilingFeatures&features == features {
			return candidate, nil
		} else if tiling == vk.ImageTilingOptimal && props.OptimalTilingFeatures&features == features {
			return candidate, nil
		}
	}

	if result == vk.FormatUndefined {
		return result, fmt.Errorf("no suitable format among candidates")
	}
	return result, nil
}

// findDepthFormat retrieves the preferred depth/stencil attachment format.
func findDepthFormat(gpu vk.PhysicalDevice) vk.Format {
	format, err := findSuitableFormat(gpu,
		[]vk.Format{vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD16UnormS8Uint},
		vk.ImageTilingOptimal,
		vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit))
	Fatal(err)
	return format
}

// beginSingleTimeCommands allocates and begins a one-time-submit primary
// command buffer from the given pool.
func beginSingleTimeCommands(device vk.Device, cmdPool vk.CommandPool) (vk.CommandBuffer, error) {
	cmdBuffers := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		Level:              vk.CommandBufferLevelPrimary,
		CommandPool:        cmdPool,
		CommandBufferCount: 1,
	}, cmdBuffers)
	if err := NewError(ret); err != nil {
		return nil, fmt.Errorf("failed to allocate single time command buffer: %w", err)
	}

	ret = vk.BeginCommandBuffer(cmdBuffers[0], &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := NewError(ret); err != nil {
		vk.FreeCommandBuffers(device, cmdPool, 1, cmdBuffers)
		return nil, fmt.Errorf("failed to begin single time command buffer: %w", err)
	}

	return cmdBuffers[0], nil
}

// endSingleTimeCommands ends the buffer, submits it, waits the queue idle
// and frees it.
func endSingleTimeCommands(device vk.Device, cmdPool vk.CommandPool, cmdBuffer vk.CommandBuffer, queue vk.Queue) error {
	defer vk.FreeCommandBuffers(device, cmdPool, 1, []vk.CommandBuffer{cmdBuffer})

	if ret := vk.EndCommandBuffer(cmdBuffer); isError(ret) {
		return fmt.Errorf("failed to end single time command buffer: %w", NewError(ret))
	}

	ret := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmdBuffer},
	}}, vk.NullFence)
	if err := NewError(ret); err != nil {
		return fmt.Errorf("failed to submit single time command buffer: %w", err)
	}

	if ret := vk.QueueWaitIdle(queue); isError(ret) {
		return fmt.Errorf("failed to wait queue idle: %w", NewError(ret))
	}
	return nil
}

// calculateImageMipmap returns the mip chain length for an image; ui
// textures and textures under MSAA stay single-level.
func calculateImageMipmap(width, height uint32, uiImage bool) int32 {
	if uiImage || GetMsaa() != MsaaOff {
		return 1
	}
	return int32(math32.Floor(math32.Log2(math32.Max(float32(width), float32(height))))) + 1
}
