package spritevk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// swapchainDetails is the surface information queried before creation.
type swapchainDetails struct {
	capabilities vk.SurfaceCapabilities
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
}

// CoreSwapchain owns the presentation images and their views.
type CoreSwapchain struct {
	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	extent      vk.Extent2D
	imageCount  uint32
	swapchain   vk.Swapchain
	images      []vk.Image
	imageViews  []vk.ImageView
	imageIndex  uint32
}

func querySwapchainDetails(gpu vk.PhysicalDevice, surface vk.Surface) swapchainDetails {
	var details swapchainDetails

	vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &details.capabilities)
	details.capabilities.Deref()
	details.capabilities.CurrentExtent.Deref()
	details.capabilities.MinImageExtent.Deref()
	details.capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)
	if formatCount > 0 {
		details.formats = make([]vk.SurfaceFormat, formatCount)
		vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, details.formats)
		for i := range details.formats {
			details.formats[i].Deref()
		}
	}

	var modeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, nil)
	if modeCount > 0 {
		details.presentModes = make([]vk.PresentMode, modeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, details.presentModes)
	}

	return details
}

// chooseSurfaceFormat prefers B8G8R8A8 unorm with the sRGB nonlinear color
// space, falling back to the first reported format.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode is a total function of (vsync, available modes):
// vsync forces FIFO; otherwise MAILBOX when available, else IMMEDIATE,
// else FIFO.
func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if len(modes) == 0 || vsync {
		return vk.PresentModeFifo
	}

	immediateAvailable := false
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return vk.PresentModeMailbox
		}
		if m == vk.PresentModeImmediate {
			immediateAvailable = true
		}
	}

	if immediateAvailable {
		return vk.PresentModeImmediate
	}
	return vk.PresentModeFifo
}

// adjustExtent uses the surface's current extent when defined, otherwise
// clamps the requested size to the surface bounds.
func adjustExtent(capabilities *vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != vk.MaxUint32 {
		return capabilities.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampU32(width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clampU32(height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one more than the minimum, clamped by the
// maximum when the surface reports one.
func chooseImageCount(capabilities *vk.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

// NewCoreSwapchain creates the swapchain and its image views. Image usage
// includes TRANSFER_SRC so the picking blit can read a swapchain-targeted
// image.
func NewCoreSwapchain(surface vk.Surface, device *CoreDevice, extent vk.Extent2D, vsync bool) (*CoreSwapchain, error) {
	core := &CoreSwapchain{}

	details := querySwapchainDetails(device.physicalDevice, surface)
	if len(details.formats) == 0 {
		return nil, fmt.Errorf("surface reports no pixel formats")
	}

	core.format = chooseSurfaceFormat(details.formats)
	core.presentMode = choosePresentMode(details.presentModes, vsync)
	core.extent = adjustExtent(&details.capabilities, extent.Width, extent.Height)
	core.imageCount = chooseImageCount(&details.capabilities)

	swapchainCI := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    core.imageCount,
		ImageFormat:      core.format.Format,
		ImageColorSpace:  core.format.ColorSpace,
		ImageExtent:      core.extent,
		ImageArrayLayers: 1,
		ImageUsage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) |
			vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit),
		PreTransform:   details.capabilities.CurrentTransform,
		CompositeAlpha: vk.CompositeAlphaOpaqueBit,
		PresentMode:    core.presentMode,
		Clipped:        vk.True,
	}

	indices := findQueueFamilies(device.physicalDevice, surface)
	if indices.Graphics != indices.Present {
		swapchainCI.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCI.QueueFamilyIndexCount = 2
		swapchainCI.PQueueFamilyIndices = []uint32{indices.Graphics, indices.Present}
	} else {
		swapchainCI.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchain vk.Swapchain
	ret := vk.CreateSwapchain(device.handle, &swapchainCI, nil, &swapchain)
	if err := NewError(ret); err != nil {
		return nil, fmt.Errorf("failed to create swapchain: %w", err)
	}
	core.swapchain = swapchain

	var imageCount uint32
	vk.GetSwapchainImages(device.handle, core.swapchain, &imageCount, nil)
	if imageCount == 0 {
		core.Destroy(device.handle)
		return nil, fmt.Errorf("swapchain reports no images")
	}
	core.imageCount = imageCount
	core.images = make([]vk.Image, imageCount)
	vk.GetSwapchainImages(device.handle, core.swapchain, &imageCount, core.images)

	core.imageViews = make([]vk.ImageView, imageCount)
	for i := uint32(0); i < imageCount; i++ {
		view, err := createImageView(device.handle, core.images[i], core.format.Format,
			vk.ImageAspectFlags(vk.ImageAspectColorBit), 1, 1, vk.ImageViewType2d, nil)
		if err != nil {
			core.Destroy(device.handle)
			return nil, err
		}
		core.imageViews[i] = view
	}

	return core, nil
}

// Destroy releases the image views and the swapchain handle. The images
// themselves belong to the swapchain.
func (core *CoreSwapchain) Destroy(device vk.Device) {
	for _, view := range core.imageViews {
		if view != vk.NullImageView {
			vk.DestroyImageView(device, view, nil)
		}
	}
	core.imageViews = nil
	core.images = nil

	if core.swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(device, core.swapchain, nil)
		core.swapchain = vk.NullSwapchain
	}
}
