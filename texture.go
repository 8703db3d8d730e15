package spritevk

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	vk "github.com/vulkan-go/vulkan"
)

// Texture2D is an uploaded rgba image with its view, sampler and the ui
// descriptor set used to display it (e.g. inside a texture browser).
type Texture2D struct {
	path      string
	width     uint32
	height    uint32
	mipLevels int32

	img           vk.Image
	mem           vk.DeviceMemory
	view          vk.ImageView
	sampler       vk.Sampler
	descriptorSet vk.DescriptorSet
}

// NewTexture2DFromFile decodes the image at path (png/jpeg) and uploads it.
func NewTexture2DFromFile(path string, ui bool) (*Texture2D, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open texture %s: %w", path, err)
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("unable to decode texture %s: %w", path, err)
	}

	bounds := src.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, src, bounds.Min, draw.Src)

	texture, err := NewTexture2DFromBuffer(rgba.Pix, uint32(bounds.Dx()), uint32(bounds.Dy()), ui)
	if err != nil {
		return nil, err
	}
	texture.path = path
	return texture, nil
}

// NewTexture2DFromBuffer uploads raw rgba pixels through a staging buffer,
// following UNDEFINED -> TRANSFER_DST -> (mip blit chain | direct
// transition) -> SHADER_READ_ONLY. Texture images are always single-sample.
func NewTexture2DFromBuffer(pixels []byte, width, height uint32, ui bool) (*Texture2D, error) {
	backend := getBackend()
	if backend == nil {
		return nil, fmt.Errorf("backend not initialized")
	}
	if uint64(len(pixels)) < uint64(width)*uint64(height)*4 {
		return nil, fmt.Errorf("pixel buffer too small for %dx%d rgba", width, height)
	}

	device := backend.device.handle
	gpu := backend.device.physicalDevice

	texture := &Texture2D{
		width:     width,
		height:    height,
		mipLevels: calculateImageMipmap(width, height, ui),
	}

	staging, err := NewCoreBuffer(device, gpu, vk.DeviceSize(len(pixels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit), 1)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(device)

	if err := staging.Copy(0, pixels, 0); err != nil {
		return nil, err
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) | vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	if texture.mipLevels > 1 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}

	texture.img, texture.mem, err = createImage(device, gpu,
		vk.Extent2D{Width: width, Height: height}, uint32(texture.mipLevels), 1,
		vk.FormatR8g8b8a8Unorm, vk.SampleCount1Bit, vk.ImageTilingOptimal,
		usage, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), 0)
	if err != nil {
		return nil, err
	}

	cmdPool := backend.scenePhaseCommandPool()
	cmdBuffer, err := beginSingleTimeCommands(device, cmdPool)
	if err != nil {
		texture.Destroy()
		return nil, err
	}

	fullRange := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: uint32(texture.mipLevels),
		LayerCount: 1,
	}

	recordImageMemoryBarrier(cmdBuffer, texture.img,
		0, vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), fullRange)

	vk.CmdCopyBufferToImage(cmdBuffer, staging.Buffer(0), texture.img,
		vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
		}})

	if texture.mipLevels > 1 {
		recordImageMipmaps(cmdBuffer, int32(width), int32(height), texture.mipLevels, texture.img)
	} else {
		recordImageMemoryBarrier(cmdBuffer, texture.img,
			vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessShaderReadBit),
			vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), fullRange)
	}

	if err := endSingleTimeCommands(device, cmdPool, cmdBuffer, backend.device.graphicsQueue); err != nil {
		texture.Destroy()
		return nil, err
	}

	texture.view, err = createImageView(device, texture.img, vk.FormatR8g8b8a8Unorm,
		vk.ImageAspectFlags(vk.ImageAspectColorBit), uint32(texture.mipLevels), 1, vk.ImageViewType2d, nil)
	if err != nil {
		texture.Destroy()
		return nil, err
	}

	texture.sampler, err = createImageSampler(device, gpu, vk.FilterLinear, vk.FilterLinear,
		vk.SamplerAddressModeRepeat, vk.SamplerAddressModeRepeat, vk.SamplerAddressModeRepeat,
		float32(texture.mipLevels))
	if err != nil {
		texture.Destroy()
		return nil, err
	}

	texture.descriptorSet, err = createImageDescriptorSet(device,
		backend.uiRenderphase.DescriptorPool(), backend.uiRenderphase.DescriptorSetLayout(),
		texture.sampler, texture.view)
	if err != nil {
		texture.Destroy()
		return nil, err
	}

	return texture, nil
}

// Destroy releases every resource the texture owns.
func (texture *Texture2D) Destroy() {
	if texture == nil {
		return
	}
	backend := getBackend()
	if backend == nil {
		return
	}
	device := backend.device.handle
	vk.DeviceWaitIdle(device)

	if texture.sampler != vk.NullSampler {
		vk.DestroySampler(device, texture.sampler, nil)
		texture.sampler = vk.NullSampler
	}
	if texture.view != vk.NullImageView {
		vk.DestroyImageView(device, texture.view, nil)
		texture.view = vk.NullImageView
	}
	if texture.img != vk.NullImage {
		vk.DestroyImage(device, texture.img, nil)
		texture.img = vk.NullImage
	}
	if texture.mem != vk.NullDeviceMemory {
		vk.FreeMemory(device, texture.mem, nil)
		texture.mem = vk.NullDeviceMemory
	}
}

// Path returns the texture's source path, empty for buffer-born textures.
func (texture *Texture2D) Path() string { return texture.path }

// Width returns the texture's width in pixels.
func (texture *Texture2D) Width() uint32 { return texture.width }

// Height returns the texture's height in pixels.
func (texture *Texture2D) Height() uint32 { return texture.height }

// MipLevels returns the texture's levels of resolution.
func (texture *Texture2D) MipLevels() int32 { return texture.mipLevels }

// Sampler returns the texture's sampler.
func (texture *Texture2D) Sampler() vk.Sampler { return texture.sampler }

// DescriptorSet returns the ui descriptor set sampling this texture.
func (texture *Texture2D) DescriptorSet() vk.DescriptorSet { return texture.descriptorSet }
