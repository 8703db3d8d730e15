package spritevk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestChooseSurfaceFormatPrefersBGRA8UnormSrgbNonlinear(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}

	chosen := chooseSurfaceFormat(formats)
	assert.Equal(t, vk.FormatB8g8r8a8Unorm, chosen.Format)
	assert.Equal(t, vk.ColorSpaceSrgbNonlinear, chosen.ColorSpace)
}

func TestChooseSurfaceFormatFallsBackToFirst(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}

	chosen := chooseSurfaceFormat(formats)
	assert.Equal(t, vk.FormatR8g8b8a8Srgb, chosen.Format)
}

func TestChoosePresentModeIsTotalOverVsyncAndModes(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo}

	// vsync always wins
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(all, true))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(nil, true))

	// otherwise mailbox, then immediate, then fifo
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(all, false))
	assert.Equal(t, vk.PresentModeImmediate,
		choosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}, false))
	assert.Equal(t, vk.PresentModeFifo,
		choosePresentMode([]vk.PresentMode{vk.PresentModeFifo}, false))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(nil, false))
}

func TestAdjustExtentUsesCurrentExtentWhenDefined(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent: vk.Extent2D{Width: 1280, Height: 720},
	}

	extent := adjustExtent(&caps, 640, 480)
	assert.Equal(t, uint32(1280), extent.Width)
	assert.Equal(t, uint32(720), extent.Height)
}

func TestAdjustExtentClampsToSurfaceBounds(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 100, Height: 100},
		MaxImageExtent: vk.Extent2D{Width: 1000, Height: 1000},
	}

	extent := adjustExtent(&caps, 5000, 50)
	assert.Equal(t, uint32(1000), extent.Width)
	assert.Equal(t, uint32(100), extent.Height)
}

func TestChooseImageCountClampsToMaximum(t *testing.T) {
	caps := vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 0}
	assert.Equal(t, uint32(3), chooseImageCount(&caps))

	caps = vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}
	assert.Equal(t, uint32(2), chooseImageCount(&caps))
}
