package spritevk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestPickFramebufferCoordsPassthroughWithoutViewport(t *testing.T) {
	extent := vk.Extent2D{Width: 1280, Height: 720}

	x, y := pickFramebufferCoords(Float2{X: 100, Y: 100}, extent, false, Float2{})
	assert.Equal(t, uint32(100), x)
	assert.Equal(t, uint32(100), y)
}

func TestPickFramebufferCoordsScalesByViewportSize(t *testing.T) {
	extent := vk.Extent2D{Width: 1280, Height: 720}
	viewport := Float2{X: 640, Y: 360}

	x, y := pickFramebufferCoords(Float2{X: 320, Y: 180}, extent, true, viewport)
	assert.Equal(t, uint32(640), x)
	assert.Equal(t, uint32(360), y)
}

func TestPickFramebufferCoordsClampsOutOfRange(t *testing.T) {
	extent := vk.Extent2D{Width: 1280, Height: 720}

	x, y := pickFramebufferCoords(Float2{X: -1, Y: -1}, extent, false, Float2{})
	assert.Equal(t, uint32(0), x)
	assert.Equal(t, uint32(0), y)

	x, y = pickFramebufferCoords(Float2{X: 99999, Y: 99999}, extent, false, Float2{})
	assert.Equal(t, uint32(1279), x)
	assert.Equal(t, uint32(719), y)
}
