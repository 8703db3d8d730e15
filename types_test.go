package spritevk

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestPushConstantLayout(t *testing.T) {
	var pc PushConstant
	assert.Equal(t, uintptr(0), unsafe.Offsetof(pc.ID))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(pc.Model), "model matrix must sit at a 16-byte offset")
	assert.Equal(t, uintptr(80), unsafe.Sizeof(pc))
}

func TestCameraUBOLayout(t *testing.T) {
	var ubo CameraUBO
	assert.Equal(t, uintptr(0), unsafe.Offsetof(ubo.View))
	assert.Equal(t, uintptr(64), unsafe.Offsetof(ubo.ViewInverse))
	assert.Equal(t, uintptr(128), unsafe.Offsetof(ubo.Proj))
	assert.Equal(t, uintptr(192), unsafe.Sizeof(ubo))
}

func TestSpriteUBOLayout(t *testing.T) {
	var ubo SpriteUBO
	assert.Equal(t, uintptr(0), unsafe.Offsetof(ubo.UVRotation))
	assert.Equal(t, uintptr(8), unsafe.Offsetof(ubo.UVOffset), "uv offset must be 8-byte aligned")
	assert.Equal(t, uintptr(16), unsafe.Offsetof(ubo.UVScale))
	assert.Equal(t, uintptr(24), unsafe.Sizeof(ubo))
}

func TestRenderphaseTypeStrings(t *testing.T) {
	assert.Equal(t, "Main", RenderphaseMain.String())
	assert.Equal(t, "Picking", RenderphasePicking.String())
	assert.Equal(t, "UI", RenderphaseUI.String())
	assert.Equal(t, "Viewport", RenderphaseViewport.String())
}

func TestMsaaValuesMatchSampleCountBits(t *testing.T) {
	assert.Equal(t, MSAA(1), MsaaOff)
	assert.Equal(t, MSAA(4), MsaaX4)
	assert.Equal(t, MSAA(64), MsaaX64)
}
