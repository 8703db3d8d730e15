package spritevk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withTestContext(t *testing.T, viewport bool) *CoreContext {
	t.Helper()
	gContext = &CoreContext{
		hintViewport:    viewport,
		framebufferSize: Float2{X: 1280, Y: 720},
		viewportSize:    Float2{X: 1280, Y: 720},
	}
	t.Cleanup(func() { gContext = nil })
	return gContext
}

func TestSetFramebufferSizeMarksResizePending(t *testing.T) {
	ctx := withTestContext(t, false)

	SetFramebufferSize(Float2{X: 800, Y: 600})
	assert.True(t, ctx.hintResize)
	assert.False(t, ctx.hintMinimized)
	assert.Equal(t, Float2{X: 800, Y: 600}, GetFramebufferSize())
}

func TestSetFramebufferSizeZeroDimensionMinimizes(t *testing.T) {
	ctx := withTestContext(t, false)

	SetFramebufferSize(Float2{X: 0, Y: 720})
	assert.True(t, ctx.hintMinimized)
	// previous size survives a minimize
	assert.Equal(t, Float2{X: 1280, Y: 720}, GetFramebufferSize())

	SetFramebufferSize(Float2{X: 1024, Y: 768})
	assert.False(t, ctx.hintMinimized)
	assert.Equal(t, Float2{X: 1024, Y: 768}, GetFramebufferSize())
}

func TestUpdateShortCircuitsWhenMinimized(t *testing.T) {
	ctx := withTestContext(t, false)
	ctx.hintMinimized = true

	// no backend exists; a non-short-circuited tick would dereference it
	assert.NotPanics(t, func() { Update(1.0 / 60.0) })
}

func TestViewportSizeGatedByViewportHint(t *testing.T) {
	withTestContext(t, false)
	SetViewportSize(Float2{X: 640, Y: 360})
	assert.Equal(t, Float2{}, GetViewportSize())

	withTestContext(t, true)
	SetViewportSize(Float2{X: 640, Y: 360})
	assert.Equal(t, Float2{X: 640, Y: 360}, GetViewportSize())
}

func TestAccessorsAreNilSafe(t *testing.T) {
	gContext = nil

	assert.Nil(t, GetContext())
	assert.Nil(t, GetMainCamera())
	assert.False(t, UsingVsync())
	assert.False(t, UsingViewport())
	assert.Equal(t, MsaaOff, GetMsaa())
	assert.Equal(t, Float2{}, GetFramebufferSize())
	assert.NotPanics(t, func() { SetFramebufferSize(Float2{X: 1, Y: 1}) })
	assert.NotPanics(t, func() { SetUserPointer(42) })
	assert.Nil(t, GetUserPointer())
}

func TestUserPointerRoundTrip(t *testing.T) {
	withTestContext(t, false)

	payload := &struct{ n int }{n: 7}
	SetUserPointer(payload)
	assert.Same(t, payload, GetUserPointer())
}

func TestNextObjectIDIsMonotonicNonZero(t *testing.T) {
	ctx := withTestContext(t, false)

	first := ctx.NextObjectID()
	second := ctx.NextObjectID()
	assert.NotZero(t, first)
	assert.Equal(t, first+1, second)
}
