package spritevk

import (
	"sync/atomic"
)

const sizeEpsilon = 1e-6

// CoreContext holds the engine-wide state shared between the host and the
// vulkan backend. Exactly one exists between Init and Shutdown.
type CoreContext struct {
	hintViewport  bool
	hintMinimized bool
	hintVsync     bool
	hintResize    bool

	mainCamera *CoreCamera
	nextID     uint64
	msaa       MSAA

	viewportSize    Float2
	framebufferSize Float2

	userPointer      interface{}
	renderCallback   RenderCallback
	renderUICallback RenderUICallback
}

var gContext *CoreContext

// GetContext returns the global context, nil before Init or after Shutdown.
func GetContext() *CoreContext {
	return gContext
}

// GetMainCamera returns the camera created to facilitate usage of the api.
func GetMainCamera() *CoreCamera {
	if gContext == nil {
		return nil
	}
	return gContext.mainCamera
}

// NextObjectID hands out a fresh non-zero id for pickable objects.
func (c *CoreContext) NextObjectID() uint32 {
	return uint32(atomic.AddUint64(&c.nextID, 1))
}

// UsingVsync reports whether the api was created with vsync enabled.
func UsingVsync() bool {
	if gContext == nil {
		return false
	}
	return gContext.hintVsync
}

// UsingViewport reports whether the offscreen viewport phase is enabled.
func UsingViewport() bool {
	if gContext == nil {
		return false
	}
	return gContext.hintViewport
}

// GetMsaa returns the sample count frozen at Init.
func GetMsaa() MSAA {
	if gContext == nil {
		return MsaaOff
	}
	return gContext.msaa
}

// GetViewportSize returns the logical viewport size when the viewport phase
// is enabled, zero otherwise.
func GetViewportSize() Float2 {
	if gContext == nil || !gContext.hintViewport {
		return Float2{}
	}
	return gContext.viewportSize
}

// SetViewportSize records the logical viewport size used to map pointer
// coordinates for picking.
func SetViewportSize(size Float2) {
	if gContext == nil || !gContext.hintViewport {
		return
	}
	gContext.viewportSize = size
}

// GetFramebufferSize returns the size of the framebuffer.
func GetFramebufferSize() Float2 {
	if gContext == nil {
		return Float2{}
	}
	return gContext.framebufferSize
}

// SetFramebufferSize requests a new framebuffer size. A zero-or-negative
// dimension marks the context minimized and keeps the previous size; a valid
// size marks a resize as pending for the next tick.
func SetFramebufferSize(size Float2) {
	if gContext == nil {
		return
	}

	valid := size.X > sizeEpsilon && size.Y > sizeEpsilon
	gContext.hintMinimized = !valid

	if valid {
		gContext.framebufferSize = size
	}
	gContext.hintResize = true
}

// SetUserPointer stores an opaque host value retrievable from callbacks.
func SetUserPointer(p interface{}) {
	if gContext == nil {
		logError("context is nil")
		return
	}
	gContext.userPointer = p
}

// GetUserPointer returns the opaque host value.
func GetUserPointer() interface{} {
	if gContext == nil {
		return nil
	}
	return gContext.userPointer
}

// SetRenderCallback sets the function called when it's time to draw.
func SetRenderCallback(cb RenderCallback) {
	if gContext == nil {
		logError("context is nil")
		return
	}
	gContext.renderCallback = cb
}

// GetRenderCallback returns the function responsible for drawing objects.
func GetRenderCallback() RenderCallback {
	if gContext == nil {
		return nil
	}
	return gContext.renderCallback
}

// SetRenderUICallback sets the function called when it's time to draw ui.
func SetRenderUICallback(cb RenderUICallback) {
	if gContext == nil {
		logError("context is nil")
		return
	}
	gContext.renderUICallback = cb
}

// GetRenderUICallback returns the function responsible for drawing ui.
func GetRenderUICallback() RenderUICallback {
	if gContext == nil {
		return nil
	}
	return gContext.renderUICallback
}
