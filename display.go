package spritevk

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// CoreDisplay adapts the host window into a vulkan surface. One-shot: the
// surface is bound once at init and destroyed with the instance.
type CoreDisplay struct {
	window  *glfw.Window
	surface vk.Surface
}

func NewCoreDisplay(window *glfw.Window, surface vk.Surface) *CoreDisplay {
	return &CoreDisplay{window: window, surface: surface}
}

// Bind creates the platform surface from the window, unless the host already
// handed one in.
func (core *CoreDisplay) Bind(instance vk.Instance) (vk.Surface, error) {
	if core.surface != vk.NullSurface {
		return core.surface, nil
	}
	if core.window == nil {
		return vk.NullSurface, fmt.Errorf("no window or surface provided")
	}

	surfPtr, err := core.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, fmt.Errorf("failed to create vulkan window surface: %w", err)
	}
	core.surface = vk.SurfaceFromPointer(surfPtr)
	return core.surface, nil
}

// RequiredExtensions returns the instance extensions the window system needs.
func (core *CoreDisplay) RequiredExtensions() []string {
	if core.window != nil {
		return core.window.GetRequiredInstanceExtensions()
	}
	return []string{"VK_KHR_surface"}
}
