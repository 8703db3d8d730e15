package test

import (
	"os"
	"runtime"
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	spritevk "github.com/andewx/spritevk"
)

const (
	width  = 1280
	height = 720
)

// TestRender drives a real window through init, a handful of frames, a pick
// and shutdown. It needs a display and a vulkan ICD, so it skips itself on
// headless machines.
func TestRender(t *testing.T) {
	if os.Getenv("DISPLAY") == "" && runtime.GOOS == "linux" {
		t.Skip("no display available")
	}

	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		t.Skipf("glfw unavailable: %v", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Visible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	if !glfw.VulkanSupported() {
		t.Skip("vulkan not supported on this machine")
	}

	window, err := glfw.CreateWindow(width, height, "spritevk", nil, nil)
	if err != nil {
		t.Skipf("unable to create window: %v", err)
	}
	defer window.Destroy()

	err = spritevk.Init(&spritevk.CreateInfo{
		AppName:       "spritevk test",
		EngineName:    "spritevk",
		AppVersion:    uint32(vk.MakeVersion(1, 0, 0)),
		EngineVersion: uint32(vk.MakeVersion(1, 0, 0)),
		Width:         width,
		Height:        height,
		MSAA:          spritevk.MsaaX4,
		Vsync:         false,
		Viewport:      false,
		Window:        window,
	})
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		spritevk.Update(1.0 / 60.0)
		glfw.PollEvents()
	}

	if got := spritevk.PickObject(spritevk.Float2{X: 100, Y: 100}); got != 0 {
		t.Errorf("expected no object under the cursor, got %d", got)
	}

	if err := spritevk.Shutdown(); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}
