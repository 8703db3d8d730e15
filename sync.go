package spritevk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// CoreSync owns the per-frame fences and semaphores and tracks the current
// frame-in-flight slot. The acquire semaphore is indexed by currentFrame
// while the present wait-semaphore is indexed by the acquired swapchain
// image, because a given image may have been written by an earlier slot.
type CoreSync struct {
	currentFrame             uint32
	imageAvailableSemaphores []vk.Semaphore
	renderFinishedSemaphores []vk.Semaphore
	inFlightFences           []vk.Fence
}

// NewCoreSync creates objectCount semaphore pairs and fences. Fences start
// signaled so the first wait does not deadlock.
func NewCoreSync(device vk.Device, objectCount uint32) (*CoreSync, error) {
	core := &CoreSync{
		imageAvailableSemaphores: make([]vk.Semaphore, objectCount),
		renderFinishedSemaphores: make([]vk.Semaphore, objectCount),
		inFlightFences:           make([]vk.Fence, objectCount),
	}

	semaphoreCI := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fenceCI := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	for i := uint32(0); i < objectCount; i++ {
		if ret := vk.CreateSemaphore(device, &semaphoreCI, nil, &core.imageAvailableSemaphores[i]); isError(ret) {
			core.Destroy(device)
			return nil, fmt.Errorf("failed to create image available semaphore: %w", NewError(ret))
		}
		if ret := vk.CreateSemaphore(device, &semaphoreCI, nil, &core.renderFinishedSemaphores[i]); isError(ret) {
			core.Destroy(device)
			return nil, fmt.Errorf("failed to create render finished semaphore: %w", NewError(ret))
		}
		if ret := vk.CreateFence(device, &fenceCI, nil, &core.inFlightFences[i]); isError(ret) {
			core.Destroy(device)
			return nil, fmt.Errorf("failed to create in-flight fence: %w", NewError(ret))
		}
	}

	return core, nil
}

// Advance moves to the next frame-in-flight slot.
func (core *CoreSync) Advance() {
	core.currentFrame = (core.currentFrame + 1) % ConcurrentFrames
}

// Destroy releases every owned semaphore and fence.
func (core *CoreSync) Destroy(device vk.Device) {
	for _, s := range core.imageAvailableSemaphores {
		if s != vk.NullSemaphore {
			vk.DestroySemaphore(device, s, nil)
		}
	}
	for _, s := range core.renderFinishedSemaphores {
		if s != vk.NullSemaphore {
			vk.DestroySemaphore(device, s, nil)
		}
	}
	for _, f := range core.inFlightFences {
		if f != vk.NullFence {
			vk.DestroyFence(device, f, nil)
		}
	}
	core.imageAvailableSemaphores = nil
	core.renderFinishedSemaphores = nil
	core.inFlightFences = nil
}
