package spritevk

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Buffer library keys.
const (
	BufferMainCameraName = "MainCamera"
)

// CoreBackend owns every vulkan object of the runtime and drives the
// four-phase frame loop.
type CoreBackend struct {
	msaa      MSAA
	instance  *CoreInstance
	device    *CoreDevice
	swapchain *CoreSwapchain
	sync      *CoreSync

	currentRenderphase  RenderphaseType
	mainRenderphase     *MainRenderphase
	pickingRenderphase  *PickingRenderphase
	uiRenderphase       *UIRenderphase
	viewportRenderphase *ViewportRenderphase

	shaders   *CoreShader
	buffers   map[string]*CoreBuffer
	pipelines map[string]*CorePipeline
}

var gBackend *CoreBackend

func getBackend() *CoreBackend {
	return gBackend
}

// Init creates the engine: context, instance, surface, device, swapchain,
// synchronizer, the four renderphases, the main camera buffer and the sprite
// pipelines. Must precede any other call.
func Init(ci *CreateInfo) error {
	if gContext != nil {
		return fmt.Errorf("already initialized")
	}

	if ci.Window != nil {
		vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	}
	if err := vk.Init(); err != nil {
		logFatal("failed to initialize the vulkan loader: %v", err)
		return err
	}

	gContext = &CoreContext{
		hintViewport:    ci.Viewport,
		hintVsync:       ci.Vsync,
		msaa:            ci.MSAA,
		framebufferSize: Float2{X: float32(ci.Width), Y: float32(ci.Height)},
		viewportSize:    Float2{X: float32(ci.Width), Y: float32(ci.Height)},
	}
	gContext.mainCamera = NewCoreCamera(float32(ci.Width) / float32(ci.Height))

	if err := initBackend(ci); err != nil {
		logFatal("failed to initialize the vulkan backend: %v", err)
		return err
	}

	return nil
}

func initBackend(ci *CreateInfo) error {
	backend := &CoreBackend{
		msaa:      ci.MSAA,
		buffers:   make(map[string]*CoreBuffer, 4),
		pipelines: make(map[string]*CorePipeline, 4),
		shaders:   NewCoreShader(""),
	}
	gBackend = backend

	display := NewCoreDisplay(ci.Window, ci.Surface)

	var err error
	backend.instance, err = NewCoreInstance(ci, display)
	if err != nil {
		return err
	}
	surface := backend.instance.surface

	gpu, err := chooseDevice(backend.instance.instance, surface)
	if err != nil {
		return err
	}
	backend.device, err = NewCoreDevice(backend.instance.instance, surface, gpu)
	if err != nil {
		return err
	}

	backend.swapchain, err = NewCoreSwapchain(surface, backend.device,
		vk.Extent2D{Width: ci.Width, Height: ci.Height}, ci.Vsync)
	if err != nil {
		return err
	}

	backend.sync, err = NewCoreSync(backend.device.handle, backend.swapchain.imageCount)
	if err != nil {
		return err
	}

	if err := backend.createRenderphases(); err != nil {
		return err
	}

	cameraBuffer, err := NewCoreBuffer(backend.device.handle, backend.device.physicalDevice,
		vk.DeviceSize(unsafe.Sizeof(CameraUBO{})),
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		ConcurrentFrames)
	if err != nil {
		return err
	}
	backend.buffers[BufferMainCameraName] = cameraBuffer

	sceneRenderpass := &backend.mainRenderphase.Renderpass
	if UsingViewport() {
		sceneRenderpass = &backend.viewportRenderphase.Renderpass
	}
	if err := createSpritePipelines(backend.pipelines, backend.shaders,
		sceneRenderpass, &backend.pickingRenderphase.Renderpass, backend.device.handle); err != nil {
		return err
	}

	return nil
}

// createRenderphases builds the four renderphases and their framebuffers in
// order Main, Picking, UI, Viewport.
func (backend *CoreBackend) createRenderphases() error {
	surface := backend.instance.surface
	format := backend.swapchain.format.Format
	views := backend.swapchain.imageViews
	extent := backend.swapchain.extent

	var err error
	// the ui pass always runs after, so main never presents directly
	backend.mainRenderphase, err = NewMainRenderphase(backend.device, surface, format, backend.msaa, false)
	if err != nil {
		return err
	}
	if err := backend.mainRenderphase.CreateFramebuffers(backend.device, views, extent); err != nil {
		return err
	}

	backend.pickingRenderphase, err = NewPickingRenderphase(backend.device, surface)
	if err != nil {
		return err
	}
	if err := backend.pickingRenderphase.CreateFramebuffers(backend.device, views, extent); err != nil {
		return err
	}

	backend.uiRenderphase, err = NewUIRenderphase(backend.device, surface, format, true)
	if err != nil {
		return err
	}
	if err := backend.uiRenderphase.CreateFramebuffers(backend.device, views, extent); err != nil {
		return err
	}

	if UsingViewport() {
		backend.viewportRenderphase, err = NewViewportRenderphase(backend.device, surface, format, backend.msaa)
		if err != nil {
			return err
		}
		if err := backend.viewportRenderphase.CreateFramebuffers(backend.device,
			backend.device.graphicsQueue, views, extent); err != nil {
			return err
		}
	}

	return nil
}

// destroyRenderphases tears the phases down in order UI, Viewport, Picking,
// Main.
func (backend *CoreBackend) destroyRenderphases() {
	backend.uiRenderphase.Destroy(backend.device.handle)
	if backend.viewportRenderphase != nil {
		backend.viewportRenderphase.Destroy(backend.device.handle)
		backend.viewportRenderphase = nil
	}
	backend.pickingRenderphase.Destroy(backend.device.handle)
	backend.mainRenderphase.Destroy(backend.device.handle)
}

// Shutdown waits the gpu idle and frees everything, buffers first, then
// pipelines, renderphases, synchronizer, swapchain, device and instance.
func Shutdown() error {
	if gBackend == nil {
		return fmt.Errorf("not initialized")
	}
	backend := gBackend

	vk.DeviceWaitIdle(backend.device.handle)

	for name, buffer := range backend.buffers {
		buffer.Destroy(backend.device.handle)
		delete(backend.buffers, name)
	}
	destroySpritePipelines(backend.pipelines, backend.device.handle)

	backend.destroyRenderphases()
	backend.sync.Destroy(backend.device.handle)
	backend.swapchain.Destroy(backend.device.handle)
	backend.device.Destroy()
	backend.instance.Destroy()

	gBackend = nil
	gContext = nil
	return nil
}

// Update runs one tick of the orchestrator: camera update and UBO write,
// fence wait, image acquire, the four phase recordings, one submit, present,
// and out-of-date recovery. A minimized context short-circuits without gpu
// work.
func Update(timestep float32) {
	if gContext == nil || gContext.hintMinimized {
		return
	}
	backend := gBackend
	device := backend.device.handle
	sync := backend.sync

	// camera first so this frame's slot carries fresh matrices
	camera := GetMainCamera()
	camera.Update(timestep)

	cameraData := CameraUBO{
		View:        camera.View(),
		ViewInverse: camera.ViewInverse(),
		Proj:        camera.Perspective(),
	}
	cameraBuffer := backend.buffers[BufferMainCameraName]
	cameraBuffer.Copy(sync.currentFrame, rawBytes(unsafe.Pointer(&cameraData), unsafe.Sizeof(cameraData)), 0)

	vk.WaitForFences(device, 1, []vk.Fence{sync.inFlightFences[sync.currentFrame]}, vk.True, vk.MaxUint64)

	res := vk.AcquireNextImage(device, backend.swapchain.swapchain, vk.MaxUint64,
		sync.imageAvailableSemaphores[sync.currentFrame], vk.NullFence, &backend.swapchain.imageIndex)

	if res == vk.ErrorOutOfDate {
		backend.resize(framebufferExtent())
		gContext.hintResize = false
		sync.Advance()
		return
	}
	if res != vk.Success && res != vk.Suboptimal {
		Fatal(fmt.Errorf("unable to acquire an image from the swapchain: %w", NewError(res)))
	}

	vk.ResetFences(device, 1, []vk.Fence{sync.inFlightFences[sync.currentFrame]})

	extent := backend.swapchain.extent
	imageIndex := backend.swapchain.imageIndex
	usingViewport := UsingViewport()

	backend.currentRenderphase = RenderphaseMain
	backend.mainRenderphase.Record(timestep, sync.currentFrame, extent, imageIndex,
		usingViewport, GetRenderCallback())

	backend.currentRenderphase = RenderphasePicking
	backend.pickingRenderphase.Record(timestep, sync.currentFrame, extent, imageIndex,
		GetRenderCallback())

	if usingViewport {
		backend.currentRenderphase = RenderphaseViewport
		backend.viewportRenderphase.Record(timestep, sync.currentFrame, extent, imageIndex,
			GetRenderCallback())
	}

	backend.currentRenderphase = RenderphaseUI
	backend.uiRenderphase.Record(sync.currentFrame, extent, imageIndex, GetRenderUICallback())

	// one submit carries every phase in recording order; the acquire
	// semaphore is indexed by the frame slot while the render-finished
	// semaphore is indexed by the acquired image
	commandBuffers := []vk.CommandBuffer{
		backend.mainRenderphase.Renderpass.cmdBuffers[sync.currentFrame],
		backend.pickingRenderphase.Renderpass.cmdBuffers[sync.currentFrame],
	}
	if usingViewport {
		commandBuffers = append(commandBuffers,
			backend.viewportRenderphase.Renderpass.cmdBuffers[sync.currentFrame])
	}
	commandBuffers = append(commandBuffers,
		backend.uiRenderphase.Renderpass.cmdBuffers[sync.currentFrame])

	ret := vk.QueueSubmit(backend.device.graphicsQueue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sync.imageAvailableSemaphores[sync.currentFrame]},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   uint32(len(commandBuffers)),
		PCommandBuffers:      commandBuffers,
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sync.renderFinishedSemaphores[imageIndex]},
	}}, sync.inFlightFences[sync.currentFrame])
	if isError(ret) {
		Fatal(fmt.Errorf("unable to submit frame to the graphics queue: %w", NewError(ret)))
	}

	res = vk.QueuePresent(backend.device.graphicsQueue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sync.renderFinishedSemaphores[imageIndex]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{backend.swapchain.swapchain},
		PImageIndices:      []uint32{imageIndex},
	})

	if res == vk.ErrorOutOfDate || res == vk.Suboptimal || gContext.hintResize {
		backend.resize(framebufferExtent())
		gContext.hintResize = false
	} else if res != vk.Success {
		Fatal(fmt.Errorf("unable to present the graphics queue frame: %w", NewError(res)))
	}

	sync.Advance()
}

func framebufferExtent() vk.Extent2D {
	size := GetFramebufferSize()
	return vk.Extent2D{Width: uint32(size.X), Height: uint32(size.Y)}
}

// resize rebuilds the swapchain-dependent world: waits the device idle,
// drops the renderphases, recreates the swapchain, recreates the phases and
// their framebuffers, then refreshes the camera aspect ratio.
func (backend *CoreBackend) resize(extent vk.Extent2D) {
	vk.DeviceWaitIdle(backend.device.handle)

	backend.destroyRenderphases()

	backend.swapchain.Destroy(backend.device.handle)
	swapchain, err := NewCoreSwapchain(backend.instance.surface, backend.device, extent, UsingVsync())
	Fatal(err)
	backend.swapchain = swapchain

	// pipelines survive the rebuild: the recreated renderpasses are
	// compatible with the ones they were built against
	Fatal(backend.createRenderphases())

	GetMainCamera().SetAspectRatio(float32(extent.Width) / float32(extent.Height))
}

// scenePhaseCommandPool returns the command pool of the phase scene uploads
// borrow for single-time transfers.
func (backend *CoreBackend) scenePhaseCommandPool() vk.CommandPool {
	if UsingViewport() && backend.viewportRenderphase != nil {
		return backend.viewportRenderphase.Renderpass.cmdPool
	}
	return backend.mainRenderphase.Renderpass.cmdPool
}

// GetInstance returns the vulkan instance created by the backend.
func GetInstance() vk.Instance {
	return gBackend.instance.instance
}

// GetPhysicalDevice returns the selected physical device.
func GetPhysicalDevice() vk.PhysicalDevice {
	return gBackend.device.physicalDevice
}

// GetPhysicalDeviceProperties returns the stored device properties.
func GetPhysicalDeviceProperties() vk.PhysicalDeviceProperties {
	return gBackend.device.physicalProps
}

// GetPhysicalDeviceFeatures returns the stored device features.
func GetPhysicalDeviceFeatures() vk.PhysicalDeviceFeatures {
	return gBackend.device.physicalFeats
}

// GetPhysicalDeviceMemoryProperties returns the stored memory properties.
func GetPhysicalDeviceMemoryProperties() vk.PhysicalDeviceMemoryProperties {
	return gBackend.device.physicalMem
}

// GetDevice returns the logical device.
func GetDevice() vk.Device {
	return gBackend.device.handle
}

// GetGraphicsQueue returns the graphics queue chosen at device creation.
func GetGraphicsQueue() vk.Queue {
	return gBackend.device.graphicsQueue
}

// GetRenderpass returns the renderpass of a particular renderphase.
func GetRenderpass(phase RenderphaseType) vk.RenderPass {
	switch phase {
	case RenderphaseMain:
		return gBackend.mainRenderphase.Renderpass.renderpass
	case RenderphasePicking:
		return gBackend.pickingRenderphase.Renderpass.renderpass
	case RenderphaseUI:
		return gBackend.uiRenderphase.Renderpass.renderpass
	case RenderphaseViewport:
		if gBackend.viewportRenderphase != nil {
			return gBackend.viewportRenderphase.Renderpass.renderpass
		}
	}
	return vk.NullRenderPass
}

// GetCommandPool returns the command pool of a particular renderphase.
func GetCommandPool(phase RenderphaseType) vk.CommandPool {
	switch phase {
	case RenderphaseMain:
		return gBackend.mainRenderphase.Renderpass.cmdPool
	case RenderphasePicking:
		return gBackend.pickingRenderphase.Renderpass.cmdPool
	case RenderphaseUI:
		return gBackend.uiRenderphase.Renderpass.cmdPool
	case RenderphaseViewport:
		if gBackend.viewportRenderphase != nil {
			return gBackend.viewportRenderphase.Renderpass.cmdPool
		}
	}
	return vk.NullCommandPool
}

// GetUIDescriptorPool returns the descriptor pool used for ui textures.
func GetUIDescriptorPool() vk.DescriptorPool {
	return gBackend.uiRenderphase.DescriptorPool()
}

// GetUIDescriptorSetLayout returns the descriptor set layout used for ui.
func GetUIDescriptorSetLayout() vk.DescriptorSetLayout {
	return gBackend.uiRenderphase.DescriptorSetLayout()
}

// GetViewportDescriptorSet returns the descriptor the ui samples the
// offscreen scene with, nil when the viewport phase is disabled.
func GetViewportDescriptorSet() vk.DescriptorSet {
	if gBackend.viewportRenderphase == nil {
		return vk.NullDescriptorSet
	}
	return gBackend.viewportRenderphase.DescriptorSet()
}

// GetPipelinesLibrary returns the keyed pipeline library.
func GetPipelinesLibrary() map[string]*CorePipeline {
	return gBackend.pipelines
}

// GetBuffersLibrary returns the keyed per-frame buffer library.
func GetBuffersLibrary() map[string]*CoreBuffer {
	return gBackend.buffers
}

// GetCurrentFrame returns the frame-in-flight slot being recorded.
func GetCurrentFrame() uint32 {
	return gBackend.sync.currentFrame
}

// GetCurrentRenderphaseType returns the renderphase tag being recorded.
func GetCurrentRenderphaseType() RenderphaseType {
	return gBackend.currentRenderphase
}
