package spritevk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// CoreDevice owns the selected physical device, the logical device and the
// three queues the runtime submits to.
type CoreDevice struct {
	physicalDevice vk.PhysicalDevice
	physicalProps  vk.PhysicalDeviceProperties
	physicalMem    vk.PhysicalDeviceMemoryProperties
	physicalFeats  vk.PhysicalDeviceFeatures
	handle         vk.Device

	graphicsQueue vk.Queue
	presentQueue  vk.Queue
	computeQueue  vk.Queue
	graphicsIndex uint32
	presentIndex  uint32
	computeIndex  uint32
}

var requiredDeviceExtensions = []string{"VK_KHR_swapchain"}

// chooseDevice scores every physical device and returns the fittest one that
// exposes graphics/present/compute queues and the swapchain extension.
func chooseDevice(instance vk.Instance, surface vk.Surface) (vk.PhysicalDevice, error) {
	var gpuCount uint32
	ret := vk.EnumeratePhysicalDevices(instance, &gpuCount, nil)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	if gpuCount == 0 {
		return nil, fmt.Errorf("no physical devices found")
	}
	gpus := make([]vk.PhysicalDevice, gpuCount)
	ret = vk.EnumeratePhysicalDevices(instance, &gpuCount, gpus)
	if err := NewError(ret); err != nil {
		return nil, err
	}

	var chosen vk.PhysicalDevice
	var bestScore uint64

	for _, gpu := range gpus {
		indices := findQueueFamilies(gpu, surface)
		if !indices.Complete() {
			continue
		}

		devExt := NewBaseDeviceExtensions(nil, requiredDeviceExtensions, gpu)
		if ok, _ := devExt.HasRequired(); !ok {
			continue
		}

		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &props)
		props.Deref()
		props.Limits.Deref()

		var memProps vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(gpu, &memProps)
		memProps.Deref()

		var score uint64
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			score += 1000
		}
		score += uint64(props.Limits.MaxImageDimension2D)
		for j := uint32(0); j < memProps.MemoryHeapCount; j++ {
			memProps.MemoryHeaps[j].Deref()
			if memProps.MemoryHeaps[j].Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
				score += uint64(memProps.MemoryHeaps[j].Size) / (1024 * 1024)
			}
		}

		if score > bestScore {
			bestScore = score
			chosen = gpu
		}
	}

	if chosen == nil {
		return nil, fmt.Errorf("no suitable gpu for graphics, present and compute")
	}
	return chosen, nil
}

// NewCoreDevice creates the logical device on the chosen physical device,
// with one queue per distinct family.
func NewCoreDevice(instance vk.Instance, surface vk.Surface, gpu vk.PhysicalDevice) (*CoreDevice, error) {
	core := &CoreDevice{physicalDevice: gpu}

	indices := findQueueFamilies(gpu, surface)
	if !indices.Complete() {
		return nil, fmt.Errorf("selected gpu lost its queue families")
	}

	familySet := []uint32{indices.Graphics}
	if indices.Present != indices.Graphics {
		familySet = append(familySet, indices.Present)
	}
	if indices.Compute != indices.Graphics && indices.Compute != indices.Present {
		familySet = append(familySet, indices.Compute)
	}

	queueInfos := make([]vk.DeviceQueueCreateInfo, len(familySet))
	for i, family := range familySet {
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	var layers []string
	if EnableValidations {
		layers = []string{"VK_LAYER_KHRONOS_validation"}
	}

	devExt := NewBaseDeviceExtensions([]string{"VK_KHR_portability_subset"}, requiredDeviceExtensions, gpu)
	extensions := devExt.GetExtensions()

	features := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vk.True,
	}

	var device vk.Device
	ret := vk.CreateDevice(gpu, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
	}, nil, &device)
	if err := NewError(ret); err != nil {
		return nil, fmt.Errorf("failed to create logical device: %w", err)
	}
	core.handle = device

	vk.GetPhysicalDeviceProperties(gpu, &core.physicalProps)
	core.physicalProps.Deref()
	core.physicalProps.Limits.Deref()
	vk.GetPhysicalDeviceMemoryProperties(gpu, &core.physicalMem)
	core.physicalMem.Deref()
	vk.GetPhysicalDeviceFeatures(gpu, &core.physicalFeats)
	core.physicalFeats.Deref()

	vk.GetDeviceQueue(device, indices.Graphics, 0, &core.graphicsQueue)
	vk.GetDeviceQueue(device, indices.Present, 0, &core.presentQueue)
	vk.GetDeviceQueue(device, indices.Compute, 0, &core.computeQueue)
	core.graphicsIndex = indices.Graphics
	core.presentIndex = indices.Present
	core.computeIndex = indices.Compute

	return core, nil
}

// Destroy releases the logical device.
func (core *CoreDevice) Destroy() {
	if core.handle != nil {
		vk.DestroyDevice(core.handle, nil)
		core.handle = nil
	}
}
