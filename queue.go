package spritevk

import (
	vk "github.com/vulkan-go/vulkan"
)

// QueueFamily carries the queue family indices a device must expose to be
// usable: graphics, present and compute.
type QueueFamily struct {
	Graphics      uint32
	Present       uint32
	Compute       uint32
	GraphicsFound bool
	PresentFound  bool
	ComputeFound  bool
}

// Complete reports whether all three families were found.
func (q QueueFamily) Complete() bool {
	return q.GraphicsFound && q.PresentFound && q.ComputeFound
}

// findQueueFamilies walks the device queue families looking for graphics,
// present and compute support against the given surface.
func findQueueFamilies(gpu vk.PhysicalDevice, surface vk.Surface) QueueFamily {
	indices := QueueFamily{
		Graphics: vk.MaxUint32,
		Present:  vk.MaxUint32,
		Compute:  vk.MaxUint32,
	}

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, families)

	for i := uint32(0); i < count; i++ {
		families[i].Deref()

		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			indices.Graphics = i
			indices.GraphicsFound = true
		}
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			indices.Compute = i
			indices.ComputeFound = true
		}

		var presentSupport vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gpu, i, surface, &presentSupport)
		if presentSupport.B() {
			indices.Present = i
			indices.PresentFound = true
		}

		if indices.Complete() {
			break
		}
	}

	return indices
}
