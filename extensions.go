package spritevk

import (
	vk "github.com/vulkan-go/vulkan"
)

// InstanceExtensions gets a list of instance extensions available on the platform.
func InstanceExtensions() (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, err
}

// DeviceExtensions gets a list of device extensions available on the provided physical device.
func DeviceExtensions(gpu vk.PhysicalDevice) (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, err
}

// ValidationLayers gets a list of validation layers available on the platform.
func ValidationLayers() (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateInstanceLayerProperties(&count, nil)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	list := make([]vk.LayerProperties, count)
	ret = vk.EnumerateInstanceLayerProperties(&count, list)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, err
}

// BaseExtensions reconciles a wanted/required extension set against the list
// the platform actually reports.
type BaseExtensions struct {
	wanted   []string
	required []string
	actual   []string
}

func NewBaseInstanceExtensions(wanted, required []string) *BaseExtensions {
	base := &BaseExtensions{wanted: wanted, required: required}
	base.actual, _ = InstanceExtensions()
	return base
}

func NewBaseDeviceExtensions(wanted, required []string, gpu vk.PhysicalDevice) *BaseExtensions {
	base := &BaseExtensions{wanted: wanted, required: required}
	base.actual, _ = DeviceExtensions(gpu)
	return base
}

func NewBaseLayerExtensions(wanted []string) *BaseExtensions {
	base := &BaseExtensions{wanted: wanted}
	base.actual, _ = ValidationLayers()
	return base
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

// HasRequired reports whether every required name is present, plus the
// missing ones.
func (e *BaseExtensions) HasRequired() (bool, []string) {
	missing := []string{}
	for _, req := range e.required {
		if !contains(e.actual, req) {
			missing = append(missing, req)
		}
	}
	return len(missing) == 0, missing
}

// HasWanted reports whether every wanted name is present, plus the missing ones.
func (e *BaseExtensions) HasWanted() (bool, []string) {
	missing := []string{}
	for _, want := range e.wanted {
		if !contains(e.actual, want) {
			missing = append(missing, want)
		}
	}
	return len(missing) == 0, missing
}

// GetExtensions returns required plus the wanted names the platform actually
// has, deduplicated, ready for a create-info.
func (e *BaseExtensions) GetExtensions() []string {
	implement := []string{}
	implement = append(implement, e.required...)
	for _, want := range e.wanted {
		if !contains(implement, want) && contains(e.actual, want) {
			implement = append(implement, want)
		}
	}
	return implement
}
