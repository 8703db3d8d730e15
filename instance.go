package spritevk

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// EnableValidations toggles the VK_LAYER_KHRONOS_validation layer and the
// debug report callback. Must be set before Init.
var EnableValidations = false

// CoreInstance owns the root vulkan objects: instance, debug callback and
// the presentation surface.
type CoreInstance struct {
	instance      vk.Instance
	debugCallback vk.DebugReportCallback
	surface       vk.Surface
}

// NewCoreInstance creates the vulkan instance with the surface extensions the
// display requires, plus debug-report and the validation layer when enabled.
func NewCoreInstance(ci *CreateInfo, display *CoreDisplay) (*CoreInstance, error) {
	core := &CoreInstance{}

	wanted := []string{}
	if EnableValidations {
		wanted = append(wanted, "VK_EXT_debug_report")
	}
	instExt := NewBaseInstanceExtensions(wanted, display.RequiredExtensions())
	if ok, missing := instExt.HasRequired(); !ok {
		return nil, fmt.Errorf("missing required instance extensions: %v", missing)
	}

	var layers []string
	if EnableValidations {
		layerExt := NewBaseLayerExtensions([]string{"VK_LAYER_KHRONOS_validation"})
		layers = layerExt.GetExtensions()
		if len(layers) == 0 {
			logWarn("validation layers requested but not available")
		}
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
			ApplicationVersion: ci.AppVersion,
			EngineVersion:      ci.EngineVersion,
			PApplicationName:   safeString(ci.AppName),
			PEngineName:        safeString(ci.EngineName),
		},
		EnabledExtensionCount:   uint32(len(instExt.GetExtensions())),
		PpEnabledExtensionNames: safeStrings(instExt.GetExtensions()),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}, nil, &instance)
	if err := NewError(ret); err != nil {
		return nil, fmt.Errorf("failed to create vulkan instance: %w", err)
	}
	core.instance = instance
	vk.InitInstance(instance)

	if EnableValidations {
		ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
			SType: vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
				vk.DebugReportInformationBit | vk.DebugReportDebugBit),
			PfnCallback: dbgCallbackFunc,
		}, nil, &core.debugCallback)
		if err := NewError(ret); err != nil {
			logWarn("unable to register debug callback: %v", err)
		}
	}

	surface, err := display.Bind(instance)
	if err != nil {
		core.Destroy()
		return nil, err
	}
	core.surface = surface

	return core, nil
}

// Destroy tears down the surface, debug callback and instance, in order.
func (core *CoreInstance) Destroy() {
	if core.surface != vk.NullSurface {
		vk.DestroySurface(core.instance, core.surface, nil)
		core.surface = vk.NullSurface
	}
	if core.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(core.instance, core.debugCallback, nil)
		core.debugCallback = vk.NullDebugReportCallback
	}
	if core.instance != nil {
		vk.DestroyInstance(core.instance, nil)
		core.instance = nil
	}
}

// dbgCallbackFunc translates vulkan report severities into log levels.
func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		logError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		logWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		logWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		logTrace("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		logInfo("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
