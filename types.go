package spritevk

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

// ConcurrentFrames is how many frames are simultaneously recorded and flown.
const ConcurrentFrames = 2

const (
	// PipelinePushConstantsMax bounds push-constant ranges per pipeline.
	PipelinePushConstantsMax = 8
	// PipelineDescriptorSetLayoutBindingMax bounds layout bindings per pipeline.
	PipelineDescriptorSetLayoutBindingMax = 32
	// PipelineShaderStagesCount is vertex + fragment, the only stages supported.
	PipelineShaderStagesCount = 2
)

// MSAA is the multisample count used by the scene renderphases.
type MSAA vk.SampleCountFlagBits

const (
	MsaaOff MSAA = 0x00000001
	MsaaX2  MSAA = 0x00000002
	MsaaX4  MSAA = 0x00000004
	MsaaX8  MSAA = 0x00000008
	MsaaX16 MSAA = 0x00000010
	MsaaX32 MSAA = 0x00000020
	MsaaX64 MSAA = 0x00000040
)

// CameraDir enumerates the directions the fly camera can be moved towards.
type CameraDir int

const (
	CameraDirForward CameraDir = iota
	CameraDirBackward
	CameraDirLeft
	CameraDirRight
)

// RenderphaseType tags which renderphase is currently being recorded.
type RenderphaseType int

const (
	RenderphaseMain RenderphaseType = iota
	RenderphasePicking
	RenderphaseUI
	RenderphaseViewport
)

func (t RenderphaseType) String() string {
	switch t {
	case RenderphaseMain:
		return "Main"
	case RenderphasePicking:
		return "Picking"
	case RenderphaseUI:
		return "UI"
	case RenderphaseViewport:
		return "Viewport"
	}
	return "Unknown"
}

// ShaderType enumerates the supported shader stages for loading.
type ShaderType int

const (
	ShaderTypeVertex ShaderType = iota
	ShaderTypeFragment
	ShaderTypeCompute
	ShaderTypeGeometry
	ShaderTypeTessCtrl
	ShaderTypeTessEval
)

// VertexComponent enumerates the vertex attributes a pipeline may consume.
type VertexComponent int

const (
	VertexComponentPosition VertexComponent = iota
	VertexComponentNormal
	VertexComponentUV0
	VertexComponentColor0
	VertexComponentJoints0
	VertexComponentWeights0

	vertexComponentMax
)

// Float2 is a plain 2d value used on the public surface for sizes and coords.
type Float2 struct {
	X float32
	Y float32
}

// PushConstant is delivered per draw, visible to vertex and fragment stages.
// The model matrix sits at a 16-byte offset to match the shader-side layout.
type PushConstant struct {
	ID    uint64
	_pad0 [8]byte
	Model lin.Mat4x4
}

// CameraUBO is the per-camera uniform block, host-coherent.
type CameraUBO struct {
	View        lin.Mat4x4
	ViewInverse lin.Mat4x4
	Proj        lin.Mat4x4
}

// SpriteUBO is the per-sprite uniform block, std140-compatible:
// float at offset 0, the two vec2 at 8-byte aligned offsets.
type SpriteUBO struct {
	UVRotation float32
	_pad0      float32
	UVOffset   [2]float32
	UVScale    [2]float32
}

// RenderCallback is invoked inside scene renderphase recordings; draws must
// go through the sprite API which reads the current renderphase tag.
type RenderCallback func(ctx *CoreContext, timestep float32)

// RenderUICallback is invoked inside the UI renderphase recording with the
// raw command buffer so a UI integration layer can issue its own commands.
type RenderUICallback func(ctx *CoreContext, cmdBuffer vk.CommandBuffer)

// CreateInfo carries the initial arguments necessary to initialize the api.
type CreateInfo struct {
	AppName       string
	EngineName    string
	AppVersion    uint32
	EngineVersion uint32
	Width         uint32
	Height        uint32
	MSAA          MSAA
	Vsync         bool
	Viewport      bool

	// Window binds the surface through glfw, the portable route.
	Window *glfw.Window
	// Surface may carry a pre-made surface for hosts that did their own
	// platform binding; it takes precedence over Window when set.
	Surface vk.Surface
}
