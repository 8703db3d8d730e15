package spritevk

import (
	"fmt"
	"os"
	"path/filepath"

	vk "github.com/vulkan-go/vulkan"
)

//go:generate glslangValidator -V shaders/sprite.vert -o shaders/sprite.vert.spv
//go:generate glslangValidator -V shaders/sprite.frag -o shaders/sprite.frag.spv
//go:generate glslangValidator -V shaders/sprite_picking.vert -o shaders/sprite_picking.vert.spv
//go:generate glslangValidator -V shaders/sprite_picking.frag -o shaders/sprite_picking.frag.spv

// Shader is one loaded spirv module plus the stage info a pipeline consumes.
type Shader struct {
	name string
	typ  ShaderType
	info vk.PipelineShaderStageCreateInfo
}

// CoreShader loads pre-compiled spirv modules from the shader directory.
type CoreShader struct {
	dir string
}

// NewCoreShader resolves the shader directory; an empty dir means
// "<working dir>/shaders", the place the go:generate lines compile into.
func NewCoreShader(dir string) *CoreShader {
	if dir == "" {
		wd, err := os.Getwd()
		Fatal(err)
		dir = filepath.Join(wd, "shaders")
	}
	return &CoreShader{dir: dir}
}

// LoadShader reads <dir>/<name>.spv and wraps it into a shader module with
// its stage info populated.
func (core *CoreShader) LoadShader(device vk.Device, name string, typ ShaderType) (Shader, error) {
	shader := Shader{name: name, typ: typ}

	buffer, err := os.ReadFile(filepath.Join(core.dir, name+".spv"))
	if err != nil {
		return shader, fmt.Errorf("unable to read shader %s: %w", name, err)
	}
	if len(buffer) == 0 || len(buffer)%4 != 0 {
		return shader, fmt.Errorf("shader %s is not valid spirv", name)
	}

	var module vk.ShaderModule
	ret := vk.CreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(buffer)),
		PCode:    sliceUint32(buffer),
	}, nil, &module)
	if err := NewError(ret); err != nil {
		return shader, fmt.Errorf("unable to create shader module %s: %w", name, err)
	}

	shader.info = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  shaderStageBit(typ),
		Module: module,
		PName:  safeString("main"),
	}
	return shader, nil
}

func shaderStageBit(typ ShaderType) vk.ShaderStageFlagBits {
	switch typ {
	case ShaderTypeVertex:
		return vk.ShaderStageVertexBit
	case ShaderTypeFragment:
		return vk.ShaderStageFragmentBit
	case ShaderTypeCompute:
		return vk.ShaderStageComputeBit
	case ShaderTypeGeometry:
		return vk.ShaderStageGeometryBit
	case ShaderTypeTessCtrl:
		return vk.ShaderStageTessellationControlBit
	case ShaderTypeTessEval:
		return vk.ShaderStageTessellationEvaluationBit
	}
	return vk.ShaderStageVertexBit
}
