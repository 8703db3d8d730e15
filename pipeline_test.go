package spritevk

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestVertexBindingDescriptions(t *testing.T) {
	assert.Nil(t, vertexBindingDescriptions(false))

	bindings := vertexBindingDescriptions(true)
	assert.Len(t, bindings, 1)
	assert.Equal(t, uint32(unsafe.Sizeof(Vertex{})), bindings[0].Stride)
	assert.Equal(t, vk.VertexInputRateVertex, bindings[0].InputRate)
}

func TestVertexAttributeDescriptionsFollowComponentOrder(t *testing.T) {
	attrs := vertexAttributeDescriptions([]VertexComponent{
		VertexComponentPosition, VertexComponentUV0, VertexComponentColor0,
	})

	assert.Len(t, attrs, 3)
	assert.Equal(t, uint32(0), attrs[0].Location)
	assert.Equal(t, vk.FormatR32g32b32Sfloat, attrs[0].Format)
	assert.Equal(t, uint32(1), attrs[1].Location)
	assert.Equal(t, vk.FormatR32g32Sfloat, attrs[1].Format)
	assert.Equal(t, uint32(2), attrs[2].Location)
	assert.Equal(t, vk.FormatR32g32b32a32Sfloat, attrs[2].Format)
}

func TestSpritePipelineBindings(t *testing.T) {
	bindings := spritePipelineBindings()
	assert.Len(t, bindings, 3)

	// camera and sprite UBOs visible to vertex+fragment
	for _, i := range []int{0, 1} {
		assert.Equal(t, vk.DescriptorTypeUniformBuffer, bindings[i].DescriptorType)
		assert.Equal(t,
			vk.ShaderStageFlags(vk.ShaderStageVertexBit)|vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			bindings[i].StageFlags)
	}

	// albedo sampler is fragment-only
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, bindings[2].DescriptorType)
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageFragmentBit), bindings[2].StageFlags)
}

func TestSpritePushConstantCoversIDAndModel(t *testing.T) {
	ranges := spritePushConstants()
	assert.Len(t, ranges, 1)
	assert.Equal(t, uint32(0), ranges[0].Offset)
	assert.Equal(t, uint32(unsafe.Sizeof(PushConstant{})), ranges[0].Size)
	assert.Equal(t,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit)|vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		ranges[0].StageFlags)
}
