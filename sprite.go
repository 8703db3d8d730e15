package spritevk

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

// Sprite is a textured quad with an integer id the picking pass can write.
// It owns its per-frame uniform buffer and one descriptor set per frame in
// flight bound to {camera UBO, sprite UBO, albedo}.
type Sprite struct {
	id             uint32
	ubo            SpriteUBO
	buffer         *CoreBuffer
	albedo         *Texture2D
	descriptorPool vk.DescriptorPool
	descriptorSets [ConcurrentFrames]vk.DescriptorSet
}

// NewSpriteFromFile loads the albedo texture from disk and builds the
// sprite's gpu resources.
func NewSpriteFromFile(path string, id uint32) (*Sprite, error) {
	albedo, err := NewTexture2DFromFile(path, false)
	if err != nil {
		logError("failed to load albedo texture for sprite %s: %v", path, err)
		return nil, err
	}
	sprite, err := newSprite(albedo, id)
	if err != nil {
		albedo.Destroy()
		return nil, err
	}
	return sprite, nil
}

// NewSpriteFromTexture wraps an already uploaded texture.
func NewSpriteFromTexture(albedo *Texture2D, id uint32) (*Sprite, error) {
	if albedo == nil {
		return nil, fmt.Errorf("sprite albedo is nil")
	}
	return newSprite(albedo, id)
}

func newSprite(albedo *Texture2D, id uint32) (*Sprite, error) {
	backend := getBackend()
	if backend == nil {
		return nil, fmt.Errorf("backend not initialized")
	}
	device := backend.device.handle
	gpu := backend.device.physicalDevice
	limits := backend.device.physicalProps.Limits

	sprite := &Sprite{
		id:     id,
		albedo: albedo,
		ubo: SpriteUBO{
			UVScale: [2]float32{1.0, 1.0},
		},
	}

	uboSize := vk.DeviceSize(unsafe.Sizeof(SpriteUBO{}))
	atomSize := uint64(limits.NonCoherentAtomSize)
	uniformAlign := uint64(limits.MinUniformBufferOffsetAlignment)
	requiredAlignment := atomSize
	if uniformAlign > requiredAlignment {
		requiredAlignment = uniformAlign
	}
	perFrameAligned := vk.DeviceSize(alignUp(uint64(uboSize), requiredAlignment))
	totalSize := perFrameAligned * ConcurrentFrames

	// non-coherent cached memory, flushed explicitly on update
	buffer, err := NewCoreBuffer(device, gpu, totalSize,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit),
		ConcurrentFrames)
	if err != nil {
		return nil, err
	}
	sprite.buffer = buffer
	sprite.buffer.originalDataSize = uboSize
	sprite.buffer.alignedPerFrameSize = perFrameAligned

	staging, err := NewCoreBuffer(device, gpu, uboSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit), 1)
	if err != nil {
		sprite.destroyOwned(device)
		return nil, err
	}
	defer staging.Destroy(device)

	if err := staging.Copy(0, rawBytes(unsafe.Pointer(&sprite.ubo), unsafe.Sizeof(sprite.ubo)), 0); err != nil {
		sprite.destroyOwned(device)
		return nil, err
	}

	cmdPool := backend.scenePhaseCommandPool()
	cmdBuffer, err := beginSingleTimeCommands(device, cmdPool)
	if err != nil {
		sprite.destroyOwned(device)
		return nil, err
	}
	for i := uint32(0); i < ConcurrentFrames; i++ {
		staging.CommandCopy(cmdBuffer, 0, sprite.buffer, i, uboSize, 0, vk.DeviceSize(i)*perFrameAligned)
	}
	if err := endSingleTimeCommands(device, cmdPool, cmdBuffer, backend.device.graphicsQueue); err != nil {
		sprite.destroyOwned(device)
		return nil, err
	}

	pipeline := backend.pipelines[PipelineSpriteDefaultName]
	if pipeline == nil {
		sprite.destroyOwned(device)
		return nil, fmt.Errorf("sprite pipeline not found in library")
	}

	ret := vk.CreateDescriptorPool(device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       ConcurrentFrames,
		PoolSizeCount: 3,
		PPoolSizes: []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: ConcurrentFrames},
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: ConcurrentFrames},
			{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: ConcurrentFrames},
		},
	}, nil, &sprite.descriptorPool)
	if err := NewError(ret); err != nil {
		sprite.destroyOwned(device)
		return nil, fmt.Errorf("failed to create sprite descriptor pool: %w", err)
	}

	layouts := []vk.DescriptorSetLayout{}
	for i := 0; i < ConcurrentFrames; i++ {
		layouts = append(layouts, pipeline.DescriptorSetLayout())
	}
	sets := make([]vk.DescriptorSet, ConcurrentFrames)
	ret = vk.AllocateDescriptorSets(device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     sprite.descriptorPool,
		DescriptorSetCount: ConcurrentFrames,
		PSetLayouts:        layouts,
	}, &sets[0])
	if err := NewError(ret); err != nil {
		sprite.destroyOwned(device)
		return nil, fmt.Errorf("failed to allocate sprite descriptor sets: %w", err)
	}
	copy(sprite.descriptorSets[:], sets)

	sprite.refreshDescriptors()

	return sprite, nil
}

// refreshDescriptors rewrites every per-frame descriptor set: camera UBO at
// binding 0, sprite UBO at 1, albedo at 2.
func (sprite *Sprite) refreshDescriptors() {
	backend := getBackend()
	device := backend.device.handle
	cameraBuffer := backend.buffers[BufferMainCameraName]

	for i := uint32(0); i < ConcurrentFrames; i++ {
		writes := []vk.WriteDescriptorSet{
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          sprite.descriptorSets[i],
				DstBinding:      0,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				PBufferInfo: []vk.DescriptorBufferInfo{{
					Buffer: cameraBuffer.Buffer(i),
					Range:  vk.DeviceSize(unsafe.Sizeof(CameraUBO{})),
				}},
			},
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          sprite.descriptorSets[i],
				DstBinding:      1,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				PBufferInfo: []vk.DescriptorBufferInfo{{
					Buffer: sprite.buffer.Buffer(i),
					Range:  vk.DeviceSize(unsafe.Sizeof(SpriteUBO{})),
				}},
			},
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          sprite.descriptorSets[i],
				DstBinding:      2,
				DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				PImageInfo: []vk.DescriptorImageInfo{{
					Sampler:     sprite.albedo.sampler,
					ImageView:   sprite.albedo.view,
					ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				}},
			},
		}
		vk.UpdateDescriptorSets(device, uint32(len(writes)), writes, 0, nil)
	}

	sprite.Update(false)
}

// Update writes the sprite UBO into every frame slot, flushing the cached
// memory explicitly. When resend is true the descriptor sets are rewritten
// first.
func (sprite *Sprite) Update(resend bool) {
	if sprite == nil || sprite.buffer == nil {
		return
	}
	backend := getBackend()
	device := backend.device.handle

	if resend {
		sprite.refreshDescriptors()
	}

	atomSize := vk.DeviceSize(backend.device.physicalProps.Limits.NonCoherentAtomSize)
	data := rawBytes(unsafe.Pointer(&sprite.ubo), unsafe.Sizeof(sprite.ubo))

	for i := uint32(0); i < ConcurrentFrames; i++ {
		sprite.buffer.Map(device, i)
		sprite.buffer.Copy(i, data, 0)
		sprite.buffer.Flush(device, i, vk.DeviceSize(len(data)), atomSize, 0)
		sprite.buffer.Unmap(device, i)
	}
}

// SetUV adjusts the uv transform and pushes it to the gpu.
func (sprite *Sprite) SetUV(rotation float32, offset, scale [2]float32) {
	if sprite == nil {
		return
	}
	sprite.ubo.UVRotation = rotation
	sprite.ubo.UVOffset = offset
	sprite.ubo.UVScale = scale
	sprite.Update(false)
}

// Render pushes the {id, model} constant, binds the per-frame descriptor set
// and the pipeline matching the current renderphase tag, then draws the
// 6-vertex quad. Main and Viewport use the default pipeline, Picking the
// picking one; any other phase is a no-op.
func (sprite *Sprite) Render(modelMatrix *lin.Mat4x4) {
	backend := getBackend()
	if sprite == nil || backend == nil {
		return
	}

	var pipeline *CorePipeline
	var cmdBuffer vk.CommandBuffer
	currentFrame := backend.sync.currentFrame

	switch backend.currentRenderphase {
	case RenderphaseMain:
		pipeline = backend.pipelines[PipelineSpriteDefaultName]
		cmdBuffer = backend.mainRenderphase.Renderpass.cmdBuffers[currentFrame]

	case RenderphaseViewport:
		pipeline = backend.pipelines[PipelineSpriteDefaultName]
		cmdBuffer = backend.viewportRenderphase.Renderpass.cmdBuffers[currentFrame]

	case RenderphasePicking:
		pipeline = backend.pipelines[PipelineSpritePickingName]
		cmdBuffer = backend.pickingRenderphase.Renderpass.cmdBuffers[currentFrame]

	default:
		return
	}

	if pipeline == nil || cmdBuffer == nil {
		return
	}

	constants := PushConstant{
		ID:    uint64(sprite.id),
		Model: *modelMatrix,
	}
	vk.CmdPushConstants(cmdBuffer, pipeline.Layout(),
		vk.ShaderStageFlags(vk.ShaderStageVertexBit)|vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		0, uint32(unsafe.Sizeof(constants)), unsafe.Pointer(&constants))

	vk.CmdBindDescriptorSets(cmdBuffer, vk.PipelineBindPointGraphics, pipeline.Layout(),
		0, 1, []vk.DescriptorSet{sprite.descriptorSets[currentFrame]}, 0, nil)
	vk.CmdBindPipeline(cmdBuffer, vk.PipelineBindPointGraphics, pipeline.Handle())
	vk.CmdDraw(cmdBuffer, 6, 1, 0, 0)
}

// ID returns the sprite's id.
func (sprite *Sprite) ID() uint32 {
	if sprite == nil {
		return 0
	}
	return sprite.id
}

// Albedo returns the sprite's texture.
func (sprite *Sprite) Albedo() *Texture2D {
	if sprite == nil {
		return nil
	}
	return sprite.albedo
}

func (sprite *Sprite) destroyOwned(device vk.Device) {
	if sprite.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(device, sprite.descriptorPool, nil)
		sprite.descriptorPool = vk.NullDescriptorPool
	}
	if sprite.buffer != nil {
		sprite.buffer.Destroy(device)
		sprite.buffer = nil
	}
}

// Destroy releases the sprite's descriptor pool, buffer and texture.
func (sprite *Sprite) Destroy() {
	if sprite == nil {
		return
	}
	backend := getBackend()
	if backend == nil {
		return
	}
	device := backend.device.handle
	vk.DeviceWaitIdle(device)

	sprite.destroyOwned(device)
	if sprite.albedo != nil {
		sprite.albedo.Destroy()
		sprite.albedo = nil
	}
}
