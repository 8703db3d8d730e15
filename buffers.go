package spritevk

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// CoreBuffer backs one logical buffer with frameCount independent device
// allocations so each frame in flight owns its own copy. Host-visible
// buffers are mapped at creation and stay mapped until destroyed.
type CoreBuffer struct {
	size                vk.DeviceSize
	originalDataSize    vk.DeviceSize
	alignedPerFrameSize vk.DeviceSize
	usage               vk.BufferUsageFlags
	memoryProperties    vk.MemoryPropertyFlags
	frameCount          uint32

	buffers  []vk.Buffer
	memories []vk.DeviceMemory
	mapped   []unsafe.Pointer
	isMapped []bool
}

// NewCoreBuffer creates frameCount buffers of the given size, allocating and
// binding memory for each and auto-mapping host-visible memory.
func NewCoreBuffer(device vk.Device, gpu vk.PhysicalDevice, size vk.DeviceSize,
	usage vk.BufferUsageFlags, memoryProperties vk.MemoryPropertyFlags, frameCount uint32) (*CoreBuffer, error) {

	if size == 0 || frameCount == 0 {
		return nil, fmt.Errorf("invalid buffer size or frame count")
	}

	core := &CoreBuffer{
		size:             size,
		usage:            usage,
		memoryProperties: memoryProperties,
		frameCount:       frameCount,
		buffers:          make([]vk.Buffer, frameCount),
		memories:         make([]vk.DeviceMemory, frameCount),
		mapped:           make([]unsafe.Pointer, frameCount),
		isMapped:         make([]bool, frameCount),
	}

	for i := uint32(0); i < frameCount; i++ {
		ret := vk.CreateBuffer(device, &vk.BufferCreateInfo{
			SType:       vk.StructureTypeBufferCreateInfo,
			Size:        size,
			Usage:       usage,
			SharingMode: vk.SharingModeExclusive,
		}, nil, &core.buffers[i])
		if err := NewError(ret); err != nil {
			core.Destroy(device)
			return nil, fmt.Errorf("failed to create buffer %d: %w", i, err)
		}

		var memReqs vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(device, core.buffers[i], &memReqs)
		memReqs.Deref()

		memType, ok := findMemoryType(gpu, memReqs.MemoryTypeBits, memoryProperties)
		if !ok {
			core.Destroy(device)
			return nil, fmt.Errorf("no suitable memory type for buffer %d", i)
		}

		ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  memReqs.Size,
			MemoryTypeIndex: memType,
		}, nil, &core.memories[i])
		if err := NewError(ret); err != nil {
			core.Destroy(device)
			return nil, fmt.Errorf("failed to allocate buffer memory %d: %w", i, err)
		}

		if ret := vk.BindBufferMemory(device, core.buffers[i], core.memories[i], 0); isError(ret) {
			core.Destroy(device)
			return nil, fmt.Errorf("failed to bind buffer memory %d: %w", i, NewError(ret))
		}

		if memoryProperties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
			if err := core.Map(device, i); err != nil {
				logWarn("failed to auto-map buffer %d: %v", i, err)
			}
		}
	}

	return core, nil
}

// Destroy unmaps and releases every per-frame buffer and allocation.
func (core *CoreBuffer) Destroy(device vk.Device) {
	for i := uint32(0); i < core.frameCount; i++ {
		if core.isMapped[i] {
			core.Unmap(device, i)
		}
		if core.buffers[i] != vk.NullBuffer {
			vk.DestroyBuffer(device, core.buffers[i], nil)
			core.buffers[i] = vk.NullBuffer
		}
		if core.memories[i] != vk.NullDeviceMemory {
			vk.FreeMemory(device, core.memories[i], nil)
			core.memories[i] = vk.NullDeviceMemory
		}
	}
}

// Map maps the whole range of frame i, failing on non-host-visible memory.
// Mapping an already mapped frame is a no-op.
func (core *CoreBuffer) Map(device vk.Device, frameIndex uint32) error {
	if frameIndex >= core.frameCount {
		return fmt.Errorf("frame index %d out of bounds", frameIndex)
	}
	if core.isMapped[frameIndex] {
		return nil
	}

	if core.memoryProperties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
		logError("cannot map non-host-visible buffer")
		return fmt.Errorf("cannot map non-host-visible buffer")
	}

	ret := vk.MapMemory(device, core.memories[frameIndex], 0, core.size, 0, &core.mapped[frameIndex])
	if err := NewError(ret); err != nil {
		logError("failed to map buffer: %v", err)
		return err
	}
	core.isMapped[frameIndex] = true
	return nil
}

// Unmap unmaps frame i; unmapping an unmapped frame is a no-op.
func (core *CoreBuffer) Unmap(device vk.Device, frameIndex uint32) error {
	if frameIndex >= core.frameCount {
		return fmt.Errorf("frame index %d out of bounds", frameIndex)
	}
	if !core.isMapped[frameIndex] {
		return nil
	}

	vk.UnmapMemory(device, core.memories[frameIndex])
	core.mapped[frameIndex] = nil
	core.isMapped[frameIndex] = false
	return nil
}

// Copy memcpys data into the mapped region of frame i at dstOffset.
func (core *CoreBuffer) Copy(frameIndex uint32, data []byte, dstOffset vk.DeviceSize) error {
	if len(data) == 0 {
		return fmt.Errorf("no data to copy")
	}
	if frameIndex >= core.frameCount {
		logError("frame index %d out of bounds", frameIndex)
		return fmt.Errorf("frame index %d out of bounds", frameIndex)
	}
	if dstOffset+vk.DeviceSize(len(data)) > core.size {
		logError("copy exceeds buffer size")
		return fmt.Errorf("copy exceeds buffer size")
	}
	if !core.isMapped[frameIndex] {
		logError("buffer not mapped at frame %d", frameIndex)
		return fmt.Errorf("buffer not mapped at frame %d", frameIndex)
	}

	dst := unsafe.Pointer(uintptr(core.mapped[frameIndex]) + uintptr(dstOffset))
	vk.Memcopy(dst, data)
	return nil
}

// Flush makes CPU writes visible to the GPU. Host-coherent memory needs no
// flush; otherwise the range is rounded outward to nonCoherentAtomSize and
// clamped to the buffer size.
func (core *CoreBuffer) Flush(device vk.Device, frameIndex uint32, size, nonCoherentAtomSize, offset vk.DeviceSize) error {
	if frameIndex >= core.frameCount {
		return fmt.Errorf("frame index %d out of bounds", frameIndex)
	}

	if core.memoryProperties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit) != 0 {
		return nil
	}

	alignedOffset, alignedSize := flushRange(uint64(offset), uint64(size), uint64(nonCoherentAtomSize), uint64(core.size))

	ret := vk.FlushMappedMemoryRanges(device, 1, []vk.MappedMemoryRange{{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: core.memories[frameIndex],
		Offset: vk.DeviceSize(alignedOffset),
		Size:   vk.DeviceSize(alignedSize),
	}})
	if err := NewError(ret); err != nil {
		return err
	}
	return nil
}

// flushRange rounds [offset, offset+size) outward to atomSize and clamps the
// result to bufferSize.
func flushRange(offset, size, atomSize, bufferSize uint64) (uint64, uint64) {
	alignedOffset := alignDown(offset, atomSize)
	alignedEnd := alignUp(offset+size, atomSize)
	alignedSize := alignedEnd - alignedOffset

	if alignedOffset+alignedSize > bufferSize {
		alignedSize = bufferSize - alignedOffset
	}
	return alignedOffset, alignedSize
}

// CommandCopy records a device-side copy from one per-frame buffer into
// another. A size of WholeSize copies the rest of the source.
func (core *CoreBuffer) CommandCopy(cmdBuffer vk.CommandBuffer, srcFrameIndex uint32,
	dst *CoreBuffer, dstFrameIndex uint32, size, srcOffset, dstOffset vk.DeviceSize) error {

	if dst == nil || srcFrameIndex >= core.frameCount || dstFrameIndex >= dst.frameCount {
		return fmt.Errorf("invalid buffer or frame index for command copy")
	}

	if size == vk.DeviceSize(vk.WholeSize) {
		size = core.size - srcOffset
	}

	vk.CmdCopyBuffer(cmdBuffer, core.buffers[srcFrameIndex], dst.buffers[dstFrameIndex], 1,
		[]vk.BufferCopy{{
			SrcOffset: srcOffset,
			DstOffset: dstOffset,
			Size:      size,
		}})
	return nil
}

// Buffer exposes the handle backing frame i for descriptor writes.
func (core *CoreBuffer) Buffer(frameIndex uint32) vk.Buffer {
	return core.buffers[frameIndex]
}

// AlignedPerFrameSize is the stride reserved for one frame's record.
func (core *CoreBuffer) AlignedPerFrameSize() vk.DeviceSize {
	return core.alignedPerFrameSize
}
