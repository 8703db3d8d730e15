package spritevk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(0), alignUp(0, 64))
	assert.Equal(t, uint64(64), alignUp(1, 64))
	assert.Equal(t, uint64(64), alignUp(64, 64))
	assert.Equal(t, uint64(128), alignUp(65, 64))
}

func TestFlushRangeRoundsOutwardToAtomSize(t *testing.T) {
	// [70, 90) with atom 64 expands to [64, 128)
	offset, size := flushRange(70, 20, 64, 1024)
	assert.Equal(t, uint64(64), offset)
	assert.Equal(t, uint64(64), size)

	// already aligned range stays put
	offset, size = flushRange(64, 64, 64, 1024)
	assert.Equal(t, uint64(64), offset)
	assert.Equal(t, uint64(64), size)
}

func TestFlushRangeClampsToBufferSize(t *testing.T) {
	// rounding the end outward would exceed the 100-byte buffer
	offset, size := flushRange(64, 30, 64, 100)
	assert.Equal(t, uint64(64), offset)
	assert.Equal(t, uint64(36), size)
}

func TestSpriteUBOStrideUsesLargestAlignment(t *testing.T) {
	// stride = ceil(size / max(atom, uniformAlign)) * max(atom, uniformAlign) bytes
	atom := uint64(128)
	uniformAlign := uint64(256)
	required := atom
	if uniformAlign > required {
		required = uniformAlign
	}
	assert.Equal(t, uint64(256), alignUp(24, required))
}
