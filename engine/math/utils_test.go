package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(3), Clamp(uint32(1), 3, 8))
	assert.Equal(t, uint32(8), Clamp(uint32(9), 3, 8))
	assert.Equal(t, uint32(5), Clamp(uint32(5), 3, 8))
	assert.Equal(t, float32(-1), Clamp(float32(-2.5), -1, 1))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(256), AlignUp(uint64(1), 256))
	assert.Equal(t, uint64(256), AlignUp(uint64(256), 256))
	assert.Equal(t, uint64(512), AlignUp(uint64(257), 256))
	assert.Equal(t, uint32(7), AlignUp(uint32(7), 0))
}
