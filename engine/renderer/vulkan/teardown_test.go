package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeReleasesInReverseOrder(t *testing.T) {
	var order []string
	s := NewScope("test")
	s.Push(func() { order = append(order, "instance") })
	s.Push(func() { order = append(order, "device") })
	s.Push(nil)
	s.Push(func() { order = append(order, "swapchain") })

	assert.Equal(t, 3, s.Len())
	s.Release()
	assert.Equal(t, []string{"swapchain", "device", "instance"}, order)
	assert.Zero(t, s.Len())

	s.Release()
	assert.Len(t, order, 3)
}

func TestScopeReuseAfterRelease(t *testing.T) {
	calls := 0
	s := NewScope("reuse")
	s.Push(func() { calls++ })
	s.Release()
	s.Push(func() { calls++ })
	s.Release()
	assert.Equal(t, 2, calls)
}
