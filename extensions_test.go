package spritevk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseExtensionsHasRequired(t *testing.T) {
	base := &BaseExtensions{
		required: []string{"VK_KHR_surface", "VK_KHR_swapchain"},
		actual:   []string{"VK_KHR_surface"},
	}

	ok, missing := base.HasRequired()
	assert.False(t, ok)
	assert.Equal(t, []string{"VK_KHR_swapchain"}, missing)

	base.actual = append(base.actual, "VK_KHR_swapchain")
	ok, missing = base.HasRequired()
	assert.True(t, ok)
	assert.Empty(t, missing)
}

func TestBaseExtensionsGetExtensionsKeepsRequiredFiltersWanted(t *testing.T) {
	base := &BaseExtensions{
		wanted:   []string{"VK_EXT_debug_report", "VK_KHR_portability_subset"},
		required: []string{"VK_KHR_surface"},
		actual:   []string{"VK_KHR_surface", "VK_EXT_debug_report"},
	}

	// required always included; wanted only when the platform has it
	assert.Equal(t, []string{"VK_KHR_surface", "VK_EXT_debug_report"}, base.GetExtensions())
}

func TestSafeString(t *testing.T) {
	assert.Equal(t, "main\x00", safeString("main"))
	assert.Equal(t, "main\x00", safeString("main\x00"))
	assert.Equal(t, "\x00", safeString(""))
}
