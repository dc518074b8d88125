package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestAccessForUsage(t *testing.T) {
	tests := []struct {
		usage vk.BufferUsageFlagBits
		want  vk.AccessFlagBits
	}{
		{vk.BufferUsageVertexBufferBit, vk.AccessVertexAttributeReadBit},
		{vk.BufferUsageIndexBufferBit, vk.AccessIndexReadBit},
		{vk.BufferUsageUniformBufferBit | vk.BufferUsageTransferDstBit, vk.AccessUniformReadBit},
		{vk.BufferUsageTransferSrcBit, vk.AccessMemoryReadBit},
	}
	for _, tt := range tests {
		if got := accessForUsage(vk.BufferUsageFlags(tt.usage)); got != vk.AccessFlags(tt.want) {
			t.Errorf("usage 0x%x: access 0x%x, want 0x%x", tt.usage, got, tt.want)
		}
	}
}
