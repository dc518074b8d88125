package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestMipLevelCount(t *testing.T) {
	tests := []struct {
		w, h, d uint32
		want    uint32
	}{
		{256, 256, 1, 9},
		{128, 128, 1, 8},
		{1, 1, 1, 1},
		{0, 0, 0, 1},
		{300, 20, 1, 9},
		{1, 1, 64, 7},
	}
	for _, tt := range tests {
		if got := MipLevelCount(tt.w, tt.h, tt.d); got != tt.want {
			t.Errorf("MipLevelCount(%d, %d, %d) = %d, want %d", tt.w, tt.h, tt.d, got, tt.want)
		}
	}
}

func TestBlitRegion(t *testing.T) {
	base := vk.Extent3D{Width: 256, Height: 64, Depth: 1}
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)

	r := blitRegion(base, 1, aspect, 6)
	if r.SrcSubresource.MipLevel != 0 || r.DstSubresource.MipLevel != 1 {
		t.Fatalf("levels %d -> %d", r.SrcSubresource.MipLevel, r.DstSubresource.MipLevel)
	}
	if r.SrcOffsets[1] != (vk.Offset3D{X: 256, Y: 64, Z: 1}) || r.DstOffsets[1] != (vk.Offset3D{X: 128, Y: 32, Z: 1}) {
		t.Errorf("got %v -> %v", r.SrcOffsets[1], r.DstOffsets[1])
	}
	if r.DstSubresource.LayerCount != 6 {
		t.Errorf("layer count %d", r.DstSubresource.LayerCount)
	}

	// height bottoms out before width
	r = blitRegion(base, 7, aspect, 1)
	if r.SrcOffsets[1] != (vk.Offset3D{X: 4, Y: 1, Z: 1}) || r.DstOffsets[1] != (vk.Offset3D{X: 2, Y: 1, Z: 1}) {
		t.Errorf("got %v -> %v", r.SrcOffsets[1], r.DstOffsets[1])
	}
	last := MipLevelCount(256, 256, 1) - 1
	if got := mipExtent(vk.Extent3D{Width: 256, Height: 256, Depth: 1}, last); got.Width != 1 || got.Height != 1 {
		t.Errorf("mip %d is %dx%d", last, got.Width, got.Height)
	}
}

func TestCopyRows(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6}
	dst := make([]byte, 32)
	if err := copyRows(dst, 4, 8, 0, src, 2, 3, 1); err != nil {
		t.Fatal(err)
	}
	want := map[int]byte{4: 1, 5: 2, 12: 3, 13: 4, 20: 5, 21: 6}
	for i, b := range dst {
		if b != want[i] {
			t.Fatalf("dst[%d] = %d, want %d", i, b, want[i])
		}
	}

	if err := copyRows(dst, 0, 8, 0, src[:4], 2, 3, 1); err == nil {
		t.Error("short source accepted")
	}
	if err := copyRows(dst[:10], 0, 8, 0, src, 2, 3, 1); err == nil {
		t.Error("rows past the mapped range accepted")
	}
}

func TestImageViewType(t *testing.T) {
	cube := vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	tests := []struct {
		name   string
		ci     vk.ImageCreateInfo
		want   vk.ImageViewType
		aspect vk.ImageAspectFlags
	}{
		{"2d", vk.ImageCreateInfo{ImageType: vk.ImageType2d, ArrayLayers: 1, Format: vk.FormatR8g8b8a8Unorm}, vk.ImageViewType2d, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
		{"array", vk.ImageCreateInfo{ImageType: vk.ImageType2d, ArrayLayers: 4}, vk.ImageViewType2dArray, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
		{"cube", vk.ImageCreateInfo{ImageType: vk.ImageType2d, ArrayLayers: 6, Flags: cube}, vk.ImageViewTypeCube, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
		{"cube array", vk.ImageCreateInfo{ImageType: vk.ImageType2d, ArrayLayers: 12, Flags: cube}, vk.ImageViewTypeCubeArray, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
		{"6 layers without flag", vk.ImageCreateInfo{ImageType: vk.ImageType2d, ArrayLayers: 6}, vk.ImageViewType2dArray, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
		{"3d", vk.ImageCreateInfo{ImageType: vk.ImageType3d, ArrayLayers: 1}, vk.ImageViewType3d, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
		{"depth", vk.ImageCreateInfo{ImageType: vk.ImageType2d, ArrayLayers: 1, Format: vk.FormatD32Sfloat}, vk.ImageViewType2d, vk.ImageAspectFlags(vk.ImageAspectDepthBit)},
		{"depth stencil", vk.ImageCreateInfo{ImageType: vk.ImageType2d, ArrayLayers: 1, Format: vk.FormatD24UnormS8Uint}, vk.ImageViewType2d, vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ImageViewCreateInfo(nil, &tt.ci)
			if info.ViewType != tt.want {
				t.Errorf("view type %d, want %d", info.ViewType, tt.want)
			}
			if info.SubresourceRange.AspectMask != tt.aspect {
				t.Errorf("aspect 0x%x, want 0x%x", info.SubresourceRange.AspectMask, tt.aspect)
			}
		})
	}
}

func TestDescriptorPoolSizes(t *testing.T) {
	sizes := DescriptorPoolSizes(map[vk.DescriptorType]uint32{
		vk.DescriptorTypeUniformBufferDynamic: 2,
		vk.DescriptorTypeCombinedImageSampler: 3,
		vk.DescriptorTypeStorageBuffer:        0,
	})
	if len(sizes) != 2 {
		t.Fatalf("got %d sizes", len(sizes))
	}
	if sizes[0].Type != vk.DescriptorTypeCombinedImageSampler || sizes[0].DescriptorCount != 3 {
		t.Errorf("first size %+v", sizes[0])
	}
	if sizes[1].Type != vk.DescriptorTypeUniformBufferDynamic || sizes[1].DescriptorCount != 2 {
		t.Errorf("second size %+v", sizes[1])
	}
}
