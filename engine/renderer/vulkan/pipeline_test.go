package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
	"github.com/spaghettifunk/anima-gpu/engine/mesh"
)

func TestMeshFormatCanonical(t *testing.T) {
	mf, err := MeshFormat(mesh.CanonicalLayout, mesh.TopologyTriangleList)
	if err != nil {
		t.Fatal(err)
	}
	if len(mf.Bindings) != 1 || mf.Bindings[0].Stride != 32 {
		t.Fatalf("bindings %+v", mf.Bindings)
	}
	if mf.Topology != vk.PrimitiveTopologyTriangleList {
		t.Errorf("topology %d", mf.Topology)
	}
	want := []vk.VertexInputAttributeDescription{
		{Location: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Format: vk.FormatR32g32Sfloat, Offset: 24},
	}
	if len(mf.Attributes) != len(want) {
		t.Fatalf("%d attributes, want %d", len(mf.Attributes), len(want))
	}
	for i, a := range mf.Attributes {
		if a != want[i] {
			t.Errorf("attribute %d: %+v, want %+v", i, a, want[i])
		}
	}
}

func TestMeshFormatLines(t *testing.T) {
	mf, err := MeshFormat(mesh.CanonicalLayout, mesh.TopologyLineList)
	if err != nil {
		t.Fatal(err)
	}
	if mf.Topology != vk.PrimitiveTopologyLineList {
		t.Errorf("topology %d", mf.Topology)
	}
}

func TestMeshFormatRejectsInvalidLayout(t *testing.T) {
	bad := format.VertexLayout{
		Stride: 4,
		Attributes: []format.VertexAttribute{
			{Location: 0, Offset: 0, Format: format.FormatR32G32B32Sfloat},
		},
	}
	if _, err := MeshFormat(bad, mesh.TopologyTriangleList); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("got %v, want ErrInvalidArgument", err)
	}
}
