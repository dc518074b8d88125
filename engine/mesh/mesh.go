// Package mesh generates indexed procedural meshes (cube, sphere, cylinder,
// axes) in any vertex layout the format converter supports, and reads and
// writes the binary mesh file format.
package mesh

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
	emath "github.com/spaghettifunk/anima-gpu/engine/math"
)

type FrontFace uint32

const (
	FrontFaceCCW FrontFace = 0
	FrontFaceCW  FrontFace = 1
)

// Topology values match VkPrimitiveTopology.
type Topology uint32

const (
	TopologyLineList     Topology = 1
	TopologyTriangleList Topology = 3
)

// Attribute locations of the generated vertex data.
const (
	LocationPosition uint32 = 0
	LocationNormal   uint32 = 1
	LocationTexcoord uint32 = 2
)

// Vertex is the form every builder generates before conversion.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	Texcoord [2]float32
}

const vertexSize = 32

// CanonicalLayout describes Vertex as interleaved 32-bit floats.
var CanonicalLayout = format.NewVertexLayout(
	format.VertexAttribute{Location: LocationPosition, Offset: 0, Format: format.FormatR32G32B32Sfloat},
	format.VertexAttribute{Location: LocationNormal, Offset: 12, Format: format.FormatR32G32B32Sfloat},
	format.VertexAttribute{Location: LocationTexcoord, Offset: 24, Format: format.FormatR32G32Sfloat},
)

// Metadata describes what a recipe produces.
type Metadata struct {
	Topology    Topology
	FrontFace   FrontFace
	VertexCount int
	IndexCount  int
	// VertexBytes is the size of the vertex buffer in the recipe's layout.
	VertexBytes int
}

// Recipe is implemented by every procedural mesh description.
type Recipe interface {
	// metadata validates the recipe and returns the output sizes.
	metadata() (Metadata, error)
	// generate fills vertices and indices in canonical form with
	// counter-clockwise triangles.
	generate(vertices []Vertex, indices []uint32)
	outputLayout() format.VertexLayout
}

// Output is embedded by recipes to select the vertex layout and winding.
type Output struct {
	// Layout of the produced vertex buffer. Attributes are matched to the
	// generated data by location. The zero value selects CanonicalLayout.
	Layout    format.VertexLayout
	FrontFace FrontFace
}

func (o Output) outputLayout() format.VertexLayout {
	if len(o.Layout.Attributes) == 0 {
		return CanonicalLayout
	}
	return o.Layout
}

// Mesh is a generated or loaded mesh held in host memory.
type Mesh struct {
	Metadata
	Layout   format.VertexLayout
	Vertices []byte
	Indices  []uint32
	Bounds   emath.Extents3D
}

// Build runs a recipe with the two-call convention: with both buffers nil it
// only reports the sizes, with both buffers large enough it fills them.
// Supplying exactly one buffer, or buffers that are too small, fails.
func Build(r Recipe, vertices []byte, indices []uint32) (Metadata, error) {
	if (vertices == nil) != (indices == nil) {
		return Metadata{}, fmt.Errorf("vertex and index buffers must both be nil or both be set: %w", core.ErrInvalidArgument)
	}
	md, err := r.metadata()
	if err != nil {
		return Metadata{}, err
	}
	layout := r.outputLayout()
	if err := layout.Validate(); err != nil {
		return Metadata{}, err
	}
	md.VertexBytes = md.VertexCount * int(layout.Stride)
	if vertices == nil {
		return md, nil
	}
	if len(vertices) < md.VertexBytes || len(indices) < md.IndexCount {
		return md, fmt.Errorf("mesh needs %d vertex bytes and %d indices, got %d and %d: %w",
			md.VertexBytes, md.IndexCount, len(vertices), len(indices), core.ErrInvalidArgument)
	}
	srcLayout, err := sourceLayoutFor(layout)
	if err != nil {
		return md, err
	}

	canonical := make([]Vertex, md.VertexCount)
	r.generate(canonical, indices[:md.IndexCount])
	if md.Topology == TopologyTriangleList && md.FrontFace == FrontFaceCW {
		if _, isCube := r.(*CubeRecipe); !isCube {
			flipWinding(indices[:md.IndexCount])
		}
	}
	if err := format.ConvertVertexBuffer(packVertices(canonical), srcLayout, vertices, layout, md.VertexCount); err != nil {
		return md, err
	}
	return md, nil
}

// Generate allocates the buffers and runs r.
func Generate(r Recipe) (*Mesh, error) {
	md, err := Build(r, nil, nil)
	if err != nil {
		return nil, err
	}
	m := &Mesh{
		Layout:   r.outputLayout(),
		Vertices: make([]byte, md.VertexBytes),
		Indices:  make([]uint32, md.IndexCount),
	}
	if m.Metadata, err = Build(r, m.Vertices, m.Indices); err != nil {
		return nil, err
	}
	if m.Bounds, err = Bounds(m.Vertices, m.Layout, m.VertexCount); err != nil {
		return nil, err
	}
	return m, nil
}

// Bounds computes the axis-aligned box around the position attribute.
func Bounds(vertices []byte, layout format.VertexLayout, count int) (emath.Extents3D, error) {
	pos, ok := layout.Attribute(LocationPosition)
	if !ok {
		return emath.Extents3D{}, fmt.Errorf("layout has no position attribute: %w", core.ErrInvalidArgument)
	}
	inf := float32(math.Inf(1))
	box := emath.Extents3D{Min: emath.Vec3{X: inf, Y: inf, Z: inf}, Max: emath.Vec3{X: -inf, Y: -inf, Z: -inf}}
	for i := 0; i < count; i++ {
		v, err := format.DecodeAttribute(vertices[i*int(layout.Stride)+int(pos.Offset):], pos.Format)
		if err != nil {
			return emath.Extents3D{}, err
		}
		p := emath.Vec3{X: v[0], Y: v[1], Z: v[2]}
		box.Min = box.Min.Min(p)
		box.Max = box.Max.Max(p)
	}
	if count == 0 {
		return emath.Extents3D{}, nil
	}
	return box, nil
}

// sourceLayoutFor orders the canonical attributes to line up with dst by location.
func sourceLayoutFor(dst format.VertexLayout) (format.VertexLayout, error) {
	src := format.VertexLayout{Stride: vertexSize}
	for _, a := range dst.Attributes {
		ca, ok := CanonicalLayout.Attribute(a.Location)
		if !ok {
			return src, fmt.Errorf("no generated data for attribute location %d: %w", a.Location, core.ErrInvalidArgument)
		}
		src.Attributes = append(src.Attributes, ca)
	}
	return src, nil
}

func flipWinding(indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		indices[i+1], indices[i+2] = indices[i+2], indices[i+1]
	}
}

func packVertices(vs []Vertex) []byte {
	out := make([]byte, len(vs)*vertexSize)
	for i, v := range vs {
		b := out[i*vertexSize:]
		floats := [8]float32{v.Position[0], v.Position[1], v.Position[2], v.Normal[0], v.Normal[1], v.Normal[2], v.Texcoord[0], v.Texcoord[1]}
		for j, f := range floats {
			binary.LittleEndian.PutUint32(b[4*j:], math.Float32bits(f))
		}
	}
	return out
}
