package mesh

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
	emath "github.com/spaghettifunk/anima-gpu/engine/math"
)

// FileMagic starts every mesh file ("MESH" read as a little-endian uint32).
const FileMagic uint32 = 0x4853454D

// FileHeader is the fixed-size header of a mesh file. It is followed by
// VertexBufferCount binding descriptions, AttributeCount attribute
// descriptions, VertexCount vertices and IndexCount indices.
type FileHeader struct {
	Magic             uint32
	VertexBufferCount uint32
	AttributeCount    uint32
	BytesPerIndex     uint32
	VertexCount       uint32
	IndexCount        uint32
	Topology          uint32
	AABBMin           [3]float32
	AABBMax           [3]float32
}

// BindingDescription mirrors VkVertexInputBindingDescription.
type BindingDescription struct {
	Binding   uint32
	Stride    uint32
	InputRate uint32
}

// AttributeDescription mirrors VkVertexInputAttributeDescription.
type AttributeDescription struct {
	Location uint32
	Binding  uint32
	Format   uint32
	Offset   uint32
}

// WriteFile serialises m with a single interleaved vertex buffer. Indices are
// stored as 16-bit when every index fits, 32-bit otherwise.
func WriteFile(w io.Writer, m *Mesh) error {
	bytesPerIndex := uint32(2)
	for _, i := range m.Indices {
		if i > 0xFFFF {
			bytesPerIndex = 4
			break
		}
	}
	header := FileHeader{
		Magic:             FileMagic,
		VertexBufferCount: 1,
		AttributeCount:    uint32(len(m.Layout.Attributes)),
		BytesPerIndex:     bytesPerIndex,
		VertexCount:       uint32(m.VertexCount),
		IndexCount:        uint32(len(m.Indices)),
		Topology:          uint32(m.Topology),
		AABBMin:           [3]float32{m.Bounds.Min.X, m.Bounds.Min.Y, m.Bounds.Min.Z},
		AABBMax:           [3]float32{m.Bounds.Max.X, m.Bounds.Max.Y, m.Bounds.Max.Z},
	}
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, header)
	binary.Write(&buf, binary.LittleEndian, BindingDescription{Binding: 0, Stride: m.Layout.Stride})
	for _, a := range m.Layout.Attributes {
		binary.Write(&buf, binary.LittleEndian, AttributeDescription{Location: a.Location, Format: uint32(a.Format), Offset: a.Offset})
	}
	buf.Write(m.Vertices[:m.VertexCount*int(m.Layout.Stride)])
	for _, i := range m.Indices {
		if bytesPerIndex == 2 {
			binary.Write(&buf, binary.LittleEndian, uint16(i))
		} else {
			binary.Write(&buf, binary.LittleEndian, i)
		}
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write mesh file")
	}
	return nil
}

// ReadFile parses a mesh file. Only single-buffer files are supported.
func ReadFile(r io.Reader) (*Mesh, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "mesh header: %v", err)
	}
	if header.Magic != FileMagic {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "bad mesh magic 0x%08X", header.Magic)
	}
	if header.VertexBufferCount != 1 {
		return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "mesh has %d vertex buffers", header.VertexBufferCount)
	}
	if header.BytesPerIndex != 2 && header.BytesPerIndex != 4 {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "invalid index size %d", header.BytesPerIndex)
	}
	if header.AttributeCount > format.MaxVertexAttributes {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "mesh has %d attributes", header.AttributeCount)
	}
	switch Topology(header.Topology) {
	case TopologyTriangleList, TopologyLineList:
	default:
		return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "topology %d", header.Topology)
	}

	var binding BindingDescription
	if err := binary.Read(r, binary.LittleEndian, &binding); err != nil {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "binding description: %v", err)
	}
	m := &Mesh{
		Metadata: Metadata{
			Topology:    Topology(header.Topology),
			VertexCount: int(header.VertexCount),
			IndexCount:  int(header.IndexCount),
		},
		Layout: format.VertexLayout{Stride: binding.Stride},
		Bounds: emath.Extents3D{
			Min: emath.Vec3{X: header.AABBMin[0], Y: header.AABBMin[1], Z: header.AABBMin[2]},
			Max: emath.Vec3{X: header.AABBMax[0], Y: header.AABBMax[1], Z: header.AABBMax[2]},
		},
	}
	for i := uint32(0); i < header.AttributeCount; i++ {
		var a AttributeDescription
		if err := binary.Read(r, binary.LittleEndian, &a); err != nil {
			return nil, errors.WithMessagef(core.ErrFileCorrupt, "attribute %d: %v", i, err)
		}
		m.Layout.Attributes = append(m.Layout.Attributes, format.VertexAttribute{Location: a.Location, Offset: a.Offset, Format: format.Format(a.Format)})
	}
	if err := m.Layout.Validate(); err != nil {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "vertex layout: %v", err)
	}
	m.VertexBytes = m.VertexCount * int(m.Layout.Stride)

	m.Vertices = make([]byte, m.VertexBytes)
	if _, err := io.ReadFull(r, m.Vertices); err != nil {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "vertex data: %v", err)
	}
	raw := make([]byte, int(header.IndexCount)*int(header.BytesPerIndex))
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "index data: %v", err)
	}
	m.Indices = make([]uint32, header.IndexCount)
	for i := range m.Indices {
		if header.BytesPerIndex == 2 {
			m.Indices[i] = uint32(binary.LittleEndian.Uint16(raw[2*i:]))
		} else {
			m.Indices[i] = binary.LittleEndian.Uint32(raw[4*i:])
		}
		if m.Indices[i] >= header.VertexCount {
			return nil, errors.WithMessagef(core.ErrFileCorrupt, "index %d out of range", m.Indices[i])
		}
	}
	return m, nil
}
