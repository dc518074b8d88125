package format

import (
	"fmt"

	"github.com/spaghettifunk/anima-gpu/engine/core"
)

const MaxVertexAttributes = 16

// VertexAttribute places one attribute inside an interleaved vertex.
type VertexAttribute struct {
	Location uint32
	Offset   uint32
	Format   Format
}

// VertexLayout is an ordered list of attributes sharing one stride.
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// NewVertexLayout builds a tightly packed layout: the stride ends at the
// attribute with the highest offset.
func NewVertexLayout(attributes ...VertexAttribute) VertexLayout {
	layout := VertexLayout{Attributes: attributes}
	for _, a := range attributes {
		if end := a.Offset + a.Format.BytesPerBlock(); end > layout.Stride {
			layout.Stride = end
		}
	}
	return layout
}

// Validate checks the attribute count, id uniqueness and that every attribute
// fits inside the stride.
func (l VertexLayout) Validate() error {
	if len(l.Attributes) > MaxVertexAttributes {
		return fmt.Errorf("vertex layout has %d attributes, max %d: %w", len(l.Attributes), MaxVertexAttributes, core.ErrInvalidArgument)
	}
	seen := make(map[uint32]bool, len(l.Attributes))
	for _, a := range l.Attributes {
		if seen[a.Location] {
			return fmt.Errorf("duplicate vertex attribute location %d: %w", a.Location, core.ErrInvalidArgument)
		}
		seen[a.Location] = true
		info, ok := Info(a.Format)
		if !ok {
			return fmt.Errorf("vertex attribute %d has unknown format %d: %w", a.Location, uint32(a.Format), core.ErrInvalidArgument)
		}
		if a.Offset+info.BytesPerBlock > l.Stride {
			return fmt.Errorf("vertex attribute %d (%s at %d) overruns stride %d: %w", a.Location, a.Format, a.Offset, l.Stride, core.ErrInvalidArgument)
		}
	}
	return nil
}

// Attribute returns the attribute with the given location.
func (l VertexLayout) Attribute(location uint32) (VertexAttribute, bool) {
	for _, a := range l.Attributes {
		if a.Location == location {
			return a, true
		}
	}
	return VertexAttribute{}, false
}

// extent is the number of bytes a single vertex actually touches.
func (l VertexLayout) extent() uint32 {
	var end uint32
	for _, a := range l.Attributes {
		if e := a.Offset + a.Format.BytesPerBlock(); e > end {
			end = e
		}
	}
	return end
}
