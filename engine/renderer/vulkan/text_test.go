package vulkan

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	"github.com/spaghettifunk/anima-gpu/engine/assets/loaders"
)

func TestGlyphVertices(t *testing.T) {
	quads := []loaders.GlyphQuad{{X0: 0, Y0: 0, S0: 0, T0: 0, X1: 50, Y1: 25, S1: 0.5, T1: 1}}
	dst := make([]byte, glyphQuadBytes)
	glyphVertices(dst, quads, 100, 50)

	read := func(vertex, component int) float32 {
		return stdmath.Float32frombits(binary.LittleEndian.Uint32(dst[vertex*glyphVertexBytes+4*component:]))
	}
	want := [4][4]float32{
		{-1, -1, 0, 0},
		{-1, 0, 0, 1},
		{0, -1, 0.5, 0},
		{0, 0, 0.5, 1},
	}
	for v, w := range want {
		for c := range w {
			if got := read(v, c); got != w[c] {
				t.Errorf("vertex %d component %d = %g, want %g", v, c, got, w[c])
			}
		}
	}
}

func TestQuadIndices(t *testing.T) {
	b := quadIndices(2)
	if len(b) != 2*6*2 {
		t.Fatalf("%d bytes", len(b))
	}
	want := []uint16{0, 1, 2, 2, 1, 3, 4, 5, 6, 6, 5, 7}
	for i, w := range want {
		if got := binary.LittleEndian.Uint16(b[2*i:]); got != w {
			t.Errorf("index %d = %d, want %d", i, got, w)
		}
	}
}

func TestGlyphLayout(t *testing.T) {
	if err := GlyphLayout.Validate(); err != nil {
		t.Fatal(err)
	}
	if GlyphLayout.Stride != glyphVertexBytes {
		t.Errorf("stride %d", GlyphLayout.Stride)
	}
	all := quadIndices(maxTextGlyphs)
	if last := binary.LittleEndian.Uint16(all[len(all)-2:]); last != 0xFFFF {
		t.Errorf("last index of the largest buffer is %d", last)
	}
}
