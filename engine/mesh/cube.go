package mesh

import (
	emath "github.com/spaghettifunk/anima-gpu/engine/math"
)

type CubeRecipe struct {
	Output
	Min emath.Vec3
	Max emath.Vec3
}

// corner selectors into {min.x, min.y, min.z, max.x, max.y, max.z}, four
// corners per face in the order +X -X +Y -Y +Z -Z
var cubeFaceCorners = [6][4][3]int{
	{{3, 1, 5}, {3, 1, 2}, {3, 4, 5}, {3, 4, 2}},
	{{0, 1, 2}, {0, 1, 5}, {0, 4, 2}, {0, 4, 5}},
	{{0, 4, 5}, {3, 4, 5}, {0, 4, 2}, {3, 4, 2}},
	{{0, 1, 2}, {3, 1, 2}, {0, 1, 5}, {3, 1, 5}},
	{{0, 1, 5}, {3, 1, 5}, {0, 4, 5}, {3, 4, 5}},
	{{3, 1, 2}, {0, 1, 2}, {3, 4, 2}, {0, 4, 2}},
}

var cubeFaceNormals = [6][3]float32{
	{+1, 0, 0},
	{-1, 0, 0},
	{0, +1, 0},
	{0, -1, 0},
	{0, 0, +1},
	{0, 0, -1},
}

var cubeFaceUVs = [4][2]float32{{0, 1}, {1, 1}, {0, 0}, {1, 0}}

func (r *CubeRecipe) metadata() (Metadata, error) {
	return Metadata{
		Topology:    TopologyTriangleList,
		FrontFace:   r.FrontFace,
		VertexCount: 4 * 6,
		IndexCount:  3 * 2 * 6,
	}, nil
}

func (r *CubeRecipe) generate(vertices []Vertex, indices []uint32) {
	extents := [6]float32{r.Min.X, r.Min.Y, r.Min.Z, r.Max.X, r.Max.Y, r.Max.Z}
	o0, o1 := uint32(1), uint32(2)
	if r.FrontFace == FrontFaceCW {
		o0, o1 = 2, 1
	}
	for face := 0; face < 6; face++ {
		for c := 0; c < 4; c++ {
			sel := cubeFaceCorners[face][c]
			vertices[4*face+c] = Vertex{
				Position: [3]float32{extents[sel[0]], extents[sel[1]], extents[sel[2]]},
				Normal:   cubeFaceNormals[face],
				Texcoord: cubeFaceUVs[c],
			}
		}
		base := uint32(4 * face)
		copy(indices[6*face:], []uint32{base, base + o0, base + o1, base + o1, base + o0, base + 3})
	}
}
