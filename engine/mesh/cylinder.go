package mesh

import (
	"fmt"
	"math"

	"github.com/spaghettifunk/anima-gpu/engine/core"
)

// CylinderRecipe describes a capped cylinder along +Z from z=0 to z=Length.
// Radius0 is the radius at z=0 and Radius1 at z=Length; setting either to
// zero produces a cone.
type CylinderRecipe struct {
	Output
	Length         float32
	Radius0        float32
	Radius1        float32
	AxialSegments  int
	RadialSegments int
}

func (r *CylinderRecipe) metadata() (Metadata, error) {
	if r.RadialSegments < 3 || r.AxialSegments < 1 {
		return Metadata{}, fmt.Errorf("cylinder needs at least 3 radial and 1 axial segments, got %d and %d: %w",
			r.RadialSegments, r.AxialSegments, core.ErrInvalidArgument)
	}
	radial, axial := r.RadialSegments, r.AxialSegments
	return Metadata{
		Topology:  TopologyTriangleList,
		FrontFace: r.FrontFace,
		// axial+1 wall rings, two cap rings and two cap centres
		VertexCount: 2 + radial*(axial+1+2),
		IndexCount:  3 * (2*radial + 2*radial*axial),
	}, nil
}

func (r *CylinderRecipe) generate(vertices []Vertex, indices []uint32) {
	radial, axial := r.RadialSegments, r.AxialSegments
	length := float64(r.Length)
	r0, r1 := float64(r.Radius0), float64(r.Radius1)

	// wall normals lean along the axis to follow the taper
	dRadius := r0 - r1
	normalZ, normalXY := 0.0, 1.0
	if dRadius != 0 {
		inv := 1.0 / math.Sqrt(dRadius*dRadius+length*length)
		normalZ = math.Abs(dRadius) * inv
		if dRadius < 0 {
			normalZ = -normalZ
		}
		normalXY = length * inv
	}

	v := 0
	ringAt := func(axialLerp float64, nx, nz float64, flat bool) {
		z := length * axialLerp
		ringRadius := r0 + axialLerp*(r1-r0)
		for i := 0; i < radial; i++ {
			radialLerp := float64(i) / float64(radial)
			sinT, cosT := math.Sincos(2 * math.Pi * radialLerp)
			normal := [3]float32{float32(cosT * nx), float32(sinT * nx), float32(nz)}
			if flat {
				normal = [3]float32{0, 0, float32(nz)}
			}
			vertices[v] = Vertex{
				Position: [3]float32{float32(cosT * ringRadius), float32(sinT * ringRadius), float32(z)},
				Normal:   normal,
				Texcoord: [2]float32{float32(radialLerp), float32(axialLerp)},
			}
			v++
		}
	}
	for ring := 0; ring <= axial; ring++ {
		ringAt(float64(ring)/float64(axial), normalXY, normalZ, false)
	}

	capStart0 := uint32(v)
	ringAt(0, 0, -1, true)
	capCenter0 := uint32(v)
	vertices[v] = Vertex{Normal: [3]float32{0, 0, -1}}
	v++

	capStart1 := uint32(v)
	ringAt(1, 0, 1, true)
	capCenter1 := uint32(v)
	vertices[v] = Vertex{Position: [3]float32{0, 0, r.Length}, Normal: [3]float32{0, 0, 1}}

	n := 0
	emit := func(a, b, c uint32) {
		indices[n], indices[n+1], indices[n+2] = a, b, c
		n += 3
	}
	at := func(ring, i int) uint32 {
		return uint32(ring*radial + i%radial)
	}
	for ring := 0; ring < axial; ring++ {
		for i := 0; i < radial; i++ {
			emit(at(ring, i), at(ring, i+1), at(ring+1, i))
			emit(at(ring+1, i), at(ring, i+1), at(ring+1, i+1))
		}
	}
	for i := 0; i < radial; i++ {
		emit(capStart0+uint32(i), capCenter0, capStart0+uint32((i+1)%radial))
	}
	for i := 0; i < radial; i++ {
		emit(capStart1+uint32(i), capStart1+uint32((i+1)%radial), capCenter1)
	}
}
