package mesh

import (
	"fmt"
	"math"

	"github.com/spaghettifunk/anima-gpu/engine/core"
)

// SphereRecipe describes a UV sphere centred on the origin with its poles on
// the Z axis. Ring 0 is the -Z pole.
type SphereRecipe struct {
	Output
	Radius               float32
	LatitudinalSegments  int
	LongitudinalSegments int
}

func (r *SphereRecipe) metadata() (Metadata, error) {
	if r.LatitudinalSegments < 2 || r.LongitudinalSegments < 3 {
		return Metadata{}, fmt.Errorf("sphere needs at least 2 latitudinal and 3 longitudinal segments, got %d and %d: %w",
			r.LatitudinalSegments, r.LongitudinalSegments, core.ErrInvalidArgument)
	}
	lat, lon := r.LatitudinalSegments, r.LongitudinalSegments
	return Metadata{
		Topology:    TopologyTriangleList,
		FrontFace:   r.FrontFace,
		VertexCount: (lat + 1) * lon,
		// one triangle per segment in each polar strip, two in every other strip
		IndexCount: lon * (1 + 1 + 2*(lat-2)) * 3,
	}, nil
}

func (r *SphereRecipe) generate(vertices []Vertex, indices []uint32) {
	lat, lon := r.LatitudinalSegments, r.LongitudinalSegments
	v := 0
	for ring := 0; ring <= lat; ring++ {
		phiLerp := float64(ring) / float64(lat)
		phi := phiLerp * math.Pi
		z := -float64(r.Radius) * math.Cos(phi)
		ringRadius := float64(r.Radius) * math.Sin(phi)
		normalZ := -math.Cos(phi)
		normalXY := math.Sin(phi)
		uOffset := 0.0
		if ring == 0 || ring == lat {
			uOffset = 1.0 / (2.0 * float64(lon))
		}
		for i := 0; i < lon; i++ {
			radialLerp := float64(i) / float64(lon)
			sinT, cosT := math.Sincos(2 * math.Pi * radialLerp)
			vertices[v] = Vertex{
				Position: [3]float32{float32(cosT * ringRadius), float32(sinT * ringRadius), float32(z)},
				Normal:   [3]float32{float32(cosT * normalXY), float32(sinT * normalXY), float32(normalZ)},
				Texcoord: [2]float32{float32(radialLerp + uOffset), float32(phiLerp)},
			}
			v++
		}
	}

	at := func(ring, i int) uint32 {
		return uint32(ring*lon + i%lon)
	}
	n := 0
	emit := func(a, b, c uint32) {
		indices[n], indices[n+1], indices[n+2] = a, b, c
		n += 3
	}
	for strip := 0; strip < lon; strip++ {
		emit(at(0, strip), at(1, strip+1), at(1, strip))
		for ring := 1; ring <= lat-2; ring++ {
			emit(at(ring, strip), at(ring, strip+1), at(ring+1, strip))
			emit(at(ring+1, strip), at(ring, strip+1), at(ring+1, strip+1))
		}
		ring := lat - 1
		emit(at(ring, strip), at(ring, strip+1), at(ring+1, strip))
	}
}
