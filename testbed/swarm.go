package testbed

import (
	"encoding/binary"
	"fmt"
	stdmath "math"

	"github.com/spaghettifunk/anima-gpu/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
	"github.com/spaghettifunk/anima-gpu/engine/math"
)

// Must match MAX_OBJECTS in shaders/swarm.vert.
const maxObjects = 200

const (
	swarmSide   = 8
	swarmLayers = 3
	swarmCount  = swarmSide * swarmSide * swarmLayers

	sphereObject   = swarmCount
	cylinderObject = swarmCount + 1
	axesObject     = swarmCount + 2
	objectCount    = swarmCount + 3
)

const (
	// two canonical vertices: position, normal (used as colour), uv
	tetherVertexBytes = 2 * 32

	mat4Bytes = 64
	// std140 block: viewProj followed by the model array
	sceneUniformBytes = mat4Bytes * (1 + maxObjects)
)

// swarmTransform places cube i on a grid and spins it at a speed derived
// from its index.
func swarmTransform(i int, t float64) math.Mat4 {
	x := i % swarmSide
	z := (i / swarmSide) % swarmSide
	layer := i / (swarmSide * swarmSide)

	bob := 0.25 * stdmath.Sin(t*1.5+float64(i)*0.37)
	position := math.NewVec3(
		float32(x-swarmSide/2)*2+1,
		float32(layer)*2-2+float32(bob),
		float32(z-swarmSide/2)*2+1,
	)
	speed := 0.5 + 0.1*float64(i%5)
	rotation := math.NewMat4AxisAngle(math.NewVec3(1, 1, 0), float32(t*speed))
	scale := math.NewMat4Scale(math.NewVec3(0.4, 0.4, 0.4))
	return scale.Mul(rotation).Mul(math.NewMat4Translation(position))
}

// packScene writes the scene uniform block into dst.
func packScene(dst []byte, viewProj math.Mat4, models []math.Mat4) error {
	if len(models) > maxObjects {
		return fmt.Errorf("%d objects, max %d: %w", len(models), maxObjects, core.ErrInvalidArgument)
	}
	if need := mat4Bytes * (1 + len(models)); len(dst) < need {
		return fmt.Errorf("uniform region of %d bytes, need %d: %w", len(dst), need, core.ErrInvalidArgument)
	}
	putMat4(dst, viewProj)
	for i, m := range models {
		putMat4(dst[mat4Bytes*(1+i):], m)
	}
	return nil
}

func putMat4(dst []byte, m math.Mat4) {
	for i, v := range m.Data {
		binary.LittleEndian.PutUint32(dst[4*i:], stdmath.Float32bits(v))
	}
}

// packTether writes the line from a to b into dst, coloured by color.
func packTether(dst []byte, a, b, color math.Vec3) error {
	if len(dst) < tetherVertexBytes {
		return fmt.Errorf("tether region of %d bytes, need %d: %w", len(dst), tetherVertexBytes, core.ErrInvalidArgument)
	}
	for i, p := range []math.Vec3{a, b} {
		v := dst[32*i:]
		for j, f := range []float32{p.X, p.Y, p.Z, color.X, color.Y, color.Z, float32(i), 0} {
			binary.LittleEndian.PutUint32(v[4*j:], stdmath.Float32bits(f))
		}
	}
	return nil
}

// overlayText formats the timings shown on screen. The overlay font only
// carries upper case letters and digits.
func overlayText(fps, cpuMS, gpuMS float64) string {
	return fmt.Sprintf("FPS %.0f  CPU %.2f MS\nGPU %.3f MS", fps, cpuMS, max(gpuMS, 0))
}

// checkerboard is the texture used when no image asset is found.
func checkerboard(size, cells uint32) *loaders.Image {
	pixels := make([]byte, 4*size*size)
	cell := max(size/cells, 1)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			c := byte(60)
			if (x/cell+y/cell)%2 == 0 {
				c = 220
			}
			p := pixels[4*(y*size+x):]
			p[0], p[1], p[2], p[3] = c, c, c, 255
		}
	}
	return &loaders.Image{
		Width:       size,
		Height:      size,
		Depth:       1,
		MipLevels:   1,
		ArrayLayers: 1,
		RowPitch:    4 * size,
		DepthPitch:  4 * size * size,
		Format:      format.FormatR8G8B8A8Unorm,
		Data:        pixels,
	}
}
