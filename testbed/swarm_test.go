package testbed

import (
	"encoding/binary"
	"errors"
	stdmath "math"
	"testing"

	"github.com/spaghettifunk/anima-gpu/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/math"
)

func TestObjectsFitUniformBlock(t *testing.T) {
	if objectCount > maxObjects {
		t.Fatalf("%d objects do not fit %d slots", objectCount, maxObjects)
	}
	if sceneUniformBytes > 16384 {
		t.Errorf("scene block %d bytes exceeds the guaranteed uniform range", sceneUniformBytes)
	}
}

func TestPackScene(t *testing.T) {
	dst := make([]byte, sceneUniformBytes)
	viewProj := math.NewMat4Translation(math.NewVec3(1, 2, 3))
	models := []math.Mat4{math.NewMat4Identity(), math.NewMat4Scale(math.NewVec3(2, 2, 2))}
	if err := packScene(dst, viewProj, models); err != nil {
		t.Fatal(err)
	}
	read := func(off int) float32 {
		return stdmath.Float32frombits(binary.LittleEndian.Uint32(dst[off:]))
	}
	if got := read(4 * 13); got != 2 {
		t.Errorf("viewProj translation y = %g", got)
	}
	if got := read(mat4Bytes + 4*15); got != 1 {
		t.Errorf("model 0 w = %g", got)
	}
	if got := read(2*mat4Bytes + 0); got != 2 {
		t.Errorf("model 1 scale = %g", got)
	}
}

func TestPackSceneRejects(t *testing.T) {
	if err := packScene(make([]byte, mat4Bytes), math.NewMat4Identity(), []math.Mat4{{}}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("short region: %v", err)
	}
	many := make([]math.Mat4, maxObjects+1)
	if err := packScene(make([]byte, mat4Bytes*(2+maxObjects)), math.NewMat4Identity(), many); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("too many objects: %v", err)
	}
}

func TestPackTether(t *testing.T) {
	dst := make([]byte, tetherVertexBytes)
	if err := packTether(dst, math.NewVec3(1, 2, 3), math.NewVec3(4, 5, 6), math.NewVec3(1, 1, 0)); err != nil {
		t.Fatal(err)
	}
	read := func(off int) float32 {
		return stdmath.Float32frombits(binary.LittleEndian.Uint32(dst[off:]))
	}
	if read(0) != 1 || read(32) != 4 || read(32+8) != 6 {
		t.Errorf("positions %g %g %g", read(0), read(32), read(40))
	}
	if read(12) != 1 || read(20) != 0 || read(32+24) != 1 {
		t.Errorf("colour or uv %g %g %g", read(12), read(20), read(56))
	}
	if err := packTether(dst[:16], math.Vec3{}, math.Vec3{}, math.Vec3{}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("short region: %v", err)
	}
}

func TestSwarmTransformsAreDistinct(t *testing.T) {
	seen := map[[3]float32]bool{}
	for i := 0; i < swarmCount; i++ {
		m := swarmTransform(i, 0)
		// bob is bounded, so the grid cell stays unique
		key := [3]float32{m.Data[12], float32(i / (swarmSide * swarmSide)), m.Data[14]}
		if seen[key] {
			t.Fatalf("cube %d overlaps another cube", i)
		}
		seen[key] = true
	}
}

func TestOverlayText(t *testing.T) {
	if got, want := overlayText(59.6, 1.234, 0.5), "FPS 60  CPU 1.23 MS\nGPU 0.500 MS"; got != want {
		t.Errorf("overlay %q, want %q", got, want)
	}
	if got := overlayText(0, 0, -1); got != "FPS 0  CPU 0.00 MS\nGPU 0.000 MS" {
		t.Errorf("unknown GPU time shown as %q", got)
	}
}

func TestCheckerboard(t *testing.T) {
	img := checkerboard(8, 2)
	pixels, err := img.SubresourceData(loaders.Subresource{})
	if err != nil {
		t.Fatal(err)
	}
	if len(pixels) != 8*8*4 {
		t.Fatalf("%d bytes", len(pixels))
	}
	if pixels[0] != 220 || pixels[4*4] != 60 || pixels[4*(4*8+4)] != 220 {
		t.Errorf("unexpected pattern %v %v %v", pixels[0], pixels[16], pixels[4*(4*8+4)])
	}
}
