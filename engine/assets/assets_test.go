package assets

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/anima-gpu/engine/mesh"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

var spirvHeader = []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}

func writeAssets(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "shaders"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "shaders", "cube.vert.spv"), spirvHeader, 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := mesh.Generate(&mesh.AxesRecipe{Length: 1})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := mesh.WriteFile(&buf, m); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "axes.mesh"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadIndexedAssets(t *testing.T) {
	am := NewAssetManager()
	defer am.Close()
	if err := am.Initialize(writeAssets(t), false); err != nil {
		t.Fatal(err)
	}
	if am.Count() != 2 {
		t.Fatalf("indexed %d assets", am.Count())
	}

	res, err := am.Load("shaders/cube.vert.spv", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Type != metadata.ResourceTypeShader || len(res.Data.([]uint32)) != 2 {
		t.Errorf("shader resource %+v", res)
	}

	res, err = am.Load("axes.mesh", nil)
	if err != nil {
		t.Fatal(err)
	}
	if m := res.Data.(*mesh.Mesh); m.Topology != mesh.TopologyLineList || m.VertexCount != 6 {
		t.Errorf("mesh %+v", m.Metadata)
	}
	if err := am.Unload(res); err != nil || res.Data != nil {
		t.Errorf("unload: %v", err)
	}

	if _, err := am.Load("notes.txt", nil); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("untracked file: %v", err)
	}
}

func TestWatchReportsChanges(t *testing.T) {
	dir := writeAssets(t)
	am := NewAssetManager()
	if err := am.Initialize(dir, true); err != nil {
		t.Fatal(err)
	}
	defer am.Close()

	if err := os.WriteFile(filepath.Join(dir, "shaders", "cube.frag.spv"), spirvHeader, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case name := <-am.Changes():
		if name != "shaders/cube.frag.spv" {
			t.Errorf("changed %q", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	if _, ok := am.Lookup("shaders/cube.frag.spv"); !ok {
		t.Errorf("new file not indexed")
	}
}

func TestDetermineAssetType(t *testing.T) {
	for path, want := range map[string]metadata.ResourceType{
		"a/b.DDS": metadata.ResourceTypeImage,
		"b.ktx":   metadata.ResourceTypeImage,
		"c.jpeg":  metadata.ResourceTypeImage,
		"d.spv":   metadata.ResourceTypeShader,
		"e.mesh":  metadata.ResourceTypeMesh,
		"g.fnt":   metadata.ResourceTypeBitmapFont,
		"f.toml":  metadata.ResourceTypeNone,
	} {
		if got := determineAssetType(path); got != want {
			t.Errorf("%s: %s, want %s", path, got, want)
		}
	}
}
