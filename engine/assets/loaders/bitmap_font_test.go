package loaders

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

const testFontHeader = `info face="Test Mono" size=16 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=16 base=12 scaleW=8 scaleH=8 pages=%d packed=0 alphaChnl=0 redChnl=4 greenChnl=4 blueChnl=4
`

const testFontChars = `chars count=3
char id=32   x=0     y=0     width=0     height=0     xoffset=0     yoffset=0     xadvance=3     page=0  chnl=15
char id=65   x=0     y=0     width=4     height=8     xoffset=0     yoffset=1     xadvance=5     page=0  chnl=15
char id=66   x=4     y=0     width=4     height=8     xoffset=0     yoffset=1     xadvance=5     page=0  chnl=15
kernings count=1
kerning first=65  second=66  amount=-1
`

// writeTestFont writes a font descriptor with the given page files into
// dir, each page an 8x8 image.
func writeTestFont(t *testing.T, dir string, pages ...string) string {
	t.Helper()
	var desc strings.Builder
	fmt.Fprintf(&desc, testFontHeader, len(pages))
	for i, page := range pages {
		fmt.Fprintf(&desc, "page id=%d file=\"%s\"\n", i, page)

		img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.Set(x, y, color.NRGBA{255, 255, 255, uint8(x * 32)})
			}
		}
		f, err := os.Create(filepath.Join(dir, page))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	desc.WriteString(testFontChars)
	path := filepath.Join(dir, "test.fnt")
	if err := os.WriteFile(path, []byte(desc.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadBitmapFont(t *testing.T) {
	font, err := LoadBitmapFont(writeTestFont(t, t.TempDir(), "test.png"))
	if err != nil {
		t.Fatal(err)
	}
	if font.Face != "Test Mono" || font.Size != 16 || font.LineHeight != 16 || font.Baseline != 12 {
		t.Errorf("font %+v", font)
	}
	if len(font.Glyphs) != 3 {
		t.Fatalf("%d glyphs", len(font.Glyphs))
	}
	if g := font.Glyphs['B']; g.X != 4 || g.Width != 4 || g.XAdvance != 5 || g.YOffset != 1 {
		t.Errorf("glyph B %+v", g)
	}
	if k := font.Kerning('A', 'B'); k != -1 {
		t.Errorf("kerning A B = %d", k)
	}
	if k := font.Kerning('B', 'A'); k != 0 {
		t.Errorf("kerning B A = %d", k)
	}
	if font.Atlas == nil || font.Atlas.Width != 8 || font.Atlas.Format != format.FormatR8G8B8A8Unorm {
		t.Fatalf("atlas %+v", font.Atlas)
	}
}

func TestBitmapFontQuads(t *testing.T) {
	font, err := LoadBitmapFont(writeTestFont(t, t.TempDir(), "test.png"))
	if err != nil {
		t.Fatal(err)
	}
	// the space and the unknown glyph advance or skip without a quad
	quads := font.Quads("AB ?A", 10, 20)
	if len(quads) != 3 {
		t.Fatalf("%d quads", len(quads))
	}
	a, b, last := quads[0], quads[1], quads[2]
	if a.X0 != 10 || a.Y0 != 21 || a.X1 != 14 || a.Y1 != 29 {
		t.Errorf("A at %+v", a)
	}
	if a.S0 != 0 || a.S1 != 0.5 || a.T0 != 0 || a.T1 != 1 {
		t.Errorf("A uv %+v", a)
	}
	// advance 5 minus kerning 1
	if b.X0 != 14 || b.S0 != 0.5 || b.S1 != 1 {
		t.Errorf("B at %+v", b)
	}
	if last.X0 != 22 {
		t.Errorf("last A at x %g, want 22", last.X0)
	}

	lines := font.Quads("A\nA", 10, 20)
	if len(lines) != 2 || lines[1].X0 != 10 || lines[1].Y0 != 37 {
		t.Errorf("second line %+v", lines)
	}
}

func TestLoadBitmapFontRejects(t *testing.T) {
	_, err := LoadBitmapFont(writeTestFont(t, t.TempDir(), "a.png", "b.png"))
	if !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Errorf("two pages: %v", err)
	}
	if _, err := LoadBitmapFont(filepath.Join(t.TempDir(), "missing.fnt")); err == nil {
		t.Errorf("missing file loaded")
	}
}

func TestBitmapFontLoader(t *testing.T) {
	path := writeTestFont(t, t.TempDir(), "test.png")
	loader := &BitmapFontLoader{}
	res, err := loader.Load(path, metadata.ResourceTypeBitmapFont, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Data.(*BitmapFont); !ok || res.Name != "test.fnt" || res.DataSize == 0 {
		t.Errorf("resource %+v", res)
	}
	if err := loader.Unload(res); err != nil || res.Data != nil {
		t.Errorf("unload: %v", err)
	}
}
