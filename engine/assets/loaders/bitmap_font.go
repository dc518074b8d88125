package loaders

import (
	"os"
	"path/filepath"

	"github.com/fzipp/bmfont"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

// Glyph is one character of a bitmap font, in atlas pixels.
type Glyph struct {
	Codepoint rune
	X, Y      uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
}

type kerningPair struct {
	first, second rune
}

// BitmapFont is a BMFont descriptor together with its decoded page.
type BitmapFont struct {
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	Glyphs     map[rune]Glyph
	// Atlas is the RGBA8 glyph page, ready for CreateTexture.
	Atlas *Image

	kernings map[kerningPair]int16
}

// GlyphQuad is a textured rectangle: (X0, Y0) top-left and (X1, Y1)
// bottom-right in pixels, with normalized atlas coordinates.
type GlyphQuad struct {
	X0, Y0, S0, T0 float32
	X1, Y1, S1, T1 float32
}

// LoadBitmapFont reads a text BMFont descriptor and its page image. Fonts
// spread over more than one page are rejected.
func LoadBitmapFont(path string) (*BitmapFont, error) {
	font, err := bmfont.Load(path)
	if err != nil {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "bitmap font %s: %v", path, err)
	}
	desc := font.Descriptor
	if len(desc.Pages) != 1 {
		return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "bitmap font %s has %d pages, want 1", path, len(desc.Pages))
	}

	out := &BitmapFont{
		Face:       desc.Info.Face,
		Size:       uint32(desc.Info.Size),
		LineHeight: int32(desc.Common.LineHeight),
		Baseline:   int32(desc.Common.Base),
		Glyphs:     make(map[rune]Glyph, len(desc.Chars)),
		kernings:   make(map[kerningPair]int16, len(desc.Kerning)),
	}
	var pageID int
	for _, p := range desc.Pages {
		pageID = int(p.ID)
		out.Atlas, err = LoadImage(filepath.Join(filepath.Dir(path), p.File))
		if err != nil {
			return nil, errors.WithMessagef(err, "bitmap font %s page", path)
		}
	}
	for _, c := range desc.Chars {
		if int(c.Page) != pageID {
			continue
		}
		out.Glyphs[rune(c.ID)] = Glyph{
			Codepoint: rune(c.ID),
			X:         uint16(c.X),
			Y:         uint16(c.Y),
			Width:     uint16(c.Width),
			Height:    uint16(c.Height),
			XOffset:   int16(c.XOffset),
			YOffset:   int16(c.YOffset),
			XAdvance:  int16(c.XAdvance),
		}
	}
	for pair, k := range desc.Kerning {
		out.kernings[kerningPair{rune(pair.First), rune(pair.Second)}] = int16(k.Amount)
	}
	return out, nil
}

// Kerning is the extra advance between first and second.
func (f *BitmapFont) Kerning(first, second rune) int16 {
	return f.kernings[kerningPair{first, second}]
}

// Quads lays out text with its first line's top at (x, y). Glyphs missing
// from the font and blank glyphs advance the pen without emitting a quad;
// '\n' starts a new line.
func (f *BitmapFont) Quads(text string, x, y float32) []GlyphQuad {
	quads := make([]GlyphQuad, 0, len(text))
	if f.Atlas == nil || f.Atlas.Width == 0 || f.Atlas.Height == 0 {
		return quads
	}
	aw, ah := float32(f.Atlas.Width), float32(f.Atlas.Height)
	penX, penY := x, y
	var prev rune = -1
	for _, r := range text {
		if r == '\n' {
			penX, penY = x, penY+float32(f.LineHeight)
			prev = -1
			continue
		}
		g, ok := f.Glyphs[r]
		if !ok {
			prev = -1
			continue
		}
		if prev >= 0 {
			penX += float32(f.Kerning(prev, r))
		}
		if g.Width > 0 && g.Height > 0 {
			x0 := penX + float32(g.XOffset)
			y0 := penY + float32(g.YOffset)
			quads = append(quads, GlyphQuad{
				X0: x0, Y0: y0,
				S0: float32(g.X) / aw, T0: float32(g.Y) / ah,
				X1: x0 + float32(g.Width), Y1: y0 + float32(g.Height),
				S1: float32(g.X+g.Width) / aw, T1: float32(g.Y+g.Height) / ah,
			})
		}
		penX += float32(g.XAdvance)
		prev = r
	}
	return quads
}

type BitmapFontLoader struct{}

func (fl *BitmapFontLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat bitmap font %s", path)
	}
	font, err := LoadBitmapFont(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     assetType,
		DataSize: uint64(info.Size()),
		Data:     font,
	}, nil
}

func (fl *BitmapFontLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}
