package loaders

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// decodeRaster decodes png, jpeg and bmp files into straight-alpha RGBA8.
func decodeRaster(data []byte) (*Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "raster decode: %v", err)
	}
	bounds := src.Bounds()
	rgba, ok := src.(*image.NRGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		rgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Copy(rgba, image.Point{}, src, bounds, draw.Src, nil)
	}
	return newRGBA8Image(uint32(bounds.Dx()), uint32(bounds.Dy()), rgba.Pix), nil
}

func newRGBA8Image(width, height uint32, pixels []byte) *Image {
	return &Image{
		Width:       width,
		Height:      height,
		Depth:       1,
		MipLevels:   1,
		ArrayLayers: 1,
		RowPitch:    4 * width,
		DepthPitch:  4 * width * height,
		Format:      format.FormatR8G8B8A8Unorm,
		Data:        pixels,
	}
}
