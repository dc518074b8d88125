package loaders

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

const (
	tgaHeaderSize = 18

	tgaTrueColor    = 2
	tgaGrayscale    = 3
	tgaRLETrueColor = 10
	tgaRLEGrayscale = 11

	tgaTopLeftOrigin = 0x20
	tgaRightToLeft   = 0x10
)

type tgaHeader struct {
	IDLength     uint8
	ColorMapType uint8
	ImageType    uint8
	ColorMap     [5]uint8
	XOrigin      uint16
	YOrigin      uint16
	Width        uint16
	Height       uint16
	PixelDepth   uint8
	Descriptor   uint8
}

// decodeTGA handles uncompressed and run-length encoded true-color (24 and
// 32 bit) and 8-bit grayscale files. Output is RGBA8 with the first row at
// the top.
func decodeTGA(data []byte) (*Image, error) {
	var h tgaHeader
	if err := readHeader(data, 0, binary.LittleEndian, &h); err != nil {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "tga header: %v", err)
	}
	if h.ColorMapType != 0 {
		return nil, errors.WithMessage(core.ErrUnsupportedFormat, "color-mapped tga")
	}
	rle := h.ImageType == tgaRLETrueColor || h.ImageType == tgaRLEGrayscale
	gray := h.ImageType == tgaGrayscale || h.ImageType == tgaRLEGrayscale
	switch {
	case h.ImageType != tgaTrueColor && h.ImageType != tgaGrayscale && !rle:
		return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "tga image type %d", h.ImageType)
	case gray && h.PixelDepth != 8:
		return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "%d-bit grayscale tga", h.PixelDepth)
	case !gray && h.PixelDepth != 24 && h.PixelDepth != 32:
		return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "%d-bit true-color tga", h.PixelDepth)
	}
	if h.Width == 0 || h.Height == 0 {
		return nil, errors.WithMessage(core.ErrFileCorrupt, "tga has zero size")
	}

	width, height := int(h.Width), int(h.Height)
	bpp := int(h.PixelDepth / 8)
	src := data[tgaHeaderSize:]
	if len(src) < int(h.IDLength) {
		return nil, errors.WithMessage(core.ErrFileCorrupt, "tga id field truncated")
	}
	src = src[h.IDLength:]

	raw := make([]byte, width*height*bpp)
	if rle {
		if err := unpackTGARLE(src, raw, bpp); err != nil {
			return nil, err
		}
	} else {
		if len(src) < len(raw) {
			return nil, errors.WithMessagef(core.ErrFileCorrupt, "tga pixel data has %d bytes, need %d", len(src), len(raw))
		}
		copy(raw, src)
	}

	pixels := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		dstY := y
		if h.Descriptor&tgaTopLeftOrigin == 0 {
			dstY = height - 1 - y
		}
		for x := 0; x < width; x++ {
			dstX := x
			if h.Descriptor&tgaRightToLeft != 0 {
				dstX = width - 1 - x
			}
			p := raw[(y*width+x)*bpp:]
			d := pixels[(dstY*width+dstX)*4:]
			if gray {
				d[0], d[1], d[2], d[3] = p[0], p[0], p[0], 0xFF
				continue
			}
			// stored as BGR(A)
			d[0], d[1], d[2], d[3] = p[2], p[1], p[0], 0xFF
			if bpp == 4 {
				d[3] = p[3]
			}
		}
	}
	return newRGBA8Image(uint32(width), uint32(height), pixels), nil
}

func unpackTGARLE(src, dst []byte, bpp int) error {
	in, out := 0, 0
	for out < len(dst) {
		if in >= len(src) {
			return errors.WithMessage(core.ErrFileCorrupt, "tga run-length data truncated")
		}
		packet := src[in]
		in++
		count := int(packet&0x7F) + 1
		if out+count*bpp > len(dst) {
			return errors.WithMessage(core.ErrFileCorrupt, "tga run overflows the image")
		}
		if packet&0x80 != 0 {
			if in+bpp > len(src) {
				return errors.WithMessage(core.ErrFileCorrupt, "tga run-length data truncated")
			}
			for i := 0; i < count; i++ {
				copy(dst[out:out+bpp], src[in:in+bpp])
				out += bpp
			}
			in += bpp
			continue
		}
		n := count * bpp
		if in+n > len(src) {
			return errors.WithMessage(core.ErrFileCorrupt, "tga raw packet truncated")
		}
		copy(dst[out:out+n], src[in:in+n])
		in += n
		out += n
	}
	return nil
}
