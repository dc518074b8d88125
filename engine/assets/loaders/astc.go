package loaders

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
)

const (
	astcMagic      uint32 = 0x5CA1AB13
	astcHeaderSize        = 16
)

func astcUint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// decodeASTC reads a .astc container. Only 2D block footprints are supported;
// the file carries no colour space so the UNORM format is selected.
func decodeASTC(data []byte) (*Image, error) {
	if len(data) < astcHeaderSize || binary.LittleEndian.Uint32(data) != astcMagic {
		return nil, errors.WithMessage(core.ErrFileCorrupt, "missing ASTC magic")
	}
	blockX, blockY, blockZ := uint32(data[4]), uint32(data[5]), uint32(data[6])
	if blockZ != 1 {
		return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "astc 3D block footprint %dx%dx%d", blockX, blockY, blockZ)
	}
	f, ok := format.ASTCFormat(blockX, blockY, false)
	if !ok {
		return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "astc block footprint %dx%d", blockX, blockY)
	}
	img := &Image{
		Width:       max(1, astcUint24(data[7:])),
		Height:      max(1, astcUint24(data[10:])),
		Depth:       max(1, astcUint24(data[13:])),
		MipLevels:   1,
		ArrayLayers: 1,
		Format:      f,
		PixelOffset: astcHeaderSize,
		Data:        data,
	}
	img.RowPitch = f.RowPitch(img.Width)
	img.DepthPitch = uint32(f.ImageSize(img.Width, img.Height, 1))

	if need := astcHeaderSize + img.mipSize(0); len(data) < need {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "astc has %d bytes, need %d", len(data), need)
	}
	return img, nil
}
