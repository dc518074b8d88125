package loaders

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

type ImageFileType int

const (
	ImageFileTypeUnknown ImageFileType = iota
	ImageFileTypePNG
	ImageFileTypeJPEG
	ImageFileTypeTGA
	ImageFileTypeBMP
	ImageFileTypeDDS
	ImageFileTypeASTC
	ImageFileTypeKTX
)

func (t ImageFileType) String() string {
	switch t {
	case ImageFileTypePNG:
		return "png"
	case ImageFileTypeJPEG:
		return "jpeg"
	case ImageFileTypeTGA:
		return "tga"
	case ImageFileTypeBMP:
		return "bmp"
	case ImageFileTypeDDS:
		return "dds"
	case ImageFileTypeASTC:
		return "astc"
	case ImageFileTypeKTX:
		return "ktx"
	default:
		return "unknown"
	}
}

type ImageFlags uint32

const (
	// ImageFlagCube marks cube maps. ArrayLayers then counts faces, not cubes.
	ImageFlagCube ImageFlags = 1 << iota
)

// Subresource addresses one mip level of one array layer.
type Subresource struct {
	MipLevel   uint32
	ArrayLayer uint32
}

// Image is a decoded image file. Data owns every byte read from the file;
// for DDS and KTX the container headers are kept in place and PixelOffset
// locates the first texel.
type Image struct {
	Width       uint32
	Height      uint32
	Depth       uint32
	MipLevels   uint32
	ArrayLayers uint32
	RowPitch    uint32
	DepthPitch  uint32
	FileType    ImageFileType
	Flags       ImageFlags
	Format      format.Format
	Data        []byte
	PixelOffset int

	// KTX cube maps without array elements pad every face separately.
	ktxCubeFaces bool
}

func (img *Image) IsCube() bool {
	return img.Flags&ImageFlagCube != 0
}

// FileTypeFromPath selects the decoder from the file extension.
func FileTypeFromPath(path string) ImageFileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return ImageFileTypePNG
	case ".jpg", ".jpeg":
		return ImageFileTypeJPEG
	case ".tga":
		return ImageFileTypeTGA
	case ".bmp":
		return ImageFileTypeBMP
	case ".dds":
		return ImageFileTypeDDS
	case ".astc":
		return ImageFileTypeASTC
	case ".ktx":
		return ImageFileTypeKTX
	default:
		return ImageFileTypeUnknown
	}
}

// LoadImage reads and decodes the image file at path.
func LoadImage(path string) (*Image, error) {
	fileType := FileTypeFromPath(path)
	if fileType == ImageFileTypeUnknown {
		return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "unrecognized image extension %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read image %s", path)
	}
	img, err := decodeBytes(data, fileType)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to decode %s", path)
	}
	return img, nil
}

// DecodeImage decodes an image of the given type from r.
func DecodeImage(r io.Reader, fileType ImageFileType) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image")
	}
	return decodeBytes(data, fileType)
}

func decodeBytes(data []byte, fileType ImageFileType) (*Image, error) {
	var (
		img *Image
		err error
	)
	switch fileType {
	case ImageFileTypePNG, ImageFileTypeJPEG, ImageFileTypeBMP:
		img, err = decodeRaster(data)
	case ImageFileTypeTGA:
		img, err = decodeTGA(data)
	case ImageFileTypeDDS:
		img, err = decodeDDS(data)
	case ImageFileTypeASTC:
		img, err = decodeASTC(data)
	case ImageFileTypeKTX:
		img, err = decodeKTX(data)
	default:
		return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "image file type %d", fileType)
	}
	if err != nil {
		return nil, err
	}
	img.FileType = fileType
	return img, nil
}

// MipDimensions returns the extent of a mip level.
func (img *Image) MipDimensions(level uint32) (uint32, uint32, uint32) {
	return mipExtent(img.Width, level), mipExtent(img.Height, level), mipExtent(img.Depth, level)
}

func mipExtent(x, level uint32) uint32 {
	if level >= 32 {
		return 1
	}
	return max(1, x>>level)
}

func (img *Image) mipSize(level uint32) int {
	w, h, d := img.MipDimensions(level)
	return int(img.Format.ImageSize(w, h, d))
}

// SubresourceSize is the byte size of one subresource.
func (img *Image) SubresourceSize(sub Subresource) (int, error) {
	_, size, err := img.locate(sub)
	return size, err
}

// SubresourceData returns the bytes of one subresource. The slice aliases Data.
func (img *Image) SubresourceData(sub Subresource) ([]byte, error) {
	off, size, err := img.locate(sub)
	if err != nil {
		return nil, err
	}
	return img.Data[off : off+size], nil
}

func (img *Image) locate(sub Subresource) (int, int, error) {
	if sub.MipLevel >= img.MipLevels || sub.ArrayLayer >= img.ArrayLayers {
		return 0, 0, errors.WithMessagef(core.ErrInvalidArgument, "subresource (%d, %d) outside %d mips x %d layers",
			sub.MipLevel, sub.ArrayLayer, img.MipLevels, img.ArrayLayers)
	}
	var off, size int
	switch img.FileType {
	case ImageFileTypeDDS:
		off, size = img.ddsLocate(sub)
	case ImageFileTypeKTX:
		var err error
		if off, size, err = img.ktxLocate(sub); err != nil {
			return 0, 0, err
		}
	default:
		off, size = img.PixelOffset, img.mipSize(0)
	}
	if off < 0 || off+size > len(img.Data) {
		return 0, 0, errors.WithMessagef(core.ErrFileCorrupt, "subresource (%d, %d) runs past the end of the data", sub.MipLevel, sub.ArrayLayer)
	}
	return off, size, nil
}

// ImageLoader adapts LoadImage to the asset manager.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	if p, ok := params.(*metadata.ImageResourceParams); ok && p.FlipY {
		img.FlipY()
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     assetType,
		DataSize: uint64(len(img.Data)),
		Data:     img,
	}, nil
}

func (il *ImageLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

// FlipY mirrors the rows of single-subresource uncompressed images and leaves
// every other image untouched.
func (img *Image) FlipY() {
	if img.MipLevels != 1 || img.ArrayLayers != 1 || img.Depth != 1 || img.Format.IsCompressed() {
		return
	}
	pixels, err := img.SubresourceData(Subresource{})
	if err != nil {
		return
	}
	pitch := int(img.RowPitch)
	row := make([]byte, pitch)
	for top, bottom := 0, int(img.Height)-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pixels[top*pitch : (top+1)*pitch]
		b := pixels[bottom*pitch : (bottom+1)*pitch]
		copy(row, a)
		copy(a, b)
		copy(b, row)
	}
}

func readHeader(data []byte, off int, order binary.ByteOrder, out interface{}) error {
	if off > len(data) {
		return io.ErrUnexpectedEOF
	}
	return binary.Read(bytes.NewReader(data[off:]), order, out)
}
