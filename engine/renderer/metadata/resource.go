package metadata

type ResourceType int

/** @brief Resource types understood by the asset manager. */
const (
	/** @brief Files the asset manager does not track. */
	ResourceTypeNone ResourceType = iota
	/** @brief Decoded image file (raster, DDS, ASTC or KTX). */
	ResourceTypeImage
	/** @brief SPIR-V shader module. */
	ResourceTypeShader
	/** @brief Mesh file. */
	ResourceTypeMesh
	/** @brief BMFont text descriptor with its glyph page. */
	ResourceTypeBitmapFont
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeImage:
		return "image"
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeMesh:
		return "mesh"
	case ResourceTypeBitmapFont:
		return "bitmap font"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource, relative to the asset directory. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	Type     ResourceType
	/** @brief The size of the file in bytes. */
	DataSize uint64
	/** @brief The decoded resource: *loaders.Image, []uint32, *mesh.Mesh or
	 * *loaders.BitmapFont. */
	Data interface{}
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Flip single-subresource uncompressed images on the y-axis. */
	FlipY bool
}
