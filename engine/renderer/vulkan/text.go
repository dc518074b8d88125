package vulkan

import (
	"encoding/binary"
	"fmt"
	stdmath "math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
	"github.com/spaghettifunk/anima-gpu/engine/mesh"
)

const (
	// position and atlas coordinate, both R32G32
	glyphVertexBytes = 16
	glyphQuadBytes   = 4 * glyphVertexBytes
	// 16-bit indices address at most this many quads
	maxTextGlyphs = 65536 / 4
)

// GlyphLayout is the vertex layout of text quads.
var GlyphLayout = format.NewVertexLayout(
	format.VertexAttribute{Location: 0, Offset: 0, Format: format.FormatR32G32Sfloat},
	format.VertexAttribute{Location: 1, Offset: 8, Format: format.FormatR32G32Sfloat},
)

// TextRenderer draws strings of a bitmap font as alpha-blended quads. Each
// pipelined frame appends to its own vertex buffer.
type TextRenderer struct {
	Font      *loaders.BitmapFont
	Atlas     *VulkanImage
	Sampler   vk.Sampler
	SetLayout vk.DescriptorSetLayout
	Pipeline  *VulkanPipeline

	pool      vk.DescriptorPool
	set       vk.DescriptorSet
	vertices  *PipelinedBuffer
	indices   *VulkanBuffer
	maxGlyphs int
	used      []int
	scratch   []byte
}

type TextRendererConfig struct {
	Font       *loaders.BitmapFont
	Renderpass *VulkanRenderpass
	Stages     []vk.PipelineShaderStageCreateInfo
	// Depth is the number of frames in flight.
	Depth     int
	MaxGlyphs int
}

func NewTextRenderer(vc *VulkanContext, config *TextRendererConfig, name string) (*TextRenderer, error) {
	if config.Font == nil || config.Font.Atlas == nil {
		return nil, fmt.Errorf("text renderer '%s' without a font atlas: %w", name, core.ErrInvalidArgument)
	}
	if config.MaxGlyphs < 1 || config.MaxGlyphs > maxTextGlyphs || config.Depth < 1 {
		return nil, fmt.Errorf("text renderer '%s' with %d glyphs over %d frames: %w", name, config.MaxGlyphs, config.Depth, core.ErrInvalidArgument)
	}
	tr := &TextRenderer{
		Font:      config.Font,
		maxGlyphs: config.MaxGlyphs,
		used:      make([]int, config.Depth),
	}
	if err := tr.create(vc, config, name); err != nil {
		tr.Destroy(vc)
		return nil, err
	}
	return tr, nil
}

func (tr *TextRenderer) create(vc *VulkanContext, config *TextRendererConfig, name string) error {
	var err error
	if tr.Atlas, err = CreateTexture(vc, nil, config.Font.Atlas, false, name+" atlas"); err != nil {
		return err
	}
	samplerInfo := SamplerCreateInfo(vk.FilterLinear, vk.SamplerMipmapModeNearest, vk.SamplerAddressModeClampToEdge)
	if tr.Sampler, err = CreateSampler(vc, &samplerInfo, name); err != nil {
		return err
	}

	setConfig := &VulkanDescriptorSetConfig{}
	setConfig.AddBinding(0, vk.DescriptorTypeCombinedImageSampler, 1, vk.ShaderStageFragmentBit)
	if tr.SetLayout, err = setConfig.CreateLayout(vc, name); err != nil {
		return err
	}
	if tr.pool, err = CreateDescriptorPool(vc, 1, DescriptorPoolSizes(setConfig.PoolCounts(1)), 0, name); err != nil {
		return err
	}
	sets, err := AllocateDescriptorSets(vc, tr.pool, tr.SetLayout, 1, name)
	if err != nil {
		return err
	}
	tr.set = sets[0]
	(&DescriptorWriter{Set: tr.set}).
		CombinedImageSampler(0, tr.Atlas.View, tr.Sampler, vk.ImageLayoutShaderReadOnlyOptimal).
		Update(vc)

	mf, err := MeshFormat(GlyphLayout, mesh.TopologyTriangleList)
	if err != nil {
		return err
	}
	tr.Pipeline, err = NewGraphicsPipeline(vc, &VulkanPipelineConfig{
		Renderpass:           config.Renderpass,
		MeshFormat:           mf,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{tr.SetLayout},
		Stages:               config.Stages,
		CullMode:             vk.CullModeNone,
		FrontFace:            vk.FrontFaceCounterClockwise,
		AlphaBlend:           true,
	}, name)
	if err != nil {
		return err
	}

	tr.vertices, err = NewPipelinedBuffer(vc, config.Depth, uint64(config.MaxGlyphs*glyphQuadBytes),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit), name+" vertices")
	if err != nil {
		return err
	}
	indexBytes := quadIndices(config.MaxGlyphs)
	tr.indices, err = NewVulkanBuffer(vc, nil, uint64(len(indexBytes)),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit|vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), name+" indices")
	if err != nil {
		return err
	}
	return BufferUpload(vc, tr.indices.Handle, 0, indexBytes, vk.AccessFlags(vk.AccessIndexReadBit))
}

// Begin starts a frame: strings drawn before the next Begin with the same
// index share its vertex buffer.
func (tr *TextRenderer) Begin(frameIndex int) {
	tr.used[frameIndex] = 0
}

// DrawString draws text with its top-left corner at (x, y) pixels of a
// width x height target. Glyphs past the per-frame budget are dropped.
func (tr *TextRenderer) DrawString(cb *VulkanCommandBuffer, frameIndex int, text string, x, y float32, width, height uint32) {
	quads := tr.Font.Quads(text, x, y)
	if free := tr.maxGlyphs - tr.used[frameIndex]; len(quads) > free {
		core.LogWarn("text budget of %d glyphs exceeded, dropping %d", tr.maxGlyphs, len(quads)-free)
		quads = quads[:free]
	}
	if len(quads) == 0 {
		return
	}
	need := len(quads) * glyphQuadBytes
	if cap(tr.scratch) < need {
		tr.scratch = make([]byte, need)
	}
	tr.scratch = tr.scratch[:need]
	glyphVertices(tr.scratch, quads, float32(width), float32(height))

	offset := uint64(tr.used[frameIndex] * glyphQuadBytes)
	copy(tr.vertices.Mapped(frameIndex)[offset:], tr.scratch)
	tr.used[frameIndex] += len(quads)

	tr.Pipeline.Bind(cb, vk.PipelineBindPointGraphics)
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, tr.Pipeline.PipelineLayout, 0, 1, []vk.DescriptorSet{tr.set}, 0, nil)
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{tr.vertices.Handle(frameIndex)}, []vk.DeviceSize{vk.DeviceSize(offset)})
	vk.CmdBindIndexBuffer(cb.Handle, tr.indices.Handle, 0, vk.IndexTypeUint16)
	vk.CmdDrawIndexed(cb.Handle, uint32(6*len(quads)), 1, 0, 0, 0)
}

func (tr *TextRenderer) Destroy(vc *VulkanContext) {
	if tr.Pipeline != nil {
		tr.Pipeline.Destroy(vc)
		tr.Pipeline = nil
	}
	if tr.vertices != nil {
		tr.vertices.Destroy(vc)
		tr.vertices = nil
	}
	if tr.indices != nil {
		tr.indices.Destroy(vc)
		tr.indices = nil
	}
	DestroyDescriptorPool(vc, tr.pool)
	tr.pool = nil
	DestroyDescriptorSetLayout(vc, tr.SetLayout)
	tr.SetLayout = nil
	DestroySampler(vc, tr.Sampler)
	tr.Sampler = nil
	if tr.Atlas != nil {
		tr.Atlas.Destroy(vc)
		tr.Atlas = nil
	}
}

// glyphVertices writes four vertices per quad, top-left, bottom-left,
// top-right, bottom-right, with pixel positions mapped to clip space.
func glyphVertices(dst []byte, quads []loaders.GlyphQuad, width, height float32) {
	put := func(off int, v ...float32) {
		for i, f := range v {
			binary.LittleEndian.PutUint32(dst[off+4*i:], stdmath.Float32bits(f))
		}
	}
	toX := func(x float32) float32 { return 2*x/width - 1 }
	toY := func(y float32) float32 { return 2*y/height - 1 }
	for i, q := range quads {
		base := i * glyphQuadBytes
		put(base, toX(q.X0), toY(q.Y0), q.S0, q.T0)
		put(base+glyphVertexBytes, toX(q.X0), toY(q.Y1), q.S0, q.T1)
		put(base+2*glyphVertexBytes, toX(q.X1), toY(q.Y0), q.S1, q.T0)
		put(base+3*glyphVertexBytes, toX(q.X1), toY(q.Y1), q.S1, q.T1)
	}
}

// quadIndices is the uint16 index buffer drawing count quads as two
// triangles each.
func quadIndices(count int) []byte {
	out := make([]byte, 0, count*6*2)
	for q := 0; q < count; q++ {
		base := uint16(4 * q)
		for _, i := range [6]uint16{0, 1, 2, 2, 1, 3} {
			out = binary.LittleEndian.AppendUint16(out, base+i)
		}
	}
	return out
}
