package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/mesh"
)

// VulkanRenderer owns the context and everything that draws to the
// swapchain: the main render pass, its framebuffers and the frame loop.
type VulkanRenderer struct {
	Context    *VulkanContext
	Frames     *FrameLoop
	Renderpass *VulkanRenderpass
	Targets    *SwapchainTargets
	// MeshArena backs vertex and index buffers. Nil when disabled by config.
	MeshArena *FlatArena

	ClearColor [4]float32
}

// NewVulkanRenderer brings up the context and the per-swapchain state.
// surfaceSize reports the framebuffer size used on swapchain rebuilds.
func NewVulkanRenderer(info *ContextCreateInfo, cfg *core.Config, surfaceSize func() (uint32, uint32)) (*VulkanRenderer, error) {
	vc, err := NewVulkanContext(info)
	if err != nil {
		return nil, err
	}
	if vc.IsInstanceLayerEnabled("VK_LAYER_KHRONOS_validation") {
		core.LogInfo("Validation layer enabled")
	}
	vr := &VulkanRenderer{
		Context:    vc,
		ClearColor: [4]float32{0.02, 0.02, 0.05, 1},
	}

	depthFormat, err := vc.DetectDepthFormat()
	if err != nil {
		vr.Shutdown()
		return nil, err
	}
	vr.Renderpass, err = RenderpassCreate(vc, vc.Swapchain.ImageFormat, depthFormat, vr.ClearColor, 1.0, 0, "main")
	if err != nil {
		vr.Shutdown()
		return nil, err
	}
	if vr.Targets, err = NewSwapchainTargets(vc, vr.Renderpass); err != nil {
		vr.Shutdown()
		return nil, err
	}

	vr.Frames, err = NewFrameLoop(vc, cfg.Frames.Depth, cfg.Frames.DynamicUniformBytes)
	if err != nil {
		vr.Shutdown()
		return nil, err
	}
	if surfaceSize != nil {
		vr.Frames.SurfaceSize = surfaceSize
	}
	vr.Frames.OnSwapchainRecreated = func() error {
		if !vr.Targets.Stale(vc) {
			return nil
		}
		return vr.Targets.Rebuild(vc)
	}
	if err := vr.Frames.Seed(); err != nil {
		vr.Shutdown()
		return nil, err
	}

	if size := cfg.Memory.MeshArenaBytes; size > 0 {
		if vr.MeshArena, err = newMeshArena(vc, size); err != nil {
			vr.Shutdown()
			return nil, err
		}
	}

	core.LogInfo("Vulkan renderer initialized successfully: %d frames in flight.", vr.Frames.Depth())
	return vr, nil
}

// newMeshArena picks the memory type a device-local vertex buffer would use
// from the requirements of a throwaway buffer.
func newMeshArena(vc *VulkanContext, size uint64) (*FlatArena, error) {
	ci := BufferCreateInfo(1, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|vk.BufferUsageIndexBufferBit|vk.BufferUsageTransferDstBit))
	scratch, err := CreateBuffer(vc, &ci, "")
	if err != nil {
		return nil, err
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vc.Device.LogicalDevice, scratch, &reqs)
	reqs.Deref()
	DestroyBuffer(vc, scratch)

	typeIndex, err := vc.FindMemoryIndex(reqs.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	return NewFlatArena(vc, typeIndex, size, 0, "mesh arena")
}

// Extent is the current swapchain size.
func (vr *VulkanRenderer) Extent() (uint32, uint32) {
	e := vr.Context.Swapchain.Extent
	return e.Width, e.Height
}

// BeginFrame starts a frame and opens the main render pass with the
// viewport and scissor covering the swapchain.
func (vr *VulkanRenderer) BeginFrame() (*FrameContext, error) {
	fc, err := vr.Frames.BeginFrame()
	if err != nil {
		return nil, err
	}
	cb := fc.CommandBuffer
	extent := vr.Context.Swapchain.Extent
	viewport := vk.Viewport{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{{Extent: extent}})

	if int(fc.ImageIndex) >= len(vr.Targets.Framebuffers) {
		return nil, fmt.Errorf("no framebuffer for swapchain image %d: %w", fc.ImageIndex, core.ErrInvalidArgument)
	}
	vr.Renderpass.RenderpassBegin(cb, vr.Targets.Framebuffers[fc.ImageIndex].Handle)
	return fc, nil
}

func (vr *VulkanRenderer) EndFrame(fc *FrameContext) error {
	vr.Renderpass.RenderpassEnd(fc.CommandBuffer)
	return vr.Frames.EndFrame(fc)
}

// Resized rebuilds the swapchain and its framebuffers after the window
// changed size.
func (vr *VulkanRenderer) Resized(width, height uint32) error {
	core.LogInfo("Vulkan renderer resized: %dx%d.", width, height)
	return vr.Frames.RebuildSwapchain()
}

// LoadTexture reads an image file into a sampled texture with its own
// allocation.
func (vr *VulkanRenderer) LoadTexture(path string, generateMips bool) (*VulkanImage, error) {
	return LoadTextureFromFile(vr.Context, nil, path, generateMips)
}

// UploadMesh places a mesh in the mesh arena, or in dedicated allocations
// when there is none.
func (vr *VulkanRenderer) UploadMesh(m *mesh.Mesh, name string) (*GPUMesh, error) {
	var arena DeviceMemoryArena
	if vr.MeshArena != nil {
		arena = vr.MeshArena
	}
	return UploadMesh(vr.Context, arena, m, name)
}

func (vr *VulkanRenderer) WaitIdle() error {
	return vr.Context.WaitIdle()
}

func (vr *VulkanRenderer) Shutdown() {
	vc := vr.Context
	if vc == nil {
		return
	}
	if err := vc.WaitIdle(); err != nil {
		core.LogError("renderer shutdown: %s", err)
	}
	if vr.Frames != nil {
		vr.Frames.Destroy()
		vr.Frames = nil
	}
	if vr.Targets != nil {
		vr.Targets.Destroy(vc)
		vr.Targets = nil
	}
	if vr.Renderpass != nil {
		vr.Renderpass.RenderpassDestroy(vc)
		vr.Renderpass = nil
	}
	if vr.MeshArena != nil {
		vr.MeshArena.Destroy()
		vr.MeshArena = nil
	}
	core.LogDebug("Destroying Vulkan context...")
	vc.Destroy()
	vr.Context = nil
}
