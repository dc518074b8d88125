package testbed

import (
	"errors"
	"fmt"
	stdmath "math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine"
	"github.com/spaghettifunk/anima-gpu/engine/assets"
	"github.com/spaghettifunk/anima-gpu/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/math"
	"github.com/spaghettifunk/anima-gpu/engine/mesh"
	"github.com/spaghettifunk/anima-gpu/engine/platform"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/vulkan"
)

// Image assets tried in order for the swarm texture.
var textureCandidates = []string{
	"textures/swarm.dds",
	"textures/swarm.ktx",
	"textures/swarm.png",
}

const (
	vertexShaderAsset   = "shaders/swarm.vert.spv"
	fragmentShaderAsset = "shaders/swarm.frag.spv"
	linesShaderAsset    = "shaders/swarm_lines.frag.spv"
	textVertexAsset     = "shaders/text.vert.spv"
	textFragmentAsset   = "shaders/text.frag.spv"
	overlayFontAsset    = "fonts/overlay.fnt"

	overlayGlyphs = 256
	// seconds between two overlay text refreshes
	overlayRefresh = 0.25

	// frames between two GPU time log lines
	gpuLogInterval = 240
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	engine   *engine.Engine
	renderer *vulkan.VulkanRenderer

	width  uint32
	height uint32
	time   float64

	cameraYaw      float32
	cameraDistance float32
	viewProj       math.Mat4
	models         []math.Mat4

	cube     *vulkan.GPUMesh
	sphere   *vulkan.GPUMesh
	cylinder *vulkan.GPUMesh
	axes     *vulkan.GPUMesh

	// rewritten every frame, one copy per frame in flight
	tether      *vulkan.PipelinedBuffer
	tetherBytes []byte

	texture     *vulkan.VulkanImage
	textureName string
	sampler     vk.Sampler

	setLayout vk.DescriptorSetLayout
	pool      vk.DescriptorPool
	set       vk.DescriptorSet

	// nil when the overlay font is missing
	text       *vulkan.TextRenderer
	overlay    string
	overlayAge float64

	stages    []*vulkan.VulkanShaderStage
	triangles *vulkan.VulkanPipeline
	lines     *vulkan.VulkanPipeline
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State: &gameState{
				cameraDistance: 16,
				models:         make([]math.Mat4, objectCount),
			},
		},
	}
	tg.FnBoot = tg.Boot
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

// Boot makes sure every frame's uniform region holds the scene block.
func (g *TestGame) Boot(config *engine.ApplicationConfig) error {
	core.LogInfo("booting testbed...")
	if config.Frames.DynamicUniformBytes < sceneUniformBytes {
		core.LogWarn("raising frames.dynamic_uniform_bytes from %d to %d", config.Frames.DynamicUniformBytes, sceneUniformBytes)
		config.Frames.DynamicUniformBytes = sceneUniformBytes
	}
	return nil
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	s := g.state()
	s.engine = e
	s.renderer = e.Renderer()
	s.width, s.height = e.GetFramebufferSize()

	if err := g.createMeshes(); err != nil {
		return err
	}
	if err := g.createTexture(); err != nil {
		return err
	}
	if err := g.createDescriptors(); err != nil {
		return err
	}
	if err := g.createPipelines(); err != nil {
		return err
	}
	if err := g.createOverlay(); err != nil {
		return err
	}

	e.Events().Register(core.EVENT_CODE_ASSET_CHANGED, g, g.onAssetChanged)
	e.Events().Register(core.EVENT_CODE_SWAPCHAIN_RECREATED, g, g.onSwapchainRecreated)
	core.LogInfo("testbed ready: %d cubes, %d frames in flight", swarmCount, s.renderer.Frames.Depth())
	return nil
}

func (g *TestGame) createMeshes() error {
	s := g.state()
	recipes := []struct {
		name   string
		recipe mesh.Recipe
		out    **vulkan.GPUMesh
	}{
		{"cube", &mesh.CubeRecipe{Min: math.NewVec3(-1, -1, -1), Max: math.NewVec3(1, 1, 1)}, &s.cube},
		{"sphere", &mesh.SphereRecipe{Radius: 1.5, LatitudinalSegments: 16, LongitudinalSegments: 32}, &s.sphere},
		{"cylinder", &mesh.CylinderRecipe{Length: 3, Radius0: 0.8, Radius1: 0.4, AxialSegments: 4, RadialSegments: 24}, &s.cylinder},
		{"axes", &mesh.AxesRecipe{Length: 4}, &s.axes},
	}
	for _, r := range recipes {
		m, err := mesh.Generate(r.recipe)
		if err != nil {
			return fmt.Errorf("generating %s: %w", r.name, err)
		}
		gm, err := s.renderer.UploadMesh(m, r.name)
		if err != nil {
			return err
		}
		*r.out = gm
		core.LogDebug("mesh %s: %d vertices, %d indices", r.name, m.VertexCount, m.IndexCount)
	}

	tether, err := vulkan.NewPipelinedBuffer(s.renderer.Context, s.renderer.Frames.Depth(), tetherVertexBytes,
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit), "tether")
	if err != nil {
		return err
	}
	s.tether = tether
	s.tetherBytes = make([]byte, tetherVertexBytes)
	return nil
}

// createTexture loads the first texture asset found, falling back to a
// generated checkerboard.
func (g *TestGame) createTexture() error {
	s := g.state()
	for _, name := range textureCandidates {
		info, ok := s.engine.Assets().Lookup(name)
		if !ok {
			continue
		}
		tex, err := s.renderer.LoadTexture(info.FullPath, true)
		if err != nil {
			core.LogWarn("texture %s unusable: %s", name, err)
			continue
		}
		s.texture, s.textureName = tex, name
		return nil
	}
	core.LogInfo("no texture asset found, using a checkerboard")
	tex, err := vulkan.CreateTexture(s.renderer.Context, nil, checkerboard(256, 8), true, "checkerboard")
	if err != nil {
		return err
	}
	s.texture, s.textureName = tex, ""
	return nil
}

func (g *TestGame) createDescriptors() error {
	s := g.state()
	vc := s.renderer.Context

	samplerInfo := vulkan.SamplerCreateInfo(vk.FilterLinear, vk.SamplerMipmapModeLinear, vk.SamplerAddressModeRepeat)
	var err error
	if s.sampler, err = vulkan.CreateSampler(vc, &samplerInfo, "swarm"); err != nil {
		return err
	}

	config := &vulkan.VulkanDescriptorSetConfig{}
	config.AddBinding(0, vk.DescriptorTypeUniformBufferDynamic, 1, vk.ShaderStageVertexBit).
		AddBinding(1, vk.DescriptorTypeCombinedImageSampler, 1, vk.ShaderStageFragmentBit)
	if s.setLayout, err = config.CreateLayout(vc, "swarm"); err != nil {
		return err
	}
	sizes := vulkan.DescriptorPoolSizes(config.PoolCounts(1))
	if s.pool, err = vulkan.CreateDescriptorPool(vc, 1, sizes, 0, "swarm"); err != nil {
		return err
	}
	sets, err := vulkan.AllocateDescriptorSets(vc, s.pool, s.setLayout, 1, "swarm")
	if err != nil {
		return err
	}
	s.set = sets[0]
	g.writeDescriptors()
	return nil
}

func (g *TestGame) writeDescriptors() {
	s := g.state()
	w := &vulkan.DescriptorWriter{Set: s.set}
	w.Buffer(0, vk.DescriptorTypeUniformBufferDynamic, s.renderer.Frames.UniformBuffer(), 0, sceneUniformBytes).
		CombinedImageSampler(1, s.texture.View, s.sampler, vk.ImageLayoutShaderReadOnlyOptimal).
		Update(s.renderer.Context)
}

func (g *TestGame) loadStage(name string, stage vk.ShaderStageFlagBits) (*vulkan.VulkanShaderStage, error) {
	s := g.state()
	res, err := s.engine.Assets().Load(name, nil)
	if err != nil {
		if errors.Is(err, assets.ErrAssetNotFound) {
			return nil, fmt.Errorf("%w (run `mage build:shaders`)", err)
		}
		return nil, err
	}
	defer s.engine.Assets().Unload(res)
	code, ok := res.Data.([]uint32)
	if !ok {
		return nil, fmt.Errorf("%s is not a shader: %w", name, core.ErrInvalidArgument)
	}
	st, err := vulkan.NewShaderStage(s.renderer.Context, code, stage, name)
	if err != nil {
		return nil, err
	}
	s.stages = append(s.stages, st)
	return st, nil
}

func (g *TestGame) createPipelines() error {
	s := g.state()
	vert, err := g.loadStage(vertexShaderAsset, vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	frag, err := g.loadStage(fragmentShaderAsset, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	linesFrag, err := g.loadStage(linesShaderAsset, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}

	config := &vulkan.VulkanPipelineConfig{
		Renderpass:           s.renderer.Renderpass,
		MeshFormat:           s.cube.Format,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{s.setLayout},
		Stages:               []vk.PipelineShaderStageCreateInfo{vert.ShaderStageCreateInfo, frag.ShaderStageCreateInfo},
		CullMode:             vk.CullModeBackBit,
		FrontFace:            vk.FrontFaceCounterClockwise,
		DepthTest:            true,
		DepthWrite:           true,
	}
	if s.triangles, err = vulkan.NewGraphicsPipeline(s.renderer.Context, config, "swarm triangles"); err != nil {
		return err
	}

	config.MeshFormat = s.axes.Format
	config.Stages = []vk.PipelineShaderStageCreateInfo{vert.ShaderStageCreateInfo, linesFrag.ShaderStageCreateInfo}
	config.CullMode = vk.CullModeNone
	s.lines, err = vulkan.NewGraphicsPipeline(s.renderer.Context, config, "swarm lines")
	return err
}

// createOverlay sets up the timing text. A missing font only disables it.
func (g *TestGame) createOverlay() error {
	s := g.state()
	res, err := s.engine.Assets().Load(overlayFontAsset, nil)
	if errors.Is(err, assets.ErrAssetNotFound) {
		core.LogWarn("no overlay font, timings go to the log only")
		return nil
	}
	if err != nil {
		return err
	}
	defer s.engine.Assets().Unload(res)
	font, ok := res.Data.(*loaders.BitmapFont)
	if !ok {
		return fmt.Errorf("%s is not a bitmap font: %w", overlayFontAsset, core.ErrInvalidArgument)
	}

	vert, err := g.loadStage(textVertexAsset, vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	frag, err := g.loadStage(textFragmentAsset, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	s.text, err = vulkan.NewTextRenderer(s.renderer.Context, &vulkan.TextRendererConfig{
		Font:       font,
		Renderpass: s.renderer.Renderpass,
		Stages:     []vk.PipelineShaderStageCreateInfo{vert.ShaderStageCreateInfo, frag.ShaderStageCreateInfo},
		Depth:      s.renderer.Frames.Depth(),
		MaxGlyphs:  overlayGlyphs,
	}, "overlay")
	return err
}

func (g *TestGame) Update(deltaTime float64) error {
	s := g.state()
	s.time += deltaTime

	if input := s.engine.Platform().Input; input != nil {
		s.cameraYaw += float32(input.GetDigital(platform.DIGITAL_LPAD_RIGHT)-input.GetDigital(platform.DIGITAL_LPAD_LEFT)) * float32(deltaTime)
		s.cameraDistance -= float32(input.GetDigital(platform.DIGITAL_LPAD_UP)-input.GetDigital(platform.DIGITAL_LPAD_DOWN)) * 8 * float32(deltaTime)
		s.cameraDistance = math.Clamp(s.cameraDistance, 4, 40)
	}

	for i := 0; i < swarmCount; i++ {
		s.models[i] = swarmTransform(i, s.time)
	}
	spin := math.NewMat4AxisAngle(math.NewVec3(0, 1, 0), float32(s.time*0.7))
	s.models[sphereObject] = spin.Mul(math.NewMat4Translation(math.NewVec3(0, 5, 0)))
	s.models[cylinderObject] = spin.Mul(math.NewMat4Translation(math.NewVec3(0, -5, 0)))
	s.models[axesObject] = math.NewMat4Identity()

	s.overlayAge += deltaTime
	if s.overlay == "" || s.overlayAge >= overlayRefresh {
		m := s.engine.Metrics()
		s.overlay = overlayText(m.FPS(), m.FrameTime(), s.renderer.Frames.FrameTimes())
		s.overlayAge = 0
	}

	// sphere centre to the first cube
	first := s.models[0].Data
	if err := packTether(s.tetherBytes, math.NewVec3(0, 5, 0), math.NewVec3(first[12], first[13], first[14]), math.NewVec3(1, 1, 0)); err != nil {
		return err
	}

	eye := math.NewVec3(
		s.cameraDistance*float32(stdmath.Sin(float64(s.cameraYaw))),
		s.cameraDistance*0.45,
		s.cameraDistance*float32(stdmath.Cos(float64(s.cameraYaw))),
	)
	view := math.NewMat4LookAt(eye, math.NewVec3(0, 0, 0), math.NewVec3(0, 1, 0))
	aspect := float32(max(s.width, 1)) / float32(max(s.height, 1))
	proj := math.NewMat4Perspective(stdmath.Pi/3, aspect, 0.1, 100)
	s.viewProj = view.Mul(proj).Mul(math.NewMat4ClipFixup())
	return nil
}

func (g *TestGame) Render(frame *vulkan.FrameContext, deltaTime float64) error {
	s := g.state()
	if err := packScene(frame.Uniforms, s.viewProj, s.models); err != nil {
		return err
	}
	cb := frame.CommandBuffer
	sets := []vk.DescriptorSet{s.set}
	offsets := []uint32{frame.UniformOffset}

	s.triangles.Bind(cb, vk.PipelineBindPointGraphics)
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, s.triangles.PipelineLayout, 0, 1, sets, 1, offsets)
	s.cube.Draw(cb.Handle, 0, swarmCount)
	s.sphere.Draw(cb.Handle, sphereObject, 1)
	s.cylinder.Draw(cb.Handle, cylinderObject, 1)

	s.lines.Bind(cb, vk.PipelineBindPointGraphics)
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, s.lines.PipelineLayout, 0, 1, sets, 1, offsets)
	s.axes.Draw(cb.Handle, axesObject, 1)

	if err := s.tether.Load(s.renderer.Context, frame.Index, s.tetherBytes, 0); err != nil {
		return err
	}
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{s.tether.Handle(frame.Index)}, []vk.DeviceSize{0})
	vk.CmdDraw(cb.Handle, 2, 1, 0, axesObject)

	if s.text != nil {
		s.text.Begin(frame.Index)
		s.text.DrawString(cb, frame.Index, s.overlay, 8, 8, s.width, s.height)
	}

	if frame.GPUSeconds >= 0 && frame.Frame%gpuLogInterval == 0 {
		core.LogInfo("frame %d: GPU %.3f ms, average %.3f ms", frame.Frame, frame.GPUSeconds*1000, s.renderer.Frames.FrameTimes())
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	s := g.state()
	s.width, s.height = width, height
	return nil
}

func (g *TestGame) onSwapchainRecreated(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	s := g.state()
	s.width, s.height = s.renderer.Extent()
	return false
}

// onAssetChanged reloads the texture when its file is rewritten.
func (g *TestGame) onAssetChanged(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	s := g.state()
	if s.textureName == "" || data.Name != s.textureName {
		return false
	}
	info, ok := s.engine.Assets().Lookup(data.Name)
	if !ok {
		return false
	}
	tex, err := s.renderer.LoadTexture(info.FullPath, true)
	if err != nil {
		core.LogWarn("reloading %s: %s", data.Name, err)
		return false
	}
	// the old image may still be sampled by frames in flight
	if err := s.renderer.Frames.WaitIdle(); err != nil {
		core.LogError("waiting for frames: %s", err)
	}
	s.texture.Destroy(s.renderer.Context)
	s.texture = tex
	g.writeDescriptors()
	core.LogInfo("texture %s reloaded", data.Name)
	return true
}

func (g *TestGame) Shutdown() error {
	s := g.state()
	if s.renderer == nil {
		return nil
	}
	vc := s.renderer.Context
	if s.text != nil {
		s.text.Destroy(vc)
		s.text = nil
	}
	for _, p := range []*vulkan.VulkanPipeline{s.triangles, s.lines} {
		if p != nil {
			p.Destroy(vc)
		}
	}
	for _, st := range s.stages {
		st.Destroy(vc)
	}
	s.stages = nil
	vulkan.DestroyDescriptorPool(vc, s.pool)
	vulkan.DestroyDescriptorSetLayout(vc, s.setLayout)
	vulkan.DestroySampler(vc, s.sampler)
	if s.texture != nil {
		s.texture.Destroy(vc)
	}
	for _, m := range []*vulkan.GPUMesh{s.cube, s.sphere, s.cylinder, s.axes} {
		if m != nil {
			m.Destroy(vc)
		}
	}
	if s.tether != nil {
		s.tether.Destroy(vc)
	}
	core.LogInfo("testbed shut down")
	return nil
}
