package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/containers"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	amath "github.com/spaghettifunk/anima-gpu/engine/math"
)

// Timestamp slots written in every frame.
const (
	TimestampBeginFrame uint32 = iota
	TimestampEndFrame
	timestampsPerFrame
)

const frameTimeSamples = 64

// FrameState is everything one pipelined frame owns.
type FrameState struct {
	CommandBuffer  *VulkanCommandBuffer
	Fence          *VulkanFence
	ImageReady     vk.Semaphore
	RenderComplete vk.Semaphore
	UniformOffset  uint64
}

// FrameContext is handed to the host between BeginFrame and EndFrame.
type FrameContext struct {
	// Index is the pipelined frame, Frame the absolute frame counter.
	Index         int
	Frame         uint64
	ImageIndex    uint32
	CommandBuffer *VulkanCommandBuffer
	// Uniforms is this frame's slice of the mapped dynamic uniform ring and
	// UniformOffset the matching dynamic offset.
	Uniforms      []byte
	UniformOffset uint32
	// GPUSeconds is the GPU time of the frame that last used Index, negative
	// when unknown.
	GPUSeconds float64
}

// FrameLoop drives depth frames in flight. The host records draws between
// BeginFrame and EndFrame.
type FrameLoop struct {
	vc     *VulkanContext
	frames []FrameState
	pool   vk.CommandPool

	Timestamps *TimestampQueryPool

	uniforms      *VulkanBuffer
	uniformMapped []byte
	uniformBytes  uint64
	uniformStride uint64

	counter    uint64
	frameTimes *containers.RingQueue[float64]

	// SurfaceSize reports the framebuffer size used for swapchain rebuilds.
	SurfaceSize func() (uint32, uint32)
	// OnSwapchainRecreated runs after every rebuild so the host can
	// recreate framebuffers and depth images.
	OnSwapchainRecreated func() error
}

func NewFrameLoop(vc *VulkanContext, depth int, uniformBytesPerFrame uint64) (*FrameLoop, error) {
	if depth < 1 {
		return nil, fmt.Errorf("frame depth %d: %w", depth, core.ErrInvalidArgument)
	}
	fl := &FrameLoop{
		vc:           vc,
		frames:       make([]FrameState, depth),
		uniformBytes: uniformBytesPerFrame,
		frameTimes:   containers.NewRingQueue[float64](frameTimeSamples),
		SurfaceSize: func() (uint32, uint32) {
			return vc.FramebufferWidth, vc.FramebufferHeight
		},
	}

	var err error
	fl.pool, err = CreateCommandPool(vc, vc.Device.GraphicsQueueIndex, vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit), "frame loop")
	if err != nil {
		return nil, err
	}

	if uniformBytesPerFrame > 0 {
		fl.uniformStride = amath.AlignUp(uniformBytesPerFrame, max(vc.Device.MinUniformBufferOffsetAlignment(), 1))
		fl.uniforms, err = NewVulkanBuffer(vc, nil, fl.uniformStride*uint64(depth),
			vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit), "dynamic uniforms")
		if err != nil {
			fl.Destroy()
			return nil, err
		}
		if fl.uniformMapped, err = MapAllocation(vc, fl.uniforms.Allocation); err != nil {
			fl.Destroy()
			return nil, err
		}
	}

	for i := range fl.frames {
		fs := &fl.frames[i]
		fs.UniformOffset = uint64(i) * fl.uniformStride
		if fs.CommandBuffer, err = NewVulkanCommandBuffer(vc, fl.pool, true, fmt.Sprintf("frame %d", i)); err != nil {
			fl.Destroy()
			return nil, err
		}
		// Signaled so the first wait on every frame returns at once.
		if fs.Fence, err = NewFence(vc, true, fmt.Sprintf("frame %d", i)); err != nil {
			fl.Destroy()
			return nil, err
		}
		if fs.ImageReady, err = CreateSemaphore(vc, fmt.Sprintf("frame %d image ready", i)); err != nil {
			fl.Destroy()
			return nil, err
		}
		if fs.RenderComplete, err = CreateSemaphore(vc, fmt.Sprintf("frame %d render complete", i)); err != nil {
			fl.Destroy()
			return nil, err
		}
	}

	fl.Timestamps, err = NewTimestampQueryPool(vc, uint32(depth), timestampsPerFrame, "frame timestamps")
	if errors.Is(err, core.ErrFeatureMissing) {
		core.LogWarn("GPU frame times unavailable: %s", err)
	} else if err != nil {
		fl.Destroy()
		return nil, err
	}
	return fl, nil
}

func (fl *FrameLoop) Depth() int { return len(fl.frames) }

// Counter is the number of frames submitted so far.
func (fl *FrameLoop) Counter() uint64 { return fl.counter }

func (fl *FrameLoop) UniformBuffer() vk.Buffer {
	if fl.uniforms == nil {
		return vk.NullBuffer
	}
	return fl.uniforms.Handle
}

// UniformRange is the size of one frame's uniform region.
func (fl *FrameLoop) UniformRange() uint64 { return fl.uniformBytes }

// Seed writes every timestamp of every frame once so the first depth frames
// read back defined values.
func (fl *FrameLoop) Seed() error {
	if fl.Timestamps == nil {
		return nil
	}
	return RunOneShot(fl.vc, "seed timestamps", func(cb vk.CommandBuffer) error {
		for f := uint32(0); f < uint32(len(fl.frames)); f++ {
			fl.Timestamps.Reset(cb, f)
			for id := uint32(0); id < timestampsPerFrame; id++ {
				fl.Timestamps.Write(cb, f, vk.PipelineStageTopOfPipeBit, id)
			}
		}
		return nil
	})
}

// BeginFrame waits for the pipelined frame to retire, acquires a swapchain
// image and starts recording. When the swapchain was out of date it is
// rebuilt and an error wrapping core.ErrSwapchainOutOfDate is returned; the
// host skips that iteration.
func (fl *FrameLoop) BeginFrame() (*FrameContext, error) {
	vframe := int(fl.counter % uint64(len(fl.frames)))
	fs := &fl.frames[vframe]
	if err := fs.Fence.Wait(fl.vc, vk.MaxUint64); err != nil {
		return nil, err
	}
	gpu := fl.readTimestamps(uint32(vframe))

	imageIndex, err := fl.vc.Swapchain.AcquireNextImage(fl.vc, vk.MaxUint64, fs.ImageReady, vk.NullFence)
	if errors.Is(err, core.ErrSwapchainOutOfDate) {
		if rerr := fl.RebuildSwapchain(); rerr != nil {
			return nil, rerr
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	// Reset only once a submission is certain to follow, or the next wait
	// would never return.
	if err := fs.Fence.Reset(fl.vc); err != nil {
		return nil, err
	}
	cb := fs.CommandBuffer
	if err := cb.Reset(); err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		return nil, err
	}
	if fl.Timestamps != nil {
		fl.Timestamps.Reset(cb.Handle, uint32(vframe))
		fl.Timestamps.Write(cb.Handle, uint32(vframe), vk.PipelineStageTopOfPipeBit, TimestampBeginFrame)
	}

	fc := &FrameContext{
		Index:         vframe,
		Frame:         fl.counter,
		ImageIndex:    imageIndex,
		CommandBuffer: cb,
		UniformOffset: uint32(fs.UniformOffset),
		GPUSeconds:    gpu,
	}
	if fl.uniformMapped != nil {
		fc.Uniforms = fl.uniformMapped[fs.UniformOffset : fs.UniformOffset+fl.uniformBytes]
	}
	return fc, nil
}

// EndFrame finishes recording, submits and presents. A swapchain that went
// out of date during present is rebuilt before returning.
func (fl *FrameLoop) EndFrame(fc *FrameContext) error {
	fs := &fl.frames[fc.Index]
	cb := fs.CommandBuffer
	if fl.Timestamps != nil {
		fl.Timestamps.Write(cb.Handle, uint32(fc.Index), vk.PipelineStageBottomOfPipeBit, TimestampEndFrame)
	}
	if err := cb.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{fs.ImageReady},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{fs.RenderComplete},
	}
	err := fl.vc.locks.SafeQueueCall(fl.vc.Device.GraphicsQueueIndex, func() error {
		return check(vk.QueueSubmit(fl.vc.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fs.Fence.Handle), "vkQueueSubmit")
	})
	if err != nil {
		return err
	}
	cb.UpdateSubmitted()
	fl.counter++

	err = fl.vc.Swapchain.Present(fl.vc, fs.RenderComplete, fc.ImageIndex)
	if errors.Is(err, core.ErrSwapchainOutOfDate) {
		return fl.RebuildSwapchain()
	}
	return err
}

func (fl *FrameLoop) readTimestamps(frame uint32) float64 {
	if fl.Timestamps == nil {
		return -1
	}
	seconds, err := fl.Timestamps.Results(fl.vc, frame)
	if err != nil {
		if !errors.Is(err, core.ErrNotReady) {
			core.LogWarn("reading timestamps of frame %d: %s", frame, err)
		}
		return -1
	}
	gpu := seconds[TimestampEndFrame] - seconds[TimestampBeginFrame]
	if gpu < 0 {
		return -1
	}
	fl.frameTimes.Push(gpu)
	return gpu
}

// FrameTimes is the average GPU frame time in milliseconds over the recent
// frames, zero before any were measured.
func (fl *FrameLoop) FrameTimes() float64 {
	if fl.frameTimes.Len() == 0 {
		return 0
	}
	var sum float64
	fl.frameTimes.Each(func(s float64) { sum += s })
	return sum / float64(fl.frameTimes.Len()) * 1000.0
}

func (fl *FrameLoop) RebuildSwapchain() error {
	width, height := fl.SurfaceSize()
	if err := fl.vc.RecreateSwapchain(width, height); err != nil {
		return err
	}
	if fl.OnSwapchainRecreated != nil {
		return fl.OnSwapchainRecreated()
	}
	return nil
}

// WaitIdle blocks until every frame in flight has retired.
func (fl *FrameLoop) WaitIdle() error {
	for i := range fl.frames {
		if f := fl.frames[i].Fence; f != nil {
			if err := f.Wait(fl.vc, vk.MaxUint64); err != nil {
				return err
			}
		}
	}
	return nil
}

func (fl *FrameLoop) Destroy() {
	if err := fl.vc.WaitIdle(); err != nil {
		core.LogError("frame loop teardown: %s", err)
	}
	for i := range fl.frames {
		fs := &fl.frames[i]
		DestroySemaphore(fl.vc, fs.ImageReady)
		DestroySemaphore(fl.vc, fs.RenderComplete)
		if fs.Fence != nil {
			fs.Fence.Destroy(fl.vc)
		}
		fs.CommandBuffer = nil
	}
	fl.frames = nil
	// destroying the pool frees the frame command buffers
	DestroyCommandPool(fl.vc, fl.pool)
	fl.pool = nil
	if fl.Timestamps != nil {
		fl.Timestamps.Destroy(fl.vc)
		fl.Timestamps = nil
	}
	if fl.uniforms != nil {
		fl.uniforms.Destroy(fl.vc)
		fl.uniforms, fl.uniformMapped = nil, nil
	}
}
