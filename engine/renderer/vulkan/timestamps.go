package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

// TimestampQueryPool holds idsPerFrame timestamp queries for each pipelined
// frame in one query pool.
type TimestampQueryPool struct {
	Handle      vk.QueryPool
	frames      uint32
	idsPerFrame uint32
	validBits   uint32
	period      float32
	raw         []uint64
}

func NewTimestampQueryPool(vc *VulkanContext, frames, idsPerFrame uint32, name string) (*TimestampQueryPool, error) {
	validBits := vc.Device.TimestampValidBits()
	if validBits == 0 {
		return nil, fmt.Errorf("graphics queue does not support timestamps: %w", core.ErrFeatureMissing)
	}
	ci := vk.QueryPoolCreateInfo{
		SType:      vk.StructureTypeQueryPoolCreateInfo,
		QueryType:  vk.QueryTypeTimestamp,
		QueryCount: frames * idsPerFrame,
	}
	pool, err := CreateQueryPool(vc, &ci, name)
	if err != nil {
		return nil, err
	}
	return &TimestampQueryPool{
		Handle:      pool,
		frames:      frames,
		idsPerFrame: idsPerFrame,
		validBits:   validBits,
		period:      vc.Device.TimestampPeriod(),
		// value and availability word per query
		raw: make([]uint64, 2*idsPerFrame),
	}, nil
}

func (tp *TimestampQueryPool) first(frame uint32) uint32 { return frame * tp.idsPerFrame }

// Reset records the reset of every query of frame. It must precede the
// frame's writes in the same command buffer.
func (tp *TimestampQueryPool) Reset(cb vk.CommandBuffer, frame uint32) {
	vk.CmdResetQueryPool(cb, tp.Handle, tp.first(frame), tp.idsPerFrame)
}

func (tp *TimestampQueryPool) Write(cb vk.CommandBuffer, frame uint32, stage vk.PipelineStageFlagBits, id uint32) {
	vk.CmdWriteTimestamp(cb, stage, tp.Handle, tp.first(frame)+id)
}

// Results reads back the timestamps of frame in seconds. Queries the GPU
// has not written yet make it return ErrNotReady.
func (tp *TimestampQueryPool) Results(vc *VulkanContext, frame uint32) ([]float64, error) {
	flags := vk.QueryResultFlags(vk.QueryResult64Bit | vk.QueryResultWithAvailabilityBit)
	res := vk.GetQueryPoolResults(vc.Device.LogicalDevice, tp.Handle, tp.first(frame), tp.idsPerFrame,
		uint(len(tp.raw)*8), unsafe.Pointer(&tp.raw[0]), vk.DeviceSize(16), flags)
	if res != vk.Success && res != vk.NotReady {
		return nil, check(res, "vkGetQueryPoolResults")
	}
	seconds, ok := decodeTimestamps(tp.raw, tp.validBits, tp.period)
	if !ok {
		return seconds, fmt.Errorf("timestamps of frame %d: %w", frame, core.ErrNotReady)
	}
	return seconds, nil
}

func (tp *TimestampQueryPool) Destroy(vc *VulkanContext) {
	DestroyQueryPool(vc, tp.Handle)
	tp.Handle = nil
}

// decodeTimestamps turns (value, availability) pairs into seconds. Bits
// above validBits are garbage and masked off. ok is false when any query
// was unavailable; its entry is zero.
func decodeTimestamps(raw []uint64, validBits uint32, periodNS float32) (seconds []float64, ok bool) {
	mask := ^uint64(0)
	if validBits < 64 {
		mask = (uint64(1) << validBits) - 1
	}
	ok = true
	seconds = make([]float64, len(raw)/2)
	for i := range seconds {
		if raw[2*i+1] == 0 {
			ok = false
			continue
		}
		seconds[i] = float64(raw[2*i]&mask) * float64(periodNS) * 1e-9
	}
	return seconds, ok
}
