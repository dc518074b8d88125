package vulkan

import (
	"errors"
	"math"
	"sort"
	"sync"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

func TestFlatBump(t *testing.T) {
	tests := []struct {
		name                        string
		top, align, size, base, max uint64
		wantAligned, wantTop        uint64
		ok                          bool
	}{
		{"aligned already", 256, 256, 64, 0, 1024, 256, 320, true},
		{"align up", 1, 256, 64, 0, 1024, 256, 320, true},
		{"zero alignment", 7, 0, 1, 0, 1024, 7, 8, true},
		{"exact fit", 960, 64, 64, 0, 1024, 960, 1024, true},
		{"past max", 961, 64, 64, 0, 1024, 0, 0, false},
		{"below base", 0, 1, 16, 32, 1024, 0, 0, false},
		{"size wraps", 16, 16, math.MaxUint64 - 8, 0, math.MaxUint64, 0, 0, false},
		{"align wraps", math.MaxUint64 - 2, 16, 1, 0, math.MaxUint64, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aligned, top, ok := flatBump(tt.top, tt.align, tt.size, tt.base, tt.max)
			if ok != tt.ok {
				t.Fatalf("ok = %t, want %t", ok, tt.ok)
			}
			if ok && (aligned != tt.wantAligned || top != tt.wantTop) {
				t.Errorf("got (%d, %d), want (%d, %d)", aligned, top, tt.wantAligned, tt.wantTop)
			}
		})
	}
}

func allocInfo(size uint64, memoryType uint32) *vk.MemoryAllocateInfo {
	return &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryType,
	}
}

func TestFlatArenaAllocate(t *testing.T) {
	for _, flags := range []ArenaFlags{0, ArenaFlagSingleThread} {
		arena := NewFlatArenaFromMemory(nil, 3, 0, 1024, flags)

		if _, off, err := arena.Allocate(allocInfo(100, 3), 16); err != nil || off != 0 {
			t.Fatalf("first allocation: offset %d, err %v", off, err)
		}
		if _, off, err := arena.Allocate(allocInfo(100, 3), 256); err != nil || off != 256 {
			t.Fatalf("second allocation: offset %d, err %v", off, err)
		}
		if got := arena.Top(); got != 356 {
			t.Errorf("top = %d, want 356", got)
		}

		if _, _, err := arena.Allocate(allocInfo(16, 2), 16); !errors.Is(err, core.ErrOutOfDeviceMemory) {
			t.Errorf("memory type mismatch: got %v", err)
		}
		if _, _, err := arena.Allocate(allocInfo(1024, 3), 16); !errors.Is(err, core.ErrOutOfDeviceMemory) {
			t.Errorf("overflow: got %v", err)
		}
		if got := arena.Top(); got != 356 {
			t.Errorf("failed allocations moved top to %d", got)
		}

		arena.Free(nil, 0)
		if got := arena.Top(); got != 356 {
			t.Errorf("free moved top to %d", got)
		}
	}
}

func TestFlatArenaBaseOffset(t *testing.T) {
	arena := NewFlatArenaFromMemory(nil, 0, 4096, 8192, 0)
	_, off, err := arena.Allocate(allocInfo(64, 0), 1)
	if err != nil || off != 4096 {
		t.Fatalf("offset %d, err %v", off, err)
	}
}

func TestFlatArenaConcurrent(t *testing.T) {
	const (
		workers = 8
		perG    = 200
		size    = 24
		align   = 32
	)
	arena := NewFlatArenaFromMemory(nil, 0, 0, workers*perG*align, 0)

	var (
		mu      sync.Mutex
		offsets []uint64
		wg      sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uint64, 0, perG)
			for i := 0; i < perG; i++ {
				_, off, err := arena.Allocate(allocInfo(size, 0), align)
				if err != nil {
					t.Error(err)
					return
				}
				local = append(local, off)
			}
			mu.Lock()
			offsets = append(offsets, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(offsets) != workers*perG {
		t.Fatalf("got %d allocations", len(offsets))
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	for i, off := range offsets {
		if off%align != 0 {
			t.Fatalf("offset %d is not aligned", off)
		}
		if i > 0 && off < offsets[i-1]+size {
			t.Fatalf("allocations at %d and %d overlap", offsets[i-1], off)
		}
	}
	if _, _, err := arena.Allocate(allocInfo(size, 0), align); !errors.Is(err, core.ErrOutOfDeviceMemory) {
		t.Errorf("full arena accepted another allocation: %v", err)
	}
}
