package vulkan

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHeap(size uint64) *heap {
	return &heap{size: size}
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(0), alignUp(0, 256))
	assert.Equal(t, uint64(256), alignUp(1, 256))
	assert.Equal(t, uint64(256), alignUp(256, 256))
	assert.Equal(t, uint64(512), alignUp(257, 256))
	assert.Equal(t, uint64(7), alignUp(7, 0))
}

func TestClaimRespectsAlignment(t *testing.T) {
	h := newTestHeap(1 << 20)

	_, err := h.claim(10, 1)
	require.NoError(t, err)

	r, err := h.claim(100, 256)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), r.Offset)
}

func TestClaimedRegionsNeverOverlap(t *testing.T) {
	h := newTestHeap(1 << 20)

	sizes := []uint64{64, 128, 4096, 16, 512}
	for _, size := range sizes {
		_, err := h.claim(size, 64)
		require.NoError(t, err)
	}

	for i := 1; i < len(h.regions); i++ {
		prev := h.regions[i-1]
		assert.LessOrEqual(t, prev.Offset+prev.Size, h.regions[i].Offset)
	}
}

func TestClaimFillsFirstFittingGap(t *testing.T) {
	h := newTestHeap(1 << 20)

	a, err := h.claim(256, 1)
	require.NoError(t, err)
	b, err := h.claim(256, 1)
	require.NoError(t, err)
	_, err = h.claim(256, 1)
	require.NoError(t, err)

	// Punch a hole at b and make it reusable.
	require.NoError(t, h.release(b.id))
	h.flush()

	got, err := h.claim(128, 1)
	require.NoError(t, err)
	assert.Equal(t, b.Offset, got.Offset, "small allocation should land in the first gap")
	assert.Equal(t, uint64(0), a.Offset)
}

func TestClaimExhaustsHeap(t *testing.T) {
	h := newTestHeap(1024)

	_, err := h.claim(1024, 1)
	require.NoError(t, err)

	_, err = h.claim(1, 1)
	assert.ErrorIs(t, err, ErrHeapExhausted)
}

func TestClaimTooLargeForEmptyHeap(t *testing.T) {
	h := newTestHeap(1024)
	_, err := h.claim(2048, 1)
	assert.ErrorIs(t, err, ErrHeapExhausted)
}

func TestAlignmentPaddingCountsAgainstCapacity(t *testing.T) {
	h := newTestHeap(1024)

	_, err := h.claim(1, 1)
	require.NoError(t, err)

	// Aligned up to 512, so 513..1024 leaves room for 512 but not 513.
	_, err = h.claim(513, 512)
	assert.ErrorIs(t, err, ErrHeapExhausted)

	r, err := h.claim(512, 512)
	require.NoError(t, err)
	assert.Equal(t, uint64(512), r.Offset)
}

func TestReleaseIsDeferredUntilFlush(t *testing.T) {
	h := newTestHeap(1024)

	r, err := h.claim(1024, 1)
	require.NoError(t, err)
	require.NoError(t, h.release(r.id))

	// Not flushed yet, the region still occupies the heap.
	_, err = h.claim(1024, 1)
	assert.ErrorIs(t, err, ErrHeapExhausted)

	h.flush()
	got, err := h.claim(1024, 1)
	require.NoError(t, err)
	assert.Equal(t, r.Offset, got.Offset)
}

func TestDoubleFreeBeforeFlush(t *testing.T) {
	h := newTestHeap(1024)

	r, err := h.claim(64, 1)
	require.NoError(t, err)
	require.NoError(t, h.release(r.id))
	assert.ErrorIs(t, h.release(r.id), ErrDoubleFree)
}

func TestDoubleFreeAfterFlush(t *testing.T) {
	h := newTestHeap(1024)

	r, err := h.claim(64, 1)
	require.NoError(t, err)
	require.NoError(t, h.release(r.id))
	h.flush()
	assert.ErrorIs(t, h.release(r.id), ErrDoubleFree)
}

func TestReleaseUnknownID(t *testing.T) {
	h := newTestHeap(1024)
	assert.ErrorIs(t, h.release(42), ErrDoubleFree)
}

func TestStaleFreeOfReusedOffset(t *testing.T) {
	h := newTestHeap(1024)

	a, err := h.claim(64, 1)
	require.NoError(t, err)
	require.NoError(t, h.release(a.id))
	h.flush()

	// b lands on a's old offset but is a different allocation.
	b, err := h.claim(64, 1)
	require.NoError(t, err)
	require.Equal(t, a.Offset, b.Offset)

	assert.ErrorIs(t, h.release(a.id), ErrDoubleFree)
	h.flush()
	assert.Len(t, h.regions, 1, "the live region must survive the stale free")
	assert.Equal(t, b.id, h.regions[0].id)
}

func TestWriteOverflowIsRejectedBeforeTouchingMemory(t *testing.T) {
	a := &Allocator{}
	alloc := &Allocation{heap: newTestHeap(1024), Offset: 0, Size: 16}

	// mapped is nil, so reaching the copy would crash. The bounds check
	// must reject the write first.
	err := a.Write(alloc, make([]byte, 17), 0)
	assert.ErrorIs(t, err, ErrWriteOverflow)

	err = a.Write(alloc, make([]byte, 8), 9)
	assert.ErrorIs(t, err, ErrWriteOverflow)
}

func TestWriteToDeviceLocalAllocation(t *testing.T) {
	a := &Allocator{}
	alloc := &Allocation{heap: newTestHeap(1024), Offset: 0, Size: 16}

	err := a.Write(alloc, make([]byte, 16), 0)
	assert.ErrorIs(t, err, ErrNotHostVisible)
}

func TestDeferredDestroyRunsAtFlush(t *testing.T) {
	a := &Allocator{}

	destroyed := 0
	a.DeferDestroy(func() { destroyed++ })
	assert.Zero(t, destroyed, "handles must survive until the fence has signalled")

	a.FlushFrees()
	assert.Equal(t, 1, destroyed)

	a.FlushFrees()
	assert.Equal(t, 1, destroyed, "each deferred destroy runs once")
}

func TestFragmentationStress(t *testing.T) {
	const heapSize = 1 << 20
	h := newTestHeap(heapSize)
	rng := rand.New(rand.NewSource(7))

	live := map[uint64]region{}
	for i := 0; i < 2000; i++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			for id := range live {
				require.NoError(t, h.release(id))
				delete(live, id)
				break
			}
			h.flush()
			continue
		}

		size := uint64(rng.Intn(4096) + 1)
		alignment := uint64(1) << uint(rng.Intn(9))
		r, err := h.claim(size, alignment)
		if err != nil {
			require.ErrorIs(t, err, ErrHeapExhausted)
			continue
		}
		require.Zero(t, r.Offset%alignment)
		require.LessOrEqual(t, r.Offset+size, uint64(heapSize))
		live[r.id] = r
	}

	for i := 1; i < len(h.regions); i++ {
		prev := h.regions[i-1]
		require.LessOrEqual(t, prev.Offset+prev.Size, h.regions[i].Offset)
	}
}
