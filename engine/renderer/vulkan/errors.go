package vulkan

import "errors"

var (
	// ErrNoCompatibleHeap is returned when no device memory type satisfies
	// both the resource's type bits and the requested property flags.
	ErrNoCompatibleHeap = errors.New("no compatible memory type for allocation")

	// ErrHeapExhausted is returned when no free region of the heap is large
	// enough for the requested size and alignment.
	ErrHeapExhausted = errors.New("memory heap exhausted")

	// ErrDoubleFree is returned when an allocation is freed twice, whether
	// the first free has been flushed yet or not.
	ErrDoubleFree = errors.New("allocation already freed")

	// ErrWriteOverflow is returned when a write would run past the end of
	// its allocation.
	ErrWriteOverflow = errors.New("write exceeds allocation bounds")

	// ErrNotHostVisible is returned when writing to an allocation that
	// lives in device-local memory without host access.
	ErrNotHostVisible = errors.New("allocation is not host visible")

	// ErrOutOfDate signals that the swapchain no longer matches the surface
	// and must be recreated before rendering can continue.
	ErrOutOfDate = errors.New("swapchain out of date")

	// ErrFenceTimeout is returned when the in-flight fence does not signal
	// within the frame timeout. The device is considered hung.
	ErrFenceTimeout = errors.New("timed out waiting for frame fence")

	// ErrPoolExhausted is returned when a descriptor pool has no capacity
	// left for another set.
	ErrPoolExhausted = errors.New("descriptor pool exhausted")
)
