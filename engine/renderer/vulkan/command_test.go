package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestRecordingBeforeBeginPoisonsBuffer(t *testing.T) {
	cb := &CommandBuffer{State: CommandBufferStateReady}

	cb.Dispatch(1, 1, 1)
	assert.Error(t, cb.Err())
	assert.Equal(t, CommandBufferStateReady, cb.State)
}

func TestEndWithoutRecording(t *testing.T) {
	cb := &CommandBuffer{State: CommandBufferStateReady}
	assert.Error(t, cb.End())
}

func TestSubmitWithoutEnd(t *testing.T) {
	cb := &CommandBuffer{State: CommandBufferStateRecording}
	assert.Error(t, cb.Submit(nil, nil, nil, nil, vk.NullFence))
}

func TestStickyErrorSuppressesLaterCalls(t *testing.T) {
	cb := &CommandBuffer{State: CommandBufferStateReady}

	cb.Dispatch(1, 1, 1)
	first := cb.Err()
	assert.Error(t, first)

	// Later calls keep the original error and never touch the handle.
	cb.BlitImage(nil, nil)
	assert.Equal(t, first, cb.Err())
	assert.ErrorIs(t, cb.End(), first)
}

func TestRequireAcceptsMatchingState(t *testing.T) {
	cb := &CommandBuffer{State: CommandBufferStateRecording}
	assert.True(t, cb.require(CommandBufferStateRecording, "op"))
	assert.NoError(t, cb.Err())
}

func TestDrawOutsideRenderPass(t *testing.T) {
	cb := &CommandBuffer{State: CommandBufferStateRecording}

	cb.Draw(3)
	assert.Error(t, cb.Err())
}

func TestEndWhileInRenderPass(t *testing.T) {
	cb := &CommandBuffer{State: CommandBufferStateInRenderPass}
	assert.Error(t, cb.End(), "an open render pass must be ended first")
}

func TestEndRenderPassWithoutBegin(t *testing.T) {
	cb := &CommandBuffer{State: CommandBufferStateRecording}

	cb.EndRenderPass()
	assert.Error(t, cb.Err())
}

func TestDispatchInsideRenderPass(t *testing.T) {
	cb := &CommandBuffer{State: CommandBufferStateInRenderPass}

	cb.Dispatch(1, 1, 1)
	assert.Error(t, cb.Err())
}
