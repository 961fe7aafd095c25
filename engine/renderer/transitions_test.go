package renderer

import (
	"testing"

	"github.com/ashenvale/prism/engine/renderer/vulkan"
	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestRenderTargetTransitionsChain(t *testing.T) {
	// The render target's layout over a two pass frame.
	hops := []vulkan.TransitionLayoutOptions{
		TransitionFrameStart(),
		TransitionBetweenPasses(),
		TransitionToBlitSource(),
	}

	assert.Equal(t, vk.ImageLayoutUndefined, hops[0].Old)
	for i := 1; i < len(hops); i++ {
		assert.Equal(t, hops[i-1].New, hops[i].Old, "hop %d must start where hop %d ended", i, i-1)
	}
	assert.Equal(t, vk.ImageLayoutTransferSrcOptimal, hops[len(hops)-1].New)
}

func TestSwapchainImageTransitionsChain(t *testing.T) {
	blit := TransitionToBlitTarget()
	present := TransitionToPresent()

	assert.Equal(t, vk.ImageLayoutUndefined, blit.Old)
	assert.Equal(t, blit.New, present.Old)
	assert.Equal(t, vk.ImageLayoutPresentSrc, present.New)
}

func TestTransitionStagesMatchAccessSides(t *testing.T) {
	// Each barrier's source side must wait on exactly what the previous hop
	// made visible.
	between := TransitionBetweenPasses()
	assert.Equal(t, TransitionFrameStart().DestinationAccess, between.SourceAccess)
	assert.Equal(t, vk.AccessFlags(vk.AccessShaderWriteBit), between.SourceAccess)

	blitSource := TransitionToBlitSource()
	assert.Equal(t, vk.AccessFlags(vk.AccessShaderWriteBit), blitSource.SourceAccess)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), blitSource.SourceStage)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferReadBit), blitSource.DestinationAccess)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), blitSource.DestinationStage)

	// Discarding transitions must not claim any prior access to wait on.
	assert.Zero(t, TransitionFrameStart().SourceAccess)
	assert.Zero(t, TransitionToBlitTarget().SourceAccess)
}

func TestWorkgroupCountCoversEdges(t *testing.T) {
	assert.Equal(t, uint32(30), vulkan.WorkgroupCount(480, 16))
	assert.Equal(t, uint32(17), vulkan.WorkgroupCount(270, 16))
	assert.Equal(t, uint32(1), vulkan.WorkgroupCount(1, 16))
	assert.Equal(t, uint32(0), vulkan.WorkgroupCount(0, 16))
}
