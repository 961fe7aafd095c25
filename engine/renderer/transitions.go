package renderer

import (
	"github.com/ashenvale/prism/engine/renderer/vulkan"
	vk "github.com/goki/vulkan"
)

// The frame moves images through a fixed sequence of layouts. Each
// constructor names one hop so the recording code reads as the sequence
// itself and tests can check the hops chain up.

// TransitionFrameStart makes the render target writable by compute at the
// top of the frame. The previous contents are discarded.
func TransitionFrameStart() vulkan.TransitionLayoutOptions {
	return vulkan.TransitionLayoutOptions{
		Old:               vk.ImageLayoutUndefined,
		New:               vk.ImageLayoutGeneral,
		DestinationAccess: vk.AccessFlags(vk.AccessShaderWriteBit),
		SourceStage:       vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		DestinationStage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
	}
}

// TransitionBetweenPasses orders one compute pass's writes before the next
// pass's reads and writes on the same image. The layout does not change.
func TransitionBetweenPasses() vulkan.TransitionLayoutOptions {
	return vulkan.TransitionLayoutOptions{
		Old:               vk.ImageLayoutGeneral,
		New:               vk.ImageLayoutGeneral,
		SourceAccess:      vk.AccessFlags(vk.AccessShaderWriteBit),
		DestinationAccess: vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
		SourceStage:       vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		DestinationStage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
	}
}

// TransitionToBlitSource hands the finished render target to the transfer
// stage for upscaling.
func TransitionToBlitSource() vulkan.TransitionLayoutOptions {
	return vulkan.TransitionLayoutOptions{
		Old:               vk.ImageLayoutGeneral,
		New:               vk.ImageLayoutTransferSrcOptimal,
		SourceAccess:      vk.AccessFlags(vk.AccessShaderWriteBit),
		DestinationAccess: vk.AccessFlags(vk.AccessTransferReadBit),
		SourceStage:       vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		DestinationStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	}
}

// TransitionToBlitTarget makes the acquired swapchain image a blit
// destination. Its previous contents are discarded.
func TransitionToBlitTarget() vulkan.TransitionLayoutOptions {
	return vulkan.TransitionLayoutOptions{
		Old:               vk.ImageLayoutUndefined,
		New:               vk.ImageLayoutTransferDstOptimal,
		DestinationAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		SourceStage:       vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		DestinationStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	}
}

// TransitionToPresent releases the swapchain image to the presentation
// engine after the blit.
func TransitionToPresent() vulkan.TransitionLayoutOptions {
	return vulkan.TransitionLayoutOptions{
		Old:              vk.ImageLayoutTransferDstOptimal,
		New:              vk.ImageLayoutPresentSrc,
		SourceAccess:     vk.AccessFlags(vk.AccessTransferWriteBit),
		SourceStage:      vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		DestinationStage: vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
	}
}
