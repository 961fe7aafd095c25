package vulkan

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/ashenvale/prism/engine/core"
	vk "github.com/goki/vulkan"
)

type ShaderModule struct {
	Handle vk.ShaderModule
}

// NewShaderModule wraps SPIR-V bytecode. The byte length must be a multiple
// of four, the SPIR-V word size.
func NewShaderModule(device vk.Device, code []byte) (*ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("invalid SPIR-V bytecode length %d", len(code))
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    sliceUint32(code),
	}
	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(device, &createInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create shader module")
		core.LogError("%s", err.Error())
		return nil, err
	}
	return &ShaderModule{Handle: handle}, nil
}

// LoadShaderModule reads a compiled SPIR-V file from disk.
func LoadShaderModule(device vk.Device, path string) (*ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader %s: %w", path, err)
	}
	module, err := NewShaderModule(device, code)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", path, err)
	}
	return module, nil
}

func (s *ShaderModule) Destroy(device vk.Device) {
	vk.DestroyShaderModule(device, s.Handle, nil)
}

func sliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(unsafe.SliceData(data))), len(data)/4)
}

type Pipeline struct {
	Handle    vk.Pipeline
	Layout    vk.PipelineLayout
	BindPoint vk.PipelineBindPoint
}

func newPipelineLayout(device vk.Device, layouts []*SetLayout) (vk.PipelineLayout, error) {
	setLayouts := make([]vk.DescriptorSetLayout, len(layouts))
	for i, layout := range layouts {
		setLayouts[i] = layout.Handle
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(device, &layoutInfo, nil, &layout); res != vk.Success {
		err := fmt.Errorf("failed to create pipeline layout")
		core.LogError("%s", err.Error())
		return nil, err
	}
	return layout, nil
}

// NewComputePipeline builds a compute pipeline around one shader entry
// point, with the given descriptor set layouts at sets 0..n.
func NewComputePipeline(device vk.Device, shader *ShaderModule, entryPoint string, layouts []*SetLayout) (*Pipeline, error) {
	layout, err := newPipelineLayout(device, layouts)
	if err != nil {
		return nil, err
	}

	createInfo := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: shader.Handle,
			PName:  entryPoint + "\x00",
		},
		Layout: layout,
	}
	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateComputePipelines(device, vk.NullPipelineCache, 1,
		[]vk.ComputePipelineCreateInfo{createInfo}, nil, pipelines); res != vk.Success {
		vk.DestroyPipelineLayout(device, layout, nil)
		err := fmt.Errorf("failed to create compute pipeline for entry %q", entryPoint)
		core.LogError("%s", err.Error())
		return nil, err
	}

	return &Pipeline{
		Handle:    pipelines[0],
		Layout:    layout,
		BindPoint: vk.PipelineBindPointCompute,
	}, nil
}

// GraphicsPipelineOptions configures a rasterizing pipeline. Viewport and
// scissor are dynamic state, so a pipeline survives swapchain recreation.
type GraphicsPipelineOptions struct {
	RenderPass *RenderPass
	Vertex     *ShaderModule
	Fragment   *ShaderModule
	EntryPoint string

	VertexStride     uint32
	VertexAttributes []vk.VertexInputAttributeDescription

	Layouts []*SetLayout

	CullMode   vk.CullModeFlagBits
	Wireframe  bool
	DepthTest  bool
	DepthWrite bool
}

// VertexAttributes lays the given formats out back to back at binding 0,
// location per position.
func VertexAttributes(formats ...vk.Format) []vk.VertexInputAttributeDescription {
	attributes := make([]vk.VertexInputAttributeDescription, len(formats))
	offset := uint32(0)
	for i, format := range formats {
		attributes[i] = vk.VertexInputAttributeDescription{
			Location: uint32(i),
			Binding:  0,
			Format:   format,
			Offset:   offset,
		}
		offset += formatSize(format)
	}
	return attributes
}

func formatSize(format vk.Format) uint32 {
	switch format {
	case vk.FormatR32Sfloat:
		return 4
	case vk.FormatR32g32Sfloat:
		return 8
	case vk.FormatR32g32b32Sfloat:
		return 12
	case vk.FormatR32g32b32a32Sfloat:
		return 16
	default:
		return 0
	}
}

func NewGraphicsPipeline(device vk.Device, options GraphicsPipelineOptions) (*Pipeline, error) {
	layout, err := newPipelineLayout(device, options.Layouts)
	if err != nil {
		return nil, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: options.Vertex.Handle,
			PName:  options.EntryPoint + "\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: options.Fragment.Handle,
			PName:  options.EntryPoint + "\x00",
		},
	}

	binding := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    options.VertexStride,
		InputRate: vk.VertexInputRateVertex,
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{binding},
		VertexAttributeDescriptionCount: uint32(len(options.VertexAttributes)),
		PVertexAttributeDescriptions:    options.VertexAttributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	// Dynamic, set at record time.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	rasterization := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    vk.CullModeFlags(options.CullMode),
		FrontFace:   vk.FrontFaceCounterClockwise,
	}
	if options.Wireframe {
		rasterization.PolygonMode = vk.PolygonModeLine
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType: vk.StructureTypePipelineDepthStencilStateCreateInfo,
	}
	if options.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}
	if options.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	blendAttachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment},
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterization,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          options.RenderPass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(device, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines); res != vk.Success {
		vk.DestroyPipelineLayout(device, layout, nil)
		err := fmt.Errorf("failed to create graphics pipeline for entry %q", options.EntryPoint)
		core.LogError("%s", err.Error())
		return nil, err
	}

	return &Pipeline{
		Handle:    pipelines[0],
		Layout:    layout,
		BindPoint: vk.PipelineBindPointGraphics,
	}, nil
}

func (p *Pipeline) Destroy(device vk.Device) {
	vk.DestroyPipeline(device, p.Handle, nil)
	vk.DestroyPipelineLayout(device, p.Layout, nil)
}

// WorkgroupCount returns how many workgroups of the given local size cover
// size invocations, rounding up so edge pixels are not dropped.
func WorkgroupCount(size, localSize uint32) uint32 {
	return (size + localSize - 1) / localSize
}
