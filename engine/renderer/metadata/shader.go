package metadata

// ShaderStage is the pipeline stage a compiled module is bound to.
type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
	ShaderStageGeometry
	ShaderStageCount
)

var shaderStageSuffixes = [ShaderStageCount]string{
	ShaderStageVertex:   ".vert.spv",
	ShaderStageFragment: ".frag.spv",
	ShaderStageGeometry: ".geom.spv",
}

/** @brief The file suffix of the stage, e.g. ".vert.spv". */
func (s ShaderStage) Suffix() string {
	if s < 0 || s >= ShaderStageCount {
		return ""
	}
	return shaderStageSuffixes[s]
}

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	case ShaderStageGeometry:
		return "geometry"
	}
	return "unknown"
}

// Names of the shader programs under the shader root.
const (
	ShaderGBuffer          = "gbuffer"
	ShaderDeferredBRDF     = "deferred_brdf"
	ShaderForwardBRDF      = "forward_brdf"
	ShaderGBufferVisualize = "gbuffer_visualize"
	ShaderLightMarkers     = "light_markers"
	ShaderGizmo            = "gizmo"
	ShaderOverlayText      = "overlay_text"
)

/**
 * @brief Compiled SPIR-V words of a program, keyed by stage.
 */
type ShaderProgramCode struct {
	Name   string
	Stages map[ShaderStage][]uint32
}
