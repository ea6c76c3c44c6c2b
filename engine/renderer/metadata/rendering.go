package metadata

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

// RenderMode selects which lighting path subpass 1 records.
type RenderMode int

const (
	RenderModeDeferred RenderMode = iota
	RenderModeForward
)

func (m RenderMode) String() string {
	if m == RenderModeForward {
		return "forward"
	}
	return "deferred"
}

// ParseRenderMode maps the config spelling. Anything but "forward" is deferred.
func ParseRenderMode(s string) RenderMode {
	if s == "forward" {
		return RenderModeForward
	}
	return RenderModeDeferred
}

// GBufferView selects what the deferred path shows: one raw attachment or the lit scene.
type GBufferView uint32

const (
	GBufferViewPosition GBufferView = iota
	GBufferViewNormal
	GBufferViewAlbedo
	GBufferViewMRHA
	GBufferViewMaterialIndex
	GBufferViewRenderedScene
	GBufferViewCount
)

var gbufferViewLabels = [GBufferViewCount]string{
	"Position",
	"Normal",
	"Albedo",
	"Metallic Roughness Height AO",
	"Material Index",
	"Rendered Scene",
}

func (v GBufferView) String() string {
	if v >= GBufferViewCount {
		return "unknown"
	}
	return gbufferViewLabels[v]
}

// Next cycles through the views, wrapping after the rendered scene.
func (v GBufferView) Next() GBufferView {
	return (v + 1) % GBufferViewCount
}

/**
 * @brief Toggles read at recording time. Written by the key handlers
 * on the main thread between frames.
 */
type RenderSettings struct {
	Mode RenderMode
	View GBufferView
}

/** @brief True when subpass 1 shows a raw G-buffer attachment instead of the lit scene. */
func (s RenderSettings) Visualizing() bool {
	return s.Mode == RenderModeDeferred && s.View != GBufferViewRenderedScene
}

// Label is the overlay string describing the current settings.
func (s RenderSettings) Label() string {
	if s.Mode == RenderModeForward {
		return "Forward"
	}
	return "Deferred: " + s.View.String()
}
