package metadata

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = 0x1
	TextureFilterCount      TextureFilter = 0x2
)

type TextureRepeat int

const (
	TextureRepeatRepeat         TextureRepeat = 0x1
	TextureRepeatMirroredRepeat TextureRepeat = 0x2
	TextureRepeatClampToEdge    TextureRepeat = 0x3
	TextureRepeatClampToBorder  TextureRepeat = 0x4
)

/**
 * @brief Sampler description. One immutable sampler per filter is
 * baked into the PerFrame layout, indexed by TextureFilter.
 */
type SamplerConfig struct {
	Filter        TextureFilter
	Repeat        TextureRepeat
	MaxAnisotropy float32
}

// ImmutableSamplers lists the samplers in binding-array order.
func ImmutableSamplers() [TextureFilterCount]SamplerConfig {
	return [TextureFilterCount]SamplerConfig{
		TextureFilterModeNearest: {Filter: TextureFilterModeNearest, Repeat: TextureRepeatRepeat, MaxAnisotropy: 1},
		TextureFilterModeLinear:  {Filter: TextureFilterModeLinear, Repeat: TextureRepeatRepeat, MaxAnisotropy: 16},
	}
}
