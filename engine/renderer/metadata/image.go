package metadata

/**
 * @brief Decoded image ready for staging: tightly packed RGBA8 rows.
 */
type ImageResourceData struct {
	/** @brief The number of channels. Always 4 after decoding. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The pixel data of the image. */
	Pixels []uint8
}

// Size is the byte length the pixels occupy in a staging buffer.
func (d *ImageResourceData) Size() uint64 {
	return uint64(d.Width) * uint64(d.Height) * uint64(d.ChannelCount)
}
