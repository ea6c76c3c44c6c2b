package metadata

import "github.com/go-gl/mathgl/mgl32"

type FontGlyph struct {
	Codepoint int32
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type FontKerning struct {
	Codepoint0 int32
	Codepoint1 int32
	Amount     int16
}

type BitmapFontPage struct {
	ID   int8
	Name string
}

/**
 * @brief Bitmap font description. Glyph rectangles are in atlas pixels.
 */
type FontData struct {
	Face        string
	Size        uint32
	LineHeight  int32
	Baseline    int32
	AtlasSizeX  int32
	AtlasSizeY  int32
	Glyphs      map[int32]*FontGlyph
	Kernings    map[[2]int32]int16
	Pages       []*BitmapFontPage
	TabXAdvance float32
}

/** @brief Overlay text vertex, position in framebuffer pixels. */
type TextVertex struct {
	Pos mgl32.Vec2
	UV  mgl32.Vec2
}

func (f *FontData) kerning(prev, cur int32) float32 {
	if f.Kernings == nil {
		return 0
	}
	return float32(f.Kernings[[2]int32{prev, cur}])
}

/**
 * @brief Lays out text as one quad per visible glyph starting at the
 * top-left origin (x, y). Codepoints missing from the font are skipped.
 * Returns vertices and 32-bit indices (six per quad).
 */
func (f *FontData) LayoutText(text string, x, y, scale float32) ([]TextVertex, []uint32) {
	var vertices []TextVertex
	var indices []uint32
	if f == nil || f.AtlasSizeX <= 0 || f.AtlasSizeY <= 0 {
		return vertices, indices
	}
	atlasW, atlasH := float32(f.AtlasSizeX), float32(f.AtlasSizeY)
	penX, penY := x, y
	prev := int32(-1)
	for _, r := range text {
		cp := int32(r)
		switch r {
		case '\n':
			penX = x
			penY += float32(f.LineHeight) * scale
			prev = -1
			continue
		case '\t':
			penX += f.TabXAdvance * scale
			prev = -1
			continue
		}
		g, ok := f.Glyphs[cp]
		if !ok {
			prev = -1
			continue
		}
		if prev >= 0 {
			penX += f.kerning(prev, cp) * scale
		}
		if g.Width > 0 && g.Height > 0 {
			x0 := penX + float32(g.XOffset)*scale
			y0 := penY + float32(g.YOffset)*scale
			x1 := x0 + float32(g.Width)*scale
			y1 := y0 + float32(g.Height)*scale
			u0 := float32(g.X) / atlasW
			v0 := float32(g.Y) / atlasH
			u1 := float32(g.X+g.Width) / atlasW
			v1 := float32(g.Y+g.Height) / atlasH
			base := uint32(len(vertices))
			vertices = append(vertices,
				TextVertex{Pos: mgl32.Vec2{x0, y0}, UV: mgl32.Vec2{u0, v0}},
				TextVertex{Pos: mgl32.Vec2{x1, y0}, UV: mgl32.Vec2{u1, v0}},
				TextVertex{Pos: mgl32.Vec2{x1, y1}, UV: mgl32.Vec2{u1, v1}},
				TextVertex{Pos: mgl32.Vec2{x0, y1}, UV: mgl32.Vec2{u0, v1}},
			)
			indices = append(indices, base, base+1, base+2, base, base+2, base+3)
		}
		penX += float32(g.XAdvance) * scale
		prev = cp
	}
	return vertices, indices
}
