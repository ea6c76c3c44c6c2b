package loaders

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fzipp/bmfont"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Spaces a tab advances when the font has no glyph for it.
const tabSpaces = 4

type BitmapFontLoader struct{}

/**
 * @brief Imports a BMFont .fnt descriptor. Returns the font data and the
 * absolute path of each atlas page, ordered by page id.
 */
func (fl *BitmapFontLoader) Load(path string) (*metadata.FontData, []string, error) {
	if filepath.Ext(path) != ".fnt" {
		return nil, nil, fmt.Errorf("unsupported bitmap font file '%s'", path)
	}
	font, err := bmfont.Load(path)
	if err != nil {
		return nil, nil, err
	}

	outData := &metadata.FontData{
		Face:       font.Descriptor.Info.Face,
		Size:       uint32(font.Descriptor.Info.Size),
		LineHeight: int32(font.Descriptor.Common.LineHeight),
		Baseline:   int32(font.Descriptor.Common.Base),
		AtlasSizeX: int32(font.Descriptor.Common.ScaleW),
		AtlasSizeY: int32(font.Descriptor.Common.ScaleH),
		Glyphs:     make(map[int32]*metadata.FontGlyph, len(font.Descriptor.Chars)),
		Kernings:   make(map[[2]int32]int16, len(font.Descriptor.Kerning)),
	}

	for _, p := range font.Descriptor.Pages {
		outData.Pages = append(outData.Pages, &metadata.BitmapFontPage{
			ID:   int8(p.ID),
			Name: p.File,
		})
	}
	sort.Slice(outData.Pages, func(i, j int) bool { return outData.Pages[i].ID < outData.Pages[j].ID })

	for _, g := range font.Descriptor.Chars {
		outData.Glyphs[int32(g.ID)] = &metadata.FontGlyph{
			Codepoint: int32(g.ID),
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		}
	}

	for p, k := range font.Descriptor.Kerning {
		outData.Kernings[[2]int32{int32(p.First), int32(p.Second)}] = int16(k.Amount)
	}

	if space, ok := outData.Glyphs[' ']; ok {
		outData.TabXAdvance = float32(space.XAdvance) * tabSpaces
	} else {
		outData.TabXAdvance = float32(outData.Size) * tabSpaces
	}

	dir := filepath.Dir(path)
	pages := make([]string, len(outData.Pages))
	for i, p := range outData.Pages {
		pages[i] = filepath.Join(dir, p.Name)
	}
	return outData, pages, nil
}
