package loaders

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func spirv(words ...uint32) []byte {
	buf := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(buf, spirvMagic)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*(i+1):], w)
	}
	return buf
}

func TestImageLoaderConvertsToRGBA(t *testing.T) {
	dir := t.TempDir()
	gray := image.NewGray(image.Rect(0, 0, 3, 2))
	gray.SetGray(1, 0, color.Gray{Y: 200})
	writePNG(t, filepath.Join(dir, "gray.png"), gray)

	il := &ImageLoader{}
	data, err := il.Load(filepath.Join(dir, "gray.png"))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), data.Width)
	assert.Equal(t, uint32(2), data.Height)
	assert.Equal(t, uint8(4), data.ChannelCount)
	require.Len(t, data.Pixels, 3*2*4)
	assert.Equal(t, data.Size(), uint64(len(data.Pixels)))
	assert.Equal(t, []uint8{200, 200, 200, 255}, data.Pixels[4:8])
}

func TestImageLoaderDecodesBMP(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	path := filepath.Join(dir, "tex.bmp")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, img))
	require.NoError(t, f.Close())

	data, err := (&ImageLoader{}).Load(path)
	require.NoError(t, err)
	assert.Equal(t, []uint8{10, 20, 30, 255}, data.Pixels[8:12])
}

func TestImageLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	il := &ImageLoader{}

	_, err := il.Load(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	writeFile(t, filepath.Join(dir, "junk.png"), []byte("not an image"))
	_, err = il.Load(filepath.Join(dir, "junk.png"))
	assert.ErrorIs(t, err, image.ErrFormat)
}

func TestShaderStageFromName(t *testing.T) {
	cases := map[string]metadata.ShaderStage{
		"gbuffer.vert.spv":            metadata.ShaderStageVertex,
		"/a/b/deferred_brdf.frag.spv": metadata.ShaderStageFragment,
		"markers.geom.spv":            metadata.ShaderStageGeometry,
	}
	for name, want := range cases {
		got, err := ShaderStageFromName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"gbuffer.comp.spv", "gbuffer.vert", "vert.spv.txt"} {
		_, err := ShaderStageFromName(name)
		assert.ErrorIs(t, err, core.ErrUnknownShaderStage, name)
	}
}

func TestLoadShaderCode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.vert.spv")
	writeFile(t, path, spirv(0x00010000, 42))

	code, err := LoadShaderCode(path)
	require.NoError(t, err)
	assert.Equal(t, []uint32{spirvMagic, 0x00010000, 42}, code)

	writeFile(t, path, []byte{1, 2, 3, 4, 5})
	_, err = LoadShaderCode(path)
	assert.Error(t, err)

	writeFile(t, path, []byte{1, 2, 3, 4})
	_, err = LoadShaderCode(path)
	assert.Error(t, err)

	writeFile(t, path, nil)
	_, err = LoadShaderCode(path)
	assert.Error(t, err)
}

func TestShaderLoaderProgram(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "gbuffer.vert.spv"), spirv(1))
	writeFile(t, filepath.Join(dir, "gbuffer.frag.spv"), spirv(2))
	writeFile(t, filepath.Join(dir, "gbuffer.comp.spv"), spirv(3))
	writeFile(t, filepath.Join(dir, "gizmo.vert.spv"), spirv(4))

	sl := &ShaderLoader{Root: dir}
	program, err := sl.Load("gbuffer")
	require.NoError(t, err)
	assert.Equal(t, "gbuffer", program.Name)
	assert.Len(t, program.Stages, 2)
	assert.Equal(t, uint32(2), program.Stages[metadata.ShaderStageFragment][1])

	_, err = sl.Load("gizmo")
	assert.ErrorIs(t, err, core.ErrMissingShaderStage)

	_, err = sl.Load("nothing")
	assert.ErrorIs(t, err, core.ErrMissingShaderStage)
}

func makeMaterial(t *testing.T, root, name string, kinds ...metadata.MapKind) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o755))
	for _, k := range kinds {
		writePNG(t, filepath.Join(root, name, k.FileName()), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	}
}

func allMaps() []metadata.MapKind {
	kinds := make([]metadata.MapKind, 0, metadata.MapCount)
	for k := metadata.MapKind(0); k < metadata.MapCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func TestMaterialScan(t *testing.T) {
	root := t.TempDir()
	makeMaterial(t, root, "default", allMaps()...)
	makeMaterial(t, root, "rusted_iron", metadata.MapAlbedo, metadata.MapNormal)
	makeMaterial(t, root, "bricks", metadata.MapAlbedo)
	writeFile(t, filepath.Join(root, "README.txt"), []byte("not a material"))

	ml := &MaterialLoader{Root: root}
	materials, def, err := ml.Scan()
	require.NoError(t, err)
	require.Len(t, materials, 2)
	assert.Equal(t, "bricks", materials[0].Name)
	assert.Equal(t, "rusted_iron", materials[1].Name)

	assert.Equal(t, filepath.Join(root, "rusted_iron", "normal.png"), materials[1].Paths[metadata.MapNormal])
	assert.Empty(t, materials[1].Paths[metadata.MapMetallic])

	assert.Equal(t, "default", def.Name)
	for k := metadata.MapKind(0); k < metadata.MapCount; k++ {
		assert.NotEmpty(t, def.Paths[k], k.String())
	}
}

func TestMaterialScanRequiresCompleteDefault(t *testing.T) {
	root := t.TempDir()
	makeMaterial(t, root, "bricks", metadata.MapAlbedo)
	_, _, err := (&MaterialLoader{Root: root}).Scan()
	assert.ErrorIs(t, err, core.ErrDefaultMaterialIncomplete)

	makeMaterial(t, root, "default", metadata.MapAlbedo, metadata.MapNormal)
	_, _, err = (&MaterialLoader{Root: root}).Scan()
	assert.ErrorIs(t, err, core.ErrDefaultMaterialIncomplete)

	_, _, err = (&MaterialLoader{Root: filepath.Join(root, "nope")}).Scan()
	assert.Error(t, err)
}

const testFNT = `info face="Test Sans" size=16 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=20 base=16 scaleW=128 scaleH=64 pages=1 packed=0 alphaChnl=0 redChnl=4 greenChnl=4 blueChnl=4
page id=0 file="test_0.png"
chars count=3
char id=32   x=0     y=0     width=0     height=0     xoffset=0     yoffset=0     xadvance=5     page=0  chnl=15
char id=65   x=0     y=0     width=8     height=16    xoffset=1     yoffset=2     xadvance=10    page=0  chnl=15
char id=86   x=8     y=0     width=8     height=16    xoffset=0     yoffset=2     xadvance=9     page=0  chnl=15
kernings count=1
kerning first=65  second=86  amount=-2
`

func TestBitmapFontLoader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "test.fnt"), []byte(testFNT))
	writePNG(t, filepath.Join(dir, "test_0.png"), image.NewRGBA(image.Rect(0, 0, 128, 64)))

	fl := &BitmapFontLoader{}
	font, pages, err := fl.Load(filepath.Join(dir, "test.fnt"))
	require.NoError(t, err)

	assert.Equal(t, "Test Sans", font.Face)
	assert.Equal(t, uint32(16), font.Size)
	assert.Equal(t, int32(20), font.LineHeight)
	assert.Equal(t, int32(16), font.Baseline)
	assert.Equal(t, int32(128), font.AtlasSizeX)
	assert.Equal(t, int32(64), font.AtlasSizeY)
	require.Len(t, font.Glyphs, 3)
	assert.Equal(t, int16(10), font.Glyphs['A'].XAdvance)
	assert.Equal(t, uint16(8), font.Glyphs['V'].X)
	assert.Equal(t, int16(-2), font.Kernings[[2]int32{'A', 'V'}])
	assert.Equal(t, float32(20), font.TabXAdvance)

	require.Equal(t, []string{filepath.Join(dir, "test_0.png")}, pages)

	_, _, err = fl.Load(filepath.Join(dir, "test.ttf"))
	assert.Error(t, err)
}
