package metadata

import (
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformBlockLayout(t *testing.T) {
	assert.Equal(t, uintptr(64), unsafe.Sizeof(Light{}))
	assert.Equal(t, uintptr(16+MaxLights*64), unsafe.Sizeof(FrameUniformBlock{}))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(FrameUniformBlock{}.Lights))
	assert.Equal(t, uintptr(144), unsafe.Sizeof(ViewUniformBlock{}))
	assert.Equal(t, uintptr(80), unsafe.Sizeof(DrawPushConstants{}))

	var l Light
	assert.Equal(t, uintptr(12), unsafe.Offsetof(l.Type))
	assert.Equal(t, uintptr(28), unsafe.Offsetof(l.Intensity))
	assert.Equal(t, uintptr(44), unsafe.Offsetof(l.InnerCutOff))
	assert.Equal(t, uintptr(48), unsafe.Offsetof(l.OuterCutOff))
}

func TestVertexLayout(t *testing.T) {
	assert.Equal(t, uintptr(44), unsafe.Sizeof(Vertex{}))
	assert.Equal(t, uintptr(128), unsafe.Sizeof(InstanceBlock{}))
	assert.Equal(t, uintptr(36), unsafe.Sizeof(GizmoVertex{}))
	assert.Equal(t, uintptr(16), unsafe.Sizeof(TextVertex{}))

	v := NewVertex(mgl32.Vec3{1, 2, 3}, mgl32.Vec2{0.5, 0.5})
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, v.Normal)
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, v.Tangent)
}

func TestSetLightsClampsToCapacity(t *testing.T) {
	var block FrameUniformBlock
	block.SetLights(make([]Light, MaxLights+5))
	assert.Equal(t, int32(MaxLights), block.NumLights)

	block.SetLights([]Light{{Type: LightTypeSpot, Intensity: 3}})
	assert.Equal(t, int32(1), block.NumLights)
	assert.Equal(t, LightTypeSpot, block.Lights[0].Type)
}

func TestInstanceBlockInverse(t *testing.T) {
	model := mgl32.Translate3D(0, -10, 0).Mul4(mgl32.Scale3D(100, 100, 100))
	ib := NewInstanceBlock(model)
	assert.True(t, ib.ModelMat.Mul4(ib.InvModelMat).ApproxEqualThreshold(mgl32.Ident4(), 1e-4))
}

func TestReversedPerspectiveDepthRange(t *testing.T) {
	proj := ReversedPerspective(90, 16.0/9.0, 0.1, 1000)
	project := func(z float32) float32 {
		clip := proj.Mul4x1(mgl32.Vec4{0, 0, z, 1})
		return clip.Z() / clip.W()
	}
	assert.InDelta(t, 1.0, project(0.1), 1e-5)
	assert.InDelta(t, 0.0, project(1000), 1e-5)
	assert.Greater(t, project(1), project(10))

	// Y points down in clip space.
	up := proj.Mul4x1(mgl32.Vec4{0, 1, 1, 1})
	assert.Less(t, up.Y(), float32(0))
}

func TestLookAtMovesEyeToOrigin(t *testing.T) {
	eye := mgl32.Vec3{1, 1.5, -1}
	view := LookAt(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	p := view.Mul4x1(eye.Vec4(1))
	assert.InDelta(t, 0, p.X(), 1e-5)
	assert.InDelta(t, 0, p.Y(), 1e-5)
	assert.InDelta(t, 0, p.Z(), 1e-5)

	target := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, eye.Len(), target.Z(), 1e-5)
}

func TestGeneratePlane(t *testing.T) {
	m := GeneratePlane(4)
	require.Len(t, m.Vertices, 25)
	require.Len(t, m.Indices, 4*4*6)
	for _, idx := range m.Indices {
		assert.Less(t, idx, uint32(len(m.Vertices)))
	}
	for _, v := range m.Vertices {
		assert.Equal(t, mgl32.Vec3{0, 1, 0}, v.Normal)
		assert.InDelta(t, 0, v.Pos.Y(), 1e-6)
	}
	assert.Len(t, GeneratePlane(0).Indices, 6)
}

func TestGenerateCube(t *testing.T) {
	m := GenerateCube(2)
	require.Len(t, m.Vertices, 24)
	require.Len(t, m.Indices, 36)
	for _, v := range m.Vertices {
		for i := 0; i < 3; i++ {
			assert.InDelta(t, 1, abs32(v.Pos[i]), 1e-6)
		}
		// Every vertex sits on the face its normal points at.
		assert.InDelta(t, 1, v.Pos.Dot(v.Normal), 1e-6)
	}
}

func TestGenerateGizmo(t *testing.T) {
	vertices, indices := GenerateGizmo()
	assert.Len(t, vertices, 96)
	assert.Len(t, indices, 126)
	for _, idx := range indices {
		assert.Less(t, idx, uint32(len(vertices)))
	}
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, vertices[0].Color)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, vertices[len(vertices)-1].Color)
}

func TestRenderSettings(t *testing.T) {
	s := RenderSettings{Mode: RenderModeDeferred, View: GBufferViewRenderedScene}
	assert.False(t, s.Visualizing())
	assert.Equal(t, "Deferred: Rendered Scene", s.Label())

	s.View = s.View.Next()
	assert.Equal(t, GBufferViewPosition, s.View)
	assert.True(t, s.Visualizing())

	s.Mode = RenderModeForward
	assert.False(t, s.Visualizing())
	assert.Equal(t, "Forward", s.Label())

	assert.Equal(t, RenderModeForward, ParseRenderMode("forward"))
	assert.Equal(t, RenderModeDeferred, ParseRenderMode("anything"))
}

func TestMapKindNames(t *testing.T) {
	assert.Equal(t, "albedo.png", MapAlbedo.FileName())
	assert.Equal(t, "height.png", MapHeight.FileName())
	assert.Equal(t, "", MapCount.FileName())
	assert.Equal(t, "roughness", MapRoughness.String())
	assert.Equal(t, ".geom.spv", ShaderStageGeometry.Suffix())
}

func testFont() *FontData {
	return &FontData{
		LineHeight: 20,
		AtlasSizeX: 128,
		AtlasSizeY: 64,
		Glyphs: map[int32]*FontGlyph{
			'A': {Codepoint: 'A', X: 0, Y: 0, Width: 8, Height: 16, XOffset: 1, YOffset: 2, XAdvance: 10},
			'V': {Codepoint: 'V', X: 8, Y: 0, Width: 8, Height: 16, XAdvance: 9},
			' ': {Codepoint: ' ', XAdvance: 5},
		},
		Kernings:    map[[2]int32]int16{{'A', 'V'}: -2},
		TabXAdvance: 20,
	}
}

func TestLayoutText(t *testing.T) {
	f := testFont()
	vertices, indices := f.LayoutText("AV", 10, 10, 1)
	require.Len(t, vertices, 8)
	require.Len(t, indices, 12)

	assert.Equal(t, mgl32.Vec2{11, 12}, vertices[0].Pos)
	assert.Equal(t, mgl32.Vec2{19, 28}, vertices[2].Pos)
	assert.Equal(t, mgl32.Vec2{0.0625, 0.25}, vertices[2].UV)
	// 'V' starts after the advance of 'A' plus the kerning pair.
	assert.Equal(t, float32(10+10-2), vertices[4].Pos.X())
	assert.Equal(t, uint32(4), indices[6])
}

func TestLayoutTextSkipsUnknownAndBreaksLines(t *testing.T) {
	f := testFont()
	vertices, _ := f.LayoutText("A ?\nA", 0, 0, 2)
	require.Len(t, vertices, 8)
	assert.Equal(t, float32(20*2+2*2), vertices[4].Pos.Y())
	assert.Equal(t, float32(2), vertices[4].Pos.X())

	var empty *FontData
	v, i := empty.LayoutText("A", 0, 0, 1)
	assert.Empty(t, v)
	assert.Empty(t, i)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
