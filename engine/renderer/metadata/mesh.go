package metadata

import "github.com/go-gl/mathgl/mgl32"

// MeshData is CPU-side geometry ready for upload.
type MeshData struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

/**
 * @brief Unit plane in the XZ plane centered at the origin, facing +Y,
 * split into subdivisions x subdivisions quads.
 */
func GeneratePlane(subdivisions uint32) MeshData {
	if subdivisions == 0 {
		subdivisions = 1
	}
	m := MeshData{Name: "plane"}
	step := 1 / float32(subdivisions)
	for z := uint32(0); z <= subdivisions; z++ {
		for x := uint32(0); x <= subdivisions; x++ {
			u, v := float32(x)*step, float32(z)*step
			m.Vertices = append(m.Vertices, Vertex{
				Pos:     mgl32.Vec3{u - 0.5, 0, v - 0.5},
				UV:      mgl32.Vec2{u, v},
				Normal:  mgl32.Vec3{0, 1, 0},
				Tangent: mgl32.Vec3{1, 0, 0},
			})
		}
	}
	row := subdivisions + 1
	for z := uint32(0); z < subdivisions; z++ {
		for x := uint32(0); x < subdivisions; x++ {
			i0 := z*row + x
			i1 := i0 + 1
			i2 := i0 + row
			i3 := i2 + 1
			m.Indices = append(m.Indices, i0, i2, i1, i1, i2, i3)
		}
	}
	return m
}

// GenerateQuad builds a unit quad in the XY plane facing -Z.
func GenerateQuad() MeshData {
	return MeshData{
		Name: "quad",
		Vertices: []Vertex{
			NewVertex(mgl32.Vec3{-0.5, -0.5, 0}, mgl32.Vec2{0, 1}),
			NewVertex(mgl32.Vec3{0.5, -0.5, 0}, mgl32.Vec2{1, 1}),
			NewVertex(mgl32.Vec3{0.5, 0.5, 0}, mgl32.Vec2{1, 0}),
			NewVertex(mgl32.Vec3{-0.5, 0.5, 0}, mgl32.Vec2{0, 0}),
		},
		Indices: []uint32{0, 2, 1, 0, 3, 2},
	}
}

type cubeFace struct {
	normal, tangent, bitangent mgl32.Vec3
}

var cubeFaces = [6]cubeFace{
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
}

/**
 * @brief Cube of the given edge length centered at the origin, four
 * vertices per face so normals stay flat.
 */
func GenerateCube(size float32) MeshData {
	h := size * 0.5
	m := MeshData{Name: "cube"}
	corners := [4]mgl32.Vec2{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range cubeFaces {
		base := uint32(len(m.Vertices))
		for _, c := range corners {
			pos := f.normal.Mul(h).Add(f.tangent.Mul(c.X() * h)).Add(f.bitangent.Mul(c.Y() * h))
			m.Vertices = append(m.Vertices, Vertex{
				Pos:     pos,
				UV:      mgl32.Vec2{(c.X() + 1) * 0.5, 1 - (c.Y()+1)*0.5},
				Normal:  f.normal,
				Tangent: f.tangent,
			})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

/**
 * @brief Three arrows along +X (red), +Y (green) and +Z (blue), each a
 * thin box shaft capped by a four-sided pyramid.
 */
func GenerateGizmo() ([]GizmoVertex, []uint32) {
	var vertices []GizmoVertex
	var indices []uint32
	axes := [3]struct {
		dir, side, up, color mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}},
	}
	const shaftLength, shaftRadius, tipRadius = 0.75, 0.04, 0.1
	quad := func(a, b, c, d, n, color mgl32.Vec3) {
		base := uint32(len(vertices))
		for _, p := range [4]mgl32.Vec3{a, b, c, d} {
			vertices = append(vertices, GizmoVertex{Pos: p, Color: color, Normal: n})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	tri := func(a, b, c, color mgl32.Vec3) {
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		base := uint32(len(vertices))
		for _, p := range [3]mgl32.Vec3{a, b, c} {
			vertices = append(vertices, GizmoVertex{Pos: p, Color: color, Normal: n})
		}
		indices = append(indices, base, base+1, base+2)
	}
	for _, ax := range axes {
		ring := func(at, radius float32) [4]mgl32.Vec3 {
			center := ax.dir.Mul(at)
			s, u := ax.side.Mul(radius), ax.up.Mul(radius)
			return [4]mgl32.Vec3{
				center.Sub(s).Sub(u),
				center.Add(s).Sub(u),
				center.Add(s).Add(u),
				center.Sub(s).Add(u),
			}
		}
		r0 := ring(0, shaftRadius)
		r1 := ring(shaftLength, shaftRadius)
		normals := [4]mgl32.Vec3{ax.up.Mul(-1), ax.side, ax.up, ax.side.Mul(-1)}
		for i := 0; i < 4; i++ {
			j := (i + 1) % 4
			quad(r0[i], r0[j], r1[j], r1[i], normals[i], ax.color)
		}
		tipBase := ring(shaftLength, tipRadius)
		tip := ax.dir
		for i := 0; i < 4; i++ {
			j := (i + 1) % 4
			tri(tipBase[i], tipBase[j], tip, ax.color)
		}
		quad(tipBase[3], tipBase[2], tipBase[1], tipBase[0], ax.dir.Mul(-1), ax.color)
	}
	return vertices, indices
}
