package metadata

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights is the capacity of the light array in the frame uniform block.
const MaxLights = 100

type LightType int32

const (
	LightTypePoint LightType = iota
	LightTypeSpot
	LightTypeDirectional
)

/**
 * @brief A light source as laid out in the frame uniform block (std140,
 * 64 bytes). Cut-off angles are in radians and only read for spot lights.
 */
type Light struct {
	Pos         mgl32.Vec3
	Type        LightType
	Dir         mgl32.Vec3
	Intensity   float32
	Color       mgl32.Vec3
	InnerCutOff float32
	OuterCutOff float32
	_           [3]float32
}

/** @brief PerFrame set, binding 0. */
type FrameUniformBlock struct {
	NumLights int32
	_         [3]int32
	Lights    [MaxLights]Light
}

// SetLights copies at most MaxLights lights and updates the count.
func (b *FrameUniformBlock) SetLights(lights []Light) {
	n := copy(b.Lights[:], lights)
	b.NumLights = int32(n)
}

/** @brief PerView set, binding 0. */
type ViewUniformBlock struct {
	ViewMat mgl32.Mat4
	ProjMat mgl32.Mat4
	ViewPos mgl32.Vec3
	_       float32
}

/**
 * @brief Per-draw data pushed before each draw. Option carries the
 * G-buffer view for the visualize pipeline.
 */
type DrawPushConstants struct {
	Transform     mgl32.Mat4
	MaterialIndex uint32
	Option        uint32
	_             [2]uint32
}

// Vertex is per-vertex input, binding 0.
type Vertex struct {
	Pos     mgl32.Vec3
	UV      mgl32.Vec2
	Normal  mgl32.Vec3
	Tangent mgl32.Vec3
}

// NewVertex fills in the default normal and tangent.
func NewVertex(pos mgl32.Vec3, uv mgl32.Vec2) Vertex {
	return Vertex{
		Pos:     pos,
		UV:      uv,
		Normal:  mgl32.Vec3{0, 0, -1},
		Tangent: mgl32.Vec3{0, -1, 0},
	}
}

// InstanceBlock is per-instance input, binding 1.
type InstanceBlock struct {
	ModelMat    mgl32.Mat4
	InvModelMat mgl32.Mat4
}

func NewInstanceBlock(model mgl32.Mat4) InstanceBlock {
	return InstanceBlock{ModelMat: model, InvModelMat: model.Inv()}
}

type GizmoVertex struct {
	Pos    mgl32.Vec3
	Color  mgl32.Vec3
	Normal mgl32.Vec3
}

/**
 * @brief Left-handed look-at. Columns of the result are the rows of the
 * row-vector form, so shaders multiply matrix * vector.
 */
func LookAt(eye, target, upAxis mgl32.Vec3) mgl32.Mat4 {
	forward := target.Sub(eye).Normalize()
	right := upAxis.Cross(forward).Normalize()
	up := forward.Cross(right).Normalize()
	return mgl32.Mat4{
		right.X(), up.X(), forward.X(), 0,
		right.Y(), up.Y(), forward.Y(), 0,
		right.Z(), up.Z(), forward.Z(), 0,
		-eye.Dot(right), -eye.Dot(up), -eye.Dot(forward), 1,
	}
}

/**
 * @brief Perspective with reversed depth (near maps to 1, far to 0) and
 * Y pointing down in clip space. Pairs with a depth clear of 0 and a
 * greater-or-equal depth test.
 */
func ReversedPerspective(fovDegrees, aspect, near, far float32) mgl32.Mat4 {
	d := float32(1 / math.Tan(float64(mgl32.DegToRad(fovDegrees))*0.5))
	fSubN := far - near
	return mgl32.Mat4{
		d / aspect, 0, 0, 0,
		0, -d, 0, 0,
		0, 0, -near / fSubN, 1,
		0, 0, near * far / fSubN, 0,
	}
}

/**
 * @brief Camera the testbed orbits around the origin. The free-look
 * camera lives outside the renderer.
 */
type Camera struct {
	Pos    mgl32.Vec3
	Target mgl32.Vec3
	FovY   float32
	Near   float32
	Far    float32
}

func (c Camera) ViewBlock(width, height uint32) ViewUniformBlock {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return ViewUniformBlock{
		ViewMat: LookAt(c.Pos, c.Target, mgl32.Vec3{0, 1, 0}),
		ProjMat: ReversedPerspective(c.FovY, aspect, c.Near, c.Far),
		ViewPos: c.Pos,
	}
}
