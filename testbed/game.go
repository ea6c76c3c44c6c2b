package testbed

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// Radians per second.
const orbitSpeed = 0.25

type TestGame struct {
	*engine.Game
}

type gameState struct {
	elapsed float64
	width   uint32
	height  uint32

	camera metadata.Camera
	lights []metadata.Light
	meshes []*vulkan.GPUMesh
}

// meshSpec places a generated mesh in the scene with a material.
type meshSpec struct {
	data      metadata.MeshData
	material  string
	instances []metadata.InstanceBlock
}

func NewTestGame(app *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: app,
			State: &gameState{
				camera: metadata.Camera{
					Pos:    mgl32.Vec3{1, 1.5, -1},
					Target: mgl32.Vec3{0, 0, 0},
					FovY:   60,
					Near:   0.1,
					Far:    1000,
				},
				lights: sceneLights(),
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize

	return tg
}

// sceneLights is a dim directional key light, a red point light and a green spot light.
func sceneLights() []metadata.Light {
	return []metadata.Light{
		{
			Type:      metadata.LightTypeDirectional,
			Dir:       mgl32.Vec3{-1, -1, 0}.Normalize(),
			Color:     mgl32.Vec3{0.2347, 0.2131, 0.2079},
			Intensity: 10,
		},
		{
			Type:      metadata.LightTypePoint,
			Pos:       mgl32.Vec3{0, 2, 0},
			Color:     mgl32.Vec3{1, 0, 0},
			Intensity: 20,
		},
		{
			Type:        metadata.LightTypeSpot,
			Pos:         mgl32.Vec3{4, 2, 0},
			Dir:         mgl32.Vec3{0, -1, 0},
			Color:       mgl32.Vec3{0, 1, 0},
			Intensity:   20,
			InnerCutOff: mgl32.DegToRad(25),
			OuterCutOff: mgl32.DegToRad(30),
		},
	}
}

// sceneMeshes is the ground plane followed by a row of instanced cubes.
func sceneMeshes() []meshSpec {
	ground := mgl32.Translate3D(0, -0.5, 0).Mul4(mgl32.Scale3D(20, 1, 20))

	var cubes []metadata.InstanceBlock
	for i := -2; i <= 2; i++ {
		model := mgl32.Translate3D(float32(i)*1.5, 0, 0).Mul4(mgl32.HomogRotate3DY(float32(i) * 0.3))
		cubes = append(cubes, metadata.NewInstanceBlock(model))
	}

	return []meshSpec{
		{data: metadata.GeneratePlane(8), material: "ground", instances: []metadata.InstanceBlock{metadata.NewInstanceBlock(ground)}},
		{data: metadata.GenerateCube(1), material: "metal", instances: cubes},
		{data: metadata.GenerateQuad(), material: metadata.DefaultMaterialName, instances: []metadata.InstanceBlock{
			metadata.NewInstanceBlock(mgl32.Translate3D(0, 1, 3)),
		}},
	}
}

// orbit turns the camera around the Y axis, t seconds after it was placed at start.
func orbit(start mgl32.Vec3, t float64) mgl32.Vec3 {
	angle := math.Atan2(float64(start.Z()), float64(start.X())) + t*orbitSpeed
	radius := math.Hypot(float64(start.X()), float64(start.Z()))
	return mgl32.Vec3{
		float32(radius * math.Cos(angle)),
		start.Y(),
		float32(radius * math.Sin(angle)),
	}
}

func (g *TestGame) Initialize(r *renderer.Renderer) error {
	core.LogInfo("initializing testbed scene...")
	state := g.State.(*gameState)

	for _, spec := range sceneMeshes() {
		mesh, err := r.UploadMesh(spec.data, spec.instances)
		if err != nil {
			core.LogError("failed to upload mesh '%s': %s", spec.data.Name, err.Error())
			return err
		}
		mesh.MaterialIndex = r.MaterialIndex(spec.material)
		state.meshes = append(state.meshes, mesh)
	}
	core.LogInfo("testbed scene ready: %d meshes, %d lights", len(state.meshes), len(state.lights))
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.elapsed += deltaTime
	return nil
}

func (g *TestGame) Render(scene *vulkan.RenderScene, deltaTime float64) error {
	state := g.State.(*gameState)

	camera := state.camera
	camera.Pos = orbit(state.camera.Pos, state.elapsed)

	scene.Meshes = state.meshes
	scene.Lights = state.lights
	scene.Camera = camera
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}
