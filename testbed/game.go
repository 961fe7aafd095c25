// Package testbed is a small scene used to exercise the engine: a ring of
// trees under a handful of orbiting fireflies.
package testbed

import (
	gomath "math"

	"github.com/ashenvale/prism/engine"
	"github.com/ashenvale/prism/engine/assets"
	"github.com/ashenvale/prism/engine/config"
	"github.com/ashenvale/prism/engine/math"
	"github.com/ashenvale/prism/engine/systems"
)

type gameState struct {
	engine *engine.Engine

	// The scene holds these weakly; the state keeps them alive.
	trees     *Trees
	fireflies *Fireflies
}

type Trees struct {
	model      *assets.Model
	placements []math.Transform
}

func (t *Trees) RenderObjects() []systems.RenderObject {
	objects := make([]systems.RenderObject, len(t.placements))
	for i, placement := range t.placements {
		objects[i] = systems.RenderObject{Model: t.model, Transform: placement}
	}
	return objects
}

type Fireflies struct {
	elapsed float32
}

func (f *Fireflies) Lights() []systems.Light {
	lights := make([]systems.Light, 3)
	for i := range lights {
		angle := float64(f.elapsed)/2 + float64(i)*2*gomath.Pi/3
		lights[i] = systems.Light{
			Position: math.Vec3{
				X: 2 * float32(gomath.Cos(angle)),
				Y: 1.5,
				Z: 2 * float32(gomath.Sin(angle)),
			},
			Strength: 1.5,
			Color:    math.Vec3{X: 0.9, Y: 1.0, Z: 0.4},
		}
	}
	return lights
}

// treeModel builds a stylized tree: a brown box trunk under a green
// pyramid canopy.
func treeModel() *assets.Model {
	trunk := assets.NewMesh(
		boxVertices(0.2, 1.0, 0.2),
		boxIndices(),
		math.Vec4{X: 0.45, Y: 0.30, Z: 0.15, W: 1},
	)

	canopy := assets.NewMesh(
		[]assets.Vertex{
			{Position: math.Vec3{X: -0.8, Y: 0, Z: -0.8}, Normal: math.Vec3{Y: 1}},
			{Position: math.Vec3{X: 0.8, Y: 0, Z: -0.8}, Normal: math.Vec3{Y: 1}},
			{Position: math.Vec3{X: 0.8, Y: 0, Z: 0.8}, Normal: math.Vec3{Y: 1}},
			{Position: math.Vec3{X: -0.8, Y: 0, Z: 0.8}, Normal: math.Vec3{Y: 1}},
			{Position: math.Vec3{X: 0, Y: 1.6, Z: 0}, Normal: math.Vec3{Y: 1}},
		},
		[]uint32{
			0, 1, 4,
			1, 2, 4,
			2, 3, 4,
			3, 0, 4,
			0, 2, 1,
			0, 3, 2,
		},
		math.Vec4{X: 0.15, Y: 0.55, Z: 0.20, W: 1},
	)
	canopy.Transform = canopy.Transform.Translate(math.Vec3{Y: 1.0})

	return &assets.Model{Meshes: []*assets.Mesh{trunk, canopy}}
}

func boxVertices(halfX, halfY, halfZ float32) []assets.Vertex {
	var vertices []assets.Vertex
	for _, x := range []float32{-halfX, halfX} {
		for _, y := range []float32{0, halfY * 2} {
			for _, z := range []float32{-halfZ, halfZ} {
				v := math.Vec3{X: x, Y: y, Z: z}
				vertices = append(vertices, assets.Vertex{
					Position: v,
					Normal:   v.Normalize(),
				})
			}
		}
	}
	return vertices
}

func boxIndices() []uint32 {
	return []uint32{
		0, 1, 3, 0, 3, 2,
		4, 6, 7, 4, 7, 5,
		0, 4, 5, 0, 5, 1,
		2, 3, 7, 2, 7, 6,
		1, 5, 7, 1, 7, 3,
		0, 2, 6, 0, 6, 4,
	}
}

func NewTestGame(cfg *config.Config) *engine.Game {
	state := &gameState{}

	game := &engine.Game{
		Config: cfg,
		State:  state,
	}

	game.FnInitialize = func(e *engine.Engine) error {
		state.engine = e

		model := treeModel()
		if err := e.Models.Register("tree", model); err != nil {
			return err
		}

		placements := make([]math.Transform, 5)
		for i := range placements {
			angle := float64(i) * 2 * gomath.Pi / float64(len(placements))
			placements[i] = math.NewTransform().Translate(math.Vec3{
				X: 3 * float32(gomath.Cos(angle)),
				Z: 3 * float32(gomath.Sin(angle)),
			})
		}
		state.trees = &Trees{model: model, placements: placements}
		state.fireflies = &Fireflies{}

		systems.AddRenderable(e.Scene, state.trees)
		systems.AddEmissive(e.Scene, state.fireflies)
		return nil
	}

	game.FnUpdate = func(deltaTime float64) error {
		state.fireflies.elapsed += float32(deltaTime)
		// The fireflies moved, so the light buffer must be rebuilt.
		state.engine.InvalidateGeometry()
		return nil
	}

	return game
}
