package assets

import (
	"fmt"
	"sync"

	"github.com/ashenvale/prism/engine/math"
	"github.com/google/uuid"
)

// Vertex matches the std430 layout the scene shader reads: position, uv and
// normal packed back to back, 32 bytes in total.
type Vertex struct {
	Position math.Vec3
	UV       math.Vec2
	Normal   math.Vec3
}

// Mesh is a shared piece of geometry. Its identity is the ID: two render
// objects referring to the same mesh share one copy of its vertices in the
// aggregated buffers.
type Mesh struct {
	ID       uuid.UUID
	Vertices []Vertex
	Indices  []uint32

	// Transform is local to the model; it composes with the owning
	// object's transform.
	Transform math.Transform
	Color     math.Vec4
}

func NewMesh(vertices []Vertex, indices []uint32, color math.Vec4) *Mesh {
	return &Mesh{
		ID:        uuid.New(),
		Vertices:  vertices,
		Indices:   indices,
		Transform: math.NewTransform(),
		Color:     color,
	}
}

type Model struct {
	Meshes []*Mesh
}

// ModelRegistry holds every loaded model. Iteration follows registration
// order, so geometry aggregation lays meshes out the same way every frame.
type ModelRegistry struct {
	mu     sync.Mutex
	names  []string
	models map[string]*Model
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: map[string]*Model{},
	}
}

func (r *ModelRegistry) Register(name string, model *Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[name]; exists {
		return fmt.Errorf("model %q already registered", name)
	}
	r.names = append(r.names, name)
	r.models[name] = model
	return nil
}

func (r *ModelRegistry) Get(name string) (*Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	model, ok := r.models[name]
	return model, ok
}

// Models returns every model in registration order.
func (r *ModelRegistry) Models() []*Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Model, len(r.names))
	for i, name := range r.names {
		out[i] = r.models[name]
	}
	return out
}
