package systems

import (
	"encoding/binary"
	"fmt"
	gomath "math"

	"github.com/ashenvale/prism/engine/assets"
	"github.com/ashenvale/prism/engine/math"
	"github.com/google/uuid"
)

// Light is a point light, packed to 32 bytes for the scene shader.
type Light struct {
	Position math.Vec3
	Strength float32
	Color    math.Vec3
}

// geometryData holds the frame's aggregated scene, one byte slice per
// storage buffer binding.
type geometryData struct {
	Vertices  []byte
	Indices   []byte
	Meshes    []byte
	Materials []byte
	Lights    []byte
}

// packer appends little-endian scalars to a byte buffer matching the std430
// layouts the shaders declare.
type packer struct {
	buf []byte
}

func (p *packer) i32(v int32) {
	p.buf = binary.LittleEndian.AppendUint32(p.buf, uint32(v))
}

func (p *packer) f32(v float32) {
	p.buf = binary.LittleEndian.AppendUint32(p.buf, gomath.Float32bits(v))
}

func (p *packer) vec2(v math.Vec2) {
	p.f32(v.X)
	p.f32(v.Y)
}

func (p *packer) vec3(v math.Vec3) {
	p.f32(v.X)
	p.f32(v.Y)
	p.f32(v.Z)
}

func (p *packer) vec4(v math.Vec4) {
	p.f32(v.X)
	p.f32(v.Y)
	p.f32(v.Z)
	p.f32(v.W)
}

func (p *packer) mat4(m math.Mat4) {
	for _, v := range m.Data {
		p.f32(v)
	}
}

// meshBounds returns the axis aligned bounds of the mesh's vertices after
// applying the transform.
func meshBounds(mesh *assets.Mesh, transform math.Transform) math.Extents3D {
	matrix := transform.Matrix()
	bounds := math.Extents3D{
		Min: math.Vec3{
			X: float32(gomath.Inf(1)), Y: float32(gomath.Inf(1)), Z: float32(gomath.Inf(1)),
		},
		Max: math.Vec3{
			X: float32(gomath.Inf(-1)), Y: float32(gomath.Inf(-1)), Z: float32(gomath.Inf(-1)),
		},
	}
	for _, vertex := range mesh.Vertices {
		v := matrix.MulPoint(vertex.Position)
		bounds.Min.X = math.Min(bounds.Min.X, v.X)
		bounds.Min.Y = math.Min(bounds.Min.Y, v.Y)
		bounds.Min.Z = math.Min(bounds.Min.Z, v.Z)
		bounds.Max.X = math.Max(bounds.Max.X, v.X)
		bounds.Max.Y = math.Max(bounds.Max.Y, v.Y)
		bounds.Max.Z = math.Max(bounds.Max.Z, v.Z)
	}
	return bounds
}

// buildGeometry flattens the scene into the five storage buffers the scene
// shader reads.
//
// Geometry is laid out per registered mesh, deduplicated by mesh ID, with
// indices rebased onto the shared vertex array. Each (object, mesh) pair
// then becomes one mesh record pointing into that shared pool, with its
// composed transform, world-space bounds and a material slot. The mesh and
// light buffers carry a 16 byte count prefix; indices are widened to 16
// bytes per entry to match the shader's array stride.
func buildGeometry(models []*assets.Model, objects []RenderObject, lights []Light) (geometryData, error) {
	meshToIndex := map[uuid.UUID]int32{}
	var vertices, indices packer
	var vertexCount, indexCount int32

	for _, model := range models {
		for _, mesh := range model.Meshes {
			if _, seen := meshToIndex[mesh.ID]; seen {
				continue
			}
			meshToIndex[mesh.ID] = indexCount
			for _, index := range mesh.Indices {
				indices.i32(int32(index) + vertexCount)
				indices.i32(0)
				indices.i32(0)
				indices.i32(0)
				indexCount++
			}
			for _, vertex := range mesh.Vertices {
				vertices.vec3(vertex.Position)
				vertices.vec2(vertex.UV)
				vertices.vec3(vertex.Normal)
			}
			vertexCount += int32(len(mesh.Vertices))
		}
	}

	var meshes, materials packer
	var meshCount int32
	for _, object := range objects {
		for _, mesh := range object.Model.Meshes {
			firstIndex, ok := meshToIndex[mesh.ID]
			if !ok {
				return geometryData{}, fmt.Errorf("mesh %s is rendered but not registered", mesh.ID)
			}

			transform := object.Transform.Combine(mesh.Transform)
			bounds := meshBounds(mesh, transform)

			meshes.i32(firstIndex)
			meshes.i32(int32(len(mesh.Indices)))
			meshes.i32(meshCount)
			meshes.f32(0)
			meshes.vec3(bounds.Min)
			meshes.f32(0)
			meshes.vec3(bounds.Max)
			meshes.f32(0)
			meshes.mat4(transform.Matrix())

			materials.vec4(mesh.Color)
			meshCount++
		}
	}

	var meshBuffer packer
	meshBuffer.i32(meshCount)
	meshBuffer.i32(0)
	meshBuffer.i32(0)
	meshBuffer.i32(0)
	meshBuffer.buf = append(meshBuffer.buf, meshes.buf...)

	var lightBuffer packer
	lightBuffer.i32(int32(len(lights)))
	lightBuffer.i32(0)
	lightBuffer.i32(0)
	lightBuffer.i32(0)
	for _, light := range lights {
		lightBuffer.vec3(light.Position)
		lightBuffer.f32(light.Strength)
		lightBuffer.vec3(light.Color)
		lightBuffer.f32(0)
	}

	return geometryData{
		Vertices:  vertices.buf,
		Indices:   indices.buf,
		Meshes:    meshBuffer.buf,
		Materials: materials.buf,
		Lights:    lightBuffer.buf,
	}, nil
}
