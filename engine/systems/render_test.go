package systems

import (
	"encoding/binary"
	gomath "math"
	"runtime"
	"testing"

	"github.com/ashenvale/prism/engine/assets"
	"github.com/ashenvale/prism/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	vertexStride   = 32
	indexStride    = 16
	meshStride     = 112
	materialStride = 16
	lightStride    = 32
	countPrefix    = 16
)

func readI32(buf []byte, offset int) int32 {
	return int32(binary.LittleEndian.Uint32(buf[offset:]))
}

func readF32(buf []byte, offset int) float32 {
	return gomath.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}

func triangle(color math.Vec4) *assets.Mesh {
	return assets.NewMesh(
		[]assets.Vertex{
			{Position: math.Vec3{X: 0, Y: 0, Z: 0}},
			{Position: math.Vec3{X: 1, Y: 0, Z: 0}},
			{Position: math.Vec3{X: 0, Y: 1, Z: 0}},
		},
		[]uint32{0, 1, 2},
		color,
	)
}

func TestBuildGeometryIsDeterministic(t *testing.T) {
	model := &assets.Model{Meshes: []*assets.Mesh{triangle(math.Vec4{X: 1})}}
	objects := []RenderObject{{Model: model, Transform: math.NewTransform()}}
	lights := []Light{{Position: math.Vec3{X: 1}, Strength: 2, Color: math.Vec3{Y: 1}}}

	first, err := buildGeometry([]*assets.Model{model}, objects, lights)
	require.NoError(t, err)
	second, err := buildGeometry([]*assets.Model{model}, objects, lights)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildGeometrySharedMeshIsPackedOnce(t *testing.T) {
	model := &assets.Model{Meshes: []*assets.Mesh{triangle(math.Vec4{X: 1})}}
	objects := []RenderObject{
		{Model: model, Transform: math.NewTransform()},
		{Model: model, Transform: math.NewTransform().Translate(math.Vec3{X: 5})},
	}

	data, err := buildGeometry([]*assets.Model{model}, objects, nil)
	require.NoError(t, err)

	// One copy of the geometry, two mesh records pointing at it.
	assert.Len(t, data.Vertices, 3*vertexStride)
	assert.Len(t, data.Indices, 3*indexStride)
	assert.Equal(t, int32(2), readI32(data.Meshes, 0))
	assert.Len(t, data.Meshes, countPrefix+2*meshStride)

	firstRecord := countPrefix
	secondRecord := countPrefix + meshStride
	assert.Equal(t, readI32(data.Meshes, firstRecord), readI32(data.Meshes, secondRecord),
		"both records share the same first index")

	// Material slots are per record.
	assert.Equal(t, int32(0), readI32(data.Meshes, firstRecord+8))
	assert.Equal(t, int32(1), readI32(data.Meshes, secondRecord+8))
	assert.Len(t, data.Materials, 2*materialStride)
}

func TestBuildGeometryRebasesIndices(t *testing.T) {
	a := triangle(math.Vec4{X: 1})
	b := triangle(math.Vec4{Y: 1})
	registry := []*assets.Model{
		{Meshes: []*assets.Mesh{a}},
		{Meshes: []*assets.Mesh{b}},
	}

	data, err := buildGeometry(registry, nil, nil)
	require.NoError(t, err)

	// b's indices start after a's three vertices.
	assert.Equal(t, int32(0), readI32(data.Indices, 0))
	assert.Equal(t, int32(3), readI32(data.Indices, 3*indexStride))
	assert.Equal(t, int32(4), readI32(data.Indices, 4*indexStride))

	// Index entries are widened to 16 bytes with zero padding.
	assert.Equal(t, int32(0), readI32(data.Indices, 4))
	assert.Equal(t, int32(0), readI32(data.Indices, 8))
	assert.Equal(t, int32(0), readI32(data.Indices, 12))
}

func TestBuildGeometryBoundsFollowTransform(t *testing.T) {
	mesh := triangle(math.Vec4{X: 1})
	model := &assets.Model{Meshes: []*assets.Mesh{mesh}}
	objects := []RenderObject{
		{Model: model, Transform: math.NewTransform().Translate(math.Vec3{X: 10, Y: -2, Z: 3})},
	}

	data, err := buildGeometry([]*assets.Model{model}, objects, nil)
	require.NoError(t, err)

	record := countPrefix
	assert.InDelta(t, 10.0, readF32(data.Meshes, record+16), 1e-5)
	assert.InDelta(t, -2.0, readF32(data.Meshes, record+20), 1e-5)
	assert.InDelta(t, 3.0, readF32(data.Meshes, record+24), 1e-5)
	assert.InDelta(t, 11.0, readF32(data.Meshes, record+32), 1e-5)
	assert.InDelta(t, -1.0, readF32(data.Meshes, record+36), 1e-5)
	assert.InDelta(t, 3.0, readF32(data.Meshes, record+40), 1e-5)

	// The transform's translation column rides along in the record.
	assert.InDelta(t, 10.0, readF32(data.Meshes, record+48+12*4), 1e-5)
}

func TestBuildGeometryRejectsUnregisteredMesh(t *testing.T) {
	registered := &assets.Model{Meshes: []*assets.Mesh{triangle(math.Vec4{X: 1})}}
	rogue := &assets.Model{Meshes: []*assets.Mesh{triangle(math.Vec4{Y: 1})}}

	_, err := buildGeometry([]*assets.Model{registered},
		[]RenderObject{{Model: rogue, Transform: math.NewTransform()}}, nil)
	assert.Error(t, err)
}

func TestLightPacking(t *testing.T) {
	lights := []Light{
		{Position: math.Vec3{X: 1, Y: 2, Z: 3}, Strength: 4, Color: math.Vec3{X: 5, Y: 6, Z: 7}},
		{Position: math.Vec3{X: 8}, Strength: 9, Color: math.Vec3{Z: 10}},
	}

	data, err := buildGeometry(nil, nil, lights)
	require.NoError(t, err)

	assert.Equal(t, int32(2), readI32(data.Lights, 0))
	assert.Len(t, data.Lights, countPrefix+2*lightStride)

	record := countPrefix
	assert.InDelta(t, 1.0, readF32(data.Lights, record), 1e-6)
	assert.InDelta(t, 4.0, readF32(data.Lights, record+12), 1e-6)
	assert.InDelta(t, 5.0, readF32(data.Lights, record+16), 1e-6)
	assert.InDelta(t, 0.0, readF32(data.Lights, record+28), 1e-6)

	second := countPrefix + lightStride
	assert.InDelta(t, 8.0, readF32(data.Lights, second), 1e-6)
}

func TestEmptySceneStillCarriesCounts(t *testing.T) {
	data, err := buildGeometry(nil, nil, nil)
	require.NoError(t, err)

	assert.Empty(t, data.Vertices)
	assert.Empty(t, data.Indices)
	assert.Empty(t, data.Materials)
	assert.Equal(t, int32(0), readI32(data.Meshes, 0))
	assert.Equal(t, int32(0), readI32(data.Lights, 0))
}

type staticRenderable struct {
	objects []RenderObject
}

func (r *staticRenderable) RenderObjects() []RenderObject {
	return r.objects
}

type staticEmissive struct {
	lights []Light
}

func (e *staticEmissive) Lights() []Light {
	return e.lights
}

func TestCollectDropsDeadReferences(t *testing.T) {
	s := &System{}
	model := &assets.Model{}

	alive := &staticRenderable{objects: []RenderObject{{Model: model}}}
	AddRenderable(s, alive)

	dead := &staticRenderable{objects: []RenderObject{{Model: model}, {Model: model}}}
	AddRenderable(s, dead)
	dead = nil

	runtime.GC()
	runtime.GC()

	objects := s.collectObjects()
	assert.Len(t, objects, 1, "only the live renderable contributes")
	assert.Len(t, s.renderables, 1, "the dead entry is pruned from the registry")

	runtime.KeepAlive(alive)
}

func TestCollectLightsKeepsLiveEmissives(t *testing.T) {
	s := &System{}
	glow := &staticEmissive{lights: []Light{{Strength: 1}, {Strength: 2}}}
	AddEmissive(s, glow)

	assert.Len(t, s.collectLights(), 2)
	assert.Len(t, s.collectLights(), 2, "collection must not consume the registry")

	runtime.KeepAlive(glow)
}

func TestPackCameraLayout(t *testing.T) {
	view := math.NewMat4Identity()
	proj := math.NewMat4Orthographic(-1, 1, -1, 1, 0.1, 100)

	buf := packCamera(view, proj)
	require.Len(t, buf, 128)
	assert.InDelta(t, 1.0, readF32(buf, 0), 1e-6)
	assert.InDelta(t, float64(proj.Data[0]), readF32(buf, 64), 1e-6)
}

func TestPackFrameTiming(t *testing.T) {
	buf := packFrameTiming(1.5, 0.016)
	require.Len(t, buf, 8)
	assert.InDelta(t, 1.5, readF32(buf, 0), 1e-6)
	assert.InDelta(t, 0.016, readF32(buf, 4), 1e-6)
}

func TestNonEmptyPadsZeroLengthBuffers(t *testing.T) {
	assert.Len(t, nonEmpty(nil), 16)
	assert.Equal(t, []byte{1, 2}, nonEmpty([]byte{1, 2}))
}
