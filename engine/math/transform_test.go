package math

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertVec3Near(t *testing.T, expected, actual Vec3) {
	t.Helper()
	assert.InDelta(t, expected.X, actual.X, 1e-5)
	assert.InDelta(t, expected.Y, actual.Y, 1e-5)
	assert.InDelta(t, expected.Z, actual.Z, 1e-5)
}

func TestTransformMatrixAppliesScaleRotateTranslate(t *testing.T) {
	tr := Transform{
		Position: Vec3{10, 0, 0},
		Rotation: NewQuaternionAxisAngle(Vec3{0, 0, 1}, gomath.Pi/2),
		Scale:    Vec3{2, 2, 2},
	}

	// (1,0,0) scales to (2,0,0), rotates to (0,2,0), translates to (10,2,0).
	got := tr.Matrix().MulPoint(Vec3{1, 0, 0})
	assertVec3Near(t, Vec3{10, 2, 0}, got)
}

func TestTransformCombineMatchesMatrixProduct(t *testing.T) {
	parent := Transform{
		Position: Vec3{1, 2, 3},
		Rotation: NewQuaternionAxisAngle(Vec3{0, 1, 0}, gomath.Pi/3),
		Scale:    Vec3{2, 2, 2},
	}
	child := Transform{
		Position: Vec3{-4, 0, 5},
		Rotation: NewQuaternionAxisAngle(Vec3{1, 0, 0}, gomath.Pi/5),
		Scale:    Vec3{0.5, 0.5, 0.5},
	}

	combined := parent.Combine(child)
	product := parent.Matrix().Mul(child.Matrix())

	p := Vec3{0.3, -1.2, 2.7}
	assertVec3Near(t, product.MulPoint(p), combined.Matrix().MulPoint(p))
}

func TestOrthographicMapsCornersToClipSpace(t *testing.T) {
	proj := NewMat4Orthographic(0, 480, 0, 270, 0, 100)

	bl := proj.MulVec4(Vec4{0, 0, 0, 1})
	assert.InDelta(t, -1.0, float64(bl.X), 1e-5)
	assert.InDelta(t, -1.0, float64(bl.Y), 1e-5)
	assert.InDelta(t, 0.0, float64(bl.Z), 1e-5)

	tr := proj.MulVec4(Vec4{480, 270, -100, 1})
	assert.InDelta(t, 1.0, float64(tr.X), 1e-5)
	assert.InDelta(t, 1.0, float64(tr.Y), 1e-5)
	assert.InDelta(t, 1.0, float64(tr.Z), 1e-5)
}

func TestLookAtMovesEyeToOrigin(t *testing.T) {
	eye := Vec3{5, 3, 8}
	view := NewMat4LookAt(eye, Vec3{0, 0, 0}, Vec3{0, 1, 0})

	assertVec3Near(t, Vec3{0, 0, 0}, view.MulPoint(eye))

	// The look direction maps onto -Z.
	ahead := view.MulPoint(Vec3{0, 0, 0})
	assert.InDelta(t, 0.0, float64(ahead.X), 1e-5)
	assert.InDelta(t, 0.0, float64(ahead.Y), 1e-5)
	assert.Less(t, float64(ahead.Z), 0.0)
}
