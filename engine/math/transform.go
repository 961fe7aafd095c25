package math

// Transform is a position, rotation and scale in that application order
// (scale first, then rotation, then translation).
type Transform struct {
	Position Vec3
	Rotation Quaternion
	Scale    Vec3
}

func NewTransform() Transform {
	return Transform{
		Rotation: QuaternionIdentity(),
		Scale:    Vec3{1, 1, 1},
	}
}

func (t Transform) Translate(offset Vec3) Transform {
	t.Position = t.Position.Add(offset)
	return t
}

func (t Transform) Rotate(rotation Quaternion) Transform {
	t.Rotation = rotation.Mul(t.Rotation)
	return t
}

func (t Transform) Scaled(scale Vec3) Transform {
	t.Scale = t.Scale.MulElem(scale)
	return t
}

// Combine composes t with a child transform, so that the returned
// transform's matrix equals t.Matrix() * child.Matrix().
func (t Transform) Combine(child Transform) Transform {
	return Transform{
		Position: t.Position.Add(t.Rotation.Rotate(child.Position.MulElem(t.Scale))),
		Rotation: t.Rotation.Mul(child.Rotation),
		Scale:    t.Scale.MulElem(child.Scale),
	}
}

func (t Transform) Matrix() Mat4 {
	return NewMat4Translation(t.Position).
		Mul(NewMat4FromQuaternion(t.Rotation)).
		Mul(NewMat4Scale(t.Scale))
}
