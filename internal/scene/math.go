package scene

import "math"

// Vec3 is a world or local position.
type Vec3 struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
	Z float32 `json:"z" yaml:"z"`
}

func V3(x, y, z float32) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Quat is a rotation quaternion (x, y, z, w).
type Quat struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
	Z float32 `json:"z" yaml:"z"`
	W float32 `json:"w" yaml:"w"`
}

// QuatIdentity is the no-rotation quaternion.
func QuatIdentity() Quat { return Quat{W: 1} }

// AxisAngle builds a rotation of rad radians around a unit axis.
func AxisAngle(axis Vec3, rad float64) Quat {
	s := float32(math.Sin(rad / 2))
	return Quat{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: float32(math.Cos(rad / 2))}
}

// Mul returns q*o (apply o first, then q).
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Inverse assumes a unit quaternion.
func (q Quat) Inverse() Quat { return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W} }

func (q Quat) Normalize() Quat {
	n := float32(math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
	if n == 0 {
		return QuatIdentity()
	}
	return Quat{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}
