package math

import "math"

/**
 * @brief Creates and returns an identity matrix
 */
func NewMat4Identity() Mat4 {
	out := Mat4{}
	out.Data[0] = 1.0
	out.Data[5] = 1.0
	out.Data[10] = 1.0
	out.Data[15] = 1.0
	return out
}

/**
 * @brief Returns the result of multiplying mt and other. The result applies
 * mt first, then other.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	out := Mat4{}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			out.Data[row*4+col] = sum
		}
	}
	return out
}

/**
 * @brief Creates and returns a right-handed perspective matrix with clip depth in [-1, 1].
 * Combine with NewMat4ClipFixup for Vulkan clip space.
 */
func NewMat4Perspective(fovRadians, aspectRatio, nearClip, farClip float32) Mat4 {
	halfTanFov := float32(math.Tan(float64(fovRadians) * 0.5))
	out := Mat4{}
	out.Data[0] = 1.0 / (aspectRatio * halfTanFov)
	out.Data[5] = 1.0 / halfTanFov
	out.Data[10] = -((farClip + nearClip) / (farClip - nearClip))
	out.Data[11] = -1.0
	out.Data[14] = -((2.0 * farClip * nearClip) / (farClip - nearClip))
	return out
}

// NewMat4ClipFixup flips Y and remaps depth from [-1, 1] to [0, 1].
func NewMat4ClipFixup() Mat4 {
	out := Mat4{}
	out.Data[0] = 1.0
	out.Data[5] = -1.0
	out.Data[10] = 0.5
	out.Data[14] = 0.5
	out.Data[15] = 1.0
	return out
}

/**
 * @brief Creates and returns a look-at matrix, or a matrix looking
 * at target from the perspective of position.
 */
func NewMat4LookAt(position, target, up Vec3) Mat4 {
	out := Mat4{}
	zAxis := target.Sub(position).Normalized()
	xAxis := zAxis.Cross(up).Normalized()
	yAxis := xAxis.Cross(zAxis)

	out.Data[0] = xAxis.X
	out.Data[1] = yAxis.X
	out.Data[2] = -zAxis.X
	out.Data[4] = xAxis.Y
	out.Data[5] = yAxis.Y
	out.Data[6] = -zAxis.Y
	out.Data[8] = xAxis.Z
	out.Data[9] = yAxis.Z
	out.Data[10] = -zAxis.Z
	out.Data[12] = -xAxis.Dot(position)
	out.Data[13] = -yAxis.Dot(position)
	out.Data[14] = zAxis.Dot(position)
	out.Data[15] = 1.0
	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12] = position.X
	out.Data[13] = position.Y
	out.Data[14] = position.Z
	return out
}

func NewMat4Scale(scale Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = scale.X
	out.Data[5] = scale.Y
	out.Data[10] = scale.Z
	return out
}

// NewMat4AxisAngle builds a rotation of angleRadians around the given axis.
func NewMat4AxisAngle(axis Vec3, angleRadians float32) Mat4 {
	a := axis.Normalized()
	s, c := math.Sincos(float64(angleRadians))
	sin, cos := float32(s), float32(c)
	t := 1 - cos

	out := NewMat4Identity()
	out.Data[0] = t*a.X*a.X + cos
	out.Data[1] = t*a.X*a.Y + sin*a.Z
	out.Data[2] = t*a.X*a.Z - sin*a.Y
	out.Data[4] = t*a.X*a.Y - sin*a.Z
	out.Data[5] = t*a.Y*a.Y + cos
	out.Data[6] = t*a.Y*a.Z + sin*a.X
	out.Data[8] = t*a.X*a.Z + sin*a.Y
	out.Data[9] = t*a.Y*a.Z - sin*a.X
	out.Data[10] = t*a.Z*a.Z + cos
	return out
}
