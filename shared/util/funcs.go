package util

import "math"

// Between verifica se um valor está entre um limite inferior e superior.
func Between(lower, t, upper float32) bool {
	return t >= lower && t <= upper
}

// DistSq retorna a distância quadrada entre dois vetores 3D.
func DistSq(v1, v2 Vector3) float32 {
	dx := v1.X - v2.X
	dy := v1.Y - v2.Y
	dz := v1.Z - v2.Z
	return dx*dx + dy*dy + dz*dz
}

// ApproxEqual compara dois floats com tolerância absoluta.
func ApproxEqual(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

// ApproxEqualVec compara dois vetores componente a componente.
func ApproxEqualVec(a, b Vector3, eps float32) bool {
	return ApproxEqual(a.X, b.X, eps) && ApproxEqual(a.Y, b.Y, eps) && ApproxEqual(a.Z, b.Z, eps)
}

// Component retorna o componente do eixo (0 = X, 1 = Y, 2 = Z).
func Component(v Vector3, axis int) float32 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
