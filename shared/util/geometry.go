package util

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

// Vector3 é um alias para rl.Vector3 para conveniência
type Vector3 = rl.Vector3

// Rotation representa a orientação de uma região ou chunk no mundo.
type Rotation = mgl32.Quat

// NewVector3 cria um novo vetor 3D.
func NewVector3(x, y, z float32) Vector3 {
	return rl.NewVector3(x, y, z)
}

// IdentityRotation retorna a orientação neutra (sem rotação).
func IdentityRotation() Rotation {
	return mgl32.QuatIdent()
}

// RotationFromEuler cria uma orientação a partir de ângulos em graus (ordem X, Y, Z).
func RotationFromEuler(x, y, z float32) Rotation {
	return mgl32.AnglesToQuat(
		mgl32.DegToRad(x),
		mgl32.DegToRad(y),
		mgl32.DegToRad(z),
		mgl32.XYZ,
	).Normalize()
}

// Rotate aplica a orientação q ao vetor v.
func Rotate(q Rotation, v Vector3) Vector3 {
	r := q.Rotate(mgl32.Vec3{v.X, v.Y, v.Z})
	return Vector3{X: r[0], Y: r[1], Z: r[2]}
}

// InverseRotate leva um vetor do espaço do mundo para o espaço local de q.
func InverseRotate(q Rotation, v Vector3) Vector3 {
	return Rotate(q.Inverse(), v)
}

// Distance retorna a distância euclidiana entre dois pontos.
func Distance(a, b Vector3) float32 {
	return rl.Vector3Distance(a, b)
}

// AABB é uma caixa alinhada aos eixos descrita por centro e meia-extensão,
// no mesmo formato do Bounds da engine.
type AABB struct {
	Center  Vector3
	Extents Vector3
}

// NewAABB cria uma caixa a partir do centro e do tamanho total.
func NewAABB(center, size Vector3) AABB {
	return AABB{Center: center, Extents: rl.Vector3Scale(size, 0.5)}
}

// AABBFromMinMax cria uma caixa a partir dos cantos mínimo e máximo.
func AABBFromMinMax(min, max Vector3) AABB {
	return AABB{
		Center:  rl.Vector3Scale(rl.Vector3Add(min, max), 0.5),
		Extents: rl.Vector3Scale(rl.Vector3Subtract(max, min), 0.5),
	}
}

// Min retorna o canto mínimo.
func (b AABB) Min() Vector3 {
	return rl.Vector3Subtract(b.Center, b.Extents)
}

// Max retorna o canto máximo.
func (b AABB) Max() Vector3 {
	return rl.Vector3Add(b.Center, b.Extents)
}

// Size retorna o tamanho total em cada eixo.
func (b AABB) Size() Vector3 {
	return rl.Vector3Scale(b.Extents, 2)
}

// Encapsulate expande a caixa para conter outra caixa.
func (b AABB) Encapsulate(other AABB) AABB {
	return AABBFromMinMax(
		rl.Vector3Min(b.Min(), other.Min()),
		rl.Vector3Max(b.Max(), other.Max()),
	)
}

// EncapsulatePoint expande a caixa para conter um ponto.
func (b AABB) EncapsulatePoint(p Vector3) AABB {
	return AABBFromMinMax(rl.Vector3Min(b.Min(), p), rl.Vector3Max(b.Max(), p))
}

// Contains verifica se o ponto está dentro da caixa (faces inclusivas).
func (b AABB) Contains(p Vector3) bool {
	min, max := b.Min(), b.Max()
	return Between(min.X, p.X, max.X) &&
		Between(min.Y, p.Y, max.Y) &&
		Between(min.Z, p.Z, max.Z)
}

// Overlaps verifica se duas caixas compartilham volume (encostar nas faces não conta).
func (b AABB) Overlaps(other AABB) bool {
	amin, amax := b.Min(), b.Max()
	bmin, bmax := other.Min(), other.Max()
	return amin.X < bmax.X && bmin.X < amax.X &&
		amin.Y < bmax.Y && bmin.Y < amax.Y &&
		amin.Z < bmax.Z && bmin.Z < amax.Z
}

// Volume retorna o volume da caixa.
func (b AABB) Volume() float32 {
	s := b.Size()
	return s.X * s.Y * s.Z
}

// String retorna a representação em string da caixa.
func (b AABB) String() string {
	return fmt.Sprintf("AABB{centro: (%.3f, %.3f, %.3f), tamanho: (%.3f, %.3f, %.3f)}",
		b.Center.X, b.Center.Y, b.Center.Z,
		b.Extents.X*2, b.Extents.Y*2, b.Extents.Z*2)
}
