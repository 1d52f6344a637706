// Package chunks divide a região analisada numa grade 3D de chunks orientados
// e distribui os candidatos entre eles.
package chunks

import (
	"fmt"
	"log"

	"DrawCallsOptimizer/shared/config"
	"DrawCallsOptimizer/shared/scene"
	"DrawCallsOptimizer/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// ErrInvalidConfiguration é retornado para subdivisões com eixo < 1.
var ErrInvalidConfiguration = config.ErrInvalidConfiguration

// Count é a quantidade de chunks por eixo.
type Count = config.ChunkCount

// Region é o volume subdividido: uma caixa com orientação própria.
type Region struct {
	Name     string
	Bounds   util.AABB     // Centro no mundo; meia-extensão no referencial da região
	Rotation util.Rotation // Orientação usada como referencial da subdivisão
	Entity   scene.EntityID
}

// Chunk é uma célula da grade.
type Chunk struct {
	Ordinal  int
	Name     string
	Index    [3]int // (i, j, k)
	Center   util.Vector3
	Size     util.Vector3
	Rotation util.Rotation
	Entity   scene.EntityID // NoEntity enquanto não materializado

	origin util.Vector3 // Centro da região
	lo, hi util.Vector3 // Limites no espaço local da região
	closed [3]bool      // Face superior fechada (célula encosta no limite máximo da região)
}

// LocalBounds retorna os limites do chunk no espaço local da região.
func (c Chunk) LocalBounds() util.AABB {
	return util.AABBFromMinMax(c.lo, c.hi)
}

// Bounds retorna a caixa alinhada aos eixos do mundo que envolve o chunk.
func (c Chunk) Bounds() util.AABB {
	half := rl.Vector3Scale(c.Size, 0.5)
	box := util.NewAABB(c.Center, util.Vector3{})
	for _, sx := range []float32{-1, 1} {
		for _, sy := range []float32{-1, 1} {
			for _, sz := range []float32{-1, 1} {
				corner := util.NewVector3(sx*half.X, sy*half.Y, sz*half.Z)
				box = box.EncapsulatePoint(rl.Vector3Add(c.Center, util.Rotate(c.Rotation, corner)))
			}
		}
	}
	return box
}

// Contains testa o ponto no referencial da região: [min, max) em cada eixo,
// fechado em max quando a célula encosta na face máxima da região.
func (c Chunk) Contains(p util.Vector3) bool {
	local := util.InverseRotate(c.Rotation, rl.Vector3Subtract(p, c.origin))
	for axis := 0; axis < 3; axis++ {
		v := util.Component(local, axis)
		lo := util.Component(c.lo, axis)
		hi := util.Component(c.hi, axis)
		if v < lo {
			return false
		}
		if v > hi || (v == hi && !c.closed[axis]) {
			return false
		}
	}
	return true
}

// boundary retorna a posição local do plano n (0..count) de um eixo.
// O último plano é exatamente a face oposta para não acumular erro de arredondamento.
func boundary(extent, cell float32, n, count int, descending bool) float32 {
	if descending {
		if n == count {
			return -extent
		}
		return extent - cell*float32(n)
	}
	if n == count {
		return extent
	}
	return -extent + cell*float32(n)
}

// Build cria os X*Y*Z chunks que ladrilham a região. Os índices crescem em +X, -Y e +Z
// a partir do canto local (-x, +y, -z), e o ordinal é i*Y*Z + j*Z + k.
func Build(region Region, count Count) ([]Chunk, error) {
	if count.X < 1 || count.Y < 1 || count.Z < 1 {
		return nil, fmt.Errorf("%w: subdivisão (%d, %d, %d) deve ser >= 1 em todos os eixos",
			ErrInvalidConfiguration, count.X, count.Y, count.Z)
	}

	// Rotate pressupõe quatérnio unitário
	rot := region.Rotation
	if rot.W == 0 && rot.V.Len() == 0 {
		rot = util.IdentityRotation()
	} else {
		rot = rot.Normalize()
	}

	ext := region.Bounds.Extents
	size := region.Bounds.Size()
	cell := util.NewVector3(
		size.X/float32(count.X),
		size.Y/float32(count.Y),
		size.Z/float32(count.Z),
	)

	out := make([]Chunk, 0, count.Total())
	for i := 0; i < count.X; i++ {
		for j := 0; j < count.Y; j++ {
			for k := 0; k < count.Z; k++ {
				lo := util.NewVector3(
					boundary(ext.X, cell.X, i, count.X, false),
					boundary(ext.Y, cell.Y, j+1, count.Y, true),
					boundary(ext.Z, cell.Z, k, count.Z, false),
				)
				hi := util.NewVector3(
					boundary(ext.X, cell.X, i+1, count.X, false),
					boundary(ext.Y, cell.Y, j, count.Y, true),
					boundary(ext.Z, cell.Z, k+1, count.Z, false),
				)
				localCenter := rl.Vector3Scale(rl.Vector3Add(lo, hi), 0.5)
				ordinal := i*count.Y*count.Z + j*count.Z + k

				out = append(out, Chunk{
					Ordinal:  ordinal,
					Name:     fmt.Sprintf("Chunk_%d", ordinal+1),
					Index:    [3]int{i, j, k},
					Center:   rl.Vector3Add(region.Bounds.Center, util.Rotate(rot, localCenter)),
					Size:     rl.Vector3Subtract(hi, lo),
					Rotation: rot,
					origin:   region.Bounds.Center,
					lo:       lo,
					hi:       hi,
					closed:   [3]bool{i == count.X-1, j == 0, k == count.Z-1},
				})
			}
		}
	}

	log.Printf("[Chunks] Região %q dividida em %d chunks (%dx%dx%d), tamanho da célula %.2f x %.2f x %.2f",
		region.Name, len(out), count.X, count.Y, count.Z, cell.X, cell.Y, cell.Z)
	return out, nil
}

// Materialize cria os chunks como entidades inativas filhas da região.
// Retorna os IDs criados na mesma ordem dos chunks.
func Materialize(eng scene.Engine, parent scene.EntityID, chunks []Chunk) []scene.EntityID {
	ids := make([]scene.EntityID, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		c.Entity = eng.Create(scene.Entity{
			Name:     c.Name,
			Position: c.Center,
			Rotation: c.Rotation,
			Scale:    c.Size,
			Bounds:   c.Bounds(),
			Parent:   parent,
			Active:   false,
		})
		ids = append(ids, c.Entity)
	}
	return ids
}
