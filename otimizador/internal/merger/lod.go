package merger

import (
	"fmt"
	"math"

	"DrawCallsOptimizer/otimizador/internal/grouping"
	"DrawCallsOptimizer/shared/scene"
)

// LODGenerator transforma a entidade fundida num grupo de LOD: cada qualidade vira
// um filho de detalhe com a malha reduzida proporcionalmente.
type LODGenerator struct {
	Store *scene.Store
}

var _ grouping.LODGenerator = (*LODGenerator)(nil)

// NewLODGenerator cria o gerador sobre a cena.
func NewLODGenerator(store *scene.Store) *LODGenerator {
	return &LODGenerator{Store: store}
}

// GenerateLODs cria um nível por qualidade (1.0 = malha completa).
func (g *LODGenerator) GenerateLODs(id scene.EntityID, qualities []float32) error {
	src, err := g.Store.Get(id)
	if err != nil {
		return err
	}
	if !src.HasRenderer {
		return fmt.Errorf("%s não tem renderer para gerar LODs", src.Name)
	}

	levels := make([][]scene.EntityID, 0, len(qualities))
	for level, q := range qualities {
		detail := scene.Entity{
			Name:        fmt.Sprintf("%s_LOD%d", src.Name, level),
			Tag:         src.Tag,
			Position:    src.Position,
			Rotation:    src.Rotation,
			Scale:       src.Scale,
			HasRenderer: true,
			Bounds:      src.Bounds,
			Polygons:    reduced(src.Polygons, q),
			Materials:   src.Materials,
			Static:      src.Static,
			Active:      true,
			Parent:      id,
			LOD:         scene.LODDetail,
			LODLevel:    level,
		}
		if src.Mesh != nil {
			mesh := simplify(*src.Mesh, q)
			detail.Mesh = &mesh
			detail.Polygons = mesh.TriangleCount()
		}
		levels = append(levels, []scene.EntityID{g.Store.Create(detail)})
	}

	return g.Store.Update(id, func(e *scene.Entity) {
		e.HasRenderer = false
		e.Mesh = nil
		e.LOD = scene.LODRepresentative
		e.LODLevels = levels
	})
}

func reduced(polygons int, quality float32) int {
	n := int(math.Round(float64(polygons) * float64(quality)))
	if n < 1 && polygons > 0 {
		n = 1
	}
	return n
}

// simplify mantém a fração q dos triângulos de cada sub-malha.
func simplify(g scene.GeometryData, q float32) scene.GeometryData {
	out := g.Clone()
	if q >= 1 {
		return out
	}

	out.Indices = out.Indices[:0]
	if len(g.SubMeshes) == 0 {
		keep := reduced(g.TriangleCount(), q) * 3
		out.Indices = append(out.Indices, g.Indices[:keep]...)
		return out
	}

	out.SubMeshes = out.SubMeshes[:0]
	for _, sm := range g.SubMeshes {
		keep := reduced(sm.Count/3, q) * 3
		out.SubMeshes = append(out.SubMeshes, scene.SubMesh{Material: sm.Material, Start: len(out.Indices), Count: keep})
		out.Indices = append(out.Indices, g.Indices[sm.Start:sm.Start+keep]...)
	}
	return out
}
