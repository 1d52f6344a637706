package scene

import (
	"DrawCallsOptimizer/shared/util"

	"github.com/dhconnelly/rtreego"
)

// pointTolerance é a meia-largura do retângulo que representa uma posição na R-tree.
const pointTolerance = 1e-4

// spatialIndex é uma R-tree imutável com as posições das entidades.
type spatialIndex struct {
	tree *rtreego.Rtree
}

type spatialEntry struct {
	id   EntityID
	rect rtreego.Rect
}

func (e spatialEntry) Bounds() rtreego.Rect {
	return e.rect
}

func toPoint(v util.Vector3) rtreego.Point {
	return rtreego.Point{float64(v.X), float64(v.Y), float64(v.Z)}
}

// buildSpatialIndex constrói o índice em lote (bulk load) a partir das entidades.
func buildSpatialIndex(entities map[EntityID]*Entity) *spatialIndex {
	objs := make([]rtreego.Spatial, 0, len(entities))
	for id, e := range entities {
		objs = append(objs, spatialEntry{id: id, rect: toPoint(e.Position).ToRect(pointTolerance)})
	}
	return &spatialIndex{tree: rtreego.NewTree(3, 25, 50, objs...)}
}

// search retorna os candidatos cujo retângulo cruza a caixa (com folga).
// O chamador confirma a contenção exata.
func (idx *spatialIndex) search(box util.AABB) []EntityID {
	min, max := box.Min(), box.Max()
	lo := toPoint(min)
	hi := toPoint(max)
	for i := range lo {
		lo[i] -= 2 * pointTolerance
		hi[i] += 2 * pointTolerance
	}
	rect, err := rtreego.NewRectFromPoints(lo, hi)
	if err != nil {
		return nil
	}

	hits := idx.tree.SearchIntersect(rect)
	out := make([]EntityID, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(spatialEntry).id)
	}
	return out
}
