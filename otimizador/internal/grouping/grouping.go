// Package grouping decide quais candidatos são fundidos juntos.
// Cada método recebe os candidatos de um chunk (ou da cena inteira) e devolve
// grupos disjuntos prontos para o MeshMerger.
package grouping

import (
	"fmt"

	"DrawCallsOptimizer/otimizador/internal/catalog"
	"DrawCallsOptimizer/shared/scene"
)

// Method é a política de agrupamento.
type Method int

const (
	Polygons Method = iota
	Materials
	Tags
	Distance
)

// Methods lista os métodos na ordem em que a passada os executa.
var Methods = []Method{Polygons, Materials, Tags, Distance}

// String retorna o rótulo usado no nome das entidades fundidas.
func (m Method) String() string {
	switch m {
	case Polygons:
		return "CombinedByPolygons"
	case Materials:
		return "CombinedByMaterials"
	case Tags:
		return "CombinedByTags"
	case Distance:
		return "CombinedByDistance"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Key retorna o nome curto do método (relatórios e persistência).
func (m Method) Key() string {
	switch m {
	case Polygons:
		return "polygons"
	case Materials:
		return "materials"
	case Tags:
		return "tags"
	case Distance:
		return "distance"
	}
	return "unknown"
}

// MergeGroup é um conjunto de entidades que vira uma única entidade renderizável.
type MergeGroup struct {
	Entities  []scene.EntityID
	Method    Method
	Chunk     string             // Vazio quando o agrupamento é global
	Materials []scene.MaterialID // Chave da partição (materiais) ou união dos materiais dos membros
	Tag       string             // Só para Tags
	Iteration int                // Numeração dos grupos por distância (0 = sem número)

	// Grupo drenado de uma coleção explícita
	FromCollection bool

	Name string
}

// Params são os parâmetros das políticas.
type Params struct {
	PolygonThreshold  int
	MaterialThreshold int
	Tags              []string
	DistanceLimit     float32
	Drain             bool // Distância: agrupa também o último candidato isolado
}

// Group despacha para a política do método.
func Group(method Method, cands []catalog.Candidate, p Params) []MergeGroup {
	switch method {
	case Polygons:
		return ByPolygons(cands, p.PolygonThreshold)
	case Materials:
		return ByMaterials(cands, p.MaterialThreshold)
	case Tags:
		return ByTags(cands, p.Tags)
	case Distance:
		return ByDistance(cands, p.DistanceLimit, p.Drain)
	}
	return nil
}
