package scene

import (
	"fmt"

	"DrawCallsOptimizer/shared/util"
)

// EntityID é o identificador estável de uma entidade na cena.
// O valor zero significa "nenhuma entidade" (ex: sem pai).
type EntityID int64

// NoEntity indica ausência de entidade.
const NoEntity EntityID = 0

// String retorna a representação em string do identificador.
func (id EntityID) String() string {
	return fmt.Sprintf("#%d", int64(id))
}

// MaterialID identifica um material registrado no MaterialStore.
type MaterialID int32

// LODRole descreve o papel de uma entidade num grupo de níveis de detalhe.
type LODRole int

const (
	LODNone           LODRole = 0 // Entidade comum
	LODRepresentative LODRole = 1 // Dono do grupo de LOD (sem renderer próprio)
	LODDetail         LODRole = 2 // Renderer de um nível de detalhe (ver LODLevel)
)

// String retorna o nome do papel.
func (r LODRole) String() string {
	switch r {
	case LODRepresentative:
		return "Representative"
	case LODDetail:
		return "DetailChild"
	default:
		return "None"
	}
}

// Entity é um objeto da cena. A cópia retornada pelo Engine é um snapshot:
// alterações nela não afetam a cena.
type Entity struct {
	ID   EntityID
	Name string
	Tag  string

	// Transformação no mundo
	Position util.Vector3
	Rotation util.Rotation
	Scale    util.Vector3

	// Renderização
	HasRenderer bool
	Bounds      util.AABB // Limites do renderer no mundo
	Polygons    int       // Quantidade de triângulos da malha
	Materials   []MaterialID
	Mesh        *GeometryData // Opcional: usada pelo merger de referência

	Static bool
	Active bool

	Parent EntityID

	// LOD
	LOD       LODRole
	LODLevel  int          // Nível quando LOD == LODDetail
	LODLevels [][]EntityID // Renderers por nível quando LOD == LODRepresentative
}

// Clone realiza uma cópia profunda da entidade.
func (e Entity) Clone() Entity {
	c := e
	if e.Materials != nil {
		c.Materials = make([]MaterialID, len(e.Materials))
		copy(c.Materials, e.Materials)
	}
	if e.Mesh != nil {
		mesh := e.Mesh.Clone()
		c.Mesh = &mesh
	}
	if e.LODLevels != nil {
		c.LODLevels = make([][]EntityID, len(e.LODLevels))
		for i, level := range e.LODLevels {
			c.LODLevels[i] = append([]EntityID(nil), level...)
		}
	}
	return c
}

// Renderable indica se a entidade é candidata a otimização
// (tem malha própria ou é dona de um grupo de LOD).
func (e Entity) Renderable() bool {
	return e.HasRenderer || e.LOD == LODRepresentative
}

// HasMaterial verifica se a entidade usa o material informado.
func (e Entity) HasMaterial(id MaterialID) bool {
	for _, m := range e.Materials {
		if m == id {
			return true
		}
	}
	return false
}
