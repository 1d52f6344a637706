package grouping

import (
	"strconv"
	"strings"

	"DrawCallsOptimizer/shared/scene"
)

// MaterialNamer resolve o nome de exibição de um material.
type MaterialNamer interface {
	Name(id scene.MaterialID) string
}

// Namer compõe o nome da entidade fundida:
// [região_][chunk_]Rótulo[_materiais...|_tag][_iteração]
type Namer struct {
	Region    string
	Materials MaterialNamer
}

// Name retorna o nome do grupo.
func (n Namer) Name(g MergeGroup) string {
	var sb strings.Builder

	if n.Region != "" {
		sb.WriteString(n.Region)
		sb.WriteByte('_')
	}
	if g.Chunk != "" {
		sb.WriteString(g.Chunk)
		sb.WriteByte('_')
	}
	sb.WriteString(g.Method.String())

	switch g.Method {
	case Materials:
		for _, m := range g.Materials {
			sb.WriteByte('_')
			if n.Materials != nil {
				sb.WriteString(n.Materials.Name(m))
			} else {
				sb.WriteString("Material_" + strconv.Itoa(int(m)))
			}
		}
	case Tags:
		sb.WriteByte('_')
		sb.WriteString(g.Tag)
	}

	if g.Iteration > 0 {
		sb.WriteByte('_')
		sb.WriteString(strconv.Itoa(g.Iteration))
	}
	return sb.String()
}
