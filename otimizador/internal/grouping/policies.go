package grouping

import (
	"log"

	"DrawCallsOptimizer/otimizador/internal/catalog"
	"DrawCallsOptimizer/otimizador/internal/graph"
	"DrawCallsOptimizer/shared/scene"
)

// ByPolygons junta todos os candidatos num grupo quando a soma dos polígonos atinge o limite.
func ByPolygons(cands []catalog.Candidate, threshold int) []MergeGroup {
	if len(cands) == 0 {
		return nil
	}

	total := 0
	for _, c := range cands {
		total += c.Polygons
	}
	if total < threshold {
		log.Printf("[Grouping] %d polígonos abaixo do limite %d, nada a fundir", total, threshold)
		return nil
	}

	return []MergeGroup{{
		Entities:  ids(cands),
		Method:    Polygons,
		Materials: unionMaterials(cands),
	}}
}

type materialPartition struct {
	key     []scene.MaterialID
	members []catalog.Candidate
}

// ByMaterials particiona por contenção de conjuntos: o candidato entra na primeira
// partição cujo conjunto de materiais contém o seu; senão abre uma nova partição.
// Partições com pelo menos threshold membros viram grupos.
func ByMaterials(cands []catalog.Candidate, threshold int) []MergeGroup {
	var partitions []*materialPartition

	for _, c := range cands {
		if len(c.Materials) == 0 {
			continue
		}

		var target *materialPartition
		for _, p := range partitions {
			if containsAll(p.key, c.Materials) {
				target = p
				break
			}
		}
		if target == nil {
			target = &materialPartition{key: append([]scene.MaterialID(nil), c.Materials...)}
			partitions = append(partitions, target)
		}
		target.members = append(target.members, c)
	}

	var groups []MergeGroup
	for _, p := range partitions {
		if len(p.members) < threshold {
			continue
		}
		groups = append(groups, MergeGroup{
			Entities:  ids(p.members),
			Method:    Materials,
			Materials: p.key,
		})
	}

	if len(groups) == 0 && len(cands) > 0 {
		log.Printf("[Grouping] Nenhuma das %d partições de material atingiu %d membros", len(partitions), threshold)
	}
	return groups
}

// ByTags particiona pela tag exata, só para as tags permitidas.
// Partições com menos de 2 membros são descartadas.
func ByTags(cands []catalog.Candidate, allowed []string) []MergeGroup {
	allow := make(map[string]bool, len(allowed))
	for _, t := range allowed {
		allow[t] = true
	}

	var order []string
	byTag := make(map[string][]catalog.Candidate)
	for _, c := range cands {
		if c.ID == scene.NoEntity || !allow[c.Tag] {
			continue
		}
		if _, ok := byTag[c.Tag]; !ok {
			order = append(order, c.Tag)
		}
		byTag[c.Tag] = append(byTag[c.Tag], c)
	}

	var groups []MergeGroup
	for _, tag := range order {
		members := byTag[tag]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, MergeGroup{
			Entities:  ids(members),
			Method:    Tags,
			Materials: unionMaterials(members),
			Tag:       tag,
		})
	}

	if len(groups) == 0 && len(cands) > 0 {
		log.Printf("[Grouping] Nenhuma tag de %v com 2 ou mais objetos", allowed)
	}
	return groups
}

// ByDistance agrupa por proximidade com o agrupamento guloso do grafo.
// Os grupos são numerados a partir de 1.
func ByDistance(cands []catalog.Candidate, limit float32, drain bool) []MergeGroup {
	points := make([]graph.Point, len(cands))
	lookup := make(map[scene.EntityID]catalog.Candidate, len(cands))
	for i, c := range cands {
		points[i] = graph.Point{ID: c.ID, Position: c.Position}
		lookup[c.ID] = c
	}

	clusters := graph.Cluster(points, limit, drain)
	groups := make([]MergeGroup, 0, len(clusters))
	for i, cluster := range clusters {
		members := make([]catalog.Candidate, len(cluster))
		for j, id := range cluster {
			members[j] = lookup[id]
		}
		groups = append(groups, MergeGroup{
			Entities:       cluster,
			Method:         Distance,
			Materials:      unionMaterials(members),
			Iteration:      i + 1,
			FromCollection: drain,
		})
	}
	return groups
}

func ids(cands []catalog.Candidate) []scene.EntityID {
	out := make([]scene.EntityID, len(cands))
	for i, c := range cands {
		out[i] = c.ID
	}
	return out
}

func unionMaterials(cands []catalog.Candidate) []scene.MaterialID {
	var out []scene.MaterialID
	seen := make(map[scene.MaterialID]bool)
	for _, c := range cands {
		for _, m := range c.Materials {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// containsAll verifica se set contém todos os itens de items.
func containsAll(set, items []scene.MaterialID) bool {
	for _, it := range items {
		found := false
		for _, s := range set {
			if s == it {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
