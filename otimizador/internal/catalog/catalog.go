// Package catalog enumera as entidades elegíveis para otimização e calcula os seus limites.
package catalog

import (
	"errors"
	"log"

	"DrawCallsOptimizer/shared/scene"
	"DrawCallsOptimizer/shared/util"
)

// Candidate é o snapshot de uma entidade usado pelas políticas de agrupamento.
// Para um representante de LOD, limites, polígonos e materiais são o agregado
// dos renderers do nível 0.
type Candidate struct {
	ID        scene.EntityID
	Name      string
	Tag       string
	Position  util.Vector3
	Bounds    util.AABB
	Polygons  int
	Materials []scene.MaterialID
	Static    bool
	LOD       scene.LODRole
}

// Filter restringe quais entidades da cena entram na passada.
type Filter struct {
	OnlyStatic bool
	Bounds     *util.AABB     // Limites do objeto de limites (nil = cena inteira)
	Exclude    scene.EntityID // O próprio objeto de limites nunca é candidato
}

// Collect retorna as entidades ativas e renderizáveis que passam pelo filtro, em ordem de ID.
func Collect(eng scene.Engine, f Filter) []scene.EntityID {
	var ids []scene.EntityID
	if f.Bounds != nil {
		ids = eng.InBounds(*f.Bounds)
	} else {
		ids = eng.All()
	}
	return CollectFrom(eng, ids, f)
}

// CollectFrom aplica o filtro a uma lista de IDs já conhecida (ex: descendentes de uma coleção).
// Filter.Bounds é ignorado aqui.
func CollectFrom(eng scene.Engine, ids []scene.EntityID, f Filter) []scene.EntityID {
	out := make([]scene.EntityID, 0, len(ids))
	for _, id := range ids {
		if id == f.Exclude {
			continue
		}
		e, err := eng.Get(id)
		if err != nil {
			continue
		}
		if !e.Active || !e.Renderable() {
			continue
		}
		if f.OnlyStatic && !e.Static {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Resolution é o resultado da separação dos grupos de LOD.
type Resolution struct {
	Candidates []Candidate

	// Representantes mantidos como candidatos; devem ser registrados como originais
	Representatives []scene.EntityID

	// Nomes dos renderers de nível >= 1, removidos dos clones antes da fusão por material
	Excluded map[string]bool

	Skipped int // Referências obsoletas ou sem geometria
}

// Resolve monta os candidatos a partir dos IDs coletados. Os renderers de detalhe
// de cada representante saem do conjunto: os de nível >= 1 também entram na lista
// de exclusão, os de nível 0 viajam com o representante.
func Resolve(eng scene.Engine, ids []scene.EntityID) Resolution {
	res := Resolution{Excluded: make(map[string]bool)}

	snapshots := make(map[scene.EntityID]scene.Entity, len(ids))
	removed := make(map[scene.EntityID]bool)
	level0 := make(map[scene.EntityID][]scene.Entity)

	for _, id := range ids {
		e, err := eng.Get(id)
		if err != nil {
			log.Printf("[Catalog] Ignorando %v: %v", id, err)
			res.Skipped++
			continue
		}
		snapshots[id] = e
		if e.LOD != scene.LODRepresentative {
			continue
		}

		for level, renderers := range e.LODLevels {
			for _, rid := range renderers {
				removed[rid] = true
				r, err := eng.Get(rid)
				if err != nil {
					continue
				}
				if level == 0 {
					level0[id] = append(level0[id], r)
				} else {
					res.Excluded[r.Name] = true
				}
			}
		}
	}

	for _, id := range ids {
		e, ok := snapshots[id]
		if !ok || removed[id] {
			continue
		}

		c := Candidate{
			ID:       e.ID,
			Name:     e.Name,
			Tag:      e.Tag,
			Position: e.Position,
			Static:   e.Static,
			LOD:      e.LOD,
		}

		if e.LOD == scene.LODRepresentative {
			renderers := level0[id]
			if len(renderers) == 0 {
				log.Printf("[Catalog] Grupo de LOD %q sem renderers no nível 0, ignorado", e.Name)
				res.Skipped++
				continue
			}
			c.Bounds = renderers[0].Bounds
			for _, r := range renderers {
				c.Bounds = c.Bounds.Encapsulate(r.Bounds)
				c.Polygons += r.Polygons
				for _, m := range r.Materials {
					if !containsMaterial(c.Materials, m) {
						c.Materials = append(c.Materials, m)
					}
				}
			}
			res.Representatives = append(res.Representatives, id)
		} else {
			if !e.HasRenderer {
				log.Printf("[Catalog] Entidade %q sem renderer, ignorada", e.Name)
				res.Skipped++
				continue
			}
			c.Bounds = e.Bounds
			c.Polygons = e.Polygons
			c.Materials = append([]scene.MaterialID(nil), e.Materials...)
		}

		res.Candidates = append(res.Candidates, c)
	}

	log.Printf("[Catalog] %d candidatos, %d grupos de LOD, %d renderers de detalhe excluídos",
		len(res.Candidates), len(res.Representatives), len(res.Excluded))
	return res
}

// Bounds calcula a caixa que envolve todos os candidatos, partindo de uma caixa
// de tamanho zero na origem.
func Bounds(cands []Candidate) util.AABB {
	box := util.NewAABB(util.Vector3{}, util.Vector3{})
	for _, c := range cands {
		box = box.Encapsulate(c.Bounds)
	}
	return box
}

// Lookup indexa os candidatos por ID.
func Lookup(cands []Candidate) map[scene.EntityID]Candidate {
	m := make(map[scene.EntityID]Candidate, len(cands))
	for _, c := range cands {
		m[c.ID] = c
	}
	return m
}

// Refresh relê os candidatos na engine, descartando os que ficaram obsoletos
// desde a coleta (ex: consumidos por um método anterior).
func Refresh(eng scene.Engine, cands []Candidate) ([]Candidate, int) {
	out := make([]Candidate, 0, len(cands))
	stale := 0
	for _, c := range cands {
		e, err := eng.Get(c.ID)
		if err != nil {
			if errors.Is(err, scene.ErrStaleReference) {
				stale++
			}
			continue
		}
		if !e.Active {
			continue
		}
		c.Tag = e.Tag
		c.Name = e.Name
		out = append(out, c)
	}
	return out, stale
}

func containsMaterial(list []scene.MaterialID, m scene.MaterialID) bool {
	for _, x := range list {
		if x == m {
			return true
		}
	}
	return false
}
