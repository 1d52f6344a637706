// Package merger é a implementação de referência do MeshMerger e do LODGenerator
// sobre a cena em memória.
package merger

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"DrawCallsOptimizer/otimizador/internal/grouping"
	"DrawCallsOptimizer/shared/scene"
	"DrawCallsOptimizer/shared/util"
)

// ErrNothingToMerge indica que nenhuma fonte tinha renderer.
var ErrNothingToMerge = errors.New("nenhum renderer para fundir")

// Merger concatena as malhas das fontes numa nova entidade.
type Merger struct {
	Store *scene.Store
}

var _ grouping.MeshMerger = (*Merger)(nil)

// New cria o merger sobre a cena.
func New(store *scene.Store) *Merger {
	return &Merger{Store: store}
}

// renderers retorna a fonte e seus descendentes com renderer,
// sem os níveis de LOD acima do 0.
func (m *Merger) renderers(src scene.EntityID) []scene.Entity {
	var out []scene.Entity
	for _, id := range append([]scene.EntityID{src}, m.Store.Descendants(src)...) {
		e, err := m.Store.Get(id)
		if err != nil || !e.HasRenderer {
			continue
		}
		if e.LOD == scene.LODDetail && e.LODLevel > 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// topLevel remove as fontes que descendem de outra fonte do mesmo grupo:
// a malha delas já vem junto com a do ancestral.
func (m *Merger) topLevel(sources []scene.EntityID) []scene.EntityID {
	inGroup := make(map[scene.EntityID]bool, len(sources))
	for _, id := range sources {
		inGroup[id] = true
	}

	out := make([]scene.EntityID, 0, len(sources))
	for _, id := range sources {
		if !m.hasAncestorIn(id, inGroup) {
			out = append(out, id)
		}
	}
	return out
}

func (m *Merger) hasAncestorIn(id scene.EntityID, set map[scene.EntityID]bool) bool {
	e, err := m.Store.Get(id)
	if err != nil {
		return false
	}
	for p := e.Parent; p != scene.NoEntity; {
		if set[p] {
			return true
		}
		parent, err := m.Store.Get(p)
		if err != nil {
			return false
		}
		p = parent.Parent
	}
	return false
}

// Combine funde as fontes. Com DestroySources as fontes são destruídas; senão são
// desativadas e penduradas na entidade fundida.
func (m *Merger) Combine(sources []scene.EntityID, opts grouping.MergeOptions) (scene.EntityID, error) {
	sources = m.topLevel(sources)

	var parts []scene.Entity
	seen := make(map[scene.EntityID]bool)
	for _, src := range sources {
		for _, r := range m.renderers(src) {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			parts = append(parts, r)
		}
	}
	if len(parts) == 0 {
		return scene.NoEntity, fmt.Errorf("%s: %w", opts.Name, ErrNothingToMerge)
	}

	bounds := parts[0].Bounds
	polygons := 0
	var materials []scene.MaterialID
	hasMesh := false
	for _, p := range parts {
		bounds = bounds.Encapsulate(p.Bounds)
		polygons += p.Polygons
		for _, mat := range p.Materials {
			if !containsMaterial(materials, mat) {
				materials = append(materials, mat)
			}
		}
		if p.Mesh != nil {
			hasMesh = true
		}
	}

	merged := scene.Entity{
		Name:        opts.Name,
		Tag:         opts.Tag,
		Position:    bounds.Center,
		Scale:       util.NewVector3(1, 1, 1),
		HasRenderer: true,
		Bounds:      bounds,
		Polygons:    polygons,
		Materials:   materials,
		Static:      opts.Static,
		Active:      true,
	}

	if hasMesh {
		buf := scene.GetMeshBuffer()
		defer scene.PutMeshBuffer(buf)

		for _, p := range parts {
			if p.Mesh == nil {
				continue
			}
			start := len(buf.Geometry.SubMeshes)
			buf.Append(*p.Mesh)
			// Malhas sem sub-malha usam o primeiro material do renderer
			if len(buf.Geometry.SubMeshes) == start && len(p.Materials) > 0 && len(p.Mesh.Indices) > 0 {
				buf.Geometry.SubMeshes = append(buf.Geometry.SubMeshes, scene.SubMesh{
					Material: p.Materials[0],
					Start:    len(buf.Geometry.Indices) - len(p.Mesh.Indices),
					Count:    len(p.Mesh.Indices),
				})
			}
		}

		geom := regroup(buf.Geometry, opts.MultiMaterial)
		merged.Mesh = &geom
		merged.Polygons = geom.TriangleCount()
	}

	id := m.Store.Create(merged)

	for _, src := range sources {
		if opts.DestroySources {
			if err := m.Store.Destroy(src); err != nil && !errors.Is(err, scene.ErrStaleReference) {
				log.Printf("[Merger] Falha ao destruir fonte %v: %v", src, err)
			}
			continue
		}
		if err := m.Store.SetParent(src, id); err != nil {
			continue
		}
		if err := m.Store.SetActive(src, false); err != nil {
			log.Printf("[Merger] Falha ao desativar fonte %v: %v", src, err)
		}
	}

	return id, nil
}

// regroup reordena os índices para ter uma sub-malha por material.
// Sem multiMaterial, tudo vira uma única sub-malha com o primeiro material.
func regroup(g scene.GeometryData, multiMaterial bool) scene.GeometryData {
	out := g.Clone()
	if len(g.SubMeshes) == 0 {
		return out
	}

	if !multiMaterial {
		out.SubMeshes = []scene.SubMesh{{Material: g.SubMeshes[0].Material, Start: 0, Count: len(g.Indices)}}
		return out
	}

	subs := append([]scene.SubMesh(nil), g.SubMeshes...)
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].Material < subs[j].Material })

	out.Indices = out.Indices[:0]
	out.SubMeshes = out.SubMeshes[:0]
	for _, sm := range subs {
		n := len(out.SubMeshes)
		if n > 0 && out.SubMeshes[n-1].Material == sm.Material {
			out.SubMeshes[n-1].Count += sm.Count
		} else {
			out.SubMeshes = append(out.SubMeshes, scene.SubMesh{Material: sm.Material, Start: len(out.Indices), Count: sm.Count})
		}
		out.Indices = append(out.Indices, g.Indices[sm.Start:sm.Start+sm.Count]...)
	}
	return out
}

func containsMaterial(list []scene.MaterialID, m scene.MaterialID) bool {
	for _, x := range list {
		if x == m {
			return true
		}
	}
	return false
}
