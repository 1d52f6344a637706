package grouping

import (
	"errors"
	"fmt"
	"log"

	"DrawCallsOptimizer/shared/scene"
)

// ErrEmptyGroup indica que nenhuma entidade do grupo continuava viva na hora da fusão.
var ErrEmptyGroup = errors.New("grupo sem entidades vivas")

// LODQualities são as frações de qualidade dos níveis gerados para grupos de material.
var LODQualities = []float32{1.0, 0.5, 0.1}

// MergeOptions controla a fusão de um grupo.
type MergeOptions struct {
	Name           string
	MultiMaterial  bool // O grupo usa mais de um material
	DestroySources bool // Política destrutiva: as fontes somem depois da fusão
	Static         bool
	Tag            string
}

// MeshMerger funde as malhas das fontes numa nova entidade e retorna o seu ID.
type MeshMerger interface {
	Combine(sources []scene.EntityID, opts MergeOptions) (scene.EntityID, error)
}

// LODGenerator gera os níveis de detalhe de uma entidade fundida.
type LODGenerator interface {
	GenerateLODs(id scene.EntityID, qualities []float32) error
}

// Tracker registra o que a passada esconde e cria, para poder desfazer.
type Tracker interface {
	Clone(id scene.EntityID) (scene.EntityID, error)
	RegisterCreated(id scene.EntityID)
}

// Combiner leva os grupos até o MeshMerger, clonando as fontes quando os
// originais devem ser preservados.
type Combiner struct {
	Engine  scene.Engine
	Tracker Tracker
	Merger  MeshMerger
	LODs    LODGenerator // Opcional
	Namer   Namer

	Preserve   bool
	OnlyStatic bool            // Só objetos estáticos foram analisados
	Excluded   map[string]bool // Renderers de LOD removidos dos clones na fusão por material
}

// Combine funde o grupo e registra a entidade criada. Referências obsoletas são ignoradas.
func (c *Combiner) Combine(g *MergeGroup) (scene.EntityID, error) {
	g.Name = c.Namer.Name(*g)

	members := make(map[scene.EntityID]bool, len(g.Entities))
	for _, id := range g.Entities {
		members[id] = true
	}

	sources := make([]scene.EntityID, 0, len(g.Entities))
	for _, id := range g.Entities {
		if !c.Engine.Exists(id) {
			log.Printf("[Grouping] %v não existe mais, ignorado em %s", id, g.Name)
			continue
		}
		// Um membro filho de outro membro já viaja na hierarquia (ou no clone) do ancestral
		if c.nestedIn(id, members) {
			continue
		}

		src := id
		if c.Preserve {
			clone, err := c.Tracker.Clone(id)
			if err != nil {
				log.Printf("[Grouping] Falha ao clonar %v: %v", id, err)
				continue
			}
			src = clone
		}
		if g.Method == Materials && len(c.Excluded) > 0 {
			c.stripExcluded(src)
		}
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return scene.NoEntity, fmt.Errorf("%s: %w", g.Name, ErrEmptyGroup)
	}

	opts := MergeOptions{
		Name:           g.Name,
		MultiMaterial:  len(g.Materials) > 1,
		DestroySources: !c.Preserve,
		Static:         c.OnlyStatic || g.FromCollection,
	}
	if g.Method == Tags {
		opts.Tag = g.Tag
	}

	merged, err := c.Merger.Combine(sources, opts)
	if err != nil {
		return scene.NoEntity, fmt.Errorf("falha ao fundir %s: %w", g.Name, err)
	}
	c.Tracker.RegisterCreated(merged)

	if g.Method == Materials && c.LODs != nil {
		if err := c.LODs.GenerateLODs(merged, LODQualities); err != nil {
			log.Printf("[Grouping] Falha ao gerar LODs de %s: %v", g.Name, err)
		}
	}

	log.Printf("[Grouping] %s: %d entidades fundidas em %v", g.Name, len(sources), merged)
	return merged, nil
}

// nestedIn verifica se algum ancestral da entidade pertence ao conjunto.
func (c *Combiner) nestedIn(id scene.EntityID, set map[scene.EntityID]bool) bool {
	e, err := c.Engine.Get(id)
	if err != nil {
		return false
	}
	for p := e.Parent; p != scene.NoEntity; {
		if set[p] {
			return true
		}
		parent, err := c.Engine.Get(p)
		if err != nil {
			return false
		}
		p = parent.Parent
	}
	return false
}

// stripExcluded remove da hierarquia os renderers de LOD de nível >= 1.
func (c *Combiner) stripExcluded(root scene.EntityID) {
	for _, d := range c.Engine.Descendants(root) {
		e, err := c.Engine.Get(d)
		if err != nil {
			continue
		}
		if c.Excluded[e.Name] {
			if err := c.Engine.Destroy(d); err != nil && !errors.Is(err, scene.ErrStaleReference) {
				log.Printf("[Grouping] Falha ao remover LOD %q: %v", e.Name, err)
			}
		}
	}
}
