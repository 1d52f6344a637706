package grouping

import (
	"testing"

	"DrawCallsOptimizer/otimizador/internal/rollback"
	"DrawCallsOptimizer/shared/scene"
	"DrawCallsOptimizer/shared/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMerger registra as chamadas e cria uma entidade vazia.
type fakeMerger struct {
	store   *scene.Store
	sources [][]scene.EntityID
	opts    []MergeOptions
}

func (f *fakeMerger) Combine(sources []scene.EntityID, opts MergeOptions) (scene.EntityID, error) {
	f.sources = append(f.sources, sources)
	f.opts = append(f.opts, opts)
	if opts.DestroySources {
		for _, s := range sources {
			_ = f.store.Destroy(s)
		}
	}
	return f.store.Create(scene.Entity{Name: opts.Name, Tag: opts.Tag, Static: opts.Static, Active: true}), nil
}

type fakeLODs struct{ calls []scene.EntityID }

func (f *fakeLODs) GenerateLODs(id scene.EntityID, qualities []float32) error {
	f.calls = append(f.calls, id)
	return nil
}

func meshEntity(name string) scene.Entity {
	return scene.Entity{
		Name:        name,
		HasRenderer: true,
		Bounds:      util.NewAABB(util.Vector3{}, util.NewVector3(1, 1, 1)),
		Active:      true,
	}
}

func TestCombinePreservingClonesSources(t *testing.T) {
	s := scene.NewStore()
	a := s.Create(meshEntity("A"))
	b := s.Create(meshEntity("B"))
	sess := rollback.NewSession(s)
	merger := &fakeMerger{store: s}
	lods := &fakeLODs{}

	c := &Combiner{
		Engine:     s,
		Tracker:    sess,
		Merger:     merger,
		LODs:       lods,
		Namer:      Namer{Region: "Town"},
		Preserve:   true,
		OnlyStatic: true,
	}

	g := MergeGroup{Entities: []scene.EntityID{a, b}, Method: Materials, Chunk: "Chunk_1", Materials: []scene.MaterialID{1, 2}}
	merged, err := c.Combine(&g)
	require.NoError(t, err)

	assert.Equal(t, "Town_Chunk_1_CombinedByMaterials_Material_1_Material_2", g.Name)
	require.Len(t, merger.sources, 1)
	assert.NotContains(t, merger.sources[0], a, "fontes preservadas devem ser clones")
	assert.Equal(t, MergeOptions{Name: g.Name, MultiMaterial: true, Static: true}, merger.opts[0])

	assert.Equal(t, []scene.EntityID{a, b}, sess.Originals())
	assert.Equal(t, []scene.EntityID{merged}, sess.Created())
	assert.Equal(t, merger.sources[0], sess.Clones())
	assert.Equal(t, []scene.EntityID{merged}, lods.calls)
	assert.True(t, s.Exists(a))
}

func TestCombineDestructive(t *testing.T) {
	s := scene.NewStore()
	a := s.Create(meshEntity("A"))
	b := s.Create(meshEntity("B"))
	stale := s.Create(meshEntity("Gone"))
	require.NoError(t, s.Destroy(stale))

	sess := rollback.NewSession(s)
	merger := &fakeMerger{store: s}
	c := &Combiner{Engine: s, Tracker: sess, Merger: merger}

	g := MergeGroup{Entities: []scene.EntityID{a, stale, b}, Method: Tags, Tag: "Props", Materials: []scene.MaterialID{3}}
	merged, err := c.Combine(&g)
	require.NoError(t, err)

	assert.Equal(t, []scene.EntityID{a, b}, merger.sources[0])
	assert.Equal(t, MergeOptions{Name: "CombinedByTags_Props", DestroySources: true, Tag: "Props"}, merger.opts[0])
	assert.False(t, s.Exists(a))
	assert.Empty(t, sess.Originals())

	e, _ := s.Get(merged)
	assert.Equal(t, "Props", e.Tag)
}

func TestCombineEmptyGroup(t *testing.T) {
	s := scene.NewStore()
	c := &Combiner{Engine: s, Tracker: rollback.NewSession(s), Merger: &fakeMerger{store: s}}

	g := MergeGroup{Entities: []scene.EntityID{42}, Method: Polygons}
	_, err := c.Combine(&g)
	assert.ErrorIs(t, err, ErrEmptyGroup)
}

func TestCombineStripsExcludedLODs(t *testing.T) {
	s := scene.NewStore()
	rep := s.Create(scene.Entity{Name: "Tree", LOD: scene.LODRepresentative, Active: true})
	lod0 := meshEntity("Tree_LOD0")
	lod0.Parent = rep
	lod1 := meshEntity("Tree_LOD1")
	lod1.Parent = rep
	s.Create(lod0)
	s.Create(lod1)

	sess := rollback.NewSession(s)
	merger := &fakeMerger{store: s}
	c := &Combiner{
		Engine:   s,
		Tracker:  sess,
		Merger:   merger,
		Preserve: true,
		Excluded: map[string]bool{"Tree_LOD1": true},
	}

	g := MergeGroup{Entities: []scene.EntityID{rep}, Method: Materials}
	_, err := c.Combine(&g)
	require.NoError(t, err)

	clone := merger.sources[0][0]
	kids := s.Children(clone)
	require.Len(t, kids, 1)
	e, _ := s.Get(kids[0])
	assert.Equal(t, "Tree_LOD0", e.Name)

	// O original continua com os dois níveis
	assert.Len(t, s.Children(rep), 2)
}

func TestCombineSkipsMembersNestedInAnotherMember(t *testing.T) {
	s := scene.NewStore()
	parent := s.Create(meshEntity("Parent"))
	child := meshEntity("Child")
	child.Parent = parent
	c1 := s.Create(child)
	other := s.Create(meshEntity("Other"))

	tests := []struct {
		name     string
		preserve bool
	}{
		{"preservando", true},
		{"destrutivo", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := rollback.NewSession(s)
			merger := &fakeMerger{store: scene.NewStore()}
			c := &Combiner{Engine: s, Tracker: sess, Merger: merger, Preserve: tt.preserve}

			g := MergeGroup{Entities: []scene.EntityID{parent, c1, other}, Method: Polygons}
			_, err := c.Combine(&g)
			require.NoError(t, err)

			// O filho viaja dentro da hierarquia do pai
			require.Len(t, merger.sources, 1)
			assert.Len(t, merger.sources[0], 2)
			if !tt.preserve {
				assert.Equal(t, []scene.EntityID{parent, other}, merger.sources[0])
			}
		})
	}
}
