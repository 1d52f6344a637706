package merger

import (
	"testing"

	"DrawCallsOptimizer/otimizador/internal/grouping"
	"DrawCallsOptimizer/shared/scene"
	"DrawCallsOptimizer/shared/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quad cria uma malha de 2 triângulos com um material.
func quad(s *scene.Store, name string, x float32, mat scene.MaterialID) scene.EntityID {
	pos := util.NewVector3(x, 0, 0)
	return s.Create(scene.Entity{
		Name:        name,
		Position:    pos,
		HasRenderer: true,
		Bounds:      util.NewAABB(pos, util.NewVector3(1, 1, 0)),
		Polygons:    2,
		Materials:   []scene.MaterialID{mat},
		Active:      true,
		Mesh: &scene.GeometryData{
			Vertices:  []float32{x, 0, 0, x + 1, 0, 0, x + 1, 1, 0, x, 1, 0},
			Indices:   []uint32{0, 1, 2, 0, 2, 3},
			SubMeshes: []scene.SubMesh{{Material: mat, Start: 0, Count: 6}},
		},
	})
}

func TestCombineDestroysSources(t *testing.T) {
	s := scene.NewStore()
	a := quad(s, "A", 0, 1)
	b := quad(s, "B", 2, 2)
	c := quad(s, "C", 4, 1)

	m := New(s)
	id, err := m.Combine([]scene.EntityID{a, b, c}, grouping.MergeOptions{
		Name:           "CombinedByPolygons",
		MultiMaterial:  true,
		DestroySources: true,
		Static:         true,
	})
	require.NoError(t, err)

	for _, src := range []scene.EntityID{a, b, c} {
		assert.False(t, s.Exists(src))
	}

	merged, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "CombinedByPolygons", merged.Name)
	assert.True(t, merged.Static)
	assert.Equal(t, 6, merged.Polygons)
	assert.Equal(t, []scene.MaterialID{1, 2}, merged.Materials)
	require.NotNil(t, merged.Mesh)
	assert.Equal(t, 12, merged.Mesh.VertexCount())
	assert.Equal(t, []scene.SubMesh{
		{Material: 1, Start: 0, Count: 12},
		{Material: 2, Start: 12, Count: 6},
	}, merged.Mesh.SubMeshes)
	// Índices do C (vértices 8..11) vêm logo depois dos do A
	assert.Equal(t, uint32(8), merged.Mesh.Indices[6])
	assert.True(t, util.ApproxEqualVec(merged.Bounds.Min(), util.NewVector3(-0.5, -0.5, 0), 1e-5))
	assert.True(t, util.ApproxEqualVec(merged.Bounds.Max(), util.NewVector3(4.5, 0.5, 0), 1e-5))
}

func TestCombineKeepsSourcesAsInactiveChildren(t *testing.T) {
	s := scene.NewStore()
	a := quad(s, "A", 0, 1)
	b := quad(s, "B", 2, 1)

	id, err := New(s).Combine([]scene.EntityID{a, b}, grouping.MergeOptions{Name: "Merged", Tag: "Props"})
	require.NoError(t, err)

	assert.Equal(t, []scene.EntityID{a, b}, s.Children(id))
	ea, _ := s.Get(a)
	assert.False(t, ea.Active)

	merged, _ := s.Get(id)
	assert.Equal(t, "Props", merged.Tag)
	assert.Len(t, merged.Mesh.SubMeshes, 1)
}

func TestCombineWithoutRenderers(t *testing.T) {
	s := scene.NewStore()
	empty := s.Create(scene.Entity{Name: "Empty", Active: true})

	_, err := New(s).Combine([]scene.EntityID{empty}, grouping.MergeOptions{Name: "X"})
	assert.ErrorIs(t, err, ErrNothingToMerge)
}

func TestCombineSkipsHigherLODLevels(t *testing.T) {
	s := scene.NewStore()
	rep := s.Create(scene.Entity{Name: "Tree", LOD: scene.LODRepresentative, Active: true})
	l0 := quad(s, "Tree_LOD0", 0, 1)
	l1 := quad(s, "Tree_LOD1", 0, 1)
	require.NoError(t, s.SetParent(l0, rep))
	require.NoError(t, s.SetParent(l1, rep))
	require.NoError(t, s.Update(l0, func(e *scene.Entity) { e.LOD = scene.LODDetail }))
	require.NoError(t, s.Update(l1, func(e *scene.Entity) { e.LOD, e.LODLevel = scene.LODDetail, 1 }))

	id, err := New(s).Combine([]scene.EntityID{rep}, grouping.MergeOptions{Name: "M", DestroySources: true})
	require.NoError(t, err)
	merged, _ := s.Get(id)
	assert.Equal(t, 2, merged.Polygons)
}

func TestGenerateLODs(t *testing.T) {
	s := scene.NewStore()
	src := s.Create(scene.Entity{
		Name:        "Merged",
		HasRenderer: true,
		Polygons:    20,
		Materials:   []scene.MaterialID{1},
		Active:      true,
	})

	require.NoError(t, NewLODGenerator(s).GenerateLODs(src, grouping.LODQualities))

	rep, err := s.Get(src)
	require.NoError(t, err)
	assert.Equal(t, scene.LODRepresentative, rep.LOD)
	assert.False(t, rep.HasRenderer)
	require.Len(t, rep.LODLevels, 3)

	want := []int{20, 10, 2}
	for level, ids := range rep.LODLevels {
		require.Len(t, ids, 1)
		d, err := s.Get(ids[0])
		require.NoError(t, err)
		assert.Equal(t, want[level], d.Polygons, "nível %d", level)
		assert.Equal(t, level, d.LODLevel)
		assert.Equal(t, src, d.Parent)
	}
}

func TestSimplify(t *testing.T) {
	g := scene.GeometryData{
		Indices: make([]uint32, 30),
		SubMeshes: []scene.SubMesh{
			{Material: 1, Start: 0, Count: 18},
			{Material: 2, Start: 18, Count: 12},
		},
	}

	half := simplify(g, 0.5)
	assert.Equal(t, []scene.SubMesh{
		{Material: 1, Start: 0, Count: 9},
		{Material: 2, Start: 9, Count: 6},
	}, half.SubMeshes)
	assert.Len(t, half.Indices, 15)

	full := simplify(g, 1)
	assert.Equal(t, g.SubMeshes, full.SubMeshes)
}

func TestCombineCountsNestedSourcesOnce(t *testing.T) {
	tests := []struct {
		name    string
		destroy bool
	}{
		{"destruindo fontes", true},
		{"mantendo fontes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scene.NewStore()
			parent := s.Create(scene.Entity{
				Name:        "Parent",
				HasRenderer: true,
				Bounds:      util.NewAABB(util.Vector3{}, util.NewVector3(1, 1, 1)),
				Polygons:    10,
				Active:      true,
			})
			child := s.Create(scene.Entity{
				Name:        "Child",
				HasRenderer: true,
				Bounds:      util.NewAABB(util.NewVector3(2, 0, 0), util.NewVector3(1, 1, 1)),
				Polygons:    7,
				Active:      true,
				Parent:      parent,
			})

			id, err := New(s).Combine([]scene.EntityID{parent, child}, grouping.MergeOptions{
				Name:           "CombinedByPolygons",
				DestroySources: tt.destroy,
			})
			require.NoError(t, err)

			merged, err := s.Get(id)
			require.NoError(t, err)
			assert.Equal(t, 17, merged.Polygons)
			assert.True(t, util.ApproxEqualVec(merged.Bounds.Max(), util.NewVector3(2.5, 0.5, 0.5), 1e-5))

			if tt.destroy {
				assert.False(t, s.Exists(parent))
				assert.False(t, s.Exists(child))
			} else {
				// O filho continua sob o pai, que fica sob a entidade fundida
				assert.Equal(t, []scene.EntityID{parent}, s.Children(id))
				assert.Equal(t, []scene.EntityID{child}, s.Children(parent))
			}
		})
	}
}
