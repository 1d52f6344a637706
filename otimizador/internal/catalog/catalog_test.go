package catalog

import (
	"testing"

	"DrawCallsOptimizer/shared/scene"
	"DrawCallsOptimizer/shared/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mesh(name string, x, y, z float32, polys int, mats ...scene.MaterialID) scene.Entity {
	pos := util.NewVector3(x, y, z)
	return scene.Entity{
		Name:        name,
		Position:    pos,
		HasRenderer: true,
		Bounds:      util.NewAABB(pos, util.NewVector3(1, 1, 1)),
		Polygons:    polys,
		Materials:   mats,
		Active:      true,
	}
}

func TestCollectFilters(t *testing.T) {
	s := scene.NewStore()
	active := s.Create(mesh("Active", 0, 0, 0, 10))

	inactive := mesh("Inactive", 0, 0, 0, 10)
	inactive.Active = false
	s.Create(inactive)

	static := mesh("Static", 1, 0, 0, 10)
	static.Static = true
	staticID := s.Create(static)

	s.Create(scene.Entity{Name: "Empty", Active: true})
	far := s.Create(mesh("Far", 50, 0, 0, 10))

	assert.Equal(t, []scene.EntityID{active, staticID, far}, Collect(s, Filter{}))
	assert.Equal(t, []scene.EntityID{staticID}, Collect(s, Filter{OnlyStatic: true}))

	box := util.NewAABB(util.Vector3{}, util.NewVector3(4, 4, 4))
	assert.Equal(t, []scene.EntityID{active, staticID}, Collect(s, Filter{Bounds: &box}))
	assert.Equal(t, []scene.EntityID{staticID}, Collect(s, Filter{Bounds: &box, Exclude: active}))
}

func TestResolveLODGroups(t *testing.T) {
	s := scene.NewStore()
	rep := s.Create(scene.Entity{Name: "Tree", LOD: scene.LODRepresentative, Active: true, Position: util.NewVector3(5, 0, 0)})

	d0a := mesh("Tree_LOD0_Trunk", 5, 0, 0, 100, 1)
	d0a.Parent, d0a.LOD = rep, scene.LODDetail
	d0b := mesh("Tree_LOD0_Leaves", 5, 2, 0, 300, 2)
	d0b.Parent, d0b.LOD = rep, scene.LODDetail
	d1 := mesh("Tree_LOD1", 5, 0, 0, 40, 1)
	d1.Parent, d1.LOD, d1.LODLevel = rep, scene.LODDetail, 1

	a := s.Create(d0a)
	b := s.Create(d0b)
	c := s.Create(d1)
	require.NoError(t, s.Update(rep, func(e *scene.Entity) {
		e.LODLevels = [][]scene.EntityID{{a, b}, {c}}
	}))
	plain := s.Create(mesh("Rock", 0, 0, 0, 12, 3))

	res := Resolve(s, Collect(s, Filter{}))

	require.Len(t, res.Candidates, 2)
	assert.Equal(t, rep, res.Candidates[0].ID)
	assert.Equal(t, plain, res.Candidates[1].ID)
	assert.Equal(t, []scene.EntityID{rep}, res.Representatives)
	assert.Equal(t, map[string]bool{"Tree_LOD1": true}, res.Excluded)

	tree := res.Candidates[0]
	assert.Equal(t, 400, tree.Polygons)
	assert.Equal(t, []scene.MaterialID{1, 2}, tree.Materials)
	assert.True(t, util.ApproxEqualVec(tree.Bounds.Min(), util.NewVector3(4.5, -0.5, -0.5), 1e-5))
	assert.True(t, util.ApproxEqualVec(tree.Bounds.Max(), util.NewVector3(5.5, 2.5, 0.5), 1e-5))
}

func TestResolveSkipsStaleReferences(t *testing.T) {
	s := scene.NewStore()
	a := s.Create(mesh("A", 0, 0, 0, 1))
	b := s.Create(mesh("B", 1, 0, 0, 1))
	require.NoError(t, s.Destroy(a))

	res := Resolve(s, []scene.EntityID{a, b})
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, b, res.Candidates[0].ID)
	assert.Equal(t, 1, res.Skipped)
}

func TestBoundsStartsAtOrigin(t *testing.T) {
	cands := []Candidate{
		{Bounds: util.NewAABB(util.NewVector3(10, 10, 10), util.NewVector3(2, 2, 2))},
	}
	box := Bounds(cands)
	assert.True(t, util.ApproxEqualVec(box.Min(), util.Vector3{}, 1e-5))
	assert.True(t, util.ApproxEqualVec(box.Max(), util.NewVector3(11, 11, 11), 1e-5))

	empty := Bounds(nil)
	assert.Equal(t, float32(0), empty.Volume())
}

func TestRefresh(t *testing.T) {
	s := scene.NewStore()
	a := s.Create(mesh("A", 0, 0, 0, 1))
	b := s.Create(mesh("B", 1, 0, 0, 1))
	cands := Resolve(s, []scene.EntityID{a, b}).Candidates

	require.NoError(t, s.Destroy(a))
	require.NoError(t, s.SetTag(b, "Props"))

	out, stale := Refresh(s, cands)
	require.Len(t, out, 1)
	assert.Equal(t, "Props", out[0].Tag)
	assert.Equal(t, 1, stale)
}
