package rollback

import (
	"errors"
	"path/filepath"
	"testing"

	"DrawCallsOptimizer/shared/scene"
	"DrawCallsOptimizer/shared/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScene(t *testing.T, n int) (*scene.Store, []scene.EntityID) {
	t.Helper()
	s := scene.NewStore()
	var ids []scene.EntityID
	for i := 0; i < n; i++ {
		pos := util.NewVector3(float32(i), 0, 0)
		ids = append(ids, s.Create(scene.Entity{
			Name:        "Mesh",
			Position:    pos,
			HasRenderer: true,
			Bounds:      util.NewAABB(pos, util.NewVector3(1, 1, 1)),
			Active:      true,
		}))
	}
	return s, ids
}

func TestCloneThenRestore(t *testing.T) {
	s, ids := newScene(t, 3)
	sess := NewSession(s)

	for _, id := range ids {
		clone, err := sess.Clone(id)
		require.NoError(t, err)
		assert.NotEqual(t, id, clone)
	}
	assert.Equal(t, ids, sess.Originals())
	assert.Len(t, sess.Clones(), 3)

	assert.Equal(t, 3, sess.DeactivateOriginals())
	for _, id := range ids {
		e, _ := s.Get(id)
		assert.False(t, e.Active)
	}

	assert.Equal(t, 3, sess.RestoreOriginals())
	for _, id := range ids {
		e, _ := s.Get(id)
		assert.True(t, e.Active)
	}
	assert.Empty(t, sess.Originals())
	assert.Empty(t, sess.Created())

	// Segunda chamada não faz nada
	assert.Equal(t, 0, sess.RestoreOriginals())
}

func TestDestroyCreatedToleratesMissing(t *testing.T) {
	s, ids := newScene(t, 3)
	sess := NewSession(s)
	for _, id := range ids {
		sess.RegisterCreated(id)
	}
	sess.RegisterCreated(ids[0]) // duplicado é ignorado
	require.NoError(t, s.Destroy(ids[1]))

	assert.Equal(t, 2, sess.DestroyCreated())
	assert.Empty(t, sess.Created())
	for _, id := range ids {
		assert.False(t, s.Exists(id))
	}
}

func TestDestroyAllClones(t *testing.T) {
	s, ids := newScene(t, 2)
	sess := NewSession(s)
	c0, err := sess.Clone(ids[0])
	require.NoError(t, err)
	c1, err := sess.Clone(ids[1])
	require.NoError(t, err)
	require.NoError(t, s.Destroy(c1))

	assert.Equal(t, 1, sess.DestroyAllClones())
	assert.False(t, s.Exists(c0))
	assert.True(t, s.Exists(ids[0]))
	assert.Empty(t, sess.Clones())
}

func TestCloneStaleReference(t *testing.T) {
	s, ids := newScene(t, 1)
	sess := NewSession(s)
	require.NoError(t, s.Destroy(ids[0]))

	_, err := sess.Clone(ids[0])
	assert.True(t, errors.Is(err, scene.ErrStaleReference))
	assert.Empty(t, sess.Originals())
}

func TestEncodeIDs(t *testing.T) {
	tests := [][]scene.EntityID{
		nil,
		{1},
		{1, 127, 128, 300, 1 << 40},
	}
	for _, ids := range tests {
		got, err := decodeIDs(encodeIDs(ids))
		require.NoError(t, err)
		assert.Equal(t, ids, got)
	}

	_, err := decodeIDs([]byte{0x80})
	assert.Error(t, err, "varint truncado deveria falhar")
}

func TestPersistSession(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "db", "session.db"))
	require.NoError(t, err)
	defer st.Close()

	s, ids := newScene(t, 3)
	sess := NewSession(s)
	_, err = sess.Clone(ids[0])
	require.NoError(t, err)
	sess.MarkOriginal(ids[1])
	sess.RegisterCreated(ids[2])

	require.NoError(t, st.SaveSession("default", "scene.json", sess))
	// Salvar de novo substitui o registro
	require.NoError(t, st.SaveSession("default", "scene.json", sess))

	loaded := NewSession(s)
	scenePath, err := st.LoadSession("default", loaded)
	require.NoError(t, err)
	assert.Equal(t, "scene.json", scenePath)
	assert.Equal(t, sess.Originals(), loaded.Originals())
	assert.Equal(t, sess.Created(), loaded.Created())
	assert.Equal(t, sess.Clones(), loaded.Clones())

	_, err = st.LoadSession("outra", loaded)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMergeRecords(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer st.Close()

	records := []MergeRecord{
		NewMergeRecord("default", 10, "Chunk_1_CombinedByPolygons", "polygons", "Chunk_1", []scene.EntityID{1, 2}),
		NewMergeRecord("default", 11, "CombinedByDistance_1", "distance", "", []scene.EntityID{3}),
		NewMergeRecord("outra", 12, "X", "tags", "", nil),
	}
	require.NoError(t, st.RecordMerges(records))

	got, err := st.Merges("default")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].Entity)
	sources, err := got[0].SourceIDs()
	require.NoError(t, err)
	assert.Equal(t, []scene.EntityID{1, 2}, sources)

	require.NoError(t, st.ClearMerges("default"))
	got, err = st.Merges("default")
	require.NoError(t, err)
	assert.Empty(t, got)

	other, err := st.Merges("outra")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
