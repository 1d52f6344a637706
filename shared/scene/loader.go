package scene

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"

	"DrawCallsOptimizer/shared/util"

	"github.com/go-gl/mathgl/mgl32"
)

// sceneFile é o formato JSON da cena usada pela linha de comando.
type sceneFile struct {
	Materials []materialRecord `json:"materials"`
	Entities  []entityRecord   `json:"entities"`
}

type materialRecord struct {
	ID   MaterialID `json:"id"`
	Name string     `json:"name"`
}

type boundsRecord struct {
	Center [3]float32 `json:"center"`
	Size   [3]float32 `json:"size"`
}

type entityRecord struct {
	ID        EntityID      `json:"id"`
	Name      string        `json:"name"`
	Tag       string        `json:"tag,omitempty"`
	Position  [3]float32    `json:"position"`
	Rotation  *[4]float32   `json:"rotation,omitempty"` // W, X, Y, Z
	Scale     *[3]float32   `json:"scale,omitempty"`
	Renderer  bool          `json:"renderer"`
	Bounds    *boundsRecord `json:"bounds,omitempty"`
	Polygons  int           `json:"polygons,omitempty"`
	Materials []MaterialID  `json:"materials,omitempty"`
	Mesh      *GeometryData `json:"mesh,omitempty"`
	Static    bool          `json:"static"`
	Active    bool          `json:"active"`
	Parent    EntityID      `json:"parent,omitempty"`
	LOD       string        `json:"lod,omitempty"`
	LODLevel  int           `json:"lodLevel,omitempty"`
	LODLevels [][]EntityID  `json:"lodLevels,omitempty"`
}

func vec(a [3]float32) util.Vector3 {
	return util.NewVector3(a[0], a[1], a[2])
}

func arr(v util.Vector3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

func parseLODRole(s string) (LODRole, error) {
	switch s {
	case "", "none":
		return LODNone, nil
	case "representative":
		return LODRepresentative, nil
	case "detail":
		return LODDetail, nil
	}
	return LODNone, fmt.Errorf("papel de LOD desconhecido: %q", s)
}

func lodRoleString(r LODRole) string {
	switch r {
	case LODRepresentative:
		return "representative"
	case LODDetail:
		return "detail"
	}
	return ""
}

// LoadFile carrega uma cena de um arquivo JSON.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("falha ao ler cena %s: %w", path, err)
	}

	var file sceneFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("falha ao decodificar cena %s: %w", path, err)
	}

	s := NewStore()
	for _, m := range file.Materials {
		s.Materials.Set(m.ID, m.Name)
	}

	for _, rec := range file.Entities {
		role, err := parseLODRole(rec.LOD)
		if err != nil {
			return nil, fmt.Errorf("entidade %v: %w", rec.ID, err)
		}

		e := Entity{
			ID:          rec.ID,
			Name:        rec.Name,
			Tag:         rec.Tag,
			Position:    vec(rec.Position),
			Scale:       util.NewVector3(1, 1, 1),
			HasRenderer: rec.Renderer,
			Polygons:    rec.Polygons,
			Materials:   rec.Materials,
			Mesh:        rec.Mesh,
			Static:      rec.Static,
			Active:      rec.Active,
			Parent:      rec.Parent,
			LOD:         role,
			LODLevel:    rec.LODLevel,
			LODLevels:   rec.LODLevels,
		}
		if rec.Rotation != nil {
			r := rec.Rotation
			e.Rotation = mgl32.Quat{W: r[0], V: mgl32.Vec3{r[1], r[2], r[3]}}.Normalize()
		}
		if rec.Scale != nil {
			e.Scale = vec(*rec.Scale)
		}
		if rec.Bounds != nil {
			e.Bounds = util.NewAABB(vec(rec.Bounds.Center), vec(rec.Bounds.Size))
		} else {
			e.Bounds = util.NewAABB(e.Position, util.Vector3{})
		}
		if e.Polygons == 0 && e.Mesh != nil {
			e.Polygons = e.Mesh.TriangleCount()
		}

		if err := s.Add(e); err != nil {
			return nil, err
		}
	}

	// Os pais podem aparecer depois dos filhos no arquivo
	s.Relink()

	log.Printf("[Cena] %d entidades e %d materiais carregados de %s", s.Len(), len(file.Materials), path)
	return s, nil
}

// SaveFile grava a cena em JSON.
func (s *Store) SaveFile(path string) error {
	var file sceneFile

	materials := s.Materials.All()
	for id, name := range materials {
		file.Materials = append(file.Materials, materialRecord{ID: id, Name: name})
	}
	sort.Slice(file.Materials, func(i, j int) bool { return file.Materials[i].ID < file.Materials[j].ID })

	for _, id := range s.All() {
		e, err := s.Get(id)
		if err != nil {
			continue
		}
		rot := [4]float32{e.Rotation.W, e.Rotation.V[0], e.Rotation.V[1], e.Rotation.V[2]}
		scale := arr(e.Scale)
		file.Entities = append(file.Entities, entityRecord{
			ID:        e.ID,
			Name:      e.Name,
			Tag:       e.Tag,
			Position:  arr(e.Position),
			Rotation:  &rot,
			Scale:     &scale,
			Renderer:  e.HasRenderer,
			Bounds:    &boundsRecord{Center: arr(e.Bounds.Center), Size: arr(e.Bounds.Size())},
			Polygons:  e.Polygons,
			Materials: e.Materials,
			Mesh:      e.Mesh,
			Static:    e.Static,
			Active:    e.Active,
			Parent:    e.Parent,
			LOD:       lodRoleString(e.LOD),
			LODLevel:  e.LODLevel,
			LODLevels: e.LODLevels,
		})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
