package scene

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"DrawCallsOptimizer/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// ErrStaleReference indica que a entidade referenciada já foi destruída.
var ErrStaleReference = errors.New("referência obsoleta")

// Engine são as primitivas de cena consumidas pelo otimizador.
type Engine interface {
	All() []EntityID
	Get(id EntityID) (Entity, error)
	Exists(id EntityID) bool
	FindByName(name string) (EntityID, bool)

	SetActive(id EntityID, active bool) error
	SetName(id EntityID, name string) error
	SetTag(id EntityID, tag string) error
	SetStatic(id EntityID, static bool) error
	SetPosition(id EntityID, pos util.Vector3) error
	SetParent(id, parent EntityID) error

	Children(id EntityID) []EntityID
	Descendants(id EntityID) []EntityID

	Create(e Entity) EntityID
	Destroy(id EntityID) error
	Clone(id EntityID) (EntityID, error)

	// InBounds retorna as entidades cuja posição está dentro da caixa.
	InBounds(box util.AABB) []EntityID
}

// Store é a implementação em memória do Engine.
// Seguro para leitura concorrente; escritas são serializadas.
type Store struct {
	mu sync.RWMutex

	entities map[EntityID]*Entity
	children map[EntityID][]EntityID
	nextID   EntityID

	// Índice espacial das posições, reconstruído sob demanda
	index      *spatialIndex
	indexDirty bool

	Materials *MaterialStore
}

var _ Engine = (*Store)(nil)

// NewStore cria uma cena vazia.
func NewStore() *Store {
	return &Store{
		entities:   make(map[EntityID]*Entity),
		children:   make(map[EntityID][]EntityID),
		nextID:     1,
		indexDirty: true,
		Materials:  NewMaterialStore(),
	}
}

func staleErr(id EntityID) error {
	return fmt.Errorf("entidade %v: %w", id, ErrStaleReference)
}

// Len retorna o número de entidades vivas.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// All retorna todos os IDs vivos em ordem crescente.
func (s *Store) All() []EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]EntityID, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Get retorna um snapshot da entidade.
func (s *Store) Get(id EntityID) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return Entity{}, staleErr(id)
	}
	return e.Clone(), nil
}

// Exists verifica se a entidade ainda está viva.
func (s *Store) Exists(id EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[id]
	return ok
}

// FindByName retorna a entidade de menor ID com esse nome.
func (s *Store) FindByName(name string) (EntityID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := NoEntity
	for id, e := range s.entities {
		if e.Name == name && (found == NoEntity || id < found) {
			found = id
		}
	}
	return found, found != NoEntity
}

// Update aplica fn à entidade sob o lock de escrita.
// Usado por quem precisa alterar campos fora do Engine (ex: o merger de referência).
func (s *Store) Update(id EntityID, fn func(e *Entity)) error {
	return s.mutate(id, func(e *Entity) {
		fn(e)
		s.indexDirty = true
	})
}

func (s *Store) mutate(id EntityID, fn func(e *Entity)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return staleErr(id)
	}
	fn(e)
	return nil
}

// SetActive liga ou desliga a entidade.
func (s *Store) SetActive(id EntityID, active bool) error {
	return s.mutate(id, func(e *Entity) { e.Active = active })
}

// SetName renomeia a entidade.
func (s *Store) SetName(id EntityID, name string) error {
	return s.mutate(id, func(e *Entity) { e.Name = name })
}

// SetTag altera a tag da entidade.
func (s *Store) SetTag(id EntityID, tag string) error {
	return s.mutate(id, func(e *Entity) { e.Tag = tag })
}

// SetStatic marca a entidade como estática.
func (s *Store) SetStatic(id EntityID, static bool) error {
	return s.mutate(id, func(e *Entity) { e.Static = static })
}

// SetPosition move a entidade, deslocando junto os limites do renderer.
func (s *Store) SetPosition(id EntityID, pos util.Vector3) error {
	return s.mutate(id, func(e *Entity) {
		delta := rl.Vector3Subtract(pos, e.Position)
		e.Position = pos
		e.Bounds.Center = rl.Vector3Add(e.Bounds.Center, delta)
		s.indexDirty = true
	})
}

// SetParent muda o pai da entidade. NoEntity a coloca na raiz da cena.
func (s *Store) SetParent(id, parent EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return staleErr(id)
	}
	if parent != NoEntity {
		if _, ok := s.entities[parent]; !ok {
			return staleErr(parent)
		}
		for p := parent; p != NoEntity; p = s.entities[p].Parent {
			if p == id {
				return fmt.Errorf("entidade %v não pode ser filha de %v: ciclo na hierarquia", id, parent)
			}
		}
	}

	s.detach(e)
	e.Parent = parent
	if parent != NoEntity {
		s.children[parent] = append(s.children[parent], id)
	}
	return nil
}

// detach remove a entidade da lista de filhos do pai atual. Requer lock.
func (s *Store) detach(e *Entity) {
	if e.Parent == NoEntity {
		return
	}
	siblings := s.children[e.Parent]
	for i, c := range siblings {
		if c == e.ID {
			s.children[e.Parent] = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
}

// Children retorna os filhos diretos da entidade.
func (s *Store) Children(id EntityID) []EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]EntityID(nil), s.children[id]...)
}

// Descendants retorna todos os descendentes em pré-ordem (sem a própria entidade).
func (s *Store) Descendants(id EntityID) []EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.descendants(id)
}

func (s *Store) descendants(id EntityID) []EntityID {
	var out []EntityID
	var walk func(EntityID)
	walk = func(cur EntityID) {
		for _, c := range s.children[cur] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// Create adiciona uma nova entidade com um ID novo e retorna esse ID.
func (s *Store) Create(e Entity) EntityID {
	s.mu.Lock()
	defer s.mu.Unlock()

	e = e.Clone()
	e.ID = s.nextID
	s.nextID++
	s.insert(&e, false)
	return e.ID
}

// Add insere a entidade preservando seu ID (usado ao carregar cenas).
func (s *Store) Add(e Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == NoEntity {
		return fmt.Errorf("entidade %q sem ID", e.Name)
	}
	if _, exists := s.entities[e.ID]; exists {
		return fmt.Errorf("entidade %v já existe", e.ID)
	}
	e = e.Clone()
	if e.ID >= s.nextID {
		s.nextID = e.ID + 1
	}
	s.insert(&e, true)
	return nil
}

// insert registra a entidade e a liga ao pai. Requer lock.
// Com keepDangling, um pai ainda não carregado é mantido para o Relink.
func (s *Store) insert(e *Entity, keepDangling bool) {
	if e.Rotation.W == 0 && e.Rotation.V.Len() == 0 {
		e.Rotation = util.IdentityRotation()
	} else {
		e.Rotation = e.Rotation.Normalize()
	}
	if e.Parent != NoEntity {
		if _, ok := s.entities[e.Parent]; ok {
			s.children[e.Parent] = append(s.children[e.Parent], e.ID)
		} else if !keepDangling {
			e.Parent = NoEntity
		}
	}
	s.entities[e.ID] = e
	s.indexDirty = true
}

// Relink refaz as ligações pai/filho depois de uma carga em ordem arbitrária.
func (s *Store) Relink() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.children = make(map[EntityID][]EntityID)
	ids := make([]EntityID, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sortIDs(ids)
	for _, id := range ids {
		e := s.entities[id]
		if e.Parent == NoEntity {
			continue
		}
		if _, ok := s.entities[e.Parent]; !ok {
			e.Parent = NoEntity
			continue
		}
		s.children[e.Parent] = append(s.children[e.Parent], id)
	}
}

// Destroy remove a entidade e toda a sua sub-árvore.
func (s *Store) Destroy(id EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return staleErr(id)
	}
	s.detach(e)
	for _, d := range s.descendants(id) {
		delete(s.entities, d)
		delete(s.children, d)
	}
	delete(s.entities, id)
	delete(s.children, id)
	s.indexDirty = true
	return nil
}

// Clone duplica a sub-árvore da entidade na raiz da cena.
// A raiz da cópia recebe o sufixo "(Clone)"; os filhos mantêm seus nomes.
func (s *Store) Clone(id EntityID) (EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, ok := s.entities[id]
	if !ok {
		return NoEntity, staleErr(id)
	}

	subtree := append([]EntityID{id}, s.descendants(id)...)
	remap := make(map[EntityID]EntityID, len(subtree))
	for _, old := range subtree {
		remap[old] = s.nextID
		s.nextID++
	}

	for _, old := range subtree {
		c := s.entities[old].Clone()
		c.ID = remap[old]
		if old == id {
			c.Parent = NoEntity
			c.Name = root.Name + "(Clone)"
		} else {
			c.Parent = remap[c.Parent]
		}
		for i, level := range c.LODLevels {
			for j, r := range level {
				if n, ok := remap[r]; ok {
					c.LODLevels[i][j] = n
				}
			}
		}
		s.insert(&c, false)
	}
	return remap[id], nil
}

// InBounds retorna as entidades cuja posição está dentro da caixa (faces inclusivas),
// em ordem crescente de ID.
func (s *Store) InBounds(box util.AABB) []EntityID {
	s.mu.Lock()
	if s.indexDirty || s.index == nil {
		s.index = buildSpatialIndex(s.entities)
		s.indexDirty = false
	}
	index := s.index
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []EntityID
	for _, id := range index.search(box) {
		if e, ok := s.entities[id]; ok && box.Contains(e.Position) {
			out = append(out, id)
		}
	}
	sortIDs(out)
	return out
}

func sortIDs(ids []EntityID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
