package scene

import (
	"strconv"
	"strings"
	"sync"
)

// instanceSuffix é o sufixo que a engine adiciona a materiais instanciados.
const instanceSuffix = " (Instance)"

// MaterialStore gerencia os nomes dos materiais usados pelas entidades.
type MaterialStore struct {
	mu sync.RWMutex

	names  map[MaterialID]string
	byName map[string]MaterialID
	nextID MaterialID
}

// NewMaterialStore cria um registro de materiais vazio.
func NewMaterialStore() *MaterialStore {
	return &MaterialStore{
		names:  make(map[MaterialID]string),
		byName: make(map[string]MaterialID),
		nextID: 1,
	}
}

// Register retorna o ID do material com esse nome, criando-o se necessário.
func (s *MaterialStore) Register(name string) MaterialID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byName[name]; ok {
		return id
	}
	id := s.nextID
	s.nextID++
	s.names[id] = name
	s.byName[name] = id
	return id
}

// Set registra um material com ID explícito (usado ao carregar cenas do disco).
func (s *MaterialStore) Set(id MaterialID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.names[id] = name
	s.byName[name] = id
	if id >= s.nextID {
		s.nextID = id + 1
	}
}

// Name retorna o nome do material sem o sufixo de instância.
// Materiais desconhecidos viram "Material_<id>".
func (s *MaterialStore) Name(id MaterialID) string {
	s.mu.RLock()
	name, ok := s.names[id]
	s.mu.RUnlock()

	if !ok {
		return "Material_" + strconv.Itoa(int(id))
	}
	return strings.ReplaceAll(name, instanceSuffix, "")
}

// All retorna uma cópia do mapa ID -> nome.
func (s *MaterialStore) All() map[MaterialID]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[MaterialID]string, len(s.names))
	for id, name := range s.names {
		out[id] = name
	}
	return out
}
