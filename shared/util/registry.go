package util

import "sync"

// OrderedSet é um conjunto thread-safe que preserva a ordem de inserção.
// Usado pelos registros de sessão (originais, criados, clones), onde desfazer
// precisa seguir a mesma ordem em que as entidades foram registradas.
type OrderedSet[K comparable] struct {
	mu      sync.Mutex
	items   []K
	present map[K]bool
}

// NewOrderedSet cria um novo OrderedSet.
func NewOrderedSet[K comparable]() *OrderedSet[K] {
	return &OrderedSet[K]{
		items:   make([]K, 0, 64),
		present: make(map[K]bool),
	}
}

// Add adiciona a chave se ainda não existir.
// Retorna true se foi adicionada, false se já estava presente.
func (s *OrderedSet[K]) Add(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.present[key] {
		return false
	}
	s.items = append(s.items, key)
	s.present[key] = true
	return true
}

// Remove retira a chave do conjunto. Retorna false se ela não existia.
func (s *OrderedSet[K]) Remove(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.present[key] {
		return false
	}
	delete(s.present, key)
	for i, k := range s.items {
		if k == key {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return true
}

// Items retorna uma cópia das chaves em ordem de inserção.
func (s *OrderedSet[K]) Items() []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]K(nil), s.items...)
}

// Len retorna o número de chaves.
func (s *OrderedSet[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Clear esvazia o conjunto.
func (s *OrderedSet[K]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.items[:0]
	s.present = make(map[K]bool)
}

// Contains verifica se a chave está no conjunto.
func (s *OrderedSet[K]) Contains(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.present[key]
}
