// Package rollback guarda o que uma passada escondeu, clonou e criou, para que
// tudo possa ser desfeito depois.
package rollback

import (
	"errors"
	"log"

	"DrawCallsOptimizer/shared/scene"
	"DrawCallsOptimizer/shared/util"
)

// Session é o contexto de desfazer de uma passada. Escrita apenas pela goroutine
// que orquestra a passada.
type Session struct {
	eng scene.Engine

	originals *util.OrderedSet[scene.EntityID] // Escondidos, podem ser reativados
	created   *util.OrderedSet[scene.EntityID] // Criados pela passada, podem ser destruídos
	clones    *util.OrderedSet[scene.EntityID] // Clones vivos das fontes preservadas
}

// NewSession cria uma sessão vazia sobre a engine.
func NewSession(eng scene.Engine) *Session {
	return &Session{
		eng:       eng,
		originals: util.NewOrderedSet[scene.EntityID](),
		created:   util.NewOrderedSet[scene.EntityID](),
		clones:    util.NewOrderedSet[scene.EntityID](),
	}
}

// Clone duplica a entidade na raiz da cena, registra a original como escondida
// e o clone para limpeza posterior.
func (s *Session) Clone(id scene.EntityID) (scene.EntityID, error) {
	clone, err := s.eng.Clone(id)
	if err != nil {
		return scene.NoEntity, err
	}
	s.originals.Add(id)
	s.clones.Add(clone)
	return clone, nil
}

// MarkOriginal registra a entidade para ser desativada no fim da passada.
func (s *Session) MarkOriginal(id scene.EntityID) {
	s.originals.Add(id)
}

// RegisterCreated registra uma entidade criada pela passada.
func (s *Session) RegisterCreated(id scene.EntityID) {
	s.created.Add(id)
}

// Originals retorna as entidades escondidas em ordem de registro.
func (s *Session) Originals() []scene.EntityID { return s.originals.Items() }

// Created retorna as entidades criadas em ordem de registro.
func (s *Session) Created() []scene.EntityID { return s.created.Items() }

// Clones retorna os clones registrados.
func (s *Session) Clones() []scene.EntityID { return s.clones.Items() }

// DeactivateOriginals desliga todas as originais registradas. Retorna quantas foram desligadas.
func (s *Session) DeactivateOriginals() int {
	n := 0
	for _, id := range s.originals.Items() {
		if err := s.eng.SetActive(id, false); err != nil {
			log.Printf("[Rollback] Original %v não pôde ser desativada: %v", id, err)
			continue
		}
		n++
	}
	return n
}

// RestoreOriginals reativa todas as originais e limpa o registro.
func (s *Session) RestoreOriginals() int {
	if s.originals.Len() == 0 {
		log.Printf("[Rollback] Nenhum objeto original desativado")
		return 0
	}

	n := 0
	for _, id := range s.originals.Items() {
		if err := s.eng.SetActive(id, true); err != nil {
			log.Printf("[Rollback] Original %v não pôde ser reativada: %v", id, err)
			continue
		}
		n++
	}
	s.originals.Clear()
	log.Printf("[Rollback] %d objetos originais reativados", n)
	return n
}

// DestroyCreated destrói tudo o que a passada criou e limpa o registro.
// Entidades que já não existem são ignoradas.
func (s *Session) DestroyCreated() int {
	n := s.destroyAll(s.created.Items())
	s.created.Clear()
	log.Printf("[Rollback] %d objetos criados destruídos", n)
	return n
}

// DestroyAllClones destrói os clones ainda vivos e limpa o registro.
func (s *Session) DestroyAllClones() int {
	n := s.destroyAll(s.clones.Items())
	s.clones.Clear()
	return n
}

func (s *Session) destroyAll(ids []scene.EntityID) int {
	n := 0
	for _, id := range ids {
		if err := s.eng.Destroy(id); err != nil {
			if !errors.Is(err, scene.ErrStaleReference) {
				log.Printf("[Rollback] Falha ao destruir %v: %v", id, err)
			}
			continue
		}
		n++
	}
	return n
}

// ResetOriginals esvazia o registro de originais e a lista de clones
// (feito no início de cada passada que preserva as originais).
func (s *Session) ResetOriginals() {
	s.originals.Clear()
	s.clones.Clear()
}

// Reset esvazia todos os registros sem tocar na cena.
func (s *Session) Reset() {
	s.originals.Clear()
	s.created.Clear()
	s.clones.Clear()
}
