package util

import (
	"runtime"
	"sync/atomic"
)

// SpinLock é uma exclusão mútua por espera ativa.
// Serve para seções críticas curtíssimas (ex: inserir um balde pronto no mapa de resultados),
// onde a troca de contexto de um Mutex custaria mais que o próprio trabalho.
type SpinLock struct {
	held atomic.Bool
}

// Lock adquire o bloqueio, cedendo o processador enquanto espera.
func (s *SpinLock) Lock() {
	for !s.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

// Unlock libera o bloqueio.
func (s *SpinLock) Unlock() {
	s.held.Store(false)
}

// TryLock tenta adquirir o bloqueio sem esperar.
func (s *SpinLock) TryLock() bool {
	return s.held.CompareAndSwap(false, true)
}
