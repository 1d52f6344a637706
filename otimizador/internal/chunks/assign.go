package chunks

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"DrawCallsOptimizer/otimizador/internal/catalog"
	"DrawCallsOptimizer/shared/scene"
	"DrawCallsOptimizer/shared/util"

	"golang.org/x/sync/errgroup"
)

// Assignment mapeia o ordinal do chunk para os IDs das entidades dentro dele,
// na ordem em que os candidatos foram recebidos. Chunks vazios não aparecem.
type Assignment map[int][]scene.EntityID

// Ordinals retorna os ordinais presentes em ordem crescente.
func (a Assignment) Ordinals() []int {
	out := make([]int, 0, len(a))
	for ord := range a {
		out = append(out, ord)
	}
	sort.Ints(out)
	return out
}

// Entities retorna o total de entidades atribuídas.
func (a Assignment) Entities() int {
	n := 0
	for _, ids := range a {
		n += len(ids)
	}
	return n
}

// bucketPool recicla os baldes temporários entre as tarefas de uma mesma
// atribuição. Cada chamada de Assign tem o seu; nada sobrevive ao Wait.
type bucketPool struct {
	pool sync.Pool
}

func newBucketPool() *bucketPool {
	return &bucketPool{pool: sync.Pool{
		New: func() interface{} {
			b := make([]scene.EntityID, 0, 256)
			return &b
		},
	}}
}

func (p *bucketPool) get() *[]scene.EntityID {
	return p.pool.Get().(*[]scene.EntityID)
}

func (p *bucketPool) put(b *[]scene.EntityID) {
	*b = (*b)[:0]
	p.pool.Put(b)
}

// Assign distribui os candidatos entre os chunks em paralelo, uma tarefa por chunk,
// com no máximo workers tarefas simultâneas. Retorna só depois que todas terminarem.
func Assign(chunks []Chunk, cands []catalog.Candidate, workers int) (Assignment, error) {
	if workers < 1 {
		workers = 1
	}

	result := make(Assignment, len(chunks))
	buckets := newBucketPool()
	var lock util.SpinLock

	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i := range chunks {
		ch := &chunks[i]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[PANIC] Erro no worker do %s: %v", ch.Name, r)
					err = fmt.Errorf("atribuição do %s: %v", ch.Name, r)
				}
			}()

			bucket := buckets.get()
			defer buckets.put(bucket)

			for _, c := range cands {
				if c.ID == ch.Entity {
					continue
				}
				if ch.Contains(c.Position) {
					*bucket = append(*bucket, c.ID)
				}
			}
			if len(*bucket) == 0 {
				return nil
			}

			ids := make([]scene.EntityID, len(*bucket))
			copy(ids, *bucket)

			lock.Lock()
			result[ch.Ordinal] = ids
			lock.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Printf("[Chunks] %d entidades atribuídas a %d de %d chunks", result.Entities(), len(result), len(chunks))
	return result, nil
}
