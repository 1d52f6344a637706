// Package graph implementa o grafo de proximidade e o agrupamento guloso por estrela máxima.
package graph

import (
	"log"

	"DrawCallsOptimizer/shared/scene"
	"DrawCallsOptimizer/shared/util"
)

// Point é um candidato posicionado no mundo.
type Point struct {
	ID       scene.EntityID
	Position util.Vector3
}

// Node é um vértice do grafo com os vizinhos a uma distância válida,
// na ordem de entrada dos pontos.
type Node struct {
	ID        scene.EntityID
	Position  util.Vector3
	Neighbors []scene.EntityID
}

// Graph liga cada par de pontos distintos com distância <= limite.
type Graph struct {
	Nodes []Node
	Limit float32
}

// Build constrói o grafo em O(n²). Um limite negativo não gera arestas.
func Build(points []Point, limit float32) *Graph {
	g := &Graph{Nodes: make([]Node, len(points)), Limit: limit}
	for i, p := range points {
		g.Nodes[i] = Node{ID: p.ID, Position: p.Position}
	}
	if limit < 0 {
		return g
	}

	limitSq := limit * limit
	for i := range g.Nodes {
		for j := i + 1; j < len(g.Nodes); j++ {
			a, b := &g.Nodes[i], &g.Nodes[j]
			if a.ID == b.ID {
				continue
			}
			if util.DistSq(a.Position, b.Position) <= limitSq {
				a.Neighbors = append(a.Neighbors, b.ID)
				b.Neighbors = append(b.Neighbors, a.ID)
			}
		}
	}
	return g
}

// MaxNode retorna o nó com mais vizinhos; empates ficam com o menor ID.
func (g *Graph) MaxNode() (Node, bool) {
	best := -1
	for i, n := range g.Nodes {
		if best < 0 {
			best = i
			continue
		}
		b := g.Nodes[best]
		if len(n.Neighbors) > len(b.Neighbors) ||
			(len(n.Neighbors) == len(b.Neighbors) && n.ID < b.ID) {
			best = i
		}
	}
	if best < 0 {
		return Node{}, false
	}
	return g.Nodes[best], true
}

// Cluster drena os pontos em grupos: a cada rodada reconstrói o grafo, escolhe o
// nó com mais vizinhos e remove o nó e seus vizinhos como um grupo.
// Para quando restam menos de 2 pontos; com drain, o último ponto isolado também vira grupo.
func Cluster(points []Point, limit float32, drain bool) [][]scene.EntityID {
	remaining := append([]Point(nil), points...)
	minimum := 2
	if drain {
		minimum = 1
	}

	var groups [][]scene.EntityID
	for len(remaining) >= minimum {
		g := Build(remaining, limit)
		node, ok := g.MaxNode()
		if !ok {
			log.Printf("[Grouping] Nenhum grupo válido encontrado entre %d pontos", len(remaining))
			break
		}

		group := make([]scene.EntityID, 0, len(node.Neighbors)+1)
		group = append(group, node.ID)
		group = append(group, node.Neighbors...)
		groups = append(groups, group)

		taken := make(map[scene.EntityID]bool, len(group))
		for _, id := range group {
			taken[id] = true
		}
		next := remaining[:0]
		for _, p := range remaining {
			if !taken[p.ID] {
				next = append(next, p)
			}
		}
		remaining = next
	}
	return groups
}
