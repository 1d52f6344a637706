package scene

import "sync"

// GeometryData contém os buffers de vértices de uma malha em coordenadas do mundo.
// SubMeshes guarda, para cada material, o intervalo [início, fim) de índices.
type GeometryData struct {
	Vertices  []float32
	Normals   []float32
	UVs       []float32
	Indices   []uint32
	SubMeshes []SubMesh
}

// SubMesh é um trecho do buffer de índices desenhado com um material.
type SubMesh struct {
	Material MaterialID
	Start    int
	Count    int
}

// Clone cria uma cópia profunda dos dados para evitar corrupção de memória.
func (g GeometryData) Clone() GeometryData {
	clone := GeometryData{}
	if len(g.Vertices) > 0 {
		clone.Vertices = make([]float32, len(g.Vertices))
		copy(clone.Vertices, g.Vertices)
	}
	if len(g.Normals) > 0 {
		clone.Normals = make([]float32, len(g.Normals))
		copy(clone.Normals, g.Normals)
	}
	if len(g.UVs) > 0 {
		clone.UVs = make([]float32, len(g.UVs))
		copy(clone.UVs, g.UVs)
	}
	if len(g.Indices) > 0 {
		clone.Indices = make([]uint32, len(g.Indices))
		copy(clone.Indices, g.Indices)
	}
	if len(g.SubMeshes) > 0 {
		clone.SubMeshes = make([]SubMesh, len(g.SubMeshes))
		copy(clone.SubMeshes, g.SubMeshes)
	}
	return clone
}

// VertexCount retorna o número de vértices.
func (g GeometryData) VertexCount() int {
	return len(g.Vertices) / 3
}

// TriangleCount retorna o número de triângulos.
func (g GeometryData) TriangleCount() int {
	return len(g.Indices) / 3
}

// Pool global para reciclar MeshBuffers e evitar alocação excessiva (GC Pressure)
var meshBufferPool = sync.Pool{
	New: func() interface{} {
		return &MeshBuffer{
			Geometry: GeometryData{
				Vertices: make([]float32, 0, 4096),
				Normals:  make([]float32, 0, 4096),
				UVs:      make([]float32, 0, 2048),
				Indices:  make([]uint32, 0, 4096),
			},
		}
	},
}

// GetMeshBuffer aloca ou recicla um buffer vazio.
func GetMeshBuffer() *MeshBuffer {
	return meshBufferPool.Get().(*MeshBuffer)
}

// PutMeshBuffer zera os slices e devolve a memória para o Pool.
func PutMeshBuffer(b *MeshBuffer) {
	if b == nil {
		return
	}
	b.Geometry.Vertices = b.Geometry.Vertices[:0]
	b.Geometry.Normals = b.Geometry.Normals[:0]
	b.Geometry.UVs = b.Geometry.UVs[:0]
	b.Geometry.Indices = b.Geometry.Indices[:0]
	b.Geometry.SubMeshes = b.Geometry.SubMeshes[:0]
	meshBufferPool.Put(b)
}

// MeshBuffer auxilia na concatenação de malhas.
type MeshBuffer struct {
	Geometry GeometryData
}

// Append copia a malha src para o fim do buffer, deslocando os índices.
// Sub-malhas com o mesmo material são mantidas separadas; o agrupamento
// por material fica a cargo de quem consome o resultado.
func (b *MeshBuffer) Append(src GeometryData) {
	base := uint32(b.Geometry.VertexCount())
	start := len(b.Geometry.Indices)

	b.Geometry.Vertices = append(b.Geometry.Vertices, src.Vertices...)
	b.Geometry.Normals = append(b.Geometry.Normals, src.Normals...)
	b.Geometry.UVs = append(b.Geometry.UVs, src.UVs...)
	for _, idx := range src.Indices {
		b.Geometry.Indices = append(b.Geometry.Indices, base+idx)
	}

	for _, sm := range src.SubMeshes {
		b.Geometry.SubMeshes = append(b.Geometry.SubMeshes, SubMesh{
			Material: sm.Material,
			Start:    start + sm.Start,
			Count:    sm.Count,
		})
	}
}
