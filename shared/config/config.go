package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfiguration indica parâmetros que impedem a execução da passada.
var ErrInvalidConfiguration = errors.New("configuração inválida")

// ChunkCount é a quantidade de chunks em cada eixo da região.
type ChunkCount struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// Total retorna X*Y*Z.
func (c ChunkCount) Total() int {
	return c.X * c.Y * c.Z
}

// Config armazena as configurações do otimizador de draw calls.
type Config struct {
	// Região e Chunks
	UseChunks     bool       `json:"use_chunks" yaml:"use_chunks"`
	Chunks        ChunkCount `json:"chunks" yaml:"chunks"`
	RetainChunks  bool       `json:"retain_chunks" yaml:"retain_chunks"`
	BoundsObject  string     `json:"bounds_object" yaml:"bounds_object"`   // Entidade que limita a passada (vazio = cria SceneBounds)
	DestroyBounds bool       `json:"destroy_bounds" yaml:"destroy_bounds"` // Destrói o objeto de limites ao final

	// Filtros
	OnlyStatic bool `json:"only_static" yaml:"only_static"`

	// Métodos
	ByPolygons        bool     `json:"by_polygons" yaml:"by_polygons"`
	PolygonThreshold  int      `json:"polygon_threshold" yaml:"polygon_threshold"`
	ByMaterials       bool     `json:"by_materials" yaml:"by_materials"`
	MaterialThreshold int      `json:"material_threshold" yaml:"material_threshold"`
	ByTags            bool     `json:"by_tags" yaml:"by_tags"`
	Tags              []string `json:"tags" yaml:"tags,omitempty"`
	ByDistance        bool     `json:"by_distance" yaml:"by_distance"`
	DistanceLimit     float32  `json:"distance_limit" yaml:"distance_limit"`
	Collections       []string `json:"collections" yaml:"collections,omitempty"` // Entidades cujos descendentes são agrupados por distância

	// Preservação / Desfazer
	SaveOriginals bool   `json:"save_originals" yaml:"save_originals"`
	SessionDB     string `json:"session_db" yaml:"session_db"`

	// Execução
	Workers int    `json:"workers" yaml:"workers"`
	LogFile string `json:"log_file" yaml:"log_file"`
}

// DefaultConfig retorna a configuração padrão.
func DefaultConfig() *Config {
	return &Config{
		UseChunks:     true,
		Chunks:        ChunkCount{X: 2, Y: 1, Z: 2},
		RetainChunks:  false,
		DestroyBounds: true,

		OnlyStatic: true,

		ByPolygons:        false,
		PolygonThreshold:  10000,
		ByMaterials:       true,
		MaterialThreshold: 2,
		ByTags:            false,
		ByDistance:        false,
		DistanceLimit:     5.0,

		SaveOriginals: true,
		SessionDB:     filepath.Join("saves", "session.db"),

		Workers: runtime.NumCPU(),
		LogFile: "otimizador.log",
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load carrega as configurações de um arquivo JSON ou YAML (pela extensão).
// Se o arquivo não existir, retorna as configurações padrão.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("falha ao ler configuração %s: %w", path, err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("falha ao decodificar configuração %s: %w", path, err)
	}

	return cfg, nil
}

// Save salva as configurações no formato indicado pela extensão do arquivo.
func (c *Config) Save(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Validate verifica os parâmetros antes de qualquer alteração na cena.
func (c *Config) Validate() error {
	if c.UseChunks && (c.Chunks.X < 1 || c.Chunks.Y < 1 || c.Chunks.Z < 1) {
		return fmt.Errorf("%w: quantidade de chunks (%d, %d, %d) deve ser >= 1 em todos os eixos",
			ErrInvalidConfiguration, c.Chunks.X, c.Chunks.Y, c.Chunks.Z)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers deve ser >= 1 (atual: %d)", ErrInvalidConfiguration, c.Workers)
	}
	if c.ByDistance && c.DistanceLimit < 0 {
		return fmt.Errorf("%w: limite de distância negativo (%.2f)", ErrInvalidConfiguration, c.DistanceLimit)
	}
	if c.ByTags && len(c.Tags) == 0 {
		return fmt.Errorf("%w: agrupamento por tag habilitado sem nenhuma tag", ErrInvalidConfiguration)
	}
	if !c.ByPolygons && !c.ByMaterials && !c.ByTags && !c.ByDistance {
		return fmt.Errorf("%w: nenhum método de agrupamento habilitado", ErrInvalidConfiguration)
	}
	return nil
}
