package rollback

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"DrawCallsOptimizer/shared/scene"

	"google.golang.org/protobuf/encoding/protowire"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNoSession indica que não há sessão salva com o nome pedido.
var ErrNoSession = errors.New("sessão não encontrada")

// SessionModel representa os registros de uma sessão no banco.
// As listas de IDs são varints empacotados (formato protobuf).
type SessionModel struct {
	Name      string `gorm:"primaryKey"`
	Scene     string // Arquivo de cena ao qual os IDs se referem
	Originals []byte
	Created   []byte
	Clones    []byte
	UpdatedAt time.Time
}

// MergeRecord é a proveniência de uma entidade fundida.
type MergeRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Session   string `gorm:"index"`
	Entity    int64
	Name      string
	Method    string
	Chunk     string
	Sources   []byte // IDs das entidades de origem
	CreatedAt time.Time
}

// SourceIDs decodifica os IDs de origem.
func (r MergeRecord) SourceIDs() ([]scene.EntityID, error) {
	return decodeIDs(r.Sources)
}

// NewMergeRecord monta o registro de proveniência de uma fusão.
func NewMergeRecord(session string, merged scene.EntityID, name, method, chunk string, sources []scene.EntityID) MergeRecord {
	return MergeRecord{
		Session: session,
		Entity:  int64(merged),
		Name:    name,
		Method:  method,
		Chunk:   chunk,
		Sources: encodeIDs(sources),
	}
}

// Store persiste as sessões em SQLite.
type Store struct {
	DB *gorm.DB
}

// Open abre (ou cria) o banco de sessões e roda as migrações.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	// Configuramos o logger para ser silencioso em produção
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no SQLite: %w", err)
	}

	if err := db.AutoMigrate(&SessionModel{}, &MergeRecord{}); err != nil {
		return nil, fmt.Errorf("falha na migração do banco: %w", err)
	}

	log.Printf("[Persistence] Banco de sessões aberto: %s", path)
	return &Store{DB: db}, nil
}

// Close fecha a conexão com o banco.
func (st *Store) Close() error {
	if st.DB == nil {
		return nil
	}
	sqlDB, err := st.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveSession grava (ou substitui) os registros da sessão.
func (st *Store) SaveSession(name, scenePath string, s *Session) error {
	if st.DB == nil {
		return fmt.Errorf("banco de dados não inicializado")
	}

	model := SessionModel{
		Name:      name,
		Scene:     scenePath,
		Originals: encodeIDs(s.Originals()),
		Created:   encodeIDs(s.Created()),
		Clones:    encodeIDs(s.Clones()),
	}
	if err := st.DB.Save(&model).Error; err != nil {
		return fmt.Errorf("falha ao salvar sessão %s: %w", name, err)
	}
	return nil
}

// LoadSession carrega os registros salvos para dentro da sessão e retorna o
// arquivo de cena associado.
func (st *Store) LoadSession(name string, s *Session) (string, error) {
	if st.DB == nil {
		return "", fmt.Errorf("banco de dados não inicializado")
	}

	var model SessionModel
	err := st.DB.First(&model, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%s: %w", name, ErrNoSession)
	}
	if err != nil {
		return "", err
	}

	originals, err := decodeIDs(model.Originals)
	if err != nil {
		return "", fmt.Errorf("originais corrompidos na sessão %s: %w", name, err)
	}
	created, err := decodeIDs(model.Created)
	if err != nil {
		return "", fmt.Errorf("criados corrompidos na sessão %s: %w", name, err)
	}
	clones, err := decodeIDs(model.Clones)
	if err != nil {
		return "", fmt.Errorf("clones corrompidos na sessão %s: %w", name, err)
	}

	s.Reset()
	for _, id := range originals {
		s.originals.Add(id)
	}
	for _, id := range created {
		s.created.Add(id)
	}
	for _, id := range clones {
		s.clones.Add(id)
	}
	return model.Scene, nil
}

// RecordMerges grava a proveniência das fusões de uma passada numa única transação.
func (st *Store) RecordMerges(records []MergeRecord) error {
	if len(records) == 0 {
		return nil
	}
	return st.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
}

// Merges retorna as fusões registradas da sessão em ordem de criação.
func (st *Store) Merges(session string) ([]MergeRecord, error) {
	var out []MergeRecord
	err := st.DB.Where("session = ?", session).Order("id").Find(&out).Error
	return out, err
}

// ClearMerges apaga a proveniência da sessão (após destruir o que foi criado).
func (st *Store) ClearMerges(session string) error {
	return st.DB.Where("session = ?", session).Delete(&MergeRecord{}).Error
}

func encodeIDs(ids []scene.EntityID) []byte {
	buf := make([]byte, 0, len(ids)*2)
	for _, id := range ids {
		buf = protowire.AppendVarint(buf, uint64(id))
	}
	return buf
}

func decodeIDs(b []byte) ([]scene.EntityID, error) {
	var out []scene.EntityID
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, scene.EntityID(v))
		b = b[n:]
	}
	return out, nil
}
