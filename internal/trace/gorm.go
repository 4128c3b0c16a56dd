package trace

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// EventRecord is the database row for an Event.
type EventRecord struct {
	ID       uint           `gorm:"primarykey" json:"id"`
	Session  string         `gorm:"index;size:64" json:"session"`
	Frame    uint64         `json:"frame"`
	Time     time.Time      `json:"time"`
	Kind     string         `gorm:"index;size:16" json:"kind"`
	MarkerID uint64         `gorm:"index" json:"markerId"`
	Adapter  string         `gorm:"size:64" json:"adapter"`
	Detail   datatypes.JSON `json:"detail"`
}

func (*EventRecord) TableName() string {
	return "markerview_trace_events"
}

// PostgresConfig holds connection settings for the postgres sink.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

// OpenSQLite opens a SQLite database file. An empty path opens an in-memory
// database pinned to a single connection, since every new connection to
// ":memory:" would see its own empty database.
func OpenSQLite(path string) (*gorm.DB, error) {
	inMemory := path == ""
	if inMemory {
		path = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite trace db: %w", err)
	}
	if inMemory {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// OpenPostgres connects to a postgres database.
func OpenPostgres(cfg PostgresConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres trace db: %w", err)
	}
	return db, nil
}

// Gorm buffers events and writes them in batches through GORM.
type Gorm struct {
	mu        sync.Mutex
	db        *gorm.DB
	session   string
	batchSize int
	buf       []EventRecord
}

// NewGorm migrates the trace table and returns a sink writing to db.
func NewGorm(db *gorm.DB, session string, batchSize int) (*Gorm, error) {
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate trace table: %w", err)
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Gorm{db: db, session: session, batchSize: batchSize}, nil
}

// DB exposes the underlying connection for queries.
func (g *Gorm) DB() *gorm.DB {
	return g.db
}

func (g *Gorm) Record(e Event) error {
	detail := datatypes.JSON("{}")
	if len(e.Detail) > 0 {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("failed to marshal trace detail: %w", err)
		}
		detail = datatypes.JSON(data)
	}

	g.mu.Lock()
	g.buf = append(g.buf, EventRecord{
		Session:  g.session,
		Frame:    e.Frame,
		Time:     e.Time,
		Kind:     string(e.Kind),
		MarkerID: uint64(e.MarkerID),
		Adapter:  string(e.Adapter),
		Detail:   detail,
	})
	full := len(g.buf) >= g.batchSize
	g.mu.Unlock()

	if full {
		return g.Flush()
	}
	return nil
}

// Flush writes buffered events.
func (g *Gorm) Flush() error {
	g.mu.Lock()
	batch := g.buf
	g.buf = nil
	g.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := g.db.CreateInBatches(&batch, g.batchSize).Error; err != nil {
		return fmt.Errorf("failed to write %d trace events: %w", len(batch), err)
	}
	return nil
}

// Close flushes and closes the connection.
func (g *Gorm) Close() error {
	flushErr := g.Flush()
	sqlDB, err := g.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close trace db: %w", err)
	}
	return flushErr
}
