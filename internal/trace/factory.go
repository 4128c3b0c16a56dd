// internal/trace/factory.go
package trace

import "fmt"

// Config selects and configures a trace sink.
type Config struct {
	Type       string         `json:"type" mapstructure:"type"`
	BatchSize  int            `json:"batchSize" mapstructure:"batchSize"`
	Memory     MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLitePath string         `json:"sqlitePath" mapstructure:"sqlitePath"`
	Postgres   PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// NewSink creates a trace sink based on configuration.
func NewSink(cfg Config, session string) (Sink, error) {
	switch cfg.Type {
	case "", "none":
		return Nop{}, nil
	case "memory":
		return NewMemory(cfg.Memory, session), nil
	case "sqlite":
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewGorm(db, session, cfg.BatchSize)
	case "postgres":
		db, err := OpenPostgres(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return NewGorm(db, session, cfg.BatchSize)
	default:
		return nil, fmt.Errorf("unknown trace type: %s", cfg.Type)
	}
}
