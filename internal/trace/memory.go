package trace

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MemoryConfig holds settings for the in-memory sink's JSON export.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// Export is the root JSON document written on Close.
type Export struct {
	Session string       `json:"session"`
	Events  []Event      `json:"events"`
	Counts  map[Kind]int `json:"counts"`
}

// Memory keeps events in memory and writes them as one JSON document on Close.
type Memory struct {
	mu         sync.Mutex
	cfg        MemoryConfig
	session    string
	events     []Event
	exportPath string
}

// NewMemory creates a memory sink. An empty OutputDir disables the export.
func NewMemory(cfg MemoryConfig, session string) *Memory {
	return &Memory{cfg: cfg, session: session}
}

func (m *Memory) Record(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *Memory) Flush() error { return nil }

// Events returns a copy of the recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ExportPath returns the file written by Close, empty before.
func (m *Memory) ExportPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exportPath
}

// Close writes the export file.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.OutputDir == "" {
		return nil
	}

	export := Export{Session: m.session, Events: m.events, Counts: make(map[Kind]int)}
	if export.Events == nil {
		export.Events = []Event{}
	}
	for _, e := range m.events {
		export.Counts[e.Kind]++
	}

	filename := fmt.Sprintf("trace_%s.json", m.session)
	if m.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(m.cfg.OutputDir, filename)

	if err := os.MkdirAll(m.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	defer f.Close()

	if m.cfg.CompressOutput {
		gz := gzip.NewWriter(f)
		if err := json.NewEncoder(gz).Encode(export); err != nil {
			gz.Close()
			return fmt.Errorf("failed to encode trace: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	} else if err := json.NewEncoder(f).Encode(export); err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}

	m.exportPath = outputPath
	return nil
}
