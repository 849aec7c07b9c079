package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/johan/polymarket-history/internal/ws"
)

// StreamStorage stores live feed messages.
type StreamStorage interface {
	// Write appends one feed message.
	Write(msg *ws.Message) error

	// Close closes the storage backend.
	Close() error
}

// JSONLStorage appends feed messages to JSONL files with time-based
// rotation. Used by the live watcher; the batch fetcher writes CSV through
// FileWriter instead.
type JSONLStorage struct {
	outputDir        string
	rotationInterval time.Duration

	mu           sync.Mutex
	currentFile  *os.File
	currentPath  string
	lastRotation time.Time
	messageCount int64
}

// NewJSONLStorage creates a JSONL stream storage. A zero rotation interval
// disables rotation.
func NewJSONLStorage(outputDir string, rotationInterval time.Duration) (*JSONLStorage, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	s := &JSONLStorage{
		outputDir:        outputDir,
		rotationInterval: rotationInterval,
	}
	if err := s.rotate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Write appends a message to the current file.
func (s *JSONLStorage) Write(msg *ws.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rotationInterval > 0 && time.Since(s.lastRotation) > s.rotationInterval {
		if err := s.rotate(); err != nil {
			return err
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	if _, err := s.currentFile.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	s.messageCount++
	return nil
}

// Close closes the current file.
func (s *JSONLStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentFile != nil {
		return s.currentFile.Close()
	}
	return nil
}

// rotate creates a new output file.
func (s *JSONLStorage) rotate() error {
	if s.currentFile != nil {
		s.currentFile.Close()
	}

	filename := fmt.Sprintf("feed_%s.jsonl", time.Now().UTC().Format("2006-01-02_15-04-05"))
	path := filepath.Join(s.outputDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	s.currentFile = f
	s.currentPath = path
	s.lastRotation = time.Now()
	s.messageCount = 0
	return nil
}

// CurrentPath returns the path to the current output file.
func (s *JSONLStorage) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPath
}

// MessageCount returns the number of messages written to the current file.
func (s *JSONLStorage) MessageCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageCount
}
