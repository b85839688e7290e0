package history

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// JSONLStore appends entries as JSON lines for later analysis.
type JSONLStore struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

// NewJSONLStore creates/opens the target file and returns a store.
func NewJSONLStore(path string) (*JSONLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLStore{
		path: path,
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Append writes a single entry to the underlying JSONL file.
func (s *JSONLStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(entry)
}

// Scan re-reads the whole file. Lines that fail to decode are skipped rather than
// failing the scan; a partial trailing write must not poison statistics.
func (s *JSONLStore) Scan(ctx context.Context) ([]Entry, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// Close flushes and closes the file handle.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
