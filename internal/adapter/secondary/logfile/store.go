package logfile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"announce-helper/internal/domain"
)

// DefaultPath is where the helper and the panel write their entries.
const DefaultPath = "/tmp/announce-helper.log"

// Store implements domain.LogStore over a plain text file, one entry per
// line. It assumes a single writer per process.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore uses path, DefaultPath when empty.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

var _ domain.LogStore = (*Store)(nil)

// Path returns the file path.
func (s *Store) Path() string { return s.path }

// Append writes one line with a single write call.
func (s *Store) Append(entry domain.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	if _, err := f.WriteString(domain.FormatLogLine(entry) + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("write log: %w", err)
	}
	return f.Close()
}

// ReadAll returns the entries most recent first. A missing file is empty.
func (s *Store) ReadAll() ([]domain.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	var entries []domain.LogEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		entries = append(entries, domain.ParseLogLine(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Clear truncates the file, creating it if needed.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path, nil, 0o644); err != nil {
		return fmt.Errorf("clear log: %w", err)
	}
	return nil
}
