package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Spool is a local JSON file holding events that could not be stored yet.
type Spool struct {
	mu   sync.Mutex
	path string
}

func NewSpool(path string) *Spool {
	return &Spool{path: path}
}

// DefaultSpool lives at ~/.erepbot/journal.json.
func DefaultSpool() (*Spool, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".erepbot")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return NewSpool(filepath.Join(dir, "journal.json")), nil
}

func (s *Spool) Path() string { return s.path }

func (s *Spool) Load() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Spool) load() ([]Event, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Event{}, nil
	}
	var out []Event
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Spool) save(events []Event) error {
	if len(events) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	raw, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

func (s *Spool) Push(events ...Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	queued, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(queued, events...))
}

// Drain hands every queued event to fn and clears the spool only when fn
// succeeds.
func (s *Spool) Drain(fn func([]Event) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queued, err := s.load()
	if err != nil {
		return 0, err
	}
	if len(queued) == 0 {
		return 0, nil
	}
	if err := fn(queued); err != nil {
		return 0, err
	}
	return len(queued), s.save(nil)
}
