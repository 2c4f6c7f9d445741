package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dario.cat/mergo"
	"github.com/google/uuid"
	yaml "gopkg.in/yaml.v3"
)

// Entry is one configured mail account: a flat key/value record validated by
// the wizard before it is handed over here.
type Entry struct {
	ID    string         `yaml:"id"`
	Title string         `yaml:"title"`
	Data  map[string]any `yaml:"data"`
}

// Store persists entries as one YAML file each. Writes are atomic
// (tmp + rename); updates notify listeners through the reload channel as a
// separate, sequenced step.
type Store struct {
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry

	reloadChan chan string
}

// New opens the store, creating the directory if needed and loading all
// existing entries.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create entries directory: %w", err)
	}

	s := &Store{
		dir:        dir,
		logger:     logger,
		entries:    make(map[string]*Entry),
		reloadChan: make(chan string, 8),
	}

	if err := s.loadAll(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) loadAll() error {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read entries directory: %w", err)
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".entry.yaml") {
			continue
		}

		entry, err := s.loadEntry(filepath.Join(s.dir, f.Name()))
		if err != nil {
			return fmt.Errorf("failed to load entry %s: %w", f.Name(), err)
		}

		if entry.ID == "" {
			return fmt.Errorf("entry %s missing required id field", f.Name())
		}

		s.entries[entry.ID] = entry
		s.logger.Debug("loaded entry", "id", entry.ID, "title", entry.Title)
	}

	return nil
}

func (s *Store) loadEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	entry := &Entry{}
	if err := yaml.Unmarshal(data, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *Store) entryPath(id string) string {
	return filepath.Join(s.dir, id+".entry.yaml")
}

func (s *Store) writeEntry(entry *Entry) error {
	data, err := yaml.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	path := s.entryPath(entry.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write entry file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace entry file: %w", err)
	}

	return nil
}

// Create persists a new entry and returns it. Ownership of data transfers to
// the store.
func (s *Store) Create(title string, data map[string]any) (*Entry, error) {
	entry := &Entry{
		ID:    uuid.NewString(),
		Title: title,
		Data:  data,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeEntry(entry); err != nil {
		return nil, err
	}
	s.entries[entry.ID] = entry

	s.logger.Info("created entry", "id", entry.ID, "title", title)
	return entry, nil
}

// Update merges data into an existing entry, persists it, and then notifies
// listeners so the dependent subsystem reloads.
func (s *Store) Update(id string, data map[string]any) error {
	s.mu.Lock()

	entry, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("entry with ID %s not found", id)
	}

	if err := mergo.Merge(&entry.Data, data, mergo.WithOverride); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to merge entry data: %w", err)
	}

	if err := s.writeEntry(entry); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("updated entry", "id", id)
	s.notifyReload(id)
	return nil
}

// Get retrieves an entry by ID
func (s *Store) Get(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry with ID %s not found", id)
	}
	return entry, nil
}

// List returns all entries
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	return entries
}

// ReloadChan returns a channel that receives the ID of every updated entry.
func (s *Store) ReloadChan() <-chan string {
	return s.reloadChan
}

func (s *Store) notifyReload(id string) {
	select {
	case s.reloadChan <- id:
	default:
		// Channel is full, skip notification
	}
}
