package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
)

// FileStore keeps the document in one JSON file. Every mutation reloads the
// file, applies the change and rewrites it under a single mutex.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on the first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, doc)
}

// load never fails on a missing or unreadable document; it falls back to the empty one.
func (s *FileStore) load(ctx context.Context) (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		logger.Warn(ctx, logger.CompStore, "store.decode",
			slog.String("status", "fail"),
			slog.String("path", s.path),
			slog.String("err", err.Error()),
		)
		return NewDocument(), nil
	}
	doc.normalize()
	return doc, nil
}

func (s *FileStore) save(ctx context.Context, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return fmt.Errorf("store: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("store: replace %s: %w", s.path, err)
	}
	logger.Debug(ctx, logger.CompStore, "store.save",
		slog.String("status", "ok"),
		slog.Int("users", len(doc.Users)),
		slog.Int("topics", len(doc.TopicMessages)),
	)
	return nil
}

// mutate runs fn on a fresh copy of the document and saves it when fn reports a change.
func (s *FileStore) mutate(ctx context.Context, fn func(*Document) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if !fn(doc) {
		return nil
	}
	return s.save(ctx, doc)
}

func (s *FileStore) Status(ctx context.Context, id int64) (int64, bool, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return 0, false, err
	}
	u, ok := doc.Users[key(id)]
	return u.Status, ok, nil
}

func (s *FileStore) Register(ctx context.Context, id int64, reg Registration) (int64, error) {
	var status int64
	err := s.mutate(ctx, func(doc *Document) bool {
		var created bool
		status, created = doc.register(id, reg)
		return created
	})
	return status, err
}

func (s *FileStore) User(ctx context.Context, id int64) (User, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return User{}, err
	}
	u, ok := doc.Users[key(id)]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *FileStore) FindIDByStatus(ctx context.Context, status int64) (int64, bool, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return 0, false, err
	}
	id, ok := doc.findIDByStatus(status)
	return id, ok, nil
}

func (s *FileStore) Users(ctx context.Context) ([]User, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.users(), nil
}

func (s *FileStore) AddTopic(ctx context.Context, number int64, message string) error {
	return s.mutate(ctx, func(doc *Document) bool {
		doc.TopicMessages[key(number)] = message
		return true
	})
}

func (s *FileStore) DeleteTopic(ctx context.Context, number int64) (bool, error) {
	var found bool
	err := s.mutate(ctx, func(doc *Document) bool {
		if _, found = doc.TopicMessages[key(number)]; found {
			delete(doc.TopicMessages, key(number))
		}
		return found
	})
	return found, err
}

func (s *FileStore) Topic(ctx context.Context, number int64) (string, bool, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return "", false, err
	}
	msg, ok := doc.TopicMessages[key(number)]
	return msg, ok, nil
}

func (s *FileStore) ListTopics(ctx context.Context) ([]Topic, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.topics(), nil
}

func (s *FileStore) Ping(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}

func (s *FileStore) Close() error { return nil }
