package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/model"
)

// JSONStore keeps every digest in memory and rewrites a single JSON file on
// each change. Updates to one digest are serialized by a per-id mutex. The
// cache only changes after the file write for that change succeeds.
type JSONStore struct {
	path string

	mu      sync.RWMutex // guards digests and the file
	digests map[string]*model.Digest

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewJSON opens the JSON store at path. A missing file starts empty; an
// unreadable one is logged and also starts empty.
func NewJSON(path string) (*JSONStore, error) {
	if path == "" {
		return nil, eris.New("json store: path is required")
	}
	s := &JSONStore{
		path:    path,
		digests: make(map[string]*model.Digest),
		locks:   make(map[string]*sync.Mutex),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "json store: read %s", s.path)
	}

	var list []model.Digest
	if err := json.Unmarshal(data, &list); err != nil {
		zap.L().Warn("json store: unreadable file, starting empty", zap.String("path", s.path), zap.Error(err))
		return nil
	}
	for i := range list {
		d := list[i]
		if d.ID == "" {
			continue
		}
		prepare(&d)
		s.digests[d.ID] = &d
	}
	return nil
}

// Migrate creates the parent directory.
func (s *JSONStore) Migrate(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "json store: create directory")
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) Save(_ context.Context, d *model.Digest) (*model.Digest, error) {
	next := prepareNew(d)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commit(next.ID, next); err != nil {
		return nil, err
	}
	return clone(next), nil
}

func (s *JSONStore) Get(_ context.Context, id string) (*model.Digest, error) {
	s.mu.RLock()
	d, ok := s.digests[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return clone(d), nil
}

func (s *JSONStore) List(_ context.Context, filter ListFilter) ([]model.Digest, error) {
	s.mu.RLock()
	out := make([]model.Digest, 0, len(s.digests))
	for _, d := range s.digests {
		if !filter.Since.IsZero() && d.CreatedAt.Before(filter.Since) {
			continue
		}
		out = append(out, *clone(d))
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, filter), nil
}

func (s *JSONStore) Update(_ context.Context, id string, fn UpdateFunc) (*model.Digest, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, ok := s.digests[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}

	next, err := applyUpdate(clone(current), fn)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A clear that ran while fn was working wins.
	if _, ok := s.digests[id]; !ok {
		return nil, notFound(id)
	}
	if err := s.commit(id, next); err != nil {
		return nil, err
	}
	return clone(next), nil
}

func (s *JSONStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	empty := make(map[string]*model.Digest)
	if err := s.persist(empty); err != nil {
		return err
	}
	s.digests = empty
	return nil
}

// commit writes the cache with d stored under id and swaps it in only once
// the file is on disk. Callers hold s.mu.
func (s *JSONStore) commit(id string, d *model.Digest) error {
	next := make(map[string]*model.Digest, len(s.digests)+1)
	for k, v := range s.digests {
		next[k] = v
	}
	next[id] = d
	if err := s.persist(next); err != nil {
		return err
	}
	s.digests = next
	return nil
}

func (s *JSONStore) lockFor(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// persist writes digests through a temp file and rename.
func (s *JSONStore) persist(digests map[string]*model.Digest) error {
	list := make([]*model.Digest, 0, len(digests))
	for _, d := range digests {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return eris.Wrap(err, "json store: marshal")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "json store: create directory")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "json store: write")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return eris.Wrap(err, "json store: rename")
	}
	return nil
}

// clone deep-copies a digest through JSON so callers never share records
// with the cache.
func clone(d *model.Digest) *model.Digest {
	data, err := json.Marshal(d)
	if err != nil {
		cp := *d
		return &cp
	}
	var out model.Digest
	if err := json.Unmarshal(data, &out); err != nil {
		cp := *d
		return &cp
	}
	return &out
}

func page(list []model.Digest, f ListFilter) []model.Digest {
	if f.Offset > 0 {
		if f.Offset >= len(list) {
			return []model.Digest{}
		}
		list = list[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(list) {
		list = list[:f.Limit]
	}
	return list
}
