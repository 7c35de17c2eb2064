package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// fileData is the on-disk layout: {"productos": [...]}.
type fileData struct {
	Productos []Product `json:"productos"`
}

// FileStore keeps the collection as a single JSON document. Every call
// reads the whole file and every mutation rewrites it. mu spans the full
// read-modify-write cycle so concurrent writers cannot lose updates.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.load()
	return err
}

func (s *FileStore) List(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *FileStore) Get(ctx context.Context, id string) (Product, bool, error) {
	ps, err := s.List(ctx)
	if err != nil {
		return Product{}, false, err
	}
	if i := indexOf(ps, id); i >= 0 {
		return ps[i], true, nil
	}
	return Product{}, false, nil
}

func (s *FileStore) Create(ctx context.Context, p Product) (Product, error) {
	p = normalize(clone(p))

	err := s.mutate(ctx, func(ps []Product) ([]Product, error) {
		p.ID = s.nextID(ps)
		return append(ps, p), nil
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *FileStore) Update(ctx context.Context, id string, patch Patch) (Product, bool, error) {
	var (
		out   Product
		found bool
	)

	err := s.mutate(ctx, func(ps []Product) ([]Product, error) {
		i := indexOf(ps, id)
		if i < 0 {
			return nil, errSkipWrite
		}
		ps[i] = patch.Apply(ps[i])
		out, found = ps[i], true
		return ps, nil
	})
	if err != nil {
		return Product{}, false, err
	}
	return out, found, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(ps []Product) ([]Product, error) {
		if indexOf(ps, id) < 0 {
			return nil, errSkipWrite
		}
		return removeID(ps, id), nil
	})
}

// errSkipWrite lets a mutation leave the file untouched.
var errSkipWrite = errors.New("skip write")

func (s *FileStore) mutate(ctx context.Context, fn func([]Product) ([]Product, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ps, err := s.load()
	if err != nil {
		return err
	}

	ps, err = fn(ps)
	if errors.Is(err, errSkipWrite) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.save(ps)
}

// nextID derives the id from the wall clock in milliseconds and bumps it
// past any id already taken.
func (s *FileStore) nextID(ps []Product) string {
	n := s.now().UnixMilli()
	for {
		id := strconv.FormatInt(n, 10)
		if indexOf(ps, id) < 0 {
			return id
		}
		n++
	}
}

// load reads the collection. A missing or empty file is an empty collection.
// A bare top-level array is accepted for files written without the wrapper.
func (s *FileStore) load() ([]Product, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Product{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []Product{}, nil
	}

	var ps []Product
	if raw[0] == '[' {
		err = json.Unmarshal(raw, &ps)
	} else {
		var d fileData
		err = json.Unmarshal(raw, &d)
		ps = d.Productos
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedData, s.path, err)
	}

	out := make([]Product, 0, len(ps))
	for _, p := range ps {
		out = append(out, normalize(p))
	}
	return out, nil
}

// save writes to a sibling temp file and renames it over the target so a
// crash mid-write never leaves a truncated document.
func (s *FileStore) save(ps []Product) error {
	if ps == nil {
		ps = []Product{}
	}
	data, err := json.MarshalIndent(fileData{Productos: ps}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
