package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "data", "productos.json"))
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := newTestFileStore(t)

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if ps := mustList(t, s); len(ps) != 0 {
		t.Fatalf("len=%d", len(ps))
	}
	if err := s.Delete(context.Background(), "x"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(s.Path()); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("no-op delete must not create the file: %v", err)
	}
}

func TestFileStore_WrapperLayout(t *testing.T) {
	s := newTestFileStore(t)
	p := mustCreate(t, s, "Arroz")

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var doc map[string][]map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("file is not {productos:[...]}: %v\n%s", err, raw)
	}
	if len(doc["productos"]) != 1 || doc["productos"][0]["id"] != p.ID {
		t.Fatalf("unexpected document: %s", raw)
	}
}

func TestFileStore_ReadsBareArray(t *testing.T) {
	s := newTestFileStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte(`[{"id":"1","nombre":"Sal"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	p, ok, err := s.Get(context.Background(), "1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if p.Nombre != "Sal" || p.ImagenesExtra == nil {
		t.Fatalf("got %#v", p)
	}

	mustCreate(t, s, "Azucar")
	raw, _ := os.ReadFile(s.Path())
	var doc fileData
	if err := json.Unmarshal(raw, &doc); err != nil || len(doc.Productos) != 2 {
		t.Fatalf("rewrite did not use wrapper: err=%v\n%s", err, raw)
	}
}

func TestFileStore_MalformedFile(t *testing.T) {
	s := newTestFileStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte(`{"productos": [`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.List(context.Background()); !errors.Is(err, ErrMalformedData) {
		t.Fatalf("list err=%v want ErrMalformedData", err)
	}
	if _, err := s.Create(context.Background(), NewProduct(Patch{})); !errors.Is(err, ErrMalformedData) {
		t.Fatalf("create err=%v want ErrMalformedData", err)
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Fatalf("ping should report malformed data")
	}
}

func TestFileStore_TimestampIDs(t *testing.T) {
	s := newTestFileStore(t)
	fixed := time.UnixMilli(1700000000000)
	s.now = func() time.Time { return fixed }

	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")

	if a.ID != "1700000000000" {
		t.Fatalf("id=%s", a.ID)
	}
	if b.ID != "1700000000001" {
		t.Fatalf("same-millisecond create must get a fresh id, got %s", b.ID)
	}
}

func TestFileStore_ConcurrentCreatesKeepAll(t *testing.T) {
	s := newTestFileStore(t)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Create(context.Background(), NewProduct(Patch{Nombre: strp("x")})); err != nil {
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()

	ps := mustList(t, s)
	if len(ps) != n {
		t.Fatalf("len=%d want=%d (lost update)", len(ps), n)
	}
	seen := map[string]bool{}
	for _, p := range ps {
		if seen[p.ID] {
			t.Fatalf("duplicate id %s", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestFileStore_CanceledContext(t *testing.T) {
	s := newTestFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Create(ctx, NewProduct(Patch{})); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}
