package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bodega/internal/auth"
	"bodega/internal/catalog"
)

type testEnv struct {
	h     http.Handler
	store catalog.Store
	token string
}

func newEnv(t *testing.T, store catalog.Store) testEnv {
	t.Helper()

	sessions := auth.NewSessions()
	tok, err := sessions.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	s := &catalog.Server{Store: store, Log: zap.NewNop()}
	r := chi.NewRouter()
	s.Register(r, auth.RequireToken(sessions))

	return testEnv{h: r, store: store, token: tok}
}

func (e testEnv) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec, rec.Body.Bytes()
}

type mutation struct {
	Mensaje  string           `json:"mensaje"`
	Producto *catalog.Product `json:"producto"`
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode: %v body=%s", err, raw)
	}
	return v
}

func TestProducts_Lifecycle(t *testing.T) {
	stores := map[string]catalog.Store{
		"memory": catalog.NewMemStore(),
		"file":   catalog.NewFileStore(filepath.Join(t.TempDir(), "productos.json")),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t, store)

			rec, raw := e.do(t, http.MethodPost, "/productos", map[string]any{
				"nombre":    "Arroz",
				"precio":    "10",
				"categoria": "Granos",
			}, e.token)
			if rec.Code != http.StatusOK {
				t.Fatalf("create status=%d body=%s", rec.Code, raw)
			}
			created := decode[mutation](t, raw)
			if created.Mensaje != "Producto agregado" || created.Producto == nil {
				t.Fatalf("create body=%s", raw)
			}
			p := *created.Producto
			if p.ID == "" || p.Descripcion != "" || p.ImagenesExtra == nil || len(p.ImagenesExtra) != 0 {
				t.Fatalf("created product=%#v", p)
			}

			rec, raw = e.do(t, http.MethodGet, "/productos/"+p.ID, nil, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("get status=%d", rec.Code)
			}
			if got := decode[catalog.Product](t, raw); got.Nombre != "Arroz" || got.ID != p.ID {
				t.Fatalf("get body=%s", raw)
			}

			rec, raw = e.do(t, http.MethodPut, "/productos/"+p.ID, map[string]any{
				"nombre": "Arroz Premium",
				"precio": "12",
			}, e.token)
			if rec.Code != http.StatusOK {
				t.Fatalf("update status=%d body=%s", rec.Code, raw)
			}
			updated := decode[mutation](t, raw)
			if updated.Mensaje != "Producto actualizado" || updated.Producto == nil {
				t.Fatalf("update body=%s", raw)
			}
			if u := *updated.Producto; u.Nombre != "Arroz Premium" || u.Precio != "12" || u.Categoria != "Granos" {
				t.Fatalf("updated=%#v", u)
			}

			rec, raw = e.do(t, http.MethodDelete, "/productos/"+p.ID, nil, e.token)
			if rec.Code != http.StatusOK {
				t.Fatalf("delete status=%d", rec.Code)
			}
			if d := decode[mutation](t, raw); d.Mensaje != "Producto eliminado" {
				t.Fatalf("delete body=%s", raw)
			}

			rec, _ = e.do(t, http.MethodGet, "/productos/"+p.ID, nil, "")
			if rec.Code != http.StatusNotFound {
				t.Fatalf("get after delete status=%d", rec.Code)
			}
		})
	}
}

func TestProducts_ListIsArray(t *testing.T) {
	e := newEnv(t, catalog.NewMemStore())

	rec, raw := e.do(t, http.MethodGet, "/productos", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if string(bytes.TrimSpace(raw)) != "[]" {
		t.Fatalf("body=%s want []", raw)
	}
}

func TestProducts_MutationsRequireToken(t *testing.T) {
	store := catalog.NewMemStore()
	e := newEnv(t, store)

	seed, err := store.Create(context.Background(), catalog.NewProduct(catalog.Patch{}))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		method, path string
	}{
		{http.MethodPost, "/productos"},
		{http.MethodPut, "/productos/" + seed.ID},
		{http.MethodDelete, "/productos/" + seed.ID},
	}
	for _, tc := range cases {
		for _, tok := range []string{"", "not-a-token"} {
			rec, _ := e.do(t, tc.method, tc.path, map[string]any{"nombre": "x"}, tok)
			if rec.Code != http.StatusForbidden {
				t.Fatalf("%s %s token=%q status=%d", tc.method, tc.path, tok, rec.Code)
			}
		}
	}

	ps, _ := store.List(context.Background())
	if len(ps) != 1 || ps[0].Nombre != "" {
		t.Fatalf("collection changed: %#v", ps)
	}
}

func TestProducts_UpdateMissing(t *testing.T) {
	e := newEnv(t, catalog.NewMemStore())

	rec, _ := e.do(t, http.MethodPut, "/productos/nope", map[string]any{"nombre": "x"}, e.token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestProducts_DeleteMissingStillConfirms(t *testing.T) {
	e := newEnv(t, catalog.NewMemStore())

	for i := 0; i < 2; i++ {
		rec, raw := e.do(t, http.MethodDelete, "/productos/nope", nil, e.token)
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		if d := decode[mutation](t, raw); d.Mensaje != "Producto eliminado" {
			t.Fatalf("body=%s", raw)
		}
	}
}

func TestProducts_BadJSON(t *testing.T) {
	e := newEnv(t, catalog.NewMemStore())

	req := httptest.NewRequest(http.MethodPost, "/productos", bytes.NewBufferString(`{"nombre":`))
	req.Header.Set("Authorization", e.token)
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
}

type brokenStore struct{ catalog.Store }

var errDisk = errors.New("disk on fire")

func (brokenStore) List(context.Context) ([]catalog.Product, error) { return nil, errDisk }
func (brokenStore) Create(context.Context, catalog.Product) (catalog.Product, error) {
	return catalog.Product{}, errDisk
}

func TestProducts_StoreErrorIs500(t *testing.T) {
	e := newEnv(t, brokenStore{Store: catalog.NewMemStore()})

	if rec, _ := e.do(t, http.MethodGet, "/productos", nil, ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("list status=%d", rec.Code)
	}
	if rec, _ := e.do(t, http.MethodPost, "/productos", map[string]any{}, e.token); rec.Code != http.StatusInternalServerError {
		t.Fatalf("create status=%d", rec.Code)
	}
}
