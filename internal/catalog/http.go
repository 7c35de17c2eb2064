package catalog

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bodega/pkg/kit"
)

const maxBodyBytes = 1 << 20

const (
	msgCreated = "Producto agregado"
	msgUpdated = "Producto actualizado"
	msgDeleted = "Producto eliminado"
)

type Server struct {
	Store Store
	Log   *zap.Logger
}

type mutationResp struct {
	Mensaje  string   `json:"mensaje"`
	Producto *Product `json:"producto,omitempty"`
}

// Register mounts the product routes. Reads are public; gate wraps the
// mutating ones.
func (s *Server) Register(r chi.Router, gate func(http.Handler) http.Handler) {
	r.Get("/productos", s.list)
	r.Get("/productos/{id}", s.get)

	r.Group(func(pr chi.Router) {
		pr.Use(gate)
		pr.Post("/productos", s.create)
		pr.Put("/productos/{id}", s.update)
		pr.Delete("/productos/{id}", s.delete)
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context())
	if err != nil {
		s.serverError(w, r, "list products failed", err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.serverError(w, r, "get product failed", err, zap.String("id", id))
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "no encontrado", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	patch, err := decodePatch(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "json inválido", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Store.Create(r.Context(), NewProduct(patch))
	if err != nil {
		s.serverError(w, r, "create product failed", err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, mutationResp{Mensaje: msgCreated, Producto: &p})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	patch, err := decodePatch(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "json inválido", map[string]any{"cause": err.Error()})
		return
	}

	p, ok, err := s.Store.Update(r.Context(), id, patch)
	if err != nil {
		s.serverError(w, r, "update product failed", err, zap.String("id", id))
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "no encontrado", map[string]any{"id": id})
		return
	}

	kit.WriteJSON(w, http.StatusOK, mutationResp{Mensaje: msgUpdated, Producto: &p})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.Store.Delete(r.Context(), id); err != nil {
		s.serverError(w, r, "delete product failed", err, zap.String("id", id))
		return
	}

	kit.WriteJSON(w, http.StatusOK, mutationResp{Mensaje: msgDeleted})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	if s.Log != nil {
		s.Log.Error(msg, append(fields, zap.Error(err))...)
	}
	kit.WriteError(w, r, http.StatusInternalServerError, "error interno", nil)
}

// decodePatch reads one JSON object. An empty body is an empty patch.
func decodePatch(w http.ResponseWriter, r *http.Request) (Patch, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)

	var p Patch
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return Patch{}, nil
		}
		return Patch{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Patch{}, errors.New("extra data after json object")
	}
	return p, nil
}
