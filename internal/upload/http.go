package upload

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"bodega/pkg/kit"
)

const (
	formField     = "imagen"
	maxFormMemory = 32 << 20
)

type Server struct {
	Uploader Uploader
	Log      *zap.Logger

	// Results counts uploads by outcome when set.
	Results *prometheus.CounterVec
}

// NewResultsCounter registers catalog_uploads_total{result}.
func NewResultsCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_uploads_total",
			Help: "Image uploads relayed to the media host, by result",
		},
		[]string{"result"},
	)
	reg.MustRegister(c)
	return c
}

// Register mounts POST /upload behind gate. The gate runs before the
// multipart body is read.
func (s *Server) Register(r chi.Router, gate func(http.Handler) http.Handler) {
	r.With(gate).Post("/upload", s.handleUpload)
}

type uploadResp struct {
	URL string `json:"url"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		s.count("bad_request")
		kit.WriteError(w, r, http.StatusBadRequest, "falta el archivo", nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile(formField)
	if err != nil {
		s.count("bad_request")
		kit.WriteError(w, r, http.StatusBadRequest, "falta el archivo", nil)
		return
	}
	defer file.Close()

	if s.Uploader == nil {
		s.count("error")
		s.logger().Error("upload requested but no media host is configured")
		kit.WriteError(w, r, http.StatusInternalServerError, "error inesperado", nil)
		return
	}

	url, err := s.Uploader.Upload(r.Context(), file)
	if err != nil {
		fields := []zap.Field{zap.Error(err), zap.String("filename", hdr.Filename), zap.Int64("size", hdr.Size)}
		if errors.Is(err, ErrUploadFailed) {
			s.count("failed")
			s.logger().Warn("media host upload failed", fields...)
			kit.WriteError(w, r, http.StatusInternalServerError, "error al subir la imagen", nil)
			return
		}
		s.count("error")
		s.logger().Error("upload error", fields...)
		kit.WriteError(w, r, http.StatusInternalServerError, "error inesperado", nil)
		return
	}

	s.count("ok")
	kit.WriteJSON(w, http.StatusOK, uploadResp{URL: url})
}

func (s *Server) count(result string) {
	if s.Results != nil {
		s.Results.WithLabelValues(result).Inc()
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
