// Package monitor serves the tracker's outputs, parameters and metrics over
// HTTP, and accepts remote setter calls.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gonum.org/v1/plot/vg"

	"freeswim-tracker/internal/attribute"
	"freeswim-tracker/internal/config"
	"freeswim-tracker/internal/control"
	"freeswim-tracker/internal/logger"
)

const component = "Monitor"

const maxSetterBody = 4 << 10

type Config struct {
	Addr           string
	JPEGQuality    int
	StreamInterval time.Duration
	SetterTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		JPEGQuality:    80,
		StreamInterval: 100 * time.Millisecond,
		SetterTimeout:  2 * time.Second,
	}
}

type Server struct {
	cfg     Config
	outputs *attribute.Store
	params  *config.Store
	control *control.Channel
	metrics http.Handler
	logger  logger.Logger

	httpServer *http.Server
}

func NewServer(cfg Config, outputs *attribute.Store, params *config.Store, ctrl *control.Channel, metrics http.Handler, log logger.Logger) *Server {
	def := DefaultConfig()
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = def.JPEGQuality
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = def.StreamInterval
	}
	if cfg.SetterTimeout <= 0 {
		cfg.SetterTimeout = def.SetterTimeout
	}
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}
	return &Server{
		cfg:     cfg,
		outputs: outputs,
		params:  params,
		control: ctrl,
		metrics: metrics,
		logger:  log,
	}
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", s.metrics)
	mux.HandleFunc("GET /api/params", s.handleParams)
	mux.HandleFunc("POST /api/params/{name}", s.handleSetter)
	mux.HandleFunc("GET /api/setters", s.handleSetterNames)
	mux.HandleFunc("GET /api/particles", s.handleParticles)
	mux.HandleFunc("GET /api/counts", s.handleCounts)
	mux.HandleFunc("GET /frames/{file}", s.handleFrame)
	mux.HandleFunc("GET /stream/{name}", s.handleStream)
	mux.HandleFunc("GET /plots/counts.png", s.handleCountsPlot)

	return mux
}

// Start listens on cfg.Addr in the background.
func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.logger.Info(component, "http server listening", map[string]interface{}{"addr": s.cfg.Addr})
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(component, err, map[string]interface{}{"addr": s.cfg.Addr})
		}
	}()
}

// Shutdown stops accepting requests and waits briefly for open ones.
func (s *Server) Shutdown() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warning(component, "http shutdown incomplete", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.params.Snapshot()))
}

func (s *Server) handleSetterNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, control.Names())
}

func (s *Server) handleSetter(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSetterBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SetterTimeout)
	defer cancel()

	err = s.control.Submit(ctx, name, body)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, viewOf(s.params.Snapshot()))
	case errors.Is(err, control.ErrUnknownSetter):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, control.ErrBadValue), errors.Is(err, config.ErrInvalidParameter):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	}
}

func (s *Server) handleParticles(w http.ResponseWriter, r *http.Request) {
	report, ok := s.outputs.Report()
	if !ok {
		writeJSONError(w, http.StatusServiceUnavailable, "no frame processed yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.outputs.History())
}

// handleFrame serves <attribute>.jpg for the frame outputs and
// particle_rois.png for the thumbnail strip.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")

	if file == attribute.ParticleROIs+".png" {
		thumbs, ok := s.outputs.Thumbnails()
		if !ok {
			writeJSONError(w, http.StatusServiceUnavailable, "no frame processed yet")
			return
		}
		data, err := encodeThumbnails(thumbs)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeImage(w, "image/png", data)
		return
	}

	name, ok := strings.CutSuffix(file, ".jpg")
	if !ok || !isFrameName(name) {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown output %q", file))
		return
	}

	data, err := s.frameJPEG(name)
	if err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeImage(w, "image/jpeg", data)
}

func (s *Server) frameJPEG(name string) ([]byte, error) {
	m, ok := s.outputs.Frame(name)
	if !ok {
		return nil, fmt.Errorf("no %s available", name)
	}
	defer m.Release()
	return encodeJPEG(m, s.cfg.JPEGQuality)
}

func (s *Server) handleCountsPlot(w http.ResponseWriter, r *http.Request) {
	data, err := renderCounts(s.outputs.History(), 10*vg.Inch, 4*vg.Inch)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeImage(w, "image/png", data)
}

func writeImage(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

func isFrameName(name string) bool {
	for _, n := range attribute.FrameNames {
		if n == name {
			return true
		}
	}
	return false
}
