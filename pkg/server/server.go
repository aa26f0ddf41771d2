package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/caseradar/caseradar/internal/store"
	"github.com/caseradar/caseradar/pkg/model"
	"github.com/caseradar/caseradar/pkg/predict"
	"github.com/caseradar/caseradar/pkg/registry"
)

// Server provides the HTTP prediction API. Artifacts and the registry are
// loaded once at startup; the serving path never retrains or mutates state.
type Server struct {
	store      store.Store
	registry   *registry.Registry
	predictors map[model.Kind]*predict.Predictor
	defaultKnd model.Kind
	port       int
}

// New creates a new HTTP server. At least one predictor must be supplied.
func New(s store.Store, reg *registry.Registry, predictors map[model.Kind]*predict.Predictor, defaultKind model.Kind, port int) (*Server, error) {
	if len(predictors) == 0 {
		return nil, fmt.Errorf("%w: no predictors loaded", model.ErrArtifactLoad)
	}
	if _, ok := predictors[defaultKind]; !ok {
		return nil, fmt.Errorf("%w: default model %q not loaded", model.ErrArtifactLoad, defaultKind)
	}
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:      s,
		registry:   reg,
		predictors: predictors,
		defaultKnd: defaultKind,
		port:       port,
	}, nil
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/predict", s.handlePredict)
	mux.HandleFunc("/api/v1/cases", s.handleCases)
	mux.HandleFunc("/api/v1/models", s.handleModels)
	mux.HandleFunc("/api/v1/dataset", s.handleDataset)
	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("caseradar server listening on %s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type predictRequest struct {
	predict.Input
	Model string `json:"model"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	kind := s.defaultKnd
	if req.Model != "" {
		k, err := model.ParseKind(req.Model)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		kind = k
	}
	predictor, ok := s.predictors[kind]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("model %q not loaded", kind)})
		return
	}

	price, err := predictor.Predict(req.Input)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, registry.ErrUnknownItem) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"item_name":       req.ItemName,
		"predicted_price": price,
		"model":           string(kind),
	})
}

func (s *Server) handleCases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	type caseInfo struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	names := s.registry.Names()
	infos := make([]caseInfo, len(names))
	for i, name := range names {
		infos[i] = caseInfo{ID: i, Name: name}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"registry_version": s.registry.Version,
		"data":             infos,
		"count":            len(infos),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	type modelInfo struct {
		Kind      string `json:"kind"`
		Trees     int    `json:"trees"`
		TrainedAt string `json:"trained_at"`
		Default   bool   `json:"default"`
	}
	var infos []modelInfo
	for _, kind := range model.Kinds() {
		p, ok := s.predictors[kind]
		if !ok {
			continue
		}
		e := p.Ensemble()
		infos = append(infos, modelInfo{
			Kind:      string(kind),
			Trees:     len(e.Trees),
			TrainedAt: e.TrainedAt.Format(time.RFC3339),
			Default:   kind == s.defaultKnd,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  infos,
		"count": len(infos),
	})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	summary, err := s.store.DatasetSummary(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
