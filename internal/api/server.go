// Package api provides the REST API server for ThreatAtlas.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/core"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/pipeline"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/scoring"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/search"
)

var version = "1.0.0"

// Server holds the API state: the run defaults, the pipeline runner, and
// completed runs by ID. The results map is shared across request
// goroutines and guarded by mu.
type Server struct {
	defaults pipeline.Options
	runner   *pipeline.Runner

	mu      sync.RWMutex
	results map[string]*pipeline.Result
}

func newServer(defaults pipeline.Options, runner *pipeline.Runner) *Server {
	return &Server{
		defaults: defaults,
		runner:   runner,
		results:  make(map[string]*pipeline.Result),
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/health", s.handleHealth)

	r.Post("/api/v1/score", s.handleScore)
	r.Get("/api/v1/score/{runID}", s.handleGetRun)
	r.Get("/api/v1/score/{runID}/search", s.handleSearch)

	return r
}

// StartServer starts the API server on the given port.
func StartServer(port int, defaults pipeline.Options) error {
	s := newServer(defaults, pipeline.NewRunner(defaults.NCSICache))
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, s.routes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": version,
		"service": "threatatlas",
	})
}

// scoreRequest is the JSON configuration surface; omitted fields keep the
// server defaults.
type scoreRequest struct {
	BaseFile     string    `json:"base_file"`
	AliasFile    string    `json:"alias_file"`
	NCSIFile     string    `json:"ncsi_file"`
	WeightAPT    *float64  `json:"w_apt"`
	WeightGCI    *float64  `json:"w_gci"`
	WeightNCSI   *float64  `json:"w_ncsi"`
	WeightMal    *float64  `json:"w_mal"`
	WeightSpam   *float64  `json:"w_spam"`
	NCSIMissing  string    `json:"ncsi_missing"`
	PresenceMode string    `json:"presence_mode"`
	PresenceCap  string    `json:"presence_cap"`
	Quantiles    []float64 `json:"quantiles"`
	Exclude      []string  `json:"exclude"`
	ExcludeISO2  []string  `json:"exclude_iso2"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	// An empty body means "use the defaults".
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := s.defaults
	applyRequest(&opts, req)

	result, err := s.runner.Run(r.Context(), opts)
	if err != nil {
		var cfgErr *core.ConfigError
		switch {
		case errors.As(err, &cfgErr), errors.Is(err, core.ErrEmptyResult):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.mu.Lock()
	s.results[result.RunID] = result
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	s.mu.RLock()
	result, ok := s.results[runID]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSearch filters a stored run by comma-separated terms; when nothing
// matches it returns the closest-match suggestions instead of an empty set.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	s.mu.RLock()
	result, ok := s.results[runID]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	terms := search.ParseTerms(r.URL.Query().Get("terms"))
	mask := search.BuildMask(result.Rows, terms, result.Aliases)
	rows := search.Filter(result.Rows, mask)

	resp := map[string]any{
		"run_id": runID,
		"rows":   rows,
		"total":  len(rows),
	}
	if len(rows) == 0 && len(terms) > 0 {
		resp["suggestions"] = search.Suggest(result.Rows, terms, result.Aliases)
	}
	writeJSON(w, http.StatusOK, resp)
}

func applyRequest(opts *pipeline.Options, req scoreRequest) {
	if req.BaseFile != "" {
		opts.BaseFile = req.BaseFile
	}
	if req.AliasFile != "" {
		opts.AliasFile = req.AliasFile
	}
	if req.NCSIFile != "" {
		opts.NCSIFile = req.NCSIFile
	}
	if req.WeightAPT != nil {
		opts.Weights.APT = *req.WeightAPT
	}
	if req.WeightGCI != nil {
		opts.Weights.GCI = *req.WeightGCI
	}
	if req.WeightNCSI != nil {
		opts.Weights.NCSI = *req.WeightNCSI
	}
	if req.WeightMal != nil {
		opts.Weights.Exploit = *req.WeightMal
	}
	if req.WeightSpam != nil {
		opts.Weights.Spam = *req.WeightSpam
	}
	if req.NCSIMissing != "" {
		opts.NCSIMissing = scoring.MissingPolicy(req.NCSIMissing)
	}
	if req.PresenceMode != "" {
		opts.PresenceMode = scoring.PresenceMode(req.PresenceMode)
	}
	if req.PresenceCap != "" {
		opts.PresenceSpec = req.PresenceCap
	}
	if len(req.Quantiles) > 0 {
		opts.Quantiles = req.Quantiles
	}
	opts.ExcludeNames = append(opts.ExcludeNames, req.Exclude...)
	opts.ExcludeISO2 = append(opts.ExcludeISO2, req.ExcludeISO2...)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
