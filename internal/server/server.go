// Package server is the HTTP adapter around the prediction facade. It parses
// transport-level input into records, maps pipeline errors to status codes,
// and exposes the static configuration listings the UI needs.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"homeval/internal/encode"
	"homeval/internal/predict"
	"homeval/internal/schema"
	"homeval/internal/storage"
)

// Price-range width reported to callers, scaled by confidence: a fully
// agreeing ensemble gets the narrow band, a fallback estimate the wide one.
const (
	minSpread = 0.05
	maxSpread = 0.25
)

// Server serves the prediction API.
type Server struct {
	svc     *predict.Service
	journal *storage.Store
	server  *http.Server
}

// PredictionResponse is the wire form of one prediction.
type PredictionResponse struct {
	PredictedPrice  float64           `json:"predicted_price"`
	PriceRangeLow   float64           `json:"price_range_low"`
	PriceRangeHigh  float64           `json:"price_range_high"`
	Confidence      float64           `json:"confidence"`
	Tier            string            `json:"tier"`
	UsedFallback    bool              `json:"used_fallback"`
	FeaturesSummary map[string]string `json:"features_summary"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds the server. journal may be nil, which disables the
// /predictions/recent listing.
func New(svc *predict.Service, journal *storage.Store, port int, readTimeout, writeTimeout time.Duration) *Server {
	s := &Server{
		svc:     svc,
		journal: journal,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/neighborhoods", s.handleNeighborhoods)
	mux.HandleFunc("/feature-options", s.handleFeatureOptions)
	mux.HandleFunc("/models", s.handleModels)
	mux.HandleFunc("/predictions/recent", s.handleRecent)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var rec schema.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	res, err := s.svc.Predict(rec)
	if err != nil {
		if schema.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("prediction failed")
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	spread := minSpread + (maxSpread-minSpread)*(1-res.Confidence)
	writeJSON(w, http.StatusOK, PredictionResponse{
		PredictedPrice:  round2(res.Price),
		PriceRangeLow:   round2(res.Price * (1 - spread)),
		PriceRangeHigh:  round2(res.Price * (1 + spread)),
		Confidence:      res.Confidence,
		Tier:            res.Tier.String(),
		UsedFallback:    res.UsedFallback,
		FeaturesSummary: summarize(rec),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"models": len(s.svc.Models()),
	})
}

// handleNeighborhoods lists the tier table, one entry per tier.
func (s *Server) handleNeighborhoods(w http.ResponseWriter, r *http.Request) {
	tiers := s.svc.Encoder().Tiers()
	out := make(map[string][]string, encode.TierCount)
	for t := encode.Tier1; t <= encode.Tier5; t++ {
		out[t.String()] = tiers.Neighborhoods(t)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleFeatureOptions lists the categorical vocabularies the caller may
// submit. Static configuration data, not pipeline logic.
func (s *Server) handleFeatureOptions(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]string)
	for _, f := range schema.Fields() {
		if f.Kind == schema.Categorical {
			out[f.Name] = f.Vocab
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	type modelInfo struct {
		Name      string    `json:"name"`
		Version   string    `json:"version"`
		TrainedAt time.Time `json:"trained_at"`
		MAE       float64   `json:"mae"`
	}
	handles := s.svc.Models()
	infos := make([]modelInfo, 0, len(handles))
	for _, h := range handles {
		infos = append(infos, modelInfo{Name: h.Name, Version: h.Version, TrainedAt: h.TrainedAt, MAE: h.MAE})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, "prediction journal is not enabled")
		return
	}
	n := 20
	if q := r.URL.Query().Get("n"); q != "" {
		if v, err := strconv.Atoi(q); err == nil && v > 0 && v <= 500 {
			n = v
		}
	}
	entries, err := s.journal.Recent(n)
	if err != nil {
		log.Error().Err(err).Msg("failed to read prediction journal")
		writeError(w, http.StatusInternalServerError, "failed to read prediction journal")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func summarize(rec schema.Record) map[string]string {
	out := make(map[string]string)
	if v, ok := rec.Float(schema.FieldOverallQuality); ok {
		out["quality_rating"] = fmt.Sprintf("%.0f/10", v)
	}
	if v, ok := rec.Float(schema.FieldGrLivArea); ok {
		out["living_area"] = fmt.Sprintf("%.0f sq ft", v)
	}
	if v, ok := rec.Float(schema.FieldBedrooms); ok {
		out["bedrooms"] = fmt.Sprintf("%.0f", v)
	}
	if v, ok := rec.Float(schema.FieldYearBuilt); ok {
		out["age"] = fmt.Sprintf("%d years", time.Now().Year()-int(v))
	}
	if v, ok := rec.String(schema.FieldNeighborhood); ok {
		out["neighborhood"] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
