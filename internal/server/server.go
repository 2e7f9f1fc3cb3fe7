package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mkueh/citibike-analyse/internal/output"
	"github.com/mkueh/citibike-analyse/internal/store"
)

// Server exposes a stored analysis over HTTP.
type Server struct {
	analysis        store.Analysis
	onlyIntersected bool
	httpServer      *http.Server
}

func New(addr string, analysis store.Analysis, onlyIntersected bool) *Server {
	s := &Server{
		analysis:        analysis,
		onlyIntersected: onlyIntersected,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleMap).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/clusters", s.handleClusters).Methods(http.MethodGet)
	r.HandleFunc("/api/routes", s.handleRoutes).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	html, err := output.RenderMap(s.analysis, output.MapOptions{
		Title:           "Crash cluster map",
		IncludeRoutes:   true,
		OnlyIntersected: s.onlyIntersected,
	})
	if err != nil {
		http.Error(w, "failed to render map", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(html); err != nil {
		log.Printf("writing map response: %v", err)
	}
}

func (s *Server) handleClusters(w http.ResponseWriter, _ *http.Request) {
	data, err := output.ClustersGeoJSON(s.analysis.Clusters, s.onlyIntersected)
	if err != nil {
		http.Error(w, "failed to encode clusters", http.StatusInternalServerError)
		return
	}
	writeGeoJSON(w, data)
}

func (s *Server) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	data, err := output.RoutesGeoJSON(s.analysis.Rides, s.analysis.Routes)
	if err != nil {
		http.Error(w, "failed to encode routes", http.StatusInternalServerError)
		return
	}
	writeGeoJSON(w, data)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writing json response: %v", err)
	}
}

func writeGeoJSON(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("writing geojson response: %v", err)
	}
}
