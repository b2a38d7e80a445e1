package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"patrimoine/services"
	"patrimoine/utils"

	"github.com/gorilla/mux"
)

// Server is the operations listener. It is bound separately from the public
// API so health, metrics and integrity scans can stay off the internet.
type Server struct {
	integrity *services.IntegrityService
	backups   *services.BackupService
}

func NewServer(integrity *services.IntegrityService, backups *services.BackupService) *Server {
	return &Server{integrity: integrity, backups: backups}
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(sw, r)

		utils.LogInfo("Admin: %s %s - Status: %d - Duration: %v",
			r.Method, r.URL.Path, sw.statusCode, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, utils.GetMetrics().Snapshot())
}

// integrityScan walks every encrypted row and reports the ones that no
// longer decrypt. This reads the whole database, so it is on-demand only.
func (s *Server) integrityScan(w http.ResponseWriter, r *http.Request) {
	report, err := s.integrity.FullScan()
	if err != nil {
		utils.LogError("integrity scan failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) backup(w http.ResponseWriter, r *http.Request) {
	path, err := s.backups.Create()
	if err != nil {
		utils.LogError("admin backup failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"file": path})
}

// Router builds the mux router for the ops listener.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(logRequests)

	router.HandleFunc("/healthz", s.healthz).Methods("GET")
	router.HandleFunc("/metrics", s.metrics).Methods("GET")
	router.HandleFunc("/integrity/scan", s.integrityScan).Methods("POST")
	router.HandleFunc("/backup", s.backup).Methods("POST")

	return router
}
