package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"offerlens/internal/config"
	"offerlens/internal/issues"
	"offerlens/internal/model"
	"offerlens/internal/ranking"
	"offerlens/internal/report"
	"offerlens/internal/summary"
)

// RowSource is the persisted output of attribution runs.
type RowSource interface {
	LoadRows(ctx context.Context, onlyMatched bool) ([]model.EnrichedRow, error)
	LatestRun(ctx context.Context) (model.RunRecord, bool, error)
}

// Snapshot is the read-only dataset every request is answered from. It is
// replaced as a whole on reload and never mutated.
type Snapshot struct {
	Rows      []model.EnrichedRow
	Dashboard report.Dashboard
	Run       *model.RunRecord
	LoadedAt  time.Time
}

type Server struct {
	cfg       *config.Manager
	source    RowSource
	summaries *summary.Store
	issues    *issues.Store
	logger    *slog.Logger
	version   string
	snapshot  atomic.Pointer[Snapshot]
}

type statusResponse struct {
	Status      string            `json:"status"`
	Time        string            `json:"time"`
	Version     string            `json:"version"`
	ConfigPath  string            `json:"config_path"`
	API         apiStatus         `json:"api"`
	Storage     storageStatus     `json:"storage"`
	Publish     publishStatus     `json:"publish"`
	Attribution attributionStatus `json:"attribution"`
	Snapshot    snapshotStatus    `json:"snapshot"`
	LastRun     *model.RunRecord  `json:"last_run,omitempty"`
}

type apiStatus struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

type storageStatus struct {
	Enabled bool   `json:"enabled"`
	Driver  string `json:"driver"`
}

type publishStatus struct {
	Kafka bool   `json:"kafka"`
	Topic string `json:"topic,omitempty"`
}

type attributionStatus struct {
	Workers         int    `json:"workers"`
	BoundaryPolicy  string `json:"boundary_policy"`
	MalformedPolicy string `json:"malformed_policy"`
}

type snapshotStatus struct {
	Rows      int    `json:"rows"`
	LoadedAt  string `json:"loaded_at,omitempty"`
	Customers int    `json:"customers"`
	Issues    int    `json:"issues"`
}

func NewServer(cfg *config.Manager, source RowSource, summaries *summary.Store, issueStore *issues.Store, logger *slog.Logger, version string) *Server {
	s := &Server{
		cfg:       cfg,
		source:    source,
		summaries: summaries,
		issues:    issueStore,
		logger:    logger,
		version:   version,
	}
	s.snapshot.Store(&Snapshot{Dashboard: report.Build(nil)})
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/dashboard", s.handleDashboard)
	mux.HandleFunc("/recommend", s.handleRecommend)
	mux.HandleFunc("/customers", s.handleCustomers)
	mux.HandleFunc("/customers/", s.handleCustomers)
	mux.HandleFunc("/issues", s.handleIssues)
	mux.HandleFunc("/admin/reload", s.handleReload)
	return mux
}

// Reload rebuilds the snapshot from the row source. On error the previous
// snapshot stays in place.
func (s *Server) Reload(ctx context.Context) (*Snapshot, error) {
	next := &Snapshot{LoadedAt: time.Now().UTC()}
	if s.source != nil {
		rows, err := s.source.LoadRows(ctx, false)
		if err != nil {
			return nil, err
		}
		run, ok, err := s.source.LatestRun(ctx)
		if err != nil {
			return nil, err
		}
		next.Rows = rows
		if ok {
			next.Run = &run
		}
	}
	next.Dashboard = report.Build(next.Rows)
	s.snapshot.Store(next)
	if s.logger != nil {
		s.logger.Info("snapshot loaded", "rows", len(next.Rows))
	}
	return next, nil
}

func (s *Server) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

func Start(ctx context.Context, server *Server) *http.Server {
	if server == nil || server.cfg == nil {
		return nil
	}
	logger := server.logger
	current := server.cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	httpServer := &http.Server{Addr: current.Addr, Handler: server.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	snap := s.Snapshot()
	resp := statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		API:        apiStatus{Enabled: cfg.API.Enabled, Addr: cfg.API.Addr},
		Storage:    storageStatus{Enabled: cfg.Storage.Enabled, Driver: cfg.Storage.Driver},
		Publish:    publishStatus{Kafka: cfg.Publish.Kafka.Enabled, Topic: cfg.Publish.Kafka.Topic},
		Attribution: attributionStatus{
			Workers:         cfg.Attribution.Workers,
			BoundaryPolicy:  cfg.Attribution.BoundaryPolicy,
			MalformedPolicy: cfg.Attribution.MalformedPolicy,
		},
		Snapshot: snapshotStatus{Rows: len(snap.Rows)},
		LastRun:  snap.Run,
	}
	if !snap.LoadedAt.IsZero() {
		resp.Snapshot.LoadedAt = snap.LoadedAt.Format(time.RFC3339Nano)
	}
	if s.summaries != nil {
		resp.Snapshot.Customers = s.summaries.Len()
	}
	if s.issues != nil {
		resp.Snapshot.Issues = len(s.issues.List(0))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot().Dashboard)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	seg, err := ranking.ParseSegment(q.Get("gender"), q.Get("age"), q.Get("income"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	n := ranking.DefaultTop
	if v := q.Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "n must be a positive integer"})
			return
		}
		n = parsed
	}
	offers := ranking.Recommend(s.Snapshot().Rows, seg, n)
	writeJSON(w, http.StatusOK, map[string]any{
		"segment": seg,
		"offers":  offers,
		"count":   len(offers),
	})
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.summaries == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/customers")
	id = strings.TrimPrefix(id, "/")
	if id != "" {
		var customerIssues []model.CustomerError
		if s.issues != nil {
			customerIssues = s.issues.ForCustomer(id)
		}
		sum, updated, ok := s.summaries.Get(id)
		if !ok && len(customerIssues) == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		resp := map[string]any{
			"customer_id": id,
			"issues":      customerIssues,
		}
		if ok {
			resp["summary"] = sum
			resp["updated_at"] = updated.Format(time.RFC3339Nano)
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	list := s.summaries.List(queryLimit(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"customers": list,
		"count":     len(list),
		"totals":    s.summaries.Totals(),
	})
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var list []model.CustomerError
	if s.issues != nil {
		list = s.issues.List(queryLimit(r))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"issues": list,
		"count":  len(list),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap, err := s.Reload(r.Context())
	if err != nil {
		if s.logger != nil {
			s.logger.Error("snapshot reload failed", "err", err)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rows": len(snap.Rows)})
}

func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
