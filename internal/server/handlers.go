package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sqlviz/internal/bind"
	"sqlviz/internal/db"
	"sqlviz/internal/graph"
	"sqlviz/internal/logger"
	"sqlviz/internal/sqlparse"
	"sqlviz/internal/store"
	"sqlviz/pkg/config"
)

type parseRequest struct {
	SQL string `json:"sql"`
}

type parseResponse struct {
	Result *sqlparse.ParseResult `json:"result"`
	Graph  *graph.Graph          `json:"graph"`
}

type bindRequest struct {
	Query     string           `json:"query" validate:"required"`
	Rows      []map[string]any `json:"rows"`
	Variables []bind.Variable  `json:"variables" validate:"dive"`
	Minify    bool             `json:"minify"`
}

type connectResponse struct {
	OK     bool            `json:"ok"`
	Server db.ServerInfo   `json:"server"`
	Config config.DBConfig `json:"config"`
}

// writeJSON encodes data as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("%v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) analyze(sql string) parseResponse {
	result := sqlparse.Parse(sql)
	return parseResponse{Result: result, Graph: s.builder.Build(result)}
}

// POST /api/parse
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, s.analyze(req.SQL))
}

// POST /api/bind
func (s *Server) handleBind(w http.ResponseWriter, r *http.Request) {
	var req bindRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"sql": bind.Render(req.Query, req.Rows, req.Variables, req.Minify),
	})
}

// POST /api/connect tests the posted connection and makes it active.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req config.DBConfig
	if !s.decode(w, r, &req) {
		return
	}
	driver, dsn, err := config.BuildDriverAndDSN(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	info, err := db.ConnectAndProbe(driver, dsn, s.timeoutSec)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("connection failed: %w", err))
		return
	}
	s.setActive(req)
	writeJSON(w, http.StatusOK, connectResponse{OK: true, Server: info, Config: req.Redacted()})
}

// GET /api/connection returns the saved connection, or the active one.
func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	cfg, ok, err := s.store.GetConnection(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		cfg = s.getActive()
	}
	cfg.Type = config.NormalizeDriver(cfg.Type)
	writeJSON(w, http.StatusOK, cfg.Redacted())
}

// PUT /api/connection saves the connection and makes it active.
func (s *Server) handlePutConnection(w http.ResponseWriter, r *http.Request) {
	var req config.DBConfig
	if !s.decode(w, r, &req) {
		return
	}
	if _, _, err := config.BuildDriverAndDSN(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.SaveConnection(r.Context(), req); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.setActive(req)
	writeJSON(w, http.StatusOK, req.Redacted())
}

// GET /api/schema scans the active connection and keeps the snapshot.
func (s *Server) handleScanSchema(w http.ResponseWriter, r *http.Request) {
	active := s.getActive()
	if active.Type == "" {
		writeError(w, http.StatusBadRequest, errors.New("no active connection; POST /api/connect to create one"))
		return
	}
	driver, dsn, err := config.BuildDriverAndDSN(active)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cat, err := db.ConnectAndScan(driver, dsn, s.timeoutSec)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("failed to scan schema: %w", err))
		return
	}
	if err := s.store.SaveCatalog(r.Context(), cat); err != nil {
		logger.Error("keep schema snapshot: %v", err)
	}
	writeJSON(w, http.StatusOK, cat)
}

// GET /api/schema/latest
func (s *Server) handleLatestSchema(w http.ResponseWriter, r *http.Request) {
	cat, ok, err := s.store.LatestCatalog(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, store.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func queryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid query id %q", chi.URLParam(r, "id")))
		return 0, false
	}
	return id, true
}

func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

// GET /api/queries[?trashed=true]
func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	trashed, _ := strconv.ParseBool(r.URL.Query().Get("trashed"))
	list, err := s.store.ListQueries(r.Context(), trashed)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/queries
func (s *Server) handleCreateQuery(w http.ResponseWriter, r *http.Request) {
	var req store.Query
	if !s.decode(w, r, &req) {
		return
	}
	q, err := s.store.CreateQuery(r.Context(), req)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// GET /api/queries/{id}
func (s *Server) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	q, err := s.store.GetQuery(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// PUT /api/queries/{id}
func (s *Server) handleUpdateQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var req store.Query
	if !s.decode(w, r, &req) {
		return
	}
	q, err := s.store.UpdateQuery(r.Context(), id, req)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// DELETE /api/queries/{id} moves the query to the trash.
func (s *Server) handleDeleteQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteQuery(r.Context(), id); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/queries/{id}/restore
func (s *Server) handleRestoreQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	q, err := s.store.RestoreQuery(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// GET /api/queries/{id}/graph parses the saved text.
func (s *Server) handleQueryGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	q, err := s.store.GetQuery(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.analyze(q.Query))
}
