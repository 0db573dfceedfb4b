package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "sqlviz/internal/db/dialects"
	"sqlviz/internal/store"
	"sqlviz/pkg/config"
)

func setupTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s := New(Config{TimeoutSec: 5, Store: st})
	return s, s.Routes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type wireParse struct {
	Result struct {
		QueryType string `json:"queryType"`
		Error     string `json:"error"`
		Tables    []struct {
			Name string `json:"name"`
		} `json:"tables"`
	} `json:"result"`
	Graph struct {
		Nodes []map[string]any `json:"nodes"`
		Edges []map[string]any `json:"edges"`
	} `json:"graph"`
}

func TestParse(t *testing.T) {
	_, h := setupTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/parse", map[string]string{
		"sql": "SELECT u.name, o.total FROM users u JOIN orders o ON u.id = o.user_id",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var got wireParse
	decodeBody(t, rec, &got)
	assert.Equal(t, "SELECT", got.Result.QueryType)
	assert.Empty(t, got.Result.Error)
	require.Len(t, got.Result.Tables, 2)
	assert.Len(t, got.Graph.Nodes, 3)
	assert.Equal(t, "joinEdge", got.Graph.Edges[0]["type"])
}

func TestParse_Diagnostics(t *testing.T) {
	_, h := setupTestServer(t)

	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"empty", "   ", "Empty SQL query"},
		{"missing from", "SELECT a, b", "Could not find FROM clause"},
		{"bad insert", "INSERT INTO t VALUES 1", "Invalid INSERT query format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/parse", map[string]string{"sql": tt.sql})
			require.Equal(t, http.StatusOK, rec.Code)
			var got wireParse
			decodeBody(t, rec, &got)
			assert.Equal(t, tt.want, got.Result.Error)
		})
	}
}

func TestParse_BadJSON(t *testing.T) {
	_, h := setupTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/parse", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBind(t *testing.T) {
	_, h := setupTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/bind", map[string]any{
		"query":     "DELETE FROM t WHERE id = {{ id }};",
		"rows":      []map[string]any{{"ID": 1}, {"ID": 2}},
		"variables": []map[string]any{{"field": "ID", "value": "id"}},
		"minify":    true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]string
	decodeBody(t, rec, &got)
	assert.Equal(t, "DELETE FROM t WHERE id = 1; DELETE FROM t WHERE id = 2;", got["sql"])
}

func TestBind_Validation(t *testing.T) {
	_, h := setupTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/bind", map[string]any{"query": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/bind", map[string]any{
		"query":     "SELECT 1",
		"variables": []map[string]any{{"field": "", "value": "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueries_Lifecycle(t *testing.T) {
	_, h := setupTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/queries", map[string]string{
		"title": "orders", "query": "SELECT o.id FROM orders o",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created store.Query
	decodeBody(t, rec, &created)
	assert.Equal(t, int64(1), created.ID)

	rec = do(t, h, http.MethodPut, "/api/queries/1", map[string]string{
		"title": "orders", "query": "INSERT INTO orders (id, total) VALUES (1, 9.5)", "description": "seed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/queries/1/graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var graphed wireParse
	decodeBody(t, rec, &graphed)
	assert.Equal(t, "INSERT", graphed.Result.QueryType)
	assert.Len(t, graphed.Graph.Edges, 1)

	rec = do(t, h, http.MethodDelete, "/api/queries/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var list []store.Query
	rec = do(t, h, http.MethodGet, "/api/queries", nil)
	decodeBody(t, rec, &list)
	assert.Empty(t, list)

	rec = do(t, h, http.MethodGet, "/api/queries?trashed=true", nil)
	decodeBody(t, rec, &list)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].DeletedAt)

	rec = do(t, h, http.MethodPost, "/api/queries/1/restore", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/queries/1", nil)
	var restored store.Query
	decodeBody(t, rec, &restored)
	assert.Nil(t, restored.DeletedAt)
	assert.Equal(t, "seed", restored.Description)
}

func TestQueries_Errors(t *testing.T) {
	_, h := setupTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing title", http.MethodPost, "/api/queries", map[string]string{"query": "SELECT 1"}, http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/api/queries/99", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/queries/abc", nil, http.StatusBadRequest},
		{"delete unknown", http.MethodDelete, "/api/queries/99", nil, http.StatusNotFound},
		{"graph unknown", http.MethodGet, "/api/queries/99/graph", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestConnect_SQLite(t *testing.T) {
	s, h := setupTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/connect", config.DBConfig{Type: "sqlite3", DSN: ":memory:"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got connectResponse
	decodeBody(t, rec, &got)
	assert.True(t, got.OK)
	assert.Equal(t, "sqlite", got.Server.Driver)
	assert.NotEmpty(t, got.Server.Version)
	assert.Equal(t, "sqlite3", s.getActive().Type)

	rec = do(t, h, http.MethodGet, "/api/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/schema/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var latest map[string]any
	decodeBody(t, rec, &latest)
	assert.Equal(t, "sqlite", latest["driver"])
}

func TestConnect_Failures(t *testing.T) {
	_, h := setupTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/connect", config.DBConfig{Host: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "type is required")

	rec = do(t, h, http.MethodPost, "/api/connect", config.DBConfig{Type: "db2", Host: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unsupported type")

	rec = do(t, h, http.MethodGet, "/api/schema", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no active connection")
}

func TestLatestSchema_Empty(t *testing.T) {
	_, h := setupTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/schema/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestConnection_SaveAndGet(t *testing.T) {
	s, h := setupTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/connection", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cfg := config.DBConfig{Type: "mariadb", Host: "db", Port: 3306, Username: "app", Password: "secret", DatabaseName: "shop"}
	rec = do(t, h, http.MethodPut, "/api/connection", cfg)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, cfg, s.getActive())

	rec = do(t, h, http.MethodGet, "/api/connection", nil)
	var got config.DBConfig
	decodeBody(t, rec, &got)
	assert.Equal(t, "mysql", got.Type)
	assert.Equal(t, "****", got.Password)
	assert.Equal(t, "shop", got.DatabaseName)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>sqlviz</h1>"), 0o600))

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	h := New(Config{Store: st, WebDir: dir}).Routes()
	rec := do(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sqlviz")
}
