package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/places-api/internal/config"
	"github.com/pkordes/places-api/internal/handler"
	"github.com/pkordes/places-api/internal/repo"
	"github.com/pkordes/places-api/internal/service"
	"github.com/pkordes/places-api/migrations"
	"github.com/pkordes/places-api/testutil"
)

func testConfig() config.Config {
	return config.Config{
		DatabaseDriver: config.DriverSQLite,
		LogLevel:       "info",
		CORSOrigins:    []string{"http://localhost:5173"},
		MaxBodyBytes:   1024,
	}
}

// newTestRouter wires the full production stack over a migrated SQLite database.
func newTestRouter(t *testing.T, logs io.Writer) http.Handler {
	t.Helper()
	cfg := testConfig()
	logger := newLogger(cfg, logs)
	places := repo.NewSQLitePlaceRepo(testutil.NewSQLiteDB(t))
	return newRouter(cfg, logger, handler.NewServer(service.NewPlaceService(places), logger))
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func send(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp apiResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestRouter_PlaceLifecycle(t *testing.T) {
	var logs bytes.Buffer
	h := newTestRouter(t, &logs)

	rec, resp := send(t, h, http.MethodPost, "/places", `{"name":"Central Park","city":"New York","state":"NY"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	var first struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &first))
	assert.Equal(t, "central-park", first.Slug)

	rec, resp = send(t, h, http.MethodPost, "/places", `{"name":"Central Park","city":"Boston","state":"MA"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var second struct {
		Slug string `json:"slug"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &second))
	assert.Equal(t, "central-park-1", second.Slug)

	rec, resp = send(t, h, http.MethodGet, "/places?city=new+york", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, first.ID, listed[0]["id"])

	rec, resp = send(t, h, http.MethodPatch, "/places/"+first.ID, `{"name":"Bryant Park","slug":""}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(resp.Data), `"slug":"bryant-park"`)

	rec, resp = send(t, h, http.MethodDelete, "/places/"+first.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Place deleted successfully", resp.Message)

	rec, resp = send(t, h, http.MethodGet, "/places/"+first.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Place not found", resp.Message)

	assert.Contains(t, logs.String(), `"path":"/places"`)
}

func TestRouter_DuplicateSuppliedSlug_500(t *testing.T) {
	h := newTestRouter(t, io.Discard)

	rec, _ := send(t, h, http.MethodPost, "/places", `{"name":"A","slug":"same","city":"c","state":"s"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := send(t, h, http.MethodPost, "/places", `{"name":"B","slug":"same","city":"c","state":"s"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(resp.Message, "Failed to create place: slug already exists"), resp.Message)
}

func TestRouter_BodyTooLarge_413(t *testing.T) {
	h := newTestRouter(t, io.Discard)

	body := `{"name":"` + strings.Repeat("x", 2048) + `"}`
	rec, resp := send(t, h, http.MethodPost, "/places", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body too large", resp.Message)
}

func TestServeHTTP_ServesUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: handler.NewServer(nil, nil).Routes()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveHTTP(ctx, srv, ln, slog.New(slog.NewJSONHandler(io.Discard, nil))) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}

func TestRunServer_AutoMigratesAndStops(t *testing.T) {
	path := useSQLiteEnv(t)
	cfg := testConfig()
	cfg.DatabaseURL = path
	cfg.Port = "0"
	cfg.AutoMigrate = true

	// The deadline stands in for a stop signal once startup has finished.
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, runServer(ctx, cfg, slog.New(slog.NewJSONHandler(io.Discard, nil))))

	db, err := repo.OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()
	provider, err := migrations.NewProvider(migrations.DriverSQLite, db)
	require.NoError(t, err)
	pending, err := provider.HasPending(context.Background())
	require.NoError(t, err)
	assert.False(t, pending)
}
