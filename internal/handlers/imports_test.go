package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/pipeline"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/storage"
	"github.com/kosarica/import-service/internal/taskqueue"
	"github.com/kosarica/import-service/internal/workers"
)

const productsCSV = "Product Name,SKU,Retail Price\nVenetian Blind,VB-1,30\nVenetian Blind,VB-2,32\n"

type testServer struct {
	router *gin.Engine
	worker *workers.Worker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	sessions := session.NewMemoryRepository()
	queue := taskqueue.NewMemoryQueue()
	runner := pipeline.NewRunner(sessions, catalog.NewMemoryCatalog(), files, queue, pipeline.DefaultOptions(), &logger)

	worker := workers.New(queue, workers.WorkerConfig{WorkerID: "test", TaskTypes: taskqueue.StageTaskTypes}, &logger)
	runner.Register(worker)

	router := gin.New()
	router.GET("/health", HealthCheck(nil, func(context.Context) error { return nil }))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	RegisterImportRoutes(router.Group("/internal"), NewImportHandler(runner, sessions, &logger))
	return &testServer{router: router, worker: worker}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, name, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/internal/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(t, req)
}

func (s *testServer) drain(t *testing.T) {
	t.Helper()
	require.NoError(t, s.worker.Drain(context.Background()))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestImportLifecycle(t *testing.T) {
	srv := newTestServer(t)

	w := srv.upload(t, "blinds.csv", productsCSV, map[string]string{"userId": "user-1"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	started := decode[ImportStartedResponse](t, w)
	assert.Equal(t, session.StatusInitializing, started.Status)
	assert.Equal(t, "/internal/imports/"+started.SessionID+"/status", started.PollURL)

	srv.drain(t)

	w = srv.do(t, httptest.NewRequest(http.MethodGet, started.PollURL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	progress := decode[session.Progress](t, w)
	assert.True(t, progress.AwaitingMapping)
	assert.Equal(t, 2, progress.TotalRows)

	w = srv.do(t, httptest.NewRequest(http.MethodGet, "/internal/imports/"+started.SessionID+"/report", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	mapping := `{"mapping":{"0":"product_name","1":"variant_sku","2":"retail_price"}}`
	req := httptest.NewRequest(http.MethodPut, "/internal/imports/"+started.SessionID+"/mapping", strings.NewReader(mapping))
	req.Header.Set("Content-Type", "application/json")
	w = srv.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, session.StatusMapped, decode[session.Progress](t, w).Status)

	srv.drain(t)

	w = srv.do(t, httptest.NewRequest(http.MethodGet, "/internal/imports/"+started.SessionID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	full := decode[session.ImportSession](t, w)
	assert.Equal(t, session.StatusCompleted, full.Status)
	assert.Equal(t, 2, full.SuccessfulRows)

	w = srv.do(t, httptest.NewRequest(http.MethodGet, "/internal/imports/"+started.SessionID+"/report", nil))
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[session.Report](t, w)
	assert.Equal(t, 100.0, report.Summary.SuccessRate)
	assert.Equal(t, 2, report.DataCreated.VariantsCreated)

	w = srv.do(t, httptest.NewRequest(http.MethodGet, "/internal/imports/"+started.SessionID+"/errors.csv", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "row,message,timestamp\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="blinds-errors-`)

	w = srv.do(t, httptest.NewRequest(http.MethodPost, "/internal/imports/"+started.SessionID+"/cancel", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = srv.do(t, httptest.NewRequest(http.MethodGet, "/internal/imports?userId=user-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[ListImportsResponse](t, w)
	assert.Equal(t, 1, list.Total)

	w = srv.do(t, httptest.NewRequest(http.MethodDelete, "/internal/imports/"+started.SessionID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = srv.do(t, httptest.NewRequest(http.MethodGet, started.PollURL, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateImport_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		fields   map[string]string
		wantCode int
	}{
		{"unsupported type", "catalog.pdf", map[string]string{"userId": "u"}, http.StatusBadRequest},
		{"missing user", "a.csv", nil, http.StatusBadRequest},
		{"chunk size out of range", "a.csv", map[string]string{"userId": "u", "config": `{"chunk_size":5}`}, http.StatusBadRequest},
		{"malformed config", "a.csv", map[string]string{"userId": "u", "config": `{`}, http.StatusBadRequest},
		{"unknown mapped field", "a.csv", map[string]string{"userId": "u", "mapping": `{"0":"colour"}`}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			w := srv.upload(t, tt.file, productsCSV, tt.fields)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, w).Error)
		})
	}
}

func TestImportNotFound(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/internal/imports/missing", "/internal/imports/missing/status", "/internal/imports/missing/report"} {
		w := srv.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name     string
		database func(context.Context) error
		wantCode int
		want     HealthResponse
	}{
		{"memory stores", nil, http.StatusOK, HealthResponse{Status: "ok", Database: "not configured", Storage: "ok"}},
		{"database up", func(context.Context) error { return nil }, http.StatusOK, HealthResponse{Status: "ok", Database: "connected", Storage: "ok"}},
		{"database down", func(context.Context) error { return errors.New("refused") }, http.StatusServiceUnavailable,
			HealthResponse{Status: "degraded", Database: "disconnected", Storage: "ok"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/health", HealthCheck(tt.database, nil))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.want, decode[HealthResponse](t, w))
		})
	}
}

func TestSwaggerRouteRegistered(t *testing.T) {
	srv := newTestServer(t)
	found := false
	for _, route := range srv.router.Routes() {
		if route.Path == "/swagger/*any" && route.Method == http.MethodGet {
			found = true
		}
	}
	assert.True(t, found)
}
