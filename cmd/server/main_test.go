package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/Gamlio/MechineLearning-skin-cancer/internal/backend"
	"github.com/Gamlio/MechineLearning-skin-cancer/internal/backend/classifier"
	"github.com/Gamlio/MechineLearning-skin-cancer/internal/backend/database"
	"github.com/Gamlio/MechineLearning-skin-cancer/internal/core"
	"github.com/labstack/echo/v4"
)

type fixedRunner struct{}

func (fixedRunner) Run([]float32) ([]float32, error) {
	return []float32{4, 0, 0}, nil
}

// newServer builds the production middleware stack with the API routes on a
// temp SQLite file.
func newServer(t *testing.T, maxUploadSize string) *echo.Echo {
	t.Helper()

	config := &core.ServiceConfig{
		Database:         core.Database{Type: core.DatabaseTypeSQLite},
		MaxUploadSize:    maxUploadSize,
		CORSAllowOrigins: []string{"*"},
	}
	db, err := database.NewDatabase(context.Background(), "sqlite", filepath.Join(t.TempDir(), "server.db"), 0)
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	coreService := core.NewCoreService(config, db, classifier.NewClassifier(fixedRunner{}))
	t.Cleanup(func() { _ = coreService.Close() })

	e := defineServer(config)
	backend.NewAPIService(coreService, backend.NewMetrics()).SetRoutes(e)
	return e
}

func uploadRequest(t *testing.T, path string, fields map[string]string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField error: %v", err)
		}
	}
	part, err := writer.CreateFormFile("image", "lesion.png")
	if err != nil {
		t.Fatalf("CreateFormFile error: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("part write error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer close error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func lesionPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{150, 80, 50, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestDefineServer_OversizedUploadIsBadRequest(t *testing.T) {
	e := newServer(t, "1K")

	rec := serve(e, uploadRequest(t, "/api/predict", nil, make([]byte, 4096)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON error body, got %q: %v", rec.Body.String(), err)
	}
	if body["error"] == "" {
		t.Errorf("expected an error field, got %s", rec.Body.String())
	}
	if _, ok := body["message"]; ok {
		t.Errorf("unexpected message field in %s", rec.Body.String())
	}
}

func TestDefineServer_LogsPeerAddressAndAcceptsFeedback(t *testing.T) {
	e := newServer(t, "16M")
	upload := lesionPNG(t)

	req := uploadRequest(t, "/api/predict", nil, upload)
	req.RemoteAddr = "192.0.2.1:4711"
	req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.9")
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.10")
	rec := serve(e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("predict expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var prediction struct {
		LogID *int64 `json:"log_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &prediction); err != nil || prediction.LogID == nil {
		t.Fatalf("unexpected predict body %s (err=%v)", rec.Body.String(), err)
	}

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	var logs []database.RequestLog
	if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil {
		t.Fatalf("failed to decode logs %q: %v", rec.Body.String(), err)
	}
	if len(logs) != 1 || logs[0].IPAddress != "192.0.2.1" {
		t.Fatalf("expected the peer address to be logged, got %+v", logs)
	}

	rec = serve(e, uploadRequest(t, "/api/feedback",
		map[string]string{"label": "SCC", "log_id": strconv.FormatInt(*prediction.LogID, 10)}, upload))
	if rec.Code != http.StatusOK {
		t.Fatalf("feedback expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}
