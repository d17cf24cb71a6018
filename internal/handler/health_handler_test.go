package handler

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fabio1shot/card-price-extractor/internal/storage"
)

func TestHealthz(t *testing.T) {
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatalf("creating database: %v", err)
	}

	router := gin.New()
	router.GET("/healthz", NewHealthHandler(storage.NewBatchRepository(db), zap.NewNop()).Healthz)

	type health struct {
		Status  string `json:"status"`
		Storage string `json:"storage"`
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode[health](t, w); got.Status != "ok" || got.Storage != "ok" {
		t.Errorf("unexpected body %+v", got)
	}

	db.Close()

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with storage closed, got %d", w.Code)
	}
	if got := decode[health](t, w); got.Status != "degraded" || got.Storage != "unavailable" {
		t.Errorf("unexpected body %+v", got)
	}
}
