package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fabio1shot/card-price-extractor/internal/config"
	"github.com/fabio1shot/card-price-extractor/internal/provider"
	"github.com/fabio1shot/card-price-extractor/internal/service"
	"github.com/fabio1shot/card-price-extractor/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// upstreamCards are the only names the fake API knows.
var upstreamCards = map[string]string{
	"Blue-Eyes White Dragon": `{"id":89631139,"name":"Blue-Eyes White Dragon","card_prices":[{"tcgplayer_price":"0.25","cardmarket_price":"0.10"}],
"card_sets":[{"set_name":"LOB","set_code":"LOB-001"},{"set_name":"SDK","set_code":"SDK-001"},{"set_name":"DDS","set_code":"DDS-001"},{"set_name":"MVP1","set_code":"MVP1-001"}]}`,
	"Dark Magician": `{"id":46986414,"name":"Dark Magician","card_prices":[{"cardmarket_price":"0.40"}]}`,
}

type testEnv struct {
	router     *gin.Engine
	batchRepo  storage.BatchRepository
	lookupRepo storage.LookupRepository
	lookups    *atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	var lookups atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cardinfo.php":
			lookups.Add(1)
			card, ok := upstreamCards[r.URL.Query().Get("fname")]
			if !ok {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":"No card matching your query was found in the database."}`)
				return
			}
			fmt.Fprintf(w, `{"data":[%s]}`, card)
		case "/cardsets.php":
			fmt.Fprint(w, `[{"set_name":"Metal Raiders","set_code":"MRD","num_of_cards":144}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("creating database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fs, err := storage.NewFileSystem(filepath.Join(t.TempDir(), "images"))
	if err != nil {
		t.Fatalf("creating filesystem: %v", err)
	}

	batchRepo := storage.NewBatchRepository(db)
	lookupRepo := storage.NewLookupRepository(db)
	logger := zap.NewNop()

	p := provider.NewYGOProDeckProvider(config.YGOProDeckConfig{
		BaseURL: upstream.URL,
		Timeout: 5 * time.Second,
	}, nil, lookupRepo, logger)

	cardService := service.NewCardService(p, batchRepo, fs, service.NewImageProcessor(fs), service.BatchOptions{
		LookupTimeout:    time.Second,
		NotifyEvery:      5,
		ConfirmThreshold: 3,
	}, nil, logger)

	cards := NewCardHandler(cardService, logger)
	batches := NewBatchHandler(cardService, batchRepo, 1024, logger)
	admin := NewAdminHandler(batchRepo, lookupRepo, logger)

	router := gin.New()
	router.GET("/cards", cards.Search)
	router.GET("/cards/:id/image", cards.Image)
	router.GET("/sets", cards.Sets)
	router.POST("/batches", batches.Create)
	router.POST("/batches/upload", batches.Upload)
	router.POST("/batches/stream", batches.Stream)
	router.GET("/batches", batches.List)
	router.GET("/batches/:id", batches.Get)
	router.GET("/batches/:id/download", batches.Download)
	router.GET("/admin/stats", admin.Stats)

	return &testEnv{
		router:     router,
		batchRepo:  batchRepo,
		lookupRepo: lookupRepo,
		lookups:    &lookups,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) upload(t *testing.T, filename, contentType, content string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("creating part: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/batches/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return out
}
