package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fabio1shot/card-price-extractor/internal/model"
	"github.com/fabio1shot/card-price-extractor/internal/names"
	"github.com/fabio1shot/card-price-extractor/internal/notify"
	"github.com/fabio1shot/card-price-extractor/internal/report"
	"github.com/fabio1shot/card-price-extractor/internal/service"
	"github.com/fabio1shot/card-price-extractor/internal/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// BatchHandler runs batch lookups and serves their stored reports.
type BatchHandler struct {
	cardService *service.CardService
	batchRepo   storage.BatchRepository
	maxUpload   int64
	sink        notify.Sink
	logger      *zap.Logger
}

// NewBatchHandler creates a new BatchHandler. maxUpload caps the size of
// uploaded name files in bytes.
func NewBatchHandler(cardService *service.CardService, batchRepo storage.BatchRepository, maxUpload int64, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		cardService: cardService,
		batchRepo:   batchRepo,
		maxUpload:   maxUpload,
		sink:        notify.NewLogger(logger),
		logger:      logger,
	}
}

// batchRequest accepts names either as free text ("a, b") or as a list.
type batchRequest struct {
	Names json.RawMessage `json:"names"`
}

func (r batchRequest) list() ([]string, error) {
	if len(r.Names) == 0 || string(r.Names) == "null" {
		return []string{}, nil
	}

	var text string
	if err := json.Unmarshal(r.Names, &text); err == nil {
		return names.SplitList(text), nil
	}

	var list []string
	if err := json.Unmarshal(r.Names, &list); err != nil {
		return nil, errors.New(`"names" must be a string or an array of strings`)
	}
	return names.Clean(list), nil
}

// Create runs a batch from a JSON body and answers with the report, or with
// the JSON export as an attachment when download=true.
// Route: POST /api/v1/batches?confirm=true&download=true
func (h *BatchHandler) Create(c *gin.Context) {
	list, ok := h.bindNames(c)
	if !ok {
		return
	}
	h.run(c, model.SourceText, list)
}

// Upload runs a batch from a CSV file with one card name per line.
// Route: POST /api/v1/batches/upload (multipart field "file")
func (h *BatchHandler) Upload(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	if err := names.ValidateUpload(fileHeader.Filename, fileHeader.Header.Get("Content-Type")); err != nil {
		n := notify.Notification{
			Kind:    notify.KindFileFormatError,
			Title:   "Invalid file format",
			Message: "Please upload a CSV file",
		}
		h.sink.Notify(n)
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error":         err.Error(),
			"notifications": []notify.Notification{n},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	list, err := names.ReadLines(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.run(c, model.SourceFile, list)
}

// Stream runs a batch and reports progress as server-sent events:
// "progress" and "notification" while running, then one "report".
// Route: POST /api/v1/batches/stream
func (h *BatchHandler) Stream(c *gin.Context) {
	list, ok := h.bindNames(c)
	if !ok {
		return
	}
	if len(list) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrNoNames.Error()})
		return
	}
	if !h.confirmed(c, len(list)) {
		return
	}

	ctx := c.Request.Context()
	events := make(chan notify.Event, 16)
	done := make(chan *model.Report, 1)

	go func() {
		run, _ := h.cardService.RunBatch(ctx, model.SourceText, list, notify.Channel(events))
		close(events)
		done <- run
	}()

	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			c.SSEvent("report", <-done)
			return false
		}
		if ev.Progress != nil {
			c.SSEvent(ev.Name(), ev.Progress)
		} else {
			c.SSEvent(ev.Name(), ev.Notification)
		}
		return true
	})

	// The client may have gone away mid-run. The run stops with the request
	// context but still needs its channel drained.
	for range events {
	}
}

// List returns the most recent batch runs without their entries.
// Route: GET /api/v1/batches?limit=20
func (h *BatchHandler) List(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := h.batchRepo.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("listing batches", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batches": runs,
		"count":   len(runs),
	})
}

// Get returns one stored report with its entries.
// Route: GET /api/v1/batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	run, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, run)
}

// Download returns a stored report as the JSON export file.
// Route: GET /api/v1/batches/:id/download
func (h *BatchHandler) Download(c *gin.Context) {
	run, ok := h.load(c)
	if !ok {
		return
	}
	h.sendArtifact(c, run, h.sink)
}

func (h *BatchHandler) bindNames(c *gin.Context) ([]string, bool) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, false
	}

	list, err := req.list()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return list, true
}

// confirmed answers 409 when a large batch was sent without confirm=true.
func (h *BatchHandler) confirmed(c *gin.Context, count int) bool {
	if !h.cardService.NeedsConfirmation(count) || queryBool(c, "confirm") {
		return true
	}

	c.JSON(http.StatusConflict, gin.H{
		"error":   "confirmation required",
		"count":   count,
		"message": fmt.Sprintf("You are about to process %d cards. Retry with confirm=true to continue.", count),
	})
	return false
}

func (h *BatchHandler) run(c *gin.Context, source model.RunSource, list []string) {
	if len(list) > 0 && !h.confirmed(c, len(list)) {
		return
	}

	rec := notify.NewRecorder()
	run, err := h.cardService.RunBatch(c.Request.Context(), source, list, rec)
	if errors.Is(err, service.ErrNoNames) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         err.Error(),
			"notifications": rec.Notifications(),
		})
		return
	}

	if queryBool(c, "download") {
		h.sendArtifact(c, run, notify.Multi(h.sink, rec))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report":        run,
		"notifications": rec.Notifications(),
	})
}

func (h *BatchHandler) load(c *gin.Context) (*model.Report, bool) {
	run, err := h.batchRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return nil, false
		}
		h.logger.Error("loading batch", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}
	return run, true
}

func (h *BatchHandler) sendArtifact(c *gin.Context, run *model.Report, sink notify.Sink) {
	artifact, err := report.NewExporter(sink).Export(run)
	if err != nil {
		h.logger.Error("exporting batch", zap.String("id", run.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, artifact.Filename))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}
