package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fabio1shot/card-price-extractor/internal/model"
	"github.com/fabio1shot/card-price-extractor/internal/names"
	"github.com/fabio1shot/card-price-extractor/internal/notify"
	"github.com/fabio1shot/card-price-extractor/internal/provider"
	"github.com/fabio1shot/card-price-extractor/internal/service"
)

// displaySets is how many sets a search result lists before "and N more".
const displaySets = 3

// CardHandler serves single-card search, thumbnails and the set catalogue.
type CardHandler struct {
	cardService *service.CardService
	logger      *zap.Logger
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cardService *service.CardService, logger *zap.Logger) *CardHandler {
	return &CardHandler{
		cardService: cardService,
		logger:      logger,
	}
}

// cardView is a card plus its display-ready prices and sets.
type cardView struct {
	model.Card
	Quotes   []model.Quote   `json:"quotes"`
	TopSets  []model.CardSet `json:"top_sets"`
	MoreSets int             `json:"more_sets"`
}

func newCardView(card model.Card) cardView {
	sets, more := card.TopSets(displaySets)
	return cardView{
		Card:     card,
		Quotes:   card.Quotes(),
		TopSets:  sets,
		MoreSets: more,
	}
}

// Search looks cards up by name.
// Route: GET /api/v1/cards?name=dark+magician
func (h *CardHandler) Search(c *gin.Context) {
	query := c.Query("name")

	if names.IsList(query) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "multiple names given: use POST /api/v1/batches",
		})
		return
	}

	rec := notify.NewRecorder()
	cards, err := h.cardService.Search(c.Request.Context(), query, rec)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":         err.Error(),
				"notifications": rec.Notifications(),
			})
			return
		}
		h.logger.Warn("card search aborted", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search cancelled"})
		return
	}

	views := make([]cardView, 0, len(cards))
	for _, card := range cards {
		views = append(views, newCardView(card))
	}

	c.JSON(http.StatusOK, gin.H{
		"cards":         views,
		"count":         len(views),
		"notifications": rec.Notifications(),
	})
}

// Image serves a card thumbnail.
// Route: GET /api/v1/cards/:id/image?size=m
func (h *CardHandler) Image(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return
	}

	sizeStr := c.DefaultQuery("size", string(model.ImageMedium))
	if !model.ValidImageSize(sizeStr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid size: must be s, m, or l",
		})
		return
	}

	data, err := h.cardService.Image(c.Request.Context(), id, model.ImageSize(sizeStr))
	if err != nil {
		if errors.Is(err, provider.ErrCardNotFound) || errors.Is(err, service.ErrNoImage) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card image not found"})
			return
		}
		h.logger.Warn("card image failed", zap.Int64("card_id", id), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "fetching card image failed"})
		return
	}

	// Card art never changes for a given id.
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", data)
}

// Sets lists every card set.
// Route: GET /api/v1/sets
func (h *CardHandler) Sets(c *gin.Context) {
	sets, err := h.cardService.Sets(c.Request.Context())
	if err != nil {
		h.logger.Warn("listing card sets", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "fetching card sets failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sets":  sets,
		"count": len(sets),
	})
}
