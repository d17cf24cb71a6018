package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fabio1shot/card-price-extractor/internal/model"
	"github.com/fabio1shot/card-price-extractor/internal/notify"
	"github.com/fabio1shot/card-price-extractor/internal/provider"
	"github.com/fabio1shot/card-price-extractor/internal/storage"
)

var (
	// ErrEmptyQuery is returned by Search for a blank query.
	ErrEmptyQuery = errors.New("please enter a card name")
	// ErrNoNames is returned by RunBatch when no usable names were given.
	ErrNoNames = errors.New("no valid card names provided")
	// ErrNoImage is returned when a card has no artwork to thumbnail.
	ErrNoImage = errors.New("card has no image")
)

// CardService is the entry point for everything the CLI and the HTTP API do:
// single-card search, batch runs with optional history, and thumbnails.
type CardService struct {
	provider  *provider.YGOProDeckProvider
	batchRepo storage.BatchRepository // nil disables batch history
	fs        *storage.FileSystem
	processor *ImageProcessor
	opts      BatchOptions
	sink      notify.Sink
	logger    *zap.Logger
}

// NewCardService wires the service. sink receives every notification in
// addition to the per-call sinks, typically a notify.Logger.
func NewCardService(
	p *provider.YGOProDeckProvider,
	batchRepo storage.BatchRepository,
	fs *storage.FileSystem,
	processor *ImageProcessor,
	opts BatchOptions,
	sink notify.Sink,
	logger *zap.Logger,
) *CardService {
	return &CardService{
		provider:  p,
		batchRepo: batchRepo,
		fs:        fs,
		processor: processor,
		opts:      opts,
		sink:      sink,
		logger:    logger,
	}
}

// Search looks up cards whose name contains query.
func (s *CardService) Search(ctx context.Context, query string, sink notify.Sink) ([]model.Card, error) {
	sink = notify.Multi(s.sink, sink)

	query = strings.TrimSpace(query)
	if query == "" {
		sink.Notify(notify.Notification{
			Kind:    notify.KindValidationError,
			Title:   "Error",
			Message: "Please enter a card name",
		})
		return nil, ErrEmptyQuery
	}

	cards, err := s.provider.WithSink(sink).Lookup(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(cards) == 0 {
		sink.Notify(notify.Notification{
			Kind:    notify.KindNotFound,
			Title:   "No results found",
			Message: "Try a different card name",
		})
	}
	return cards, nil
}

// Sets returns the card set catalogue.
func (s *CardService) Sets(ctx context.Context) ([]model.CardSetInfo, error) {
	return s.provider.CardSets(ctx)
}

// NeedsConfirmation reports whether a batch of n names needs user consent.
func (s *CardService) NeedsConfirmation(n int) bool {
	return s.batchProcessor(nil).NeedsConfirmation(n)
}

// RunBatch prices names and stores the resulting report. A cancelled run
// is still stored with what it managed to process. Names that are empty
// produce an empty report together with ErrNoNames.
func (s *CardService) RunBatch(ctx context.Context, source model.RunSource, names []string, sink notify.Sink) (*model.Report, error) {
	report := s.batchProcessor(sink).Run(ctx, names)
	report.Source = source

	if report.Status == model.RunEmpty {
		return report, ErrNoNames
	}

	if s.batchRepo != nil {
		// The run may have been cancelled; its partial report is still kept.
		if err := s.batchRepo.Create(context.WithoutCancel(ctx), report); err != nil {
			s.logger.Error("storing batch report", zap.String("run_id", report.ID), zap.Error(err))
		}
	}

	return report, nil
}

func (s *CardService) batchProcessor(sink notify.Sink) *BatchProcessor {
	sink = notify.Multi(s.sink, sink)
	return NewBatchProcessor(s.provider.WithSink(sink), sink, s.opts, s.logger)
}

// Image returns a PNG thumbnail of the card. Cached sizes are served from
// disk; on a miss the artwork is downloaded, every size is generated and
// the requested one is returned.
func (s *CardService) Image(ctx context.Context, cardID int64, size model.ImageSize) ([]byte, error) {
	data, err := s.fs.Read(cardID, size)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("reading cached image", zap.Int64("card_id", cardID), zap.Error(err))
	}

	s.logger.Info("cache miss, fetching card image", zap.Int64("card_id", cardID))

	card, err := s.provider.CardByID(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("fetching card %d: %w", cardID, err)
	}

	imageURL := card.ImageURL()
	if imageURL == "" {
		return nil, ErrNoImage
	}

	art, err := s.provider.DownloadImage(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("downloading image for %d: %w", cardID, err)
	}

	sizes, err := s.processor.ProcessAll(cardID, art)
	if err != nil {
		s.logger.Warn("processing card image",
			zap.Int64("card_id", cardID),
			zap.Error(err),
		)
		if !sizes[size] {
			return nil, fmt.Errorf("processing image for %d: %w", cardID, err)
		}
	}

	return s.fs.Read(cardID, size)
}
