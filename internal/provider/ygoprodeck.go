package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fabio1shot/card-price-extractor/internal/config"
	"github.com/fabio1shot/card-price-extractor/internal/model"
	"github.com/fabio1shot/card-price-extractor/internal/notify"
)

// maxImageBytes caps artwork downloads.
const maxImageBytes = 10 << 20

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API Error: %d", e.Code)
	}
	return fmt.Sprintf("API Error: %d: %s", e.Code, e.Body)
}

// NotFound reports whether the API answered "no such card". YGOProDeck uses
// 400 with an explanatory body for unmatched queries, 404 for unknown routes.
func (e *StatusError) NotFound() bool {
	if e.Code == http.StatusNotFound {
		return true
	}
	return e.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Body), "no card matching")
}

// cardResponse is the cardinfo.php envelope. A missing data array means no
// results, not an error.
type cardResponse struct {
	Data  []model.Card `json:"data"`
	Error string       `json:"error,omitempty"`
}

// YGOProDeckProvider looks cards up against db.ygoprodeck.com.
type YGOProDeckProvider struct {
	client   *resty.Client
	limiter  *rate.Limiter // nil when unlimited
	sink     notify.Sink
	recorder LookupRecorder // optional
	logger   *zap.Logger
}

// NewYGOProDeckProvider creates a provider. recorder may be nil.
func NewYGOProDeckProvider(cfg config.YGOProDeckConfig, sink notify.Sink, recorder LookupRecorder, logger *zap.Logger) *YGOProDeckProvider {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	if sink == nil {
		sink = notify.Discard
	}

	return &YGOProDeckProvider{
		client:   client,
		limiter:  limiter,
		sink:     sink,
		recorder: recorder,
		logger:   logger,
	}
}

func (p *YGOProDeckProvider) Name() string { return "ygoprodeck" }

// WithSink returns a copy reporting to sink. The HTTP client and the rate
// limiter stay shared, so the upstream limit holds across copies.
func (p *YGOProDeckProvider) WithSink(sink notify.Sink) *YGOProDeckProvider {
	cp := *p
	if sink == nil {
		sink = notify.Discard
	}
	cp.sink = sink
	return &cp
}

// Lookup searches cards by (fuzzy) name. One request per call, no retry.
// Upstream failures are reported to the sink and turned into an empty result.
func (p *YGOProDeckProvider) Lookup(ctx context.Context, name string) ([]model.Card, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []model.Card{}, nil
	}

	start := time.Now()
	cards, err := p.fetchCards(ctx, url.Values{"fname": {name}})
	duration := time.Since(start).Milliseconds()

	if err != nil {
		// Cancellation belongs to the caller and is not an upstream failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.NotFound() {
			p.sink.Notify(notify.Notification{
				Kind:    notify.KindNotFound,
				Title:   "Card not found",
				Message: "No cards match your search criteria.",
			})
			p.record(ctx, name, model.OutcomeNotFound, 0, duration, nil)
			return []model.Card{}, nil
		}

		p.logger.Warn("card lookup failed", zap.String("name", name), zap.Error(err))
		p.sink.Notify(notify.Notification{
			Kind:    notify.KindLookupError,
			Title:   "Error fetching card data",
			Message: err.Error(),
		})
		p.record(ctx, name, model.OutcomeError, 0, duration, err)
		return []model.Card{}, nil
	}

	outcome := model.OutcomeFound
	if len(cards) == 0 {
		outcome = model.OutcomeNotFound
	}
	p.record(ctx, name, outcome, len(cards), duration, nil)

	return cards, nil
}

// CardByID fetches one card. Returns ErrCardNotFound for unknown ids.
func (p *YGOProDeckProvider) CardByID(ctx context.Context, id int64) (*model.Card, error) {
	cards, err := p.fetchCards(ctx, url.Values{"id": {strconv.FormatInt(id, 10)}})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.NotFound() {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	if len(cards) == 0 {
		return nil, ErrCardNotFound
	}
	return &cards[0], nil
}

// CardSets lists the set catalogue.
func (p *YGOProDeckProvider) CardSets(ctx context.Context) ([]model.CardSetInfo, error) {
	body, err := p.get(ctx, "/cardsets.php", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching card sets: %w", err)
	}

	var sets []model.CardSetInfo
	if err := json.Unmarshal(body, &sets); err != nil {
		return nil, fmt.Errorf("decoding card sets: %w", err)
	}
	return sets, nil
}

// DownloadImage fetches artwork from an absolute URL, reading at most 10MB.
func (p *YGOProDeckProvider) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("downloading: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode(), imageURL)
	}

	data, err := io.ReadAll(io.LimitReader(body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}

func (p *YGOProDeckProvider) fetchCards(ctx context.Context, query url.Values) ([]model.Card, error) {
	body, err := p.get(ctx, "/cardinfo.php", query)
	if err != nil {
		return nil, err
	}

	var decoded cardResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding card data: %w", err)
	}
	return decoded.Data, nil
}

func (p *YGOProDeckProvider) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	req := p.client.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", path, err)
	}

	if !resp.IsSuccess() {
		return nil, &StatusError{Code: resp.StatusCode(), Body: errorMessage(resp.Body())}
	}
	return resp.Body(), nil
}

// wait blocks on the client-side rate limit.
func (p *YGOProDeckProvider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (p *YGOProDeckProvider) record(ctx context.Context, name string, outcome model.LookupOutcome, count int, durationMs int64, lookupErr error) {
	if p.recorder == nil {
		return
	}

	call := &model.LookupCall{
		Name:        name,
		Outcome:     outcome,
		ResultCount: count,
		DurationMs:  durationMs,
	}
	if lookupErr != nil {
		msg := lookupErr.Error()
		call.Error = &msg
	}

	// Recording must survive the end of a request context.
	if err := p.recorder.Create(context.WithoutCancel(ctx), call); err != nil {
		p.logger.Error("recording lookup", zap.String("name", name), zap.Error(err))
	}
}

// errorMessage extracts the "error" field of an API error body, falling back
// to the raw (truncated) body.
func errorMessage(body []byte) string {
	var decoded struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error != "" {
		return decoded.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
