// Package provider defines the card data sources. The only implementation
// talks to the public YGOProDeck API; the interface keeps the lookup
// pipeline testable with stubs.
package provider

import (
	"context"
	"errors"

	"github.com/fabio1shot/card-price-extractor/internal/model"
)

// ErrCardNotFound is returned by CardByID when the id is unknown.
var ErrCardNotFound = errors.New("card not found")

// CardLookup resolves a name to zero or more card records. It is the only
// capability the batch processor needs.
type CardLookup interface {
	// Lookup never fails for upstream problems: those become an empty
	// result. An error means the caller's context ended.
	Lookup(ctx context.Context, name string) ([]model.Card, error)
}

// CardProvider is the full set of card data operations.
type CardProvider interface {
	CardLookup

	// CardByID fetches a single card by its numeric id.
	CardByID(ctx context.Context, id int64) (*model.Card, error)

	// CardSets lists every released set.
	CardSets(ctx context.Context) ([]model.CardSetInfo, error)

	// DownloadImage fetches card artwork.
	DownloadImage(ctx context.Context, url string) ([]byte, error)

	// Name returns a human-readable name for the provider.
	Name() string
}

// LookupRecorder persists lookup attempts for monitoring.
type LookupRecorder interface {
	Create(ctx context.Context, call *model.LookupCall) error
}
