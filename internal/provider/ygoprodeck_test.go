package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fabio1shot/card-price-extractor/internal/config"
	"github.com/fabio1shot/card-price-extractor/internal/model"
	"github.com/fabio1shot/card-price-extractor/internal/notify"
)

const blueEyesJSON = `{"data":[{"id":89631139,"name":"Blue-Eyes White Dragon","type":"Normal Monster",
"card_images":[{"id":89631139,"image_url":"https://images.example/89631139.jpg"}],
"card_prices":[{"cardmarket_price":"0.10","tcgplayer_price":"0.25","ebay_price":"1.00","amazon_price":"2.00","coolstuffinc_price":"0.99"}]}]}`

type stubRecorder struct {
	mu    sync.Mutex
	calls []*model.LookupCall
}

func (s *stubRecorder) Create(_ context.Context, call *model.LookupCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return nil
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*YGOProDeckProvider, *notify.Recorder, *stubRecorder) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sink := notify.NewRecorder()
	recorder := &stubRecorder{}
	p := NewYGOProDeckProvider(config.YGOProDeckConfig{
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
		UserAgent: "card-price-extractor-test",
	}, sink, recorder, zap.NewNop())

	return p, sink, recorder
}

func TestLookup_Found(t *testing.T) {
	var gotQuery, gotPath, gotAgent string
	p, sink, recorder := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("fname")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(blueEyesJSON))
	})

	cards, err := p.Lookup(context.Background(), "  Blue-Eyes White Dragon ")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Equal(t, "Blue-Eyes White Dragon", cards[0].Name)
	require.Equal(t, "0.25", cards[0].PrimaryPrice())

	require.Equal(t, "/cardinfo.php", gotPath)
	require.Equal(t, "Blue-Eyes White Dragon", gotQuery)
	require.Equal(t, "card-price-extractor-test", gotAgent)
	require.Empty(t, sink.Notifications())

	require.Len(t, recorder.calls, 1)
	require.Equal(t, model.OutcomeFound, recorder.calls[0].Outcome)
	require.Equal(t, 1, recorder.calls[0].ResultCount)
}

func TestLookup_BlankNameSkipsNetwork(t *testing.T) {
	var hits int32
	p, _, recorder := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})

	cards, err := p.Lookup(context.Background(), "   ")
	require.NoError(t, err)
	require.Empty(t, cards)
	require.Zero(t, atomic.LoadInt32(&hits))
	require.Empty(t, recorder.calls)
}

func TestLookup_MissingDataIsEmpty(t *testing.T) {
	p, sink, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	cards, err := p.Lookup(context.Background(), "Kuriboh")
	require.NoError(t, err)
	require.Empty(t, cards)
	require.Empty(t, sink.Notifications())
}

func TestLookup_NotFound(t *testing.T) {
	for _, tc := range []struct {
		name string
		code int
		body string
	}{
		{"404", http.StatusNotFound, ``},
		{"400 no card matching", http.StatusBadRequest, `{"error":"No card matching your query was found in the database."}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, sink, recorder := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				_, _ = w.Write([]byte(tc.body))
			})

			cards, err := p.Lookup(context.Background(), "Nonexistent Card XYZ")
			require.NoError(t, err)
			require.Empty(t, cards)
			require.Equal(t, []notify.Kind{notify.KindNotFound}, sink.Kinds())
			require.Equal(t, model.OutcomeNotFound, recorder.calls[0].Outcome)
		})
	}
}

func TestLookup_ServerErrorIsEmpty(t *testing.T) {
	p, sink, recorder := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	cards, err := p.Lookup(context.Background(), "Dark Magician")
	require.NoError(t, err)
	require.Empty(t, cards)
	require.Equal(t, []notify.Kind{notify.KindLookupError}, sink.Kinds())
	require.Contains(t, sink.Notifications()[0].Message, "500")
	require.Equal(t, model.OutcomeError, recorder.calls[0].Outcome)
	require.NotNil(t, recorder.calls[0].Error)
}

func TestLookup_MalformedJSONIsEmpty(t *testing.T) {
	p, sink, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	})

	cards, err := p.Lookup(context.Background(), "Dark Magician")
	require.NoError(t, err)
	require.Empty(t, cards)
	require.Equal(t, []notify.Kind{notify.KindLookupError}, sink.Kinds())
}

func TestLookup_CancelledContextIsReturned(t *testing.T) {
	p, sink, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(blueEyesJSON))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Lookup(ctx, "Dark Magician")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, sink.Notifications())
}

func TestWithSink_RedirectsNotifications(t *testing.T) {
	p, original, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	other := notify.NewRecorder()
	_, err := p.WithSink(other).Lookup(context.Background(), "Kuriboh")
	require.NoError(t, err)
	require.Empty(t, original.Notifications())
	require.Equal(t, 1, other.Count(notify.KindNotFound))
}

func TestCardByID(t *testing.T) {
	p, _, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "89631139" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"No card matching your query was found in the database."}`))
			return
		}
		_, _ = w.Write([]byte(blueEyesJSON))
	})

	card, err := p.CardByID(context.Background(), 89631139)
	require.NoError(t, err)
	require.Equal(t, "https://images.example/89631139.jpg", card.ImageURL())

	_, err = p.CardByID(context.Background(), 1)
	require.ErrorIs(t, err, ErrCardNotFound)
}

func TestCardSets(t *testing.T) {
	p, _, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cardsets.php" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`[{"set_name":"Legend of Blue Eyes White Dragon","set_code":"LOB","num_of_cards":126,"tcg_date":"2002-03-08"}]`))
	})

	sets, err := p.CardSets(context.Background())
	require.NoError(t, err)
	require.Len(t, sets, 1)
	require.Equal(t, "LOB", sets[0].Code)
	require.Equal(t, 126, sets[0].NumOfCards)
}

func TestDownloadImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	p := NewYGOProDeckProvider(config.YGOProDeckConfig{BaseURL: server.URL}, nil, nil, zap.NewNop())

	data, err := p.DownloadImage(context.Background(), server.URL+"/card.jpg")
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg-bytes"), data)

	_, err = p.DownloadImage(context.Background(), server.URL+"/missing.jpg")
	require.Error(t, err)
}
