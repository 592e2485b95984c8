package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/equipsync/internal/domain/integration"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:            baseURL,
		ListPath:           "/items",
		APIKey:             "secret",
		PageSize:           2,
		MinRequestInterval: time.Millisecond,
		MaxAttempts:        3,
		RateLimitBackoff:   5 * time.Millisecond,
		RetryBackoff:       time.Millisecond,
		MaxRetryWait:       50 * time.Millisecond,
		MaxPages:           10,
		Timeout:            2 * time.Second,
	}
}

type statusCounter struct {
	mu       sync.Mutex
	statuses []int
}

func (s *statusCounter) ObserveFeedRequest(_ context.Context, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid config", config: Config{BaseURL: "https://feed.example.com", APIKey: "k"}},
		{name: "missing api key", config: Config{BaseURL: "https://feed.example.com"}, wantErr: true},
		{name: "blank api key", config: Config{BaseURL: "https://feed.example.com", APIKey: "  "}, wantErr: true},
		{name: "missing base url", config: Config{APIKey: "k"}, wantErr: true},
		{name: "relative base url", config: Config{BaseURL: "feed.example.com", APIKey: "k"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, integration.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultListPath, tt.config.ListPath)
			assert.Equal(t, DefaultPageSize, tt.config.PageSize)
			assert.Equal(t, DefaultMinRequestInterval, tt.config.MinRequestInterval)
			assert.Equal(t, DefaultMaxAttempts, tt.config.MaxAttempts)
			assert.Equal(t, DefaultMaxPages, tt.config.MaxPages)
		})
	}
}

func TestConfig_ListURL(t *testing.T) {
	c := Config{BaseURL: "https://feed.example.com/", ListPath: "/v1/items"}
	assert.Equal(t, "https://feed.example.com/v1/items", c.listURL())
}

// ---------------------------------------------------------------------------
// FetchAll Tests
// ---------------------------------------------------------------------------

func TestClient_FetchAll_MissingKeyMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.APIKey = ""

	_, err := NewClient(cfg, zap.NewNop()).FetchAll(context.Background(), integration.FeedQuery{})

	assert.ErrorIs(t, err, integration.ErrConfiguration)
	assert.Zero(t, hits.Load())
}

func TestClient_FetchAll_Paginates(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()

		assert.Equal(t, "/items", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("cursor") {
		case "":
			fmt.Fprint(w, `{"items":[{"id":1,"name":"A"},{"id":2,"name":"B"}],"next_cursor":"c2","has_more":true}`)
		case "c2":
			fmt.Fprint(w, `{"data":[{"id":"3","name":"C"}],"pagination":{"nextCursor":"c3"}}`)
		case "c3":
			fmt.Fprint(w, `{"results":[],"cursor":"c4"}`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))
	defer server.Close()

	items, err := NewClient(testConfig(server.URL), zap.NewNop()).
		FetchAll(context.Background(), integration.FeedQuery{LocationIDs: []string{"WH1", "WH2"}})

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "1", items[0].ExternalID)
	assert.Equal(t, "3", items[2].ExternalID)

	require.Len(t, queries, 3, "empty page stops pagination")
	for _, q := range queries {
		assert.Contains(t, q, "location_id=WH1")
		assert.Contains(t, q, "location_id=WH2")
	}
}

func TestClient_FetchAll_StopsWithoutCursor(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `[{"id":"1","name":"Only"}]`)
	}))
	defer server.Close()

	items, err := NewClient(testConfig(server.URL), zap.NewNop()).FetchAll(context.Background(), integration.FeedQuery{})

	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_FetchAll_StopsWhenHasMoreFalse(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"items":[{"id":"1","name":"A"}],"cursor":"next","hasMore":false}`)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL), zap.NewNop()).FetchAll(context.Background(), integration.FeedQuery{})

	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_FetchAll_EnforcesRateFloor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cursor") {
		case "":
			fmt.Fprint(w, `{"items":[{"id":"1","name":"A"}],"cursor":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"items":[{"id":"2","name":"B"}],"cursor":"p3"}`)
		default:
			fmt.Fprint(w, `{"items":[]}`)
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MinRequestInterval = 40 * time.Millisecond

	start := time.Now()
	_, err := NewClient(cfg, zap.NewNop()).FetchAll(context.Background(), integration.FeedQuery{})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond, "three requests need two intervals")
}

func TestClient_FetchAll_RetriesRateLimitWithHint(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[{"id":"1","name":"A"}]`)
	}))
	defer server.Close()

	observer := &statusCounter{}
	items, err := NewClient(testConfig(server.URL), zap.NewNop(), WithRequestObserver(observer)).
		FetchAll(context.Background(), integration.FeedQuery{})

	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(2), hits.Load(), "same page retried")
	assert.Equal(t, []int{429, 200}, observer.statuses)
}

func TestClient_FetchAll_PersistentRateLimit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	items, err := NewClient(testConfig(server.URL), zap.NewNop()).FetchAll(context.Background(), integration.FeedQuery{})

	assert.Nil(t, items)
	assert.ErrorIs(t, err, integration.ErrRateLimitExceeded)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_FetchAll_ServerErrorsExhaustRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL), zap.NewNop()).FetchAll(context.Background(), integration.FeedQuery{})

	assert.ErrorIs(t, err, integration.ErrFeedUnavailable)
	assert.NotErrorIs(t, err, integration.ErrRateLimitExceeded)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_FetchAll_NoPartialListingOnLaterPageFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			fmt.Fprint(w, `{"items":[{"id":"1","name":"A"}],"cursor":"p2"}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	items, err := NewClient(testConfig(server.URL), zap.NewNop()).FetchAll(context.Background(), integration.FeedQuery{})

	assert.ErrorIs(t, err, integration.ErrFeedUnavailable)
	assert.Nil(t, items)
}

func TestClient_FetchAll_PageCap(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		fmt.Fprintf(w, `{"items":[{"id":"%d","name":"x"}],"cursor":"c%d"}`, n, n)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxPages = 4

	_, err := NewClient(cfg, zap.NewNop()).FetchAll(context.Background(), integration.FeedQuery{})

	assert.ErrorIs(t, err, integration.ErrInvalidFeedResponse)
	assert.Equal(t, int32(4), hits.Load())
}

func TestClient_FetchAll_RepeatedCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"id":"1","name":"x"}],"cursor":"same"}`)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL), zap.NewNop()).FetchAll(context.Background(), integration.FeedQuery{})

	assert.ErrorIs(t, err, ErrPaginationLoop)
	assert.ErrorIs(t, err, integration.ErrInvalidFeedResponse)
}

func TestClient_FetchAll_UnknownEnvelope(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"records":[{"id":"1"}]}`)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL), zap.NewNop()).FetchAll(context.Background(), integration.FeedQuery{})

	assert.ErrorIs(t, err, integration.ErrInvalidFeedResponse)
	assert.Equal(t, int32(1), hits.Load(), "a decode failure is not retried")
}

func TestClient_FetchAll_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(testConfig(server.URL), zap.NewNop()).FetchAll(ctx, integration.FeedQuery{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, integration.ErrFeedUnavailable)
}

// ---------------------------------------------------------------------------
// Reset hint Tests
// ---------------------------------------------------------------------------

func TestResetHint(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		header     map[string]string
		wantWait   time.Duration
		wantHinted bool
	}{
		{name: "none", header: nil},
		{name: "retry-after seconds", header: map[string]string{"Retry-After": "7"}, wantWait: 7 * time.Second, wantHinted: true},
		{
			name:       "retry-after http date",
			header:     map[string]string{"Retry-After": now.Add(30 * time.Second).Format(http.TimeFormat)},
			wantWait:   30 * time.Second,
			wantHinted: true,
		},
		{
			name:       "reset epoch",
			header:     map[string]string{"X-RateLimit-Reset": fmt.Sprintf("%d", now.Add(12*time.Second).Unix())},
			wantWait:   12 * time.Second,
			wantHinted: true,
		},
		{name: "reset delta", header: map[string]string{"X-RateLimit-Reset": "1.5"}, wantWait: 1500 * time.Millisecond, wantHinted: true},
		{
			name:       "epoch in the past",
			header:     map[string]string{"X-RateLimit-Reset": fmt.Sprintf("%d", now.Add(-time.Minute).Unix())},
			wantWait:   0,
			wantHinted: true,
		},
		{name: "garbage", header: map[string]string{"Retry-After": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.header {
				h.Set(k, v)
			}
			wait, hinted := resetHint(h, now)
			assert.Equal(t, tt.wantHinted, hinted)
			assert.Equal(t, tt.wantWait, wait)
		})
	}
}

// ---------------------------------------------------------------------------
// Envelope Tests
// ---------------------------------------------------------------------------

func TestDecodePage_Shapes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantShape  string
		wantItems  int
		wantCursor string
	}{
		{name: "bare array", body: `[{"id":"1","name":"A"}]`, wantShape: "array", wantItems: 1},
		{name: "items key", body: `{"items":[{"id":"1","name":"A"}],"next_cursor":"n"}`, wantShape: "items", wantItems: 1, wantCursor: "n"},
		{name: "data key", body: `{"data":[{"id":"1"},{"id":"2"}]}`, wantShape: "data", wantItems: 2},
		{name: "results key", body: `{"results":[]}`, wantShape: "results"},
		{name: "inventory key", body: `{"inventory":[{"id":"1"}],"nextCursor":42}`, wantShape: "inventory", wantItems: 1, wantCursor: "42"},
		{
			name:      "nested data items",
			body:      `{"data":{"items":[{"id":"1"}],"cursor":"x"}}`,
			wantShape: "data.items", wantItems: 1, wantCursor: "x",
		},
		{name: "null items", body: `{"items":null}`, wantShape: "items"},
		{name: "items precede data", body: `{"data":[{"id":"9"}],"items":[]}`, wantShape: "items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := decodePage([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantShape, p.Shape)
			assert.Len(t, p.Items, tt.wantItems)
			assert.Equal(t, tt.wantCursor, p.NextCursor)
		})
	}
}

func TestDecodePage_Rejects(t *testing.T) {
	for _, body := range []string{``, `"text"`, `{"items":"nope"}`, `{"rows":[]}`, `<html>`} {
		_, err := decodePage([]byte(body))
		assert.ErrorIs(t, err, integration.ErrInvalidFeedResponse, body)
	}
}

func TestDecodeItem(t *testing.T) {
	t.Run("full item", func(t *testing.T) {
		p, err := decodePage([]byte(`[{
			"id": 77,
			"name": "Tripod",
			"barcode": "0042",
			"memo": "carbon",
			"photo_url": "https://img/t.jpg",
			"unit_of_measure": "EA",
			"sku": "TRI-1",
			"attributes": {"Unit_Price": "$12.50", "weight": 1.25},
			"locations": [
				{"location_id": "A", "quantity": 2},
				{"location_id": 5, "quantity": "3.5"},
				{"location_id": "C", "quantity": null}
			]
		}]`))
		require.NoError(t, err)
		require.Len(t, p.Items, 1)

		item := p.Items[0]
		require.NoError(t, item.DecodeErr)
		assert.Equal(t, "77", item.ExternalID)
		assert.Equal(t, "Tripod", item.Name)
		assert.Equal(t, "0042", item.Barcode)
		assert.Equal(t, "carbon", item.Memo)
		assert.Equal(t, "https://img/t.jpg", item.PhotoURL)
		assert.Equal(t, "EA", item.UnitOfMeasure)
		assert.Equal(t, "TRI-1", item.Attributes["sku"])
		assert.Equal(t, "$12.50", item.Attributes["Unit_Price"])
		require.Len(t, item.Quantities, 3)
		assert.Equal(t, "5", item.Quantities[1].LocationID)
		assert.True(t, item.TotalQuantity().Equal(decimal.RequireFromString("5.5")))
	})

	t.Run("no location list", func(t *testing.T) {
		p, err := decodePage([]byte(`[{"id":"1","name":"A"}]`))
		require.NoError(t, err)
		assert.Nil(t, p.Items[0].Quantities)
		assert.True(t, p.Items[0].TotalQuantity().IsZero())
	})

	t.Run("malformed items keep the page", func(t *testing.T) {
		p, err := decodePage([]byte(`[
			"just a string",
			{"name":"no id"},
			{"id":"3","name":"bad qty","locations":[{"location_id":"A","quantity":"lots"}]},
			{"id":"4","name":"ok"}
		]`))
		require.NoError(t, err)
		require.Len(t, p.Items, 4)
		assert.Error(t, p.Items[0].DecodeErr)
		assert.Error(t, p.Items[1].DecodeErr)
		assert.Error(t, p.Items[2].DecodeErr)
		assert.Equal(t, "3", p.Items[2].ExternalID)
		assert.True(t, strings.Contains(p.Items[2].DecodeErr.Error(), "quantity"))
		assert.NoError(t, p.Items[3].DecodeErr)
	})
}
