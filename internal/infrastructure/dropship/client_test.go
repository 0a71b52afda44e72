package dropship

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplysync/backend/internal/domain/supplier"
)

func noBackoff(int) time.Duration { return 0 }

func newTestClient(maxRetries int, dailyCap int64) *Client {
	budget := NewBudget(BudgetConfig{Provider: "cj", Identity: "test", DailyCap: dailyCap}, nil, nil)
	return NewClient(ClientConfig{
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
		Backoff:    noBackoff,
	}, budget)
}

// ---------------------------------------------------------------------------
// Success paths
// ---------------------------------------------------------------------------

func TestClient_Get_EncodesParams(t *testing.T) {
	var gotQuery url.Values
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotHeader = r.Header.Get("CJ-Access-Token")
		_, _ = w.Write([]byte(`{"code":200,"data":{"total":12}}`))
	}))
	defer srv.Close()

	c := newTestClient(3, 100)
	resp, err := c.Get(context.Background(), srv.URL+"/product/list", map[string]string{"CJ-Access-Token": "tok"},
		url.Values{"pageNum": {"2"}, "pageSize": {"10"}})
	require.NoError(t, err)

	assert.Equal(t, "2", gotQuery.Get("pageNum"))
	assert.Equal(t, "10", gotQuery.Get("pageSize"))
	assert.Equal(t, "tok", gotHeader)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data, ok := resp.Object()["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("12"), data["total"])
	assert.Equal(t, int64(1), c.RequestCount())
}

func TestClient_Post_SendsJSON(t *testing.T) {
	var body map[string]any
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(3, 100)
	_, err := c.Post(context.Background(), srv.URL, nil, map[string]any{"email": "ops@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "ops@example.com", body["email"])
}

func TestClient_EmptyBodyIsNotAnError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(3, 100)
	resp, err := c.Get(context.Background(), srv.URL, nil, nil)
	require.NoError(t, err)

	assert.Nil(t, resp.Payload())
	assert.Empty(t, resp.Object())
	assert.Equal(t, int32(1), hits.Load())
}

// ---------------------------------------------------------------------------
// Retry and classification
// ---------------------------------------------------------------------------

func TestClient_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
			return
		}
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := newTestClient(3, 100)
	_, err := c.Get(context.Background(), srv.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, int64(3), c.RequestCount())
}

func TestClient_ExhaustedRetriesReturnHTTPError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer srv.Close()

	c := newTestClient(2, 100)
	_, err := c.Get(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Equal(t, `500 Internal Server Error :: {"message":"boom"}`, err.Error())
	assert.True(t, errors.Is(err, supplier.ErrTransientHTTP))
}

func TestClient_MalformedJSONIsRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"data":`))
	}))
	defer srv.Close()

	c := newTestClient(3, 100)
	_, err := c.Get(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, supplier.ErrTransientHTTP))
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_RateLimitIsNotRetried(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "http 429", status: http.StatusTooManyRequests, payload: ``},
		{name: "vendor code 1600200", status: http.StatusOK, payload: `{"code":1600200,"message":"Too Many Requests"}`},
		{name: "vendor code as string", status: http.StatusOK, payload: `{"code":"1600201"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			c := newTestClient(3, 100)
			_, err := c.Get(context.Background(), srv.URL, nil, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, supplier.ErrRateLimited))
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestClient_ConnectionFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := newTestClient(2, 100)
	_, err := c.Get(context.Background(), addr, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, supplier.ErrTransientHTTP))
	assert.Equal(t, int64(2), c.RequestCount())
}

// ---------------------------------------------------------------------------
// Budget
// ---------------------------------------------------------------------------

func TestClient_EveryAttemptIsCharged(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	// cap 2 with 3 retries: the third attempt hits the cap
	c := newTestClient(3, 2)
	_, err := c.Get(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, supplier.ErrRateLimited))
	assert.True(t, strings.Contains(err.Error(), "internal daily cap reached (2)"))
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(3, 100)
	_, err := c.Get(ctx, srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLinearBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, LinearBackoff(1))
	assert.Equal(t, 1500*time.Millisecond, LinearBackoff(3))
}
