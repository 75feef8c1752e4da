package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateCode(t *testing.T) {
	tests := map[string]string{
		"California":           "CA",
		"ca":                   "CA",
		" New York ":           "NY",
		"District of Columbia": "DC",
		"Ontario":              "",
		"":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, StateCode(in), in)
	}
}

func TestLocalStandardize(t *testing.T) {
	got, err := Local{}.Standardize(context.Background(), "  123 Main St  ste 200, Irvine, CA 92618, USA")
	require.NoError(t, err)
	assert.Equal(t, "123 Main St, Ste 200, Irvine, CA 92618", got)

	_, err = Local{}.Standardize(context.Background(), " ")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestNewProviders(t *testing.T) {
	s, err := New(Options{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Local{}, s)

	s, err = New(Options{Provider: "Nominatim"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Nominatim{}, s)

	_, err = New(Options{Provider: "smarty"}, nil)
	assert.Error(t, err)
}

const irvineResponse = `[{
	"display_name": "123, Main Street, Irvine, Orange County, California, 92618, United States",
	"address": {"house_number": "123", "road": "Main Street", "city": "Irvine",
		"state": "California", "postcode": "92618", "country_code": "us"}
}]`

func newTestNominatim(t *testing.T, handler http.HandlerFunc) *Nominatim {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	n := NewNominatim(Options{BaseURL: srv.URL, RequestsPerSecond: 1000}, nil)
	n.backoff = time.Millisecond
	return n
}

func TestNominatimStandardizeKeepsUnit(t *testing.T) {
	var calls atomic.Int32
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "us", r.URL.Query().Get("countrycodes"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(irvineResponse))
	})

	got, err := n.Standardize(context.Background(), "123 main st, suite 200, irvine, CA 92618")
	require.NoError(t, err)
	assert.Equal(t, "123 Main Street, Suite 200, Irvine, CA 92618", got)

	_, err = n.Standardize(context.Background(), "123  MAIN st, suite 200, irvine, CA 92618")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second lookup is cached")
}

func TestNominatimNoResult(t *testing.T) {
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := n.Standardize(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestNominatimRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(irvineResponse))
	})
	got, err := n.Standardize(context.Background(), "123 Main St, Irvine, CA 92618")
	require.NoError(t, err)
	assert.Equal(t, "123 Main Street, Irvine, CA 92618", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNominatimForbiddenIsUnavailable(t *testing.T) {
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := n.Standardize(context.Background(), "123 Main St, Irvine, CA 92618")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestNominatimHonoursContext(t *testing.T) {
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	n.backoff = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := n.Standardize(ctx, "123 Main St, Irvine, CA 92618")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
