package detail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soldwatch/harvest-cli/internal/config"
)

func testExtractor(strategies ...Strategy) *Extractor {
	return NewExtractor(config.DetailConfig{
		TimeoutSecs: 5,
		RatePerSec:  100,
		Burst:       10,
	}, strategies...)
}

func TestExtract_PrimaryStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(initialStatePage))
	}))
	defer srv.Close()

	pf := testExtractor().Extract(context.Background(), srv.URL)
	require.NotNil(t, pf)
	require.NotNil(t, pf.Price)
	assert.Equal(t, 1250000, *pf.Price)
	require.NotNil(t, pf.Address)
	assert.Equal(t, "12 Sample Rd", *pf.Address)
}

func TestExtract_FallsBackToSecondStrategy(t *testing.T) {
	// The primary marker is present but its payload is broken, so the
	// fallback strategy should still get a chance at the page.
	page := `<script>var initialState = {not json};</script>
<script>Data.listings=[{city: 'Coburg', streetAddress: '8 Fallback Ave'}];</script>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	pf := testExtractor().Extract(context.Background(), srv.URL)
	require.NotNil(t, pf)
	assert.Nil(t, pf.Price)
	require.NotNil(t, pf.Suburb)
	assert.Equal(t, "Coburg", *pf.Suburb)
}

func TestExtract_NoStructuredData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>plain page</body></html>`))
	}))
	defer srv.Close()

	pf := testExtractor().Extract(context.Background(), srv.URL)
	assert.Nil(t, pf)
}

func TestExtract_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	pf := testExtractor().Extract(context.Background(), srv.URL)
	assert.Nil(t, pf)
}

func TestExtract_SkipsUnusableLink(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	ext := testExtractor()
	assert.Nil(t, ext.Extract(context.Background(), ""))
	assert.Nil(t, ext.Extract(context.Background(), "/relative/path"))
	assert.Zero(t, hits)
}

func TestExtract_StrategyOrder(t *testing.T) {
	// A page carrying both markers resolves with the primary strategy.
	page := listingsPage + "\n" + initialStatePage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	pf := testExtractor().Extract(context.Background(), srv.URL)
	require.NotNil(t, pf)
	require.NotNil(t, pf.Price)
	assert.Equal(t, 1250000, *pf.Price)
}
