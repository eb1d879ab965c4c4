package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soldwatch/harvest-cli/internal/config"
	"github.com/soldwatch/harvest-cli/internal/detail"
	"github.com/soldwatch/harvest-cli/internal/model"
	"github.com/soldwatch/harvest-cli/internal/store"
)

type mockSource struct {
	listings []model.RawListing
	err      error
}

func (m *mockSource) Listings(ctx context.Context) ([]model.RawListing, error) {
	return m.listings, m.err
}

type mockExtractor struct {
	mu     sync.Mutex
	calls  []string
	fields map[string]*model.PartialFields
}

func (m *mockExtractor) Extract(ctx context.Context, link string) *model.PartialFields {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, link)
	return m.fields[link]
}

type mockSaver struct {
	mu    sync.Mutex
	sales []model.Property
	runs  []string
	err   error
}

func (m *mockSaver) UpsertSale(ctx context.Context, p model.Property) (store.UpsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sales = append(m.sales, p)
	return store.OutcomeInserted, nil
}

func (m *mockSaver) CreateHarvestRun(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, id)
	return nil
}

func (m *mockSaver) CompleteHarvestRun(ctx context.Context, id, status string, summary any) error {
	return nil
}

func soldDate() time.Time {
	return time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
}

func TestRun_ClassifiesAndStores(t *testing.T) {
	src := &mockSource{listings: []model.RawListing{
		{Address: "12 Sample Rd", Price: 1250000, SoldDate: soldDate(), Link: "https://a", Result: "Sold"},
		{Address: "3 Quiet St", SoldDate: soldDate(), Link: "https://b", Result: "Passed in"},
		{Address: "8 Fallback Ave", Price: 900000, SoldDate: soldDate(), Link: "https://c", Result: "Sold prior"},
	}}
	ext := &mockExtractor{fields: map[string]*model.PartialFields{}}
	saver := &mockSaver{}

	p := New(config.PipelineConfig{MaxInFlight: 2}, src, ext, saver)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Sold)
	assert.Equal(t, 1, summary.Unsold)
	assert.Equal(t, 2, summary.Stored)
	assert.Equal(t, 0, summary.Failed)
	assert.InDelta(t, 66.7, summary.SoldPercent(), 0.05)

	// Unsold listings never reach the extractor or the store.
	assert.ElementsMatch(t, []string{"https://a", "https://c"}, ext.calls)
	assert.Len(t, saver.sales, 2)
	assert.Len(t, saver.runs, 1)
}

func TestRun_MergesDetailFields(t *testing.T) {
	suburb := "Brunswick"
	beds := 3
	src := &mockSource{listings: []model.RawListing{
		{Address: "12 Sample Rd", Price: 1250000, SoldDate: soldDate(), Link: "https://a", Result: "Sold"},
	}}
	ext := &mockExtractor{fields: map[string]*model.PartialFields{
		"https://a": {Suburb: &suburb, Bedrooms: &beds},
	}}
	saver := &mockSaver{}

	_, err := New(config.PipelineConfig{}, src, ext, saver).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, saver.sales, 1)
	got := saver.sales[0]
	assert.Equal(t, "Brunswick", got.Suburb)
	assert.Equal(t, 3, got.Bedrooms)
	// The results-page price survives a detail page without one.
	assert.Equal(t, 1250000, got.Price)
}

func TestRun_RoutesMissingPricesAwayFromStore(t *testing.T) {
	src := &mockSource{listings: []model.RawListing{
		{Address: "4 Mystery Ln", SoldDate: soldDate(), Link: "https://a", Result: "Sold"},
	}}
	ext := &mockExtractor{fields: map[string]*model.PartialFields{}}
	saver := &mockSaver{}

	summary, err := New(config.PipelineConfig{}, src, ext, saver).Run(context.Background())
	require.NoError(t, err)

	// A sale whose price never turned up is counted but not persisted.
	assert.Equal(t, 1, summary.Sold)
	assert.Equal(t, 1, summary.NoPrice)
	assert.Equal(t, 0, summary.Stored)
	assert.Empty(t, saver.sales)
}

func TestRun_CountsStoreFailures(t *testing.T) {
	src := &mockSource{listings: []model.RawListing{
		{Address: "12 Sample Rd", Price: 1250000, SoldDate: soldDate(), Result: "Sold"},
	}}
	saver := &mockSaver{err: eris.New("boom")}

	summary, err := New(config.PipelineConfig{}, src, &mockExtractor{}, saver).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Stored)
}

func TestRun_SourceFailureAborts(t *testing.T) {
	src := &mockSource{err: eris.New("browser crashed")}

	_, err := New(config.PipelineConfig{}, src, &mockExtractor{}, &mockSaver{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch listings")
}

func TestRun_DryRunSkipsStore(t *testing.T) {
	src := &mockSource{listings: []model.RawListing{
		{Address: "12 Sample Rd", Price: 1250000, SoldDate: soldDate(), Result: "Sold"},
	}}
	saver := &mockSaver{}

	summary, err := New(config.PipelineConfig{}, src, &mockExtractor{}, saver,
		WithDryRun(true)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sold)
	assert.Equal(t, 0, summary.Stored)
	assert.Empty(t, saver.sales)
	assert.Empty(t, saver.runs)
}

const detailPage = `<script>
var initialState = {"pageData":{"data":{
	"price":{"display":"$750,000"},
	"address":{"streetAddress":"1 Example St","locality":"Preston"},
	"dateSold":{"value":"2024-03-02"},
	"features":{"general":{"bedrooms":2,"bathrooms":1,"parkingSpaces":1}},
	"propertyType":"unit"
}}};
</script>`

func TestRun_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(detailPage))
	}))
	defer srv.Close()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(context.Background()))

	src := &mockSource{listings: []model.RawListing{
		{Address: "1 Example St", SoldDate: soldDate(), Link: srv.URL, Result: "Sold prior to auction"},
		{Address: "9 Unsold Ct", SoldDate: soldDate(), Result: "Passed in"},
	}}
	ext := detail.NewExtractor(config.DetailConfig{TimeoutSecs: 5, RatePerSec: 100, Burst: 10})

	summary, err := New(config.PipelineConfig{MaxInFlight: 2}, src, ext, st).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Stored)
	assert.Equal(t, 0, summary.NoPrice)

	sales, err := st.ListSales(context.Background(), store.SaleFilter{})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	got := sales[0]
	assert.Equal(t, "1 Example St", got.Address)
	assert.Equal(t, "Preston", got.Suburb)
	assert.Equal(t, 750000, got.Price)
	assert.Equal(t, 2, got.Bedrooms)
	assert.Equal(t, "unit", got.PropertyType)
	assert.Equal(t, "2024-03-02", got.SoldDateKey())

	runs, err := st.ListHarvestRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
}
