package update

import (
	"context"
	"time"

	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/storage/memory"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// fakeProvider returns a scripted result and counts calls.
type fakeProvider struct {
	info   models.ProviderInfo
	result *models.FetchResult
	err    error
	calls  int
}

func (p *fakeProvider) Info() models.ProviderInfo { return p.info }

func (p *fakeProvider) Fetch(_ context.Context, rec *models.SeriesRecord) (*models.FetchResult, error) {
	p.calls++
	return p.result, p.err
}

// countingStore wraps the memory store and counts calls.
type countingStore struct {
	*memory.Store
	writes    int
	retrieves int
	automatic bool

	refreshErr error            // returned by SetLastRefresh when set
	writeErrs  map[string]error // per full ticker Write failures
}

func newCountingStore() *countingStore {
	return &countingStore{Store: memory.NewStore("")}
}

func (s *countingStore) Write(ctx context.Context, series models.Series, rec *models.SeriesRecord, overwrite bool) error {
	s.writes++
	if err := s.writeErrs[rec.FullTicker.String()]; err != nil {
		return err
	}
	return s.Store.Write(ctx, series, rec, overwrite)
}

func (s *countingStore) Retrieve(ctx context.Context, rec *models.SeriesRecord) (models.Series, error) {
	s.retrieves++
	return s.Store.Retrieve(ctx, rec)
}

func (s *countingStore) SetsLastUpdateAutomatically() bool { return s.automatic }

func (s *countingStore) SetLastRefresh(ctx context.Context, full tickers.FullTicker, ts time.Time) error {
	if s.refreshErr != nil {
		return s.refreshErr
	}
	return s.Store.SetLastRefresh(ctx, full, ts)
}

func (s *countingStore) GetMetadata(ctx context.Context, raw string) (*models.SeriesRecord, error) {
	return s.Store.GetMetadata(ctx, raw)
}

// recordingHook counts external-fetch notifications.
type recordingHook struct {
	calls int
}

func (h *recordingHook) BeforeExternalFetch(context.Context, *models.SeriesRecord) { h.calls++ }

var _ interfaces.Storage = (*countingStore)(nil)

func day(d int) time.Time {
	return time.Date(2000, 1, d, 0, 0, 0, 0, time.UTC)
}
