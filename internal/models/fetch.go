package models

// ProviderInfo describes a provider to the orchestrator.
type ProviderInfo struct {
	Code     string
	Name     string
	External bool // an external fetch triggers the external-fetch hook
	PushOnly bool // series are pushed in by the user and never fetched
	WebPage  string
}

// TableEntry is one companion series materialised by a table fetch.
type TableEntry struct {
	Series Series
	Record *SeriesRecord
}

// FetchResult is what a provider returns for one fetch. Record is nil when the
// provider has nothing to add to the request's record. A non-nil Table means
// the provider parsed a whole source document; it is keyed by full ticker and
// may include the requested series.
type FetchResult struct {
	Series Series
	Record *SeriesRecord
	Table  map[string]TableEntry
}

// TableWasFetched reports whether companion series came back with the result.
func (r *FetchResult) TableWasFetched() bool {
	return r != nil && r.Table != nil
}
