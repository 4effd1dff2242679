// Package pagination provides parallel batch fetching of paginated character
// listings.
//
// The API reports the total page count in the info block of every page. The
// batch fetcher reads it from page 1 and then fetches the remaining pages
// concurrently, bounded by MaxConcurrency.
//
// Example usage:
//
//	config := pagination.DefaultConfig()
//	fetcher := pagination.NewBatchFetcher(apiClient, config)
//	records, err := fetcher.FetchAll(ctx, character.Filter{Status: character.StatusDead})
//
// The batch fetcher:
//   - Fetches the first page to determine total pages
//   - Fetches the remaining pages with at most MaxConcurrency in flight
//   - Returns records in page order
//   - Fails the whole fetch when any page fails, cancelling the rest
//
// Interactive, incremental loading is handled by the accumulator package;
// this package serves bulk export.
package pagination
