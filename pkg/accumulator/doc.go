// Package accumulator drives "load more" pagination over a filtered list.
//
// An Accumulator owns the current page, the active filter and the records
// merged so far. LoadMore appends the next page; SetFilter throws the
// accumulation away and loads page 1 for the new filter.
//
// Every SetFilter or Refresh starts a new generation. The generation is
// captured when a request is issued and checked when its response arrives,
// so a slow response for an old filter can never overwrite a newer one:
//
//	acc := accumulator.New(client, character.Filter{}, logger)
//	_ = acc.LoadMore(ctx)                                    // page 1
//	go acc.LoadMore(ctx)                                     // page 2, slow
//	_ = acc.SetFilter(ctx, character.Filter{Status: "Dead"}) // page 2 above is dropped
//
// Failures leave the accumulation as it was before the call (a failed filter
// change leaves it empty) and set the state to StatusError. Nothing is
// retried here; callers retry by repeating the call. At most one LoadMore may
// be pending at a time.
package accumulator
