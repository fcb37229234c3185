package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"leadfinder/internal/places"
	"leadfinder/internal/types"
)

const (
	// DefaultPageDelay is how long Google needs before a next_page_token becomes valid.
	DefaultPageDelay    = 2 * time.Second
	DefaultTokenRetries = 3

	// maxPagesPerCell guards against a token loop; Google stops after 3 pages.
	maxPagesPerCell = 10
)

// FailurePolicy decides what happens when one grid cell cannot be fetched.
type FailurePolicy int

const (
	// AbortOnError fails the whole search on the first cell error.
	AbortOnError FailurePolicy = iota
	// SkipFailedCells drops the failed cell, keeps the rest and reports it as a warning.
	SkipFailedCells
)

func (p FailurePolicy) String() string {
	if p == SkipFailedCells {
		return "skip-failed-cells"
	}
	return "abort"
}

// NearbySource serves one page of a nearby search.
type NearbySource interface {
	Nearby(ctx context.Context, q places.NearbyQuery) (places.NearbyPage, error)
}

// CellError is a failed nearby search for one grid cell.
type CellError struct {
	Index  int
	Center types.GeoPoint
	Page   int
	Err    error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("grid cell %d (%s) page %d: %v", e.Index, e.Center, e.Page, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

// FetchResult is the union of every page of every cell, in cell order.
type FetchResult struct {
	Candidates []types.PlaceCandidate
	Skipped    []*CellError // only populated under SkipFailedCells
}

// Aggregator runs the per-cell paginated nearby searches.
type Aggregator struct {
	source       NearbySource
	pageDelay    time.Duration
	tokenRetries int
	workers      int
	policy       FailurePolicy
	log          zerolog.Logger
	wait         func(ctx context.Context, d time.Duration) error
}

// FetchCandidates queries every center and follows continuation tokens until each cell is
// exhausted, waiting pageDelay before each token is reused.
func (a *Aggregator) FetchCandidates(ctx context.Context, centers []types.GeoPoint, radiusMeters float64, keyword string) (FetchResult, error) {
	perCell := make([][]types.PlaceCandidate, len(centers))
	cellErrs := make([]*CellError, len(centers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.workers, 1))
	for i, center := range centers {
		g.Go(func() error {
			found, err := a.fetchCell(gctx, i, center, radiusMeters, keyword)
			if err == nil {
				perCell[i] = found
				return nil
			}
			if a.policy == SkipFailedCells && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
				a.log.Warn().Err(err).Int("cell", i).Msg("Skipping failed grid cell")
				cellErrs[i] = err
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return FetchResult{}, err
	}

	var res FetchResult
	for i := range centers {
		res.Candidates = append(res.Candidates, perCell[i]...)
		if cellErrs[i] != nil {
			res.Skipped = append(res.Skipped, cellErrs[i])
		}
	}
	return res, nil
}

func (a *Aggregator) fetchCell(ctx context.Context, idx int, center types.GeoPoint, radiusMeters float64, keyword string) ([]types.PlaceCandidate, *CellError) {
	var found []types.PlaceCandidate
	token := ""
	for page := 1; page <= maxPagesPerCell; page++ {
		q := places.NearbyQuery{Location: center, RadiusMeters: radiusMeters, Keyword: keyword, PageToken: token}
		res, err := a.nearby(ctx, q)
		if err != nil {
			return nil, &CellError{Index: idx, Center: center, Page: page, Err: err}
		}
		found = append(found, res.Candidates...)
		a.log.Debug().Int("cell", idx).Int("page", page).Int("results", len(res.Candidates)).Msg("Fetched nearby page")

		if res.NextPageToken == "" {
			return found, nil
		}
		token = res.NextPageToken
		if err := a.wait(ctx, a.pageDelay); err != nil {
			return nil, &CellError{Index: idx, Center: center, Page: page + 1, Err: err}
		}
	}
	a.log.Warn().Int("cell", idx).Int("pages", maxPagesPerCell).Msg("Stopped following page tokens")
	return found, nil
}

// nearby retries a page whose token Google has not activated yet.
func (a *Aggregator) nearby(ctx context.Context, q places.NearbyQuery) (places.NearbyPage, error) {
	for attempt := 0; ; attempt++ {
		page, err := a.source.Nearby(ctx, q)
		if errors.Is(err, places.ErrTokenNotReady) && attempt < a.tokenRetries {
			a.log.Debug().Int("attempt", attempt+1).Msg("Page token not ready, waiting")
			if werr := a.wait(ctx, a.pageDelay); werr != nil {
				return places.NearbyPage{}, werr
			}
			continue
		}
		return page, err
	}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
