package search

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"leadfinder/internal/types"
)

// DefaultDetailWorkers bounds concurrent Place Details calls.
const DefaultDetailWorkers = 4

// DetailSource returns the contact record for a place.
type DetailSource interface {
	Details(ctx context.Context, placeID string) (types.LeadRecord, error)
}

// Enricher turns candidates into leads by fetching their details.
type Enricher struct {
	source  DetailSource
	workers int
	log     zerolog.Logger
}

// EnrichDetails fetches details for every candidate. Output order matches input order. The
// first failure cancels the outstanding fetches and is returned.
func (e *Enricher) EnrichDetails(ctx context.Context, candidates []types.PlaceCandidate) ([]types.LeadRecord, error) {
	leads := make([]types.LeadRecord, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.workers, 1))
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lead, err := e.source.Details(gctx, c.PlaceID)
			if err != nil {
				return fmt.Errorf("fetch details for %s: %w", c.PlaceID, err)
			}
			if lead.PlaceID == "" {
				lead.PlaceID = c.PlaceID
			}
			if lead.Location == (types.GeoPoint{}) {
				lead.Location = c.Location
			}
			leads[i] = lead
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.log.Debug().Int("leads", len(leads)).Msg("Fetched place details")
	return leads, nil
}
