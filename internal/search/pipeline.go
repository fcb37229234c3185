// Package search runs a lead search end to end: geocode the center, tile the circle into grid
// cells, page through a nearby search per cell, dedupe and clip the union back to the circle,
// fetch contact details and drop excluded businesses.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"leadfinder/internal/exclusion"
	"leadfinder/internal/geo"
	"leadfinder/internal/types"
)

// State is a step of a search run.
type State int

const (
	Idle State = iota
	Geocoding
	Searching
	Deduplicating
	Enriching
	Filtering
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Geocoding:
		return "geocoding"
	case Searching:
		return "searching"
	case Deduplicating:
		return "deduplicating"
	case Enriching:
		return "enriching"
	case Filtering:
		return "filtering"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrAllCellsFailed means every grid cell failed under SkipFailedCells, so there is nothing
// partial to return.
var ErrAllCellsFailed = errors.New("every grid cell failed")

// Geocoder resolves the center address.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.GeoPoint, error)
}

// RunError is a search that ended in Failed. State is the step that failed.
type RunError struct {
	RunID string
	State State
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("search %s failed while %s: %v", e.RunID, e.State, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Result is a completed search.
type Result struct {
	RunID           string
	Request         types.SearchRequest
	Center          types.GeoPoint
	Cells           []types.GeoPoint
	Candidates      int // raw hits across all pages, before dedupe
	Unique          int // after dedupe and circle filter
	Excluded        int // dropped by the exclusion rules
	OutsideBoundary int
	Leads           []types.LeadRecord
	Skipped         []*CellError
	Elapsed         time.Duration
}

// Pipeline wires the stages together. It holds no per-run state and may be reused.
type Pipeline struct {
	geocoder Geocoder
	nearby   NearbySource
	details  DetailSource

	pageDelay     time.Duration
	tokenRetries  int
	cellWorkers   int
	detailWorkers int
	policy        FailurePolicy
	boundary      *geo.Boundary
	onState       func(State)
	log           zerolog.Logger
	wait          func(ctx context.Context, d time.Duration) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithPageDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.pageDelay = d }
}

func WithTokenRetries(n int) Option {
	return func(p *Pipeline) { p.tokenRetries = n }
}

// WithCellWorkers sets how many grid cells are fetched at once. 1 keeps the search sequential.
func WithCellWorkers(n int) Option {
	return func(p *Pipeline) { p.cellWorkers = n }
}

func WithDetailWorkers(n int) Option {
	return func(p *Pipeline) { p.detailWorkers = n }
}

func WithFailurePolicy(policy FailurePolicy) Option {
	return func(p *Pipeline) { p.policy = policy }
}

// WithBoundary keeps only leads inside b, applied after the exclusion rules.
func WithBoundary(b *geo.Boundary) Option {
	return func(p *Pipeline) { p.boundary = b }
}

// WithStateHook is called on every state transition, including Failed.
func WithStateHook(fn func(State)) Option {
	return func(p *Pipeline) { p.onState = fn }
}

func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// NewPipeline builds a pipeline over the three Places endpoints.
func NewPipeline(geocoder Geocoder, nearby NearbySource, details DetailSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		geocoder:      geocoder,
		nearby:        nearby,
		details:       details,
		pageDelay:     DefaultPageDelay,
		tokenRetries:  DefaultTokenRetries,
		cellWorkers:   1,
		detailWorkers: DefaultDetailWorkers,
		policy:        AbortOnError,
		log:           zerolog.Nop(),
		wait:          sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries the state of one invocation.
type run struct {
	p     *Pipeline
	id    string
	state State
	log   zerolog.Logger
}

func (r *run) enter(s State) {
	r.state = s
	r.log.Debug().Stringer("state", s).Msg("Search state changed")
	if r.p.onState != nil {
		r.p.onState(s)
	}
}

func (r *run) fail(err error) error {
	failedIn := r.state
	r.log.Error().Err(err).Stringer("state", failedIn).Msg("Search failed")
	r.enter(Failed)
	return &RunError{RunID: r.id, State: failedIn, Err: err}
}

// Run executes one search. Either every stage completes and the leads are returned, or the run
// fails with a *RunError and no leads. Under SkipFailedCells, failed cells are listed in
// Result.Skipped instead of failing the run.
func (p *Pipeline) Run(ctx context.Context, req types.SearchRequest, rules exclusion.Rules) (*Result, error) {
	start := time.Now()
	r := &run{p: p, id: uuid.NewString(), state: Idle}
	r.log = p.log.With().Str("run_id", r.id).Logger()
	res := &Result{RunID: r.id, Request: req}

	if err := req.Validate(); err != nil {
		return nil, r.fail(err)
	}

	r.enter(Geocoding)
	center, err := p.geocoder.Geocode(ctx, req.CenterAddress)
	if err != nil {
		return nil, r.fail(err)
	}
	res.Center = center
	r.log.Info().Str("address", req.CenterAddress).Stringer("center", center).Msg("Geocoded center")

	r.enter(Searching)
	res.Cells = geo.GridCenters(center, req.RadiusMeters, req.GridDivisions)
	cellRadius := geo.CellRadius(req.RadiusMeters, req.GridDivisions)
	agg := &Aggregator{
		source:       p.nearby,
		pageDelay:    p.pageDelay,
		tokenRetries: p.tokenRetries,
		workers:      p.cellWorkers,
		policy:       p.policy,
		log:          r.log,
		wait:         p.wait,
	}
	fetched, err := agg.FetchCandidates(ctx, res.Cells, cellRadius, req.Keyword)
	if err != nil {
		return nil, r.fail(err)
	}
	if len(res.Cells) > 0 && len(fetched.Skipped) == len(res.Cells) {
		return nil, r.fail(fmt.Errorf("%w (%d cells): %w", ErrAllCellsFailed, len(res.Cells), fetched.Skipped[0]))
	}
	res.Candidates = len(fetched.Candidates)
	res.Skipped = fetched.Skipped
	r.log.Info().Int("cells", len(res.Cells)).Float64("cell_radius_m", cellRadius).
		Int("candidates", res.Candidates).Int("skipped_cells", len(res.Skipped)).Msg("Nearby search complete")

	r.enter(Deduplicating)
	unique := DedupeAndFilter(fetched.Candidates, center, req.RadiusMeters)
	res.Unique = len(unique)

	r.enter(Enriching)
	enricher := &Enricher{source: p.details, workers: p.detailWorkers, log: r.log}
	leads, err := enricher.EnrichDetails(ctx, unique)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(Filtering)
	kept := exclusion.FilterLeads(leads, rules)
	res.Excluded = len(leads) - len(kept)
	if r.log.GetLevel() <= zerolog.DebugLevel {
		for _, l := range leads {
			reason := exclusion.Explain(l.Name, exclusion.ExtractDomain(l.WebsiteURL()), rules)
			if reason != exclusion.NotExcluded {
				r.log.Debug().Str("place_id", l.PlaceID).Str("name", l.Name).Stringer("reason", reason).Msg("Excluded lead")
			}
		}
	}
	if p.boundary != nil {
		inside := make([]types.LeadRecord, 0, len(kept))
		for _, l := range kept {
			if p.boundary.Contains(l.Location) {
				inside = append(inside, l)
			}
		}
		res.OutsideBoundary = len(kept) - len(inside)
		kept = inside
	}
	res.Leads = kept

	r.enter(Ready)
	res.Elapsed = time.Since(start)
	r.log.Info().Int("unique", res.Unique).Int("excluded", res.Excluded).
		Int("outside_boundary", res.OutsideBoundary).Int("leads", len(res.Leads)).
		Dur("elapsed", res.Elapsed).Msg("Search ready")
	return res, nil
}
