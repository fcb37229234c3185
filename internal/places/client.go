// Package places is a small client for the Google Maps web services the lead finder uses:
// Geocoding, Places Nearby Search and Place Details.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"leadfinder/internal/types"
)

// DefaultBaseURL is the root of the Google Maps web service endpoints.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api"

// DefaultTimeout bounds each HTTP call when no client is supplied.
const DefaultTimeout = 10 * time.Second

// DetailFields is the field mask requested from Place Details.
const DetailFields = "place_id,name,formatted_address,formatted_phone_number,website,geometry/location"

var (
	ErrMissingAPIKey    = errors.New("Google Maps API key is not set")
	ErrLocationNotFound = errors.New("location not found")
	// ErrTokenNotReady is returned when a next_page_token is used before Google activated it.
	ErrTokenNotReady = errors.New("page token not yet valid")
)

// APIError is a non-OK "status" in an otherwise successful HTTP response.
type APIError struct {
	Endpoint string
	Status   string
	Message  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Status)
}

// Client calls the Google Maps web services with a single API key.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client. The key is checked on every call, not here.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l latLng) point() types.GeoPoint {
	return types.GeoPoint{Latitude: l.Lat, Longitude: l.Lng}
}

type geometry struct {
	Location latLng `json:"location"`
}

type envelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Geocode resolves a free-text address to the first matching coordinate.
func (c *Client) Geocode(ctx context.Context, address string) (types.GeoPoint, error) {
	var resp struct {
		envelope
		Results []struct {
			Geometry geometry `json:"geometry"`
		} `json:"results"`
	}
	params := url.Values{}
	params.Set("address", address)
	if err := c.getJSON(ctx, "geocode", params, &resp); err != nil {
		return types.GeoPoint{}, err
	}
	if err := checkStatus("geocode", resp.envelope, false); err != nil {
		return types.GeoPoint{}, err
	}
	if len(resp.Results) == 0 {
		return types.GeoPoint{}, fmt.Errorf("%w: %q", ErrLocationNotFound, address)
	}
	return resp.Results[0].Geometry.Location.point(), nil
}

// NearbyQuery is one nearby-search request. PageToken continues a previous query.
type NearbyQuery struct {
	Location     types.GeoPoint
	RadiusMeters float64
	Keyword      string
	PageToken    string
}

// NearbyPage is one page of nearby-search hits.
type NearbyPage struct {
	Candidates    []types.PlaceCandidate
	NextPageToken string
}

// Nearby fetches a single page of the nearby search.
func (c *Client) Nearby(ctx context.Context, q NearbyQuery) (NearbyPage, error) {
	var resp struct {
		envelope
		NextPageToken string `json:"next_page_token"`
		Results       []struct {
			PlaceID  string   `json:"place_id"`
			Geometry geometry `json:"geometry"`
		} `json:"results"`
	}
	params := url.Values{}
	params.Set("location", q.Location.String())
	params.Set("radius", strconv.Itoa(int(math.Round(q.RadiusMeters))))
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}
	if q.PageToken != "" {
		params.Set("pagetoken", q.PageToken)
	}
	if err := c.getJSON(ctx, "place/nearbysearch", params, &resp); err != nil {
		return NearbyPage{}, err
	}
	if err := checkStatus("nearbysearch", resp.envelope, q.PageToken != ""); err != nil {
		return NearbyPage{}, err
	}

	page := NearbyPage{
		Candidates:    make([]types.PlaceCandidate, 0, len(resp.Results)),
		NextPageToken: resp.NextPageToken,
	}
	for _, r := range resp.Results {
		page.Candidates = append(page.Candidates, types.PlaceCandidate{
			PlaceID:  r.PlaceID,
			Location: r.Geometry.Location.point(),
		})
	}
	return page, nil
}

// Details fetches the contact record for one place. Absent fields come back empty and an
// absent or blank website leaves LeadRecord.Website nil.
func (c *Client) Details(ctx context.Context, placeID string) (types.LeadRecord, error) {
	var resp struct {
		envelope
		Result struct {
			PlaceID              string   `json:"place_id"`
			Name                 string   `json:"name"`
			FormattedAddress     string   `json:"formatted_address"`
			FormattedPhoneNumber string   `json:"formatted_phone_number"`
			Website              *string  `json:"website"`
			Geometry             geometry `json:"geometry"`
		} `json:"result"`
	}
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", DetailFields)
	if err := c.getJSON(ctx, "place/details", params, &resp); err != nil {
		return types.LeadRecord{}, err
	}
	if err := checkStatus("details", resp.envelope, false); err != nil {
		return types.LeadRecord{}, err
	}

	r := resp.Result
	lead := types.LeadRecord{
		PlaceID:  r.PlaceID,
		Name:     r.Name,
		Address:  r.FormattedAddress,
		Phone:    r.FormattedPhoneNumber,
		Location: r.Geometry.Location.point(),
	}
	if lead.PlaceID == "" {
		lead.PlaceID = placeID
	}
	if r.Website != nil && strings.TrimSpace(*r.Website) != "" {
		site := strings.TrimSpace(*r.Website)
		lead.Website = &site
	}
	return lead, nil
}

func checkStatus(endpoint string, env envelope, usedPageToken bool) error {
	switch env.Status {
	case "OK", "ZERO_RESULTS", "":
		return nil
	case "INVALID_REQUEST":
		if usedPageToken {
			return ErrTokenNotReady
		}
	}
	return &APIError{Endpoint: endpoint, Status: env.Status, Message: env.ErrorMessage}
}

// getJSON issues a GET against baseURL/path/json and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	c.log.Debug().Str("endpoint", path).Str("query", params.Encode()).Msg("Calling Google Maps API")

	params.Set("key", c.apiKey)
	fullURL := c.baseURL + "/" + path + "/json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call Google Maps API (%s): %w", path, redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Google Maps API error (%s, status %d): %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to parse Google Maps response (%s): %w", path, err)
	}
	return nil
}

// redactKey keeps the API key out of *url.Error messages, which embed the full URL.
func redactKey(err error, key string) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = strings.ReplaceAll(uerr.URL, key, "REDACTED")
	}
	return err
}
