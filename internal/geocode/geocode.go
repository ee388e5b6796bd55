package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	// ReverseZoom requests street-level detail on reverse lookups.
	ReverseZoom = 18
	// SearchLimit caps the number of forward-geocoding candidates.
	SearchLimit = 5
	// CountryCode restricts forward searches to Peru.
	CountryCode = "pe"

	userAgent      = "patitas/1.0"
	acceptLanguage = "es"
)

// Address is the structured address object returned by Nominatim. Every
// field is optional free text; which ones appear varies by location.
type Address struct {
	Road        string `json:"road"`
	Pedestrian  string `json:"pedestrian"`
	Footway     string `json:"footway"`
	Path        string `json:"path"`
	HouseNumber string `json:"house_number"`

	Amenity  string `json:"amenity"`
	Building string `json:"building"`
	Park     string `json:"park"`
	Leisure  string `json:"leisure"`

	Neighbourhood string `json:"neighbourhood"`
	Quarter       string `json:"quarter"`
	Residential   string `json:"residential"`
	Suburb        string `json:"suburb"`

	CityDistrict string `json:"city_district"`
	District     string `json:"district"`
	Town         string `json:"town"`
	City         string `json:"city"`
	Province     string `json:"province"`
	State        string `json:"state"`
	Region       string `json:"region"`
	Country      string `json:"country"`
}

// Place is one geocoding result.
type Place struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Address     Address `json:"address"`
}

type nominatimPlace struct {
	Lat     string  `json:"lat"`
	Lon     string  `json:"lon"`
	Display string  `json:"display_name"`
	Address Address `json:"address"`
}

// Client talks to a Nominatim-compatible geocoding service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a geocoding client for the given base URL.
// Pass DefaultBaseURL for the public instance.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Reverse resolves coordinates to a structured address.
// Returns nil (no error) if the service found nothing there.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("zoom", strconv.Itoa(ReverseZoom))
	q.Set("addressdetails", "1")
	q.Set("format", "json")

	var result nominatimPlace
	if err := c.get(ctx, "/reverse", q, &result); err != nil {
		return nil, err
	}
	if result.Lat == "" && result.Lon == "" {
		return nil, nil
	}
	return result.toPlace()
}

// Search runs a forward-geocoding query and returns ranked candidates.
// Returns an empty slice if nothing matched.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(SearchLimit))
	q.Set("addressdetails", "1")
	q.Set("countrycodes", CountryCode)
	q.Set("format", "json")

	var results []nominatimPlace
	if err := c.get(ctx, "/search", q, &results); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(results))
	for _, r := range results {
		p, err := r.toPlace()
		if err != nil {
			continue
		}
		places = append(places, *p)
	}
	return places, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode nominatim response: %w", err)
	}
	return nil
}

func (r nominatimPlace) toPlace() (*Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lat: %w", err)
	}
	lng, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lon: %w", err)
	}
	return &Place{
		DisplayName: r.Display,
		Lat:         lat,
		Lng:         lng,
		Address:     r.Address,
	}, nil
}
