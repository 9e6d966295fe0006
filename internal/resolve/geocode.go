package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Nominatim usage policy requires an identifying User-Agent and at most one
// request per second; the User-Agent is set here and the request spacing is
// enforced by the geollm resolver.

// Geocoder resolves a free-text place name to a coordinate via a
// Nominatim-compatible /search endpoint.
type Geocoder struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	client    *http.Client
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewGeocoder builds a client for the given base URL. timeout bounds each
// individual lookup.
func NewGeocoder(baseURL, userAgent string, timeout time.Duration) *Geocoder {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Geocoder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		timeout:   timeout,
		client:    &http.Client{Transport: tr},
	}
}

// Geocode looks up query and returns the best match's coordinate. ok is
// false when the service finds nothing or the lookup times out; err is
// reserved for transport and API failures.
func (g *Geocoder) Geocode(ctx context.Context, query string) (lat, lng float64, ok bool, err error) {
	lookupCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(lookupCtx, "GET", g.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, false, err
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		if lookupCtx.Err() == context.DeadlineExceeded {
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, false, fmt.Errorf("geocode API %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, false, fmt.Errorf("geocode response: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, false, nil
	}

	lat, err = strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("geocode lat %q: %w", results[0].Lat, err)
	}
	lng, err = strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("geocode lon %q: %w", results[0].Lon, err)
	}
	return lat, lng, true, nil
}
