package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/raffaelramalhorosa/bear-watch/internal/ai"
)

// GeoLLM resolves titles in two steps: an LLM extracts a place name from
// the headline, then a geocoder turns that name into a coordinate. Each
// candidate costs at most one extraction call and one geocoding call.
type GeoLLM struct {
	extractor ai.Extractor // nil when no credential is configured
	geocoder  *Geocoder
	country   string
	delay     time.Duration
	lastCall  time.Time
	logger    *slog.Logger
}

// NewGeoLLM builds the extraction-plus-geocoding resolver. extractor may be
// nil, in which case every title resolves to a miss; the run still completes.
// delay is the minimum gap between successive geocoding calls, honoring the
// geocoding service's usage policy.
func NewGeoLLM(extractor ai.Extractor, geocoder *Geocoder, country string, delay time.Duration, logger *slog.Logger) *GeoLLM {
	return &GeoLLM{
		extractor: extractor,
		geocoder:  geocoder,
		country:   country,
		delay:     delay,
		logger:    logger,
	}
}

// Resolve extracts a place name from the title and geocodes it with the
// country qualifier appended. Extraction returning the no-place sentinel, a
// geocoder timeout, and a geocoder empty result are all misses; only
// capability failures surface as errors.
func (r *GeoLLM) Resolve(ctx context.Context, title string) (*Location, error) {
	if r.extractor == nil {
		return nil, nil
	}

	place, err := r.extractor.ExtractPlace(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("extract place: %w", err)
	}
	place = cleanLabel(place)
	if place == "" {
		return nil, nil
	}

	r.throttle(ctx)
	lat, lng, ok, err := r.geocoder.Geocode(ctx, place+", "+r.country)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", place, err)
	}
	if !ok {
		r.logger.Debug("geocoder found no match", "place", place)
		return nil, nil
	}

	return &Location{Label: place, Lat: lat, Lng: lng}, nil
}

// throttle blocks until at least delay has passed since the previous
// geocoding call. The pipeline is strictly sequential, so plain fields
// suffice; there is no concurrent access.
func (r *GeoLLM) throttle(ctx context.Context) {
	if !r.lastCall.IsZero() {
		if wait := r.delay - time.Since(r.lastCall); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
			}
		}
	}
	r.lastCall = time.Now()
}

// labelCutset is the punctuation stripped from extracted place names, on
// top of all control characters.
const labelCutset = "「」『』【】()（）<>《》\"'、。,.?!？！"

// cleanLabel removes control characters and stray punctuation from an
// extracted place name.
func cleanLabel(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(labelCutset, r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
