// Package resolve turns a news headline into a geographic coordinate.
//
// Two interchangeable strategies exist: a static gazetteer lookup with no
// external calls, and an LLM-extraction-plus-geocoding chain. Which one runs
// is a deployment-time configuration choice; the pipeline only sees the
// Resolver interface.
package resolve

import "context"

// Location is a resolved place: a human-readable label and a coordinate.
type Location struct {
	Label string
	Lat   float64
	Lng   float64
}

// Resolver maps a headline to a location. A (nil, nil) return is a
// resolution miss — no place could be confidently identified — which is an
// expected outcome, not an error. A non-nil error is a capability failure;
// callers treat it like a miss but log it separately.
type Resolver interface {
	Resolve(ctx context.Context, title string) (*Location, error)
}
