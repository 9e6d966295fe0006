package resolve

import (
	"context"
	"strings"

	"github.com/raffaelramalhorosa/bear-watch/internal/config"
)

// GazetteerLabel is the location label for every gazetteer-resolved record.
// This variant only places a record at a representative point; it does not
// recover the actual place name from the headline.
const GazetteerLabel = "新聞報導地點"

// DefaultGazetteer maps place names to the coordinates of a representative
// point. Order matters: the first name that appears anywhere in the title
// wins, so city rows must come before the prefecture that contains them.
// First-match-wins over this ordered list is the documented policy — not
// longest match — and is a known precision limitation.
var DefaultGazetteer = []config.Place{
	{Name: "札幌", Lat: 43.061771, Lng: 141.354506},
	{Name: "北海道", Lat: 43.066666, Lng: 141.35},
	{Name: "青森", Lat: 40.822222, Lng: 140.7475},
	{Name: "岩手", Lat: 39.703611, Lng: 141.156389},
	{Name: "宮城", Lat: 38.268222, Lng: 140.869417},
	{Name: "秋田", Lat: 39.716667, Lng: 140.1025},
	{Name: "山形", Lat: 38.255556, Lng: 140.339722},
	{Name: "福島", Lat: 37.760833, Lng: 140.474722},
	{Name: "長野", Lat: 36.648056, Lng: 138.194722},
	{Name: "新潟", Lat: 37.902222, Lng: 139.023611},
	{Name: "富山", Lat: 36.695278, Lng: 137.211389},
	{Name: "石川", Lat: 36.594444, Lng: 136.625556},
	{Name: "福井", Lat: 36.064722, Lng: 136.219444},
	{Name: "群馬", Lat: 36.390556, Lng: 139.060278},
	{Name: "栃木", Lat: 36.565833, Lng: 139.883611},
}

// Gazetteer resolves titles against a fixed, ordered place table. It is
// deterministic, side-effect free, and never returns an error.
type Gazetteer struct {
	places []config.Place
}

// NewGazetteer builds the static resolver. A nil or empty table falls back
// to the built-in default.
func NewGazetteer(places []config.Place) *Gazetteer {
	if len(places) == 0 {
		places = DefaultGazetteer
	}
	return &Gazetteer{places: places}
}

// Resolve scans the table in order and returns the coordinate of the first
// place name found as a substring of the title, or a miss when none match.
func (g *Gazetteer) Resolve(_ context.Context, title string) (*Location, error) {
	for _, p := range g.places {
		if strings.Contains(title, p.Name) {
			return &Location{Label: GazetteerLabel, Lat: p.Lat, Lng: p.Lng}, nil
		}
	}
	return nil, nil
}
