package resolve

import (
	"fmt"
	"log/slog"

	"github.com/raffaelramalhorosa/bear-watch/internal/ai"
	"github.com/raffaelramalhorosa/bear-watch/internal/config"
)

// NewFromConfig selects the resolver variant. The choice is made once per
// run; nothing downstream branches on it.
func NewFromConfig(cfg config.Resolver, apiKey string, logger *slog.Logger) (Resolver, error) {
	switch cfg.Type {
	case "gazetteer":
		return NewGazetteer(cfg.Gazetteer), nil
	case "geollm":
		var extractor ai.Extractor
		if apiKey == "" {
			logger.Warn("no AI credential configured, place extraction disabled")
		} else {
			var err error
			extractor, err = ai.New(cfg.AI, apiKey)
			if err != nil {
				return nil, err
			}
		}
		geocoder := NewGeocoder(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout)
		return NewGeoLLM(extractor, geocoder, cfg.Geocoder.Country, cfg.Geocoder.Delay, logger), nil
	default:
		return nil, fmt.Errorf("unknown resolver type: %q (valid: gazetteer, geollm)", cfg.Type)
	}
}
