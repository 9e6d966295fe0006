package pipeline

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"time"

	"github.com/raffaelramalhorosa/bear-watch/internal/metrics"
	"github.com/raffaelramalhorosa/bear-watch/internal/models"
	"github.com/raffaelramalhorosa/bear-watch/internal/resolve"
	"github.com/raffaelramalhorosa/bear-watch/internal/store"
)

// CandidateSource yields the feed entries worth resolving, in feed order,
// excluding links present in known.
type CandidateSource interface {
	Candidates(ctx context.Context, known map[string]struct{}) ([]models.Entry, error)
}

// Pipeline runs one ingest cycle: load the store, pull candidates, resolve
// each to a coordinate, append the successes, save. One run per invocation.
type Pipeline struct {
	store    *store.Store
	source   CandidateSource
	resolver resolve.Resolver
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New wires the pipeline together. All collaborators are constructed by the
// caller once per run and are immutable afterwards.
func New(st *store.Store, source CandidateSource, resolver resolve.Resolver, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:    st,
		source:   source,
		resolver: resolver,
		metrics:  m,
		logger:   logger,
	}
}

// Run performs one full cycle and returns the number of records added.
//
// Failure semantics: a fetch or load failure aborts the run before anything
// is written; a resolver failure for one candidate drops that candidate and
// continues. The data file is only rewritten when at least one new record
// was produced — a no-op run leaves it byte-for-byte untouched.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	started := time.Now()

	records, err := p.store.Load()
	if err != nil {
		return 0, fmt.Errorf("load store: %w", err)
	}
	index := store.Links(records)

	candidates, err := p.source.Candidates(ctx, index)
	if err != nil {
		return 0, fmt.Errorf("ingest: %w", err)
	}
	// Candidates are processed strictly one at a time, in feed order: the
	// geollm variant is rate-limited, and the index must already reflect
	// links added earlier in this same run.
	var added []models.Sighting
	for _, c := range candidates {
		if _, ok := index[c.Link]; ok {
			p.metrics.DroppedTotal.WithLabelValues(metrics.ReasonDuplicate).Inc()
			continue
		}

		loc, err := p.resolver.Resolve(ctx, c.Title)
		if err != nil {
			p.metrics.DroppedTotal.WithLabelValues(metrics.ReasonError).Inc()
			p.logger.Warn("resolver failed, dropping candidate", "title", c.Title, "error", err)
			continue
		}
		if loc == nil {
			p.metrics.DroppedTotal.WithLabelValues(metrics.ReasonMiss).Inc()
			continue
		}

		rec := models.Sighting{
			ID:       recordID(c.Link),
			Title:    c.Title,
			Location: loc.Label,
			Lat:      loc.Lat,
			Lng:      loc.Lng,
			Date:     c.Date,
			Link:     c.Link,
			Source:   c.Source,
		}
		added = append(added, rec)
		index[c.Link] = struct{}{}
		p.metrics.RecordsAdded.Inc()
		p.logger.Info("new sighting", "title", rec.Title, "location", rec.Location, "date", rec.Date)
	}

	if len(added) > 0 {
		if err := p.store.Save(append(records, added...)); err != nil {
			return 0, fmt.Errorf("save store: %w", err)
		}
	}

	p.metrics.LastRun.SetToCurrentTime()
	p.logger.Info("run complete", "new_records", len(added), "duration", time.Since(started))
	return len(added), nil
}

// recordID derives the stable identity key from the source link, so
// re-ingesting the same item always produces the same id.
func recordID(link string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(link)))
}
