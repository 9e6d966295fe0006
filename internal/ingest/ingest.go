package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/raffaelramalhorosa/bear-watch/internal/metrics"
	"github.com/raffaelramalhorosa/bear-watch/internal/models"
)

// defaultSource is used when a feed entry carries no publisher of its own.
const defaultSource = "Google News"

// Ingestor pulls entries from a single news feed and turns the ones worth
// resolving into candidates. It keeps no state between calls; every
// Candidates invocation re-fetches the feed from scratch.
type Ingestor struct {
	url      string
	keywords []string
	timeout  time.Duration
	parser   *gofeed.Parser
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New returns an Ingestor for the given feed URL. An entry becomes a
// candidate only if its title contains at least one keyword.
func New(url string, keywords []string, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		url:      url,
		keywords: keywords,
		timeout:  timeout,
		parser:   gofeed.NewParser(),
		metrics:  m,
		logger:   logger,
	}
}

// Candidates fetches the feed and returns, in feed order, every entry that
// passes the dedup and keyword filters. known holds the links already in the
// store; links repeated within the same pull are also dropped after their
// first occurrence. The dedup check runs before the keyword filter and
// before any resolver work — it is the cheapest test.
//
// A feed that fails to fetch or parse is a single ingestion-level error; a
// feed that parses with zero entries is a valid empty result.
func (g *Ingestor) Candidates(ctx context.Context, known map[string]struct{}) ([]models.Entry, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	feed, err := g.parser.ParseURLWithContext(g.url, fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", g.url, err)
	}

	seen := make(map[string]struct{})
	var candidates []models.Entry
	for _, item := range feed.Items {
		g.metrics.EntriesTotal.Inc()

		if _, ok := known[item.Link]; ok {
			g.metrics.DroppedTotal.WithLabelValues(metrics.ReasonDuplicate).Inc()
			continue
		}
		if _, ok := seen[item.Link]; ok {
			g.metrics.DroppedTotal.WithLabelValues(metrics.ReasonDuplicate).Inc()
			continue
		}
		seen[item.Link] = struct{}{}

		if !g.MatchesTopic(item.Title) {
			g.metrics.DroppedTotal.WithLabelValues(metrics.ReasonTopic).Inc()
			continue
		}

		candidates = append(candidates, models.Entry{
			Title:  item.Title,
			Link:   item.Link,
			Date:   normalizeDate(item),
			Source: sourceName(item.Title),
		})
	}

	g.logger.Debug("feed fetched", "entries", len(feed.Items), "candidates", len(candidates))
	return candidates, nil
}

// MatchesTopic reports whether title contains at least one configured
// keyword. Matching is plain substring, exact text: no stemming, no case
// folding.
func (g *Ingestor) MatchesTopic(title string) bool {
	for _, kw := range g.keywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// normalizeDate converts the entry's structured publish time into the fixed
// record format. Entries without a parseable time get the current time,
// matching how the feed parser itself treats them.
func normalizeDate(item *gofeed.Item) string {
	t := time.Now()
	if item.PublishedParsed != nil {
		t = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		t = *item.UpdatedParsed
	}
	return t.Format(models.DateLayout)
}

// sourceName extracts the publisher from a Google News style title, which
// ends in " - Publisher". Entries without that suffix fall back to the
// generic source label.
func sourceName(title string) string {
	if i := strings.LastIndex(title, " - "); i >= 0 {
		if name := strings.TrimSpace(title[i+3:]); name != "" {
			return name
		}
	}
	return defaultSource
}
