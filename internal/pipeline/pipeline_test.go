package pipeline_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/raffaelramalhorosa/bear-watch/internal/metrics"
	"github.com/raffaelramalhorosa/bear-watch/internal/models"
	"github.com/raffaelramalhorosa/bear-watch/internal/pipeline"
	"github.com/raffaelramalhorosa/bear-watch/internal/resolve"
	"github.com/raffaelramalhorosa/bear-watch/internal/store"
)

// fakeSource replays a fixed entry list. Like the real ingestor it filters
// out known links, unless respectKnown is false — that mode simulates a
// source whose dedup is broken, which the pipeline must still contain.
type fakeSource struct {
	entries      []models.Entry
	err          error
	respectKnown bool
}

func (f *fakeSource) Candidates(_ context.Context, known map[string]struct{}) ([]models.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Entry
	for _, e := range f.entries {
		if f.respectKnown {
			if _, ok := known[e.Link]; ok {
				continue
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// fakeResolver resolves titles from a fixed map; unmapped titles are misses
// and titles in failures return an error.
type fakeResolver struct {
	hits     map[string]resolve.Location
	failures map[string]bool
}

func (f *fakeResolver) Resolve(_ context.Context, title string) (*resolve.Location, error) {
	if f.failures[title] {
		return nil, errors.New("capability down")
	}
	if loc, ok := f.hits[title]; ok {
		return &loc, nil
	}
	return nil, nil
}

func entry(title, link, date string) models.Entry {
	return models.Entry{Title: title, Link: link, Date: date, Source: "Google News"}
}

func hit(lat, lng float64) resolve.Location {
	return resolve.Location{Label: "新聞報導地點", Lat: lat, Lng: lng}
}

func newPipeline(t *testing.T, src pipeline.CandidateSource, r resolve.Resolver) (*pipeline.Pipeline, *store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bear_data.json")
	st := store.New(path)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return pipeline.New(st, src, r, metrics.New(), logger), st, path
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return b
}

func TestRunAddsResolvedRecords(t *testing.T) {
	src := &fakeSource{
		respectKnown: true,
		entries: []models.Entry{
			entry("札幌で熊が目撃された", "https://example.com/a", "2026-08-01 09:00:00"),
			entry("秋田でクマによる被害", "https://example.com/b", "2026-08-02 09:00:00"),
		},
	}
	r := &fakeResolver{hits: map[string]resolve.Location{
		"札幌で熊が目撃された": hit(43.061771, 141.354506),
		"秋田でクマによる被害": hit(39.716667, 140.1025),
	}}
	pipe, st, _ := newPipeline(t, src, r)

	added, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 new records, got %d", added)
	}

	records, err := st.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 persisted records, got %d", len(records))
	}
	// Newest first.
	if records[0].Link != "https://example.com/b" {
		t.Fatal("records not sorted by date descending")
	}
	wantID := fmt.Sprintf("%x", md5.Sum([]byte("https://example.com/b")))
	if records[0].ID != wantID {
		t.Fatalf("id not derived from link: got %s want %s", records[0].ID, wantID)
	}
	if records[0].Lat == 0 || records[0].Lng == 0 {
		t.Fatal("persisted record missing coordinates")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	src := &fakeSource{
		respectKnown: true,
		entries: []models.Entry{
			entry("札幌で熊が目撃された", "https://example.com/a", "2026-08-01 09:00:00"),
		},
	}
	r := &fakeResolver{hits: map[string]resolve.Location{
		"札幌で熊が目撃された": hit(43.061771, 141.354506),
	}}
	pipe, _, path := newPipeline(t, src, r)

	if _, err := pipe.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	before := readFile(t, path)

	added, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if added != 0 {
		t.Fatalf("second run against an unchanged feed added %d records", added)
	}
	if !bytes.Equal(before, readFile(t, path)) {
		t.Fatal("no-op run modified the data file")
	}
}

func TestRunNoOpLeavesFileByteIdentical(t *testing.T) {
	src := &fakeSource{
		respectKnown: true,
		entries: []models.Entry{
			entry("場所のわからない熊の話", "https://example.com/x", "2026-08-01 09:00:00"),
		},
	}
	pipe, st, path := newPipeline(t, src, &fakeResolver{})

	seed := []models.Sighting{{ID: "a1", Title: "既存", Date: "2026-07-01 09:00:00", Link: "https://example.com/seed"}}
	if err := st.Save(seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	before := readFile(t, path)

	added, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if added != 0 {
		t.Fatalf("expected 0 records from an all-miss run, got %d", added)
	}
	if !bytes.Equal(before, readFile(t, path)) {
		t.Fatal("all-miss run rewrote the data file")
	}
}

func TestRunFetchFailureCommitsNothing(t *testing.T) {
	src := &fakeSource{err: errors.New("feed unreachable")}
	pipe, st, path := newPipeline(t, src, &fakeResolver{})

	seed := []models.Sighting{{ID: "a1", Date: "2026-07-01 09:00:00", Link: "https://example.com/seed"}}
	if err := st.Save(seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	before := readFile(t, path)

	if _, err := pipe.Run(context.Background()); err == nil {
		t.Fatal("expected the run to fail")
	}
	if !bytes.Equal(before, readFile(t, path)) {
		t.Fatal("failed run modified the store")
	}
}

func TestRunResolverErrorDropsOnlyThatCandidate(t *testing.T) {
	src := &fakeSource{
		respectKnown: true,
		entries: []models.Entry{
			entry("一件目のクマ", "https://example.com/a", "2026-08-01 09:00:00"),
			entry("二件目のクマ", "https://example.com/b", "2026-08-02 09:00:00"),
		},
	}
	r := &fakeResolver{
		failures: map[string]bool{"一件目のクマ": true},
		hits: map[string]resolve.Location{
			"二件目のクマ": hit(39.716667, 140.1025),
		},
	}
	pipe, st, _ := newPipeline(t, src, r)

	added, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("a per-candidate failure must not abort the run: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 record, got %d", added)
	}

	records, _ := st.Load()
	if len(records) != 1 || records[0].Link != "https://example.com/b" {
		t.Fatal("wrong record persisted")
	}
}

func TestRunSameLinkTwiceInOnePullYieldsOneRecord(t *testing.T) {
	src := &fakeSource{
		// respectKnown false: both occurrences reach the pipeline.
		entries: []models.Entry{
			entry("札幌で熊が目撃された", "https://example.com/a", "2026-08-01 09:00:00"),
			entry("札幌で熊が目撃された（続報）", "https://example.com/a", "2026-08-01 10:00:00"),
		},
	}
	r := &fakeResolver{hits: map[string]resolve.Location{
		"札幌で熊が目撃された":     hit(43.061771, 141.354506),
		"札幌で熊が目撃された（続報）": hit(43.061771, 141.354506),
	}}
	pipe, st, _ := newPipeline(t, src, r)

	added, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 record for a repeated link, got %d", added)
	}

	records, _ := st.Load()
	if len(records) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(records))
	}
}

func TestRunKeepsStoreSorted(t *testing.T) {
	src := &fakeSource{
		respectKnown: true,
		entries: []models.Entry{
			entry("新しいクマ", "https://example.com/new", "2026-08-05 09:00:00"),
			entry("古いクマ", "https://example.com/old", "2026-08-01 09:00:00"),
		},
	}
	r := &fakeResolver{hits: map[string]resolve.Location{
		"新しいクマ": hit(1, 1),
		"古いクマ":  hit(2, 2),
	}}
	pipe, st, _ := newPipeline(t, src, r)

	seed := []models.Sighting{{ID: "mid", Date: "2026-08-03 09:00:00", Link: "https://example.com/mid", Lat: 3, Lng: 3}}
	if err := st.Save(seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if _, err := pipe.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	records, _ := st.Load()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i-1].Date < records[i].Date {
			t.Fatalf("store not sorted descending at %d", i)
		}
	}
}
