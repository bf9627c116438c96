package enrich_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"closetpicks/internal/dataset"
	"closetpicks/internal/enrich"
	"closetpicks/internal/metrics"
	"closetpicks/internal/services"
	"closetpicks/internal/services/llm"
	"closetpicks/internal/services/tmdb"
	"closetpicks/internal/store"
)

type memCheckpoint struct {
	mu      sync.Mutex
	entries dataset.Checkpoint
}

func newMemCheckpoint() *memCheckpoint {
	return &memCheckpoint{entries: dataset.Checkpoint{}}
}

func (m *memCheckpoint) Load() (dataset.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(dataset.Checkpoint, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

func (m *memCheckpoint) Update(key string, entry dataset.CheckpointEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry
	return nil
}

func (m *memCheckpoint) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

type fakeMetadata struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string]*enrich.Metadata
	errs    map[string][]error
}

func (f *fakeMetadata) Lookup(_ context.Context, q enrich.MetadataQuery) (*enrich.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[q.Title]++
	if queue := f.errs[q.Title]; len(queue) > 0 {
		err := queue[0]
		if len(queue) > 1 {
			f.errs[q.Title] = queue[1:]
		}
		if err != nil {
			return nil, err
		}
	}
	return f.results[q.Title], nil
}

func (f *fakeMetadata) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeExtractor struct {
	mu       sync.Mutex
	requests []llm.ExtractRequest
	respond  func(req llm.ExtractRequest) ([]llm.Excerpt, error)
}

func (f *fakeExtractor) Extract(_ context.Context, req llm.ExtractRequest) ([]llm.Excerpt, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeExtractor) titles() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, req := range f.requests {
		var titles []string
		for _, target := range req.Targets {
			titles = append(titles, target.Title)
		}
		out = append(out, titles)
	}
	return out
}

type mapTranscripts map[string][]llm.Segment

func (m mapTranscripts) Transcript(videoID string) ([]llm.Segment, error) {
	segments, ok := m[videoID]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "test", "transcript", videoID, nil)
	}
	return segments, nil
}

func excerptsFor(confidence map[string]string, quote string, start int) func(llm.ExtractRequest) ([]llm.Excerpt, error) {
	return func(req llm.ExtractRequest) ([]llm.Excerpt, error) {
		var out []llm.Excerpt
		for _, target := range req.Targets {
			c, ok := confidence[target.Title]
			if !ok {
				continue
			}
			out = append(out, llm.Excerpt{Title: target.Title, StartSeconds: start, Quote: quote, Confidence: c})
		}
		return out, nil
	}
}

func catalogDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Catalog: []dataset.CatalogEntry{
			{FilmID: "weekend-1967", Title: "Weekend", Year: dataset.IntPtr(1967), Director: "Godard (curated)"},
			{FilmID: "stalker-1979", Title: "Stalker", Year: dataset.IntPtr(1979)},
			{FilmID: "the-apu-trilogy", Title: "The Apu Trilogy", IsBoxSet: true},
			{FilmID: "ratcatcher-1999", Title: "Ratcatcher", TMDBID: 77},
		},
	}
}

func newEnricher(t *testing.T, deps enrich.Dependencies, opts enrich.Options) *enrich.Enricher {
	t.Helper()
	if deps.Checkpoint == nil {
		deps.Checkpoint = newMemCheckpoint()
	}
	e, err := enrich.New(deps, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func TestNewRequiresCheckpoint(t *testing.T) {
	if _, err := enrich.New(enrich.Dependencies{}, enrich.Options{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestMetadataPassFillsEntries(t *testing.T) {
	ds := catalogDataset()
	source := &fakeMetadata{results: map[string]*enrich.Metadata{
		"Weekend": {TMDBID: 11, IMDBID: "tt0062480", PosterURL: "https://img/w.jpg", Genres: []string{"Comedy"}, Director: "Jean-Luc Godard", Country: "France"},
	}}
	cp := newMemCheckpoint()
	e := newEnricher(t, enrich.Dependencies{Metadata: source, Checkpoint: cp}, enrich.Options{Workers: 2})

	report, err := e.MetadataPass(context.Background(), ds)
	if err != nil {
		t.Fatalf("MetadataPass failed: %v", err)
	}
	weekend := ds.CatalogEntry("weekend-1967")
	if weekend.TMDBID != 11 || weekend.IMDBID != "tt0062480" || weekend.Country != "France" {
		t.Fatalf("weekend not enriched: %+v", weekend)
	}
	if weekend.Director != "Godard (curated)" {
		t.Fatalf("curated director overwritten: %q", weekend.Director)
	}
	if report.Enriched != 1 || report.NoEnrichment != 1 || report.Skipped != 1 || report.Considered != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if source.calls["The Apu Trilogy"] != 0 || source.calls["Ratcatcher"] != 0 {
		t.Fatalf("collections and enriched entries must be skipped: %v", source.calls)
	}
	if !cp.has("weekend-1967_metadata") || !cp.has("stalker-1979_metadata") {
		t.Fatalf("checkpoint missing keys: %v", cp.entries)
	}

	report, err = e.MetadataPass(context.Background(), ds)
	if err != nil {
		t.Fatalf("second MetadataPass failed: %v", err)
	}
	if report.Considered != 0 || source.total() != 2 {
		t.Fatalf("checkpointed entries re-processed: %+v, calls %v", report, source.calls)
	}
}

func TestMetadataPassRetriesOnce(t *testing.T) {
	transient := services.Wrap(services.ErrTransient, "test", "lookup", "429", nil)

	t.Run("recovers", func(t *testing.T) {
		ds := catalogDataset()
		source := &fakeMetadata{
			results: map[string]*enrich.Metadata{"Stalker": {TMDBID: 1398}},
			errs:    map[string][]error{"Stalker": {transient, nil}},
		}
		e := newEnricher(t, enrich.Dependencies{Metadata: source}, enrich.Options{Workers: 1})
		if _, err := e.MetadataPass(context.Background(), ds); err != nil {
			t.Fatalf("MetadataPass failed: %v", err)
		}
		if source.calls["Stalker"] != 2 || ds.CatalogEntry("stalker-1979").TMDBID != 1398 {
			t.Fatalf("expected recovery on retry, calls %v", source.calls)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		ds := catalogDataset()
		cp := newMemCheckpoint()
		source := &fakeMetadata{errs: map[string][]error{"Stalker": {transient}}}
		e := newEnricher(t, enrich.Dependencies{Metadata: source, Checkpoint: cp}, enrich.Options{Workers: 1})
		report, err := e.MetadataPass(context.Background(), ds)
		if err != nil {
			t.Fatalf("collaborator failure must not fail the pass: %v", err)
		}
		if source.calls["Stalker"] != 2 || report.NoEnrichment != 2 {
			t.Fatalf("calls %v, report %+v", source.calls, report)
		}
		if cp.has("stalker-1979_metadata") {
			t.Fatal("failed lookups must not be checkpointed")
		}
	})
}

func TestMetadataPassFatalErrorStops(t *testing.T) {
	ds := catalogDataset()
	source := &fakeMetadata{errs: map[string][]error{"Weekend": {errors.New("disk on fire")}}}
	e := newEnricher(t, enrich.Dependencies{Metadata: source}, enrich.Options{Workers: 1})
	if _, err := e.MetadataPass(context.Background(), ds); err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("expected fatal error, got %v", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ds := &dataset.Dataset{}
	for i := range 8 {
		title := fmt.Sprintf("Film %d", i)
		ds.Catalog = append(ds.Catalog, dataset.CatalogEntry{FilmID: fmt.Sprintf("film-%d", i), Title: title})
	}
	down := services.Wrap(services.ErrCollaborator, "test", "lookup", "401", nil)
	errs := map[string][]error{}
	for _, entry := range ds.Catalog {
		errs[entry.Title] = []error{down}
	}
	source := &fakeMetadata{errs: errs}
	recorder := metrics.New()
	e := newEnricher(t, enrich.Dependencies{Metadata: source, Metrics: recorder}, enrich.Options{Workers: 1})

	report, err := e.MetadataPass(context.Background(), ds)
	if err != nil {
		t.Fatalf("MetadataPass failed: %v", err)
	}
	if source.total() != 5 {
		t.Fatalf("expected breaker to stop calls after 5 failures, got %d", source.total())
	}
	if report.NoEnrichment != 8 {
		t.Fatalf("report = %+v", report)
	}
	if got := breakerState(t, recorder, "metadata"); got != 2 {
		t.Fatalf("breaker state = %v, want open", got)
	}
}

func breakerState(t *testing.T, recorder *metrics.Recorder, name string) float64 {
	t.Helper()
	families, err := recorder.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "closetpicks_circuit_breaker_state" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "name" && label.GetValue() == name {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("breaker %q not found", name)
	return -1
}

func extractionDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Catalog: []dataset.CatalogEntry{
			{FilmID: "weekend-1967", Title: "Weekend", Year: dataset.IntPtr(1967)},
			{FilmID: "stalker-1979", Title: "Stalker", Year: dataset.IntPtr(1979)},
			{FilmID: "ratcatcher-1999", Title: "Ratcatcher", Year: dataset.IntPtr(1999)},
		},
		Guests: []dataset.Guest{
			{Slug: "bill-hader", Name: "Bill Hader", YouTubeVideoID: "yt1"},
		},
		Picks: []dataset.Pick{
			{GuestSlug: "bill-hader", FilmID: "weekend-1967", FilmTitle: "Weekend", ExtractionConfidence: dataset.ConfidenceNone, VisitIndex: 1},
			{GuestSlug: "bill-hader", FilmID: "stalker-1979", FilmTitle: "Stalker", Quote: "The zone.", ExtractionConfidence: dataset.ConfidenceMedium, VisitIndex: 1},
			{GuestSlug: "bill-hader", FilmID: "ratcatcher-1999", FilmTitle: "Ratcatcher", Quote: "Hand written.", ExtractionConfidence: dataset.ConfidenceManual, VisitIndex: 1},
		},
	}
}

func segments(n int) []llm.Segment {
	out := make([]llm.Segment, n)
	for i := range out {
		out[i] = llm.Segment{Start: float64(i * 10), Text: fmt.Sprintf("line %d", i)}
	}
	return out
}

func TestExtractionPassAppliesExcerpts(t *testing.T) {
	ds := extractionDataset()
	extractor := &fakeExtractor{respond: excerptsFor(map[string]string{"Weekend": "high", "Stalker": "low"}, "i love weekend so much", 142)}
	cp := newMemCheckpoint()
	recorder := metrics.New()
	e := newEnricher(t, enrich.Dependencies{
		Extractor:   extractor,
		Transcripts: mapTranscripts{"yt1": segments(3)},
		Checkpoint:  cp,
		Metrics:     recorder,
	}, enrich.Options{})

	primary, second, err := e.ExtractionPass(context.Background(), ds)
	if err != nil {
		t.Fatalf("ExtractionPass failed: %v", err)
	}
	if primary.Enriched != 1 || primary.Upgraded != 1 || primary.Excerpts != 2 || second.Considered != 0 {
		t.Fatalf("unexpected reports: %+v %+v", primary, second)
	}
	titles := extractor.titles()
	if len(titles) != 1 || strings.Join(titles[0], ",") != "Weekend,Stalker" {
		t.Fatalf("manual picks must not be offered: %v", titles)
	}

	weekend := ds.Picks[0]
	if weekend.ExtractionConfidence != dataset.ConfidenceHigh || !strings.HasPrefix(weekend.Quote, "I love Weekend") {
		t.Fatalf("weekend not upgraded: %+v", weekend)
	}
	if weekend.StartTimestamp == nil || *weekend.StartTimestamp != 142 || weekend.YouTubeTimestampURL != "https://www.youtube.com/watch?v=yt1&t=142" {
		t.Fatalf("weekend timestamp: %+v", weekend)
	}
	if stalker := ds.Picks[1]; stalker.ExtractionConfidence != dataset.ConfidenceMedium || stalker.Quote != "The zone." {
		t.Fatalf("confidence must never be downgraded: %+v", stalker)
	}
	if !cp.has("bill-hader") || cp.entries["bill-hader"].QuotesCount != 2 || cp.entries["bill-hader"].PicksCount != 2 {
		t.Fatalf("checkpoint = %+v", cp.entries)
	}
}

func TestExtractionBatchesAndTruncates(t *testing.T) {
	ds := &dataset.Dataset{Guests: []dataset.Guest{{Slug: "g", Name: "G", YouTubeVideoID: "yt"}}}
	for i := range 45 {
		ds.Picks = append(ds.Picks, dataset.Pick{GuestSlug: "g", FilmID: fmt.Sprintf("f%d", i), FilmTitle: fmt.Sprintf("Film %d", i), VisitIndex: 1})
	}
	extractor := &fakeExtractor{respond: func(llm.ExtractRequest) ([]llm.Excerpt, error) { return nil, nil }}
	e := newEnricher(t, enrich.Dependencies{
		Extractor:   extractor,
		Transcripts: mapTranscripts{"yt": segments(5)},
	}, enrich.Options{BatchSize: 20, MaxSegments: 2})

	if _, _, err := e.ExtractionPass(context.Background(), ds); err != nil {
		t.Fatalf("ExtractionPass failed: %v", err)
	}
	if len(extractor.requests) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(extractor.requests))
	}
	for i, want := range []int{20, 20, 5} {
		req := extractor.requests[i]
		if len(req.Targets) != want || len(req.Segments) != 2 {
			t.Fatalf("batch %d: %d targets, %d segments", i, len(req.Targets), len(req.Segments))
		}
	}
}

func TestExtractionSecondVisitPass(t *testing.T) {
	ds := &dataset.Dataset{
		Guests: []dataset.Guest{{
			Slug: "guillermo-del-toro",
			Name: "Guillermo del Toro",
			Visits: []dataset.Visit{
				{YouTubeVideoID: "first"},
				{VimeoVideoID: "222"},
			},
		}},
		Picks: []dataset.Pick{
			{GuestSlug: "guillermo-del-toro", FilmID: "a", FilmTitle: "Kwaidan", VisitIndex: 1},
			{GuestSlug: "guillermo-del-toro", FilmID: "b", FilmTitle: "Cronos", VisitIndex: 2},
			{GuestSlug: "guillermo-del-toro", FilmID: "c", FilmTitle: "Mothra", VisitIndex: 1},
		},
	}
	extractor := &fakeExtractor{respond: func(req llm.ExtractRequest) ([]llm.Excerpt, error) {
		if req.Segments[0].Text == "first visit" {
			return []llm.Excerpt{
				{Title: "Kwaidan", Quote: "Ghost stories.", Confidence: "high", StartSeconds: 10},
				{Title: "Mothra", Confidence: "none"},
			}, nil
		}
		return []llm.Excerpt{{Title: "Cronos", Quote: "My first film.", Confidence: "medium", StartSeconds: 30}}, nil
	}}
	cp := newMemCheckpoint()
	e := newEnricher(t, enrich.Dependencies{
		Extractor: extractor,
		Transcripts: mapTranscripts{
			"first": {{Start: 0, Text: "first visit"}},
			"222":   {{Start: 0, Text: "second visit"}},
		},
		Checkpoint: cp,
	}, enrich.Options{})

	primary, second, err := e.ExtractionPass(context.Background(), ds)
	if err != nil {
		t.Fatalf("ExtractionPass failed: %v", err)
	}
	titles := extractor.titles()
	if len(titles) != 2 || strings.Join(titles[0], ",") != "Kwaidan,Mothra" || strings.Join(titles[1], ",") != "Cronos,Mothra" {
		t.Fatalf("unexpected targets: %v", titles)
	}
	cronos := ds.Picks[1]
	if cronos.ExtractionConfidence != dataset.ConfidenceMedium || cronos.VisitIndex != 2 || cronos.VimeoTimestampURL != "https://vimeo.com/222#t=30s" {
		t.Fatalf("cronos not filled from second visit: %+v", cronos)
	}
	if ds.Picks[2].HasQuote() {
		t.Fatalf("mothra should stay empty: %+v", ds.Picks[2])
	}
	if primary.Upgraded != 1 || second.Upgraded != 1 {
		t.Fatalf("reports: %+v %+v", primary, second)
	}
	if !cp.has("guillermo-del-toro") || !cp.has("guillermo-del-toro_visit2") {
		t.Fatalf("checkpoint = %+v", cp.entries)
	}
}

func TestExtractionSkipsCheckpointedGuestsUnlessForced(t *testing.T) {
	cp := newMemCheckpoint()
	_ = cp.Update("bill-hader", dataset.CheckpointEntry{Outcome: services.OutcomeOK})
	extractor := &fakeExtractor{respond: excerptsFor(map[string]string{"Weekend": "high"}, "Weekend.", 5)}
	deps := enrich.Dependencies{Extractor: extractor, Transcripts: mapTranscripts{"yt1": segments(1)}, Checkpoint: cp}

	primary, _, err := newEnricher(t, deps, enrich.Options{}).ExtractionPass(context.Background(), extractionDataset())
	if err != nil || primary.Skipped != 1 || len(extractor.requests) != 0 {
		t.Fatalf("checkpointed guest re-processed: %+v, %d requests, %v", primary, len(extractor.requests), err)
	}

	ds := extractionDataset()
	if _, _, err := newEnricher(t, deps, enrich.Options{Force: true}).ExtractionPass(context.Background(), ds); err != nil {
		t.Fatalf("forced ExtractionPass failed: %v", err)
	}
	if len(extractor.requests) != 1 || ds.Picks[0].ExtractionConfidence != dataset.ConfidenceHigh {
		t.Fatalf("force did not re-process: %d requests", len(extractor.requests))
	}
}

func TestExtractionMalformedResponseIsNoEnrichment(t *testing.T) {
	cp := newMemCheckpoint()
	extractor := &fakeExtractor{respond: func(llm.ExtractRequest) ([]llm.Excerpt, error) {
		return nil, services.Wrap(services.ErrCollaborator, "llm", "extract", "", llm.ErrMalformedResponse)
	}}
	ds := extractionDataset()
	e := newEnricher(t, enrich.Dependencies{Extractor: extractor, Transcripts: mapTranscripts{"yt1": segments(1)}, Checkpoint: cp}, enrich.Options{})

	primary, _, err := e.ExtractionPass(context.Background(), ds)
	if err != nil {
		t.Fatalf("malformed response must not fail the run: %v", err)
	}
	if primary.NoEnrichment != 1 || cp.has("bill-hader") {
		t.Fatalf("report %+v, checkpoint %+v", primary, cp.entries)
	}
	if ds.Picks[0].HasQuote() {
		t.Fatal("nothing should be applied from a malformed response")
	}
}

func TestExtractionPartialBatchFailureIsRetried(t *testing.T) {
	newDataset := func() *dataset.Dataset {
		ds := &dataset.Dataset{Guests: []dataset.Guest{{Slug: "g", Name: "G", YouTubeVideoID: "yt"}}}
		for i := range 25 {
			ds.Picks = append(ds.Picks, dataset.Pick{GuestSlug: "g", FilmID: fmt.Sprintf("f%d", i), FilmTitle: fmt.Sprintf("Film %d", i), VisitIndex: 1})
		}
		return ds
	}
	down := services.Wrap(services.ErrCollaborator, "llm", "extract", "503", nil)
	secondBatchFails := true
	extractor := &fakeExtractor{respond: func(req llm.ExtractRequest) ([]llm.Excerpt, error) {
		if req.Targets[0].Title == "Film 20" && secondBatchFails {
			return nil, down
		}
		return []llm.Excerpt{{Title: req.Targets[0].Title, Quote: "A favourite.", Confidence: "high", StartSeconds: 12}}, nil
	}}
	firstBatches := func() int {
		n := 0
		for _, titles := range extractor.titles() {
			if len(titles) > 0 && titles[0] == "Film 0" {
				n++
			}
		}
		return n
	}
	cp := newMemCheckpoint()
	deps := enrich.Dependencies{Extractor: extractor, Transcripts: mapTranscripts{"yt": segments(1)}, Checkpoint: cp}

	ds := newDataset()
	primary, _, err := newEnricher(t, deps, enrich.Options{BatchSize: 20}).ExtractionPass(context.Background(), ds)
	if err != nil {
		t.Fatalf("partial failure must not fail the run: %v", err)
	}
	if primary.NoEnrichment != 1 || primary.Enriched != 0 {
		t.Fatalf("report = %+v", primary)
	}
	if cp.has("g") {
		t.Fatalf("partially extracted guest was checkpointed: %+v", cp.entries)
	}
	if ds.Picks[0].ExtractionConfidence != dataset.ConfidenceHigh {
		t.Fatal("excerpts from the successful batch should still apply")
	}

	secondBatchFails = false
	ds = newDataset()
	primary, _, err = newEnricher(t, deps, enrich.Options{BatchSize: 20}).ExtractionPass(context.Background(), ds)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if firstBatches() != 2 {
		t.Fatalf("rerun should repeat the guest, first batch sent %d times", firstBatches())
	}
	if primary.Enriched != 1 || !cp.has("g") {
		t.Fatalf("rerun report %+v, checkpoint %+v", primary, cp.entries)
	}
	if ds.Picks[20].ExtractionConfidence != dataset.ConfidenceHigh {
		t.Fatal("rerun should fill the batch that failed before")
	}
}

func TestExtractionMissingTranscriptSkips(t *testing.T) {
	extractor := &fakeExtractor{respond: excerptsFor(nil, "", 0)}
	e := newEnricher(t, enrich.Dependencies{Extractor: extractor, Transcripts: mapTranscripts{}}, enrich.Options{})
	primary, _, err := e.ExtractionPass(context.Background(), extractionDataset())
	if err != nil || primary.Skipped != 1 || len(extractor.requests) != 0 {
		t.Fatalf("report %+v, requests %d, err %v", primary, len(extractor.requests), err)
	}
}

func TestExtractionStopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	extractor := &fakeExtractor{respond: excerptsFor(nil, "", 0)}
	e := newEnricher(t, enrich.Dependencies{Extractor: extractor, Transcripts: mapTranscripts{"yt1": segments(1)}}, enrich.Options{})
	if _, _, err := e.ExtractionPass(ctx, extractionDataset()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(extractor.requests) != 0 {
		t.Fatalf("canceled run issued %d requests", len(extractor.requests))
	}
}

func TestExtractionWithFileCheckpointStore(t *testing.T) {
	dir := t.TempDir()
	cp := store.NewCheckpointStore(filepath.Join(dir, store.CheckpointFile))
	extractor := &fakeExtractor{respond: excerptsFor(map[string]string{"Weekend": "high"}, "Weekend.", 5)}
	e := newEnricher(t, enrich.Dependencies{Extractor: extractor, Transcripts: mapTranscripts{"yt1": segments(1)}, Checkpoint: cp}, enrich.Options{})
	if _, _, err := e.ExtractionPass(context.Background(), extractionDataset()); err != nil {
		t.Fatalf("ExtractionPass failed: %v", err)
	}
	loaded, err := cp.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entry, ok := loaded["bill-hader"]; !ok || entry.Outcome != services.OutcomeOK || entry.ProcessedAt.IsZero() {
		t.Fatalf("checkpoint entry = %+v", loaded)
	}
}

func TestFileTranscripts(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("list.json", `[{"start": 1.5, "text": "hello"}]`)
	write("wrapped.json", "\xef\xbb\xbf"+`{"segments": [{"start": 2, "text": "hi"}, {"start": 3, "text": "there"}]}`)
	write("broken.json", `{"segments": [`)

	source := enrich.NewFileTranscripts(dir)
	list, err := source.Transcript("list")
	if err != nil || len(list) != 1 || list[0].Text != "hello" {
		t.Fatalf("list form: %+v, %v", list, err)
	}
	wrapped, err := source.Transcript("wrapped")
	if err != nil || len(wrapped) != 2 {
		t.Fatalf("wrapped form: %+v, %v", wrapped, err)
	}
	if _, err := source.Transcript("missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing transcript: %v", err)
	}
	if _, err := source.Transcript("broken"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("broken transcript: %v", err)
	}
	if _, err := source.Transcript("../escape"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("path traversal: %v", err)
	}
}

func TestTMDBSourceYearRules(t *testing.T) {
	var detailCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/search/movie" && r.URL.Query().Get("query") == "Weekend":
			if r.URL.Query().Has("primary_release_year") {
				_, _ = w.Write([]byte(`{"results":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"results":[{"id":11,"title":"Weekend","release_date":"1968-03-01"}]}`))
		case r.URL.Path == "/search/movie":
			_, _ = w.Write([]byte(`{"results":[{"id":99,"title":"Weekend","release_date":"2011-09-23"}]}`))
		case r.URL.Path == "/movie/11":
			detailCalls.Add(1)
			_, _ = w.Write([]byte(`{"id":11,"release_date":"1968-03-01","poster_path":"/p.jpg","imdb_id":"tt0062480",
				"genres":[{"id":35,"name":"Comedy"}],"production_countries":[{"iso_3166_1":"FR","name":"France"}],
				"credits":{"crew":[{"id":2,"name":"Jean-Luc Godard","job":"Director"}]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "en-US")
	if err != nil {
		t.Fatalf("tmdb.New: %v", err)
	}
	source := enrich.NewTMDBSource(client, 2, nil)

	meta, err := source.Lookup(context.Background(), enrich.MetadataQuery{Title: "Weekend", Year: dataset.IntPtr(1967)})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if meta == nil || meta.TMDBID != 11 || meta.Director != "Jean-Luc Godard" || meta.Country != "France" ||
		meta.PosterURL != tmdb.DefaultImageBaseURL+"/w185/p.jpg" || len(meta.Genres) != 1 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	rejected, err := source.Lookup(context.Background(), enrich.MetadataQuery{Title: "Weekend 1967 cut", Year: dataset.IntPtr(1967)})
	if err != nil || rejected != nil {
		t.Fatalf("year mismatch beyond tolerance should yield no candidate: %+v, %v", rejected, err)
	}
	if n := detailCalls.Load(); n != 1 {
		t.Fatalf("details fetched %d times", n)
	}
}
