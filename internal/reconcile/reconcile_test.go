package reconcile

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"closetpicks/internal/collision"
	"closetpicks/internal/dataset"
	"closetpicks/internal/directives"
	"closetpicks/internal/logging"
	"closetpicks/internal/services"
	"closetpicks/internal/store"
)

func fixture() *dataset.Dataset {
	return &dataset.Dataset{
		Catalog: []dataset.CatalogEntry{
			{FilmID: "weekend-1967", Title: "Weekend", Year: dataset.IntPtr(1967), SpineNumber: dataset.IntPtr(1), CriterionURL: "https://www.criterion.com/films/100-weekend"},
			{FilmID: "weekend-2011", Title: "Weekend", Year: dataset.IntPtr(2011), SpineNumber: dataset.IntPtr(2), CriterionURL: "https://www.criterion.com/films/200-weekend"},
			{FilmID: "the-apu-trilogy", Title: "The Apu Trilogy", CriterionURL: "https://www.criterion.com/boxsets/300-the-apu-trilogy"},
		},
		Guests: []dataset.Guest{
			{Slug: "godard-fan", Name: "Godard Fan", Visits: []dataset.Visit{{YouTubeVideoID: "vid-a"}}},
			{Slug: "haigh-fan", Name: "Haigh Fan", YouTubeVideoID: "vid-b"},
		},
		RawPicks: []dataset.RawPick{
			{GuestSlug: "godard-fan", FilmTitle: "Weekend", FilmYear: dataset.IntPtr(1967)},
			{GuestSlug: "haigh-fan", FilmTitle: "Weekend", FilmYear: dataset.IntPtr(2011), CriterionFilmURL: "https://www.criterion.com/films/200-weekend"},
			{GuestSlug: "godard-fan", FilmTitle: "The Apu Trilogy", CriterionFilmURL: "https://www.criterion.com/boxsets/300-the-apu-trilogy", Source: dataset.SourceCriterion},
		},
		Picks: []dataset.Pick{
			{GuestSlug: "godard-fan", FilmID: "weekend", FilmTitle: "Weekend", Quote: "The traffic jam alone.", ExtractionConfidence: dataset.ConfidenceHigh},
			{GuestSlug: "haigh-fan", FilmID: "weekend-2011", FilmTitle: "Weekend"},
			{GuestSlug: "godard-fan", FilmID: "the-apu-trilogy", FilmTitle: "The Apu Trilogy", Quote: "Ray at his best.", ExtractionConfidence: dataset.ConfidenceMedium},
			{GuestSlug: "godard-fan", FilmID: "weekend-1967", FilmTitle: "Weekend", ExtractionConfidence: dataset.ConfidenceLow},
			{GuestSlug: "godard-fan", FilmID: "faro-document", FilmTitle: "Faro Document"},
		},
	}
}

func findPick(ds *dataset.Dataset, slug, filmID string) *dataset.Pick {
	for i := range ds.Picks {
		if ds.Picks[i].GuestSlug == slug && ds.Picks[i].FilmID == filmID {
			return &ds.Picks[i]
		}
	}
	return nil
}

func TestRunFullPipeline(t *testing.T) {
	ds := fixture()
	result, err := Run(context.Background(), ds, &directives.Table{}, Options{}, logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	godard := findPick(ds, "godard-fan", "weekend-1967")
	if godard == nil || godard.ExtractionConfidence != dataset.ConfidenceHigh {
		t.Fatalf("1967 pick = %+v, want the high-confidence survivor", godard)
	}
	if haigh := findPick(ds, "haigh-fan", "weekend-2011"); haigh == nil || haigh.Source != dataset.SourceCriterion {
		t.Fatalf("2011 pick = %+v", haigh)
	}
	if result.Dedup.Picks != 1 {
		t.Fatalf("dedup = %+v, want one pick dropped", result.Dedup)
	}

	apu := findPick(ds, "godard-fan", "the-apu-trilogy")
	if apu == nil || apu.BoxSetFilmCount != 3 || apu.Quote == "" || apu.BoxSetCriterionURL == "" {
		t.Fatalf("unit pick = %+v", apu)
	}

	faro := ds.CatalogEntry("faro-document")
	if faro == nil || !faro.Synthetic {
		t.Fatalf("synthetic entry missing: %+v", faro)
	}
	if result.Backfill.CatalogEntries != 1 {
		t.Fatalf("backfill = %+v", result.Backfill)
	}

	for _, p := range ds.Picks {
		if p.VisitIndex != 1 {
			t.Fatalf("pick %s/%s visit = %d", p.GuestSlug, p.FilmID, p.VisitIndex)
		}
	}
	if g := ds.Guest("godard-fan"); g.PickCount != 2 {
		t.Fatalf("godard-fan pick_count = %d, want 2", g.PickCount)
	}
	if g := ds.Guest("haigh-fan"); g.PickCount != 1 {
		t.Fatalf("haigh-fan pick_count = %d, want 1", g.PickCount)
	}
	if !result.Validation.OK() {
		t.Fatalf("unexpected issues: %+v", result.Validation.Issues)
	}
	if ds.Catalog[0].FilmID != "faro-document" {
		t.Fatalf("catalog not sorted: first = %s", ds.Catalog[0].FilmID)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ds := fixture()
	if _, err := Run(context.Background(), ds, &directives.Table{}, Options{}, logging.NewNop()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := store.Documents(ds)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Run(context.Background(), ds, &directives.Table{}, Options{}, logging.NewNop()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, err := store.Documents(ds)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, name := range store.DocumentFiles {
		if !bytes.Equal(first[name], second[name]) {
			t.Fatalf("%s changed on second run:\n%s\n---\n%s", name, first[name], second[name])
		}
	}
	if diffs := Diff(first, second); len(diffs) != 0 {
		t.Fatalf("diff not empty: %+v", diffs)
	}
}

func TestRunHaltsOnUnresolvedCollision(t *testing.T) {
	ds := &dataset.Dataset{
		Catalog: []dataset.CatalogEntry{
			{FilmID: "weekend", Title: "Weekend", SpineNumber: dataset.IntPtr(1)},
			{FilmID: "weekend", Title: "Weekend", SpineNumber: dataset.IntPtr(2)},
		},
	}
	_, err := Run(context.Background(), ds, &directives.Table{}, Options{}, logging.NewNop())
	if !errors.Is(err, collision.ErrUnresolvedCollision) || !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want unresolved collision", err)
	}
}

func TestRunStopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, fixture(), &directives.Table{}, Options{}, logging.NewNop())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDedupKeepsHighestConfidence(t *testing.T) {
	tests := []struct {
		name  string
		picks []dataset.Pick
		want  string
	}{
		{
			name: "higher later wins",
			picks: []dataset.Pick{
				{GuestSlug: "a", FilmID: "f", Quote: "low", ExtractionConfidence: dataset.ConfidenceLow},
				{GuestSlug: "a", FilmID: "f", Quote: "high", ExtractionConfidence: dataset.ConfidenceHigh},
			},
			want: "high",
		},
		{
			name: "tie keeps first",
			picks: []dataset.Pick{
				{GuestSlug: "a", FilmID: "f", Quote: "first", ExtractionConfidence: dataset.ConfidenceMedium},
				{GuestSlug: "a", FilmID: "f", Quote: "second", ExtractionConfidence: dataset.ConfidenceMedium},
			},
			want: "first",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := &dataset.Dataset{Picks: tt.picks}
			report := Dedup(ds)
			if len(ds.Picks) != 1 || report.Picks != 1 {
				t.Fatalf("picks = %d, report = %+v", len(ds.Picks), report)
			}
			if ds.Picks[0].Quote != tt.want {
				t.Fatalf("survivor = %q, want %q", ds.Picks[0].Quote, tt.want)
			}
		})
	}
}

func TestDedupRawPrefersPrimarySource(t *testing.T) {
	ds := &dataset.Dataset{RawPicks: []dataset.RawPick{
		{GuestSlug: "a", FilmID: "f", Source: dataset.SourceLetterboxd},
		{GuestSlug: "a", FilmID: "f", Source: dataset.SourceCriterion},
		{GuestSlug: "a", FilmTitle: "unmatched"},
		{GuestSlug: "a", FilmTitle: "unmatched"},
	}}
	report := Dedup(ds)
	if report.RawPicks != 1 || len(ds.RawPicks) != 3 {
		t.Fatalf("raw = %d, report = %+v", len(ds.RawPicks), report)
	}
	if ds.RawPicks[0].Source != dataset.SourceCriterion {
		t.Fatalf("survivor source = %s", ds.RawPicks[0].Source)
	}
}

func TestBackfillSources(t *testing.T) {
	ds := &dataset.Dataset{
		RawPicks: []dataset.RawPick{
			{GuestSlug: "a", FilmTitle: "Stalker", CriterionFilmURL: "https://www.criterion.com/films/1-stalker"},
			{GuestSlug: "a", FilmTitle: "Solaris", FilmID: "solaris-1972"},
		},
		Picks: []dataset.Pick{
			{GuestSlug: "a", FilmID: "stalker-1979", FilmTitle: "STALKER"},
			{GuestSlug: "a", FilmID: "solaris-1972", FilmTitle: "Solaris (1972)"},
			{GuestSlug: "a", FilmID: "mirror-1975", FilmTitle: "Mirror"},
			{GuestSlug: "a", FilmID: "ivans-childhood", FilmTitle: "Ivan's Childhood", Source: dataset.SourceManual},
		},
	}
	raw, picks := backfillSources(ds)
	if raw != 2 || picks != 3 {
		t.Fatalf("changed raw=%d picks=%d", raw, picks)
	}
	want := []dataset.Source{dataset.SourceCriterion, dataset.SourceLetterboxd, dataset.SourceLetterboxd, dataset.SourceManual}
	for i, p := range ds.Picks {
		if p.Source != want[i] {
			t.Fatalf("pick %s source = %q, want %q", p.FilmID, p.Source, want[i])
		}
	}
}

func TestUpdatePickCounts(t *testing.T) {
	ds := &dataset.Dataset{
		Guests: []dataset.Guest{{Slug: "a"}, {Slug: "b", PickCount: 9}},
		Picks: []dataset.Pick{
			{GuestSlug: "a", FilmID: "x", Source: dataset.SourceCriterion},
			{GuestSlug: "a", FilmID: "y", Source: dataset.SourceLetterboxd, Quote: "said it"},
			{GuestSlug: "a", FilmID: "z", Source: dataset.SourceLetterboxd},
		},
		RawPicks: []dataset.RawPick{
			{GuestSlug: "a", FilmID: "x", Source: dataset.SourceCriterion},
			{GuestSlug: "a", FilmID: "w", Source: dataset.SourceCriterion},
			{GuestSlug: "a", FilmID: "v", Source: dataset.SourceLetterboxd},
		},
	}
	if changed := UpdatePickCounts(ds); changed != 2 {
		t.Fatalf("changed = %d, want 2", changed)
	}
	if ds.Guests[0].PickCount != 3 || ds.Guests[1].PickCount != 0 {
		t.Fatalf("counts = %d, %d", ds.Guests[0].PickCount, ds.Guests[1].PickCount)
	}
}

func TestValidateReportsIssues(t *testing.T) {
	ds := &dataset.Dataset{
		Catalog: []dataset.CatalogEntry{
			{FilmID: "a", Title: "A", SpineNumber: dataset.IntPtr(5)},
			{FilmID: "a", Title: "A again"},
			{FilmID: "b", Title: "B", SpineNumber: dataset.IntPtr(5)},
			{FilmID: "set", Title: "Set", IsBoxSet: true},
		},
		Guests: []dataset.Guest{
			{Slug: "g", Visits: []dataset.Visit{{YouTubeVideoID: "v1"}}},
			{Slug: "g"},
		},
		Picks: []dataset.Pick{
			{GuestSlug: "g", FilmID: "a", VisitIndex: 2},
			{GuestSlug: "g", FilmID: "a", VisitIndex: 1},
			{GuestSlug: "ghost", FilmID: "b", VisitIndex: 1},
			{GuestSlug: "g", FilmID: "missing", VisitIndex: 1},
			{GuestSlug: "g", FilmID: "agg", VisitIndex: 1, BoxSetFilmCount: 3},
			{GuestSlug: "g", FilmID: "set", VisitIndex: 1},
		},
	}
	report := Validate(ds)
	got := report.ByType()
	want := map[string]int{
		IssueDuplicateFilmID:      1,
		IssueDuplicateSpine:       1,
		IssueDuplicateSlug:        1,
		IssueVisitOutOfRange:      1,
		IssueDuplicatePick:        1,
		IssueUnknownGuestSlug:     1,
		IssueUnknownFilmID:        2,
		IssueAggregateWithoutName: 1,
		IssueZeroMemberCount:      1,
	}
	for kind, n := range want {
		if got[kind] != n {
			t.Errorf("%s = %d, want %d (all: %v)", kind, got[kind], n, got)
		}
	}
	if report.OK() {
		t.Fatal("report should not be OK")
	}
	if report.Counts.Aggregates != 1 || report.Counts.Picks != 6 {
		t.Fatalf("counts = %+v", report.Counts)
	}
}

func TestDiffCountsChangedLines(t *testing.T) {
	before := map[string][]byte{
		store.CatalogFile: []byte("[]\n"),
		store.PicksFile:   []byte("[\n  1,\n  2\n]\n"),
	}
	after := map[string][]byte{
		store.CatalogFile: []byte("[]\n"),
		store.PicksFile:   []byte("[\n  1,\n  3\n]\n"),
	}
	diffs := Diff(before, after)
	if len(diffs) != 1 || diffs[0].Name != store.PicksFile {
		t.Fatalf("diffs = %+v", diffs)
	}
	if diffs[0].Added != 1 || diffs[0].Removed != 1 {
		t.Fatalf("added=%d removed=%d lines=%q", diffs[0].Added, diffs[0].Removed, diffs[0].Lines)
	}
}

func TestResultChangesCoversEveryPass(t *testing.T) {
	ds := fixture()
	result, err := Run(context.Background(), ds, &directives.Table{}, Options{}, logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	changes := result.Changes()
	for _, pass := range []string{PassMatch, PassIdentity, PassCollision, PassBoxSet, PassVisits, PassFinalize} {
		if _, ok := changes[pass]; !ok {
			t.Fatalf("changes missing %s: %v", pass, changes)
		}
	}
	if changes[PassFinalize] < result.Dedup.Picks+result.Backfill.CatalogEntries {
		t.Fatalf("finalize changes = %d, report %+v %+v", changes[PassFinalize], result.Dedup, result.Backfill)
	}
	var nilResult *Result
	if nilResult.Changes() != nil {
		t.Fatal("nil result should report no changes")
	}
}
