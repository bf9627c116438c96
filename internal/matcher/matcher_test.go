package matcher

import (
	"testing"

	"closetpicks/internal/dataset"
	"closetpicks/internal/logging"
)

func testCatalog() []dataset.CatalogEntry {
	return []dataset.CatalogEntry{
		{FilmID: "aparajito-1956", Title: "Aparajito (Apu Trilogy)", Year: dataset.IntPtr(1956), CriterionURL: "https://www.criterion.com/films/123-aparajito"},
		{FilmID: "the-apu-trilogy", Title: "The Apu Trilogy", IsBoxSet: true, CriterionURL: "https://www.criterion.com/boxsets/1702-the-apu-trilogy"},
		{FilmID: "the-seventh-seal-1957", Title: "The Seventh Seal", Year: dataset.IntPtr(1957), SpineNumber: dataset.IntPtr(11), CriterionURL: "https://www.criterion.com/films/193-the-seventh-seal"},
		{FilmID: "weekend-1967", Title: "Weekend", Year: dataset.IntPtr(1967), SpineNumber: dataset.IntPtr(622), CriterionURL: "https://www.criterion.com/films/28441-weekend"},
		{FilmID: "weekend-2011", Title: "Weekend", Year: dataset.IntPtr(2011), SpineNumber: dataset.IntPtr(635), CriterionURL: "https://www.criterion.com/films/27783-weekend"},
	}
}

func TestMatchPriority(t *testing.T) {
	m := New(testCatalog(), Options{YearTolerance: 1})
	tests := []struct {
		name       string
		ref        Reference
		wantID     string
		wantMethod string
	}{
		{
			name:       "url wins over title",
			ref:        Reference{Title: "Weekend", Year: dataset.IntPtr(1967), URL: "https://www.criterion.com/films/27783-weekend"},
			wantID:     "weekend-2011",
			wantMethod: MethodCriterionURL,
		},
		{
			name:       "url families never cross",
			ref:        Reference{Title: "Something Else Entirely", URL: "https://www.criterion.com/boxsets/123-whatever"},
			wantID:     "something-else-entirely",
			wantMethod: MethodUnmatched,
		},
		{
			name:       "boxset url matches collection",
			ref:        Reference{Title: "Apu", URL: "https://www.criterion.com/boxsets/1702"},
			wantID:     "the-apu-trilogy",
			wantMethod: MethodCriterionURL,
		},
		{
			name:       "exact title filtered by year",
			ref:        Reference{Title: "weekend", Year: dataset.IntPtr(2011)},
			wantID:     "weekend-2011",
			wantMethod: MethodExact,
		},
		{
			name:       "exact title within tolerance",
			ref:        Reference{Title: "Weekend", Year: dataset.IntPtr(1968)},
			wantID:     "weekend-1967",
			wantMethod: MethodExact,
		},
		{
			name:       "exact title without year takes first in order",
			ref:        Reference{Title: "Weekend"},
			wantID:     "weekend-1967",
			wantMethod: MethodExact,
		},
		{
			name:       "annotation stripped title matches exactly",
			ref:        Reference{Title: "Aparajito"},
			wantID:     "aparajito-1956",
			wantMethod: MethodExact,
		},
		{
			name:       "format suffix removed",
			ref:        Reference{Title: "The Seventh Seal (Blu-ray)*"},
			wantID:     "the-seventh-seal-1957",
			wantMethod: MethodExact,
		},
		{
			name:       "year outside tolerance falls through",
			ref:        Reference{Title: "Weekend", Year: dataset.IntPtr(1990)},
			wantID:     "weekend-1990",
			wantMethod: MethodUnmatched,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.ref)
			if got.FilmID != tt.wantID || got.Method != tt.wantMethod {
				t.Fatalf("Match = (%s, %s), want (%s, %s)", got.FilmID, got.Method, tt.wantID, tt.wantMethod)
			}
			if got.Matched() != (tt.wantMethod != MethodUnmatched) {
				t.Fatalf("Matched() = %v for method %s", got.Matched(), got.Method)
			}
		})
	}
}

func TestFuzzyThresholds(t *testing.T) {
	m := New(testCatalog(), Options{})
	loose := m.Match(Reference{Title: "Seventh Seal, The"})
	if !IsFuzzy(loose.Method) || loose.FilmID != "the-seventh-seal-1957" {
		t.Fatalf("loose fuzzy = %+v", loose)
	}
	if loose.Method != FuzzyMethod(loose.Score) {
		t.Fatalf("method %q does not carry score %d", loose.Method, loose.Score)
	}

	// "Weekends" scores 93 against "Weekend": above both thresholds.
	strict := m.Match(Reference{Title: "Weekends", Structured: true})
	if strict.FilmID != "weekend-1967" || !IsFuzzy(strict.Method) {
		t.Fatalf("strict fuzzy = %+v", strict)
	}
}

func TestYearToleranceOptions(t *testing.T) {
	catalog := []dataset.CatalogEntry{{FilmID: "stalker-1979", Title: "Stalker", Year: dataset.IntPtr(1979)}}
	ref := Reference{Title: "Stalker", Year: dataset.IntPtr(1980)}
	tests := []struct {
		name   string
		opts   Options
		wantID string
	}{
		{name: "zero value takes default tolerance", opts: Options{}, wantID: "stalker-1979"},
		{name: "explicit tolerance", opts: Options{YearTolerance: 2}, wantID: "stalker-1979"},
		{name: "exact year", opts: Options{YearTolerance: ExactYear}, wantID: "stalker-1980"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(catalog, tt.opts).Match(ref); got.FilmID != tt.wantID {
				t.Fatalf("FilmID = %q (method %s), want %q", got.FilmID, got.Method, tt.wantID)
			}
		})
	}
}

func TestUnmatchedProvisionalID(t *testing.T) {
	m := New(nil, Options{})
	got := m.Match(Reference{Title: "Fårö Document", Year: dataset.IntPtr(1970)})
	if got.Method != MethodUnmatched || got.FilmID != "faro-document-1970" {
		t.Fatalf("unexpected result %+v", got)
	}
	if got := m.Match(Reference{Title: "Persona"}); got.FilmID != "persona" {
		t.Fatalf("provisional id without year = %q", got.FilmID)
	}
}

func TestPassFillsRawAndRekeysPicks(t *testing.T) {
	ds := &dataset.Dataset{
		Catalog: testCatalog(),
		RawPicks: []dataset.RawPick{
			{GuestSlug: "ari-aster", FilmTitle: "Weekend", FilmYear: dataset.IntPtr(2011), Source: dataset.SourceLetterboxd},
			{GuestSlug: "ari-aster", FilmTitle: "Invented Film", Source: dataset.SourceLetterboxd},
			{GuestSlug: "ari-aster", FilmTitle: "Persona", FilmID: "persona-1966"},
		},
		Picks: []dataset.Pick{
			{GuestSlug: "ari-aster", FilmID: "weekend", FilmTitle: "Weekend"},
			{GuestSlug: "ari-aster", FilmID: "the-apu-trilogy", FilmTitle: "The Apu Trilogy", BoxSetFilmCount: 3},
		},
	}
	report := Pass(ds, New(ds.Catalog, Options{YearTolerance: 1}), logging.NewNop())

	if report.RawMatched != 1 || report.RawUnmatched != 1 {
		t.Fatalf("report = %+v", report)
	}
	first := ds.RawPicks[0]
	if first.FilmID != "weekend-2011" || first.MatchMethod != MethodExact || first.CatalogSpine == nil || *first.CatalogSpine != 635 {
		t.Fatalf("raw pick not resolved: %+v", first)
	}
	if ds.RawPicks[1].FilmID != "invented-film" || ds.RawPicks[1].MatchMethod != MethodUnmatched {
		t.Fatalf("unmatched raw pick = %+v", ds.RawPicks[1])
	}
	if ds.RawPicks[2].MatchMethod != "" {
		t.Fatalf("raw pick with film id was rematched: %+v", ds.RawPicks[2])
	}
	if ds.Picks[0].FilmID != "weekend-2011" || report.PicksRekeyed != 1 {
		t.Fatalf("pick not re-keyed via raw year: %+v (report %+v)", ds.Picks[0], report)
	}
	if ds.Picks[1].FilmID != "the-apu-trilogy" {
		t.Fatalf("aggregate pick changed: %+v", ds.Picks[1])
	}
}
