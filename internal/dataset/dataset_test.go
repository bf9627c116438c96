package dataset

import "testing"

func TestConfidenceRank(t *testing.T) {
	order := []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceNone}
	for i := 0; i < len(order)-1; i++ {
		if order[i].Rank() <= order[i+1].Rank() {
			t.Fatalf("%s should outrank %s", order[i], order[i+1])
		}
	}
	if ParseConfidence(" HIGH ") != ConfidenceHigh {
		t.Fatal("expected case-insensitive parse")
	}
	if ParseConfidence("") != ConfidenceNone {
		t.Fatal("expected blank to parse as none")
	}
}

func TestPickAttested(t *testing.T) {
	tests := []struct {
		name string
		pick Pick
		want bool
	}{
		{"quote high", Pick{Quote: "loved it", ExtractionConfidence: ConfidenceHigh}, true},
		{"quote medium", Pick{Quote: "loved it", ExtractionConfidence: ConfidenceMedium}, true},
		{"quote low", Pick{Quote: "loved it", ExtractionConfidence: ConfidenceLow}, false},
		{"blank quote high", Pick{Quote: "  ", ExtractionConfidence: ConfidenceHigh}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pick.Attested(); got != tt.want {
				t.Fatalf("Attested() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	ds := &Dataset{
		Catalog: []CatalogEntry{
			{FilmID: "a", Year: IntPtr(0)},
			{FilmID: "b", Year: IntPtr(1957), CriterionURL: "https://www.criterion.com/boxsets/1-x"},
		},
		Guests: []Guest{
			{Slug: "solo", YouTubeVideoID: "vid1"},
			{Slug: "empty"},
		},
		Picks: []Pick{{GuestSlug: "solo", ExtractionConfidence: ""}},
	}
	ds.Normalize()
	if ds.Catalog[0].Year != nil {
		t.Fatal("expected zero year to become nil")
	}
	if ds.Catalog[1].Year == nil || *ds.Catalog[1].Year != 1957 {
		t.Fatal("expected plausible year to survive")
	}
	if !ds.Catalog[1].IsBoxSet {
		t.Fatal("expected boxset URL to flag collection")
	}
	if len(ds.Guests[0].Visits) != 1 || ds.Guests[0].Visits[0].YouTubeVideoID != "vid1" {
		t.Fatalf("expected visit built from top-level fields, got %+v", ds.Guests[0].Visits)
	}
	if len(ds.Guests[1].Visits) != 0 {
		t.Fatal("expected no visit for guest without references")
	}
	if ds.Picks[0].ExtractionConfidence != ConfidenceNone {
		t.Fatal("expected blank confidence to normalize to none")
	}
}

func TestSortIsCanonical(t *testing.T) {
	ds := &Dataset{
		Catalog: []CatalogEntry{{FilmID: "b"}, {FilmID: "a"}},
		Guests:  []Guest{{Slug: "z"}, {Slug: "m"}},
		Picks: []Pick{
			{GuestSlug: "z", FilmID: "b"},
			{GuestSlug: "m", FilmID: "c"},
			{GuestSlug: "z", FilmID: "a"},
		},
	}
	ds.Sort()
	if ds.Catalog[0].FilmID != "a" || ds.Guests[0].Slug != "m" {
		t.Fatal("catalog and guests not sorted")
	}
	got := []string{ds.Picks[0].GuestSlug + "/" + ds.Picks[0].FilmID, ds.Picks[1].GuestSlug + "/" + ds.Picks[1].FilmID, ds.Picks[2].GuestSlug + "/" + ds.Picks[2].FilmID}
	want := []string{"m/c", "z/a", "z/b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pick order = %v, want %v", got, want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	ds := &Dataset{
		Catalog: []CatalogEntry{{FilmID: "a", Year: IntPtr(1960), Genres: []string{"Drama"}}},
		Picks:   []Pick{{GuestSlug: "g", BoxSetFilmTitles: []string{"One"}}},
	}
	c := ds.Clone()
	*c.Catalog[0].Year = 1999
	c.Catalog[0].Genres[0] = "Comedy"
	c.Picks[0].BoxSetFilmTitles[0] = "Two"
	if *ds.Catalog[0].Year != 1960 || ds.Catalog[0].Genres[0] != "Drama" || ds.Picks[0].BoxSetFilmTitles[0] != "One" {
		t.Fatal("clone shares memory with original")
	}
}

func TestReassignAndRemove(t *testing.T) {
	ds := &Dataset{
		Guests:   []Guest{{Slug: "a"}, {Slug: "b"}},
		Picks:    []Pick{{GuestSlug: "b"}, {GuestSlug: "a"}, {GuestSlug: "b"}},
		RawPicks: []RawPick{{GuestSlug: "b"}},
	}
	picks, raw := ds.Reassign("b", "a")
	if picks != 2 || raw != 1 {
		t.Fatalf("moved %d picks, %d raw; want 2, 1", picks, raw)
	}
	if !ds.RemoveGuest("b") || ds.RemoveGuest("b") {
		t.Fatal("RemoveGuest should report existence exactly once")
	}
	if len(ds.PicksFor("a")) != 3 {
		t.Fatal("expected all picks on primary")
	}
}

func TestIndexLookups(t *testing.T) {
	ds := &Dataset{
		Catalog: []CatalogEntry{
			{FilmID: "seven-samurai-1954", SpineNumber: IntPtr(2), CriterionURL: "https://www.criterion.com/films/165-seven-samurai"},
			{FilmID: "apu", CriterionURL: "https://www.criterion.com/boxsets/165-apu"},
		},
		Guests:   []Guest{{Slug: "g"}},
		RawPicks: []RawPick{{GuestSlug: "g", FilmTitle: "Seven Samurai", FilmID: "seven-samurai-1954"}},
	}
	idx := NewIndex(ds)
	if e, ok := idx.CatalogBySpine(2); !ok || e.FilmID != "seven-samurai-1954" {
		t.Fatal("spine lookup failed")
	}
	if e, ok := idx.CatalogByURL("https://criterion.com/films/165"); !ok || e.FilmID != "seven-samurai-1954" {
		t.Fatal("film URL lookup failed")
	}
	if e, ok := idx.CatalogByURL("https://criterion.com/boxsets/165"); !ok || e.FilmID != "apu" {
		t.Fatal("families must not cross-match")
	}
	if len(idx.RawByTitle("g", "  SEVEN samurai")) != 1 {
		t.Fatal("title lookup should be case-insensitive")
	}
	if len(idx.RawByFilm("g", "seven-samurai-1954")) != 1 {
		t.Fatal("film lookup failed")
	}
	if _, ok := idx.Guest("missing"); ok {
		t.Fatal("unexpected guest")
	}
}

func TestVideoURLHelpers(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(string) string
		input string
		want  string
	}{
		{"youtube watch", YouTubeIDFromURL, "https://www.youtube.com/watch?v=U2plMSuOgrI&t=42", "U2plMSuOgrI"},
		{"youtube short", YouTubeIDFromURL, "https://youtu.be/k9c6EUVVWjU", "k9c6EUVVWjU"},
		{"youtube other host", YouTubeIDFromURL, "https://example.com/watch?v=abc", ""},
		{"vimeo fragment", VimeoIDFromURL, "https://vimeo.com/123456#t=30s", "123456"},
		{"vimeo video path", VimeoIDFromURL, "https://player.vimeo.com/video/98765", "98765"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.input); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
	if got := YouTubeTimestampURL("abc", 90); got != "https://www.youtube.com/watch?v=abc&t=90" {
		t.Fatalf("unexpected %q", got)
	}
	if got := VimeoTimestampURL("123", 90); got != "https://vimeo.com/123#t=90s" {
		t.Fatalf("unexpected %q", got)
	}
}
