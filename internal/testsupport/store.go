package testsupport

import (
	"testing"

	"closetpicks/internal/config"
	"closetpicks/internal/dataset"
	"closetpicks/internal/ledger"
	"closetpicks/internal/logging"
	"closetpicks/internal/store"
)

// MustOpenLedger opens the configured ledger for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	l, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = l.Close()
	})
	return l
}

// MustOpenStore opens the configured document store.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg.Paths.DataDir, logging.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return s
}

// SeedDataset writes ds into the configured data directory.
func SeedDataset(t testing.TB, cfg *config.Config, ds *dataset.Dataset) *store.Store {
	t.Helper()

	s := MustOpenStore(t, cfg)
	if _, err := s.Save(ds); err != nil {
		t.Fatalf("seed dataset: %v", err)
	}
	return s
}

// SampleDataset is a small snapshot with one box-set unit pick, one title
// shared by two films, and one repeat-visit guest pair.
func SampleDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Catalog: []dataset.CatalogEntry{
			{FilmID: "weekend-1967", Title: "Weekend", Year: dataset.IntPtr(1967), Director: "Jean-Luc Godard", SpineNumber: dataset.IntPtr(622), CriterionURL: "https://www.criterion.com/films/28441-weekend"},
			{FilmID: "weekend-2011", Title: "Weekend", Year: dataset.IntPtr(2011), Director: "Andrew Haigh", SpineNumber: dataset.IntPtr(635), CriterionURL: "https://www.criterion.com/films/27783-weekend"},
			{FilmID: "the-apu-trilogy", Title: "The Apu Trilogy", CriterionURL: "https://www.criterion.com/boxsets/300-the-apu-trilogy"},
			{FilmID: "stalker-1979", Title: "Stalker", Year: dataset.IntPtr(1979), SpineNumber: dataset.IntPtr(3), CriterionURL: "https://www.criterion.com/films/400-stalker"},
		},
		Guests: []dataset.Guest{
			{Slug: "bill-hader", Name: "Bill Hader", YouTubeVideoID: "vid-aaaaaa", Visits: []dataset.Visit{{YouTubeVideoID: "vid-aaaaaa"}}},
			{Slug: "bill-haders-second", Name: "Bill Hader", YouTubeVideoID: "vid-bbbbbb"},
			{Slug: "andrew-haigh", Name: "Andrew Haigh", YouTubeVideoID: "vid-cccccc"},
		},
		RawPicks: []dataset.RawPick{
			{GuestSlug: "bill-hader", FilmTitle: "Weekend", FilmYear: dataset.IntPtr(1967), Source: dataset.SourceLetterboxd},
			{GuestSlug: "bill-haders-second", FilmTitle: "Stalker", CriterionFilmURL: "https://www.criterion.com/films/400-stalker", Source: dataset.SourceCriterion, VisitIndex: 1},
			{GuestSlug: "andrew-haigh", FilmTitle: "Weekend", FilmYear: dataset.IntPtr(2011), CriterionFilmURL: "https://www.criterion.com/films/27783-weekend", Source: dataset.SourceCriterion},
		},
		Picks: []dataset.Pick{
			{GuestSlug: "bill-hader", FilmID: "weekend-1967", FilmTitle: "Weekend", ExtractionConfidence: dataset.ConfidenceNone},
			{GuestSlug: "bill-hader", FilmID: "the-apu-trilogy", FilmTitle: "The Apu Trilogy", Quote: "Ray at his best.", ExtractionConfidence: dataset.ConfidenceMedium},
			{GuestSlug: "bill-haders-second", FilmID: "stalker-1979", FilmTitle: "Stalker", ExtractionConfidence: dataset.ConfidenceNone},
			{GuestSlug: "andrew-haigh", FilmID: "weekend-2011", FilmTitle: "Weekend", ExtractionConfidence: dataset.ConfidenceNone},
		},
	}
}
