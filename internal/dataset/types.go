package dataset

import (
	"strings"
	"time"
)

// Confidence is the attestation strength of an extracted excerpt.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
	ConfidenceManual Confidence = "manual"
)

// Rank orders confidence tiers: high > medium > low > none/manual.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// ParseConfidence normalizes a free-form tier, defaulting to none.
func ParseConfidence(value string) Confidence {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(value))); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceManual:
		return c
	default:
		return ConfidenceNone
	}
}

// Source tags which upstream origin produced a record.
type Source string

const (
	// SourceCriterion marks records scraped from per-visit collection pages.
	SourceCriterion Source = "criterion"
	// SourceLetterboxd marks records from community lists.
	SourceLetterboxd Source = "letterboxd"
	SourceManual     Source = "manual"
)

// Primary reports whether the source is the authoritative one.
func (s Source) Primary() bool { return s == SourceCriterion }

// UnknownMemberCount marks a collection aggregate whose membership is real
// but could not be counted. Zero means "not an aggregate".
const UnknownMemberCount = -1

// Guest types applied by directive; unset means person.
const (
	GuestTypeGroup     = "group"
	GuestTypeCharacter = "character"
	GuestTypeEvent     = "event"
)

// CatalogEntry is a canonical film or collection.
type CatalogEntry struct {
	FilmID       string   `json:"film_id"`
	Title        string   `json:"title"`
	Year         *int     `json:"year"`
	Director     string   `json:"director,omitempty"`
	SpineNumber  *int     `json:"spine_number,omitempty"`
	IsBoxSet     bool     `json:"is_box_set,omitempty"`
	CriterionURL string   `json:"criterion_url,omitempty"`
	TMDBID       int64    `json:"tmdb_id,omitempty"`
	IMDBID       string   `json:"imdb_id,omitempty"`
	PosterURL    string   `json:"poster_url,omitempty"`
	Genres       []string `json:"genres,omitempty"`
	Country      string   `json:"country,omitempty"`
	Synthetic    bool     `json:"synthetic,omitempty"`
}

// ClearEnrichment drops metadata fetched from external sources.
func (e *CatalogEntry) ClearEnrichment() {
	e.TMDBID = 0
	e.IMDBID = ""
	e.PosterURL = ""
	e.Genres = nil
}

// Enriched reports whether external metadata has been attached.
func (e *CatalogEntry) Enriched() bool {
	return e.TMDBID != 0
}

// Visit is one occasion on which a guest contributed picks.
type Visit struct {
	YouTubeVideoID    string `json:"youtube_video_id,omitempty"`
	YouTubeVideoURL   string `json:"youtube_video_url,omitempty"`
	VimeoVideoID      string `json:"vimeo_video_id,omitempty"`
	EpisodeDate       string `json:"episode_date,omitempty"`
	LetterboxdListURL string `json:"letterboxd_list_url,omitempty"`
	CriterionPageURL  string `json:"criterion_page_url,omitempty"`
}

// IsZero reports whether the visit carries no reference at all.
func (v Visit) IsZero() bool { return v == Visit{} }

// Guest is a canonical contributor identity.
type Guest struct {
	Slug              string  `json:"slug"`
	Name              string  `json:"name"`
	Profession        string  `json:"profession,omitempty"`
	PhotoURL          string  `json:"photo_url,omitempty"`
	EpisodeDate       string  `json:"episode_date,omitempty"`
	YouTubeVideoID    string  `json:"youtube_video_id,omitempty"`
	YouTubeVideoURL   string  `json:"youtube_video_url,omitempty"`
	VimeoVideoID      string  `json:"vimeo_video_id,omitempty"`
	LetterboxdListURL string  `json:"letterboxd_list_url,omitempty"`
	CriterionPageURL  string  `json:"criterion_page_url,omitempty"`
	Visits            []Visit `json:"visits,omitempty"`
	GuestType         string  `json:"guest_type,omitempty"`
	PickCount         int     `json:"pick_count"`
}

// TopLevelVisit builds a visit from the guest's own reference fields.
func (g *Guest) TopLevelVisit() Visit {
	return Visit{
		YouTubeVideoID:    g.YouTubeVideoID,
		YouTubeVideoURL:   g.YouTubeVideoURL,
		VimeoVideoID:      g.VimeoVideoID,
		EpisodeDate:       g.EpisodeDate,
		LetterboxdListURL: g.LetterboxdListURL,
		CriterionPageURL:  g.CriterionPageURL,
	}
}

// VisitCount is the number of valid visit indices, never less than one.
func (g *Guest) VisitCount() int {
	if len(g.Visits) == 0 {
		return 1
	}
	return len(g.Visits)
}

// HasVisit reports whether index (1-based) names an existing visit.
func (g *Guest) HasVisit(index int) bool {
	return index >= 1 && index <= g.VisitCount()
}

// RawPick is a low-level source-provenance record as scraped.
type RawPick struct {
	GuestSlug        string `json:"guest_slug"`
	FilmTitle        string `json:"film_title"`
	FilmYear         *int   `json:"film_year,omitempty"`
	CriterionFilmURL string `json:"criterion_film_url,omitempty"`
	FilmID           string `json:"film_id,omitempty"`
	CatalogSpine     *int   `json:"catalog_spine,omitempty"`
	CatalogTitle     string `json:"catalog_title,omitempty"`
	MatchMethod      string `json:"match_method,omitempty"`
	Source           Source `json:"source,omitempty"`
	VisitIndex       int    `json:"visit_index,omitempty"`
	BoxSetName       string `json:"box_set_name,omitempty"`
}

// Pick associates a guest visit with a catalog entry.
type Pick struct {
	GuestSlug            string     `json:"guest_slug"`
	FilmID               string     `json:"film_id"`
	FilmTitle            string     `json:"film_title"`
	Quote                string     `json:"quote"`
	StartTimestamp       *int       `json:"start_timestamp,omitempty"`
	YouTubeTimestampURL  string     `json:"youtube_timestamp_url,omitempty"`
	VimeoTimestampURL    string     `json:"vimeo_timestamp_url,omitempty"`
	ExtractionConfidence Confidence `json:"extraction_confidence"`
	Source               Source     `json:"source,omitempty"`
	VisitIndex           int        `json:"visit_index"`
	CatalogSpine         *int       `json:"catalog_spine,omitempty"`
	CriterionFilmURL     string     `json:"criterion_film_url,omitempty"`
	IsBoxSet             bool       `json:"is_box_set,omitempty"`
	BoxSetName           string     `json:"box_set_name,omitempty"`
	BoxSetFilmCount      int        `json:"box_set_film_count,omitempty"`
	BoxSetFilmTitles     []string   `json:"box_set_film_titles,omitempty"`
	BoxSetCriterionURL   string     `json:"box_set_criterion_url,omitempty"`
}

// IsAggregate reports whether the pick stands for a whole collection.
func (p *Pick) IsAggregate() bool { return p.BoxSetFilmCount != 0 }

// HasQuote reports whether a non-blank excerpt is attached.
func (p *Pick) HasQuote() bool { return strings.TrimSpace(p.Quote) != "" }

// Attested reports whether the guest specifically discussed this film:
// an excerpt at medium confidence or better.
func (p *Pick) Attested() bool {
	return p.HasQuote() && p.ExtractionConfidence.Rank() >= ConfidenceMedium.Rank()
}

// Displayable mirrors the public site rule: primary-source picks and picks
// with an excerpt are shown.
func (p *Pick) Displayable() bool {
	return p.Source.Primary() || p.HasQuote()
}

// CheckpointEntry records one completed unit of enrichment work.
type CheckpointEntry struct {
	ProcessedAt time.Time `json:"processed_at"`
	QuotesCount int       `json:"quotes_count"`
	PicksCount  int       `json:"picks_count"`
	Outcome     string    `json:"outcome,omitempty"`
}

// Checkpoint maps work keys (slug, slug_visitN, slug_metadata) to entries.
type Checkpoint map[string]CheckpointEntry
