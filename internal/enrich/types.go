package enrich

import (
	"context"

	"closetpicks/internal/dataset"
	"closetpicks/internal/services/llm"
)

// MetadataQuery identifies the film to look up.
type MetadataQuery struct {
	Title string
	Year  *int
	URL   string
}

// Metadata is the single candidate a metadata source returns.
type Metadata struct {
	TMDBID    int64
	IMDBID    string
	PosterURL string
	Genres    []string
	Director  string
	Country   string
	Year      int
}

// MetadataSource returns zero or one candidate. A nil result with a nil
// error means no candidate.
type MetadataSource interface {
	Lookup(ctx context.Context, q MetadataQuery) (*Metadata, error)
}

// Extractor returns excerpt records for the request's targets.
type Extractor interface {
	Extract(ctx context.Context, req llm.ExtractRequest) ([]llm.Excerpt, error)
}

// TranscriptSource loads time-coded segments for a video id.
type TranscriptSource interface {
	Transcript(videoID string) ([]llm.Segment, error)
}

// Checkpoint persists completed work keys.
type Checkpoint interface {
	Load() (dataset.Checkpoint, error)
	Update(key string, entry dataset.CheckpointEntry) error
}

// Pass names used in logs, metrics, and reports.
const (
	PassMetadata   = "metadata"
	PassExtraction = "extraction"
	PassVisits     = "extraction_visits"
)

// PassReport summarizes one pass.
type PassReport struct {
	Considered   int `json:"considered"`
	Skipped      int `json:"skipped"`
	Enriched     int `json:"enriched"`
	NoEnrichment int `json:"no_enrichment"`
	Excerpts     int `json:"excerpts"`
	Upgraded     int `json:"upgraded"`
}

func (r *PassReport) add(other PassReport) {
	r.Considered += other.Considered
	r.Skipped += other.Skipped
	r.Enriched += other.Enriched
	r.NoEnrichment += other.NoEnrichment
	r.Excerpts += other.Excerpts
	r.Upgraded += other.Upgraded
}

// Report is the outcome of an enrichment run.
type Report struct {
	Metadata     PassReport `json:"metadata"`
	Extraction   PassReport `json:"extraction"`
	VisitsSecond PassReport `json:"visits_second_pass"`
}
