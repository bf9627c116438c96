package enrich

import (
	"context"
	"log/slog"

	"closetpicks/internal/logging"
	"closetpicks/internal/services/tmdb"
)

// TMDBSource adapts the TMDB client to MetadataSource.
type TMDBSource struct {
	client        *tmdb.Client
	yearTolerance int
	logger        *slog.Logger
}

// NewTMDBSource returns a metadata source that rejects candidates whose
// release year differs from the known year by more than yearTolerance.
func NewTMDBSource(client *tmdb.Client, yearTolerance int, logger *slog.Logger) *TMDBSource {
	return &TMDBSource{
		client:        client,
		yearTolerance: yearTolerance,
		logger:        logging.NewComponentLogger(logger, "tmdb"),
	}
}

// Lookup searches with the year first and retries without it. The first
// result is the candidate; details supply ids, genres, and credits.
func (s *TMDBSource) Lookup(ctx context.Context, q MetadataQuery) (*Metadata, error) {
	year := 0
	if q.Year != nil {
		year = *q.Year
	}
	resp, err := s.client.SearchMovie(ctx, q.Title, year)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 && year > 0 {
		resp, err = s.client.SearchMovie(ctx, q.Title, 0)
		if err != nil {
			return nil, err
		}
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	candidate := resp.Results[0]
	if found := candidate.Year(); year > 0 && found > 0 && abs(year-found) > s.yearTolerance {
		attrs := append(logging.DecisionAttrs("metadata_candidate", "rejected", "release year mismatch"),
			logging.String("title", q.Title),
			logging.Int("year", year),
			logging.Int("candidate_year", found),
		)
		s.logger.Info("metadata candidate rejected", logging.Args(attrs...)...)
		return nil, nil
	}

	movie, err := s.client.MovieDetails(ctx, candidate.ID)
	if err != nil {
		return nil, err
	}
	meta := &Metadata{
		TMDBID:    movie.ID,
		IMDBID:    movie.IMDB(),
		PosterURL: s.client.PosterURL(movie.PosterPath),
		Genres:    movie.GenreNames(),
		Year:      movie.Year(),
	}
	if meta.TMDBID == 0 {
		meta.TMDBID = candidate.ID
	}
	if meta.PosterURL == "" {
		meta.PosterURL = s.client.PosterURL(candidate.PosterPath)
	}
	if directors := movie.Directors(); len(directors) > 0 {
		meta.Director = directors[0]
	}
	if len(movie.ProductionCountries) > 0 {
		meta.Country = movie.ProductionCountries[0].Name
	}
	return meta, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
