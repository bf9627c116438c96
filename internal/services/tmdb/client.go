package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"closetpicks/internal/services"
)

// DefaultImageBaseURL serves poster images.
const DefaultImageBaseURL = "https://image.tmdb.org/t/p"

// PosterSize is the rendition stored in the catalog.
const PosterSize = "w185"

// Result represents a single TMDB search match.
type Result struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	GenreIDs    []int   `json:"genre_ids"`
	Popularity  float64 `json:"popularity"`
}

// Year parses the release year, zero when unknown.
func (r Result) Year() int { return releaseYear(r.ReleaseDate) }

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Genre is a named TMDB genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Country is a production country.
type Country struct {
	ISO  string `json:"iso_3166_1"`
	Name string `json:"name"`
}

// CrewMember is one crew credit.
type CrewMember struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Job  string `json:"job"`
}

// Movie is the details payload with credits and external ids appended.
type Movie struct {
	ID                  int64     `json:"id"`
	Title               string    `json:"title"`
	ReleaseDate         string    `json:"release_date"`
	PosterPath          string    `json:"poster_path"`
	IMDBID              string    `json:"imdb_id"`
	Genres              []Genre   `json:"genres"`
	ProductionCountries []Country `json:"production_countries"`
	Credits             struct {
		Crew []CrewMember `json:"crew"`
	} `json:"credits"`
	ExternalIDs struct {
		IMDBID string `json:"imdb_id"`
	} `json:"external_ids"`
}

// Year parses the release year, zero when unknown.
func (m *Movie) Year() int { return releaseYear(m.ReleaseDate) }

// IMDB returns the IMDb id from either location TMDB reports it.
func (m *Movie) IMDB() string {
	if id := strings.TrimSpace(m.IMDBID); id != "" {
		return id
	}
	return strings.TrimSpace(m.ExternalIDs.IMDBID)
}

// Directors lists crew credited with the Director job, in billing order.
func (m *Movie) Directors() []string {
	var names []string
	for _, member := range m.Credits.Crew {
		if member.Job == "Director" && strings.TrimSpace(member.Name) != "" {
			names = append(names, strings.TrimSpace(member.Name))
		}
	}
	return names
}

// GenreNames lists genre names in TMDB order.
func (m *Movie) GenreNames() []string {
	names := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		if g.Name != "" {
			names = append(names, g.Name)
		}
	}
	return names
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey       string
	baseURL      string
	language     string
	imageBaseURL string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithRateLimit paces requests to rps per second. Zero or negative disables
// pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithImageBaseURL overrides the poster host.
func WithImageBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimSpace(base); base != "" {
			c.imageBaseURL = strings.TrimRight(base, "/")
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tmdb", "new client", "api key required", nil)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tmdb", "new client", "base url required", nil)
	}
	client := &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		language:     strings.TrimSpace(language),
		imageBaseURL: DefaultImageBaseURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// PosterURL expands a poster path into an absolute image URL.
func (c *Client) PosterURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return c.imageBaseURL + "/" + PosterSize + "/" + strings.TrimLeft(path, "/")
}

// SearchMovie searches TMDB for title. year <= 0 searches without a year
// filter.
func (c *Client) SearchMovie(ctx context.Context, title string, year int) (*Response, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "search movie", "query must not be empty", nil)
	}
	params := url.Values{}
	params.Set("query", title)
	if year > 0 {
		params.Set("primary_release_year", strconv.Itoa(year))
	}
	var payload Response
	if err := c.get(ctx, "search movie", "/search/movie", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// MovieDetails fetches a movie with credits and external ids appended.
func (c *Client) MovieDetails(ctx context.Context, movieID int64) (*Movie, error) {
	if movieID <= 0 {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "movie details", "movie id must be positive", nil)
	}
	params := url.Values{}
	params.Set("append_to_response", "credits,external_ids")
	var payload Movie
	if err := c.get(ctx, "movie details", fmt.Sprintf("/movie/%d", movieID), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, target any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "tmdb", op, "parse url", err)
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("tmdb %s: wait for rate limiter: %w", op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("tmdb %s: build request: %w", op, err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(transportMarker(err), "tmdb", op, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return services.Wrap(statusMarker(resp.StatusCode), "tmdb", op,
			fmt.Sprintf("returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return services.Wrap(services.ErrCollaborator, "tmdb", op, "decode response", err)
	}
	return nil
}

func statusMarker(status int) error {
	switch {
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return services.ErrTransient
	case status == http.StatusRequestTimeout:
		return services.ErrTimeout
	case status == http.StatusNotFound:
		return services.ErrNotFound
	default:
		return services.ErrCollaborator
	}
}

func transportMarker(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.ErrTimeout
	}
	return services.ErrTransient
}

func releaseYear(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
