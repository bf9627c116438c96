package llm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"closetpicks/internal/services"
)

// ErrMalformedResponse marks a completion that was not a JSON array of
// excerpt objects. Such responses are discarded whole.
var ErrMalformedResponse = errors.New("malformed extraction response")

// Segment is one time-coded transcript line.
type Segment struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// Target is a pick the guest is known to have taken.
type Target struct {
	Title string
	Year  *int
}

// ExtractRequest asks for excerpts about Targets within Segments.
type ExtractRequest struct {
	Guest    string
	Targets  []Target
	Segments []Segment
}

// Excerpt is one extracted record as returned by the model.
type Excerpt struct {
	Title        string
	StartSeconds int
	Quote        string
	Confidence   string
}

type excerptPayload struct {
	FilmTitle      string   `json:"film_title"`
	StartTimestamp *float64 `json:"start_timestamp"`
	Quote          *string  `json:"quote"`
	Confidence     string   `json:"confidence"`
}

// Extract sends one extraction request. Anything other than a JSON array of
// objects yields ErrMalformedResponse.
func (c *Client) Extract(ctx context.Context, req ExtractRequest) ([]Excerpt, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "llm", "extract", "api key required", nil)
	}
	if len(req.Targets) == 0 {
		return nil, nil
	}
	transcript := FormatTranscript(req.Segments)
	if transcript == "" {
		return nil, services.Wrap(services.ErrValidation, "llm", "extract", "transcript is empty", nil)
	}
	content, err := c.complete(ctx, "extract", []chatMessage{
		{Role: "system", Content: ExtractionSystemPrompt},
		{Role: "user", Content: buildUserPrompt(req.Guest, req.Targets, transcript)},
	})
	if err != nil {
		return nil, err
	}
	return parseExcerpts(content)
}

func parseExcerpts(content string) ([]Excerpt, error) {
	var raw []excerptPayload
	if err := DecodeJSON(content, &raw); err != nil {
		return nil, services.Wrap(services.ErrCollaborator, "llm", "extract", "",
			fmt.Errorf("%w: %w", ErrMalformedResponse, err))
	}
	excerpts := make([]Excerpt, 0, len(raw))
	for _, item := range raw {
		excerpt := Excerpt{
			Title:      strings.TrimSpace(item.FilmTitle),
			Confidence: strings.ToLower(strings.TrimSpace(item.Confidence)),
		}
		if item.StartTimestamp != nil && *item.StartTimestamp > 0 {
			excerpt.StartSeconds = int(*item.StartTimestamp)
		}
		if item.Quote != nil {
			excerpt.Quote = strings.TrimSpace(*item.Quote)
		}
		if excerpt.Confidence == "" {
			excerpt.Confidence = "none"
		}
		excerpts = append(excerpts, excerpt)
	}
	return excerpts, nil
}

func buildUserPrompt(guest string, targets []Target, transcript string) string {
	var b strings.Builder
	b.WriteString("GUEST: ")
	b.WriteString(strings.TrimSpace(guest))
	b.WriteString("\n\nKNOWN PICKS:\n")
	b.WriteString(FormatTargets(targets))
	b.WriteString("\n\nTRANSCRIPT (timestamps in seconds):\n")
	b.WriteString(transcript)
	return b.String()
}

// FormatTranscript renders segments as "[Ns] text" lines, skipping blank
// text.
func FormatTranscript(segments []Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		lines = append(lines, "["+strconv.Itoa(int(seg.Start))+"s] "+text)
	}
	return strings.Join(lines, "\n")
}

// FormatTargets renders a numbered pick list with years where known.
func FormatTargets(targets []Target) string {
	lines := make([]string, 0, len(targets))
	for i, target := range targets {
		title := strings.TrimSpace(target.Title)
		if title == "" {
			title = "Unknown"
		}
		line := strconv.Itoa(i+1) + ". " + title
		if target.Year != nil && *target.Year > 0 {
			line += " (" + strconv.Itoa(*target.Year) + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
