package dataset

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// URLFamily distinguishes single-film pages from collection pages. Numeric
// ids are only comparable within one family.
type URLFamily string

const (
	FamilyFilm   URLFamily = "films"
	FamilyBoxSet URLFamily = "boxsets"
)

var (
	criterionPathPattern = regexp.MustCompile(`/(films|boxsets)/(\d+)`)
	vimeoPathPattern     = regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`)
	youTubeIDPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)
)

// CriterionRef is the family plus numeric id embedded in a Criterion URL.
type CriterionRef struct {
	Family URLFamily
	ID     string
}

// Key is a comparable form of the reference, e.g. "films/29".
func (r CriterionRef) Key() string {
	return fmt.Sprintf("%s/%s", r.Family, r.ID)
}

// ParseCriterionURL extracts the family and numeric id from a film or box
// set page URL. ok is false for anything else.
func ParseCriterionURL(raw string) (CriterionRef, bool) {
	m := criterionPathPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return CriterionRef{}, false
	}
	return CriterionRef{Family: URLFamily(m[1]), ID: m[2]}, true
}

// IsBoxSetURL reports whether raw points at a collection page.
func IsBoxSetURL(raw string) bool {
	ref, ok := ParseCriterionURL(raw)
	return ok && ref.Family == FamilyBoxSet
}

// YouTubeIDFromURL returns the video id from a watch URL (the v parameter)
// or a youtu.be short link.
func YouTubeIDFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	if host == "youtu.be" {
		id := strings.Trim(parsed.Path, "/")
		if youTubeIDPattern.MatchString(id) {
			return id
		}
		return ""
	}
	if !strings.HasSuffix(host, "youtube.com") {
		return ""
	}
	return parsed.Query().Get("v")
}

// VimeoIDFromURL returns the numeric video id from a Vimeo URL.
func VimeoIDFromURL(raw string) string {
	m := vimeoPathPattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return m[1]
}

// YouTubeTimestampURL links to a moment in a YouTube video.
func YouTubeTimestampURL(videoID string, seconds int) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s&t=%d", videoID, seconds)
}

// VimeoTimestampURL links to a moment in a Vimeo video.
func VimeoTimestampURL(videoID string, seconds int) string {
	return fmt.Sprintf("https://vimeo.com/%s#t=%ds", videoID, seconds)
}
