package directives

import (
	"slices"

	"closetpicks/internal/textutil"
)

// MergeKind selects how a secondary guest is folded into a primary.
type MergeKind string

const (
	// MergeRepeatVisit treats the secondary as a second occasion and extends
	// the primary's visit list.
	MergeRepeatVisit MergeKind = "repeat_visit"
	// MergeNameVariant folds a differently rendered name into the primary.
	MergeNameVariant MergeKind = "name_variant"
	// MergeSoloIntoPair folds a solo record split out of a joint appearance
	// into the pair record.
	MergeSoloIntoPair MergeKind = "solo_into_pair"
)

// GuestMerge folds Secondary into Primary.
type GuestMerge struct {
	Kind      MergeKind `json:"kind" yaml:"kind" validate:"required,oneof=repeat_visit name_variant solo_into_pair"`
	Primary   string    `json:"primary" yaml:"primary" validate:"required"`
	Secondary string    `json:"secondary" yaml:"secondary" validate:"required,nefield=Primary"`
}

// SyntheticPair combines solo records that shared one occasion into a new
// paired identity.
type SyntheticPair struct {
	Slug        string   `json:"slug" yaml:"slug" validate:"required"`
	Name        string   `json:"name" yaml:"name" validate:"required"`
	From        []string `json:"from" yaml:"from" validate:"min=2,dive,required"`
	SharedVideo string   `json:"shared_video" yaml:"shared_video"`
}

// NameFix rewrites a scraped display name.
type NameFix struct {
	From string `json:"from" yaml:"from" validate:"required"`
	To   string `json:"to" yaml:"to" validate:"required"`
}

// VideoFix clears a video reference known to belong to another guest.
type VideoFix struct {
	Slug    string `json:"slug" yaml:"slug" validate:"required"`
	VideoID string `json:"video_id" yaml:"video_id" validate:"required"`
}

// GuestType tags a non-person guest.
type GuestType struct {
	Slug string `json:"slug" yaml:"slug" validate:"required"`
	Type string `json:"type" yaml:"type" validate:"required,oneof=person group character event"`
}

// SpineCorrection is the authoritative identity of the catalog entry that
// carries Spine.
type SpineCorrection struct {
	Spine        int    `json:"spine" yaml:"spine" validate:"gt=0"`
	FilmID       string `json:"film_id" yaml:"film_id" validate:"required"`
	Title        string `json:"title" yaml:"title" validate:"required"`
	Year         *int   `json:"year" yaml:"year" validate:"omitempty,gte=1880,lte=2100"`
	Director     string `json:"director" yaml:"director"`
	CriterionURL string `json:"criterion_url" yaml:"criterion_url" validate:"omitempty,url"`
}

// CollectionDef describes a box set: its canonical name, name variants seen
// in scraped data, known member titles, and its page URL.
type CollectionDef struct {
	Name    string   `json:"name" yaml:"name" validate:"required"`
	Aliases []string `json:"aliases" yaml:"aliases" validate:"dive,required"`
	Titles  []string `json:"titles" yaml:"titles" validate:"dive,required"`
	URL     string   `json:"url" yaml:"url" validate:"omitempty,url"`
}

// URLFix replaces a stale collection URL on a catalog entry.
type URLFix struct {
	FilmID string `json:"film_id" yaml:"film_id" validate:"required"`
	URL    string `json:"url" yaml:"url" validate:"required,url"`
}

// Table is the full directive set, applied in field order.
type Table struct {
	NameFixes        []NameFix         `json:"name_fixes" yaml:"name_fixes" validate:"dive"`
	GuestMerges      []GuestMerge      `json:"guest_merges" yaml:"guest_merges" validate:"dive"`
	SyntheticPairs   []SyntheticPair   `json:"synthetic_pairs" yaml:"synthetic_pairs" validate:"dive"`
	VideoFixes       []VideoFix        `json:"video_fixes" yaml:"video_fixes" validate:"dive"`
	GuestTypes       []GuestType       `json:"guest_types" yaml:"guest_types" validate:"dive"`
	SpineCorrections []SpineCorrection `json:"spine_corrections" yaml:"spine_corrections" validate:"dive"`
	Collections      []CollectionDef   `json:"collections" yaml:"collections" validate:"dive"`
	URLFixes         []URLFix          `json:"url_fixes" yaml:"url_fixes" validate:"dive"`
}

// Merges returns the guest merges of kind, in table order.
func (t *Table) Merges(kind MergeKind) []GuestMerge {
	var out []GuestMerge
	for _, m := range t.GuestMerges {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Extend returns a new table holding t's entries followed by other's.
func (t *Table) Extend(other *Table) *Table {
	if other == nil {
		return t.clone()
	}
	return &Table{
		NameFixes:        slices.Concat(t.NameFixes, other.NameFixes),
		GuestMerges:      slices.Concat(t.GuestMerges, other.GuestMerges),
		SyntheticPairs:   slices.Concat(t.SyntheticPairs, other.SyntheticPairs),
		VideoFixes:       slices.Concat(t.VideoFixes, other.VideoFixes),
		GuestTypes:       slices.Concat(t.GuestTypes, other.GuestTypes),
		SpineCorrections: slices.Concat(t.SpineCorrections, other.SpineCorrections),
		Collections:      slices.Concat(t.Collections, other.Collections),
		URLFixes:         slices.Concat(t.URLFixes, other.URLFixes),
	}
}

func (t *Table) clone() *Table {
	return t.Extend(&Table{})
}

// Len counts every directive in the table.
func (t *Table) Len() int {
	return len(t.NameFixes) + len(t.GuestMerges) + len(t.SyntheticPairs) + len(t.VideoFixes) +
		len(t.GuestTypes) + len(t.SpineCorrections) + len(t.Collections) + len(t.URLFixes)
}

// CollectionNames maps every known rendering of a collection name (canonical
// names and aliases, smart quotes normalized) to its canonical name.
func (t *Table) CollectionNames() map[string]string {
	out := make(map[string]string, len(t.Collections)*2)
	for _, c := range t.Collections {
		canonical := textutil.NormalizeQuotes(c.Name)
		out[canonical] = canonical
		for _, alias := range c.Aliases {
			out[textutil.NormalizeQuotes(alias)] = canonical
		}
	}
	return out
}

// Collection returns the definition whose canonical name is name.
func (t *Table) Collection(name string) (CollectionDef, bool) {
	for _, c := range t.Collections {
		if textutil.NormalizeQuotes(c.Name) == name {
			return c, true
		}
	}
	return CollectionDef{}, false
}
