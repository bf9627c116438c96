package reconcile

import (
	"closetpicks/internal/dataset"
)

// DedupReport counts records dropped as duplicates.
type DedupReport struct {
	Picks    int `json:"picks"`
	RawPicks int `json:"raw_picks"`
}

type filmKey struct {
	guest string
	film  string
}

// Dedup keeps one pick per (guest, film id): the one with the highest
// extraction confidence, the earliest on ties. The survivor takes the
// position of the first occurrence. Raw picks are deduplicated on the same
// key, preferring the primary source; raw picks without a film id are kept.
func Dedup(ds *dataset.Dataset) DedupReport {
	var report DedupReport

	slot := make(map[filmKey]int, len(ds.Picks))
	picks := ds.Picks[:0]
	for _, p := range ds.Picks {
		key := filmKey{p.GuestSlug, p.FilmID}
		at, seen := slot[key]
		if !seen {
			slot[key] = len(picks)
			picks = append(picks, p)
			continue
		}
		report.Picks++
		if p.ExtractionConfidence.Rank() > picks[at].ExtractionConfidence.Rank() {
			picks[at] = p
		}
	}
	ds.Picks = picks

	rawSlot := make(map[filmKey]int, len(ds.RawPicks))
	raws := ds.RawPicks[:0]
	for _, r := range ds.RawPicks {
		if r.FilmID == "" {
			raws = append(raws, r)
			continue
		}
		key := filmKey{r.GuestSlug, r.FilmID}
		at, seen := rawSlot[key]
		if !seen {
			rawSlot[key] = len(raws)
			raws = append(raws, r)
			continue
		}
		report.RawPicks++
		if r.Source.Primary() && !raws[at].Source.Primary() {
			raws[at] = r
		}
	}
	ds.RawPicks = raws

	return report
}
