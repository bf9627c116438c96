package reconcile

import "closetpicks/internal/dataset"

// UpdatePickCounts recomputes every guest's pick_count: displayable picks,
// plus primary-source raw picks whose film id the guest has no pick for.
// It returns the number of guests whose count changed.
func UpdatePickCounts(ds *dataset.Dataset) int {
	counts := make(map[string]int, len(ds.Guests))
	processed := make(map[filmKey]bool, len(ds.Picks))
	for i := range ds.Picks {
		p := &ds.Picks[i]
		processed[filmKey{p.GuestSlug, p.FilmID}] = true
		if p.Displayable() {
			counts[p.GuestSlug]++
		}
	}
	for _, r := range ds.RawPicks {
		if !r.Source.Primary() || processed[filmKey{r.GuestSlug, r.FilmID}] {
			continue
		}
		counts[r.GuestSlug]++
	}

	changed := 0
	for i := range ds.Guests {
		g := &ds.Guests[i]
		if n := counts[g.Slug]; g.PickCount != n {
			g.PickCount = n
			changed++
		}
	}
	return changed
}
