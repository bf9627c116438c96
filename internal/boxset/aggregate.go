// Package boxset turns picks of collection members into collection
// aggregates while keeping individually discussed films standalone.
package boxset

import (
	"log/slog"
	"slices"
	"strings"

	"closetpicks/internal/dataset"
	"closetpicks/internal/directives"
	"closetpicks/internal/logging"
	"closetpicks/internal/textutil"
)

// Report summarizes one aggregation run.
type Report struct {
	NamesCanonicalized int `json:"names_canonicalized"`
	CatalogMarked      int `json:"catalog_marked"`
	URLsFixed          int `json:"urls_fixed"`
	UnitsConverted     int `json:"units_converted"`
	QuotesPreserved    int `json:"quotes_preserved"`
	MembersTagged      int `json:"members_tagged"`
	AggregatesCreated  int `json:"aggregates_created"`
	PicksCollapsed     int `json:"picks_collapsed"`
	AggregatesMerged   int `json:"aggregates_merged"`
	URLsPropagated     int `json:"urls_propagated"`
}

// Changed reports whether any record was rewritten. Member tagging is
// excluded because it is re-applied on every run.
func (r Report) Changed() bool {
	return r.NamesCanonicalized+r.CatalogMarked+r.URLsFixed+r.UnitsConverted+
		r.AggregatesCreated+r.AggregatesMerged+r.URLsPropagated > 0
}

type memberSet struct {
	keys   map[string]bool
	titles []string
}

func (m *memberSet) add(title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	k := textutil.FoldKey(title)
	if m.keys[k] {
		return
	}
	m.keys[k] = true
	m.titles = append(m.titles, title)
}

func (m *memberSet) size() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

type aggregator struct {
	ds     *dataset.Dataset
	table  *directives.Table
	logger *slog.Logger
	report Report

	names        map[string]string
	urls         map[string]string
	rawURLByFilm map[string]string
	members      map[string]*memberSet
	annotations  map[string]string
	knownTitles  map[string]string
	collectionID map[string]string
}

// Aggregate canonicalizes collection names, repairs collection catalog
// entries, converts unit picks, groups un-attested member picks per guest,
// merges duplicate aggregates, and propagates collection URLs.
func Aggregate(ds *dataset.Dataset, table *directives.Table, logger *slog.Logger) Report {
	if table == nil {
		table = &directives.Table{}
	}
	a := &aggregator{
		ds:     ds,
		table:  table,
		logger: logging.NewComponentLogger(logger, "boxset"),
		names:  table.CollectionNames(),
	}
	a.canonicalizeNames()
	a.buildURLTables()
	a.repairCatalog()
	a.buildMembership()
	a.convertUnitPicks()
	a.groupMembers()
	a.mergeAggregates()
	a.propagateURLs()

	r := a.report
	a.logger.Info("collection aggregation complete",
		slog.Int("units_converted", r.UnitsConverted),
		slog.Int("aggregates_created", r.AggregatesCreated),
		slog.Int("picks_collapsed", r.PicksCollapsed),
		slog.Int("aggregates_merged", r.AggregatesMerged),
		slog.Int("urls_propagated", r.URLsPropagated),
	)
	return r
}

func (a *aggregator) canonical(name string) string {
	n := strings.TrimSpace(textutil.NormalizeQuotes(name))
	if c, ok := a.names[n]; ok {
		return c
	}
	return n
}

func (a *aggregator) canonicalizeNames() {
	for i := range a.ds.Picks {
		p := &a.ds.Picks[i]
		before := [2]string{p.BoxSetName, p.FilmTitle}
		if p.BoxSetName != "" {
			unit := p.FilmTitle == p.BoxSetName
			p.BoxSetName = a.canonical(p.BoxSetName)
			if unit {
				p.FilmTitle = p.BoxSetName
			}
		}
		if _, known := a.names[textutil.NormalizeQuotes(p.FilmTitle)]; known {
			p.FilmTitle = a.canonical(p.FilmTitle)
		}
		if before != [2]string{p.BoxSetName, p.FilmTitle} {
			a.report.NamesCanonicalized++
		}
	}
	for i := range a.ds.RawPicks {
		r := &a.ds.RawPicks[i]
		if r.BoxSetName != "" {
			r.BoxSetName = a.canonical(r.BoxSetName)
		}
	}
}

func (a *aggregator) buildURLTables() {
	a.urls = make(map[string]string)
	for _, c := range a.table.Collections {
		if c.URL != "" {
			a.urls[a.canonical(c.Name)] = c.URL
		}
	}
	a.rawURLByFilm = make(map[string]string)
	for _, r := range a.ds.RawPicks {
		if !dataset.IsBoxSetURL(r.CriterionFilmURL) {
			continue
		}
		if name := a.canonical(r.FilmTitle); name != "" {
			if _, ok := a.urls[name]; !ok {
				a.urls[name] = r.CriterionFilmURL
			}
		}
		if r.FilmID != "" {
			if _, ok := a.rawURLByFilm[r.FilmID]; !ok {
				a.rawURLByFilm[r.FilmID] = r.CriterionFilmURL
			}
		}
	}
}

func (a *aggregator) repairCatalog() {
	fixed := make(map[string]bool, len(a.table.URLFixes))
	for _, fix := range a.table.URLFixes {
		fixed[fix.FilmID] = true
	}
	for i := range a.ds.Catalog {
		e := &a.ds.Catalog[i]
		if raw, ok := a.rawURLByFilm[e.FilmID]; ok && !fixed[e.FilmID] {
			if e.CriterionURL == "" {
				e.CriterionURL = raw
			} else if e.CriterionURL != raw {
				a.logger.Info("collection url replaced from source record",
					slog.String("film_id", e.FilmID),
					slog.String("from", e.CriterionURL),
					slog.String("to", raw),
				)
				e.CriterionURL = raw
				a.report.URLsFixed++
			}
		}
		if !e.IsBoxSet && (dataset.IsBoxSetURL(e.CriterionURL) || a.rawURLByFilm[e.FilmID] != "") {
			e.IsBoxSet = true
			a.report.CatalogMarked++
		}
	}
	for _, fix := range a.table.URLFixes {
		e := a.ds.CatalogEntry(fix.FilmID)
		if e == nil || e.CriterionURL == fix.URL {
			continue
		}
		a.logger.Info("stale collection url fixed",
			slog.String("film_id", fix.FilmID),
			slog.String("from", e.CriterionURL),
			slog.String("to", fix.URL),
		)
		e.CriterionURL = fix.URL
		e.IsBoxSet = e.IsBoxSet || dataset.IsBoxSetURL(fix.URL)
		a.report.URLsFixed++
		for i := range a.ds.Picks {
			if a.ds.Picks[i].FilmID == fix.FilmID {
				a.ds.Picks[i].CriterionFilmURL = fix.URL
			}
		}
	}
}

func (a *aggregator) memberSetFor(name string) *memberSet {
	m, ok := a.members[name]
	if !ok {
		m = &memberSet{keys: make(map[string]bool)}
		a.members[name] = m
	}
	return m
}

// buildMembership unions three membership signals: catalog title
// annotations, known collection title lists, and source records that name
// their collection.
func (a *aggregator) buildMembership() {
	a.members = make(map[string]*memberSet)
	a.annotations = make(map[string]string)
	a.knownTitles = make(map[string]string)
	a.collectionID = make(map[string]string)

	for _, e := range a.ds.Catalog {
		if annotation, ok := textutil.CollectionAnnotation(e.Title); ok {
			name := a.canonical(annotation)
			base, _, _ := textutil.TrailingParenthetical(e.Title)
			a.memberSetFor(name).add(base)
			if e.FilmID != "" {
				a.annotations[e.FilmID] = name
			}
		}
		if e.IsBoxSet {
			key := textutil.FoldKey(a.canonical(e.Title))
			if _, ok := a.collectionID[key]; !ok {
				a.collectionID[key] = e.FilmID
			}
		}
	}
	for _, c := range a.table.Collections {
		name := a.canonical(c.Name)
		for _, title := range c.Titles {
			a.memberSetFor(name).add(title)
			k := textutil.FoldKey(title)
			if _, ok := a.knownTitles[k]; !ok {
				a.knownTitles[k] = name
			}
		}
	}
	for _, r := range a.ds.RawPicks {
		if r.BoxSetName == "" || a.canonical(r.FilmTitle) == r.BoxSetName {
			continue
		}
		a.memberSetFor(r.BoxSetName).add(r.FilmTitle)
	}
}

// memberCount is the known membership size, the name-inferred size, or
// UnknownMemberCount.
func (a *aggregator) memberCount(name string) int {
	if n := a.members[name].size(); n > 0 {
		return n
	}
	if n, ok := InferCount(name); ok {
		return n
	}
	return dataset.UnknownMemberCount
}

func (a *aggregator) memberTitles(name string) []string {
	m := a.members[name]
	if m == nil {
		return nil
	}
	titles := slices.Clone(m.titles)
	slices.Sort(titles)
	return titles
}

func (a *aggregator) aggregateID(name string) string {
	if id, ok := a.collectionID[textutil.FoldKey(name)]; ok {
		return id
	}
	return textutil.Slugify(name)
}

// convertUnitPicks turns picks of a whole collection into aggregates in
// place, keeping any excerpt they carry.
func (a *aggregator) convertUnitPicks() {
	for i := range a.ds.Picks {
		p := &a.ds.Picks[i]
		if p.IsAggregate() {
			continue
		}
		unit := p.BoxSetName != "" && p.FilmTitle == p.BoxSetName
		if !unit {
			if e := a.ds.CatalogEntry(p.FilmID); e != nil && e.IsBoxSet {
				unit = true
				if p.BoxSetName == "" {
					p.BoxSetName = a.canonical(p.FilmTitle)
				}
			}
		}
		if !unit || p.BoxSetName == "" {
			continue
		}
		p.IsBoxSet = true
		p.BoxSetFilmCount = a.memberCount(p.BoxSetName)
		if len(p.BoxSetFilmTitles) == 0 {
			p.BoxSetFilmTitles = a.memberTitles(p.BoxSetName)
		}
		a.report.UnitsConverted++
		if p.HasQuote() {
			a.report.QuotesPreserved++
		}
	}
}

func (a *aggregator) detect(p *dataset.Pick) string {
	if name, ok := a.annotations[p.FilmID]; ok {
		return name
	}
	return a.knownTitles[textutil.FoldKey(p.FilmTitle)]
}

// groupMembers partitions each guest's member picks. Attested picks stay
// standalone and are tagged; two or more un-attested members collapse into
// one aggregate that takes the first member's position.
func (a *aggregator) groupMembers() {
	type group struct {
		guest   string
		name    string
		indices []int
	}
	var groups []*group
	byKey := make(map[[2]string]*group)

	for i := range a.ds.Picks {
		p := &a.ds.Picks[i]
		if p.IsAggregate() {
			continue
		}
		name := a.detect(p)
		if name == "" {
			continue
		}
		if p.Attested() {
			if !p.IsBoxSet || p.BoxSetName != name {
				p.IsBoxSet = true
				p.BoxSetName = name
			}
			a.report.MembersTagged++
			continue
		}
		key := [2]string{p.GuestSlug, name}
		g, ok := byKey[key]
		if !ok {
			g = &group{guest: p.GuestSlug, name: name}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.indices = append(g.indices, i)
	}

	drop := make(map[int]bool)
	for _, g := range groups {
		if len(g.indices) < 2 {
			continue
		}
		first := &a.ds.Picks[g.indices[0]]
		titles := make([]string, 0, len(g.indices))
		for _, idx := range g.indices {
			titles = append(titles, a.ds.Picks[idx].FilmTitle)
		}
		agg := *first
		agg.FilmID = a.aggregateID(g.name)
		agg.FilmTitle = g.name
		agg.Quote = ""
		agg.StartTimestamp = nil
		agg.YouTubeTimestampURL = ""
		agg.VimeoTimestampURL = ""
		agg.ExtractionConfidence = dataset.ConfidenceNone
		agg.CatalogSpine = nil
		agg.CriterionFilmURL = ""
		agg.IsBoxSet = true
		agg.BoxSetName = g.name
		agg.BoxSetFilmTitles = titles
		agg.BoxSetFilmCount = max(len(g.indices), a.members[g.name].size())
		agg.BoxSetCriterionURL = a.urls[g.name]
		a.ds.Picks[g.indices[0]] = agg
		for _, idx := range g.indices[1:] {
			drop[idx] = true
		}
		a.report.AggregatesCreated++
		a.report.PicksCollapsed += len(g.indices) - 1
		a.logger.Info("collection members grouped",
			slog.String(logging.FieldGuest, g.guest),
			slog.String("collection", g.name),
			slog.Int("members", len(g.indices)),
		)
	}
	a.dropPicks(drop)
}

func (a *aggregator) dropPicks(drop map[int]bool) {
	if len(drop) == 0 {
		return
	}
	kept := a.ds.Picks[:0]
	for i, p := range a.ds.Picks {
		if !drop[i] {
			kept = append(kept, p)
		}
	}
	a.ds.Picks = kept
}

// mergeAggregates folds duplicate aggregates for one guest and collection
// into the first, preferring a non-empty excerpt and the higher count.
func (a *aggregator) mergeAggregates() {
	survivors := make(map[[2]string]int)
	drop := make(map[int]bool)
	for i := range a.ds.Picks {
		p := &a.ds.Picks[i]
		if !p.IsAggregate() || p.BoxSetName == "" {
			continue
		}
		key := [2]string{p.GuestSlug, p.BoxSetName}
		si, ok := survivors[key]
		if !ok {
			survivors[key] = i
			continue
		}
		s := &a.ds.Picks[si]
		if !s.HasQuote() && p.HasQuote() {
			s.Quote = p.Quote
			s.ExtractionConfidence = p.ExtractionConfidence
			s.StartTimestamp = p.StartTimestamp
			s.YouTubeTimestampURL = p.YouTubeTimestampURL
			s.VimeoTimestampURL = p.VimeoTimestampURL
		}
		if p.BoxSetFilmCount > s.BoxSetFilmCount {
			s.BoxSetFilmCount = p.BoxSetFilmCount
		}
		for _, t := range p.BoxSetFilmTitles {
			if !slices.Contains(s.BoxSetFilmTitles, t) {
				s.BoxSetFilmTitles = append(s.BoxSetFilmTitles, t)
			}
		}
		if s.BoxSetCriterionURL == "" {
			s.BoxSetCriterionURL = p.BoxSetCriterionURL
		}
		drop[i] = true
		a.report.AggregatesMerged++
	}
	a.dropPicks(drop)
}

func (a *aggregator) propagateURLs() {
	for i := range a.ds.Picks {
		p := &a.ds.Picks[i]
		if !p.IsBoxSet || p.BoxSetCriterionURL != "" {
			continue
		}
		url := a.urls[p.BoxSetName]
		if url == "" {
			url = a.rawURLByFilm[p.FilmID]
		}
		if url == "" {
			if e := a.ds.CatalogEntry(p.FilmID); e != nil && dataset.IsBoxSetURL(e.CriterionURL) {
				url = e.CriterionURL
			}
		}
		if url != "" {
			p.BoxSetCriterionURL = url
			a.report.URLsPropagated++
		}
	}
}
