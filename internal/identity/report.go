package identity

// Directive classes, in application order.
const (
	DirectiveNameFix       = "name_fix"
	DirectiveRepeatVisit   = "repeat_visit"
	DirectiveNameVariant   = "name_variant"
	DirectiveSoloIntoPair  = "solo_into_pair"
	DirectiveSyntheticPair = "synthetic_pair"
	DirectiveVideoFix      = "video_fix"
	DirectiveGuestType     = "guest_type"
)

// MergeRecord is one absorbed slug. The run ledger persists these as the
// aliases-merged-from relation.
type MergeRecord struct {
	Directive  string `json:"directive"`
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	PicksMoved int    `json:"picks_moved"`
	RawMoved   int    `json:"raw_moved"`
}

// Skip is a directive that named a record that does not exist.
type Skip struct {
	Directive string `json:"directive"`
	Target    string `json:"target"`
	Reason    string `json:"reason"`
}

// Report summarizes one resolver run.
type Report struct {
	Changes map[string]int `json:"changes,omitempty"`
	Merges  []MergeRecord  `json:"merges,omitempty"`
	Skips   []Skip         `json:"skips,omitempty"`
}

func (r *Report) changed(directive string, n int) {
	if n == 0 {
		return
	}
	if r.Changes == nil {
		r.Changes = make(map[string]int)
	}
	r.Changes[directive] += n
}

// Total counts every change the run made.
func (r Report) Total() int {
	total := 0
	for _, n := range r.Changes {
		total += n
	}
	return total
}
