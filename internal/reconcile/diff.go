package reconcile

import (
	"bytes"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"closetpicks/internal/dataset"
	"closetpicks/internal/store"
)

// DocumentDiff is the line-level change to one document.
type DocumentDiff struct {
	Name    string `json:"name"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
	// Lines holds the changed lines prefixed with "+ " or "- ".
	Lines []string `json:"lines,omitempty"`
}

// Changed reports whether the document differs.
func (d DocumentDiff) Changed() bool { return d.Added+d.Removed > 0 }

// Diff compares encoded documents by line, in document write order.
// Documents equal on both sides are omitted.
func Diff(before, after map[string][]byte) []DocumentDiff {
	dmp := diffmatchpatch.New()
	var out []DocumentDiff
	for _, name := range store.DocumentFiles {
		old, updated := before[name], after[name]
		if bytes.Equal(old, updated) {
			continue
		}
		a, b, lines := dmp.DiffLinesToChars(string(old), string(updated))
		diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

		doc := DocumentDiff{Name: name}
		for _, d := range diffs {
			var prefix string
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				prefix = "+ "
			case diffmatchpatch.DiffDelete:
				prefix = "- "
			default:
				continue
			}
			for _, line := range splitLines(d.Text) {
				doc.Lines = append(doc.Lines, prefix+line)
				if d.Type == diffmatchpatch.DiffInsert {
					doc.Added++
				} else {
					doc.Removed++
				}
			}
		}
		if doc.Changed() {
			out = append(out, doc)
		}
	}
	return out
}

// DiffStore compares ds, encoded, with the documents currently in st.
func DiffStore(st *store.Store, ds *dataset.Dataset) ([]DocumentDiff, error) {
	after, err := store.Documents(ds)
	if err != nil {
		return nil, err
	}
	before := make(map[string][]byte, len(store.DocumentFiles))
	for _, name := range store.DocumentFiles {
		data, err := st.ReadRaw(name)
		if err != nil {
			return nil, err
		}
		before[name] = data
	}
	return Diff(before, after), nil
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
