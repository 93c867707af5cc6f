package core

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CollationLocale is the language used for locale-aware comparison of group labels.
var CollationLocale = language.English

// newCollator returns a collator for CollationLocale.
// Collators keep internal buffers, so each caller gets its own.
func newCollator() *collate.Collator {
	return collate.New(CollationLocale)
}

// Reorder sorts records by discipline (and code when groupByCode is set) using
// locale comparison, keeping the original relative order within a group, and
// assigns RowNumber 1..N in the resulting order. The input is not modified.
//
// Reorder is idempotent: Reorder(Reorder(x)) equals Reorder(x).
func Reorder(records []ElementRecord, groupByCode bool) []ElementRecord {
	out := make([]ElementRecord, len(records))
	copy(out, records)

	col := newCollator()
	sort.SliceStable(out, func(i, j int) bool {
		if c := compareLabels(col, out[i].DisciplineLabel(), out[j].DisciplineLabel()); c != 0 {
			return c < 0
		}
		if groupByCode {
			return compareLabels(col, out[i].CodeLabel(), out[j].CodeLabel()) < 0
		}
		return false
	})

	for i := range out {
		out[i].RowNumber = i + 1
	}
	return out
}

// sortLabels sorts group labels in place by locale comparison.
func sortLabels(labels []string) {
	col := newCollator()
	sort.SliceStable(labels, func(i, j int) bool {
		return compareLabels(col, labels[i], labels[j]) < 0
	})
}

// compareLabels orders labels by collation, then bytewise. Groups are keyed by
// the exact label, so labels the collator treats as equal (NFC and NFD forms
// of the same text) must still sort apart to keep each group contiguous.
func compareLabels(col *collate.Collator, a, b string) int {
	if c := col.CompareString(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
