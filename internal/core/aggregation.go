package core

import "strings"

// Totals holds per-field sums and the number of records that contributed a
// parseable value. A field with Count 0 had no data at all.
type Totals struct {
	Sums   TotalsMap
	Counts map[string]int
}

// ComputeTotals sums each field over records. Empty or malformed values
// contribute 0 and are not counted.
func ComputeTotals(records []ElementRecord, fields []string) Totals {
	t := Totals{
		Sums:   make(TotalsMap, len(fields)),
		Counts: make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		t.Sums[f] = 0
		t.Counts[f] = 0
	}

	for _, rec := range records {
		for _, f := range fields {
			v, _ := rec.Field(f)
			n, ok := ParseNumber(v)
			if !ok {
				continue
			}
			t.Sums[f] += n
			t.Counts[f]++
		}
	}
	return t
}

// HasData reports whether any record contributed a value for field.
func (t Totals) HasData(field string) bool {
	return t.Counts[field] > 0
}

// Format renders the total for field. A field with no data renders as the
// empty string; a field whose values sum to zero renders "0.00".
func (t Totals) Format(field string) string {
	if !t.HasData(field) {
		return ""
	}
	return FormatQuantity(field, t.Sums[field])
}

// PartialTotals computes totals for every discipline group, keyed by group key.
// When grouping by code, code groups are included under their composite keys.
func PartialTotals(idx *GroupIndex, fields []string) map[GroupKey]Totals {
	out := make(map[GroupKey]Totals)
	for _, d := range idx.Disciplines {
		out[d.Key] = ComputeTotals(d.Records, fields)
		for _, c := range d.Codes {
			out[c.Key] = ComputeTotals(c.Records, fields)
		}
	}
	return out
}

// GrandTotals computes totals over the whole (already filtered) dataset.
func GrandTotals(records []ElementRecord, fields []string) Totals {
	return ComputeTotals(records, fields)
}

// FilterRecords keeps records whose type name or description contains query,
// case-insensitively. An empty query keeps everything.
func FilterRecords(records []ElementRecord, query string) []ElementRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}

	out := make([]ElementRecord, 0, len(records))
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.TypeName), q) ||
			strings.Contains(strings.ToLower(rec.Description), q) {
			out = append(out, rec)
		}
	}
	return out
}
