package core

import (
	"fmt"
	"strconv"
	"testing"
)

// ============================================================================
// Pipeline Benchmarks
// ============================================================================

// generateRecords builds n records spread across disciplines and codes.
func generateRecords(n int) []ElementRecord {
	disciplines := []string{"Structural", "Architectural", "Mechanical", "Electrical", "Plumbing", ""}
	out := make([]ElementRecord, n)
	for i := range out {
		out[i] = ElementRecord{
			DbID:        int64(i + 1),
			Discipline:  disciplines[i%len(disciplines)],
			Code:        fmt.Sprintf("C%02d", i%17),
			TypeName:    fmt.Sprintf("Type %d", i%40),
			Description: "generated",
			Length:      strconv.Itoa(i % 12),
			Area:        fmt.Sprintf("%d.5", i%30),
			Volume:      fmt.Sprintf("%d.25", i%9),
			TotalCost:   "1250.00",
		}
	}
	return out
}

// BenchmarkParseNumber benchmarks numeric parsing, the hot path of aggregation.
func BenchmarkParseNumber(b *testing.B) {
	testCases := []string{
		"123",
		"-456.78",
		"2.50 m³",       // Formatted quantity
		"1,5",           // Decimal comma
		"  999.99  ",    // Whitespace
		"not specified", // Placeholder
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseNumber(tc)
		}
	}
}

// BenchmarkReorder benchmarks renumbering a large dataset with collation.
func BenchmarkReorder(b *testing.B) {
	records := generateRecords(10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Reorder(records, true)
	}
}

// BenchmarkPipeline benchmarks one uncached render: filter, group, flatten, paginate.
func BenchmarkPipeline(b *testing.B) {
	records := Reorder(generateRecords(10000), true)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		filtered := FilterRecords(records, "type 1")
		idx := BuildGroups(filtered, GroupOptions{ByCode: true})
		rows := Flatten(idx, CollapseState{}, NumericFields)
		Paginate(rows, 3, DefaultPageSize)
		GrandTotals(filtered, NumericFields)
	}
}

// BenchmarkGridView_Cached benchmarks a memoized view hit.
func BenchmarkGridView_Cached(b *testing.B) {
	g := NewGrid("bench", GridOptions{GroupByCode: true}, nil, nil)
	defer g.Close()
	g.Load(generateRecords(10000))
	g.View(SectionGeneral)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.View(SectionGeneral)
	}
}

// BenchmarkApplyFieldChange_Broadcast benchmarks a bulk edit over a large selection.
func BenchmarkApplyFieldChange_Broadcast(b *testing.B) {
	records := Reorder(generateRecords(10000), false)
	sel := NewSelectionSet()
	for _, r := range records[:2000] {
		sel[r.DbID] = struct{}{}
	}
	change := FieldChange{DbID: records[0].DbID, Field: FieldMaterial, Value: "Steel"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ApplyFieldChange(records, sel, change, false); err != nil {
			b.Fatal(err)
		}
	}
}
