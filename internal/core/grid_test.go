package core

import (
	"errors"
	"testing"
	"time"
)

// countingMetrics records view cache behaviour.
type countingMetrics struct {
	nopMetrics
	hits, misses int
	edits        map[string]int
}

func (m *countingMetrics) ObserveView(_ string, _ int, cached bool, _ time.Duration) {
	if cached {
		m.hits++
		return
	}
	m.misses++
}

func (m *countingMetrics) ObserveEdit(field string, updated int) {
	if m.edits == nil {
		m.edits = make(map[string]int)
	}
	m.edits[field] += updated
}

func newTestGrid(t *testing.T, opts GridOptions) (*Grid, *fakeViewer, *countingMetrics) {
	t.Helper()
	v := newFakeViewer()
	m := &countingMetrics{}
	g := NewGrid("test", opts, v, m)
	t.Cleanup(g.Close)
	return g, v, m
}

func TestGrid_LoadReordersAndRenders(t *testing.T) {
	g, _, _ := newTestGrid(t, GridOptions{})
	g.Load(sampleRecords())

	records := g.Records()
	for i, r := range records {
		if r.RowNumber != i+1 {
			t.Fatalf("RowNumber[%d] = %d, want %d", i, r.RowNumber, i+1)
		}
	}

	v := g.View(SectionDimensions)
	if v.Records != 6 || v.Filtered != 6 {
		t.Errorf("Records/Filtered = %d/%d, want 6/6", v.Records, v.Filtered)
	}
	if v.Rows[0].Kind != RowDisciplineHeader || v.Rows[0].Discipline != "Architectural" {
		t.Errorf("first row = %s %q, want Architectural header", v.Rows[0].Kind, v.Rows[0].Discipline)
	}
	if got := v.GrandTotals.Format(FieldVolume); got != "9.00 m³" {
		t.Errorf("grand Volume = %q, want 9.00 m³", got)
	}
	if len(v.Columns) == 0 || v.Columns[len(v.Columns)-1].Name != FieldVolume {
		t.Errorf("dimensions section columns = %v", v.Columns)
	}
}

func TestGrid_ViewIsMemoized(t *testing.T) {
	g, _, m := newTestGrid(t, GridOptions{})
	g.Load(sampleRecords())

	first := g.View(SectionGeneral)
	_ = g.View(SectionGeneral)
	if m.misses != 1 || m.hits != 1 {
		t.Errorf("misses/hits = %d/%d, want 1/1", m.misses, m.hits)
	}

	g.ToggleCollapse(DisciplineKey("Structural"))
	collapsed := g.View(SectionGeneral)
	if m.misses != 2 {
		t.Errorf("collapse did not invalidate view, misses = %d", m.misses)
	}
	if len(collapsed.Rows) != len(first.Rows)-4 {
		t.Errorf("collapsed rows = %d, want %d", len(collapsed.Rows), len(first.Rows)-4)
	}

	g.Load(sampleRecords())
	_ = g.View(SectionGeneral)
	if m.misses != 3 {
		t.Errorf("revision change did not invalidate view, misses = %d", m.misses)
	}
}

func TestGrid_SelectionNotCached(t *testing.T) {
	g, _, _ := newTestGrid(t, GridOptions{})
	g.Load(sampleRecords())

	_ = g.View(SectionGeneral)
	g.Selection().Click(g.Records()[0], false)

	v := g.View(SectionGeneral)
	if !v.Selected.Contains(g.Records()[0].DbID) {
		t.Error("view selection is stale")
	}
}

func TestGrid_Insert(t *testing.T) {
	g, _, _ := newTestGrid(t, GridOptions{})
	g.Load(sampleRecords())
	rev := g.Revision()

	err := g.Insert(ElementRecord{DbID: 11, Discipline: "Other", TypeName: "dup"})
	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.DbID != 11 {
		t.Fatalf("Insert(duplicate) error = %v, want DuplicateError{11}", err)
	}
	if !errors.Is(err, ErrDuplicateElement) {
		t.Error("DuplicateError should match ErrDuplicateElement")
	}
	if g.Revision() != rev {
		t.Error("rejected insert bumped revision")
	}
	for _, r := range g.Records() {
		if r.DbID == 11 && r.TypeName != "Wall Type A" {
			t.Errorf("existing row replaced: %+v", r)
		}
	}

	if err := g.Insert(ElementRecord{DbID: 99, Discipline: "Architectural"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	records := g.Records()
	if len(records) != 7 {
		t.Fatalf("len = %d, want 7", len(records))
	}
	// New Architectural row lands after the existing ones and before other groups.
	if records[2].DbID != 99 || records[2].RowNumber != 3 {
		t.Errorf("records[2] = dbId %d row %d, want dbId 99 row 3", records[2].DbID, records[2].RowNumber)
	}
}

func TestGrid_Remove(t *testing.T) {
	g, _, _ := newTestGrid(t, GridOptions{})
	g.Load(sampleRecords())
	g.Selection().Click(g.Records()[0], false)
	selected := g.Records()[0].DbID

	if n := g.Remove(selected, 12345); n != 1 {
		t.Errorf("Remove() = %d, want 1", n)
	}
	if len(g.Selection().SelectedIDs()) != 0 {
		t.Error("removed row still selected")
	}
	for i, r := range g.Records() {
		if r.RowNumber != i+1 {
			t.Errorf("RowNumber[%d] = %d after remove", i, r.RowNumber)
		}
	}
	if n := g.Remove(12345); n != 0 {
		t.Errorf("Remove(missing) = %d, want 0", n)
	}
	if !equalIDs(g.PendingRemovals(), []int64{selected}) {
		t.Errorf("PendingRemovals() = %v, want [%d]", g.PendingRemovals(), selected)
	}

	// Re-inserting a removed row cancels its deletion.
	if err := g.Insert(ElementRecord{DbID: selected, Discipline: "Architectural"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if len(g.PendingRemovals()) != 0 {
		t.Errorf("PendingRemovals() = %v after re-insert, want none", g.PendingRemovals())
	}

	g.Remove(selected)
	g.Load(sampleRecords())
	if len(g.PendingRemovals()) != 0 {
		t.Errorf("PendingRemovals() = %v after load, want none", g.PendingRemovals())
	}
}

func TestGrid_EditBroadcastsToSelection(t *testing.T) {
	g, _, m := newTestGrid(t, GridOptions{})
	g.Load(sampleRecords())
	records := g.Records()

	g.Selection().Click(records[0], false)
	g.Selection().Click(records[2], true)

	result, err := g.Edit(FieldChange{DbID: records[1].DbID, Field: FieldMaterial, Value: "Steel"})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if result.Updated != 3 {
		t.Errorf("Updated = %d, want 3", result.Updated)
	}
	if m.edits[FieldMaterial] != 3 {
		t.Errorf("metrics edits = %d, want 3", m.edits[FieldMaterial])
	}
	for _, r := range g.Records()[:3] {
		if r.Material != "Steel" {
			t.Errorf("dbId %d Material = %q, want Steel", r.DbID, r.Material)
		}
	}
	if records[0].Material != "" {
		t.Error("previous snapshot was mutated")
	}
}

func TestGrid_FilterAndPaging(t *testing.T) {
	records := make([]ElementRecord, 30)
	for i := range records {
		records[i] = ElementRecord{DbID: int64(i + 1), Discipline: "A", TypeName: "Door"}
	}
	records[29].TypeName = "Window"

	g, _, _ := newTestGrid(t, GridOptions{PageSize: 10})
	g.Load(records)

	// 1 header + 30 elements + 1 totals row.
	v := g.View(SectionGeneral)
	if v.TotalRows != 32 || v.TotalPages != 4 {
		t.Fatalf("TotalRows/TotalPages = %d/%d, want 32/4", v.TotalRows, v.TotalPages)
	}

	if p := g.Navigate(PageLast); p != 4 {
		t.Errorf("Navigate(last) = %d, want 4", p)
	}
	if p := g.Navigate(PageNext); p != 4 {
		t.Errorf("Navigate(next) at end = %d, want 4", p)
	}

	g.SetFilter("window")
	v = g.View(SectionGeneral)
	if v.Page != 1 || v.Filtered != 1 || v.TotalPages != 1 {
		t.Errorf("after filter page/filtered/pages = %d/%d/%d, want 1/1/1", v.Page, v.Filtered, v.TotalPages)
	}

	g.SetFilter("")
	g.SetPage(99)
	if v = g.View(SectionGeneral); v.Page != 4 {
		t.Errorf("SetPage(99) rendered page %d, want 4", v.Page)
	}
}

func TestGrid_SetGroupByCode(t *testing.T) {
	g, _, _ := newTestGrid(t, GridOptions{})
	g.Load(sampleRecords())

	g.SetGroupByCode(true)
	if !g.GroupByCode() {
		t.Fatal("GroupByCode() = false")
	}
	records := g.Records()
	// Structural rows sorted by code: B1 (12) before B2 (10, 15).
	var structural []int64
	for _, r := range records {
		if r.Discipline == "Structural" {
			structural = append(structural, r.DbID)
		}
	}
	if !equalIDs(structural, []int64{12, 10, 15}) {
		t.Errorf("Structural order = %v, want [12 10 15]", structural)
	}

	v := g.View(SectionGeneral)
	var footers int
	for _, r := range v.Rows {
		if r.Kind == RowCodeFooter {
			footers++
		}
	}
	if footers != 4 {
		t.Errorf("code footers = %d, want 4", footers)
	}
}

func TestGrid_CollapseSurvivesFilterAndResort(t *testing.T) {
	g, _, _ := newTestGrid(t, GridOptions{})
	g.Load(sampleRecords())
	g.ToggleCollapse(DisciplineKey("Structural"))

	assertCollapsed := func(step string) {
		t.Helper()
		v := g.View(SectionGeneral)
		var header bool
		for _, r := range v.Rows {
			if r.Discipline != "Structural" {
				continue
			}
			switch r.Kind {
			case RowDisciplineHeader:
				header = true
				if !r.Collapsed {
					t.Errorf("%s: Structural header not collapsed", step)
				}
			default:
				t.Errorf("%s: %s row visible under collapsed Structural", step, r.Kind)
			}
		}
		if !header {
			t.Errorf("%s: Structural header missing", step)
		}
	}

	g.SetFilter("beam")
	assertCollapsed("filter")

	g.SetAlphabetical(true)
	assertCollapsed("alphabetical")

	g.SetGroupByCode(true)
	assertCollapsed("group by code")

	g.SetFilter("")
	assertCollapsed("filter cleared")
}
