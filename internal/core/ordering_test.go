package core

import (
	"reflect"
	"testing"
)

func TestReorder(t *testing.T) {
	tests := []struct {
		name        string
		input       []ElementRecord
		groupByCode bool
		wantIDs     []int64
	}{
		{
			name:    "empty",
			input:   nil,
			wantIDs: []int64{},
		},
		{
			name: "sorts by discipline and keeps relative order",
			input: []ElementRecord{
				rec(1, "B", "x"), rec(2, "A", "z"), rec(3, "B", "a"), rec(4, "A", "y"),
			},
			wantIDs: []int64{2, 4, 1, 3},
		},
		{
			name: "sorts by code when grouping by code",
			input: []ElementRecord{
				rec(1, "B", "x"), rec(2, "A", "z"), rec(3, "B", "a"), rec(4, "A", "y"),
			},
			groupByCode: true,
			wantIDs:     []int64{4, 2, 3, 1},
		},
		{
			name: "absent discipline sorts as sentinel",
			input: []ElementRecord{
				rec(1, "", ""), rec(2, "Architectural", ""), rec(3, "Plumbing", ""),
			},
			wantIDs: []int64{2, 1, 3},
		},
		{
			name: "locale compare is not byte order",
			input: []ElementRecord{
				rec(1, "Beta", ""), rec(2, "alpha", ""),
			},
			wantIDs: []int64{2, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reorder(tt.input, tt.groupByCode)
			if ids := dbIDs(got); !equalIDs(ids, tt.wantIDs) {
				t.Errorf("Reorder() ids = %v, want %v", ids, tt.wantIDs)
			}
			for i, r := range got {
				if r.RowNumber != i+1 {
					t.Errorf("Reorder()[%d].RowNumber = %d, want %d", i, r.RowNumber, i+1)
				}
			}
		})
	}
}

func TestReorder_DoesNotMutateInput(t *testing.T) {
	input := []ElementRecord{rec(1, "B", ""), rec(2, "A", "")}
	_ = Reorder(input, false)

	if input[0].DbID != 1 || input[0].RowNumber != 0 {
		t.Errorf("input modified: %+v", input[0])
	}
}

func TestReorder_Idempotent(t *testing.T) {
	for _, byCode := range []bool{false, true} {
		once := Reorder(sampleRecords(), byCode)
		twice := Reorder(once, byCode)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Reorder(Reorder(x), %v) != Reorder(x, %v)", byCode, byCode)
		}
	}
}

func TestReorder_ContiguousRowNumbers(t *testing.T) {
	input := sampleRecords()
	for i := range input {
		input[i].RowNumber = 100 - i // stale values must be overwritten
	}

	got := Reorder(input, true)
	seen := make(map[int]bool)
	for _, r := range got {
		if r.RowNumber < 1 || r.RowNumber > len(got) || seen[r.RowNumber] {
			t.Fatalf("RowNumber %d not a contiguous permutation", r.RowNumber)
		}
		seen[r.RowNumber] = true
	}
}

func TestReorder_EquivalentLabelsStayContiguous(t *testing.T) {
	composed := "\u00e9lec"    // é as one code point
	decomposed := "e\u0301lec" // e + combining acute
	input := []ElementRecord{rec(1, composed, ""), rec(2, decomposed, ""), rec(3, composed, "")}

	got := Reorder(input, false)
	idx := BuildGroups(got, GroupOptions{})
	if len(idx.Disciplines) != 2 {
		t.Fatalf("groups = %d, want 2", len(idx.Disciplines))
	}
	for _, d := range idx.Disciplines {
		for i := 1; i < len(d.Records); i++ {
			if d.Records[i].RowNumber != d.Records[i-1].RowNumber+1 {
				t.Errorf("group %q rowNumbers not contiguous: %d then %d",
					d.Key, d.Records[i-1].RowNumber, d.Records[i].RowNumber)
			}
		}
	}
	if ids := dbIDs(got); !equalIDs(ids, []int64{2, 1, 3}) {
		t.Errorf("Reorder() ids = %v, want [2 1 3]", ids)
	}
}
