package core

// RowKind tags a flattened view row.
type RowKind string

const (
	RowDisciplineHeader RowKind = "discipline_header"
	RowCodeHeader       RowKind = "code_header"
	RowElement          RowKind = "element"
	RowCodeFooter       RowKind = "code_footer"    // Per-code totals, code grouping only
	RowPartialTotals    RowKind = "partial_totals" // Per-discipline totals, plain grouping only
)

// ViewRow is one row of the flattened table.
type ViewRow struct {
	Kind       RowKind
	Key        GroupKey
	Discipline string
	Code       string

	// Record is set for element rows.
	Record ElementRecord

	// Count is the number of member records for header rows.
	Count     int
	Collapsed bool

	// Totals is set for header and totals rows.
	Totals Totals
}

// IsTotals reports whether the row carries group totals.
func (r ViewRow) IsTotals() bool {
	return r.Kind == RowCodeFooter || r.Kind == RowPartialTotals
}

// Flatten expands a group index into display rows.
//
// A group's member rows and its totals row are emitted only when the group is
// expanded. A collapsed discipline hides its code groups regardless of their
// own flags, which are preserved in collapsed.
func Flatten(idx *GroupIndex, collapsed CollapseState, fields []string) []ViewRow {
	rows := make([]ViewRow, 0, idx.Len()+2*len(idx.Disciplines))

	for _, d := range idx.Disciplines {
		dTotals := ComputeTotals(d.Records, fields)
		dCollapsed := collapsed.IsCollapsed(d.Key)

		rows = append(rows, ViewRow{
			Kind:       RowDisciplineHeader,
			Key:        d.Key,
			Discipline: d.Discipline,
			Count:      len(d.Records),
			Collapsed:  dCollapsed,
			Totals:     dTotals,
		})
		if dCollapsed {
			continue
		}

		if !idx.ByCode {
			rows = appendElements(rows, d.Key, d.Discipline, "", d.Records)
			rows = append(rows, ViewRow{
				Kind:       RowPartialTotals,
				Key:        d.Key,
				Discipline: d.Discipline,
				Count:      len(d.Records),
				Totals:     dTotals,
			})
			continue
		}

		for _, c := range d.Codes {
			cTotals := ComputeTotals(c.Records, fields)
			cCollapsed := collapsed.IsCollapsed(c.Key)

			rows = append(rows, ViewRow{
				Kind:       RowCodeHeader,
				Key:        c.Key,
				Discipline: d.Discipline,
				Code:       c.Code,
				Count:      len(c.Records),
				Collapsed:  cCollapsed,
				Totals:     cTotals,
			})
			if cCollapsed {
				continue
			}

			rows = appendElements(rows, c.Key, d.Discipline, c.Code, c.Records)
			rows = append(rows, ViewRow{
				Kind:       RowCodeFooter,
				Key:        c.Key,
				Discipline: d.Discipline,
				Code:       c.Code,
				Count:      len(c.Records),
				Totals:     cTotals,
			})
		}
	}
	return rows
}

func appendElements(rows []ViewRow, key GroupKey, discipline, code string, records []ElementRecord) []ViewRow {
	for _, rec := range records {
		rows = append(rows, ViewRow{
			Kind:       RowElement,
			Key:        key,
			Discipline: discipline,
			Code:       code,
			Record:     rec,
		})
	}
	return rows
}
