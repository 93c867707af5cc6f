package web

import (
	"maps"
	"slices"

	"github.com/JonMunkholm/ElementGrid/internal/core"
)

// ViewResponse is the JSON form of core.GridView.
type ViewResponse struct {
	GridID       string            `json:"gridId"`
	Section      string            `json:"section"`
	Page         int               `json:"page"`
	PageSize     int               `json:"pageSize"`
	TotalPages   int               `json:"totalPages"`
	TotalRows    int               `json:"totalRows"`
	Records      int               `json:"records"`
	Filtered     int               `json:"filtered"`
	Revision     uint64            `json:"revision"`
	Filter       string            `json:"filter"`
	GroupByCode  bool              `json:"groupByCode"`
	Alphabetical bool              `json:"alphabetical"`
	Columns      []ColumnResponse  `json:"columns"`
	Rows         []RowResponse     `json:"rows"`
	GrandTotals  map[string]string `json:"grandTotals"`
	Selected     []int64           `json:"selected"`
}

// ColumnResponse describes a column without its parse/format functions.
type ColumnResponse struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Unit     string   `json:"unit,omitempty"`
	Options  []string `json:"options,omitempty"`
	ReadOnly bool     `json:"readOnly,omitempty"`
}

// RowResponse is one display row. Element rows carry Record and Cells;
// header and totals rows carry Count and Totals.
type RowResponse struct {
	Kind       string            `json:"kind"`
	Key        string            `json:"key,omitempty"`
	Discipline string            `json:"discipline,omitempty"`
	Code       string            `json:"code,omitempty"`
	Record     *core.WireRecord  `json:"record,omitempty"`
	Cells      map[string]string `json:"cells,omitempty"`
	Selected   bool              `json:"selected,omitempty"`
	Count      int               `json:"count,omitempty"`
	Collapsed  bool              `json:"collapsed,omitempty"`
	Totals     map[string]string `json:"totals,omitempty"`
}

func newViewResponse(gridID string, v core.GridView) ViewResponse {
	resp := ViewResponse{
		GridID:       gridID,
		Section:      string(v.Section),
		Page:         v.Page,
		PageSize:     v.PageSize,
		TotalPages:   v.TotalPages,
		TotalRows:    v.TotalRows,
		Records:      v.Records,
		Filtered:     v.Filtered,
		Revision:     v.Revision,
		Filter:       v.Filter,
		GroupByCode:  v.GroupByCode,
		Alphabetical: v.Alphabetical,
		Columns:      make([]ColumnResponse, len(v.Columns)),
		Rows:         make([]RowResponse, len(v.Rows)),
		GrandTotals:  formatTotals(v.GrandTotals, v.Columns),
		Selected:     slices.Sorted(maps.Keys(v.Selected)),
	}
	if resp.Selected == nil {
		resp.Selected = []int64{}
	}

	for i, c := range v.Columns {
		resp.Columns[i] = ColumnResponse{
			Name:     c.Name,
			Label:    c.Label,
			Kind:     string(c.Kind),
			Unit:     c.Unit,
			Options:  c.Options,
			ReadOnly: c.ReadOnly,
		}
	}

	for i, row := range v.Rows {
		out := RowResponse{
			Kind:       string(row.Kind),
			Key:        string(row.Key),
			Discipline: row.Discipline,
			Code:       row.Code,
			Count:      row.Count,
			Collapsed:  row.Collapsed,
		}
		if row.Kind == core.RowElement {
			wire := core.ToWire(row.Record)
			out.Record = &wire
			out.Cells = make(map[string]string, len(v.Columns))
			for _, c := range v.Columns {
				out.Cells[c.Name] = core.FormatCell(row.Record, c)
			}
			out.Selected = v.Selected.Contains(row.Record.DbID)
		} else {
			out.Totals = formatTotals(row.Totals, v.Columns)
		}
		resp.Rows[i] = out
	}
	return resp
}

// formatTotals renders the numeric columns that have data. Columns with no
// numeric values are omitted rather than shown as zero.
func formatTotals(t core.Totals, cols []core.ColumnSpec) map[string]string {
	out := make(map[string]string)
	for _, c := range cols {
		if c.Kind != core.KindNumeric {
			continue
		}
		if s := t.Format(c.Name); s != "" {
			out[c.Name] = s
		}
	}
	return out
}

// SelectionResponse reports the local selection state.
type SelectionResponse struct {
	Selected         []int64 `json:"selected"`
	Anchor           int     `json:"anchor"`
	SyncEnabled      bool    `json:"syncEnabled"`
	SuppressedEchoes uint64  `json:"suppressedEchoes"`
}

func newSelectionResponse(c *core.SelectionController) SelectionResponse {
	ids := c.SelectedIDs()
	if ids == nil {
		ids = []int64{}
	}
	return SelectionResponse{
		Selected:         ids,
		Anchor:           c.Anchor(),
		SyncEnabled:      c.SyncEnabled(),
		SuppressedEchoes: c.SuppressedEchoes(),
	}
}
