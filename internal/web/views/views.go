// Package views renders the grid as HTML fragments for htmx clients.
//
// Components are written in templ (*.templ) and compiled with `templ generate`;
// this file holds the plain Go helpers they call.
package views

import (
	"fmt"

	"github.com/JonMunkholm/ElementGrid/internal/core"
)

//go:generate templ generate

func headerClass(row core.ViewRow) string {
	if row.Collapsed {
		return string(row.Kind) + " collapsed"
	}
	return string(row.Kind)
}

func headerLabel(row core.ViewRow) string {
	if row.Kind == core.RowCodeHeader {
		return row.Code
	}
	return row.Discipline
}

func elementClass(v core.GridView, rec core.ElementRecord) string {
	if v.Selected.Contains(rec.DbID) {
		return "element selected"
	}
	return "element"
}

func subtotalLabel(row core.ViewRow) string {
	if row.Kind == core.RowCodeFooter {
		return "Subtotal " + row.Code
	}
	return "Subtotal " + row.Discipline
}

// totalsCell is the label in the first column, the formatted total under
// numeric columns and empty elsewhere.
func totalsCell(i int, col core.ColumnSpec, label string, t core.Totals) string {
	switch {
	case i == 0:
		return label
	case col.Kind == core.KindNumeric:
		return t.Format(col.Name)
	}
	return ""
}

func pagerLabel(v core.GridView) string {
	return fmt.Sprintf("Page %d of %d (%d of %d elements)", v.Page, v.TotalPages, v.Filtered, v.Records)
}
