package store

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/ElementGrid/internal/core"
)

// toPgText converts a record field to pgtype.Text.
// Blank values are stored as NULL.
func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// toPgFloat8 converts a numeric field to pgtype.Float8.
// Empty, "not specified" and malformed values are stored as NULL.
func toPgFloat8(s string) pgtype.Float8 {
	n, ok := core.ParseNumber(s)
	if !ok {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: n, Valid: true}
}

// toPgDateText converts a date field to pgtype.Text. Parseable dates are
// normalized to core.DateLayout; free text is kept so nothing typed is lost.
func toPgDateText(s string) pgtype.Text {
	return toPgText(core.NormalizeDate(s))
}

func fromPgText(v pgtype.Text) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func fromPgFloat8(v pgtype.Float8) string {
	if !v.Valid {
		return ""
	}
	return core.FormatNumber(v.Float64)
}

// recordArgs returns the INSERT arguments for r in column order.
func recordArgs(r core.ElementRecord) []any {
	args := make([]any, len(columns))
	for i, c := range columns {
		if c.field == core.FieldDbID {
			args[i] = r.DbID
			continue
		}
		v, _ := r.Field(c.field)
		switch {
		case c.typ == colNumber:
			args[i] = toPgFloat8(v)
		case c.date:
			args[i] = toPgDateText(v)
		default:
			args[i] = toPgText(v)
		}
	}
	return args
}

// scanRow holds scan targets for one SELECT row.
type scanRow struct {
	values []any
}

func newScanRow() *scanRow {
	sr := &scanRow{values: make([]any, len(columns))}
	for i, c := range columns {
		switch c.typ {
		case colBigint:
			sr.values[i] = new(int64)
		case colNumber:
			sr.values[i] = new(pgtype.Float8)
		default:
			sr.values[i] = new(pgtype.Text)
		}
	}
	return sr
}

// record converts the scanned values into an ElementRecord.
func (sr *scanRow) record() core.ElementRecord {
	var r core.ElementRecord
	for i, c := range columns {
		var s string
		switch v := sr.values[i].(type) {
		case *int64:
			r.DbID = *v
			continue
		case *pgtype.Float8:
			s = fromPgFloat8(*v)
		case *pgtype.Text:
			s = fromPgText(*v)
		}
		r, _ = r.WithField(c.field, s)
	}
	return r
}
