package store

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/ElementGrid/internal/core"
)

func TestSelectSQL(t *testing.T) {
	tests := []struct {
		name       string
		discipline string
		wantWhere  bool
		wantArgs   int
	}{
		{name: "all disciplines", discipline: "", wantWhere: false, wantArgs: 0},
		{name: "one discipline", discipline: "Structural", wantWhere: true, wantArgs: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := selectSQL(tt.discipline)
			if strings.Contains(query, "WHERE discipline = $1") != tt.wantWhere {
				t.Errorf("selectSQL(%q) = %s", tt.discipline, query)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args = %v, want %d", args, tt.wantArgs)
			}
			if !strings.HasSuffix(query, "ORDER BY db_id ASC") {
				t.Errorf("query not ordered: %s", query)
			}
		})
	}
}

func TestUpsertSQL(t *testing.T) {
	query := upsertSQL()

	if !strings.Contains(query, "ON CONFLICT (db_id) DO UPDATE SET") {
		t.Errorf("upsertSQL() missing conflict clause: %s", query)
	}
	if len(columns) != 19 || !strings.Contains(query, "$19)") {
		t.Errorf("upsertSQL() placeholders do not cover %d columns", len(columns))
	}
	if strings.Contains(query, `"db_id" = EXCLUDED`) {
		t.Error("upsertSQL() must not update the primary key")
	}
}

func TestCreateTableSQL(t *testing.T) {
	ddl := createTableSQL()
	for _, want := range []string{
		`"db_id" BIGINT PRIMARY KEY`,
		`"volume" DOUBLE PRECISION`,
		`"start_date" TEXT`,
		`"type_name" TEXT`,
		"updated_at TIMESTAMPTZ",
	} {
		if !strings.Contains(ddl, want) {
			t.Errorf("createTableSQL() missing %q", want)
		}
	}
}

func TestRecordArgs(t *testing.T) {
	r := core.ElementRecord{
		DbID:       42,
		Discipline: " Structural ",
		Code:       "",
		Volume:     "2.5",
		Area:       "not specified",
		StartDate:  "03/15/2024",
	}
	args := recordArgs(r)
	if len(args) != len(columns) {
		t.Fatalf("len(args) = %d, want %d", len(args), len(columns))
	}

	byName := make(map[string]any)
	for i, c := range columns {
		byName[c.name] = args[i]
	}

	if got := byName["db_id"]; got != int64(42) {
		t.Errorf("db_id = %v, want 42", got)
	}
	if got := byName["discipline"].(pgtype.Text); !got.Valid || got.String != "Structural" {
		t.Errorf("discipline = %+v", got)
	}
	if got := byName["code"].(pgtype.Text); got.Valid {
		t.Errorf("empty code should be NULL, got %+v", got)
	}
	if got := byName["volume"].(pgtype.Float8); !got.Valid || got.Float64 != 2.5 {
		t.Errorf("volume = %+v", got)
	}
	if got := byName["area"].(pgtype.Float8); got.Valid {
		t.Errorf("placeholder area should be NULL, got %+v", got)
	}
	if got := byName["start_date"].(pgtype.Text); !got.Valid || got.String != "2024-03-15" {
		t.Errorf("start_date = %+v", got)
	}
}

// roundTrip stores r through recordArgs and reads it back through a scan row.
func roundTrip(r core.ElementRecord) core.ElementRecord {
	args := recordArgs(r)
	sr := newScanRow()
	for i := range columns {
		switch v := sr.values[i].(type) {
		case *int64:
			*v = args[i].(int64)
		case *pgtype.Text:
			*v = args[i].(pgtype.Text)
		case *pgtype.Float8:
			*v = args[i].(pgtype.Float8)
		}
	}
	return sr.record()
}

func TestRecordArgs_DateRoundTrip(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "TBD", want: "TBD"},
		{input: "Q3 2025", want: "Q3 2025"},
		{input: "12/31/2025", want: "2025-12-31"},
		{input: "2024-03-15", want: "2024-03-15"},
		{input: "", want: ""},
	}
	for _, tt := range tests {
		got := roundTrip(core.ElementRecord{DbID: 1, StartDate: tt.input, EndDate: tt.input})
		if got.StartDate != tt.want || got.EndDate != tt.want {
			t.Errorf("round trip %q = %q/%q, want %q", tt.input, got.StartDate, got.EndDate, tt.want)
		}
	}
}

func TestStore_ImplementsDataPort(t *testing.T) {
	var _ core.Backend = (*Store)(nil)
	var _ core.Deleter = (*Store)(nil)
}

func TestScanRow_Record(t *testing.T) {
	sr := newScanRow()
	for i, c := range columns {
		switch v := sr.values[i].(type) {
		case *int64:
			*v = 7
		case *pgtype.Text:
			switch c.field {
			case core.FieldDiscipline:
				*v = pgtype.Text{String: "MEP", Valid: true}
			case core.FieldEndDate:
				*v = pgtype.Text{String: "2025-12-31", Valid: true}
			}
		case *pgtype.Float8:
			if c.field == core.FieldLength {
				*v = pgtype.Float8{Float64: 4, Valid: true}
			}
		}
	}

	r := sr.record()
	if r.DbID != 7 || r.Discipline != "MEP" {
		t.Errorf("identity = %+v", r)
	}
	if r.Length != "4" || r.Width != "" {
		t.Errorf("Length/Width = %q/%q, want 4/empty", r.Length, r.Width)
	}
	if r.EndDate != "2025-12-31" || r.StartDate != "" {
		t.Errorf("dates = %q/%q", r.StartDate, r.EndDate)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := quoteIdentifier(`ele"ments`); got != `"ele""ments"` {
		t.Errorf("quoteIdentifier() = %s", got)
	}
}
