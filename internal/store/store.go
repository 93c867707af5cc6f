// Package store persists element records in Postgres and serves them as a backend data port.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/ElementGrid/internal/core"
)

// TableName is the Postgres table holding element records.
const TableName = "elements"

// Postgres column types.
const (
	colBigint = "BIGINT"
	colText   = "TEXT"
	colNumber = "DOUBLE PRECISION"
)

// column maps a record field to its database column.
type column struct {
	field string
	name  string
	typ   string

	// date columns are TEXT: parseable dates are stored as YYYY-MM-DD and
	// anything else ("TBD", "Q3") exactly as typed.
	date bool
}

// columns lists every persisted field in SELECT and INSERT order.
var columns = []column{
	{field: core.FieldDbID, name: "db_id", typ: colBigint},
	{field: core.FieldDiscipline, name: "discipline", typ: colText},
	{field: core.FieldCode, name: "code", typ: colText},
	{field: core.FieldElementType, name: "element_type", typ: colText},
	{field: core.FieldTypeName, name: "type_name", typ: colText},
	{field: core.FieldDescription, name: "description", typ: colText},
	{field: core.FieldMaterial, name: "material", typ: colText},
	{field: core.FieldLength, name: "length", typ: colNumber},
	{field: core.FieldWidth, name: "width", typ: colNumber},
	{field: core.FieldHeight, name: "height", typ: colNumber},
	{field: core.FieldPerimeter, name: "perimeter", typ: colNumber},
	{field: core.FieldArea, name: "area", typ: colNumber},
	{field: core.FieldThickness, name: "thickness", typ: colNumber},
	{field: core.FieldVolume, name: "volume", typ: colNumber},
	{field: core.FieldQuantity, name: "quantity", typ: colNumber},
	{field: core.FieldUnitPrice, name: "unit_price", typ: colNumber},
	{field: core.FieldTotalCost, name: "total_cost", typ: colNumber},
	{field: core.FieldStartDate, name: "start_date", typ: colText, date: true},
	{field: core.FieldEndDate, name: "end_date", typ: colText, date: true},
}

// Store is a Postgres-backed element store. It implements core.Backend.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the elements table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTableSQL()); err != nil {
		return fmt.Errorf("create %s table: %w", TableName, err)
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (discipline)",
		quoteIdentifier(TableName+"_discipline_idx"), quoteIdentifier(TableName),
	)); err != nil {
		return fmt.Errorf("create discipline index: %w", err)
	}
	return nil
}

// Pull returns the records of one discipline, or every record when discipline is empty.
func (s *Store) Pull(ctx context.Context, discipline string) ([]core.ElementRecord, error) {
	start := time.Now()
	query, args := selectSQL(discipline)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query elements: %w", err)
	}
	defer rows.Close()

	var out []core.ElementRecord
	for rows.Next() {
		sr := newScanRow()
		if err := rows.Scan(sr.values...); err != nil {
			return nil, fmt.Errorf("scan element: %w", err)
		}
		out = append(out, sr.record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read elements: %w", err)
	}

	slog.Debug("elements pulled",
		"discipline", discipline,
		"records", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Push upserts records by dbId in a single transaction.
func (s *Store) Push(ctx context.Context, records []core.ElementRecord) error {
	if len(records) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := upsertSQL()
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query, recordArgs(r)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert elements: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("elements pushed",
		"records", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Delete removes records by dbId and returns how many rows were deleted.
func (s *Store) Delete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE db_id = ANY($1)", quoteIdentifier(TableName)),
		ids,
	)
	if err != nil {
		return 0, fmt.Errorf("delete elements: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(TableName))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count elements: %w", err)
	}
	return n, nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func createTableSQL() string {
	defs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		def := quoteIdentifier(c.name) + " " + c.typ
		if c.field == core.FieldDbID {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	defs = append(defs, "updated_at TIMESTAMPTZ NOT NULL DEFAULT now()")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		quoteIdentifier(TableName), strings.Join(defs, ",\n\t"))
}

func selectSQL(discipline string) (string, []any) {
	query := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(columnNames(), ", "), quoteIdentifier(TableName))
	var args []any
	if discipline != "" {
		query += " WHERE discipline = $1"
		args = append(args, discipline)
	}
	return query + " ORDER BY db_id ASC", args
}

func upsertSQL() string {
	names := columnNames()
	placeholders := make([]string, len(names))
	var updates []string
	for i, c := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if c.field != core.FieldDbID {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", names[i], names[i]))
		}
	}
	updates = append(updates, "updated_at = now()")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (db_id) DO UPDATE SET %s",
		quoteIdentifier(TableName),
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

func columnNames() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = quoteIdentifier(c.name)
	}
	return out
}

// quoteIdentifier safely quotes a SQL identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
