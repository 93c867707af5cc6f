// Package core provides the hierarchical grouped table engine for
// construction-model element records.
//
// This package is independent of any UI or transport layer. It can be used by
// web handlers, CLI tools, or tests without modification.
//
// # Pipeline
//
// Every table render is a pure recomputation over the current record array:
//
//  1. [Reorder] assigns the global rowNumber ordinal after loads, inserts and
//     edits to grouping fields
//  2. [FilterRecords] applies the free-text filter
//  3. [BuildGroups] builds the discipline (and optional code) hierarchy
//  4. [ComputeTotals] produces partial and grand totals
//  5. [Flatten] expands groups into typed view rows, honouring [CollapseState]
//  6. [Paginate] cuts the flat rows into pages
//
// [Grid] holds one session's state and memoizes rendered views by a hash of
// everything a view depends on.
//
// # Selection
//
// [SelectionController] keeps row selection in step with an external 3D
// viewer reached through [ViewerPort]. Range selection uses rowNumber over the
// full dataset. Pushes to the viewer are never read back as viewer events.
//
// # Columns
//
// Columns are registered at init time using [RegisterColumn]. Each
// [ColumnSpec] carries its kind and the parse and format functions that the
// generic cell dispatcher uses:
//
//	core.RegisterColumn(core.ColumnSpec{
//	    Name: "FireRating",
//	    Kind: core.KindText,
//	})
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - GRID001-GRID007: Engine errors (duplicates, unknown or read-only columns)
//   - NET001-NET005: Backend transport errors
//   - DB001-DB002: Store errors
//   - VAL001-VAL004: Input validation errors
package core
