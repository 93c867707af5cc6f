package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ColumnKind selects how a column is parsed, formatted and edited.
type ColumnKind string

const (
	KindText    ColumnKind = "text"
	KindSelect  ColumnKind = "select"
	KindDate    ColumnKind = "date"
	KindNumeric ColumnKind = "numeric"
)

// ColumnSpec describes one table column.
type ColumnSpec struct {
	Name     string     // Record field name
	Label    string     // Header text
	Kind     ColumnKind // Parse/format behaviour
	Unit     string     // Display suffix for numeric totals ("m", "m²", "m³")
	Options  []string   // Suggested values for KindSelect
	ReadOnly bool       // Identity columns

	// Parse normalizes user input before it is stored. Never fails.
	Parse func(string) string
	// Format renders a stored value for display.
	Format func(string) string
}

// Section is the externally selected column set.
type Section string

const (
	SectionGeneral     Section = "general"
	SectionDimensions  Section = "dimensions"
	SectionDescription Section = "description"
	SectionSchedule    Section = "schedule"
	SectionCost        Section = "cost"
)

var (
	columnRegistry   = make(map[string]ColumnSpec)
	columnRegistryMu sync.RWMutex
)

// sectionColumns is the column whitelist per section. The table always leads
// with the identity columns.
var sectionColumns = map[Section][]string{
	SectionGeneral:     {FieldRowNumber, FieldDbID, FieldDiscipline, FieldCode, FieldElementType, FieldTypeName, FieldMaterial},
	SectionDimensions:  {FieldRowNumber, FieldDbID, FieldTypeName, FieldLength, FieldWidth, FieldHeight, FieldPerimeter, FieldArea, FieldThickness, FieldVolume},
	SectionDescription: {FieldRowNumber, FieldDbID, FieldTypeName, FieldDescription, FieldMaterial},
	SectionSchedule:    {FieldRowNumber, FieldDbID, FieldTypeName, FieldStartDate, FieldEndDate},
	SectionCost:        {FieldRowNumber, FieldDbID, FieldTypeName, FieldQuantity, FieldUnitPrice, FieldTotalCost},
}

func init() {
	for _, spec := range defaultColumns() {
		RegisterColumn(spec)
	}
}

// RegisterColumn adds a column spec to the registry.
// Panics if the column is already registered.
func RegisterColumn(spec ColumnSpec) {
	columnRegistryMu.Lock()
	defer columnRegistryMu.Unlock()

	if _, exists := columnRegistry[spec.Name]; exists {
		panic(fmt.Sprintf("column already registered: %s", spec.Name))
	}

	if spec.Label == "" {
		spec.Label = spec.Name
	}
	if spec.Parse == nil {
		spec.Parse = parserFor(spec.Kind)
	}
	if spec.Format == nil {
		spec.Format = strings.TrimSpace
	}

	columnRegistry[spec.Name] = spec
}

// Column returns a column spec by name.
func Column(name string) (ColumnSpec, bool) {
	columnRegistryMu.RLock()
	defer columnRegistryMu.RUnlock()

	spec, ok := columnRegistry[name]
	return spec, ok
}

// Columns returns all registered columns sorted by name.
func Columns() []ColumnSpec {
	columnRegistryMu.RLock()
	defer columnRegistryMu.RUnlock()

	result := make([]ColumnSpec, 0, len(columnRegistry))
	for _, spec := range columnRegistry {
		result = append(result, spec)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// ParseSection resolves a section name, defaulting to general.
func ParseSection(s string) Section {
	sec := Section(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := sectionColumns[sec]; ok {
		return sec
	}
	return SectionGeneral
}

// SectionColumns returns the column specs visible in a section, in display order.
func SectionColumns(section Section) []ColumnSpec {
	names, ok := sectionColumns[section]
	if !ok {
		names = sectionColumns[SectionGeneral]
	}
	specs := make([]ColumnSpec, 0, len(names))
	for _, name := range names {
		if spec, ok := Column(name); ok {
			specs = append(specs, spec)
		}
	}
	return specs
}

// FormatCell renders one record field through its column spec.
func FormatCell(rec ElementRecord, spec ColumnSpec) string {
	v, _ := rec.Field(spec.Name)
	return spec.Format(v)
}

// NormalizeValue parses raw input for the named column.
func NormalizeValue(field, raw string) (string, error) {
	spec, ok := Column(field)
	if !ok {
		return "", &FieldError{Field: field, Err: ErrUnknownField}
	}
	if spec.ReadOnly {
		return "", &FieldError{Field: field, Err: ErrReadOnlyField}
	}
	return spec.Parse(raw), nil
}

func parserFor(kind ColumnKind) func(string) string {
	switch kind {
	case KindDate:
		return NormalizeDate
	case KindNumeric:
		// Keep what was typed; aggregation and persistence coerce defensively.
		return strings.TrimSpace
	default:
		return strings.TrimSpace
	}
}

// unitFor returns the display suffix of a numeric field.
func unitFor(field string) string {
	switch field {
	case FieldLength, FieldWidth, FieldHeight, FieldPerimeter, FieldThickness:
		return "m"
	case FieldArea:
		return "m²"
	case FieldVolume:
		return "m³"
	default:
		return ""
	}
}

// FormatQuantity renders a number with the field's unit and two decimals.
func FormatQuantity(field string, v float64) string {
	s := fmt.Sprintf("%.2f", v)
	if unit := unitFor(field); unit != "" {
		return s + " " + unit
	}
	return s
}

func formatNumericCell(field string) func(string) string {
	return func(v string) string {
		n, ok := ParseNumber(v)
		if !ok {
			return strings.TrimSpace(v)
		}
		return FormatQuantity(field, n)
	}
}

func defaultColumns() []ColumnSpec {
	specs := []ColumnSpec{
		{Name: FieldRowNumber, Label: "#", Kind: KindText, ReadOnly: true},
		{Name: FieldDbID, Label: "dbId", Kind: KindText, ReadOnly: true},
		{Name: FieldDiscipline, Kind: KindSelect, Options: []string{
			"Architectural", "Electrical", "Mechanical", "Plumbing", "Structural",
		}},
		{Name: FieldCode, Kind: KindText},
		{Name: FieldElementType, Label: "Element Type", Kind: KindSelect},
		{Name: FieldTypeName, Label: "Type Name", Kind: KindText},
		{Name: FieldDescription, Kind: KindText},
		{Name: FieldMaterial, Kind: KindText},
		{Name: FieldStartDate, Label: "Start Date", Kind: KindDate},
		{Name: FieldEndDate, Label: "End Date", Kind: KindDate},
	}
	for _, field := range NumericFields {
		specs = append(specs, ColumnSpec{
			Name:   field,
			Kind:   KindNumeric,
			Unit:   unitFor(field),
			Format: formatNumericCell(field),
		})
	}
	return specs
}
