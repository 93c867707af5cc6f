package core

import (
	"context"
	"strconv"
	"strings"
)

// Sentinel group labels used when classification data is absent.
const (
	NoDiscipline = "No Discipline"
	NoCode       = "No Code"
)

// Column names. These double as JSON keys on the backend wire.
const (
	FieldDbID        = "dbId"
	FieldRowNumber   = "rowNumber"
	FieldDiscipline  = "Discipline"
	FieldCode        = "Code"
	FieldElementType = "ElementType"
	FieldTypeName    = "TypeName"
	FieldDescription = "Description"
	FieldMaterial    = "Material"
	FieldLength      = "Length"
	FieldWidth       = "Width"
	FieldHeight      = "Height"
	FieldPerimeter   = "Perimeter"
	FieldArea        = "Area"
	FieldThickness   = "Thickness"
	FieldVolume      = "Volume"
	FieldQuantity    = "Quantity"
	FieldUnitPrice   = "UnitPrice"
	FieldTotalCost   = "TotalCost"
	FieldStartDate   = "StartDate"
	FieldEndDate     = "EndDate"
)

// NumericFields lists every field that participates in aggregation, in display order.
var NumericFields = []string{
	FieldLength, FieldWidth, FieldHeight, FieldPerimeter, FieldArea,
	FieldThickness, FieldVolume, FieldQuantity, FieldUnitPrice, FieldTotalCost,
}

// GroupingFields are the fields whose edits change group membership or order.
var GroupingFields = []string{FieldDiscipline, FieldCode, FieldElementType}

// IsGroupingField reports whether an edit to field requires renumbering.
func IsGroupingField(field string) bool {
	for _, f := range GroupingFields {
		if f == field {
			return true
		}
	}
	return false
}

// ElementRecord is one construction-model element as shown in the table.
// Numeric and date fields are kept as strings; the empty string means unset.
type ElementRecord struct {
	DbID        int64
	Discipline  string
	Code        string
	ElementType string
	TypeName    string
	Description string
	Material    string

	Length    string
	Width     string
	Height    string
	Perimeter string
	Area      string
	Thickness string
	Volume    string
	Quantity  string
	UnitPrice string
	TotalCost string

	StartDate string
	EndDate   string

	RowNumber int
}

// DisciplineLabel returns the discipline, or the sentinel when absent.
func (r ElementRecord) DisciplineLabel() string {
	if strings.TrimSpace(r.Discipline) == "" {
		return NoDiscipline
	}
	return r.Discipline
}

// CodeLabel returns the code, or the sentinel when absent.
func (r ElementRecord) CodeLabel() string {
	if strings.TrimSpace(r.Code) == "" {
		return NoCode
	}
	return r.Code
}

// stringFields maps column names to accessors for every string-valued field.
var stringFields = map[string]func(*ElementRecord) *string{
	FieldDiscipline:  func(r *ElementRecord) *string { return &r.Discipline },
	FieldCode:        func(r *ElementRecord) *string { return &r.Code },
	FieldElementType: func(r *ElementRecord) *string { return &r.ElementType },
	FieldTypeName:    func(r *ElementRecord) *string { return &r.TypeName },
	FieldDescription: func(r *ElementRecord) *string { return &r.Description },
	FieldMaterial:    func(r *ElementRecord) *string { return &r.Material },
	FieldLength:      func(r *ElementRecord) *string { return &r.Length },
	FieldWidth:       func(r *ElementRecord) *string { return &r.Width },
	FieldHeight:      func(r *ElementRecord) *string { return &r.Height },
	FieldPerimeter:   func(r *ElementRecord) *string { return &r.Perimeter },
	FieldArea:        func(r *ElementRecord) *string { return &r.Area },
	FieldThickness:   func(r *ElementRecord) *string { return &r.Thickness },
	FieldVolume:      func(r *ElementRecord) *string { return &r.Volume },
	FieldQuantity:    func(r *ElementRecord) *string { return &r.Quantity },
	FieldUnitPrice:   func(r *ElementRecord) *string { return &r.UnitPrice },
	FieldTotalCost:   func(r *ElementRecord) *string { return &r.TotalCost },
	FieldStartDate:   func(r *ElementRecord) *string { return &r.StartDate },
	FieldEndDate:     func(r *ElementRecord) *string { return &r.EndDate },
}

// Field returns the string value of the named column.
// The second result is false for unknown columns.
func (r ElementRecord) Field(name string) (string, bool) {
	switch name {
	case FieldDbID:
		return strconv.FormatInt(r.DbID, 10), true
	case FieldRowNumber:
		return strconv.Itoa(r.RowNumber), true
	}
	acc, ok := stringFields[name]
	if !ok {
		return "", false
	}
	return *acc(&r), true
}

// WithField returns a copy of r with the named column set to value.
// Identity columns (dbId, rowNumber) and unknown columns are rejected.
func (r ElementRecord) WithField(name, value string) (ElementRecord, error) {
	if name == FieldDbID || name == FieldRowNumber {
		return r, &FieldError{Field: name, Err: ErrReadOnlyField}
	}
	acc, ok := stringFields[name]
	if !ok {
		return r, &FieldError{Field: name, Err: ErrUnknownField}
	}
	*acc(&r) = value
	return r, nil
}

// GroupKey identifies a group: a discipline alone, or "Discipline||Code"
// when code grouping is active. It is also the collapse-state key.
// Backslashes and pipes inside labels are escaped, so a discipline named
// "A||B" never shares a key with code B under discipline A.
type GroupKey string

// groupKeySeparator joins discipline and code in composite keys.
const groupKeySeparator = "||"

var keyEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`)

// DisciplineKey returns the key for a discipline group.
func DisciplineKey(discipline string) GroupKey {
	return GroupKey(keyEscaper.Replace(discipline))
}

// CodeKey returns the composite key for a code group nested under a discipline.
func CodeKey(discipline, code string) GroupKey {
	return GroupKey(keyEscaper.Replace(discipline) + groupKeySeparator + keyEscaper.Replace(code))
}

// Split returns the discipline and code parts of the key.
// Code is empty for plain discipline keys.
func (k GroupKey) Split() (discipline, code string) {
	s := string(k)
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case strings.HasPrefix(s[i:], groupKeySeparator):
			return b.String(), GroupKey(s[i+len(groupKeySeparator):]).unescape()
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), ""
}

func (k GroupKey) unescape() string {
	s := string(k)
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// TotalsMap maps a numeric field to its summed value.
type TotalsMap map[string]float64

// SelectionSet is a set of dbIds. It is replaced, never merged, by selection operations.
type SelectionSet map[int64]struct{}

// NewSelectionSet builds a set from ids.
func NewSelectionSet(ids ...int64) SelectionSet {
	s := make(SelectionSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is selected.
func (s SelectionSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Backend is the data port used for bulk pull and push of element records.
type Backend interface {
	// Pull returns all records for a discipline; an empty discipline returns everything.
	Pull(ctx context.Context, discipline string) ([]ElementRecord, error)
	// Push persists records, replacing stored rows with the same dbId.
	Push(ctx context.Context, records []ElementRecord) error
}

// Deleter is implemented by backends that can delete stored records. Rows
// removed from a grid are deleted on the next push.
type Deleter interface {
	Delete(ctx context.Context, ids []int64) (int64, error)
}
