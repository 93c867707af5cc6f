package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// WireNumber is a numeric field on the backend wire: a JSON number or null.
// Decoding also accepts numeric strings, since some backends echo the raw values.
type WireNumber struct {
	Value float64
	Valid bool
}

// NumberFromField coerces a record field for transmission. Empty,
// "not specified" and malformed values become null.
func NumberFromField(s string) WireNumber {
	n, ok := ParseNumber(s)
	return WireNumber{Value: n, Valid: ok}
}

// Field renders the number back into record form.
func (n WireNumber) Field() string {
	if !n.Valid {
		return ""
	}
	return FormatNumber(n.Value)
}

// MarshalJSON implements json.Marshaler.
func (n WireNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *WireNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = WireNumber{}
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = WireNumber{Value: f, Valid: true}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("numeric field must be a number, string or null: %s", string(data))
	}
	*n = NumberFromField(s)
	return nil
}

// WireRecord is the JSON shape of an element record on the backend data port.
type WireRecord struct {
	DbID        int64  `json:"dbId"`
	Discipline  string `json:"Discipline"`
	Code        string `json:"Code"`
	ElementType string `json:"ElementType"`
	TypeName    string `json:"TypeName"`
	Description string `json:"Description"`
	Material    string `json:"Material"`

	Length    WireNumber `json:"Length"`
	Width     WireNumber `json:"Width"`
	Height    WireNumber `json:"Height"`
	Perimeter WireNumber `json:"Perimeter"`
	Area      WireNumber `json:"Area"`
	Thickness WireNumber `json:"Thickness"`
	Volume    WireNumber `json:"Volume"`
	Quantity  WireNumber `json:"Quantity"`
	UnitPrice WireNumber `json:"UnitPrice"`
	TotalCost WireNumber `json:"TotalCost"`

	StartDate string `json:"StartDate"`
	EndDate   string `json:"EndDate"`

	RowNumber int `json:"rowNumber,omitempty"`
}

// ToWire converts a record for transmission.
func ToWire(r ElementRecord) WireRecord {
	return WireRecord{
		DbID:        r.DbID,
		Discipline:  r.Discipline,
		Code:        r.Code,
		ElementType: r.ElementType,
		TypeName:    r.TypeName,
		Description: r.Description,
		Material:    r.Material,
		Length:      NumberFromField(r.Length),
		Width:       NumberFromField(r.Width),
		Height:      NumberFromField(r.Height),
		Perimeter:   NumberFromField(r.Perimeter),
		Area:        NumberFromField(r.Area),
		Thickness:   NumberFromField(r.Thickness),
		Volume:      NumberFromField(r.Volume),
		Quantity:    NumberFromField(r.Quantity),
		UnitPrice:   NumberFromField(r.UnitPrice),
		TotalCost:   NumberFromField(r.TotalCost),
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		RowNumber:   r.RowNumber,
	}
}

// FromWire converts a received record. Null numbers become empty fields.
func FromWire(w WireRecord) ElementRecord {
	return ElementRecord{
		DbID:        w.DbID,
		Discipline:  w.Discipline,
		Code:        w.Code,
		ElementType: w.ElementType,
		TypeName:    w.TypeName,
		Description: w.Description,
		Material:    w.Material,
		Length:      w.Length.Field(),
		Width:       w.Width.Field(),
		Height:      w.Height.Field(),
		Perimeter:   w.Perimeter.Field(),
		Area:        w.Area.Field(),
		Thickness:   w.Thickness.Field(),
		Volume:      w.Volume.Field(),
		Quantity:    w.Quantity.Field(),
		UnitPrice:   w.UnitPrice.Field(),
		TotalCost:   w.TotalCost.Field(),
		StartDate:   w.StartDate,
		EndDate:     w.EndDate,
		RowNumber:   w.RowNumber,
	}
}

// ToWireAll converts a record list for transmission.
func ToWireAll(records []ElementRecord) []WireRecord {
	out := make([]WireRecord, len(records))
	for i, r := range records {
		out[i] = ToWire(r)
	}
	return out
}

// FromWireAll converts a received record list.
func FromWireAll(wire []WireRecord) []ElementRecord {
	out := make([]ElementRecord, len(wire))
	for i, w := range wire {
		out[i] = FromWire(w)
	}
	return out
}
