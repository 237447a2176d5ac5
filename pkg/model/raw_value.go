package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ValueKind tags the variant held by a RawValue.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindText
	KindNumber
	KindDate
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "absent"
	}
}

// RawValue is an untyped cell as it arrived from the source row. Exactly one
// variant is populated; the zero value is Absent.
type RawValue struct {
	kind ValueKind
	text string
	num  float64
	date time.Time
}

func Absent() RawValue { return RawValue{} }

func Text(s string) RawValue { return RawValue{kind: KindText, text: s} }

func Number(f float64) RawValue { return RawValue{kind: KindNumber, num: f} }

func Date(t time.Time) RawValue { return RawValue{kind: KindDate, date: t} }

func (v RawValue) Kind() ValueKind { return v.kind }

// AsText returns the text variant. ok is false for every other kind.
func (v RawValue) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

func (v RawValue) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v RawValue) AsDate() (time.Time, bool) {
	return v.date, v.kind == KindDate
}

// IsEmpty reports whether the value is Absent or an empty string. Whitespace
// is not trimmed here.
func (v RawValue) IsEmpty() bool {
	return v.kind == KindAbsent || (v.kind == KindText && v.text == "")
}

// String renders the value for reports and CSV output.
func (v RawValue) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		return v.date.Format(time.RFC3339)
	default:
		return ""
	}
}

type dateEnvelope struct {
	Date string `json:"$date"`
}

// UnmarshalJSON maps null to Absent, strings to Text, numbers to Number and
// {"$date": "<RFC3339>"} to Date. Any other JSON shape decodes as Absent.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = Absent()

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case '{':
		var env dateEnvelope
		if err := json.Unmarshal(data, &env); err != nil || env.Date == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, env.Date)
		if err != nil {
			return nil
		}
		*v = Date(t)
	case 't', 'f', '[':
		return nil
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return nil
		}
		*v = Number(f)
	}
	return nil
}

func (v RawValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.num)
	case KindDate:
		return json.Marshal(dateEnvelope{Date: v.date.Format(time.RFC3339)})
	default:
		return []byte("null"), nil
	}
}
