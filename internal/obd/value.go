package obd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tells which member of a Value is set.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindNumber
	KindText
	KindCodes
)

// Value is a decoded reading. The zero Value is absent.
type Value struct {
	kind  Kind
	num   float64
	text  string
	codes []string
}

func Number(v float64) Value { return Value{kind: KindNumber, num: v} }

func Text(s string) Value { return Value{kind: KindText, text: s} }

// Codes builds a DTC list value. A nil list is stored as empty, so "no
// stored codes" stays distinguishable from an absent response.
func Codes(codes []string) Value {
	if codes == nil {
		codes = []string{}
	}
	return Value{kind: KindCodes, codes: codes}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Float returns the numeric magnitude when the value is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

func (v Value) Codes() []string {
	if v.kind != KindCodes {
		return nil
	}
	out := make([]string, len(v.codes))
	copy(out, v.codes)
	return out
}

// FloatPtr returns nil unless the value is a number.
func (v Value) FloatPtr() *float64 {
	f, ok := v.Float()
	if !ok {
		return nil
	}
	return &f
}

// String renders the value for CSV cells and terminal output. Absent
// values render as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	case KindCodes:
		return fmt.Sprint(v.codes)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.text)
	case KindCodes:
		return json.Marshal(v.codes)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case '[':
		var codes []string
		if err := json.Unmarshal(data, &codes); err != nil {
			return err
		}
		*v = Codes(codes)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*v = Number(f)
	}
	return nil
}

// Result is the outcome of a single query.
type Result struct {
	Present bool
	Value   Value
}

func absent() Result { return Result{} }

func present(v Value) Result {
	if v.IsAbsent() {
		return absent()
	}
	return Result{Present: true, Value: v}
}
