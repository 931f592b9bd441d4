// Package codec implements the MAPI property codec: encoding a typed
// property value to its on-wire byte form and classifying fixed-length vs
// variable-length properties.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
	"unicode/utf16"

	"github.com/yuphing-ong/outlook-msg-writer/codepage"
	"github.com/yuphing-ong/outlook-msg-writer/internal/clock"
	"github.com/yuphing-ong/outlook-msg-writer/internal/mapi"
)

// ErrUnsupportedType is returned when asked to encode a MAPI type this
// codec does not implement.
var ErrUnsupportedType = errors.New("unsupported MAPI property type")

// ErrEncoding is returned when a strict-mode STRING8 value contains
// characters the chosen codepage cannot represent.
var ErrEncoding = errors.New("string cannot be represented in codepage")

// Value is a tagged variant over the MAPI types this codec supports. Only
// one field is meaningful, selected by Type.
type Value struct {
	Type    uint16
	Int16   int16
	Int32   int32
	Int64   int64
	Bool    bool
	Time    time.Time
	Str     string
	Binary  []byte
}

// Options controls STRING8 encoding behavior.
type Options struct {
	Codepage codepage.Codepage
	Strict   bool
}

// Encode returns the on-wire bytes for v. For variable-length types this
// is the full stream body (including any NUL terminator); for
// fixed-length types it is the exact-width encoding before any padding
// the property table applies.
func Encode(v Value, opts Options) ([]byte, error) {
	switch v.Type {
	case mapi.TypeInteger16:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(v.Int16))
		return buf, nil
	case mapi.TypeInteger32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v.Int32))
		return buf, nil
	case mapi.TypeBoolean:
		buf := make([]byte, 2)
		if v.Bool {
			binary.LittleEndian.PutUint16(buf, 1)
		}
		return buf, nil
	case mapi.TypeInteger64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v.Int64))
		return buf, nil
	case mapi.TypeSysTime:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, clock.ToFileTime(v.Time))
		return buf, nil
	case mapi.TypeString8:
		return encodeString8(v.Str, opts)
	case mapi.TypeUnicode:
		return encodeUnicode(v.Str), nil
	case mapi.TypeBinary:
		return v.Binary, nil
	default:
		return nil, fmt.Errorf("%w: 0x%04X", ErrUnsupportedType, v.Type)
	}
}

// IsFixedLength reports whether typ is stored inline in a property-table
// entry rather than in a dedicated stream.
func IsFixedLength(typ uint16) bool { return mapi.IsFixedLength(typ) }

// PadFixed left-aligns a fixed-length value's bytes into the 8-byte value
// slot of a property-table entry, zero-padding the remainder.
func PadFixed(b []byte) [8]byte {
	var out [8]byte
	copy(out[:], b)
	return out
}

func encodeString8(s string, opts Options) ([]byte, error) {
	encoder := opts.Codepage.Encoding().NewEncoder()
	if opts.Strict {
		out, err := encoder.Bytes([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
		}
		return append(out, 0x00), nil
	}
	// Lossy mode: encode rune by rune so each unmappable rune becomes '?'.
	var out []byte
	for _, r := range s {
		b, err := encoder.Bytes([]byte(string(r)))
		if err != nil {
			b = []byte{'?'}
		}
		out = append(out, b...)
	}
	return append(out, 0x00), nil
}

func encodeUnicode(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2+2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[i*2:], u)
	}
	// trailing 0x00 0x00 already present from make()'s zero value
	return out
}

// StringValue16 constructs a UNICODE Value.
func StringValue16(s string) Value { return Value{Type: mapi.TypeUnicode, Str: s} }

// StringValue8 constructs a STRING8 Value.
func StringValue8(s string) Value { return Value{Type: mapi.TypeString8, Str: s} }

// BinaryValue constructs a BINARY Value.
func BinaryValue(b []byte) Value { return Value{Type: mapi.TypeBinary, Binary: b} }

// Int32Value constructs an INTEGER32 Value.
func Int32Value(n int32) Value { return Value{Type: mapi.TypeInteger32, Int32: n} }

// Int16Value constructs an INTEGER16 Value.
func Int16Value(n int16) Value { return Value{Type: mapi.TypeInteger16, Int16: n} }

// Int64Value constructs an INTEGER64 Value.
func Int64Value(n int64) Value { return Value{Type: mapi.TypeInteger64, Int64: n} }

// BoolValue constructs a BOOLEAN Value.
func BoolValue(b bool) Value { return Value{Type: mapi.TypeBoolean, Bool: b} }

// TimeValue constructs a SYSTIME Value.
func TimeValue(t time.Time) Value { return Value{Type: mapi.TypeSysTime, Time: t} }
