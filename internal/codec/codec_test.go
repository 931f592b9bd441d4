package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yuphing-ong/outlook-msg-writer/codepage"
	"github.com/yuphing-ong/outlook-msg-writer/internal/mapi"
)

func TestEncodeFixedLengthTypes(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want []byte
	}{
		{"int16", Int16Value(7), []byte{0x07, 0x00}},
		{"int32", Int32Value(258), []byte{0x02, 0x01, 0x00, 0x00}},
		{"bool true", BoolValue(true), []byte{0x01, 0x00}},
		{"bool false", BoolValue(false), []byte{0x00, 0x00}},
		{"int64", Int64Value(1), []byte{0x01, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Encode(c.v, Options{})
			require.NoError(t, err)
			require.Equal(t, c.want, got)
			require.True(t, IsFixedLength(c.v.Type))
		})
	}
}

func TestEncodeSysTimeUnixEpoch(t *testing.T) {
	got, err := Encode(TimeValue(time.Unix(0, 0).UTC()), Options{})
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x80, 0x3e, 0xd5, 0xde, 0xb1, 0x9d, 0x01}, got)
}

func TestEncodeUnicodeTrailingNUL(t *testing.T) {
	got, err := Encode(StringValue16("Hi"), Options{})
	require.NoError(t, err)
	// 'H'=0x48, 'i'=0x69, both LE plus trailing NUL NUL.
	require.Equal(t, []byte{0x48, 0x00, 0x69, 0x00, 0x00, 0x00}, got)
	require.False(t, IsFixedLength(mapi.TypeUnicode))
}

func TestEncodeString8LossyByDefault(t *testing.T) {
	// U+0100 (Ā) is not representable in Windows-1252; lossy mode
	// substitutes '?' rather than failing.
	got, err := Encode(StringValue8("cafĀ"), Options{Codepage: codepage.Windows1252})
	require.NoError(t, err)
	require.Equal(t, byte(0x00), got[len(got)-1])
}

func TestEncodeString8StrictFailsOnUnmappableRune(t *testing.T) {
	_, err := Encode(StringValue8("cafĀ"), Options{Codepage: codepage.Windows1252, Strict: true})
	require.ErrorIs(t, err, ErrEncoding)
}

func TestEncodeBinaryPassesThrough(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	got, err := Encode(BinaryValue(data), Options{})
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.False(t, IsFixedLength(mapi.TypeBinary))
}

func TestEncodeUnsupportedType(t *testing.T) {
	_, err := Encode(Value{Type: 0x0005}, Options{})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPadFixedZeroPadsRemainder(t *testing.T) {
	padded := PadFixed([]byte{0x01, 0x02})
	require.Equal(t, [8]byte{0x01, 0x02, 0, 0, 0, 0, 0, 0}, padded)
}
