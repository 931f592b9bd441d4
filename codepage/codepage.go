// Package codepage resolves the single-byte text encodings the property
// codec uses for PT_STRING8 values, wrapping golang.org/x/text/encoding so
// callers never hand the codec a bare Windows code-page number.
package codepage

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Codepage names a single-byte encoding usable for PT_STRING8.
type Codepage int

const (
	// Windows1252 is the default codepage per MS-OXMSG and matches what
	// Outlook itself uses for legacy STRING8 properties.
	Windows1252 Codepage = iota
	ISO8859_1
	// USASCII encodes with the Windows-1252 table: characters outside
	// ASCII that Windows-1252 can represent are written as their 1252
	// bytes, not replaced or rejected.
	USASCII
	// UTF8 selects code page 65001. Go strings are already UTF-8, so this
	// passes STRING8 bytes through unchanged instead of transcoding.
	UTF8
)

// Encoding returns the x/text encoding backing cp.
func (cp Codepage) Encoding() encoding.Encoding {
	switch cp {
	case ISO8859_1:
		return charmap.ISO8859_1
	case USASCII:
		return charmap.Windows1252 // ASCII is a strict subset; reuse the 1252 table
	case UTF8:
		return encoding.Nop
	default:
		return charmap.Windows1252
	}
}

// String implements fmt.Stringer for diagnostics and log lines.
func (cp Codepage) String() string {
	switch cp {
	case ISO8859_1:
		return "iso-8859-1"
	case USASCII:
		return "us-ascii"
	case UTF8:
		return "utf-8"
	default:
		return "windows-1252"
	}
}
