// Package convidx synthesizes PR_CONVERSATION_INDEX (0x0071) byte strings:
// a 22-byte root header for a new thread, and 5-byte child blocks appended
// per reply.
//
// Some Outlook-compatible writers are known to emit child blocks as pure
// random padding rather than an MS-OXCMSG §2.2.1.3 encoded time delta.
// Mode selects between that lenient behavior and the compliant encoding,
// rather than picking one silently.
package convidx

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yuphing-ong/outlook-msg-writer/internal/clock"
)

// ErrInvalidParent is returned when a supplied parent conversation index
// is shorter than the 22-byte root header.
var ErrInvalidParent = errors.New("conversation index: parent shorter than 22 bytes")

// Mode selects how a reply's 5-byte child block is constructed.
type Mode int

const (
	// TrivialChild appends a 5-byte block of random padding onto the
	// parent, matching the tolerated-but-possibly-incorrect behavior
	// observed in the distilled source. Interoperating clients accept
	// it; strict validators may not.
	TrivialChild Mode = iota
	// EncodedDelta appends a 5-byte block that actually encodes a
	// clamped time delta against the parent's root time, per
	// MS-OXCMSG §2.2.1.3.
	EncodedDelta
)

// Randomness abstracts the byte source used for the root GUID and any
// padding, so callers can inject a fixed source for deterministic tests.
type Randomness interface {
	Read(p []byte) (int, error)
}

// NewRoot synthesizes a 22-byte root conversation index for a new thread:
// 1 header byte (0x01), 5 bytes of the current FILETIME's high portion,
// and 16 bytes of random GUID.
func NewRoot(now time.Time, rnd Randomness) []byte {
	out := make([]byte, 22)
	out[0] = 0x01

	ft := clock.ToFileTime(now)
	var ftBytes [8]byte
	binary.BigEndian.PutUint64(ftBytes[:], ft)
	copy(out[1:6], ftBytes[0:5])

	guidBytes := make([]byte, 16)
	if rnd != nil {
		_, _ = rnd.Read(guidBytes)
	} else {
		id := uuid.New()
		copy(guidBytes, id[:])
	}
	copy(out[6:22], guidBytes)

	return out
}

// AppendChild appends one 5-byte child block onto parent, per mode.
// parent must be at least 22 bytes: a valid root or an already-extended
// index.
func AppendChild(parent []byte, now time.Time, mode Mode, rnd Randomness) ([]byte, error) {
	if len(parent) < 22 {
		return nil, ErrInvalidParent
	}

	out := make([]byte, len(parent), len(parent)+5)
	copy(out, parent)

	switch mode {
	case EncodedDelta:
		block := encodedDeltaBlock(parent, now)
		out = append(out, block[:]...)
	default:
		block := make([]byte, 5)
		if rnd != nil {
			_, _ = rnd.Read(block)
		} else {
			id := uuid.New()
			copy(block, id[:5])
		}
		out = append(out, block...)
	}

	return out, nil
}

// encodedDeltaBlock computes a 5-byte child block encoding the delta
// between now and the root's embedded FILETIME high-portion, clamped to
// the magnitude MS-OXCMSG allows for the flags byte.
func encodedDeltaBlock(parent []byte, now time.Time) [5]byte {
	var rootHigh [8]byte
	copy(rootHigh[0:5], parent[1:6])
	rootTicksHigh := binary.BigEndian.Uint64(rootHigh[:])

	nowTicks := clock.ToFileTime(now)
	var nowHigh [8]byte
	binary.BigEndian.PutUint64(nowHigh[:], nowTicks)
	var nowHighTrunc [8]byte
	copy(nowHighTrunc[0:5], nowHigh[0:5])
	nowTicksHigh := binary.BigEndian.Uint64(nowHighTrunc[:])

	delta := int64(nowTicksHigh-rootTicksHigh) >> 18
	if delta < 0 {
		delta = 0
	}
	if delta > 0x7FFFFFFF {
		delta = 0x7FFFFFFF
	}

	var block [5]byte
	// Top bit of the flags byte set (per MS-OXCMSG response-level
	// encoding), remaining bits plus the next 3 bytes carry the delta.
	block[0] = 0x80 | byte((delta>>24)&0x7F)
	block[1] = byte(delta >> 16)
	block[2] = byte(delta >> 8)
	block[3] = byte(delta)
	block[4] = 0x00
	return block
}
