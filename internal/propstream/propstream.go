// Package propstream builds the __properties_version1.0 stream for one
// storage and the per-property __substg1.0_<TAG> streams for its
// variable-length properties.
package propstream

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/yuphing-ong/outlook-msg-writer/internal/codec"
	"github.com/yuphing-ong/outlook-msg-writer/internal/mapi"
)

// HeaderKind selects which fixed header __properties_version1.0 opens
// with.
type HeaderKind int

const (
	// TopLevel is the 32-byte header used by the message's own
	// property table.
	TopLevel HeaderKind = iota
	// Embedded is the 24-byte header reserved for embedded messages;
	// not produced by any top-level output path today, kept for
	// completeness.
	Embedded
	// RecipAttach is the 8-byte header used by recipient and
	// attachment storages.
	RecipAttach
)

// TaggedProperty pairs a MAPI tag's property id with its typed value;
// the type half of the tag is always value.Type.
type TaggedProperty struct {
	ID    uint16
	Value codec.Value
}

// Counts supplies the TopLevel header's recipient/attachment counts.
type Counts struct {
	RecipientCount  uint32
	AttachmentCount uint32
}

// Build produces the property-table bytes for one storage plus the
// variable-length streams it must be paired with. Properties are encoded
// and written out in ascending tag order; tags must be unique per
// storage.
func Build(kind HeaderKind, props []TaggedProperty, counts Counts, opts codec.Options) (table []byte, streams map[string][]byte, err error) {
	sorted := make([]TaggedProperty, len(props))
	copy(sorted, props)
	sort.Slice(sorted, func(i, j int) bool {
		return mapi.Tag(sorted[i].ID, sorted[i].Value.Type) < mapi.Tag(sorted[j].ID, sorted[j].Value.Type)
	})

	seen := make(map[uint32]bool, len(sorted))
	for _, p := range sorted {
		tag := mapi.Tag(p.ID, p.Value.Type)
		if seen[tag] {
			return nil, nil, fmt.Errorf("propstream: duplicate property tag 0x%08X", tag)
		}
		seen[tag] = true
	}

	var buf []byte
	switch kind {
	case TopLevel:
		buf = make([]byte, mapi.TopLevelHeaderSize)
		binary.LittleEndian.PutUint32(buf[8:12], counts.RecipientCount)
		binary.LittleEndian.PutUint32(buf[12:16], counts.AttachmentCount)
		binary.LittleEndian.PutUint32(buf[16:20], counts.RecipientCount)
		binary.LittleEndian.PutUint32(buf[20:24], counts.AttachmentCount)
	case Embedded:
		buf = make([]byte, mapi.EmbeddedHeaderSize)
	default:
		buf = make([]byte, mapi.RecipAttachHeaderSize)
	}

	streams = make(map[string][]byte, len(sorted))

	for _, p := range sorted {
		tag := mapi.Tag(p.ID, p.Value.Type)
		entry := make([]byte, 16)
		binary.LittleEndian.PutUint32(entry[0:4], tag)
		binary.LittleEndian.PutUint32(entry[4:8], mapi.PropertyFlagsReadWrite)

		body, encErr := codec.Encode(p.Value, opts)
		if encErr != nil {
			return nil, nil, encErr
		}

		if codec.IsFixedLength(p.Value.Type) {
			padded := codec.PadFixed(body)
			copy(entry[8:16], padded[:])
		} else {
			binary.LittleEndian.PutUint32(entry[8:12], uint32(len(body)))
			name := StreamName(tag)
			streams[name] = body
		}

		buf = append(buf, entry...)
	}

	return buf, streams, nil
}

// StreamName returns the __substg1.0_<TAG> name for a 32-bit property tag,
// rendered as 8 uppercase hex digits.
func StreamName(tag uint32) string {
	return fmt.Sprintf("%s%08X", mapi.SubstgPrefix, tag)
}
